package collector

import (
	"context"
	"errors"

	"github.com/rweisssieker-xp/AX-2012-Performce-Optimizer-sub001/internal/model"
)

var (
	ErrUnsupportedPlatform = errors.New("unsupported platform")
	ErrNotSupported        = errors.New("operation not supported by this platform")
)

// QueryStatsSource pahalı sorgu listesini sağlayan salt-okunur kaynak
type QueryStatsSource interface {
	GetTopExpensiveQueries(ctx context.Context, limit int) ([]ExpensiveQuery, error)
}

// RecommendationSource index/istatistik önerilerini sağlayan salt-okunur katalog
type RecommendationSource interface {
	GetRecommendationsByCategory(ctx context.Context, category Category) ([]Recommendation, error)
}

// Dialect builds platform specific statements for query based fixes.
type Dialect interface {
	KillSessionScript(sessionID int64) string
	QueryPlanScript(queryID string) string
}

// Remediator executes remediation scripts against the monitored database.
type Remediator interface {
	Platform() string
	Exec(ctx context.Context, script string) error
	Supports(kind model.FixKind) bool
	// InverseScript returns the statement that undoes script, if one exists.
	InverseScript(kind model.FixKind, script string) (string, bool)
}

// Backend bir platformun tüm tanı ve düzeltme yeteneklerini bir araya getirir
type Backend interface {
	QueryStatsSource
	RecommendationSource
	Dialect
	Remediator
	Close() error
}

// VolumePriority maps a volume measure onto a priority using descending thresholds.
func VolumePriority(value, critical, high, medium float64) model.Priority {
	switch {
	case value >= critical:
		return model.PriorityCritical
	case value >= high:
		return model.PriorityHigh
	case value >= medium:
		return model.PriorityMedium
	default:
		return model.PriorityLow
	}
}

// ModificationPriority rates stale statistics by the share of modified rows.
func ModificationPriority(rows, modifications int64) model.Priority {
	if rows <= 0 {
		if modifications > 0 {
			return model.PriorityHigh
		}
		return model.PriorityLow
	}
	ratio := float64(modifications) / float64(rows)
	p := model.PriorityLow
	switch {
	case ratio >= 1:
		p = model.PriorityCritical
	case ratio >= 0.5:
		p = model.PriorityHigh
	case ratio >= 0.2:
		p = model.PriorityMedium
	}
	// Large tables get at least high priority
	if rows >= 10_000_000 && p < model.PriorityHigh {
		p = model.PriorityHigh
	}
	return p
}
