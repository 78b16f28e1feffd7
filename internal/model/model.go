package model

import (
	"time"
)

// FixKind önerilen düzeltmenin türü
type FixKind string

const (
	KindCreateIndex         FixKind = "create-index"
	KindUpdateStatistics    FixKind = "update-statistics"
	KindRebuildIndex        FixKind = "rebuild-index"
	KindClearCache          FixKind = "clear-cache"
	KindKillBlockingSession FixKind = "kill-blocking-session"
	KindOptimizeQuery       FixKind = "optimize-query"
	KindAdjustConfiguration FixKind = "adjust-configuration"
)

// Kinds returns every known fix kind in declaration order.
func Kinds() []FixKind {
	return []FixKind{
		KindCreateIndex,
		KindUpdateStatistics,
		KindRebuildIndex,
		KindClearCache,
		KindKillBlockingSession,
		KindOptimizeQuery,
		KindAdjustConfiguration,
	}
}

// Priority kaynak önerisinden türetilen öncelik seviyesi
type Priority int

const (
	PriorityLow Priority = iota
	PriorityMedium
	PriorityHigh
	PriorityCritical
)

func (p Priority) String() string {
	switch p {
	case PriorityLow:
		return "low"
	case PriorityMedium:
		return "medium"
	case PriorityHigh:
		return "high"
	case PriorityCritical:
		return "critical"
	default:
		return "unknown"
	}
}

// MarshalText lets priorities appear by name in JSON output.
func (p Priority) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// Fix tek bir analiz çalışmasında üretilen aday düzeltme. Üretildikten sonra değiştirilmez.
type Fix struct {
	ID                 string   `json:"id"`
	Title              string   `json:"title"`
	Description        string   `json:"description"`
	Kind               FixKind  `json:"kind"`
	Impact             int      `json:"impact"`
	Effort             int      `json:"effort"`
	Confidence         int      `json:"confidence"`
	DirectlyApplicable bool     `json:"directly_applicable"`
	Script             string   `json:"script"`
	RelatedObjectID    string   `json:"related_object_id,omitempty"`
	Priority           Priority `json:"priority"`
	Source             string   `json:"source,omitempty"`
}

// Score is the ranking key impact / max(1, effort).
func (f Fix) Score() float64 {
	effort := f.Effort
	if effort < 1 {
		effort = 1
	}
	return float64(f.Impact) / float64(effort)
}

// AnalysisResult tamamlanmış bir analiz çalışmasının sonucu
type AnalysisResult struct {
	Generation         uint64        `json:"generation"`
	Timestamp          time.Time     `json:"timestamp"`
	Duration           time.Duration `json:"duration"`
	Fixes              []Fix         `json:"fixes"`
	Summary            string        `json:"summary"`
	Success            bool          `json:"success"`
	Error              string        `json:"error,omitempty"`
	CompletedAnalyzers []string      `json:"completed_analyzers,omitempty"`
	FailedAnalyzers    []string      `json:"failed_analyzers,omitempty"`
}

// FindFix returns the fix with the given identifier.
func (r AnalysisResult) FindFix(id string) (Fix, bool) {
	for _, f := range r.Fixes {
		if f.ID == id {
			return f, true
		}
	}
	return Fix{}, false
}

// ApplyOutcome bir düzeltmenin uygulanma (veya geri alınma) sonucu
type ApplyOutcome struct {
	Success        bool      `json:"success"`
	Message        string    `json:"message"`
	ErrorMessage   string    `json:"error_message,omitempty"`
	AppliedAt      time.Time `json:"applied_at"`
	FixID          string    `json:"fix_id"`
	Kind           FixKind   `json:"kind,omitempty"`
	CanRollback    bool      `json:"can_rollback"`
	RollbackScript string    `json:"rollback_script,omitempty"`
	RolledBack     bool      `json:"rolled_back"`
}

// Failed builds a failure outcome for the given fix.
func Failed(fixID, message string, err error) ApplyOutcome {
	out := ApplyOutcome{
		Success:   false,
		Message:   message,
		AppliedAt: time.Now(),
		FixID:     fixID,
	}
	if err != nil {
		out.ErrorMessage = err.Error()
	}
	return out
}
