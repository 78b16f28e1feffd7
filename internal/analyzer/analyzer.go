package analyzer

import (
	"context"

	"github.com/google/uuid"
	"github.com/rweisssieker-xp/AX-2012-Performce-Optimizer-sub001/internal/collector"
	"github.com/rweisssieker-xp/AX-2012-Performce-Optimizer-sub001/internal/config"
	"github.com/rweisssieker-xp/AX-2012-Performce-Optimizer-sub001/internal/model"
)

// Analyzer ham tanı verisinden aday düzeltmeler üretir. Yan etkisizdir ve
// ctx iptal edildiğinde erken dönmelidir.
type Analyzer interface {
	Name() string
	Detect(ctx context.Context) ([]model.Fix, error)
}

// Analyzer names, also used as Fix.Source.
const (
	NameMissingIndex    = "missing-index"
	NameStaleStatistics = "stale-statistics"
	NameBlockingQuery   = "blocking-query"
	NameHighCPUQuery    = "high-cpu-query"
)

// Defaults returns the four standard analyzers wired to one backend.
func Defaults(backend collector.Backend, cfg config.QuickFixConfig) []Analyzer {
	a := cfg.Analyzers
	return []Analyzer{
		NewMissingIndexAnalyzer(backend, a.MissingIndexCap),
		NewStaleStatisticsAnalyzer(backend, a.StaleStatisticsCap),
		NewBlockingQueryAnalyzer(backend, backend, a.BlockingQueryCap, a.BlockingWaitRatio, cfg.ExpensiveQueryLimit),
		NewHighCPUQueryAnalyzer(backend, backend, a.HighCPUQueryCap, a.HighCPUThresholdMs, cfg.ExpensiveQueryLimit),
	}
}

// newFixID returns an identifier that is never reused across runs.
func newFixID() string {
	return uuid.New().String()
}
