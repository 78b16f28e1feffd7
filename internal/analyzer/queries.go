package analyzer

import (
	"context"
	"fmt"

	"github.com/rweisssieker-xp/AX-2012-Performce-Optimizer-sub001/internal/collector"
	"github.com/rweisssieker-xp/AX-2012-Performce-Optimizer-sub001/internal/model"
)

// BlockingQueryAnalyzer süresi CPU süresinin katlarını aşan sorguları bekleme kaynaklı sayar
type BlockingQueryAnalyzer struct {
	source     collector.QueryStatsSource
	dialect    collector.Dialect
	limit      int
	waitRatio  float64
	queryLimit int
}

// NewBlockingQueryAnalyzer yeni bir BlockingQueryAnalyzer oluşturur
func NewBlockingQueryAnalyzer(source collector.QueryStatsSource, dialect collector.Dialect, limit int, waitRatio float64, queryLimit int) *BlockingQueryAnalyzer {
	return &BlockingQueryAnalyzer{
		source:     source,
		dialect:    dialect,
		limit:      limit,
		waitRatio:  waitRatio,
		queryLimit: queryLimit,
	}
}

func (a *BlockingQueryAnalyzer) Name() string { return NameBlockingQuery }

func (a *BlockingQueryAnalyzer) Detect(ctx context.Context) ([]model.Fix, error) {
	if a.limit <= 0 {
		return nil, nil
	}

	queries, err := a.source.GetTopExpensiveQueries(ctx, a.queryLimit)
	if err != nil {
		return nil, fmt.Errorf("pahalı sorgular alınamadı: %w", err)
	}

	var fixes []model.Fix
	for _, q := range queries {
		if len(fixes) >= a.limit {
			break
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if q.AvgElapsedMs <= a.waitRatio*q.AvgCPUMs {
			continue
		}

		fixes = append(fixes, model.Fix{
			ID:    newFixID(),
			Title: fmt.Sprintf("Terminate blocking session of query %s", q.QueryID),
			Description: fmt.Sprintf("Query %s spends %.0f of %.0f ms waiting (%.0f ms CPU, %d executions): %s",
				q.QueryID, q.AvgElapsedMs-q.AvgCPUMs, q.AvgElapsedMs, q.AvgCPUMs, q.ExecutionCount, q.QueryText),
			Kind:               model.KindKillBlockingSession,
			Impact:             80,
			Effort:             5,
			Confidence:         60,
			DirectlyApplicable: false,
			Script:             a.dialect.KillSessionScript(q.SessionID),
			RelatedObjectID:    q.QueryID,
			Priority:           model.PriorityHigh,
			Source:             NameBlockingQuery,
		})
	}
	return fixes, nil
}

// HighCPUQueryAnalyzer ortalama CPU süresi eşiği aşan sorguları gözden geçirmeye önerir
type HighCPUQueryAnalyzer struct {
	source      collector.QueryStatsSource
	dialect     collector.Dialect
	limit       int
	thresholdMs float64
	queryLimit  int
}

// NewHighCPUQueryAnalyzer yeni bir HighCPUQueryAnalyzer oluşturur
func NewHighCPUQueryAnalyzer(source collector.QueryStatsSource, dialect collector.Dialect, limit int, thresholdMs float64, queryLimit int) *HighCPUQueryAnalyzer {
	return &HighCPUQueryAnalyzer{
		source:      source,
		dialect:     dialect,
		limit:       limit,
		thresholdMs: thresholdMs,
		queryLimit:  queryLimit,
	}
}

func (a *HighCPUQueryAnalyzer) Name() string { return NameHighCPUQuery }

func (a *HighCPUQueryAnalyzer) Detect(ctx context.Context) ([]model.Fix, error) {
	if a.limit <= 0 {
		return nil, nil
	}

	queries, err := a.source.GetTopExpensiveQueries(ctx, a.queryLimit)
	if err != nil {
		return nil, fmt.Errorf("pahalı sorgular alınamadı: %w", err)
	}

	var fixes []model.Fix
	for _, q := range queries {
		if len(fixes) >= a.limit {
			break
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if q.AvgCPUMs <= a.thresholdMs {
			continue
		}

		fixes = append(fixes, model.Fix{
			ID:    newFixID(),
			Title: fmt.Sprintf("Optimize high-CPU query %s", q.QueryID),
			Description: fmt.Sprintf("Query %s averages %.0f ms CPU over %d executions (threshold %.0f ms): %s",
				q.QueryID, q.AvgCPUMs, q.ExecutionCount, a.thresholdMs, q.QueryText),
			Kind:               model.KindOptimizeQuery,
			Impact:             75,
			Effort:             50,
			Confidence:         70,
			DirectlyApplicable: false,
			Script:             a.dialect.QueryPlanScript(q.QueryID),
			RelatedObjectID:    q.QueryID,
			Priority:           model.PriorityHigh,
			Source:             NameHighCPUQuery,
		})
	}
	return fixes, nil
}
