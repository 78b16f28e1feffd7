package analyzer

import (
	"context"
	"fmt"
	"strings"

	"github.com/rweisssieker-xp/AX-2012-Performce-Optimizer-sub001/internal/collector"
	"github.com/rweisssieker-xp/AX-2012-Performce-Optimizer-sub001/internal/model"
)

// MissingIndexAnalyzer index-management önerilerinden CreateIndex düzeltmeleri üretir
type MissingIndexAnalyzer struct {
	source collector.RecommendationSource
	limit  int
}

// NewMissingIndexAnalyzer yeni bir MissingIndexAnalyzer oluşturur
func NewMissingIndexAnalyzer(source collector.RecommendationSource, limit int) *MissingIndexAnalyzer {
	return &MissingIndexAnalyzer{source: source, limit: limit}
}

func (a *MissingIndexAnalyzer) Name() string { return NameMissingIndex }

func (a *MissingIndexAnalyzer) Detect(ctx context.Context) ([]model.Fix, error) {
	recs, err := a.source.GetRecommendationsByCategory(ctx, collector.CategoryIndexManagement)
	if err != nil {
		return nil, fmt.Errorf("index önerileri alınamadı: %w", err)
	}

	var fixes []model.Fix
	for _, rec := range recs {
		if len(fixes) >= a.limit {
			break
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if strings.TrimSpace(rec.ActionScript) == "" {
			continue
		}

		impact := 70
		if rec.Priority == model.PriorityCritical {
			impact = 90
		}

		fixes = append(fixes, model.Fix{
			ID:                 newFixID(),
			Title:              rec.Title,
			Description:        rec.Description,
			Kind:               model.KindCreateIndex,
			Impact:             impact,
			Effort:             20,
			Confidence:         80,
			DirectlyApplicable: true,
			Script:             rec.ActionScript,
			RelatedObjectID:    rec.FirstRelatedObject(),
			Priority:           rec.Priority,
			Source:             NameMissingIndex,
		})
	}
	return fixes, nil
}

// StaleStatisticsAnalyzer bakım önerilerinden istatistikle ilgili olanları seçer
type StaleStatisticsAnalyzer struct {
	source collector.RecommendationSource
	limit  int
}

// NewStaleStatisticsAnalyzer yeni bir StaleStatisticsAnalyzer oluşturur
func NewStaleStatisticsAnalyzer(source collector.RecommendationSource, limit int) *StaleStatisticsAnalyzer {
	return &StaleStatisticsAnalyzer{source: source, limit: limit}
}

func (a *StaleStatisticsAnalyzer) Name() string { return NameStaleStatistics }

func (a *StaleStatisticsAnalyzer) Detect(ctx context.Context) ([]model.Fix, error) {
	recs, err := a.source.GetRecommendationsByCategory(ctx, collector.CategoryDatabaseMaintenance)
	if err != nil {
		return nil, fmt.Errorf("bakım önerileri alınamadı: %w", err)
	}

	var fixes []model.Fix
	for _, rec := range recs {
		if len(fixes) >= a.limit {
			break
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if !strings.Contains(strings.ToLower(rec.Description), "statistics") || strings.TrimSpace(rec.ActionScript) == "" {
			continue
		}

		fixes = append(fixes, model.Fix{
			ID:                 newFixID(),
			Title:              rec.Title,
			Description:        rec.Description,
			Kind:               model.KindUpdateStatistics,
			Impact:             60,
			Effort:             10,
			Confidence:         85,
			DirectlyApplicable: true,
			Script:             rec.ActionScript,
			RelatedObjectID:    rec.FirstRelatedObject(),
			Priority:           rec.Priority,
			Source:             NameStaleStatistics,
		})
	}
	return fixes, nil
}
