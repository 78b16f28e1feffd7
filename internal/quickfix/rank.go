package quickfix

import (
	"sort"

	"github.com/rweisssieker-xp/AX-2012-Performce-Optimizer-sub001/internal/model"
)

// DefaultTopK bir analiz sonucunda tutulacak en fazla düzeltme sayısı
const DefaultTopK = 10

// Rank clamps scores into [0,100], orders candidates by impact/max(1,effort)
// then by impact, and keeps the first k. Ties keep their input order.
func Rank(candidates []model.Fix, k int) []model.Fix {
	if k <= 0 || len(candidates) == 0 {
		return []model.Fix{}
	}

	ranked := make([]model.Fix, len(candidates))
	for i, f := range candidates {
		f.Impact = clampScore(f.Impact)
		f.Effort = clampScore(f.Effort)
		f.Confidence = clampScore(f.Confidence)
		ranked[i] = f
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		si, sj := ranked[i].Score(), ranked[j].Score()
		if si != sj {
			return si > sj
		}
		return ranked[i].Impact > ranked[j].Impact
	})

	if len(ranked) > k {
		ranked = ranked[:k]
	}
	return ranked
}

func clampScore(v int) int {
	switch {
	case v < 0:
		return 0
	case v > 100:
		return 100
	default:
		return v
	}
}
