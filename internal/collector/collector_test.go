package collector

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/rweisssieker-xp/AX-2012-Performce-Optimizer-sub001/internal/model"
)

func TestVolumePriority(t *testing.T) {
	assert.Equal(t, model.PriorityCritical, VolumePriority(1000, 1000, 100, 10))
	assert.Equal(t, model.PriorityHigh, VolumePriority(999, 1000, 100, 10))
	assert.Equal(t, model.PriorityMedium, VolumePriority(10, 1000, 100, 10))
	assert.Equal(t, model.PriorityLow, VolumePriority(9.9, 1000, 100, 10))
}

func TestModificationPriority(t *testing.T) {
	tests := []struct {
		name string
		rows int64
		mods int64
		want model.Priority
	}{
		{"empty table without changes", 0, 0, model.PriorityLow},
		{"empty table with changes", 0, 10, model.PriorityHigh},
		{"small share", 1000, 100, model.PriorityLow},
		{"fifth of rows", 1000, 200, model.PriorityMedium},
		{"half of rows", 1000, 500, model.PriorityHigh},
		{"more than all rows", 1000, 1500, model.PriorityCritical},
		{"large table bumped", 20_000_000, 10, model.PriorityHigh},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ModificationPriority(tt.rows, tt.mods))
		})
	}
}

func TestRecommendation_FirstRelatedObject(t *testing.T) {
	assert.Equal(t, "", Recommendation{}.FirstRelatedObject())
	assert.Equal(t, "dbo.SALESLINE", Recommendation{RelatedObjectIDs: []string{"dbo.SALESLINE", "x"}}.FirstRelatedObject())
}
