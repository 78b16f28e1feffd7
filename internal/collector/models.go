package collector

import (
	"github.com/rweisssieker-xp/AX-2012-Performce-Optimizer-sub001/internal/model"
)

// Category öneri kataloğundaki kategori
type Category string

const (
	CategoryIndexManagement     Category = "index-management"
	CategoryDatabaseMaintenance Category = "database-maintenance"
	CategoryQueryOptimization   Category = "query-optimization"
	CategoryConfiguration       Category = "configuration"
)

// ExpensiveQuery sorgu istatistiklerinden okunan pahalı sorgu kaydı
type ExpensiveQuery struct {
	QueryID        string
	Database       string
	AvgElapsedMs   float64
	AvgCPUMs       float64
	ExecutionCount int64
	QueryText      string
	SessionID      int64 // Sorguyu şu anda çalıştıran oturum, yoksa 0
}

// Recommendation öneri kataloğundaki tek bir kayıt
type Recommendation struct {
	Title            string
	Description      string
	Priority         model.Priority
	ActionScript     string
	RelatedObjectIDs []string
	Category         Category
}

// FirstRelatedObject returns the first related object identifier, or "".
func (r Recommendation) FirstRelatedObject() string {
	if len(r.RelatedObjectIDs) == 0 {
		return ""
	}
	return r.RelatedObjectIDs[0]
}
