package quickfix

import (
	"sync"
	"time"

	"github.com/rweisssieker-xp/AX-2012-Performce-Optimizer-sub001/internal/model"
)

// DefaultCacheTTL bir analiz sonucunun geçerlilik süresi
const DefaultCacheTTL = 5 * time.Minute

// ResultCache son analiz sonucunu TTL süresince tutan tek girişli önbellek
type ResultCache struct {
	mu       sync.RWMutex
	ttl      time.Duration
	now      func() time.Time
	result   model.AnalysisResult
	storedAt time.Time
	present  bool
}

// NewResultCache creates an empty cache. A nil clock means time.Now.
func NewResultCache(ttl time.Duration, now func() time.Time) *ResultCache {
	if now == nil {
		now = time.Now
	}
	return &ResultCache{ttl: ttl, now: now}
}

// Get returns a copy of the stored result if it is younger than the TTL.
func (c *ResultCache) Get() (model.AnalysisResult, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if !c.present || c.now().Sub(c.storedAt) >= c.ttl {
		return model.AnalysisResult{}, false
	}
	return copyResult(c.result), true
}

// Put replaces the stored result and restarts its TTL.
func (c *ResultCache) Put(result model.AnalysisResult) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.result = copyResult(result)
	c.storedAt = c.now()
	c.present = true
}

// Invalidate drops the stored result.
func (c *ResultCache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.result = model.AnalysisResult{}
	c.present = false
}

func copyResult(r model.AnalysisResult) model.AnalysisResult {
	r.Fixes = append(make([]model.Fix, 0, len(r.Fixes)), r.Fixes...)
	r.CompletedAnalyzers = append([]string(nil), r.CompletedAnalyzers...)
	r.FailedAnalyzers = append([]string(nil), r.FailedAnalyzers...)
	return r
}
