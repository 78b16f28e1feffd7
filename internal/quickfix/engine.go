package quickfix

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/rweisssieker-xp/AX-2012-Performce-Optimizer-sub001/internal/analyzer"
	"github.com/rweisssieker-xp/AX-2012-Performce-Optimizer-sub001/internal/collector"
	"github.com/rweisssieker-xp/AX-2012-Performce-Optimizer-sub001/internal/config"
	"github.com/rweisssieker-xp/AX-2012-Performce-Optimizer-sub001/internal/logger"
	"github.com/rweisssieker-xp/AX-2012-Performce-Optimizer-sub001/internal/model"
)

// DefaultDeadline bir analiz çalışmasının duvar saati bütçesi
const DefaultDeadline = 30 * time.Second

const analysisKey = "analysis"

var errAnalyzerPanic = errors.New("analyzer panicked")

// Config holds the engine limits.
type Config struct {
	Deadline time.Duration
	TopK     int
}

// DefaultConfig returns the 30 second deadline and top 10 fixes.
func DefaultConfig() Config {
	return Config{Deadline: DefaultDeadline, TopK: DefaultTopK}
}

// ConfigFrom converts the quickfix section of the agent configuration.
func ConfigFrom(q config.QuickFixConfig) Config {
	cfg := DefaultConfig()
	if d := q.Deadline(); d > 0 {
		cfg.Deadline = d
	}
	if q.TopK > 0 {
		cfg.TopK = q.TopK
	}
	return cfg
}

// Engine analiz, sıralama, önbellek ve düzeltme uygulama akışını yönetir
type Engine struct {
	analyzers  []analyzer.Analyzer
	remediator collector.Remediator
	cache      *ResultCache
	journal    *Journal
	cfg        Config

	group      singleflight.Group
	generation atomic.Uint64

	mu       sync.RWMutex
	routines map[model.FixKind]Routine

	rank func([]model.Fix, int) []model.Fix
	now  func() time.Time
	log  *logger.Scoped
}

// New creates an engine. A nil cache or journal is replaced by an empty one.
func New(analyzers []analyzer.Analyzer, remediator collector.Remediator, cache *ResultCache, journal *Journal, cfg Config) *Engine {
	if cache == nil {
		cache = NewResultCache(DefaultCacheTTL, nil)
	}
	if journal == nil {
		journal = NewJournal()
	}
	if cfg.Deadline < 0 {
		cfg.Deadline = 0
	}
	if cfg.TopK <= 0 {
		cfg.TopK = DefaultTopK
	}

	return &Engine{
		analyzers:  analyzers,
		remediator: remediator,
		cache:      cache,
		journal:    journal,
		cfg:        cfg,
		routines:   DefaultRoutines(),
		rank:       Rank,
		now:        time.Now,
		log:        logger.Named("quickfix"),
	}
}

// RegisterRoutine adds or replaces the routine of a fix kind.
func (e *Engine) RegisterRoutine(kind model.FixKind, routine Routine) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.routines[kind] = routine
}

// Applied returns the journal of applied fixes.
func (e *Engine) Applied() []Entry {
	return e.journal.Entries()
}

// Analyze returns the cached result when it is still valid, otherwise runs every
// analyzer under the deadline. Concurrent misses share a single run. A caller
// whose context ends gets a failed result without aborting the run for the
// other callers.
func (e *Engine) Analyze(ctx context.Context) model.AnalysisResult {
	if r, ok := e.cache.Get(); ok {
		cacheRequests.WithLabelValues("hit").Inc()
		return r
	}
	cacheRequests.WithLabelValues("miss").Inc()

	start := e.now()
	if err := ctx.Err(); err != nil {
		return e.abandoned(start, err)
	}

	// Ortak çalışma yalnızca süre sınırına bağlıdır, tek bir çağıranın iptaline değil
	shared := context.WithoutCancel(ctx)
	ch := e.group.DoChan(analysisKey, func() (interface{}, error) {
		// Beklerken başka bir çağrı sonucu yazmış olabilir
		if r, ok := e.cache.Get(); ok {
			return r, nil
		}
		r := e.run(shared)
		if r.Success {
			e.cache.Put(r)
		}
		return r, nil
	})

	select {
	case res := <-ch:
		return copyResult(res.Val.(model.AnalysisResult))
	case <-ctx.Done():
		return e.abandoned(start, ctx.Err())
	}
}

// abandoned is the result of a caller that stopped waiting for the analysis.
func (e *Engine) abandoned(start time.Time, err error) model.AnalysisResult {
	reason := "cancelled"
	if errors.Is(err, context.DeadlineExceeded) {
		reason = "timed out"
	}
	e.log.Debug("Çağıran analiz sonucunu beklemeden ayrıldı: %v", err)

	duration := e.now().Sub(start)
	return model.AnalysisResult{
		Timestamp: start,
		Duration:  duration,
		Fixes:     []model.Fix{},
		Error:     reason,
		Summary:   fmt.Sprintf("Analysis failed after %s: %s", duration.Round(time.Millisecond), reason),
	}
}

func (e *Engine) run(ctx context.Context) model.AnalysisResult {
	start := e.now()
	generation := e.generation.Add(1)

	runCtx, cancel := context.WithTimeout(ctx, e.cfg.Deadline)
	defer cancel()

	var (
		mu        sync.Mutex
		closed    bool
		slots     = make([][]model.Fix, len(e.analyzers))
		finished  = make([]bool, len(e.analyzers))
		succeeded = make([]bool, len(e.analyzers))
		wg        sync.WaitGroup
	)

	for i, a := range e.analyzers {
		wg.Add(1)
		go func(i int, a analyzer.Analyzer) {
			defer wg.Done()
			fixes, err := e.detect(runCtx, a)

			mu.Lock()
			defer mu.Unlock()
			// Süre dolduktan sonra gelen sonuçlar atılır
			if closed {
				analyzerRuns.WithLabelValues(a.Name(), "timeout").Inc()
				return
			}
			// Bağlam bittikten sonra dönen hata zaman aşımı sayılır
			finished[i] = err == nil || runCtx.Err() == nil
			if err == nil {
				slots[i] = fixes
				succeeded[i] = true
			}
		}(i, a)
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-runCtx.Done():
	}
	expired := runCtx.Err()

	cause := "did not finish before the deadline"
	if errors.Is(expired, context.Canceled) {
		cause = "was cancelled before finishing"
	}

	mu.Lock()
	closed = true
	var (
		candidates []model.Fix
		completed  []string
		failed     []string
		returned   int
	)
	for i, a := range e.analyzers {
		if finished[i] {
			returned++
		}
		if succeeded[i] {
			completed = append(completed, a.Name())
			candidates = append(candidates, slots[i]...)
			continue
		}
		if !finished[i] {
			e.log.Warning("%s analyzer %s, skipped", a.Name(), cause)
		}
		failed = append(failed, a.Name())
	}
	mu.Unlock()

	result := model.AnalysisResult{
		Generation:         generation,
		Timestamp:          start,
		CompletedAnalyzers: completed,
		FailedAnalyzers:    failed,
	}

	// Süre içinde hatayla dönen analyzer da sıfır düzeltmeyle tamamlanmış sayılır
	if expired != nil && returned == 0 && len(e.analyzers) > 0 {
		reason := "timed out"
		if errors.Is(expired, context.Canceled) {
			reason = "cancelled"
		}
		return e.finish(result, start, nil, reason, "timeout")
	}

	fixes, err := e.safeRank(candidates)
	if err != nil {
		e.log.Error("Sıralama başarısız: %v", err)
		return e.finish(result, start, nil, err.Error(), "failed")
	}

	outcome := "success"
	if len(failed) > 0 {
		outcome = "partial"
	}
	return e.finish(result, start, fixes, "", outcome)
}

func (e *Engine) finish(result model.AnalysisResult, start time.Time, fixes []model.Fix, reason, label string) model.AnalysisResult {
	if fixes == nil {
		fixes = []model.Fix{}
	}
	result.Duration = e.now().Sub(start)
	result.Fixes = fixes
	result.Success = reason == ""
	result.Error = reason

	if result.Success {
		result.Summary = fmt.Sprintf("%d fixes proposed from %d/%d analyzers in %s",
			len(fixes), len(result.CompletedAnalyzers), len(e.analyzers), result.Duration.Round(time.Millisecond))
	} else {
		result.Summary = fmt.Sprintf("Analysis failed after %s: %s", result.Duration.Round(time.Millisecond), reason)
	}

	analysisRuns.WithLabelValues(label).Inc()
	analysisDuration.Observe(result.Duration.Seconds())
	fixesProposed.Set(float64(len(fixes)))
	e.log.Info("Analiz #%d tamamlandı: %s", result.Generation, result.Summary)
	return result
}

// detect runs one analyzer and turns a panic into an error.
func (e *Engine) detect(ctx context.Context, a analyzer.Analyzer) (fixes []model.Fix, err error) {
	log := logger.Named(a.Name())
	defer func() {
		if r := recover(); r != nil {
			log.Error("Analyzer panic: %v", r)
			analyzerRuns.WithLabelValues(a.Name(), "panic").Inc()
			fixes, err = nil, fmt.Errorf("%w: %v", errAnalyzerPanic, r)
		}
	}()

	fixes, err = a.Detect(ctx)
	if err != nil {
		log.Warning("Analyzer başarısız: %v", err)
		analyzerRuns.WithLabelValues(a.Name(), "error").Inc()
		return nil, err
	}
	log.Debug("%d aday düzeltme üretildi", len(fixes))
	analyzerRuns.WithLabelValues(a.Name(), "ok").Inc()
	return fixes, nil
}

func (e *Engine) safeRank(candidates []model.Fix) (fixes []model.Fix, err error) {
	defer func() {
		if r := recover(); r != nil {
			fixes, err = nil, fmt.Errorf("ranking failed: %v", r)
		}
	}()
	return e.rank(candidates, e.cfg.TopK), nil
}

// DirectlyApplicable reports whether a fix may run without confirmation.
// Session kills and critical fixes always need confirmation.
func DirectlyApplicable(fix model.Fix) bool {
	return fix.DirectlyApplicable &&
		fix.Kind != model.KindKillBlockingSession &&
		fix.Priority != model.PriorityCritical
}

// CanApplyDirectly resolves the fix against the current result.
func (e *Engine) CanApplyDirectly(ctx context.Context, fixID string) bool {
	fix, ok := e.Analyze(ctx).FindFix(fixID)
	return ok && DirectlyApplicable(fix)
}

// Apply resolves the fix against the current result and runs its routine.
func (e *Engine) Apply(ctx context.Context, fixID string) model.ApplyOutcome {
	fix, ok := e.Analyze(ctx).FindFix(fixID)
	if !ok {
		applyTotal.WithLabelValues("unknown", "not_found").Inc()
		return model.Failed(fixID, fmt.Sprintf("fix %s not found", fixID), nil)
	}
	return e.apply(ctx, fix)
}

// ApplyIn is Apply pinned to the analysis generation the caller saw.
func (e *Engine) ApplyIn(ctx context.Context, generation uint64, fixID string) model.ApplyOutcome {
	result := e.Analyze(ctx)
	if result.Generation != generation {
		applyTotal.WithLabelValues("unknown", "not_found").Inc()
		return model.Failed(fixID, fmt.Sprintf("generation superseded: fix %s belongs to analysis %d, current is %d",
			fixID, generation, result.Generation), nil)
	}
	fix, ok := result.FindFix(fixID)
	if !ok {
		applyTotal.WithLabelValues("unknown", "not_found").Inc()
		return model.Failed(fixID, fmt.Sprintf("fix %s not found", fixID), nil)
	}
	return e.apply(ctx, fix)
}

func (e *Engine) apply(ctx context.Context, fix model.Fix) model.ApplyOutcome {
	e.mu.RLock()
	routine, ok := e.routines[fix.Kind]
	e.mu.RUnlock()

	if !ok {
		applyTotal.WithLabelValues(string(fix.Kind), "failed").Inc()
		out := model.Failed(fix.ID, fmt.Sprintf("no remediation routine for %s", fix.Kind),
			fmt.Errorf("%w: %s", ErrNoRoutine, fix.Kind))
		out.Kind = fix.Kind
		return out
	}

	res, err := e.runRoutine(ctx, routine, fix)
	if err != nil {
		e.log.Warning("Düzeltme uygulanamadı %s (%s): %v", fix.ID, fix.Kind, err)
		applyTotal.WithLabelValues(string(fix.Kind), "failed").Inc()
		out := model.Failed(fix.ID, fmt.Sprintf("Failed to apply %q", fix.Title), err)
		out.Kind = fix.Kind
		return out
	}

	out := model.ApplyOutcome{
		Success:        true,
		Message:        res.Message,
		AppliedAt:      e.now(),
		FixID:          fix.ID,
		Kind:           fix.Kind,
		CanRollback:    res.CanRollback,
		RollbackScript: res.RollbackScript,
	}
	e.journal.Record(fix, out)
	e.cache.Invalidate()

	applyTotal.WithLabelValues(string(fix.Kind), "success").Inc()
	e.log.Info("Düzeltme uygulandı %s (%s): %s", fix.ID, fix.Kind, res.Message)
	return out
}

func (e *Engine) runRoutine(ctx context.Context, routine Routine, fix model.Fix) (res RoutineResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			res, err = RoutineResult{}, fmt.Errorf("remediation routine panicked: %v", r)
		}
	}()
	return routine(ctx, e.remediator, fix)
}

// Rollback executes the inverse script recorded when the fix was applied.
func (e *Engine) Rollback(ctx context.Context, fixID string) model.ApplyOutcome {
	entry, err := e.journal.claimRollback(fixID)
	if err != nil {
		rollbackTotal.WithLabelValues("rejected").Inc()
		out := model.Failed(fixID, fmt.Sprintf("Rollback of %s rejected: %v", fixID, err), err)
		out.Kind = entry.Fix.Kind
		out.RolledBack = entry.Outcome.RolledBack
		return out
	}

	err = e.execInverse(ctx, entry.Outcome.RollbackScript)
	at := e.now()
	e.journal.finishRollback(fixID, err == nil, at)

	if err != nil {
		e.log.Warning("Geri alma başarısız %s: %v", fixID, err)
		rollbackTotal.WithLabelValues("failed").Inc()
		out := model.Failed(fixID, fmt.Sprintf("Failed to roll back %q", entry.Fix.Title), err)
		out.Kind = entry.Fix.Kind
		out.CanRollback = true
		out.RollbackScript = entry.Outcome.RollbackScript
		return out
	}

	e.cache.Invalidate()
	rollbackTotal.WithLabelValues("success").Inc()
	e.log.Info("Düzeltme geri alındı %s (%s)", fixID, entry.Fix.Kind)
	return model.ApplyOutcome{
		Success:        true,
		Message:        fmt.Sprintf("Rolled back %s", entry.Fix.Kind),
		AppliedAt:      at,
		FixID:          fixID,
		Kind:           entry.Fix.Kind,
		RollbackScript: entry.Outcome.RollbackScript,
		RolledBack:     true,
	}
}

func (e *Engine) execInverse(ctx context.Context, script string) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("rollback panicked: %v", r)
		}
	}()
	return e.remediator.Exec(ctx, script)
}
