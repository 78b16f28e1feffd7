package quickfix

import (
	"bytes"
	"context"
	"errors"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rweisssieker-xp/AX-2012-Performce-Optimizer-sub001/internal/analyzer"
	"github.com/rweisssieker-xp/AX-2012-Performce-Optimizer-sub001/internal/collector"
	"github.com/rweisssieker-xp/AX-2012-Performce-Optimizer-sub001/internal/collector/collectortest"
	"github.com/rweisssieker-xp/AX-2012-Performce-Optimizer-sub001/internal/config"
	"github.com/rweisssieker-xp/AX-2012-Performce-Optimizer-sub001/internal/logger"
	"github.com/rweisssieker-xp/AX-2012-Performce-Optimizer-sub001/internal/model"
)

// stubAnalyzer returns canned fixes and counts its runs.
type stubAnalyzer struct {
	name         string
	fixes        []model.Fix
	err          error
	panicWith    interface{}
	delay        time.Duration
	ignoreCancel bool
	calls        atomic.Int64
}

func (s *stubAnalyzer) Name() string { return s.name }

func (s *stubAnalyzer) Detect(ctx context.Context) ([]model.Fix, error) {
	s.calls.Add(1)
	if s.delay > 0 {
		if s.ignoreCancel {
			time.Sleep(s.delay)
		} else {
			select {
			case <-time.After(s.delay):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}
	}
	if s.panicWith != nil {
		panic(s.panicWith)
	}
	return s.fixes, s.err
}

func indexFix(id string, p model.Priority) model.Fix {
	return model.Fix{
		ID:                 id,
		Title:              "Create index " + id,
		Kind:               model.KindCreateIndex,
		Impact:             70,
		Effort:             20,
		Confidence:         80,
		DirectlyApplicable: true,
		Script:             "CREATE INDEX IX_" + id + " ON SALESLINE (ITEMID)",
		Priority:           p,
	}
}

func kindFix(id string, kind model.FixKind, script string) model.Fix {
	return model.Fix{ID: id, Title: string(kind) + " " + id, Kind: kind, Impact: 60, Effort: 10, DirectlyApplicable: true, Script: script}
}

func newTestEngine(backend collector.Remediator, analyzers ...analyzer.Analyzer) *Engine {
	return New(analyzers, backend, NewResultCache(DefaultCacheTTL, nil), NewJournal(), DefaultConfig())
}

func recs() []collector.Recommendation {
	index := func(table string, p model.Priority) collector.Recommendation {
		return collector.Recommendation{
			Title:            "Missing index on " + table,
			Description:      "Missing index on " + table,
			Priority:         p,
			ActionScript:     "CREATE INDEX IX_" + table + " ON " + table + " (ITEMID)",
			RelatedObjectIDs: []string{table},
			Category:         collector.CategoryIndexManagement,
		}
	}
	stats := func(table string) collector.Recommendation {
		return collector.Recommendation{
			Title:            "Update statistics on " + table,
			Description:      "Statistics on " + table + " are outdated",
			Priority:         model.PriorityMedium,
			ActionScript:     "UPDATE STATISTICS " + table,
			RelatedObjectIDs: []string{table},
			Category:         collector.CategoryDatabaseMaintenance,
		}
	}
	return []collector.Recommendation{
		index("SALESLINE", model.PriorityCritical),
		index("INVENTTRANS", model.PriorityHigh),
		index("CUSTTRANS", model.PriorityMedium),
		index("VENDTRANS", model.PriorityLow),
		stats("LEDGERTRANS"),
		stats("INVENTSUM"),
		stats("PURCHLINE"),
	}
}

// fiveQueries: 0x01, 0x03, 0x05 are wait bound, 0x02 and 0x04 burn CPU.
func fiveQueries() []collector.ExpensiveQuery {
	return []collector.ExpensiveQuery{
		{QueryID: "0x01", AvgElapsedMs: 9000, AvgCPUMs: 1000, ExecutionCount: 10, SessionID: 61},
		{QueryID: "0x02", AvgElapsedMs: 7000, AvgCPUMs: 6500, ExecutionCount: 4},
		{QueryID: "0x03", AvgElapsedMs: 4000, AvgCPUMs: 500, ExecutionCount: 20, SessionID: 72},
		{QueryID: "0x04", AvgElapsedMs: 6000, AvgCPUMs: 5800, ExecutionCount: 2},
		{QueryID: "0x05", AvgElapsedMs: 3000, AvgCPUMs: 100, ExecutionCount: 8, SessionID: 80},
	}
}

func defaultEngine(backend *collectortest.Backend, cache *ResultCache) *Engine {
	cfg := config.DefaultQuickFixConfig()
	return New(analyzer.Defaults(backend, cfg), backend, cache, NewJournal(), ConfigFrom(cfg))
}

func countKind(fixes []model.Fix, kind model.FixKind) int {
	n := 0
	for _, f := range fixes {
		if f.Kind == kind {
			n++
		}
	}
	return n
}

func TestAnalyze_FiveQueryScenario(t *testing.T) {
	backend := collectortest.New().WithQueries(fiveQueries()...).WithRecommendations(recs()...)
	e := defaultEngine(backend, nil)

	r := e.Analyze(context.Background())
	require.True(t, r.Success, r.Error)
	assert.Empty(t, r.FailedAnalyzers)
	assert.Len(t, r.CompletedAnalyzers, 4)

	assert.Equal(t, 2, countKind(r.Fixes, model.KindKillBlockingSession))
	assert.Equal(t, 2, countKind(r.Fixes, model.KindOptimizeQuery))
	assert.Equal(t, 3, countKind(r.Fixes, model.KindCreateIndex))
	assert.Equal(t, 2, countKind(r.Fixes, model.KindUpdateStatistics))
	require.Len(t, r.Fixes, 9)

	expected := []model.FixKind{
		model.KindKillBlockingSession, model.KindKillBlockingSession,
		model.KindUpdateStatistics, model.KindUpdateStatistics,
		model.KindCreateIndex, model.KindCreateIndex, model.KindCreateIndex,
		model.KindOptimizeQuery, model.KindOptimizeQuery,
	}
	for i, f := range r.Fixes {
		assert.Equal(t, expected[i], f.Kind, "position %d", i)
	}
	assert.Equal(t, 90, r.Fixes[4].Impact, "critical index ranks before the others")
	assert.Equal(t, "0x01", r.Fixes[0].RelatedObjectID)
	assert.Equal(t, "0x03", r.Fixes[1].RelatedObjectID)
	assert.Contains(t, r.Summary, "9 fixes proposed from 4/4 analyzers")
}

func TestAnalyze_TopKBound(t *testing.T) {
	var fixes []model.Fix
	for i := 0; i < 25; i++ {
		fixes = append(fixes, indexFix(string(rune('a'+i)), model.PriorityMedium))
	}
	e := newTestEngine(collectortest.New(), &stubAnalyzer{name: "bulk", fixes: fixes})

	r := e.Analyze(context.Background())
	assert.True(t, r.Success)
	assert.Len(t, r.Fixes, DefaultTopK)
}

func TestAnalyze_FaultIsolation(t *testing.T) {
	good := &stubAnalyzer{name: "good", fixes: []model.Fix{indexFix("a", model.PriorityHigh)}}
	panicky := &stubAnalyzer{name: "panicky", panicWith: "index out of range"}
	failing := &stubAnalyzer{name: "failing", err: errors.New("login failed")}

	e := newTestEngine(collectortest.New(), panicky, good, failing)
	r := e.Analyze(context.Background())

	require.True(t, r.Success)
	require.Len(t, r.Fixes, 1)
	assert.Equal(t, "a", r.Fixes[0].ID)
	assert.Equal(t, []string{"good"}, r.CompletedAnalyzers)
	assert.ElementsMatch(t, []string{"panicky", "failing"}, r.FailedAnalyzers)
}

func TestAnalyze_NoAnalyzers(t *testing.T) {
	r := newTestEngine(collectortest.New()).Analyze(context.Background())
	assert.True(t, r.Success)
	assert.NotNil(t, r.Fixes)
	assert.Empty(t, r.Fixes)
}

func TestAnalyze_CachedResultIsIdentical(t *testing.T) {
	backend := collectortest.New().WithQueries(fiveQueries()...).WithRecommendations(recs()...)
	e := defaultEngine(backend, nil)

	first := e.Analyze(context.Background())
	calls := backend.QueryCalls() + backend.RecommendationCalls()
	second := e.Analyze(context.Background())

	assert.Equal(t, first, second)
	assert.Equal(t, calls, backend.QueryCalls()+backend.RecommendationCalls(), "cache hit does not query sources")
}

func TestAnalyze_ExpiredCacheRecomputes(t *testing.T) {
	clock := newFakeClock()
	backend := collectortest.New().WithRecommendations(recs()...)
	e := defaultEngine(backend, NewResultCache(DefaultCacheTTL, clock.Now))

	first := e.Analyze(context.Background())
	clock.Advance(DefaultCacheTTL)
	second := e.Analyze(context.Background())

	assert.NotEqual(t, first.Generation, second.Generation)
	require.NotEmpty(t, first.Fixes)
	require.NotEmpty(t, second.Fixes)
	assert.NotEqual(t, first.Fixes[0].ID, second.Fixes[0].ID, "a new run produces new identifiers")
}

func TestAnalyze_ZeroDeadline(t *testing.T) {
	slow := &stubAnalyzer{name: "slow", delay: 300 * time.Millisecond, ignoreCancel: true, fixes: []model.Fix{indexFix("late", model.PriorityHigh)}}
	polite := &stubAnalyzer{name: "polite", delay: time.Second}

	e := New([]analyzer.Analyzer{slow, polite}, collectortest.New(), nil, nil, Config{Deadline: 0})

	start := time.Now()
	r := e.Analyze(context.Background())
	elapsed := time.Since(start)

	assert.Less(t, elapsed, 250*time.Millisecond)
	assert.False(t, r.Success)
	assert.Equal(t, "timed out", r.Error)
	assert.Empty(t, r.Fixes)
	assert.ElementsMatch(t, []string{"slow", "polite"}, r.FailedAnalyzers)

	// Başarısız sonuç önbelleğe alınmaz
	e.Analyze(context.Background())
	assert.Equal(t, int64(2), polite.calls.Load())
}

func TestAnalyze_PartialOnDeadline(t *testing.T) {
	fast := &stubAnalyzer{name: "fast", fixes: []model.Fix{indexFix("a", model.PriorityHigh)}}
	slow := &stubAnalyzer{name: "slow", delay: 5 * time.Second, fixes: []model.Fix{indexFix("b", model.PriorityHigh)}}

	e := New([]analyzer.Analyzer{fast, slow}, collectortest.New(), nil, nil, Config{Deadline: 100 * time.Millisecond})

	start := time.Now()
	r := e.Analyze(context.Background())
	assert.Less(t, time.Since(start), 2*time.Second)

	require.True(t, r.Success, "one analyzer completed in time")
	require.Len(t, r.Fixes, 1)
	assert.Equal(t, "a", r.Fixes[0].ID)
	assert.Equal(t, []string{"fast"}, r.CompletedAnalyzers)
	assert.Equal(t, []string{"slow"}, r.FailedAnalyzers)
	assert.Contains(t, r.Summary, "1/2 analyzers")
}

func TestAnalyze_CallerCancellation(t *testing.T) {
	slow := &stubAnalyzer{name: "slow", delay: 5 * time.Second}
	e := newTestEngine(collectortest.New(), slow)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	r := e.Analyze(ctx)
	assert.False(t, r.Success)
	assert.Equal(t, "cancelled", r.Error)
	assert.Empty(t, r.Fixes)
	assert.Zero(t, slow.calls.Load(), "no run starts for an already cancelled caller")
}

func TestAnalyze_CancelledCallerKeepsSharedRun(t *testing.T) {
	slow := &stubAnalyzer{name: "slow", delay: 200 * time.Millisecond, fixes: []model.Fix{indexFix("a", model.PriorityHigh)}}
	e := newTestEngine(collectortest.New(), slow)

	ctxA, cancelA := context.WithCancel(context.Background())
	defer cancelA()

	var first, second model.AnalysisResult
	var firstElapsed time.Duration
	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		start := time.Now()
		first = e.Analyze(ctxA)
		firstElapsed = time.Since(start)
	}()
	require.Eventually(t, func() bool { return slow.calls.Load() == 1 }, time.Second, 5*time.Millisecond)

	wg.Add(1)
	go func() {
		defer wg.Done()
		second = e.Analyze(context.Background())
	}()

	time.Sleep(20 * time.Millisecond)
	cancelA()
	wg.Wait()

	assert.False(t, first.Success)
	assert.Equal(t, "cancelled", first.Error)
	assert.Less(t, firstElapsed, 150*time.Millisecond, "a cancelled caller stops waiting")

	require.True(t, second.Success, "the other caller still gets the shared run")
	require.Len(t, second.Fixes, 1)
	assert.Equal(t, []string{"slow"}, second.CompletedAnalyzers)
	assert.Equal(t, int64(1), slow.calls.Load())

	cached := e.Analyze(context.Background())
	assert.Equal(t, second.Generation, cached.Generation)
}

func TestAnalyze_FastErrorsCountAsCompleted(t *testing.T) {
	broken := &stubAnalyzer{name: "broken", err: errors.New("permission denied")}
	slow := &stubAnalyzer{name: "slow", delay: 5 * time.Second}

	e := New([]analyzer.Analyzer{broken, slow}, collectortest.New(), nil, nil, Config{Deadline: 100 * time.Millisecond})

	r := e.Analyze(context.Background())
	require.True(t, r.Success, "an analyzer that failed in time contributes zero fixes")
	assert.Empty(t, r.Fixes)
	assert.Empty(t, r.CompletedAnalyzers)
	assert.ElementsMatch(t, []string{"broken", "slow"}, r.FailedAnalyzers)
}

func TestRun_SkipWarningNamesCause(t *testing.T) {
	var buf bytes.Buffer
	logger.SetOutput(&buf)
	defer logger.SetOutput(os.Stderr)

	slow := &stubAnalyzer{name: "slow", delay: 5 * time.Second}
	e := newTestEngine(collectortest.New(), slow)

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(20*time.Millisecond, cancel)

	r := e.run(ctx)
	assert.Equal(t, "cancelled", r.Error)
	assert.Contains(t, buf.String(), "slow analyzer was cancelled before finishing")
	assert.NotContains(t, buf.String(), "deadline")

	buf.Reset()
	e = New([]analyzer.Analyzer{slow}, collectortest.New(), nil, nil, Config{Deadline: 20 * time.Millisecond})
	r = e.run(context.Background())
	assert.Equal(t, "timed out", r.Error)
	assert.Contains(t, buf.String(), "slow analyzer did not finish before the deadline")
}

func TestAnalyze_RankingPanicFails(t *testing.T) {
	a := &stubAnalyzer{name: "a", fixes: []model.Fix{indexFix("a", model.PriorityHigh)}}
	e := newTestEngine(collectortest.New(), a)
	e.rank = func([]model.Fix, int) []model.Fix { panic("comparator broke") }

	r := e.Analyze(context.Background())
	assert.False(t, r.Success)
	assert.Contains(t, r.Error, "ranking failed")
	assert.Empty(t, r.Fixes)

	e.Analyze(context.Background())
	assert.Equal(t, int64(2), a.calls.Load(), "failed results are not cached")
}

func TestAnalyze_ConcurrentMissesShareOneRun(t *testing.T) {
	a := &stubAnalyzer{name: "a", delay: 50 * time.Millisecond, fixes: []model.Fix{indexFix("a", model.PriorityHigh)}}
	e := newTestEngine(collectortest.New(), a)

	var wg sync.WaitGroup
	results := make([]model.AnalysisResult, 8)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = e.Analyze(context.Background())
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int64(1), a.calls.Load())
	for _, r := range results {
		assert.Equal(t, results[0].Generation, r.Generation)
	}
}

func TestApply_InvalidatesCache(t *testing.T) {
	backend := collectortest.New().WithQueries(fiveQueries()...).WithRecommendations(recs()...)
	e := defaultEngine(backend, nil)

	r := e.Analyze(context.Background())
	var target model.Fix
	for _, f := range r.Fixes {
		if f.Kind == model.KindCreateIndex {
			target = f
			break
		}
	}
	require.NotEmpty(t, target.ID)

	out := e.Apply(context.Background(), target.ID)
	require.True(t, out.Success, out.ErrorMessage)
	assert.True(t, out.CanRollback)
	assert.Equal(t, "DROP INDEX IX_SALESLINE ON SALESLINE", out.RollbackScript)
	assert.Equal(t, []string{target.Script}, backend.Executed())

	before := backend.QueryCalls()
	next := e.Analyze(context.Background())
	assert.Greater(t, backend.QueryCalls(), before, "next analysis is a fresh run")
	assert.NotEqual(t, r.Generation, next.Generation)

	entries := e.Applied()
	require.Len(t, entries, 1)
	assert.Equal(t, target.ID, entries[0].Fix.ID)
}

func TestApply_NotFound(t *testing.T) {
	backend := collectortest.New().WithRecommendations(recs()...)
	e := defaultEngine(backend, nil)

	r := e.Analyze(context.Background())
	before := backend.RecommendationCalls()

	out := e.Apply(context.Background(), "3f1c77f0-0000-4000-8000-000000000000")
	assert.False(t, out.Success)
	assert.Contains(t, out.Message, "not found")
	assert.Empty(t, backend.Executed())

	again := e.Analyze(context.Background())
	assert.Equal(t, r, again, "cache is not mutated")
	assert.Equal(t, before, backend.RecommendationCalls())
}

func TestApply_FailureKeepsCache(t *testing.T) {
	tests := []struct {
		name    string
		backend *collectortest.Backend
		fix     model.Fix
		message string
	}{
		{
			name:    "exec error",
			backend: collectortest.New().WithExecError(errors.New("permission denied")),
			fix:     indexFix("a", model.PriorityHigh),
			message: "permission denied",
		},
		{
			name:    "platform cannot run kind",
			backend: collectortest.New().WithUnsupported(model.KindUpdateStatistics),
			fix:     kindFix("s", model.KindUpdateStatistics, "UPDATE STATISTICS T"),
			message: "not supported by fake",
		},
		{
			name:    "no active session",
			backend: collectortest.New(),
			fix:     kindFix("k", model.KindKillBlockingSession, ""),
			message: "no active session",
		},
		{
			name:    "empty script",
			backend: collectortest.New(),
			fix:     kindFix("r", model.KindRebuildIndex, "  "),
			message: "no script",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := &stubAnalyzer{name: "a", fixes: []model.Fix{tt.fix}}
			e := newTestEngine(tt.backend, a)

			r := e.Analyze(context.Background())
			out := e.Apply(context.Background(), tt.fix.ID)

			assert.False(t, out.Success)
			assert.NotEmpty(t, out.Message)
			assert.Contains(t, out.ErrorMessage, tt.message)
			assert.Equal(t, tt.fix.Kind, out.Kind)

			assert.Equal(t, r.Generation, e.Analyze(context.Background()).Generation)
			assert.Equal(t, int64(1), a.calls.Load())
			assert.Empty(t, e.Applied())
		})
	}
}

func TestApply_KindsWithoutRoutine(t *testing.T) {
	for _, kind := range []model.FixKind{model.KindOptimizeQuery, model.KindAdjustConfiguration} {
		t.Run(string(kind), func(t *testing.T) {
			fix := kindFix("x", kind, "SELECT 1")
			e := newTestEngine(collectortest.New(), &stubAnalyzer{name: "a", fixes: []model.Fix{fix}})

			out := e.Apply(context.Background(), "x")
			assert.False(t, out.Success)
			assert.Contains(t, out.Message, string(kind))
			assert.Contains(t, out.ErrorMessage, ErrNoRoutine.Error())
		})
	}
}

func TestApply_RoutineOutcomes(t *testing.T) {
	backend := collectortest.New()
	fixes := []model.Fix{
		kindFix("stats", model.KindUpdateStatistics, "UPDATE STATISTICS T"),
		kindFix("rebuild", model.KindRebuildIndex, "ALTER INDEX ALL ON T REBUILD"),
		kindFix("cache", model.KindClearCache, "DBCC FREEPROCCACHE"),
		kindFix("kill", model.KindKillBlockingSession, "KILL 61"),
	}
	e := newTestEngine(backend, &stubAnalyzer{name: "a", fixes: fixes})

	for _, f := range fixes {
		out := e.Apply(context.Background(), f.ID)
		require.True(t, out.Success, "%s: %s", f.ID, out.ErrorMessage)
		assert.False(t, out.CanRollback, "%s has no inverse", f.Kind)
		assert.Empty(t, out.RollbackScript)
	}
	assert.Equal(t, []string{"UPDATE STATISTICS T", "ALTER INDEX ALL ON T REBUILD", "DBCC FREEPROCCACHE", "KILL 61"}, backend.Executed())
}

func TestApply_RoutinePanicIsRecovered(t *testing.T) {
	e := newTestEngine(collectortest.New(), &stubAnalyzer{name: "a", fixes: []model.Fix{indexFix("a", model.PriorityHigh)}})
	e.RegisterRoutine(model.KindCreateIndex, func(context.Context, collector.Remediator, model.Fix) (RoutineResult, error) {
		panic("nil map")
	})

	out := e.Apply(context.Background(), "a")
	assert.False(t, out.Success)
	assert.Contains(t, out.ErrorMessage, "panicked")
}

func TestApplyIn_Generation(t *testing.T) {
	backend := collectortest.New()
	fixes := []model.Fix{indexFix("a", model.PriorityHigh), indexFix("b", model.PriorityHigh)}
	e := newTestEngine(backend, &stubAnalyzer{name: "a", fixes: fixes})

	r := e.Analyze(context.Background())
	out := e.ApplyIn(context.Background(), r.Generation, "a")
	require.True(t, out.Success)

	stale := e.ApplyIn(context.Background(), r.Generation, "b")
	assert.False(t, stale.Success)
	assert.Contains(t, stale.Message, "generation superseded")
	assert.Len(t, backend.Executed(), 1)
}

func TestCanApplyDirectly(t *testing.T) {
	kill := kindFix("kill", model.KindKillBlockingSession, "KILL 61")
	review := indexFix("review", model.PriorityHigh)
	review.DirectlyApplicable = false

	fixes := []model.Fix{
		indexFix("plain", model.PriorityHigh),
		indexFix("critical", model.PriorityCritical),
		kill,
		review,
	}
	e := newTestEngine(collectortest.New(), &stubAnalyzer{name: "a", fixes: fixes})
	ctx := context.Background()

	assert.True(t, e.CanApplyDirectly(ctx, "plain"))
	assert.False(t, e.CanApplyDirectly(ctx, "critical"))
	assert.False(t, e.CanApplyDirectly(ctx, "kill"))
	assert.False(t, e.CanApplyDirectly(ctx, "review"))
	assert.False(t, e.CanApplyDirectly(ctx, "missing"))
}

func TestRollback(t *testing.T) {
	backend := collectortest.New()
	fixes := []model.Fix{indexFix("idx", model.PriorityHigh), kindFix("stats", model.KindUpdateStatistics, "UPDATE STATISTICS T")}
	e := newTestEngine(backend, &stubAnalyzer{name: "a", fixes: fixes})
	ctx := context.Background()

	out := e.Rollback(ctx, "idx")
	assert.False(t, out.Success)
	assert.Contains(t, out.Message, "no applied outcome")

	require.True(t, e.Apply(ctx, "idx").Success)
	require.True(t, e.Apply(ctx, "stats").Success)

	out = e.Rollback(ctx, "stats")
	assert.False(t, out.Success)
	assert.Contains(t, out.Message, "rollback not supported")

	gen := e.Analyze(ctx).Generation
	out = e.Rollback(ctx, "idx")
	require.True(t, out.Success, out.ErrorMessage)
	assert.True(t, out.RolledBack)
	assert.Equal(t, "DROP INDEX IX_idx ON SALESLINE", backend.Executed()[len(backend.Executed())-1])
	assert.NotEqual(t, gen, e.Analyze(ctx).Generation, "rollback invalidates the cache")

	out = e.Rollback(ctx, "idx")
	assert.False(t, out.Success)
	assert.True(t, out.RolledBack)
	assert.Contains(t, out.Message, "already rolled back")
}

func TestRollback_ExecFailureCanRetry(t *testing.T) {
	backend := collectortest.New()
	e := newTestEngine(backend, &stubAnalyzer{name: "a", fixes: []model.Fix{indexFix("idx", model.PriorityHigh)}})
	ctx := context.Background()

	require.True(t, e.Apply(ctx, "idx").Success)

	backend.WithExecError(errors.New("lock timeout"))
	out := e.Rollback(ctx, "idx")
	assert.False(t, out.Success)
	assert.True(t, out.CanRollback)
	assert.Contains(t, out.ErrorMessage, "lock timeout")

	backend.WithExecError(nil)
	assert.True(t, e.Rollback(ctx, "idx").Success)
}

func TestConfigFrom(t *testing.T) {
	q := config.DefaultQuickFixConfig()
	q.DeadlineSeconds = 12
	q.TopK = 4

	cfg := ConfigFrom(q)
	assert.Equal(t, 12*time.Second, cfg.Deadline)
	assert.Equal(t, 4, cfg.TopK)

	assert.Equal(t, DefaultConfig(), ConfigFrom(config.QuickFixConfig{}))
}
