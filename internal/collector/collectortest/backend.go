// Package collectortest provides an in-memory collector.Backend for tests.
package collectortest

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rweisssieker-xp/AX-2012-Performce-Optimizer-sub001/internal/collector"
	"github.com/rweisssieker-xp/AX-2012-Performce-Optimizer-sub001/internal/model"
)

// Backend serves canned diagnostics and records executed scripts.
type Backend struct {
	mu              sync.Mutex
	queries         []collector.ExpensiveQuery
	recommendations map[collector.Category][]collector.Recommendation
	readErr         error
	execErr         error
	delay           time.Duration
	ignoreCancel    bool
	unsupported     map[model.FixKind]bool
	executed        []string
	closed          bool

	queryCalls atomic.Int64
	recCalls   atomic.Int64
}

var _ collector.Backend = (*Backend)(nil)

// New returns an empty backend.
func New() *Backend {
	return &Backend{
		recommendations: make(map[collector.Category][]collector.Recommendation),
		unsupported:     make(map[model.FixKind]bool),
	}
}

// WithQueries sets the expensive query list.
func (b *Backend) WithQueries(queries ...collector.ExpensiveQuery) *Backend {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.queries = queries
	return b
}

// WithRecommendations adds catalog entries; each is filed under its own Category.
func (b *Backend) WithRecommendations(recs ...collector.Recommendation) *Backend {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, r := range recs {
		b.recommendations[r.Category] = append(b.recommendations[r.Category], r)
	}
	return b
}

// WithReadError makes every read fail.
func (b *Backend) WithReadError(err error) *Backend {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.readErr = err
	return b
}

// WithExecError makes Exec fail.
func (b *Backend) WithExecError(err error) *Backend {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.execErr = err
	return b
}

// WithDelay slows every read down. With ignoreCancel the wait does not observe ctx.
func (b *Backend) WithDelay(d time.Duration, ignoreCancel bool) *Backend {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.delay = d
	b.ignoreCancel = ignoreCancel
	return b
}

// WithUnsupported marks kinds the platform cannot run.
func (b *Backend) WithUnsupported(kinds ...model.FixKind) *Backend {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, k := range kinds {
		b.unsupported[k] = true
	}
	return b
}

// QueryCalls returns how many times GetTopExpensiveQueries was called.
func (b *Backend) QueryCalls() int64 { return b.queryCalls.Load() }

// RecommendationCalls returns how many times GetRecommendationsByCategory was called.
func (b *Backend) RecommendationCalls() int64 { return b.recCalls.Load() }

// Executed returns the scripts passed to Exec in order.
func (b *Backend) Executed() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.executed...)
}

// Closed reports whether Close was called.
func (b *Backend) Closed() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.closed
}

func (b *Backend) wait(ctx context.Context) error {
	b.mu.Lock()
	delay, ignoreCancel := b.delay, b.ignoreCancel
	b.mu.Unlock()

	if delay <= 0 {
		return ctx.Err()
	}
	if ignoreCancel {
		time.Sleep(delay)
		return nil
	}

	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (b *Backend) GetTopExpensiveQueries(ctx context.Context, limit int) ([]collector.ExpensiveQuery, error) {
	b.queryCalls.Add(1)
	if err := b.wait(ctx); err != nil {
		return nil, err
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.readErr != nil {
		return nil, b.readErr
	}
	out := append([]collector.ExpensiveQuery(nil), b.queries...)
	if limit < len(out) {
		out = out[:limit]
	}
	return out, nil
}

func (b *Backend) GetRecommendationsByCategory(ctx context.Context, category collector.Category) ([]collector.Recommendation, error) {
	b.recCalls.Add(1)
	if err := b.wait(ctx); err != nil {
		return nil, err
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.readErr != nil {
		return nil, b.readErr
	}
	return append([]collector.Recommendation(nil), b.recommendations[category]...), nil
}

func (b *Backend) KillSessionScript(sessionID int64) string {
	if sessionID <= 0 {
		return ""
	}
	return fmt.Sprintf("KILL %d", sessionID)
}

func (b *Backend) QueryPlanScript(queryID string) string {
	return "PLAN " + queryID
}

func (b *Backend) Platform() string { return "fake" }

func (b *Backend) Exec(ctx context.Context, script string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.execErr != nil {
		return b.execErr
	}
	b.executed = append(b.executed, script)
	return nil
}

func (b *Backend) Supports(kind model.FixKind) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.unsupported[kind] {
		return false
	}
	switch kind {
	case model.KindCreateIndex, model.KindUpdateStatistics, model.KindRebuildIndex,
		model.KindClearCache, model.KindKillBlockingSession:
		return true
	}
	return false
}

// InverseScript turns "CREATE INDEX name ON table ..." into "DROP INDEX name ON table".
func (b *Backend) InverseScript(kind model.FixKind, script string) (string, bool) {
	fields := strings.Fields(script)
	if kind != model.KindCreateIndex || len(fields) < 5 ||
		!strings.EqualFold(fields[0], "CREATE") || !strings.EqualFold(fields[1], "INDEX") {
		return "", false
	}
	return fmt.Sprintf("DROP INDEX %s ON %s", fields[2], fields[4]), true
}

func (b *Backend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	return nil
}
