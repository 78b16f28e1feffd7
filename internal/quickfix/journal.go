package quickfix

import (
	"errors"
	"sync"
	"time"

	"github.com/rweisssieker-xp/AX-2012-Performce-Optimizer-sub001/internal/model"
)

var (
	ErrNoOutcome           = errors.New("no applied outcome")
	ErrRollbackUnsupported = errors.New("rollback not supported")
	ErrAlreadyRolledBack   = errors.New("already rolled back")
	ErrRollbackInProgress  = errors.New("rollback already in progress")
)

// Entry uygulanmış bir düzeltme ve son uygulama sonucu
type Entry struct {
	Fix     model.Fix
	Outcome model.ApplyOutcome
}

// Journal başarıyla uygulanan düzeltmelerin süreç ömrü boyunca tutulduğu kayıt.
// Process başında oluşturulur, kapanışta kaybolur.
type Journal struct {
	mu          sync.Mutex
	entries     map[string]*Entry
	order       []string
	rollingBack map[string]bool
}

// NewJournal creates an empty journal.
func NewJournal() *Journal {
	return &Journal{
		entries:     make(map[string]*Entry),
		rollingBack: make(map[string]bool),
	}
}

// Record stores the outcome of a successful apply. Re-applying a fix replaces its entry.
func (j *Journal) Record(fix model.Fix, outcome model.ApplyOutcome) {
	j.mu.Lock()
	defer j.mu.Unlock()

	if _, ok := j.entries[fix.ID]; !ok {
		j.order = append(j.order, fix.ID)
	}
	j.entries[fix.ID] = &Entry{Fix: fix, Outcome: outcome}
}

// Lookup returns the entry of an applied fix.
func (j *Journal) Lookup(fixID string) (Entry, bool) {
	j.mu.Lock()
	defer j.mu.Unlock()

	e, ok := j.entries[fixID]
	if !ok {
		return Entry{}, false
	}
	return *e, true
}

// Entries returns all entries in the order they were first applied.
func (j *Journal) Entries() []Entry {
	j.mu.Lock()
	defer j.mu.Unlock()

	out := make([]Entry, 0, len(j.order))
	for _, id := range j.order {
		out = append(out, *j.entries[id])
	}
	return out
}

// claimRollback reserves an entry for rollback. The caller must call finishRollback.
func (j *Journal) claimRollback(fixID string) (Entry, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	e, ok := j.entries[fixID]
	switch {
	case !ok:
		return Entry{}, ErrNoOutcome
	case e.Outcome.RolledBack:
		return *e, ErrAlreadyRolledBack
	case !e.Outcome.CanRollback:
		return *e, ErrRollbackUnsupported
	case j.rollingBack[fixID]:
		return *e, ErrRollbackInProgress
	}

	j.rollingBack[fixID] = true
	return *e, nil
}

func (j *Journal) finishRollback(fixID string, succeeded bool, at time.Time) {
	j.mu.Lock()
	defer j.mu.Unlock()

	delete(j.rollingBack, fixID)
	if e, ok := j.entries[fixID]; ok && succeeded {
		e.Outcome.RolledBack = true
		e.Outcome.CanRollback = false
		e.Outcome.AppliedAt = at
	}
}
