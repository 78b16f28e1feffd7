package quickfix

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rweisssieker-xp/AX-2012-Performce-Optimizer-sub001/internal/collector"
	"github.com/rweisssieker-xp/AX-2012-Performce-Optimizer-sub001/internal/model"
)

var (
	ErrNoRoutine    = errors.New("no remediation routine")
	ErrNotSupported = collector.ErrNotSupported
	ErrEmptyScript  = errors.New("fix has no script")
)

// RoutineResult bir düzeltme rutininin başarılı çalışma sonucu
type RoutineResult struct {
	Message        string
	CanRollback    bool
	RollbackScript string
}

// Routine applies one kind of fix against the target database.
type Routine func(ctx context.Context, target collector.Remediator, fix model.Fix) (RoutineResult, error)

// DefaultRoutines returns the built-in kind to routine registry. optimize-query
// and adjust-configuration need human review and have no routine.
func DefaultRoutines() map[model.FixKind]Routine {
	return map[model.FixKind]Routine{
		model.KindCreateIndex:         createIndex,
		model.KindUpdateStatistics:    scriptRoutine("Statistics updated"),
		model.KindRebuildIndex:        scriptRoutine("Index rebuilt"),
		model.KindClearCache:          scriptRoutine("Plan cache cleared"),
		model.KindKillBlockingSession: killSession,
	}
}

func checkTarget(target collector.Remediator, fix model.Fix) error {
	if !target.Supports(fix.Kind) {
		return fmt.Errorf("%w: %s not supported by %s", ErrNotSupported, fix.Kind, target.Platform())
	}
	if strings.TrimSpace(fix.Script) == "" {
		return fmt.Errorf("%w: %s", ErrEmptyScript, fix.ID)
	}
	return nil
}

func createIndex(ctx context.Context, target collector.Remediator, fix model.Fix) (RoutineResult, error) {
	if err := checkTarget(target, fix); err != nil {
		return RoutineResult{}, err
	}
	if err := target.Exec(ctx, fix.Script); err != nil {
		return RoutineResult{}, fmt.Errorf("index oluşturulamadı: %w", err)
	}

	res := RoutineResult{Message: "Index created"}
	if inverse, ok := target.InverseScript(fix.Kind, fix.Script); ok {
		res.CanRollback = true
		res.RollbackScript = inverse
	}
	return res, nil
}

// scriptRoutine runs the fix script as is. These kinds have no inverse.
func scriptRoutine(message string) Routine {
	return func(ctx context.Context, target collector.Remediator, fix model.Fix) (RoutineResult, error) {
		if err := checkTarget(target, fix); err != nil {
			return RoutineResult{}, err
		}
		if err := target.Exec(ctx, fix.Script); err != nil {
			return RoutineResult{}, fmt.Errorf("%s başarısız: %w", fix.Kind, err)
		}
		return RoutineResult{Message: message}, nil
	}
}

func killSession(ctx context.Context, target collector.Remediator, fix model.Fix) (RoutineResult, error) {
	if !target.Supports(fix.Kind) {
		return RoutineResult{}, fmt.Errorf("%w: %s not supported by %s", ErrNotSupported, fix.Kind, target.Platform())
	}
	// Sorgu analiz sırasında aktif değilse öldürülecek oturum yoktur
	if strings.TrimSpace(fix.Script) == "" {
		return RoutineResult{}, fmt.Errorf("%w: no active session for query %s", ErrEmptyScript, fix.RelatedObjectID)
	}
	if err := target.Exec(ctx, fix.Script); err != nil {
		return RoutineResult{}, fmt.Errorf("oturum sonlandırılamadı: %w", err)
	}
	return RoutineResult{Message: "Blocking session terminated"}, nil
}
