package reporter

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"

	"github.com/rweisssieker-xp/AX-2012-Performce-Optimizer-sub001/internal/model"
	"github.com/rweisssieker-xp/AX-2012-Performce-Optimizer-sub001/internal/quickfix"
	"github.com/rweisssieker-xp/AX-2012-Performce-Optimizer-sub001/pkg/utils"
)

// Çıktı biçimleri
const (
	FormatText = "text"
	FormatJSON = "json"
)

const maxDescriptionLength = 160

// Reporter analiz sonuçlarını ve uygulama çıktılarını terminale yazar
type Reporter struct {
	out    io.Writer
	format string
}

// NewReporter yeni bir Reporter oluşturur. Bilinmeyen biçimler metin kabul edilir.
func NewReporter(out io.Writer, format string) *Reporter {
	if format != FormatJSON {
		format = FormatText
	}
	return &Reporter{out: out, format: format}
}

// Analysis prints a ranked analysis result.
func (r *Reporter) Analysis(result model.AnalysisResult) error {
	if r.format == FormatJSON {
		return r.writeJSON(result)
	}

	bold := color.New(color.Bold)
	if !result.Success {
		color.New(color.FgRed, color.Bold).Fprintf(r.out, "Analysis failed: %s\n", result.Error)
		fmt.Fprintf(r.out, "%s\n", result.Summary)
		return nil
	}

	bold.Fprintf(r.out, "%s\n", result.Summary)
	if len(result.FailedAnalyzers) > 0 {
		color.New(color.FgYellow).Fprintf(r.out, "Skipped analyzers: %s\n", strings.Join(result.FailedAnalyzers, ", "))
	}
	if len(result.Fixes) == 0 {
		color.New(color.FgGreen).Fprintln(r.out, "No fixes proposed.")
		return nil
	}

	fmt.Fprintln(r.out)
	for i, fix := range result.Fixes {
		r.fix(i+1, fix)
	}
	return nil
}

func (r *Reporter) fix(n int, fix model.Fix) {
	priority := priorityColor(fix.Priority)

	fmt.Fprintf(r.out, "%2d. ", n)
	priority.Fprintf(r.out, "[%s]", strings.ToUpper(fix.Priority.String()))
	fmt.Fprintf(r.out, " %s\n", fix.Title)
	fmt.Fprintf(r.out, "    %s | impact %d effort %d confidence %d | score %.2f\n",
		fix.Kind, fix.Impact, fix.Effort, fix.Confidence, fix.Score())
	if fix.Description != "" {
		fmt.Fprintf(r.out, "    %s\n", utils.TrimString(utils.CollapseWhitespace(fix.Description), maxDescriptionLength))
	}
	if quickfix.DirectlyApplicable(fix) {
		color.New(color.FgGreen).Fprintln(r.out, "    applies directly")
	} else {
		color.New(color.FgYellow).Fprintln(r.out, "    needs confirmation")
	}
}

// Outcome prints the result of an apply or rollback.
func (r *Reporter) Outcome(outcome model.ApplyOutcome) error {
	if r.format == FormatJSON {
		return r.writeJSON(outcome)
	}

	if outcome.Success {
		color.New(color.FgGreen, color.Bold).Fprintf(r.out, "OK %s\n", outcome.Message)
		if outcome.CanRollback {
			fmt.Fprintf(r.out, "   rollback: %s\n", outcome.RollbackScript)
		}
		return nil
	}

	color.New(color.FgRed, color.Bold).Fprintf(r.out, "FAILED %s\n", outcome.Message)
	if outcome.ErrorMessage != "" {
		fmt.Fprintf(r.out, "   error: %s\n", outcome.ErrorMessage)
	}
	return nil
}

// Applied prints the journal of applied fixes.
func (r *Reporter) Applied(entries []quickfix.Entry) error {
	if r.format == FormatJSON {
		return r.writeJSON(entries)
	}

	if len(entries) == 0 {
		fmt.Fprintln(r.out, "No fixes applied in this session.")
		return nil
	}
	for i, e := range entries {
		state := "applied"
		switch {
		case e.Outcome.RolledBack:
			state = "rolled back"
		case e.Outcome.CanRollback:
			state = "applied, rollback available"
		}
		fmt.Fprintf(r.out, "%2d. %s (%s) %s\n", i+1, e.Fix.Title, e.Fix.Kind, state)
	}
	return nil
}

func (r *Reporter) writeJSON(v interface{}) error {
	enc := json.NewEncoder(r.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func priorityColor(p model.Priority) *color.Color {
	switch p {
	case model.PriorityCritical:
		return color.New(color.FgRed, color.Bold)
	case model.PriorityHigh:
		return color.New(color.FgYellow, color.Bold)
	case model.PriorityMedium:
		return color.New(color.FgCyan)
	default:
		return color.New(color.FgWhite)
	}
}
