package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/rweisssieker-xp/AX-2012-Performce-Optimizer-sub001/internal/model"
	"github.com/rweisssieker-xp/AX-2012-Performce-Optimizer-sub001/internal/quickfix"
	"github.com/rweisssieker-xp/AX-2012-Performce-Optimizer-sub001/internal/reporter"
)

const promptHelp = `Commands:
  list         show the current fixes
  refresh      show the current fixes (alias of list)
  apply N      apply fix N if it can run without confirmation
  apply! N     apply fix N after confirmation
  applied      show fixes applied in this session
  rollback N   roll back applied fix N
  help         show this help
  quit         leave`

// session drives one fix lifecycle prompt
type session struct {
	engine  *quickfix.Engine
	rep     *reporter.Reporter
	in      *bufio.Scanner
	out     io.Writer
	current model.AnalysisResult
	listed  bool
}

func newSession(engine *quickfix.Engine, rep *reporter.Reporter, in io.Reader, out io.Writer) *session {
	return &session{engine: engine, rep: rep, in: bufio.NewScanner(in), out: out}
}

func (s *session) run(ctx context.Context) error {
	fmt.Fprintln(s.out, promptHelp)
	for {
		fmt.Fprint(s.out, "quickfix> ")
		if !s.in.Scan() {
			fmt.Fprintln(s.out)
			return s.in.Err()
		}
		if ctx.Err() != nil {
			return nil
		}

		fields := strings.Fields(s.in.Text())
		if len(fields) == 0 {
			continue
		}

		switch cmd := strings.ToLower(fields[0]); cmd {
		case "quit", "exit", "q":
			return nil
		case "help", "?":
			fmt.Fprintln(s.out, promptHelp)
		case "list", "ls", "refresh":
			s.list(ctx)
		case "applied":
			s.rep.Applied(s.engine.Applied())
		case "apply", "apply!":
			n, ok := s.index(fields, len(s.current.Fixes))
			if !ok {
				continue
			}
			s.apply(ctx, s.current.Fixes[n], cmd == "apply!")
		case "rollback":
			entries := s.engine.Applied()
			n, ok := s.index(fields, len(entries))
			if !ok {
				continue
			}
			s.rep.Outcome(s.engine.Rollback(ctx, entries[n].Fix.ID))
		default:
			fmt.Fprintf(s.out, "unknown command %q, type help\n", fields[0])
		}
	}
}

func (s *session) list(ctx context.Context) {
	s.current = s.engine.Analyze(ctx)
	s.listed = true
	s.rep.Analysis(s.current)
}

func (s *session) apply(ctx context.Context, fix model.Fix, confirmed bool) {
	if !confirmed && !quickfix.DirectlyApplicable(fix) {
		fmt.Fprintf(s.out, "%q needs confirmation, use apply! to run it\n", fix.Title)
		return
	}
	s.rep.Outcome(s.engine.ApplyIn(ctx, s.current.Generation, fix.ID))
}

// index parses the 1-based argument of a command.
func (s *session) index(fields []string, size int) (int, bool) {
	if len(fields) != 2 {
		fmt.Fprintf(s.out, "usage: %s N\n", fields[0])
		return 0, false
	}
	if fields[0] != "rollback" && !s.listed {
		fmt.Fprintln(s.out, "no analysis yet, run list first")
		return 0, false
	}
	n, err := strconv.Atoi(fields[1])
	if err != nil || n < 1 || n > size {
		fmt.Fprintf(s.out, "invalid number %q, expected 1-%d\n", fields[1], size)
		return 0, false
	}
	return n - 1, true
}
