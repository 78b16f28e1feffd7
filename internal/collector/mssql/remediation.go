package mssql

import (
	"fmt"
	"regexp"

	"github.com/rweisssieker-xp/AX-2012-Performce-Optimizer-sub001/internal/model"
)

const identPattern = `(?:\[[^\]]+\]|[A-Za-z0-9_#@$]+)`

var dotSpacing = regexp.MustCompile(`\s*\.\s*`)

var createIndexPattern = regexp.MustCompile(`(?is)^\s*CREATE\s+(?:UNIQUE\s+)?(?:(?:NON)?CLUSTERED\s+)?INDEX\s+(` +
	identPattern + `)\s+ON\s+(` + identPattern + `(?:\s*\.\s*` + identPattern + `){0,2})`)

// Supports reports whether SQL Server can run the given fix kind.
func (c *MSSQLCollector) Supports(kind model.FixKind) bool {
	switch kind {
	case model.KindCreateIndex,
		model.KindUpdateStatistics,
		model.KindRebuildIndex,
		model.KindClearCache,
		model.KindKillBlockingSession:
		return true
	default:
		return false
	}
}

// InverseScript returns the DROP INDEX statement for a CREATE INDEX script.
func (c *MSSQLCollector) InverseScript(kind model.FixKind, script string) (string, bool) {
	if kind != model.KindCreateIndex {
		return "", false
	}
	return dropIndexScript(script)
}

func dropIndexScript(createScript string) (string, bool) {
	m := createIndexPattern.FindStringSubmatch(createScript)
	if m == nil {
		return "", false
	}
	table := dotSpacing.ReplaceAllString(m[2], ".")
	return fmt.Sprintf("DROP INDEX %s ON %s", m[1], table), true
}
