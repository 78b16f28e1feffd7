package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/lib/pq"
	"github.com/rweisssieker-xp/AX-2012-Performce-Optimizer-sub001/internal/collector"
	"github.com/rweisssieker-xp/AX-2012-Performce-Optimizer-sub001/internal/model"
)

const catalogLimit = 20

// İlk sütunu hiçbir index'in ilk sütunu olmayan foreign key'ler
const unindexedForeignKeysSQL = `
	SELECT
		n.nspname,
		t.relname,
		a.attname,
		c.conname,
		COALESCE(st.n_live_tup, 0) AS live_rows
	FROM pg_constraint c
	JOIN pg_class t ON t.oid = c.conrelid
	JOIN pg_namespace n ON n.oid = t.relnamespace
	JOIN pg_attribute a ON a.attrelid = c.conrelid AND a.attnum = c.conkey[1]
	LEFT JOIN pg_stat_user_tables st ON st.relid = c.conrelid
	WHERE c.contype = 'f'
	AND n.nspname NOT IN ('pg_catalog', 'information_schema')
	AND NOT EXISTS (
		SELECT 1 FROM pg_index i
		WHERE i.indrelid = c.conrelid
		AND i.indkey[0] = c.conkey[1]
	)
	ORDER BY live_rows DESC
	LIMIT $1
	`

const staleStatisticsSQL = `
	SELECT
		schemaname,
		relname,
		n_live_tup,
		n_mod_since_analyze,
		GREATEST(last_analyze, last_autoanalyze) AS last_analyzed
	FROM pg_stat_user_tables
	WHERE n_mod_since_analyze > 0
	AND n_mod_since_analyze >= 50 + 0.1 * n_live_tup
	ORDER BY n_mod_since_analyze DESC
	LIMIT $1
	`

// GetRecommendationsByCategory reads the recommendation catalog for one category
func (c *PostgresCollector) GetRecommendationsByCategory(ctx context.Context, category collector.Category) ([]collector.Recommendation, error) {
	switch category {
	case collector.CategoryIndexManagement:
		return c.unindexedForeignKeys(ctx)
	case collector.CategoryDatabaseMaintenance:
		return c.staleStatistics(ctx)
	default:
		return nil, nil
	}
}

func (c *PostgresCollector) unindexedForeignKeys(ctx context.Context) ([]collector.Recommendation, error) {
	db, err := c.GetClient(ctx)
	if err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx, unindexedForeignKeysSQL, catalogLimit)
	if err != nil {
		return nil, fmt.Errorf("foreign key index önerileri alınamadı: %w", err)
	}
	defer rows.Close()

	var recs []collector.Recommendation
	for rows.Next() {
		var schema, table, column, constraint string
		var liveRows int64

		if err := rows.Scan(&schema, &table, &column, &constraint, &liveRows); err != nil {
			c.log.Warning("Foreign key satırı okunamadı: %v", err)
			continue
		}

		qualified := pq.QuoteIdentifier(schema) + "." + pq.QuoteIdentifier(table)
		recs = append(recs, collector.Recommendation{
			Title: fmt.Sprintf("Index foreign key %s on %s", constraint, qualified),
			Description: fmt.Sprintf("Foreign key %s on %s(%s) has no supporting index, %d live rows are scanned on joins and parent deletes",
				constraint, qualified, column, liveRows),
			Priority: collector.VolumePriority(float64(liveRows), 1e6, 1e5, 1e4),
			ActionScript: fmt.Sprintf("CREATE INDEX CONCURRENTLY IF NOT EXISTS %s ON %s (%s)",
				pq.QuoteIdentifier(foreignKeyIndexName(table, column)), qualified, pq.QuoteIdentifier(column)),
			RelatedObjectIDs: []string{qualified},
			Category:         collector.CategoryIndexManagement,
		})
	}

	if err := rows.Err(); err != nil {
		return recs, fmt.Errorf("foreign key sonuçları okunurken hata: %w", err)
	}
	return recs, nil
}

func (c *PostgresCollector) staleStatistics(ctx context.Context) ([]collector.Recommendation, error) {
	db, err := c.GetClient(ctx)
	if err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx, staleStatisticsSQL, catalogLimit)
	if err != nil {
		return nil, fmt.Errorf("istatistik bilgileri alınamadı: %w", err)
	}
	defer rows.Close()

	var recs []collector.Recommendation
	for rows.Next() {
		var schema, table string
		var liveRows, modifications int64
		var lastAnalyzed sql.NullTime

		if err := rows.Scan(&schema, &table, &liveRows, &modifications, &lastAnalyzed); err != nil {
			c.log.Warning("İstatistik satırı okunamadı: %v", err)
			continue
		}

		qualified := pq.QuoteIdentifier(schema) + "." + pq.QuoteIdentifier(table)
		since := "never"
		if lastAnalyzed.Valid {
			since = lastAnalyzed.Time.Format(time.DateTime)
		}

		recs = append(recs, collector.Recommendation{
			Title:            fmt.Sprintf("Analyze %s", qualified),
			Description:      fmt.Sprintf("Statistics on %s have %d modifications since last analyze (%s)", qualified, modifications, since),
			Priority:         collector.ModificationPriority(liveRows, modifications),
			ActionScript:     "ANALYZE " + qualified,
			RelatedObjectIDs: []string{qualified},
			Category:         collector.CategoryDatabaseMaintenance,
		})
	}

	if err := rows.Err(); err != nil {
		return recs, fmt.Errorf("istatistik sonuçları okunurken hata: %w", err)
	}
	return recs, nil
}

// foreignKeyIndexName returns ix_<table>_<column> within the 63 byte identifier limit.
func foreignKeyIndexName(table, column string) string {
	name := strings.ToLower("ix_" + table + "_" + column)
	if len(name) > 63 {
		name = name[:63]
	}
	return name
}

const identPattern = `(?:"(?:[^"]|"")+"|[A-Za-z_][A-Za-z0-9_$]*)`

var createIndexPattern = regexp.MustCompile(`(?is)^\s*CREATE\s+(?:UNIQUE\s+)?INDEX\s+(?:CONCURRENTLY\s+)?(?:IF\s+NOT\s+EXISTS\s+)?(` +
	identPattern + `)\s+ON\s+(?:ONLY\s+)?(` + identPattern + `)(?:\s*\.\s*(` + identPattern + `))?`)

// InverseScript returns DROP INDEX for a CREATE INDEX script. The index lives in its table's schema.
func (c *PostgresCollector) InverseScript(kind model.FixKind, script string) (string, bool) {
	if kind != model.KindCreateIndex {
		return "", false
	}

	m := createIndexPattern.FindStringSubmatch(script)
	if m == nil {
		return "", false
	}

	index := m[1]
	if m[3] != "" {
		index = m[2] + "." + m[1]
	}
	return "DROP INDEX CONCURRENTLY IF EXISTS " + index, true
}
