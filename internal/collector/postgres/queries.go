package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"

	"github.com/rweisssieker-xp/AX-2012-Performce-Optimizer-sub001/internal/collector"
	"github.com/rweisssieker-xp/AX-2012-Performce-Optimizer-sub001/pkg/utils"
)

const maxQueryTextLength = 2000

// CPU süresi pg_stat_statements'ta yok; I/O beklemesi düşülerek yaklaşık hesaplanır.
// Aktif bir backend aynı query_id ile çalışıyorsa pid'i döner (PostgreSQL 14+).
const expensiveQueriesSQL = `
	SELECT
		s.queryid::text AS query_id,
		d.datname,
		s.mean_exec_time AS avg_elapsed_ms,
		GREATEST(s.total_exec_time - s.blk_read_time - s.blk_write_time, 0) / s.calls AS avg_cpu_ms,
		s.calls,
		s.query,
		COALESCE(a.pid, 0) AS session_id
	FROM pg_stat_statements s
	LEFT JOIN pg_database d ON d.oid = s.dbid
	LEFT JOIN LATERAL (
		SELECT act.pid
		FROM pg_stat_activity act
		WHERE act.query_id = s.queryid
		AND act.state = 'active'
		AND act.pid <> pg_backend_pid()
		ORDER BY act.query_start
		LIMIT 1
	) a ON true
	WHERE s.calls > 0
	AND s.queryid IS NOT NULL
	ORDER BY s.mean_exec_time DESC
	LIMIT $1
	`

// GetTopExpensiveQueries returns the statements with the highest mean execution time
func (c *PostgresCollector) GetTopExpensiveQueries(ctx context.Context, limit int) ([]collector.ExpensiveQuery, error) {
	if limit <= 0 {
		return nil, nil
	}

	db, err := c.GetClient(ctx)
	if err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx, expensiveQueriesSQL, limit)
	if err != nil {
		return nil, fmt.Errorf("pg_stat_statements okunamadı: %w", err)
	}
	defer rows.Close()

	var queries []collector.ExpensiveQuery
	for rows.Next() {
		var (
			queryID      string
			databaseName sql.NullString
			avgElapsedMs float64
			avgCPUMs     float64
			calls        int64
			queryText    sql.NullString
			pid          int64
		)

		if err := rows.Scan(&queryID, &databaseName, &avgElapsedMs, &avgCPUMs, &calls, &queryText, &pid); err != nil {
			c.log.Warning("Sorgu tarama hatası: %v", err)
			continue
		}

		queries = append(queries, collector.ExpensiveQuery{
			QueryID:        queryID,
			Database:       databaseName.String,
			AvgElapsedMs:   avgElapsedMs,
			AvgCPUMs:       avgCPUMs,
			ExecutionCount: calls,
			QueryText:      utils.TrimString(utils.CollapseWhitespace(queryText.String), maxQueryTextLength),
			SessionID:      pid,
		})
	}

	if err := rows.Err(); err != nil {
		return queries, fmt.Errorf("sorgu sonuçları okunurken hata: %w", err)
	}
	return queries, nil
}

// KillSessionScript returns the statement terminating a backend, or "" when there is none.
func (c *PostgresCollector) KillSessionScript(pid int64) string {
	if pid <= 0 {
		return ""
	}
	return fmt.Sprintf("SELECT pg_terminate_backend(%d)", pid)
}

// QueryPlanScript returns the lookup of the normalized statement text; plans are not
// retained by PostgreSQL so EXPLAIN has to be run on that text by hand.
func (c *PostgresCollector) QueryPlanScript(queryID string) string {
	id, err := strconv.ParseInt(strings.TrimSpace(queryID), 10, 64)
	if err != nil {
		return ""
	}
	return fmt.Sprintf("SELECT query FROM pg_stat_statements WHERE queryid = %d", id)
}
