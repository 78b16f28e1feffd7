package mssql

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/rweisssieker-xp/AX-2012-Performce-Optimizer-sub001/internal/collector"
	"github.com/rweisssieker-xp/AX-2012-Performce-Optimizer-sub001/pkg/utils"
)

const maxQueryTextLength = 2000

// Plan cache'teki en pahalı ifadeler; ortalama süre ms cinsinden.
// Aynı query_hash ile çalışan bir istek varsa oturum numarası da döner.
const expensiveQueriesSQL = `
	SELECT TOP (@limit)
		CONVERT(VARCHAR(64), qs.query_hash, 1) AS query_id,
		DB_NAME(CONVERT(INT, pa.value)) AS database_name,
		CAST(qs.total_elapsed_time AS FLOAT) / qs.execution_count / 1000.0 AS avg_elapsed_ms,
		CAST(qs.total_worker_time AS FLOAT) / qs.execution_count / 1000.0 AS avg_cpu_ms,
		qs.execution_count,
		SUBSTRING(st.text, (qs.statement_start_offset / 2) + 1,
			((CASE qs.statement_end_offset
				WHEN -1 THEN DATALENGTH(st.text)
				ELSE qs.statement_end_offset
			END - qs.statement_start_offset) / 2) + 1) AS query_text,
		ISNULL(req.session_id, 0) AS session_id
	FROM sys.dm_exec_query_stats qs
	CROSS APPLY sys.dm_exec_sql_text(qs.sql_handle) st
	OUTER APPLY (
		SELECT value FROM sys.dm_exec_plan_attributes(qs.plan_handle) WHERE attribute = 'dbid'
	) pa
	OUTER APPLY (
		SELECT TOP 1 r.session_id
		FROM sys.dm_exec_requests r
		WHERE r.query_hash = qs.query_hash
		AND r.session_id > 50  -- Exclude system sessions
		AND r.session_id <> @@SPID
		ORDER BY r.total_elapsed_time DESC
	) req
	WHERE qs.execution_count > 0
	AND st.text IS NOT NULL
	ORDER BY qs.total_elapsed_time / qs.execution_count DESC
	`

// GetTopExpensiveQueries returns the statements with the highest average elapsed time
func (c *MSSQLCollector) GetTopExpensiveQueries(ctx context.Context, limit int) ([]collector.ExpensiveQuery, error) {
	if limit <= 0 {
		return nil, nil
	}

	db, err := c.GetClient(ctx)
	if err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx, expensiveQueriesSQL, sql.Named("limit", limit))
	if err != nil {
		return nil, fmt.Errorf("pahalı sorgu listesi alınamadı: %w", err)
	}
	defer rows.Close()

	var queries []collector.ExpensiveQuery
	seen := make(map[string]bool)

	for rows.Next() {
		var (
			queryID      string
			databaseName sql.NullString
			avgElapsedMs float64
			avgCPUMs     float64
			execCount    int64
			queryText    sql.NullString
			sessionID    int64
		)

		if err := rows.Scan(&queryID, &databaseName, &avgElapsedMs, &avgCPUMs, &execCount, &queryText, &sessionID); err != nil {
			c.log.Warning("Sorgu tarama hatası: %v", err)
			continue
		}

		// Aynı hash birden fazla plan ile görünebilir, ilki en pahalısıdır
		if seen[queryID] {
			continue
		}
		seen[queryID] = true

		queries = append(queries, collector.ExpensiveQuery{
			QueryID:        queryID,
			Database:       databaseName.String,
			AvgElapsedMs:   avgElapsedMs,
			AvgCPUMs:       avgCPUMs,
			ExecutionCount: execCount,
			QueryText:      utils.TrimString(utils.CollapseWhitespace(queryText.String), maxQueryTextLength),
			SessionID:      sessionID,
		})
	}

	if err := rows.Err(); err != nil {
		return queries, fmt.Errorf("sorgu sonuçları okunurken hata: %w", err)
	}

	c.log.Debug("%d pahalı sorgu okundu", len(queries))
	return queries, nil
}

// KillSessionScript returns the statement terminating a session, or "" when there is none.
func (c *MSSQLCollector) KillSessionScript(sessionID int64) string {
	if sessionID <= 50 {
		return ""
	}
	return fmt.Sprintf("KILL %d", sessionID)
}

// QueryPlanScript returns a statement that fetches the cached plan of a query hash.
func (c *MSSQLCollector) QueryPlanScript(queryID string) string {
	queryID = strings.TrimSpace(queryID)
	if !isHexLiteral(queryID) {
		return ""
	}
	return fmt.Sprintf(`SELECT TOP 1 qp.query_plan
FROM sys.dm_exec_query_stats qs
CROSS APPLY sys.dm_exec_query_plan(qs.plan_handle) qp
WHERE qs.query_hash = %s
ORDER BY qs.total_worker_time DESC`, queryID)
}

// isHexLiteral reports whether s looks like 0x0123ABCD.
func isHexLiteral(s string) bool {
	if len(s) < 3 || !strings.HasPrefix(strings.ToLower(s), "0x") {
		return false
	}
	for _, r := range s[2:] {
		switch {
		case r >= '0' && r <= '9', r >= 'a' && r <= 'f', r >= 'A' && r <= 'F':
		default:
			return false
		}
	}
	return true
}
