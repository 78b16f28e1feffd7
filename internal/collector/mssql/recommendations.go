package mssql

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/rweisssieker-xp/AX-2012-Performce-Optimizer-sub001/internal/collector"
)

// catalogLimit bir kategori için okunacak en fazla öneri sayısı
const catalogLimit = 20

const missingIndexesSQL = `
	SELECT TOP (@limit)
		mid.statement,
		OBJECT_NAME(mid.object_id, mid.database_id) AS object_name,
		migs.avg_total_user_cost * migs.avg_user_impact * (migs.user_seeks + migs.user_scans) AS improvement_measure,
		migs.user_seeks,
		migs.user_scans,
		migs.avg_user_impact,
		mid.equality_columns,
		mid.inequality_columns,
		mid.included_columns
	FROM sys.dm_db_missing_index_groups mig
	INNER JOIN sys.dm_db_missing_index_group_stats migs ON migs.group_handle = mig.index_group_handle
	INNER JOIN sys.dm_db_missing_index_details mid ON mig.index_handle = mid.index_handle
	WHERE mid.database_id = DB_ID()
	AND migs.avg_user_impact > 50
	ORDER BY improvement_measure DESC
	`

const staleStatisticsSQL = `
	SELECT TOP (@limit)
		OBJECT_SCHEMA_NAME(s.object_id) AS schema_name,
		OBJECT_NAME(s.object_id) AS table_name,
		s.name AS stats_name,
		sp.last_updated,
		sp.rows,
		sp.modification_counter
	FROM sys.stats s
	CROSS APPLY sys.dm_db_stats_properties(s.object_id, s.stats_id) sp
	WHERE OBJECTPROPERTY(s.object_id, 'IsUserTable') = 1
	AND sp.modification_counter > 0
	AND (sp.modification_counter >= 500 + 0.2 * sp.rows
		OR sp.last_updated < DATEADD(DAY, -7, GETDATE()))
	ORDER BY sp.modification_counter DESC
	`

// GetRecommendationsByCategory reads the recommendation catalog for one category
func (c *MSSQLCollector) GetRecommendationsByCategory(ctx context.Context, category collector.Category) ([]collector.Recommendation, error) {
	switch category {
	case collector.CategoryIndexManagement:
		return c.missingIndexes(ctx)
	case collector.CategoryDatabaseMaintenance:
		return c.staleStatistics(ctx)
	default:
		return nil, nil
	}
}

func (c *MSSQLCollector) missingIndexes(ctx context.Context) ([]collector.Recommendation, error) {
	db, err := c.GetClient(ctx)
	if err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx, missingIndexesSQL, sql.Named("limit", catalogLimit))
	if err != nil {
		return nil, fmt.Errorf("eksik index önerileri alınamadı: %w", err)
	}
	defer rows.Close()

	var recs []collector.Recommendation
	for rows.Next() {
		var (
			statement          string
			objectName         sql.NullString
			improvementMeasure float64
			userSeeks          int64
			userScans          int64
			avgUserImpact      float64
			equalityColumns    sql.NullString
			inequalityColumns  sql.NullString
			includedColumns    sql.NullString
		)

		if err := rows.Scan(&statement, &objectName, &improvementMeasure, &userSeeks, &userScans,
			&avgUserImpact, &equalityColumns, &inequalityColumns, &includedColumns); err != nil {
			c.log.Warning("Eksik index satırı okunamadı: %v", err)
			continue
		}

		script := createIndexScript(statement, objectName.String,
			equalityColumns.String, inequalityColumns.String, includedColumns.String)
		if script == "" {
			continue
		}

		recs = append(recs, collector.Recommendation{
			Title: fmt.Sprintf("Create missing index on %s", statement),
			Description: fmt.Sprintf("Missing index on %s (equality: %s, inequality: %s) used by %d seeks and %d scans, estimated %.0f%% cost reduction",
				statement, orNone(equalityColumns.String), orNone(inequalityColumns.String), userSeeks, userScans, avgUserImpact),
			Priority:         collector.VolumePriority(improvementMeasure, 1e6, 1e5, 1e4),
			ActionScript:     script,
			RelatedObjectIDs: []string{statement},
			Category:         collector.CategoryIndexManagement,
		})
	}

	if err := rows.Err(); err != nil {
		return recs, fmt.Errorf("eksik index sonuçları okunurken hata: %w", err)
	}
	return recs, nil
}

func (c *MSSQLCollector) staleStatistics(ctx context.Context) ([]collector.Recommendation, error) {
	db, err := c.GetClient(ctx)
	if err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx, staleStatisticsSQL, sql.Named("limit", catalogLimit))
	if err != nil {
		return nil, fmt.Errorf("istatistik bilgileri alınamadı: %w", err)
	}
	defer rows.Close()

	var recs []collector.Recommendation
	for rows.Next() {
		var (
			schemaName    string
			tableName     string
			statsName     string
			lastUpdated   sql.NullTime
			rowCount      sql.NullInt64
			modifications int64
		)

		if err := rows.Scan(&schemaName, &tableName, &statsName, &lastUpdated, &rowCount, &modifications); err != nil {
			c.log.Warning("İstatistik satırı okunamadı: %v", err)
			continue
		}

		table := quoteName(schemaName) + "." + quoteName(tableName)
		recs = append(recs, collector.Recommendation{
			Title: fmt.Sprintf("Update statistics %s on %s", statsName, table),
			Description: fmt.Sprintf("Statistics %s on %s have %d modifications since %s",
				quoteName(statsName), table, modifications, formatLastUpdated(lastUpdated)),
			Priority:         collector.ModificationPriority(rowCount.Int64, modifications),
			ActionScript:     fmt.Sprintf("UPDATE STATISTICS %s %s WITH FULLSCAN", table, quoteName(statsName)),
			RelatedObjectIDs: []string{table + "." + quoteName(statsName)},
			Category:         collector.CategoryDatabaseMaintenance,
		})
	}

	if err := rows.Err(); err != nil {
		return recs, fmt.Errorf("istatistik sonuçları okunurken hata: %w", err)
	}
	return recs, nil
}

var nonIdentChars = regexp.MustCompile(`[^A-Za-z0-9_]+`)

// createIndexScript builds a CREATE INDEX statement from missing index DMV columns.
// statement is the fully qualified table as reported by sys.dm_db_missing_index_details.
func createIndexScript(statement, objectName, equality, inequality, included string) string {
	keyColumns := joinColumns(equality, inequality)
	if strings.TrimSpace(statement) == "" || keyColumns == "" {
		return ""
	}

	script := fmt.Sprintf("CREATE NONCLUSTERED INDEX %s ON %s (%s)",
		quoteName(missingIndexName(objectName, keyColumns)), statement, keyColumns)
	if included = strings.TrimSpace(included); included != "" {
		script += fmt.Sprintf(" INCLUDE (%s)", included)
	}
	return script
}

// missingIndexName derives IX_<table>_<columns>, capped at 128 characters.
func missingIndexName(objectName, keyColumns string) string {
	name := "IX_" + strings.Trim(nonIdentChars.ReplaceAllString(objectName, "_"), "_")
	cols := strings.Trim(nonIdentChars.ReplaceAllString(keyColumns, "_"), "_")
	if cols != "" {
		name += "_" + cols
	}
	if len(name) > 128 {
		name = name[:128]
	}
	return name
}

func joinColumns(parts ...string) string {
	var cols []string
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			cols = append(cols, p)
		}
	}
	return strings.Join(cols, ", ")
}

// quoteName mirrors T-SQL QUOTENAME for bracket delimiters.
func quoteName(name string) string {
	return "[" + strings.ReplaceAll(name, "]", "]]") + "]"
}

func orNone(s string) string {
	if strings.TrimSpace(s) == "" {
		return "none"
	}
	return s
}

func formatLastUpdated(t sql.NullTime) string {
	if !t.Valid {
		return "never"
	}
	return t.Time.Format(time.DateTime)
}
