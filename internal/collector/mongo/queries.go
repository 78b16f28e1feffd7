package mongo

import (
	"context"
	"fmt"
	"strings"

	"github.com/rweisssieker-xp/AX-2012-Performce-Optimizer-sub001/internal/collector"
	"github.com/rweisssieker-xp/AX-2012-Performce-Optimizer-sub001/pkg/utils"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

const maxQueryTextLength = 2000

var profiledOps = bson.A{"query", "update", "remove", "getmore", "command"}

// profileGroup system.profile kayıtlarının queryHash bazında özeti
type profileGroup struct {
	QueryHash   string   `bson:"_id"`
	Namespace   string   `bson:"ns"`
	AvgMillis   float64  `bson:"avgMillis"`
	AvgCPUNanos *float64 `bson:"avgCpuNanos"` // yalnızca Linux'ta raporlanır
	Count       int64    `bson:"count"`
	Sample      bson.Raw `bson:"sample"`
}

type activeOp struct {
	OpID      bson.RawValue `bson:"opid"`
	Namespace string        `bson:"ns"`
}

// GetTopExpensiveQueries reads profiler entries grouped by query shape. The
// profiler must be enabled (level 1 or 2) on the configured database.
func (c *MongoCollector) GetTopExpensiveQueries(ctx context.Context, limit int) ([]collector.ExpensiveQuery, error) {
	if limit <= 0 {
		return nil, nil
	}

	client, err := c.GetClient(ctx)
	if err != nil {
		return nil, err
	}

	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.D{
			{Key: "op", Value: bson.D{{Key: "$in", Value: profiledOps}}},
			{Key: "queryHash", Value: bson.D{{Key: "$exists", Value: true}}},
		}}},
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: "$queryHash"},
			{Key: "ns", Value: bson.D{{Key: "$first", Value: "$ns"}}},
			{Key: "avgMillis", Value: bson.D{{Key: "$avg", Value: "$millis"}}},
			{Key: "avgCpuNanos", Value: bson.D{{Key: "$avg", Value: "$cpuNanos"}}},
			{Key: "count", Value: bson.D{{Key: "$sum", Value: 1}}},
			{Key: "sample", Value: bson.D{{Key: "$first", Value: "$command"}}},
		}}},
		{{Key: "$sort", Value: bson.D{{Key: "avgMillis", Value: -1}}}},
		{{Key: "$limit", Value: limit}},
	}

	cursor, err := client.Database(c.database()).Collection("system.profile").Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("profiler kayıtları okunamadı: %w", err)
	}

	var groups []profileGroup
	if err := cursor.All(ctx, &groups); err != nil {
		return nil, fmt.Errorf("profiler sonuçları okunurken hata: %w", err)
	}

	ops, err := c.activeOperations(ctx, client)
	if err != nil {
		c.log.Warning("Aktif operasyonlar alınamadı: %v", err)
	}

	queries := make([]collector.ExpensiveQuery, 0, len(groups))
	for _, g := range groups {
		// cpuNanos yoksa bekleme oranı bilinmez, CPU süresi toplam süre kabul edilir
		cpuMs := g.AvgMillis
		if g.AvgCPUNanos != nil {
			cpuMs = *g.AvgCPUNanos / 1e6
		}

		queryText := ""
		if len(g.Sample) > 0 {
			queryText = g.Sample.String()
		}

		queries = append(queries, collector.ExpensiveQuery{
			QueryID:        g.QueryHash,
			Database:       databaseOf(g.Namespace),
			AvgElapsedMs:   g.AvgMillis,
			AvgCPUMs:       cpuMs,
			ExecutionCount: g.Count,
			QueryText:      utils.TrimString(queryText, maxQueryTextLength),
			SessionID:      ops[g.Namespace],
		})
	}
	return queries, nil
}

// activeOperations maps namespaces to the opid of their longest running active operation.
func (c *MongoCollector) activeOperations(ctx context.Context, client *mongo.Client) (map[string]int64, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$currentOp", Value: bson.D{}}},
		{{Key: "$match", Value: bson.D{
			{Key: "active", Value: true},
			{Key: "op", Value: bson.D{{Key: "$in", Value: profiledOps}}},
		}}},
		{{Key: "$sort", Value: bson.D{{Key: "microsecs_running", Value: -1}}}},
		{{Key: "$project", Value: bson.D{{Key: "opid", Value: 1}, {Key: "ns", Value: 1}}}},
	}

	cursor, err := client.Database("admin").Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}

	var ops []activeOp
	if err := cursor.All(ctx, &ops); err != nil {
		return nil, err
	}

	result := make(map[string]int64, len(ops))
	for _, op := range ops {
		if _, seen := result[op.Namespace]; seen {
			continue
		}
		// Sharded kümelerde opid "shard:123" biçiminde string olur, bunlar atlanır
		if id, ok := op.OpID.AsInt64OK(); ok && id > 0 {
			result[op.Namespace] = id
		}
	}
	return result, nil
}

// KillSessionScript returns the killOp command, or "" when there is no operation.
func (c *MongoCollector) KillSessionScript(opID int64) string {
	if opID <= 0 {
		return ""
	}
	script, err := marshalCommand(bson.D{
		{Key: "killOp", Value: 1},
		{Key: "op", Value: opID},
	}, "admin")
	if err != nil {
		return ""
	}
	return script
}

// QueryPlanScript returns a profiler lookup for the slowest run of a query shape.
func (c *MongoCollector) QueryPlanScript(queryID string) string {
	queryID = strings.TrimSpace(queryID)
	if !isQueryHash(queryID) {
		return ""
	}
	script, err := marshalCommand(bson.D{
		{Key: "find", Value: "system.profile"},
		{Key: "filter", Value: bson.D{{Key: "queryHash", Value: queryID}}},
		{Key: "sort", Value: bson.D{{Key: "millis", Value: -1}}},
		{Key: "limit", Value: 1},
	}, c.database())
	if err != nil {
		return ""
	}
	return script
}

func isQueryHash(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9', r >= 'A' && r <= 'F', r >= 'a' && r <= 'f':
		default:
			return false
		}
	}
	return true
}

func databaseOf(namespace string) string {
	db, _, _ := strings.Cut(namespace, ".")
	return db
}
