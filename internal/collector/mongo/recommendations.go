package mongo

import (
	"context"
	"fmt"
	"strings"

	"github.com/rweisssieker-xp/AX-2012-Performce-Optimizer-sub001/internal/collector"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

const catalogLimit = 20

// collscanGroup aynı filtre alanlarıyla yapılan collection scan'lerin özeti
type collscanGroup struct {
	ID struct {
		Namespace string   `bson:"ns"`
		Keys      []string `bson:"keys"`
	} `bson:"_id"`
	Count int64 `bson:"count"`
}

// GetRecommendationsByCategory reads the recommendation catalog for one category.
// MongoDB maintains statistics itself, so database-maintenance is always empty.
func (c *MongoCollector) GetRecommendationsByCategory(ctx context.Context, category collector.Category) ([]collector.Recommendation, error) {
	if category != collector.CategoryIndexManagement {
		return nil, nil
	}
	return c.collectionScans(ctx)
}

func (c *MongoCollector) collectionScans(ctx context.Context) ([]collector.Recommendation, error) {
	client, err := c.GetClient(ctx)
	if err != nil {
		return nil, err
	}

	filterKeys := bson.D{{Key: "$map", Value: bson.D{
		{Key: "input", Value: bson.D{{Key: "$objectToArray", Value: bson.D{{Key: "$ifNull", Value: bson.A{
			"$command.filter",
			bson.D{{Key: "$ifNull", Value: bson.A{"$command.q", bson.D{}}}},
		}}}}}},
		{Key: "as", Value: "f"},
		{Key: "in", Value: "$$f.k"},
	}}}

	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.D{
			{Key: "planSummary", Value: "COLLSCAN"},
			{Key: "op", Value: bson.D{{Key: "$in", Value: bson.A{"query", "update", "remove"}}}},
		}}},
		{{Key: "$project", Value: bson.D{
			{Key: "ns", Value: 1},
			{Key: "keys", Value: filterKeys},
		}}},
		{{Key: "$match", Value: bson.D{{Key: "keys.0", Value: bson.D{{Key: "$exists", Value: true}}}}}},
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: bson.D{{Key: "ns", Value: "$ns"}, {Key: "keys", Value: "$keys"}}},
			{Key: "count", Value: bson.D{{Key: "$sum", Value: 1}}},
		}}},
		{{Key: "$sort", Value: bson.D{{Key: "count", Value: -1}}}},
		{{Key: "$limit", Value: catalogLimit}},
	}

	cursor, err := client.Database(c.database()).Collection("system.profile").Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("collection scan kayıtları okunamadı: %w", err)
	}

	var groups []collscanGroup
	if err := cursor.All(ctx, &groups); err != nil {
		return nil, fmt.Errorf("collection scan sonuçları okunurken hata: %w", err)
	}

	var recs []collector.Recommendation
	for _, g := range groups {
		dbName, coll, ok := strings.Cut(g.ID.Namespace, ".")
		keys := indexableKeys(g.ID.Keys)
		if !ok || coll == "" || len(keys) == 0 {
			continue
		}

		script, err := createIndexCommand(dbName, coll, keys)
		if err != nil {
			c.log.Warning("createIndexes komutu oluşturulamadı: %v", err)
			continue
		}

		recs = append(recs, collector.Recommendation{
			Title: fmt.Sprintf("Create index on %s (%s)", g.ID.Namespace, strings.Join(keys, ", ")),
			Description: fmt.Sprintf("Collection scan on %s filtered by {%s} seen %d times in the profiler",
				g.ID.Namespace, strings.Join(keys, ", "), g.Count),
			Priority:         collector.VolumePriority(float64(g.Count), 1000, 100, 10),
			ActionScript:     script,
			RelatedObjectIDs: []string{g.ID.Namespace},
			Category:         collector.CategoryIndexManagement,
		})
	}
	return recs, nil
}

// indexableKeys drops operators such as $or and keeps the first 4 fields.
func indexableKeys(keys []string) []string {
	var out []string
	for _, k := range keys {
		if k == "" || strings.HasPrefix(k, "$") {
			continue
		}
		out = append(out, k)
		if len(out) == 4 {
			break
		}
	}
	return out
}

// createIndexCommand builds an ascending compound index named like the server would (a_1_b_1).
func createIndexCommand(dbName, coll string, keys []string) (string, error) {
	key := bson.D{}
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		key = append(key, bson.E{Key: k, Value: 1})
		parts = append(parts, k+"_1")
	}

	return marshalCommand(bson.D{
		{Key: "createIndexes", Value: coll},
		{Key: "indexes", Value: bson.A{bson.D{
			{Key: "key", Value: key},
			{Key: "name", Value: strings.Join(parts, "_")},
		}}},
	}, dbName)
}
