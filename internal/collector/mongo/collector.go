package mongo

import (
	"context"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/rweisssieker-xp/AX-2012-Performce-Optimizer-sub001/internal/config"
	"github.com/rweisssieker-xp/AX-2012-Performce-Optimizer-sub001/internal/logger"
	"github.com/rweisssieker-xp/AX-2012-Performce-Optimizer-sub001/internal/model"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// MongoCollector MongoDB için tanı ve düzeltme kaynağı
type MongoCollector struct {
	cfg *config.AgentConfig
	log *logger.Scoped

	mu     sync.Mutex
	client *mongo.Client
}

// NewMongoCollector yeni bir MongoCollector oluşturur
func NewMongoCollector(cfg *config.AgentConfig) *MongoCollector {
	return &MongoCollector{
		cfg: cfg,
		log: logger.Named("mongo"),
	}
}

func newWithClient(cfg *config.AgentConfig, client *mongo.Client) *MongoCollector {
	c := NewMongoCollector(cfg)
	c.client = client
	return c
}

// Platform returns the platform name used in outcome messages.
func (c *MongoCollector) Platform() string {
	return config.PlatformMongo
}

func (c *MongoCollector) database() string {
	if c.cfg.Mongo.Database == "" {
		return "admin"
	}
	return c.cfg.Mongo.Database
}

// URI builds the connection URI. A replica set name disables direct connection.
func (c *MongoCollector) URI() string {
	host := c.cfg.Mongo.Host
	if host == "" {
		host = "localhost"
	}
	port := c.cfg.Mongo.Port
	if port == "" {
		port = "27017"
	}

	params := url.Values{}
	params.Set("connectTimeoutMS", "10000")
	params.Set("serverSelectionTimeoutMS", "10000")
	params.Set("appName", "ax-quickfix")
	if c.cfg.Mongo.Replset != "" {
		params.Set("replicaSet", c.cfg.Mongo.Replset)
	} else {
		params.Set("directConnection", "true")
	}

	u := url.URL{
		Scheme:   "mongodb",
		Host:     host + ":" + port,
		Path:     "/",
		RawQuery: params.Encode(),
	}
	// Auth bilgileri boşsa, kimlik doğrulama olmadan bağlan
	if c.cfg.Mongo.Auth {
		u.User = url.UserPassword(c.cfg.Mongo.User, c.cfg.Mongo.Pass)
	}
	return u.String()
}

// GetClient returns the shared MongoDB client, connecting on first use
func (c *MongoCollector) GetClient(ctx context.Context) (*mongo.Client, error) {
	c.mu.Lock()
	client := c.client
	c.mu.Unlock()
	if client != nil {
		return client, nil
	}

	client, err := c.connect(ctx)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.client != nil {
		client.Disconnect(context.Background())
		return c.client, nil
	}
	c.client = client
	c.log.Info("MongoDB bağlantısı açıldı (%s)", c.cfg.Mongo.Host)
	return client, nil
}

func (c *MongoCollector) connect(ctx context.Context) (*mongo.Client, error) {
	clientOptions := options.Client().ApplyURI(c.URI())
	clientOptions.SetMaxPoolSize(4)
	clientOptions.SetMaxConnIdleTime(30 * time.Second)

	connectCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	client, err := mongo.Connect(connectCtx, clientOptions)
	if err != nil {
		return nil, fmt.Errorf("MongoDB bağlantısı kurulamadı: %w", err)
	}

	pingCtx, pingCancel := context.WithTimeout(ctx, 5*time.Second)
	defer pingCancel()

	if err := client.Ping(pingCtx, readpref.Primary()); err != nil {
		client.Disconnect(context.Background())
		return nil, fmt.Errorf("MongoDB ping başarısız: %w", err)
	}
	return client, nil
}

// Close disconnects the client.
func (c *MongoCollector) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.client == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := c.client.Disconnect(ctx)
	c.client = nil
	return err
}

// Exec runs a command given in Extended JSON. The "$db" field selects the target database.
func (c *MongoCollector) Exec(ctx context.Context, script string) error {
	dbName, cmd, err := parseCommand(script, c.database())
	if err != nil {
		return err
	}

	client, err := c.GetClient(ctx)
	if err != nil {
		return err
	}

	if err := client.Database(dbName).RunCommand(ctx, cmd).Err(); err != nil {
		return fmt.Errorf("komut çalıştırılamadı: %w", err)
	}
	return nil
}

// Supports reports whether MongoDB can run the given fix kind. Statistics are
// maintained by the server and reIndex is deprecated.
func (c *MongoCollector) Supports(kind model.FixKind) bool {
	switch kind {
	case model.KindCreateIndex, model.KindClearCache, model.KindKillBlockingSession:
		return true
	default:
		return false
	}
}

// InverseScript returns the dropIndexes command for a createIndexes command.
func (c *MongoCollector) InverseScript(kind model.FixKind, script string) (string, bool) {
	if kind != model.KindCreateIndex {
		return "", false
	}

	dbName, cmd, err := parseCommand(script, c.database())
	if err != nil || len(cmd) == 0 || cmd[0].Key != "createIndexes" {
		return "", false
	}

	name := firstIndexName(cmd)
	if name == "" {
		return "", false
	}

	drop, err := marshalCommand(bson.D{
		{Key: "dropIndexes", Value: cmd[0].Value},
		{Key: "index", Value: name},
	}, dbName)
	if err != nil {
		return "", false
	}
	return drop, true
}

// parseCommand decodes an Extended JSON command and strips its "$db" field.
func parseCommand(script, defaultDB string) (string, bson.D, error) {
	var doc bson.D
	if err := bson.UnmarshalExtJSON([]byte(script), false, &doc); err != nil {
		return "", nil, fmt.Errorf("komut JSON formatına çevrilemedi: %w", err)
	}

	dbName := defaultDB
	cmd := make(bson.D, 0, len(doc))
	for _, e := range doc {
		if e.Key == "$db" {
			if s, ok := e.Value.(string); ok && s != "" {
				dbName = s
			}
			continue
		}
		cmd = append(cmd, e)
	}
	if len(cmd) == 0 {
		return "", nil, fmt.Errorf("boş komut")
	}
	return dbName, cmd, nil
}

// marshalCommand renders cmd as relaxed Extended JSON with a trailing "$db".
func marshalCommand(cmd bson.D, dbName string) (string, error) {
	doc := append(bson.D{}, cmd...)
	doc = append(doc, bson.E{Key: "$db", Value: dbName})
	out, err := bson.MarshalExtJSON(doc, false, false)
	if err != nil {
		return "", err
	}
	return string(out), nil
}

func firstIndexName(cmd bson.D) string {
	for _, e := range cmd {
		if e.Key != "indexes" {
			continue
		}
		indexes, ok := e.Value.(bson.A)
		if !ok || len(indexes) == 0 {
			return ""
		}
		spec, ok := indexes[0].(bson.D)
		if !ok {
			return ""
		}
		for _, f := range spec {
			if f.Key == "name" {
				name, _ := f.Value.(string)
				return name
			}
		}
	}
	return ""
}
