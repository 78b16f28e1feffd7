package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "github.com/lib/pq"
	"github.com/rweisssieker-xp/AX-2012-Performce-Optimizer-sub001/internal/config"
	"github.com/rweisssieker-xp/AX-2012-Performce-Optimizer-sub001/internal/logger"
	"github.com/rweisssieker-xp/AX-2012-Performce-Optimizer-sub001/internal/model"
)

// PostgresCollector PostgreSQL için tanı ve düzeltme kaynağı
type PostgresCollector struct {
	cfg *config.AgentConfig
	log *logger.Scoped

	mu sync.Mutex
	db *sql.DB
}

// NewPostgresCollector yeni bir PostgresCollector oluşturur
func NewPostgresCollector(cfg *config.AgentConfig) *PostgresCollector {
	return &PostgresCollector{
		cfg: cfg,
		log: logger.Named("postgres"),
	}
}

func newWithDB(cfg *config.AgentConfig, db *sql.DB) *PostgresCollector {
	c := NewPostgresCollector(cfg)
	c.db = db
	return c
}

// Platform returns the platform name used in outcome messages.
func (c *PostgresCollector) Platform() string {
	return config.PlatformPostgres
}

// ConnectionString builds the lib/pq keyword/value connection string
func (c *PostgresCollector) ConnectionString() string {
	host := c.cfg.PostgreSQL.Host
	if host == "" {
		host = "localhost"
	}
	port := c.cfg.PostgreSQL.Port
	if port == "" {
		port = "5432"
	}
	database := c.cfg.PostgreSQL.Database
	if database == "" {
		database = "postgres"
	}
	sslmode := c.cfg.PostgreSQL.SSLMode
	if sslmode == "" {
		sslmode = "disable"
	}

	parts := []string{
		"host=" + connValue(host),
		"port=" + connValue(port),
	}
	if c.cfg.PostgreSQL.User != "" {
		parts = append(parts, "user="+connValue(c.cfg.PostgreSQL.User))
	}
	if c.cfg.PostgreSQL.Auth {
		parts = append(parts, "password="+connValue(c.cfg.PostgreSQL.Pass))
	}
	parts = append(parts,
		"dbname="+connValue(database),
		"sslmode="+connValue(sslmode),
		"connect_timeout=10",
		"application_name=ax_quickfix")
	return strings.Join(parts, " ")
}

// connValue quotes a keyword/value parameter when it contains spaces or quotes.
func connValue(v string) string {
	if v != "" && !strings.ContainsAny(v, ` '\`) {
		return v
	}
	v = strings.ReplaceAll(v, `\`, `\\`)
	v = strings.ReplaceAll(v, `'`, `\'`)
	return "'" + v + "'"
}

// GetClient returns the shared PostgreSQL pool, opening it on first use
func (c *PostgresCollector) GetClient(ctx context.Context) (*sql.DB, error) {
	c.mu.Lock()
	db := c.db
	c.mu.Unlock()
	if db != nil {
		return db, nil
	}

	db, err := c.openPool(ctx)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.db != nil {
		db.Close()
		return c.db, nil
	}
	c.db = db
	c.log.Info("PostgreSQL bağlantısı açıldı (%s)", c.cfg.PostgreSQL.Host)
	return db, nil
}

func (c *PostgresCollector) openPool(ctx context.Context) (*sql.DB, error) {
	db, err := sql.Open("postgres", c.ConnectionString())
	if err != nil {
		return nil, fmt.Errorf("PostgreSQL bağlantısı kurulamadı: %w", err)
	}
	db.SetMaxOpenConns(8)
	db.SetConnMaxIdleTime(5 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("PostgreSQL bağlantı testi başarısız: %w", err)
	}
	return db, nil
}

// Close releases the connection pool.
func (c *PostgresCollector) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.db == nil {
		return nil
	}
	err := c.db.Close()
	c.db = nil
	return err
}

// Exec runs a single remediation statement outside of a transaction
func (c *PostgresCollector) Exec(ctx context.Context, script string) error {
	db, err := c.GetClient(ctx)
	if err != nil {
		return err
	}
	if _, err := db.ExecContext(ctx, script); err != nil {
		return fmt.Errorf("komut çalıştırılamadı: %w", err)
	}
	return nil
}

// Supports reports whether PostgreSQL can run the given fix kind.
// Plan cache is per backend, so clear-cache has no server-wide equivalent.
func (c *PostgresCollector) Supports(kind model.FixKind) bool {
	switch kind {
	case model.KindCreateIndex,
		model.KindUpdateStatistics,
		model.KindRebuildIndex,
		model.KindKillBlockingSession:
		return true
	default:
		return false
	}
}
