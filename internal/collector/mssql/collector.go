package mssql

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "github.com/microsoft/go-mssqldb" // MSSQL driver
	"github.com/rweisssieker-xp/AX-2012-Performce-Optimizer-sub001/internal/config"
	"github.com/rweisssieker-xp/AX-2012-Performce-Optimizer-sub001/internal/logger"
)

// MSSQLCollector SQL Server için tanı ve düzeltme kaynağı
type MSSQLCollector struct {
	cfg *config.AgentConfig
	log *logger.Scoped

	mu   sync.Mutex
	db   *sql.DB
	open func(ctx context.Context) (*sql.DB, error)
}

// NewMSSQLCollector yeni bir MSSQLCollector oluşturur
func NewMSSQLCollector(cfg *config.AgentConfig) *MSSQLCollector {
	c := &MSSQLCollector{
		cfg: cfg,
		log: logger.Named("mssql"),
	}
	c.open = c.openPool
	return c
}

// newWithDB wraps an already opened pool.
func newWithDB(cfg *config.AgentConfig, db *sql.DB) *MSSQLCollector {
	c := NewMSSQLCollector(cfg)
	c.db = db
	return c
}

// Platform returns the platform name used in outcome messages.
func (c *MSSQLCollector) Platform() string {
	return config.PlatformMSSQL
}

// ConnectionString builds the go-mssqldb connection string from the config
func (c *MSSQLCollector) ConnectionString() string {
	var connStr string

	host := c.cfg.MSSQL.Host
	if host == "" {
		host = "localhost"
	}

	port := c.cfg.MSSQL.Port
	if port == "" {
		port = "1433"
	}

	instance := c.cfg.MSSQL.Instance
	database := c.cfg.MSSQL.Database
	if database == "" {
		database = "master"
	}

	// Named instance varsa port yerine instance adı kullanılır
	server := fmt.Sprintf("%s,%s", host, port)
	if instance != "" {
		server = fmt.Sprintf("%s\\%s", host, instance)
	}

	if c.cfg.MSSQL.WindowsAuth {
		connStr = fmt.Sprintf("server=%s;database=%s;trusted_connection=yes", server, database)
	} else {
		connStr = fmt.Sprintf("server=%s;user id=%s;password=%s;database=%s",
			server, c.cfg.MSSQL.User, c.cfg.MSSQL.Pass, database)
	}

	if c.cfg.MSSQL.TrustCert {
		connStr += ";trustservercertificate=true"
	}

	connStr += ";connection timeout=10;app name=AX QuickFix"
	return connStr
}

// GetClient returns the shared SQL Server pool, opening it on first use. The
// ping runs without holding the lock.
func (c *MSSQLCollector) GetClient(ctx context.Context) (*sql.DB, error) {
	c.mu.Lock()
	db := c.db
	c.mu.Unlock()
	if db != nil {
		return db, nil
	}

	db, err := c.open(ctx)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	// Ping sırasında başka bir çağrı havuzu açmış olabilir
	if c.db != nil {
		db.Close()
		return c.db, nil
	}
	c.db = db
	c.log.Info("SQL Server bağlantısı açıldı (%s)", c.cfg.MSSQL.Host)
	return db, nil
}

func (c *MSSQLCollector) openPool(ctx context.Context) (*sql.DB, error) {
	db, err := sql.Open("sqlserver", c.ConnectionString())
	if err != nil {
		return nil, fmt.Errorf("MSSQL bağlantısı kurulamadı: %w", err)
	}
	db.SetMaxOpenConns(8)
	db.SetConnMaxIdleTime(5 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("MSSQL bağlantı testi başarısız: %w", err)
	}
	return db, nil
}

// Close releases the connection pool.
func (c *MSSQLCollector) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.db == nil {
		return nil
	}
	err := c.db.Close()
	c.db = nil
	return err
}

// Exec runs a remediation statement. Batches separated by GO are executed one by one.
func (c *MSSQLCollector) Exec(ctx context.Context, script string) error {
	db, err := c.GetClient(ctx)
	if err != nil {
		return err
	}

	for _, batch := range splitBatches(script) {
		if _, err := db.ExecContext(ctx, batch); err != nil {
			return fmt.Errorf("komut çalıştırılamadı: %w", err)
		}
	}
	return nil
}

// splitBatches splits a T-SQL script on lines consisting of a single GO.
func splitBatches(script string) []string {
	var batches []string
	var current []string

	flush := func() {
		batch := strings.TrimSpace(strings.Join(current, "\n"))
		if batch != "" {
			batches = append(batches, batch)
		}
		current = current[:0]
	}

	for _, line := range strings.Split(script, "\n") {
		if strings.EqualFold(strings.TrimSpace(line), "GO") {
			flush()
			continue
		}
		current = append(current, line)
	}
	flush()
	return batches
}
