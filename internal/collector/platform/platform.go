package platform

import (
	"fmt"

	"github.com/rweisssieker-xp/AX-2012-Performce-Optimizer-sub001/internal/collector"
	"github.com/rweisssieker-xp/AX-2012-Performce-Optimizer-sub001/internal/collector/mongo"
	"github.com/rweisssieker-xp/AX-2012-Performce-Optimizer-sub001/internal/collector/mssql"
	"github.com/rweisssieker-xp/AX-2012-Performce-Optimizer-sub001/internal/collector/postgres"
	"github.com/rweisssieker-xp/AX-2012-Performce-Optimizer-sub001/internal/config"
)

var (
	_ collector.Backend = (*mssql.MSSQLCollector)(nil)
	_ collector.Backend = (*postgres.PostgresCollector)(nil)
	_ collector.Backend = (*mongo.MongoCollector)(nil)
)

// Open seçili platform için backend oluşturur. Bağlantı ilk sorguda açılır.
func Open(cfg *config.AgentConfig) (collector.Backend, error) {
	switch cfg.Platform {
	case config.PlatformMSSQL, "":
		return mssql.NewMSSQLCollector(cfg), nil
	case config.PlatformPostgres:
		return postgres.NewPostgresCollector(cfg), nil
	case config.PlatformMongo:
		return mongo.NewMongoCollector(cfg), nil
	default:
		return nil, fmt.Errorf("%w: %q", collector.ErrUnsupportedPlatform, cfg.Platform)
	}
}
