package platform

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rweisssieker-xp/AX-2012-Performce-Optimizer-sub001/internal/collector"
	"github.com/rweisssieker-xp/AX-2012-Performce-Optimizer-sub001/internal/config"
)

func TestOpen(t *testing.T) {
	for _, p := range []string{config.PlatformMSSQL, config.PlatformPostgres, config.PlatformMongo} {
		t.Run(p, func(t *testing.T) {
			cfg := config.DefaultAgentConfig()
			cfg.Platform = p

			backend, err := Open(cfg)
			require.NoError(t, err)
			assert.Equal(t, p, backend.Platform())
			assert.NoError(t, backend.Close(), "closing an unopened backend is a no-op")
		})
	}
}

func TestOpen_Unsupported(t *testing.T) {
	cfg := config.DefaultAgentConfig()
	cfg.Platform = "oracle"

	_, err := Open(cfg)
	assert.ErrorIs(t, err, collector.ErrUnsupportedPlatform)
}
