package main

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rweisssieker-xp/AX-2012-Performce-Optimizer-sub001/internal/logger"
)

func TestSetupFileLogging_Rotates(t *testing.T) {
	dir := t.TempDir()
	defer logger.SetOutput(os.Stderr)

	big := filepath.Join(dir, "quickfix.log")
	require.NoError(t, os.WriteFile(big, nil, 0644))
	require.NoError(t, os.Truncate(big, maxLogSize+1))

	now := time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC)
	require.NoError(t, setupFileLogging(dir, now))

	_, err := os.Stat(filepath.Join(dir, "quickfix_2024-03-01_09-30-00.log"))
	assert.NoError(t, err, "old file is renamed")

	info, err := os.Stat(big)
	require.NoError(t, err)
	assert.Less(t, info.Size(), maxLogSize)
}

func TestCleanupOldLogs(t *testing.T) {
	dir := t.TempDir()
	for i := 1; i <= 7; i++ {
		name := filepath.Join(dir, fmt.Sprintf("quickfix_2024-03-0%d_00-00-00.log", i))
		require.NoError(t, os.WriteFile(name, []byte("x"), 0644))
	}

	cleanupOldLogs(dir, maxLogFiles)

	matches, err := filepath.Glob(filepath.Join(dir, "quickfix_*.log"))
	require.NoError(t, err)
	require.Len(t, matches, maxLogFiles)
	assert.Equal(t, filepath.Join(dir, "quickfix_2024-03-03_00-00-00.log"), matches[0])
}
