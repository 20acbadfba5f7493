package logger

import (
	"os"
	"path/filepath"
	"testing"

	"klinewatch/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// go test -v --run TestNewInvalidLevel
func TestNewInvalidLevel(t *testing.T) {
	_, err := New(config.LogConfig{Level: "loud"})
	assert.Error(t, err)
}

// go test -v --run TestNewWritesFile
func TestNewWritesFile(t *testing.T) {
	out := filepath.Join(t.TempDir(), "logs", "watcher.log")

	log, err := New(config.LogConfig{Level: "debug", Format: "json", OutputFile: out})
	require.NoError(t, err)

	log.Info("hello")
	_ = log.Sync()

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"msg":"hello"`)
}
