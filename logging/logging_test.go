package logging_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"

	"github.com/katalvlaran/kadapt/logging"
)

func TestNew(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.log")
	log, err := logging.New(logging.Config{Level: "warn", OutputPaths: []string{path}})
	require.NoError(t, err)
	require.False(t, log.Core().Enabled(zapcore.InfoLevel))
	require.True(t, log.Core().Enabled(zapcore.WarnLevel))

	log.Warn("gap closed")
	require.NoError(t, log.Sync())
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Contains(t, string(data), `"msg":"gap closed"`)
}

func TestDevelopment(t *testing.T) {
	log, err := logging.New(logging.Config{Level: "debug", Development: true})
	require.NoError(t, err)
	require.True(t, log.Core().Enabled(zapcore.DebugLevel))
}

func TestBadLevel(t *testing.T) {
	_, err := logging.New(logging.Config{Level: "loud"})
	require.Error(t, err)
}
