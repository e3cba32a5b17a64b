package observability

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestInitLoggerWithLevel_WritesLogFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rotator.log")
	t.Setenv("LOG_FILE", path)

	logger, err := InitLoggerWithLevel(zap.InfoLevel, "bannerrotator-test")
	require.NoError(t, err)
	logger.Info("banner selected", zap.Int("banner_id", 7))
	_ = logger.Sync()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"banner_id":7`)
	assert.Contains(t, string(data), `"service":"bannerrotator-test"`)
}

func TestGetLogLevel(t *testing.T) {
	t.Setenv("ENV", "development")
	t.Setenv("LOG_LEVEL", "")
	assert.Equal(t, zap.DebugLevel, getLogLevel())

	t.Setenv("LOG_LEVEL", "warn")
	assert.Equal(t, zap.WarnLevel, getLogLevel())
}

func TestShouldSample_Bounds(t *testing.T) {
	assert.True(t, ShouldSample(1.0))
	assert.False(t, ShouldSample(0))
}

func TestMockMetricsRegistry_Counts(t *testing.T) {
	m := NewMockMetricsRegistry()
	m.IncrementEvent("view")
	m.IncrementEvent("view")
	m.IncrementSelections(SelectionResultNotFound)

	assert.Equal(t, 2, m.Count("view"))
	assert.Equal(t, 0, m.Count("click"))
	assert.Equal(t, 1, m.SelectionCount(SelectionResultNotFound))
}
