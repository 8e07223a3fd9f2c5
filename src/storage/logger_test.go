package storage

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

func TestLoggerWritesAndNotifies(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "app.log")
	logger, err := NewLogger(path)
	require.NoError(t, err)
	defer logger.Close()

	sub := logger.Subscribe()
	logger.Info("dataset loaded", zap.Int("rows", 3))
	logger.Fatal("still running")

	select {
	case msg := <-sub:
		assert.Contains(t, msg, "INFO")
		assert.Contains(t, msg, "dataset loaded")
		assert.Contains(t, msg, `"rows": 3`)
	case <-time.After(time.Second):
		t.Fatal("no message for subscriber")
	}

	logger.Unsubscribe(sub)
	logger.Error("after unsubscribe")
	select {
	case msg := <-sub:
		assert.Contains(t, msg, "still running")
	default:
	}

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "dataset loaded")
	assert.Contains(t, string(data), "FATAL")
	assert.Contains(t, string(data), "after unsubscribe")
}

func TestLoggerLevel(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.log")
	logger, err := NewLogger(path)
	require.NoError(t, err)
	defer logger.Close()

	logger.SetLevel(WARNING)
	logger.Info("hidden")
	logger.Warning("shown")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "hidden")
	assert.Contains(t, string(data), "shown")
}

func TestLoggerRotateAndReopen(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "app.log")
	logger, err := NewLogger(path)
	require.NoError(t, err)
	defer logger.Close()

	logger.Info(strings.Repeat("x", 64))
	require.NoError(t, logger.CheckRotate("1 * 16"))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 2)

	// 未超过上限时不轮转
	require.NoError(t, logger.CheckRotate("1024 * 1024"))
	entries, err = os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 2)

	other := filepath.Join(dir, "reopened.log")
	require.NoError(t, logger.Reopen(other))
	logger.Info("after reopen")
	data, err := os.ReadFile(other)
	require.NoError(t, err)
	assert.Contains(t, string(data), "after reopen")
}

func TestLoggerRotateAfterFileRemoved(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "app.log")
	logger, err := NewLogger(path)
	require.NoError(t, err)
	defer logger.Close()

	logger.Info(strings.Repeat("x", 64))
	require.NoError(t, os.Remove(path))

	// 改名失败也要换上新文件
	assert.Error(t, logger.CheckRotate("10"))
	require.FileExists(t, path)

	logger.Info("after failed rotate")
	require.NoError(t, logger.CheckRotate("1024 * 1024"))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "after failed rotate")
}

func TestEval(t *testing.T) {
	assert.Equal(t, int64(10*1024*1024), eval("10 * 1024 * 1024"))
	assert.Equal(t, int64(0), eval("ten"))
	assert.Equal(t, "WARNING", WARNING.String())
}

func TestExporter(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "exports")
	exporter, err := NewExporter(dir)
	require.NoError(t, err)
	exporter.now = func() time.Time { return time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC) }

	df := dataframe.New(
		series.New([]string{"X"}, series.String, "Region"),
		series.New([]float64{42}, series.Float, "Production"),
	)

	path, err := exporter.Save(df, "all")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "all_20240102030405.xlsx"), path)

	var buf bytes.Buffer
	require.NoError(t, exporter.WriteTo(&buf, df))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()
	rows, err := f.GetRows(exportSheet)
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"Region", "Production"}, {"X", "42"}}, rows)
}
