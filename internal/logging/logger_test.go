package logging

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readCategoryLog(t *testing.T, dir string, cat Category) string {
	t.Helper()
	CloseAll()
	date := time.Now().Format("2006-01-02")
	data, err := os.ReadFile(filepath.Join(dir, date+"_"+string(cat)+".log"))
	require.NoError(t, err)
	return string(data)
}

func TestCategoriesWriteFiles(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, Initialize(dir, Options{DebugMode: true, Level: "debug"}))
	t.Cleanup(CloseAll)

	Store("saved %d records", 3)
	SyncDebug("mtime changed")

	assert.Contains(t, readCategoryLog(t, dir, CategoryStore), "saved 3 records")
	assert.Contains(t, readCategoryLog(t, dir, CategorySync), "mtime changed")
	assert.Contains(t, readCategoryLog(t, dir, CategoryBoot), "padget logging initialized")
}

func TestDisabledModeIsNoop(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "logs")
	require.NoError(t, Initialize(dir, Options{DebugMode: false}))
	t.Cleanup(CloseAll)

	Store("should not be written")
	assert.False(t, IsDebugMode())

	_, err := os.Stat(dir)
	assert.True(t, os.IsNotExist(err), "logs dir must not be created in production mode")
}

func TestCategoryFilter(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, Initialize(dir, Options{
		DebugMode:  true,
		Categories: map[string]bool{"api": false},
	}))
	t.Cleanup(CloseAll)

	assert.False(t, IsCategoryEnabled(CategoryAPI))
	assert.True(t, IsCategoryEnabled(CategoryStore), "unlisted categories default to enabled")
}

func TestLevelFiltering(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, Initialize(dir, Options{DebugMode: true, Level: "warn"}))
	t.Cleanup(CloseAll)

	StoreDebug("quiet")
	StoreWarn("loud")

	out := readCategoryLog(t, dir, CategoryStore)
	assert.False(t, strings.Contains(out, "quiet"))
	assert.Contains(t, out, "loud")
}

func TestJSONFormat(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, Initialize(dir, Options{DebugMode: true, JSONFormat: true}))
	t.Cleanup(CloseAll)

	Get(CategoryHistory).With("record_id", 7).Info("recorded")

	out := readCategoryLog(t, dir, CategoryHistory)
	assert.Contains(t, out, `"msg":"recorded"`)
	assert.Contains(t, out, `"record_id":7`)
}

func TestTimerThreshold(t *testing.T) {
	timer := StartTimer(CategoryStore, "op")
	elapsed := timer.StopWithThreshold(time.Hour)
	assert.Less(t, elapsed, time.Hour)
}
