package history

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"padget/internal/slides"
	"padget/internal/store"
)

func openTestLog(t *testing.T) *Log {
	t.Helper()
	l, err := Open(filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = l.Close() })
	return l
}

func TestRecordAndRecent(t *testing.T) {
	l := openTestLog(t)
	ctx := context.Background()
	at := time.Date(2024, 6, 1, 8, 0, 0, 0, time.UTC)

	require.NoError(t, l.Record(ctx, Entry{Op: store.OpAdd, RecordID: 1, Title: "First", At: at}))
	require.NoError(t, l.Record(ctx, Entry{Op: store.OpRemove, RecordID: 1, Title: "First", At: at.Add(time.Minute)}))

	entries, err := l.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, store.OpRemove, entries[0].Op, "newest first")
	assert.Equal(t, store.OpAdd, entries[1].Op)
	assert.True(t, at.Equal(entries[1].At))
	assert.Equal(t, "'First' deleted successfully!", entries[0].Message())
}

func TestRecentLimit(t *testing.T) {
	l := openTestLog(t)
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		require.NoError(t, l.Record(ctx, Entry{Op: store.OpTouch, RecordID: i}))
	}

	entries, err := l.Recent(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, entries, 2)
	assert.Equal(t, 4, entries[0].RecordID)
}

func TestPersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "h", "history.db")
	l, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, l.Record(context.Background(), Entry{Op: store.OpAdd, Title: "kept"}))
	require.NoError(t, l.Close())

	l2, err := Open(path)
	require.NoError(t, err)
	defer l2.Close()

	entries, err := l2.Recent(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "kept", entries[0].Title)
}

func TestSubscribeRecordsStoreChanges(t *testing.T) {
	l := openTestLog(t)
	s, err := store.Open(filepath.Join(t.TempDir(), "slides.json"))
	require.NoError(t, err)
	l.Subscribe(s)

	_, _, err = s.Append(slides.Draft{URL: "https://canva.com/design/x", Title: "Roadmap"})
	require.NoError(t, err)
	_, err = s.Touch(0)
	require.NoError(t, err)

	entries, err := l.Recent(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, store.OpTouch, entries[0].Op)
	assert.Equal(t, "Roadmap", entries[1].Title)
	assert.Equal(t, "https://canva.com/design/x", entries[1].URL)
	assert.Equal(t, "'Roadmap' uploaded successfully!", entries[1].Message())
}

func TestMessageForReload(t *testing.T) {
	e := Entry{Op: store.OpReload, Count: 4}
	assert.Equal(t, "reloaded 4 records changed by another session", e.Message())
}
