package poller

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"padget/internal/slides"
	"padget/internal/store"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m,
		goleak.IgnoreAnyFunction("github.com/fsnotify/fsnotify.(*inotify).readEvents"),
		goleak.IgnoreAnyFunction("github.com/fsnotify/fsnotify.(*Watcher).readEvents"),
	)
}

type fakeRefresher struct {
	mu      sync.Mutex
	calls   int
	results []store.RefreshResult
	err     error
}

func (f *fakeRefresher) Path() string { return filepath.Join(os.TempDir(), "padget-fake.json") }

func (f *fakeRefresher) ReloadIfChanged() (store.RefreshResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return store.RefreshUnchanged, f.err
	}
	if len(f.results) == 0 {
		return store.RefreshUnchanged, nil
	}
	res := f.results[0]
	f.results = f.results[1:]
	return res, nil
}

func (f *fakeRefresher) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func TestCheckNow_CountsOutcomes(t *testing.T) {
	f := &fakeRefresher{results: []store.RefreshResult{
		store.RefreshReloaded, store.RefreshSkipped, store.RefreshIdentical, store.RefreshUnchanged,
	}}
	p := New(f, time.Hour)

	for i := 0; i < 4; i++ {
		_, err := p.CheckNow()
		require.NoError(t, err)
	}

	st := p.Stats()
	assert.Equal(t, 4, st.Checks)
	assert.Equal(t, 1, st.Reloads)
	assert.Equal(t, 1, st.Skipped)
	assert.Equal(t, 1, st.Identical)
	assert.False(t, st.LastReload.IsZero())
}

func TestCheckNow_Error(t *testing.T) {
	f := &fakeRefresher{err: errors.New("disk on fire")}
	p := New(f, time.Hour)

	_, err := p.CheckNow()
	require.Error(t, err)
	assert.Equal(t, 1, p.Stats().Errors)
	assert.Equal(t, "disk on fire", p.Stats().LastError)
}

func TestTickerPolls(t *testing.T) {
	f := &fakeRefresher{}
	p := New(f, 10*time.Millisecond)

	require.NoError(t, p.Start(context.Background()))
	require.Eventually(t, func() bool { return f.Calls() >= 3 }, 2*time.Second, 5*time.Millisecond)
	p.Stop()

	calls := f.Calls()
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, calls, f.Calls(), "no checks after Stop")
}

func TestStartIsIdempotentAndStopWithoutStart(t *testing.T) {
	p := New(&fakeRefresher{}, time.Hour)
	p.Stop()

	require.NoError(t, p.Start(context.Background()))
	require.NoError(t, p.Start(context.Background()))
	p.Stop()
	p.Stop()
}

func TestContextCancelEndsLoop(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	p := New(&fakeRefresher{}, time.Hour)
	require.NoError(t, p.Start(ctx))

	cancel()
	select {
	case <-p.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("loop did not exit on context cancel")
	}
	p.Stop()
}

func TestPollerReloadsStoreAfterExternalWrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "slides.json")
	local, err := store.Open(path)
	require.NoError(t, err)
	_, _, err = local.Append(slides.Draft{URL: "https://a.example", Title: "A"})
	require.NoError(t, err)

	p := New(local, time.Hour, WithWatch(10*time.Millisecond))
	require.NoError(t, p.Start(context.Background()))
	defer p.Stop()
	assert.True(t, p.Watching())

	remote, err := store.Open(path)
	require.NoError(t, err)
	_, _, err = remote.Append(slides.Draft{URL: "https://b.example", Title: "B"})
	require.NoError(t, err)

	// Guarantee a strictly newer mtime on coarse-timestamp filesystems.
	info, err := os.Stat(path)
	require.NoError(t, err)
	mt := info.ModTime().Add(time.Second)
	require.NoError(t, os.Chtimes(path, mt, mt))

	require.Eventually(t, func() bool { return local.Len() == 2 }, 3*time.Second, 10*time.Millisecond)
	assert.GreaterOrEqual(t, p.Stats().Reloads, 1)
	assert.Positive(t, p.Stats().WatchEvents)
}

func TestPollerWithoutWatchUsesTicker(t *testing.T) {
	path := filepath.Join(t.TempDir(), "slides.json")
	local, err := store.Open(path)
	require.NoError(t, err)

	p := New(local, 20*time.Millisecond)
	require.NoError(t, p.Start(context.Background()))
	defer p.Stop()
	assert.False(t, p.Watching())

	remote, err := store.Open(path)
	require.NoError(t, err)
	_, _, err = remote.Append(slides.Draft{URL: "https://docs.google.com/presentation/d/z/edit"})
	require.NoError(t, err)

	require.Eventually(t, func() bool { return local.Len() == 1 }, 3*time.Second, 10*time.Millisecond)
}
