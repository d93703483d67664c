// Package poller notices edits another process made to the record document and
// reloads the store. Detection is mtime-based: a ticker on a fixed interval plus an
// optional fsnotify watch that triggers an early, debounced check.
//
// Delivery is best-effort. Two changes landing between checks are seen as one, and
// nothing is merged; the store simply adopts whatever the document holds.
package poller

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"padget/internal/logging"
	"padget/internal/store"
)

// Refresher is the store surface the poller drives.
type Refresher interface {
	Path() string
	ReloadIfChanged() (store.RefreshResult, error)
}

// Stats tracks poller activity.
type Stats struct {
	Checks      int       `json:"checks"`
	Reloads     int       `json:"reloads"`
	Identical   int       `json:"identical"`
	Skipped     int       `json:"skipped"`
	Errors      int       `json:"errors"`
	WatchEvents int       `json:"watch_events"`
	LastCheck   time.Time `json:"last_check"`
	LastReload  time.Time `json:"last_reload"`
	LastError   string    `json:"last_error,omitempty"`
}

// Option configures a Poller.
type Option func(*Poller)

// WithWatch enables the fsnotify watch with the given debounce.
func WithWatch(debounce time.Duration) Option {
	return func(p *Poller) {
		p.watch = true
		if debounce > 0 {
			p.debounce = debounce
		}
	}
}

// Poller periodically reconciles a store with its document.
type Poller struct {
	mu       sync.Mutex
	target   Refresher
	interval time.Duration
	watch    bool
	debounce time.Duration
	watcher  *fsnotify.Watcher
	stopCh   chan struct{}
	doneCh   chan struct{}
	running  bool
	stats    Stats
}

// New creates a poller checking target every interval.
func New(target Refresher, interval time.Duration, opts ...Option) *Poller {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	p := &Poller{
		target:   target,
		interval: interval,
		debounce: 250 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Start begins polling in a goroutine. It returns immediately.
// A watch that cannot be established degrades to ticker-only polling.
func (p *Poller) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.running {
		return nil
	}

	p.stopCh = make(chan struct{})
	p.doneCh = make(chan struct{})
	p.watcher = nil

	if p.watch {
		w, err := fsnotify.NewWatcher()
		if err != nil {
			logging.SyncWarn("Poller: watcher unavailable, polling only: %v", err)
		} else {
			// Watch the directory: atomic saves replace the file, which would
			// drop a watch placed on the file itself.
			dir := filepath.Dir(p.target.Path())
			if err := w.Add(dir); err != nil {
				logging.SyncWarn("Poller: cannot watch %s, polling only: %v", dir, err)
				_ = w.Close()
			} else {
				p.watcher = w
				logging.Sync("Poller: watching %s", dir)
			}
		}
	}

	p.running = true
	go p.run(ctx, p.watcher, p.stopCh, p.doneCh)
	logging.Sync("Poller: started, interval=%v watch=%v", p.interval, p.watcher != nil)
	return nil
}

// Stop halts polling and waits for the loop to exit.
func (p *Poller) Stop() {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return
	}
	p.running = false
	stopCh, doneCh, w := p.stopCh, p.doneCh, p.watcher
	p.mu.Unlock()

	close(stopCh)
	<-doneCh

	if w != nil {
		if err := w.Close(); err != nil {
			logging.SyncWarn("Poller: error closing watcher: %v", err)
		}
	}
	logging.Sync("Poller: stopped")
}

// Done is closed when the current run loop exits. It is nil before Start.
func (p *Poller) Done() <-chan struct{} {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.doneCh
}

func (p *Poller) run(ctx context.Context, w *fsnotify.Watcher, stopCh, doneCh chan struct{}) {
	defer close(doneCh)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	var (
		events   <-chan fsnotify.Event
		errs     <-chan error
		debounce *time.Timer
		fire     <-chan time.Time
	)
	if w != nil {
		events, errs = w.Events, w.Errors
	}
	defer func() {
		if debounce != nil {
			debounce.Stop()
		}
	}()

	base := filepath.Base(p.target.Path())

	for {
		select {
		case <-ctx.Done():
			return
		case <-stopCh:
			return

		case <-ticker.C:
			_, _ = p.CheckNow()

		case ev, ok := <-events:
			if !ok {
				events = nil
				continue
			}
			if filepath.Base(ev.Name) != base || !hasAny(ev.Op, relevantOps) {
				continue
			}
			logging.SyncDebug("Poller: %s %s", ev.Op, ev.Name)
			p.mu.Lock()
			p.stats.WatchEvents++
			p.mu.Unlock()
			if debounce == nil {
				debounce = time.NewTimer(p.debounce)
			} else {
				debounce.Reset(p.debounce)
			}
			fire = debounce.C

		case <-fire:
			fire = nil
			_, _ = p.CheckNow()

		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			p.recordError(err)
		}
	}
}

// Chmod is included because touching the mtime alone only raises an attribute event.
const relevantOps = fsnotify.Write | fsnotify.Create | fsnotify.Rename | fsnotify.Remove | fsnotify.Chmod

func hasAny(op, mask fsnotify.Op) bool { return op&mask != 0 }

// CheckNow runs one synchronous check against the document.
func (p *Poller) CheckNow() (store.RefreshResult, error) {
	res, err := p.target.ReloadIfChanged()

	p.mu.Lock()
	defer p.mu.Unlock()
	now := time.Now()
	p.stats.Checks++
	p.stats.LastCheck = now
	if err != nil {
		p.stats.Errors++
		p.stats.LastError = err.Error()
		if !errors.Is(err, store.ErrNotFound) {
			logging.SyncWarn("Poller: check failed: %v", err)
		}
		return res, err
	}
	switch res {
	case store.RefreshReloaded:
		p.stats.Reloads++
		p.stats.LastReload = now
	case store.RefreshIdentical:
		p.stats.Identical++
	case store.RefreshSkipped:
		p.stats.Skipped++
		logging.SyncDebug("Poller: save in flight, check skipped")
	}
	return res, nil
}

func (p *Poller) recordError(err error) {
	logging.SyncWarn("Poller: watcher error: %v", err)
	p.mu.Lock()
	p.stats.Errors++
	p.stats.LastError = err.Error()
	p.mu.Unlock()
}

// Stats returns a copy of the counters.
func (p *Poller) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stats
}

// Watching reports whether the fsnotify watch is active.
func (p *Poller) Watching() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running && p.watcher != nil
}
