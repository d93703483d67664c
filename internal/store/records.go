// Package store keeps the ordered list of presentation records and mirrors it to a
// single JSON document. Every mutation rewrites the whole document.
//
// Records are addressed by list position. Across processes the last save wins;
// there is no merge.
package store

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"padget/internal/logging"
	"padget/internal/slides"
)

// Clock is injectable so tests get stable timestamps.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// Op names the kind of change delivered to listeners.
type Op string

const (
	OpAdd    Op = "add"
	OpUpdate Op = "update"
	OpTouch  Op = "touch"
	OpRemove Op = "remove"
	OpReload Op = "reload"
)

// Change describes one applied mutation. Index is -1 for reloads.
type Change struct {
	Op     Op            `json:"op"`
	Index  int           `json:"index"`
	Record slides.Record `json:"record"`
	Count  int           `json:"count"`
	At     time.Time     `json:"at"`
}

// RefreshResult is the outcome of ReloadIfChanged.
type RefreshResult int

const (
	RefreshUnchanged RefreshResult = iota // mtime not newer
	RefreshSkipped                        // a local save was in flight
	RefreshIdentical                      // newer file, same content
	RefreshReloaded                       // in-memory list replaced
)

func (r RefreshResult) String() string {
	switch r {
	case RefreshSkipped:
		return "skipped"
	case RefreshIdentical:
		return "identical"
	case RefreshReloaded:
		return "reloaded"
	}
	return "unchanged"
}

// Option configures a Store.
type Option func(*Store)

// WithClock overrides the time source.
func WithClock(c Clock) Option {
	return func(s *Store) { s.clock = c }
}

// WithFileLock toggles the advisory lock file taken around saves.
func WithFileLock(enabled bool) Option {
	return func(s *Store) { s.lock = enabled }
}

// Store is the in-memory record list plus its backing document.
type Store struct {
	mu        sync.RWMutex
	path      string
	records   []slides.Record
	lastMod   time.Time
	saving    atomic.Bool
	clock     Clock
	lock      bool
	listeners []func(Change)
	listenMu  sync.RWMutex
}

// New builds a store for path without touching the disk.
func New(path string, opts ...Option) *Store {
	s := &Store{
		path:    path,
		records: []slides.Record{},
		clock:   systemClock{},
		lock:    true,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Open builds a store and loads the document. A missing document is an empty
// store; an unreadable or malformed one is reported.
func Open(path string, opts ...Option) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, &Error{Kind: KindIO, Op: "open", Path: path, Err: err}
	}
	s := New(path, opts...)
	if err := s.Load(); err != nil && !errors.Is(err, ErrNotFound) {
		return nil, err
	}
	return s, nil
}

// Path returns the document location.
func (s *Store) Path() string { return s.path }

// OnChange registers a listener called after every applied change.
// Listeners run on the mutating goroutine, outside the store lock.
func (s *Store) OnChange(fn func(Change)) {
	s.listenMu.Lock()
	defer s.listenMu.Unlock()
	s.listeners = append(s.listeners, fn)
}

func (s *Store) notify(c Change) {
	s.listenMu.RLock()
	fns := slices.Clone(s.listeners)
	s.listenMu.RUnlock()
	for _, fn := range fns {
		fn(c)
	}
}

// readDocument reads and decodes the document along with its mtime.
func (s *Store) readDocument() ([]slides.Record, time.Time, error) {
	info, err := os.Stat(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, time.Time{}, &Error{Kind: KindNotFound, Op: "load", Path: s.path, Err: err}
		}
		return nil, time.Time{}, &Error{Kind: KindIO, Op: "load", Path: s.path, Err: err}
	}

	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, time.Time{}, &Error{Kind: KindNotFound, Op: "load", Path: s.path, Err: err}
		}
		return nil, time.Time{}, &Error{Kind: KindIO, Op: "load", Path: s.path, Err: err}
	}

	var records []slides.Record
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, info.ModTime(), &Error{Kind: KindParse, Op: "load", Path: s.path, Err: err}
	}
	if records == nil {
		records = []slides.Record{}
	}
	return records, info.ModTime(), nil
}

// Load replaces the in-memory list with the document's content. On any failure the
// list is reset to empty and the failure is returned as an *Error.
func (s *Store) Load() error {
	timer := logging.StartTimer(logging.CategoryStore, "Load")
	defer timer.Stop()

	s.mu.Lock()
	defer s.mu.Unlock()

	records, mod, err := s.readDocument()
	s.lastMod = mod
	if err != nil {
		s.records = []slides.Record{}
		if errors.Is(err, ErrNotFound) {
			logging.StoreDebug("No document at %s, starting empty", s.path)
		} else {
			logging.StoreWarn("Load failed, list reset to empty: %v", err)
		}
		return err
	}
	s.records = records
	logging.StoreDebug("Loaded %d records from %s", len(records), s.path)
	return nil
}

// Reload re-reads the document regardless of its mtime. Unlike Load, a read or
// parse failure keeps the current list so a later save cannot replace a damaged
// document with an empty one. A missing document is an empty list. It reports
// whether the list changed.
func (s *Store) Reload() (bool, error) {
	s.mu.Lock()
	records, mod, err := s.readDocument()
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			s.mu.Unlock()
			logging.StoreWarn("Reload failed, keeping %d records: %v", len(s.records), err)
			return false, err
		}
		records = []slides.Record{}
	}
	s.lastMod = mod
	if slices.Equal(records, s.records) {
		s.mu.Unlock()
		return false, nil
	}
	s.records = records
	count := len(records)
	s.mu.Unlock()

	logging.Store("Reloaded %d records from %s", count, s.path)
	s.notify(Change{Op: OpReload, Index: -1, Count: count, At: s.clock.Now()})
	return true, nil
}

func encode(records []slides.Record) ([]byte, error) {
	if records == nil {
		records = []slides.Record{}
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(records); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Save writes the full list to the document.
func (s *Store) Save() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saveLocked()
}

// saveLocked requires s.mu to be held.
func (s *Store) saveLocked() error {
	s.saving.Store(true)
	defer s.saving.Store(false)

	data, err := encode(s.records)
	if err != nil {
		return &Error{Kind: KindIO, Op: "save", Path: s.path, Err: err}
	}

	if s.lock {
		unlock, err := lockFile(s.path + ".lock")
		if err != nil {
			return &Error{Kind: KindIO, Op: "save", Path: s.path, Err: err}
		}
		defer func() { _ = unlock() }()
	}

	if err := writeFileAtomic(s.path, data, 0o644); err != nil {
		logging.Get(logging.CategoryStore).Error("Save failed: %s: %v", s.path, err)
		return &Error{Kind: KindIO, Op: "save", Path: s.path, Err: err}
	}

	if info, err := os.Stat(s.path); err == nil {
		s.lastMod = info.ModTime()
	}
	logging.StoreDebug("Saved %d records to %s", len(s.records), s.path)
	return nil
}

// mutate applies fn to the list and saves. The list is restored when the save
// fails so memory never runs ahead of the document. It returns the index fn chose,
// read while the lock was held.
func (s *Store) mutate(op Op, fn func() (int, slides.Record, error)) (int, slides.Record, error) {
	s.mu.Lock()
	prev := slices.Clone(s.records)
	index, rec, err := fn()
	if err != nil {
		s.mu.Unlock()
		return -1, slides.Record{}, err
	}
	if err := s.saveLocked(); err != nil {
		s.records = prev
		s.mu.Unlock()
		return -1, slides.Record{}, err
	}
	count := len(s.records)
	s.mu.Unlock()

	logging.Store("%s index=%d id=%d title=%q", op, index, rec.ID, rec.Title)
	s.notify(Change{Op: op, Index: index, Record: rec, Count: count, At: s.clock.Now()})
	return index, rec, nil
}

// nextID is one past the largest ID in use. Unlike count+1 it cannot collide
// with a surviving record after a deletion.
func (s *Store) nextID() int {
	maxID := 0
	for _, r := range s.records {
		if r.ID > maxID {
			maxID = r.ID
		}
	}
	return maxID + 1
}

// Append adds a new record built from draft and returns its position.
func (s *Store) Append(d slides.Draft) (int, slides.Record, error) {
	return s.mutate(OpAdd, func() (int, slides.Record, error) {
		rec, err := slides.NewRecord(d, s.nextID(), s.clock.Now())
		if err != nil {
			return 0, slides.Record{}, err
		}
		s.records = append(s.records, rec)
		return len(s.records) - 1, rec, nil
	})
}

// UpdateFields sets several editable fields on the record at index with a single
// save. Fields apply in name order; if any is rejected nothing changes.
func (s *Store) UpdateFields(index int, fields map[string]string) (slides.Record, error) {
	if len(fields) == 0 {
		return slides.Record{}, ErrNoFields
	}
	names := slices.Sorted(maps.Keys(fields))

	_, rec, err := s.mutate(OpUpdate, func() (int, slides.Record, error) {
		if index < 0 || index >= len(s.records) {
			return 0, slides.Record{}, indexError(index, len(s.records))
		}
		rec := s.records[index]
		now := s.clock.Now()
		for _, name := range names {
			if err := rec.SetField(name, fields[name], now); err != nil {
				return 0, slides.Record{}, err
			}
		}
		s.records[index] = rec
		return index, rec, nil
	})
	return rec, err
}

// UpdateField sets one editable field on the record at index.
func (s *Store) UpdateField(index int, field, value string) (slides.Record, error) {
	return s.UpdateFields(index, map[string]string{field: value})
}

// Edit replaces title and description together, the way the edit form submits them.
func (s *Store) Edit(index int, title, description string) (slides.Record, error) {
	return s.UpdateFields(index, map[string]string{"title": title, "description": description})
}

// Touch bumps the last-modified timestamp of the record at index.
func (s *Store) Touch(index int) (slides.Record, error) {
	_, rec, err := s.mutate(OpTouch, func() (int, slides.Record, error) {
		if index < 0 || index >= len(s.records) {
			return 0, slides.Record{}, indexError(index, len(s.records))
		}
		s.records[index].Touch(s.clock.Now())
		return index, s.records[index], nil
	})
	return rec, err
}

// RemoveAt deletes the record at index; later records shift down by one.
func (s *Store) RemoveAt(index int) (slides.Record, error) {
	_, rec, err := s.mutate(OpRemove, func() (int, slides.Record, error) {
		if index < 0 || index >= len(s.records) {
			return 0, slides.Record{}, indexError(index, len(s.records))
		}
		rec := s.records[index]
		s.records = slices.Delete(s.records, index, index+1)
		return index, rec, nil
	})
	return rec, err
}

// List returns a copy of all records in order.
func (s *Store) List() []slides.Record {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.records)
}

// Len returns the number of records.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

// Get returns the record at index.
func (s *Store) Get(index int) (slides.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if index < 0 || index >= len(s.records) {
		return slides.Record{}, indexError(index, len(s.records))
	}
	return s.records[index], nil
}

// Stats returns the dashboard counters.
func (s *Store) Stats() slides.Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slides.ComputeStats(s.records)
}

// Saving reports whether a save is in flight.
func (s *Store) Saving() bool { return s.saving.Load() }

// LastObserved is the document mtime seen by the last load, save or refresh.
func (s *Store) LastObserved() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastMod
}

// ReloadIfChanged re-reads the document when its mtime is newer than the last
// observed value and no local save is in flight. The list is replaced only when
// the content differs. A read failure keeps the current list and leaves the
// observed mtime alone so the next call retries.
func (s *Store) ReloadIfChanged() (RefreshResult, error) {
	if s.saving.Load() {
		return RefreshSkipped, nil
	}

	s.mu.Lock()
	info, err := os.Stat(s.path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			s.mu.Unlock()
			return RefreshUnchanged, &Error{Kind: KindIO, Op: "refresh", Path: s.path, Err: err}
		}
		// Deleted out from under us: an empty document, once.
		if s.lastMod.IsZero() {
			s.mu.Unlock()
			return RefreshUnchanged, nil
		}
		s.lastMod = time.Time{}
		if len(s.records) == 0 {
			s.mu.Unlock()
			return RefreshIdentical, nil
		}
		s.records = []slides.Record{}
		s.mu.Unlock()
		logging.SyncWarn("Document %s disappeared, list cleared", s.path)
		s.notify(Change{Op: OpReload, Index: -1, Count: 0, At: s.clock.Now()})
		return RefreshReloaded, nil
	}

	if !info.ModTime().After(s.lastMod) {
		s.mu.Unlock()
		return RefreshUnchanged, nil
	}

	records, mod, err := s.readDocument()
	if err != nil {
		s.mu.Unlock()
		return RefreshUnchanged, err
	}
	s.lastMod = mod
	if slices.Equal(records, s.records) {
		s.mu.Unlock()
		return RefreshIdentical, nil
	}
	s.records = records
	count := len(records)
	s.mu.Unlock()

	logging.Sync("Reloaded %d records after external change to %s", count, s.path)
	s.notify(Change{Op: OpReload, Index: -1, Count: count, At: s.clock.Now()})
	return RefreshReloaded, nil
}

func (s *Store) String() string {
	return fmt.Sprintf("store(%s, %d records)", s.path, s.Len())
}
