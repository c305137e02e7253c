package persist

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/router-for-me/FRPPanel/internal/store"
	log "github.com/sirupsen/logrus"
)

// DefaultSaveInterval is used when no interval is configured.
const DefaultSaveInterval = 5 * time.Second

// Options tune the persistence loop.
type Options struct {
	Interval     time.Duration // Periodic save interval.
	WriteThrough bool          // Save right after mutations, coalescing bursts.
}

// Manager keeps a record store durable by saving snapshots through a Backend.
type Manager struct {
	store   *store.Store
	backend Backend
	opts    Options

	dirty  atomic.Bool
	signal chan struct{}
	// fenced is set while a snapshot that could not be read may still exist in the
	// backend. Saves must not overwrite it.
	fenced atomic.Bool

	saveMu sync.Mutex

	mu      sync.Mutex
	cancel  context.CancelFunc
	done    chan struct{}
	closed  bool
	started bool
}

// NewManager wires a Manager to s and registers it as the store's change hook.
func NewManager(s *store.Store, backend Backend, opts Options) *Manager {
	if opts.Interval <= 0 {
		opts.Interval = DefaultSaveInterval
	}
	m := &Manager{
		store:   s,
		backend: backend,
		opts:    opts,
		signal:  make(chan struct{}, 1),
	}
	s.OnChange(m.markDirty)
	return m
}

func (m *Manager) markDirty() {
	m.dirty.Store(true)
	if !m.opts.WriteThrough {
		return
	}
	select {
	case m.signal <- struct{}{}:
	default:
	}
}

// Dirty reports whether there are unsaved mutations.
func (m *Manager) Dirty() bool {
	return m.dirty.Load()
}

// Load restores the store from the backend.
// A missing snapshot leaves the store empty. A snapshot that cannot be decoded is
// logged, set aside when the backend supports it, and the store starts empty.
// When the backend cannot be read at all the store also starts empty, and the manager
// stays fenced until the old snapshot is gone or set aside (see Save).
func (m *Manager) Load(ctx context.Context) error {
	data, errLoad := m.backend.Load(ctx)
	if errors.Is(errLoad, ErrNoSnapshot) {
		log.Info("persist: no snapshot found, starting with an empty store")
		return nil
	}
	if errLoad != nil {
		perr := &PersistenceError{Op: "load", Err: errLoad}
		log.WithError(perr).Error("persist: snapshot could not be read, starting with an empty store")
		m.fenced.Store(true)
		return nil
	}

	snap, errDecode := Decode(data)
	if errDecode == nil {
		errDecode = m.store.Import(snap)
	}
	if errDecode != nil {
		perr := &PersistenceError{Op: "decode", Err: errDecode}
		log.WithError(perr).Error("persist: snapshot is unreadable, starting with an empty store")
		if q, ok := m.backend.(Quarantiner); ok {
			moved, errQuarantine := q.Quarantine(ctx)
			if errQuarantine != nil {
				log.WithError(errQuarantine).Warn("persist: failed to set unreadable snapshot aside")
			} else {
				log.Warnf("persist: unreadable snapshot moved to %s", moved)
			}
		}
		return nil
	}

	m.dirty.Store(false)
	log.Infof("persist: restored %d users, %d ports, %d traffic samples, %d announcements",
		len(snap.Users), len(snap.Ports), len(snap.Traffic), len(snap.Announcements))
	return nil
}

// Fenced reports whether saves are held back to protect a snapshot that was never loaded.
func (m *Manager) Fenced() bool {
	return m.fenced.Load()
}

// Save writes the current store contents to the backend.
// While fenced it first makes sure the unread snapshot is absent or set aside, and
// fails without writing when neither holds.
func (m *Manager) Save(ctx context.Context) error {
	m.saveMu.Lock()
	defer m.saveMu.Unlock()

	if m.fenced.Load() {
		if errLift := m.liftFence(ctx); errLift != nil {
			return errLift
		}
	}

	m.dirty.Store(false)
	data, errEncode := Encode(m.store.Export())
	if errEncode != nil {
		m.dirty.Store(true)
		return &PersistenceError{Op: "save", Err: errEncode}
	}
	if errSave := m.backend.Save(ctx, data); errSave != nil {
		m.dirty.Store(true)
		return &PersistenceError{Op: "save", Err: errSave}
	}
	return nil
}

func (m *Manager) liftFence(ctx context.Context) error {
	_, errLoad := m.backend.Load(ctx)
	if errors.Is(errLoad, ErrNoSnapshot) {
		m.fenced.Store(false)
		return nil
	}
	q, ok := m.backend.(Quarantiner)
	if !ok {
		if errLoad == nil {
			errLoad = errors.New("an existing snapshot was not loaded, restart to restore it")
		}
		return &PersistenceError{Op: "save", Err: errLoad}
	}
	moved, errQuarantine := q.Quarantine(ctx)
	if errQuarantine != nil {
		return &PersistenceError{Op: "quarantine", Err: errQuarantine}
	}
	log.Warnf("persist: snapshot that was not loaded moved to %s", moved)
	m.fenced.Store(false)
	return nil
}

// Start launches the background save loop. It is a no-op when already started.
func (m *Manager) Start(ctx context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.started || m.closed {
		return
	}
	m.started = true
	loopCtx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	m.done = make(chan struct{})
	go m.run(loopCtx)
}

func (m *Manager) run(ctx context.Context) {
	defer close(m.done)
	ticker := time.NewTicker(m.opts.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.saveIfDirty(ctx)
		case <-m.signal:
			m.saveIfDirty(ctx)
		}
	}
}

func (m *Manager) saveIfDirty(ctx context.Context) {
	if !m.dirty.Load() {
		return
	}
	if err := m.Save(ctx); err != nil {
		log.WithError(err).Warn("persist: snapshot save failed, retrying on next tick")
	}
}

// Close stops the save loop and flushes pending mutations.
func (m *Manager) Close(ctx context.Context) error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	cancel, done := m.cancel, m.done
	m.mu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}
	if !m.dirty.Load() {
		return nil
	}
	return m.Save(ctx)
}
