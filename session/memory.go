package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/tbxark/formpilot/types"
)

type memoryEntry struct {
	data    []byte
	expires time.Time
}

type keyLock struct {
	mu   sync.Mutex
	refs int
}

// MemoryStore keeps encoded sessions in process. Records are copied on every
// read and write so callers never share state with the store.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	locks   map[string]*keyLock
	ttl     time.Duration
	now     func() time.Time
}

var _ Store = (*MemoryStore)(nil)

func NewMemoryStore(opts ...Option) *MemoryStore {
	o := newOptions(opts)
	return &MemoryStore{
		entries: map[string]memoryEntry{},
		locks:   map[string]*keyLock{},
		ttl:     o.ttl,
		now:     time.Now,
	}
}

// SetClock replaces the clock used for expiry.
func (m *MemoryStore) SetClock(now func() time.Time) {
	m.mu.Lock()
	m.now = now
	m.mu.Unlock()
}

func (m *MemoryStore) Get(ctx context.Context, id string) (*types.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.load(id)
}

func (m *MemoryStore) Set(ctx context.Context, id string, s *types.Session) error {
	data, err := encode(s)
	if err != nil {
		return err
	}
	m.mu.Lock()
	m.entries[Key(id)] = memoryEntry{data: data, expires: m.now().Add(m.ttl)}
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	delete(m.entries, Key(id))
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) Update(ctx context.Context, id string, fn UpdateFunc) (*types.Session, error) {
	unlock := m.lockKey(id)
	defer unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	current, err := m.load(id)
	m.mu.Unlock()
	if err != nil {
		return nil, err
	}

	next := current.Clone()
	if err := fn(next); err != nil {
		if errors.Is(err, ErrSkipWrite) {
			return current, nil
		}
		return nil, err
	}
	data, err := encode(next)
	if err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	// A Delete while fn ran ends the session; do not write it back.
	if _, ok := m.entries[Key(id)]; !ok {
		return nil, notFound(id)
	}
	m.entries[Key(id)] = memoryEntry{data: data, expires: m.now().Add(m.ttl)}
	return next.Clone(), nil
}

// Sweep drops expired records and reports how many were removed.
func (m *MemoryStore) Sweep() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()
	removed := 0
	for k, e := range m.entries {
		if !now.Before(e.expires) {
			delete(m.entries, k)
			removed++
		}
	}
	return removed
}

// RunSweeper calls Sweep every interval until ctx is done.
func (m *MemoryStore) RunSweeper(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.Sweep()
		}
	}
}

// load must be called with m.mu held.
func (m *MemoryStore) load(id string) (*types.Session, error) {
	key := Key(id)
	e, ok := m.entries[key]
	if !ok {
		return nil, notFound(id)
	}
	now := m.now()
	if !now.Before(e.expires) {
		delete(m.entries, key)
		return nil, notFound(id)
	}
	s, err := decode(id, e.data)
	if err != nil {
		return nil, err
	}
	e.expires = now.Add(m.ttl)
	m.entries[key] = e
	return s, nil
}

func (m *MemoryStore) lockKey(id string) func() {
	m.mu.Lock()
	l, ok := m.locks[id]
	if !ok {
		l = &keyLock{}
		m.locks[id] = l
	}
	l.refs++
	m.mu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		m.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(m.locks, id)
		}
		m.mu.Unlock()
	}
}
