package cache

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/dad1755/ktransport/internal/domain"
)

// MemoryCache is the single-process session store. Sessions are stored as
// JSON so callers never share a FormState with the store.
type MemoryCache struct {
	mu         sync.Mutex
	sessions   map[string]memoryEntry
	places     *memoryEntry
	locks      map[string]*sessionLock
	sessionTTL time.Duration
	placesTTL  time.Duration
	now        func() time.Time
}

type memoryEntry struct {
	data      []byte
	expiresAt time.Time
}

// sessionLock is held by one request at a time; refs counts holders and waiters.
type sessionLock struct {
	ch   chan struct{}
	refs int
}

func NewMemoryCache(sessionTTL, placesTTL time.Duration) *MemoryCache {
	return &MemoryCache{
		sessions:   make(map[string]memoryEntry),
		locks:      make(map[string]*sessionLock),
		sessionTTL: sessionTTL,
		placesTTL:  placesTTL,
		now:        time.Now,
	}
}

func (c *MemoryCache) GetSession(_ context.Context, id string) (*domain.Session, error) {
	c.mu.Lock()
	entry, ok := c.sessions[id]
	if ok && c.expired(entry) {
		delete(c.sessions, id)
		ok = false
	}
	c.mu.Unlock()
	if !ok {
		return nil, nil
	}

	var session domain.Session
	if err := json.Unmarshal(entry.data, &session); err != nil {
		return nil, err
	}
	return &session, nil
}

func (c *MemoryCache) SaveSession(_ context.Context, session *domain.Session) error {
	data, err := json.Marshal(session)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.sessions[session.ID] = memoryEntry{data: data, expiresAt: c.deadline(c.sessionTTL)}
	c.sweep()
	return nil
}

func (c *MemoryCache) DeleteSession(_ context.Context, id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.sessions, id)
	return nil
}

// LockSession blocks until no other caller holds id or ctx is done.
func (c *MemoryCache) LockSession(ctx context.Context, id string) (func(), error) {
	c.mu.Lock()
	l, ok := c.locks[id]
	if !ok {
		l = &sessionLock{ch: make(chan struct{}, 1)}
		c.locks[id] = l
	}
	l.refs++
	c.mu.Unlock()

	select {
	case l.ch <- struct{}{}:
	case <-ctx.Done():
		c.dropLock(id, l)
		return nil, ctx.Err()
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			<-l.ch
			c.dropLock(id, l)
		})
	}, nil
}

func (c *MemoryCache) dropLock(id string, l *sessionLock) {
	c.mu.Lock()
	defer c.mu.Unlock()
	l.refs--
	if l.refs == 0 {
		delete(c.locks, id)
	}
}

func (c *MemoryCache) GetPlaces(_ context.Context) (*domain.Places, error) {
	c.mu.Lock()
	entry := c.places
	if entry != nil && c.expired(*entry) {
		c.places = nil
		entry = nil
	}
	c.mu.Unlock()
	if entry == nil {
		return nil, nil
	}

	var places domain.Places
	if err := json.Unmarshal(entry.data, &places); err != nil {
		return nil, err
	}
	return &places, nil
}

func (c *MemoryCache) SetPlaces(_ context.Context, places domain.Places) error {
	data, err := json.Marshal(places)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.places = &memoryEntry{data: data, expiresAt: c.deadline(c.placesTTL)}
	return nil
}

func (c *MemoryCache) deadline(ttl time.Duration) time.Time {
	if ttl <= 0 {
		return time.Time{}
	}
	return c.now().Add(ttl)
}

func (c *MemoryCache) expired(e memoryEntry) bool {
	return !e.expiresAt.IsZero() && !c.now().Before(e.expiresAt)
}

// sweep drops expired sessions; callers hold mu.
func (c *MemoryCache) sweep() {
	for id, entry := range c.sessions {
		if c.expired(entry) {
			delete(c.sessions, id)
		}
	}
}
