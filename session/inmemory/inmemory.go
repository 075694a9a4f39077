package inmemory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mohammad-safakhou/sparkadvisor/session"
)

// Store keeps sessions in a map and evicts those idle longer than ttl.
type Store struct {
	sessions map[string]*session.Session
	ttl      time.Duration
	now      func() time.Time
	mu       sync.RWMutex
}

func NewInMemorySessionStore(ttl time.Duration) *Store {
	return &Store{sessions: make(map[string]*session.Session), ttl: ttl, now: time.Now}
}

func (store *Store) Ensure(_ context.Context, id string) (*session.Session, error) {
	store.mu.Lock()
	defer store.mu.Unlock()
	if id != "" {
		if sess, ok := store.sessions[id]; ok && !store.expired(sess) {
			return sess.Clone(), nil
		}
	} else {
		id = uuid.NewString()
	}
	sess := session.New(id, store.now())
	store.sessions[id] = sess
	return sess.Clone(), nil
}

func (store *Store) Get(_ context.Context, id string) (*session.Session, error) {
	store.mu.RLock()
	defer store.mu.RUnlock()
	sess, ok := store.sessions[id]
	if !ok || store.expired(sess) {
		return nil, session.ErrNotFound
	}
	return sess.Clone(), nil
}

func (store *Store) Save(_ context.Context, s *session.Session) error {
	store.mu.Lock()
	defer store.mu.Unlock()
	store.sessions[s.ID] = s.Clone()
	return nil
}

func (store *Store) Cleanup(_ context.Context) (int, error) {
	store.mu.Lock()
	defer store.mu.Unlock()
	n := 0
	for id, sess := range store.sessions {
		if store.expired(sess) {
			delete(store.sessions, id)
			n++
		}
	}
	return n, nil
}

// Len reports the number of stored sessions, expired ones included.
func (store *Store) Len() int {
	store.mu.RLock()
	defer store.mu.RUnlock()
	return len(store.sessions)
}

func (store *Store) expired(s *session.Session) bool {
	return store.ttl > 0 && store.now().Sub(s.LastUpdated) > store.ttl
}
