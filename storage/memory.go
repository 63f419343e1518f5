package storage

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/minus-twelve/construct/types"
)

// Observer receives store events. Calls happen after the store lock is
// released and must not block.
type Observer interface {
	SessionCreated()
	SessionsEvicted(n int)
	SessionsPruned(n int)
}

type Option func(*MemoryStore)

// WithClock replaces time.Now as the store's time source.
func WithClock(now func() time.Time) Option {
	return func(s *MemoryStore) {
		if now != nil {
			s.now = now
		}
	}
}

// WithTokenGenerator replaces the random UUID generator used for tokens.
func WithTokenGenerator(gen func() string) Option {
	return func(s *MemoryStore) {
		if gen != nil {
			s.newToken = gen
		}
	}
}

func WithObserver(o Observer) Option {
	return func(s *MemoryStore) {
		s.observer = o
	}
}

// WithSlidingRefresh makes a successful RefreshSession push the token's
// expiration to now plus the maximum duration.
func WithSlidingRefresh(enabled bool) Option {
	return func(s *MemoryStore) {
		s.sliding = enabled
	}
}

// MemoryStore keeps, per identifier, a creation-ordered list of session
// entries. The list never grows past maxSessions; expired entries are only
// removed when a lookup touches the identifier.
type MemoryStore struct {
	sessions    map[string][]types.SessionEntry
	owners      map[string]string
	mutex       sync.Mutex
	maxSessions int
	maxDuration time.Duration
	sliding     bool
	now         func() time.Time
	newToken    func() string
	observer    Observer
}

func NewMemoryStore(maxSessions int, maxDuration time.Duration, opts ...Option) *MemoryStore {
	if maxSessions < 0 {
		maxSessions = 0
	}
	if maxDuration < 0 {
		maxDuration = 0
	}

	s := &MemoryStore{
		sessions:    make(map[string][]types.SessionEntry),
		owners:      make(map[string]string),
		maxSessions: maxSessions,
		maxDuration: maxDuration,
		now:         time.Now,
		newToken:    uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

var (
	defaultStore *MemoryStore
	defaultOnce  sync.Once
)

// Default returns the process-wide store. It is built from cfg on the first
// call; later calls return the same instance and ignore cfg.
func Default(cfg types.MemoryConfig) *MemoryStore {
	defaultOnce.Do(func() {
		defaultStore = NewMemoryStore(cfg.MaxSessions, cfg.Duration(), WithSlidingRefresh(cfg.SlidingRefresh))
	})
	return defaultStore
}

func (s *MemoryStore) MaxSessions() int {
	return s.maxSessions
}

func (s *MemoryStore) MaxSessionDuration() time.Duration {
	return s.maxDuration
}

// CreateSession issues a new token for identifier and evicts the oldest
// entries until the identifier is back within its limit. With a limit of
// zero the returned token is evicted immediately and never validates.
func (s *MemoryStore) CreateSession(identifier string) string {
	token := s.newToken()

	s.mutex.Lock()
	entries := append(s.sessions[identifier], types.SessionEntry{
		Token:     token,
		ExpiresAt: s.now().Add(s.maxDuration),
	})
	s.owners[token] = identifier

	evicted := 0
	for len(entries) > s.maxSessions {
		delete(s.owners, entries[0].Token)
		entries = entries[1:]
		evicted++
	}
	s.store(identifier, entries)
	s.mutex.Unlock()

	if s.observer != nil {
		s.observer.SessionCreated()
		if evicted > 0 {
			s.observer.SessionsEvicted(evicted)
		}
	}
	return token
}

// GetIdentifier returns the identifier owning token. The owner's expired
// entries are pruned first, so a token that just expired is reported as
// not found.
func (s *MemoryStore) GetIdentifier(token string) (string, bool) {
	s.mutex.Lock()
	identifier, found, pruned := s.lookup(token)
	s.mutex.Unlock()

	s.notifyPruned(pruned)
	return identifier, found
}

func (s *MemoryStore) SessionValid(token string) bool {
	_, found := s.GetIdentifier(token)
	return found
}

// RefreshSession reports whether token is valid. Unless sliding refresh is
// enabled the expiration time is left untouched.
func (s *MemoryStore) RefreshSession(token string) bool {
	if !s.sliding {
		return s.SessionValid(token)
	}

	s.mutex.Lock()
	identifier, found, pruned := s.lookup(token)
	if found {
		entries := s.sessions[identifier]
		for i, entry := range entries {
			if entry.Token != token {
				continue
			}
			// Moving the entry to the back keeps expired entries a prefix.
			entries = append(entries[:i:i], entries[i+1:]...)
			entry.ExpiresAt = s.now().Add(s.maxDuration)
			entries = append(entries, entry)
			break
		}
		s.sessions[identifier] = entries
	}
	s.mutex.Unlock()

	s.notifyPruned(pruned)
	return found
}

// Revoke removes token. It reports whether the token was stored.
func (s *MemoryStore) Revoke(token string) bool {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	identifier, ok := s.owners[token]
	if !ok {
		return false
	}
	delete(s.owners, token)

	entries := s.sessions[identifier]
	for i, entry := range entries {
		if entry.Token == token {
			entries = append(entries[:i:i], entries[i+1:]...)
			break
		}
	}
	s.store(identifier, entries)
	return true
}

// Count returns the number of stored entries for identifier, expired or not.
func (s *MemoryStore) Count(identifier string) int {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return len(s.sessions[identifier])
}

// lookup must be called with the mutex held.
func (s *MemoryStore) lookup(token string) (identifier string, found bool, pruned int) {
	identifier, ok := s.owners[token]
	if !ok {
		return "", false, 0
	}

	now := s.now()
	entries := s.sessions[identifier]
	for len(entries) > 0 && entries[0].Expired(now) {
		delete(s.owners, entries[0].Token)
		entries = entries[1:]
		pruned++
	}
	s.store(identifier, entries)

	if _, ok := s.owners[token]; !ok {
		return "", false, pruned
	}
	return identifier, true, pruned
}

func (s *MemoryStore) store(identifier string, entries []types.SessionEntry) {
	if len(entries) == 0 {
		delete(s.sessions, identifier)
		return
	}
	s.sessions[identifier] = entries
}

func (s *MemoryStore) notifyPruned(n int) {
	if s.observer != nil && n > 0 {
		s.observer.SessionsPruned(n)
	}
}
