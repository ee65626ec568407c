// Package session holds in-flight conversation state. The memory store is
// the small-deployment default; anything implementing intake.SessionStore
// (an external cache, say) can replace it.
package session

import (
	"sync"
	"time"

	"github.com/storestorm/intake/pkg/intake"
)

// MemoryStore keeps sessions in a process-local map. Keys are namespaced
// per channel so a caller's phone session never collides with their chat
// session. Process restart loses all in-flight sessions.
type MemoryStore struct {
	mu       sync.Mutex
	sessions map[string]*intake.Session
	clock    func() time.Time

	// TTL bounds session idle time when positive; zero disables expiry,
	// matching the reference behavior where abandoned sessions live until
	// restart.
	TTL time.Duration
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sessions: make(map[string]*intake.Session),
		clock:    time.Now,
	}
}

// SetClock overrides the wall clock, for expiry tests.
func (s *MemoryStore) SetClock(clock func() time.Time) {
	if clock != nil {
		s.clock = clock
	}
}

// GetOrCreate returns the session for (channel, key), creating it under
// the lock so concurrent webhook deliveries observe exactly one session.
// The second return reports whether the session was just created.
func (s *MemoryStore) GetOrCreate(channel intake.Channel, key, userID, shopID string) (*intake.Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := composite(channel, key)
	if sess, ok := s.sessions[k]; ok {
		return sess, false
	}
	now := s.clock()
	sess := &intake.Session{
		Key:          key,
		UserID:       userID,
		ShopID:       shopID,
		Channel:      channel,
		State:        intake.StateGreeting,
		CreatedAt:    now,
		LastActivity: now,
	}
	s.sessions[k] = sess
	return sess, true
}

func (s *MemoryStore) Get(channel intake.Channel, key string) (*intake.Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[composite(channel, key)]
	return sess, ok
}

func (s *MemoryStore) Delete(channel intake.Channel, key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, composite(channel, key))
}

// Len reports the number of live sessions.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// SweepExpired drops sessions idle longer than TTL and returns how many
// were removed. No-op when TTL is zero.
func (s *MemoryStore) SweepExpired() int {
	if s.TTL <= 0 {
		return 0
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	cutoff := s.clock().Add(-s.TTL)
	removed := 0
	for k, sess := range s.sessions {
		if sess.LastActivity.Before(cutoff) {
			delete(s.sessions, k)
			removed++
		}
	}
	return removed
}

func composite(channel intake.Channel, key string) string {
	return string(channel) + "|" + key
}

var _ intake.SessionStore = (*MemoryStore)(nil)
