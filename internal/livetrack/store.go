package livetrack

import (
	"errors"
	"sync"
	"time"
)

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrSessionInactive = errors.New("session inactive")
	ErrInvalidCoords   = errors.New("invalid coordinates")
)

// Store is the in-memory session index. It is the single source of
// truth for "current position"; every mutation of one session happens
// under the store lock so readers never see a torn lat/timestamp pair.
type Store struct {
	mu        sync.RWMutex
	sessions  map[string]*Session
	bufferMax int
}

func NewStore(bufferMax int) *Store {
	if bufferMax <= 0 {
		bufferMax = 500
	}
	return &Store{
		sessions:  make(map[string]*Session),
		bufferMax: bufferMax,
	}
}

// Put installs a session, replacing any existing entry with the same id.
func (s *Store) Put(sess *Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[sess.ID] = sess
}

// Get returns a copy of the session so callers can read it without
// holding the lock.
func (s *Store) Get(id string) (Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[id]
	if !ok {
		return Session{}, false
	}
	return copySession(sess), true
}

// Update applies one position fix. The whole entry is mutated as a unit
// and the oldest buffered points are dropped past the buffer cap; only
// the in-memory buffer is bounded, never the durable log.
func (s *Store) Update(id string, lat, lon float64, now time.Time) (Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[id]
	if !ok {
		return Session{}, ErrSessionNotFound
	}
	if !sess.Active {
		return Session{}, ErrSessionInactive
	}

	sess.Lat = lat
	sess.Lon = lon
	sess.UpdatedAt = now
	sess.Track = append(sess.Track, TrackPoint{SessionID: id, Lat: lat, Lon: lon, TS: now})
	if over := len(sess.Track) - s.bufferMax; over > 0 {
		sess.Track = sess.Track[over:]
	}
	return copySession(sess), nil
}

// Stop marks the session inactive. Stopping an already-stopped session
// is a no-op, not an error.
func (s *Store) Stop(id string, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[id]
	if !ok {
		return ErrSessionNotFound
	}
	if !sess.Active {
		return nil
	}
	sess.Active = false
	sess.StoppedAt = &now
	sess.UpdatedAt = now
	return nil
}

// Delete removes the session from the index only; the point log keeps
// its history.
func (s *Store) Delete(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[id]; !ok {
		return false
	}
	delete(s.sessions, id)
	return true
}

// List returns copies of every session currently held in memory.
func (s *Store) List() []Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Session, 0, len(s.sessions))
	for _, sess := range s.sessions {
		out = append(out, copySession(sess))
	}
	return out
}

func copySession(sess *Session) Session {
	cp := *sess
	cp.Track = append([]TrackPoint(nil), sess.Track...)
	if sess.StoppedAt != nil {
		t := *sess.StoppedAt
		cp.StoppedAt = &t
	}
	return cp
}
