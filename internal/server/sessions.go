package server

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

type sessionEntry struct {
	userID   int64
	lastSeen time.Time
}

// sessionRegistry сопоставляет публичный UUID сессии с внутренним ID пользователя.
// Сессия без обращений дольше ttl забывается, при достижении limit вытесняется самая старая.
// Нулевые ttl и limit отключают соответствующее ограничение.
type sessionRegistry struct {
	mu      sync.Mutex
	ids     map[uuid.UUID]*sessionEntry
	next    int64
	ttl     time.Duration
	limit   int
	now     func() time.Time
	onEvict func(userID int64)
}

func newSessionRegistry(ttl time.Duration, limit int, onEvict func(userID int64)) *sessionRegistry {
	return &sessionRegistry{
		ids:     make(map[uuid.UUID]*sessionEntry),
		ttl:     ttl,
		limit:   limit,
		now:     time.Now,
		onEvict: onEvict,
	}
}

func (s *sessionRegistry) create() (uuid.UUID, int64) {
	s.mu.Lock()
	now := s.now()
	evicted := s.expireLocked(now)
	if s.limit > 0 && len(s.ids) >= s.limit {
		evicted = append(evicted, s.evictOldestLocked())
	}

	s.next++
	id := uuid.New()
	s.ids[id] = &sessionEntry{userID: s.next, lastSeen: now}
	userID := s.next
	s.mu.Unlock()

	s.notify(evicted)
	return id, userID
}

func (s *sessionRegistry) lookup(raw string) (uuid.UUID, int64, bool) {
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, 0, false
	}

	s.mu.Lock()
	now := s.now()
	evicted := s.expireLocked(now)
	entry, ok := s.ids[id]
	if ok {
		entry.lastSeen = now
	}
	s.mu.Unlock()

	s.notify(evicted)
	if !ok {
		return id, 0, false
	}
	return id, entry.userID, true
}

func (s *sessionRegistry) len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.ids)
}

func (s *sessionRegistry) expireLocked(now time.Time) []int64 {
	if s.ttl <= 0 {
		return nil
	}
	var evicted []int64
	for id, entry := range s.ids {
		if now.Sub(entry.lastSeen) > s.ttl {
			delete(s.ids, id)
			evicted = append(evicted, entry.userID)
		}
	}
	return evicted
}

func (s *sessionRegistry) evictOldestLocked() int64 {
	var (
		oldestID uuid.UUID
		oldest   *sessionEntry
	)
	for id, entry := range s.ids {
		if oldest == nil || entry.lastSeen.Before(oldest.lastSeen) {
			oldestID, oldest = id, entry
		}
	}
	delete(s.ids, oldestID)
	return oldest.userID
}

func (s *sessionRegistry) notify(evicted []int64) {
	if s.onEvict == nil {
		return
	}
	for _, userID := range evicted {
		s.onEvict(userID)
	}
}
