package memorystorage

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/lomoval/calendar-helper/internal/storage"
)

type Storage struct {
	mu   sync.RWMutex
	data map[string]storage.Session
	now  func() time.Time
}

func New() *Storage {
	return &Storage{data: make(map[string]storage.Session), now: time.Now}
}

func (s *Storage) Connect(_ context.Context) error {
	return nil
}

func (s *Storage) Close(_ context.Context) error {
	return nil
}

func (s *Storage) SaveSession(_ context.Context, session *storage.Session) error {
	if session == nil || session.ID == "" {
		return fmt.Errorf("session id is empty: %w", storage.ErrIncorrectSession)
	}

	session.UpdatedAt = s.now()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[session.ID] = copySession(*session)
	return nil
}

func (s *Storage) GetSession(_ context.Context, id string) (storage.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.data[id]
	if !ok {
		return storage.Session{}, fmt.Errorf("failed to get session %q: %w", id, storage.ErrSessionNotFound)
	}
	return copySession(session), nil
}

func (s *Storage) RemoveSession(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.data[id]; !ok {
		return fmt.Errorf("failed to remove session %q: %w", id, storage.ErrSessionNotFound)
	}
	delete(s.data, id)
	return nil
}

func (s *Storage) RemoveExpired(_ context.Context, before time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for id, session := range s.data {
		if session.UpdatedAt.Before(before) {
			delete(s.data, id)
			removed++
		}
	}
	return removed, nil
}

func copySession(s storage.Session) storage.Session {
	if s.Events != nil {
		events := make([]storage.Event, len(s.Events))
		copy(events, s.Events)
		s.Events = events
	}
	if s.Location != nil {
		location := *s.Location
		s.Location = &location
	}
	return s
}
