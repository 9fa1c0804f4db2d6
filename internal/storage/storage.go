package storage

import (
	"context"
	"errors"
	"time"
)

var (
	ErrSessionNotFound  = errors.New("session not found")
	ErrIncorrectSession = errors.New("incorrect session")
)

// Session keeps the current events of one client between extract and correct calls.
type Session struct {
	ID        string        `json:"id"`
	Events    []Event       `json:"events"`
	Location  *LocationHint `json:"location,omitempty"`
	Timezone  string        `json:"timezone"`
	UpdatedAt time.Time     `json:"updatedAt"`
}

type Storage interface {
	Connect(ctx context.Context) error
	Close(ctx context.Context) error
	SaveSession(ctx context.Context, s *Session) error
	GetSession(ctx context.Context, id string) (Session, error)
	RemoveSession(ctx context.Context, id string) error
	RemoveExpired(ctx context.Context, before time.Time) (int, error)
}
