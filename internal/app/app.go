package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lomoval/calendar-helper/internal/ics"
	"github.com/lomoval/calendar-helper/internal/pipeline"
	"github.com/lomoval/calendar-helper/internal/rabbit"
	"github.com/lomoval/calendar-helper/internal/storage"
	log "github.com/sirupsen/logrus"
)

type Processor interface {
	Extract(ctx context.Context, req pipeline.ExtractRequest) ([]storage.Event, error)
	Correct(ctx context.Context, req pipeline.CorrectRequest) ([]storage.Event, error)
}

type Publisher interface {
	Publish(ctx context.Context, m rabbit.Message) error
}

type Locator interface {
	Locate(ctx context.Context, ip string) (*storage.LocationHint, error)
}

type Options struct {
	// Publisher and Locator are optional.
	Publisher Publisher
	Locator   Locator
	ICS       ics.Options
	Clock     func() time.Time
}

type App struct {
	Pipeline  Processor
	Storage   storage.Storage
	publisher Publisher
	locator   Locator
	ics       ics.Options
	now       func() time.Time
}

type ExtractCommand struct {
	SessionID string
	ClientIP  string
	Images    []pipeline.Image
	Text      string
	Timezone  string
}

type CorrectCommand struct {
	SessionID string
	Text      string
	// Events replace the session events when not empty.
	Events   []storage.Event
	Timezone string
}

type Result struct {
	SessionID string
	Events    []storage.Event
}

func New(processor Processor, stor storage.Storage, opts Options) *App {
	now := opts.Clock
	if now == nil {
		now = time.Now
	}
	return &App{
		Pipeline:  processor,
		Storage:   stor,
		publisher: opts.Publisher,
		locator:   opts.Locator,
		ics:       opts.ICS,
		now:       now,
	}
}

func (a *App) Extract(ctx context.Context, cmd ExtractCommand) (Result, error) {
	session, err := a.session(ctx, cmd.SessionID)
	if err != nil {
		return Result{}, err
	}
	if session.Location == nil {
		session.Location = a.locate(ctx, cmd.ClientIP)
	}
	if tz := strings.TrimSpace(cmd.Timezone); tz != "" {
		session.Timezone = tz
	}

	events, err := a.Pipeline.Extract(ctx, pipeline.ExtractRequest{
		Images:       cmd.Images,
		Text:         cmd.Text,
		Timezone:     session.Timezone,
		LocationHint: session.Location,
	})
	if err != nil {
		return Result{SessionID: session.ID}, err
	}
	return a.store(ctx, &session, "extract", events)
}

func (a *App) Correct(ctx context.Context, cmd CorrectCommand) (Result, error) {
	session, err := a.session(ctx, cmd.SessionID)
	if err != nil {
		return Result{}, err
	}
	if tz := strings.TrimSpace(cmd.Timezone); tz != "" {
		session.Timezone = tz
	}
	current := cmd.Events
	if len(current) == 0 {
		current = session.Events
	}

	events, err := a.Pipeline.Correct(ctx, pipeline.CorrectRequest{
		Text:     cmd.Text,
		Events:   current,
		Timezone: session.Timezone,
	})
	if err != nil {
		return Result{SessionID: session.ID}, err
	}
	return a.store(ctx, &session, "correct", events)
}

// ICS renders events, or the current session events when none are given.
func (a *App) ICS(ctx context.Context, sessionID string, events []storage.Event) (string, error) {
	if len(events) == 0 && sessionID != "" {
		session, err := a.Storage.GetSession(ctx, sessionID)
		if err != nil && !errors.Is(err, storage.ErrSessionNotFound) {
			return "", err
		}
		events = session.Events
	}
	return ics.Generate(events, a.ics)
}

// Clear drops the session so the next request starts from scratch.
func (a *App) Clear(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return nil
	}
	err := a.Storage.RemoveSession(ctx, sessionID)
	if errors.Is(err, storage.ErrSessionNotFound) {
		return nil
	}
	return err
}

func (a *App) session(ctx context.Context, id string) (storage.Session, error) {
	if id != "" {
		session, err := a.Storage.GetSession(ctx, id)
		if err == nil {
			return session, nil
		}
		if !errors.Is(err, storage.ErrSessionNotFound) {
			return storage.Session{}, fmt.Errorf("failed to load session: %w", err)
		}
		log.WithField("session", id).Debug("session expired, starting a new one")
	}
	return storage.Session{ID: uuid.NewString()}, nil
}

func (a *App) locate(ctx context.Context, ip string) *storage.LocationHint {
	if a.locator == nil || ip == "" {
		return nil
	}
	hint, err := a.locator.Locate(ctx, ip)
	if err != nil {
		log.WithError(err).WithField("ip", ip).Warn("failed to locate client")
		return nil
	}
	return hint
}

func (a *App) store(ctx context.Context, session *storage.Session, entry string, events []storage.Event) (Result, error) {
	session.Events = events
	if err := a.Storage.SaveSession(ctx, session); err != nil {
		return Result{SessionID: session.ID}, fmt.Errorf("failed to save session: %w", err)
	}
	if a.publisher != nil {
		err := a.publisher.Publish(ctx, rabbit.Message{
			SessionID: session.ID,
			Entry:     entry,
			Events:    events,
			Time:      a.now(),
		})
		if err != nil {
			log.WithError(err).WithField("session", session.ID).Warn("failed to publish events")
		}
	}
	return Result{SessionID: session.ID, Events: events}, nil
}
