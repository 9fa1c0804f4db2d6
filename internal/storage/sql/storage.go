package sqlstorage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq" // postgres driver
	"github.com/lomoval/calendar-helper/internal/storage"
	log "github.com/sirupsen/logrus"
)

var ErrConnectionFailed = errors.New("failed to connect")

type Config struct {
	Host     string
	Port     int
	Database string
	Username string
	Password string
}

type Storage struct {
	host     string
	port     int
	database string
	username string
	password string
	db       *sqlx.DB
	now      func() time.Time
}

type sessionRow struct {
	ID        string         `db:"id"`
	Events    []byte         `db:"events"`
	Location  []byte         `db:"location"`
	Timezone  sql.NullString `db:"timezone"`
	UpdatedAt time.Time      `db:"updated_at"`
}

func New(config Config) *Storage {
	return &Storage{
		host:     config.Host,
		port:     config.Port,
		database: config.Database,
		username: config.Username,
		password: config.Password,
		now:      time.Now,
	}
}

func (s *Storage) Connect(ctx context.Context) error {
	db, err := sqlx.ConnectContext(
		ctx,
		"postgres",
		fmt.Sprintf(
			"sslmode=disable host=%s port=%d dbname=%s user=%s password=%s",
			s.host, s.port, s.database, s.username, s.password),
	)
	if err != nil {
		log.Errorf("failed to connect: %v", err)
		return ErrConnectionFailed
	}
	s.db = db
	return nil
}

func (s *Storage) Close(_ context.Context) error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("failed to close connection: %w", err)
	}
	return nil
}

func (s *Storage) SaveSession(ctx context.Context, session *storage.Session) error {
	if session == nil || session.ID == "" {
		return fmt.Errorf("session id is empty: %w", storage.ErrIncorrectSession)
	}

	events, err := json.Marshal(session.Events)
	if err != nil {
		return fmt.Errorf("failed to encode events: %w", err)
	}
	var location interface{}
	if session.Location != nil {
		data, err := json.Marshal(session.Location)
		if err != nil {
			return fmt.Errorf("failed to encode location: %w", err)
		}
		location = string(data)
	}

	session.UpdatedAt = s.now().UTC()
	_, err = s.db.ExecContext(
		ctx,
		"INSERT INTO Sessions(id, events, location, timezone, updated_at) VALUES($1, $2, $3, $4, $5) "+
			"ON CONFLICT (id) DO UPDATE SET events=$2, location=$3, timezone=$4, updated_at=$5",
		session.ID, string(events), location, session.Timezone, session.UpdatedAt)
	return err
}

func (s *Storage) GetSession(ctx context.Context, id string) (storage.Session, error) {
	var row sessionRow
	err := s.db.GetContext(
		ctx,
		&row,
		"SELECT id, events, location, timezone, updated_at FROM Sessions WHERE id=$1",
		id,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return storage.Session{}, fmt.Errorf("failed to get session %q: %w", id, storage.ErrSessionNotFound)
	}
	if err != nil {
		return storage.Session{}, err
	}
	return toSession(row)
}

func (s *Storage) RemoveSession(ctx context.Context, id string) error {
	var found bool
	err := s.db.GetContext(ctx, &found, "DELETE FROM Sessions WHERE id=$1 RETURNING TRUE", id)
	if errors.Is(err, sql.ErrNoRows) || (err == nil && !found) {
		return fmt.Errorf("failed to remove session %q: %w", id, storage.ErrSessionNotFound)
	}
	if err != nil {
		return fmt.Errorf("failed to remove session %q: %w", id, err)
	}
	return nil
}

func (s *Storage) RemoveExpired(ctx context.Context, before time.Time) (int, error) {
	res, err := s.db.ExecContext(ctx, "DELETE FROM Sessions WHERE updated_at < $1", before.UTC())
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	return int(n), err
}

func toSession(row sessionRow) (storage.Session, error) {
	session := storage.Session{
		ID:        row.ID,
		Timezone:  row.Timezone.String,
		UpdatedAt: row.UpdatedAt,
	}
	if len(row.Events) > 0 {
		if err := json.Unmarshal(row.Events, &session.Events); err != nil {
			return storage.Session{}, fmt.Errorf("failed to decode events of session %q: %w", row.ID, err)
		}
	}
	if len(row.Location) > 0 {
		session.Location = &storage.LocationHint{}
		if err := json.Unmarshal(row.Location, session.Location); err != nil {
			return storage.Session{}, fmt.Errorf("failed to decode location of session %q: %w", row.ID, err)
		}
	}
	return session, nil
}
