//go:build sql
// +build sql

package sqlstorage_test

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lomoval/calendar-helper/internal/storage"
	sqlstorage "github.com/lomoval/calendar-helper/internal/storage/sql"
	"github.com/stretchr/testify/require"
)

var (
	host     = "127.0.0.1"
	port     = 5532
	database = "testing"
	username = "postgres"
	password = "pas"
)

func TestMain(m *testing.M) {
	pgHost := os.Getenv("POSTGRES_HOST")
	pgPort := os.Getenv("POSTGRES_PORT")
	if pgHost != "" {
		host = pgHost
	}
	if pgPort != "" {
		port, _ = strconv.Atoi(pgPort)
	}

	cleanupDB()
	code := m.Run()
	os.Exit(code)
}

func TestStorage(t *testing.T) {
	start := time.Date(2300, 1, 1, 12, 0, 0, 0, time.UTC)

	t.Run("save and get", func(t *testing.T) {
		s := createStorage(t)
		street := "123 Main St"
		session := storage.Session{
			ID: "session-1",
			Events: []storage.Event{{
				Title:           "Lunch",
				Description:     "with Sam",
				StartTime:       start,
				EndTime:         start.Add(time.Hour),
				LocationName:    "Panera Bread",
				LocationAddress: "123 Main St",
				LocationDetails: &storage.LocationDetails{StreetAddress: &street},
				Location:        "Panera Bread - 123 Main St",
			}},
			Location: &storage.LocationHint{City: "Springfield", Region: "IL", Country: "US"},
			Timezone: "America/Chicago",
		}
		require.NoError(t, s.SaveSession(context.Background(), &session))

		got, err := s.GetSession(context.Background(), "session-1")
		require.NoError(t, err)
		require.Equal(t, session.Location, got.Location)
		require.Equal(t, session.Timezone, got.Timezone)
		require.Len(t, got.Events, 1)
		require.True(t, start.Equal(got.Events[0].StartTime))
		require.Equal(t, session.Events[0].Location, got.Events[0].Location)
		require.Equal(t, street, *got.Events[0].LocationDetails.StreetAddress)
	})

	t.Run("update session", func(t *testing.T) {
		s := createStorage(t)
		session := storage.Session{ID: "session-2", Events: []storage.Event{{Title: "first"}}}
		require.NoError(t, s.SaveSession(context.Background(), &session))

		session.Events = []storage.Event{{Title: "second"}, {Title: "third"}}
		session.Location = nil
		require.NoError(t, s.SaveSession(context.Background(), &session))

		got, err := s.GetSession(context.Background(), "session-2")
		require.NoError(t, err)
		require.Len(t, got.Events, 2)
		require.Equal(t, "second", got.Events[0].Title)
		require.Nil(t, got.Location)
	})

	t.Run("remove session", func(t *testing.T) {
		s := createStorage(t)
		require.NoError(t, s.SaveSession(context.Background(), &storage.Session{ID: "session-3"}))
		require.NoError(t, s.RemoveSession(context.Background(), "session-3"))

		_, err := s.GetSession(context.Background(), "session-3")
		require.ErrorIs(t, err, storage.ErrSessionNotFound)
		require.ErrorIs(t, s.RemoveSession(context.Background(), "session-3"), storage.ErrSessionNotFound)
	})

	t.Run("remove session on closed connection", func(t *testing.T) {
		s := createStorage(t)
		require.NoError(t, s.Close(context.Background()))

		err := s.RemoveSession(context.Background(), "session-3")
		require.Error(t, err)
		require.NotErrorIs(t, err, storage.ErrSessionNotFound)
	})

	t.Run("remove expired", func(t *testing.T) {
		s := createStorage(t)
		require.NoError(t, s.SaveSession(context.Background(), &storage.Session{ID: "session-4"}))

		removed, err := s.RemoveExpired(context.Background(), time.Now().Add(time.Minute))
		require.NoError(t, err)
		require.Equal(t, 1, removed)
	})

	t.Run("incorrect session", func(t *testing.T) {
		s := createStorage(t)
		require.ErrorIs(t, s.SaveSession(context.Background(), &storage.Session{}), storage.ErrIncorrectSession)
	})
}

func cleanupDB() error {
	db, err := sqlx.Connect(
		"postgres",
		fmt.Sprintf("sslmode=disable host=%s port=%d dbname=%s user=%s password=%s", host, port, database, username, password),
	)
	if err != nil {
		return err
	}
	defer db.Close()

	_, err = db.Exec("TRUNCATE TABLE Sessions")
	return err
}

func createStorage(t *testing.T) *sqlstorage.Storage {
	t.Helper()
	s := sqlstorage.New(sqlstorage.Config{
		Host:     host,
		Port:     port,
		Database: database,
		Username: username,
		Password: password,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, s.Connect(ctx))
	t.Cleanup(func() {
		s.Close(context.Background())
		require.NoError(t, cleanupDB())
	})
	return s
}
