package storagebuilder

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lomoval/calendar-helper/internal/storage"
	memorystorage "github.com/lomoval/calendar-helper/internal/storage/memory"
	sqlstorage "github.com/lomoval/calendar-helper/internal/storage/sql"
)

const (
	TypeMemory = "memory"
	TypeSQL    = "sql"

	defaultConnectTimeout = 15 * time.Second
)

var ErrUnknownStorageType = errors.New("unknown storage type")

type Config struct {
	StorageType string
	Database    sqlstorage.Config
	// ConnectTimeoutSeconds bounds the initial database connection.
	ConnectTimeoutSeconds int
}

// New builds session storage of the configured type. SQL storage is connected before returning.
func New(config Config) (storage.Storage, error) {
	switch strings.ToLower(strings.TrimSpace(config.StorageType)) {
	case TypeMemory:
		return memorystorage.New(), nil
	case TypeSQL, "postgres":
		timeout := defaultConnectTimeout
		if config.ConnectTimeoutSeconds > 0 {
			timeout = time.Duration(config.ConnectTimeoutSeconds) * time.Second
		}
		s := sqlstorage.New(config.Database)
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		if err := s.Connect(ctx); err != nil {
			return nil, fmt.Errorf("failed to connect to session database %s:%d: %w", config.Database.Host, config.Database.Port, err)
		}
		return s, nil
	default:
		return nil, fmt.Errorf("%w %q (expected %s or %s)", ErrUnknownStorageType, config.StorageType, TypeMemory, TypeSQL)
	}
}
