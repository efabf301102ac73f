package storage

import (
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/jmoiron/sqlx"
)

const (
	KindMemory = "memory"
	KindSQL    = "sql"
	KindRedis  = "redis"

	sqlGCInterval = 10 * time.Minute
)

// New picks the session backend by kind. Memory returns a nil storage, which
// the fiber session middleware replaces with its in-process store.
func New(kind string, db *sqlx.DB, redisURL string) (fiber.Storage, error) {
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case "", KindMemory:
		return nil, nil
	case KindSQL:
		if db == nil {
			return nil, fmt.Errorf("session store %q needs a database", KindSQL)
		}
		return NewSQL(db, sqlGCInterval), nil
	case KindRedis:
		s, err := NewRedisURL(redisURL)
		if err != nil {
			return nil, fmt.Errorf("session store %q: %w", KindRedis, err)
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unknown session store %q", kind)
	}
}
