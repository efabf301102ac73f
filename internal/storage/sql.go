// Package storage holds fiber.Storage backends for the session middleware.
package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/jmoiron/sqlx"
)

const (
	sqlGetSession    = `SELECT data FROM sessions WHERE id=? AND (expires_at=0 OR expires_at>?)`
	sqlDeleteSession = `DELETE FROM sessions WHERE id=?`
	sqlInsertSession = `INSERT INTO sessions(id,data,expires_at) VALUES(?,?,?)`
	sqlResetSessions = `DELETE FROM sessions`
	sqlGCSessions    = `DELETE FROM sessions WHERE expires_at<>0 AND expires_at<=?`
)

// SQL keeps session blobs in the sessions table next to users.
type SQL struct {
	db   *sqlx.DB
	now  func() time.Time
	done chan struct{}
	once sync.Once
}

var _ fiber.Storage = (*SQL)(nil)

// NewSQL returns a table-backed storage. A positive gcInterval starts a
// goroutine that drops expired rows until Close.
func NewSQL(db *sqlx.DB, gcInterval time.Duration) *SQL {
	s := &SQL{db: db, now: time.Now, done: make(chan struct{})}
	if gcInterval > 0 {
		go s.gcLoop(gcInterval)
	}
	return s
}

func (s *SQL) Get(key string) ([]byte, error) {
	if key == "" {
		return nil, nil
	}
	var data []byte
	err := s.db.Get(&data, s.db.Rebind(sqlGetSession), key, s.now().Unix())
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}
	return data, nil
}

// Set replaces the row for key. exp of zero means no expiry.
func (s *SQL) Set(key string, val []byte, exp time.Duration) error {
	if key == "" || len(val) == 0 {
		return nil
	}
	var expiresAt int64
	if exp > 0 {
		expiresAt = s.now().Add(exp).Unix()
	}
	tx, err := s.db.Beginx()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec(tx.Rebind(sqlDeleteSession), key); err != nil {
		return fmt.Errorf("replace session: %w", err)
	}
	if _, err := tx.Exec(tx.Rebind(sqlInsertSession), key, val, expiresAt); err != nil {
		return fmt.Errorf("replace session: %w", err)
	}
	return tx.Commit()
}

func (s *SQL) Delete(key string) error {
	if key == "" {
		return nil
	}
	_, err := s.db.Exec(s.db.Rebind(sqlDeleteSession), key)
	return err
}

func (s *SQL) Reset() error {
	_, err := s.db.Exec(sqlResetSessions)
	return err
}

// Close stops the GC loop. The database handle belongs to the caller.
func (s *SQL) Close() error {
	s.once.Do(func() { close(s.done) })
	return nil
}

func (s *SQL) gc() (int64, error) {
	res, err := s.db.Exec(s.db.Rebind(sqlGCSessions), s.now().Unix())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (s *SQL) gcLoop(every time.Duration) {
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-s.done:
			return
		case <-t.C:
			_, _ = s.gc()
		}
	}
}
