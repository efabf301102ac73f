package repos

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"sync"

	"github.com/jmoiron/sqlx"
	"github.com/pressly/goose/v3"
	"golang.org/x/crypto/bcrypt"
	_ "modernc.org/sqlite"

	"wayfarer/internal/domain"
	"wayfarer/internal/repos/migrations"
)

// goose keeps its base FS and dialect in package globals.
var migrateMu sync.Mutex

// OpenDB connects with the named driver (sqlite, postgres/pgx, mysql) and
// brings the schema up to date.
func OpenDB(driver, dsn string) (*sqlx.DB, error) {
	d, err := lookupDialect(driver)
	if err != nil {
		return nil, err
	}
	db, err := sqlx.Open(d.driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", d.driver, err)
	}
	if d.driver == "sqlite" {
		// one connection: keeps :memory: databases alive and serializes writers
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
	}
	if err = db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping %s: %w", d.driver, err)
	}
	if err := migrate(context.Background(), db, d); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

func migrate(ctx context.Context, db *sqlx.DB, d dialect) error {
	sub, err := fs.Sub(migrations.FS, d.dir)
	if err != nil {
		return err
	}

	migrateMu.Lock()
	defer migrateMu.Unlock()

	goose.SetBaseFS(sub)
	goose.SetLogger(goose.NopLogger())
	if err := goose.SetDialect(d.goose); err != nil {
		return err
	}
	if err := goose.UpContext(ctx, db.DB, "."); err != nil {
		return fmt.Errorf("migrate %s: %w", d.goose, err)
	}
	return nil
}

// SeedAdmin makes sure an admin account exists for the given email.
// Registration only ever creates plain users, so this is the way in for admins.
func SeedAdmin(ctx context.Context, users *UserRepo, name, email, password string, cost int) error {
	if email == "" || password == "" {
		return nil
	}
	if _, err := users.ByEmail(ctx, email); err == nil {
		return nil
	} else if !errors.Is(err, ErrNotFound) {
		return err
	}
	h, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return fmt.Errorf("hash admin password: %w", err)
	}
	if name == "" {
		name = "Admin"
	}
	_, err = users.Create(ctx, name, email, string(h), domain.RoleAdmin)
	if errors.Is(err, ErrDuplicateEmail) {
		return nil
	}
	return err
}
