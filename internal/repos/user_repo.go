package repos

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"wayfarer/internal/domain"
)

var (
	ErrNotFound       = errors.New("not found")
	ErrDuplicateEmail = errors.New("email already registered")
)

const (
	selectUserByEmailSQL = `SELECT id,email,name,password_hash,role FROM users WHERE LOWER(email)=LOWER(?)`
	selectUserByIDSQL    = `SELECT id,email,name,password_hash,role FROM users WHERE id=?`
	existsUserByEmailSQL = `SELECT COUNT(*) FROM users WHERE LOWER(email)=LOWER(?)`
	insertUserSQL        = `INSERT INTO users(id,name,email,password_hash,role) VALUES(?,?,?,?,?)`
	countUsersSQL        = `SELECT COUNT(*) FROM users`
)

type UserRepo struct{ DB *sqlx.DB }

func NewUserRepo(db *sqlx.DB) *UserRepo { return &UserRepo{DB: db} }

func (r *UserRepo) ByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.get(ctx, selectUserByEmailSQL, email)
}

func (r *UserRepo) ByID(ctx context.Context, id string) (*domain.User, error) {
	return r.get(ctx, selectUserByIDSQL, id)
}

func (r *UserRepo) get(ctx context.Context, query string, arg string) (*domain.User, error) {
	var u domain.User
	if err := r.DB.GetContext(ctx, &u, r.DB.Rebind(query), arg); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("select user: %w", err)
	}
	return &u, nil
}

// EmailTaken is the friendly pre-check before insert. The unique index on
// email is what actually guarantees uniqueness; see Create.
func (r *UserRepo) EmailTaken(ctx context.Context, email string) (bool, error) {
	var n int
	if err := r.DB.GetContext(ctx, &n, r.DB.Rebind(existsUserByEmailSQL), email); err != nil {
		return false, fmt.Errorf("check email: %w", err)
	}
	return n > 0, nil
}

// Create inserts a user with a fresh id. A unique index violation comes back
// as ErrDuplicateEmail.
func (r *UserRepo) Create(ctx context.Context, name, email, hash, role string) (*domain.User, error) {
	u := &domain.User{ID: uuid.NewString(), Name: name, Email: email, Hash: hash, Role: role}
	_, err := r.DB.ExecContext(ctx, r.DB.Rebind(insertUserSQL), u.ID, u.Name, u.Email, u.Hash, u.Role)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicateEmail
		}
		return nil, fmt.Errorf("insert user %q: %w", email, err)
	}
	return u, nil
}

func (r *UserRepo) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.DB.GetContext(ctx, &n, countUsersSQL); err != nil {
		return 0, fmt.Errorf("count users: %w", err)
	}
	return n, nil
}
