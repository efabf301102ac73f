package services

import (
	"context"
	"errors"
	"sync"

	"golang.org/x/crypto/bcrypt"

	"wayfarer/internal/domain"
	"wayfarer/internal/repos"
	"wayfarer/internal/validate"
)

const (
	MsgRequired      = "All fields are required!"
	MsgBadEmail      = "Invalid email format!"
	MsgMismatch      = "Passwords do not match!"
	MsgShortPassword = "Password must be at least 8 characters!"
	MsgLongPassword  = "Password must be at most 72 characters!"
)

type AuthService struct {
	Users *repos.UserRepo
	Cost  int // bcrypt cost; zero means bcrypt.DefaultCost

	dummyOnce sync.Once
	dummy     []byte
}

func NewAuthService(users *repos.UserRepo, cost int) *AuthService {
	return &AuthService{Users: users, Cost: cost}
}

// Registration carries the signup form after trimming.
type Registration struct {
	Name            string
	Email           string
	Password        string
	ConfirmPassword string
}

// Validate applies the signup rules in the order the form reports them.
func (r Registration) Validate() error {
	if !validate.Required(r.Name, r.Email, r.Password, r.ConfirmPassword) {
		return invalid("", MsgRequired)
	}
	if _, ok := validate.Email(r.Email); !ok {
		return invalid("email", MsgBadEmail)
	}
	if r.Password != r.ConfirmPassword {
		return invalid("confirm_password", MsgMismatch)
	}
	if validate.PasswordTooShort(r.Password) {
		return invalid("password", MsgShortPassword)
	}
	// bcrypt refuses input past 72 bytes
	if validate.PasswordTooLong(r.Password) {
		return invalid("password", MsgLongPassword)
	}
	return nil
}

// Register validates, checks the email is free, and inserts a new plain user.
func (s *AuthService) Register(ctx context.Context, in Registration) (*domain.User, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	taken, err := s.Users.EmailTaken(ctx, in.Email)
	if err != nil {
		return nil, &StoreError{Op: "check email", Err: err}
	}
	if taken {
		return nil, ErrConflict
	}
	h, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.cost())
	if err != nil {
		return nil, &StoreError{Op: "hash password", Err: err}
	}
	u, err := s.Users.Create(ctx, in.Name, in.Email, string(h), domain.RoleUser)
	if errors.Is(err, repos.ErrDuplicateEmail) {
		// lost the race to a concurrent signup
		return nil, ErrConflict
	}
	if err != nil {
		return nil, &StoreError{Op: "insert user", Err: err}
	}
	return u, nil
}

// Authenticate returns the user for a matching email and password. Unknown
// email and wrong password both yield ErrInvalidCredentials.
func (s *AuthService) Authenticate(ctx context.Context, email, password string) (*domain.User, error) {
	if email == "" || password == "" {
		return nil, ErrInvalidCredentials
	}
	u, err := s.Users.ByEmail(ctx, email)
	if errors.Is(err, repos.ErrNotFound) {
		_ = bcrypt.CompareHashAndPassword(s.dummyHash(), []byte(password))
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, &StoreError{Op: "find user", Err: err}
	}
	if bcrypt.CompareHashAndPassword([]byte(u.Hash), []byte(password)) != nil {
		return nil, ErrInvalidCredentials
	}
	return u, nil
}

func (s *AuthService) cost() int {
	if s.Cost == 0 {
		return bcrypt.DefaultCost
	}
	return s.Cost
}

// dummyHash is compared against when the email is unknown. It is built at
// the configured cost so both login failure paths take the same time.
func (s *AuthService) dummyHash() []byte {
	s.dummyOnce.Do(func() {
		s.dummy, _ = bcrypt.GenerateFromPassword([]byte("wayfarer-not-a-password"), s.cost())
	})
	return s.dummy
}
