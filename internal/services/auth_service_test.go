package services_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"wayfarer/internal/domain"
	"wayfarer/internal/repos"
	"wayfarer/internal/services"
)

func newAuth(t *testing.T) (*services.AuthService, *sqlx.DB) {
	t.Helper()
	db, err := repos.OpenDB("sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return services.NewAuthService(repos.NewUserRepo(db), bcrypt.MinCost), db
}

func userCount(t *testing.T, db *sqlx.DB) int {
	t.Helper()
	var n int
	require.NoError(t, db.Get(&n, `SELECT COUNT(*) FROM users`))
	return n
}

func validReg() services.Registration {
	return services.Registration{Name: "Ada", Email: "ada@example.com", Password: "longenough", ConfirmPassword: "longenough"}
}

func TestRegisterRejectsBadInputWithoutWriting(t *testing.T) {
	svc, db := newAuth(t)

	tests := []struct {
		name   string
		mutate func(*services.Registration)
		msg    string
	}{
		{"missing name", func(r *services.Registration) { r.Name = "" }, services.MsgRequired},
		{"missing email", func(r *services.Registration) { r.Email = "" }, services.MsgRequired},
		{"missing password", func(r *services.Registration) { r.Password = "" }, services.MsgRequired},
		{"missing confirm", func(r *services.Registration) { r.ConfirmPassword = "" }, services.MsgRequired},
		{"blank name", func(r *services.Registration) { r.Name = "   " }, services.MsgRequired},
		{"no at sign", func(r *services.Registration) { r.Email = "ada.example.com" }, services.MsgBadEmail},
		{"no tld", func(r *services.Registration) { r.Email = "ada@example" }, services.MsgBadEmail},
		{"markup in email", func(r *services.Registration) { r.Email = "<b>@example.com" }, services.MsgBadEmail},
		{"mismatch", func(r *services.Registration) { r.ConfirmPassword = "longenougH" }, services.MsgMismatch},
		{"too short", func(r *services.Registration) { r.Password, r.ConfirmPassword = "short7!", "short7!" }, services.MsgShortPassword},
		{"too long", func(r *services.Registration) {
			p := strings.Repeat("x", 73)
			r.Password, r.ConfirmPassword = p, p
		}, services.MsgLongPassword},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := validReg()
			tt.mutate(&in)

			u, err := svc.Register(context.Background(), in)
			assert.Nil(t, u)
			var ve *services.ValidationError
			require.ErrorAs(t, err, &ve)
			assert.Equal(t, tt.msg, ve.Msg)
			assert.Equal(t, 0, userCount(t, db))
		})
	}
}

func TestRegisterChecksInOrder(t *testing.T) {
	// bad email and mismatched passwords: the email complaint wins
	in := services.Registration{Name: "A", Email: "nope", Password: "12345678", ConfirmPassword: "87654321"}
	var ve *services.ValidationError
	require.ErrorAs(t, in.Validate(), &ve)
	assert.Equal(t, services.MsgBadEmail, ve.Msg)

	// mismatch is reported before length
	in = services.Registration{Name: "A", Email: "a@b.co", Password: "short", ConfirmPassword: "other"}
	require.ErrorAs(t, in.Validate(), &ve)
	assert.Equal(t, services.MsgMismatch, ve.Msg)
}

func TestRegisterDuplicateEmail(t *testing.T) {
	svc, db := newAuth(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, validReg())
	require.NoError(t, err)

	again := validReg()
	again.Name = "Someone Else"
	again.Email = "ADA@example.com"
	_, err = svc.Register(ctx, again)
	assert.ErrorIs(t, err, services.ErrConflict)

	var n int
	require.NoError(t, db.Get(&n, `SELECT COUNT(*) FROM users WHERE LOWER(email)='ada@example.com'`))
	assert.Equal(t, 1, n)
}

func TestRegisterThenAuthenticate(t *testing.T) {
	svc, db := newAuth(t)
	ctx := context.Background()

	created, err := svc.Register(ctx, validReg())
	require.NoError(t, err)
	assert.Equal(t, domain.RoleUser, created.Role)

	u, err := svc.Authenticate(ctx, "ada@example.com", "longenough")
	require.NoError(t, err)
	assert.Equal(t, created.ID, u.ID)
	assert.Equal(t, domain.RoleUser, u.Identity().Role)
	assert.Equal(t, "Ada", u.Identity().Name)

	// stored value is a bcrypt digest, never the secret
	var stored string
	require.NoError(t, db.Get(&stored, `SELECT password_hash FROM users WHERE id=?`, u.ID))
	assert.NotEqual(t, "longenough", stored)
	assert.NotContains(t, stored, "longenough")
	assert.True(t, strings.HasPrefix(stored, "$2"))
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(stored), []byte("longenough")))
}

func TestAuthenticateFailuresLookAlike(t *testing.T) {
	svc, _ := newAuth(t)
	ctx := context.Background()
	_, err := svc.Register(ctx, validReg())
	require.NoError(t, err)

	_, wrongPass := svc.Authenticate(ctx, "ada@example.com", "not-the-password")
	_, noUser := svc.Authenticate(ctx, "ghost@example.com", "longenough")
	_, empty := svc.Authenticate(ctx, "", "")

	for _, err := range []error{wrongPass, noUser, empty} {
		assert.ErrorIs(t, err, services.ErrInvalidCredentials)
	}
	assert.Equal(t, wrongPass.Error(), noUser.Error())
}

func TestStoreFailuresAreStoreErrors(t *testing.T) {
	svc, db := newAuth(t)
	require.NoError(t, db.Close())

	_, err := svc.Register(context.Background(), validReg())
	var se *services.StoreError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "check email", se.Op)

	_, err = svc.Authenticate(context.Background(), "ada@example.com", "longenough")
	require.ErrorAs(t, err, &se)
	assert.False(t, errors.Is(err, services.ErrInvalidCredentials))
}

func TestRegisterLostRaceIsConflict(t *testing.T) {
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer mockDB.Close()
	svc := services.NewAuthService(repos.NewUserRepo(sqlx.NewDb(mockDB, "sqlmock")), bcrypt.MinCost)

	// the pre-check sees a free email, then another signup wins the insert
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM users`).
		WithArgs("ada@example.com").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectExec(`INSERT INTO users`).
		WillReturnError(errors.New("UNIQUE constraint failed: users.email"))

	u, err := svc.Register(context.Background(), validReg())
	assert.Nil(t, u)
	assert.ErrorIs(t, err, services.ErrConflict)
	var se *services.StoreError
	assert.False(t, errors.As(err, &se))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestConcurrentRegisterSameEmail(t *testing.T) {
	svc, db := newAuth(t)
	const n = 8

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		errs []error
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Register(context.Background(), validReg())
			mu.Lock()
			errs = append(errs, err)
			mu.Unlock()
		}()
	}
	wg.Wait()

	var ok, conflict int
	for _, err := range errs {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, services.ErrConflict):
			conflict++
		default:
			t.Errorf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, ok)
	assert.Equal(t, n-1, conflict)
	assert.Equal(t, 1, userCount(t, db))
}
