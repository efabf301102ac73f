package domain

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

type User struct {
	ID    string `db:"id"`
	Email string `db:"email"`
	Name  string `db:"name"`
	Hash  string `db:"password_hash"`
	Role  string `db:"role"` // user | admin
}

func (u *User) IsAdmin() bool { return u != nil && u.Role == RoleAdmin }

// Identity is the part of a User kept in the session after login.
type Identity struct {
	UserID string
	Name   string
	Email  string
	Role   string
}

func (u *User) Identity() Identity {
	return Identity{UserID: u.ID, Name: u.Name, Email: u.Email, Role: u.Role}
}
