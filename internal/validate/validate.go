package validate

import (
	"regexp"
	"strings"
)

const (
	MinPasswordLen = 8
	// bcrypt only looks at the first 72 bytes and rejects longer input.
	MaxPasswordLen = 72
	maxEmailLen    = 254
)

var reEmail = regexp.MustCompile(`^[A-Za-z0-9.!#$%&'*+/=?^_{|}~-]+@[A-Za-z0-9](?:[A-Za-z0-9-]{0,61}[A-Za-z0-9])?(?:\.[A-Za-z0-9](?:[A-Za-z0-9-]{0,61}[A-Za-z0-9])?)*\.[A-Za-z]{2,}$`)

// Trim normalizes a raw form value.
func Trim(s string) string { return strings.TrimSpace(s) }

// Email trims and checks address syntax.
func Email(s string) (string, bool) {
	s = strings.TrimSpace(s)
	if len(s) == 0 || len(s) > maxEmailLen {
		return "", false
	}
	local, _, ok := strings.Cut(s, "@")
	if !ok || len(local) > 64 || strings.HasPrefix(local, ".") || strings.HasSuffix(local, ".") || strings.Contains(local, "..") {
		return "", false
	}
	return s, reEmail.MatchString(s)
}

// PasswordTooShort and PasswordTooLong count bytes, which is what bcrypt sees.
func PasswordTooShort(s string) bool { return len(s) < MinPasswordLen }

func PasswordTooLong(s string) bool { return len(s) > MaxPasswordLen }

// Required reports whether every value is non-empty after trimming.
func Required(vals ...string) bool {
	for _, v := range vals {
		if strings.TrimSpace(v) == "" {
			return false
		}
	}
	return true
}
