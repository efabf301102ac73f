package repos

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

type dialect struct {
	driver string // database/sql driver name
	goose  string // goose dialect
	dir    string // migrations subdirectory
}

var dialects = map[string]dialect{
	"sqlite":   {driver: "sqlite", goose: "sqlite3", dir: "sqlite"},
	"postgres": {driver: "pgx", goose: "postgres", dir: "postgres"},
	"pgx":      {driver: "pgx", goose: "postgres", dir: "postgres"},
	"mysql":    {driver: "mysql", goose: "mysql", dir: "mysql"},
}

func lookupDialect(name string) (dialect, error) {
	d, ok := dialects[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return dialect{}, fmt.Errorf("unsupported db driver %q", name)
	}
	return d, nil
}

const (
	pgUniqueViolation   = "23505"
	mysqlDuplicateEntry = 1062
	sqliteUniqueMessage = "UNIQUE constraint failed"
)

// isUniqueViolation reports whether err came from a unique index rejecting a row,
// for any of the supported drivers.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	var se *sqlite.Error
	if errors.As(err, &se) {
		return se.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE || strings.Contains(se.Error(), sqliteUniqueMessage)
	}
	var pe *pgconn.PgError
	if errors.As(err, &pe) {
		return pe.Code == pgUniqueViolation
	}
	var me *mysql.MySQLError
	if errors.As(err, &me) {
		return me.Number == mysqlDuplicateEntry
	}
	return strings.Contains(err.Error(), sqliteUniqueMessage)
}
