package auth

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

const pgUniqueViolation = "23505"

// ConflictError is a unique constraint violation reported by the store
type ConflictError struct {
	Constraint string
	Err        error
}

func (e *ConflictError) Error() string {
	if e.Constraint == "" {
		return "unique constraint violation"
	}
	return fmt.Sprintf("unique constraint violation: %s", e.Constraint)
}

func (e *ConflictError) Unwrap() error {
	return e.Err
}

// IsConflict reports whether err is a unique constraint violation
func IsConflict(err error) bool {
	var conflict *ConflictError
	return errors.As(err, &conflict)
}

// classifyStoreError turns driver level unique violations into
// *ConflictError and leaves every other error untouched.
func classifyStoreError(err error) error {
	if err == nil {
		return nil
	}

	if IsConflict(err) {
		return err
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
		return &ConflictError{Constraint: pgErr.ConstraintName, Err: err}
	}

	var liteErr *sqlite.Error
	if errors.As(err, &liteErr) && isSQLiteUnique(liteErr.Code()) {
		return &ConflictError{Constraint: sqliteConstraint(liteErr.Error()), Err: err}
	}

	if code, ok := extendedCode(err); ok && isSQLiteUnique(code) {
		return &ConflictError{Constraint: sqliteConstraint(err.Error()), Err: err}
	}

	return err
}

func isSQLiteUnique(code int) bool {
	return code == sqlite3.SQLITE_CONSTRAINT_UNIQUE || code == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY
}

// cgo builds of sqliteshim register mattn/go-sqlite3, whose error value
// exposes the extended result code as a struct field.
func extendedCode(err error) (int, bool) {
	for e := err; e != nil; e = errors.Unwrap(e) {
		v := reflect.ValueOf(e)
		if v.Kind() == reflect.Pointer {
			if v.IsNil() {
				continue
			}
			v = v.Elem()
		}
		if v.Kind() != reflect.Struct {
			continue
		}
		f := v.FieldByName("ExtendedCode")
		if f.IsValid() && f.CanInt() {
			return int(f.Int()), true
		}
	}
	return 0, false
}

// sqliteConstraint extracts "table.column" from the driver message. It is
// informational only, the decision above is made on the result code.
func sqliteConstraint(msg string) string {
	const marker = "constraint failed: "
	idx := strings.LastIndex(msg, marker)
	if idx < 0 {
		return ""
	}
	rest := msg[idx+len(marker):]
	if end := strings.IndexAny(rest, " )"); end >= 0 {
		rest = rest[:end]
	}
	return rest
}
