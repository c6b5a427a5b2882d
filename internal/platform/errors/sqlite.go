package errors

// SQLite-specific helpers for the embedded store (modernc.org/sqlite driver).
// Result codes follow the SQLite C API; the primary code is the low byte.

import (
	"context"
	stderrs "errors"
	"fmt"
	"strings"

	sqlite "modernc.org/sqlite"
)

const (
	liteErrBusy       = 5  // SQLITE_BUSY
	liteErrLocked     = 6  // SQLITE_LOCKED
	liteErrConstraint = 19 // SQLITE_CONSTRAINT

	// extended constraint codes: primary | (sub << 8)
	liteErrConstraintUnique     = liteErrConstraint | (8 << 8)
	liteErrConstraintPrimaryKey = liteErrConstraint | (6 << 8)
	liteErrConstraintNotNull    = liteErrConstraint | (5 << 8)
	liteErrConstraintCheck      = liteErrConstraint | (1 << 8)
)

// ExtractSQLiteError returns (*sqlite.Error, true) if the root cause came from the driver
func ExtractSQLiteError(err error) (*sqlite.Error, bool) {
	var se *sqlite.Error
	if stderrs.As(Root(err), &se) {
		return se, true
	}
	return nil, false
}

// DBErrorCodeSQLite maps a sqlite driver error to an ErrorCode with an ok flag
func DBErrorCodeSQLite(err error) (ErrorCode, bool) {
	se, ok := ExtractSQLiteError(err)
	if !ok {
		return ErrorCodeUnknown, false
	}

	code := se.Code()
	switch code {
	case liteErrConstraintUnique, liteErrConstraintPrimaryKey:
		return ErrorCodeDuplicateKey, true
	case liteErrConstraintNotNull, liteErrConstraintCheck:
		return ErrorCodeValidation, true
	}

	switch code & 0xff {
	case liteErrConstraint:
		return ErrorCodeValidation, true
	case liteErrBusy, liteErrLocked:
		// writer contention; retry after the lock clears
		return ErrorCodeDB, true
	}
	return ErrorCodeDB, true
}

// FromSQLite wraps a sqlite error with a mapped ErrorCode and message.
// If err is nil, returns nil
func FromSQLite(err error, msg string) error {
	if err == nil {
		return nil
	}
	if code, ok := DBErrorCodeSQLite(err); ok {
		return Wrap(err, code, msg)
	}
	return Wrap(err, ErrorCodeDB, msg)
}

// FromSQLitef is the formatted variant of FromSQLite
func FromSQLitef(err error, format string, a ...any) error {
	if err == nil {
		return nil
	}
	if code, ok := DBErrorCodeSQLite(err); ok {
		return Wrap(err, code, fmt.Sprintf(format, a...))
	}
	return Wrap(err, ErrorCodeDB, fmt.Sprintf(format, a...))
}

// IsRetryableSQLite reports whether a sqlite error is writer contention
// (SQLITE_BUSY / SQLITE_LOCKED) worth retrying
func IsRetryableSQLite(err error) bool {
	if err == nil {
		return false
	}
	if stderrs.Is(err, context.Canceled) || stderrs.Is(err, context.DeadlineExceeded) {
		return false
	}

	if se, ok := ExtractSQLiteError(err); ok {
		switch se.Code() & 0xff {
		case liteErrBusy, liteErrLocked:
			return true
		default:
			return false
		}
	}

	s := strings.ToLower(Root(err).Error())
	return strings.Contains(s, "database is locked") || strings.Contains(s, "database table is locked")
}
