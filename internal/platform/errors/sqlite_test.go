package errors

import (
	"database/sql"
	stderrs "errors"
	"testing"

	_ "modernc.org/sqlite"
)

// openMem opens a throwaway in-memory database through the modernc driver so
// the mapping tests see real driver errors
func openMem(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestDBErrorCodeSQLite_UniqueViolation(t *testing.T) {
	db := openMem(t)
	if _, err := db.Exec(`CREATE TABLE ev (id TEXT PRIMARY KEY)`); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := db.Exec(`INSERT INTO ev (id) VALUES ('a')`); err != nil {
		t.Fatalf("first insert: %v", err)
	}
	_, err := db.Exec(`INSERT INTO ev (id) VALUES ('a')`)
	if err == nil {
		t.Fatalf("expected unique violation")
	}

	code, ok := DBErrorCodeSQLite(err)
	if !ok {
		t.Fatalf("expected ok for driver error, got %v", err)
	}
	if code != ErrorCodeDuplicateKey {
		t.Fatalf("DBErrorCodeSQLite = %v, want DuplicateKey", code)
	}
	if IsRetryableSQLite(err) {
		t.Fatalf("constraint violations must not be retryable")
	}

	wrapped := FromSQLite(err, "save events")
	if CodeOf(wrapped) != ErrorCodeDuplicateKey {
		t.Fatalf("FromSQLite code = %v", CodeOf(wrapped))
	}
}

func TestDBErrorCodeSQLite_NotNull(t *testing.T) {
	db := openMem(t)
	if _, err := db.Exec(`CREATE TABLE sc (user_id TEXT NOT NULL)`); err != nil {
		t.Fatalf("create: %v", err)
	}
	_, err := db.Exec(`INSERT INTO sc (user_id) VALUES (NULL)`)
	if err == nil {
		t.Fatalf("expected not-null violation")
	}
	code, ok := DBErrorCodeSQLite(err)
	if !ok || code != ErrorCodeValidation {
		t.Fatalf("DBErrorCodeSQLite = %v ok=%v, want Validation", code, ok)
	}
}

func TestDBErrorCodeSQLite_ForeignError(t *testing.T) {
	if _, ok := DBErrorCodeSQLite(stderrs.New("nope")); ok {
		t.Fatalf("ok=true for non-driver error")
	}
	if FromSQLite(nil, "x") != nil {
		t.Fatalf("FromSQLite(nil) should be nil")
	}
	if CodeOf(FromSQLite(stderrs.New("boom"), "save")) != ErrorCodeDB {
		t.Fatalf("foreign errors fall back to DB code")
	}
}

func TestIsRetryableSQLite_TextFallback(t *testing.T) {
	if !IsRetryableSQLite(stderrs.New("database is locked (5) (SQLITE_BUSY)")) {
		t.Fatalf("locked text should be retryable")
	}
	if IsRetryableSQLite(stderrs.New("no such table: ev")) {
		t.Fatalf("unrelated text should not be retryable")
	}
	if IsRetryableSQLite(nil) {
		t.Fatalf("nil is not retryable")
	}
}
