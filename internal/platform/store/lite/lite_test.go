package lite

import (
	"context"
	"path/filepath"
	"testing"
)

func TestNormalizePath(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"sqlite:///var/lib/ossmk/cache.db", "/var/lib/ossmk/cache.db"},
		{"sqlite://cache.db", "cache.db"},
		{"sqlite:cache.db", "cache.db"},
		{"sqlite:///:memory:", ":memory:"},
		{"sqlite::memory:", ":memory:"},
		{":memory:", ":memory:"},
		{"plain/path.db", "plain/path.db"},
		{"  sqlite:spaced.db ", "spaced.db"},
	}
	for _, c := range cases {
		if got := NormalizePath(c.in); got != c.want {
			t.Fatalf("NormalizePath(%q) = %q want %q", c.in, got, c.want)
		}
	}
}

func TestOpenCreatesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "t.db")

	l, err := Open(context.Background(), Config{Path: path})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer func() { _ = l.Close() }()

	if _, err := l.DB.Exec("CREATE TABLE t (x INTEGER)"); err != nil {
		t.Fatalf("exec: %v", err)
	}
	var n int
	if err := l.DB.QueryRow("SELECT count(*) FROM t").Scan(&n); err != nil {
		t.Fatalf("scan: %v", err)
	}
	if n != 0 {
		t.Fatalf("want empty table, got %d", n)
	}
}

func TestOpenMemory(t *testing.T) {
	l, err := Open(context.Background(), Config{Path: ":memory:"})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer func() { _ = l.Close() }()
	var one int
	if err := l.DB.QueryRow("SELECT 1").Scan(&one); err != nil || one != 1 {
		t.Fatalf("select 1: %v (%d)", err, one)
	}
}
