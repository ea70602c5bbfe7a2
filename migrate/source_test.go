package migrate_test

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"testing/fstest"

	"github.com/jacentio/canopy/migrate"
)

func TestLoad(t *testing.T) {
	fsys := fstest.MapFS{
		"migrations/1478001600_create_posts.up.cql": {Data: []byte(`
-- posts by user
CREATE TABLE posts (user text, id timeuuid, message text, PRIMARY KEY (user, id));
CREATE INDEX ON posts (message);
`)},
		"migrations/1478001600_create_posts.down.cql": {Data: []byte("DROP TABLE posts;")},
		"migrations/1478100000_add_domain.up.cql":     {Data: []byte("ALTER TABLE posts ADD domain text")},
		"migrations/README.md":                        {Data: []byte("ignored")},
	}

	ms, err := migrate.Load(fsys, "migrations")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(ms) != 2 {
		t.Fatalf("expected 2 migrations, got %d", len(ms))
	}
	if ms[0].String() != "1478001600_create_posts" || ms[1].String() != "1478100000_add_domain" {
		t.Errorf("unexpected order: %v, %v", ms[0], ms[1])
	}
	if ms[0].Down == nil {
		t.Error("expected down body for create_posts")
	}
	if ms[1].Down != nil {
		t.Error("expected no down body for add_domain")
	}

	session := &fakeSession{}
	if err := ms[0].Up(context.Background(), session); err != nil {
		t.Fatalf("Up failed: %v", err)
	}
	want := []string{
		"CREATE TABLE posts (user text, id timeuuid, message text, PRIMARY KEY (user, id))",
		"CREATE INDEX ON posts (message)",
	}
	if got := session.statements(); !reflect.DeepEqual(got, want) {
		t.Errorf("expected %q, got %q", want, got)
	}
}

func TestLoad_InvalidFilename(t *testing.T) {
	fsys := fstest.MapFS{
		"m/create_posts.up.cql": {Data: []byte("SELECT 1")},
	}
	if _, err := migrate.Load(fsys, "m"); !errors.Is(err, migrate.ErrInvalidFilename) {
		t.Errorf("expected ErrInvalidFilename, got %v", err)
	}
}

func TestLoad_DownWithoutUp(t *testing.T) {
	fsys := fstest.MapFS{
		"m/1_orphan.down.cql": {Data: []byte("DROP TABLE x")},
	}
	if _, err := migrate.Load(fsys, "m"); err == nil {
		t.Error("expected error for down file without up file")
	}
}

func TestLoad_ConflictingNames(t *testing.T) {
	fsys := fstest.MapFS{
		"m/1_a.up.cql": {Data: []byte("SELECT 1")},
		"m/1_b.up.cql": {Data: []byte("SELECT 2")},
	}
	if _, err := migrate.Load(fsys, "m"); !errors.Is(err, migrate.ErrDuplicateVersion) {
		t.Errorf("expected ErrDuplicateVersion, got %v", err)
	}
}

func TestSplitStatements(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want []string
	}{
		{"single", "SELECT 1", []string{"SELECT 1"}},
		{"trailing semicolon", "SELECT 1;", []string{"SELECT 1"}},
		{"several", "A; B ;\n C", []string{"A", "B", "C"}},
		{"semicolon in literal", "INSERT INTO t (v) VALUES ('a;b');", []string{"INSERT INTO t (v) VALUES ('a;b')"}},
		{"escaped quote", "INSERT INTO t (v) VALUES ('it''s;ok')", []string{"INSERT INTO t (v) VALUES ('it''s;ok')"}},
		{"quoted identifier", `SELECT "a;b" FROM t`, []string{`SELECT "a;b" FROM t`}},
		{"line comments", "-- one;\nA; // two;\nB", []string{"A", "B"}},
		{"block comment", "A /* ; */; B", []string{"A", "B"}},
		{"empty", " ;; \n", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := migrate.SplitStatements(tt.src)
			if err != nil {
				t.Fatalf("SplitStatements failed: %v", err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestSplitStatements_Unterminated(t *testing.T) {
	for _, src := range []string{"SELECT 'abc", "A /* b"} {
		if _, err := migrate.SplitStatements(src); err == nil {
			t.Errorf("SplitStatements(%q): expected error", src)
		}
	}
}
