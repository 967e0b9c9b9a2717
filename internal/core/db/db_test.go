package db

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/solatis/rulebuilder/internal/tree"
	"github.com/solatis/rulebuilder/internal/types"
)

func openTestDB(t *testing.T) *sqlx.DB {
	t.Helper()
	db, err := Open("sqlite://" + filepath.Join(t.TempDir(), "nested", "rules.db"))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func migratedStore(t *testing.T, keep int) *DraftStore {
	t.Helper()
	db := openTestDB(t)
	if _, err := MigrateUp(db); err != nil {
		t.Fatalf("MigrateUp failed: %v", err)
	}
	q, err := LoadQueries(db)
	if err != nil {
		t.Fatalf("LoadQueries failed: %v", err)
	}
	return NewDraftStore(q, keep)
}

func TestOpen_UnsupportedScheme(t *testing.T) {
	for _, u := range []string{"mysql://localhost/db", "::bad"} {
		if _, err := Open(u); err == nil {
			t.Errorf("Open(%q) expected error", u)
		}
	}
}

func TestDataSource(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		url        string
		wantDriver string
		wantDSN    string
		wantErr    bool
	}{
		{"sqlite://" + dir + "/a.db", "sqlite3", dir + "/a.db?" + sqlitePragmas, false},
		{"postgres://u:p@localhost/rules?sslmode=disable", "postgres", "postgres://u:p@localhost/rules?sslmode=disable", false},
		{"postgresql://localhost/rules", "postgres", "postgresql://localhost/rules", false},
		{"sqlite://", "", "", true},
		{"mysql://localhost/db", "", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			driver, dsn, err := dataSource(tt.url)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("dataSource(%q) expected error", tt.url)
				}
				return
			}
			if err != nil {
				t.Fatalf("dataSource(%q) error = %v", tt.url, err)
			}
			if driver != tt.wantDriver || dsn != tt.wantDSN {
				t.Errorf("dataSource(%q) = (%q, %q), want (%q, %q)", tt.url, driver, dsn, tt.wantDriver, tt.wantDSN)
			}
		})
	}
}

func TestMigrateUp(t *testing.T) {
	db := openTestDB(t)

	ran, err := MigrateUp(db)
	if err != nil {
		t.Fatalf("MigrateUp failed: %v", err)
	}
	if len(ran) != 1 || ran[0] != "001_initial_schema.sql" {
		t.Fatalf("unexpected applied migrations %v", ran)
	}

	ran, err = MigrateUp(db)
	if err != nil {
		t.Fatalf("second MigrateUp failed: %v", err)
	}
	if len(ran) != 0 {
		t.Errorf("second run should apply nothing, got %v", ran)
	}

	statuses, err := MigrateStatus(db)
	if err != nil {
		t.Fatalf("MigrateStatus failed: %v", err)
	}
	if len(statuses) != 1 || !statuses[0].Applied {
		t.Fatalf("unexpected statuses %+v", statuses)
	}
	if statuses[0].AppliedAt == nil {
		t.Error("applied_at should be parsed")
	}

	var n int
	if err := db.Get(&n, "SELECT COUNT(*) FROM drafts"); err != nil {
		t.Fatalf("drafts table missing: %v", err)
	}
}

func TestMigrateUp_ChecksumMismatch(t *testing.T) {
	db := openTestDB(t)
	if _, err := MigrateUp(db); err != nil {
		t.Fatalf("MigrateUp failed: %v", err)
	}
	if _, err := db.Exec("UPDATE migrations SET checksum = 'tampered'"); err != nil {
		t.Fatal(err)
	}
	if _, err := MigrateUp(db); err == nil {
		t.Error("expected checksum validation error")
	}
}

func TestSplitStatements(t *testing.T) {
	tests := []struct {
		name string
		sql  string
		want []string
	}{
		{
			name: "comments between statements",
			sql: `-- header
CREATE TABLE a (id TEXT);

-- second
CREATE INDEX idx ON a (id);
-- trailing`,
			want: []string{"CREATE TABLE a (id TEXT)", "CREATE INDEX idx ON a (id)"},
		},
		{
			name: "semicolon inside comment",
			sql:  "-- a; b\nCREATE TABLE x (y TEXT);",
			want: []string{"CREATE TABLE x (y TEXT)"},
		},
		{
			name: "indented comment with semicolons",
			sql:  "CREATE TABLE x (\n  y TEXT -- not split\n  -- one; two; three\n);",
			want: []string{"CREATE TABLE x (\n  y TEXT -- not split\n)"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := splitStatements(tt.sql)
			if len(got) != len(tt.want) {
				t.Fatalf("splitStatements() = %q, want %q", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("statement %d = %q, want %q", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestMigrateUp_EmbeddedSchemasSplitCleanly(t *testing.T) {
	for _, driver := range []string{"sqlite3", "postgres"} {
		fsys, dir, err := migrationsFor(driver)
		if err != nil {
			t.Fatal(err)
		}
		migrations, err := parseMigrationFiles(fsys, dir)
		if err != nil {
			t.Fatalf("%s: parse failed: %v", dir, err)
		}
		for _, m := range migrations {
			for _, stmt := range splitStatements(m.SQL) {
				first := strings.Fields(stmt)[0]
				switch strings.ToUpper(first) {
				case "CREATE", "INSERT", "ALTER", "DROP":
				default:
					t.Errorf("%s/%s: statement starts with %q: %q", dir, m.ID, first, stmt)
				}
			}
		}
	}
}

func sampleTree() *types.Group {
	return &types.Group{Combinator: types.CombinatorAnd, Children: []types.Node{
		types.Condition{Property: "Age", Operator: "between", Value: []any{25.0, 40.0}, DataType: types.DataTypeNumeric, SourceType: types.ScopeGlobal},
		&types.Group{Combinator: types.CombinatorOr, Children: []types.Node{
			types.Condition{Property: "Email", Operator: "Exists", Value: "", DataType: types.DataTypeString, SourceType: types.ScopeInput},
		}},
	}}
}

func TestDraftStore(t *testing.T) {
	ctx := context.Background()
	store := migratedStore(t, 2)
	rule := types.CatalogContext{Workspace: "acme", Rule: "r1"}
	other := types.CatalogContext{Workspace: "acme", Rule: "r2"}

	t.Run("latest on empty store", func(t *testing.T) {
		_, err := store.Latest(ctx, rule)
		if !errors.Is(err, types.ErrDraftNotFound) {
			t.Fatalf("expected ErrDraftNotFound, got %v", err)
		}
	})

	t.Run("save and load", func(t *testing.T) {
		saved, err := store.Save(ctx, rule, sampleTree())
		if err != nil {
			t.Fatalf("Save failed: %v", err)
		}
		if saved.Conditions != 2 {
			t.Errorf("expected 2 conditions, got %d", saved.Conditions)
		}

		latest, err := store.Latest(ctx, rule)
		if err != nil {
			t.Fatalf("Latest failed: %v", err)
		}
		if latest.ID != saved.ID {
			t.Errorf("expected draft %s, got %s", saved.ID, latest.ID)
		}
		root, err := latest.Root()
		if err != nil {
			t.Fatalf("Root failed: %v", err)
		}
		if !tree.Equal(root, sampleTree()) {
			t.Error("stored tree does not round trip")
		}
	})

	t.Run("prunes to keep and isolates rules", func(t *testing.T) {
		if _, err := store.Save(ctx, other, types.NewRoot()); err != nil {
			t.Fatal(err)
		}
		var last Draft
		for i := 0; i < 3; i++ {
			d, err := store.Save(ctx, rule, types.NewRoot())
			if err != nil {
				t.Fatal(err)
			}
			last = d
		}

		drafts, err := store.List(ctx, rule, 10)
		if err != nil {
			t.Fatalf("List failed: %v", err)
		}
		if len(drafts) != 2 {
			t.Fatalf("expected 2 drafts after pruning, got %d", len(drafts))
		}
		if drafts[0].ID != last.ID {
			t.Errorf("expected newest first")
		}

		otherDrafts, err := store.List(ctx, other, 0)
		if err != nil {
			t.Fatal(err)
		}
		if len(otherDrafts) != 1 {
			t.Errorf("other rule should keep its draft, got %d", len(otherDrafts))
		}
	})

	t.Run("delete", func(t *testing.T) {
		n, err := store.Delete(ctx, rule)
		if err != nil {
			t.Fatalf("Delete failed: %v", err)
		}
		if n != 2 {
			t.Errorf("expected 2 deleted, got %d", n)
		}
		if _, err := store.Latest(ctx, rule); !errors.Is(err, types.ErrDraftNotFound) {
			t.Errorf("expected ErrDraftNotFound after delete, got %v", err)
		}
	})
}
