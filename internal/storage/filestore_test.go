package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/maruel/pmboard/internal/storage/entity"
)

const t0 = "2026-10-19T09:00:00.000Z"

func setupStore(t *testing.T) *FileStore {
	t.Helper()
	fs, err := NewFileStore(filepath.Join(t.TempDir(), "data"), nil)
	if err != nil {
		t.Fatalf("NewFileStore failed: %v", err)
	}
	return fs
}

func tasksDatabase() *entity.Database {
	return &entity.Database{
		ID:   "db1",
		Name: "Tasks",
		Schema: []entity.PropertySchema{{
			ID:   "p1",
			Name: "Status",
			Type: entity.PropertyTypeStatus,
			Options: []entity.SelectOption{
				{ID: "opt-todo", Name: "To Do"},
				{ID: "opt-done", Name: "Done"},
			},
		}},
	}
}

func newPage(id string) *entity.Page {
	return &entity.Page{
		ID:         id,
		DatabaseID: "db1",
		Title:      "Task " + id,
		Properties: map[string]any{},
		CreatedAt:  t0,
		UpdatedAt:  t0,
	}
}

type recordingCommitter struct {
	mu   sync.Mutex
	msgs []string
	err  error
}

func (c *recordingCommitter) Commit(_ context.Context, msg string, files ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.msgs = append(c.msgs, fmt.Sprintf("%s %v", msg, files))
	return c.err
}

func TestFileStore_Databases(t *testing.T) {
	t.Run("empty", func(t *testing.T) {
		fs := setupStore(t)
		if got := fs.ListDatabases(); got == nil || len(got) != 0 {
			t.Errorf("ListDatabases() = %v, want empty", got)
		}
		if _, ok := fs.GetDatabase("db1"); ok {
			t.Error("GetDatabase() found a database in an empty store")
		}
	})

	t.Run("upsert then list", func(t *testing.T) {
		fs := setupStore(t)
		if err := fs.UpsertDatabase(t.Context(), tasksDatabase()); err != nil {
			t.Fatal(err)
		}
		want := []entity.Database{*tasksDatabase()}
		if diff := cmp.Diff(want, fs.ListDatabases()); diff != "" {
			t.Errorf("ListDatabases() mismatch (-want +got):\n%s", diff)
		}
		got, ok := fs.GetDatabase("db1")
		if !ok {
			t.Fatal("GetDatabase() did not find db1")
		}
		if diff := cmp.Diff(tasksDatabase(), got); diff != "" {
			t.Errorf("GetDatabase() mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("upsert replaces in place", func(t *testing.T) {
		fs := setupStore(t)
		for _, id := range []string{"a", "db1", "b"} {
			db := tasksDatabase()
			db.ID = id
			if err := fs.UpsertDatabase(t.Context(), db); err != nil {
				t.Fatal(err)
			}
		}
		renamed := tasksDatabase()
		renamed.Name = "Todo"
		renamed.Description = "renamed"
		if err := fs.UpsertDatabase(t.Context(), renamed); err != nil {
			t.Fatal(err)
		}
		dbs := fs.ListDatabases()
		var ids []string
		for _, d := range dbs {
			ids = append(ids, d.ID)
		}
		if diff := cmp.Diff([]string{"a", "db1", "b"}, ids); diff != "" {
			t.Errorf("order mismatch (-want +got):\n%s", diff)
		}
		if dbs[1].Name != "Todo" || dbs[1].Description != "renamed" {
			t.Errorf("db1 = %+v, want replaced", dbs[1])
		}
	})

	t.Run("upsert rejects invalid", func(t *testing.T) {
		fs := setupStore(t)
		db := tasksDatabase()
		db.ID = "../x"
		if err := fs.UpsertDatabase(t.Context(), db); err == nil {
			t.Error("UpsertDatabase() accepted an invalid id")
		}
		if _, err := os.Stat(fs.DatabasesPath()); !os.IsNotExist(err) {
			t.Errorf("databases file written for an invalid database: %v", err)
		}
	})

	t.Run("delete does not cascade", func(t *testing.T) {
		fs := setupStore(t)
		if err := fs.UpsertDatabase(t.Context(), tasksDatabase()); err != nil {
			t.Fatal(err)
		}
		if err := fs.CreatePage(t.Context(), newPage("pg1")); err != nil {
			t.Fatal(err)
		}
		found, err := fs.DeleteDatabase(t.Context(), "db1")
		if err != nil || !found {
			t.Fatalf("DeleteDatabase() = %v, %v; want true, nil", found, err)
		}
		if len(fs.ListDatabases()) != 0 {
			t.Error("database still listed after delete")
		}
		pages, err := fs.ListPages("db1")
		if err != nil || len(pages) != 1 {
			t.Errorf("ListPages() = %v, %v; want the orphaned page", pages, err)
		}
		found, err = fs.DeleteDatabase(t.Context(), "db1")
		if err != nil || found {
			t.Errorf("second DeleteDatabase() = %v, %v; want false, nil", found, err)
		}
	})
}

func TestFileStore_Pages(t *testing.T) {
	t.Run("list without file", func(t *testing.T) {
		fs := setupStore(t)
		pages, err := fs.ListPages("db1")
		if err != nil {
			t.Fatal(err)
		}
		if pages == nil || len(pages) != 0 {
			t.Errorf("ListPages() = %v, want empty", pages)
		}
		if fi, err := os.Stat(filepath.Join(fs.RootDir(), "pages")); err != nil || !fi.IsDir() {
			t.Errorf("pages directory not created: %v", err)
		}
	})

	t.Run("list rejects path escape", func(t *testing.T) {
		fs := setupStore(t)
		if _, err := fs.ListPages("../db1"); err == nil {
			t.Error("ListPages() accepted a path separator")
		}
	})

	t.Run("create then list", func(t *testing.T) {
		fs := setupStore(t)
		p := newPage("pg1")
		p.Content = "# Notes"
		p.Properties["p1"] = "opt-todo"
		if err := fs.CreatePage(t.Context(), p); err != nil {
			t.Fatal(err)
		}
		pages, err := fs.ListPages("db1")
		if err != nil {
			t.Fatal(err)
		}
		if diff := cmp.Diff([]entity.Page{*p}, pages); diff != "" {
			t.Errorf("ListPages() mismatch (-want +got):\n%s", diff)
		}
		if pages[0].UpdatedAt != t0 {
			t.Errorf("UpdatedAt = %q, want %q", pages[0].UpdatedAt, t0)
		}
	})

	t.Run("create keeps duplicates", func(t *testing.T) {
		fs := setupStore(t)
		for range 2 {
			if err := fs.CreatePage(t.Context(), newPage("pg1")); err != nil {
				t.Fatal(err)
			}
		}
		pages, _ := fs.ListPages("db1")
		if len(pages) != 2 {
			t.Errorf("len(pages) = %d, want 2", len(pages))
		}
	})

	t.Run("create rejects invalid", func(t *testing.T) {
		fs := setupStore(t)
		p := newPage("")
		if err := fs.CreatePage(t.Context(), p); err == nil {
			t.Error("CreatePage() accepted an empty id")
		}
	})

	t.Run("get", func(t *testing.T) {
		fs := setupStore(t)
		if err := fs.CreatePage(t.Context(), newPage("pg1")); err != nil {
			t.Fatal(err)
		}
		got, found, err := fs.GetPage("db1", "pg1")
		if err != nil || !found || got.ID != "pg1" {
			t.Errorf("GetPage() = %v, %v, %v", got, found, err)
		}
		if _, found, _ := fs.GetPage("db1", "nope"); found {
			t.Error("GetPage() found a missing page")
		}
	})
}

func TestFileStore_UpdatePage(t *testing.T) {
	t.Run("scenario", func(t *testing.T) {
		fs := setupStore(t)
		if err := fs.UpsertDatabase(t.Context(), tasksDatabase()); err != nil {
			t.Fatal(err)
		}
		if err := fs.CreatePage(t.Context(), &entity.Page{ID: "pg1", DatabaseID: "db1", Title: "Task A", Properties: map[string]any{}, CreatedAt: t0, UpdatedAt: t0}); err != nil {
			t.Fatal(err)
		}
		_, found, err := fs.UpdatePage(t.Context(), "db1", "pg1", func(p entity.Page) (entity.Page, error) {
			p.Properties["p1"] = "opt-done"
			return p, nil
		})
		if err != nil || !found {
			t.Fatalf("UpdatePage() = %v, %v", found, err)
		}
		pages, err := fs.ListPages("db1")
		if err != nil {
			t.Fatal(err)
		}
		if len(pages) != 1 {
			t.Fatalf("len(pages) = %d, want 1", len(pages))
		}
		if got := pages[0].Properties["p1"]; got != "opt-done" {
			t.Errorf(`properties["p1"] = %v, want "opt-done"`, got)
		}
		if !(pages[0].UpdatedAt > t0) {
			t.Errorf("UpdatedAt = %q, want > %q", pages[0].UpdatedAt, t0)
		}
	})

	t.Run("changes only touched fields", func(t *testing.T) {
		fs := setupStore(t)
		fixed := time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC) // Same as t0.
		fs.now = func() time.Time { return fixed }
		orig := newPage("pg1")
		orig.Content = "body"
		orig.Properties["p1"] = "opt-todo"
		if err := fs.CreatePage(t.Context(), orig); err != nil {
			t.Fatal(err)
		}
		got, found, err := fs.UpdatePage(t.Context(), "db1", "pg1", func(p entity.Page) (entity.Page, error) {
			p.Title = "Renamed"
			// Attempts to change immutable fields are ignored.
			p.ID = "other"
			p.DatabaseID = "db2"
			p.CreatedAt = "2030-01-01T00:00:00.000Z"
			p.UpdatedAt = "1999-01-01T00:00:00.000Z"
			return p, nil
		})
		if err != nil || !found {
			t.Fatalf("UpdatePage() = %v, %v", found, err)
		}
		want := *orig
		want.Title = "Renamed"
		want.UpdatedAt = "2026-10-19T09:00:00.001Z"
		if diff := cmp.Diff(&want, got); diff != "" {
			t.Errorf("returned page mismatch (-want +got):\n%s", diff)
		}
		pages, _ := fs.ListPages("db1")
		if diff := cmp.Diff([]entity.Page{want}, pages); diff != "" {
			t.Errorf("stored page mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("updatedAt strictly increases", func(t *testing.T) {
		fs := setupStore(t)
		fixed := time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC)
		fs.now = func() time.Time { return fixed }
		if err := fs.CreatePage(t.Context(), newPage("pg1")); err != nil {
			t.Fatal(err)
		}
		prev := t0
		for i := range 5 {
			got, _, err := fs.UpdatePage(t.Context(), "db1", "pg1", func(p entity.Page) (entity.Page, error) { return p, nil })
			if err != nil {
				t.Fatal(err)
			}
			if !(got.UpdatedAt > prev) {
				t.Fatalf("update %d: UpdatedAt = %q, want > %q", i, got.UpdatedAt, prev)
			}
			if got.CreatedAt != t0 {
				t.Fatalf("update %d: CreatedAt = %q, want %q", i, got.CreatedAt, t0)
			}
			prev = got.UpdatedAt
		}
	})

	t.Run("missing page leaves file unchanged", func(t *testing.T) {
		fs := setupStore(t)
		if err := fs.CreatePage(t.Context(), newPage("pg1")); err != nil {
			t.Fatal(err)
		}
		before, err := os.ReadFile(fs.PagesPath("db1"))
		if err != nil {
			t.Fatal(err)
		}
		called := false
		got, found, err := fs.UpdatePage(t.Context(), "db1", "nope", func(p entity.Page) (entity.Page, error) {
			called = true
			return p, nil
		})
		if err != nil || found || got != nil {
			t.Fatalf("UpdatePage() = %v, %v, %v; want nil, false, nil", got, found, err)
		}
		if called {
			t.Error("mutator called for a missing page")
		}
		after, err := os.ReadFile(fs.PagesPath("db1"))
		if err != nil {
			t.Fatal(err)
		}
		if !bytes.Equal(before, after) {
			t.Errorf("file changed:\nbefore: %s\nafter: %s", before, after)
		}
	})

	t.Run("missing collection", func(t *testing.T) {
		fs := setupStore(t)
		_, found, err := fs.UpdatePage(t.Context(), "db1", "pg1", func(p entity.Page) (entity.Page, error) { return p, nil })
		if err != nil || found {
			t.Fatalf("UpdatePage() = %v, %v; want false, nil", found, err)
		}
		if _, err := os.Stat(fs.PagesPath("db1")); !os.IsNotExist(err) {
			t.Errorf("collection file created: %v", err)
		}
	})

	t.Run("mutator error writes nothing", func(t *testing.T) {
		fs := setupStore(t)
		if err := fs.CreatePage(t.Context(), newPage("pg1")); err != nil {
			t.Fatal(err)
		}
		before, _ := os.ReadFile(fs.PagesPath("db1"))
		wantErr := errors.New("rejected")
		_, found, err := fs.UpdatePage(t.Context(), "db1", "pg1", func(p entity.Page) (entity.Page, error) {
			p.Title = "changed"
			return p, wantErr
		})
		if !errors.Is(err, wantErr) || !found {
			t.Fatalf("UpdatePage() = %v, %v; want found and %v", found, err, wantErr)
		}
		after, _ := os.ReadFile(fs.PagesPath("db1"))
		if !bytes.Equal(before, after) {
			t.Error("file changed after a failed mutation")
		}
	})

	t.Run("mutator works on a copy", func(t *testing.T) {
		fs := setupStore(t)
		p := newPage("pg1")
		p.Properties["tags"] = []any{"a"}
		if err := fs.CreatePage(t.Context(), p); err != nil {
			t.Fatal(err)
		}
		var kept entity.Page
		_, _, err := fs.UpdatePage(t.Context(), "db1", "pg1", func(p entity.Page) (entity.Page, error) {
			kept = p
			return p, nil
		})
		if err != nil {
			t.Fatal(err)
		}
		kept.Properties["tags"].([]any)[0] = "mutated later"
		got, _, _ := fs.GetPage("db1", "pg1")
		if diff := cmp.Diff([]any{"a"}, got.Properties["tags"]); diff != "" {
			t.Errorf("stored value changed through an alias (-want +got):\n%s", diff)
		}
	})
}

func TestFileStore_DeletePage(t *testing.T) {
	t.Run("removes exactly one", func(t *testing.T) {
		fs := setupStore(t)
		var want []entity.Page
		for _, id := range []string{"pg1", "pg2", "pg3"} {
			p := newPage(id)
			p.Properties["p1"] = "opt-" + id
			if err := fs.CreatePage(t.Context(), p); err != nil {
				t.Fatal(err)
			}
			if id != "pg2" {
				want = append(want, *p)
			}
		}
		found, err := fs.DeletePage(t.Context(), "db1", "pg2")
		if err != nil || !found {
			t.Fatalf("DeletePage() = %v, %v; want true, nil", found, err)
		}
		pages, _ := fs.ListPages("db1")
		if diff := cmp.Diff(want, pages); diff != "" {
			t.Errorf("ListPages() mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("keeps sibling numbers exact", func(t *testing.T) {
		fs := setupStore(t)
		if err := EnsureDir(filepath.Join(fs.RootDir(), pagesDir)); err != nil {
			t.Fatal(err)
		}
		data := `[
  {"id": "a", "databaseId": "db1", "title": "A", "properties": {"p": 9007199254740993, "f": 0.1}, "createdAt": "` + t0 + `", "updatedAt": "` + t0 + `"},
  {"id": "b", "databaseId": "db1", "title": "B", "properties": {}, "createdAt": "` + t0 + `", "updatedAt": "` + t0 + `"}
]`
		if err := os.WriteFile(fs.PagesPath("db1"), []byte(data), 0o644); err != nil {
			t.Fatal(err)
		}
		if found, err := fs.DeletePage(t.Context(), "db1", "b"); err != nil || !found {
			t.Fatalf("DeletePage() = %v, %v; want true, nil", found, err)
		}
		raw, err := os.ReadFile(fs.PagesPath("db1"))
		if err != nil {
			t.Fatal(err)
		}
		if !bytes.Contains(raw, []byte(`"p": 9007199254740993`)) {
			t.Errorf("integer was rewritten:\n%s", raw)
		}
		pages, _ := fs.ListPages("db1")
		want := map[string]any{"p": json.Number("9007199254740993"), "f": json.Number("0.1")}
		if len(pages) != 1 {
			t.Fatalf("len(pages) = %d, want 1", len(pages))
		}
		if diff := cmp.Diff(want, pages[0].Properties); diff != "" {
			t.Errorf("properties mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("missing id rewrites unchanged", func(t *testing.T) {
		fs := setupStore(t)
		if err := fs.CreatePage(t.Context(), newPage("pg1")); err != nil {
			t.Fatal(err)
		}
		before, _ := os.ReadFile(fs.PagesPath("db1"))
		found, err := fs.DeletePage(t.Context(), "db1", "nope")
		if err != nil || found {
			t.Fatalf("DeletePage() = %v, %v; want false, nil", found, err)
		}
		after, _ := os.ReadFile(fs.PagesPath("db1"))
		if !bytes.Equal(before, after) {
			t.Error("collection content changed")
		}
	})
}

func TestFileStore_Concurrency(t *testing.T) {
	t.Run("concurrent creates", func(t *testing.T) {
		fs := setupStore(t)
		const n = 50
		var wg sync.WaitGroup
		for i := range n {
			wg.Go(func() {
				if err := fs.CreatePage(t.Context(), newPage(fmt.Sprintf("pg%02d", i))); err != nil {
					t.Error(err)
				}
			})
		}
		wg.Wait()
		pages, _ := fs.ListPages("db1")
		if len(pages) != n {
			t.Fatalf("len(pages) = %d, want %d (lost updates)", len(pages), n)
		}
	})

	t.Run("concurrent updates", func(t *testing.T) {
		fs := setupStore(t)
		p := newPage("pg1")
		p.Properties["count"] = json.Number("0")
		if err := fs.CreatePage(t.Context(), p); err != nil {
			t.Fatal(err)
		}
		const n = 50
		var wg sync.WaitGroup
		for i := range n {
			wg.Go(func() {
				_, _, err := fs.UpdatePage(t.Context(), "db1", "pg1", func(p entity.Page) (entity.Page, error) {
					c, err := p.Properties["count"].(json.Number).Int64()
					if err != nil {
						return p, err
					}
					p.Properties["count"] = json.Number(strconv.FormatInt(c+1, 10))
					p.Properties[fmt.Sprintf("k%02d", i)] = true
					return p, nil
				})
				if err != nil {
					t.Error(err)
				}
			})
		}
		wg.Wait()
		got, _, _ := fs.GetPage("db1", "pg1")
		if c := got.Properties["count"]; c != json.Number(strconv.Itoa(n)) {
			t.Errorf("count = %v, want %d", c, n)
		}
		if len(got.Properties) != n+1 {
			t.Errorf("len(properties) = %d, want %d", len(got.Properties), n+1)
		}
	})

	t.Run("mixed collections", func(t *testing.T) {
		fs := setupStore(t)
		const n = 20
		var wg sync.WaitGroup
		for i := range n {
			wg.Go(func() {
				db := tasksDatabase()
				db.ID = fmt.Sprintf("db%02d", i)
				if err := fs.UpsertDatabase(t.Context(), db); err != nil {
					t.Error(err)
				}
			})
			wg.Go(func() {
				if err := fs.CreatePage(t.Context(), newPage(fmt.Sprintf("pg%02d", i))); err != nil {
					t.Error(err)
				}
			})
		}
		wg.Wait()
		if got := len(fs.ListDatabases()); got != n {
			t.Errorf("len(databases) = %d, want %d", got, n)
		}
		pages, _ := fs.ListPages("db1")
		ids := make([]string, 0, len(pages))
		for _, p := range pages {
			ids = append(ids, p.ID)
		}
		slices.Sort(ids)
		if len(slices.Compact(ids)) != n {
			t.Errorf("pages = %v, want %d distinct", ids, n)
		}
	})

	t.Run("sequential order", func(t *testing.T) {
		fs := setupStore(t)
		ctx := t.Context()
		for _, id := range []string{"pg1", "pg2", "pg3"} {
			if err := fs.CreatePage(ctx, newPage(id)); err != nil {
				t.Fatal(err)
			}
		}
		if _, err := fs.DeletePage(ctx, "db1", "pg1"); err != nil {
			t.Fatal(err)
		}
		if err := fs.CreatePage(ctx, newPage("pg1")); err != nil {
			t.Fatal(err)
		}
		pages, _ := fs.ListPages("db1")
		var ids []string
		for _, p := range pages {
			ids = append(ids, p.ID)
		}
		if diff := cmp.Diff([]string{"pg2", "pg3", "pg1"}, ids); diff != "" {
			t.Errorf("order mismatch (-want +got):\n%s", diff)
		}
	})
}

func TestFileStore_Commit(t *testing.T) {
	c := &recordingCommitter{}
	fs, err := NewFileStore(t.TempDir(), c)
	if err != nil {
		t.Fatal(err)
	}
	ctx := t.Context()
	if err := fs.UpsertDatabase(ctx, tasksDatabase()); err != nil {
		t.Fatal(err)
	}
	if err := fs.CreatePage(ctx, newPage("pg1")); err != nil {
		t.Fatal(err)
	}
	if _, _, err := fs.UpdatePage(ctx, "db1", "pg1", func(p entity.Page) (entity.Page, error) { return p, nil }); err != nil {
		t.Fatal(err)
	}
	if _, _, err := fs.UpdatePage(ctx, "db1", "missing", func(p entity.Page) (entity.Page, error) { return p, nil }); err != nil {
		t.Fatal(err)
	}
	if _, err := fs.DeletePage(ctx, "db1", "missing"); err != nil {
		t.Fatal(err)
	}
	if _, err := fs.DeletePage(ctx, "db1", "pg1"); err != nil {
		t.Fatal(err)
	}
	want := []string{
		"database: upsert db1 [databases.json]",
		"page: create db1/pg1 [pages/db1.json]",
		"page: update db1/pg1 [pages/db1.json]",
		"page: delete db1/pg1 [pages/db1.json]",
	}
	if diff := cmp.Diff(want, c.msgs); diff != "" {
		t.Errorf("commits mismatch (-want +got):\n%s", diff)
	}

	// A failing committer does not fail the mutation.
	c.err = errors.New("git is broken")
	if err := fs.CreatePage(ctx, newPage("pg2")); err != nil {
		t.Errorf("CreatePage() = %v, want nil despite commit failure", err)
	}
}

func TestFileStore_CorruptCollection(t *testing.T) {
	fs := setupStore(t)
	if err := os.WriteFile(fs.DatabasesPath(), []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}
	if got := fs.ListDatabases(); len(got) != 0 {
		t.Errorf("ListDatabases() = %v, want empty", got)
	}
	if err := fs.UpsertDatabase(t.Context(), tasksDatabase()); err != nil {
		t.Fatal(err)
	}
	if got := fs.ListDatabases(); len(got) != 1 {
		t.Errorf("ListDatabases() = %v, want the corrupt file replaced", got)
	}
}
