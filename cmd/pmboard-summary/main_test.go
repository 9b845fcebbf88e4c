package main

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/maruel/pmboard/internal/storage"
	"github.com/maruel/pmboard/internal/storage/entity"
)

func TestSummarize(t *testing.T) {
	dir := t.TempDir()
	fs, err := storage.NewFileStore(dir, nil)
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()
	db := &entity.Database{
		ID:   "tasks",
		Name: "Tasks",
		Schema: []entity.PropertySchema{{
			ID:   "status",
			Name: "Status",
			Type: entity.PropertyTypeStatus,
			Options: []entity.SelectOption{
				{ID: "todo", Name: "To Do"},
				{ID: "done", Name: "Done"},
			},
		}},
	}
	if err := fs.UpsertDatabase(ctx, db); err != nil {
		t.Fatal(err)
	}
	for _, p := range []entity.Page{
		{ID: "a", Title: "Write docs", Properties: map[string]any{"status": "todo"}},
		{ID: "b", Title: "Ship it", Properties: map[string]any{"status": "done"}},
	} {
		p.DatabaseID = "tasks"
		p.CreatedAt = "2026-10-19T09:00:00.000Z"
		p.UpdatedAt = p.CreatedAt
		if err := fs.CreatePage(ctx, &p); err != nil {
			t.Fatal(err)
		}
	}

	day := time.Date(2026, 10, 19, 0, 0, 0, 0, time.UTC)
	md, err := summarize(dir, "Tasks", day)
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"# Daily Summary - 2026-10-19", "**Active Tasks**: 1", "| Write docs | To Do | - |"} {
		if !strings.Contains(md, want) {
			t.Errorf("missing %q in:\n%s", want, md)
		}
	}
	if strings.Contains(md, "Ship it") {
		t.Errorf("done task listed:\n%s", md)
	}

	if _, err := summarize(dir, "Bugs", day); err == nil {
		t.Error("expected error for unknown database")
	}
	if _, err := summarize(dir+"/missing", "Tasks", day); err == nil {
		t.Error("expected error for missing data directory")
	}
}

func TestWriteSummary(t *testing.T) {
	path := filepath.Join(t.TempDir(), "daily-summary.md")
	if err := writeSummary(path, "# Daily Summary\n"); err != nil {
		t.Fatal(err)
	}
	fi, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if got := fi.Mode().Perm(); got != 0o644 {
		t.Errorf("mode = %v, want 0644", got)
	}
	if err := os.Chmod(path, 0o600); err != nil {
		t.Fatal(err)
	}
	if err := writeSummary(path, "again\n"); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "again\n" {
		t.Errorf("content = %q", data)
	}
	if fi, _ := os.Stat(path); fi.Mode().Perm() != 0o600 {
		t.Errorf("mode = %v, want the existing 0600 kept", fi.Mode().Perm())
	}
}
