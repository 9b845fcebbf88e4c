package report

import (
	"testing"
	"time"

	"github.com/maruel/pmboard/internal/storage/entity"
)

func tasksDB() *entity.Database {
	return &entity.Database{
		ID:   "db1",
		Name: "Tasks",
		Schema: []entity.PropertySchema{
			{ID: "p1", Name: "Status", Type: entity.PropertyTypeStatus, Options: []entity.SelectOption{
				{ID: "opt-todo", Name: "To Do"},
				{ID: "opt-doing", Name: "In Progress"},
				{ID: "s-closed", Name: "Done"},
			}},
			{ID: "p2", Name: "Due Date", Type: entity.PropertyTypeDate},
		},
	}
}

var day = time.Date(2026, 10, 19, 23, 30, 0, 0, time.UTC)

func TestDailySummary(t *testing.T) {
	pages := []entity.Page{
		{ID: "a", Title: "Write docs | draft", Properties: map[string]any{"p1": "opt-doing", "p2": "2026-10-21"}},
		{ID: "b", Title: "Ship", Properties: map[string]any{"p1": "s-closed", "p2": "2026-10-01"}},
		{ID: "c", Title: "Triage", Properties: map[string]any{}},
		{ID: "d", Title: "Legacy", Properties: map[string]any{"p1": "opt-removed"}},
	}
	got := DailySummary(tasksDB(), pages, day)
	want := "# Daily Summary - 2026-10-19\n\n" +
		"**Active Tasks**: 3\n\n" +
		"| Task | Status | Due Date |\n" +
		"| :--- | :--- | :--- |\n" +
		"| Write docs \\| draft | In Progress | 2026-10-21 |\n" +
		"| Triage | Empty | - |\n" +
		"| Legacy | opt-removed | - |\n"
	if got != want {
		t.Errorf("DailySummary() =\n%s\nwant:\n%s", got, want)
	}
}

func TestDailySummary_NoActive(t *testing.T) {
	pages := []entity.Page{{ID: "b", Title: "Ship", Properties: map[string]any{"p1": "s-closed"}}}
	got := DailySummary(tasksDB(), pages, day)
	want := "# Daily Summary - 2026-10-19\n\n**Active Tasks**: 0\n\nNo active tasks. Great job!\n"
	if got != want {
		t.Errorf("DailySummary() = %q, want %q", got, want)
	}
}

func TestActiveTasks(t *testing.T) {
	pages := []entity.Page{
		{ID: "a", Properties: map[string]any{"p1": "s-closed"}},
		{ID: "b", Properties: map[string]any{}},
	}
	tests := []struct {
		name string
		db   *entity.Database
		want int
	}{
		{"status with done", tasksDB(), 1},
		{"no status property", &entity.Database{ID: "x", Name: "X"}, 2},
		{"status without done option", &entity.Database{ID: "x", Name: "X", Schema: []entity.PropertySchema{
			{ID: "p1", Name: "Status", Type: entity.PropertyTypeStatus, Options: []entity.SelectOption{{ID: "s-closed", Name: "Closed"}}},
		}}, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := len(ActiveTasks(tt.db, pages)); got != tt.want {
				t.Errorf("len(ActiveTasks()) = %d, want %d", got, tt.want)
			}
		})
	}
}
