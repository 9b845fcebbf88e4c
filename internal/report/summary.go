// Package report renders markdown reports over the pages of a database.
package report

import (
	"fmt"
	"strings"
	"time"

	"github.com/maruel/pmboard/internal/storage/entity"
)

// Property and option names the daily summary looks for.
const (
	StatusProperty  = "Status"
	DueDateProperty = "Due Date"
	DoneOption      = "Done"
)

// DefaultDatabase is the name of the database summarized by default.
const DefaultDatabase = "Tasks"

// ActiveTasks returns the pages of db that are not done, in order.
//
// A page is done when its Status value refers to the option named Done.
// Without a Status property every page is active.
func ActiveTasks(db *entity.Database, pages []entity.Page) []entity.Page {
	status, ok := db.PropertyByName(StatusProperty)
	if !ok {
		return pages
	}
	done, hasDone := status.OptionByName(DoneOption)
	var out []entity.Page
	for _, p := range pages {
		if hasDone && p.Properties[status.ID] == done.ID {
			continue
		}
		out = append(out, p)
	}
	return out
}

// DailySummary renders the markdown daily summary of db for the given day.
func DailySummary(db *entity.Database, pages []entity.Page, day time.Time) string {
	active := ActiveTasks(db, pages)
	var b strings.Builder
	fmt.Fprintf(&b, "# Daily Summary - %s\n\n", day.UTC().Format(time.DateOnly))
	fmt.Fprintf(&b, "**Active Tasks**: %d\n\n", len(active))
	if len(active) == 0 {
		b.WriteString("No active tasks. Great job!\n")
		return b.String()
	}
	b.WriteString("| Task | Status | Due Date |\n")
	b.WriteString("| :--- | :--- | :--- |\n")
	status, hasStatus := db.PropertyByName(StatusProperty)
	due, hasDue := db.PropertyByName(DueDateProperty)
	for _, p := range active {
		s := "Empty"
		if hasStatus {
			s = statusName(status, p.Properties[status.ID])
		}
		d := "-"
		if hasDue {
			if v := p.Properties[due.ID]; !isEmpty(v) {
				d = fmt.Sprint(v)
			}
		}
		fmt.Fprintf(&b, "| %s | %s | %s |\n", cell(p.Title), cell(s), cell(d))
	}
	return b.String()
}

func statusName(prop *entity.PropertySchema, v any) string {
	if isEmpty(v) {
		return "Empty"
	}
	id := fmt.Sprint(v)
	if o, ok := prop.Option(id); ok {
		return o.Name
	}
	return id
}

func isEmpty(v any) bool {
	return v == nil || v == "" || v == false
}

// cell keeps a value on one table row.
func cell(s string) string {
	s = strings.ReplaceAll(s, "\n", " ")
	return strings.ReplaceAll(s, "|", `\|`)
}
