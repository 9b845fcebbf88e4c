// Command pmboard-summary writes the daily summary of a task database as
// markdown.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/maruel/pmboard/internal/cli"
	"github.com/maruel/pmboard/internal/report"
	"github.com/maruel/pmboard/internal/storage"
)

func main() {
	if err := mainImpl(); err != nil && !errors.Is(err, context.Canceled) {
		fmt.Fprintf(os.Stderr, "pmboard-summary: %v\n", err)
		os.Exit(1)
	}
}

func mainImpl() error {
	dataDir := flag.String("data-dir", "./data", "Data directory")
	name := flag.String("database", report.DefaultDatabase, "Name of the database to summarize")
	out := flag.String("o", "daily-summary.md", "Output file; - for stdout")
	date := flag.String("date", "", "Day of the summary as YYYY-MM-DD; today by default")
	logLevel := flag.String("log-level", "info", "Log level (debug, info, warn, error)")
	flag.Parse()
	if len(flag.Args()) > 0 {
		return fmt.Errorf("unknown arguments: %v", flag.Args())
	}
	level, err := cli.ParseLevel(*logLevel)
	if err != nil {
		return err
	}
	slog.SetDefault(cli.NewLogger(level))

	day := time.Now()
	if *date != "" {
		if day, err = time.Parse(time.DateOnly, *date); err != nil {
			return fmt.Errorf("invalid -date: %w", err)
		}
	}
	md, err := summarize(*dataDir, *name, day)
	if err != nil {
		return err
	}
	if *out == "-" {
		_, err = os.Stdout.WriteString(md)
		return err
	}
	if err := writeSummary(*out, md); err != nil {
		return err
	}
	slog.Info("Summary generated", "path", *out)
	return nil
}

// summarize renders the summary of the database named name in dataDir.
func summarize(dataDir, name string, day time.Time) (string, error) {
	if _, err := os.Stat(dataDir); err != nil {
		return "", err
	}
	fs, err := storage.NewFileStore(dataDir, nil)
	if err != nil {
		return "", err
	}
	for _, db := range fs.ListDatabases() {
		if db.Name != name {
			continue
		}
		pages, err := fs.ListPages(db.ID)
		if err != nil {
			return "", err
		}
		return report.DailySummary(&db, pages, day), nil
	}
	return "", fmt.Errorf("database %q not found", name)
}

// writeSummary replaces path with md.
func writeSummary(path, md string) error {
	return storage.WriteFile(path, strings.NewReader(md))
}
