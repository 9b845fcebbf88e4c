// Parses YAML seed files and loads them into an empty data directory.

package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/maruel/pmboard/internal/storage/entity"
	"gopkg.in/yaml.v3"
)

// SeedFile is the structure of a seed file.
type SeedFile struct {
	Version   int            `yaml:"version"`
	Databases []SeedDatabase `yaml:"databases"`
}

// SeedDatabase is one database and its initial pages.
type SeedDatabase struct {
	ID          string         `yaml:"id"`
	Name        string         `yaml:"name"`
	Description string         `yaml:"description,omitempty"`
	Schema      []SeedProperty `yaml:"schema"`
	Pages       []SeedPage     `yaml:"pages,omitempty"`
}

// SeedProperty is a property definition.
type SeedProperty struct {
	ID      string       `yaml:"id"`
	Name    string       `yaml:"name"`
	Type    string       `yaml:"type"`
	Options []SeedOption `yaml:"options,omitempty"`
}

// SeedOption is a select, status or multi-select choice.
type SeedOption struct {
	ID    string `yaml:"id"`
	Name  string `yaml:"name"`
	Color string `yaml:"color,omitempty"`
}

// SeedPage is an initial page. Timestamps are set when it is loaded.
type SeedPage struct {
	ID         string         `yaml:"id"`
	Title      string         `yaml:"title"`
	Properties map[string]any `yaml:"properties,omitempty"`
	Content    string         `yaml:"content,omitempty"`
}

// ParseSeed reads and parses a seed file.
// The path is provided by the CLI user, so file inclusion is expected.
func ParseSeed(path string) (*SeedFile, error) {
	data, err := os.ReadFile(path) //nolint:gosec // User-specified seed path
	if err != nil {
		return nil, fmt.Errorf("failed to read seed: %w", err)
	}
	return ParseSeedBytes(data)
}

// ParseSeedBytes parses a seed file from bytes.
func ParseSeedBytes(data []byte) (*SeedFile, error) {
	var s SeedFile
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("failed to parse seed: %w", err)
	}
	if err := s.Validate(); err != nil {
		return nil, fmt.Errorf("invalid seed: %w", err)
	}
	return &s, nil
}

// Validate checks every database and page of the seed.
func (s *SeedFile) Validate() error {
	if s.Version != 1 {
		return fmt.Errorf("unsupported seed version: %d", s.Version)
	}
	seen := map[string]bool{}
	for i := range s.Databases {
		sd := &s.Databases[i]
		db := sd.Database()
		if err := db.Validate(); err != nil {
			return fmt.Errorf("database %d: %w", i, err)
		}
		if seen[db.ID] {
			return fmt.Errorf("database %q: duplicate id", db.ID)
		}
		seen[db.ID] = true
		for j := range sd.Pages {
			p := &sd.Pages[j]
			if p.ID == "" {
				return fmt.Errorf("database %q, page %d: id is required", db.ID, j)
			}
			if p.Title == "" {
				return fmt.Errorf("database %q, page %q: title is required", db.ID, p.ID)
			}
			if _, err := p.properties(db); err != nil {
				return fmt.Errorf("database %q, page %q: %w", db.ID, p.ID, err)
			}
		}
	}
	return nil
}

// Database converts the seed entry to an entity.
func (sd *SeedDatabase) Database() *entity.Database {
	db := &entity.Database{
		ID:          sd.ID,
		Name:        sd.Name,
		Description: sd.Description,
		Schema:      make([]entity.PropertySchema, 0, len(sd.Schema)),
	}
	for _, sp := range sd.Schema {
		p := entity.PropertySchema{ID: sp.ID, Name: sp.Name, Type: entity.PropertyType(sp.Type)}
		for _, o := range sp.Options {
			p.Options = append(p.Options, entity.SelectOption{ID: o.ID, Name: o.Name, Color: o.Color})
		}
		db.Schema = append(db.Schema, p)
	}
	return db
}

// SeedResult counts what Load created.
type SeedResult struct {
	Databases int
	Pages     int
}

// Load creates the seed's databases that do not exist yet, with their pages.
// Existing databases are left untouched, pages included.
func (s *SeedFile) Load(ctx context.Context, fs *FileStore) (SeedResult, error) {
	var res SeedResult
	if s == nil {
		return res, errors.New("nil seed")
	}
	for i := range s.Databases {
		sd := &s.Databases[i]
		if _, ok := fs.GetDatabase(sd.ID); ok {
			slog.InfoContext(ctx, "Seed database already present", "id", sd.ID)
			continue
		}
		db := sd.Database()
		if err := fs.UpsertDatabase(ctx, db); err != nil {
			return res, fmt.Errorf("failed to seed database %q: %w", sd.ID, err)
		}
		res.Databases++
		now := FormatTime(fs.now())
		for _, sp := range sd.Pages {
			props, err := sp.properties(db)
			if err != nil {
				return res, fmt.Errorf("failed to seed page %q: %w", sp.ID, err)
			}
			p := &entity.Page{
				ID:         sp.ID,
				DatabaseID: sd.ID,
				Title:      sp.Title,
				Properties: props,
				Content:    sp.Content,
				CreatedAt:  now,
				UpdatedAt:  now,
			}
			if err := fs.CreatePage(ctx, p); err != nil {
				return res, fmt.Errorf("failed to seed page %q: %w", sp.ID, err)
			}
			res.Pages++
		}
	}
	return res, nil
}

// properties returns the page's values in the form stored on disk, checked
// against db. Null values are dropped.
func (sp *SeedPage) properties(db *entity.Database) (map[string]any, error) {
	out := make(map[string]any, len(sp.Properties))
	for id, raw := range sp.Properties {
		prop, ok := db.Property(id)
		if !ok {
			return nil, fmt.Errorf("unknown property %q", id)
		}
		v, err := entity.ParseValue(prop, fromYAML(raw))
		if err != nil {
			return nil, err
		}
		if !v.Null {
			out[id] = v.Raw()
		}
	}
	return out, nil
}

// fromYAML converts the values yaml.v3 decodes into an any to their JSON
// form. Unquoted dates become time.Time and integers become int or uint64.
func fromYAML(v any) any {
	switch t := v.(type) {
	case time.Time:
		if t.Location() == time.UTC && t.Hour() == 0 && t.Minute() == 0 && t.Second() == 0 && t.Nanosecond() == 0 {
			return t.Format(time.DateOnly)
		}
		return t.Format(time.RFC3339Nano)
	case int:
		return json.Number(strconv.Itoa(t))
	case int64:
		return json.Number(strconv.FormatInt(t, 10))
	case uint64:
		return json.Number(strconv.FormatUint(t, 10))
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = fromYAML(e)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, e := range t {
			out[k] = fromYAML(e)
		}
		return out
	default:
		return v
	}
}
