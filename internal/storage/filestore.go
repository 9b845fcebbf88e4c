// Package storage persists databases and pages as JSON collections on disk.
//
// # Layout
//
// Under the root directory:
//   - databases.json: every Database, as one JSON array.
//   - pages/<databaseID>.json: every Page of one database, as one JSON array.
//
// # Concurrency
//
// Every collection is read, modified and written back as a whole. All
// mutations of a FileStore go through a single [Serializer], so two
// read-modify-write cycles never interleave, even on unrelated collections.
// Reads are not serialized; they rely on the atomic file replacement done by
// [WriteJSON] to see either the old or the new collection.
//
// Coordination is per process. Running two processes against the same
// directory can lose updates.
package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"slices"
	"time"

	"github.com/maruel/pmboard/internal/storage/entity"
)

const (
	databasesFile = "databases.json"
	pagesDir      = "pages"
)

// Committer records changed files, e.g. in a version control system.
type Committer interface {
	Commit(ctx context.Context, msg string, files ...string) error
}

// FileStore is the file-backed document store.
type FileStore struct {
	rootDir string
	ser     Serializer
	repo    Committer
	now     func() time.Time
}

// NewFileStore returns a FileStore rooted at rootDir. repo may be nil; when
// set, every successful mutation is committed to it.
func NewFileStore(rootDir string, repo Committer) (*FileStore, error) {
	if rootDir == "" {
		return nil, errors.New("root directory is required")
	}
	if err := EnsureDir(rootDir); err != nil {
		return nil, err
	}
	return &FileStore{rootDir: rootDir, repo: repo, now: time.Now}, nil
}

// RootDir returns the root directory path.
func (fs *FileStore) RootDir() string {
	return fs.rootDir
}

// DatabasesPath returns the path of the database collection file.
func (fs *FileStore) DatabasesPath() string {
	return filepath.Join(fs.rootDir, databasesFile)
}

// PagesPath returns the path of the page collection file of a database.
func (fs *FileStore) PagesPath(databaseID string) string {
	return filepath.Join(fs.rootDir, pagesDir, databaseID+".json")
}

// PagesRelPath returns PagesPath relative to the root directory, with forward
// slashes.
func PagesRelPath(databaseID string) string {
	return pagesDir + "/" + databaseID + ".json"
}

// Databases

// ListDatabases returns every database. It is not serialized with mutations.
func (fs *FileStore) ListDatabases() []entity.Database {
	dbs := ReadJSON[[]entity.Database](fs.DatabasesPath(), nil)
	if dbs == nil {
		return []entity.Database{}
	}
	return dbs
}

// GetDatabase returns the database with the given ID.
func (fs *FileStore) GetDatabase(id string) (*entity.Database, bool) {
	for _, db := range fs.ListDatabases() {
		if db.ID == id {
			return &db, true
		}
	}
	return nil, false
}

// UpsertDatabase replaces the database with the same ID, or appends it.
func (fs *FileStore) UpsertDatabase(ctx context.Context, db *entity.Database) error {
	if err := db.Validate(); err != nil {
		return fmt.Errorf("invalid database: %w", err)
	}
	return fs.ser.Do(ctx, func() error {
		if err := EnsureDir(fs.rootDir); err != nil {
			return err
		}
		dbs := fs.ListDatabases()
		if i := slices.IndexFunc(dbs, func(d entity.Database) bool { return d.ID == db.ID }); i >= 0 {
			dbs[i] = *db.Clone()
		} else {
			dbs = append(dbs, *db.Clone())
		}
		if err := WriteJSON(fs.DatabasesPath(), dbs); err != nil {
			return err
		}
		fs.commit(ctx, "database: upsert "+db.ID, databasesFile)
		return nil
	})
}

// DeleteDatabase removes the database with the given ID. The page collection
// of the database is left untouched. It reports whether the database existed.
func (fs *FileStore) DeleteDatabase(ctx context.Context, id string) (bool, error) {
	return Exclusive(ctx, &fs.ser, func() (bool, error) {
		dbs := fs.ListDatabases()
		kept := slices.DeleteFunc(slices.Clone(dbs), func(d entity.Database) bool { return d.ID == id })
		if len(kept) == len(dbs) {
			return false, nil
		}
		if err := EnsureDir(fs.rootDir); err != nil {
			return false, err
		}
		if err := WriteJSON(fs.DatabasesPath(), kept); err != nil {
			return false, err
		}
		fs.commit(ctx, "database: delete "+id, databasesFile)
		return true, nil
	})
}

// Pages

// ListPages returns every page of a database, or an empty slice when the
// database has no page collection yet. It is not serialized with mutations.
func (fs *FileStore) ListPages(databaseID string) ([]entity.Page, error) {
	if err := entity.ValidateFileID(databaseID); err != nil {
		return nil, err
	}
	if err := EnsureDir(filepath.Join(fs.rootDir, pagesDir)); err != nil {
		return nil, err
	}
	return fs.readPages(databaseID), nil
}

// GetPage returns a page of a database.
func (fs *FileStore) GetPage(databaseID, pageID string) (*entity.Page, bool, error) {
	pages, err := fs.ListPages(databaseID)
	if err != nil {
		return nil, false, err
	}
	for i := range pages {
		if pages[i].ID == pageID {
			return &pages[i], true, nil
		}
	}
	return nil, false, nil
}

// CreatePage appends page to its database's collection as is. The caller
// sets the ID and both timestamps; the store does not check for duplicates.
func (fs *FileStore) CreatePage(ctx context.Context, page *entity.Page) error {
	if err := page.Validate(); err != nil {
		return fmt.Errorf("invalid page: %w", err)
	}
	return fs.ser.Do(ctx, func() error {
		if err := EnsureDir(filepath.Join(fs.rootDir, pagesDir)); err != nil {
			return err
		}
		pages := append(fs.readPages(page.DatabaseID), *page.Clone())
		if err := WriteJSON(fs.PagesPath(page.DatabaseID), pages); err != nil {
			return err
		}
		fs.commit(ctx, fmt.Sprintf("page: create %s/%s", page.DatabaseID, page.ID), PagesRelPath(page.DatabaseID))
		return nil
	})
}

// UpdatePage applies fn to a copy of the page and stores the result.
//
// The page's ID, DatabaseID and CreatedAt cannot be changed by fn; UpdatedAt
// is set by the store to a value strictly greater than the previous one.
// When the page does not exist or fn fails, nothing is written. The returned
// bool reports whether the page was found.
func (fs *FileStore) UpdatePage(ctx context.Context, databaseID, pageID string, fn func(entity.Page) (entity.Page, error)) (*entity.Page, bool, error) {
	if err := entity.ValidateFileID(databaseID); err != nil {
		return nil, false, err
	}
	type result struct {
		page  *entity.Page
		found bool
	}
	r, err := Exclusive(ctx, &fs.ser, func() (result, error) {
		if err := EnsureDir(filepath.Join(fs.rootDir, pagesDir)); err != nil {
			return result{}, err
		}
		pages := fs.readPages(databaseID)
		i := slices.IndexFunc(pages, func(p entity.Page) bool { return p.ID == pageID })
		if i < 0 {
			return result{}, nil
		}
		old := pages[i]
		updated, err := fn(*old.Clone())
		if err != nil {
			return result{found: true}, err
		}
		updated.ID = old.ID
		updated.DatabaseID = old.DatabaseID
		updated.CreatedAt = old.CreatedAt
		updated.UpdatedAt = NextUpdatedAt(fs.now(), old.UpdatedAt)
		pages[i] = updated
		if err := WriteJSON(fs.PagesPath(databaseID), pages); err != nil {
			return result{found: true}, err
		}
		fs.commit(ctx, fmt.Sprintf("page: update %s/%s", databaseID, pageID), PagesRelPath(databaseID))
		return result{page: updated.Clone(), found: true}, nil
	})
	return r.page, r.found, err
}

// DeletePage removes a page from its database's collection. The collection is
// rewritten even when no page matched. It reports whether the page existed.
func (fs *FileStore) DeletePage(ctx context.Context, databaseID, pageID string) (bool, error) {
	if err := entity.ValidateFileID(databaseID); err != nil {
		return false, err
	}
	return Exclusive(ctx, &fs.ser, func() (bool, error) {
		if err := EnsureDir(filepath.Join(fs.rootDir, pagesDir)); err != nil {
			return false, err
		}
		pages := fs.readPages(databaseID)
		kept := slices.DeleteFunc(slices.Clone(pages), func(p entity.Page) bool { return p.ID == pageID })
		if err := WriteJSON(fs.PagesPath(databaseID), kept); err != nil {
			return false, err
		}
		found := len(kept) != len(pages)
		if found {
			fs.commit(ctx, fmt.Sprintf("page: delete %s/%s", databaseID, pageID), PagesRelPath(databaseID))
		}
		return found, nil
	})
}

func (fs *FileStore) readPages(databaseID string) []entity.Page {
	pages := ReadJSON[[]entity.Page](fs.PagesPath(databaseID), nil)
	if pages == nil {
		return []entity.Page{}
	}
	return pages
}

// commit records files in the history repository, if any. The mutation has
// already been written, so a failure is only logged.
func (fs *FileStore) commit(ctx context.Context, msg string, files ...string) {
	if fs.repo == nil {
		return
	}
	if err := fs.repo.Commit(ctx, msg, files...); err != nil {
		slog.WarnContext(ctx, "Failed to commit change", "msg", msg, "err", err)
	}
}
