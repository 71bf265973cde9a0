package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/custodia-labs/bikeindex-cli/internal/adapters/driven/storage/sqlite/migrations"
	"github.com/custodia-labs/bikeindex-cli/internal/core/domain"
	"github.com/custodia-labs/bikeindex-cli/internal/core/ports/driven"
)

// Store is a SQLite-based storage that provides access to the bike and
// upload store interfaces through wrapper types.
type Store struct {
	db   *sql.DB
	path string
}

// NewStore creates a new SQLite store at the specified data directory.
// If dataDir is empty, defaults to ~/.bikeindex/data/bikeindex.db.
func NewStore(dataDir string) (*Store, error) {
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		dataDir = filepath.Join(home, ".bikeindex", "data")
	}

	// Ensure directory exists
	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, "bikeindex.db")

	// Open database with WAL mode for better concurrency
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{
		db:   db,
		path: dbPath,
	}

	if err := s.migrate(migrations.FS); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// newStoreWithDB wraps an open database without running migrations.
func newStoreWithDB(db *sql.DB) *Store {
	return &Store{db: db, path: ":external:"}
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// BikeStore returns a BikeStore interface backed by this store.
func (s *Store) BikeStore() driven.BikeStore {
	return &bikeStore{store: s}
}

// UploadStore returns an UploadStore interface backed by this store.
func (s *Store) UploadStore() driven.UploadStore {
	return &uploadStore{store: s}
}

// migrate runs all pending migrations.
func (s *Store) migrate(fsys fs.FS) error {
	// Ensure schema_migrations table exists
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("creating schema_migrations table: %w", err)
	}

	// Get current version
	var currentVersion int
	row := s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations")
	if err := row.Scan(&currentVersion); err != nil {
		return fmt.Errorf("getting current version: %w", err)
	}

	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}

	var upFiles []string
	for _, entry := range entries {
		name := entry.Name()
		if strings.HasSuffix(name, ".up.sql") {
			upFiles = append(upFiles, name)
		}
	}
	sort.Strings(upFiles)

	for _, name := range upFiles {
		// "001_initial.up.sql" is version 1
		var version int
		if _, err := fmt.Sscanf(name, "%d_", &version); err != nil {
			continue
		}
		if version <= currentVersion {
			continue
		}

		content, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", name, err)
		}
		if err := s.apply(name, string(content)); err != nil {
			return err
		}
	}

	return nil
}

// apply runs one migration file atomically.
func (s *Store) apply(name, script string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("starting migration %s: %w", name, err)
	}
	if _, err := tx.Exec(script); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("executing migration %s: %w", name, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing migration %s: %w", name, err)
	}
	return nil
}

// ==================== Bike Store ====================

// bikeStore implements driven.BikeStore.
type bikeStore struct {
	store *Store
}

var _ driven.BikeStore = (*bikeStore)(nil)

// Save stores or updates a bike.
func (s *bikeStore) Save(ctx context.Context, bike domain.Bike) error {
	imagesJSON, err := json.Marshal(bike.Images)
	if err != nil {
		return fmt.Errorf("marshalling images: %w", err)
	}
	if bike.Images == nil {
		imagesJSON = []byte("[]")
	}
	updatedAt := bike.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = time.Now()
	}

	_, err = s.store.db.ExecContext(ctx, `
		INSERT INTO bikes (id, title, serial, manufacturer, images, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			title = excluded.title,
			serial = excluded.serial,
			manufacturer = excluded.manufacturer,
			images = excluded.images,
			updated_at = excluded.updated_at
	`, bike.ID, bike.Title, bike.Serial, bike.Manufacturer, string(imagesJSON), updatedAt.UTC())
	if err != nil {
		return fmt.Errorf("saving bike: %w", err)
	}
	return nil
}

// Get retrieves a bike by ID.
func (s *bikeStore) Get(ctx context.Context, id int64) (*domain.Bike, error) {
	row := s.store.db.QueryRowContext(ctx, `
		SELECT id, title, serial, manufacturer, images, updated_at
		FROM bikes WHERE id = ?
	`, id)

	bike, err := scanBike(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return bike, nil
}

// List returns all stored bikes ordered by ID.
func (s *bikeStore) List(ctx context.Context) ([]domain.Bike, error) {
	rows, err := s.store.db.QueryContext(ctx, `
		SELECT id, title, serial, manufacturer, images, updated_at
		FROM bikes ORDER BY id
	`)
	if err != nil {
		return nil, fmt.Errorf("querying bikes: %w", err)
	}
	defer rows.Close()

	var bikes []domain.Bike
	for rows.Next() {
		bike, err := scanBike(rows)
		if err != nil {
			return nil, err
		}
		bikes = append(bikes, *bike)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating bikes: %w", err)
	}
	return bikes, nil
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanBike(row rowScanner) (*domain.Bike, error) {
	var bike domain.Bike
	var imagesJSON string
	var updatedAt sql.NullTime
	if err := row.Scan(&bike.ID, &bike.Title, &bike.Serial, &bike.Manufacturer,
		&imagesJSON, &updatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scanning bike: %w", err)
	}

	if err := json.Unmarshal([]byte(imagesJSON), &bike.Images); err != nil {
		return nil, fmt.Errorf("unmarshaling images: %w", err)
	}
	if updatedAt.Valid {
		bike.UpdatedAt = updatedAt.Time
	}
	return &bike, nil
}

// ==================== Upload Store ====================

// uploadStore implements driven.UploadStore.
type uploadStore struct {
	store *Store
}

var _ driven.UploadStore = (*uploadStore)(nil)

// Save stores a pending upload.
func (s *uploadStore) Save(ctx context.Context, upload domain.PendingUpload) error {
	_, err := s.store.db.ExecContext(ctx, `
		INSERT INTO pending_uploads (task_id, bike_id, payload_path, request_path, content_type, started_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(task_id) DO UPDATE SET
			bike_id = excluded.bike_id,
			payload_path = excluded.payload_path,
			request_path = excluded.request_path,
			content_type = excluded.content_type,
			started_at = excluded.started_at
	`, upload.TaskID, upload.BikeID, upload.PayloadPath, upload.RequestPath, upload.ContentType, upload.StartedAt.UTC())
	if err != nil {
		return fmt.Errorf("saving pending upload: %w", err)
	}
	return nil
}

// Get retrieves a pending upload by task ID.
func (s *uploadStore) Get(ctx context.Context, taskID string) (*domain.PendingUpload, error) {
	row := s.store.db.QueryRowContext(ctx, `
		SELECT task_id, bike_id, payload_path, request_path, content_type, started_at
		FROM pending_uploads WHERE task_id = ?
	`, taskID)

	var upload domain.PendingUpload
	if err := row.Scan(&upload.TaskID, &upload.BikeID, &upload.PayloadPath,
		&upload.RequestPath, &upload.ContentType, &upload.StartedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("scanning pending upload: %w", err)
	}
	return &upload, nil
}

// List returns all pending uploads, oldest first.
func (s *uploadStore) List(ctx context.Context) ([]domain.PendingUpload, error) {
	rows, err := s.store.db.QueryContext(ctx, `
		SELECT task_id, bike_id, payload_path, request_path, content_type, started_at
		FROM pending_uploads ORDER BY started_at
	`)
	if err != nil {
		return nil, fmt.Errorf("querying pending uploads: %w", err)
	}
	defer rows.Close()

	var uploads []domain.PendingUpload
	for rows.Next() {
		var upload domain.PendingUpload
		if err := rows.Scan(&upload.TaskID, &upload.BikeID, &upload.PayloadPath,
			&upload.RequestPath, &upload.ContentType, &upload.StartedAt); err != nil {
			return nil, fmt.Errorf("scanning pending upload: %w", err)
		}
		uploads = append(uploads, upload)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating pending uploads: %w", err)
	}
	return uploads, nil
}

// Delete removes a pending upload.
func (s *uploadStore) Delete(ctx context.Context, taskID string) error {
	if _, err := s.store.db.ExecContext(ctx, `DELETE FROM pending_uploads WHERE task_id = ?`, taskID); err != nil {
		return fmt.Errorf("deleting pending upload: %w", err)
	}
	return nil
}
