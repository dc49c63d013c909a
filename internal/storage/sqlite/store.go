// Package sqlite provides the SQLite storage adapter for the site.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/tjfontaine/allmovieshub/internal/storage"
)

// Store is a SQLite implementation of storage.Store
type Store struct {
	db *sqlx.DB
}

var _ storage.Store = (*Store)(nil)

// New opens (creating if needed) the database at dsn and applies the schema.
func New(dsn string) (*Store, error) {
	db, err := sqlx.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL; PRAGMA synchronous=NORMAL; PRAGMA busy_timeout=5000;"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	store := &Store{db: db}

	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return store, nil
}

func (s *Store) initSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS contact_submissions (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			email TEXT NOT NULL,
			subject TEXT NOT NULL,
			message TEXT NOT NULL,
			outcome TEXT NOT NULL,
			remote_ip TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMP NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS movie_metadata (
			key TEXT PRIMARY KEY,
			title TEXT NOT NULL,
			year INTEGER NOT NULL DEFAULT 0,
			genre TEXT NOT NULL DEFAULT '',
			description TEXT NOT NULL,
			cast_json TEXT NOT NULL,
			tags_json TEXT NOT NULL,
			model TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMP NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_contact_submissions_created ON contact_submissions(created_at)`,
		`CREATE INDEX IF NOT EXISTS idx_movie_metadata_created ON movie_metadata(created_at)`,
	}

	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("failed to execute schema statement: %w", err)
		}
	}

	return nil
}

func (s *Store) SaveSubmission(ctx context.Context, rec *storage.SubmissionRecord) error {
	if rec.ID == "" {
		rec.ID = uuid.New().String()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}

	query := `INSERT INTO contact_submissions (id, name, email, subject, message, outcome, remote_ip, created_at)
		VALUES (:id, :name, :email, :subject, :message, :outcome, :remote_ip, :created_at)`

	if _, err := s.db.NamedExecContext(ctx, query, rec); err != nil {
		return fmt.Errorf("failed to insert submission: %w", err)
	}
	return nil
}

func (s *Store) ListSubmissions(ctx context.Context, opts storage.ListOptions) ([]*storage.SubmissionRecord, error) {
	opts = opts.Normalized()

	query := `SELECT id, name, email, subject, message, outcome, remote_ip, created_at
		FROM contact_submissions
		ORDER BY created_at DESC, id DESC
		LIMIT ? OFFSET ?`

	result := []*storage.SubmissionRecord{}
	if err := s.db.SelectContext(ctx, &result, query, opts.Limit, opts.Offset); err != nil {
		return nil, fmt.Errorf("failed to list submissions: %w", err)
	}
	return result, nil
}

// metadataRow is the column layout of movie_metadata.
type metadataRow struct {
	Key         string    `db:"key"`
	Title       string    `db:"title"`
	Year        int       `db:"year"`
	Genre       string    `db:"genre"`
	Description string    `db:"description"`
	CastJSON    string    `db:"cast_json"`
	TagsJSON    string    `db:"tags_json"`
	Model       string    `db:"model"`
	CreatedAt   time.Time `db:"created_at"`
}

func (r metadataRow) toMetadata() (*storage.MovieMetadata, error) {
	md := &storage.MovieMetadata{
		Key:         r.Key,
		Title:       r.Title,
		Year:        r.Year,
		Genre:       r.Genre,
		Description: r.Description,
		Model:       r.Model,
		CreatedAt:   r.CreatedAt,
	}
	if err := json.Unmarshal([]byte(r.CastJSON), &md.Cast); err != nil {
		return nil, fmt.Errorf("failed to unmarshal cast: %w", err)
	}
	if err := json.Unmarshal([]byte(r.TagsJSON), &md.Tags); err != nil {
		return nil, fmt.Errorf("failed to unmarshal tags: %w", err)
	}
	return md, nil
}

const metadataColumns = `key, title, year, genre, description, cast_json, tags_json, model, created_at`

func (s *Store) GetMetadata(ctx context.Context, key string) (*storage.MovieMetadata, error) {
	var row metadataRow
	err := s.db.GetContext(ctx, &row, `SELECT `+metadataColumns+` FROM movie_metadata WHERE key = ?`, key)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get metadata: %w", err)
	}
	return row.toMetadata()
}

func (s *Store) SaveMetadata(ctx context.Context, md *storage.MovieMetadata) error {
	if md.CreatedAt.IsZero() {
		md.CreatedAt = time.Now().UTC()
	}

	cast, err := json.Marshal(nonNil(md.Cast))
	if err != nil {
		return fmt.Errorf("failed to marshal cast: %w", err)
	}
	tags, err := json.Marshal(nonNil(md.Tags))
	if err != nil {
		return fmt.Errorf("failed to marshal tags: %w", err)
	}

	row := metadataRow{
		Key:         md.Key,
		Title:       md.Title,
		Year:        md.Year,
		Genre:       md.Genre,
		Description: md.Description,
		CastJSON:    string(cast),
		TagsJSON:    string(tags),
		Model:       md.Model,
		CreatedAt:   md.CreatedAt,
	}

	query := `INSERT OR REPLACE INTO movie_metadata (` + metadataColumns + `)
		VALUES (:key, :title, :year, :genre, :description, :cast_json, :tags_json, :model, :created_at)`

	if _, err := s.db.NamedExecContext(ctx, query, row); err != nil {
		return fmt.Errorf("failed to save metadata: %w", err)
	}
	return nil
}

func (s *Store) ListMetadata(ctx context.Context, opts storage.ListOptions) ([]*storage.MovieMetadata, error) {
	opts = opts.Normalized()

	var rows []metadataRow
	query := `SELECT ` + metadataColumns + ` FROM movie_metadata ORDER BY created_at DESC, key ASC LIMIT ? OFFSET ?`
	if err := s.db.SelectContext(ctx, &rows, query, opts.Limit, opts.Offset); err != nil {
		return nil, fmt.Errorf("failed to list metadata: %w", err)
	}

	result := make([]*storage.MovieMetadata, 0, len(rows))
	for _, row := range rows {
		md, err := row.toMetadata()
		if err != nil {
			return nil, err
		}
		result = append(result, md)
	}
	return result, nil
}

func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) Close() error {
	return s.db.Close()
}

func nonNil(v []string) []string {
	if v == nil {
		return []string{}
	}
	return v
}
