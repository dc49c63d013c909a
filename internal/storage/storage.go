// Package storage defines the persistence contracts for contact submissions
// and generated movie metadata.
package storage

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"
)

// ErrNotFound is returned when a record does not exist.
var ErrNotFound = errors.New("not found")

// SubmissionRecord is an archived contact form submission.
type SubmissionRecord struct {
	ID        string    `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	Email     string    `json:"email" db:"email"`
	Subject   string    `json:"subject" db:"subject"`
	Message   string    `json:"message" db:"message"`
	Outcome   string    `json:"outcome" db:"outcome"` // delivered, received
	RemoteIP  string    `json:"remote_ip,omitempty" db:"remote_ip"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// MovieMetadata is generated catalog metadata for one title.
type MovieMetadata struct {
	Key         string    `json:"key"`
	Title       string    `json:"title"`
	Year        int       `json:"year,omitempty"`
	Genre       string    `json:"genre,omitempty"`
	Description string    `json:"description"`
	Cast        []string  `json:"cast"`
	Tags        []string  `json:"tags"`
	Model       string    `json:"model,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// ListOptions controls pagination. Zero Limit means the store default.
type ListOptions struct {
	Limit  int
	Offset int
}

// DefaultListLimit is applied when ListOptions.Limit is zero.
const DefaultListLimit = 50

// Normalized clamps the options to sane bounds.
func (o ListOptions) Normalized() ListOptions {
	if o.Limit <= 0 {
		o.Limit = DefaultListLimit
	}
	if o.Limit > 500 {
		o.Limit = 500
	}
	if o.Offset < 0 {
		o.Offset = 0
	}
	return o
}

// SubmissionStore archives accepted contact submissions.
type SubmissionStore interface {
	// SaveSubmission stores rec, assigning ID and CreatedAt when unset.
	SaveSubmission(ctx context.Context, rec *SubmissionRecord) error

	// ListSubmissions returns submissions newest first.
	ListSubmissions(ctx context.Context, opts ListOptions) ([]*SubmissionRecord, error)
}

// MetadataStore caches generated movie metadata.
type MetadataStore interface {
	// GetMetadata returns ErrNotFound when key is unknown.
	GetMetadata(ctx context.Context, key string) (*MovieMetadata, error)

	// SaveMetadata inserts or replaces the entry for md.Key.
	SaveMetadata(ctx context.Context, md *MovieMetadata) error

	// ListMetadata returns entries newest first.
	ListMetadata(ctx context.Context, opts ListOptions) ([]*MovieMetadata, error)
}

// Store is the full storage provider.
type Store interface {
	SubmissionStore
	MetadataStore

	// Ping checks connectivity to the backing database.
	Ping(ctx context.Context) error

	// Close closes the storage connection
	Close() error
}

// MetadataKey derives the cache key for a title and optional year.
func MetadataKey(title string, year int) string {
	key := strings.Join(strings.Fields(strings.ToLower(title)), " ")
	if year > 0 {
		key += "|" + strconv.Itoa(year)
	}
	return key
}
