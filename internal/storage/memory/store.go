package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/tjfontaine/allmovieshub/internal/storage"
)

// Store is an in-memory implementation of storage.Store
type Store struct {
	mu          sync.RWMutex
	submissions []*storage.SubmissionRecord
	metadata    map[string]*storage.MovieMetadata
}

var _ storage.Store = (*Store)(nil)

// New creates a new in-memory store
func New() *Store {
	return &Store{
		metadata: make(map[string]*storage.MovieMetadata),
	}
}

func (s *Store) SaveSubmission(ctx context.Context, rec *storage.SubmissionRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if rec.ID == "" {
		rec.ID = uuid.New().String()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}

	cp := *rec
	s.submissions = append(s.submissions, &cp)
	return nil
}

func (s *Store) ListSubmissions(ctx context.Context, opts storage.ListOptions) ([]*storage.SubmissionRecord, error) {
	opts = opts.Normalized()

	s.mu.RLock()
	defer s.mu.RUnlock()

	// Stored oldest first; walk backwards for newest first.
	result := []*storage.SubmissionRecord{}
	for i := len(s.submissions) - 1 - opts.Offset; i >= 0 && len(result) < opts.Limit; i-- {
		cp := *s.submissions[i]
		result = append(result, &cp)
	}
	return result, nil
}

func (s *Store) GetMetadata(ctx context.Context, key string) (*storage.MovieMetadata, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	md, ok := s.metadata[key]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return cloneMetadata(md), nil
}

func (s *Store) SaveMetadata(ctx context.Context, md *storage.MovieMetadata) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if md.CreatedAt.IsZero() {
		md.CreatedAt = time.Now().UTC()
	}
	s.metadata[md.Key] = cloneMetadata(md)
	return nil
}

func (s *Store) ListMetadata(ctx context.Context, opts storage.ListOptions) ([]*storage.MovieMetadata, error) {
	opts = opts.Normalized()

	s.mu.RLock()
	all := make([]*storage.MovieMetadata, 0, len(s.metadata))
	for _, md := range s.metadata {
		all = append(all, cloneMetadata(md))
	}
	s.mu.RUnlock()

	sort.Slice(all, func(i, j int) bool {
		if all[i].CreatedAt.Equal(all[j].CreatedAt) {
			return all[i].Key < all[j].Key
		}
		return all[i].CreatedAt.After(all[j].CreatedAt)
	})

	if opts.Offset >= len(all) {
		return []*storage.MovieMetadata{}, nil
	}
	end := opts.Offset + opts.Limit
	if end > len(all) {
		end = len(all)
	}
	return all[opts.Offset:end], nil
}

func (s *Store) Ping(ctx context.Context) error {
	return nil
}

func (s *Store) Close() error {
	return nil
}

func cloneMetadata(md *storage.MovieMetadata) *storage.MovieMetadata {
	cp := *md
	cp.Cast = append([]string(nil), md.Cast...)
	cp.Tags = append([]string(nil), md.Tags...)
	return &cp
}
