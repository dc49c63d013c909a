package sqlite

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/tjfontaine/allmovieshub/internal/storage"
)

func TestSQLiteStore_SaveAndListSubmissions(t *testing.T) {
	store, err := New("file:submissions1?mode=memory&cache=shared")
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer store.Close()

	ctx := context.Background()
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	for i, subject := range []string{"first", "second", "third"} {
		rec := &storage.SubmissionRecord{
			Name:      "Jane",
			Email:     "jane@x.com",
			Subject:   subject,
			Message:   "Please add Foo (2024)",
			Outcome:   "delivered",
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		}
		if err := store.SaveSubmission(ctx, rec); err != nil {
			t.Fatalf("SaveSubmission() error = %v", err)
		}
		if rec.ID == "" {
			t.Fatal("SaveSubmission() should assign an ID")
		}
	}

	got, err := store.ListSubmissions(ctx, storage.ListOptions{Limit: 2})
	if err != nil {
		t.Fatalf("ListSubmissions() error = %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("ListSubmissions() count = %d, want 2", len(got))
	}
	if got[0].Subject != "third" || got[1].Subject != "second" {
		t.Errorf("ListSubmissions() order = [%s %s], want [third second]", got[0].Subject, got[1].Subject)
	}

	got, err = store.ListSubmissions(ctx, storage.ListOptions{Limit: 2, Offset: 2})
	if err != nil {
		t.Fatalf("ListSubmissions() error = %v", err)
	}
	if len(got) != 1 || got[0].Subject != "first" {
		t.Errorf("ListSubmissions() page 2 = %+v", got)
	}
}

func TestSQLiteStore_Metadata(t *testing.T) {
	store, err := New("file:metadata1?mode=memory&cache=shared")
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer store.Close()

	ctx := context.Background()

	if _, err := store.GetMetadata(ctx, "missing"); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("GetMetadata() error = %v, want ErrNotFound", err)
	}

	md := &storage.MovieMetadata{
		Key:         storage.MetadataKey("Night Train", 2021),
		Title:       "Night Train",
		Year:        2021,
		Genre:       "thriller",
		Description: "A courier races a storm.",
		Cast:        []string{"Ana Reyes", "Tom Hale"},
		Tags:        []string{"thriller", "train"},
		Model:       "gpt-4o-mini",
	}
	if err := store.SaveMetadata(ctx, md); err != nil {
		t.Fatalf("SaveMetadata() error = %v", err)
	}

	got, err := store.GetMetadata(ctx, md.Key)
	if err != nil {
		t.Fatalf("GetMetadata() error = %v", err)
	}
	if got.Title != md.Title || got.Year != 2021 || got.Description != md.Description {
		t.Errorf("GetMetadata() = %+v", got)
	}
	if len(got.Cast) != 2 || got.Cast[1] != "Tom Hale" {
		t.Errorf("Cast = %v", got.Cast)
	}

	// Replace keeps a single row per key.
	md.Description = "Updated."
	md.Tags = nil
	if err := store.SaveMetadata(ctx, md); err != nil {
		t.Fatalf("SaveMetadata() replace error = %v", err)
	}

	list, err := store.ListMetadata(ctx, storage.ListOptions{})
	if err != nil {
		t.Fatalf("ListMetadata() error = %v", err)
	}
	if len(list) != 1 {
		t.Fatalf("ListMetadata() count = %d, want 1", len(list))
	}
	if list[0].Description != "Updated." {
		t.Errorf("Description = %q, want Updated.", list[0].Description)
	}
	if list[0].Tags == nil || len(list[0].Tags) != 0 {
		t.Errorf("Tags = %#v, want empty slice", list[0].Tags)
	}
}

func TestSQLiteStore_PingAndPersistence(t *testing.T) {
	path := filepath.Join(t.TempDir(), "site.db")

	store, err := New(path)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if err := store.Ping(context.Background()); err != nil {
		t.Fatalf("Ping() error = %v", err)
	}

	rec := &storage.SubmissionRecord{Name: "A", Email: "a@b.com", Subject: "s", Message: "m", Outcome: "received"}
	if err := store.SaveSubmission(context.Background(), rec); err != nil {
		t.Fatalf("SaveSubmission() error = %v", err)
	}
	store.Close()

	if _, err := os.Stat(path); err != nil {
		t.Fatalf("database file missing: %v", err)
	}

	store2, err := New(path)
	if err != nil {
		t.Fatalf("New() reopen error = %v", err)
	}
	defer store2.Close()

	got, err := store2.ListSubmissions(context.Background(), storage.ListOptions{})
	if err != nil {
		t.Fatalf("ListSubmissions() error = %v", err)
	}
	if len(got) != 1 || got[0].ID != rec.ID {
		t.Errorf("ListSubmissions() after reopen = %+v", got)
	}
}
