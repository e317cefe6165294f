package storage

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(":memory:")
	if err != nil {
		t.Fatalf("Open(:memory:) failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// TestMigrationsIdempotent runs Open twice on the same database and verifies
// the schema_version count stays correct (migration not re-applied).
func TestMigrationsIdempotent(t *testing.T) {
	dir := t.TempDir()

	s1, err := Open(dir)
	if err != nil {
		t.Fatalf("first Open failed: %v", err)
	}

	v1, err := s1.AppliedMigrations()
	if err != nil {
		t.Fatalf("AppliedMigrations: %v", err)
	}
	s1.Close()

	s2, err := Open(dir)
	if err != nil {
		t.Fatalf("second Open failed: %v", err)
	}
	defer s2.Close()

	v2, err := s2.AppliedMigrations()
	if err != nil {
		t.Fatalf("AppliedMigrations: %v", err)
	}

	if len(v1) != len(v2) {
		t.Errorf("migration count changed: %d -> %d", len(v1), len(v2))
	}
}

// TestMigrationsOrdered verifies migrations are applied in ascending numeric order.
func TestMigrationsOrdered(t *testing.T) {
	s := openTestStore(t)

	versions, err := s.AppliedMigrations()
	if err != nil {
		t.Fatalf("AppliedMigrations: %v", err)
	}

	if len(versions) == 0 {
		t.Fatal("expected at least one applied migration")
	}

	for i := 1; i < len(versions); i++ {
		if versions[i] <= versions[i-1] {
			t.Errorf("migrations not in ascending order: %v", versions)
			break
		}
	}
}

// TestIndexesExist verifies the migration creates the expected indexes.
func TestIndexesExist(t *testing.T) {
	s := openTestStore(t)

	indexes := []string{
		"idx_documents_filename",
		"idx_documents_created",
		"idx_document_vectors_document_id",
		"idx_interactions_created",
		"idx_interactions_method",
	}
	for _, idx := range indexes {
		var count int
		err := s.db.QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE type='index' AND name=?", idx).Scan(&count)
		if err != nil {
			t.Fatalf("querying index %s: %v", idx, err)
		}
		if count != 1 {
			t.Errorf("index %s not found", idx)
		}
	}
}

func TestDocumentRoundTrip(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	doc := Document{
		ID:        "doc-1",
		Filename:  "guide.txt",
		FileType:  "text",
		Uploaded:  true,
		Chunks:    4,
		CreatedAt: time.Now().UTC().Truncate(time.Second),
	}
	if err := s.SaveDocument(ctx, doc); err != nil {
		t.Fatalf("SaveDocument: %v", err)
	}

	got, err := s.GetDocument(ctx, "doc-1")
	if err != nil {
		t.Fatalf("GetDocument: %v", err)
	}
	if got.Filename != doc.Filename || got.FileType != doc.FileType || got.Chunks != doc.Chunks || !got.Uploaded {
		t.Errorf("got %+v, want %+v", got, doc)
	}
}

func TestGetDocument_NotFound(t *testing.T) {
	s := openTestStore(t)

	_, err := s.GetDocument(context.Background(), "missing")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("error = %v, want ErrNotFound", err)
	}
}

func TestListDocuments_NewestFirst(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	base := time.Now().UTC().Truncate(time.Second)
	for i := 0; i < 3; i++ {
		err := s.SaveDocument(ctx, Document{
			ID:        fmt.Sprintf("doc-%d", i),
			Filename:  fmt.Sprintf("f%d.txt", i),
			FileType:  "text",
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		})
		if err != nil {
			t.Fatalf("SaveDocument: %v", err)
		}
	}

	docs, err := s.ListDocuments(ctx, 10)
	if err != nil {
		t.Fatalf("ListDocuments: %v", err)
	}
	if len(docs) != 3 {
		t.Fatalf("got %d documents, want 3", len(docs))
	}
	if docs[0].ID != "doc-2" {
		t.Errorf("first document = %s, want the newest", docs[0].ID)
	}
}

func TestHasDocument(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	ok, err := s.HasDocument(ctx, "seed.txt")
	if err != nil {
		t.Fatalf("HasDocument: %v", err)
	}
	if ok {
		t.Error("HasDocument reported a document before any were saved")
	}

	if err := s.SaveDocument(ctx, Document{ID: "d1", Filename: "seed.txt", FileType: "text"}); err != nil {
		t.Fatalf("SaveDocument: %v", err)
	}

	ok, err = s.HasDocument(ctx, "seed.txt")
	if err != nil {
		t.Fatalf("HasDocument: %v", err)
	}
	if !ok {
		t.Error("HasDocument missed a saved document")
	}
}

func TestInteractionRoundTrip(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	i := Interaction{
		ID:               "int-1",
		Method:           "validated-agent",
		Prompt:           "What is 2+2?",
		Response:         "4",
		ValidationStatus: "PASSED",
		TotalAttempts:    2,
		CreatedAt:        time.Now().UTC().Truncate(time.Second),
	}
	if err := s.SaveInteraction(ctx, i); err != nil {
		t.Fatalf("SaveInteraction: %v", err)
	}

	got, err := s.GetInteraction(ctx, "int-1")
	if err != nil {
		t.Fatalf("GetInteraction: %v", err)
	}
	if got.Method != i.Method || got.ValidationStatus != i.ValidationStatus || got.TotalAttempts != i.TotalAttempts {
		t.Errorf("got %+v, want %+v", got, i)
	}
}

func TestGetInteraction_NotFound(t *testing.T) {
	s := openTestStore(t)

	_, err := s.GetInteraction(context.Background(), "missing")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("error = %v, want ErrNotFound", err)
	}
}

func TestListInteractions_RespectsLimit(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	base := time.Now().UTC().Truncate(time.Second)
	for i := 0; i < 5; i++ {
		err := s.SaveInteraction(ctx, Interaction{
			ID:        fmt.Sprintf("int-%d", i),
			Method:    "direct",
			Prompt:    "q",
			Response:  "a",
			CreatedAt: base.Add(time.Duration(i) * time.Second),
		})
		if err != nil {
			t.Fatalf("SaveInteraction: %v", err)
		}
	}

	got, err := s.ListInteractions(ctx, 2)
	if err != nil {
		t.Fatalf("ListInteractions: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d interactions, want 2", len(got))
	}
	if got[0].ID != "int-4" {
		t.Errorf("first interaction = %s, want the newest", got[0].ID)
	}
}
