package index

import (
	"context"
	"database/sql"
	"fmt"
	"testing"
	"time"

	_ "modernc.org/sqlite"
)

// openTestDB creates an in-memory SQLite database with the document_vectors table.
func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("opening test db: %v", err)
	}
	_, err = db.Exec(`
		CREATE TABLE document_vectors (
			id TEXT PRIMARY KEY,
			document_id TEXT NOT NULL,
			source TEXT NOT NULL,
			file_type TEXT NOT NULL,
			uploaded INTEGER NOT NULL DEFAULT 0,
			chunk_text TEXT NOT NULL,
			embedding BLOB NOT NULL,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`)
	if err != nil {
		t.Fatalf("creating table: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func makeTestVector(dim int, seed float32) []float32 {
	v := make([]float32, dim)
	for i := range v {
		v[i] = seed + float32(i)*0.001
	}
	return v
}

func testRecord(id string, seed float32) VectorRecord {
	return VectorRecord{
		ID:         id,
		DocumentID: "doc-1",
		Source:     "guide.txt",
		FileType:   "text",
		ChunkText:  "chunk " + id,
		Embedding:  makeTestVector(768, seed),
		CreatedAt:  time.Now().UTC(),
	}
}

func TestInsertAndSearch(t *testing.T) {
	db := openTestDB(t)
	s := NewSQLiteStore(db)
	ctx := context.Background()

	vec := makeTestVector(768, 0.1)
	r := testRecord("r1", 0.1)
	r.ChunkText = "Go is a compiled language"
	if err := s.Insert(ctx, []VectorRecord{r}); err != nil {
		t.Fatalf("Insert: %v", err)
	}

	results, err := s.Search(ctx, vec, 1)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("got %d results, want 1", len(results))
	}
	if results[0].Score < 0.99 {
		t.Errorf("score = %f, want > 0.99", results[0].Score)
	}
	if results[0].ID != "r1" {
		t.Errorf("ID = %q, want %q", results[0].ID, "r1")
	}
	if results[0].ChunkText != "Go is a compiled language" {
		t.Errorf("ChunkText = %q", results[0].ChunkText)
	}
}

func TestSearch_TopK(t *testing.T) {
	db := openTestDB(t)
	s := NewSQLiteStore(db)
	ctx := context.Background()

	var records []VectorRecord
	for i := 0; i < 10; i++ {
		records = append(records, testRecord(fmt.Sprintf("r%d", i), float32(i)*0.01))
	}
	if err := s.Insert(ctx, records); err != nil {
		t.Fatalf("Insert: %v", err)
	}

	results, err := s.Search(ctx, makeTestVector(768, 0.05), 3)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 3 {
		t.Fatalf("got %d results, want 3", len(results))
	}
	for i := 1; i < len(results); i++ {
		if results[i].Score > results[i-1].Score {
			t.Errorf("results not ordered by score: %f before %f", results[i-1].Score, results[i].Score)
		}
	}
}

func TestSearch_EmptyTable(t *testing.T) {
	db := openTestDB(t)
	s := NewSQLiteStore(db)

	results, err := s.Search(context.Background(), makeTestVector(768, 0.1), 5)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 0 {
		t.Errorf("got %d results, want 0", len(results))
	}
}

func TestSearch_TopKZero(t *testing.T) {
	db := openTestDB(t)
	s := NewSQLiteStore(db)

	results, err := s.Search(context.Background(), makeTestVector(768, 0.1), 0)
	if err != nil {
		t.Fatalf("Search with topK=0: %v", err)
	}
	if results != nil {
		t.Errorf("expected nil results for topK=0, got %d", len(results))
	}
}

func TestCount(t *testing.T) {
	db := openTestDB(t)
	s := NewSQLiteStore(db)
	ctx := context.Background()

	count, err := s.Count(ctx)
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if count != 0 {
		t.Errorf("empty count = %d, want 0", count)
	}

	if err := s.Insert(ctx, []VectorRecord{testRecord("r1", 0.1), testRecord("r2", 0.2)}); err != nil {
		t.Fatalf("Insert: %v", err)
	}

	count, err = s.Count(ctx)
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if count != 2 {
		t.Errorf("count = %d, want 2", count)
	}
}

func TestDeleteByDocument(t *testing.T) {
	db := openTestDB(t)
	s := NewSQLiteStore(db)
	ctx := context.Background()

	r1 := testRecord("r1", 0.1)
	r2 := testRecord("r2", 0.2)
	r2.DocumentID = "doc-2"
	if err := s.Insert(ctx, []VectorRecord{r1, r2}); err != nil {
		t.Fatalf("Insert: %v", err)
	}

	n, err := s.DeleteByDocument(ctx, "doc-1")
	if err != nil {
		t.Fatalf("DeleteByDocument: %v", err)
	}
	if n != 1 {
		t.Errorf("deleted %d rows, want 1", n)
	}

	count, err := s.Count(ctx)
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if count != 1 {
		t.Errorf("count after delete = %d, want 1", count)
	}
}

func TestRecordRoundTrip(t *testing.T) {
	db := openTestDB(t)
	s := NewSQLiteStore(db)
	ctx := context.Background()

	r := testRecord("r1", 0.3)
	r.Uploaded = true
	r.FileType = "word"
	if err := s.Insert(ctx, []VectorRecord{r}); err != nil {
		t.Fatalf("Insert: %v", err)
	}

	results, err := s.Search(ctx, r.Embedding, 1)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	got := results[0]
	if !got.Uploaded {
		t.Error("Uploaded flag lost in round trip")
	}
	if got.FileType != "word" {
		t.Errorf("FileType = %q, want word", got.FileType)
	}
	if len(got.Embedding) != 768 {
		t.Errorf("embedding dim = %d, want 768", len(got.Embedding))
	}
}
