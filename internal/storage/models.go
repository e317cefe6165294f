package storage

import (
	"errors"
	"time"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("not found")

// Document is one ingested file: a row per upload or seed, with the chunk
// count recorded at ingestion time. Chunk contents live in document_vectors.
type Document struct {
	ID        string    `json:"id"`
	Filename  string    `json:"filename"`
	FileType  string    `json:"file_type"`
	Uploaded  bool      `json:"uploaded"`
	Chunks    int       `json:"chunks"`
	CreatedAt time.Time `json:"created_at"`
}

// Interaction is the audit record of one answered prompt, regardless of
// which strategy produced the answer. Strategy-specific fields are zero for
// strategies that do not use them.
type Interaction struct {
	ID               string    `json:"id"`
	CreatedAt        time.Time `json:"created_at"`
	Method           string    `json:"method"`
	Prompt           string    `json:"prompt"`
	Response         string    `json:"response"`
	ToolUsed         bool      `json:"tool_used,omitempty"`
	ValidationStatus string    `json:"validation_status,omitempty"`
	TotalAttempts    int       `json:"total_attempts,omitempty"`
	ContextDocs      int       `json:"context_docs,omitempty"`
}
