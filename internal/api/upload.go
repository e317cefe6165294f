package api

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/parley-ai/parley/internal/ingest"
	"github.com/parley-ai/parley/internal/storage"
)

func handleUpload(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)
		defer r.Body.Close()

		file, header, err := r.FormFile("file")
		if err != nil {
			httpError(w, http.StatusBadRequest, "file is required")
			return
		}
		defer file.Close()

		raw, err := io.ReadAll(file)
		if err != nil {
			httpError(w, http.StatusBadRequest, "reading uploaded file: %v", err)
			return
		}

		chunks, err := ingest.IngestUpload(raw, header.Filename)
		if err != nil {
			status, msg := uploadErrorMessage(err)
			httpError(w, status, "%s", msg)
			return
		}

		docID := uuid.NewString()
		created, err := deps.Index.Add(r.Context(), docID, chunks)
		if err != nil {
			httpError(w, upstreamStatus(err), "%v", err)
			return
		}

		if deps.Store != nil {
			doc := storage.Document{
				ID:        docID,
				Filename:  header.Filename,
				FileType:  ingest.FileType(header.Filename),
				Uploaded:  true,
				Chunks:    created,
				CreatedAt: time.Now().UTC(),
			}
			if err := deps.Store.SaveDocument(r.Context(), doc); err != nil {
				httpError(w, http.StatusInternalServerError, "saving document record: %v", err)
				return
			}
		}

		writeJSON(w, struct {
			Message       string `json:"message"`
			Filename      string `json:"filename"`
			ChunksCreated int    `json:"chunks_created"`
			FileType      string `json:"file_type"`
			Status        string `json:"status"`
		}{
			Message:       fmt.Sprintf("Successfully uploaded and processed %s", header.Filename),
			Filename:      header.Filename,
			ChunksCreated: created,
			FileType:      ingest.FileType(header.Filename),
			Status:        "success",
		})
	}
}

// uploadErrorMessage maps ingestion failures to the client-facing payloads.
func uploadErrorMessage(err error) (int, string) {
	var decodeErr *ingest.DecodeError
	switch {
	case errors.Is(err, ingest.ErrUnsupportedFormat):
		return http.StatusBadRequest, "Only .txt, .doc, and .docx files are supported"
	case errors.As(err, &decodeErr):
		return http.StatusBadRequest, decodeErr.Error()
	case errors.Is(err, ingest.ErrEmptyContent):
		return http.StatusBadRequest, "No text content found in the document"
	default:
		return http.StatusInternalServerError, err.Error()
	}
}
