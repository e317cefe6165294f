package ingest

import (
	"strings"
	"unicode/utf8"
)

// Window bounds for chunking, counted in runes. Every produced chunk is at
// most ChunkSize characters, and consecutive chunks overlap by exactly
// ChunkOverlap raw characters.
const (
	ChunkSize    = 500
	ChunkOverlap = 50
)

// separators tried in order when looking for a natural cut inside a window.
// The empty fallback is a hard character cut.
var separators = []string{"\n\n", "\n", ". ", "! ", "? ", " "}

// Split cuts text into windows of at most size characters with overlap
// characters shared between consecutive windows. Sizes are counted in runes,
// so multibyte text is never cut mid-character. Cuts prefer natural
// boundaries (paragraph, line, sentence, word) inside the window; when none
// exists the window is cut at exactly size characters.
func Split(text string, size, overlap int) []string {
	runes := []rune(text)
	if len(runes) <= size {
		if strings.TrimSpace(text) == "" {
			return nil
		}
		return []string{text}
	}

	var chunks []string
	start := 0
	for start < len(runes) {
		end := start + size
		if end >= len(runes) {
			appendChunk(&chunks, string(runes[start:]))
			break
		}

		if cut := naturalCut(string(runes[start:end]), overlap); cut > 0 {
			end = start + cut
		}

		appendChunk(&chunks, string(runes[start:end]))
		start = end - overlap
	}
	return chunks
}

// naturalCut returns the best cut position within the window in runes, or 0
// when no boundary leaves enough content to keep the walk advancing. A cut
// must land strictly past the overlap so the next window starts after this
// one.
func naturalCut(window string, overlap int) int {
	for _, sep := range separators {
		idx := strings.LastIndex(window, sep)
		if idx < 0 {
			continue
		}
		// Separators are ASCII, so their length is the same in bytes and runes.
		cut := utf8.RuneCountInString(window[:idx]) + len(sep)
		if cut > overlap {
			return cut
		}
	}
	return 0
}

func appendChunk(chunks *[]string, chunk string) {
	if strings.TrimSpace(chunk) == "" {
		return
	}
	*chunks = append(*chunks, chunk)
}
