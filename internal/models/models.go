package models

import "time"

// File type tags as recorded in chunk metadata and document listings.
const (
	FileTypePDF  = "pdf"
	FileTypeText = "text"
	FileTypeDocx = "docx"
	FileTypeXLSX = "xlsx"
)

// Document is the unit of ingestion. It is created once by the
// ingestion orchestrator and immutable afterwards, except for deletion.
type Document struct {
	ID         string    `json:"document_id"`
	Filename   string    `json:"filename"`
	FileType   string    `json:"file_type"`
	Text       string    `json:"-"`
	CreatedAt  time.Time `json:"created_at,omitempty"`
	ChunkCount int       `json:"chunk_count"`
}

// Chunk is a bounded, overlapping substring of a document's text.
// Start and End are byte offsets into the source text.
type Chunk struct {
	DocumentID string `json:"document_id"`
	Index      int    `json:"chunk_index"`
	Text       string `json:"text"`
	Start      int    `json:"start"`
	End        int    `json:"end"`
}

// ChunkMetadata travels with each stored vector and comes back on
// every search hit, so callers can audit which chunk answered.
type ChunkMetadata struct {
	DocumentID string `json:"document_id"`
	ChunkIndex int    `json:"chunk_index"`
	Filename   string `json:"filename"`
	FileType   string `json:"file_type"`
}

// SearchResult is an ephemeral projection of one matching chunk.
// Higher score means more relevant.
type SearchResult struct {
	Text     string        `json:"text"`
	Score    float32       `json:"score"`
	Metadata ChunkMetadata `json:"metadata"`
}

// QueryResult is the answer to one retrieval-augmented query.
// Contexts are ordered highest similarity first and Sources carries
// the matching chunk metadata in the same order.
type QueryResult struct {
	Query    string         `json:"query"`
	Answer   string         `json:"answer"`
	Contexts []string       `json:"contexts"`
	Sources  []SearchResult `json:"sources"`
	TopK     int            `json:"top_k"`
}
