package domain

import "time"

// Chunk is one element of the ordered split of the processed text.
type Chunk struct {
	Index int
	Text  string
}

// Collection is a named, persistent group of vector records.
type Collection struct {
	ID         string
	Name       string
	Dimensions int
	CreatedAt  time.Time
}

// VectorRecord is a stored chunk together with its embedding.
// ID is the chunk's position in the full ingestion sequence.
type VectorRecord struct {
	ID         string
	Collection string
	Text       string
	Embedding  []float32
}

// IngestionMarker records that a collection was fully populated from a given text.
type IngestionMarker struct {
	Collection  string
	ContentHash string
	RecordCount int
	Completed   bool
	CompletedAt time.Time
}

// Matches reports whether the marker describes a completed ingestion of the given content.
func (m *IngestionMarker) Matches(contentHash string, recordCount int) bool {
	if m == nil || !m.Completed {
		return false
	}
	return m.ContentHash == contentHash && m.RecordCount == recordCount
}

// SearchResult is a stored record ranked by cosine distance to a query embedding.
type SearchResult struct {
	Record   VectorRecord
	Distance float64
}
