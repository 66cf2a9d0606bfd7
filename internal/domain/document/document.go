package document

import (
	"fmt"
	"strings"
	"time"
)

// MaxFilenameLength bounds stored filenames.
const MaxFilenameLength = 255

// Chunk is a bounded slice of a document's text, the unit of indexing and retrieval.
type Chunk struct {
	documentID string
	position   int
	text       string
}

// NewChunk creates a chunk at the given position of a document.
func NewChunk(documentID string, position int, text string) Chunk {
	return Chunk{documentID: documentID, position: position, text: text}
}

// DocumentID returns the owning document identifier.
func (c Chunk) DocumentID() string { return c.documentID }

// Position returns the zero-based chunk order within its document.
func (c Chunk) Position() int { return c.position }

// Text returns the chunk text.
func (c Chunk) Text() string { return c.text }

// Document is an uploaded file's extracted text and its chunks (immutable value object).
type Document struct {
	id         string
	filename   string
	text       string
	chunks     []Chunk
	uploadedAt time.Time
}

// New validates and creates a Document from pre-segmented chunk texts.
func New(id, filename, text string, chunks []string, uploadedAt time.Time) (Document, error) {
	if id == "" {
		return Document{}, fmt.Errorf("document ID is required")
	}
	if strings.TrimSpace(filename) == "" {
		return Document{}, fmt.Errorf("filename is required")
	}
	if len(filename) > MaxFilenameLength {
		return Document{}, fmt.Errorf("filename too long (max %d)", MaxFilenameLength)
	}
	if strings.TrimSpace(text) == "" {
		return Document{}, fmt.Errorf("text is required")
	}

	cc := make([]Chunk, len(chunks))
	for i, t := range chunks {
		cc[i] = NewChunk(id, i, t)
	}

	return Document{
		id:         id,
		filename:   filename,
		text:       text,
		chunks:     cc,
		uploadedAt: uploadedAt,
	}, nil
}

// ID returns the document identifier.
func (d *Document) ID() string { return d.id }

// Filename returns the original upload filename.
func (d *Document) Filename() string { return d.filename }

// Text returns the full extracted text.
func (d *Document) Text() string { return d.text }

// Chunks returns a copy of the ordered chunks.
func (d *Document) Chunks() []Chunk {
	out := make([]Chunk, len(d.chunks))
	copy(out, d.chunks)
	return out
}

// ChunkCount returns the number of chunks.
func (d *Document) ChunkCount() int { return len(d.chunks) }

// UploadedAt returns the ingestion timestamp.
func (d *Document) UploadedAt() time.Time { return d.uploadedAt }
