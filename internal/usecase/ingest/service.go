// Package ingest turns uploads into stored, segmented and indexed documents.
package ingest

import (
	"context"
	"fmt"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/kailas-cloud/docqa/internal/domain"
	domdoc "github.com/kailas-cloud/docqa/internal/domain/document"
	"github.com/kailas-cloud/docqa/internal/logger"
	"github.com/kailas-cloud/docqa/internal/repository/vectorindex"
)

// MinTextLength is the shortest extracted text accepted, in runes.
const MinTextLength = 10

// Options controls segmentation.
type Options struct {
	ChunkSize      int
	MinChunkLength int
}

// Result describes an ingested document.
type Result struct {
	Document        domdoc.Document
	VectorDimension int
}

// FileStatus is the per-file part of Status.
type FileStatus struct {
	Filename string
	Chunks   int
}

// Status summarises what is ingested.
type Status struct {
	TotalDocuments   int
	TotalVectors     int
	VectorizerFitted bool
	Files            []FileStatus
}

// Service ingests documents and keeps the vector index in sync with the store.
//
// Every ingestion refits the vector space over all stored chunks and rebuilds
// the index, since vectors from different fits are not comparable.
type Service struct {
	mu        sync.Mutex
	extractor Extractor
	store     DocumentStore
	space     VectorSpace
	index     Index
	opts      Options
	indexSize prometheus.Gauge
	now       func() time.Time
}

// New creates an ingestion service. indexSize may be nil.
func New(
	extractor Extractor,
	store DocumentStore,
	space VectorSpace,
	index Index,
	opts Options,
	indexSize prometheus.Gauge,
) *Service {
	if opts.ChunkSize <= 0 {
		opts.ChunkSize = domdoc.DefaultChunkSize
	}
	if opts.MinChunkLength < 0 {
		opts.MinChunkLength = domdoc.DefaultMinChunkLength
	}
	return &Service{
		extractor: extractor,
		store:     store,
		space:     space,
		index:     index,
		opts:      opts,
		indexSize: indexSize,
		now:       time.Now,
	}
}

// Ingest extracts, segments and stores a file, then rebuilds the index.
func (s *Service) Ingest(ctx context.Context, filename string, data []byte) (Result, error) {
	raw, err := s.extractor.Extract(ctx, filename, data)
	if err != nil {
		return Result{}, fmt.Errorf("extract %s: %w", filename, err)
	}

	text := domdoc.CleanText(raw)
	if utf8.RuneCountInString(text) < MinTextLength {
		return Result{}, domain.NewExtractionError(filename, "extracted text is too short")
	}

	chunks := domdoc.Segment(text, s.opts.ChunkSize, s.opts.MinChunkLength)
	doc, err := domdoc.New(uuid.NewString(), filename, text, chunks, s.now())
	if err != nil {
		return Result{}, fmt.Errorf("%w: %w", domain.ErrInvalidRequest, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.store.Add(ctx, doc); err != nil {
		return Result{}, fmt.Errorf("store document: %w", err)
	}
	if err := s.reindex(ctx); err != nil {
		return Result{}, err
	}

	logger.FromContext(ctx).Info("Document ingested",
		zap.String("document_id", doc.ID()),
		zap.String("filename", filename),
		zap.Int("text_length", utf8.RuneCountInString(text)),
		zap.Int("chunks", doc.ChunkCount()),
	)

	return Result{Document: doc, VectorDimension: s.index.Dimension()}, nil
}

// Clear drops every document, vector and the fitted vocabulary.
func (s *Service) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.store.Clear(ctx); err != nil {
		return fmt.Errorf("clear documents: %w", err)
	}
	s.index.Reset()
	s.space.Reset()
	s.setIndexSize()
	return nil
}

// List returns the stored documents in upload order.
func (s *Service) List(ctx context.Context) ([]domdoc.Document, error) {
	docs, err := s.store.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	return docs, nil
}

// Status reports store and index counters.
func (s *Service) Status(ctx context.Context) (Status, error) {
	docs, err := s.List(ctx)
	if err != nil {
		return Status{}, err
	}
	st := Status{
		TotalDocuments:   len(docs),
		TotalVectors:     s.index.Len(),
		VectorizerFitted: s.space.Fitted(),
		Files:            make([]FileStatus, len(docs)),
	}
	for i := range docs {
		st.Files[i] = FileStatus{Filename: docs[i].Filename(), Chunks: docs[i].ChunkCount()}
	}
	return st, nil
}

// reindex refits the space over every stored chunk and reinserts all vectors.
// Must be called with s.mu held.
func (s *Service) reindex(ctx context.Context) error {
	docs, err := s.store.List(ctx)
	if err != nil {
		return fmt.Errorf("list documents: %w", err)
	}

	var corpus []string
	for i := range docs {
		for _, c := range docs[i].Chunks() {
			corpus = append(corpus, c.Text())
		}
	}

	s.index.Reset()
	defer s.setIndexSize()

	if err := s.space.Fit(corpus); err != nil {
		logger.FromContext(ctx).Warn("Vector space fit failed, retrieval falls back to lexical search",
			zap.Int("chunks", len(corpus)), zap.Error(err))
		return nil
	}

	for i := range docs {
		for _, c := range docs[i].Chunks() {
			ref := vectorindex.Ref{
				DocumentID: docs[i].ID(),
				Filename:   docs[i].Filename(),
				Position:   c.Position(),
				Text:       c.Text(),
			}
			if err := s.index.Insert(s.space.Transform(c.Text()), ref); err != nil {
				return fmt.Errorf("index chunk %d of %s: %w", c.Position(), docs[i].ID(), err)
			}
		}
	}
	return nil
}

func (s *Service) setIndexSize() {
	if s.indexSize != nil {
		s.indexSize.Set(float64(s.index.Len()))
	}
}
