// Package vectorspace implements the process-wide TF-IDF vector space used
// when no semantic embedding provider is available.
package vectorspace

import (
	"errors"
	"math"
	"sort"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/kailas-cloud/docqa/internal/domain/token"
)

// DefaultDimension is the fixed output vector length.
const DefaultDimension = 384

// ErrEmptyVocabulary is returned by Fit when the corpus yields no terms.
var ErrEmptyVocabulary = errors.New("corpus has no terms")

// Stats is a snapshot of the vector space state.
type Stats struct {
	Dimension      int
	Fitted         bool
	VocabularySize int
	Documents      int
}

// Space maps text to fixed-length TF-IDF vectors.
//
// Vectors are computed over the whole fitted vocabulary, L2-normalised and
// then passed through fitDimension, so vocabularies larger than the
// dimension lose their rarest terms.
type Space struct {
	mu        sync.RWMutex
	dimension int
	vocab     map[string]int
	idf       []float64
	documents int

	bootstrapTotal prometheus.Counter
	logger         *zap.Logger
}

// New creates an empty, unfitted space.
// bootstrapTotal counts implicit fits on query text and may be nil.
func New(dimension int, bootstrapTotal prometheus.Counter, logger *zap.Logger) *Space {
	if dimension <= 0 {
		dimension = DefaultDimension
	}
	return &Space{
		dimension:      dimension,
		bootstrapTotal: bootstrapTotal,
		logger:         logger,
	}
}

// Fit replaces the vocabulary and idf weights with ones learned from corpus.
func (s *Space) Fit(corpus []string) error {
	vocab, idf := learn(corpus)
	if len(vocab) == 0 {
		return ErrEmptyVocabulary
	}

	s.mu.Lock()
	s.vocab = vocab
	s.idf = idf
	s.documents = len(corpus)
	s.mu.Unlock()

	s.logger.Debug("Vector space fitted",
		zap.Int("documents", len(corpus)),
		zap.Int("vocabulary", len(vocab)),
	)
	return nil
}

// Transform returns the vector for text; its length is always the space dimension.
// An unfitted space is first fitted on text alone.
func (s *Space) Transform(text string) []float32 {
	if !s.Fitted() {
		s.bootstrap(text)
	}

	terms := token.Tokenize(text)

	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(s.vocab) == 0 {
		return make([]float32, s.dimension)
	}

	row := make([]float64, len(s.vocab))
	for _, t := range terms {
		if col, ok := s.vocab[t]; ok {
			row[col]++
		}
	}

	var norm float64
	for col, tf := range row {
		if tf == 0 {
			continue
		}
		row[col] = tf * s.idf[col]
		norm += row[col] * row[col]
	}
	if norm > 0 {
		norm = math.Sqrt(norm)
		for col := range row {
			row[col] /= norm
		}
	}

	return fitDimension(row, s.dimension)
}

// Fitted reports whether a vocabulary has been learned.
func (s *Space) Fitted() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.vocab != nil
}

// Reset returns the space to its unfitted state.
func (s *Space) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.vocab = nil
	s.idf = nil
	s.documents = 0
}

// Dimension returns the output vector length.
func (s *Space) Dimension() int { return s.dimension }

// Stats returns the current state.
func (s *Space) Stats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Stats{
		Dimension:      s.dimension,
		Fitted:         s.vocab != nil,
		VocabularySize: len(s.vocab),
		Documents:      s.documents,
	}
}

// bootstrap fits the space on a single query. The resulting vocabulary is
// poor until the space is refitted over ingested documents. A vocabulary
// installed by a concurrent Fit is kept.
func (s *Space) bootstrap(text string) {
	vocab, idf := learn([]string{text})
	if len(vocab) == 0 {
		return
	}

	s.mu.Lock()
	if s.vocab != nil {
		s.mu.Unlock()
		return
	}
	s.vocab = vocab
	s.idf = idf
	s.documents = 1
	s.mu.Unlock()

	if s.bootstrapTotal != nil {
		s.bootstrapTotal.Inc()
	}
	s.logger.Warn("Vector space fitted on query text; retrieval quality is degraded until documents are ingested")
}

// fitDimension zero-pads or truncates a dense row to exactly dim entries.
// Truncation drops the columns past dim, which hold the least frequent terms.
func fitDimension(row []float64, dim int) []float32 {
	out := make([]float32, dim)
	for i := 0; i < dim && i < len(row); i++ {
		out[i] = float32(row[i])
	}
	return out
}

// learn builds the vocabulary ordered by document frequency (descending,
// ties broken lexically) and smoothed idf weights ln((1+n)/(1+df))+1.
func learn(corpus []string) (map[string]int, []float64) {
	df := make(map[string]int)
	for _, doc := range corpus {
		seen := make(map[string]struct{})
		for _, t := range token.Tokenize(doc) {
			if _, ok := seen[t]; ok {
				continue
			}
			seen[t] = struct{}{}
			df[t]++
		}
	}
	if len(df) == 0 {
		return nil, nil
	}

	terms := make([]string, 0, len(df))
	for t := range df {
		terms = append(terms, t)
	}
	sort.Slice(terms, func(i, j int) bool {
		if df[terms[i]] != df[terms[j]] {
			return df[terms[i]] > df[terms[j]]
		}
		return terms[i] < terms[j]
	})

	n := float64(len(corpus))
	vocab := make(map[string]int, len(terms))
	idf := make([]float64, len(terms))
	for i, t := range terms {
		vocab[t] = i
		idf[i] = math.Log((1+n)/(1+float64(df[t]))) + 1
	}
	return vocab, idf
}
