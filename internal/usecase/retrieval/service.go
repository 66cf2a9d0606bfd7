// Package retrieval ranks document chunks for a query and assembles QA context.
package retrieval

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/kailas-cloud/docqa/internal/domain"
	"github.com/kailas-cloud/docqa/internal/logger"
)

// Mode tells which retrieval path produced a result.
type Mode string

// Retrieval modes, in order of preference.
const (
	ModeVector   Mode = "vector"
	ModeLexical  Mode = "lexical"
	ModeDegraded Mode = "degraded"
)

// Match is a ranked piece of text.
type Match struct {
	Text       string  `json:"text"`
	Filename   string  `json:"filename"`
	Similarity float64 `json:"similarity"`
}

// Query is a retrieval request. Zero values take the service defaults.
type Query struct {
	Text             string
	TopK             int
	MaxContextLength int
}

// Result is the ranked matches plus the context string built from them.
type Result struct {
	Mode    Mode
	Matches []Match
	Context string
}

// Options tunes ranking and context assembly.
type Options struct {
	TopK               int
	MaxContextLength   int
	ScoreThreshold     float64 // minimum vector similarity
	MatchTextLength    int     // runes of document text scored lexically
	DegradedTextLength int     // runes of document text returned in degraded mode
}

// DefaultOptions returns the stock retrieval tuning.
func DefaultOptions() Options {
	return Options{
		TopK:               5,
		MaxContextLength:   2000,
		ScoreThreshold:     0.2,
		MatchTextLength:    2000,
		DegradedTextLength: 8000,
	}
}

// Service runs vector search with lexical and degraded fallbacks.
type Service struct {
	docs      DocumentReader
	index     Index
	vz        Vectorizer
	opts      Options
	modeTotal *prometheus.CounterVec
}

// New creates a retrieval service. modeTotal (label "mode") may be nil.
func New(docs DocumentReader, index Index, vz Vectorizer, opts Options, modeTotal *prometheus.CounterVec) *Service {
	return &Service{docs: docs, index: index, vz: vz, opts: opts, modeTotal: modeTotal}
}

// Search ranks content for q. Vector hits below the score threshold are
// discarded; if none remain the documents are ranked lexically, and if that
// also finds nothing the first documents are returned in degraded mode.
func (s *Service) Search(ctx context.Context, q Query) (Result, error) {
	text := strings.TrimSpace(q.Text)
	if text == "" {
		return Result{}, domain.ErrEmptyQuery
	}
	topK := q.TopK
	if topK <= 0 {
		topK = s.opts.TopK
	}
	maxLen := q.MaxContextLength
	if maxLen <= 0 {
		maxLen = s.opts.MaxContextLength
	}

	docs, err := s.docs.List(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("list documents: %w", err)
	}
	if len(docs) == 0 {
		return Result{}, domain.ErrNoDocuments
	}

	res := Result{Mode: ModeVector}
	res.Matches, err = s.searchVector(text, topK)
	if err != nil {
		logger.FromContext(ctx).Warn("Vector search failed, using lexical search", zap.Error(err))
	}

	if len(res.Matches) == 0 {
		candidates := make([]Candidate, len(docs))
		for i := range docs {
			candidates[i] = Candidate{
				Filename: docs[i].Filename(),
				Text:     truncateRunes(docs[i].Text(), s.opts.MatchTextLength),
			}
		}
		res.Mode = ModeLexical
		res.Matches = SearchLexical(text, candidates, topK, 0)

		if len(res.Matches) == 0 {
			for i := range candidates {
				candidates[i].Text = truncateRunes(docs[i].Text(), s.opts.DegradedTextLength)
			}
			res.Mode = ModeDegraded
			res.Matches = DegradedMatches(candidates, topK, DegradedSimilarity)
		}
	}

	if s.modeTotal != nil {
		s.modeTotal.WithLabelValues(string(res.Mode)).Inc()
	}
	res.Context = BuildContext(res.Matches, maxLen)
	return res, nil
}

func (s *Service) searchVector(text string, k int) ([]Match, error) {
	if s.index.Len() == 0 {
		return nil, nil
	}
	hits, err := s.index.Search(s.vz.Transform(text), k)
	if err != nil {
		return nil, fmt.Errorf("index search: %w", err)
	}

	var out []Match
	for _, h := range hits {
		sim := 1 / (1 + float64(h.Distance))
		if sim < s.opts.ScoreThreshold {
			continue
		}
		out = append(out, Match{Text: h.Ref.Text, Filename: h.Ref.Filename, Similarity: sim})
	}
	return out, nil
}

// BuildContext renders matches as "[file: name | similarity: 0.00]" headed
// blocks separated by blank lines, stopping before maxLen runes. The first
// block is truncated rather than dropped.
func BuildContext(matches []Match, maxLen int) string {
	var b strings.Builder
	used := 0
	for i, m := range matches {
		block := fmt.Sprintf("[file: %s | similarity: %.2f]\n%s", m.Filename, m.Similarity, m.Text)
		sep := 0
		if i > 0 {
			sep = 2
		}
		n := utf8.RuneCountInString(block)
		if used+sep+n > maxLen {
			if i == 0 {
				b.WriteString(truncateRunes(block, maxLen))
			}
			break
		}
		if i > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(block)
		used += sep + n
	}
	return b.String()
}

func truncateRunes(s string, n int) string {
	if n <= 0 || utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}
