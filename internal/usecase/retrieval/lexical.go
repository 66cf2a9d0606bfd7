package retrieval

import (
	"regexp"
	"sort"
	"strings"
)

// DegradedSimilarity is the nominal score of degraded-mode matches.
const DegradedSimilarity = 0.1

var wordPattern = regexp.MustCompile(`[\p{L}\p{M}\p{N}_]{2,}`)

// Candidate is a document considered by the lexical search.
type Candidate struct {
	Filename string
	Text     string
}

// WordSet returns the distinct lower-cased words of at least two characters in text.
func WordSet(text string) map[string]struct{} {
	words := wordPattern.FindAllString(strings.ToLower(text), -1)
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[w] = struct{}{}
	}
	return set
}

// Jaccard returns |a∩b| / |a∪b|. ok is false when both sets are empty.
func Jaccard(a, b map[string]struct{}) (score float64, ok bool) {
	small, large := a, b
	if len(small) > len(large) {
		small, large = large, small
	}
	inter := 0
	for w := range small {
		if _, found := large[w]; found {
			inter++
		}
	}
	union := len(a) + len(b) - inter
	if union == 0 {
		return 0, false
	}
	return float64(inter) / float64(union), true
}

// SearchLexical ranks candidates by word-set Jaccard similarity with query.
// Only scores above minScore are kept; ties keep candidate order; at most k
// matches are returned.
func SearchLexical(query string, docs []Candidate, k int, minScore float64) []Match {
	if k <= 0 {
		return nil
	}
	q := WordSet(query)

	var out []Match
	for _, d := range docs {
		score, ok := Jaccard(q, WordSet(d.Text))
		if !ok || score <= minScore {
			continue
		}
		out = append(out, Match{Text: d.Text, Filename: d.Filename, Similarity: score})
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Similarity > out[j].Similarity
	})
	if len(out) > k {
		out = out[:k]
	}
	return out
}

// DegradedMatches returns the first n candidates verbatim with a nominal similarity.
// It is the explicit last resort when neither vector nor lexical search matched.
func DegradedMatches(docs []Candidate, n int, similarity float64) []Match {
	if n > len(docs) {
		n = len(docs)
	}
	if n <= 0 {
		return nil
	}
	out := make([]Match, n)
	for i := range out {
		out[i] = Match{Text: docs[i].Text, Filename: docs[i].Filename, Similarity: similarity}
	}
	return out
}
