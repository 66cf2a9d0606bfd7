// Package token splits mixed CJK and Latin text into terms for statistical vectorization.
package token

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// NumericPrefix marks tokens made only of digits and numeric punctuation.
const NumericPrefix = "num_"

var numeric = regexp.MustCompile(`^[\d.,\-]+$`)

// Tokenize normalises text and returns its terms in order.
//
// Text is NFKC-folded and lower-cased. Runs of Han characters become
// overlapping bigrams (a lone Han character stays a unigram). Other runs of
// letters, digits and underscores become single terms; numeric runs keep
// their separators and get NumericPrefix. Everything else is a boundary.
func Tokenize(text string) []string {
	text = strings.ToLower(norm.NFKC.String(text))

	var out []string
	var word, han []rune

	flushWord := func() {
		if len(word) > 0 {
			out = appendWord(out, string(word))
			word = word[:0]
		}
	}
	flushHan := func() {
		out = appendHan(out, han)
		han = han[:0]
	}

	for _, r := range text {
		switch {
		case unicode.Is(unicode.Han, r):
			flushWord()
			han = append(han, r)
		case isWordRune(r) || r == '.' || r == ',' || r == '-':
			flushHan()
			word = append(word, r)
		default:
			flushWord()
			flushHan()
		}
	}
	flushWord()
	flushHan()

	return out
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_'
}

func isSeparator(r rune) bool {
	return r == '.' || r == ',' || r == '-'
}

// appendWord emits a Latin/digit run. Numeric runs stay whole,
// anything else is split on its separators.
func appendWord(out []string, w string) []string {
	w = strings.TrimFunc(w, isSeparator)
	if w == "" {
		return out
	}
	if numeric.MatchString(w) {
		return append(out, NumericPrefix+w)
	}
	for _, part := range strings.FieldsFunc(w, isSeparator) {
		out = append(out, part)
	}
	return out
}

func appendHan(out []string, han []rune) []string {
	switch len(han) {
	case 0:
		return out
	case 1:
		return append(out, string(han))
	}
	for i := 0; i+1 < len(han); i++ {
		out = append(out, string(han[i:i+2]))
	}
	return out
}
