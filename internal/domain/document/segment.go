package document

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Segmentation policy defaults.
const (
	DefaultChunkSize      = 1000
	DefaultMinChunkLength = 20
)

const (
	paragraphSep    = "\n\n"
	paragraphSepLen = 2
	sentenceSepLen  = 1
)

var (
	blankLine      = regexp.MustCompile(`\n[ \t\r\f\v]*\n`)
	horizontalRuns = regexp.MustCompile(`[ \t\f\v\x{00a0}\x{3000}]+`)
	extraNewlines  = regexp.MustCompile(`\n{3,}`)
)

// CleanText normalises extracted text without destroying paragraph boundaries:
// CRLF becomes LF, runs of horizontal whitespace collapse to one space,
// lines are right-trimmed and more than one blank line collapses to one.
func CleanText(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	text = horizontalRuns.ReplaceAllString(text, " ")

	lines := strings.Split(text, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimRightFunc(l, unicode.IsSpace)
	}
	text = strings.Join(lines, "\n")
	text = extraNewlines.ReplaceAllString(text, paragraphSep)
	return strings.TrimSpace(text)
}

// Segment splits text into chunks of at most chunkSize runes.
//
// Paragraphs (blank-line separated) are packed greedily; a paragraph longer
// than chunkSize is packed sentence by sentence instead. A single sentence
// longer than chunkSize is kept whole. Chunks whose trimmed length is not
// greater than minChunkLength are dropped, unless that would drop every
// chunk, in which case the unsplit text is returned.
func Segment(text string, chunkSize, minChunkLength int) []string {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	if runeLen(text) <= chunkSize {
		return []string{text}
	}

	var chunks []string
	current := ""

	for _, p := range blankLine.Split(text, -1) {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}

		if runeLen(current)+runeLen(p)+paragraphSepLen <= chunkSize {
			if current != "" {
				current += paragraphSep + p
			} else {
				current = p
			}
			continue
		}

		if current != "" {
			chunks = append(chunks, current)
		}
		current = ""

		if runeLen(p) > chunkSize {
			packed, tail := packSentences(p, chunkSize)
			chunks = append(chunks, packed...)
			current = tail
		} else {
			current = p
		}
	}
	if current != "" {
		chunks = append(chunks, current)
	}

	filtered := chunks[:0]
	for _, c := range chunks {
		if runeLen(strings.TrimSpace(c)) > minChunkLength {
			filtered = append(filtered, c)
		}
	}
	if len(filtered) == 0 {
		return []string{text}
	}
	return filtered
}

// packSentences greedily packs the sentences of an oversized paragraph.
// It returns the full chunks and the unflushed remainder.
func packSentences(paragraph string, chunkSize int) ([]string, string) {
	var out []string
	var buf strings.Builder

	for _, s := range splitSentences(paragraph) {
		trimmed := strings.TrimSpace(s)
		if trimmed == "" {
			continue
		}
		cur := strings.TrimSpace(buf.String())
		if cur == "" || runeLen(cur)+runeLen(trimmed)+sentenceSepLen <= chunkSize {
			buf.WriteString(s)
			continue
		}
		out = append(out, cur)
		buf.Reset()
		buf.WriteString(s)
	}

	return out, strings.TrimSpace(buf.String())
}

// splitSentences cuts after every ideographic full stop, after an ASCII
// full stop that ends a word, and at line breaks. Trailing whitespace stays
// attached to its sentence so concatenating the result yields the input.
func splitSentences(text string) []string {
	var out []string
	start := 0
	for i, r := range text {
		end := i + utf8.RuneLen(r)
		switch {
		case r == '。' || r == '\n':
		case r == '.':
			next, _ := utf8.DecodeRuneInString(text[end:])
			if end < len(text) && !unicode.IsSpace(next) {
				continue
			}
		default:
			continue
		}
		for end < len(text) {
			next, size := utf8.DecodeRuneInString(text[end:])
			if next == '\n' || !unicode.IsSpace(next) {
				break
			}
			end += size
		}
		if end > start {
			out = append(out, text[start:end])
			start = end
		}
	}
	if start < len(text) {
		out = append(out, text[start:])
	}
	return out
}

func runeLen(s string) int { return utf8.RuneCountInString(s) }
