package analysis

import (
	"strings"

	domdoc "github.com/kailas-cloud/docqa/internal/domain/document"
)

// Corpus joins the text of every document, each under a file header, and
// returns the joined text with the filenames in upload order.
func Corpus(docs []domdoc.Document) (string, []string) {
	var b strings.Builder
	files := make([]string, 0, len(docs))
	for i := range docs {
		b.WriteString("\n\n=== File: ")
		b.WriteString(docs[i].Filename())
		b.WriteString(" ===\n")
		b.WriteString(docs[i].Text())
		files = append(files, docs[i].Filename())
	}
	return b.String(), files
}
