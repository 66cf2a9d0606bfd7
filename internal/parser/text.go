package parser

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/simplifiedchinese"

	"github.com/kailas-cloud/docqa/internal/domain"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// decodeText reads UTF-8, falling back to GB18030 (a superset of GBK).
func decodeText(filename string, data []byte) (string, error) {
	data = bytes.TrimPrefix(data, utf8BOM)
	if utf8.Valid(data) {
		return string(data), nil
	}
	out, err := simplifiedchinese.GB18030.NewDecoder().Bytes(data)
	if err != nil {
		return "", extractionError(filename, "cannot decode text: %v", err)
	}
	return string(out), nil
}

// parseCSV renders one line per record with fields joined by " | ".
func parseCSV(filename string, data []byte) (string, error) {
	text, err := decodeText(filename, data)
	if err != nil {
		return "", err
	}

	r := csv.NewReader(strings.NewReader(text))
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	var b strings.Builder
	for {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", extractionError(filename, "malformed csv: %v", err)
		}
		for i := range rec {
			rec[i] = strings.TrimSpace(rec[i])
		}
		b.WriteString(strings.Join(rec, " | "))
		b.WriteByte('\n')
	}
	return b.String(), nil
}

func extractionError(filename, format string, args ...any) error {
	return domain.NewExtractionError(filename, fmt.Sprintf(format, args...))
}
