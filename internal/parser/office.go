package parser

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/extrame/xls"
	"github.com/fumiama/go-docx"
	"github.com/xuri/excelize/v2"
)

// maxXLSColumns is the BIFF8 column limit.
const maxXLSColumns = 256

// parseDOCX emits one line per body paragraph; tables are rendered row by row.
func parseDOCX(filename string, data []byte) (text string, err error) {
	defer recoverExtraction(filename, &err)

	doc, err := docx.Parse(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", extractionError(filename, "not a valid word document: %v", err)
	}
	if len(doc.Document.Body.Items) == 0 {
		return "", extractionError(filename, "document has no body")
	}

	var b strings.Builder
	for _, item := range doc.Document.Body.Items {
		switch it := item.(type) {
		case *docx.Paragraph:
			b.WriteString(it.String())
			b.WriteByte('\n')
		case *docx.Table:
			for _, row := range it.TableRows {
				cells := make([]string, 0, len(row.TableCells))
				for _, c := range row.TableCells {
					var parts []string
					for _, p := range c.Paragraphs {
						if s := strings.TrimSpace(p.String()); s != "" {
							parts = append(parts, s)
						}
					}
					cells = append(cells, strings.Join(parts, " "))
				}
				writeRow(&b, cells)
			}
		}
	}
	return b.String(), nil
}

// parseXLSX renders every worksheet as a titled block of tab-separated rows.
func parseXLSX(filename string, data []byte) (text string, err error) {
	defer recoverExtraction(filename, &err)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return "", extractionError(filename, "not a valid excel workbook: %v", err)
	}
	defer func() { _ = f.Close() }()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return "", extractionError(filename, "workbook has no worksheets")
	}

	var b strings.Builder
	for _, name := range sheets {
		rows, err := f.GetRows(name)
		if err != nil {
			return "", extractionError(filename, "read sheet %s: %v", name, err)
		}
		fmt.Fprintf(&b, "Sheet: %s\n", name)
		for _, row := range rows {
			writeRow(&b, row)
		}
		b.WriteString("\n\n")
	}
	return b.String(), nil
}

// parseXLS reads legacy BIFF workbooks in the same layout as parseXLSX.
func parseXLS(filename string, data []byte) (text string, err error) {
	defer recoverExtraction(filename, &err)

	wb, err := xls.OpenReader(bytes.NewReader(data), "utf-8")
	if err != nil {
		return "", extractionError(filename, "not a valid excel workbook: %v", err)
	}
	if wb == nil || wb.NumSheets() == 0 {
		return "", extractionError(filename, "workbook has no worksheets")
	}

	var b strings.Builder
	for i := 0; i < wb.NumSheets(); i++ {
		sheet := wb.GetSheet(i)
		if sheet == nil {
			continue
		}
		fmt.Fprintf(&b, "Sheet: %s\n", sheet.Name)
		for r := 0; r <= int(sheet.MaxRow); r++ {
			row := xlsRow(sheet, r)
			if row == nil {
				continue
			}
			last := row.LastCol()
			if last <= 0 {
				// cells without a ROW record leave the bounds unset
				last = maxXLSColumns
			}
			cells := make([]string, 0, last)
			for c := 0; c < last; c++ {
				cells = append(cells, row.Col(c))
			}
			writeRow(&b, cells)
		}
		b.WriteString("\n\n")
	}
	return b.String(), nil
}

// xlsRow returns nil for rows the sheet does not store; the library
// dereferences missing rows.
func xlsRow(sheet *xls.WorkSheet, i int) (row *xls.Row) {
	defer func() {
		if recover() != nil {
			row = nil
		}
	}()
	return sheet.Row(i)
}

func writeRow(b *strings.Builder, cells []string) {
	for i := range cells {
		cells[i] = strings.TrimSpace(cells[i])
	}
	line := strings.TrimRight(strings.Join(cells, "\t"), "\t")
	if line != "" {
		b.WriteString(line)
		b.WriteByte('\n')
	}
}

// recoverExtraction turns a parser panic on malformed input into an ExtractionError.
func recoverExtraction(filename string, err *error) {
	if r := recover(); r != nil {
		*err = extractionError(filename, "malformed file: %v", r)
	}
}
