package parser

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"os"
	"strings"
	"testing"

	"github.com/fumiama/go-docx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"golang.org/x/text/encoding/simplifiedchinese"

	"github.com/kailas-cloud/docqa/internal/domain"
)

// mockRunner is a test double for CommandRunner.
type mockRunner struct {
	lookErr error
	output  []byte
	err     error
	args    []string
}

func (m *mockRunner) LookPath(name string) (string, error) {
	if m.lookErr != nil {
		return "", m.lookErr
	}
	return "/usr/bin/" + name, nil
}

func (m *mockRunner) Run(_ context.Context, _ string, args ...string) ([]byte, error) {
	m.args = args
	return m.output, m.err
}

func buildZip(t *testing.T, files map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, content := range files {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func assertExtractionError(t *testing.T, err error, reason string) {
	t.Helper()
	var ee *domain.ExtractionError
	require.True(t, errors.As(err, &ee), "want ExtractionError, got %v", err)
	assert.Contains(t, ee.Reason, reason)
	assert.ErrorIs(t, err, domain.ErrExtraction)
}

func TestExtract_UnsupportedExtension(t *testing.T) {
	_, err := New(0).Extract(context.Background(), "image.png", []byte("data"))
	assertExtractionError(t, err, "unsupported")
}

func TestExtract_Empty(t *testing.T) {
	_, err := New(0).Extract(context.Background(), "a.txt", nil)
	assertExtractionError(t, err, "empty")
}

func TestExtract_TooLarge(t *testing.T) {
	_, err := New(1<<20).Extract(context.Background(), "a.txt", bytes.Repeat([]byte("a"), 1<<20+1))
	assertExtractionError(t, err, "exceeds 1 MB")
}

func TestExtract_XLS(t *testing.T) {
	data, err := os.ReadFile("testdata/table.xls")
	require.NoError(t, err)

	got, err := New(0).Extract(context.Background(), "legacy.XLS", data)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(got, "Sheet: Table\nCode\tName\tDescription\ncode1\tname1\tdescription1\n"), got)
	assert.Contains(t, got, "code11\tname11\tdescription11\n")
}

func TestExtract_XLSMalformed(t *testing.T) {
	_, err := New(0).Extract(context.Background(), "legacy.xls", []byte("not a compound file"))
	assert.ErrorIs(t, err, domain.ErrExtraction)
}

func TestExtract_TextUTF8(t *testing.T) {
	data := append([]byte{0xEF, 0xBB, 0xBF}, []byte("营业收入 grew")...)
	got, err := New(0).Extract(context.Background(), "a.txt", data)
	require.NoError(t, err)
	assert.Equal(t, "营业收入 grew", got)
}

func TestExtract_TextGBK(t *testing.T) {
	data, err := simplifiedchinese.GBK.NewEncoder().Bytes([]byte("资产负债表"))
	require.NoError(t, err)

	got, err := New(0).Extract(context.Background(), "a.txt", data)
	require.NoError(t, err)
	assert.Equal(t, "资产负债表", got)
}

func TestExtract_CSV(t *testing.T) {
	data := []byte("item,2023,2024\nrevenue, 100 ,120\n\"net, profit\",10\n")
	got, err := New(0).Extract(context.Background(), "fin.csv", data)
	require.NoError(t, err)
	assert.Equal(t, "item | 2023 | 2024\nrevenue | 100 | 120\nnet, profit | 10\n", got)
}

func TestExtract_DOCX(t *testing.T) {
	w := docx.New().WithDefaultTheme()
	w.AddParagraph().AddText("Annual report")
	p := w.AddParagraph()
	p.AddText("Revenue").AddTab()
	p.AddText("120")
	tbl := w.AddTable(2, 2, 0, nil)
	tbl.TableRows[0].TableCells[0].AddParagraph().AddText("Year")
	tbl.TableRows[0].TableCells[1].AddParagraph().AddText("Profit")
	tbl.TableRows[1].TableCells[0].AddParagraph().AddText("2024")
	tbl.TableRows[1].TableCells[1].AddParagraph().AddText("35")

	var buf bytes.Buffer
	_, err := w.WriteTo(&buf)
	require.NoError(t, err)

	got, err := New(0).Extract(context.Background(), "r.docx", buf.Bytes())
	require.NoError(t, err)
	assert.Equal(t, "Annual report\nRevenue\t120\nYear\tProfit\n2024\t35\n", got)
}

func TestExtract_DOCXMissingBody(t *testing.T) {
	data := buildZip(t, map[string]string{"other.xml": "<x/>"})
	_, err := New(0).Extract(context.Background(), "r.docx", data)
	assertExtractionError(t, err, "document has no body")
}

func TestExtract_NotAZip(t *testing.T) {
	_, err := New(0).Extract(context.Background(), "r.xlsx", []byte("plain text"))
	assertExtractionError(t, err, "not a valid excel workbook")

	_, err = New(0).Extract(context.Background(), "r.docx", []byte("plain text"))
	assertExtractionError(t, err, "not a valid word document")
}

func TestExtract_XLSX(t *testing.T) {
	f := excelize.NewFile()
	require.NoError(t, f.SetSheetName("Sheet1", "Balance"))
	require.NoError(t, f.SetSheetRow("Balance", "A1", &[]any{"Assets", 500}))
	require.NoError(t, f.SetSheetRow("Balance", "A2", &[]any{"Liabilities", 300}))
	_, err := f.NewSheet("Income")
	require.NoError(t, err)
	require.NoError(t, f.SetSheetRow("Income", "A1", &[]any{"Revenue", true}))
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	require.NoError(t, f.Close())

	got, err := New(0).Extract(context.Background(), "fin.xlsx", buf.Bytes())
	require.NoError(t, err)

	balance := strings.Index(got, "Sheet: Balance\nAssets\t500\nLiabilities\t300\n")
	income := strings.Index(got, "Sheet: Income\nRevenue\tTRUE\n")
	require.GreaterOrEqual(t, balance, 0, got)
	require.Greater(t, income, balance, got)
}

func TestExtract_PDF(t *testing.T) {
	data, err := os.ReadFile("testdata/report.pdf")
	require.NoError(t, err)

	// nil runner: the in-process reader must handle it alone
	got, err := NewWithRunner(0, nil).Extract(context.Background(), "a.pdf", data)
	require.NoError(t, err)
	assert.Contains(t, got, "Revenue grew 12 percent")
}

func TestExtract_PDFFallsBackToTool(t *testing.T) {
	runner := &mockRunner{output: []byte("page one text")}
	got, err := NewWithRunner(0, runner).Extract(context.Background(), "a.pdf", []byte("%PDF-1.4 truncated"))
	require.NoError(t, err)
	assert.Equal(t, "page one text", got)
	require.Len(t, runner.args, 5)
	assert.Equal(t, "-layout", runner.args[0])
	assert.Equal(t, "-", runner.args[4])
}

func TestExtract_PDFToolNotUsedWhenReaderSucceeds(t *testing.T) {
	data, err := os.ReadFile("testdata/report.pdf")
	require.NoError(t, err)

	runner := &mockRunner{output: []byte("from tool")}
	got, err := NewWithRunner(0, runner).Extract(context.Background(), "a.pdf", data)
	require.NoError(t, err)
	assert.Contains(t, got, "Revenue grew")
	assert.Nil(t, runner.args)
}

func TestExtract_PDFUnreadableWithoutTool(t *testing.T) {
	runner := &mockRunner{lookErr: errors.New("not found")}
	_, err := NewWithRunner(0, runner).Extract(context.Background(), "a.pdf", []byte("%PDF-1.4 truncated"))
	assert.ErrorIs(t, err, domain.ErrExtraction)
	assert.Nil(t, runner.args)
}

func TestExtract_PDFToolFails(t *testing.T) {
	runner := &mockRunner{err: errors.New("exit status 1")}
	_, err := NewWithRunner(0, runner).Extract(context.Background(), "a.pdf", []byte("%PDF-1.4 truncated"))
	assertExtractionError(t, err, "pdftotext failed")
}

func TestSupported(t *testing.T) {
	assert.True(t, Supported("Report.DOCX"))
	assert.True(t, Supported("data.csv"))
	assert.False(t, Supported("archive.zip"))
	assert.False(t, Supported("noext"))
}
