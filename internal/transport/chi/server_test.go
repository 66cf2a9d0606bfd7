package chi

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/kailas-cloud/docqa/internal/domain"
	domdoc "github.com/kailas-cloud/docqa/internal/domain/document"
	taskrepo "github.com/kailas-cloud/docqa/internal/repository/task"
	"github.com/kailas-cloud/docqa/internal/usecase/analysis"
	healthuc "github.com/kailas-cloud/docqa/internal/usecase/health"
	"github.com/kailas-cloud/docqa/internal/usecase/ingest"
	"github.com/kailas-cloud/docqa/internal/usecase/retrieval"
)

// --- Mocks ---

type mockIngester struct {
	docs      []domdoc.Document
	ingestErr error
	cleared   bool
	gotName   string
	gotData   []byte
}

func (m *mockIngester) Ingest(_ context.Context, filename string, data []byte) (ingest.Result, error) {
	m.gotName, m.gotData = filename, data
	if m.ingestErr != nil {
		return ingest.Result{}, m.ingestErr
	}
	doc, err := domdoc.New("doc-1", filename, string(data), []string{string(data)}, time.Now())
	if err != nil {
		return ingest.Result{}, err
	}
	return ingest.Result{Document: doc, VectorDimension: 384}, nil
}

func (m *mockIngester) Clear(_ context.Context) error {
	m.cleared = true
	m.docs = nil
	return nil
}

func (m *mockIngester) List(_ context.Context) ([]domdoc.Document, error) { return m.docs, nil }

func (m *mockIngester) Status(_ context.Context) (ingest.Status, error) {
	st := ingest.Status{TotalDocuments: len(m.docs), VectorizerFitted: len(m.docs) > 0}
	for i := range m.docs {
		st.TotalVectors += m.docs[i].ChunkCount()
		st.Files = append(st.Files, ingest.FileStatus{Filename: m.docs[i].Filename(), Chunks: m.docs[i].ChunkCount()})
	}
	return st, nil
}

type mockRetriever struct {
	result retrieval.Result
	err    error
	got    retrieval.Query
}

func (m *mockRetriever) Search(_ context.Context, q retrieval.Query) (retrieval.Result, error) {
	m.got = q
	return m.result, m.err
}

type mockAnalyzer struct {
	events []domain.Event
	result analysis.Result
	err    error
	gotReq analysis.Request
}

func (m *mockAnalyzer) Stream(_ context.Context, req analysis.Request) <-chan domain.Event {
	m.gotReq = req
	ch := make(chan domain.Event, len(m.events))
	for _, ev := range m.events {
		ch <- ev
	}
	close(ch)
	return ch
}

func (m *mockAnalyzer) Analyze(_ context.Context, req analysis.Request) (analysis.Result, error) {
	m.gotReq = req
	return m.result, m.err
}

func (m *mockAnalyzer) Templates() []analysis.Template { return analysis.Templates() }

type mockTasks struct {
	cancelled map[string]bool
	statuses  map[string]domain.TaskStatus
}

func (m *mockTasks) Cancel(id string) bool {
	_, ok := m.statuses[id]
	if ok {
		m.cancelled[id] = true
	}
	return ok
}

func (m *mockTasks) Status(id string) domain.Task {
	st, ok := m.statuses[id]
	if !ok {
		st = domain.TaskNotFound
	}
	return domain.Task{ID: id, Status: st}
}

type mockHealth struct {
	report healthuc.Report
}

func (m *mockHealth) Check(_ context.Context) healthuc.Report { return m.report }

// --- Helpers ---

type fixture struct {
	ingester  *mockIngester
	retriever *mockRetriever
	analyzer  *mockAnalyzer
	tasks     *mockTasks
	health    *mockHealth
	handler   http.Handler
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		ingester:  &mockIngester{},
		retriever: &mockRetriever{},
		analyzer:  &mockAnalyzer{},
		tasks:     &mockTasks{cancelled: map[string]bool{}, statuses: map[string]domain.TaskStatus{}},
		health:    &mockHealth{},
	}
	srv := NewServer(f.ingester, f.retriever, f.analyzer, f.tasks, f.health, 1<<20, zap.NewNop())
	f.handler = HandlerWithOptions(srv, ChiServerOptions{ErrorHandlerFunc: WriteBindError})
	return f
}

func (f *fixture) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	f.handler.ServeHTTP(rr, req)
	return rr
}

func decode(t *testing.T, rr *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &out), rr.Body.String())
	return out
}

func mustDoc(t *testing.T, id, name, text string) domdoc.Document {
	t.Helper()
	d, err := domdoc.New(id, name, text, []string{text}, time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC))
	require.NoError(t, err)
	return d
}

func multipartUpload(t *testing.T, field, filename, content string) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile(field, filename)
	require.NoError(t, err)
	_, err = fw.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/documents", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

// --- documents ---

func TestUploadDocument_Success(t *testing.T) {
	f := newFixture(t)

	rr := httptest.NewRecorder()
	f.handler.ServeHTTP(rr, multipartUpload(t, "file", "report.txt", "revenue grew strongly"))

	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	body := decode(t, rr)
	assert.Equal(t, true, body["success"])
	data := body["data"].(map[string]any)
	assert.Equal(t, "doc-1", data["documentId"])
	assert.Equal(t, "report.txt", data["filename"])
	assert.EqualValues(t, 21, data["textLength"])
	assert.EqualValues(t, 1, data["chunksCount"])
	assert.EqualValues(t, 384, data["vectorDimension"])
	assert.Equal(t, "report.txt", f.ingester.gotName)
}

func TestUploadDocument_NoFile(t *testing.T) {
	f := newFixture(t)

	rr := httptest.NewRecorder()
	f.handler.ServeHTTP(rr, multipartUpload(t, "other", "report.txt", "x"))

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, false, decode(t, rr)["success"])
}

func TestUploadDocument_ExtractionError(t *testing.T) {
	f := newFixture(t)
	f.ingester.ingestErr = fmt.Errorf("extract x.pdf: %w",
		domain.NewExtractionError("x.pdf", "extracted text is too short"))

	rr := httptest.NewRecorder()
	f.handler.ServeHTTP(rr, multipartUpload(t, "file", "x.pdf", "%PDF"))

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, decode(t, rr)["message"], "extracted text is too short")
}

func TestUploadDocument_TooLarge(t *testing.T) {
	f := newFixture(t)

	rr := httptest.NewRecorder()
	f.handler.ServeHTTP(rr, multipartUpload(t, "file", "big.txt", strings.Repeat("a", 3<<20)))

	assert.Equal(t, http.StatusRequestEntityTooLarge, rr.Code)
}

func TestListDocuments(t *testing.T) {
	f := newFixture(t)
	f.ingester.docs = []domdoc.Document{mustDoc(t, "1", "a.txt", "资产负债表")}

	rr := f.do(t, http.MethodGet, "/api/documents", nil)

	require.Equal(t, http.StatusOK, rr.Code)
	data := decode(t, rr)["data"].(map[string]any)
	assert.EqualValues(t, 1, data["totalCount"])
	doc := data["documents"].([]any)[0].(map[string]any)
	assert.Equal(t, "a.txt", doc["filename"])
	assert.EqualValues(t, 5, doc["fileSize"])
	assert.Equal(t, "2024-01-02T03:04:05Z", doc["uploadTime"])
}

func TestClearDocuments(t *testing.T) {
	f := newFixture(t)
	f.ingester.docs = []domdoc.Document{mustDoc(t, "1", "a.txt", "text")}

	rr := f.do(t, http.MethodDelete, "/api/documents", nil)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.True(t, f.ingester.cleared)
}

func TestGetStatus(t *testing.T) {
	f := newFixture(t)
	f.ingester.docs = []domdoc.Document{mustDoc(t, "1", "a.txt", "text")}

	rr := f.do(t, http.MethodGet, "/api/status", nil)

	require.Equal(t, http.StatusOK, rr.Code)
	data := decode(t, rr)["data"].(map[string]any)
	assert.EqualValues(t, 1, data["totalDocuments"])
	assert.EqualValues(t, 1, data["totalVectors"])
	assert.Equal(t, true, data["vectorizerFitted"])
	assert.Len(t, data["files"], 1)
}

// --- search ---

func TestSearch_WithMetadata(t *testing.T) {
	f := newFixture(t)
	f.retriever.result = retrieval.Result{
		Mode:    retrieval.ModeVector,
		Matches: []retrieval.Match{{Text: "revenue", Filename: "a.txt", Similarity: 0.8}},
		Context: "[file: a.txt | similarity: 0.80]\nrevenue",
	}

	rr := f.do(t, http.MethodPost, "/api/search", map[string]any{
		"query": "revenue", "topK": 3, "maxContextLength": 500, "returnMetadata": true,
	})

	require.Equal(t, http.StatusOK, rr.Code)
	body := decode(t, rr)
	assert.Equal(t, "vector", body["mode"])
	assert.EqualValues(t, 1, body["totalResults"])
	assert.Len(t, body["results"], 1)
	assert.Equal(t, retrieval.Query{Text: "revenue", TopK: 3, MaxContextLength: 500}, f.retriever.got)
}

func TestSearch_WithoutMetadata(t *testing.T) {
	f := newFixture(t)
	f.retriever.result = retrieval.Result{Mode: retrieval.ModeLexical, Matches: []retrieval.Match{{Text: "x"}}}

	rr := f.do(t, http.MethodPost, "/api/search", map[string]any{"query": "x"})

	require.Equal(t, http.StatusOK, rr.Code)
	body := decode(t, rr)
	_, has := body["results"]
	assert.False(t, has)
	assert.Equal(t, "lexical", body["mode"])
}

func TestSearch_Errors(t *testing.T) {
	tests := []struct {
		name   string
		body   any
		err    error
		status int
	}{
		{"empty query", map[string]any{"query": ""}, domain.ErrEmptyQuery, http.StatusBadRequest},
		{"no documents", map[string]any{"query": "q"}, domain.ErrNoDocuments, http.StatusBadRequest},
		{"bad topK", map[string]any{"query": "q", "topK": 0}, nil, http.StatusBadRequest},
		{"internal", map[string]any{"query": "q"}, fmt.Errorf("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.retriever.err = tt.err

			rr := f.do(t, http.MethodPost, "/api/search", tt.body)

			assert.Equal(t, tt.status, rr.Code)
			assert.Equal(t, false, decode(t, rr)["success"])
		})
	}
}

func TestSearch_InvalidBody(t *testing.T) {
	f := newFixture(t)
	req := httptest.NewRequest(http.MethodPost, "/api/search", strings.NewReader("{"))
	rr := httptest.NewRecorder()
	f.handler.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

// --- analysis ---

func TestStartAnalysis_NoDocuments(t *testing.T) {
	f := newFixture(t)

	rr := f.do(t, http.MethodPost, "/api/analysis", map[string]any{"analysisType": "dupont"})

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, domain.ErrNoDocuments.Error(), decode(t, rr)["message"])
}

func TestStartAnalysis_Success(t *testing.T) {
	f := newFixture(t)
	f.ingester.docs = []domdoc.Document{mustDoc(t, "1", "a.txt", "revenue 10"), mustDoc(t, "2", "b.txt", "cash 5")}
	f.analyzer.result = analysis.Result{Content: "# Report", Source: analysis.SourceLLM}

	rr := f.do(t, http.MethodPost, "/api/analysis", map[string]any{"analysisType": "debt", "companyName": "Acme"})

	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	data := decode(t, rr)["data"].(map[string]any)
	assert.Equal(t, "# Report", data["analysisResult"])
	assert.Equal(t, "llm", data["source"])
	assert.Equal(t, []any{"a.txt", "b.txt"}, data["processedFiles"])
	assert.NotEmpty(t, data["taskId"])

	assert.Equal(t, "debt", f.analyzer.gotReq.AnalysisType)
	assert.Equal(t, "Acme", f.analyzer.gotReq.CompanyName)
	assert.Contains(t, f.analyzer.gotReq.Text, "=== File: b.txt ===\ncash 5")
}

func TestStreamAnalysis_WritesSSE(t *testing.T) {
	f := newFixture(t)
	f.ingester.docs = []domdoc.Document{mustDoc(t, "1", "a.txt", "revenue 10")}
	f.analyzer.events = []domain.Event{
		domain.StatusEvent("starting analysis"),
		{Type: domain.EventAnalysisStart},
		domain.ChunkEvent("hello"),
		{Type: domain.EventAnalysisComplete},
	}

	rr := f.do(t, http.MethodGet, "/api/analysis/stream?analysisType=growth&taskId=task-42", nil)

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "text/event-stream", rr.Header().Get("Content-Type"))
	assert.Equal(t, "no-cache", rr.Header().Get("Cache-Control"))
	assert.Equal(t, "no", rr.Header().Get("X-Accel-Buffering"))

	var got []domain.Event
	sc := bufio.NewScanner(rr.Body)
	for sc.Scan() {
		line := sc.Text()
		if line == "" {
			continue
		}
		require.True(t, strings.HasPrefix(line, "data: "), line)
		var ev domain.Event
		require.NoError(t, json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &ev))
		got = append(got, ev)
	}
	assert.Equal(t, f.analyzer.events, got)
	assert.Equal(t, "task-42", f.analyzer.gotReq.TaskID)
	assert.Equal(t, "growth", f.analyzer.gotReq.AnalysisType)
}

func TestStreamAnalysis_Defaults(t *testing.T) {
	f := newFixture(t)
	f.analyzer.events = []domain.Event{domain.ErrorEvent(domain.ErrNoDocuments.Error())}

	rr := f.do(t, http.MethodGet, "/api/analysis/stream", nil)

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, analysis.TypeComprehensive, f.analyzer.gotReq.AnalysisType)
	assert.NotEmpty(t, f.analyzer.gotReq.TaskID)
	assert.Empty(t, f.analyzer.gotReq.Text)
	assert.Contains(t, rr.Body.String(), `"type":"error"`)
}

func TestCancelAnalysis(t *testing.T) {
	f := newFixture(t)
	f.tasks.statuses["t1"] = domain.TaskRunning

	rr := f.do(t, http.MethodPost, "/api/analysis/cancel", map[string]any{"taskId": "t1"})
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.True(t, f.tasks.cancelled["t1"])

	rr = f.do(t, http.MethodPost, "/api/analysis/cancel", map[string]any{"taskId": "missing"})
	assert.Equal(t, http.StatusNotFound, rr.Code)

	rr = f.do(t, http.MethodPost, "/api/analysis/cancel", map[string]any{})
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestCancelAnalysis_CompletedTaskExists(t *testing.T) {
	tasks := taskrepo.New()
	tasks.Start(context.Background(), "done")
	tasks.Finish("done")

	srv := NewServer(&mockIngester{}, &mockRetriever{}, &mockAnalyzer{}, tasks, &mockHealth{}, 1<<20, zap.NewNop())
	h := HandlerWithOptions(srv, ChiServerOptions{ErrorHandlerFunc: WriteBindError})

	req := httptest.NewRequest(http.MethodPost, "/api/analysis/cancel", strings.NewReader(`{"taskId":"done"}`))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Equal(t, domain.TaskCompleted, tasks.Status("done").Status)
}

func TestGetTaskStatus(t *testing.T) {
	f := newFixture(t)
	f.tasks.statuses["t1"] = domain.TaskCancelled

	rr := f.do(t, http.MethodGet, "/api/analysis/tasks/t1", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	data := decode(t, rr)["data"].(map[string]any)
	assert.Equal(t, "t1", data["taskId"])
	assert.Equal(t, "cancelled", data["status"])

	rr = f.do(t, http.MethodGet, "/api/analysis/tasks/unknown", nil)
	assert.Equal(t, "not_found", decode(t, rr)["data"].(map[string]any)["status"])
}

func TestListTemplates(t *testing.T) {
	f := newFixture(t)

	rr := f.do(t, http.MethodGet, "/api/analysis/templates", nil)

	require.Equal(t, http.StatusOK, rr.Code)
	data := decode(t, rr)["data"].([]any)
	assert.Len(t, data, 8)
	first := data[0].(map[string]any)
	assert.NotEmpty(t, first["type"])
	assert.NotEmpty(t, first["title"])
	_, leaked := first["Instructions"]
	assert.False(t, leaked)
}

// --- ops ---

func TestHealthCheck(t *testing.T) {
	f := newFixture(t)
	f.health.report = healthuc.Report{
		Status:    healthuc.Degraded,
		Checks:    map[string]healthuc.CheckResult{"llm": healthuc.CheckError, "cache": healthuc.CheckDisabled},
		Documents: 2,
	}

	rr := f.do(t, http.MethodGet, "/health", nil)

	require.Equal(t, http.StatusOK, rr.Code)
	body := decode(t, rr)
	assert.Equal(t, "degraded", body["status"])
	assert.EqualValues(t, 2, body["documents"])
	assert.Equal(t, "error", body["checks"].(map[string]any)["llm"])
	assert.NotEmpty(t, body["version"])
}

func TestMetricsEndpoint(t *testing.T) {
	f := newFixture(t)
	rr := f.do(t, http.MethodGet, "/metrics", nil)
	assert.Equal(t, http.StatusOK, rr.Code)
}
