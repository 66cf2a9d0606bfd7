package chi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kailas-cloud/docqa/internal/domain"
	"github.com/kailas-cloud/docqa/internal/logger"
	"github.com/kailas-cloud/docqa/internal/usecase/analysis"
	healthuc "github.com/kailas-cloud/docqa/internal/usecase/health"
	"github.com/kailas-cloud/docqa/internal/usecase/retrieval"
	"github.com/kailas-cloud/docqa/internal/version"
)

const (
	uploadField     = "file"
	multipartMemory = 32 << 20
	// multipart framing on top of the file itself
	uploadOverhead = 1 << 20
)

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error) bool

// Server implements ServerInterface.
type Server struct {
	documents     Ingester
	search        Retriever
	analysis      Analyzer
	tasks         TaskTracker
	health        HealthChecker
	maxUpload     int64
	logger        *zap.Logger
	errorHandlers []errorHandler
}

var _ ServerInterface = (*Server)(nil)

// NewServer creates an HTTP API server. maxUpload bounds the uploaded file size in bytes.
func NewServer(
	documents Ingester,
	search Retriever,
	analyzer Analyzer,
	tasks TaskTracker,
	health HealthChecker,
	maxUpload int64,
	logger *zap.Logger,
) *Server {
	s := &Server{
		documents: documents,
		search:    search,
		analysis:  analyzer,
		tasks:     tasks,
		health:    health,
		maxUpload: maxUpload,
		logger:    logger,
	}
	s.errorHandlers = []errorHandler{
		extractionHandler,
		tooLargeHandler,
		sentinelHandler(domain.ErrInvalidRequest, http.StatusBadRequest),
		sentinelHandler(domain.ErrEmptyQuery, http.StatusBadRequest),
		sentinelHandler(domain.ErrNoDocuments, http.StatusBadRequest),
		sentinelHandler(domain.ErrNotFound, http.StatusNotFound),
		sentinelHandler(domain.ErrTaskCancelled, http.StatusConflict),
		sentinelHandler(domain.ErrVectorDimMismatch, http.StatusInternalServerError),
		sentinelHandler(domain.ErrUpstream, http.StatusBadGateway),
	}
	return s
}

// --- documents ---

type uploadData struct {
	DocumentID      string `json:"documentId"`
	Filename        string `json:"filename"`
	TextLength      int    `json:"textLength"`
	ChunksCount     int    `json:"chunksCount"`
	VectorDimension int    `json:"vectorDimension"`
}

// UploadDocument handles POST /api/documents.
func (s *Server) UploadDocument(w http.ResponseWriter, r *http.Request) {
	limit := s.maxUpload + uploadOverhead
	if r.ContentLength > limit {
		writeError(w, http.StatusRequestEntityTooLarge, "file too large")
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, limit)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.handleDomainError(w, r, err)
			return
		}
		writeError(w, http.StatusBadRequest, "invalid multipart form: "+err.Error())
		return
	}

	file, header, err := r.FormFile(uploadField)
	if err != nil {
		writeError(w, http.StatusBadRequest, "no file provided")
		return
	}
	defer file.Close()

	if header.Filename == "" {
		writeError(w, http.StatusBadRequest, "no file selected")
		return
	}

	data, err := io.ReadAll(file)
	if err != nil {
		writeError(w, http.StatusBadRequest, "read file: "+err.Error())
		return
	}

	res, err := s.documents.Ingest(r.Context(), header.Filename, data)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, envelope{
		Success: true,
		Message: fmt.Sprintf("file %s uploaded", res.Document.Filename()),
		Data: uploadData{
			DocumentID:      res.Document.ID(),
			Filename:        res.Document.Filename(),
			TextLength:      utf8.RuneCountInString(res.Document.Text()),
			ChunksCount:     res.Document.ChunkCount(),
			VectorDimension: res.VectorDimension,
		},
	})
}

type documentItem struct {
	ID         string    `json:"id"`
	Filename   string    `json:"filename"`
	Text       string    `json:"text"`
	UploadTime time.Time `json:"uploadTime"`
	FileSize   int       `json:"fileSize"`
}

type documentList struct {
	Documents  []documentItem `json:"documents"`
	TotalCount int            `json:"totalCount"`
}

// ListDocuments handles GET /api/documents.
func (s *Server) ListDocuments(w http.ResponseWriter, r *http.Request) {
	docs, err := s.documents.List(r.Context())
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	items := make([]documentItem, len(docs))
	for i := range docs {
		items[i] = documentItem{
			ID:         docs[i].ID(),
			Filename:   docs[i].Filename(),
			Text:       docs[i].Text(),
			UploadTime: docs[i].UploadedAt().UTC(),
			FileSize:   utf8.RuneCountInString(docs[i].Text()),
		}
	}

	writeJSON(w, http.StatusOK, envelope{
		Success: true,
		Data:    documentList{Documents: items, TotalCount: len(items)},
	})
}

// ClearDocuments handles DELETE /api/documents.
func (s *Server) ClearDocuments(w http.ResponseWriter, r *http.Request) {
	if err := s.documents.Clear(r.Context()); err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, envelope{Success: true, Message: "all documents cleared"})
}

type fileStatus struct {
	Filename string `json:"filename"`
	Chunks   int    `json:"chunks"`
}

type statusData struct {
	TotalDocuments   int          `json:"totalDocuments"`
	TotalVectors     int          `json:"totalVectors"`
	VectorizerFitted bool         `json:"vectorizerFitted"`
	Files            []fileStatus `json:"files"`
}

// GetStatus handles GET /api/status.
func (s *Server) GetStatus(w http.ResponseWriter, r *http.Request) {
	st, err := s.documents.Status(r.Context())
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	files := make([]fileStatus, len(st.Files))
	for i, f := range st.Files {
		files[i] = fileStatus{Filename: f.Filename, Chunks: f.Chunks}
	}

	writeJSON(w, http.StatusOK, envelope{
		Success: true,
		Data: statusData{
			TotalDocuments:   st.TotalDocuments,
			TotalVectors:     st.TotalVectors,
			VectorizerFitted: st.VectorizerFitted,
			Files:            files,
		},
	})
}

// --- search ---

type searchRequest struct {
	Query            string `json:"query"`
	TopK             *int   `json:"topK,omitempty"`
	MaxContextLength *int   `json:"maxContextLength,omitempty"`
	ReturnMetadata   bool   `json:"returnMetadata,omitempty"`
}

type searchResponse struct {
	Success      bool              `json:"success"`
	Context      string            `json:"context"`
	TotalResults int               `json:"totalResults"`
	Mode         retrieval.Mode    `json:"mode"`
	Results      []retrieval.Match `json:"results,omitempty"`
}

// Search handles POST /api/search.
func (s *Server) Search(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	q := retrieval.Query{Text: req.Query}
	if req.TopK != nil {
		if *req.TopK <= 0 {
			writeError(w, http.StatusBadRequest, "topK must be positive")
			return
		}
		q.TopK = *req.TopK
	}
	if req.MaxContextLength != nil {
		if *req.MaxContextLength <= 0 {
			writeError(w, http.StatusBadRequest, "maxContextLength must be positive")
			return
		}
		q.MaxContextLength = *req.MaxContextLength
	}

	res, err := s.search.Search(r.Context(), q)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	resp := searchResponse{
		Success:      true,
		Context:      res.Context,
		TotalResults: len(res.Matches),
		Mode:         res.Mode,
	}
	if req.ReturnMetadata {
		resp.Results = res.Matches
	}
	writeJSON(w, http.StatusOK, resp)
}

// --- analysis ---

type analysisRequest struct {
	AnalysisType string `json:"analysisType"`
	CompanyName  string `json:"companyName,omitempty"`
}

type analysisData struct {
	TaskID         string   `json:"taskId"`
	AnalysisResult string   `json:"analysisResult"`
	Source         string   `json:"source"`
	ProcessedFiles []string `json:"processedFiles"`
	AnalysisType   string   `json:"analysisType"`
	CompanyName    string   `json:"companyName,omitempty"`
}

// StartAnalysis handles POST /api/analysis.
func (s *Server) StartAnalysis(w http.ResponseWriter, r *http.Request) {
	var req analysisRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if req.AnalysisType == "" {
		req.AnalysisType = analysis.TypeComprehensive
	}

	docs, err := s.documents.List(r.Context())
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	if len(docs) == 0 {
		s.handleDomainError(w, r, domain.ErrNoDocuments)
		return
	}

	text, files := analysis.Corpus(docs)
	taskID := uuid.NewString()
	ctx := logger.With(r.Context(), zap.String("task_id", taskID))

	res, err := s.analysis.Analyze(ctx, analysis.Request{
		TaskID:       taskID,
		AnalysisType: req.AnalysisType,
		CompanyName:  req.CompanyName,
		Text:         text,
	})
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, envelope{
		Success: true,
		Message: "analysis report generated",
		Data: analysisData{
			TaskID:         taskID,
			AnalysisResult: res.Content,
			Source:         res.Source,
			ProcessedFiles: files,
			AnalysisType:   req.AnalysisType,
			CompanyName:    req.CompanyName,
		},
	})
}

// StreamAnalysis handles GET /api/analysis/stream as server-sent events.
// An empty corpus still opens the stream; the engine reports it as an error event.
func (s *Server) StreamAnalysis(w http.ResponseWriter, r *http.Request, params StreamAnalysisParams) {
	analysisType := analysis.TypeComprehensive
	if params.AnalysisType != nil && *params.AnalysisType != "" {
		analysisType = *params.AnalysisType
	}
	taskID := uuid.NewString()
	if params.TaskID != nil && strings.TrimSpace(*params.TaskID) != "" {
		taskID = *params.TaskID
	}

	docs, err := s.documents.List(r.Context())
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	text, _ := analysis.Corpus(docs)

	ctx := logger.With(r.Context(), zap.String("task_id", taskID))
	events := s.analysis.Stream(ctx, analysis.Request{
		TaskID:       taskID,
		AnalysisType: analysisType,
		Text:         text,
	})

	sse := newEventWriter(w)
	for ev := range events {
		if err := sse.write(ev); err != nil {
			logger.FromContext(ctx).Info("Analysis stream write failed", zap.Error(err))
			// The engine stops once the request context is cancelled.
			for range events {
			}
			return
		}
	}
}

type cancelRequest struct {
	TaskID string `json:"taskId"`
}

// CancelAnalysis handles POST /api/analysis/cancel.
func (s *Server) CancelAnalysis(w http.ResponseWriter, r *http.Request) {
	var req cancelRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if strings.TrimSpace(req.TaskID) == "" {
		writeError(w, http.StatusBadRequest, "taskId is required")
		return
	}

	if !s.tasks.Cancel(req.TaskID) {
		writeError(w, http.StatusNotFound, "task not found")
		return
	}

	logger.FromContext(r.Context()).Info("Analysis cancel requested", zap.String("task_id", req.TaskID))
	writeJSON(w, http.StatusOK, envelope{Success: true, Message: "task cancelled"})
}

type taskData struct {
	TaskID string            `json:"taskId"`
	Status domain.TaskStatus `json:"status"`
}

// GetTaskStatus handles GET /api/analysis/tasks/{taskId}.
func (s *Server) GetTaskStatus(w http.ResponseWriter, _ *http.Request, taskID string) {
	t := s.tasks.Status(taskID)
	writeJSON(w, http.StatusOK, envelope{
		Success: true,
		Data:    taskData{TaskID: taskID, Status: t.Status},
	})
}

// ListTemplates handles GET /api/analysis/templates.
func (s *Server) ListTemplates(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, envelope{Success: true, Data: s.analysis.Templates()})
}

// --- ops ---

type healthResponse struct {
	Status    healthuc.Status                 `json:"status"`
	Checks    map[string]healthuc.CheckResult `json:"checks"`
	Documents int                             `json:"documents"`
	Version   string                          `json:"version"`
}

// HealthCheck handles GET /health. Degraded components do not fail the
// probe since analyses fall back to local reports.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())
	writeJSON(w, http.StatusOK, healthResponse{
		Status:    report.Status,
		Checks:    report.Checks,
		Documents: report.Documents,
		Version:   version.Version,
	})
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

// --- responses ---

type envelope struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, envelope{Success: false, Message: message})
}

// WriteBindError reports a request parameter that failed to bind.
func WriteBindError(w http.ResponseWriter, _ *http.Request, err error) {
	writeError(w, http.StatusBadRequest, err.Error())
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
func sentinelHandler(sentinel error, status int) errorHandler {
	return func(w http.ResponseWriter, err error) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, sentinel.Error())
		return true
	}
}

// extractionHandler reports why an upload could not be read.
func extractionHandler(w http.ResponseWriter, err error) bool {
	var ee *domain.ExtractionError
	if !errors.As(err, &ee) {
		return false
	}
	writeError(w, http.StatusBadRequest, ee.Error())
	return true
}

func tooLargeHandler(w http.ResponseWriter, err error) bool {
	var tl *http.MaxBytesError
	if !errors.As(err, &tl) {
		return false
	}
	writeError(w, http.StatusRequestEntityTooLarge, "file too large")
	return true
}

func (s *Server) handleDomainError(w http.ResponseWriter, r *http.Request, err error) {
	log := s.logger.With(zap.String("path", r.URL.Path))
	log.Warn("domain error", zap.Error(err))
	for _, h := range s.errorHandlers {
		if h(w, err) {
			return
		}
	}
	log.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, "internal error")
}
