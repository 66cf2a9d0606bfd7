package chi

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/oapi-codegen/runtime"
)

// StreamAnalysisParams defines parameters for StreamAnalysis.
type StreamAnalysisParams struct {
	AnalysisType *string `form:"analysisType,omitempty" json:"analysisType,omitempty"`
	TaskID       *string `form:"taskId,omitempty" json:"taskId,omitempty"`
}

// ServerInterface represents all server handlers.
type ServerInterface interface {
	// (POST /api/documents)
	UploadDocument(w http.ResponseWriter, r *http.Request)
	// (GET /api/documents)
	ListDocuments(w http.ResponseWriter, r *http.Request)
	// (DELETE /api/documents)
	ClearDocuments(w http.ResponseWriter, r *http.Request)
	// (GET /api/status)
	GetStatus(w http.ResponseWriter, r *http.Request)
	// (POST /api/search)
	Search(w http.ResponseWriter, r *http.Request)
	// (POST /api/analysis)
	StartAnalysis(w http.ResponseWriter, r *http.Request)
	// (GET /api/analysis/stream)
	StreamAnalysis(w http.ResponseWriter, r *http.Request, params StreamAnalysisParams)
	// (POST /api/analysis/cancel)
	CancelAnalysis(w http.ResponseWriter, r *http.Request)
	// (GET /api/analysis/tasks/{taskId})
	GetTaskStatus(w http.ResponseWriter, r *http.Request, taskID string)
	// (GET /api/analysis/templates)
	ListTemplates(w http.ResponseWriter, r *http.Request)
	// (GET /health)
	HealthCheck(w http.ResponseWriter, r *http.Request)
	// (GET /metrics)
	Metrics(w http.ResponseWriter, r *http.Request)
}

// MiddlewareFunc wraps a single route handler.
type MiddlewareFunc func(http.Handler) http.Handler

// ServerInterfaceWrapper binds request parameters before calling the handlers.
type ServerInterfaceWrapper struct {
	Handler            ServerInterface
	HandlerMiddlewares []MiddlewareFunc
	ErrorHandlerFunc   func(w http.ResponseWriter, r *http.Request, err error)
}

func (siw *ServerInterfaceWrapper) wrap(h http.Handler) http.Handler {
	for _, m := range siw.HandlerMiddlewares {
		h = m(h)
	}
	return h
}

// StreamAnalysis binds the query parameters of GET /api/analysis/stream.
func (siw *ServerInterfaceWrapper) StreamAnalysis(w http.ResponseWriter, r *http.Request) {
	var params StreamAnalysisParams

	err := runtime.BindQueryParameter("form", true, false, "analysisType", r.URL.Query(), &params.AnalysisType)
	if err != nil {
		siw.ErrorHandlerFunc(w, r, &InvalidParamFormatError{ParamName: "analysisType", Err: err})
		return
	}

	err = runtime.BindQueryParameter("form", true, false, "taskId", r.URL.Query(), &params.TaskID)
	if err != nil {
		siw.ErrorHandlerFunc(w, r, &InvalidParamFormatError{ParamName: "taskId", Err: err})
		return
	}

	siw.wrap(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		siw.Handler.StreamAnalysis(w, r, params)
	})).ServeHTTP(w, r)
}

// GetTaskStatus binds the path parameter of GET /api/analysis/tasks/{taskId}.
func (siw *ServerInterfaceWrapper) GetTaskStatus(w http.ResponseWriter, r *http.Request) {
	var taskID string

	err := runtime.BindStyledParameterWithOptions("simple", "taskId", chi.URLParam(r, "taskId"), &taskID,
		runtime.BindStyledParameterOptions{ParamLocation: runtime.ParamLocationPath, Explode: false, Required: true})
	if err != nil {
		siw.ErrorHandlerFunc(w, r, &InvalidParamFormatError{ParamName: "taskId", Err: err})
		return
	}

	siw.wrap(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		siw.Handler.GetTaskStatus(w, r, taskID)
	})).ServeHTTP(w, r)
}

func (siw *ServerInterfaceWrapper) plain(h func(http.ResponseWriter, *http.Request)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		siw.wrap(http.HandlerFunc(h)).ServeHTTP(w, r)
	}
}

// InvalidParamFormatError reports a parameter that failed to bind.
type InvalidParamFormatError struct {
	ParamName string
	Err       error
}

func (e *InvalidParamFormatError) Error() string {
	return fmt.Sprintf("Invalid format for parameter %s: %s", e.ParamName, e.Err.Error())
}

func (e *InvalidParamFormatError) Unwrap() error { return e.Err }

// ChiServerOptions configures HandlerWithOptions.
type ChiServerOptions struct {
	BaseURL          string
	BaseRouter       chi.Router
	Middlewares      []MiddlewareFunc
	ErrorHandlerFunc func(w http.ResponseWriter, r *http.Request, err error)
}

// HandlerWithOptions creates an http.Handler with routing matching the API.
func HandlerWithOptions(si ServerInterface, options ChiServerOptions) http.Handler {
	r := options.BaseRouter
	if r == nil {
		r = chi.NewRouter()
	}
	if options.ErrorHandlerFunc == nil {
		options.ErrorHandlerFunc = func(w http.ResponseWriter, _ *http.Request, err error) {
			http.Error(w, err.Error(), http.StatusBadRequest)
		}
	}
	wrapper := ServerInterfaceWrapper{
		Handler:            si,
		HandlerMiddlewares: options.Middlewares,
		ErrorHandlerFunc:   options.ErrorHandlerFunc,
	}

	base := options.BaseURL
	r.Group(func(r chi.Router) {
		r.Post(base+"/api/documents", wrapper.plain(si.UploadDocument))
		r.Get(base+"/api/documents", wrapper.plain(si.ListDocuments))
		r.Delete(base+"/api/documents", wrapper.plain(si.ClearDocuments))
		r.Get(base+"/api/status", wrapper.plain(si.GetStatus))
		r.Post(base+"/api/search", wrapper.plain(si.Search))
		r.Post(base+"/api/analysis", wrapper.plain(si.StartAnalysis))
		r.Get(base+"/api/analysis/stream", wrapper.StreamAnalysis)
		r.Post(base+"/api/analysis/cancel", wrapper.plain(si.CancelAnalysis))
		r.Get(base+"/api/analysis/tasks/{taskId}", wrapper.GetTaskStatus)
		r.Get(base+"/api/analysis/templates", wrapper.plain(si.ListTemplates))
		r.Get(base+"/health", wrapper.plain(si.HealthCheck))
		r.Get(base+"/metrics", wrapper.plain(si.Metrics))
	})
	return r
}
