package chi

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func serveCORS(origins []string, req *http.Request) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	CORSMiddleware(origins)(okHandler()).ServeHTTP(rr, req)
	return rr
}

func TestCORS_AllowedOrigin(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/status", http.NoBody)
	req.Header.Set("Origin", "http://localhost:3000")

	rr := serveCORS([]string{"http://localhost:3000/"}, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "http://localhost:3000", rr.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "Origin", rr.Header().Get("Vary"))
}

func TestCORS_UnknownOrigin(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/status", http.NoBody)
	req.Header.Set("Origin", "https://evil.example")

	rr := serveCORS([]string{"http://localhost:3000"}, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Empty(t, rr.Header().Get("Access-Control-Allow-Origin"))
}

func TestCORS_Preflight(t *testing.T) {
	req := httptest.NewRequest(http.MethodOptions, "/api/search", http.NoBody)
	req.Header.Set("Origin", "https://app.example")
	req.Header.Set("Access-Control-Request-Method", "POST")

	rr := serveCORS([]string{"*"}, req)

	assert.Equal(t, http.StatusNoContent, rr.Code)
	assert.Equal(t, "https://app.example", rr.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, rr.Header().Get("Access-Control-Allow-Methods"), "POST")
	assert.Contains(t, rr.Header().Get("Access-Control-Allow-Headers"), "Content-Type")
}

func TestCORS_Disabled(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/status", http.NoBody)
	req.Header.Set("Origin", "http://localhost:3000")

	rr := serveCORS(nil, req)

	assert.Empty(t, rr.Header().Get("Access-Control-Allow-Origin"))
}
