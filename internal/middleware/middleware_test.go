package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

var ok = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
})

func TestForceHTTPS(t *testing.T) {
	h := ForceHTTPS(true, ok)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "http://apply.example.org/apply/x?lang=cy", nil))
	assert.Equal(t, http.StatusPermanentRedirect, rec.Code)
	assert.Equal(t, "https://apply.example.org/apply/x?lang=cy", rec.Header().Get("Location"))

	rec = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "http://apply.example.org/", nil)
	req.Header.Set("X-Forwarded-Proto", "https")
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "http://localhost:8080/", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	ForceHTTPS(false, ok).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "http://apply.example.org/", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestSecurityHeaders(t *testing.T) {
	h := Security(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("X-Frame-Options", "SAMEORIGIN")
		w.WriteHeader(http.StatusOK)
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "SAMEORIGIN", rec.Header().Get("X-Frame-Options"))
	assert.Equal(t, "no-store", rec.Header().Get("Cache-Control"))
}

func TestStripPort(t *testing.T) {
	assert.Equal(t, "localhost", stripPort("localhost:8080"))
	assert.Equal(t, "[::1]", stripPort("[::1]:8080"))
	assert.Equal(t, "example.org", stripPort("example.org"))
}

func TestAccessLog(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	h := AccessLog(zap.New(core))(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte("upstream"))
	}))

	req := httptest.NewRequest(http.MethodPost, "/apply/awards-for-all?email=ann@example.com", nil)
	req.Header.Set("X-Forwarded-For", "203.0.113.7, 10.0.0.1")
	h.ServeHTTP(httptest.NewRecorder(), req)

	entries := logs.All()
	if assert.Len(t, entries, 1) {
		e := entries[0]
		assert.Equal(t, zap.WarnLevel, e.Level)
		fields := e.ContextMap()
		assert.Equal(t, "/apply/awards-for-all", fields["path"])
		assert.EqualValues(t, http.StatusBadGateway, fields["status"])
		assert.EqualValues(t, 8, fields["bytes"])
		assert.Equal(t, "203.0.113.7", fields["ip"])
		assert.NotContains(t, fields, "query")
	}
}
