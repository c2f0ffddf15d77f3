package middleware_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pioerp/internal/domain"
	"pioerp/internal/pkg/logger"
	"pioerp/internal/pkg/middleware"
	"pioerp/internal/pkg/token"
)

var okHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusNoContent)
})

func quietLogger() logger.Logger { return logger.NewLoggerTo(io.Discard, "error") }

// --- Auth ---

func TestAuth(t *testing.T) {
	tokens := token.NewService("segredo-de-teste", time.Hour)
	valid, err := tokens.GenerateToken("op-1", string(domain.RoleTechnician))
	require.NoError(t, err)

	var seen middleware.OperatorClaims
	h := middleware.Auth(tokens)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = middleware.ClaimsFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	cases := []struct {
		name   string
		header string
		status int
	}{
		{"sem header", "", http.StatusUnauthorized},
		{"esquema errado", "Basic abc", http.StatusUnauthorized},
		{"token inválido", "Bearer xyz", http.StatusUnauthorized},
		{"token válido", "Bearer " + valid, http.StatusOK},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/catalogo", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			assert.Equal(t, tc.status, rec.Code)
			if tc.status == http.StatusUnauthorized {
				assert.Contains(t, rec.Body.String(), `"success":false`)
			}
		})
	}

	assert.Equal(t, "op-1", seen.OperatorID)
	assert.Equal(t, domain.RoleTechnician, seen.Role)
}

func TestRequireRole(t *testing.T) {
	tokens := token.NewService("segredo-de-teste", time.Hour)
	chain := func(role domain.OperatorRole) *httptest.ResponseRecorder {
		tok, err := tokens.GenerateToken("op", string(role))
		require.NoError(t, err)
		req := httptest.NewRequest(http.MethodPost, "/api/internalizacao/1/aprovar", nil)
		req.Header.Set("Authorization", "Bearer "+tok)
		rec := httptest.NewRecorder()
		middleware.Auth(tokens)(middleware.RequireRole(domain.RoleAdmin)(okHandler)).ServeHTTP(rec, req)
		return rec
	}

	assert.Equal(t, http.StatusNoContent, chain(domain.RoleAdmin).Code)
	assert.Equal(t, http.StatusForbidden, chain(domain.RoleStockist).Code)

	rec := httptest.NewRecorder()
	middleware.RequireRole(domain.RoleAdmin)(okHandler).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

// --- RateLimiter ---

type memCounter struct {
	mu     sync.Mutex
	counts map[string]int64
	fail   bool
}

func (m *memCounter) Incr(_ context.Context, key string) (int64, error) {
	if m.fail {
		return 0, errors.New("redis fora do ar")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counts[key]++
	return m.counts[key], nil
}
func (m *memCounter) Expire(context.Context, string, time.Duration) error { return nil }
func (m *memCounter) Close() error { return nil }

func TestRateLimiter_BlocksAfterLimit(t *testing.T) {
	client := &memCounter{counts: map[string]int64{}}
	h := middleware.RateLimiter(client, 2, time.Minute, quietLogger())(okHandler)

	codes := []int{}
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodGet, "/api/equipamento", nil)
		req.RemoteAddr = "10.0.0.1:5555"
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		codes = append(codes, rec.Code)
	}

	assert.Equal(t, []int{http.StatusNoContent, http.StatusNoContent, http.StatusTooManyRequests}, codes)
}

func TestRateLimiter_FailOpen(t *testing.T) {
	client := &memCounter{counts: map[string]int64{}, fail: true}
	h := middleware.RateLimiter(client, 1, time.Minute, quietLogger())(okHandler)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/equipamento", nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

// --- RequestID / Recovery / Metrics ---

func TestRequestID(t *testing.T) {
	var inCtx string
	h := middleware.RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		inCtx = middleware.RequestIDFromContext(r.Context())
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.NotEmpty(t, inCtx)
	assert.Equal(t, inCtx, rec.Header().Get("X-Request-ID"))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", "abc-123")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, "abc-123", inCtx)
}

func TestRecovery(t *testing.T) {
	h := middleware.Recovery(quietLogger())(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "Erro interno do servidor.")
}

type observed struct {
	route  string
	method string
	status int
}

type fakeObserver struct{ calls []observed }

func (f *fakeObserver) ObserveRequest(route, method string, status int, _ time.Duration) {
	f.calls = append(f.calls, observed{route, method, status})
}

func TestMetrics_UsesRouteTemplate(t *testing.T) {
	obs := &fakeObserver{}
	r := mux.NewRouter()
	r.Use(middleware.Metrics(obs))
	r.Handle("/api/equipamento/{id}", okHandler).Methods(http.MethodGet)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/equipamento/42", nil))

	require.Len(t, obs.calls, 1)
	assert.Equal(t, observed{"/api/equipamento/{id}", http.MethodGet, http.StatusNoContent}, obs.calls[0])
}
