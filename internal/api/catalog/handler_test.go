package catalog_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"pioerp/internal/api/catalog"
	"pioerp/internal/api/response"
	"pioerp/internal/domain"
	apperror "pioerp/internal/errors"
	"pioerp/internal/pkg/logger"
)

type MockCatalogService struct {
	mock.Mock
}

func (m *MockCatalogService) List(ctx context.Context) ([]domain.CatalogStock, error) {
	args := m.Called(ctx)
	return args.Get(0).([]domain.CatalogStock), args.Error(1)
}

func (m *MockCatalogService) GetByID(ctx context.Context, id int64) (domain.CatalogStock, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(domain.CatalogStock), args.Error(1)
}

func (m *MockCatalogService) Create(ctx context.Context, in domain.CatalogInput) (domain.CatalogItem, error) {
	args := m.Called(ctx, in)
	return args.Get(0).(domain.CatalogItem), args.Error(1)
}

func (m *MockCatalogService) Update(ctx context.Context, id int64, in domain.CatalogInput) (domain.CatalogItem, error) {
	args := m.Called(ctx, id, in)
	return args.Get(0).(domain.CatalogItem), args.Error(1)
}

func (m *MockCatalogService) Deactivate(ctx context.Context, id int64) (domain.CatalogItem, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(domain.CatalogItem), args.Error(1)
}

func setup(svc *MockCatalogService) http.Handler {
	h := catalog.NewHandler(svc, response.NewWriter(logger.NewLoggerTo(io.Discard, "error"), false))
	r := mux.NewRouter()
	r.HandleFunc("/api/catalogo", h.List).Methods(http.MethodGet)
	r.HandleFunc("/api/catalogo", h.Create).Methods(http.MethodPost)
	r.HandleFunc("/api/catalogo/{id}", h.Get).Methods(http.MethodGet)
	r.HandleFunc("/api/catalogo/{id}", h.Update).Methods(http.MethodPut)
	r.HandleFunc("/api/catalogo/{id}", h.Delete).Methods(http.MethodDelete)
	return r
}

func do(h http.Handler, method, path, body string) (*httptest.ResponseRecorder, map[string]interface{}) {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(method, path, bytes.NewBufferString(body)))
	var out map[string]interface{}
	_ = json.Unmarshal(rec.Body.Bytes(), &out)
	return rec, out
}

func TestCreate_Returns201(t *testing.T) {
	svc := new(MockCatalogService)
	svc.On("Create", mock.Anything, mock.MatchedBy(func(in domain.CatalogInput) bool {
		return in.Name != nil && *in.Name == "Notebook Dell"
	})).Return(domain.CatalogItem{ID: 7, Name: "Notebook Dell", Category: "TI", Active: true}, nil)

	rec, body := do(setup(svc), http.MethodPost, "/api/catalogo", `{"nome":"Notebook Dell","categoria":"TI"}`)

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, true, body["success"])
	data := body["data"].(map[string]interface{})
	assert.Equal(t, float64(7), data["id"])
	svc.AssertExpectations(t)
}

func TestCreate_InvalidJSON(t *testing.T) {
	svc := new(MockCatalogService)

	rec, body := do(setup(svc), http.MethodPost, "/api/catalogo", `{"nome":`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Payload JSON inválido.", body["message"])
	svc.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestUpdate_ValidationError(t *testing.T) {
	svc := new(MockCatalogService)
	svc.On("Update", mock.Anything, int64(3), mock.Anything).
		Return(domain.CatalogItem{}, apperror.NewValidationError("Estoque máximo não pode ser menor que o mínimo."))

	rec, body := do(setup(svc), http.MethodPut, "/api/catalogo/3", `{"estoque_minimo":5,"estoque_maximo":2}`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, false, body["success"])
	assert.Equal(t, "Estoque máximo não pode ser menor que o mínimo.", body["message"])
}

func TestGet_NotFound(t *testing.T) {
	svc := new(MockCatalogService)
	svc.On("GetByID", mock.Anything, int64(99)).
		Return(domain.CatalogStock{}, apperror.NewNotFoundError("Item não encontrado."))

	rec, _ := do(setup(svc), http.MethodGet, "/api/catalogo/99", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGet_BadID(t *testing.T) {
	svc := new(MockCatalogService)

	rec, _ := do(setup(svc), http.MethodGet, "/api/catalogo/abc", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	svc.AssertNotCalled(t, "GetByID", mock.Anything, mock.Anything)
}

func TestDelete_Message(t *testing.T) {
	svc := new(MockCatalogService)
	svc.On("Deactivate", mock.Anything, int64(4)).Return(domain.CatalogItem{ID: 4}, nil)

	rec, body := do(setup(svc), http.MethodDelete, "/api/catalogo/4", "")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Item desativado com sucesso.", body["message"])
}

func TestList(t *testing.T) {
	svc := new(MockCatalogService)
	svc.On("List", mock.Anything).Return([]domain.CatalogStock{{}, {}}, nil)

	rec, body := do(setup(svc), http.MethodGet, "/api/catalogo", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, body["data"], 2)
}
