package movement_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"pioerp/internal/api/movement"
	"pioerp/internal/api/response"
	"pioerp/internal/domain"
	"pioerp/internal/pkg/logger"
)

type MockMovementService struct {
	mock.Mock
}

func (m *MockMovementService) List(ctx context.Context, filter domain.MovementFilter) ([]domain.MovementDetail, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).([]domain.MovementDetail), args.Error(1)
}

func (m *MockMovementService) CriticalStock(ctx context.Context) ([]domain.CatalogStock, error) {
	args := m.Called(ctx)
	return args.Get(0).([]domain.CatalogStock), args.Error(1)
}

func (m *MockMovementService) Dashboard(ctx context.Context) (domain.Dashboard, error) {
	args := m.Called(ctx)
	return args.Get(0).(domain.Dashboard), args.Error(1)
}

func newHandler(svc *MockMovementService) *movement.Handler {
	return movement.NewHandler(svc, response.NewWriter(logger.NewLoggerTo(io.Discard, "error"), false))
}

func TestList_ParsesQuery(t *testing.T) {
	svc := new(MockMovementService)
	svc.On("List", mock.Anything, mock.MatchedBy(func(f domain.MovementFilter) bool {
		return f.EquipmentID != nil && *f.EquipmentID == 3 && f.Type == domain.MovementExitUse && f.Limit == 20 && f.Offset == 40
	})).Return([]domain.MovementDetail{}, nil)

	rec := httptest.NewRecorder()
	newHandler(svc).List(rec, httptest.NewRequest(http.MethodGet, "/api/movimentacao?equipamento_id=3&tipo=saida_uso&limit=20&offset=40", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	svc.AssertExpectations(t)
}

func TestList_BadLimit(t *testing.T) {
	svc := new(MockMovementService)

	rec := httptest.NewRecorder()
	newHandler(svc).List(rec, httptest.NewRequest(http.MethodGet, "/api/movimentacao?limit=muitos", nil))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	svc.AssertNotCalled(t, "List", mock.Anything, mock.Anything)
}

func TestCriticalStock_Total(t *testing.T) {
	svc := new(MockMovementService)
	svc.On("CriticalStock", mock.Anything).Return([]domain.CatalogStock{{Deficit: 3}, {Deficit: 1}}, nil)

	rec := httptest.NewRecorder()
	newHandler(svc).CriticalStock(rec, httptest.NewRequest(http.MethodGet, "/api/movimentacao/estoque-critico", nil))

	var body map[string]interface{}
	assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, float64(2), body["total"])
}

func TestDashboard_InternalErrorIsOpaque(t *testing.T) {
	svc := new(MockMovementService)
	svc.On("Dashboard", mock.Anything).Return(domain.Dashboard{}, errors.New("pq: connection refused"))

	rec := httptest.NewRecorder()
	newHandler(svc).Dashboard(rec, httptest.NewRequest(http.MethodGet, "/api/movimentacao/dashboard", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "connection refused")
}
