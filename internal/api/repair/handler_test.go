package repair_test

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

	"pioerp/internal/api/repair"
	"pioerp/internal/api/response"
	"pioerp/internal/domain"
	apperror "pioerp/internal/errors"
	"pioerp/internal/pkg/logger"
)

type MockRepairService struct {
	mock.Mock
}

func (m *MockRepairService) GetByID(ctx context.Context, id int64) (domain.RepairDetail, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(domain.RepairDetail), args.Error(1)
}

func (m *MockRepairService) Priorities(ctx context.Context) ([]domain.RepairPriority, error) {
	args := m.Called(ctx)
	return args.Get(0).([]domain.RepairPriority), args.Error(1)
}

func (m *MockRepairService) CriticalModels(ctx context.Context) ([]domain.CriticalModel, error) {
	args := m.Called(ctx)
	return args.Get(0).([]domain.CriticalModel), args.Error(1)
}

func (m *MockRepairService) Update(ctx context.Context, id int64, in domain.RepairUpdate) (domain.Repair, error) {
	args := m.Called(ctx, id, in)
	return args.Get(0).(domain.Repair), args.Error(1)
}

func (m *MockRepairService) Start(ctx context.Context, id int64) (domain.StartResult, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(domain.StartResult), args.Error(1)
}

func (m *MockRepairService) Pause(ctx context.Context, id int64) (domain.PauseResult, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(domain.PauseResult), args.Error(1)
}

func (m *MockRepairService) Finish(ctx context.Context, id int64, in domain.FinishInput) (domain.FinishResult, error) {
	args := m.Called(ctx, id, in)
	return args.Get(0).(domain.FinishResult), args.Error(1)
}

type MockRequestService struct {
	mock.Mock
}

func (m *MockRequestService) List(ctx context.Context, status domain.RequestStatus) ([]domain.ReplenishmentDetail, error) {
	args := m.Called(ctx, status)
	return args.Get(0).([]domain.ReplenishmentDetail), args.Error(1)
}

func (m *MockRequestService) Create(ctx context.Context, in domain.ReplenishmentInput) (domain.ReplenishmentRequest, error) {
	args := m.Called(ctx, in)
	return args.Get(0).(domain.ReplenishmentRequest), args.Error(1)
}

func (m *MockRequestService) UpdateStatus(ctx context.Context, id int64, status domain.RequestStatus) (domain.ReplenishmentRequest, error) {
	args := m.Called(ctx, id, status)
	return args.Get(0).(domain.ReplenishmentRequest), args.Error(1)
}

func setup(repairs *MockRepairService, requests *MockRequestService) http.Handler {
	h := repair.NewHandler(repairs, requests, response.NewWriter(logger.NewLoggerTo(io.Discard, "error"), false))
	r := mux.NewRouter()
	r.HandleFunc("/api/reparo/prioridades", h.Priorities).Methods(http.MethodGet)
	r.HandleFunc("/api/reparo/criticos", h.Critical).Methods(http.MethodGet)
	r.HandleFunc("/api/reparo/solicitacoes", h.ListRequests).Methods(http.MethodGet)
	r.HandleFunc("/api/reparo/solicitar-lote", h.CreateRequest).Methods(http.MethodPost)
	r.HandleFunc("/api/reparo/solicitacoes/{id}", h.UpdateRequest).Methods(http.MethodPut)
	r.HandleFunc("/api/reparo/{id}", h.Get).Methods(http.MethodGet)
	r.HandleFunc("/api/reparo/{id}/iniciar", h.Start).Methods(http.MethodPost)
	r.HandleFunc("/api/reparo/{id}/pausar", h.Pause).Methods(http.MethodPost)
	r.HandleFunc("/api/reparo/{id}/finalizar", h.Finish).Methods(http.MethodPost)
	return r
}

func do(h http.Handler, method, path, body string) (*httptest.ResponseRecorder, map[string]interface{}) {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(method, path, bytes.NewBufferString(body)))
	var out map[string]interface{}
	_ = json.Unmarshal(rec.Body.Bytes(), &out)
	return rec, out
}

func TestPriorities_NotShadowedByID(t *testing.T) {
	repairs := new(MockRepairService)
	repairs.On("Priorities", mock.Anything).Return([]domain.RepairPriority{{RepairID: 1}, {RepairID: 2}}, nil)

	rec, body := do(setup(repairs, nil), http.MethodGet, "/api/reparo/prioridades", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(2), body["total"])
	repairs.AssertNotCalled(t, "GetByID", mock.Anything, mock.Anything)
}

func TestStart_ResumedMessage(t *testing.T) {
	repairs := new(MockRepairService)
	repairs.On("Start", mock.Anything, int64(3)).
		Return(domain.StartResult{Repair: domain.Repair{ID: 3, Status: domain.RepairInProgress}, Resumed: true}, nil)

	rec, body := do(setup(repairs, nil), http.MethodPost, "/api/reparo/3/iniciar", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Reparo retomado.", body["message"])
	data := body["data"].(map[string]interface{})
	assert.Contains(t, data, "reparo")
	assert.Contains(t, data, "sessao")
}

func TestStart_AlreadyInProgress(t *testing.T) {
	repairs := new(MockRepairService)
	repairs.On("Start", mock.Anything, int64(3)).
		Return(domain.StartResult{}, apperror.NewConflictError("Reparo já está em progresso."))

	rec, body := do(setup(repairs, nil), http.MethodPost, "/api/reparo/3/iniciar", "")

	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "Reparo já está em progresso.", body["message"])
}

func TestPause_Message(t *testing.T) {
	repairs := new(MockRepairService)
	repairs.On("Pause", mock.Anything, int64(3)).Return(domain.PauseResult{SessionMinutes: 42}, nil)

	_, body := do(setup(repairs, nil), http.MethodPost, "/api/reparo/3/pausar", "")

	assert.Equal(t, "Reparo pausado. +42 minutos registrados.", body["message"])
	assert.Equal(t, float64(42), body["data"].(map[string]interface{})["minutos_sessao"])
}

func TestFinish_Message(t *testing.T) {
	repairs := new(MockRepairService)
	repairs.On("Finish", mock.Anything, int64(3), mock.MatchedBy(func(in domain.FinishInput) bool {
		return in.Destination == "reposicao"
	})).Return(domain.FinishResult{TotalMinutes: 90, Destination: domain.DestinationStock}, nil)

	rec, body := do(setup(repairs, nil), http.MethodPost, "/api/reparo/3/finalizar", `{"status_destino":"reposicao","diagnostico":"fonte"}`)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Reparo finalizado. Tempo total: 90 minutos. Destino: reposicao", body["message"])
}

func TestCreateRequest_ActiveExists(t *testing.T) {
	requests := new(MockRequestService)
	requests.On("Create", mock.Anything, domain.ReplenishmentInput{CatalogItemID: 2}).
		Return(domain.ReplenishmentRequest{}, apperror.NewConflictError("Já existe uma solicitação ativa para este modelo."))

	rec, _ := do(setup(nil, requests), http.MethodPost, "/api/reparo/solicitar-lote", `{"item_catalogo_id":2}`)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestUpdateRequest(t *testing.T) {
	requests := new(MockRequestService)
	requests.On("UpdateStatus", mock.Anything, int64(6), domain.RequestFulfilled).
		Return(domain.ReplenishmentRequest{ID: 6, Status: domain.RequestFulfilled}, nil)

	rec, body := do(setup(nil, requests), http.MethodPut, "/api/reparo/solicitacoes/6", `{"status":"atendida"}`)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "atendida", body["data"].(map[string]interface{})["status"])
}

func TestListRequests_StatusFilter(t *testing.T) {
	requests := new(MockRequestService)
	requests.On("List", mock.Anything, domain.RequestPending).Return([]domain.ReplenishmentDetail{{}}, nil)

	rec, body := do(setup(nil, requests), http.MethodGet, "/api/reparo/solicitacoes?status=pendente", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(1), body["total"])
}
