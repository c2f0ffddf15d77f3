package equipment_test

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

	"pioerp/internal/api/equipment"
	"pioerp/internal/api/response"
	"pioerp/internal/domain"
	apperror "pioerp/internal/errors"
	"pioerp/internal/pkg/logger"
)

type MockEquipmentService struct {
	mock.Mock
}

func (m *MockEquipmentService) List(ctx context.Context, filter domain.EquipmentFilter) ([]domain.EquipmentDetail, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).([]domain.EquipmentDetail), args.Error(1)
}

func (m *MockEquipmentService) GetByID(ctx context.Context, id int64) (domain.EquipmentDetail, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(domain.EquipmentDetail), args.Error(1)
}

func (m *MockEquipmentService) RegisterEntry(ctx context.Context, in domain.EntryInput) (domain.Equipment, error) {
	args := m.Called(ctx, in)
	return args.Get(0).(domain.Equipment), args.Error(1)
}

func (m *MockEquipmentService) TransitionStatus(ctx context.Context, id int64, in domain.ExitInput) (domain.TransitionResult, error) {
	args := m.Called(ctx, id, in)
	return args.Get(0).(domain.TransitionResult), args.Error(1)
}

func (m *MockEquipmentService) AssembleLot(ctx context.Context, in domain.LotInput) (domain.LotResult, error) {
	args := m.Called(ctx, in)
	return args.Get(0).(domain.LotResult), args.Error(1)
}

func setup(svc *MockEquipmentService) http.Handler {
	h := equipment.NewHandler(svc, response.NewWriter(logger.NewLoggerTo(io.Discard, "error"), false))
	r := mux.NewRouter()
	r.HandleFunc("/api/equipamento", h.List).Methods(http.MethodGet)
	r.HandleFunc("/api/equipamento/entrada", h.Entry).Methods(http.MethodPost)
	r.HandleFunc("/api/equipamento/montar-pallet", h.AssembleLot).Methods(http.MethodPost)
	r.HandleFunc("/api/equipamento/{id}", h.Get).Methods(http.MethodGet)
	r.HandleFunc("/api/equipamento/{id}/saida", h.Exit).Methods(http.MethodPost)
	return r
}

func do(h http.Handler, method, path, body string) (*httptest.ResponseRecorder, map[string]interface{}) {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(method, path, bytes.NewBufferString(body)))
	var out map[string]interface{}
	_ = json.Unmarshal(rec.Body.Bytes(), &out)
	return rec, out
}

func TestEntry_Created(t *testing.T) {
	svc := new(MockEquipmentService)
	svc.On("RegisterEntry", mock.Anything, mock.MatchedBy(func(in domain.EntryInput) bool {
		return in.SerialNumber == "SN-1" && in.CatalogItemID == 1 && in.EntryType == "entrada_recebimento"
	})).Return(domain.Equipment{ID: 10, Status: domain.StatusPreTriagem}, nil)

	rec, body := do(setup(svc), http.MethodPost, "/api/equipamento/entrada",
		`{"item_catalogo_id":1,"numero_serie":"SN-1","imobilizado":"IMB-1","tipo_entrada":"entrada_recebimento"}`)

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "Equipamento registrado com sucesso.", body["message"])
	assert.Equal(t, "pre_triagem", body["data"].(map[string]interface{})["status"])
}

func TestEntry_InactiveCatalog(t *testing.T) {
	svc := new(MockEquipmentService)
	svc.On("RegisterEntry", mock.Anything, mock.Anything).
		Return(domain.Equipment{}, apperror.NewNotFoundError("Item de catálogo não encontrado ou inativo."))

	rec, body := do(setup(svc), http.MethodPost, "/api/equipamento/entrada", `{"item_catalogo_id":1,"numero_serie":"SN-1","imobilizado":"IMB-1","caixa_id":3}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Item de catálogo não encontrado ou inativo.", body["message"])
}

func TestExit_UsesDescriptionAsMessage(t *testing.T) {
	svc := new(MockEquipmentService)
	svc.On("TransitionStatus", mock.Anything, int64(5), domain.ExitInput{Destination: "saida_uso"}).
		Return(domain.TransitionResult{EquipmentID: 5, NewStatus: domain.StatusEmUso, Description: "Enviado para uso (removido do estoque)"}, nil)

	rec, body := do(setup(svc), http.MethodPost, "/api/equipamento/5/saida", `{"status_destino":"saida_uso"}`)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Enviado para uso (removido do estoque)", body["message"])
	data := body["data"].(map[string]interface{})
	assert.Equal(t, "em_uso", data["status_novo"])
	assert.NotContains(t, data, "reparo")
}

func TestExit_InvalidDestination(t *testing.T) {
	svc := new(MockEquipmentService)
	svc.On("TransitionStatus", mock.Anything, int64(5), mock.Anything).
		Return(domain.TransitionResult{}, apperror.NewValidationError(`"status_destino" inválido.`))

	rec, _ := do(setup(svc), http.MethodPost, "/api/equipamento/5/saida", `{"status_destino":"lixo"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAssembleLot_Message(t *testing.T) {
	svc := new(MockEquipmentService)
	svc.On("AssembleLot", mock.Anything, mock.Anything).
		Return(domain.LotResult{Transferred: 3, Destination: domain.StatusAgTriagem, EquipmentIDs: []int64{1, 2, 3}}, nil)

	rec, body := do(setup(svc), http.MethodPost, "/api/equipamento/montar-pallet",
		`{"equipamento_ids":[1,2,3],"status_destino":"ag_triagem","caixa_destino_id":4}`)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "3 equipamento(s) transferidos para Ag. Triagem.", body["message"])
}

func TestList_Filters(t *testing.T) {
	svc := new(MockEquipmentService)
	svc.On("List", mock.Anything, mock.MatchedBy(func(f domain.EquipmentFilter) bool {
		return f.Status == domain.StatusReposicao && f.CatalogItemID != nil && *f.CatalogItemID == 2 && f.BoxID == nil
	})).Return([]domain.EquipmentDetail{{}}, nil)

	rec, _ := do(setup(svc), http.MethodGet, "/api/equipamento?status=reposicao&item_catalogo_id=2", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	svc.AssertExpectations(t)
}

func TestList_CatalogIDAlias(t *testing.T) {
	svc := new(MockEquipmentService)
	svc.On("List", mock.Anything, mock.MatchedBy(func(f domain.EquipmentFilter) bool {
		return f.Status == domain.StatusReposicao && f.CatalogItemID != nil && *f.CatalogItemID == 5
	})).Return([]domain.EquipmentDetail{}, nil)

	rec, _ := do(setup(svc), http.MethodGet, "/api/equipamento?status=reposicao&catalog_id=5", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	svc.AssertExpectations(t)
}

func TestList_InvalidCatalogIDAlias(t *testing.T) {
	svc := new(MockEquipmentService)

	rec, _ := do(setup(svc), http.MethodGet, "/api/equipamento?catalog_id=abc", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	svc.AssertNotCalled(t, "List", mock.Anything, mock.Anything)
}

func TestAssembleLot_SourceConflict(t *testing.T) {
	svc := new(MockEquipmentService)
	svc.On("AssembleLot", mock.Anything, mock.Anything).
		Return(domain.LotResult{}, apperror.NewConflictError("1 equipamento(s) não estão em pré-triagem ou pré-venda e não podem ser transferidos."))

	rec, _ := do(setup(svc), http.MethodPost, "/api/equipamento/montar-pallet", `{"equipamento_ids":[1],"status_destino":"venda","caixa_destino_id":4}`)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestGet_RouteOrder(t *testing.T) {
	svc := new(MockEquipmentService)
	svc.On("GetByID", mock.Anything, int64(12)).Return(domain.EquipmentDetail{Model: "Notebook"}, nil)

	rec, body := do(setup(svc), http.MethodGet, "/api/equipamento/12", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Notebook", body["data"].(map[string]interface{})["modelo"])
}
