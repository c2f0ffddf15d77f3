package equipment

import (
	"context"
	"net/http"
	"strings"

	"pioerp/internal/api/response"
	"pioerp/internal/domain"
	"pioerp/internal/service/equipmentservice"
)

// EquipmentService define as operações de equipamento expostas via HTTP.
type EquipmentService interface {
	List(ctx context.Context, filter domain.EquipmentFilter) ([]domain.EquipmentDetail, error)
	GetByID(ctx context.Context, id int64) (domain.EquipmentDetail, error)
	RegisterEntry(ctx context.Context, in domain.EntryInput) (domain.Equipment, error)
	TransitionStatus(ctx context.Context, id int64, in domain.ExitInput) (domain.TransitionResult, error)
	AssembleLot(ctx context.Context, in domain.LotInput) (domain.LotResult, error)
}

// Handler agrupa os handlers de /api/equipamento.
type Handler struct {
	Service EquipmentService
	Resp    *response.Writer
}

func NewHandler(svc EquipmentService, resp *response.Writer) *Handler {
	return &Handler{Service: svc, Resp: resp}
}

// List lida com GET /api/equipamento.
// @Summary Lista equipamentos
// @Tags equipamento
// @Produce json
// @Param status query string false "Status do ciclo de vida"
// @Param item_catalogo_id query int false "Modelo"
// @Param catalog_id query int false "Modelo (alias de item_catalogo_id)"
// @Param caixa_id query int false "Caixa"
// @Success 200 {object} domain.Envelope{data=[]domain.EquipmentDetail}
// @Failure 400 {object} domain.ErrorResponse
// @Router /equipamento [get]
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	catalogID, err := response.QueryID(r, "item_catalogo_id")
	if err != nil {
		h.Resp.Error(w, r, err)
		return
	}
	if catalogID == nil {
		if catalogID, err = response.QueryID(r, "catalog_id"); err != nil {
			h.Resp.Error(w, r, err)
			return
		}
	}
	boxID, err := response.QueryID(r, "caixa_id")
	if err != nil {
		h.Resp.Error(w, r, err)
		return
	}

	filter := domain.EquipmentFilter{
		Status:        domain.EquipmentStatus(strings.TrimSpace(r.URL.Query().Get("status"))),
		CatalogItemID: catalogID,
		BoxID:         boxID,
	}
	items, err := h.Service.List(r.Context(), filter)
	if err != nil {
		h.Resp.Error(w, r, err)
		return
	}
	h.Resp.OK(w, items)
}

// Get lida com GET /api/equipamento/{id}.
// @Summary Detalhe de um equipamento
// @Tags equipamento
// @Produce json
// @Param id path int true "ID do equipamento"
// @Success 200 {object} domain.Envelope{data=domain.EquipmentDetail}
// @Failure 404 {object} domain.ErrorResponse
// @Router /equipamento/{id} [get]
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := response.PathID(r, "id")
	if err != nil {
		h.Resp.Error(w, r, err)
		return
	}
	item, err := h.Service.GetByID(r.Context(), id)
	if err != nil {
		h.Resp.Error(w, r, err)
		return
	}
	h.Resp.OK(w, item)
}

// Entry lida com POST /api/equipamento/entrada.
// @Summary Registra a entrada de um equipamento
// @Description Compra e retorno de reparo entram em reposição; recebimento entra em pré-triagem.
// @Tags equipamento
// @Accept json
// @Produce json
// @Param entrada body domain.EntryInput true "Dados da entrada"
// @Success 201 {object} domain.Envelope{data=domain.Equipment}
// @Failure 400 {object} domain.ErrorResponse
// @Failure 404 {object} domain.ErrorResponse "Catálogo, endereço ou caixa inexistente"
// @Router /equipamento/entrada [post]
func (h *Handler) Entry(w http.ResponseWriter, r *http.Request) {
	var in domain.EntryInput
	if err := response.DecodeJSON(r, &in); err != nil {
		h.Resp.Error(w, r, err)
		return
	}
	equip, err := h.Service.RegisterEntry(r.Context(), in)
	if err != nil {
		h.Resp.Error(w, r, err)
		return
	}
	h.Resp.Created(w, equip, "Equipamento registrado com sucesso.")
}

// Exit lida com POST /api/equipamento/{id}/saida.
// @Summary Transição de status (saída, triagem, venda, retorno)
// @Tags equipamento
// @Accept json
// @Produce json
// @Param id path int true "ID do equipamento"
// @Param saida body domain.ExitInput true "Destino e localização"
// @Success 200 {object} domain.Envelope{data=domain.TransitionResult}
// @Failure 400 {object} domain.ErrorResponse
// @Failure 404 {object} domain.ErrorResponse
// @Router /equipamento/{id}/saida [post]
func (h *Handler) Exit(w http.ResponseWriter, r *http.Request) {
	id, err := response.PathID(r, "id")
	if err != nil {
		h.Resp.Error(w, r, err)
		return
	}
	var in domain.ExitInput
	if err := response.DecodeJSON(r, &in); err != nil {
		h.Resp.Error(w, r, err)
		return
	}
	result, err := h.Service.TransitionStatus(r.Context(), id, in)
	if err != nil {
		h.Resp.Error(w, r, err)
		return
	}
	h.Resp.Message(w, result, result.Description)
}

// AssembleLot lida com POST /api/equipamento/montar-pallet.
// @Summary Transfere um lote de equipamentos para um pallet
// @Tags equipamento
// @Accept json
// @Produce json
// @Param lote body domain.LotInput true "Equipamentos e destino"
// @Success 200 {object} domain.Envelope{data=domain.LotResult}
// @Failure 400 {object} domain.ErrorResponse "Lote vazio ou destino inválido"
// @Failure 404 {object} domain.ErrorResponse "Equipamento, endereço ou caixa inexistente"
// @Failure 409 {object} domain.ErrorResponse "Status de origem incompatível"
// @Router /equipamento/montar-pallet [post]
func (h *Handler) AssembleLot(w http.ResponseWriter, r *http.Request) {
	var in domain.LotInput
	if err := response.DecodeJSON(r, &in); err != nil {
		h.Resp.Error(w, r, err)
		return
	}
	result, err := h.Service.AssembleLot(r.Context(), in)
	if err != nil {
		h.Resp.Error(w, r, err)
		return
	}
	h.Resp.Message(w, result, equipmentservice.LotMessage(result))
}
