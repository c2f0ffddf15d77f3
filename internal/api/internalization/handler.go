package internalization

import (
	"context"
	"net/http"

	"pioerp/internal/api/response"
	"pioerp/internal/domain"
)

// InternalizationService define a fila de aprovação de equipamentos reparados.
type InternalizationService interface {
	ListPending(ctx context.Context) ([]domain.EquipmentDetail, error)
	BoxesForModel(ctx context.Context, catalogItemID int64) ([]domain.BoxLocation, error)
	Approve(ctx context.Context, id int64, boxID *int64) (domain.Equipment, error)
}

type Handler struct {
	Service InternalizationService
	Resp    *response.Writer
}

func NewHandler(svc InternalizationService, resp *response.Writer) *Handler {
	return &Handler{Service: svc, Resp: resp}
}

// List lida com GET /api/internalizacao.
// @Summary Equipamentos aguardando internalização
// @Tags internalizacao
// @Produce json
// @Success 200 {object} domain.Envelope{data=[]domain.EquipmentDetail}
// @Router /internalizacao [get]
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	rows, err := h.Service.ListPending(r.Context())
	if err != nil {
		h.Resp.Error(w, r, err)
		return
	}
	h.Resp.List(w, rows, len(rows))
}

// BoxesForModel lida com GET /api/internalizacao/locais-por-modelo/{catalogo_id}.
// @Summary Caixas que já guardam o modelo em reposição
// @Tags internalizacao
// @Produce json
// @Param catalogo_id path int true "ID do modelo"
// @Success 200 {object} domain.Envelope{data=[]domain.BoxLocation}
// @Router /internalizacao/locais-por-modelo/{catalogo_id} [get]
func (h *Handler) BoxesForModel(w http.ResponseWriter, r *http.Request) {
	catalogID, err := response.PathID(r, "catalogo_id")
	if err != nil {
		h.Resp.Error(w, r, err)
		return
	}
	rows, err := h.Service.BoxesForModel(r.Context(), catalogID)
	if err != nil {
		h.Resp.Error(w, r, err)
		return
	}
	h.Resp.List(w, rows, len(rows))
}

// Approve lida com POST /api/internalizacao/{id}/aprovar.
// @Summary Aprova a internalização e guarda o equipamento na caixa
// @Tags internalizacao
// @Accept json
// @Produce json
// @Param id path int true "ID do equipamento"
// @Param aprovacao body domain.ApprovalInput true "Caixa de destino"
// @Success 200 {object} domain.Envelope{data=domain.Equipment}
// @Failure 400 {object} domain.ErrorResponse "caixa_id ausente ou equipamento fora de ag_internalizacao"
// @Failure 404 {object} domain.ErrorResponse
// @Security BearerAuth
// @Router /internalizacao/{id}/aprovar [post]
func (h *Handler) Approve(w http.ResponseWriter, r *http.Request) {
	id, err := response.PathID(r, "id")
	if err != nil {
		h.Resp.Error(w, r, err)
		return
	}
	var in domain.ApprovalInput
	if err := response.DecodeJSON(r, &in); err != nil {
		h.Resp.Error(w, r, err)
		return
	}
	equip, err := h.Service.Approve(r.Context(), id, in.BoxID)
	if err != nil {
		h.Resp.Error(w, r, err)
		return
	}
	h.Resp.Message(w, equip, "Internalização aprovada. Equipamento disponível para reposição.")
}
