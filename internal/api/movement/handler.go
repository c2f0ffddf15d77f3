package movement

import (
	"context"
	"net/http"
	"strings"

	"pioerp/internal/api/response"
	"pioerp/internal/domain"
)

// MovementService define as consultas do histórico e do painel.
type MovementService interface {
	List(ctx context.Context, filter domain.MovementFilter) ([]domain.MovementDetail, error)
	CriticalStock(ctx context.Context) ([]domain.CatalogStock, error)
	Dashboard(ctx context.Context) (domain.Dashboard, error)
}

type Handler struct {
	Service MovementService
	Resp    *response.Writer
}

func NewHandler(svc MovementService, resp *response.Writer) *Handler {
	return &Handler{Service: svc, Resp: resp}
}

// List lida com GET /api/movimentacao.
// @Summary Histórico de movimentações
// @Tags movimentacao
// @Produce json
// @Param equipamento_id query int false "Equipamento"
// @Param tipo query string false "Tipo da movimentação"
// @Param limit query int false "Padrão 100, máximo 500"
// @Param offset query int false "Deslocamento"
// @Success 200 {object} domain.Envelope{data=[]domain.MovementDetail}
// @Failure 400 {object} domain.ErrorResponse
// @Router /movimentacao [get]
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	equipmentID, err := response.QueryID(r, "equipamento_id")
	if err != nil {
		h.Resp.Error(w, r, err)
		return
	}
	limit, err := response.QueryInt(r, "limit", domain.DefaultMovementLimit)
	if err != nil {
		h.Resp.Error(w, r, err)
		return
	}
	offset, err := response.QueryInt(r, "offset", 0)
	if err != nil {
		h.Resp.Error(w, r, err)
		return
	}

	rows, err := h.Service.List(r.Context(), domain.MovementFilter{
		EquipmentID: equipmentID,
		Type:        domain.MovementType(strings.TrimSpace(r.URL.Query().Get("tipo"))),
		Limit:       limit,
		Offset:      offset,
	})
	if err != nil {
		h.Resp.Error(w, r, err)
		return
	}
	h.Resp.OK(w, rows)
}

// CriticalStock lida com GET /api/movimentacao/estoque-critico.
// @Summary Modelos abaixo do estoque mínimo
// @Tags movimentacao
// @Produce json
// @Success 200 {object} domain.Envelope{data=[]domain.CatalogStock}
// @Router /movimentacao/estoque-critico [get]
func (h *Handler) CriticalStock(w http.ResponseWriter, r *http.Request) {
	rows, err := h.Service.CriticalStock(r.Context())
	if err != nil {
		h.Resp.Error(w, r, err)
		return
	}
	h.Resp.List(w, rows, len(rows))
}

// Dashboard lida com GET /api/movimentacao/dashboard.
// @Summary Totais por status, alertas críticos e últimas movimentações
// @Tags movimentacao
// @Produce json
// @Success 200 {object} domain.Envelope{data=domain.Dashboard}
// @Router /movimentacao/dashboard [get]
func (h *Handler) Dashboard(w http.ResponseWriter, r *http.Request) {
	d, err := h.Service.Dashboard(r.Context())
	if err != nil {
		h.Resp.Error(w, r, err)
		return
	}
	h.Resp.OK(w, d)
}
