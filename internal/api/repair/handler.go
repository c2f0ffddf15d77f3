package repair

import (
	"context"
	"net/http"
	"strings"

	"pioerp/internal/api/response"
	"pioerp/internal/domain"
	"pioerp/internal/service/repairservice"
)

// RepairService define as operações de reparo e o cronômetro.
type RepairService interface {
	GetByID(ctx context.Context, id int64) (domain.RepairDetail, error)
	Priorities(ctx context.Context) ([]domain.RepairPriority, error)
	CriticalModels(ctx context.Context) ([]domain.CriticalModel, error)
	Update(ctx context.Context, id int64, in domain.RepairUpdate) (domain.Repair, error)
	Start(ctx context.Context, id int64) (domain.StartResult, error)
	Pause(ctx context.Context, id int64) (domain.PauseResult, error)
	Finish(ctx context.Context, id int64, in domain.FinishInput) (domain.FinishResult, error)
}

// RequestService define a fila de solicitações de lote.
type RequestService interface {
	List(ctx context.Context, status domain.RequestStatus) ([]domain.ReplenishmentDetail, error)
	Create(ctx context.Context, in domain.ReplenishmentInput) (domain.ReplenishmentRequest, error)
	UpdateStatus(ctx context.Context, id int64, status domain.RequestStatus) (domain.ReplenishmentRequest, error)
}

// Handler agrupa os handlers de /api/reparo.
type Handler struct {
	Repairs  RepairService
	Requests RequestService
	Resp     *response.Writer
}

func NewHandler(repairs RepairService, requests RequestService, resp *response.Writer) *Handler {
	return &Handler{Repairs: repairs, Requests: requests, Resp: resp}
}

// Priorities lida com GET /api/reparo/prioridades.
// @Summary Fila de reparos priorizada por estoque crítico
// @Tags reparo
// @Produce json
// @Success 200 {object} domain.Envelope{data=[]domain.RepairPriority}
// @Router /reparo/prioridades [get]
func (h *Handler) Priorities(w http.ResponseWriter, r *http.Request) {
	rows, err := h.Repairs.Priorities(r.Context())
	if err != nil {
		h.Resp.Error(w, r, err)
		return
	}
	h.Resp.List(w, rows, len(rows))
}

// Critical lida com GET /api/reparo/criticos.
// @Summary Modelos críticos com contagens de triagem
// @Tags reparo
// @Produce json
// @Success 200 {object} domain.Envelope{data=[]domain.CriticalModel}
// @Router /reparo/criticos [get]
func (h *Handler) Critical(w http.ResponseWriter, r *http.Request) {
	rows, err := h.Repairs.CriticalModels(r.Context())
	if err != nil {
		h.Resp.Error(w, r, err)
		return
	}
	h.Resp.List(w, rows, len(rows))
}

// Get lida com GET /api/reparo/{id}.
// @Summary Detalhe do reparo com sessões e tempo decorrido
// @Tags reparo
// @Produce json
// @Param id path int true "ID do reparo"
// @Success 200 {object} domain.Envelope{data=domain.RepairDetail}
// @Failure 404 {object} domain.ErrorResponse
// @Router /reparo/{id} [get]
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := response.PathID(r, "id")
	if err != nil {
		h.Resp.Error(w, r, err)
		return
	}
	detail, err := h.Repairs.GetByID(r.Context(), id)
	if err != nil {
		h.Resp.Error(w, r, err)
		return
	}
	h.Resp.OK(w, detail)
}

// Update lida com PUT /api/reparo/{id}.
// @Summary Atualiza descrição, diagnóstico e observações
// @Tags reparo
// @Accept json
// @Produce json
// @Param id path int true "ID do reparo"
// @Param reparo body domain.RepairUpdate true "Campos de texto"
// @Success 200 {object} domain.Envelope{data=domain.Repair}
// @Failure 404 {object} domain.ErrorResponse
// @Router /reparo/{id} [put]
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := response.PathID(r, "id")
	if err != nil {
		h.Resp.Error(w, r, err)
		return
	}
	var in domain.RepairUpdate
	if err := response.DecodeJSON(r, &in); err != nil {
		h.Resp.Error(w, r, err)
		return
	}
	rep, err := h.Repairs.Update(r.Context(), id, in)
	if err != nil {
		h.Resp.Error(w, r, err)
		return
	}
	h.Resp.OK(w, rep)
}

// Start lida com POST /api/reparo/{id}/iniciar.
// @Summary Inicia ou retoma o cronômetro do reparo
// @Tags reparo
// @Produce json
// @Param id path int true "ID do reparo"
// @Success 200 {object} domain.Envelope{data=domain.StartResult}
// @Failure 409 {object} domain.ErrorResponse "Reparo já em progresso ou finalizado"
// @Router /reparo/{id}/iniciar [post]
func (h *Handler) Start(w http.ResponseWriter, r *http.Request) {
	id, err := response.PathID(r, "id")
	if err != nil {
		h.Resp.Error(w, r, err)
		return
	}
	result, err := h.Repairs.Start(r.Context(), id)
	if err != nil {
		h.Resp.Error(w, r, err)
		return
	}
	h.Resp.Message(w, result, repairservice.StartMessage(result))
}

// Pause lida com POST /api/reparo/{id}/pausar.
// @Summary Pausa o cronômetro e acumula os minutos da sessão
// @Tags reparo
// @Produce json
// @Param id path int true "ID do reparo"
// @Success 200 {object} domain.Envelope{data=domain.PauseResult}
// @Failure 409 {object} domain.ErrorResponse "Reparo não está em progresso"
// @Router /reparo/{id}/pausar [post]
func (h *Handler) Pause(w http.ResponseWriter, r *http.Request) {
	id, err := response.PathID(r, "id")
	if err != nil {
		h.Resp.Error(w, r, err)
		return
	}
	result, err := h.Repairs.Pause(r.Context(), id)
	if err != nil {
		h.Resp.Error(w, r, err)
		return
	}
	h.Resp.Message(w, result, repairservice.PauseMessage(result))
}

// Finish lida com POST /api/reparo/{id}/finalizar.
// @Summary Finaliza o reparo e move o equipamento ao destino
// @Tags reparo
// @Accept json
// @Produce json
// @Param id path int true "ID do reparo"
// @Param finalizar body domain.FinishInput true "Destino e observações"
// @Success 200 {object} domain.Envelope{data=domain.FinishResult}
// @Failure 400 {object} domain.ErrorResponse
// @Failure 409 {object} domain.ErrorResponse "Reparo já finalizado"
// @Router /reparo/{id}/finalizar [post]
func (h *Handler) Finish(w http.ResponseWriter, r *http.Request) {
	id, err := response.PathID(r, "id")
	if err != nil {
		h.Resp.Error(w, r, err)
		return
	}
	var in domain.FinishInput
	if err := response.DecodeJSON(r, &in); err != nil {
		h.Resp.Error(w, r, err)
		return
	}
	result, err := h.Repairs.Finish(r.Context(), id, in)
	if err != nil {
		h.Resp.Error(w, r, err)
		return
	}
	h.Resp.Message(w, result, repairservice.FinishMessage(result))
}

// ListRequests lida com GET /api/reparo/solicitacoes.
// @Summary Fila de solicitações de lote
// @Tags reparo
// @Produce json
// @Param status query string false "pendente, em_andamento, atendida ou cancelada"
// @Success 200 {object} domain.Envelope{data=[]domain.ReplenishmentDetail}
// @Failure 400 {object} domain.ErrorResponse
// @Router /reparo/solicitacoes [get]
func (h *Handler) ListRequests(w http.ResponseWriter, r *http.Request) {
	status := domain.RequestStatus(strings.TrimSpace(r.URL.Query().Get("status")))
	rows, err := h.Requests.List(r.Context(), status)
	if err != nil {
		h.Resp.Error(w, r, err)
		return
	}
	h.Resp.List(w, rows, len(rows))
}

// CreateRequest lida com POST /api/reparo/solicitar-lote.
// @Summary Solicita ao almoxarifado um lote de um modelo crítico
// @Tags reparo
// @Accept json
// @Produce json
// @Param solicitacao body domain.ReplenishmentInput true "Modelo e observação"
// @Success 201 {object} domain.Envelope{data=domain.ReplenishmentRequest}
// @Failure 404 {object} domain.ErrorResponse
// @Failure 409 {object} domain.ErrorResponse "Já existe solicitação ativa para o modelo"
// @Router /reparo/solicitar-lote [post]
func (h *Handler) CreateRequest(w http.ResponseWriter, r *http.Request) {
	var in domain.ReplenishmentInput
	if err := response.DecodeJSON(r, &in); err != nil {
		h.Resp.Error(w, r, err)
		return
	}
	req, err := h.Requests.Create(r.Context(), in)
	if err != nil {
		h.Resp.Error(w, r, err)
		return
	}
	h.Resp.Created(w, req, "Solicitação de lote registrada.")
}

// UpdateRequest lida com PUT /api/reparo/solicitacoes/{id}.
// @Summary Atualiza o status de uma solicitação
// @Tags reparo
// @Accept json
// @Produce json
// @Param id path int true "ID da solicitação"
// @Param status body domain.RequestStatusInput true "Novo status"
// @Success 200 {object} domain.Envelope{data=domain.ReplenishmentRequest}
// @Failure 400 {object} domain.ErrorResponse
// @Failure 409 {object} domain.ErrorResponse "Solicitação encerrada"
// @Router /reparo/solicitacoes/{id} [put]
func (h *Handler) UpdateRequest(w http.ResponseWriter, r *http.Request) {
	id, err := response.PathID(r, "id")
	if err != nil {
		h.Resp.Error(w, r, err)
		return
	}
	var in domain.RequestStatusInput
	if err := response.DecodeJSON(r, &in); err != nil {
		h.Resp.Error(w, r, err)
		return
	}
	req, err := h.Requests.UpdateStatus(r.Context(), id, in.Status)
	if err != nil {
		h.Resp.Error(w, r, err)
		return
	}
	h.Resp.OK(w, req)
}
