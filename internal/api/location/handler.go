package location

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"pioerp/internal/api/response"
	"pioerp/internal/domain"
)

// LocationService define as operações de endereços, pallets e caixas.
type LocationService interface {
	List(ctx context.Context, filter domain.LocationFilter) ([]domain.Location, error)
	Tree(ctx context.Context) ([]*domain.LocationNode, error)
	Create(ctx context.Context, in domain.LocationInput) (domain.Location, error)
	Update(ctx context.Context, id int64, in domain.LocationUpdate) (domain.Location, error)
	Deactivate(ctx context.Context, id int64) error

	ListPallets(ctx context.Context, locationID *int64) ([]domain.Pallet, error)
	CreatePallet(ctx context.Context, in domain.PalletInput) (domain.Pallet, error)
	DeactivatePallet(ctx context.Context, id int64) error

	ListBoxes(ctx context.Context, palletID *int64) ([]domain.Box, error)
	CreateBox(ctx context.Context, in domain.BoxInput) (domain.Box, error)
	AutoCreateBox(ctx context.Context, palletID int64) (domain.Box, error)
	DeactivateBox(ctx context.Context, id int64) error
}

// LabelService gera as etiquetas em PDF.
type LabelService interface {
	BoxLabel(ctx context.Context, boxID int64) ([]byte, error)
	PalletLabels(ctx context.Context, palletID int64) ([]byte, error)
}

// Handler agrupa os handlers de /api/endereco, /api/pallets e /api/caixas.
type Handler struct {
	Service LocationService
	Labels  LabelService
	Resp    *response.Writer
}

func NewHandler(svc LocationService, labels LabelService, resp *response.Writer) *Handler {
	return &Handler{Service: svc, Labels: labels, Resp: resp}
}

// ListLocations lida com GET /api/endereco.
// @Summary Lista endereços
// @Tags endereco
// @Produce json
// @Param nivel query string false "porta_pallet, sessao, pallet ou caixa"
// @Param ativo query bool false "Padrão: true"
// @Success 200 {object} domain.Envelope{data=[]domain.Location}
// @Failure 400 {object} domain.ErrorResponse
// @Router /endereco [get]
func (h *Handler) ListLocations(w http.ResponseWriter, r *http.Request) {
	filter := domain.LocationFilter{
		Level:  domain.LocationLevel(strings.TrimSpace(r.URL.Query().Get("nivel"))),
		Active: response.QueryBool(r, "ativo", true),
	}
	rows, err := h.Service.List(r.Context(), filter)
	if err != nil {
		h.Resp.Error(w, r, err)
		return
	}
	h.Resp.OK(w, rows)
}

// Tree lida com GET /api/endereco/arvore.
// @Summary Hierarquia de endereços ativos em árvore
// @Tags endereco
// @Produce json
// @Success 200 {object} domain.Envelope{data=[]domain.LocationNode}
// @Router /endereco/arvore [get]
func (h *Handler) Tree(w http.ResponseWriter, r *http.Request) {
	tree, err := h.Service.Tree(r.Context())
	if err != nil {
		h.Resp.Error(w, r, err)
		return
	}
	h.Resp.OK(w, tree)
}

// CreateLocation lida com POST /api/endereco.
// @Summary Cadastra um endereço
// @Tags endereco
// @Accept json
// @Produce json
// @Param endereco body domain.LocationInput true "Dados do endereço"
// @Success 201 {object} domain.Envelope{data=domain.Location}
// @Failure 400 {object} domain.ErrorResponse
// @Failure 409 {object} domain.ErrorResponse "Código já cadastrado"
// @Router /endereco [post]
func (h *Handler) CreateLocation(w http.ResponseWriter, r *http.Request) {
	var in domain.LocationInput
	if err := response.DecodeJSON(r, &in); err != nil {
		h.Resp.Error(w, r, err)
		return
	}
	loc, err := h.Service.Create(r.Context(), in)
	if err != nil {
		h.Resp.Error(w, r, err)
		return
	}
	h.Resp.Created(w, loc, "Endereço cadastrado com sucesso.")
}

// UpdateLocation lida com PUT /api/endereco/{id}.
// @Summary Atualiza um endereço
// @Tags endereco
// @Accept json
// @Produce json
// @Param id path int true "ID do endereço"
// @Param endereco body domain.LocationUpdate true "Campos a alterar"
// @Success 200 {object} domain.Envelope{data=domain.Location}
// @Failure 404 {object} domain.ErrorResponse
// @Router /endereco/{id} [put]
func (h *Handler) UpdateLocation(w http.ResponseWriter, r *http.Request) {
	id, err := response.PathID(r, "id")
	if err != nil {
		h.Resp.Error(w, r, err)
		return
	}
	var in domain.LocationUpdate
	if err := response.DecodeJSON(r, &in); err != nil {
		h.Resp.Error(w, r, err)
		return
	}
	loc, err := h.Service.Update(r.Context(), id, in)
	if err != nil {
		h.Resp.Error(w, r, err)
		return
	}
	h.Resp.Message(w, loc, "Endereço atualizado com sucesso.")
}

// DeleteLocation lida com DELETE /api/endereco/{id}.
// @Summary Desativa um endereço
// @Tags endereco
// @Produce json
// @Param id path int true "ID do endereço"
// @Success 200 {object} domain.Envelope
// @Failure 404 {object} domain.ErrorResponse
// @Router /endereco/{id} [delete]
func (h *Handler) DeleteLocation(w http.ResponseWriter, r *http.Request) {
	h.deactivate(w, r, h.Service.Deactivate, "Endereço desativado com sucesso.")
}

// ListPallets lida com GET /api/pallets.
// @Summary Lista pallets ativos
// @Tags pallets
// @Produce json
// @Param endereco_id query int false "Filtra por endereço"
// @Success 200 {object} domain.Envelope{data=[]domain.Pallet}
// @Router /pallets [get]
func (h *Handler) ListPallets(w http.ResponseWriter, r *http.Request) {
	locationID, err := response.QueryID(r, "endereco_id")
	if err != nil {
		h.Resp.Error(w, r, err)
		return
	}
	pallets, err := h.Service.ListPallets(r.Context(), locationID)
	if err != nil {
		h.Resp.Error(w, r, err)
		return
	}
	h.Resp.OK(w, pallets)
}

// CreatePallet lida com POST /api/pallets.
// @Summary Cadastra um pallet
// @Tags pallets
// @Accept json
// @Produce json
// @Param pallet body domain.PalletInput true "Código e endereço"
// @Success 201 {object} domain.Envelope{data=domain.Pallet}
// @Failure 400 {object} domain.ErrorResponse
// @Failure 404 {object} domain.ErrorResponse "Endereço inexistente ou inativo"
// @Router /pallets [post]
func (h *Handler) CreatePallet(w http.ResponseWriter, r *http.Request) {
	var in domain.PalletInput
	if err := response.DecodeJSON(r, &in); err != nil {
		h.Resp.Error(w, r, err)
		return
	}
	p, err := h.Service.CreatePallet(r.Context(), in)
	if err != nil {
		h.Resp.Error(w, r, err)
		return
	}
	h.Resp.Created(w, p, "Pallet cadastrado com sucesso.")
}

// DeletePallet lida com DELETE /api/pallets/{id}.
// @Summary Desativa um pallet
// @Tags pallets
// @Produce json
// @Param id path int true "ID do pallet"
// @Success 200 {object} domain.Envelope
// @Failure 404 {object} domain.ErrorResponse
// @Router /pallets/{id} [delete]
func (h *Handler) DeletePallet(w http.ResponseWriter, r *http.Request) {
	h.deactivate(w, r, h.Service.DeactivatePallet, "Pallet desativado com sucesso.")
}

// PalletLabels lida com GET /api/pallets/{id}/etiquetas.
// @Summary Etiquetas (PDF) de todas as caixas do pallet
// @Tags pallets
// @Produce application/pdf
// @Param id path int true "ID do pallet"
// @Success 200 {file} binary
// @Failure 404 {object} domain.ErrorResponse
// @Router /pallets/{id}/etiquetas [get]
func (h *Handler) PalletLabels(w http.ResponseWriter, r *http.Request) {
	id, err := response.PathID(r, "id")
	if err != nil {
		h.Resp.Error(w, r, err)
		return
	}
	pdf, err := h.Labels.PalletLabels(r.Context(), id)
	if err != nil {
		h.Resp.Error(w, r, err)
		return
	}
	writePDF(w, fmt.Sprintf("pallet-%d-etiquetas.pdf", id), pdf)
}

// ListBoxes lida com GET /api/caixas.
// @Summary Lista caixas ativas
// @Tags caixas
// @Produce json
// @Param pallet_id query int false "Filtra por pallet"
// @Success 200 {object} domain.Envelope{data=[]domain.Box}
// @Router /caixas [get]
func (h *Handler) ListBoxes(w http.ResponseWriter, r *http.Request) {
	palletID, err := response.QueryID(r, "pallet_id")
	if err != nil {
		h.Resp.Error(w, r, err)
		return
	}
	boxes, err := h.Service.ListBoxes(r.Context(), palletID)
	if err != nil {
		h.Resp.Error(w, r, err)
		return
	}
	h.Resp.OK(w, boxes)
}

// CreateBox lida com POST /api/caixas.
// @Summary Cadastra uma caixa com código informado
// @Tags caixas
// @Accept json
// @Produce json
// @Param caixa body domain.BoxInput true "Código e pallet"
// @Success 201 {object} domain.Envelope{data=domain.Box}
// @Failure 400 {object} domain.ErrorResponse
// @Failure 404 {object} domain.ErrorResponse "Pallet inexistente ou inativo"
// @Router /caixas [post]
func (h *Handler) CreateBox(w http.ResponseWriter, r *http.Request) {
	var in domain.BoxInput
	if err := response.DecodeJSON(r, &in); err != nil {
		h.Resp.Error(w, r, err)
		return
	}
	b, err := h.Service.CreateBox(r.Context(), in)
	if err != nil {
		h.Resp.Error(w, r, err)
		return
	}
	h.Resp.Created(w, b, "Caixa cadastrada com sucesso.")
}

// AutoCreateBox lida com POST /api/caixas/auto.
// @Summary Cria a próxima caixa do pallet com código automático (PALLET-CXnn)
// @Tags caixas
// @Accept json
// @Produce json
// @Param caixa body domain.BoxInput true "Apenas pallet_id é usado"
// @Success 201 {object} domain.Envelope{data=domain.Box}
// @Failure 404 {object} domain.ErrorResponse
// @Router /caixas/auto [post]
func (h *Handler) AutoCreateBox(w http.ResponseWriter, r *http.Request) {
	var in domain.BoxInput
	if err := response.DecodeJSON(r, &in); err != nil {
		h.Resp.Error(w, r, err)
		return
	}
	b, err := h.Service.AutoCreateBox(r.Context(), in.PalletID)
	if err != nil {
		h.Resp.Error(w, r, err)
		return
	}
	h.Resp.Created(w, b, fmt.Sprintf("Caixa %s criada.", b.Code))
}

// DeleteBox lida com DELETE /api/caixas/{id}.
// @Summary Desativa uma caixa
// @Tags caixas
// @Produce json
// @Param id path int true "ID da caixa"
// @Success 200 {object} domain.Envelope
// @Failure 404 {object} domain.ErrorResponse
// @Router /caixas/{id} [delete]
func (h *Handler) DeleteBox(w http.ResponseWriter, r *http.Request) {
	h.deactivate(w, r, h.Service.DeactivateBox, "Caixa desativada com sucesso.")
}

// BoxLabel lida com GET /api/caixas/{id}/etiqueta.
// @Summary Etiqueta (PDF) de uma caixa
// @Tags caixas
// @Produce application/pdf
// @Param id path int true "ID da caixa"
// @Success 200 {file} binary
// @Failure 404 {object} domain.ErrorResponse
// @Router /caixas/{id}/etiqueta [get]
func (h *Handler) BoxLabel(w http.ResponseWriter, r *http.Request) {
	id, err := response.PathID(r, "id")
	if err != nil {
		h.Resp.Error(w, r, err)
		return
	}
	pdf, err := h.Labels.BoxLabel(r.Context(), id)
	if err != nil {
		h.Resp.Error(w, r, err)
		return
	}
	writePDF(w, fmt.Sprintf("caixa-%d-etiqueta.pdf", id), pdf)
}

func (h *Handler) deactivate(w http.ResponseWriter, r *http.Request, fn func(context.Context, int64) error, message string) {
	id, err := response.PathID(r, "id")
	if err != nil {
		h.Resp.Error(w, r, err)
		return
	}
	if err := fn(r.Context(), id); err != nil {
		h.Resp.Error(w, r, err)
		return
	}
	h.Resp.Message(w, nil, message)
}

func writePDF(w http.ResponseWriter, filename string, pdf []byte) {
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`inline; filename="%s"`, filename))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(pdf)
}
