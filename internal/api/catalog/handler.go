package catalog

import (
	"context"
	"net/http"

	"pioerp/internal/api/response"
	"pioerp/internal/domain"
)

// CatalogService define o contrato das operações de catálogo usadas pelo handler.
type CatalogService interface {
	List(ctx context.Context) ([]domain.CatalogStock, error)
	GetByID(ctx context.Context, id int64) (domain.CatalogStock, error)
	Create(ctx context.Context, in domain.CatalogInput) (domain.CatalogItem, error)
	Update(ctx context.Context, id int64, in domain.CatalogInput) (domain.CatalogItem, error)
	Deactivate(ctx context.Context, id int64) (domain.CatalogItem, error)
}

// Handler agrupa os handlers de /api/catalogo.
type Handler struct {
	Service CatalogService
	Resp    *response.Writer
}

func NewHandler(svc CatalogService, resp *response.Writer) *Handler {
	return &Handler{Service: svc, Resp: resp}
}

// List lida com GET /api/catalogo.
// @Summary Lista o catálogo com o estoque atual
// @Tags catalogo
// @Produce json
// @Success 200 {object} domain.Envelope{data=[]domain.CatalogStock}
// @Failure 500 {object} domain.ErrorResponse
// @Router /catalogo [get]
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	items, err := h.Service.List(r.Context())
	if err != nil {
		h.Resp.Error(w, r, err)
		return
	}
	h.Resp.OK(w, items)
}

// Get lida com GET /api/catalogo/{id}.
// @Summary Busca um item do catálogo
// @Tags catalogo
// @Produce json
// @Param id path int true "ID do item"
// @Success 200 {object} domain.Envelope{data=domain.CatalogStock}
// @Failure 404 {object} domain.ErrorResponse
// @Router /catalogo/{id} [get]
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

// Create lida com POST /api/catalogo.
// @Summary Cadastra um modelo no catálogo
// @Tags catalogo
// @Accept json
// @Produce json
// @Param item body domain.CatalogInput true "Dados do item"
// @Success 201 {object} domain.Envelope{data=domain.CatalogItem}
// @Failure 400 {object} domain.ErrorResponse
// @Failure 409 {object} domain.ErrorResponse "Código já cadastrado"
// @Router /catalogo [post]
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var in domain.CatalogInput
	if err := response.DecodeJSON(r, &in); err != nil {
		h.Resp.Error(w, r, err)
		return
	}
	item, err := h.Service.Create(r.Context(), in)
	if err != nil {
		h.Resp.Error(w, r, err)
		return
	}
	h.Resp.Created(w, item, "Item cadastrado com sucesso.")
}

// Update lida com PUT /api/catalogo/{id}.
// @Summary Atualiza um item do catálogo
// @Tags catalogo
// @Accept json
// @Produce json
// @Param id path int true "ID do item"
// @Param item body domain.CatalogInput true "Campos a alterar"
// @Success 200 {object} domain.Envelope{data=domain.CatalogItem}
// @Failure 400 {object} domain.ErrorResponse
// @Failure 404 {object} domain.ErrorResponse
// @Router /catalogo/{id} [put]
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := response.PathID(r, "id")
	if err != nil {
		h.Resp.Error(w, r, err)
		return
	}
	var in domain.CatalogInput
	if err := response.DecodeJSON(r, &in); err != nil {
		h.Resp.Error(w, r, err)
		return
	}
	item, err := h.Service.Update(r.Context(), id, in)
	if err != nil {
		h.Resp.Error(w, r, err)
		return
	}
	h.Resp.Message(w, item, "Item atualizado com sucesso.")
}

// Delete lida com DELETE /api/catalogo/{id} (desativação lógica).
// @Summary Desativa um item do catálogo
// @Tags catalogo
// @Produce json
// @Param id path int true "ID do item"
// @Success 200 {object} domain.Envelope{data=domain.CatalogItem}
// @Failure 404 {object} domain.ErrorResponse
// @Failure 409 {object} domain.ErrorResponse "Há equipamentos vinculados"
// @Router /catalogo/{id} [delete]
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := response.PathID(r, "id")
	if err != nil {
		h.Resp.Error(w, r, err)
		return
	}
	item, err := h.Service.Deactivate(r.Context(), id)
	if err != nil {
		h.Resp.Error(w, r, err)
		return
	}
	h.Resp.Message(w, item, "Item desativado com sucesso.")
}
