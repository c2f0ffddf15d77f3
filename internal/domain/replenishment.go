package domain

import "time"

// RequestStatus é o estado de uma solicitação de lote.
type RequestStatus string

const (
	RequestPending    RequestStatus = "pendente"
	RequestInProgress RequestStatus = "em_andamento"
	RequestFulfilled  RequestStatus = "atendida"
	RequestCancelled  RequestStatus = "cancelada"
)

// RequestStatuses na ordem de exibição da fila.
var RequestStatuses = []RequestStatus{RequestPending, RequestInProgress, RequestFulfilled, RequestCancelled}

// Valid indica se o status pertence ao conjunto fixo.
func (s RequestStatus) Valid() bool {
	for _, v := range RequestStatuses {
		if v == s {
			return true
		}
	}
	return false
}

// Active indica se a solicitação ainda conta para a regra de "uma ativa por modelo".
func (s RequestStatus) Active() bool {
	return s == RequestPending || s == RequestInProgress
}

// ReplenishmentRequest pede que o almoxarife desça um pallet de um modelo crítico.
type ReplenishmentRequest struct {
	ID            int64         `json:"id"`
	CatalogItemID int64         `json:"item_catalogo_id"`
	Status        RequestStatus `json:"status"`
	Note          *string       `json:"observacao"`
	CreatedAt     time.Time     `json:"created_at"`
	FulfilledAt   *time.Time    `json:"atendida_em"`
	UpdatedAt     time.Time     `json:"updated_at"`
}

// ReplenishmentDetail é a solicitação com os dados do modelo para a fila.
type ReplenishmentDetail struct {
	ReplenishmentRequest
	Model    string `json:"modelo"`
	Category string `json:"categoria"`
	InStock  int    `json:"qtd_reposicao"`
	MinStock int    `json:"estoque_minimo"`
	Deficit  int    `json:"deficit"`
}

// ReplenishmentInput é o payload de POST /reparo/solicitar-lote.
type ReplenishmentInput struct {
	CatalogItemID int64  `json:"item_catalogo_id"`
	Note          string `json:"observacao"`
}

// RequestStatusInput é o payload de PUT /reparo/solicitacoes/{id}.
type RequestStatusInput struct {
	Status RequestStatus `json:"status"`
}
