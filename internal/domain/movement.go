package domain

import (
	"strings"
	"time"
)

// MovementType identifica o tipo de registro no histórico de movimentação.
type MovementType string

const (
	MovementPurchase     MovementType = "entrada_compra"
	MovementRepairReturn MovementType = "entrada_retorno_reparo"
	MovementReceiving    MovementType = "entrada_recebimento"
	MovementExitUse      MovementType = "saida_uso"
	MovementExitTriage   MovementType = "saida_triagem"
	MovementExitSale     MovementType = "saida_venda"
	MovementTransfer     MovementType = "movimentacao"
	MovementLotTransfer  MovementType = "transferencia_lote"
)

// Destination é a etiqueta de destino pedida numa saída/transição.
type Destination string

const (
	DestinationUse             Destination = "saida_uso"
	DestinationTriage          Destination = "ag_triagem"
	DestinationSale            Destination = "venda"
	DestinationPreSale         Destination = "pre_venda"
	DestinationStock           Destination = "reposicao"
	DestinationInternalization Destination = "ag_internalizacao"
)

// Transition é o efeito de um destino: status resultante, tipo de movimentação e descrição.
type Transition struct {
	Status      EquipmentStatus
	Movement    MovementType
	Description string
}

// ResolveTransition é a tabela de transições legais. Qualquer destino fora
// dela é rejeitado pelo chamador.
func ResolveTransition(d Destination) (Transition, bool) {
	switch d {
	case DestinationUse:
		return Transition{StatusEmUso, MovementExitUse, "Enviado para uso (removido do estoque)"}, true
	case DestinationTriage:
		return Transition{StatusAgTriagem, MovementExitTriage, "Alocado em pallet para triagem"}, true
	case DestinationSale:
		return Transition{StatusVenda, MovementExitSale, "Baixado para venda/sucata"}, true
	case DestinationPreSale:
		return Transition{StatusPreVenda, MovementTransfer, "Movido para prateleira de pré-venda"}, true
	case DestinationStock:
		return Transition{StatusReposicao, MovementRepairReturn, "Retornado ao estoque"}, true
	case DestinationInternalization:
		return Transition{StatusAgInternalizacao, MovementTransfer, "Encaminhado para internalização"}, true
	default:
		return Transition{}, false
	}
}

// Destinations lista os destinos aceitos por ResolveTransition.
var Destinations = []Destination{
	DestinationUse, DestinationTriage, DestinationSale,
	DestinationPreSale, DestinationStock, DestinationInternalization,
}

// NextPlacement calcula a localização resultante de uma transição: status de
// saída do armazém zeram a localização; caso contrário vale o destino
// informado ou, na ausência dele, a localização atual.
func NextPlacement(status EquipmentStatus, requested, current Placement) Placement {
	if status.LeavesWarehouse() {
		return Placement{}
	}
	if !requested.IsEmpty() {
		return requested
	}
	return current
}

// Movement é uma entrada do histórico de movimentação (somente inserção).
type Movement struct {
	ID             int64            `json:"id"`
	EquipmentID    int64            `json:"equipamento_id"`
	Type           MovementType     `json:"tipo"`
	PreviousStatus *EquipmentStatus `json:"status_anterior"`
	NewStatus      EquipmentStatus  `json:"status_novo"`
	FromLocationID *int64           `json:"endereco_origem_id"`
	ToLocationID   *int64           `json:"endereco_destino_id"`
	FromBoxID      *int64           `json:"caixa_origem_id"`
	ToBoxID        *int64           `json:"caixa_destino_id"`
	Note           *string          `json:"observacao"`
	CreatedAt      time.Time        `json:"created_at"`
}

// NewMovement monta o registro de histórico de uma mudança de status.
func NewMovement(equipmentID int64, typ MovementType, previous *EquipmentStatus, next EquipmentStatus, from, to Placement, note string) Movement {
	return Movement{
		EquipmentID:    equipmentID,
		Type:           typ,
		PreviousStatus: previous,
		NewStatus:      next,
		FromLocationID: from.LocationID,
		ToLocationID:   to.LocationID,
		FromBoxID:      from.BoxID,
		ToBoxID:        to.BoxID,
		Note:           OptionalString(note),
	}
}

// MovementDetail é a linha do histórico com os dados de exibição.
type MovementDetail struct {
	Movement
	SerialNumber     string  `json:"numero_serie"`
	AssetTag         string  `json:"imobilizado"`
	Model            string  `json:"modelo"`
	FromLocationCode *string `json:"origem_codigo"`
	ToLocationCode   *string `json:"destino_codigo"`
	FromBoxCode      *string `json:"caixa_origem_codigo"`
	ToBoxCode        *string `json:"caixa_destino_codigo"`
}

// MovementFilter são os filtros da listagem do histórico.
type MovementFilter struct {
	EquipmentID *int64
	Type        MovementType
	Limit       int
	Offset      int
}

const (
	DefaultMovementLimit = 100
	MaxMovementLimit     = 500
)

// Normalize aplica o limite padrão, o teto e o offset mínimo.
func (f MovementFilter) Normalize() MovementFilter {
	if f.Limit <= 0 {
		f.Limit = DefaultMovementLimit
	}
	if f.Limit > MaxMovementLimit {
		f.Limit = MaxMovementLimit
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
	return f
}

// DashboardTotals são as contagens gerais exibidas no painel.
type DashboardTotals struct {
	Total           int `json:"total_equipamentos"`
	InStock         int `json:"em_reposicao"`
	InTriage        int `json:"em_triagem"`
	ForSale         int `json:"em_venda"`
	InUse           int `json:"em_uso"`
	PreTriage       int `json:"em_pre_triagem"`
	PreSale         int `json:"em_pre_venda"`
	Internalization int `json:"em_internalizacao"`
}

// Dashboard é o resumo da tela inicial.
type Dashboard struct {
	Totals          DashboardTotals  `json:"totais"`
	CriticalAlerts  int              `json:"alertas_criticos"`
	RecentMovements []MovementDetail `json:"movimentacoes_recentes"`
}

// OptionalString converte texto vazio (após trim) em nil.
func OptionalString(s string) *string {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
