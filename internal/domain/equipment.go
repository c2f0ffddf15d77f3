package domain

import (
	"fmt"
	"strings"
	"time"
)

// EquipmentStatus é o estado do ciclo de vida de um equipamento físico.
type EquipmentStatus string

const (
	StatusReposicao        EquipmentStatus = "reposicao"         // em estoque
	StatusAgTriagem        EquipmentStatus = "ag_triagem"        // aguardando triagem/reparo
	StatusPreTriagem       EquipmentStatus = "pre_triagem"       // prateleira de recebimento
	StatusPreVenda         EquipmentStatus = "pre_venda"         // prateleira de pré-venda
	StatusEmUso            EquipmentStatus = "em_uso"            // fora do armazém, com usuário
	StatusVenda            EquipmentStatus = "venda"             // vendido/sucata, fora do armazém
	StatusAgInternalizacao EquipmentStatus = "ag_internalizacao" // voltou do reparo, aguarda aprovação
)

// EquipmentStatuses lista os status válidos na ordem de exibição.
var EquipmentStatuses = []EquipmentStatus{
	StatusReposicao, StatusAgTriagem, StatusVenda, StatusEmUso,
	StatusPreTriagem, StatusPreVenda, StatusAgInternalizacao,
}

// Valid indica se o status pertence ao conjunto conhecido.
func (s EquipmentStatus) Valid() bool {
	for _, v := range EquipmentStatuses {
		if v == s {
			return true
		}
	}
	return false
}

// LeavesWarehouse indica os status em que o equipamento não tem endereço.
func (s EquipmentStatus) LeavesWarehouse() bool {
	return s == StatusEmUso || s == StatusVenda
}

// Placement é a localização física de um equipamento: endereço e/ou caixa.
// Ambos nulos significa "fora do armazém".
type Placement struct {
	LocationID *int64 `json:"endereco_id"`
	BoxID      *int64 `json:"caixa_id"`
}

// IsEmpty indica que nenhuma referência de localização foi informada.
func (p Placement) IsEmpty() bool {
	return p.LocationID == nil && p.BoxID == nil
}

// Equipment representa uma unidade física rastreada pelo armazém.
type Equipment struct {
	ID            int64           `json:"id"`
	CatalogItemID int64           `json:"item_catalogo_id"`
	SerialNumber  string          `json:"numero_serie"`
	AssetTag      string          `json:"imobilizado"`
	Status        EquipmentStatus `json:"status"`
	LocationID    *int64          `json:"endereco_id"`
	BoxID         *int64          `json:"caixa_id"`
	Notes         *string         `json:"observacoes"`
	BranchCode    *string         `json:"alocacao_filial"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// Placement devolve a localização atual do equipamento.
func (e Equipment) Placement() Placement {
	return Placement{LocationID: e.LocationID, BoxID: e.BoxID}
}

// SetPlacement substitui a localização atual.
func (e *Equipment) SetPlacement(p Placement) {
	e.LocationID = p.LocationID
	e.BoxID = p.BoxID
}

// EquipmentDetail é o equipamento acrescido dos dados de catálogo e da cadeia de localização.
type EquipmentDetail struct {
	Equipment
	Model              string  `json:"modelo"`
	Category           string  `json:"categoria"`
	MinStock           *int    `json:"estoque_minimo,omitempty"`
	MaxStock           *int    `json:"estoque_maximo,omitempty"`
	LocationCode       *string `json:"endereco_codigo"`
	BoxCode            *string `json:"caixa_codigo"`
	PalletID           *int64  `json:"pallet_id"`
	PalletCode         *string `json:"pallet_codigo"`
	PalletLocationCode *string `json:"pallet_endereco_codigo"`
}

// EquipmentFilter são os filtros da listagem de equipamentos.
type EquipmentFilter struct {
	Status        EquipmentStatus
	CatalogItemID *int64
	BoxID         *int64
}

// EntryType é o tipo de entrada de um equipamento no armazém.
type EntryType string

const (
	EntryPurchase     EntryType = "entrada_compra"
	EntryRepairReturn EntryType = "entrada_retorno_reparo"
	EntryReceiving    EntryType = "entrada_recebimento"
)

// ParseEntryType normaliza o tipo de entrada; vazio equivale a compra.
func ParseEntryType(raw string) (EntryType, error) {
	switch t := EntryType(strings.TrimSpace(raw)); t {
	case "":
		return EntryPurchase, nil
	case EntryPurchase, EntryRepairReturn, EntryReceiving:
		return t, nil
	default:
		return "", fmt.Errorf(`"tipo_entrada" inválido. Aceitos: %s, %s, %s`, EntryPurchase, EntryRepairReturn, EntryReceiving)
	}
}

// InitialStatus é o status com que o equipamento entra: recebimento vai para
// pré-triagem, os demais direto para reposição.
func (t EntryType) InitialStatus() EquipmentStatus {
	if t == EntryReceiving {
		return StatusPreTriagem
	}
	return StatusReposicao
}

// EntryInput é o payload de POST /equipamento/entrada.
type EntryInput struct {
	CatalogItemID int64  `json:"item_catalogo_id"`
	SerialNumber  string `json:"numero_serie"`
	AssetTag      string `json:"imobilizado"`
	LocationID    *int64 `json:"endereco_id"`
	BoxID         *int64 `json:"caixa_id"`
	EntryType     string `json:"tipo_entrada"`
	Note          string `json:"observacao"`
}

// ExitInput é o payload de POST /equipamento/{id}/saida.
type ExitInput struct {
	Destination string `json:"status_destino"`
	LocationID  *int64 `json:"endereco_destino_id"`
	BoxID       *int64 `json:"caixa_destino_id"`
	Note        string `json:"observacao"`
}

// TransitionResult descreve o efeito de uma saída/transição.
type TransitionResult struct {
	EquipmentID int64           `json:"equipamento_id"`
	NewStatus   EquipmentStatus `json:"status_novo"`
	Description string          `json:"descricao"`
	Equipment   Equipment       `json:"equipamento"`
	Repair      *Repair         `json:"reparo,omitempty"`
}

// LotInput é o payload de POST /equipamento/montar-pallet.
type LotInput struct {
	EquipmentIDs []int64         `json:"equipamento_ids"`
	LocationID   *int64          `json:"endereco_destino_id"`
	BoxID        *int64          `json:"caixa_destino_id"`
	Destination  EquipmentStatus `json:"status_destino"`
	Note         string          `json:"observacao"`
}

// LotResult resume a transferência em lote.
type LotResult struct {
	Transferred   int             `json:"transferidos"`
	Destination   EquipmentStatus `json:"status_destino"`
	EquipmentIDs  []int64         `json:"equipamento_ids"`
	RepairsOpened int             `json:"reparos_abertos"`
}

// InternalizationBranchCode é o código de filial padrão após a internalização.
const InternalizationBranchCode = "324"

// ApprovalInput é o payload de POST /internalizacao/{id}/aprovar.
type ApprovalInput struct {
	BoxID *int64 `json:"caixa_id"`
}
