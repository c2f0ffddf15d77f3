package domain

import "time"

// LocationLevel é o nível de um endereço físico na hierarquia.
type LocationLevel string

const (
	LevelRack    LocationLevel = "porta_pallet"
	LevelSection LocationLevel = "sessao"
	LevelPallet  LocationLevel = "pallet"
	LevelBox     LocationLevel = "caixa"
)

// LocationLevels em ordem hierárquica, do mais alto para o mais baixo.
var LocationLevels = []LocationLevel{LevelRack, LevelSection, LevelPallet, LevelBox}

// Rank devolve a posição do nível (1 = porta_pallet) ou 0 se desconhecido.
func (l LocationLevel) Rank() int {
	for i, v := range LocationLevels {
		if v == l {
			return i + 1
		}
	}
	return 0
}

// Valid indica se o nível é conhecido.
func (l LocationLevel) Valid() bool { return l.Rank() > 0 }

// ParentLevel devolve o nível imediatamente acima; porta_pallet não tem pai.
func (l LocationLevel) ParentLevel() (LocationLevel, bool) {
	r := l.Rank()
	if r <= 1 {
		return "", false
	}
	return LocationLevels[r-2], true
}

// Location é um endereço físico (nó da hierarquia ou endereço plano).
type Location struct {
	ID          int64          `json:"id"`
	Code        string         `json:"codigo"`
	Description *string        `json:"descricao"`
	Level       LocationLevel  `json:"nivel"`
	ParentID    *int64         `json:"parent_id"`
	ParentCode  *string        `json:"parent_codigo,omitempty"`
	ParentLevel *LocationLevel `json:"parent_nivel,omitempty"`
	Active      bool           `json:"ativo"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

// LocationNode é um endereço com seus filhos, para a visão em árvore.
type LocationNode struct {
	Location
	Children []*LocationNode `json:"filhos"`
}

// BuildLocationTree monta a floresta a partir de uma lista plana, preservando
// a ordem de entrada. Um nó cujo pai não está na lista vira raiz.
func BuildLocationTree(rows []Location) []*LocationNode {
	nodes := make(map[int64]*LocationNode, len(rows))
	for _, r := range rows {
		nodes[r.ID] = &LocationNode{Location: r, Children: []*LocationNode{}}
	}

	roots := []*LocationNode{}
	for _, r := range rows {
		node := nodes[r.ID]
		if r.ParentID != nil {
			if parent, ok := nodes[*r.ParentID]; ok && parent != node {
				parent.Children = append(parent.Children, node)
				continue
			}
		}
		roots = append(roots, node)
	}
	return roots
}

// LocationFilter são os filtros da listagem de endereços.
type LocationFilter struct {
	Level  LocationLevel
	Active bool
}

// LocationInput é o payload de criação de endereço.
type LocationInput struct {
	Code        string        `json:"codigo"`
	Description string        `json:"descricao"`
	Level       LocationLevel `json:"nivel"`
	ParentID    *int64        `json:"parent_id"`
}

// LocationUpdate é o payload de edição; nil mantém o valor atual.
type LocationUpdate struct {
	Code        *string `json:"codigo"`
	Description *string `json:"descricao"`
	Active      *bool   `json:"ativo"`
}

// Pallet é um pallet físico posicionado em um endereço.
type Pallet struct {
	ID           int64     `json:"id"`
	Code         string    `json:"codigo"`
	LocationID   int64     `json:"endereco_id"`
	LocationCode string    `json:"endereco_codigo,omitempty"`
	Active       bool      `json:"ativo"`
	CreatedAt    time.Time `json:"created_at"`
}

// PalletInput é o payload de criação de pallet.
type PalletInput struct {
	Code       string `json:"codigo"`
	LocationID int64  `json:"endereco_id"`
}

// Box é uma caixa dentro de um pallet: a menor unidade endereçável.
type Box struct {
	ID           int64     `json:"id"`
	Code         string    `json:"codigo"`
	PalletID     int64     `json:"pallet_id"`
	PalletCode   string    `json:"pallet_codigo,omitempty"`
	LocationID   int64     `json:"endereco_id,omitempty"`
	LocationCode string    `json:"endereco_codigo,omitempty"`
	Active       bool      `json:"ativo"`
	CreatedAt    time.Time `json:"created_at"`
}

// BoxInput é o payload de criação de caixa.
type BoxInput struct {
	Code     string `json:"codigo"`
	PalletID int64  `json:"pallet_id"`
}

// BoxLocation é uma caixa que contém um modelo em estoque, com a cadeia de localização.
type BoxLocation struct {
	BoxID        int64  `json:"caixa_id"`
	BoxCode      string `json:"caixa_codigo"`
	PalletID     int64  `json:"pallet_id"`
	PalletCode   string `json:"pallet_codigo"`
	LocationID   int64  `json:"endereco_id"`
	LocationCode string `json:"endereco_codigo"`
	Quantity     int    `json:"quantidade"`
}
