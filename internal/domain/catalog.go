package domain

import "time"

// CatalogItem é um modelo/tipo de equipamento com limites de estoque.
type CatalogItem struct {
	ID        int64     `json:"id"`
	Code      *string   `json:"codigo"`
	Name      string    `json:"nome"`
	Category  string    `json:"categoria"`
	MinStock  int       `json:"estoque_minimo"`
	MaxStock  int       `json:"estoque_maximo"`
	Active    bool      `json:"ativo"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// CatalogStock é o item de catálogo com as contagens ao vivo por status.
type CatalogStock struct {
	CatalogItem
	InStock         int  `json:"qtd_reposicao"`
	AwaitingTriage  int  `json:"qtd_ag_triagem"`
	PreTriage       int  `json:"qtd_pre_triagem"`
	PreSale         int  `json:"qtd_pre_venda"`
	ForSale         int  `json:"qtd_venda"`
	InUse           int  `json:"qtd_em_uso"`
	Internalization int  `json:"qtd_ag_internalizacao"`
	Total           int  `json:"qtd_total"`
	Deficit         int  `json:"deficit"`
	Critical        bool `json:"estoque_critico"`
}

// CatalogInput é o payload de criação/edição; campos nil não são alterados na edição.
type CatalogInput struct {
	Code     *string `json:"codigo"`
	Name     *string `json:"nome"`
	Category *string `json:"categoria"`
	MinStock *int    `json:"estoque_minimo"`
	MaxStock *int    `json:"estoque_maximo"`
	Active   *bool   `json:"ativo"`
}

// Apply copia os campos informados sobre o item.
func (in CatalogInput) Apply(item CatalogItem) CatalogItem {
	if in.Code != nil {
		item.Code = OptionalString(*in.Code)
	}
	if in.Name != nil {
		item.Name = *in.Name
	}
	if in.Category != nil {
		item.Category = *in.Category
	}
	if in.MinStock != nil {
		item.MinStock = *in.MinStock
	}
	if in.MaxStock != nil {
		item.MaxStock = *in.MaxStock
	}
	if in.Active != nil {
		item.Active = *in.Active
	}
	return item
}
