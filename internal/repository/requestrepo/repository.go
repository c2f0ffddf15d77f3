package requestrepo

import (
	"context"
	"database/sql"
	"time"

	"pioerp/internal/domain"
	apperror "pioerp/internal/errors"
	"pioerp/internal/pkg/logger"
)

// RequestRepository lê a fila de solicitações de lote.
type RequestRepository struct {
	DB        *sql.DB
	DBTimeout time.Duration
	logger    logger.Logger
}

// NewRequestRepository cria e retorna uma nova instância do Repositório de Solicitações.
func NewRequestRepository(db *sql.DB, dbTimeout time.Duration, logger logger.Logger) *RequestRepository {
	return &RequestRepository{DB: db, DBTimeout: dbTimeout, logger: logger}
}

// List ordena pendente, em_andamento, atendida, cancelada; cada grupo do mais recente ao mais antigo.
// Status vazio lista todas.
func (r *RequestRepository) List(ctx context.Context, status domain.RequestStatus) ([]domain.ReplenishmentDetail, error) {
	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	rows, err := r.DB.QueryContext(ctxTimeout, `
		SELECT s.id, s.item_catalogo_id, s.status, s.observacao, s.created_at, s.atendida_em, s.updated_at,
		       v.nome, v.categoria, v.qtd_reposicao, v.estoque_minimo, v.deficit
		FROM solicitacao_lote s
		JOIN v_estoque_por_catalogo v ON v.id = s.item_catalogo_id
		WHERE ($1::text = '' OR s.status = $1::text)
		ORDER BY CASE s.status
		             WHEN 'pendente' THEN 0
		             WHEN 'em_andamento' THEN 1
		             WHEN 'atendida' THEN 2
		             ELSE 3
		         END,
		         s.created_at DESC`, string(status))
	if err != nil {
		r.logger.Error("Falha ao listar solicitações no DB.", err)
		return nil, apperror.FromDB("Falha ao listar solicitações", err)
	}
	defer rows.Close()

	out := []domain.ReplenishmentDetail{}
	for rows.Next() {
		var d domain.ReplenishmentDetail
		if err := rows.Scan(&d.ID, &d.CatalogItemID, &d.Status, &d.Note, &d.CreatedAt, &d.FulfilledAt, &d.UpdatedAt,
			&d.Model, &d.Category, &d.InStock, &d.MinStock, &d.Deficit); err != nil {
			return nil, apperror.FromDB("Falha ao ler solicitação", err)
		}
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, apperror.FromDB("Falha ao ler solicitações", err)
	}
	return out, nil
}
