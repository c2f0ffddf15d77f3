package catalogrepo

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"pioerp/internal/domain"
	apperror "pioerp/internal/errors"
	"pioerp/internal/pkg/logger"
)

// CatalogRepository persiste item_catalogo e lê as contagens de v_estoque_por_catalogo.
type CatalogRepository struct {
	DB        *sql.DB
	DBTimeout time.Duration
	logger    logger.Logger
}

// NewCatalogRepository cria e retorna uma nova instância do Repositório de Catálogo.
func NewCatalogRepository(db *sql.DB, dbTimeout time.Duration, logger logger.Logger) *CatalogRepository {
	return &CatalogRepository{DB: db, DBTimeout: dbTimeout, logger: logger}
}

// StockColumns são as colunas de v_estoque_por_catalogo lidas por ScanStock.
const StockColumns = `id, codigo, nome, categoria, estoque_minimo, estoque_maximo, ativo, created_at, updated_at,
	qtd_reposicao, qtd_ag_triagem, qtd_pre_triagem, qtd_pre_venda, qtd_venda, qtd_em_uso,
	qtd_ag_internalizacao, qtd_total, deficit, estoque_critico`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

// ScanStock lê uma linha de v_estoque_por_catalogo na ordem de StockColumns.
func ScanStock(row rowScanner) (domain.CatalogStock, error) {
	var c domain.CatalogStock
	err := row.Scan(&c.ID, &c.Code, &c.Name, &c.Category, &c.MinStock, &c.MaxStock, &c.Active,
		&c.CreatedAt, &c.UpdatedAt,
		&c.InStock, &c.AwaitingTriage, &c.PreTriage, &c.PreSale, &c.ForSale, &c.InUse,
		&c.Internalization, &c.Total, &c.Deficit, &c.Critical)
	return c, err
}

const itemColumns = `id, codigo, nome, categoria, estoque_minimo, estoque_maximo, ativo, created_at, updated_at`

func scanItem(row rowScanner) (domain.CatalogItem, error) {
	var c domain.CatalogItem
	err := row.Scan(&c.ID, &c.Code, &c.Name, &c.Category, &c.MinStock, &c.MaxStock, &c.Active, &c.CreatedAt, &c.UpdatedAt)
	return c, err
}

// List devolve o catálogo ativo, críticos primeiro e depois por nome.
func (r *CatalogRepository) List(ctx context.Context) ([]domain.CatalogStock, error) {
	r.logger.Debug("Listando catálogo no repositório.", nil)

	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	rows, err := r.DB.QueryContext(ctxTimeout, `
		SELECT `+StockColumns+`
		FROM v_estoque_por_catalogo
		WHERE ativo
		ORDER BY estoque_critico DESC, nome ASC`)
	if err != nil {
		r.logger.Error("Falha ao listar catálogo no DB.", err)
		return nil, apperror.FromDB("Falha ao listar catálogo", err)
	}
	defer rows.Close()

	items := []domain.CatalogStock{}
	for rows.Next() {
		c, err := ScanStock(rows)
		if err != nil {
			return nil, apperror.FromDB("Falha ao ler item de catálogo", err)
		}
		items = append(items, c)
	}
	if err := rows.Err(); err != nil {
		return nil, apperror.FromDB("Falha ao ler catálogo", err)
	}
	return items, nil
}

// GetByID busca um item ativo com suas contagens.
func (r *CatalogRepository) GetByID(ctx context.Context, id int64) (domain.CatalogStock, error) {
	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	c, err := ScanStock(r.DB.QueryRowContext(ctxTimeout,
		`SELECT `+StockColumns+` FROM v_estoque_por_catalogo WHERE id = $1 AND ativo`, id))
	if errors.Is(err, sql.ErrNoRows) {
		r.logger.Info("Item de catálogo não encontrado.", map[string]interface{}{"item_catalogo_id": id})
		return domain.CatalogStock{}, apperror.NewNotFoundError("Item de catálogo não encontrado.")
	}
	if err != nil {
		r.logger.Error("Falha ao buscar item de catálogo no DB.", err)
		return domain.CatalogStock{}, apperror.FromDB("Falha ao buscar item de catálogo", err)
	}
	return c, nil
}

// Create insere um novo item.
func (r *CatalogRepository) Create(ctx context.Context, item domain.CatalogItem) (domain.CatalogItem, error) {
	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	created, err := scanItem(r.DB.QueryRowContext(ctxTimeout, `
		INSERT INTO item_catalogo (codigo, nome, categoria, estoque_minimo, estoque_maximo, ativo)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING `+itemColumns,
		item.Code, item.Name, item.Category, item.MinStock, item.MaxStock, item.Active))
	if err != nil {
		r.logger.Error("Falha ao inserir item de catálogo no DB.", err)
		return domain.CatalogItem{}, apperror.FromDB("Falha ao inserir item de catálogo", err)
	}
	return created, nil
}

// Update grava todos os campos editáveis do item.
func (r *CatalogRepository) Update(ctx context.Context, item domain.CatalogItem) (domain.CatalogItem, error) {
	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	updated, err := scanItem(r.DB.QueryRowContext(ctxTimeout, `
		UPDATE item_catalogo
		   SET codigo = $1, nome = $2, categoria = $3, estoque_minimo = $4, estoque_maximo = $5, ativo = $6
		 WHERE id = $7
		RETURNING `+itemColumns,
		item.Code, item.Name, item.Category, item.MinStock, item.MaxStock, item.Active, item.ID))
	if errors.Is(err, sql.ErrNoRows) {
		return domain.CatalogItem{}, apperror.NewNotFoundError("Item de catálogo não encontrado.")
	}
	if err != nil {
		r.logger.Error("Falha ao atualizar item de catálogo no DB.", err)
		return domain.CatalogItem{}, apperror.FromDB("Falha ao atualizar item de catálogo", err)
	}
	return updated, nil
}

// Deactivate desativa o item dentro de uma transação, recusando se houver
// equipamento fora de venda vinculado.
func (r *CatalogRepository) Deactivate(ctx context.Context, id int64) (domain.CatalogItem, error) {
	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	tx, err := r.DB.BeginTx(ctxTimeout, nil)
	if err != nil {
		return domain.CatalogItem{}, apperror.NewDBError("Falha ao iniciar transação", err)
	}
	defer tx.Rollback()

	var active bool
	err = tx.QueryRowContext(ctxTimeout, `SELECT ativo FROM item_catalogo WHERE id = $1 FOR UPDATE`, id).Scan(&active)
	if errors.Is(err, sql.ErrNoRows) || (err == nil && !active) {
		return domain.CatalogItem{}, apperror.NewNotFoundError("Item de catálogo não encontrado.")
	}
	if err != nil {
		return domain.CatalogItem{}, apperror.FromDB("Falha ao buscar item de catálogo", err)
	}

	var linked int
	if err := tx.QueryRowContext(ctxTimeout,
		`SELECT COUNT(*) FROM equipamento_fisico WHERE item_catalogo_id = $1 AND status <> 'venda'`, id).Scan(&linked); err != nil {
		return domain.CatalogItem{}, apperror.FromDB("Falha ao contar equipamentos vinculados", err)
	}
	if linked > 0 {
		r.logger.Warn("Desativação de catálogo bloqueada por equipamentos ativos.", map[string]interface{}{"item_catalogo_id": id, "equipamentos": linked})
		return domain.CatalogItem{}, apperror.NewConflictError("Não é possível desativar: existem equipamentos físicos ativos vinculados a este catálogo.")
	}

	item, err := scanItem(tx.QueryRowContext(ctxTimeout,
		`UPDATE item_catalogo SET ativo = FALSE WHERE id = $1 RETURNING `+itemColumns, id))
	if err != nil {
		return domain.CatalogItem{}, apperror.FromDB("Falha ao desativar item de catálogo", err)
	}
	if err := tx.Commit(); err != nil {
		return domain.CatalogItem{}, apperror.FromDB("Falha ao commitar transação", err)
	}
	return item, nil
}
