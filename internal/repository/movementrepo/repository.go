package movementrepo

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"pioerp/internal/domain"
	apperror "pioerp/internal/errors"
	"pioerp/internal/pkg/logger"
	"pioerp/internal/repository/catalogrepo"
)

// MovementRepository lê o histórico de movimentação e os indicadores do painel.
type MovementRepository struct {
	DB        *sql.DB
	DBTimeout time.Duration
	logger    logger.Logger
}

// NewMovementRepository cria e retorna uma nova instância do Repositório de Movimentação.
func NewMovementRepository(db *sql.DB, dbTimeout time.Duration, logger logger.Logger) *MovementRepository {
	return &MovementRepository{DB: db, DBTimeout: dbTimeout, logger: logger}
}

// List aplica os filtros já normalizados pelo serviço.
func (r *MovementRepository) List(ctx context.Context, filter domain.MovementFilter) ([]domain.MovementDetail, error) {
	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	var conditions []string
	var args []interface{}
	if filter.EquipmentID != nil {
		args = append(args, *filter.EquipmentID)
		conditions = append(conditions, fmt.Sprintf("hm.equipamento_id = $%d", len(args)))
	}
	if filter.Type != "" {
		args = append(args, filter.Type)
		conditions = append(conditions, fmt.Sprintf("hm.tipo = $%d", len(args)))
	}
	where := ""
	if len(conditions) > 0 {
		where = "WHERE " + strings.Join(conditions, " AND ")
	}
	args = append(args, filter.Limit, filter.Offset)

	query := fmt.Sprintf(`
		SELECT
			hm.id, hm.equipamento_id, hm.tipo, hm.status_anterior, hm.status_novo,
			hm.endereco_origem_id, hm.endereco_destino_id, hm.caixa_origem_id, hm.caixa_destino_id,
			hm.observacao, hm.created_at,
			ef.numero_serie, ef.imobilizado, ic.nome AS modelo,
			eo.codigo AS origem_codigo, ed.codigo AS destino_codigo,
			co.codigo AS caixa_origem_codigo, cd.codigo AS caixa_destino_codigo
		FROM historico_movimentacao hm
		JOIN equipamento_fisico ef   ON ef.id = hm.equipamento_id
		JOIN item_catalogo ic        ON ic.id = ef.item_catalogo_id
		LEFT JOIN endereco_fisico eo ON eo.id = hm.endereco_origem_id
		LEFT JOIN endereco_fisico ed ON ed.id = hm.endereco_destino_id
		LEFT JOIN caixa co           ON co.id = hm.caixa_origem_id
		LEFT JOIN caixa cd           ON cd.id = hm.caixa_destino_id
		%s
		ORDER BY hm.created_at DESC, hm.id DESC
		LIMIT $%d OFFSET $%d`, where, len(args)-1, len(args))

	rows, err := r.DB.QueryContext(ctxTimeout, query, args...)
	if err != nil {
		r.logger.Error("Falha ao listar movimentações no DB.", err)
		return nil, apperror.FromDB("Falha ao listar movimentações", err)
	}
	defer rows.Close()

	out := []domain.MovementDetail{}
	for rows.Next() {
		var m domain.MovementDetail
		if err := rows.Scan(
			&m.ID, &m.EquipmentID, &m.Type, &m.PreviousStatus, &m.NewStatus,
			&m.FromLocationID, &m.ToLocationID, &m.FromBoxID, &m.ToBoxID,
			&m.Note, &m.CreatedAt,
			&m.SerialNumber, &m.AssetTag, &m.Model,
			&m.FromLocationCode, &m.ToLocationCode, &m.FromBoxCode, &m.ToBoxCode,
		); err != nil {
			return nil, apperror.FromDB("Falha ao ler movimentação", err)
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, apperror.FromDB("Falha ao ler movimentações", err)
	}
	return out, nil
}

// CriticalStock lista os modelos críticos, maior déficit primeiro.
func (r *MovementRepository) CriticalStock(ctx context.Context) ([]domain.CatalogStock, error) {
	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	rows, err := r.DB.QueryContext(ctxTimeout, `
		SELECT `+catalogrepo.StockColumns+`
		FROM v_estoque_por_catalogo
		WHERE estoque_critico
		ORDER BY deficit DESC, nome ASC`)
	if err != nil {
		r.logger.Error("Falha ao buscar estoque crítico no DB.", err)
		return nil, apperror.FromDB("Falha ao buscar estoque crítico", err)
	}
	defer rows.Close()

	out := []domain.CatalogStock{}
	for rows.Next() {
		c, err := catalogrepo.ScanStock(rows)
		if err != nil {
			return nil, apperror.FromDB("Falha ao ler estoque crítico", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, apperror.FromDB("Falha ao ler estoque crítico", err)
	}
	return out, nil
}

// CountCritical conta os modelos abaixo do mínimo.
func (r *MovementRepository) CountCritical(ctx context.Context) (int, error) {
	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	var n int
	if err := r.DB.QueryRowContext(ctxTimeout,
		`SELECT COUNT(*) FROM v_estoque_por_catalogo WHERE estoque_critico`).Scan(&n); err != nil {
		return 0, apperror.FromDB("Falha ao contar alertas críticos", err)
	}
	return n, nil
}

// StatusTotals conta os equipamentos por status.
func (r *MovementRepository) StatusTotals(ctx context.Context) (domain.DashboardTotals, error) {
	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	var t domain.DashboardTotals
	err := r.DB.QueryRowContext(ctxTimeout, `
		SELECT
			COUNT(*),
			COUNT(*) FILTER (WHERE status = 'reposicao'),
			COUNT(*) FILTER (WHERE status = 'ag_triagem'),
			COUNT(*) FILTER (WHERE status = 'venda'),
			COUNT(*) FILTER (WHERE status = 'em_uso'),
			COUNT(*) FILTER (WHERE status = 'pre_triagem'),
			COUNT(*) FILTER (WHERE status = 'pre_venda'),
			COUNT(*) FILTER (WHERE status = 'ag_internalizacao')
		FROM equipamento_fisico`,
	).Scan(&t.Total, &t.InStock, &t.InTriage, &t.ForSale, &t.InUse, &t.PreTriage, &t.PreSale, &t.Internalization)
	if err != nil {
		r.logger.Error("Falha ao contar equipamentos por status no DB.", err)
		return domain.DashboardTotals{}, apperror.FromDB("Falha ao contar equipamentos", err)
	}
	return t, nil
}
