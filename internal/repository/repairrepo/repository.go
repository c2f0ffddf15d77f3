package repairrepo

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"pioerp/internal/domain"
	apperror "pioerp/internal/errors"
	"pioerp/internal/pkg/logger"
)

// RepairRepository atende as consultas de leitura do fluxo de reparo.
type RepairRepository struct {
	DB        *sql.DB
	DBTimeout time.Duration
	logger    logger.Logger
}

// NewRepairRepository cria e retorna uma nova instância do Repositório de Reparos.
func NewRepairRepository(db *sql.DB, dbTimeout time.Duration, logger logger.Logger) *RepairRepository {
	return &RepairRepository{DB: db, DBTimeout: dbTimeout, logger: logger}
}

// GetByID devolve o reparo com os dados do equipamento e as sessões em ordem de início.
func (r *RepairRepository) GetByID(ctx context.Context, id int64) (domain.RepairDetail, error) {
	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	var d domain.RepairDetail
	err := r.DB.QueryRowContext(ctxTimeout, `
		SELECT
			r.id, r.equipamento_id, r.status, r.descricao_problema, r.diagnostico, r.observacoes_finais,
			r.total_minutos_trabalhados, r.iniciado_em, r.finalizado_em, r.created_at, r.updated_at,
			ef.numero_serie, ef.imobilizado, ef.status AS status_equip,
			ic.nome AS modelo, ic.categoria
		FROM reparo r
		JOIN equipamento_fisico ef ON ef.id = r.equipamento_id
		JOIN item_catalogo ic      ON ic.id = ef.item_catalogo_id
		WHERE r.id = $1`, id,
	).Scan(
		&d.ID, &d.EquipmentID, &d.Status, &d.ProblemDescription, &d.Diagnosis, &d.FinalNotes,
		&d.TotalMinutes, &d.StartedAt, &d.FinishedAt, &d.CreatedAt, &d.UpdatedAt,
		&d.SerialNumber, &d.AssetTag, &d.EquipmentStatus, &d.Model, &d.Category,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.RepairDetail{}, apperror.NewNotFoundError("Reparo não encontrado.")
	}
	if err != nil {
		r.logger.Error("Falha ao buscar reparo no DB.", err)
		return domain.RepairDetail{}, apperror.FromDB("Falha ao buscar reparo", err)
	}

	rows, err := r.DB.QueryContext(ctxTimeout,
		`SELECT id, reparo_id, inicio, fim FROM sessao_reparo WHERE reparo_id = $1 ORDER BY inicio ASC`, id)
	if err != nil {
		return domain.RepairDetail{}, apperror.FromDB("Falha ao buscar sessões do reparo", err)
	}
	defer rows.Close()

	d.Sessions = []domain.RepairSession{}
	for rows.Next() {
		var s domain.RepairSession
		if err := rows.Scan(&s.ID, &s.RepairID, &s.Start, &s.End); err != nil {
			return domain.RepairDetail{}, apperror.FromDB("Falha ao ler sessão", err)
		}
		d.Sessions = append(d.Sessions, s)
	}
	if err := rows.Err(); err != nil {
		return domain.RepairDetail{}, apperror.FromDB("Falha ao ler sessões", err)
	}
	return d, nil
}

// Priorities lê v_prioridades_reparo: críticos, maior déficit, em progresso
// antes de pausado e aguardando, mais antigos primeiro.
func (r *RepairRepository) Priorities(ctx context.Context) ([]domain.RepairPriority, error) {
	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	rows, err := r.DB.QueryContext(ctxTimeout, `
		SELECT reparo_id, status_reparo, equipamento_id, numero_serie, imobilizado,
		       item_catalogo_id, modelo, categoria, descricao_problema, total_minutos_trabalhados,
		       iniciado_em, created_at, qtd_reposicao, estoque_minimo, deficit, critico,
		       endereco_codigo, caixa_codigo
		FROM v_prioridades_reparo
		ORDER BY critico DESC,
		         deficit DESC,
		         CASE status_reparo WHEN 'em_progresso' THEN 0 WHEN 'pausado' THEN 1 ELSE 2 END,
		         created_at ASC`)
	if err != nil {
		r.logger.Error("Falha ao buscar prioridades de reparo no DB.", err)
		return nil, apperror.FromDB("Falha ao buscar prioridades", err)
	}
	defer rows.Close()

	out := []domain.RepairPriority{}
	for rows.Next() {
		var p domain.RepairPriority
		if err := rows.Scan(
			&p.RepairID, &p.RepairStatus, &p.EquipmentID, &p.SerialNumber, &p.AssetTag,
			&p.CatalogItemID, &p.Model, &p.Category, &p.ProblemDescription, &p.TotalMinutes,
			&p.StartedAt, &p.CreatedAt, &p.InStock, &p.MinStock, &p.Deficit, &p.Critical,
			&p.LocationCode, &p.BoxCode,
		); err != nil {
			return nil, apperror.FromDB("Falha ao ler prioridade", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, apperror.FromDB("Falha ao ler prioridades", err)
	}
	return out, nil
}

// CriticalModels lista os modelos ativos abaixo do mínimo e se já há solicitação ativa.
func (r *RepairRepository) CriticalModels(ctx context.Context) ([]domain.CriticalModel, error) {
	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	rows, err := r.DB.QueryContext(ctxTimeout, `
		SELECT v.id, v.nome, v.categoria, v.estoque_minimo, v.qtd_reposicao,
		       v.qtd_pre_triagem, v.qtd_ag_triagem, v.deficit,
		       EXISTS (
		           SELECT 1 FROM solicitacao_lote s
		           WHERE s.item_catalogo_id = v.id AND s.status IN ('pendente', 'em_andamento')
		       ) AS tem_solicitacao_ativa
		FROM v_estoque_por_catalogo v
		WHERE v.estoque_critico
		ORDER BY v.deficit DESC, v.nome ASC`)
	if err != nil {
		r.logger.Error("Falha ao buscar modelos críticos no DB.", err)
		return nil, apperror.FromDB("Falha ao buscar modelos críticos", err)
	}
	defer rows.Close()

	out := []domain.CriticalModel{}
	for rows.Next() {
		var m domain.CriticalModel
		if err := rows.Scan(&m.CatalogItemID, &m.Name, &m.Category, &m.MinStock, &m.InStock,
			&m.PreTriage, &m.AwaitingTriage, &m.Deficit, &m.HasActiveRequest); err != nil {
			return nil, apperror.FromDB("Falha ao ler modelo crítico", err)
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, apperror.FromDB("Falha ao ler modelos críticos", err)
	}
	return out, nil
}
