package pgstore

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/lib/pq"

	"pioerp/internal/domain"
	apperror "pioerp/internal/errors"
	"pioerp/internal/pkg/logger"
)

// Store implementa domain.Transactor sobre o pool PostgreSQL.
type Store struct {
	DB        *sql.DB
	DBTimeout time.Duration
	logger    logger.Logger
}

// NewStore cria o Transactor. DBTimeout limita a transação inteira.
func NewStore(db *sql.DB, dbTimeout time.Duration, logger logger.Logger) *Store {
	return &Store{DB: db, DBTimeout: dbTimeout, logger: logger}
}

// WithinTx abre uma transação, executa fn e faz commit. Qualquer erro de fn
// desfaz tudo antes de ser devolvido.
func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context, tx domain.TxStore) error) error {
	ctxTimeout, cancel := context.WithTimeout(ctx, s.DBTimeout)
	defer cancel()

	tx, err := s.DB.BeginTx(ctxTimeout, nil)
	if err != nil {
		s.logger.Error("Falha ao iniciar transação.", err)
		return apperror.NewDBError("Falha ao iniciar transação", err)
	}
	defer tx.Rollback()

	if err := fn(ctxTimeout, &txStore{tx: tx}); err != nil {
		s.logger.Debug("Transação desfeita.", map[string]interface{}{"error": err.Error()})
		return err
	}

	if err := tx.Commit(); err != nil {
		s.logger.Error("Falha ao commitar transação.", err)
		return apperror.FromDB("Falha ao commitar transação", err)
	}
	return nil
}

type txStore struct {
	tx *sql.Tx
}

const equipmentColumns = `id, item_catalogo_id, numero_serie, imobilizado, status,
	endereco_id, caixa_id, observacoes, alocacao_filial, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanEquipment(row rowScanner) (domain.Equipment, error) {
	var e domain.Equipment
	err := row.Scan(&e.ID, &e.CatalogItemID, &e.SerialNumber, &e.AssetTag, &e.Status,
		&e.LocationID, &e.BoxID, &e.Notes, &e.BranchCode, &e.CreatedAt, &e.UpdatedAt)
	return e, err
}

const repairColumns = `id, equipamento_id, status, descricao_problema, diagnostico,
	observacoes_finais, total_minutos_trabalhados, iniciado_em, finalizado_em, created_at, updated_at`

func scanRepair(row rowScanner) (domain.Repair, error) {
	var r domain.Repair
	err := row.Scan(&r.ID, &r.EquipmentID, &r.Status, &r.ProblemDescription, &r.Diagnosis,
		&r.FinalNotes, &r.TotalMinutes, &r.StartedAt, &r.FinishedAt, &r.CreatedAt, &r.UpdatedAt)
	return r, err
}

const requestColumns = `id, item_catalogo_id, status, observacao, created_at, atendida_em, updated_at`

func scanRequest(row rowScanner) (domain.ReplenishmentRequest, error) {
	var r domain.ReplenishmentRequest
	err := row.Scan(&r.ID, &r.CatalogItemID, &r.Status, &r.Note, &r.CreatedAt, &r.FulfilledAt, &r.UpdatedAt)
	return r, err
}

func (t *txStore) exists(ctx context.Context, query string, id int64) (bool, error) {
	var ok bool
	if err := t.tx.QueryRowContext(ctx, query, id).Scan(&ok); err != nil {
		return false, apperror.FromDB("Falha ao verificar registro", err)
	}
	return ok, nil
}

func (t *txStore) IsCatalogItemActive(ctx context.Context, id int64) (bool, error) {
	return t.exists(ctx, `SELECT EXISTS (SELECT 1 FROM item_catalogo WHERE id = $1 AND ativo)`, id)
}

func (t *txStore) IsLocationActive(ctx context.Context, id int64) (bool, error) {
	return t.exists(ctx, `SELECT EXISTS (SELECT 1 FROM endereco_fisico WHERE id = $1 AND ativo)`, id)
}

func (t *txStore) IsBoxActive(ctx context.Context, id int64) (bool, error) {
	return t.exists(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM caixa c JOIN pallet p ON p.id = c.pallet_id
			WHERE c.id = $1 AND c.ativo AND p.ativo
		)`, id)
}

func (t *txStore) GetEquipmentForUpdate(ctx context.Context, id int64) (domain.Equipment, error) {
	e, err := scanEquipment(t.tx.QueryRowContext(ctx,
		`SELECT `+equipmentColumns+` FROM equipamento_fisico WHERE id = $1 FOR UPDATE`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Equipment{}, apperror.NewNotFoundError("Equipamento não encontrado.")
	}
	if err != nil {
		return domain.Equipment{}, apperror.FromDB("Falha ao bloquear equipamento", err)
	}
	return e, nil
}

// GetEquipmentsForUpdate bloqueia as linhas em ordem de id.
func (t *txStore) GetEquipmentsForUpdate(ctx context.Context, ids []int64) ([]domain.Equipment, error) {
	rows, err := t.tx.QueryContext(ctx,
		`SELECT `+equipmentColumns+` FROM equipamento_fisico WHERE id = ANY($1) ORDER BY id FOR UPDATE`,
		pq.Array(ids))
	if err != nil {
		return nil, apperror.FromDB("Falha ao bloquear equipamentos", err)
	}
	defer rows.Close()

	out := make([]domain.Equipment, 0, len(ids))
	for rows.Next() {
		e, err := scanEquipment(rows)
		if err != nil {
			return nil, apperror.FromDB("Falha ao ler equipamento", err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, apperror.FromDB("Falha ao ler equipamentos", err)
	}
	return out, nil
}

func (t *txStore) InsertEquipment(ctx context.Context, e domain.Equipment) (domain.Equipment, error) {
	created, err := scanEquipment(t.tx.QueryRowContext(ctx, `
		INSERT INTO equipamento_fisico
			(item_catalogo_id, numero_serie, imobilizado, status, endereco_id, caixa_id, observacoes, alocacao_filial)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING `+equipmentColumns,
		e.CatalogItemID, e.SerialNumber, e.AssetTag, e.Status, e.LocationID, e.BoxID, e.Notes, e.BranchCode))
	if err != nil {
		return domain.Equipment{}, apperror.FromDB("Falha ao inserir equipamento", err)
	}
	return created, nil
}

func (t *txStore) UpdateEquipment(ctx context.Context, e domain.Equipment) (domain.Equipment, error) {
	updated, err := scanEquipment(t.tx.QueryRowContext(ctx, `
		UPDATE equipamento_fisico
		   SET status = $1, endereco_id = $2, caixa_id = $3, observacoes = $4, alocacao_filial = $5
		 WHERE id = $6
		RETURNING `+equipmentColumns,
		e.Status, e.LocationID, e.BoxID, e.Notes, e.BranchCode, e.ID))
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Equipment{}, apperror.NewNotFoundError("Equipamento não encontrado.")
	}
	if err != nil {
		return domain.Equipment{}, apperror.FromDB("Falha ao atualizar equipamento", err)
	}
	return updated, nil
}

func (t *txStore) InsertMovement(ctx context.Context, m domain.Movement) (domain.Movement, error) {
	err := t.tx.QueryRowContext(ctx, `
		INSERT INTO historico_movimentacao
			(equipamento_id, tipo, status_anterior, status_novo,
			 endereco_origem_id, endereco_destino_id, caixa_origem_id, caixa_destino_id, observacao)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, created_at`,
		m.EquipmentID, m.Type, m.PreviousStatus, m.NewStatus,
		m.FromLocationID, m.ToLocationID, m.FromBoxID, m.ToBoxID, m.Note,
	).Scan(&m.ID, &m.CreatedAt)
	if err != nil {
		return domain.Movement{}, apperror.FromDB("Falha ao registrar movimentação", err)
	}
	return m, nil
}

func (t *txStore) FindActiveRepair(ctx context.Context, equipmentID int64) (domain.Repair, bool, error) {
	r, err := scanRepair(t.tx.QueryRowContext(ctx,
		`SELECT `+repairColumns+` FROM reparo WHERE equipamento_id = $1 AND status <> 'finalizado' FOR UPDATE`,
		equipmentID))
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Repair{}, false, nil
	}
	if err != nil {
		return domain.Repair{}, false, apperror.FromDB("Falha ao buscar reparo ativo", err)
	}
	return r, true, nil
}

func (t *txStore) InsertRepair(ctx context.Context, r domain.Repair) (domain.Repair, error) {
	created, err := scanRepair(t.tx.QueryRowContext(ctx, `
		INSERT INTO reparo (equipamento_id, status, descricao_problema)
		VALUES ($1, $2, $3)
		RETURNING `+repairColumns,
		r.EquipmentID, r.Status, r.ProblemDescription))
	if err != nil {
		return domain.Repair{}, apperror.FromDB("Falha ao abrir reparo", err)
	}
	return created, nil
}

func (t *txStore) GetRepairForUpdate(ctx context.Context, id int64) (domain.Repair, error) {
	r, err := scanRepair(t.tx.QueryRowContext(ctx,
		`SELECT `+repairColumns+` FROM reparo WHERE id = $1 FOR UPDATE`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Repair{}, apperror.NewNotFoundError("Reparo não encontrado.")
	}
	if err != nil {
		return domain.Repair{}, apperror.FromDB("Falha ao bloquear reparo", err)
	}
	return r, nil
}

func (t *txStore) UpdateRepair(ctx context.Context, r domain.Repair) (domain.Repair, error) {
	updated, err := scanRepair(t.tx.QueryRowContext(ctx, `
		UPDATE reparo
		   SET status = $1, descricao_problema = $2, diagnostico = $3, observacoes_finais = $4,
		       total_minutos_trabalhados = $5, iniciado_em = $6, finalizado_em = $7
		 WHERE id = $8
		RETURNING `+repairColumns,
		r.Status, r.ProblemDescription, r.Diagnosis, r.FinalNotes,
		r.TotalMinutes, r.StartedAt, r.FinishedAt, r.ID))
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Repair{}, apperror.NewNotFoundError("Reparo não encontrado.")
	}
	if err != nil {
		return domain.Repair{}, apperror.FromDB("Falha ao atualizar reparo", err)
	}
	return updated, nil
}

// CloseOpenSessions usa GREATEST para que fim nunca fique antes de inicio.
func (t *txStore) CloseOpenSessions(ctx context.Context, repairID int64, end time.Time) ([]domain.RepairSession, error) {
	rows, err := t.tx.QueryContext(ctx, `
		UPDATE sessao_reparo
		   SET fim = GREATEST($2::timestamptz, inicio)
		 WHERE reparo_id = $1 AND fim IS NULL
		RETURNING id, reparo_id, inicio, fim`, repairID, end)
	if err != nil {
		return nil, apperror.FromDB("Falha ao fechar sessões", err)
	}
	defer rows.Close()

	var closed []domain.RepairSession
	for rows.Next() {
		var s domain.RepairSession
		if err := rows.Scan(&s.ID, &s.RepairID, &s.Start, &s.End); err != nil {
			return nil, apperror.FromDB("Falha ao ler sessão", err)
		}
		m := domain.SessionMinutes(s.Start, *s.End)
		s.Minutes = &m
		closed = append(closed, s)
	}
	if err := rows.Err(); err != nil {
		return nil, apperror.FromDB("Falha ao ler sessões", err)
	}
	return closed, nil
}

func (t *txStore) OpenSession(ctx context.Context, repairID int64, start time.Time) (domain.RepairSession, error) {
	s := domain.RepairSession{RepairID: repairID}
	err := t.tx.QueryRowContext(ctx,
		`INSERT INTO sessao_reparo (reparo_id, inicio) VALUES ($1, $2) RETURNING id, inicio`,
		repairID, start).Scan(&s.ID, &s.Start)
	if err != nil {
		return domain.RepairSession{}, apperror.FromDB("Falha ao abrir sessão", err)
	}
	return s, nil
}

func (t *txStore) FindActiveRequest(ctx context.Context, catalogItemID int64) (domain.ReplenishmentRequest, bool, error) {
	r, err := scanRequest(t.tx.QueryRowContext(ctx, `
		SELECT `+requestColumns+` FROM solicitacao_lote
		 WHERE item_catalogo_id = $1 AND status IN ('pendente', 'em_andamento')
		 FOR UPDATE`, catalogItemID))
	if errors.Is(err, sql.ErrNoRows) {
		return domain.ReplenishmentRequest{}, false, nil
	}
	if err != nil {
		return domain.ReplenishmentRequest{}, false, apperror.FromDB("Falha ao buscar solicitação ativa", err)
	}
	return r, true, nil
}

func (t *txStore) InsertRequest(ctx context.Context, r domain.ReplenishmentRequest) (domain.ReplenishmentRequest, error) {
	created, err := scanRequest(t.tx.QueryRowContext(ctx, `
		INSERT INTO solicitacao_lote (item_catalogo_id, status, observacao)
		VALUES ($1, $2, $3)
		RETURNING `+requestColumns,
		r.CatalogItemID, r.Status, r.Note))
	if err != nil {
		return domain.ReplenishmentRequest{}, apperror.FromDB("Falha ao criar solicitação", err)
	}
	return created, nil
}

func (t *txStore) GetRequestForUpdate(ctx context.Context, id int64) (domain.ReplenishmentRequest, error) {
	r, err := scanRequest(t.tx.QueryRowContext(ctx,
		`SELECT `+requestColumns+` FROM solicitacao_lote WHERE id = $1 FOR UPDATE`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return domain.ReplenishmentRequest{}, apperror.NewNotFoundError("Solicitação não encontrada.")
	}
	if err != nil {
		return domain.ReplenishmentRequest{}, apperror.FromDB("Falha ao bloquear solicitação", err)
	}
	return r, nil
}

func (t *txStore) UpdateRequest(ctx context.Context, r domain.ReplenishmentRequest) (domain.ReplenishmentRequest, error) {
	updated, err := scanRequest(t.tx.QueryRowContext(ctx, `
		UPDATE solicitacao_lote SET status = $1, observacao = $2, atendida_em = $3
		 WHERE id = $4
		RETURNING `+requestColumns,
		r.Status, r.Note, r.FulfilledAt, r.ID))
	if errors.Is(err, sql.ErrNoRows) {
		return domain.ReplenishmentRequest{}, apperror.NewNotFoundError("Solicitação não encontrada.")
	}
	if err != nil {
		return domain.ReplenishmentRequest{}, apperror.FromDB("Falha ao atualizar solicitação", err)
	}
	return updated, nil
}
