package equipmentrepo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"pioerp/internal/domain"
	apperror "pioerp/internal/errors"
	"pioerp/internal/pkg/logger"
)

// EquipmentRepository atende as consultas de leitura de equipamentos e da
// fila de internalização. As escritas passam pelo pgstore.
type EquipmentRepository struct {
	DB        *sql.DB
	DBTimeout time.Duration
	logger    logger.Logger
}

// NewEquipmentRepository cria e retorna uma nova instância do Repositório de Equipamentos.
func NewEquipmentRepository(db *sql.DB, dbTimeout time.Duration, logger logger.Logger) *EquipmentRepository {
	return &EquipmentRepository{DB: db, DBTimeout: dbTimeout, logger: logger}
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

const detailSelect = `
	SELECT
		ef.id, ef.item_catalogo_id, ef.numero_serie, ef.imobilizado, ef.status,
		ef.endereco_id, ef.caixa_id, ef.observacoes, ef.alocacao_filial, ef.created_at, ef.updated_at,
		ic.nome AS modelo, ic.categoria, ic.estoque_minimo, ic.estoque_maximo,
		end_f.codigo AS endereco_codigo,
		cx.codigo    AS caixa_codigo,
		p.id         AS pallet_id,
		p.codigo     AS pallet_codigo,
		end_p.codigo AS pallet_endereco_codigo
	FROM equipamento_fisico ef
	JOIN item_catalogo ic ON ic.id = ef.item_catalogo_id
	LEFT JOIN endereco_fisico end_f ON end_f.id = ef.endereco_id
	LEFT JOIN caixa cx              ON cx.id    = ef.caixa_id
	LEFT JOIN pallet p              ON p.id     = cx.pallet_id
	LEFT JOIN endereco_fisico end_p ON end_p.id = p.endereco_id`

func scanDetail(row rowScanner) (domain.EquipmentDetail, error) {
	var d domain.EquipmentDetail
	err := row.Scan(
		&d.ID, &d.CatalogItemID, &d.SerialNumber, &d.AssetTag, &d.Status,
		&d.LocationID, &d.BoxID, &d.Notes, &d.BranchCode, &d.CreatedAt, &d.UpdatedAt,
		&d.Model, &d.Category, &d.MinStock, &d.MaxStock,
		&d.LocationCode, &d.BoxCode, &d.PalletID, &d.PalletCode, &d.PalletLocationCode,
	)
	return d, err
}

func (r *EquipmentRepository) queryDetails(ctx context.Context, query string, args ...interface{}) ([]domain.EquipmentDetail, error) {
	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	rows, err := r.DB.QueryContext(ctxTimeout, query, args...)
	if err != nil {
		r.logger.Error("Falha ao listar equipamentos no DB.", err)
		return nil, apperror.FromDB("Falha ao listar equipamentos", err)
	}
	defer rows.Close()

	out := []domain.EquipmentDetail{}
	for rows.Next() {
		d, err := scanDetail(rows)
		if err != nil {
			return nil, apperror.FromDB("Falha ao ler equipamento", err)
		}
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, apperror.FromDB("Falha ao ler equipamentos", err)
	}
	return out, nil
}

// List filtra por status, modelo e caixa; mais recentes primeiro.
func (r *EquipmentRepository) List(ctx context.Context, filter domain.EquipmentFilter) ([]domain.EquipmentDetail, error) {
	r.logger.Debug("Listando equipamentos no repositório.", map[string]interface{}{"status": filter.Status})

	var conditions []string
	var args []interface{}
	if filter.Status != "" {
		args = append(args, filter.Status)
		conditions = append(conditions, fmt.Sprintf("ef.status = $%d", len(args)))
	}
	if filter.CatalogItemID != nil {
		args = append(args, *filter.CatalogItemID)
		conditions = append(conditions, fmt.Sprintf("ef.item_catalogo_id = $%d", len(args)))
	}
	if filter.BoxID != nil {
		args = append(args, *filter.BoxID)
		conditions = append(conditions, fmt.Sprintf("ef.caixa_id = $%d", len(args)))
	}

	query := detailSelect
	if len(conditions) > 0 {
		query += "\n\tWHERE " + strings.Join(conditions, " AND ")
	}
	query += "\n\tORDER BY ef.updated_at DESC"
	return r.queryDetails(ctx, query, args...)
}

// GetByID busca um equipamento com catálogo e cadeia de localização.
func (r *EquipmentRepository) GetByID(ctx context.Context, id int64) (domain.EquipmentDetail, error) {
	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	d, err := scanDetail(r.DB.QueryRowContext(ctxTimeout, detailSelect+"\n\tWHERE ef.id = $1", id))
	if errors.Is(err, sql.ErrNoRows) {
		r.logger.Info("Equipamento não encontrado.", map[string]interface{}{"equipamento_id": id})
		return domain.EquipmentDetail{}, apperror.NewNotFoundError("Equipamento não encontrado.")
	}
	if err != nil {
		r.logger.Error("Falha ao buscar equipamento no DB.", err)
		return domain.EquipmentDetail{}, apperror.FromDB("Falha ao buscar equipamento", err)
	}
	return d, nil
}

// ListPending devolve os equipamentos aguardando internalização, mais antigos primeiro.
func (r *EquipmentRepository) ListPending(ctx context.Context) ([]domain.EquipmentDetail, error) {
	return r.queryDetails(ctx, detailSelect+`
	WHERE ef.status = 'ag_internalizacao'
	ORDER BY ef.updated_at ASC`)
}

// BoxesForModel lista as caixas ativas que já guardam o modelo em reposição.
func (r *EquipmentRepository) BoxesForModel(ctx context.Context, catalogItemID int64) ([]domain.BoxLocation, error) {
	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	rows, err := r.DB.QueryContext(ctxTimeout, `
		SELECT cx.id, cx.codigo, p.id, p.codigo, end_f.id, end_f.codigo, COUNT(eq.id)::INT
		FROM caixa cx
		JOIN pallet p              ON p.id = cx.pallet_id
		JOIN endereco_fisico end_f ON end_f.id = p.endereco_id
		JOIN equipamento_fisico eq ON eq.caixa_id = cx.id
		WHERE eq.item_catalogo_id = $1
		  AND eq.status = 'reposicao'
		  AND cx.ativo AND p.ativo
		GROUP BY cx.id, cx.codigo, p.id, p.codigo, end_f.id, end_f.codigo
		ORDER BY end_f.codigo, p.codigo, cx.codigo`, catalogItemID)
	if err != nil {
		r.logger.Error("Falha ao buscar caixas por modelo no DB.", err)
		return nil, apperror.FromDB("Falha ao buscar caixas por modelo", err)
	}
	defer rows.Close()

	out := []domain.BoxLocation{}
	for rows.Next() {
		var b domain.BoxLocation
		if err := rows.Scan(&b.BoxID, &b.BoxCode, &b.PalletID, &b.PalletCode, &b.LocationID, &b.LocationCode, &b.Quantity); err != nil {
			return nil, apperror.FromDB("Falha ao ler caixa", err)
		}
		out = append(out, b)
	}
	if err := rows.Err(); err != nil {
		return nil, apperror.FromDB("Falha ao ler caixas", err)
	}
	return out, nil
}
