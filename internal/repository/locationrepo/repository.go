package locationrepo

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

// LocationRepository persiste endereco_fisico, pallet e caixa.
type LocationRepository struct {
	DB        *sql.DB
	DBTimeout time.Duration
	logger    logger.Logger
}

// NewLocationRepository cria e retorna uma nova instância do Repositório de Endereços.
func NewLocationRepository(db *sql.DB, dbTimeout time.Duration, logger logger.Logger) *LocationRepository {
	return &LocationRepository{DB: db, DBTimeout: dbTimeout, logger: logger}
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

const locationSelect = `
	SELECT e.id, e.codigo, e.descricao, e.nivel, e.parent_id, e.ativo, e.created_at, e.updated_at,
	       p.codigo AS parent_codigo, p.nivel AS parent_nivel
	FROM endereco_fisico e
	LEFT JOIN endereco_fisico p ON p.id = e.parent_id`

func scanLocation(row rowScanner) (domain.Location, error) {
	var l domain.Location
	err := row.Scan(&l.ID, &l.Code, &l.Description, &l.Level, &l.ParentID, &l.Active,
		&l.CreatedAt, &l.UpdatedAt, &l.ParentCode, &l.ParentLevel)
	return l, err
}

func (r *LocationRepository) queryLocations(ctx context.Context, query string, args ...interface{}) ([]domain.Location, error) {
	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	rows, err := r.DB.QueryContext(ctxTimeout, query, args...)
	if err != nil {
		r.logger.Error("Falha ao listar endereços no DB.", err)
		return nil, apperror.FromDB("Falha ao listar endereços", err)
	}
	defer rows.Close()

	out := []domain.Location{}
	for rows.Next() {
		l, err := scanLocation(rows)
		if err != nil {
			return nil, apperror.FromDB("Falha ao ler endereço", err)
		}
		out = append(out, l)
	}
	if err := rows.Err(); err != nil {
		return nil, apperror.FromDB("Falha ao ler endereços", err)
	}
	return out, nil
}

// ListLocations filtra por situação e, opcionalmente, nível; ordena pela hierarquia (porta_pallet → caixa) e código.
func (r *LocationRepository) ListLocations(ctx context.Context, filter domain.LocationFilter) ([]domain.Location, error) {
	args := []interface{}{filter.Active}
	conditions := []string{"e.ativo = $1"}
	if filter.Level != "" {
		args = append(args, filter.Level)
		conditions = append(conditions, fmt.Sprintf("e.nivel = $%d", len(args)))
	}

	query := locationSelect + `
	WHERE ` + strings.Join(conditions, " AND ") + `
	ORDER BY CASE e.nivel
	         WHEN 'porta_pallet' THEN 1
	         WHEN 'sessao' THEN 2
	         WHEN 'pallet' THEN 3
	         WHEN 'caixa' THEN 4
	         ELSE 5 END,
	         e.codigo`
	return r.queryLocations(ctx, query, args...)
}

func (r *LocationRepository) GetLocation(ctx context.Context, id int64) (domain.Location, error) {
	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	l, err := scanLocation(r.DB.QueryRowContext(ctxTimeout, locationSelect+` WHERE e.id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Location{}, apperror.NewNotFoundError("Endereço não encontrado.")
	}
	if err != nil {
		r.logger.Error("Falha ao buscar endereço no DB.", err)
		return domain.Location{}, apperror.FromDB("Falha ao buscar endereço", err)
	}
	return l, nil
}

func (r *LocationRepository) CreateLocation(ctx context.Context, l domain.Location) (domain.Location, error) {
	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	err := r.DB.QueryRowContext(ctxTimeout, `
		INSERT INTO endereco_fisico (codigo, descricao, nivel, parent_id, ativo)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at, updated_at`,
		l.Code, l.Description, l.Level, l.ParentID, l.Active,
	).Scan(&l.ID, &l.CreatedAt, &l.UpdatedAt)
	if err != nil {
		r.logger.Error("Falha ao inserir endereço no DB.", err)
		return domain.Location{}, apperror.FromDB("Falha ao inserir endereço", err)
	}
	return l, nil
}

func (r *LocationRepository) UpdateLocation(ctx context.Context, l domain.Location) (domain.Location, error) {
	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	err := r.DB.QueryRowContext(ctxTimeout, `
		UPDATE endereco_fisico SET codigo = $1, descricao = $2, ativo = $3
		 WHERE id = $4
		RETURNING updated_at`,
		l.Code, l.Description, l.Active, l.ID,
	).Scan(&l.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Location{}, apperror.NewNotFoundError("Endereço não encontrado.")
	}
	if err != nil {
		r.logger.Error("Falha ao atualizar endereço no DB.", err)
		return domain.Location{}, apperror.FromDB("Falha ao atualizar endereço", err)
	}
	return l, nil
}

func (r *LocationRepository) deactivate(ctx context.Context, table, notFound string, id int64) error {
	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	res, err := r.DB.ExecContext(ctxTimeout, `UPDATE `+table+` SET ativo = FALSE WHERE id = $1`, id)
	if err != nil {
		r.logger.Error("Falha ao desativar registro no DB.", err)
		return apperror.FromDB("Falha ao desativar "+table, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return apperror.NewDBError("Falha ao verificar linhas afetadas", err)
	}
	if n == 0 {
		return apperror.NewNotFoundError(notFound)
	}
	return nil
}

func (r *LocationRepository) DeactivateLocation(ctx context.Context, id int64) error {
	return r.deactivate(ctx, "endereco_fisico", "Endereço não encontrado.", id)
}

const palletSelect = `
	SELECT p.id, p.codigo, p.endereco_id, end_f.codigo AS endereco_codigo, p.ativo, p.created_at
	FROM pallet p
	JOIN endereco_fisico end_f ON end_f.id = p.endereco_id`

func scanPallet(row rowScanner) (domain.Pallet, error) {
	var p domain.Pallet
	err := row.Scan(&p.ID, &p.Code, &p.LocationID, &p.LocationCode, &p.Active, &p.CreatedAt)
	return p, err
}

// ListPallets lista os pallets ativos por código.
func (r *LocationRepository) ListPallets(ctx context.Context, locationID *int64) ([]domain.Pallet, error) {
	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	query := palletSelect + ` WHERE p.ativo`
	args := []interface{}{}
	if locationID != nil {
		args = append(args, *locationID)
		query += ` AND p.endereco_id = $1`
	}
	query += ` ORDER BY p.codigo`

	rows, err := r.DB.QueryContext(ctxTimeout, query, args...)
	if err != nil {
		r.logger.Error("Falha ao listar pallets no DB.", err)
		return nil, apperror.FromDB("Falha ao listar pallets", err)
	}
	defer rows.Close()

	out := []domain.Pallet{}
	for rows.Next() {
		p, err := scanPallet(rows)
		if err != nil {
			return nil, apperror.FromDB("Falha ao ler pallet", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, apperror.FromDB("Falha ao ler pallets", err)
	}
	return out, nil
}

func (r *LocationRepository) GetPallet(ctx context.Context, id int64) (domain.Pallet, error) {
	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	p, err := scanPallet(r.DB.QueryRowContext(ctxTimeout, palletSelect+` WHERE p.id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Pallet{}, apperror.NewNotFoundError("Pallet não encontrado.")
	}
	if err != nil {
		return domain.Pallet{}, apperror.FromDB("Falha ao buscar pallet", err)
	}
	return p, nil
}

func (r *LocationRepository) CreatePallet(ctx context.Context, p domain.Pallet) (domain.Pallet, error) {
	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	err := r.DB.QueryRowContext(ctxTimeout,
		`INSERT INTO pallet (codigo, endereco_id, ativo) VALUES ($1, $2, $3) RETURNING id, created_at`,
		p.Code, p.LocationID, p.Active,
	).Scan(&p.ID, &p.CreatedAt)
	if err != nil {
		r.logger.Error("Falha ao inserir pallet no DB.", err)
		return domain.Pallet{}, apperror.FromDB("Falha ao inserir pallet", err)
	}
	return p, nil
}

func (r *LocationRepository) DeactivatePallet(ctx context.Context, id int64) error {
	return r.deactivate(ctx, "pallet", "Pallet não encontrado.", id)
}

const boxSelect = `
	SELECT c.id, c.codigo, c.pallet_id, p.codigo AS pallet_codigo,
	       p.endereco_id, end_f.codigo AS endereco_codigo, c.ativo, c.created_at
	FROM caixa c
	JOIN pallet p              ON p.id = c.pallet_id
	JOIN endereco_fisico end_f ON end_f.id = p.endereco_id`

func scanBox(row rowScanner) (domain.Box, error) {
	var b domain.Box
	err := row.Scan(&b.ID, &b.Code, &b.PalletID, &b.PalletCode, &b.LocationID, &b.LocationCode, &b.Active, &b.CreatedAt)
	return b, err
}

// ListBoxes lista as caixas ativas por código.
func (r *LocationRepository) ListBoxes(ctx context.Context, palletID *int64) ([]domain.Box, error) {
	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	query := boxSelect + ` WHERE c.ativo`
	args := []interface{}{}
	if palletID != nil {
		args = append(args, *palletID)
		query += ` AND c.pallet_id = $1`
	}
	query += ` ORDER BY c.codigo`

	rows, err := r.DB.QueryContext(ctxTimeout, query, args...)
	if err != nil {
		r.logger.Error("Falha ao listar caixas no DB.", err)
		return nil, apperror.FromDB("Falha ao listar caixas", err)
	}
	defer rows.Close()

	out := []domain.Box{}
	for rows.Next() {
		b, err := scanBox(rows)
		if err != nil {
			return nil, apperror.FromDB("Falha ao ler caixa", err)
		}
		out = append(out, b)
	}
	if err := rows.Err(); err != nil {
		return nil, apperror.FromDB("Falha ao ler caixas", err)
	}
	return out, nil
}

func (r *LocationRepository) GetBox(ctx context.Context, id int64) (domain.Box, error) {
	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	b, err := scanBox(r.DB.QueryRowContext(ctxTimeout, boxSelect+` WHERE c.id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Box{}, apperror.NewNotFoundError("Caixa não encontrada.")
	}
	if err != nil {
		return domain.Box{}, apperror.FromDB("Falha ao buscar caixa", err)
	}
	return b, nil
}

// CountBoxes conta todas as caixas do pallet, inclusive as inativas, para que
// o próximo código gerado nunca repita um já usado.
func (r *LocationRepository) CountBoxes(ctx context.Context, palletID int64) (int, error) {
	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	var n int
	if err := r.DB.QueryRowContext(ctxTimeout, `SELECT COUNT(*) FROM caixa WHERE pallet_id = $1`, palletID).Scan(&n); err != nil {
		return 0, apperror.FromDB("Falha ao contar caixas", err)
	}
	return n, nil
}

func (r *LocationRepository) CreateBox(ctx context.Context, b domain.Box) (domain.Box, error) {
	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	err := r.DB.QueryRowContext(ctxTimeout,
		`INSERT INTO caixa (codigo, pallet_id, ativo) VALUES ($1, $2, $3) RETURNING id, created_at`,
		b.Code, b.PalletID, b.Active,
	).Scan(&b.ID, &b.CreatedAt)
	if err != nil {
		r.logger.Error("Falha ao inserir caixa no DB.", err)
		return domain.Box{}, apperror.FromDB("Falha ao inserir caixa", err)
	}
	return b, nil
}

func (r *LocationRepository) DeactivateBox(ctx context.Context, id int64) error {
	return r.deactivate(ctx, "caixa", "Caixa não encontrada.", id)
}
