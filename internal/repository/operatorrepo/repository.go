package operatorrepo

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"

	"pioerp/internal/domain"
	apperror "pioerp/internal/errors"
	"pioerp/internal/pkg/logger"
)

// OperatorRepository persiste a tabela operador.
type OperatorRepository struct {
	DB        *sql.DB
	DBTimeout time.Duration
	logger    logger.Logger
}

// NewOperatorRepository cria uma nova instância do OperatorRepository, injetando o DB.
func NewOperatorRepository(db *sql.DB, dbTimeout time.Duration, logger logger.Logger) *OperatorRepository {
	return &OperatorRepository{DB: db, DBTimeout: dbTimeout, logger: logger}
}

// Save insere um novo operador com id UUID gerado aqui.
func (r *OperatorRepository) Save(ctx context.Context, op domain.Operator) (domain.Operator, error) {
	r.logger.Debug("Iniciando Save de operador no repositório.", map[string]interface{}{"email": op.Email})

	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	op.ID = uuid.NewString()
	err := r.DB.QueryRowContext(ctxTimeout, `
		INSERT INTO operador (id, email, nome, password_hash, role)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at, updated_at`,
		op.ID, op.Email, op.Name, op.PasswordHash, op.Role,
	).Scan(&op.CreatedAt, &op.UpdatedAt)
	if err != nil {
		r.logger.Error("Falha ao inserir operador no DB.", err)
		return domain.Operator{}, apperror.FromDB("Falha ao inserir operador", err)
	}

	r.logger.Info("Operador salvo com sucesso no repositório.", map[string]interface{}{"operador_id": op.ID, "email": op.Email})
	return op, nil
}

// FindByEmail busca um operador pelo e-mail.
func (r *OperatorRepository) FindByEmail(ctx context.Context, email string) (domain.Operator, error) {
	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	var op domain.Operator
	err := r.DB.QueryRowContext(ctxTimeout, `
		SELECT id, email, nome, password_hash, role, created_at, updated_at
		FROM operador WHERE email = $1`, email,
	).Scan(&op.ID, &op.Email, &op.Name, &op.PasswordHash, &op.Role, &op.CreatedAt, &op.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		r.logger.Debug("Operador não encontrado por email.", map[string]interface{}{"email": email})
		return domain.Operator{}, apperror.NewNotFoundError("Operador não encontrado.")
	}
	if err != nil {
		r.logger.Error("Falha ao buscar operador por email no DB.", err)
		return domain.Operator{}, apperror.FromDB("Falha ao buscar operador", err)
	}
	return op, nil
}
