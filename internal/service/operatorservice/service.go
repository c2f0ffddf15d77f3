package operatorservice

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"pioerp/internal/domain"
	apperror "pioerp/internal/errors"
	"pioerp/internal/pkg/logger"
)

const minPasswordLength = 6

// OperatorRepository é o contrato de persistência de operadores.
type OperatorRepository interface {
	Save(ctx context.Context, op domain.Operator) (domain.Operator, error)
	// FindByEmail retorna NotFoundError quando o e-mail não está cadastrado.
	FindByEmail(ctx context.Context, email string) (domain.Operator, error)
}

// TokenService é o contrato da camada de token (internal/pkg/token).
type TokenService interface {
	GenerateToken(operatorID string, role string) (string, error)
}

// Service cadastra e autentica operadores.
type Service struct {
	repo     OperatorRepository
	tokenSvc TokenService
	logger   logger.Logger
}

// NewService cria uma nova instância do serviço de operadores.
func NewService(repo OperatorRepository, tokenSvc TokenService, logger logger.Logger) *Service {
	return &Service{repo: repo, tokenSvc: tokenSvc, logger: logger}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Register cadastra um operador com a senha em hash bcrypt. Sem papel
// informado, o operador é técnico.
func (s *Service) Register(ctx context.Context, reg domain.OperatorRegistration) (domain.Operator, error) {
	email := normalizeEmail(reg.Email)
	if email == "" || reg.Password == "" {
		return domain.Operator{}, apperror.NewValidationError("Email e senha são obrigatórios.")
	}
	if len(reg.Password) < minPasswordLength {
		return domain.Operator{}, apperror.NewValidationError(
			fmt.Sprintf("A senha deve ter pelo menos %d caracteres.", minPasswordLength))
	}
	role := reg.Role
	if role == "" {
		role = domain.RoleTechnician
	}
	if !role.Valid() {
		return domain.Operator{}, apperror.NewValidationError("Papel inválido. Valores aceitos: admin, tecnico, almoxarife")
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(reg.Password), bcrypt.DefaultCost)
	if err != nil {
		return domain.Operator{}, apperror.NewInternalError("Falha ao gerar hash da senha.", err)
	}

	op, err := s.repo.Save(ctx, domain.Operator{
		Email:        email,
		Name:         strings.TrimSpace(reg.Name),
		PasswordHash: string(hashed),
		Role:         role,
	})
	if err != nil {
		if apperror.IsConflict(err) {
			return domain.Operator{}, apperror.NewConflictError(fmt.Sprintf("O email '%s' já está em uso.", email))
		}
		return domain.Operator{}, err
	}

	s.logger.Info("Operador cadastrado.", map[string]interface{}{"operador_id": op.ID, "role": op.Role})
	return op, nil
}

// Login confere as credenciais e emite o JWT do operador.
func (s *Service) Login(ctx context.Context, req domain.LoginRequest) (domain.LoginResponse, error) {
	email := normalizeEmail(req.Email)
	if email == "" || req.Password == "" {
		return domain.LoginResponse{}, apperror.NewUnauthorizedError("Email e senha são obrigatórios.")
	}

	op, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		// Não revela se o e-mail existe.
		if apperror.IsNotFound(err) {
			return domain.LoginResponse{}, apperror.NewUnauthorizedError("Credenciais inválidas.")
		}
		return domain.LoginResponse{}, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(op.PasswordHash), []byte(req.Password)); err != nil {
		s.logger.Warn("Tentativa de login com senha incorreta.", map[string]interface{}{"email": email})
		return domain.LoginResponse{}, apperror.NewUnauthorizedError("Credenciais inválidas.")
	}

	signed, err := s.tokenSvc.GenerateToken(op.ID, string(op.Role))
	if err != nil {
		return domain.LoginResponse{}, apperror.NewInternalError("Falha ao gerar token de autenticação.", err)
	}
	return domain.LoginResponse{Token: signed, Operator: op}, nil
}

// EnsureAdmin cria o administrador inicial quando o e-mail ainda não existe.
// Devolve true se o operador foi criado.
func (s *Service) EnsureAdmin(ctx context.Context, email, password string) (bool, error) {
	if normalizeEmail(email) == "" || password == "" {
		return false, nil
	}
	_, err := s.repo.FindByEmail(ctx, normalizeEmail(email))
	if err == nil {
		return false, nil
	}
	if !apperror.IsNotFound(err) {
		return false, err
	}

	if _, err := s.Register(ctx, domain.OperatorRegistration{
		Email:    email,
		Name:     "Administrador",
		Password: password,
		Role:     domain.RoleAdmin,
	}); err != nil {
		return false, err
	}
	s.logger.Info("Administrador inicial criado.", map[string]interface{}{"email": normalizeEmail(email)})
	return true, nil
}
