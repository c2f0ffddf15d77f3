package auth

import (
	"context"
	"net/http"

	"pioerp/internal/api/response"
	"pioerp/internal/domain"
)

// OperatorService define o contrato para as operações de registro e login.
type OperatorService interface {
	Register(ctx context.Context, reg domain.OperatorRegistration) (domain.Operator, error)
	Login(ctx context.Context, req domain.LoginRequest) (domain.LoginResponse, error)
}

// Handler agrupa os handlers de /api/auth.
type Handler struct {
	Service OperatorService
	Resp    *response.Writer
}

// NewHandler cria uma nova instância do Handler, injetando o Service e o Writer.
func NewHandler(svc OperatorService, resp *response.Writer) *Handler {
	return &Handler{Service: svc, Resp: resp}
}

// Register lida com a requisição POST /api/auth/register.
// @Summary Registra um novo operador
// @Description Cria um operador, hasheia a senha e salva no banco de dados. Exige papel admin quando a autenticação está ativa.
// @Tags auth
// @Accept json
// @Produce json
// @Param registration body domain.OperatorRegistration true "Email, nome, senha e papel"
// @Success 201 {object} domain.Envelope{data=domain.Operator} "Operador criado com sucesso"
// @Failure 400 {object} domain.ErrorResponse "Payload inválido (JSON malformado ou campos obrigatórios ausentes)"
// @Failure 409 {object} domain.ErrorResponse "Email já cadastrado"
// @Failure 500 {object} domain.ErrorResponse "Erro interno do servidor"
// @Security BearerAuth
// @Router /auth/register [post]
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var reg domain.OperatorRegistration
	if err := response.DecodeJSON(r, &reg); err != nil {
		h.Resp.Error(w, r, err)
		return
	}

	op, err := h.Service.Register(r.Context(), reg)
	if err != nil {
		// ConflictError (e-mail duplicado) -> 409, ValidationError -> 400
		h.Resp.Error(w, r, err)
		return
	}

	// PasswordHash não sai no JSON (tag `json:"-"`).
	h.Resp.Created(w, op, "Operador registrado com sucesso.")
}

// Login lida com a requisição POST /api/auth/login.
// @Summary Autentica um operador e retorna um JWT
// @Description Recebe email/senha, verifica a validade e emite um JSON Web Token.
// @Tags auth
// @Accept json
// @Produce json
// @Param login body domain.LoginRequest true "Credenciais do operador (email e senha)"
// @Success 200 {object} domain.Envelope{data=domain.LoginResponse} "Token JWT emitido"
// @Failure 400 {object} domain.ErrorResponse "Payload inválido"
// @Failure 401 {object} domain.ErrorResponse "Credenciais inválidas"
// @Failure 500 {object} domain.ErrorResponse "Erro interno do servidor"
// @Router /auth/login [post]
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req domain.LoginRequest
	if err := response.DecodeJSON(r, &req); err != nil {
		h.Resp.Error(w, r, err)
		return
	}

	resp, err := h.Service.Login(r.Context(), req)
	if err != nil {
		h.Resp.Error(w, r, err)
		return
	}
	h.Resp.OK(w, resp)
}
