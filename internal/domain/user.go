package domain

import "time"

// Operator é um usuário do sistema (almoxarife, técnico ou administrador).
type Operator struct {
	ID           string       `json:"id"`
	Email        string       `json:"email"`
	Name         string       `json:"nome"`
	PasswordHash string       `json:"-"` // Oculta o hash da senha no JSON de resposta
	Role         OperatorRole `json:"role"`
	CreatedAt    time.Time    `json:"created_at"`
	UpdatedAt    time.Time    `json:"updated_at"`
}

// OperatorRole é o papel do operador.
type OperatorRole string

const (
	RoleAdmin      OperatorRole = "admin"
	RoleTechnician OperatorRole = "tecnico"
	RoleStockist   OperatorRole = "almoxarife"
)

// Valid indica se o papel é conhecido.
func (r OperatorRole) Valid() bool {
	return r == RoleAdmin || r == RoleTechnician || r == RoleStockist
}

// OperatorRegistration representa o payload de entrada para o cadastro.
type OperatorRegistration struct {
	Email    string       `json:"email"`
	Name     string       `json:"nome"`
	Password string       `json:"password"`
	Role     OperatorRole `json:"role"`
}

// LoginRequest representa o payload de entrada para o login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginResponse devolve o token e o operador autenticado.
type LoginResponse struct {
	Token    string   `json:"token"`
	Operator Operator `json:"operador"`
}
