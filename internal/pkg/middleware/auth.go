package middleware

import (
	"context"
	"net/http"
	"strings"

	"pioerp/internal/domain"
	"pioerp/internal/pkg/token"
)

// ContextKey é o tipo das chaves que os middlewares anexam ao contexto.
// Context keys devem ser não-exportadas ou de um tipo único.
type ContextKey int

const (
	OperatorClaimsKey ContextKey = iota
	RequestIDKey
)

// OperatorClaims são os dados do operador extraídos do JWT.
type OperatorClaims struct {
	OperatorID string
	Role       domain.OperatorRole
}

// TokenValidator define o contrato de validação necessário para o middleware.
type TokenValidator interface {
	ValidateToken(tokenString string) (*token.CustomClaims, error)
}

// Auth valida o header "Authorization: Bearer <token>" e anexa as claims ao contexto.
func Auth(tokenSvc TokenValidator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			tokenString, found := strings.CutPrefix(authHeader, "Bearer ")
			if !found || strings.TrimSpace(tokenString) == "" {
				writeError(w, http.StatusUnauthorized, "Token de autorização ausente ou malformado.")
				return
			}

			claims, err := tokenSvc.ValidateToken(strings.TrimSpace(tokenString))
			if err != nil {
				writeError(w, http.StatusUnauthorized, "Token inválido ou expirado.")
				return
			}

			ctx := context.WithValue(r.Context(), OperatorClaimsKey, OperatorClaims{
				OperatorID: claims.OperatorID,
				Role:       domain.OperatorRole(claims.Role),
			})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// ClaimsFromContext extrai as claims anexadas por Auth.
func ClaimsFromContext(ctx context.Context) (OperatorClaims, bool) {
	claims, ok := ctx.Value(OperatorClaimsKey).(OperatorClaims)
	return claims, ok
}

// RequireRole deixa passar apenas operadores com um dos papéis informados.
// Deve ser encadeado depois de Auth.
func RequireRole(roles ...domain.OperatorRole) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, ok := ClaimsFromContext(r.Context())
			if !ok {
				writeError(w, http.StatusUnauthorized, "Autorização necessária. Token não processado.")
				return
			}

			for _, role := range roles {
				if claims.Role == role {
					next.ServeHTTP(w, r)
					return
				}
			}

			writeError(w, http.StatusForbidden, "Acesso negado. Você não tem a permissão necessária.")
		})
	}
}
