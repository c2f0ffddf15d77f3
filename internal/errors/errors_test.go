package errors_test

import (
	"database/sql"
	"fmt"
	"net/http"
	"testing"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"

	apperror "pioerp/internal/errors"
)

func TestMapToHTTPStatus(t *testing.T) {
	cases := []struct {
		name     string
		err      error
		status   int
		category string
		message  string
	}{
		{"validacao", apperror.NewValidationError("campo obrigatório"), http.StatusBadRequest, "VALIDATION_ERROR", "campo obrigatório"},
		{"nao autorizado", apperror.NewUnauthorizedError("token ausente"), http.StatusUnauthorized, "UNAUTHORIZED", "token ausente"},
		{"proibido", apperror.NewForbiddenError("sem permissão"), http.StatusForbidden, "FORBIDDEN", "sem permissão"},
		{"nao encontrado", apperror.NewNotFoundError("Reparo não encontrado."), http.StatusNotFound, "NOT_FOUND", "Reparo não encontrado."},
		{"conflito", apperror.NewConflictError("Reparo já está em progresso."), http.StatusConflict, "CONFLICT", "Reparo já está em progresso."},
		{"interno opaco", apperror.NewInternalError("falha no driver", sql.ErrConnDone), http.StatusInternalServerError, "INTERNAL_ERROR", "Erro interno do servidor."},
		{"erro nao tipado", fmt.Errorf("qualquer"), http.StatusInternalServerError, "UNKNOWN_ERROR", "Erro interno do servidor."},
		{"erro embrulhado", fmt.Errorf("contexto: %w", apperror.NewNotFoundError("Caixa não encontrada.")), http.StatusNotFound, "NOT_FOUND", "Caixa não encontrada."},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			status, category, message := apperror.MapToHTTPStatus(tc.err)
			assert.Equal(t, tc.status, status)
			assert.Equal(t, tc.category, category)
			assert.Equal(t, tc.message, message)
		})
	}
}

func TestFromDB_MapsConstraintViolations(t *testing.T) {
	unique := apperror.FromDB("inserir reparo", &pq.Error{Code: "23505", Constraint: "ux_reparo_ativo"})
	assert.True(t, apperror.IsConflict(unique))
	assert.Equal(t, "Já existe um reparo ativo para este equipamento.", unique.Message())

	fk := apperror.FromDB("remover", &pq.Error{Code: "23503"})
	assert.True(t, apperror.IsConflict(fk))

	check := apperror.FromDB("atualizar", &pq.Error{Code: "23514", Constraint: "ck_estoque_max_min"})
	assert.True(t, apperror.IsConflict(check))
	assert.Contains(t, check.Message(), "ck_estoque_max_min")

	other := apperror.FromDB("consultar", &pq.Error{Code: "08006"})
	status, _, _ := apperror.MapToHTTPStatus(other)
	assert.Equal(t, http.StatusInternalServerError, status)
}

func TestFromDB_KeepsTypedErrorsAndNil(t *testing.T) {
	assert.Nil(t, apperror.FromDB("nada", nil))

	notFound := apperror.NewNotFoundError("Equipamento não encontrado.")
	assert.Same(t, notFound, apperror.FromDB("buscar", notFound))
}
