package response

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"

	"pioerp/internal/domain"
	apperror "pioerp/internal/errors"
	"pioerp/internal/pkg/logger"
)

// Writer padroniza as respostas JSON no envelope {success, data, message, total}.
type Writer struct {
	logger       logger.Logger
	exposeDetail bool
}

// NewWriter cria o Writer. exposeDetail inclui a causa dos erros 500 no campo
// "detail" (apenas em desenvolvimento).
func NewWriter(log logger.Logger, exposeDetail bool) *Writer {
	return &Writer{logger: log, exposeDetail: exposeDetail}
}

// JSON escreve o envelope de sucesso.
func (wr *Writer) JSON(w http.ResponseWriter, status int, env domain.Envelope) {
	env.Success = true
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(env); err != nil {
		wr.logger.Error("Falha ao codificar JSON de resposta", err)
	}
}

// OK responde 200 com data.
func (wr *Writer) OK(w http.ResponseWriter, data interface{}) {
	wr.JSON(w, http.StatusOK, domain.Envelope{Data: data})
}

// Created responde 201 com data e mensagem opcional.
func (wr *Writer) Created(w http.ResponseWriter, data interface{}, message string) {
	wr.JSON(w, http.StatusCreated, domain.Envelope{Data: data, Message: message})
}

// Message responde 200 com data e mensagem.
func (wr *Writer) Message(w http.ResponseWriter, data interface{}, message string) {
	wr.JSON(w, http.StatusOK, domain.Envelope{Data: data, Message: message})
}

// List responde 200 com data e total.
func (wr *Writer) List(w http.ResponseWriter, data interface{}, total int) {
	wr.JSON(w, http.StatusOK, domain.Envelope{Data: data, Total: &total})
}

// Error traduz o erro para o status HTTP e escreve {success:false, message}.
func (wr *Writer) Error(w http.ResponseWriter, r *http.Request, err error) {
	status, category, message := apperror.MapToHTTPStatus(err)

	env := domain.Envelope{Success: false, Message: message}
	if status >= http.StatusInternalServerError {
		wr.logger.Error(fmt.Sprintf("Erro de Servidor: %s %s %s", category, r.Method, r.URL.Path), err)
		if wr.exposeDetail {
			env.Detail = err.Error()
		}
	} else {
		wr.logger.Debug(fmt.Sprintf("Requisição rejeitada com status %d. Categoria: %s", status, category),
			map[string]interface{}{"path": r.URL.Path, "message": message})
	}

	WriteEnvelope(w, status, env)
}

// WriteEnvelope escreve o envelope sem logar; usado também pelos middlewares.
func WriteEnvelope(w http.ResponseWriter, status int, env domain.Envelope) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(env)
}

// WriteError escreve {success:false, message} com o status informado.
func WriteError(w http.ResponseWriter, status int, message string) {
	WriteEnvelope(w, status, domain.Envelope{Success: false, Message: message})
}

// DecodeJSON lê o corpo em dst. Corpo vazio é aceito e mantém os zeros de dst.
func DecodeJSON(r *http.Request, dst interface{}) error {
	if r.Body == nil {
		return nil
	}
	err := json.NewDecoder(r.Body).Decode(dst)
	if err == nil || err == io.EOF {
		return nil
	}
	return apperror.NewValidationError("Payload JSON inválido.")
}

// PathID lê um id numérico positivo das variáveis de rota.
func PathID(r *http.Request, name string) (int64, error) {
	raw := mux.Vars(r)[name]
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, apperror.NewValidationError(fmt.Sprintf("Parâmetro %q inválido.", name))
	}
	return id, nil
}

// QueryID lê um id opcional da query string; ausente devolve nil.
func QueryID(r *http.Request, name string) (*int64, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return nil, nil
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return nil, apperror.NewValidationError(fmt.Sprintf("Parâmetro %q inválido.", name))
	}
	return &id, nil
}

// QueryInt lê um inteiro opcional da query string.
func QueryInt(r *http.Request, name string, def int) (int, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, apperror.NewValidationError(fmt.Sprintf("Parâmetro %q inválido.", name))
	}
	return v, nil
}

// QueryBool lê um booleano opcional; qualquer valor diferente de "false" é verdadeiro.
func QueryBool(r *http.Request, name string, def bool) bool {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return def
	}
	return raw != "false"
}
