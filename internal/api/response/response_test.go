package response_test

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pioerp/internal/api/response"
	apperror "pioerp/internal/errors"
	"pioerp/internal/pkg/logger"
)

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestWriter_List(t *testing.T) {
	wr := response.NewWriter(logger.NewLogger("error"), false)
	rec := httptest.NewRecorder()

	wr.List(rec, []string{"a", "b"}, 2)

	body := decode(t, rec)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, float64(2), body["total"])
}

func TestWriter_ErrorMapping(t *testing.T) {
	wr := response.NewWriter(logger.NewLogger("error"), false)
	req := httptest.NewRequest(http.MethodGet, "/api/x", nil)

	rec := httptest.NewRecorder()
	wr.Error(rec, req, apperror.NewConflictError("Reparo já está em progresso."))
	body := decode(t, rec)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, false, body["success"])
	assert.Equal(t, "Reparo já está em progresso.", body["message"])

	rec = httptest.NewRecorder()
	wr.Error(rec, req, errors.New("falha de rede"))
	body = decode(t, rec)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "Erro interno do servidor.", body["message"])
	assert.NotContains(t, body, "detail")
}

func TestWriter_DetailInDevelopment(t *testing.T) {
	wr := response.NewWriter(logger.NewLogger("error"), true)
	req := httptest.NewRequest(http.MethodGet, "/api/x", nil)
	rec := httptest.NewRecorder()

	wr.Error(rec, req, apperror.NewInternalError("quebrou", errors.New("causa")))

	body := decode(t, rec)
	assert.Equal(t, "Erro interno do servidor.", body["message"])
	assert.Contains(t, body["detail"], "quebrou")
}

func TestDecodeJSON(t *testing.T) {
	var dst struct {
		Nome string `json:"nome"`
	}

	req := httptest.NewRequest(http.MethodPost, "/", bytes.NewBufferString(`{"nome":"x"}`))
	require.NoError(t, response.DecodeJSON(req, &dst))
	assert.Equal(t, "x", dst.Nome)

	req = httptest.NewRequest(http.MethodPost, "/", bytes.NewBufferString(""))
	assert.NoError(t, response.DecodeJSON(req, &dst))

	req = httptest.NewRequest(http.MethodPost, "/", bytes.NewBufferString(`{"nome":`))
	assert.True(t, apperror.IsValidation(response.DecodeJSON(req, &dst)))
}

func TestPathAndQuery(t *testing.T) {
	req := mux.SetURLVars(httptest.NewRequest(http.MethodGet, "/?limit=abc&pallet_id=4", nil), map[string]string{"id": "12"})

	id, err := response.PathID(req, "id")
	require.NoError(t, err)
	assert.Equal(t, int64(12), id)

	_, err = response.QueryInt(req, "limit", 100)
	assert.True(t, apperror.IsValidation(err))

	pallet, err := response.QueryID(req, "pallet_id")
	require.NoError(t, err)
	assert.Equal(t, int64(4), *pallet)

	missing, err := response.QueryID(req, "endereco_id")
	require.NoError(t, err)
	assert.Nil(t, missing)

	bad := mux.SetURLVars(httptest.NewRequest(http.MethodGet, "/", nil), map[string]string{"id": "-1"})
	_, err = response.PathID(bad, "id")
	assert.True(t, apperror.IsValidation(err))
}
