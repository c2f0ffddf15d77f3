package token_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pioerp/internal/pkg/token"
)

func TestGenerateAndValidate(t *testing.T) {
	svc := token.NewService("segredo-de-teste", time.Hour)

	signed, err := svc.GenerateToken("op-1", "tecnico")
	require.NoError(t, err)

	claims, err := svc.ValidateToken(signed)
	require.NoError(t, err)
	assert.Equal(t, "op-1", claims.OperatorID)
	assert.Equal(t, "tecnico", claims.Role)
	assert.Equal(t, token.Issuer, claims.Issuer)
}

func TestValidate_WrongSecret(t *testing.T) {
	signed, err := token.NewService("a", time.Hour).GenerateToken("op-1", "admin")
	require.NoError(t, err)

	_, err = token.NewService("b", time.Hour).ValidateToken(signed)
	assert.Error(t, err)
}

func TestValidate_Expired(t *testing.T) {
	svc := token.NewService("segredo", -time.Minute)
	signed, err := svc.GenerateToken("op-1", "admin")
	require.NoError(t, err)

	_, err = svc.ValidateToken(signed)
	assert.Error(t, err)
}
