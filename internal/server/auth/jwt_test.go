package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/obralink/obralink/internal/common"
	"github.com/obralink/obralink/internal/server/models"
)

func TestGenerateAndParse(t *testing.T) {
	secret := []byte("test-secret")

	tok, err := GenerateToken("u1", "c1", models.RoleTenant, secret, time.Minute)
	require.NoError(t, err)

	claims, err := ParseToken(tok, secret)
	require.NoError(t, err)
	assert.Equal(t, "u1", claims.UserID)
	assert.Equal(t, "c1", claims.CompanyID)
	assert.Equal(t, models.RoleTenant, claims.Role)
}

func TestParse_WrongSecret(t *testing.T) {
	tok, err := GenerateToken("u1", "c1", models.RoleAdmin, []byte("secret-a"), time.Minute)
	require.NoError(t, err)

	_, err = ParseToken(tok, []byte("secret-b"))
	assert.ErrorIs(t, err, common.ErrInvalidToken)
}

func TestParse_Expired(t *testing.T) {
	secret := []byte("test-secret")
	tok, err := GenerateToken("u1", "c1", models.RoleTenant, secret, -time.Minute)
	require.NoError(t, err)

	_, err = ParseToken(tok, secret)
	assert.ErrorIs(t, err, common.ErrInvalidToken)
}

func TestParse_Garbage(t *testing.T) {
	_, err := ParseToken("not.a.token", []byte("test-secret"))
	assert.ErrorIs(t, err, common.ErrInvalidToken)
}
