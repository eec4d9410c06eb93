package jwt

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateParse_RoundTrip(t *testing.T) {
	tok, err := Generate("secreto", "traslados-api", 5, Identity{UserID: "u-1", BranchID: "b-1", Role: "bodeguero"})
	require.NoError(t, err)

	id, err := Parse("secreto", tok)
	require.NoError(t, err)
	assert.Equal(t, Identity{UserID: "u-1", BranchID: "b-1", Role: "bodeguero"}, id)
}

func TestParse_FirmaIncorrecta(t *testing.T) {
	tok, err := Generate("secreto", "traslados-api", 5, Identity{UserID: "u-1"})
	require.NoError(t, err)

	_, err = Parse("otro", tok)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestParse_Expirado(t *testing.T) {
	tok, err := Generate("secreto", "traslados-api", -1, Identity{UserID: "u-1"})
	require.NoError(t, err)

	_, err = Parse("secreto", tok)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestGenerate_SinSecret(t *testing.T) {
	_, err := Generate("", "x", 5, Identity{UserID: "u-1"})
	assert.Error(t, err)
}
