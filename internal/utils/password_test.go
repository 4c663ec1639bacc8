package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("Sw33tsh0p!", bcrypt.MinCost)
	require.NoError(t, err)
	require.NotEqual(t, "Sw33tsh0p!", hash)

	assert.True(t, VerifyPassword(hash, "Sw33tsh0p!"))
	assert.False(t, VerifyPassword(hash, "wrong-password"))
	assert.False(t, VerifyPassword("not-a-bcrypt-hash", "Sw33tsh0p!"))
}
