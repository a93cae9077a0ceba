package utils

import (
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestVerifyAccessCodePlain(t *testing.T) {
	require.True(t, VerifyAccessCode("sesame", "sesame"))
	require.False(t, VerifyAccessCode("sesame", "open"))
}

func TestVerifyAccessCodeBcrypt(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("sesame"), bcrypt.MinCost)
	require.NoError(t, err)

	require.True(t, VerifyAccessCode(string(hash), "sesame"))
	require.False(t, VerifyAccessCode(string(hash), "open"))
}

func TestVerifyAccessCodeClosedGate(t *testing.T) {
	// An unconfigured code admits nobody, including an empty guess.
	require.False(t, VerifyAccessCode("", ""))
	require.False(t, VerifyAccessCode("", "anything"))
	require.False(t, VerifyAccessCode("sesame", ""))
}
