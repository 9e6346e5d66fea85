package common

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMakeRandToken(t *testing.T) {
	a, err := MakeRandToken(48)
	require.NoError(t, err)
	b, err := MakeRandToken(48)
	require.NoError(t, err)

	require.NotEmpty(t, a)
	require.NotEqual(t, a, b)
	// base64url without padding: 48 bytes -> 64 chars
	require.Len(t, a, 64)
}

func TestWipeByteArray(t *testing.T) {
	b := []byte("secret")
	WipeByteArray(b)
	for _, c := range b {
		require.Zero(t, c)
	}
	WipeByteArray(nil) // must not panic
}
