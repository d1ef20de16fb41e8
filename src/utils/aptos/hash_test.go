package aptos

import (
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/sha3"
)

func TestUserTransactionHash(t *testing.T) {
	salt := sha3.Sum256([]byte(rawTransactionSalt))
	message := append(salt[:], []byte("raw transaction bytes")...)
	pub := make([]byte, 32)
	sig := make([]byte, 64)

	hash := UserTransactionHash(message, pub, sig)
	require.Len(t, hash, 66)
	require.Equal(t, hash, UserTransactionHash(message, pub, sig))

	sig[0] = 1
	require.NotEqual(t, hash, UserTransactionHash(message, pub, sig))

	require.Empty(t, UserTransactionHash(salt[:], pub, sig))
}

func TestUleb128(t *testing.T) {
	require.Equal(t, []byte{0x00}, uleb128(0))
	require.Equal(t, []byte{0x20}, uleb128(32))
	require.Equal(t, []byte{0x40}, uleb128(64))
	require.Equal(t, []byte{0x7f}, uleb128(127))
	require.Equal(t, []byte{0x80, 0x01}, uleb128(128))
	require.Equal(t, []byte{0xac, 0x02}, uleb128(300))
}
