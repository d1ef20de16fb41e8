// Package address handles Aptos account addresses.
package address

import (
	"crypto/ed25519"
	"errors"
	"strings"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"golang.org/x/crypto/sha3"
)

// Number of hex digits in a full length address
const Length = 64

// Single signature ed25519 authentication scheme
const schemeEd25519 byte = 0x00

var ErrInvalid = errors.New("invalid address")

// Normalize returns the long, lower case form of the address: 0x followed by 64 hex digits.
// Short forms like 0x1 are left padded with zeros.
func Normalize(in string) (out string, err error) {
	s := strings.ToLower(strings.TrimSpace(in))
	if !strings.HasPrefix(s, "0x") {
		return "", ErrInvalid
	}
	s = s[2:]
	if len(s) == 0 || len(s) > Length {
		return "", ErrInvalid
	}

	s = "0x" + strings.Repeat("0", Length-len(s)) + s

	// Checks the digits
	_, err = hexutil.Decode(s)
	if err != nil {
		return "", ErrInvalid
	}

	return s, nil
}

func IsValid(in string) bool {
	_, err := Normalize(in)
	return err == nil
}

// Equal compares addresses in their normalized form. Invalid addresses are never equal.
func Equal(a, b string) bool {
	na, err := Normalize(a)
	if err != nil {
		return false
	}
	nb, err := Normalize(b)
	if err != nil {
		return false
	}
	return na == nb
}

// AuthenticationKey is sha3_256(public key | scheme)
func AuthenticationKey(pub ed25519.PublicKey) []byte {
	hash := sha3.New256()
	hash.Write(pub)
	hash.Write([]byte{schemeEd25519})
	return hash.Sum(nil)
}

// FromPublicKey derives the address of a fresh account, which equals its authentication key
func FromPublicKey(pub ed25519.PublicKey) string {
	return hexutil.Encode(AuthenticationKey(pub))
}
