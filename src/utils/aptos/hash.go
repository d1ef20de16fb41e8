package aptos

import (
	"github.com/ethereum/go-ethereum/common/hexutil"
	"golang.org/x/crypto/sha3"
)

const (
	rawTransactionSalt = "APTOS::RawTransaction"
	transactionSalt    = "APTOS::Transaction"

	// BCS enum variants
	variantUserTransaction = 0
	variantEd25519         = 0
)

// Hash the chain assigns to a signed user transaction.
// message is the signing message: the salt digest followed by the BCS encoded raw transaction.
// Returns an empty string when the message is too short to hold a raw transaction.
func UserTransactionHash(message, publicKey, signature []byte) string {
	salt := sha3.Sum256([]byte(rawTransactionSalt))
	if len(message) <= len(salt) {
		return ""
	}
	raw := message[len(salt):]

	prefix := sha3.Sum256([]byte(transactionSalt))

	digest := sha3.New256()
	digest.Write(prefix[:])
	digest.Write([]byte{variantUserTransaction})

	// SignedTransaction: raw transaction followed by the authenticator
	digest.Write(raw)
	digest.Write([]byte{variantEd25519})
	digest.Write(uleb128(uint64(len(publicKey))))
	digest.Write(publicKey)
	digest.Write(uleb128(uint64(len(signature))))
	digest.Write(signature)

	return hexutil.Encode(digest.Sum(nil))
}

func uleb128(v uint64) (out []byte) {
	for {
		b := byte(v & 0x7f)
		v >>= 7
		if v == 0 {
			return append(out, b)
		}
		out = append(out, b|0x80)
	}
}
