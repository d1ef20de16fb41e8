package aptos

import (
	"encoding/json"
	"strconv"

	"github.com/warp-contracts/licensing/src/utils/payload"
)

const (
	CoinStoreType = "0x1::coin::CoinStore<0x1::aptos_coin::AptosCoin>"

	TransactionTypePending = "pending_transaction"

	PayloadTypeEntryFunction = "entry_function_payload"
	SignatureTypeEd25519     = "ed25519_signature"
)

// Integers are sent as decimal strings
type U64 string

func NewU64(v uint64) U64 {
	return U64(strconv.FormatUint(v, 10))
}

func (self U64) Uint64() uint64 {
	v, _ := strconv.ParseUint(string(self), 10, 64)
	return v
}

type Account struct {
	SequenceNumber    U64    `json:"sequence_number"`
	AuthenticationKey string `json:"authentication_key"`
}

type Resource struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

type CoinStore struct {
	Coin struct {
		Value U64 `json:"value"`
	} `json:"coin"`
}

type EntryFunctionPayload struct {
	Type          string        `json:"type"`
	Function      string        `json:"function"`
	TypeArguments []string      `json:"type_arguments"`
	Arguments     []interface{} `json:"arguments"`
}

type TransactionRequest struct {
	Sender                  string                `json:"sender"`
	SequenceNumber          U64                   `json:"sequence_number"`
	MaxGasAmount            U64                   `json:"max_gas_amount"`
	GasUnitPrice            U64                   `json:"gas_unit_price"`
	ExpirationTimestampSecs U64                   `json:"expiration_timestamp_secs"`
	Payload                 *EntryFunctionPayload `json:"payload"`
}

type Signature struct {
	Type      string `json:"type"`
	PublicKey string `json:"public_key"`
	Signature string `json:"signature"`
}

type SignedTransaction struct {
	TransactionRequest
	Signature *Signature `json:"signature"`
}

// Transaction built and signed once. Sending it again carries the same bytes, so it can't execute twice.
type PreparedTransaction struct {
	Sender         string
	SequenceNumber uint64
	Payload        *payload.Payload

	// Signing message and the submission body
	Message []byte
	Signed  *SignedTransaction

	// Computed locally, known even when the node's answer is lost
	Hash string

	// Number of times it was handed to the node
	Sends int
}

type PendingTransaction struct {
	Hash string `json:"hash"`
}

type Transaction struct {
	Type     string `json:"type"`
	Hash     string `json:"hash"`
	Success  bool   `json:"success"`
	VmStatus string `json:"vm_status"`
	GasUsed  U64    `json:"gas_used"`
	Version  U64    `json:"version"`
}

// Chain side view of a submitted transaction
type TransactionStatus struct {
	Hash     string `json:"hash"`
	Pending  bool   `json:"pending"`
	Success  bool   `json:"success"`
	VmStatus string `json:"vm_status"`
	GasUsed  uint64 `json:"gas_used"`
	Version  uint64 `json:"version"`
}

func (self *Transaction) Status() *TransactionStatus {
	if self.Type == TransactionTypePending {
		return &TransactionStatus{Hash: self.Hash, Pending: true}
	}
	return &TransactionStatus{
		Hash:     self.Hash,
		Success:  self.Success,
		VmStatus: self.VmStatus,
		GasUsed:  self.GasUsed.Uint64(),
		Version:  self.Version.Uint64(),
	}
}
