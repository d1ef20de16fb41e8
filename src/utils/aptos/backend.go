package aptos

import (
	"context"
	"strings"
	"time"

	"github.com/warp-contracts/licensing/src/utils/address"
	"github.com/warp-contracts/licensing/src/utils/config"
	"github.com/warp-contracts/licensing/src/utils/logger"
	"github.com/warp-contracts/licensing/src/utils/payload"
	"github.com/warp-contracts/licensing/src/utils/signer"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/patrickmn/go-cache"
	"github.com/sirupsen/logrus"
)

// Backend submits signed entry function transactions to a live node
type Backend struct {
	config *config.Config
	log    *logrus.Entry
	client *Client
	signer signer.Signer

	// Next sequence number per sender
	sequences *cache.Cache
}

func NewBackend(config *config.Config) (self *Backend) {
	self = new(Backend)
	self.config = config
	self.log = logger.NewSublogger("aptos-backend")
	self.sequences = cache.New(config.Chain.SequenceCacheTTL, 2*config.Chain.SequenceCacheTTL)
	return
}

func (self *Backend) WithClient(client *Client) *Backend {
	self.client = client
	return self
}

func (self *Backend) WithSigner(signer signer.Signer) *Backend {
	self.signer = signer
	return self
}

// Takes the next sequence number of the sender, fetches it from the node if it isn't cached
func (self *Backend) reserveSequenceNumber(ctx context.Context, sender string) (uint64, error) {
	for {
		next, err := self.sequences.IncrementUint64(sender, 1)
		if err == nil {
			return next - 1, nil
		}

		account, err := self.client.GetAccount(ctx, sender)
		if err != nil {
			return 0, err
		}

		// Another submission may have fetched it in the meantime, in which case Add fails and the cached value is used
		_ = self.sequences.Add(sender, account.SequenceNumber.Uint64(), cache.DefaultExpiration)
	}
}

// Reserves a sequence number, encodes and signs the transaction. Nothing is sent yet.
func (self *Backend) Prepare(ctx context.Context, sender string, p *payload.Payload) (out *PreparedTransaction, err error) {
	err = p.Validate()
	if err != nil {
		return
	}

	sender, err = address.Normalize(sender)
	if err != nil {
		return
	}

	if !self.signer.HasKey(sender) {
		err = signer.ErrUnknownSigner
		return
	}

	sequenceNumber, err := self.reserveSequenceNumber(ctx, sender)
	if err != nil {
		return
	}

	defer func() {
		if err != nil {
			// Reserved number was never used
			self.sequences.Delete(sender)
		}
	}()

	req := TransactionRequest{
		Sender:                  sender,
		SequenceNumber:          NewU64(sequenceNumber),
		MaxGasAmount:            NewU64(self.config.Chain.MaxGasAmount),
		GasUnitPrice:            NewU64(self.config.Chain.GasUnitPrice),
		ExpirationTimestampSecs: NewU64(uint64(time.Now().Add(self.config.Chain.TxExpiration).Unix())),
		Payload: &EntryFunctionPayload{
			Type:          PayloadTypeEntryFunction,
			Function:      p.FunctionId(self.config.Chain.ContractAddress),
			TypeArguments: []string{},
			Arguments:     p.Arguments(),
		},
	}

	message, err := self.client.EncodeSubmission(ctx, &req)
	if err != nil {
		return
	}

	signature, err := self.signer.Sign(ctx, sender, message)
	if err != nil {
		return
	}

	out = &PreparedTransaction{
		Sender:         sender,
		SequenceNumber: sequenceNumber,
		Payload:        p,
		Message:        message,
		Signed: &SignedTransaction{
			TransactionRequest: req,
			Signature: &Signature{
				Type:      SignatureTypeEd25519,
				PublicKey: hexutil.Encode(signature.PublicKey),
				Signature: hexutil.Encode(signature.Signature),
			},
		},
		Hash: UserTransactionHash(message, signature.PublicKey, signature.Signature),
	}
	return
}

// Sends the prepared transaction. Safe to call again with the same transaction after a failure.
func (self *Backend) Send(ctx context.Context, tx *PreparedTransaction) (hash string, err error) {
	if err = ctx.Err(); err != nil {
		return
	}

	resend := tx.Sends > 0
	tx.Sends++

	pending, err := self.client.SubmitTransaction(ctx, tx.Signed)
	if resend && IsSequenceNumberTooOld(err) && tx.Hash != "" {
		// The earlier send went through and the transaction got committed
		self.log.WithField("sender", tx.Sender).
			WithField("sequence_number", tx.SequenceNumber).
			WithField("hash", tx.Hash).
			Info("Sequence number already used after resend, assuming our transaction")
		return tx.Hash, nil
	}
	if err != nil {
		// Next prepared transaction refetches the sequence number, resends don't need it
		self.sequences.Delete(tx.Sender)
		return
	}

	self.log.WithField("sender", tx.Sender).
		WithField("function", tx.Signed.Payload.Function).
		WithField("sequence_number", tx.SequenceNumber).
		WithField("hash", pending.Hash).
		Debug("Submitted transaction")

	return strings.ToLower(pending.Hash), nil
}

// Prepares and sends in one call
func (self *Backend) Submit(ctx context.Context, sender string, p *payload.Payload) (hash string, err error) {
	tx, err := self.Prepare(ctx, sender, p)
	if err != nil {
		return
	}
	return self.Send(ctx, tx)
}

func (self *Backend) Status(ctx context.Context, hash string) (out *TransactionStatus, err error) {
	tx, err := self.client.GetTransactionByHash(ctx, hash)
	if err != nil {
		return
	}
	return tx.Status(), nil
}

func (self *Backend) GetAccount(ctx context.Context, addr string) (*Account, error) {
	return self.client.GetAccount(ctx, addr)
}

func (self *Backend) GetBalance(ctx context.Context, addr string) (uint64, error) {
	return self.client.GetBalance(ctx, addr)
}

func (self *Backend) Fund(ctx context.Context, addr string, amount uint64) (err error) {
	hashes, err := self.client.Fund(ctx, addr, amount)
	if err != nil {
		return
	}
	self.log.WithField("address", addr).WithField("amount", amount).WithField("hashes", hashes).Info("Requested funding")
	return
}
