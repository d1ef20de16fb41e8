// Package simulator is an in-memory chain implementing the same operations as the live backend.
// Transactions are signed when prepared and verified when sent. The hash is derived from the signed message.
package simulator

import (
	"context"
	"crypto/ed25519"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/warp-contracts/licensing/src/utils/address"
	"github.com/warp-contracts/licensing/src/utils/aptos"
	"github.com/warp-contracts/licensing/src/utils/config"
	"github.com/warp-contracts/licensing/src/utils/logger"
	"github.com/warp-contracts/licensing/src/utils/payload"
	"github.com/warp-contracts/licensing/src/utils/signer"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/sha3"
)

const (
	VmStatusSuccess = "Executed successfully"

	// Gas units charged for every executed transaction
	gasUsed = 10
)

// Decides the outcome of an executed transaction. Empty vmStatus means success
type Executor func(sender string, p *payload.Payload) (vmStatus string)

type account struct {
	sequenceNumber uint64
	authKey        string
	hasCoinStore   bool
	balance        uint64
}

type transaction struct {
	status *aptos.TransactionStatus

	// Status reads left before the transaction is executed
	pendingReads int
}

type Simulator struct {
	config *config.Config
	log    *logrus.Entry
	signer signer.Signer

	// Tuning
	executor      Executor
	pendingReads  int
	fundingDelay  time.Duration
	submitFailure error
	failuresLeft  int
	responsesLost int

	// State
	mtx          sync.Mutex
	accounts     map[string]*account
	transactions map[string]*transaction
	prices       map[uint64]uint64
	version      uint64
	submissions  int
	wg           sync.WaitGroup
}

func NewSimulator(config *config.Config) (self *Simulator) {
	self = new(Simulator)
	self.config = config
	self.log = logger.NewSublogger("simulator")
	self.accounts = make(map[string]*account)
	self.transactions = make(map[string]*transaction)
	self.prices = make(map[uint64]uint64)
	self.executor = self.execute
	return
}

func (self *Simulator) WithSigner(signer signer.Signer) *Simulator {
	self.signer = signer
	return self
}

// Replaces the default execution rules
func (self *Simulator) WithExecutor(executor Executor) *Simulator {
	self.executor = executor
	return self
}

// Number of status reads a transaction stays pending for
func (self *Simulator) WithPendingReads(reads int) *Simulator {
	self.pendingReads = reads
	return self
}

// Faucet credits arrive after this delay
func (self *Simulator) WithFundingDelay(delay time.Duration) *Simulator {
	self.fundingDelay = delay
	return self
}

// Makes the next n submissions fail with err
func (self *Simulator) FailSubmissions(n int, err error) {
	self.mtx.Lock()
	defer self.mtx.Unlock()
	self.failuresLeft = n
	self.submitFailure = err
}

// The next n accepted transactions are executed but the sender gets a transport error
func (self *Simulator) LoseResponses(n int) {
	self.mtx.Lock()
	defer self.mtx.Unlock()
	self.responsesLost = n
}

// Creates an account on chain
func (self *Simulator) AddAccount(addr string, hasCoinStore bool, balance uint64) (err error) {
	addr, err = address.Normalize(addr)
	if err != nil {
		return
	}
	self.mtx.Lock()
	defer self.mtx.Unlock()
	acc := self.getOrCreateAccount(addr)
	acc.hasCoinStore = hasCoinStore
	acc.balance = balance
	return
}

// Number of submissions that reached the chain, including rejected ones
func (self *Simulator) Submissions() int {
	self.mtx.Lock()
	defer self.mtx.Unlock()
	return self.submissions
}

// Waits for scheduled faucet credits
func (self *Simulator) Close() {
	self.wg.Wait()
}

func (self *Simulator) getOrCreateAccount(addr string) *account {
	acc, ok := self.accounts[addr]
	if !ok {
		acc = &account{authKey: addr}
		self.accounts[addr] = acc
	}
	return acc
}

// Default rules: set_price is remembered, pay_for_license transfers the price
func (self *Simulator) execute(sender string, p *payload.Payload) string {
	datasetId, err := p.Uint64(payload.ArgDatasetId)
	if err != nil {
		return "Move abort: EINVALID_ARGUMENT"
	}

	switch p.Name() {
	case payload.ModulePaymentRouter + "::" + payload.FunctionSetPrice:
		price, _ := p.Uint64(payload.ArgBasePrice)
		self.prices[datasetId] = price
	case payload.ModulePaymentRouter + "::" + payload.FunctionPayForLicense:
		price := self.prices[datasetId]
		if price == 0 {
			return ""
		}
		seller, _ := p.String(payload.ArgSeller)
		seller, _ = address.Normalize(seller)
		from := self.getOrCreateAccount(sender)
		if from.balance < price {
			return "Move abort in 0x1::coin: EINSUFFICIENT_BALANCE(0x10006)"
		}
		to := self.getOrCreateAccount(seller)
		from.balance -= price
		to.balance += price
		to.hasCoinStore = true
	}
	return ""
}

func signingMessage(sender string, sequenceNumber uint64, p *payload.Payload) (out []byte, err error) {
	body, err := json.Marshal(struct {
		Sender         string           `json:"sender"`
		SequenceNumber uint64           `json:"sequence_number"`
		Payload        *payload.Payload `json:"payload"`
	}{sender, sequenceNumber, p})
	if err != nil {
		return
	}

	prefix := sha3.Sum256([]byte("APTOS::RawTransaction"))
	return append(prefix[:], body...), nil
}

// Reserves the sender's sequence number and signs the transaction
func (self *Simulator) Prepare(ctx context.Context, sender string, p *payload.Payload) (out *aptos.PreparedTransaction, err error) {
	if err = ctx.Err(); err != nil {
		return
	}

	err = p.Validate()
	if err != nil {
		return
	}

	sender, err = address.Normalize(sender)
	if err != nil {
		return
	}

	self.mtx.Lock()
	acc := self.getOrCreateAccount(sender)
	sequenceNumber := acc.sequenceNumber
	acc.sequenceNumber++
	self.mtx.Unlock()

	message, err := signingMessage(sender, sequenceNumber, p)
	if err != nil {
		return
	}

	signature, err := self.signer.Sign(ctx, sender, message)
	if err != nil {
		return
	}

	digest := sha3.New256()
	digest.Write(message)
	digest.Write(signature.Signature)

	return &aptos.PreparedTransaction{
		Sender:         sender,
		SequenceNumber: sequenceNumber,
		Payload:        p,
		Message:        message,
		Signed: &aptos.SignedTransaction{
			TransactionRequest: aptos.TransactionRequest{
				Sender:         sender,
				SequenceNumber: aptos.NewU64(sequenceNumber),
			},
			Signature: &aptos.Signature{
				Type:      aptos.SignatureTypeEd25519,
				PublicKey: hexutil.Encode(signature.PublicKey),
				Signature: hexutil.Encode(signature.Signature),
			},
		},
		Hash: hexutil.Encode(digest.Sum(nil)),
	}, nil
}

// Verifies and executes the transaction. Resending an accepted transaction returns its hash again.
func (self *Simulator) Send(ctx context.Context, tx *aptos.PreparedTransaction) (hash string, err error) {
	if err = ctx.Err(); err != nil {
		return
	}

	self.mtx.Lock()
	defer self.mtx.Unlock()

	tx.Sends++
	self.submissions++

	if _, ok := self.transactions[tx.Hash]; ok {
		return tx.Hash, nil
	}

	if self.failuresLeft > 0 {
		self.failuresLeft--
		err = self.submitFailure
		return
	}

	publicKey, errKey := hexutil.Decode(tx.Signed.Signature.PublicKey)
	signature, errSig := hexutil.Decode(tx.Signed.Signature.Signature)
	if errKey != nil || errSig != nil ||
		!ed25519.Verify(publicKey, tx.Message, signature) ||
		address.FromPublicKey(publicKey) != tx.Sender {
		err = &aptos.Error{StatusCode: http.StatusBadRequest, ErrorCode: "invalid_signature", Message: "signature verification failed"}
		return
	}

	self.version++
	status := &aptos.TransactionStatus{
		Hash:     tx.Hash,
		Success:  true,
		VmStatus: VmStatusSuccess,
		GasUsed:  gasUsed,
		Version:  self.version,
	}
	if vmStatus := self.executor(tx.Sender, tx.Payload); vmStatus != "" {
		status.Success = false
		status.VmStatus = vmStatus
	}
	self.transactions[tx.Hash] = &transaction{status: status, pendingReads: self.pendingReads}

	self.log.WithField("sender", tx.Sender).WithField("function", tx.Payload.Name()).WithField("hash", tx.Hash).Debug("Accepted transaction")

	if self.responsesLost > 0 {
		self.responsesLost--
		err = fmt.Errorf("%w: connection reset after the transaction was accepted", aptos.ErrTransient)
		return
	}
	return tx.Hash, nil
}

// Prepares and sends in one call
func (self *Simulator) Submit(ctx context.Context, sender string, p *payload.Payload) (hash string, err error) {
	tx, err := self.Prepare(ctx, sender, p)
	if err != nil {
		return
	}
	return self.Send(ctx, tx)
}

func (self *Simulator) Status(ctx context.Context, hash string) (out *aptos.TransactionStatus, err error) {
	if err = ctx.Err(); err != nil {
		return
	}

	self.mtx.Lock()
	defer self.mtx.Unlock()

	tx, ok := self.transactions[hash]
	if !ok {
		err = &aptos.Error{StatusCode: http.StatusNotFound, ErrorCode: aptos.ErrorCodeTransactionNotFound, Message: "transaction not found: " + hash}
		return
	}

	if tx.pendingReads > 0 {
		tx.pendingReads--
		return &aptos.TransactionStatus{Hash: hash, Pending: true}, nil
	}

	status := *tx.status
	return &status, nil
}

func (self *Simulator) GetAccount(ctx context.Context, addr string) (out *aptos.Account, err error) {
	if err = ctx.Err(); err != nil {
		return
	}
	acc, err := self.lookup(addr)
	if err != nil {
		return
	}
	return &aptos.Account{
		SequenceNumber:    aptos.NewU64(acc.sequenceNumber),
		AuthenticationKey: acc.authKey,
	}, nil
}

func (self *Simulator) GetBalance(ctx context.Context, addr string) (out uint64, err error) {
	if err = ctx.Err(); err != nil {
		return
	}
	acc, err := self.lookup(addr)
	if err != nil {
		return
	}
	if !acc.hasCoinStore {
		err = aptos.ErrNoCoinStore
		return
	}
	return acc.balance, nil
}

// Returns a copy of the account state
func (self *Simulator) lookup(addr string) (out account, err error) {
	normalized, err := address.Normalize(addr)
	if err != nil {
		err = &aptos.Error{StatusCode: http.StatusBadRequest, ErrorCode: "invalid_input", Message: "invalid address: " + addr}
		return
	}

	self.mtx.Lock()
	defer self.mtx.Unlock()

	acc, ok := self.accounts[normalized]
	if !ok {
		err = &aptos.Error{StatusCode: http.StatusNotFound, ErrorCode: aptos.ErrorCodeAccountNotFound, Message: "account not found: " + addr}
		return
	}
	return *acc, nil
}

// Credits the account after the funding delay
func (self *Simulator) Fund(ctx context.Context, addr string, amount uint64) (err error) {
	if err = ctx.Err(); err != nil {
		return
	}

	normalized, err := address.Normalize(addr)
	if err != nil {
		return &aptos.Error{StatusCode: http.StatusBadRequest, ErrorCode: "invalid_input", Message: "invalid address: " + addr}
	}

	credit := func() {
		self.mtx.Lock()
		defer self.mtx.Unlock()
		acc := self.getOrCreateAccount(normalized)
		acc.hasCoinStore = true
		acc.balance += amount
	}

	if self.fundingDelay <= 0 {
		credit()
		return
	}

	self.wg.Add(1)
	time.AfterFunc(self.fundingDelay, func() {
		defer self.wg.Done()
		credit()
	})
	return
}
