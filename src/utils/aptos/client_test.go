package aptos

import (
	"context"
	"crypto/ed25519"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/warp-contracts/licensing/src/utils/config"
	"github.com/warp-contracts/licensing/src/utils/payload"
	"github.com/warp-contracts/licensing/src/utils/signer"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

const (
	funded  = "0x00000000000000000000000000000000000000000000000000000000000000f1"
	noStore = "0x00000000000000000000000000000000000000000000000000000000000000f2"
	unseen  = "0x00000000000000000000000000000000000000000000000000000000000000f3"
)

func TestClientTestSuite(t *testing.T) {
	suite.Run(t, new(ClientTestSuite))
}

// Fake fullnode and faucet
type node struct {
	mtx            sync.Mutex
	accountQueries int
	submitted      []SignedTransaction
	failSubmit     int
	funded         map[string]string

	// Accepted submissions answered only after the client gave up
	stall    int
	stallFor time.Duration

	// Resent transactions were already committed
	committed bool
	accepted  map[string]bool
}

func (self *node) handler(t *testing.T) http.Handler {
	mux := http.NewServeMux()
	notFound := func(w http.ResponseWriter, code string) {
		w.WriteHeader(http.StatusNotFound)
		_ = json.NewEncoder(w).Encode(Error{Message: "not found", ErrorCode: code})
	}

	mux.HandleFunc("/accounts/", func(w http.ResponseWriter, r *http.Request) {
		path := strings.TrimPrefix(r.URL.Path, "/accounts/")
		addr, resources := strings.CutSuffix(path, "/resources")
		switch {
		case addr == unseen:
			notFound(w, ErrorCodeAccountNotFound)
		case resources && addr == noStore:
			_, _ = w.Write([]byte(`[{"type":"0x1::account::Account","data":{"sequence_number":"0"}}]`))
		case resources:
			_, _ = w.Write([]byte(`[{"type":"` + CoinStoreType + `","data":{"coin":{"value":"150000000"},"frozen":false}}]`))
		default:
			self.mtx.Lock()
			self.accountQueries++
			self.mtx.Unlock()
			_, _ = w.Write([]byte(`{"sequence_number":"41","authentication_key":"` + addr + `"}`))
		}
	})

	mux.HandleFunc("/transactions/encode_submission", func(w http.ResponseWriter, r *http.Request) {
		var req TransactionRequest
		require.Nil(t, json.NewDecoder(r.Body).Decode(&req))
		message := []byte(req.Sender + "/" + string(req.SequenceNumber) + "/" + req.Payload.Function)
		_ = json.NewEncoder(w).Encode(hexutil.Encode(message))
	})

	mux.HandleFunc("/transactions", func(w http.ResponseWriter, r *http.Request) {
		var tx SignedTransaction
		require.Nil(t, json.NewDecoder(r.Body).Decode(&tx))

		self.mtx.Lock()

		if self.failSubmit > 0 {
			self.failSubmit--
			self.mtx.Unlock()
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"message":"overloaded"}`))
			return
		}

		message := []byte(tx.Sender + "/" + string(tx.SequenceNumber) + "/" + tx.Payload.Function)
		pub := hexutil.MustDecode(tx.Signature.PublicKey)
		sig := hexutil.MustDecode(tx.Signature.Signature)
		if !ed25519.Verify(pub, message, sig) {
			self.mtx.Unlock()
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"message":"invalid signature","error_code":"invalid_input"}`))
			return
		}

		self.submitted = append(self.submitted, tx)
		resend := self.accepted[tx.Signature.Signature]
		self.accepted[tx.Signature.Signature] = true

		stall := self.stall > 0
		if stall {
			self.stall--
		}
		duplicate := resend && self.committed
		self.mtx.Unlock()

		if duplicate {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"message":"Invalid transaction: Type: Validation Code: SEQUENCE_NUMBER_TOO_OLD","error_code":"vm_error","vm_error_code":3}`))
			return
		}

		if stall {
			select {
			case <-time.After(self.stallFor):
			case <-r.Context().Done():
			}
		}

		w.WriteHeader(http.StatusAccepted)
		_, _ = w.Write([]byte(`{"hash":"0xABCD` + string(tx.SequenceNumber) + `"}`))
	})

	mux.HandleFunc("/transactions/by_hash/", func(w http.ResponseWriter, r *http.Request) {
		hash := strings.TrimPrefix(r.URL.Path, "/transactions/by_hash/")
		switch hash {
		case "0xpending":
			_, _ = w.Write([]byte(`{"type":"pending_transaction","hash":"0xpending"}`))
		case "0xdone":
			_, _ = w.Write([]byte(`{"type":"user_transaction","hash":"0xdone","success":true,"vm_status":"Executed successfully","gas_used":"12","version":"99"}`))
		case "0xaborted":
			_, _ = w.Write([]byte(`{"type":"user_transaction","hash":"0xaborted","success":false,"vm_status":"Move abort: EALREADY_MINTED","gas_used":"7","version":"100"}`))
		default:
			notFound(w, ErrorCodeTransactionNotFound)
		}
	})

	mux.HandleFunc("/mint", func(w http.ResponseWriter, r *http.Request) {
		self.mtx.Lock()
		self.funded[r.URL.Query().Get("address")] = r.URL.Query().Get("amount")
		self.mtx.Unlock()
		_, _ = w.Write([]byte(`["0xfunding"]`))
	})

	return mux
}

type ClientTestSuite struct {
	suite.Suite
	ctx      context.Context
	config   *config.Config
	node     *node
	server   *httptest.Server
	client   *Client
	keystore *signer.Keystore
}

func (s *ClientTestSuite) SetupTest() {
	s.ctx = context.Background()
	s.node = &node{funded: make(map[string]string), accepted: make(map[string]bool)}
	s.server = httptest.NewServer(s.node.handler(s.T()))

	s.config = config.Default()
	s.config.Chain.NodeUrl = s.server.URL
	s.config.Chain.FaucetUrl = s.server.URL
	s.config.Chain.RequestsPerSecond = 0
	s.config.Signer.KeysetPath = ""

	var err error
	s.keystore, err = signer.NewKeystore(s.config)
	require.Nil(s.T(), err)

	s.client = NewClient(s.config)
}

func (s *ClientTestSuite) TearDownTest() {
	s.server.Close()
}

func (s *ClientTestSuite) TestGetBalance() {
	balance, err := s.client.GetBalance(s.ctx, funded)
	require.Nil(s.T(), err)
	require.Equal(s.T(), uint64(150000000), balance)

	_, err = s.client.GetBalance(s.ctx, noStore)
	require.ErrorIs(s.T(), err, ErrNoCoinStore)

	_, err = s.client.GetBalance(s.ctx, unseen)
	require.True(s.T(), IsNotFound(err, ErrorCodeAccountNotFound))
	require.False(s.T(), IsTransient(err))
}

func (s *ClientTestSuite) TestTransactionStatus() {
	tx, err := s.client.GetTransactionByHash(s.ctx, "0xpending")
	require.Nil(s.T(), err)
	require.True(s.T(), tx.Status().Pending)

	tx, err = s.client.GetTransactionByHash(s.ctx, "0xdone")
	require.Nil(s.T(), err)
	status := tx.Status()
	require.False(s.T(), status.Pending)
	require.True(s.T(), status.Success)
	require.Equal(s.T(), uint64(12), status.GasUsed)
	require.Equal(s.T(), uint64(99), status.Version)

	tx, err = s.client.GetTransactionByHash(s.ctx, "0xaborted")
	require.Nil(s.T(), err)
	require.False(s.T(), tx.Status().Success)
	require.Equal(s.T(), "Move abort: EALREADY_MINTED", tx.Status().VmStatus)

	_, err = s.client.GetTransactionByHash(s.ctx, "0xunknown")
	require.True(s.T(), IsNotFound(err, ErrorCodeTransactionNotFound))
}

func (s *ClientTestSuite) TestServerErrorIsTransient() {
	s.node.failSubmit = 1
	_, err := s.client.SubmitTransaction(s.ctx, &SignedTransaction{
		TransactionRequest: TransactionRequest{Payload: &EntryFunctionPayload{}},
		Signature:          &Signature{},
	})
	require.True(s.T(), IsTransient(err))

	var e *Error
	require.ErrorAs(s.T(), err, &e)
	require.Equal(s.T(), http.StatusServiceUnavailable, e.StatusCode)
	require.Equal(s.T(), "overloaded", e.Message)
}

func (s *ClientTestSuite) TestTransportErrorIsTransient() {
	s.server.Close()
	_, err := s.client.GetAccount(s.ctx, funded)
	require.NotNil(s.T(), err)
	require.True(s.T(), IsTransient(err))
}

func (s *ClientTestSuite) TestFund() {
	hashes, err := s.client.Fund(s.ctx, funded, 500)
	require.Nil(s.T(), err)
	require.Equal(s.T(), []string{"0xfunding"}, hashes)
	require.Equal(s.T(), "500", s.node.funded[funded])
}

func (s *ClientTestSuite) TestBackendSubmit() {
	account, err := s.keystore.Create()
	require.Nil(s.T(), err)

	backend := NewBackend(s.config).WithClient(s.client).WithSigner(s.keystore)

	hash, err := backend.Submit(s.ctx, account.Address, payload.MintDataset(7, "abc123", "ipfs://x"))
	require.Nil(s.T(), err)
	require.Equal(s.T(), "0xabcd41", hash)

	hash, err = backend.Submit(s.ctx, account.Address, payload.SetPrice(7, 1, 2))
	require.Nil(s.T(), err)
	require.Equal(s.T(), "0xabcd42", hash)

	// Sequence number is fetched once, then incremented locally
	require.Equal(s.T(), 1, s.node.accountQueries)
	require.Len(s.T(), s.node.submitted, 2)
	require.Equal(s.T(), "0x1::DatasetNFT::mint_dataset", s.node.submitted[0].Payload.Function)
	require.Equal(s.T(), []interface{}{"7", "abc123", "ipfs://x"}, s.node.submitted[0].Payload.Arguments)
	require.Equal(s.T(), SignatureTypeEd25519, s.node.submitted[0].Signature.Type)
}

func (s *ClientTestSuite) TestBackendSubmitFailureResetsSequence() {
	account, err := s.keystore.Create()
	require.Nil(s.T(), err)

	backend := NewBackend(s.config).WithClient(s.client).WithSigner(s.keystore)

	s.node.failSubmit = 1
	_, err = backend.Submit(s.ctx, account.Address, payload.MintDataset(7, "abc123", "ipfs://x"))
	require.True(s.T(), IsTransient(err))

	hash, err := backend.Submit(s.ctx, account.Address, payload.MintDataset(7, "abc123", "ipfs://x"))
	require.Nil(s.T(), err)
	require.Equal(s.T(), "0xabcd41", hash)
	require.Equal(s.T(), 2, s.node.accountQueries)
}

func (s *ClientTestSuite) TestBackendResendAfterLostResponse() {
	account, err := s.keystore.Create()
	require.Nil(s.T(), err)

	// Node accepts the transaction but answers after the client timed out
	s.config.Chain.RequestTimeout = 100 * time.Millisecond
	s.node.stall = 1
	s.node.stallFor = time.Second
	backend := NewBackend(s.config).WithClient(NewClient(s.config)).WithSigner(s.keystore)

	tx, err := backend.Prepare(s.ctx, account.Address, payload.MintDataset(7, "abc123", "ipfs://x"))
	require.Nil(s.T(), err)
	require.Len(s.T(), tx.Hash, 66)

	_, err = backend.Send(s.ctx, tx)
	require.True(s.T(), IsTransport(err))

	hash, err := backend.Send(s.ctx, tx)
	require.Nil(s.T(), err)
	require.Equal(s.T(), "0xabcd41", hash)
	require.Equal(s.T(), 2, tx.Sends)

	// Same signed bytes both times, signed once
	require.Len(s.T(), s.node.submitted, 2)
	require.Equal(s.T(), s.node.submitted[0], s.node.submitted[1])
	require.Equal(s.T(), 1, s.node.accountQueries)
}

func (s *ClientTestSuite) TestBackendResendAfterCommit() {
	account, err := s.keystore.Create()
	require.Nil(s.T(), err)

	s.config.Chain.RequestTimeout = 100 * time.Millisecond
	s.node.stall = 1
	s.node.stallFor = time.Second
	s.node.committed = true
	backend := NewBackend(s.config).WithClient(NewClient(s.config)).WithSigner(s.keystore)

	tx, err := backend.Prepare(s.ctx, account.Address, payload.SetPrice(7, 1, 2))
	require.Nil(s.T(), err)

	_, err = backend.Send(s.ctx, tx)
	require.True(s.T(), IsTransport(err))

	// Node refuses the duplicate, the locally computed hash identifies the committed one
	hash, err := backend.Send(s.ctx, tx)
	require.Nil(s.T(), err)
	require.Equal(s.T(), tx.Hash, hash)
	require.Len(s.T(), s.node.submitted, 2)
}

func (s *ClientTestSuite) TestBackendSequenceTooOldOnFirstSendIsRejection() {
	account, err := s.keystore.Create()
	require.Nil(s.T(), err)

	s.node.committed = true
	backend := NewBackend(s.config).WithClient(s.client).WithSigner(s.keystore)

	tx, err := backend.Prepare(s.ctx, account.Address, payload.SetPrice(7, 1, 2))
	require.Nil(s.T(), err)

	// Marks the signature as seen, so the first send from this process looks like a duplicate
	s.node.mtx.Lock()
	s.node.accepted[tx.Signed.Signature.Signature] = true
	s.node.mtx.Unlock()

	_, err = backend.Send(s.ctx, tx)
	require.True(s.T(), IsSequenceNumberTooOld(err))
	require.False(s.T(), IsTransient(err))
}

func (s *ClientTestSuite) TestBackendRejectsUnknownSigner() {
	backend := NewBackend(s.config).WithClient(s.client).WithSigner(s.keystore)

	_, err := backend.Submit(s.ctx, funded, payload.MintDataset(7, "abc123", "ipfs://x"))
	require.ErrorIs(s.T(), err, signer.ErrUnknownSigner)
	require.False(s.T(), IsTransient(err))
	require.Len(s.T(), s.node.submitted, 0)
}
