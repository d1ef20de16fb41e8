package aptos

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"strings"

	"github.com/warp-contracts/licensing/src/utils/build_info"
	"github.com/warp-contracts/licensing/src/utils/config"
	"github.com/warp-contracts/licensing/src/utils/logger"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/go-resty/resty/v2"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

// Client of the Aptos fullnode REST API and the faucet
type Client struct {
	client *resty.Client
	faucet *resty.Client
	config *config.Config
	log    *logrus.Entry

	limiter *rate.Limiter
}

func NewClient(config *config.Config) (self *Client) {
	self = new(Client)
	self.config = config
	self.log = logger.NewSublogger("aptos-client")

	limit := rate.Inf
	if config.Chain.RequestsPerSecond > 0 {
		limit = rate.Limit(config.Chain.RequestsPerSecond)
	}
	self.limiter = rate.NewLimiter(limit, 1)

	self.client = self.newRestyClient(config.Chain.NodeUrl)
	self.faucet = self.newRestyClient(config.Chain.FaucetUrl)

	return
}

func (self *Client) newRestyClient(baseUrl string) *resty.Client {
	return resty.New().
		SetBaseURL(strings.TrimSuffix(baseUrl, "/")).
		SetTimeout(self.config.Chain.RequestTimeout).
		SetHeader("User-Agent", "warp.cc/licensing/"+build_info.Version).
		SetLogger(NewLogger()).
		// Retrying is decided by the caller
		SetRetryCount(0).
		OnBeforeRequest(self.onRateLimit).
		OnAfterResponse(self.onStatusToError)
}

func (self *Client) onRateLimit(c *resty.Client, req *resty.Request) (err error) {
	// Blocks till the request is possible
	// Or ctx gets canceled
	err = self.limiter.Wait(req.Context())
	if err != nil {
		self.log.WithError(err).Debug("Rate limiting failed")
	}
	return
}

func (self *Client) onStatusToError(c *resty.Client, resp *resty.Response) error {
	// Non-success status code turns into an error
	if resp.IsSuccess() {
		return nil
	}

	out := &Error{}
	err := json.Unmarshal(resp.Body(), out)
	if err != nil || out.Message == "" {
		out.Message = strings.TrimSpace(string(resp.Body()))
	}
	out.StatusCode = resp.StatusCode()

	if resp.StatusCode() > 399 && resp.StatusCode() < 500 {
		self.log.WithField("status", resp.StatusCode()).
			WithField("resp", string(resp.Body())).
			WithField("url", resp.Request.URL).
			Debug("Bad request")
	}
	return out
}

// Keeps the node's error, marks everything else (transport, timeouts) as transient.
// Caller's cancellation is returned as is.
func (self *Client) wrap(ctx context.Context, err error) error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	return transportError(err)
}

// https://fullnode.testnet.aptoslabs.com/v1/spec#/operations/get_account
func (self *Client) GetAccount(ctx context.Context, addr string) (out *Account, err error) {
	resp, err := self.client.R().
		SetContext(ctx).
		ForceContentType("application/json").
		SetResult(&Account{}).
		SetPathParam("address", addr).
		Get("/accounts/{address}")
	if err != nil {
		err = self.wrap(ctx, err)
		return
	}

	out, ok := resp.Result().(*Account)
	if !ok {
		err = ErrFailedToParse
	}
	return
}

func (self *Client) GetAccountResources(ctx context.Context, addr string) (out []Resource, err error) {
	resp, err := self.client.R().
		SetContext(ctx).
		ForceContentType("application/json").
		SetResult([]Resource{}).
		SetPathParam("address", addr).
		Get("/accounts/{address}/resources")
	if err != nil {
		err = self.wrap(ctx, err)
		return
	}

	resources, ok := resp.Result().(*[]Resource)
	if !ok {
		err = ErrFailedToParse
		return
	}
	return *resources, nil
}

// Balance of the AptosCoin store.
// Returns the 404 account_not_found error when the account was never observed
// and ErrNoCoinStore when it exists without a coin store.
func (self *Client) GetBalance(ctx context.Context, addr string) (out uint64, err error) {
	resources, err := self.GetAccountResources(ctx, addr)
	if err != nil {
		return
	}

	for _, resource := range resources {
		if resource.Type != CoinStoreType {
			continue
		}
		var store CoinStore
		err = json.Unmarshal(resource.Data, &store)
		if err != nil {
			err = ErrFailedToParse
			return
		}
		return store.Coin.Value.Uint64(), nil
	}

	err = ErrNoCoinStore
	return
}

// Returns the BCS signing message for the transaction
func (self *Client) EncodeSubmission(ctx context.Context, req *TransactionRequest) (out []byte, err error) {
	var encoded string
	_, err = self.client.R().
		SetContext(ctx).
		ForceContentType("application/json").
		SetBody(req).
		SetResult(&encoded).
		Post("/transactions/encode_submission")
	if err != nil {
		err = self.wrap(ctx, err)
		return
	}

	out, err = hexutil.Decode(encoded)
	if err != nil {
		err = ErrFailedToParse
	}
	return
}

func (self *Client) SubmitTransaction(ctx context.Context, tx *SignedTransaction) (out *PendingTransaction, err error) {
	resp, err := self.client.R().
		SetContext(ctx).
		ForceContentType("application/json").
		SetBody(tx).
		SetResult(&PendingTransaction{}).
		Post("/transactions")
	if err != nil {
		err = self.wrap(ctx, err)
		return
	}

	out, ok := resp.Result().(*PendingTransaction)
	if !ok || out.Hash == "" {
		err = ErrFailedToParse
	}
	return
}

func (self *Client) GetTransactionByHash(ctx context.Context, hash string) (out *Transaction, err error) {
	resp, err := self.client.R().
		SetContext(ctx).
		ForceContentType("application/json").
		SetResult(&Transaction{}).
		SetPathParam("hash", hash).
		Get("/transactions/by_hash/{hash}")
	if err != nil {
		err = self.wrap(ctx, err)
		return
	}

	out, ok := resp.Result().(*Transaction)
	if !ok {
		err = ErrFailedToParse
	}
	return
}

// Asks the faucet to mint coins to the address. Returns hashes of the funding transactions
func (self *Client) Fund(ctx context.Context, addr string, amount uint64) (out []string, err error) {
	resp, err := self.faucet.R().
		SetContext(ctx).
		ForceContentType("application/json").
		SetQueryParam("address", addr).
		SetQueryParam("amount", strconv.FormatUint(amount, 10)).
		SetResult([]string{}).
		Post("/mint")
	if err != nil {
		err = self.wrap(ctx, err)
		return
	}

	hashes, ok := resp.Result().(*[]string)
	if !ok {
		err = ErrFailedToParse
		return
	}
	return *hashes, nil
}
