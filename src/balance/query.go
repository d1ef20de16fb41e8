// Package balance answers read-only account questions and drives faucet funding.
package balance

import (
	"context"
	"errors"

	"github.com/warp-contracts/licensing/src/pricing"
	"github.com/warp-contracts/licensing/src/utils/address"
	"github.com/warp-contracts/licensing/src/utils/aptos"
	"github.com/warp-contracts/licensing/src/utils/config"
	"github.com/warp-contracts/licensing/src/utils/errs"
	"github.com/warp-contracts/licensing/src/utils/logger"
	"github.com/warp-contracts/licensing/src/utils/monitoring"
	"github.com/warp-contracts/licensing/src/utils/signer"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// Chain state observed for an address
type State string

const (
	StateNotFound    State = "not_found"
	StateNoCoinStore State = "no_coin_store"
	StateFunded      State = "funded"
)

// Read side of the chain, implemented by both backends
type Chain interface {
	GetAccount(ctx context.Context, addr string) (*aptos.Account, error)
	GetBalance(ctx context.Context, addr string) (uint64, error)
	Fund(ctx context.Context, addr string, amount uint64) error
}

type Balance struct {
	Address string          `json:"address"`
	State   State           `json:"state"`
	Octas   uint64          `json:"octas"`
	Apt     decimal.Decimal `json:"apt"`
}

type Account struct {
	Address           string `json:"address"`
	SequenceNumber    uint64 `json:"sequence_number"`
	AuthenticationKey string `json:"authentication_key"`
}

type Query struct {
	config   *config.Config
	log      *logrus.Entry
	chain    Chain
	keystore *signer.Keystore
	monitor  monitoring.Monitor
}

func NewQuery(config *config.Config) (self *Query) {
	self = new(Query)
	self.config = config
	self.log = logger.NewSublogger("balance")
	return
}

func (self *Query) WithChain(chain Chain) *Query {
	self.chain = chain
	return self
}

func (self *Query) WithKeystore(keystore *signer.Keystore) *Query {
	self.keystore = keystore
	return self
}

func (self *Query) WithMonitor(monitor monitoring.Monitor) *Query {
	self.monitor = monitor
	return self
}

func (self *Query) queryError(err error, format string, args ...any) error {
	self.monitor.GetReport().Balance.Errors.Query.Inc()
	return errs.Wrap(errs.ErrQuery, err, format, args...)
}

// Observed state and balance of the address.
// Accounts never seen by the chain and accounts without a coin store hold 0.
func (self *Query) Lookup(ctx context.Context, addr string) (out *Balance, err error) {
	self.monitor.GetReport().Balance.State.Queries.Inc()

	normalized, err := address.Normalize(addr)
	if err != nil {
		return nil, self.queryError(err, "malformed address %q", addr)
	}

	out = &Balance{Address: normalized, State: StateFunded, Apt: decimal.Zero}

	octas, err := self.chain.GetBalance(ctx, normalized)
	switch {
	case err == nil:
		out.Octas = octas
		out.Apt = pricing.FromSmallestUnit(octas)
	case aptos.IsNotFound(err, aptos.ErrorCodeAccountNotFound):
		out.State = StateNotFound
	case errors.Is(err, aptos.ErrNoCoinStore):
		out.State = StateNoCoinStore
	default:
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, self.queryError(err, "failed to get balance of %s", normalized)
	}
	return
}

// Balance in octas
func (self *Query) GetBalance(ctx context.Context, addr string) (out uint64, err error) {
	balance, err := self.Lookup(ctx, addr)
	if err != nil {
		return
	}
	return balance.Octas, nil
}

func (self *Query) GetAccount(ctx context.Context, addr string) (out *Account, err error) {
	normalized, err := address.Normalize(addr)
	if err != nil {
		return nil, self.queryError(err, "malformed address %q", addr)
	}

	account, err := self.chain.GetAccount(ctx, normalized)
	if aptos.IsNotFound(err, aptos.ErrorCodeAccountNotFound) {
		return nil, errs.NotFound("account %s", normalized)
	}
	if err != nil {
		return nil, self.queryError(err, "failed to get account %s", normalized)
	}

	return &Account{
		Address:           normalized,
		SequenceNumber:    account.SequenceNumber.Uint64(),
		AuthenticationKey: account.AuthenticationKey,
	}, nil
}

// Generates a new key in the key store. The account exists on chain once it's funded.
func (self *Query) CreateAccount() (out *signer.Account, err error) {
	out, err = self.keystore.Create()
	if err != nil {
		return
	}
	self.log.WithField("address", out.Address).Info("Created account")
	return
}
