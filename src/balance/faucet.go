package balance

import (
	"context"
	"errors"

	"github.com/warp-contracts/licensing/src/utils/errs"
	"github.com/warp-contracts/licensing/src/utils/task"

	"github.com/cenkalti/backoff/v4"
	"golang.org/x/time/rate"
)

var errNotFunded = errors.New("funding not visible yet")

// Requests funding and waits until the balance grows by amount.
// Returns the realized balance.
func (self *Query) FundFromFaucet(ctx context.Context, addr string, amount uint64) (out uint64, err error) {
	if amount == 0 {
		amount = self.config.Faucet.DefaultAmount
	}

	start, err := self.Lookup(ctx, addr)
	if err != nil {
		return
	}
	target := start.Octas + amount

	err = self.chain.Fund(ctx, start.Address, amount)
	if err != nil {
		if ctx.Err() != nil {
			return 0, ctx.Err()
		}
		return 0, self.queryError(err, "failed to request funding of %s", start.Address)
	}
	self.monitor.GetReport().Balance.State.Fundings.Inc()

	pollCtx, cancel := context.WithTimeout(ctx, self.config.Faucet.Timeout)
	defer cancel()

	// Backoff jitter may go below the initial interval, this keeps the floor
	limiter := rate.NewLimiter(rate.Every(self.config.Faucet.MinPollInterval), 1)

	last := start.Octas
	err = task.NewRetry().
		WithContext(pollCtx).
		WithInitialInterval(self.config.Faucet.MinPollInterval).
		WithMaxInterval(self.config.Faucet.MaxPollInterval).
		WithOnError(func(err error) error {
			if errors.Is(err, errNotFunded) || errors.Is(err, errs.ErrQuery) {
				return err
			}
			return backoff.Permanent(err)
		}).
		Run(func() (err error) {
			if limiter.Wait(pollCtx) != nil {
				// Deadline is closer than the next allowed poll
				return backoff.Permanent(errNotFunded)
			}

			self.monitor.GetReport().Balance.State.FaucetPolls.Inc()

			balance, err := self.Lookup(pollCtx, start.Address)
			if err != nil {
				return
			}
			last = balance.Octas
			if last < target {
				return errNotFunded
			}
			return nil
		})
	if err == nil {
		self.log.WithField("address", start.Address).WithField("balance", last).Info("Account funded")
		return last, nil
	}

	if ctx.Err() != nil {
		return 0, ctx.Err()
	}

	if pollCtx.Err() != nil || errors.Is(err, errNotFunded) {
		self.monitor.GetReport().Balance.Errors.FundingTimeout.Inc()
		return last, errs.New(errs.ErrFundingTimeout, "balance of %s is %d after %s, expected at least %d", start.Address, last, self.config.Faucet.Timeout, target)
	}
	return 0, err
}
