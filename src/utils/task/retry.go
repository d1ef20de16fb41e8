package task

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// Implement operation retrying
type Retry struct {
	ctx             context.Context
	maxElapsedTime  time.Duration
	initialInterval time.Duration
	maxInterval     time.Duration
	maxAttempts     uint64

	// Returning backoff.Permanent(err) stops retrying
	onError func(err error) error
}

func NewRetry() *Retry {
	return &Retry{
		ctx:             context.Background(),
		initialInterval: backoff.DefaultInitialInterval,
		maxInterval:     backoff.DefaultMaxInterval,
		onError:         func(err error) error { return err },
	}
}

func (self *Retry) WithMaxElapsedTime(maxElapsedTime time.Duration) *Retry {
	self.maxElapsedTime = maxElapsedTime
	return self
}

func (self *Retry) WithInitialInterval(initialInterval time.Duration) *Retry {
	self.initialInterval = initialInterval
	return self
}

func (self *Retry) WithMaxInterval(maxInterval time.Duration) *Retry {
	self.maxInterval = maxInterval
	return self
}

// Total number of calls, including the first one. 0 means no limit.
func (self *Retry) WithMaxAttempts(maxAttempts uint64) *Retry {
	self.maxAttempts = maxAttempts
	return self
}

func (self *Retry) WithContext(ctx context.Context) *Retry {
	self.ctx = ctx
	return self
}

func (self *Retry) WithOnError(v func(error) error) *Retry {
	self.onError = v
	return self
}

func (self *Retry) Run(f func() error) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = self.initialInterval
	b.MaxElapsedTime = self.maxElapsedTime
	b.MaxInterval = self.maxInterval

	var policy backoff.BackOff = b
	if self.maxAttempts > 0 {
		policy = backoff.WithMaxRetries(b, self.maxAttempts-1)
	}

	return backoff.Retry(func() error {
		err := f()
		if err == nil {
			return nil
		}
		return self.onError(err)
	}, backoff.WithContext(policy, self.ctx))
}
