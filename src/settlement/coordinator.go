// Package settlement walks settlement attempts through PENDING, SUBMITTED and CONFIRMED or FAILED,
// keeping the ledger in step with the chain outcome.
package settlement

import (
	"context"
	"errors"

	"github.com/warp-contracts/licensing/src/ledger"
	"github.com/warp-contracts/licensing/src/utils/address"
	"github.com/warp-contracts/licensing/src/utils/aptos"
	"github.com/warp-contracts/licensing/src/utils/config"
	"github.com/warp-contracts/licensing/src/utils/errs"
	"github.com/warp-contracts/licensing/src/utils/logger"
	"github.com/warp-contracts/licensing/src/utils/model"
	"github.com/warp-contracts/licensing/src/utils/monitoring"
	"github.com/warp-contracts/licensing/src/utils/payload"
	"github.com/warp-contracts/licensing/src/utils/task"

	"github.com/cenkalti/backoff/v4"
	"github.com/sirupsen/logrus"
	"github.com/teivah/onecontext"
	"gorm.io/gorm"
)

var errNotTerminal = errors.New("settlement not terminal yet")

type Coordinator struct {
	config  *config.Config
	log     *logrus.Entry
	store   *ledger.Store
	backend Backend
	monitor monitoring.Monitor

	// Terminal transitions are sent here, if set
	output chan<- *Notification

	// Cancelled when the application stops
	ctx context.Context
}

func NewCoordinator(config *config.Config) (self *Coordinator) {
	self = new(Coordinator)
	self.config = config
	self.log = logger.NewSublogger("settlement")
	self.ctx = context.Background()
	return
}

func (self *Coordinator) WithStore(store *ledger.Store) *Coordinator {
	self.store = store
	return self
}

func (self *Coordinator) WithBackend(backend Backend) *Coordinator {
	self.backend = backend
	return self
}

func (self *Coordinator) WithMonitor(monitor monitoring.Monitor) *Coordinator {
	self.monitor = monitor
	return self
}

func (self *Coordinator) WithOutput(output chan<- *Notification) *Coordinator {
	self.output = output
	return self
}

func (self *Coordinator) WithContext(ctx context.Context) *Coordinator {
	self.ctx = ctx
	return self
}

// Creates the PENDING attempt inside the caller's database transaction.
// An attempt with the same idempotency key that is in flight (or is the latest confirmed one) is returned instead.
func (self *Coordinator) Stage(tx *gorm.DB, req *Request) (out *Staged, err error) {
	if req.Payload == nil {
		return nil, errs.Validation("settlement payload is required")
	}

	err = req.Payload.Validate()
	if err != nil {
		return
	}

	from, err := address.Normalize(req.From)
	if err != nil {
		return nil, errs.Validation("invalid acting address %q", req.From)
	}

	key, err := IdempotencyKey(from, req.Payload)
	if err != nil {
		return
	}

	datasetId, err := req.Payload.Uint64(payload.ArgDatasetId)
	if err != nil {
		return
	}

	existing, err := self.findDuplicate(tx, req.Type, datasetId, key)
	if err != nil {
		return
	}
	if existing != nil {
		self.monitor.GetReport().Settlement.State.Duplicates.Inc()
		self.log.WithField("id", existing.ID).WithField("state", existing.State).Debug("Settlement already exists")
		return &Staged{Transaction: existing, Duplicate: true}, nil
	}

	now := self.store.Now()
	row := &model.Transaction{
		FromAddress:     from,
		ToAddress:       req.To,
		AmountApt:       req.Amount,
		TransactionType: req.Type,
		Status:          model.TransactionStatusPending,
		State:           model.SettlementStatePending,
		IdempotencyKey:  key,
		DatasetID:       datasetId,
		Payload:         *req.Payload,
		RoyaltySplits:   req.RoyaltySplits,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	err = tx.Create(row).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return nil, errs.Conflict("%s of dataset %d is already in flight", req.Payload.Name(), datasetId)
	}
	if err != nil {
		return
	}

	self.monitor.GetReport().Settlement.State.Staged.Inc()
	return &Staged{Transaction: row}, nil
}

func (self *Coordinator) findDuplicate(tx *gorm.DB, transactionType model.TransactionType, datasetId uint64, key string) (out *model.Transaction, err error) {
	var row model.Transaction
	err = tx.Where("idempotency_key = ? AND state IN ?", key, []model.SettlementState{model.SettlementStatePending, model.SettlementStateSubmitted}).
		Order("id DESC").
		Take(&row).
		Error
	if err == nil {
		return &row, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	// Purchases and grants may be repeated once the previous license is gone
	if transactionType == model.TransactionTypePurchase || transactionType == model.TransactionTypeGrant {
		return nil, nil
	}

	// Repeating the operation that is currently in effect is a duplicate
	row = model.Transaction{}
	err = tx.Where("dataset_id = ? AND transaction_type = ? AND state = ?", datasetId, transactionType, model.SettlementStateConfirmed).
		Order("id DESC").
		Take(&row).
		Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if row.IdempotencyKey != key {
		return nil, nil
	}
	return &row, nil
}

// Submits a PENDING attempt, retrying transient failures.
// The transaction is signed once, retries resend the same bytes.
// Exhaustion or rejection marks the attempt FAILED and rolls back the staged mutation.
// If the node may have accepted the transaction the attempt becomes SUBMITTED under its locally computed hash.
func (self *Coordinator) Submit(ctx context.Context, id uint64) (out *model.Transaction, err error) {
	row, err := self.store.GetTransaction(ctx, id)
	if err != nil {
		return
	}

	switch row.State {
	case model.SettlementStateSubmitted, model.SettlementStateConfirmed:
		return row, nil
	case model.SettlementStateFailed:
		return row, errs.New(errs.ErrSettlement, "transaction %d failed: %s", id, row.LastError)
	}

	var (
		prepared *aptos.PreparedTransaction
		hash     string
		lastErr  error
		attempts uint64

		// Node may hold the transaction even though the send failed
		uncertain bool
	)
	err = task.NewRetry().
		WithContext(ctx).
		WithMaxAttempts(self.config.Settlement.MaxAttempts).
		WithInitialInterval(self.config.Settlement.InitialInterval).
		WithMaxInterval(self.config.Settlement.MaxInterval).
		WithOnError(func(err error) error {
			if !aptos.IsTransient(err) {
				return backoff.Permanent(err)
			}
			self.monitor.GetReport().Settlement.Errors.SubmitRetries.Inc()
			self.log.WithError(err).WithField("id", id).WithField("attempt", attempts).Warn("Transient submission failure")
			return err
		}).
		Run(func() (err error) {
			attempts++
			if prepared == nil {
				prepared, err = self.backend.Prepare(ctx, row.FromAddress, &row.Payload)
				if err != nil {
					prepared = nil
					lastErr = err
					return
				}
			}

			sends := prepared.Sends
			hash, err = self.backend.Send(ctx, prepared)
			lastErr = err
			switch {
			case err == nil:
			case prepared.Sends > sends && (aptos.IsTransport(err) || ctx.Err() != nil):
				uncertain = true
			case prepared.Sends > sends && ctx.Err() == nil && !aptos.IsTransient(err):
				// Node validated and refused these exact bytes
				uncertain = false
			}
			return
		})

	// Bookkeeping must not be interrupted by the caller
	dbCtx := context.WithoutCancel(ctx)

	if err == nil {
		return self.markSubmitted(dbCtx, row, hash, attempts)
	}

	if uncertain && prepared != nil && prepared.Hash != "" {
		// Chain status decides, a transaction that never lands fails once it expires
		self.log.WithError(lastErr).WithField("id", id).WithField("hash", prepared.Hash).Warn("Submission outcome unknown, tracking the signed transaction")
		out, err = self.markSubmitted(dbCtx, row, prepared.Hash, attempts)
		if err != nil {
			return
		}
		return out, ctx.Err()
	}

	if ctx.Err() != nil {
		// Left PENDING, the reconciler resubmits it later
		self.log.WithError(err).WithField("id", id).Info("Submission interrupted")
		if lastErr != nil {
			_ = self.recordAttempts(dbCtx, row, attempts, chainMessage(lastErr))
		}
		return row, ctx.Err()
	}

	if lastErr == nil {
		lastErr = err
	}

	if aptos.IsTransient(lastErr) {
		self.monitor.GetReport().Settlement.Errors.SubmitExhausted.Inc()
	} else {
		self.monitor.GetReport().Settlement.Errors.SubmitRejected.Inc()
	}

	self.log.WithError(lastErr).WithField("id", id).WithField("attempts", attempts).Warn("Submission failed")

	out, err = self.fail(dbCtx, row, model.SettlementStatePending, &failure{
		message:  chainMessage(lastErr),
		attempts: attempts,
	})
	if err != nil {
		return
	}

	return out, errs.Wrap(errs.ErrSettlement, lastErr, "transaction %d failed", id)
}

func (self *Coordinator) markSubmitted(ctx context.Context, row *model.Transaction, hash string, attempts uint64) (out *model.Transaction, err error) {
	now := self.store.Now()
	res := self.store.DB().WithContext(ctx).
		Model(&model.Transaction{}).
		Where("id = ? AND state = ?", row.ID, model.SettlementStatePending).
		Updates(map[string]interface{}{
			"state":           model.SettlementStateSubmitted,
			"blockchain_hash": hash,
			"attempts":        gorm.Expr("attempts + ?", attempts),
			"last_error":      "",
			"submitted_at":    now,
			"updated_at":      now,
		})
	if res.Error != nil {
		self.monitor.GetReport().Settlement.Errors.DbUpdate.Inc()
		self.log.WithError(res.Error).WithField("id", row.ID).WithField("hash", hash).Error("Failed to mark transaction as submitted")
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		self.log.WithField("id", row.ID).Warn("Transaction left PENDING before submission was recorded")
	} else {
		self.monitor.GetReport().Settlement.State.Submitted.Inc()
		self.log.WithField("id", row.ID).WithField("hash", hash).Info("Transaction submitted")
	}

	return self.store.GetTransaction(ctx, row.ID)
}

func (self *Coordinator) recordAttempts(ctx context.Context, row *model.Transaction, attempts uint64, message string) error {
	return self.store.DB().WithContext(ctx).
		Model(&model.Transaction{}).
		Where("id = ? AND state = ?", row.ID, model.SettlementStatePending).
		Updates(map[string]interface{}{
			"attempts":   gorm.Expr("attempts + ?", attempts),
			"last_error": message,
			"updated_at": self.store.Now(),
		}).
		Error
}

// Reads the chain status of a SUBMITTED attempt once and applies a terminal outcome
func (self *Coordinator) Poll(ctx context.Context, id uint64) (out *model.Transaction, err error) {
	row, err := self.store.GetTransaction(ctx, id)
	if err != nil {
		return
	}

	if row.State != model.SettlementStateSubmitted || row.BlockchainHash == nil {
		return row, nil
	}

	self.monitor.GetReport().Settlement.State.Polled.Inc()

	status, err := self.backend.Status(ctx, *row.BlockchainHash)
	if aptos.IsNotFound(err, aptos.ErrorCodeTransactionNotFound) {
		if !self.isExpired(row) {
			// Not indexed yet
			return row, nil
		}
		self.monitor.GetReport().Settlement.Errors.Expired.Inc()
		self.log.WithField("id", id).WithField("hash", *row.BlockchainHash).Warn("Transaction expired without being committed")
		return self.fail(context.WithoutCancel(ctx), row, model.SettlementStateSubmitted, &failure{
			message: "transaction expired without being committed",
		})
	}
	if err != nil {
		self.monitor.GetReport().Settlement.Errors.PollFailed.Inc()
		return row, err
	}

	if status.Pending {
		return row, nil
	}

	dbCtx := context.WithoutCancel(ctx)

	if status.Success {
		return self.confirm(dbCtx, row, status)
	}

	self.log.WithField("id", id).WithField("vm_status", status.VmStatus).Warn("Transaction failed on chain")
	return self.fail(dbCtx, row, model.SettlementStateSubmitted, &failure{
		message: status.VmStatus,
		status:  status,
	})
}

// Chain drops a transaction it didn't commit before its expiration timestamp
func (self *Coordinator) isExpired(row *model.Transaction) bool {
	since := row.UpdatedAt
	if row.SubmittedAt != nil {
		since = *row.SubmittedAt
	}
	deadline := since.Add(self.config.Chain.TxExpiration + self.config.Settlement.ExpirationMargin)
	return self.store.Now().After(deadline)
}

// Polls until the attempt is terminal. Cancelling ctx stops waiting and leaves the attempt as it is.
func (self *Coordinator) Wait(ctx context.Context, id uint64) (out *model.Transaction, err error) {
	waitCtx, cancel := onecontext.Merge(ctx, self.ctx)
	defer cancel()

	err = task.NewRetry().
		WithContext(waitCtx).
		WithInitialInterval(self.config.Settlement.PollInterval).
		WithMaxInterval(self.config.Settlement.PollMaxInterval).
		WithOnError(func(err error) error {
			if errors.Is(err, errNotTerminal) || aptos.IsTransient(err) {
				return err
			}
			return backoff.Permanent(err)
		}).
		Run(func() (err error) {
			out, err = self.Poll(waitCtx, id)
			if err != nil {
				return
			}
			if !out.State.IsTerminal() {
				return errNotTerminal
			}
			return nil
		})
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, err
	}
	return
}

// Chain status of any transaction, whether settled here or not
func (self *Coordinator) Status(ctx context.Context, hash string) (out *aptos.TransactionStatus, err error) {
	out, err = self.backend.Status(ctx, hash)
	if aptos.IsNotFound(err, "") {
		return nil, errs.NotFound("transaction %s", hash)
	}
	if err != nil {
		return nil, errs.Wrap(errs.ErrQuery, err, "failed to get status of %s", hash)
	}
	return
}

func (self *Coordinator) notify(row *model.Transaction) {
	if self.output == nil {
		return
	}
	select {
	case self.output <- NewNotification(row):
		self.monitor.GetReport().Notification.State.Emitted.Inc()
	default:
		self.monitor.GetReport().Notification.Errors.Dropped.Inc()
		self.log.WithField("id", row.ID).Warn("Notification channel full, dropping notification")
	}
}

// Human readable reason reported by the chain, if any
func chainMessage(err error) string {
	var e *aptos.Error
	if errors.As(err, &e) && e.Message != "" {
		return e.Message
	}
	return err.Error()
}
