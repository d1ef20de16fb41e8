package settlement

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/warp-contracts/licensing/src/ledger"
	"github.com/warp-contracts/licensing/src/utils/aptos"
	"github.com/warp-contracts/licensing/src/utils/aptos/simulator"
	"github.com/warp-contracts/licensing/src/utils/config"
	"github.com/warp-contracts/licensing/src/utils/errs"
	"github.com/warp-contracts/licensing/src/utils/model"
	monitor_licensing "github.com/warp-contracts/licensing/src/utils/monitoring/licensing"
	"github.com/warp-contracts/licensing/src/utils/payload"
	"github.com/warp-contracts/licensing/src/utils/signer"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"go.uber.org/goleak"
	"gorm.io/gorm"
)

func TestCoordinatorTestSuite(t *testing.T) {
	suite.Run(t, new(CoordinatorTestSuite))
}

type CoordinatorTestSuite struct {
	suite.Suite
	ctx         context.Context
	config      *config.Config
	db          *gorm.DB
	store       *ledger.Store
	keystore    *signer.Keystore
	simulator   *simulator.Simulator
	monitor     *monitor_licensing.Monitor
	output      chan *Notification
	coordinator *Coordinator

	clock   time.Time
	owner   *signer.Account
	buyer   *signer.Account
	dataset *model.Dataset
}

func (s *CoordinatorTestSuite) SetupTest() {
	s.ctx = context.Background()
	s.config = config.Default()
	s.config.Signer.KeysetPath = ""
	s.config.Settlement.MaxAttempts = 3
	s.config.Settlement.InitialInterval = time.Millisecond
	s.config.Settlement.MaxInterval = 5 * time.Millisecond
	s.config.Settlement.PollInterval = time.Millisecond
	s.config.Settlement.PollMaxInterval = 5 * time.Millisecond
	s.config.Settlement.StalePendingAge = time.Minute

	var err error
	s.db, err = model.NewConnection(s.ctx, s.config, "test")
	require.Nil(s.T(), err)

	s.store = ledger.NewStore(s.db).WithClock(func() time.Time {
		if !s.clock.IsZero() {
			return s.clock
		}
		return time.Now()
	})

	s.keystore, err = signer.NewKeystore(s.config)
	require.Nil(s.T(), err)
	s.owner, err = s.keystore.Create()
	require.Nil(s.T(), err)
	s.buyer, err = s.keystore.Create()
	require.Nil(s.T(), err)

	s.simulator = simulator.NewSimulator(s.config).WithSigner(s.keystore)
	s.monitor = monitor_licensing.NewMonitor()
	s.output = make(chan *Notification, 16)

	s.coordinator = NewCoordinator(s.config).
		WithStore(s.store).
		WithBackend(s.simulator).
		WithMonitor(s.monitor).
		WithOutput(s.output)

	s.dataset, err = s.store.CreateDataset(s.ctx, &ledger.NewDataset{
		Title:         "Weather",
		Category:      "Climate",
		FileHash:      "abc123",
		IpfsUri:       "ipfs://x",
		PriceApt:      decimal.RequireFromString("1.5"),
		PerQueryPrice: decimal.RequireFromString("0.001"),
		OwnerWallet:   s.owner.Address,
	})
	require.Nil(s.T(), err)
}

func (s *CoordinatorTestSuite) TearDownTest() {
	s.simulator.Close()
	db, err := s.db.DB()
	require.Nil(s.T(), err)
	require.Nil(s.T(), db.Close())
}

func (s *CoordinatorTestSuite) stage(req *Request) *Staged {
	var staged *Staged
	err := s.store.Transaction(s.ctx, func(tx *gorm.DB) (err error) {
		staged, err = s.coordinator.Stage(tx, req)
		return
	})
	require.Nil(s.T(), err)
	return staged
}

func (s *CoordinatorTestSuite) mintRequest() *Request {
	return &Request{
		Type:    model.TransactionTypeMint,
		From:    s.owner.Address,
		Payload: payload.MintDataset(s.dataset.ID, s.dataset.FileHash, s.dataset.IpfsUri),
	}
}

// Stages a purchase the way the license manager does
func (s *CoordinatorTestSuite) stagePurchase() (*model.Transaction, *model.License) {
	var (
		staged  *Staged
		license *model.License
	)
	err := s.store.Transaction(s.ctx, func(tx *gorm.DB) (err error) {
		user, err := ledger.UpsertUser(tx, s.buyer.Address, s.store.Now())
		if err != nil {
			return
		}
		staged, err = s.coordinator.Stage(tx, &Request{
			Type:    model.TransactionTypePurchase,
			From:    s.buyer.Address,
			To:      s.owner.Address,
			Amount:  s.dataset.PriceApt,
			Payload: payload.PayForLicense(s.owner.Address, s.dataset.ID),
		})
		if err != nil {
			return
		}
		license = &model.License{
			UserID:        user.ID,
			DatasetID:     s.dataset.ID,
			LicenseType:   model.LicenseTypePerpetual,
			TransactionID: staged.Transaction.ID,
			PricePaid:     s.dataset.PriceApt,
			PurchasedAt:   s.store.Now(),
		}
		err = tx.Create(license).Error
		if err != nil {
			return
		}
		return tx.Model(&model.Dataset{}).
			Where("id = ?", s.dataset.ID).
			Update("downloads", gorm.Expr("downloads + 1")).
			Error
	})
	require.Nil(s.T(), err)
	return staged.Transaction, license
}

func (s *CoordinatorTestSuite) TestMintConfirmed() {
	staged, err := s.coordinator.MintDataset(s.ctx, s.dataset.ID)
	require.Nil(s.T(), err)
	require.False(s.T(), staged.Duplicate)
	require.Equal(s.T(), model.SettlementStateSubmitted, staged.Transaction.State)
	require.NotNil(s.T(), staged.Transaction.BlockchainHash)
	require.Equal(s.T(), uint64(1), staged.Transaction.Attempts)

	// Content hash is only the idempotency key, the chain assigns the id
	hash := *staged.Transaction.BlockchainHash
	require.NotEqual(s.T(), "abc123", hash)

	tx, err := s.coordinator.Wait(s.ctx, staged.Transaction.ID)
	require.Nil(s.T(), err)
	require.Equal(s.T(), model.SettlementStateConfirmed, tx.State)
	require.Equal(s.T(), model.TransactionStatusSuccess, tx.Status)
	require.Equal(s.T(), simulator.VmStatusSuccess, tx.VmStatus)

	dataset, err := s.store.GetDataset(s.ctx, s.dataset.ID)
	require.Nil(s.T(), err)
	require.True(s.T(), dataset.NftMinted)
	require.NotNil(s.T(), dataset.BlockchainTx)
	require.Equal(s.T(), hash, *dataset.BlockchainTx)

	notification := <-s.output
	require.Equal(s.T(), tx.ID, notification.TransactionId)
	require.Equal(s.T(), model.SettlementStateConfirmed, notification.State)
	require.Equal(s.T(), hash, notification.BlockchainHash)

	require.Equal(s.T(), uint64(1), s.monitor.GetReport().Settlement.State.Confirmed.Load())
	require.Equal(s.T(), uint64(1), s.monitor.GetReport().Notification.State.Emitted.Load())
}

func (s *CoordinatorTestSuite) TestMintTwiceIsDuplicate() {
	first, err := s.coordinator.MintDataset(s.ctx, s.dataset.ID)
	require.Nil(s.T(), err)
	_, err = s.coordinator.Wait(s.ctx, first.Transaction.ID)
	require.Nil(s.T(), err)

	second, err := s.coordinator.MintDataset(s.ctx, s.dataset.ID)
	require.Nil(s.T(), err)
	require.True(s.T(), second.Duplicate)
	require.Equal(s.T(), first.Transaction.ID, second.Transaction.ID)
	require.Equal(s.T(), 1, s.simulator.Submissions())
}

func (s *CoordinatorTestSuite) TestMintOfMintedDataset() {
	_, err := s.store.MarkMinted(s.ctx, s.dataset.ID, "0xfeed")
	require.Nil(s.T(), err)

	_, err = s.coordinator.MintDataset(s.ctx, s.dataset.ID)
	require.ErrorIs(s.T(), err, errs.ErrConflict)

	var count int64
	require.Nil(s.T(), s.db.Model(&model.Transaction{}).Count(&count).Error)
	require.Zero(s.T(), count)
	require.Zero(s.T(), s.simulator.Submissions())
}

func (s *CoordinatorTestSuite) TestMintUnknownDataset() {
	_, err := s.coordinator.MintDataset(s.ctx, 999)
	require.ErrorIs(s.T(), err, errs.ErrNotFound)
}

func (s *CoordinatorTestSuite) TestStageInFlightDuplicate() {
	first := s.stage(s.mintRequest())
	require.False(s.T(), first.Duplicate)
	require.Equal(s.T(), model.SettlementStatePending, first.Transaction.State)
	require.Equal(s.T(), model.TransactionStatusPending, first.Transaction.Status)

	second := s.stage(s.mintRequest())
	require.True(s.T(), second.Duplicate)
	require.Equal(s.T(), first.Transaction.ID, second.Transaction.ID)
	require.Equal(s.T(), uint64(1), s.monitor.GetReport().Settlement.State.Duplicates.Load())
}

func (s *CoordinatorTestSuite) TestStageValidation() {
	err := s.store.Transaction(s.ctx, func(tx *gorm.DB) (err error) {
		_, err = s.coordinator.Stage(tx, &Request{
			Type:    model.TransactionTypeMint,
			From:    "not-an-address",
			Payload: payload.MintDataset(s.dataset.ID, "abc123", "ipfs://x"),
		})
		return
	})
	require.ErrorIs(s.T(), err, errs.ErrValidation)
}

func (s *CoordinatorTestSuite) TestTransientFailuresAreRetried() {
	s.simulator.FailSubmissions(2, &aptos.Error{StatusCode: http.StatusServiceUnavailable, Message: "overloaded"})

	staged := s.stage(s.mintRequest())
	tx, err := s.coordinator.Submit(s.ctx, staged.Transaction.ID)
	require.Nil(s.T(), err)
	require.Equal(s.T(), model.SettlementStateSubmitted, tx.State)
	require.Equal(s.T(), uint64(3), tx.Attempts)
	require.Equal(s.T(), 3, s.simulator.Submissions())
	require.Equal(s.T(), uint64(2), s.monitor.GetReport().Settlement.Errors.SubmitRetries.Load())
}

func (s *CoordinatorTestSuite) TestRejectionIsNotRetried() {
	s.simulator.FailSubmissions(5, &aptos.Error{StatusCode: http.StatusBadRequest, ErrorCode: "invalid_input", Message: "invalid payload"})

	staged := s.stage(s.mintRequest())
	tx, err := s.coordinator.Submit(s.ctx, staged.Transaction.ID)
	require.ErrorIs(s.T(), err, errs.ErrSettlement)
	require.Equal(s.T(), model.SettlementStateFailed, tx.State)
	require.Equal(s.T(), model.TransactionStatusFailed, tx.Status)
	require.Equal(s.T(), "invalid payload", tx.LastError)
	require.Nil(s.T(), tx.BlockchainHash)
	require.Equal(s.T(), 1, s.simulator.Submissions())

	// Failed attempt is final
	_, err = s.coordinator.Submit(s.ctx, staged.Transaction.ID)
	require.ErrorIs(s.T(), err, errs.ErrSettlement)
	require.Equal(s.T(), 1, s.simulator.Submissions())
}

func (s *CoordinatorTestSuite) TestExhaustedRetriesRollBackPurchase() {
	s.simulator.FailSubmissions(10, &aptos.Error{StatusCode: http.StatusTooManyRequests, Message: "rate limited"})

	row, license := s.stagePurchase()
	tx, err := s.coordinator.Submit(s.ctx, row.ID)
	require.ErrorIs(s.T(), err, errs.ErrSettlement)
	require.Equal(s.T(), model.SettlementStateFailed, tx.State)
	require.Equal(s.T(), uint64(3), tx.Attempts)
	require.Equal(s.T(), 3, s.simulator.Submissions())

	_, err = s.store.GetLicense(s.ctx, license.ID)
	require.ErrorIs(s.T(), err, errs.ErrNotFound)

	dataset, err := s.store.GetDataset(s.ctx, s.dataset.ID)
	require.Nil(s.T(), err)
	require.Equal(s.T(), int64(0), dataset.Downloads)
	require.Equal(s.T(), uint64(1), s.monitor.GetReport().Settlement.Errors.SubmitExhausted.Load())
}

func (s *CoordinatorTestSuite) TestChainFailureRollsBackPurchase() {
	s.simulator.WithExecutor(func(sender string, p *payload.Payload) string {
		if p.Function == payload.FunctionPayForLicense {
			return "Move abort in 0x1::coin: EINSUFFICIENT_BALANCE(0x10006)"
		}
		return ""
	})

	row, license := s.stagePurchase()
	tx, err := s.coordinator.Submit(s.ctx, row.ID)
	require.Nil(s.T(), err)
	require.Equal(s.T(), model.SettlementStateSubmitted, tx.State)

	tx, err = s.coordinator.Wait(s.ctx, row.ID)
	require.Nil(s.T(), err)
	require.Equal(s.T(), model.SettlementStateFailed, tx.State)
	require.Equal(s.T(), "Move abort in 0x1::coin: EINSUFFICIENT_BALANCE(0x10006)", tx.LastError)
	require.Equal(s.T(), tx.LastError, tx.VmStatus)

	_, err = s.store.GetLicense(s.ctx, license.ID)
	require.ErrorIs(s.T(), err, errs.ErrNotFound)

	dataset, err := s.store.GetDataset(s.ctx, s.dataset.ID)
	require.Nil(s.T(), err)
	require.Equal(s.T(), int64(0), dataset.Downloads)
	require.Equal(s.T(), uint64(1), s.monitor.GetReport().License.State.Voided.Load())

	// Terminal transitions happen once
	tx, err = s.coordinator.Poll(s.ctx, row.ID)
	require.Nil(s.T(), err)
	require.Equal(s.T(), model.SettlementStateFailed, tx.State)
	require.Equal(s.T(), uint64(1), s.monitor.GetReport().Settlement.State.Failed.Load())
}

func (s *CoordinatorTestSuite) TestConfirmedPurchaseSetsLicenseHash() {
	row, license := s.stagePurchase()
	_, err := s.coordinator.Submit(s.ctx, row.ID)
	require.Nil(s.T(), err)

	tx, err := s.coordinator.Wait(s.ctx, row.ID)
	require.Nil(s.T(), err)
	require.Equal(s.T(), model.SettlementStateConfirmed, tx.State)

	stored, err := s.store.GetLicense(s.ctx, license.ID)
	require.Nil(s.T(), err)
	require.NotNil(s.T(), stored.TransactionHash)
	require.Equal(s.T(), *tx.BlockchainHash, *stored.TransactionHash)
}

func (s *CoordinatorTestSuite) TestUnknownSignerIsRejected() {
	stranger := "0x5555555555555555555555555555555555555555555555555555555555555555"
	staged := s.stage(&Request{
		Type:    model.TransactionTypeMint,
		From:    stranger,
		Payload: payload.MintDataset(s.dataset.ID, s.dataset.FileHash, s.dataset.IpfsUri),
	})

	tx, err := s.coordinator.Submit(s.ctx, staged.Transaction.ID)
	require.ErrorIs(s.T(), err, errs.ErrSettlement)
	require.ErrorIs(s.T(), err, signer.ErrUnknownSigner)
	require.Equal(s.T(), model.SettlementStateFailed, tx.State)
}

func (s *CoordinatorTestSuite) TestWaitCancellationLeavesSubmitted() {
	defer goleak.VerifyNone(s.T(), goleak.IgnoreCurrent())

	s.simulator.WithPendingReads(1 << 20)

	staged, err := s.coordinator.MintDataset(s.ctx, s.dataset.ID)
	require.Nil(s.T(), err)

	ctx, cancel := context.WithTimeout(s.ctx, 30*time.Millisecond)
	defer cancel()

	_, err = s.coordinator.Wait(ctx, staged.Transaction.ID)
	require.True(s.T(), errors.Is(err, context.DeadlineExceeded))

	tx, err := s.store.GetTransaction(s.ctx, staged.Transaction.ID)
	require.Nil(s.T(), err)
	require.Equal(s.T(), model.SettlementStateSubmitted, tx.State)

	dataset, err := s.store.GetDataset(s.ctx, s.dataset.ID)
	require.Nil(s.T(), err)
	require.False(s.T(), dataset.NftMinted)
}

func (s *CoordinatorTestSuite) TestPollUnknownHashIsPending() {
	staged := s.stage(s.mintRequest())
	hash := "0x00000000000000000000000000000000000000000000000000000000000000aa"
	require.Nil(s.T(), s.db.Model(&model.Transaction{}).
		Where("id = ?", staged.Transaction.ID).
		Updates(map[string]interface{}{"state": model.SettlementStateSubmitted, "blockchain_hash": hash}).
		Error)

	tx, err := s.coordinator.Poll(s.ctx, staged.Transaction.ID)
	require.Nil(s.T(), err)
	require.Equal(s.T(), model.SettlementStateSubmitted, tx.State)
}

func (s *CoordinatorTestSuite) TestPollExpiredTransactionRollsBackPurchase() {
	row, license := s.stagePurchase()
	submittedAt := time.Now()
	hash := "0x00000000000000000000000000000000000000000000000000000000000000aa"
	require.Nil(s.T(), s.db.Model(&model.Transaction{}).
		Where("id = ?", row.ID).
		Updates(map[string]interface{}{"state": model.SettlementStateSubmitted, "blockchain_hash": hash, "submitted_at": submittedAt}).
		Error)

	// Still within the expiration window
	s.clock = submittedAt.Add(s.config.Chain.TxExpiration)
	tx, err := s.coordinator.Poll(s.ctx, row.ID)
	require.Nil(s.T(), err)
	require.Equal(s.T(), model.SettlementStateSubmitted, tx.State)

	s.clock = submittedAt.Add(s.config.Chain.TxExpiration + s.config.Settlement.ExpirationMargin + time.Second)
	tx, err = s.coordinator.Poll(s.ctx, row.ID)
	require.Nil(s.T(), err)
	require.Equal(s.T(), model.SettlementStateFailed, tx.State)
	require.Equal(s.T(), model.TransactionStatusFailed, tx.Status)
	require.Equal(s.T(), "transaction expired without being committed", tx.LastError)

	_, err = s.store.GetLicense(s.ctx, license.ID)
	require.ErrorIs(s.T(), err, errs.ErrNotFound)

	dataset, err := s.store.GetDataset(s.ctx, s.dataset.ID)
	require.Nil(s.T(), err)
	require.Equal(s.T(), int64(0), dataset.Downloads)
	require.Equal(s.T(), uint64(1), s.monitor.GetReport().Settlement.Errors.Expired.Load())
	require.Equal(s.T(), uint64(1), s.monitor.GetReport().License.State.Voided.Load())
}

func (s *CoordinatorTestSuite) TestLostResponseIsResentNotResigned() {
	var payments int
	s.simulator.WithExecutor(func(sender string, p *payload.Payload) string {
		if p.Function == payload.FunctionPayForLicense {
			payments++
		}
		return ""
	})
	s.simulator.LoseResponses(1)

	row, license := s.stagePurchase()
	tx, err := s.coordinator.Submit(s.ctx, row.ID)
	require.Nil(s.T(), err)
	require.Equal(s.T(), model.SettlementStateSubmitted, tx.State)
	require.Equal(s.T(), uint64(2), tx.Attempts)
	require.Equal(s.T(), 2, s.simulator.Submissions())
	require.Equal(s.T(), 1, payments)

	// One sequence number used
	account, err := s.simulator.GetAccount(s.ctx, s.buyer.Address)
	require.Nil(s.T(), err)
	require.Equal(s.T(), uint64(1), account.SequenceNumber.Uint64())

	tx, err = s.coordinator.Wait(s.ctx, row.ID)
	require.Nil(s.T(), err)
	require.Equal(s.T(), model.SettlementStateConfirmed, tx.State)

	stored, err := s.store.GetLicense(s.ctx, license.ID)
	require.Nil(s.T(), err)
	require.Equal(s.T(), *tx.BlockchainHash, *stored.TransactionHash)
}

func (s *CoordinatorTestSuite) TestUnansweredSubmissionIsTrackedUntilExpiry() {
	s.simulator.FailSubmissions(10, fmt.Errorf("%w: i/o timeout", aptos.ErrTransient))

	row, license := s.stagePurchase()
	tx, err := s.coordinator.Submit(s.ctx, row.ID)
	require.Nil(s.T(), err)
	require.Equal(s.T(), model.SettlementStateSubmitted, tx.State)
	require.NotNil(s.T(), tx.BlockchainHash)
	require.NotNil(s.T(), tx.SubmittedAt)
	require.Equal(s.T(), uint64(3), tx.Attempts)
	require.Equal(s.T(), 3, s.simulator.Submissions())

	// Never reached the chain
	tx, err = s.coordinator.Poll(s.ctx, row.ID)
	require.Nil(s.T(), err)
	require.Equal(s.T(), model.SettlementStateSubmitted, tx.State)

	s.clock = tx.SubmittedAt.Add(s.config.Chain.TxExpiration + s.config.Settlement.ExpirationMargin + time.Second)
	tx, err = s.coordinator.Poll(s.ctx, row.ID)
	require.Nil(s.T(), err)
	require.Equal(s.T(), model.SettlementStateFailed, tx.State)

	_, err = s.store.GetLicense(s.ctx, license.ID)
	require.ErrorIs(s.T(), err, errs.ErrNotFound)
}

func (s *CoordinatorTestSuite) TestCancelledBeforeSendStaysPending() {
	staged := s.stage(s.mintRequest())

	ctx, cancel := context.WithCancel(s.ctx)
	cancel()

	_, err := s.coordinator.Submit(ctx, staged.Transaction.ID)
	require.ErrorIs(s.T(), err, context.Canceled)

	tx, err := s.store.GetTransaction(s.ctx, staged.Transaction.ID)
	require.Nil(s.T(), err)
	require.Equal(s.T(), model.SettlementStatePending, tx.State)
	require.Nil(s.T(), tx.BlockchainHash)
	require.Zero(s.T(), s.simulator.Submissions())
}

func (s *CoordinatorTestSuite) TestStatus() {
	staged, err := s.coordinator.MintDataset(s.ctx, s.dataset.ID)
	require.Nil(s.T(), err)
	require.NotNil(s.T(), staged.Transaction.BlockchainHash)
	hash := *staged.Transaction.BlockchainHash

	status, err := s.coordinator.Status(s.ctx, hash)
	require.Nil(s.T(), err)
	require.Equal(s.T(), hash, status.Hash)
	require.True(s.T(), status.Success)

	_, err = s.coordinator.Status(s.ctx, "0x00000000000000000000000000000000000000000000000000000000000000aa")
	require.ErrorIs(s.T(), err, errs.ErrNotFound)
}

func (s *CoordinatorTestSuite) TestSetPrice() {
	staged, err := s.coordinator.SetPrice(s.ctx, s.dataset.ID, decimal.RequireFromString("2.5"), decimal.RequireFromString("0.01"))
	require.Nil(s.T(), err)

	price, err := staged.Transaction.Payload.Uint64(payload.ArgBasePrice)
	require.Nil(s.T(), err)
	require.Equal(s.T(), uint64(250_000_000), price)

	// Prices change once confirmed
	dataset, err := s.store.GetDataset(s.ctx, s.dataset.ID)
	require.Nil(s.T(), err)
	require.True(s.T(), decimal.RequireFromString("1.5").Equal(dataset.PriceApt))

	_, err = s.coordinator.Wait(s.ctx, staged.Transaction.ID)
	require.Nil(s.T(), err)

	dataset, err = s.store.GetDataset(s.ctx, s.dataset.ID)
	require.Nil(s.T(), err)
	require.True(s.T(), decimal.RequireFromString("2.5").Equal(dataset.PriceApt))
	require.True(s.T(), decimal.RequireFromString("0.01").Equal(dataset.PerQueryPrice))
}

func (s *CoordinatorTestSuite) TestSetPricePrecision() {
	_, err := s.coordinator.SetPrice(s.ctx, s.dataset.ID, decimal.RequireFromString("0.000000001"), decimal.Zero)
	require.ErrorIs(s.T(), err, errs.ErrPrecision)
	require.Zero(s.T(), s.simulator.Submissions())
}

func (s *CoordinatorTestSuite) TestSetRoyalty() {
	contributors := []string{s.owner.Address, s.buyer.Address}

	staged, err := s.coordinator.SetRoyalty(s.ctx, s.dataset.ID, contributors, 10, []uint64{7000, 3000})
	require.Nil(s.T(), err)
	_, err = s.coordinator.Wait(s.ctx, staged.Transaction.ID)
	require.Nil(s.T(), err)

	royalty, err := s.store.GetRoyaltyConfig(s.ctx, s.dataset.ID)
	require.Nil(s.T(), err)
	require.Equal(s.T(), uint64(10), royalty.SharePercentage)
	require.Equal(s.T(), []uint64{7000, 3000}, royalty.Splits)
	require.Len(s.T(), royalty.Contributors, 2)

	// Reconfiguration replaces the config, split left unspecified
	staged, err = s.coordinator.SetRoyalty(s.ctx, s.dataset.ID, contributors, 20, nil)
	require.Nil(s.T(), err)
	require.False(s.T(), staged.Duplicate)
	_, err = s.coordinator.Wait(s.ctx, staged.Transaction.ID)
	require.Nil(s.T(), err)

	royalty, err = s.store.GetRoyaltyConfig(s.ctx, s.dataset.ID)
	require.Nil(s.T(), err)
	require.Equal(s.T(), uint64(20), royalty.SharePercentage)
	require.Nil(s.T(), royalty.Splits)
	require.Equal(s.T(), staged.Transaction.ID, royalty.TransactionID)
}

func (s *CoordinatorTestSuite) TestSetRoyaltyValidation() {
	_, err := s.coordinator.SetRoyalty(s.ctx, s.dataset.ID, []string{s.owner.Address, s.owner.Address}, 10, nil)
	require.ErrorIs(s.T(), err, errs.ErrValidation)

	_, err = s.coordinator.SetRoyalty(s.ctx, s.dataset.ID, []string{s.owner.Address}, 0, nil)
	require.ErrorIs(s.T(), err, errs.ErrValidation)

	_, err = s.coordinator.SetRoyalty(s.ctx, s.dataset.ID, []string{s.owner.Address, s.buyer.Address}, 10, []uint64{5000, 4000})
	require.ErrorIs(s.T(), err, errs.ErrValidation)

	require.Zero(s.T(), s.simulator.Submissions())
}

func (s *CoordinatorTestSuite) TestReconcile() {
	// Submitted, never waited for
	submitted, err := s.coordinator.MintDataset(s.ctx, s.dataset.ID)
	require.Nil(s.T(), err)

	// Stuck in PENDING, e.g. after a crash
	s.clock = time.Now().Add(-time.Hour)
	stale := s.stage(&Request{
		Type:    model.TransactionTypePrice,
		From:    s.owner.Address,
		Payload: payload.SetPrice(s.dataset.ID, 300_000_000, 0),
	})
	s.clock = time.Time{}

	// Fresh PENDING rows belong to their callers
	fresh := s.stage(&Request{
		Type:    model.TransactionTypeRoyalty,
		From:    s.owner.Address,
		Payload: payload.SetRoyalty(s.dataset.ID, []string{s.owner.Address}, 5),
	})

	reconciler := NewReconciler(s.config).
		WithStore(s.store).
		WithCoordinator(s.coordinator).
		WithMonitor(s.monitor)

	n, err := reconciler.Reconcile(s.ctx)
	require.Nil(s.T(), err)
	require.Equal(s.T(), 2, n)

	tx, err := s.store.GetTransaction(s.ctx, submitted.Transaction.ID)
	require.Nil(s.T(), err)
	require.Equal(s.T(), model.SettlementStateConfirmed, tx.State)

	tx, err = s.store.GetTransaction(s.ctx, stale.Transaction.ID)
	require.Nil(s.T(), err)
	require.Equal(s.T(), model.SettlementStateSubmitted, tx.State)

	n, err = reconciler.RunOnce(s.ctx)
	require.Nil(s.T(), err)
	require.Equal(s.T(), 1, n)

	tx, err = s.store.GetTransaction(s.ctx, stale.Transaction.ID)
	require.Nil(s.T(), err)
	require.Equal(s.T(), model.SettlementStateConfirmed, tx.State)

	tx, err = s.store.GetTransaction(s.ctx, fresh.Transaction.ID)
	require.Nil(s.T(), err)
	require.Equal(s.T(), model.SettlementStatePending, tx.State)

	require.Equal(s.T(), uint64(2), s.monitor.GetReport().Settlement.State.ReconcilerRuns.Load())
}

func (s *CoordinatorTestSuite) TestReconcilerTask() {
	s.config.Settlement.ReconcilerInterval = 5 * time.Millisecond

	staged, err := s.coordinator.MintDataset(s.ctx, s.dataset.ID)
	require.Nil(s.T(), err)

	reconciler := NewReconciler(s.config).
		WithStore(s.store).
		WithCoordinator(s.coordinator).
		WithMonitor(s.monitor)
	require.Nil(s.T(), reconciler.Start())
	defer reconciler.StopWait()

	require.Eventually(s.T(), func() bool {
		tx, err := s.store.GetTransaction(s.ctx, staged.Transaction.ID)
		return err == nil && tx.State == model.SettlementStateConfirmed
	}, 2*time.Second, 5*time.Millisecond)
}
