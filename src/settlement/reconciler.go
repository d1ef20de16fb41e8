package settlement

import (
	"context"
	"sync"

	"github.com/warp-contracts/licensing/src/ledger"
	"github.com/warp-contracts/licensing/src/utils/config"
	"github.com/warp-contracts/licensing/src/utils/model"
	"github.com/warp-contracts/licensing/src/utils/monitoring"
	"github.com/warp-contracts/licensing/src/utils/task"
)

// Periodically resolves settlements left SUBMITTED or stuck in PENDING,
// e.g. after a restart or a cancelled wait.
type Reconciler struct {
	*task.Task

	store       *ledger.Store
	coordinator *Coordinator
	monitor     monitoring.Monitor

	// Passes never overlap
	mtx sync.Mutex
}

func NewReconciler(config *config.Config) (self *Reconciler) {
	self = new(Reconciler)

	self.Task = task.NewTask(config, "reconciler").
		WithPeriodicSubtaskFunc(config.Settlement.ReconcilerInterval, self.run).
		WithWorkerPool(config.Settlement.WorkerPoolSize)

	return
}

func (self *Reconciler) WithStore(store *ledger.Store) *Reconciler {
	self.store = store
	return self
}

func (self *Reconciler) WithCoordinator(coordinator *Coordinator) *Reconciler {
	self.coordinator = coordinator
	return self
}

func (self *Reconciler) WithMonitor(monitor monitoring.Monitor) *Reconciler {
	self.monitor = monitor
	return self
}

func (self *Reconciler) run() error {
	n, err := self.Reconcile(self.Ctx)
	if err != nil {
		self.monitor.GetReport().Settlement.Errors.Reconciler.Inc()
		self.Log.WithError(err).Error("Reconciliation failed")
		// Retried in the next period
		return nil
	}
	if n > 0 {
		self.Log.WithField("num", n).Debug("Reconciled transactions")
	}
	return nil
}

// One pass over the unresolved settlements. Returns the number of handled transactions.
func (self *Reconciler) Reconcile(ctx context.Context) (n int, err error) {
	self.mtx.Lock()
	defer self.mtx.Unlock()

	self.monitor.GetReport().Settlement.State.ReconcilerRuns.Inc()

	stale := self.store.Now().Add(-self.Config.Settlement.StalePendingAge)

	var rows []model.Transaction
	err = self.store.DB().WithContext(ctx).
		Where("state = ? OR (state = ? AND created_at < ?)", model.SettlementStateSubmitted, model.SettlementStatePending, stale).
		Order("id").
		Limit(self.Config.Settlement.MaxTransactionsPerRun).
		Find(&rows).
		Error
	if err != nil {
		return
	}

	var wg sync.WaitGroup
	for i := range rows {
		row := rows[i]
		wg.Add(1)
		ok := self.SubmitToWorker(func() {
			defer wg.Done()

			var err error
			if row.State == model.SettlementStatePending {
				_, err = self.coordinator.Submit(ctx, row.ID)
			} else {
				_, err = self.coordinator.Poll(ctx, row.ID)
			}
			if err != nil {
				self.Log.WithError(err).WithField("id", row.ID).Debug("Transaction not resolved")
			}
		})
		if !ok {
			// Stopping
			wg.Done()
			break
		}
		n++
	}

	wg.Wait()

	self.monitor.GetReport().Settlement.State.ReconcilerTransactionsTaken.Add(uint64(n))
	return
}

// Single pass for one-off runs. Releases the workers, the reconciler can't be started afterwards.
func (self *Reconciler) RunOnce(ctx context.Context) (n int, err error) {
	defer self.Workers.StopWait()
	return self.Reconcile(ctx)
}
