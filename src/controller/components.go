package controller

import (
	"context"
	"fmt"

	"github.com/warp-contracts/licensing/src/balance"
	"github.com/warp-contracts/licensing/src/ledger"
	"github.com/warp-contracts/licensing/src/license"
	"github.com/warp-contracts/licensing/src/settlement"
	"github.com/warp-contracts/licensing/src/utils/aptos"
	"github.com/warp-contracts/licensing/src/utils/aptos/simulator"
	"github.com/warp-contracts/licensing/src/utils/config"
	"github.com/warp-contracts/licensing/src/utils/logger"
	"github.com/warp-contracts/licensing/src/utils/model"
	monitor_licensing "github.com/warp-contracts/licensing/src/utils/monitoring/licensing"
	"github.com/warp-contracts/licensing/src/utils/signer"

	"gorm.io/gorm"
)

// Chain backend used for settlement and account queries
type Chain interface {
	settlement.Backend
	balance.Chain
}

// Wired components shared by the server and one-off commands
type Components struct {
	DB          *gorm.DB
	Store       *ledger.Store
	Keystore    *signer.Keystore
	Chain       Chain
	Monitor     *monitor_licensing.Monitor
	Coordinator *settlement.Coordinator
	Reconciler  *settlement.Reconciler
	Licenses    *license.Manager
	Balance     *balance.Query
}

func NewChain(conf *config.Config, keystore *signer.Keystore) (Chain, error) {
	switch conf.Chain.Backend {
	case config.ChainBackendLive:
		client := aptos.NewClient(conf)
		return aptos.NewBackend(conf).
			WithClient(client).
			WithSigner(keystore), nil
	case config.ChainBackendSimulated:
		logger.NewSublogger("controller").Warn("Using simulated chain, nothing is settled on a real network")
		return simulator.NewSimulator(conf).
			WithSigner(keystore), nil
	}
	return nil, fmt.Errorf("unsupported chain backend: %s", conf.Chain.Backend)
}

// Connects to the database and wires every component. Notifications of terminal settlements go to output, if set.
func NewComponents(ctx context.Context, config *config.Config, output chan<- *settlement.Notification) (self *Components, err error) {
	self = new(Components)

	self.Monitor = monitor_licensing.NewMonitor()

	self.DB, err = model.NewConnection(ctx, config, "licensing")
	if err != nil {
		return
	}

	self.Store = ledger.NewStore(self.DB)

	self.Keystore, err = signer.NewKeystore(config)
	if err != nil {
		self.Close()
		return
	}

	self.Chain, err = NewChain(config, self.Keystore)
	if err != nil {
		self.Close()
		return
	}

	self.Coordinator = settlement.NewCoordinator(config).
		WithStore(self.Store).
		WithBackend(self.Chain).
		WithMonitor(self.Monitor).
		WithContext(ctx).
		WithOutput(output)

	self.Reconciler = settlement.NewReconciler(config).
		WithStore(self.Store).
		WithCoordinator(self.Coordinator).
		WithMonitor(self.Monitor)

	self.Licenses = license.NewManager(config).
		WithStore(self.Store).
		WithCoordinator(self.Coordinator).
		WithSigner(self.Keystore).
		WithMonitor(self.Monitor)

	self.Balance = balance.NewQuery(config).
		WithChain(self.Chain).
		WithKeystore(self.Keystore).
		WithMonitor(self.Monitor)

	return
}

// Closes the database connection
func (self *Components) Close() {
	if self.DB == nil {
		return
	}
	db, err := self.DB.DB()
	if err != nil {
		return
	}
	err = db.Close()
	if err != nil {
		logger.NewSublogger("controller").WithError(err).Error("Failed to close database connection")
	}
}
