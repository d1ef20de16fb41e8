// Package api exposes the licensing operations over REST
package api

import (
	"context"
	"net/http"
	"runtime"

	"github.com/warp-contracts/licensing/src/balance"
	"github.com/warp-contracts/licensing/src/ledger"
	"github.com/warp-contracts/licensing/src/license"
	"github.com/warp-contracts/licensing/src/settlement"
	"github.com/warp-contracts/licensing/src/utils/config"
	"github.com/warp-contracts/licensing/src/utils/logger"
	"github.com/warp-contracts/licensing/src/utils/monitoring"
	"github.com/warp-contracts/licensing/src/utils/task"

	"github.com/gin-contrib/pprof"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Rest API server
type Server struct {
	*task.Task

	httpServer *http.Server
	Router     *gin.Engine

	monitor     monitoring.Monitor
	store       *ledger.Store
	licenses    *license.Manager
	coordinator *settlement.Coordinator
	balance     *balance.Query
}

func NewServer(config *config.Config) (self *Server) {
	self = new(Server)

	self.Task = task.NewTask(config, "server").
		WithSubtaskFunc(self.run).
		WithOnStop(self.stop)

	if config.IsDevelopment {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	self.Router = gin.New()
	self.Router.ContextWithFallback = true
	self.Router.Use(gin.Recovery(), logger.Middleware())

	self.httpServer = &http.Server{
		Addr:    self.Config.RESTListenAddress,
		Handler: self.Router,
	}

	return
}

func (self *Server) WithMonitor(monitor monitoring.Monitor) *Server {
	self.monitor = monitor
	return self
}

func (self *Server) WithStore(store *ledger.Store) *Server {
	self.store = store
	return self
}

func (self *Server) WithLicenseManager(licenses *license.Manager) *Server {
	self.licenses = licenses
	return self
}

func (self *Server) WithCoordinator(coordinator *settlement.Coordinator) *Server {
	self.coordinator = coordinator
	return self
}

func (self *Server) WithBalance(balance *balance.Query) *Server {
	self.balance = balance
	return self
}

// Registers all routes. Call after all dependencies are set.
func (self *Server) WithRoutes() *Server {
	v1 := self.Router.Group("v1")
	{
		v1.GET("health", self.monitor.OnGetHealth)
		v1.GET("state", self.monitor.OnGetState)

		v1.GET("categories", self.onGetCategories)

		v1.GET("datasets", self.onListDatasets)
		v1.POST("datasets", self.onCreateDataset)
		v1.GET("datasets/:id", self.onGetDataset)
		v1.POST("datasets/:id/mint", self.onMintDataset)
		v1.POST("datasets/:id/minted", self.onMarkMinted)
		v1.POST("datasets/:id/price", self.onSetPrice)
		v1.POST("datasets/:id/royalty", self.onSetRoyalty)

		v1.POST("licenses/purchase", self.onPurchase)
		v1.POST("licenses/grant", self.onGrant)

		v1.GET("users/:wallet/licenses", self.onListUserLicenses)
		v1.GET("users/:wallet/datasets", self.onListUserDatasets)

		v1.POST("accounts", self.onCreateAccount)
		v1.POST("accounts/fund", self.onFund)
		v1.GET("accounts/:address", self.onGetAccount)
		v1.GET("accounts/:address/balance", self.onGetBalance)

		v1.GET("transactions/:hash", self.onGetTransactionStatus)
		v1.GET("settlements/:id", self.onGetSettlement)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		self.monitor.GetPrometheusCollector(),
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	self.Router.GET("metrics", gin.WrapH(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))

	if self.Config.Profiler.Enabled {
		runtime.SetBlockProfileRate(self.Config.Profiler.BlockProfileRate)
		runtime.SetMutexProfileFraction(self.Config.Profiler.MutexProfileFraction)
		pprof.Register(self.Router)
	}

	return self
}

func (self *Server) run() (err error) {
	self.Log.WithField("address", self.Config.RESTListenAddress).Info("Starting REST server")

	err = self.httpServer.ListenAndServe()
	if err != nil && err != http.ErrServerClosed {
		self.Log.WithError(err).Error("Failed to start REST server")
		return
	}
	return nil
}

func (self *Server) stop() {
	ctx, cancel := context.WithTimeout(context.Background(), self.Config.StopTimeout)
	defer cancel()

	err := self.httpServer.Shutdown(ctx)
	if err != nil {
		self.Log.WithError(err).Error("Failed to gracefully shutdown REST server")
		return
	}
}
