// Package controller wires the licensing service together
package controller

import (
	"github.com/warp-contracts/licensing/src/api"
	"github.com/warp-contracts/licensing/src/settlement"
	"github.com/warp-contracts/licensing/src/utils/config"
	"github.com/warp-contracts/licensing/src/utils/publisher"
	"github.com/warp-contracts/licensing/src/utils/task"
)

type Controller struct {
	*task.Task

	components *Components
}

// Main class that orchestrates the service.
// Serves the REST API, reconciles settlements in the background and optionally publishes their outcomes to Redis.
func NewController(config *config.Config) (self *Controller, err error) {
	self = new(Controller)

	self.Task = task.NewTask(config, "controller")

	var notifications chan *settlement.Notification
	if config.Redis.Enabled {
		notifications = make(chan *settlement.Notification, 100)
	}

	self.components, err = NewComponents(self.Ctx, config, notifications)
	if err != nil {
		return
	}

	server := api.NewServer(config).
		WithMonitor(self.components.Monitor).
		WithStore(self.components.Store).
		WithCoordinator(self.components.Coordinator).
		WithLicenseManager(self.components.Licenses).
		WithBalance(self.components.Balance).
		WithRoutes()

	self.Task = self.Task.
		WithSubtask(self.components.Monitor.Task).
		WithSubtask(self.components.Reconciler.Task).
		WithSubtask(server.Task).
		WithOnAfterStop(self.components.Close)

	if config.Redis.Enabled {
		redisPublisher := publisher.NewRedisPublisher[*settlement.Notification](config, "redis-publisher").
			WithInputChannel(notifications).
			WithMonitor(self.components.Monitor)

		self.Task = self.Task.WithSubtask(redisPublisher.Task)
	}

	return
}
