package monitor_licensing

import (
	"net/http"
	"time"

	"github.com/warp-contracts/licensing/src/utils/monitoring/report"
	"github.com/warp-contracts/licensing/src/utils/task"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

// Stores and computes monitor counters
type Monitor struct {
	*task.Task

	Report    report.Report
	collector *Collector
}

func NewMonitor() (self *Monitor) {
	self = new(Monitor)

	self.Report = report.Report{
		Run:          &report.RunReport{},
		Settlement:   &report.SettlementReport{},
		License:      &report.LicenseReport{},
		Balance:      &report.BalanceReport{},
		Notification: &report.NotificationReport{},
	}
	self.Report.Run.StartTimestamp.Store(time.Now().Unix())

	self.collector = NewCollector().WithMonitor(self)

	self.Task = task.NewTask(nil, "monitor").
		WithPeriodicSubtaskFunc(10*time.Second, self.monitorUptime)
	return
}

func (self *Monitor) monitorUptime() error {
	start := self.Report.Run.StartTimestamp.Load()
	self.Report.Run.UpForSeconds.Store(uint64(time.Now().Unix() - start))
	return nil
}

func (self *Monitor) GetReport() *report.Report {
	return &self.Report
}

func (self *Monitor) GetPrometheusCollector() (collector prometheus.Collector) {
	return self.collector
}

func (self *Monitor) IsOK() bool {
	return true
}

func (self *Monitor) OnGetState(c *gin.Context) {
	c.JSON(http.StatusOK, &self.Report)
}

func (self *Monitor) OnGetHealth(c *gin.Context) {
	if self.IsOK() {
		c.Status(http.StatusOK)
	} else {
		c.Status(http.StatusServiceUnavailable)
	}
}
