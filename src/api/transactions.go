package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

func (self *Server) onGetTransactionStatus(c *gin.Context) {
	status, err := self.coordinator.Status(c, c.Param("hash"))
	if err != nil {
		onError(c, err, "Failed to get transaction status")
		return
	}
	c.JSON(http.StatusOK, status)
}

func (self *Server) onGetSettlement(c *gin.Context) {
	id, err := parseId(c, "id")
	if err != nil {
		onError(c, err, "Failed to parse settlement id")
		return
	}

	tx, err := self.store.GetTransaction(c, id)
	if err != nil {
		onError(c, err, "Failed to get settlement")
		return
	}
	c.JSON(http.StatusOK, tx)
}
