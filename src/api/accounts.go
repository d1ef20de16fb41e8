package api

import (
	"net/http"
	"strings"

	"github.com/warp-contracts/licensing/src/api/request"
	"github.com/warp-contracts/licensing/src/api/response"
	"github.com/warp-contracts/licensing/src/pricing"
	. "github.com/warp-contracts/licensing/src/utils/logger"

	"github.com/gin-gonic/gin"
)

func (self *Server) onCreateAccount(c *gin.Context) {
	account, err := self.balance.CreateAccount()
	if err != nil {
		onError(c, err, "Failed to create account")
		return
	}
	c.JSON(http.StatusCreated, &response.Account{
		Address:   account.Address,
		PublicKey: account.PublicKey,
	})
}

func (self *Server) onGetAccount(c *gin.Context) {
	account, err := self.balance.GetAccount(c, c.Param("address"))
	if err != nil {
		onError(c, err, "Failed to get account")
		return
	}
	c.JSON(http.StatusOK, account)
}

func (self *Server) onGetBalance(c *gin.Context) {
	balance, err := self.balance.Lookup(c, c.Param("address"))
	if err != nil {
		onError(c, err, "Failed to get balance")
		return
	}
	c.JSON(http.StatusOK, balance)
}

func (self *Server) onFund(c *gin.Context) {
	var in request.Fund
	err := bind(c, &in)
	if err != nil {
		onError(c, err, "Failed to parse request")
		return
	}

	var octas uint64
	if strings.TrimSpace(in.Amount) != "" {
		amount, err := pricing.ParseAmount(in.Amount)
		if err != nil {
			onError(c, err, "Invalid amount")
			return
		}
		octas, err = pricing.ToSmallestUnit(amount)
		if err != nil {
			onError(c, err, "Invalid amount")
			return
		}
	}

	_, err = self.balance.FundFromFaucet(c, in.Address, octas)
	if err != nil {
		onError(c, err, "Failed to fund account")
		return
	}

	balance, err := self.balance.Lookup(c, in.Address)
	if err != nil {
		onError(c, err, "Failed to get balance")
		return
	}

	LOG(c).WithField("address", balance.Address).WithField("balance", balance.Octas).Info("Funded account")
	c.JSON(http.StatusOK, balance)
}
