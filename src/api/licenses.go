package api

import (
	"net/http"

	"github.com/warp-contracts/licensing/src/api/request"
	"github.com/warp-contracts/licensing/src/api/response"
	"github.com/warp-contracts/licensing/src/license"
	"github.com/warp-contracts/licensing/src/utils/model"

	"github.com/gin-gonic/gin"
)

func (self *Server) onPurchase(c *gin.Context) {
	var in request.Purchase
	err := bind(c, &in)
	if err != nil {
		onError(c, err, "Failed to parse request")
		return
	}

	out, err := self.licenses.Purchase(c, &license.PurchaseRequest{
		DatasetId:    in.DatasetId,
		Wallet:       in.Wallet,
		LicenseType:  model.LicenseType(in.LicenseType),
		DurationDays: in.DurationDays,
	})
	if err != nil {
		onError(c, err, "Failed to purchase license")
		return
	}
	c.JSON(http.StatusCreated, response.LicenseToResponse(out, self.store.Now()))
}

func (self *Server) onGrant(c *gin.Context) {
	var in request.Grant
	err := bind(c, &in)
	if err != nil {
		onError(c, err, "Failed to parse request")
		return
	}

	out, err := self.licenses.Grant(c, &license.GrantRequest{
		Owner:        in.Owner,
		DatasetId:    in.DatasetId,
		Licensee:     in.Licensee,
		DurationSecs: in.DurationSecs,
		LicenseType:  model.LicenseType(in.LicenseType),
	})
	if err != nil {
		onError(c, err, "Failed to grant license")
		return
	}
	c.JSON(http.StatusCreated, response.LicenseToResponse(out, self.store.Now()))
}

func (self *Server) onListUserLicenses(c *gin.Context) {
	licenses, err := self.licenses.ListByWallet(c, c.Param("wallet"))
	if err != nil {
		onError(c, err, "Failed to list licenses")
		return
	}
	c.JSON(http.StatusOK, response.LicensesToResponse(licenses, self.store.Now()))
}

func (self *Server) onListUserDatasets(c *gin.Context) {
	datasets, err := self.store.ListDatasetsByOwner(c, c.Param("wallet"))
	if err != nil {
		onError(c, err, "Failed to list datasets")
		return
	}
	c.JSON(http.StatusOK, response.DatasetsToResponse(datasets))
}
