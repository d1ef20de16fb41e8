package api

import (
	"net/http"
	"strings"

	"github.com/warp-contracts/licensing/src/api/request"
	"github.com/warp-contracts/licensing/src/api/response"
	"github.com/warp-contracts/licensing/src/ledger"
	"github.com/warp-contracts/licensing/src/pricing"
	. "github.com/warp-contracts/licensing/src/utils/logger"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

// Empty amount is zero. Amounts that don't fit the chain unit are rejected.
func parsePrice(in string) (out decimal.Decimal, err error) {
	if strings.TrimSpace(in) == "" {
		return decimal.Zero, nil
	}
	out, err = pricing.ParseAmount(in)
	if err != nil {
		return
	}
	_, err = pricing.ToSmallestUnit(out)
	return
}

func (self *Server) onGetCategories(c *gin.Context) {
	categories, err := self.store.Categories(c)
	if err != nil {
		onError(c, err, "Failed to get categories")
		return
	}
	c.JSON(http.StatusOK, &response.Categories{Categories: append([]string{ledger.CategoryAll}, categories...)})
}

func (self *Server) onListDatasets(c *gin.Context) {
	datasets, err := self.store.ListDatasets(c, ledger.DatasetFilter{
		Category: c.Query("category"),
		Search:   c.Query("search"),
	})
	if err != nil {
		onError(c, err, "Failed to list datasets")
		return
	}
	c.JSON(http.StatusOK, response.DatasetsToResponse(datasets))
}

func (self *Server) onGetDataset(c *gin.Context) {
	id, err := parseId(c, "id")
	if err != nil {
		onError(c, err, "Failed to parse dataset id")
		return
	}

	dataset, err := self.store.GetDataset(c, id)
	if err != nil {
		onError(c, err, "Failed to get dataset")
		return
	}
	c.JSON(http.StatusOK, response.DatasetToResponse(dataset))
}

func (self *Server) onCreateDataset(c *gin.Context) {
	var in request.CreateDataset
	err := bind(c, &in)
	if err != nil {
		onError(c, err, "Failed to parse request")
		return
	}

	price, err := parsePrice(in.PriceApt)
	if err != nil {
		onError(c, err, "Invalid price")
		return
	}

	perQueryPrice, err := parsePrice(in.PerQueryPrice)
	if err != nil {
		onError(c, err, "Invalid per query price")
		return
	}

	dataset, err := self.store.CreateDataset(c, &ledger.NewDataset{
		Title:         in.Title,
		Description:   in.Description,
		Category:      in.Category,
		FileHash:      in.FileHash,
		IpfsUri:       in.IpfsUri,
		PriceApt:      price,
		PerQueryPrice: perQueryPrice,
		SizeMb:        in.SizeMb,
		Format:        in.Format,
		Tags:          strings.Join(in.Tags, ","),
		OwnerWallet:   in.OwnerWallet,
	})
	if err != nil {
		onError(c, err, "Failed to create dataset")
		return
	}

	c.JSON(http.StatusCreated, response.DatasetToResponse(dataset))
}

func (self *Server) onMintDataset(c *gin.Context) {
	id, err := parseId(c, "id")
	if err != nil {
		onError(c, err, "Failed to parse dataset id")
		return
	}

	staged, err := self.coordinator.MintDataset(c, id)
	if err != nil {
		onError(c, err, "Failed to mint dataset")
		return
	}

	LOG(c).WithField("id", id).WithField("duplicate", staged.Duplicate).Info("Mint submitted")
	c.JSON(http.StatusAccepted, response.StagedToResponse(staged))
}

func (self *Server) onMarkMinted(c *gin.Context) {
	id, err := parseId(c, "id")
	if err != nil {
		onError(c, err, "Failed to parse dataset id")
		return
	}

	var in request.MarkMinted
	err = bind(c, &in)
	if err != nil {
		onError(c, err, "Failed to parse request")
		return
	}

	dataset, err := self.store.MarkMinted(c, id, in.TransactionHash)
	if err != nil {
		onError(c, err, "Failed to mark dataset as minted")
		return
	}
	c.JSON(http.StatusOK, response.DatasetToResponse(dataset))
}

func (self *Server) onSetPrice(c *gin.Context) {
	id, err := parseId(c, "id")
	if err != nil {
		onError(c, err, "Failed to parse dataset id")
		return
	}

	var in request.SetPrice
	err = bind(c, &in)
	if err != nil {
		onError(c, err, "Failed to parse request")
		return
	}

	base, err := pricing.ParseAmount(in.BasePrice)
	if err != nil {
		onError(c, err, "Invalid base price")
		return
	}

	perQuery, err := parsePrice(in.PerQueryPrice)
	if err != nil {
		onError(c, err, "Invalid per query price")
		return
	}

	staged, err := self.coordinator.SetPrice(c, id, base, perQuery)
	if err != nil {
		onError(c, err, "Failed to set price")
		return
	}
	c.JSON(http.StatusAccepted, response.StagedToResponse(staged))
}

func (self *Server) onSetRoyalty(c *gin.Context) {
	id, err := parseId(c, "id")
	if err != nil {
		onError(c, err, "Failed to parse dataset id")
		return
	}

	var in request.SetRoyalty
	err = bind(c, &in)
	if err != nil {
		onError(c, err, "Failed to parse request")
		return
	}

	staged, err := self.coordinator.SetRoyalty(c, id, in.Contributors, in.SharePercentage, in.Splits)
	if err != nil {
		onError(c, err, "Failed to set royalty")
		return
	}
	c.JSON(http.StatusAccepted, response.StagedToResponse(staged))
}
