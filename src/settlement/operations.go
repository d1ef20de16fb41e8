package settlement

import (
	"context"

	"github.com/warp-contracts/licensing/src/ledger"
	"github.com/warp-contracts/licensing/src/pricing"
	"github.com/warp-contracts/licensing/src/utils/errs"
	"github.com/warp-contracts/licensing/src/utils/model"
	"github.com/warp-contracts/licensing/src/utils/payload"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Stages the request built inside a store transaction and submits it.
// Duplicates are returned as they are, without another submission.
func (self *Coordinator) stageAndSubmit(ctx context.Context, build func(tx *gorm.DB) (*Request, error), check func(dataset *model.Dataset) error) (out *Staged, err error) {
	err = self.store.Transaction(ctx, func(tx *gorm.DB) (err error) {
		req, err := build(tx)
		if err != nil {
			return
		}

		out, err = self.Stage(tx, req)
		if err != nil || out.Duplicate || check == nil {
			return
		}

		dataset, err := ledger.GetDataset(tx, out.Transaction.DatasetID)
		if err != nil {
			return
		}
		return check(dataset)
	})
	if err != nil {
		return nil, err
	}

	if out.Duplicate {
		return
	}

	row, err := self.Submit(ctx, out.Transaction.ID)
	if row != nil {
		out.Transaction = row
	}
	return
}

// Mints the dataset NFT on behalf of the dataset owner
func (self *Coordinator) MintDataset(ctx context.Context, datasetId uint64) (out *Staged, err error) {
	return self.stageAndSubmit(ctx, func(tx *gorm.DB) (*Request, error) {
		dataset, err := ledger.GetDataset(tx, datasetId)
		if err != nil {
			return nil, err
		}
		return &Request{
			Type:    model.TransactionTypeMint,
			From:    dataset.Owner.WalletAddress,
			Payload: payload.MintDataset(dataset.ID, dataset.FileHash, dataset.IpfsUri),
		}, nil
	}, func(dataset *model.Dataset) error {
		if dataset.NftMinted {
			return errs.Conflict("dataset %d is already minted", dataset.ID)
		}
		return nil
	})
}

// Sets the on-chain price. Dataset prices change only once the chain confirms it.
func (self *Coordinator) SetPrice(ctx context.Context, datasetId uint64, basePrice, perQueryPrice decimal.Decimal) (out *Staged, err error) {
	p, err := pricing.SetPrice(datasetId, basePrice, perQueryPrice)
	if err != nil {
		return
	}

	return self.stageAndSubmit(ctx, func(tx *gorm.DB) (*Request, error) {
		dataset, err := ledger.GetDataset(tx, datasetId)
		if err != nil {
			return nil, err
		}
		return &Request{
			Type:    model.TransactionTypePrice,
			From:    dataset.Owner.WalletAddress,
			Payload: p,
		}, nil
	}, nil)
}

// Configures the royalty split. Splits are in basis points, nil leaves the split unspecified.
func (self *Coordinator) SetRoyalty(ctx context.Context, datasetId uint64, contributors []string, sharePercentage uint64, splits []uint64) (out *Staged, err error) {
	normalized, err := pricing.ValidateRoyalty(contributors, sharePercentage)
	if err != nil {
		return
	}

	err = pricing.ValidateSplits(normalized, splits)
	if err != nil {
		return
	}

	if len(splits) == 0 {
		splits = nil
		self.log.WithField("dataset_id", datasetId).Info("Royalty split unspecified")
	}

	return self.stageAndSubmit(ctx, func(tx *gorm.DB) (*Request, error) {
		dataset, err := ledger.GetDataset(tx, datasetId)
		if err != nil {
			return nil, err
		}
		return &Request{
			Type:          model.TransactionTypeRoyalty,
			From:          dataset.Owner.WalletAddress,
			Payload:       payload.SetRoyalty(datasetId, normalized, sharePercentage),
			RoyaltySplits: splits,
		}, nil
	}, nil)
}
