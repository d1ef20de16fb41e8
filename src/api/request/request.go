package request

// Amounts are display unit decimals, e.g. "1.5"

type CreateDataset struct {
	Title         string   `json:"title" binding:"required"`
	Description   string   `json:"description"`
	Category      string   `json:"category"`
	FileHash      string   `json:"file_hash" binding:"required"`
	IpfsUri       string   `json:"ipfs_uri"`
	PriceApt      string   `json:"price_apt"`
	PerQueryPrice string   `json:"per_query_price"`
	SizeMb        float64  `json:"size_mb"`
	Format        string   `json:"format"`
	Tags          []string `json:"tags"`
	OwnerWallet   string   `json:"owner_wallet" binding:"required"`
}

type MarkMinted struct {
	TransactionHash string `json:"transaction_hash" binding:"required"`
}

type SetPrice struct {
	BasePrice     string `json:"base_price" binding:"required"`
	PerQueryPrice string `json:"per_query_price"`
}

type SetRoyalty struct {
	Contributors    []string `json:"contributors" binding:"required"`
	SharePercentage uint64   `json:"share_percentage"`

	// Basis points per contributor, optional
	Splits []uint64 `json:"splits"`
}

type Purchase struct {
	DatasetId    uint64 `json:"dataset_id" binding:"required"`
	Wallet       string `json:"wallet_address" binding:"required"`
	LicenseType  int    `json:"license_type"`
	DurationDays *int64 `json:"duration_days"`
}

type Grant struct {
	Owner        string `json:"owner" binding:"required"`
	DatasetId    uint64 `json:"dataset_id" binding:"required"`
	Licensee     string `json:"licensee" binding:"required"`
	DurationSecs int64  `json:"duration_secs"`
	LicenseType  int    `json:"license_type"`
}

type Fund struct {
	Address string `json:"address" binding:"required"`

	// Empty means the configured default
	Amount string `json:"amount"`
}
