package payload

const (
	ModuleDatasetNFT    = "DatasetNFT"
	ModuleLicensing     = "Licensing"
	ModulePaymentRouter = "PaymentRouter"
	ModuleRoyalties     = "Royalties"

	FunctionMintDataset   = "mint_dataset"
	FunctionGrantLicense  = "grant_license"
	FunctionSetPrice      = "set_price"
	FunctionPayForLicense = "pay_for_license"
	FunctionSetRoyalty    = "set_royalty"
)

const (
	ArgDatasetId       = "dataset_id"
	ArgContentHash     = "content_hash"
	ArgUri             = "uri"
	ArgLicensee        = "licensee"
	ArgDurationSecs    = "duration_secs"
	ArgLicenseType     = "license_type"
	ArgBasePrice       = "base_price"
	ArgPerQueryPrice   = "per_query_price"
	ArgSeller          = "seller"
	ArgContributors    = "contributors"
	ArgSharePercentage = "share_percentage"
)

type argSpec struct {
	Name string
	Type ArgType
}

// Entry functions the contracts expose, with ordered argument types
var catalogue = map[string][]argSpec{
	ModuleDatasetNFT + "::" + FunctionMintDataset: {
		{ArgDatasetId, ArgTypeU64},
		{ArgContentHash, ArgTypeString},
		{ArgUri, ArgTypeString},
	},
	ModuleLicensing + "::" + FunctionGrantLicense: {
		{ArgDatasetId, ArgTypeU64},
		{ArgLicensee, ArgTypeAddress},
		{ArgDurationSecs, ArgTypeU64},
		{ArgLicenseType, ArgTypeU64},
	},
	ModulePaymentRouter + "::" + FunctionSetPrice: {
		{ArgDatasetId, ArgTypeU64},
		{ArgBasePrice, ArgTypeU64},
		{ArgPerQueryPrice, ArgTypeU64},
	},
	ModulePaymentRouter + "::" + FunctionPayForLicense: {
		{ArgSeller, ArgTypeAddress},
		{ArgDatasetId, ArgTypeU64},
	},
	ModuleRoyalties + "::" + FunctionSetRoyalty: {
		{ArgDatasetId, ArgTypeU64},
		{ArgContributors, ArgTypeAddressVector},
		{ArgSharePercentage, ArgTypeU64},
	},
}
