package settlement

import (
	"encoding/hex"
	"encoding/json"
	"strconv"
	"strings"

	"github.com/warp-contracts/licensing/src/utils/address"
	"github.com/warp-contracts/licensing/src/utils/errs"
	"github.com/warp-contracts/licensing/src/utils/payload"

	"golang.org/x/crypto/sha3"
)

// Field that tells apart two operations of the same kind on the same dataset
func distinguishingField(p *payload.Payload) (out string, err error) {
	values := func(names ...string) (string, error) {
		parts := make([]string, 0, len(names))
		for _, name := range names {
			arg, ok := p.Arg(name)
			if !ok {
				return "", errs.Validation("%s has no argument %s", p.Name(), name)
			}
			if arg.Type == payload.ArgTypeAddressVector {
				items := make([]string, 0, len(arg.Items))
				for _, item := range arg.Items {
					normalized, err := address.Normalize(item)
					if err != nil {
						return "", errs.Validation("invalid address %q", item)
					}
					items = append(items, normalized)
				}
				parts = append(parts, strings.Join(items, ","))
				continue
			}
			if arg.Type == payload.ArgTypeAddress {
				normalized, err := address.Normalize(arg.Value)
				if err != nil {
					return "", errs.Validation("invalid address %q", arg.Value)
				}
				parts = append(parts, normalized)
				continue
			}
			parts = append(parts, arg.Value)
		}
		return strings.Join(parts, "|"), nil
	}

	switch p.Function {
	case payload.FunctionMintDataset:
		return values(payload.ArgContentHash)
	case payload.FunctionGrantLicense:
		return values(payload.ArgLicensee, payload.ArgDurationSecs, payload.ArgLicenseType)
	case payload.FunctionSetPrice:
		return values(payload.ArgBasePrice, payload.ArgPerQueryPrice)
	case payload.FunctionPayForLicense:
		return values(payload.ArgSeller)
	case payload.FunctionSetRoyalty:
		return values(payload.ArgContributors, payload.ArgSharePercentage)
	}
	return "", errs.Validation("unknown entry function %s", p.Name())
}

// Hex encoded SHA3-256 of the canonical (actor, dataset id, function, distinguishing field) tuple
func IdempotencyKey(actor string, p *payload.Payload) (out string, err error) {
	actor, err = address.Normalize(actor)
	if err != nil {
		return "", errs.Validation("invalid acting address")
	}

	datasetId, err := p.Uint64(payload.ArgDatasetId)
	if err != nil {
		return
	}

	field, err := distinguishingField(p)
	if err != nil {
		return
	}

	canonical, err := json.Marshal([]string{actor, strconv.FormatUint(datasetId, 10), p.Name(), field})
	if err != nil {
		return
	}

	sum := sha3.Sum256(canonical)
	return hex.EncodeToString(sum[:]), nil
}
