// Package payload describes settlement payloads: module, function and ordered typed arguments.
package payload

import (
	"fmt"
	"strconv"

	"github.com/warp-contracts/licensing/src/utils/address"
	"github.com/warp-contracts/licensing/src/utils/errs"
)

type ArgType string

const (
	ArgTypeU64           ArgType = "u64"
	ArgTypeString        ArgType = "string"
	ArgTypeAddress       ArgType = "address"
	ArgTypeAddressVector ArgType = "vector<address>"
)

type Arg struct {
	Name  string   `json:"name"`
	Type  ArgType  `json:"type"`
	Value string   `json:"value,omitempty"`
	Items []string `json:"items,omitempty"`
}

type Payload struct {
	Module   string `json:"module"`
	Function string `json:"function"`
	Args     []Arg  `json:"args"`
}

func u64(name string, v uint64) Arg {
	return Arg{Name: name, Type: ArgTypeU64, Value: strconv.FormatUint(v, 10)}
}

func str(name string, v string) Arg {
	return Arg{Name: name, Type: ArgTypeString, Value: v}
}

func addr(name string, v string) Arg {
	return Arg{Name: name, Type: ArgTypeAddress, Value: v}
}

func MintDataset(datasetId uint64, contentHash, uri string) *Payload {
	return &Payload{
		Module:   ModuleDatasetNFT,
		Function: FunctionMintDataset,
		Args: []Arg{
			u64(ArgDatasetId, datasetId),
			str(ArgContentHash, contentHash),
			str(ArgUri, uri),
		},
	}
}

func GrantLicense(datasetId uint64, licensee string, durationSecs, licenseType uint64) *Payload {
	return &Payload{
		Module:   ModuleLicensing,
		Function: FunctionGrantLicense,
		Args: []Arg{
			u64(ArgDatasetId, datasetId),
			addr(ArgLicensee, licensee),
			u64(ArgDurationSecs, durationSecs),
			u64(ArgLicenseType, licenseType),
		},
	}
}

// Prices are in octas
func SetPrice(datasetId, basePrice, perQueryPrice uint64) *Payload {
	return &Payload{
		Module:   ModulePaymentRouter,
		Function: FunctionSetPrice,
		Args: []Arg{
			u64(ArgDatasetId, datasetId),
			u64(ArgBasePrice, basePrice),
			u64(ArgPerQueryPrice, perQueryPrice),
		},
	}
}

func PayForLicense(seller string, datasetId uint64) *Payload {
	return &Payload{
		Module:   ModulePaymentRouter,
		Function: FunctionPayForLicense,
		Args: []Arg{
			addr(ArgSeller, seller),
			u64(ArgDatasetId, datasetId),
		},
	}
}

func SetRoyalty(datasetId uint64, contributors []string, sharePercentage uint64) *Payload {
	items := make([]string, len(contributors))
	copy(items, contributors)
	return &Payload{
		Module:   ModuleRoyalties,
		Function: FunctionSetRoyalty,
		Args: []Arg{
			u64(ArgDatasetId, datasetId),
			{Name: ArgContributors, Type: ArgTypeAddressVector, Items: items},
			u64(ArgSharePercentage, sharePercentage),
		},
	}
}

// Fully qualified entry function id
func (self *Payload) FunctionId(contractAddress string) string {
	return fmt.Sprintf("%s::%s::%s", contractAddress, self.Module, self.Function)
}

// Name of the operation, without the contract address
func (self *Payload) Name() string {
	return self.Module + "::" + self.Function
}

func (self *Payload) Arg(name string) (out Arg, ok bool) {
	for _, arg := range self.Args {
		if arg.Name == name {
			return arg, true
		}
	}
	return
}

func (self *Payload) Uint64(name string) (out uint64, err error) {
	arg, ok := self.Arg(name)
	if !ok || arg.Type != ArgTypeU64 {
		err = errs.Validation("%s has no u64 argument %s", self.Name(), name)
		return
	}
	out, err = strconv.ParseUint(arg.Value, 10, 64)
	if err != nil {
		err = errs.Wrap(errs.ErrValidation, err, "%s argument %s", self.Name(), name)
	}
	return
}

func (self *Payload) String(name string) (out string, err error) {
	arg, ok := self.Arg(name)
	if !ok || (arg.Type != ArgTypeString && arg.Type != ArgTypeAddress) {
		err = errs.Validation("%s has no string argument %s", self.Name(), name)
		return
	}
	return arg.Value, nil
}

// Arguments in the JSON form accepted by the node: integers and addresses are strings
func (self *Payload) Arguments() []interface{} {
	out := make([]interface{}, 0, len(self.Args))
	for _, arg := range self.Args {
		if arg.Type == ArgTypeAddressVector {
			items := make([]string, len(arg.Items))
			copy(items, arg.Items)
			out = append(out, items)
			continue
		}
		out = append(out, arg.Value)
	}
	return out
}

// Checks the payload matches one of the catalogue entries
func (self *Payload) Validate() error {
	params, ok := catalogue[self.Name()]
	if !ok {
		return errs.Validation("unknown entry function %s", self.Name())
	}
	if len(params) != len(self.Args) {
		return errs.Validation("%s expects %d arguments, got %d", self.Name(), len(params), len(self.Args))
	}

	for i, param := range params {
		arg := self.Args[i]
		if arg.Name != param.Name || arg.Type != param.Type {
			return errs.Validation("%s argument %d should be %s:%s, got %s:%s", self.Name(), i, param.Name, param.Type, arg.Name, arg.Type)
		}

		switch arg.Type {
		case ArgTypeU64:
			_, err := strconv.ParseUint(arg.Value, 10, 64)
			if err != nil {
				return errs.Wrap(errs.ErrValidation, err, "%s argument %s", self.Name(), arg.Name)
			}
		case ArgTypeAddress:
			if !address.IsValid(arg.Value) {
				return errs.Validation("%s argument %s is not an address", self.Name(), arg.Name)
			}
		case ArgTypeAddressVector:
			for _, item := range arg.Items {
				if !address.IsValid(item) {
					return errs.Validation("%s argument %s contains invalid address %q", self.Name(), arg.Name, item)
				}
			}
		}
	}
	return nil
}
