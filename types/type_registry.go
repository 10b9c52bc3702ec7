package types

import (
	"github.com/ethereum/go-ethereum/accounts/abi"
)

type typeRegistry struct {
	uint64Ty       abi.Type
	uint256SliceTy abi.Type
}

func newTypeRegistry() (*typeRegistry, error) {
	uint64Ty, err := abi.NewType("uint64", "", nil)
	if err != nil {
		return nil, err
	}
	uint256SliceTy, err := abi.NewType("uint256[]", "", nil)
	if err != nil {
		return nil, err
	}
	return &typeRegistry{
		uint64Ty:       uint64Ty,
		uint256SliceTy: uint256SliceTy,
	}, nil
}
