package eth

import (
	"fmt"
	"math/big"

	"github.com/holiman/uint256"
)

type ChainID uint256.Int

func ChainIDFromBig(chainID *big.Int) ChainID {
	return ChainID(*uint256.MustFromBig(chainID))
}

func ChainIDFromUInt64(i uint64) ChainID {
	return ChainID(*uint256.NewInt(i))
}

func ParseDecimalChainID(chainID string) (ChainID, error) {
	v, err := uint256.FromDecimal(chainID)
	if err != nil {
		return ChainID{}, err
	}
	return ChainID(*v), nil
}

// EvilChainIDToUInt64 converts a ChainID to a uint64 and panic's if the ChainID is too large for a UInt64
// It is "evil" because 64 bit ChainIDs may be reserved for special purposes and should not be used as
// real chain IDs.
func EvilChainIDToUInt64(id ChainID) uint64 {
	v := uint256.Int(id)
	if !v.IsUint64() {
		panic(fmt.Errorf("ChainID too large for uint64: %v", id))
	}
	return v.Uint64()
}

func (id ChainID) IsUint64() bool {
	v := uint256.Int(id)
	return v.IsUint64()
}

func (id ChainID) String() string {
	return id.ToBig().String()
}

func (id ChainID) ToBig() *big.Int {
	v := uint256.Int(id)
	return v.ToBig()
}

func (id ChainID) Bytes32() [32]byte {
	v := uint256.Int(id)
	return v.Bytes32()
}

func (id ChainID) MarshalText() ([]byte, error) {
	return []byte(id.String()), nil
}

func (id *ChainID) UnmarshalText(data []byte) error {
	var x uint256.Int
	if err := x.UnmarshalText(data); err != nil {
		return err
	}
	*id = ChainID(x)
	return nil
}
