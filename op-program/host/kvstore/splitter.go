package kvstore

import (
	"github.com/ethereum/go-ethereum/common"

	preimage "github.com/mantlenetworkio/op-multiblock/op-preimage"
)

type PreimageSource func(key common.Hash) ([]byte, error)

// PreimageSourceSplitter serves local keys from one source and every other key type from another.
type PreimageSourceSplitter struct {
	local  PreimageSource
	global PreimageSource
}

func NewPreimageSourceSplitter(local PreimageSource, global PreimageSource) *PreimageSourceSplitter {
	return &PreimageSourceSplitter{
		local:  local,
		global: global,
	}
}

func (s *PreimageSourceSplitter) Get(key common.Hash) ([]byte, error) {
	if key[0] == byte(preimage.LocalKeyType) {
		return s.local(key)
	}
	return s.global(key)
}
