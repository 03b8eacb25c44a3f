package kvstore

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"github.com/mantlenetworkio/op-multiblock/op-program/client/boot"
)

// LocalPreimageSource serves the local-key pre-images of a run, encoded from its boot info.
type LocalPreimageSource struct {
	preimages map[common.Hash][]byte
}

var _ Iterable = (*LocalPreimageSource)(nil)

func NewLocalPreimageSource(info *boot.BootInfo) (*LocalPreimageSource, error) {
	locals, err := info.LocalPreimages()
	if err != nil {
		return nil, fmt.Errorf("failed to encode local pre-images: %w", err)
	}
	preimages := make(map[common.Hash][]byte, len(locals))
	for key, value := range locals {
		preimages[key.PreimageKey()] = value
	}
	return &LocalPreimageSource{preimages: preimages}, nil
}

func (s *LocalPreimageSource) Get(key common.Hash) ([]byte, error) {
	v, ok := s.preimages[key]
	if !ok {
		return nil, ErrNotFound
	}
	return common.CopyBytes(v), nil
}

func (s *LocalPreimageSource) ForEach(fn func(k common.Hash, v []byte) error) error {
	for k, v := range s.preimages {
		if err := fn(k, v); err != nil {
			return err
		}
	}
	return nil
}
