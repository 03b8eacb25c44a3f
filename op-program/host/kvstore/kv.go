package kvstore

import (
	"errors"

	"github.com/ethereum/go-ethereum/common"
)

// ErrNotFound is returned when a pre-image cannot be found in the KV store.
var ErrNotFound = errors.New("not found")

// KV is a key-value store of pre-images, keyed by pre-image key.
type KV interface {
	// Put stores value under key. Existing values are kept, since pre-images never change.
	Put(k common.Hash, v []byte) error

	// Get retrieves the value of key, or ErrNotFound if there is none.
	Get(k common.Hash) ([]byte, error)

	// Close releases the resources of the store. It must not be used afterwards.
	Close() error
}

// Iterable stores can enumerate their entries. Iteration order is unspecified.
type Iterable interface {
	ForEach(fn func(k common.Hash, v []byte) error) error
}
