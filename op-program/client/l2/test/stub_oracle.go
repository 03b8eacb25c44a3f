package test

import (
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	preimage "github.com/mantlenetworkio/op-multiblock/op-preimage"
)

// StubOracle is an in-memory preimage oracle and hinter that counts every request it serves.
type StubOracle struct {
	mu sync.Mutex

	Data  map[[32]byte][]byte
	Hints []string
	Gets  int

	// GetErr and HintErr, when set, fail the corresponding requests.
	GetErr  error
	HintErr error
}

var (
	_ preimage.Oracle = (*StubOracle)(nil)
	_ preimage.Hinter = (*StubOracle)(nil)
)

func NewStubOracle() *StubOracle {
	return &StubOracle{Data: make(map[[32]byte][]byte)}
}

func (o *StubOracle) Get(key preimage.Key) ([]byte, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.Gets++
	if o.GetErr != nil {
		return nil, o.GetErr
	}
	k := key.PreimageKey()
	data, ok := o.Data[k]
	if !ok {
		return nil, fmt.Errorf("unknown preimage key %x", k)
	}
	return data, nil
}

func (o *StubOracle) Hint(v preimage.Hint) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.Hints = append(o.Hints, v.Hint())
	return o.HintErr
}

// Put stores data under an arbitrary key.
func (o *StubOracle) Put(key preimage.Key, data []byte) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.Data[key.PreimageKey()] = data
}

// PutKeccak stores data under its keccak256 key and returns the hash.
func (o *StubOracle) PutKeccak(data []byte) common.Hash {
	hash := crypto.Keccak256Hash(data)
	o.Put(preimage.Keccak256Key(hash), data)
	return hash
}

// Calls returns the number of gets and hints served so far.
func (o *StubOracle) Calls() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.Gets + len(o.Hints)
}

func (o *StubOracle) ResetCalls() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.Gets = 0
	o.Hints = nil
}
