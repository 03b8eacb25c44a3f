// Package solabi reads and writes the fixed-width Solidity ABI words used by
// system deposit transactions.
package solabi

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// maxUint256 is 2^256-1
var maxUint256 = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 256), big.NewInt(1))

var addressEmptyPadding [12]byte

// WriteSignature writes the 4-byte function selector.
func WriteSignature(w io.Writer, sig []byte) error {
	_, err := w.Write(sig)
	return err
}

// ReadSignature reads the 4-byte function selector.
func ReadSignature(r io.Reader) ([]byte, error) {
	sig := make([]byte, 4)
	_, err := io.ReadFull(r, sig)
	return sig, err
}

// ReadAndValidateSignature reads the selector and compares it with the expected one.
func ReadAndValidateSignature(r io.Reader, expectedSignature []byte) ([]byte, error) {
	sig := make([]byte, 4)
	if _, err := io.ReadFull(r, sig); err != nil {
		return nil, err
	}
	if !bytes.Equal(sig, expectedSignature) {
		return nil, fmt.Errorf("invalid function signature: %x", sig)
	}
	return sig, nil
}

func WriteHash(w io.Writer, hash common.Hash) error {
	_, err := w.Write(hash.Bytes())
	return err
}

func ReadHash(r io.Reader) (common.Hash, error) {
	var h common.Hash
	_, err := io.ReadFull(r, h[:])
	return h, err
}

// WriteAddress writes the address left-padded to a 32-byte word.
func WriteAddress(w io.Writer, addr common.Address) error {
	if _, err := w.Write(addressEmptyPadding[:]); err != nil {
		return err
	}
	_, err := w.Write(addr[:])
	return err
}

// ReadAddress reads a 32-byte word and requires the 12 high bytes to be zero.
func ReadAddress(r io.Reader) (common.Address, error) {
	var readPadding [12]byte
	var a common.Address
	if _, err := io.ReadFull(r, readPadding[:]); err != nil {
		return a, err
	}
	if !bytes.Equal(readPadding[:], addressEmptyPadding[:]) {
		return a, fmt.Errorf("address padding was not empty: %x", readPadding[:])
	}
	_, err := io.ReadFull(r, a[:])
	return a, err
}

// WriteUint256 writes n as a big-endian 32-byte word. n must be non-negative and fit 256 bits.
func WriteUint256(w io.Writer, n *big.Int) error {
	if n.Sign() < 0 || n.Cmp(maxUint256) > 0 {
		return fmt.Errorf("value %v out of uint256 range", n)
	}
	var word [32]byte
	n.FillBytes(word[:])
	_, err := w.Write(word[:])
	return err
}

func ReadUint256(r io.Reader) (*big.Int, error) {
	var n [32]byte
	if _, err := io.ReadFull(r, n[:]); err != nil {
		return nil, err
	}
	return new(big.Int).SetBytes(n[:]), nil
}

// WriteUint64 writes n as a big-endian 32-byte word.
func WriteUint64(w io.Writer, n uint64) error {
	var word [32]byte
	binary.BigEndian.PutUint64(word[24:], n)
	_, err := w.Write(word[:])
	return err
}

// ReadUint64 reads a 32-byte word and requires the 24 high bytes to be zero.
func ReadUint64(r io.Reader) (uint64, error) {
	var word [32]byte
	if _, err := io.ReadFull(r, word[:]); err != nil {
		return 0, err
	}
	for _, b := range word[:24] {
		if b != 0 {
			return 0, errors.New("number padding was not empty")
		}
	}
	return binary.BigEndian.Uint64(word[24:]), nil
}

// EmptyReader returns true if r has no more bytes to read.
func EmptyReader(r io.Reader) bool {
	var t [1]byte
	n, err := r.Read(t[:])
	return n == 0 && err == io.EOF
}
