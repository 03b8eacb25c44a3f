package l2

import "errors"

var (
	// ErrOracle is returned when a hint or preimage request could not be served.
	ErrOracle = errors.New("preimage oracle failure")
	// ErrDecode is returned when oracle data does not decode into the expected structure.
	ErrDecode = errors.New("malformed oracle data")
	// ErrInvalidOutputRoot is returned when the starting output root preimage is not a valid output.
	ErrInvalidOutputRoot = errors.New("invalid output root")
	// ErrRange is returned for blocks above the head the provider was started from.
	ErrRange = errors.New("block number past L2 head")
	// ErrDerivation is returned when a block ref or system config cannot be derived from a payload.
	ErrDerivation = errors.New("failed to derive from payload")
)
