package rollup

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/log"
	"github.com/ethereum/go-ethereum/params"

	"github.com/mantlenetworkio/op-multiblock/op-service/eth"
)

var (
	ErrBlockTimeZero                 = errors.New("block time must be non-zero")
	ErrMissingGenesisL1Hash          = errors.New("missing genesis L1 block hash")
	ErrMissingGenesisL2Hash          = errors.New("missing genesis L2 block hash")
	ErrGenesisHashesSame             = errors.New("genesis L1 and L2 block hashes must differ")
	ErrMissingGenesisL2Time          = errors.New("missing genesis L2 time")
	ErrMissingBatcherAddr            = errors.New("missing genesis system config batcher address")
	ErrMissingScalar                 = errors.New("missing genesis system config scalar")
	ErrMissingGasLimit               = errors.New("missing genesis system config gas limit")
	ErrMissingBatchInboxAddress      = errors.New("missing batch inbox address")
	ErrMissingDepositContractAddress = errors.New("missing deposit contract address")
	ErrMissingL1ChainID              = errors.New("missing L1 chain ID")
	ErrMissingL2ChainID              = errors.New("missing L2 chain ID")
	ErrChainIDsSame                  = errors.New("L1 and L2 chain IDs must differ")
	ErrL1ChainIDNotPositive          = errors.New("L1 chain ID must be positive")
	ErrL2ChainIDNotPositive          = errors.New("L2 chain ID must be positive")
)

// Genesis is the anchor that derivation starts from.
type Genesis struct {
	// L1 is the last L1 block without derived L2 content.
	L1 eth.BlockID `json:"l1"`
	// L2 is the first L2 block. It carries no transactions, so its system config is below.
	L2     eth.BlockID `json:"l2"`
	L2Time uint64      `json:"l2_time"`
	// SystemConfig holds the system config values in effect at the L2 genesis block.
	SystemConfig eth.SystemConfig `json:"system_config"`
}

// Config holds the rollup parameters that block derivation depends on. Every node of a network
// must agree on them.
type Config struct {
	Genesis Genesis `json:"genesis"`
	// BlockTime is the number of seconds between L2 blocks.
	BlockTime uint64   `json:"block_time"`
	L1ChainID *big.Int `json:"l1_chain_id"`
	L2ChainID *big.Int `json:"l2_chain_id"`

	// Fork activation timestamps. A nil time means the fork is not scheduled.
	RegolithTime *uint64 `json:"regolith_time,omitempty"`
	// Post-Canyon payloads carry an empty withdrawals list.
	CanyonTime *uint64 `json:"canyon_time,omitempty"`
	DeltaTime  *uint64 `json:"delta_time,omitempty"`
	// Post-Ecotone blocks, except the activation block, carry the packed L1 info format.
	EcotoneTime *uint64 `json:"ecotone_time,omitempty"`
	FjordTime   *uint64 `json:"fjord_time,omitempty"`
	GraniteTime *uint64 `json:"granite_time,omitempty"`
	// Post-Holocene blocks encode the EIP-1559 parameters in the extra data.
	HoloceneTime *uint64 `json:"holocene_time,omitempty"`

	BatchInboxAddress      common.Address `json:"batch_inbox_address"`
	DepositContractAddress common.Address `json:"deposit_contract_address"`
	L1SystemConfigAddress  common.Address `json:"l1_system_config_address"`
}

// TimestampForBlock returns the timestamp of the L2 block with the given number.
func (cfg *Config) TimestampForBlock(blockNumber uint64) uint64 {
	return cfg.Genesis.L2Time + (blockNumber-cfg.Genesis.L2.Number)*cfg.BlockTime
}

// Check verifies that the config is complete and internally consistent.
func (cfg *Config) Check() error {
	if cfg.BlockTime == 0 {
		return ErrBlockTimeZero
	}
	if err := cfg.Genesis.check(); err != nil {
		return err
	}
	if cfg.BatchInboxAddress == (common.Address{}) {
		return ErrMissingBatchInboxAddress
	}
	if cfg.DepositContractAddress == (common.Address{}) {
		return ErrMissingDepositContractAddress
	}
	if err := cfg.checkChainIDs(); err != nil {
		return err
	}
	return cfg.checkForkOrder()
}

func (g *Genesis) check() error {
	switch {
	case g.L1.Hash == (common.Hash{}):
		return ErrMissingGenesisL1Hash
	case g.L2.Hash == (common.Hash{}):
		return ErrMissingGenesisL2Hash
	case g.L1.Hash == g.L2.Hash:
		return ErrGenesisHashesSame
	case g.L2Time == 0:
		return ErrMissingGenesisL2Time
	case g.SystemConfig.BatcherAddr == (common.Address{}):
		return ErrMissingBatcherAddr
	case g.SystemConfig.Scalar == (eth.Bytes32{}):
		return ErrMissingScalar
	case g.SystemConfig.GasLimit == 0:
		return ErrMissingGasLimit
	}
	return nil
}

func (cfg *Config) checkChainIDs() error {
	switch {
	case cfg.L1ChainID == nil:
		return ErrMissingL1ChainID
	case cfg.L2ChainID == nil:
		return ErrMissingL2ChainID
	case cfg.L1ChainID.Cmp(cfg.L2ChainID) == 0:
		return ErrChainIDsSame
	case cfg.L1ChainID.Sign() < 1:
		return ErrL1ChainIDNotPositive
	case cfg.L2ChainID.Sign() < 1:
		return ErrL2ChainIDNotPositive
	}
	return nil
}

// checkForkOrder requires every scheduled fork to have all prior forks scheduled no later.
func (cfg *Config) checkForkOrder() error {
	for i := 1; i < len(AllForks); i++ {
		prior, fork := AllForks[i-1], AllForks[i]
		priorTime, forkTime := cfg.ActivationTimeFor(prior), cfg.ActivationTimeFor(fork)
		if forkTime == nil {
			continue
		}
		if priorTime == nil {
			return fmt.Errorf("fork %s set (to %d), but prior fork %s missing", fork, *forkTime, prior)
		}
		if *priorTime > *forkTime {
			return fmt.Errorf("fork %s set to %d, but prior fork %s has higher offset %d", fork, *forkTime, prior, *priorTime)
		}
	}
	return nil
}

// IsForkActive reports whether fork is active for a block with the given timestamp.
func (cfg *Config) IsForkActive(fork ForkName, timestamp uint64) bool {
	t := cfg.ActivationTimeFor(fork)
	return t != nil && timestamp >= *t
}

func (cfg *Config) IsRegolith(timestamp uint64) bool {
	return cfg.IsForkActive(Regolith, timestamp)
}

func (cfg *Config) IsCanyon(timestamp uint64) bool {
	return cfg.IsForkActive(Canyon, timestamp)
}

func (cfg *Config) IsEcotone(timestamp uint64) bool {
	return cfg.IsForkActive(Ecotone, timestamp)
}

func (cfg *Config) IsHolocene(timestamp uint64) bool {
	return cfg.IsForkActive(Holocene, timestamp)
}

// IsActivationBlockForFork reports whether the block with the given timestamp is the first one
// subject to fork. Activation at genesis does not count.
func (cfg *Config) IsActivationBlockForFork(l2BlockTime uint64, fork ForkName) bool {
	return l2BlockTime >= cfg.BlockTime &&
		cfg.IsForkActive(fork, l2BlockTime) &&
		!cfg.IsForkActive(fork, l2BlockTime-cfg.BlockTime)
}

func (cfg *Config) IsEcotoneActivationBlock(l2BlockTime uint64) bool {
	return cfg.IsActivationBlockForFork(l2BlockTime, Ecotone)
}

func (cfg *Config) ActivationTimeFor(fork ForkName) *uint64 {
	return *cfg.forkTime(fork)
}

// ActivateAtGenesis schedules fork and every fork before it at genesis.
// Later forks are left as they are.
func (cfg *Config) ActivateAtGenesis(fork ForkName) {
	for _, f := range AllForks {
		zero := uint64(0)
		*cfg.forkTime(f) = &zero
		if f == fork {
			return
		}
	}
}

func (cfg *Config) forkTime(fork ForkName) **uint64 {
	switch fork {
	case Regolith:
		return &cfg.RegolithTime
	case Canyon:
		return &cfg.CanyonTime
	case Delta:
		return &cfg.DeltaTime
	case Ecotone:
		return &cfg.EcotoneTime
	case Fjord:
		return &cfg.FjordTime
	case Granite:
		return &cfg.GraniteTime
	case Holocene:
		return &cfg.HoloceneTime
	default:
		panic(fmt.Sprintf("unknown fork: %v", fork))
	}
}

// LogDescription logs the genesis anchor and fork schedule. The config must have passed Check.
func (cfg *Config) LogDescription(logger log.Logger) {
	l1Network := params.NetworkNames[cfg.L1ChainID.String()]
	if l1Network == "" {
		l1Network = "unknown L1"
	}
	attrs := []any{
		"l2_chain_id", cfg.L2ChainID,
		"l1_chain_id", cfg.L1ChainID,
		"l1_network", l1Network,
		"genesis_l1", cfg.Genesis.L1,
		"genesis_l2", cfg.Genesis.L2,
		"genesis_l2_time", cfg.Genesis.L2Time,
	}
	for _, fork := range AllForks {
		attrs = append(attrs, string(fork)+"_time", describeForkTime(cfg.ActivationTimeFor(fork)))
	}
	logger.Info("Rollup config", attrs...)
}

// ParseRollupConfig decodes a JSON rollup config, rejecting unknown fields.
func (cfg *Config) ParseRollupConfig(in io.Reader) error {
	dec := json.NewDecoder(in)
	dec.DisallowUnknownFields()
	if err := dec.Decode(cfg); err != nil {
		return fmt.Errorf("failed to decode rollup config: %w", err)
	}
	return nil
}

func describeForkTime(t *uint64) string {
	switch {
	case t == nil:
		return "(not configured)"
	case *t == 0:
		return "@ genesis"
	default:
		return fmt.Sprintf("@ %d (%s)", *t, time.Unix(int64(*t), 0).UTC().Format(time.RFC3339))
	}
}
