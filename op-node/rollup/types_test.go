package rollup

import (
	"bytes"
	"encoding/json"
	"math/big"
	"math/rand"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"

	"github.com/mantlenetworkio/op-multiblock/op-service/eth"
)

func testConfig(seed int64) *Config {
	rng := rand.New(rand.NewSource(seed))
	var hashes [4]common.Hash
	for i := range hashes {
		rng.Read(hashes[i][:])
	}
	var addrs [4]common.Address
	for i := range addrs {
		rng.Read(addrs[i][:])
	}
	return &Config{
		Genesis: Genesis{
			L1:     eth.BlockID{Hash: hashes[0], Number: 424242},
			L2:     eth.BlockID{Hash: hashes[1], Number: 1337},
			L2Time: 1_700_000_000,
			SystemConfig: eth.SystemConfig{
				BatcherAddr: addrs[0],
				Overhead:    eth.Bytes32(hashes[2]),
				Scalar:      eth.Bytes32(hashes[3]),
				GasLimit:    30_000_000,
			},
		},
		BlockTime:              2,
		L1ChainID:              big.NewInt(11155111),
		L2ChainID:              big.NewInt(5003),
		BatchInboxAddress:      addrs[1],
		DepositContractAddress: addrs[2],
		L1SystemConfigAddress:  addrs[3],
	}
}

func TestParseRollupConfig(t *testing.T) {
	t.Run("RoundTrip", func(t *testing.T) {
		cfg := testConfig(1)
		cfg.ActivateAtGenesis(Delta)
		data, err := json.Marshal(cfg)
		require.NoError(t, err)

		var parsed Config
		require.NoError(t, parsed.ParseRollupConfig(bytes.NewReader(data)))
		require.Equal(t, cfg, &parsed)
	})

	t.Run("UnknownField", func(t *testing.T) {
		var cfg Config
		err := cfg.ParseRollupConfig(strings.NewReader(`{"block_time": 2, "seq_window_size": 3600}`))
		require.ErrorContains(t, err, "failed to decode rollup config")
	})

	t.Run("Malformed", func(t *testing.T) {
		var cfg Config
		err := cfg.ParseRollupConfig(strings.NewReader(`{"block_time":`))
		require.ErrorContains(t, err, "failed to decode rollup config")
	})
}

func TestTimestampForBlock(t *testing.T) {
	cfg := testConfig(2)
	cfg.Genesis.L2Time = 100
	cfg.Genesis.L2.Number = 10
	require.Equal(t, uint64(100), cfg.TimestampForBlock(10))
	require.Equal(t, uint64(102), cfg.TimestampForBlock(11))
	require.Equal(t, uint64(120), cfg.TimestampForBlock(20))
}

func TestCheck(t *testing.T) {
	require.NoError(t, testConfig(3).Check())

	tests := map[string]struct {
		mutate func(cfg *Config)
		want   error
	}{
		"BlockTimeZero":     {func(cfg *Config) { cfg.BlockTime = 0 }, ErrBlockTimeZero},
		"MissingGenesisL1":  {func(cfg *Config) { cfg.Genesis.L1.Hash = common.Hash{} }, ErrMissingGenesisL1Hash},
		"MissingGenesisL2":  {func(cfg *Config) { cfg.Genesis.L2.Hash = common.Hash{} }, ErrMissingGenesisL2Hash},
		"MissingGenesisTime": {func(cfg *Config) { cfg.Genesis.L2Time = 0 }, ErrMissingGenesisL2Time},
		"SameGenesisHashes": {func(cfg *Config) { cfg.Genesis.L2.Hash = cfg.Genesis.L1.Hash }, ErrGenesisHashesSame},
		"MissingBatcher": {
			func(cfg *Config) { cfg.Genesis.SystemConfig.BatcherAddr = common.Address{} },
			ErrMissingBatcherAddr,
		},
		"MissingScalar":   {func(cfg *Config) { cfg.Genesis.SystemConfig.Scalar = eth.Bytes32{} }, ErrMissingScalar},
		"MissingGasLimit": {func(cfg *Config) { cfg.Genesis.SystemConfig.GasLimit = 0 }, ErrMissingGasLimit},
		"MissingInbox":    {func(cfg *Config) { cfg.BatchInboxAddress = common.Address{} }, ErrMissingBatchInboxAddress},
		"MissingDepositContract": {
			func(cfg *Config) { cfg.DepositContractAddress = common.Address{} },
			ErrMissingDepositContractAddress,
		},
		"MissingL1ChainID":  {func(cfg *Config) { cfg.L1ChainID = nil }, ErrMissingL1ChainID},
		"MissingL2ChainID":  {func(cfg *Config) { cfg.L2ChainID = nil }, ErrMissingL2ChainID},
		"SameChainIDs":      {func(cfg *Config) { cfg.L2ChainID = new(big.Int).Set(cfg.L1ChainID) }, ErrChainIDsSame},
		"ZeroL1ChainID":     {func(cfg *Config) { cfg.L1ChainID = new(big.Int) }, ErrL1ChainIDNotPositive},
		"NegativeL2ChainID": {func(cfg *Config) { cfg.L2ChainID = big.NewInt(-5) }, ErrL2ChainIDNotPositive},
	}
	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			cfg := testConfig(3)
			tc.mutate(cfg)
			require.ErrorIs(t, cfg.Check(), tc.want)
		})
	}
}

func TestCheckForkOrder(t *testing.T) {
	at := func(v uint64) *uint64 { return &v }

	t.Run("GapInSchedule", func(t *testing.T) {
		cfg := testConfig(4)
		cfg.ActivateAtGenesis(Canyon)
		cfg.EcotoneTime = at(10)
		require.ErrorContains(t, cfg.Check(), "prior fork delta missing")
	})

	t.Run("OutOfOrder", func(t *testing.T) {
		cfg := testConfig(4)
		cfg.RegolithTime = at(0)
		cfg.CanyonTime = at(20)
		cfg.DeltaTime = at(10)
		require.ErrorContains(t, cfg.Check(), "higher offset")
	})

	t.Run("SameTime", func(t *testing.T) {
		cfg := testConfig(4)
		cfg.RegolithTime = at(0)
		cfg.CanyonTime = at(10)
		cfg.DeltaTime = at(10)
		cfg.EcotoneTime = at(20)
		require.NoError(t, cfg.Check())
	})

	t.Run("AllAtGenesis", func(t *testing.T) {
		cfg := testConfig(4)
		cfg.ActivateAtGenesis(AllForks[len(AllForks)-1])
		require.NoError(t, cfg.Check())
	})
}

func TestActivateAtGenesis(t *testing.T) {
	cfg := testConfig(5)
	for _, fork := range AllForks {
		require.Nil(t, cfg.ActivationTimeFor(fork), fork)
	}

	cfg.ActivateAtGenesis(Canyon)
	require.True(t, cfg.IsRegolith(0))
	require.True(t, cfg.IsCanyon(0))
	require.False(t, cfg.IsEcotone(1_000_000))
	require.Nil(t, cfg.ActivationTimeFor(Delta))

	ecotone := uint64(100)
	cfg.DeltaTime = &ecotone
	cfg.EcotoneTime = &ecotone
	require.False(t, cfg.IsEcotone(99))
	require.True(t, cfg.IsEcotone(100))
	require.False(t, cfg.IsHolocene(200))
}

func TestIsEcotoneActivationBlock(t *testing.T) {
	cfg := testConfig(6)
	ecotone := uint64(100)
	cfg.EcotoneTime = &ecotone

	for ts, want := range map[uint64]bool{98: false, 100: true, 101: true, 102: false} {
		require.Equal(t, want, cfg.IsEcotoneActivationBlock(ts), "timestamp %d", ts)
	}

	genesis := uint64(0)
	cfg.EcotoneTime = &genesis
	require.False(t, cfg.IsEcotoneActivationBlock(0))
	require.False(t, cfg.IsEcotoneActivationBlock(2))
}
