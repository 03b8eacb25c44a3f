package l2

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"
)

func TestHints(t *testing.T) {
	hash := common.HexToHash("0x0102030405060708090a0b0c0d0e0f101112131415161718191a1b1c1d1e1f20")
	addr := common.HexToAddress("0xaabbccddeeff00112233445566778899aabbccdd")

	require.Equal(t, "l2-block-header "+hash.Hex(), BlockHeaderHint(hash).Hint())
	require.Equal(t, "l2-transactions "+hash.Hex(), TransactionsHint(hash).Hint())
	require.Equal(t, "l2-code "+hash.Hex(), CodeHint(hash).Hint())
	require.Equal(t, "starting-l2-output "+hash.Hex(), StartingOutputHint(hash).Hint())
	require.Equal(t, "l2-state-node "+hash.Hex(), StateNodeHint(hash).Hint())

	require.Equal(t,
		"l2-account-proof 0x000000000000002aaabbccddeeff00112233445566778899aabbccdd",
		AccountProofHint{BlockNumber: 42, Address: addr}.Hint())
	require.Equal(t,
		"l2-account-storage-proof 0x000000000000002aaabbccddeeff00112233445566778899aabbccdd"+hash.Hex()[2:],
		StorageProofHint{BlockNumber: 42, Address: addr, Slot: hash}.Hint())
}
