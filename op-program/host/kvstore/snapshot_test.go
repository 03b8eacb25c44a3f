package kvstore

import (
	"bytes"
	"encoding/binary"
	"path/filepath"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"
)

func filledKV(t *testing.T, entries map[common.Hash][]byte) *MemKV {
	kv := NewMemKV()
	for k, v := range entries {
		require.NoError(t, kv.Put(k, v))
	}
	return kv
}

func TestEncodeSnapshot(t *testing.T) {
	entries := map[common.Hash][]byte{
		{0x03}: []byte("third"),
		{0x01}: []byte("first"),
		{0x02}: {},
	}

	var a, b bytes.Buffer
	n, err := EncodeSnapshot(&a, filledKV(t, entries))
	require.NoError(t, err)
	require.Equal(t, 3, n)
	_, err = EncodeSnapshot(&b, filledKV(t, entries))
	require.NoError(t, err)
	require.Equal(t, a.Bytes(), b.Bytes(), "encoding must be deterministic")

	raw := a.Bytes()
	require.Equal(t, common.Hash{0x01}, common.BytesToHash(raw[:32]), "entries sorted by key")
	require.Equal(t, uint32(5), binary.BigEndian.Uint32(raw[32:36]))
	require.Equal(t, "first", string(raw[36:41]))
	require.Len(t, raw, 3*36+len("first")+len("third"))

	decoded := NewMemKV()
	n, err = DecodeSnapshot(bytes.NewReader(raw), decoded)
	require.NoError(t, err)
	require.Equal(t, 3, n)
	for k, v := range entries {
		got, err := decoded.Get(k)
		require.NoError(t, err)
		require.Equal(t, v, got)
	}
}

func TestEncodeSnapshotFirstSourceWins(t *testing.T) {
	first := filledKV(t, map[common.Hash][]byte{{0x01}: []byte("a")})
	second := filledKV(t, map[common.Hash][]byte{{0x01}: []byte("b"), {0x02}: []byte("c")})
	var buf bytes.Buffer
	n, err := EncodeSnapshot(&buf, first, second)
	require.NoError(t, err)
	require.Equal(t, 2, n)
	kv := NewMemKV()
	_, err = DecodeSnapshot(&buf, kv)
	require.NoError(t, err)
	v, err := kv.Get(common.Hash{0x01})
	require.NoError(t, err)
	require.Equal(t, []byte("a"), v)
}

func TestDecodeSnapshotErrors(t *testing.T) {
	var buf bytes.Buffer
	_, err := EncodeSnapshot(&buf, filledKV(t, map[common.Hash][]byte{{0x01}: []byte("value")}))
	require.NoError(t, err)
	valid := buf.Bytes()

	t.Run("TruncatedHeader", func(t *testing.T) {
		_, err := DecodeSnapshot(bytes.NewReader(valid[:20]), NewMemKV())
		require.ErrorIs(t, err, ErrInvalidSnapshot)
	})

	t.Run("TruncatedValue", func(t *testing.T) {
		_, err := DecodeSnapshot(bytes.NewReader(valid[:len(valid)-1]), NewMemKV())
		require.ErrorIs(t, err, ErrInvalidSnapshot)
	})

	t.Run("OutOfOrder", func(t *testing.T) {
		twice := append(append([]byte{}, valid...), valid...)
		_, err := DecodeSnapshot(bytes.NewReader(twice), NewMemKV())
		require.ErrorIs(t, err, ErrInvalidSnapshot)
	})

	t.Run("Empty", func(t *testing.T) {
		n, err := DecodeSnapshot(bytes.NewReader(nil), NewMemKV())
		require.NoError(t, err)
		require.Zero(t, n)
	})
}

func TestSnapshotFile(t *testing.T) {
	dir := t.TempDir()
	src := NewDiskKV(dir)
	require.NoError(t, src.Put(common.Hash{0xaa}, []byte("disk")))
	local, err := NewLocalPreimageSource(testBootInfo())
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "snapshot.zst")
	n, err := WriteSnapshotFile(path, local, src)
	require.NoError(t, err)
	require.Equal(t, 7, n)

	kv, err := LoadSnapshotFile(path)
	require.NoError(t, err)
	require.Equal(t, 7, kv.Len())
	v, err := kv.Get(common.Hash{0xaa})
	require.NoError(t, err)
	require.Equal(t, []byte("disk"), v)

	_, err = LoadSnapshotFile(filepath.Join(dir, "missing"))
	require.Error(t, err)
}
