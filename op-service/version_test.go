package op_service

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFormatVersion(t *testing.T) {
	require.Equal(t, "v1.2.3", FormatVersion("v1.2.3", "", "", ""))
	require.Equal(t, "v1.2.3-abcdef01-1700000000-rc", FormatVersion("v1.2.3", "abcdef0123456789", "1700000000", "rc"))
	require.Equal(t, "v1.2.3-abc", FormatVersion("v1.2.3", "abc", "", ""))
}

func TestPrefixEnvVar(t *testing.T) {
	require.Equal(t, []string{"OP_MULTIBLOCK_DATADIR"}, PrefixEnvVar("OP_MULTIBLOCK", "DATADIR"))
}
