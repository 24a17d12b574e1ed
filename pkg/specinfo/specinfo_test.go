package specinfo

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToTransferable(t *testing.T) {
	info := New(2, 0, 1, 1, 1, 0, 1, 0, 2, 0, 1, 0)

	got := info.ToTransferable()
	assert.Equal(t, map[string]string{
		"uci_stack_info":     "2.0",
		"mac_stack_info":     "1.1",
		"phy_stack_info":     "1.0",
		"ucitest_stack_info": "1.0",
		"fira_stack_info":    "2.0",
		"ccc_stack_info":     "1.0",
	}, got)
}

func TestToTransferable_MultiDigit(t *testing.T) {
	info := Info{UCI: Version{Major: 12, Minor: 34}}
	got := info.ToTransferable()
	assert.Len(t, got, 6)
	assert.Equal(t, "12.34", got[KeyUCI])
	assert.Equal(t, "0.0", got[KeyCCC])
}

func TestPackedVersion(t *testing.T) {
	// minor 3, maintenance 5, major 2
	p := PackedVersion(0x3502)
	assert.Equal(t, 2, p.Major())
	assert.Equal(t, 3, p.Minor())
	assert.Equal(t, 5, p.Maintenance())
	assert.Equal(t, Version{Major: 2, Minor: 3}, p.Version())
}

func TestFromPacked(t *testing.T) {
	info := FromPacked(0x0002, 0x1101, 0x0001, 0x0001, DefaultFiRa, DefaultCCC)
	assert.Equal(t, map[string]string{
		KeyUCI:     "2.0",
		KeyMAC:     "1.1",
		KeyPHY:     "1.0",
		KeyUCITest: "1.0",
		KeyFiRa:    "1.1",
		KeyCCC:     "1.0",
	}, info.ToTransferable())
}

func TestValidate(t *testing.T) {
	require.NoError(t, New(2, 0, 1, 1, 1, 0, 1, 0, 2, 0, 1, 0).Validate())

	err := Info{PHY: Version{Major: 1, Minor: -1}}.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "phy")
}
