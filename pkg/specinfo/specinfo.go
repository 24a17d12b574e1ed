// Package specinfo describes the specification versions a UWB device stack
// implements.
package specinfo

import (
	"fmt"
)

// Transferable form keys.
const (
	KeyFiRa    = "fira_stack_info"
	KeyCCC     = "ccc_stack_info"
	KeyUCI     = "uci_stack_info"
	KeyMAC     = "mac_stack_info"
	KeyPHY     = "phy_stack_info"
	KeyUCITest = "ucitest_stack_info"
)

// Profile versions assumed when the device does not report them.
var (
	DefaultFiRa = Version{Major: 1, Minor: 1}
	DefaultCCC  = Version{Major: 1, Minor: 0}
)

// Version is a major.minor specification version.
type Version struct {
	Major int `mapstructure:"major" json:"major" validate:"gte=0"`
	Minor int `mapstructure:"minor" json:"minor" validate:"gte=0"`
}

func (v Version) String() string {
	return fmt.Sprintf("%d.%d", v.Major, v.Minor)
}

// Info holds the versions of each stack layer and profile.
type Info struct {
	UCI     Version `mapstructure:"uci" json:"uci"`
	MAC     Version `mapstructure:"mac" json:"mac"`
	PHY     Version `mapstructure:"phy" json:"phy"`
	UCITest Version `mapstructure:"uci_test" json:"uci_test"`
	FiRa    Version `mapstructure:"fira" json:"fira"`
	CCC     Version `mapstructure:"ccc" json:"ccc"`
}

// New creates an Info from major/minor pairs in device-info order.
func New(uciMajor, uciMinor, macMajor, macMinor, phyMajor, phyMinor,
	uciTestMajor, uciTestMinor, firaMajor, firaMinor, cccMajor, cccMinor int) Info {
	return Info{
		UCI:     Version{Major: uciMajor, Minor: uciMinor},
		MAC:     Version{Major: macMajor, Minor: macMinor},
		PHY:     Version{Major: phyMajor, Minor: phyMinor},
		UCITest: Version{Major: uciTestMajor, Minor: uciTestMinor},
		FiRa:    Version{Major: firaMajor, Minor: firaMinor},
		CCC:     Version{Major: cccMajor, Minor: cccMinor},
	}
}

// ToTransferable returns the six "major.minor" strings keyed by layer name.
func (i Info) ToTransferable() map[string]string {
	return map[string]string{
		KeyFiRa:    i.FiRa.String(),
		KeyCCC:     i.CCC.String(),
		KeyUCI:     i.UCI.String(),
		KeyMAC:     i.MAC.String(),
		KeyPHY:     i.PHY.String(),
		KeyUCITest: i.UCITest.String(),
	}
}

// Validate rejects negative version numbers.
func (i Info) Validate() error {
	for _, f := range []struct {
		name string
		v    Version
	}{
		{"uci", i.UCI}, {"mac", i.MAC}, {"phy", i.PHY},
		{"uci_test", i.UCITest}, {"fira", i.FiRa}, {"ccc", i.CCC},
	} {
		if f.v.Major < 0 || f.v.Minor < 0 {
			return fmt.Errorf("%s version %s must not be negative", f.name, f.v)
		}
	}
	return nil
}
