package specinfo

// PackedVersion is a 16-bit version word from UCI generic device info.
// Bits 0-7 hold the major version, bits 8-11 the maintenance release and
// bits 12-15 the minor version.
type PackedVersion uint16

// Major returns bits 0-7.
func (p PackedVersion) Major() int {
	return int(p & 0xFF)
}

// Minor returns bits 12-15.
func (p PackedVersion) Minor() int {
	return int((p >> 12) & 0x0F)
}

// Maintenance returns bits 8-11.
func (p PackedVersion) Maintenance() int {
	return int((p >> 8) & 0x0F)
}

// Version drops the maintenance release.
func (p PackedVersion) Version() Version {
	return Version{Major: p.Major(), Minor: p.Minor()}
}

// FromPacked builds an Info from the packed layer versions reported by the
// device and the profile versions supplied by the stack.
func FromPacked(uci, mac, phy, uciTest PackedVersion, fira, ccc Version) Info {
	return Info{
		UCI:     uci.Version(),
		MAC:     mac.Version(),
		PHY:     phy.Version(),
		UCITest: uciTest.Version(),
		FiRa:    fira,
		CCC:     ccc,
	}
}
