package fcversion

import "fmt"

// Split returns the components of a MultiWii firmware version
// as reported by MSP_IDENT, where 2.3.0 is encoded as 230.
func Split(v uint8) (major, minor, patch int) {
	return int(v) / 100, int(v) % 100 / 10, int(v) % 10
}

// Format returns a user-visible version string from
// the major, minor and patch components
func Format(major, minor, patch int) string {
	return fmt.Sprintf("%d.%d.%d", major, minor, patch)
}

// String formats an MSP_IDENT version byte.
func String(v uint8) string {
	return Format(Split(v))
}
