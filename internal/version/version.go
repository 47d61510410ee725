// ABOUTME: Version and product identity constants
// ABOUTME: Single source of truth for what this build calls itself
package version

const (
	Version      = "0.1.0"
	Product      = "unison-go"
	Manufacturer = "Unison Audio"
)
