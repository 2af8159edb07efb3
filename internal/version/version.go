// ABOUTME: Version and product identity
// ABOUTME: Reported by the version command and written as the ENCODER tag
package version

const (
	Version      = "0.1.0"
	Product      = "resonate-codec"
	Manufacturer = "Resonate"
)

// EncoderTag is the ENCODER comment written into encoded streams
func EncoderTag() string {
	return Product + " " + Version
}
