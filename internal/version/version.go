// ABOUTME: Version information for resonate-ao
// ABOUTME: Product, manufacturer and release version reported by the CLI
package version

const (
	// Version is the release version
	Version = "0.1.0"
	// Product is the product name
	Product = "resonate-ao"
	// Manufacturer is reported as the stream's application vendor
	Manufacturer = "Resonate"
)

// String returns the version line printed by -version
func String() string {
	return Product + " " + Version
}
