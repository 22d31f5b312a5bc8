// Package version records the chipview build version.
package version

// Version is the current chipview release. Overridden at build time via
// -ldflags "-X github.com/vanderheijden86/chipview/pkg/version.Version=...".
var Version = "0.3.0"
