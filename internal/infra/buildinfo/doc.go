// Package buildinfo exposes build information for peptrackr binaries.
//
// Version, Commit and BuildTime are injected via ldflags:
//
//	go build -ldflags "-X github.com/mcnannay/peptrackr/internal/infra/buildinfo.Version=v1.0.0"
//
// When they are not set, Commit and BuildTime fall back to the VCS stamp the
// Go toolchain embeds in the binary.
package buildinfo
