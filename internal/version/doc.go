// Package version holds the build metadata of the garage-door binaries.
//
// Version, Commit and BuildTime are set with -ldflags -X at build time.
package version
