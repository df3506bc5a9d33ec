// Package cli parses command-line arguments into an app.Config and defines
// the exit-code contract of the binary.
package cli
