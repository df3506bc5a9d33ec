// Package envbuild assembles isolated execution environments from ordered
// layers. A successful build produces an immutable snapshot addressed by a
// Handle; jobs never run inside the snapshot itself but in short-lived
// leases cloned from it. Builds of identical specs are cached by content
// digest, so rebuilding the same environment is idempotent.
package envbuild
