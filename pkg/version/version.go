// Package version identifies this build and the control protocol it speaks.
package version

import (
	"fmt"
	"runtime"
)

// Set via ldflags at build time.
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildDate = "unknown"
)

// Protocol is the revision of the controller RPC surface. Bump it whenever
// a request or response changes shape.
const Protocol uint32 = 1

// Compatible reports whether a peer speaking protocol remote can talk to us.
func Compatible(remote uint32) bool {
	return remote == Protocol
}

// String renders the build for humans.
func String() string {
	return fmt.Sprintf("%s (commit %s, built %s, %s %s/%s)",
		Version, Commit, BuildDate, runtime.Version(), runtime.GOOS, runtime.GOARCH)
}
