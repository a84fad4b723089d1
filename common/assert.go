package common

import (
	"runtime"

	"github.com/devlights/gomy/output"
)

// Assert panics when an internal invariant does not hold, dumping the
// stacks of all goroutines first.
func Assert(condition bool, msg string) {
	if !condition {
		DumpStacks()
		panic(msg)
	}
}

// DumpStacks prints the stacks of all goroutines. Diagnostic helper for
// hung tests.
func DumpStacks() {
	buf := make([]byte, 1024)
	for {
		n := runtime.Stack(buf, true)
		if n < len(buf) {
			buf = buf[:n]
			break
		}
		buf = make([]byte, 2*len(buf))
	}
	output.Stdoutl("=== stack-all", string(buf))
}
