// Package abort terminates the process on integrity violations.
package abort

import (
	"fmt"
	"io"
	"os"
	"runtime/debug"
	"sync"
)

// ExitCode is used when the process is terminated for a fatal error.
const ExitCode = 134

// Func handles a fatal error. It must not return.
type Func func(err error)

var (
	mu     sync.Mutex
	out    io.Writer = os.Stderr
	exitFn           = os.Exit
)

// Exit prints a diagnostic dump of err and the current stack, then exits
// with ExitCode.
func Exit(err error) {
	mu.Lock()
	w, exit := out, exitFn
	mu.Unlock()

	fmt.Fprintf(w, "metapath: fatal: %v\n", err)
	w.Write(debug.Stack())
	exit(ExitCode)
}

// SetOutput redirects the diagnostic dump. It returns a function restoring
// the previous writer.
func SetOutput(w io.Writer) func() {
	mu.Lock()
	defer mu.Unlock()
	prev := out
	out = w
	return func() {
		mu.Lock()
		out = prev
		mu.Unlock()
	}
}
