package shlib

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/wippyai/metapath"
)

// Opener opens extension files.
type Opener interface {
	Open(ctx context.Context, path string, flags int) (Library, error)
}

// Library is an opened extension file.
type Library interface {
	Lookup(symbol string) (Symbol, error)
	Close() error
}

// Symbol is a resolved entry point. Call returns the module the entry
// point produced, or nil when the convention registers it in the module
// table instead.
type Symbol interface {
	Call(ctx context.Context) (metapath.Module, error)
}

// MultiOpener dispatches on file suffix. The longest matching suffix wins.
type MultiOpener map[string]Opener

// Open opens path with the opener registered for its suffix.
func (m MultiOpener) Open(ctx context.Context, path string, flags int) (Library, error) {
	suffixes := make([]string, 0, len(m))
	for s := range m {
		suffixes = append(suffixes, s)
	}
	sort.Slice(suffixes, func(i, j int) bool { return len(suffixes[i]) > len(suffixes[j]) })

	for _, s := range suffixes {
		if strings.HasSuffix(path, s) {
			return m[s].Open(ctx, path, flags)
		}
	}
	return nil, fmt.Errorf("no opener for %q", path)
}
