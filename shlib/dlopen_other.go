//go:build !(darwin || linux || freebsd)

package shlib

import (
	"context"

	"github.com/wippyai/metapath"
	"github.com/wippyai/metapath/errors"
)

// DefaultDlopenFlags is used when the host reports no flags.
const DefaultDlopenFlags = 0

// NativeAdoptFunc converts the raw return value of a native entry point
// into a module.
type NativeAdoptFunc func(ctx context.Context, symbol string, ret uintptr) (metapath.Module, error)

// DlopenOpener is unavailable on this platform.
type DlopenOpener struct{}

// NewDlopenOpener creates an opener that always fails.
func NewDlopenOpener(NativeAdoptFunc) *DlopenOpener {
	return &DlopenOpener{}
}

// Open reports that native extensions are unsupported.
func (o *DlopenOpener) Open(context.Context, string, int) (Library, error) {
	return nil, errors.Unsupported(errors.PhaseShlib, "native shared libraries on this platform")
}
