//go:build darwin || linux || freebsd

package shlib

import (
	"context"
	"fmt"

	"github.com/ebitengine/purego"

	"github.com/wippyai/metapath"
)

// DefaultDlopenFlags is used when the host reports no flags.
const DefaultDlopenFlags = purego.RTLD_NOW | purego.RTLD_GLOBAL

// NativeAdoptFunc converts the raw return value of a native entry point
// into a module.
type NativeAdoptFunc func(ctx context.Context, symbol string, ret uintptr) (metapath.Module, error)

// DlopenOpener opens native shared objects with the system dynamic loader.
type DlopenOpener struct {
	adopt NativeAdoptFunc
}

// NewDlopenOpener creates an opener handing entry point results to adopt.
func NewDlopenOpener(adopt NativeAdoptFunc) *DlopenOpener {
	return &DlopenOpener{adopt: adopt}
}

// Open dlopens path.
func (o *DlopenOpener) Open(_ context.Context, path string, flags int) (Library, error) {
	if flags == 0 {
		flags = DefaultDlopenFlags
	}
	handle, err := purego.Dlopen(path, flags)
	if err != nil {
		return nil, err
	}
	return &dlLibrary{handle: handle, path: path, adopt: o.adopt}, nil
}

type dlLibrary struct {
	adopt  NativeAdoptFunc
	path   string
	handle uintptr
}

func (l *dlLibrary) Lookup(symbol string) (Symbol, error) {
	addr, err := purego.Dlsym(l.handle, symbol)
	if err != nil {
		return nil, err
	}
	if addr == 0 {
		return nil, fmt.Errorf("%s: symbol %s resolved to nil", l.path, symbol)
	}
	return &dlSymbol{lib: l, name: symbol, addr: addr}, nil
}

func (l *dlLibrary) Close() error {
	return purego.Dlclose(l.handle)
}

type dlSymbol struct {
	lib  *dlLibrary
	name string
	addr uintptr
}

func (s *dlSymbol) Call(ctx context.Context) (metapath.Module, error) {
	ret, _, _ := purego.SyscallN(s.addr)
	if s.lib.adopt == nil {
		return nil, nil
	}
	return s.lib.adopt(ctx, s.name, ret)
}
