package memhost

import (
	"context"
	"sort"
	"strings"

	"github.com/tetratelabs/wazero/api"

	"github.com/wippyai/metapath"
)

// Attributes set on modules adopted from extension entry points.
const (
	AttrWasm    = "__wasm__"
	AttrExports = "__exports__"
	AttrResult  = "__init_result__"
)

// extensionName is the package context when the entry point ran inside a
// package, otherwise the symbol with the entry prefix removed.
func (h *Host) extensionName(ctx context.Context, symbol string) string {
	if pkg := metapath.PackageFrom(ctx); pkg != "" {
		return pkg
	}
	if pkg := h.PackageContext(); pkg != "" {
		return pkg
	}
	return strings.TrimPrefix(symbol, h.opts.Variant.EntryPrefix)
}

// adopt finishes an extension module the way its entry point would: it is
// returned directly when the variant expects that, and otherwise only
// placed in the module table.
func (h *Host) adopt(mod *Module) metapath.Module {
	if h.opts.Variant.EntryReturnsModule {
		return mod
	}
	h.modules.Set(mod.Name(), mod)
	return nil
}

// AdoptWasm turns an instantiated wasm extension into a module. The
// instance, its exported function names and the entry point results become
// attributes.
func (h *Host) AdoptWasm(ctx context.Context, symbol string, inst api.Module, results []uint64) (metapath.Module, error) {
	mod := NewExtension(h.extensionName(ctx, symbol))

	defs := inst.ExportedFunctionDefinitions()
	exports := make([]string, 0, len(defs))
	for name := range defs {
		exports = append(exports, name)
	}
	sort.Strings(exports)

	if err := mod.SetAttr(AttrWasm, inst); err != nil {
		return nil, err
	}
	if err := mod.SetAttr(AttrExports, exports); err != nil {
		return nil, err
	}
	if err := mod.SetAttr(AttrResult, append([]uint64(nil), results...)); err != nil {
		return nil, err
	}
	return h.adopt(mod), nil
}

// AdoptNative turns the value returned by a native entry point into a
// module.
func (h *Host) AdoptNative(ctx context.Context, symbol string, ret uintptr) (metapath.Module, error) {
	if ret == 0 && h.opts.Variant.EntryReturnsModule {
		return nil, nil
	}
	mod := NewExtension(h.extensionName(ctx, symbol))
	if err := mod.SetAttr(AttrResult, ret); err != nil {
		return nil, err
	}
	return h.adopt(mod), nil
}
