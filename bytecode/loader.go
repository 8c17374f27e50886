// Package bytecode loads modules from bytecode blobs embedded in the
// module table.
//
// The module object is placed in the host module table before its body
// runs, so compiled modules that import each other circularly see the
// partially initialized module instead of recursing.
package bytecode

import (
	"context"

	"go.uber.org/zap"

	"github.com/wippyai/metapath"
	"github.com/wippyai/metapath/errors"
	"github.com/wippyai/metapath/registry"
)

// Loader executes bytecode entries.
type Loader struct {
	host     metapath.Host
	identity any
	variant  metapath.Variant
}

// New creates a loader. identity is stored as the loader attribute of
// every module when the variant expects it.
func New(host metapath.Host, variant metapath.Variant, identity any) *Loader {
	return &Loader{host: host, variant: variant, identity: identity}
}

// Load decodes and executes entry. A blob that fails to decode, or a module
// slot that is already taken, is a fatal integrity error. Errors raised by
// the module body are returned unchanged.
func (l *Loader) Load(ctx context.Context, entry *registry.Entry) (metapath.Module, error) {
	code, err := l.host.Unmarshal(entry.Blob)
	if err != nil {
		return nil, errors.Integrity(errors.PhaseBytecode, entry.Name, "unmarshal embedded bytecode", err)
	}

	modules := l.host.Modules()
	if _, exists := modules.Get(entry.Name); exists {
		return nil, errors.New(errors.PhaseBytecode, errors.KindSlotOccupied).
			Module(entry.Name).
			Detail("module already present in the module table").
			Fatal().
			Build()
	}

	mod := l.host.NewModule(entry.Name)
	modules.Set(entry.Name, mod)

	base := l.host.BaseDir()
	file := Relative(base, SourcePath(entry.Name, entry.IsPackage(), l.variant.SourceExt))

	if entry.IsPackage() {
		dir := Relative(base, ModulePath(entry.Name))
		if err := mod.SetAttr(metapath.AttrPath, []string{dir}); err != nil {
			return nil, errors.New(errors.PhaseBytecode, errors.KindBadModule).
				Module(entry.Name).
				Detail("set package path").
				Cause(err).
				Build()
		}
	}

	Logger().Debug("executing bytecode",
		zap.String("module", entry.Name),
		zap.String("file", file),
		zap.Int("size", entry.Size()))

	mod, err = l.host.Exec(ctx, mod, code, file)
	if err != nil {
		return nil, err
	}

	if l.variant.SetsLoader {
		if err := mod.SetAttr(metapath.AttrLoader, l.identity); err != nil {
			return nil, errors.New(errors.PhaseBytecode, errors.KindBadModule).
				Module(entry.Name).
				Detail("set loader").
				Cause(err).
				Build()
		}
	}

	return mod, nil
}
