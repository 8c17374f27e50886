package importer

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/wippyai/metapath"
	"github.com/wippyai/metapath/bytecode"
	"github.com/wippyai/metapath/errors"
	"github.com/wippyai/metapath/internal/abort"
	"github.com/wippyai/metapath/registry"
	"github.com/wippyai/metapath/shlib"
	"github.com/wippyai/metapath/trigger"
)

// LoaderName is the name the importer presents to the host.
const LoaderName = "_metapath_compiled_modules_loader"

// Options configures an Importer.
type Options struct {
	// Opener opens shared-library extensions. Defaults to the system
	// dynamic loader, adopting results through the host when it can.
	Opener shlib.Opener

	// Abort is called with fatal errors and must not return. Defaults to
	// printing the error and a stack dump, then exiting.
	Abort func(err error)

	// Suffix overrides the variant's extension file suffix.
	Suffix string

	Variant metapath.Variant

	// Verbose traces finder and loader decisions at info level.
	Verbose bool
}

// DefaultOptions returns options for the modern protocol.
func DefaultOptions() Options {
	return Options{
		Variant: metapath.Modern,
		Abort:   abort.Exit,
	}
}

// nativeAdopter is implemented by hosts that can wrap the raw return value
// of a native entry point.
type nativeAdopter interface {
	AdoptNative(ctx context.Context, symbol string, ret uintptr) (metapath.Module, error)
}

// Importer is the meta path finder and loader for compiled modules.
type Importer struct {
	host     metapath.Host
	registry *registry.Registry
	frozen   registry.FrozenSet
	triggers *trigger.Dispatcher
	bytecode *bytecode.Loader
	shlib    *shlib.Loader
	opts     Options
}

// New creates an importer over reg. frozen may be nil when the host has no
// frozen modules.
func New(host metapath.Host, reg *registry.Registry, frozen registry.FrozenSet, opts Options) *Importer {
	if opts.Variant.Name == "" {
		opts.Variant = metapath.Modern
	}
	if opts.Abort == nil {
		opts.Abort = abort.Exit
	}
	if opts.Opener == nil {
		var adopt shlib.NativeAdoptFunc
		if a, ok := host.(nativeAdopter); ok {
			adopt = a.AdoptNative
		}
		opts.Opener = shlib.NewDlopenOpener(adopt)
	}

	imp := &Importer{
		host:     host,
		registry: reg,
		frozen:   frozen,
		triggers: trigger.New(reg, opts.Verbose),
		opts:     opts,
	}
	imp.bytecode = bytecode.New(host, opts.Variant, imp)
	imp.shlib = shlib.New(host, opts.Opener, shlib.Options{
		Variant: opts.Variant,
		Suffix:  opts.Suffix,
		Verbose: opts.Verbose,
	})
	return imp
}

// String returns LoaderName.
func (imp *Importer) String() string {
	return LoaderName
}

// Variant returns the protocol variant the importer was built for.
func (imp *Importer) Variant() metapath.Variant {
	return imp.opts.Variant
}

// MetaPathIndex is the meta path position the importer expects.
func (imp *Importer) MetaPathIndex() int {
	return imp.opts.Variant.MetaPathIndex
}

// FindModule reports whether the importer is responsible for name: it is
// in the registry or in the host's frozen table.
func (imp *Importer) FindModule(name string, _ []string) bool {
	imp.trace("import %s # considering responsibility", name)

	if _, ok := imp.registry.Find(name); ok {
		imp.trace("import %s # claimed responsibility (compiled)", name)
		return true
	}
	if imp.hasFrozen(name) {
		imp.trace("import %s # claimed responsibility (frozen)", name)
		return true
	}

	imp.trace("import %s # denied responsibility", name)
	return false
}

// LoadModule loads name. It returns nil, nil when the importer has no
// opinion. Fatal failures are handed to Options.Abort.
func (imp *Importer) LoadModule(ctx context.Context, name string) (metapath.Module, error) {
	imp.trace("Loading %s", name)

	out := imp.Resolve(ctx, name)
	switch out.Status {
	case StatusFatal:
		Logger().Error("fatal import failure", zap.String("module", name), zap.Error(out.Err))
		imp.opts.Abort(out.Err)
		return nil, out.Err
	case StatusFailed:
		return nil, out.Err
	case StatusSuccess:
		return out.Module, nil
	}
	return nil, nil
}

// IsPackage reports whether name is a package entry. known is false for
// names outside the registry.
func (imp *Importer) IsPackage(name string) (isPkg, known bool) {
	entry, ok := imp.registry.Find(name)
	if !ok {
		return false, false
	}
	return entry.IsPackage(), true
}

// FindSpec describes registry entries for hosts with the find_spec
// surface. Frozen modules are not reported.
func (imp *Importer) FindSpec(name string, _ []string) *metapath.Spec {
	if !imp.opts.Variant.FindSpec {
		return nil
	}
	entry, ok := imp.registry.Find(name)
	if !ok {
		return nil
	}
	return &metapath.Spec{
		Loader:    imp,
		Name:      name,
		Origin:    entry.Kind().String(),
		IsPackage: entry.IsPackage(),
	}
}

// ModuleRepr formats mod the way the host prints modules.
func (imp *Importer) ModuleRepr(mod metapath.Module) string {
	file, ok := mod.Attr(metapath.AttrFile)
	if !ok || file == nil {
		return fmt.Sprintf("<module '%s'>", mod.Name())
	}
	return fmt.Sprintf("<module '%s' from '%v'>", mod.Name(), file)
}

// Resolve runs the orchestration core for name.
func (imp *Importer) Resolve(ctx context.Context, name string) Outcome {
	entry, compiled := imp.registry.Find(name)
	frozen := !compiled && imp.hasFrozen(name)
	if !compiled && !frozen {
		return Outcome{Status: StatusAbstain}
	}

	if _, err := imp.triggers.Run(ctx, name, trigger.PreLoad); err != nil {
		return failed(err)
	}

	var mod metapath.Module
	if compiled {
		m, err := imp.dispatch(ctx, entry)
		if err != nil {
			return failed(err)
		}
		mod = m
	} else {
		found, err := imp.host.ImportFrozen(ctx, name)
		if err != nil {
			return failed(err)
		}
		if !found {
			return Outcome{Status: StatusAbstain}
		}
		mod, _ = imp.host.Modules().Get(name)
		if mod == nil {
			return failed(errors.BadModule(errors.PhaseFrozen, name, "frozen import left no module"))
		}
	}

	if _, err := imp.triggers.Run(ctx, name, trigger.PostLoad); err != nil {
		return failed(err)
	}
	return Outcome{Status: StatusSuccess, Module: mod}
}

func (imp *Importer) dispatch(ctx context.Context, entry *registry.Entry) (metapath.Module, error) {
	var (
		mod metapath.Module
		err error
	)

	switch entry.Kind() {
	case registry.KindShlib:
		mod, err = imp.shlib.Load(ctx, entry.Name)
	case registry.KindBytecode:
		mod, err = imp.bytecode.Load(ctx, entry)
	default:
		if entry.Init == nil {
			return nil, errors.New(errors.PhaseNative, errors.KindInvalidEntry).
				Module(entry.Name).
				Detail("compiled module has no init function").
				Fatal().
				Build()
		}
		err = entry.Init(metapath.WithModule(ctx, entry.Name))
	}
	if err != nil {
		return nil, err
	}

	imp.trace("Loaded %s", entry.Name)

	if m, ok := imp.host.Modules().Get(entry.Name); ok {
		return m, nil
	}
	if mod == nil {
		return nil, errors.BadModule(errors.PhaseNative, entry.Name, "init function did not register the module")
	}
	return mod, nil
}

func (imp *Importer) hasFrozen(name string) bool {
	return imp.frozen != nil && imp.frozen.HasFrozen(name)
}

func (imp *Importer) trace(format, name string) {
	if imp.opts.Verbose {
		Logger().Info(fmt.Sprintf(format, name))
	}
}
