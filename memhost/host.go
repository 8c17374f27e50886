package memhost

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/wippyai/metapath"
	"github.com/wippyai/metapath/registry"
)

// FrozenOrigin is the file attribute of modules imported from the frozen
// table.
const FrozenOrigin = "<frozen>"

// LegacyFinder is the find_module/load_module meta path surface.
type LegacyFinder interface {
	FindModule(name string, path []string) bool
	LoadModule(ctx context.Context, name string) (metapath.Module, error)
}

// SpecFinder is the find_spec meta path surface.
type SpecFinder interface {
	FindSpec(name string, path []string) *metapath.Spec
}

// Options configures a Host.
type Options struct {
	Codec Codec
	// ExecHook is called with the module name when a module body starts.
	ExecHook    func(name string)
	BaseDir     string
	Frozen      registry.FrozenTable
	Variant     metapath.Variant
	DlopenFlags int
}

// DefaultOptions returns a modern host using ProgramCodec.
func DefaultOptions() Options {
	return Options{
		Codec:   ProgramCodec{},
		Variant: metapath.Modern,
	}
}

// Host is an in-process interpreter host.
type Host struct {
	modules    *table
	extensions map[string]string
	opts       Options
	metaPath   []any
	pkgContext string
	mu         sync.Mutex
}

// New creates a host. The meta path initially holds the host's own frozen
// finder.
func New(opts Options) *Host {
	if opts.Codec == nil {
		opts.Codec = ProgramCodec{}
	}
	if opts.Variant.Name == "" {
		opts.Variant = metapath.Modern
	}
	h := &Host{
		modules:    newTable(),
		extensions: make(map[string]string),
		opts:       opts,
	}
	h.metaPath = []any{&frozenFinder{host: h}}
	return h
}

// Variant returns the protocol variant the host speaks.
func (h *Host) Variant() metapath.Variant {
	return h.opts.Variant
}

// Install inserts finder on the meta path at the variant's index, clamped
// to the end of the list. finder must implement LegacyFinder or SpecFinder.
func (h *Host) Install(finder any) error {
	_, legacy := finder.(LegacyFinder)
	_, spec := finder.(SpecFinder)
	if !legacy && !spec {
		return fmt.Errorf("memhost: %T is not a meta path finder", finder)
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	idx := h.opts.Variant.MetaPathIndex
	if idx > len(h.metaPath) {
		idx = len(h.metaPath)
	}
	h.metaPath = append(h.metaPath, nil)
	copy(h.metaPath[idx+1:], h.metaPath[idx:])
	h.metaPath[idx] = finder
	return nil
}

// MetaPath returns a copy of the meta path.
func (h *Host) MetaPath() []any {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]any(nil), h.metaPath...)
}

// Import emulates the import statement for a dotted name.
func (h *Host) Import(ctx context.Context, name string) (metapath.Module, error) {
	if name == "" {
		return nil, &ImportError{Name: name, Reason: "empty module name"}
	}
	if m, ok := h.modules.Get(name); ok {
		return m, nil
	}

	var path []string
	if parent, _, ok := cutLast(name); ok {
		p, err := h.Import(ctx, parent)
		if err != nil {
			return nil, err
		}
		// The parent body may have imported the child already.
		if m, ok := h.modules.Get(name); ok {
			return m, nil
		}
		v, ok := p.Attr(metapath.AttrPath)
		if !ok {
			return nil, &ImportError{Name: name, Reason: fmt.Sprintf("'%s' is not a package", parent)}
		}
		path, _ = v.([]string)
	}

	for _, finder := range h.MetaPath() {
		mod, found, err := h.tryFinder(ctx, finder, name, path)
		if err != nil {
			return nil, err
		}
		if found {
			return mod, nil
		}
	}
	return nil, &ImportError{Name: name}
}

func (h *Host) tryFinder(ctx context.Context, finder any, name string, path []string) (metapath.Module, bool, error) {
	if sf, ok := finder.(SpecFinder); ok && h.opts.Variant.FindSpec {
		spec := sf.FindSpec(name, path)
		if spec == nil {
			return nil, false, nil
		}
		mod, err := spec.Loader.LoadModule(ctx, name)
		if err != nil {
			return nil, true, err
		}
		return h.settle(name, mod)
	}

	lf, ok := finder.(LegacyFinder)
	if !ok || !lf.FindModule(name, path) {
		return nil, false, nil
	}
	mod, err := lf.LoadModule(ctx, name)
	if err != nil {
		return nil, true, err
	}
	return h.settle(name, mod)
}

// settle prefers the module table entry over the loader's return value.
func (h *Host) settle(name string, mod metapath.Module) (metapath.Module, bool, error) {
	if m, ok := h.modules.Get(name); ok {
		return m, true, nil
	}
	if mod == nil {
		return nil, true, &ImportError{Name: name, Reason: "loader did not produce a module"}
	}
	h.modules.Set(name, mod)
	return mod, true, nil
}

// Modules returns the module table.
func (h *Host) Modules() metapath.ModuleTable {
	return h.modules
}

// Loaded returns the sorted names in the module table.
func (h *Host) Loaded() []string {
	return h.modules.names()
}

// NewModule creates an empty module.
func (h *Host) NewModule(name string) metapath.Module {
	return NewModule(name)
}

// Unmarshal decodes a blob with the configured codec.
func (h *Host) Unmarshal(blob []byte) (metapath.Code, error) {
	return h.opts.Codec.Decode(blob)
}

// Exec sets the file attribute and runs code. On failure the module is
// removed from the module table and the body's error returned.
func (h *Host) Exec(ctx context.Context, mod metapath.Module, code metapath.Code, path string) (metapath.Module, error) {
	r, ok := code.(Runnable)
	if !ok {
		return nil, fmt.Errorf("memhost: %T is not a code object", code)
	}
	if err := mod.SetAttr(metapath.AttrFile, path); err != nil {
		return nil, err
	}
	if h.opts.ExecHook != nil {
		h.opts.ExecHook(mod.Name())
	}

	if err := r.Run(ctx, &Env{Module: mod, host: h}); err != nil {
		h.modules.Delete(mod.Name())
		Logger().Debug("module body failed", zap.String("module", mod.Name()), zap.Error(err))
		return nil, err
	}

	if m, ok := h.modules.Get(mod.Name()); ok {
		return m, nil
	}
	return mod, nil
}

// ImportFrozen imports name from the frozen table.
func (h *Host) ImportFrozen(ctx context.Context, name string) (bool, error) {
	entry, ok := h.opts.Frozen.Lookup(name)
	if !ok {
		return false, nil
	}
	code, err := h.Unmarshal(entry.Blob)
	if err != nil {
		return false, fmt.Errorf("memhost: frozen module %q: %w", name, err)
	}
	mod := h.NewModule(name)
	h.modules.Set(name, mod)
	if _, err := h.Exec(ctx, mod, code, FrozenOrigin); err != nil {
		return false, err
	}
	return true, nil
}

// FixupExtension records an initialized extension module.
func (h *Host) FixupExtension(mod metapath.Module, name, filename string) error {
	if name == "" || mod == nil {
		return fmt.Errorf("memhost: invalid extension fixup for %q", name)
	}
	h.mu.Lock()
	h.extensions[name] = filename
	h.mu.Unlock()
	h.modules.Set(name, mod)
	return nil
}

// Extension returns the file an extension module was fixed up from.
func (h *Host) Extension(name string) (string, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	f, ok := h.extensions[name]
	return f, ok
}

// DlopenFlags returns the configured dynamic loading flags.
func (h *Host) DlopenFlags() int {
	return h.opts.DlopenFlags
}

// BaseDir returns the distribution directory.
func (h *Host) BaseDir() string {
	return h.opts.BaseDir
}

// SwapPackageContext sets the ambient package context.
func (h *Host) SwapPackageContext(pkg string) string {
	h.mu.Lock()
	defer h.mu.Unlock()
	prev := h.pkgContext
	h.pkgContext = pkg
	return prev
}

// PackageContext returns the ambient package context.
func (h *Host) PackageContext() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.pkgContext
}

// frozenFinder is the host's own finder for its frozen table.
type frozenFinder struct {
	host *Host
}

func (f *frozenFinder) FindModule(name string, _ []string) bool {
	return f.host.opts.Frozen.HasFrozen(name)
}

func (f *frozenFinder) LoadModule(ctx context.Context, name string) (metapath.Module, error) {
	ok, err := f.host.ImportFrozen(ctx, name)
	if err != nil || !ok {
		return nil, err
	}
	m, _ := f.host.modules.Get(name)
	return m, nil
}

func (f *frozenFinder) FindSpec(name string, _ []string) *metapath.Spec {
	if !f.host.opts.Frozen.HasFrozen(name) {
		return nil
	}
	return &metapath.Spec{Name: name, Loader: f, Origin: "frozen"}
}

func cutLast(name string) (parent, leaf string, ok bool) {
	i := strings.LastIndexByte(name, '.')
	if i < 0 {
		return "", name, false
	}
	return name[:i], name[i+1:], true
}
