package metapath

import "context"

// Well-known module attributes written during loading.
const (
	AttrFile   = "__file__"
	AttrPath   = "__path__"
	AttrLoader = "__loader__"
)

// Module is a host module object. The host owns it; loaders only set
// attributes while constructing it.
type Module interface {
	Name() string
	Attr(name string) (any, bool)
	SetAttr(name string, value any) error
}

// Definition is the bookkeeping descriptor of an extension module.
type Definition struct {
	Name string
	// Init is the entry point that produced the module, kept for reloads.
	Init any
}

// ExtensionModule is a module produced by a shared-library entry point.
type ExtensionModule interface {
	Module
	Definition() *Definition
}

// ModuleTable is the host's dictionary of loaded modules.
type ModuleTable interface {
	Get(name string) (Module, bool)
	Set(name string, mod Module)
	Delete(name string)
}

// Code is a deserialized executable code object.
type Code any

// EntryFunc is a natively compiled module or trigger init function. It
// registers its module in the host table as a side effect.
type EntryFunc func(ctx context.Context) error

// Host is the interpreter side of the import protocol.
type Host interface {
	Modules() ModuleTable
	NewModule(name string) Module

	// Unmarshal decodes an embedded bytecode blob.
	Unmarshal(blob []byte) (Code, error)

	// Exec sets the file attribute of mod to path and runs code in its
	// namespace. mod is already present in the module table under its
	// dotted name.
	Exec(ctx context.Context, mod Module, code Code, path string) (Module, error)

	// ImportFrozen imports a module from the host's own frozen table and
	// reports whether it was found.
	ImportFrozen(ctx context.Context, name string) (bool, error)

	// FixupExtension registers a freshly initialized extension module with
	// the host's extension bookkeeping.
	FixupExtension(mod Module, name, filename string) error

	DlopenFlags() int
	BaseDir() string

	// SwapPackageContext sets the ambient package context and returns the
	// previous value.
	SwapPackageContext(pkg string) string
}
