package metapath

import "strings"

// Variant describes one revision of the host import protocol. It is chosen
// once at startup; loaders read capabilities from it instead of branching
// on version numbers.
type Variant struct {
	Name string

	// EntryPrefix is prepended to the leaf module name to form the
	// extension entry symbol.
	EntryPrefix string

	// SourceExt is the extension used for synthetic bytecode file paths.
	SourceExt string

	// ExtSuffix is the native extension file suffix.
	ExtSuffix string

	// MetaPathIndex is where the finder is inserted on the host meta path.
	MetaPathIndex int

	// EntryReturnsModule is false when entry points register the module
	// in the module table instead of returning it.
	EntryReturnsModule bool

	// SetsLoader enables the loader identity attribute on bytecode modules.
	SetsLoader bool

	// FindSpec enables the find_spec and module_repr surfaces.
	FindSpec bool
}

var (
	// Legacy is the oldest protocol: find_module/load_module only, entry
	// points return nothing.
	Legacy = Variant{
		Name:        "legacy",
		EntryPrefix: "init",
		SourceExt:   "py",
		ExtSuffix:   ".so",
	}

	// Classic returns modules from entry points and expects the loader
	// identity attribute, but has no find_spec.
	Classic = Variant{
		Name:               "classic",
		EntryPrefix:        "PyInit_",
		SourceExt:          "py",
		ExtSuffix:          ".so",
		MetaPathIndex:      2,
		EntryReturnsModule: true,
		SetsLoader:         true,
	}

	// Modern adds find_spec and module_repr.
	Modern = Variant{
		Name:               "modern",
		EntryPrefix:        "PyInit_",
		SourceExt:          "py",
		ExtSuffix:          ".so",
		MetaPathIndex:      2,
		EntryReturnsModule: true,
		SetsLoader:         true,
		FindSpec:           true,
	}
)

// VariantByName returns the predefined variant with the given name.
func VariantByName(name string) (Variant, bool) {
	switch strings.ToLower(name) {
	case Legacy.Name:
		return Legacy, true
	case Classic.Name:
		return Classic, true
	case Modern.Name, "":
		return Modern, true
	}
	return Variant{}, false
}
