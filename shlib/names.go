package shlib

import (
	"strings"

	"github.com/wippyai/metapath/bytecode"
)

// Split separates a dotted name into its package and leaf. pkg is empty for
// top-level modules.
func Split(name string) (pkg, leaf string) {
	i := strings.LastIndexByte(name, '.')
	if i < 0 {
		return "", name
	}
	return name[:i], name[i+1:]
}

// EntrySymbol returns the entry point symbol for a leaf module name.
func EntrySymbol(prefix, leaf string) string {
	return prefix + leaf
}

// FilePath returns the on-disk extension file of a module.
func FilePath(base, name, suffix string) string {
	return bytecode.Relative(base, bytecode.ModulePath(name)+suffix)
}
