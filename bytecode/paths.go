package bytecode

import (
	"path/filepath"
	"strings"
)

// ModulePath converts a dotted module name to a relative path using the
// platform separator.
func ModulePath(name string) string {
	return strings.ReplaceAll(name, ".", string(filepath.Separator))
}

// SourcePath returns the synthetic relative source path of a module:
// "a/b/__init__.<ext>" for packages and "a/b.<ext>" otherwise.
func SourcePath(name string, isPackage bool, ext string) string {
	p := ModulePath(name)
	if isPackage {
		return p + string(filepath.Separator) + "__init__." + ext
	}
	return p + "." + ext
}

// Relative resolves p against the distribution base directory.
func Relative(base, p string) string {
	if base == "" {
		return p
	}
	return filepath.Join(base, p)
}
