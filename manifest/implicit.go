package manifest

import (
	"sort"
	"strings"

	"github.com/wippyai/metapath"
	"github.com/wippyai/metapath/errors"
	"github.com/wippyai/metapath/registry"
)

// Aliases maps module names that are re-exported under another name to the
// module that actually provides them.
var Aliases = map[string]string{
	"requests.packages.urllib3": "urllib3",
	"requests.packages.chardet": "chardet",
}

// ImplicitImports returns the modules an extension imports from native
// code, where the import cannot be seen by scanning its bytecode.
func ImplicitImports(name string, variant metapath.Variant) []string {
	elements := strings.Split(name, ".")

	switch {
	case elements[0] == "PyQt4" || elements[0] == "PyQt5":
		var out []string
		if !variant.EntryReturnsModule {
			out = append(out, "atexit")
		}
		out = append(out, "sip")
		if len(elements) > 1 {
			switch elements[1] {
			case "QtGui":
				out = append(out, elements[0]+".QtCore")
			case "QtWidgets":
				out = append(out, elements[0]+".QtGui")
			}
		}
		return out
	case name == "lxml.etree":
		return []string{"gzip", "lxml._elementpath"}
	case name == "gtk._gtk":
		return []string{"pangocairo", "pango", "cairo", "gio", "atk"}
	case name == "reportlab.rl_config":
		return []string{"reportlab.rl_settings"}
	case name == "ctypes":
		return []string{"_ctypes"}
	case name == "gi._gi":
		return []string{"gi._error"}
	case name == "Tkinter" || name == "tkinter":
		return []string{"_tkinter"}
	}
	return nil
}

// Implicit returns the implicit imports of name: the built-in knowledge
// plus the manifest's implicit blocks.
func (m *Manifest) Implicit(name string) []string {
	out := ImplicitImports(name, m.variant)
	return append(out, m.imports[name]...)
}

// Resolve follows module aliases.
func (m *Manifest) Resolve(name string) string {
	if a, ok := m.aliases[name]; ok {
		return a
	}
	if a, ok := Aliases[name]; ok {
		return a
	}
	return name
}

// CheckImplicit reports implicit imports of registered modules that are
// neither registered nor frozen. It returns nil when nothing is missing.
func (m *Manifest) CheckImplicit() error {
	reg := registry.New(m.table)
	frozen := m.Frozen()

	var keys []string
	for _, e := range reg.Entries() {
		for _, imp := range m.Implicit(e.Name) {
			target := m.Resolve(imp)
			if _, ok := reg.Find(target); ok {
				continue
			}
			if frozen.HasFrozen(target) {
				continue
			}
			keys = append(keys, e.Name+"#"+imp)
		}
	}
	if len(keys) == 0 {
		return nil
	}
	sort.Strings(keys)
	return errors.NewMissingImplicitError(keys)
}
