package memhost

import (
	"fmt"
	"sort"
	"sync"

	"github.com/wippyai/metapath"
)

// Module is a host module object.
type Module struct {
	attrs map[string]any
	def   *metapath.Definition
	name  string
	mu    sync.RWMutex
}

// NewModule creates an empty module.
func NewModule(name string) *Module {
	return &Module{name: name, attrs: make(map[string]any)}
}

// NewExtension creates an extension module carrying a definition.
func NewExtension(name string) *Module {
	m := NewModule(name)
	m.def = &metapath.Definition{Name: name}
	return m
}

// Name returns the dotted module name.
func (m *Module) Name() string {
	return m.name
}

// Attr returns a module attribute.
func (m *Module) Attr(name string) (any, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.attrs[name]
	return v, ok
}

// SetAttr sets a module attribute.
func (m *Module) SetAttr(name string, value any) error {
	if name == "" {
		return fmt.Errorf("memhost: empty attribute name on module %q", m.name)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.attrs[name] = value
	return nil
}

// AttrNames returns the sorted attribute names.
func (m *Module) AttrNames() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	names := make([]string, 0, len(m.attrs))
	for k := range m.attrs {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// Definition returns the extension definition, or nil for ordinary modules.
func (m *Module) Definition() *metapath.Definition {
	return m.def
}

// StringAttr returns the attribute as a string, or "".
func (m *Module) StringAttr(name string) string {
	v, _ := m.Attr(name)
	s, _ := v.(string)
	return s
}

// table is the map-backed module table.
type table struct {
	m  map[string]metapath.Module
	mu sync.RWMutex
}

func newTable() *table {
	return &table{m: make(map[string]metapath.Module)}
}

func (t *table) Get(name string) (metapath.Module, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	m, ok := t.m[name]
	return m, ok
}

func (t *table) Set(name string, mod metapath.Module) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.m[name] = mod
}

func (t *table) Delete(name string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.m, name)
}

func (t *table) names() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	names := make([]string, 0, len(t.m))
	for k := range t.m {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}
