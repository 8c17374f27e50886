package registry

// FrozenEntry is one module of the host's own frozen table.
type FrozenEntry struct {
	Name string
	Blob []byte
}

// FrozenSet answers whether the host has a frozen module of a name.
type FrozenSet interface {
	HasFrozen(name string) bool
}

// FrozenTable is a host frozen-module table terminated by the first entry
// with an empty name.
type FrozenTable []FrozenEntry

// HasFrozen scans the table up to the terminator.
func (t FrozenTable) HasFrozen(name string) bool {
	_, ok := t.Lookup(name)
	return ok
}

// Lookup returns the frozen entry for name.
func (t FrozenTable) Lookup(name string) (*FrozenEntry, bool) {
	for i := range t {
		if t[i].Name == "" {
			break
		}
		if t[i].Name == name {
			return &t[i], true
		}
	}
	return nil, false
}
