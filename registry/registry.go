package registry

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/wippyai/metapath/errors"
)

// Registry is an immutable, indexed view of a module table.
// Safe for concurrent reads.
type Registry struct {
	index   map[string]int
	entries Table
}

// New indexes table up to its terminator. Later duplicates never shadow
// earlier entries.
func New(table Table) *Registry {
	n := table.Len()
	r := &Registry{
		entries: table[:n:n],
		index:   make(map[string]int, n),
	}
	for i := range r.entries {
		if _, dup := r.index[r.entries[i].Name]; !dup {
			r.index[r.entries[i].Name] = i
		}
	}
	Logger().Debug("module table indexed", zap.Int("entries", n))
	return r
}

// Find returns the entry with exactly the given name.
func (r *Registry) Find(name string) (*Entry, bool) {
	if r == nil {
		return nil, false
	}
	i, ok := r.index[name]
	if !ok {
		return nil, false
	}
	return &r.entries[i], true
}

// Entries returns the entries in registration order.
func (r *Registry) Entries() []Entry {
	if r == nil {
		return nil
	}
	out := make([]Entry, len(r.entries))
	copy(out, r.entries)
	return out
}

// Len returns the number of entries.
func (r *Registry) Len() int {
	if r == nil {
		return 0
	}
	return len(r.entries)
}

// Validate checks the table for duplicate names and inconsistent payloads.
func (r *Registry) Validate() error {
	seen := make(map[string]bool, len(r.entries))
	for i := range r.entries {
		e := &r.entries[i]
		if seen[e.Name] {
			return errors.New(errors.PhaseRegister, errors.KindDuplicate).
				Module(e.Name).
				Detail("entry %d duplicates an earlier name", i).
				Build()
		}
		seen[e.Name] = true

		if err := validateEntry(e); err != nil {
			return err
		}
	}
	return nil
}

func validateEntry(e *Entry) error {
	invalid := func(format string, args ...any) error {
		return errors.New(errors.PhaseRegister, errors.KindInvalidEntry).
			Module(e.Name).
			Detail(format, args...).
			Build()
	}

	if e.Flags&FlagBytecode != 0 && e.Flags&FlagShlib != 0 {
		return invalid("both bytecode and shlib flags set")
	}
	if unknown := e.Flags &^ (FlagBytecode | FlagShlib | FlagPackage); unknown != 0 {
		return invalid("unknown flag bits %#x", uint32(unknown))
	}

	switch e.Kind() {
	case KindNative:
		if e.Init == nil {
			return invalid("native entry without init function")
		}
	case KindBytecode:
		if len(e.Blob) == 0 {
			return invalid("bytecode entry without blob")
		}
	case KindShlib:
		if e.Init != nil || len(e.Blob) != 0 {
			return invalid("shlib entry carries a payload")
		}
	}
	return nil
}

// String summarizes the registry for diagnostics.
func (r *Registry) String() string {
	return fmt.Sprintf("registry(%d entries)", r.Len())
}
