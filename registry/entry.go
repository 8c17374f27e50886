package registry

import (
	"strings"

	"github.com/wippyai/metapath"
)

// Flags is the kind and package bit word of an entry.
type Flags uint32

const (
	FlagBytecode Flags = 1 << iota
	FlagShlib
	FlagPackage
)

// Kind is the loading strategy derived from the flags.
type Kind int

const (
	KindNative Kind = iota
	KindBytecode
	KindShlib
)

func (k Kind) String() string {
	switch k {
	case KindBytecode:
		return "bytecode"
	case KindShlib:
		return "shlib"
	default:
		return "native"
	}
}

// ParseKind parses a kind name as printed by Kind.String.
func ParseKind(s string) (Kind, bool) {
	switch strings.ToLower(s) {
	case "native", "compiled":
		return KindNative, true
	case "bytecode":
		return KindBytecode, true
	case "shlib", "extension":
		return KindShlib, true
	}
	return 0, false
}

// Flags returns the flag bits selecting k.
func (k Kind) Flags() Flags {
	switch k {
	case KindBytecode:
		return FlagBytecode
	case KindShlib:
		return FlagShlib
	default:
		return 0
	}
}

// Entry is one statically known module.
type Entry struct {
	Name  string
	Flags Flags

	// Init is the entry point of native entries.
	Init metapath.EntryFunc

	// Blob is the embedded bytecode of bytecode entries.
	Blob []byte
}

// Kind returns the loading strategy. Bytecode wins over shlib when both
// bits are set; Validate reports that combination.
func (e *Entry) Kind() Kind {
	switch {
	case e.Flags&FlagBytecode != 0:
		return KindBytecode
	case e.Flags&FlagShlib != 0:
		return KindShlib
	default:
		return KindNative
	}
}

// IsPackage reports whether the entry is a package.
func (e *Entry) IsPackage() bool {
	return e.Flags&FlagPackage != 0
}

// Size returns the bytecode blob length.
func (e *Entry) Size() int {
	return len(e.Blob)
}

// Table is the compiled module table. The first entry with an empty name
// terminates it.
type Table []Entry

// Len returns the number of entries before the terminator.
func (t Table) Len() int {
	for i := range t {
		if t[i].Name == "" {
			return i
		}
	}
	return len(t)
}

// same reports whether a and b are the same table: same backing array and
// same length.
func same(a, b Table) bool {
	if len(a) != len(b) {
		return false
	}
	if len(a) == 0 {
		return (a == nil) == (b == nil)
	}
	return &a[0] == &b[0]
}
