package errors

import (
	stderrors "errors"
	"fmt"
	"sort"
	"strings"
)

// Phase indicates where in processing the error occurred
type Phase string

const (
	PhaseRegister Phase = "register" // module table installation
	PhaseFind     Phase = "find"     // responsibility lookup
	PhaseLoad     Phase = "load"     // load orchestration
	PhaseTrigger  Phase = "trigger"  // pre/post load companions
	PhaseBytecode Phase = "bytecode" // embedded bytecode modules
	PhaseShlib    Phase = "shlib"    // shared-library extensions
	PhaseFrozen   Phase = "frozen"   // host frozen modules
	PhaseNative   Phase = "native"   // compiled init functions
	PhaseManifest Phase = "manifest" // distribution manifest
	PhaseHost     Phase = "host"     // host interpreter operations
)

// Kind categorizes the error
type Kind string

const (
	KindNotFound        Kind = "not_found"
	KindOpenFailed      Kind = "open_failed"
	KindMissingSymbol   Kind = "missing_symbol"
	KindBadModule       Kind = "bad_module"
	KindCorruptBlob     Kind = "corrupt_blob"
	KindConflict        Kind = "conflict"
	KindDuplicate       Kind = "duplicate"
	KindInvalidEntry    Kind = "invalid_entry"
	KindInvalidInput    Kind = "invalid_input"
	KindTriggerFailed   Kind = "trigger_failed"
	KindSlotOccupied    Kind = "slot_occupied"
	KindFixup           Kind = "fixup"
	KindUnsupported     Kind = "unsupported"
	KindMissingImplicit Kind = "missing_implicit"
)

// Severity separates ordinary import failures from integrity violations.
type Severity int

const (
	// Recoverable errors are reported to the host as import failures.
	Recoverable Severity = iota
	// Fatal errors indicate a build defect; the process must terminate.
	Fatal
)

func (s Severity) String() string {
	if s == Fatal {
		return "fatal"
	}
	return "recoverable"
}

// Error is the structured error type used throughout the library
type Error struct {
	Value    any
	Cause    error
	Phase    Phase
	Kind     Kind
	Module   string
	File     string
	Symbol   string
	Detail   string
	Severity Severity
}

// Error implements the error interface
func (e *Error) Error() string {
	var b strings.Builder

	b.WriteByte('[')
	b.WriteString(string(e.Phase))
	b.WriteString("] ")
	b.WriteString(string(e.Kind))

	if e.Module != "" {
		b.WriteString(" in ")
		b.WriteString(e.Module)
	}

	if e.File != "" || e.Symbol != "" {
		b.WriteString(": ")
		if e.File != "" && e.Symbol != "" {
			b.WriteString("symbol ")
			b.WriteString(e.Symbol)
			b.WriteString(" of ")
			b.WriteString(e.File)
		} else if e.File != "" {
			b.WriteString("file ")
			b.WriteString(e.File)
		} else {
			b.WriteString("symbol ")
			b.WriteString(e.Symbol)
		}
	}

	if e.Detail != "" {
		if e.File != "" || e.Symbol != "" {
			b.WriteString(" - ")
		} else {
			b.WriteString(": ")
		}
		b.WriteString(e.Detail)
	}

	if e.Cause != nil {
		b.WriteString(" (caused by: ")
		b.WriteString(e.Cause.Error())
		b.WriteByte(')')
	}

	return b.String()
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Phase == t.Phase && e.Kind == t.Kind
	}
	return false
}

// IsFatal reports whether err, or any error it wraps, is a fatal integrity
// violation.
func IsFatal(err error) bool {
	var e *Error
	for err != nil {
		if !stderrors.As(err, &e) {
			return false
		}
		if e.Severity == Fatal {
			return true
		}
		err = e.Cause
	}
	return false
}

// Builder provides structured error construction
type Builder struct {
	err Error
}

// New creates a new error builder
func New(phase Phase, kind Kind) *Builder {
	return &Builder{
		err: Error{
			Phase: phase,
			Kind:  kind,
		},
	}
}

// Module sets the dotted module name
func (b *Builder) Module(name string) *Builder {
	b.err.Module = name
	return b
}

// File sets the file path involved
func (b *Builder) File(path string) *Builder {
	b.err.File = path
	return b
}

// Symbol sets the entry symbol name
func (b *Builder) Symbol(name string) *Builder {
	b.err.Symbol = name
	return b
}

// Value sets the offending value
func (b *Builder) Value(v any) *Builder {
	b.err.Value = v
	return b
}

// Cause sets the underlying error
func (b *Builder) Cause(err error) *Builder {
	b.err.Cause = err
	return b
}

// Fatal marks the error as an integrity violation
func (b *Builder) Fatal() *Builder {
	b.err.Severity = Fatal
	return b
}

// Detail sets the human-readable detail message
func (b *Builder) Detail(msg string, args ...any) *Builder {
	if len(args) > 0 {
		b.err.Detail = fmt.Sprintf(msg, args...)
	} else {
		b.err.Detail = msg
	}
	return b
}

// Build returns the constructed error
func (b *Builder) Build() *Error {
	return &b.err
}

// Convenience constructors for common error patterns

// NotFound creates a not-found error
func NotFound(phase Phase, what, name string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindNotFound,
		Module: name,
		Detail: fmt.Sprintf("%s %q not found", what, name),
	}
}

// InvalidInput creates an invalid input error
func InvalidInput(phase Phase, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidInput,
		Detail: detail,
	}
}

// Unsupported creates an unsupported operation error
func Unsupported(phase Phase, what string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindUnsupported,
		Detail: what,
	}
}

// OpenFailed creates a recoverable shared-library open error
func OpenFailed(module, file string, cause error) *Error {
	return &Error{
		Phase:  PhaseShlib,
		Kind:   KindOpenFailed,
		Module: module,
		File:   file,
		Cause:  cause,
	}
}

// MissingSymbol creates a fatal error for an extension without its entry point
func MissingSymbol(module, file, symbol string, cause error) *Error {
	return &Error{
		Phase:    PhaseShlib,
		Kind:     KindMissingSymbol,
		Module:   module,
		File:     file,
		Symbol:   symbol,
		Cause:    cause,
		Severity: Fatal,
	}
}

// BadModule creates a recoverable error for a malformed module object
func BadModule(phase Phase, module, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindBadModule,
		Module: module,
		Detail: detail,
	}
}

// Integrity creates a fatal error for inconsistent compiled-in data
func Integrity(phase Phase, module, detail string, cause error) *Error {
	return &Error{
		Phase:    phase,
		Kind:     KindCorruptBlob,
		Module:   module,
		Detail:   detail,
		Cause:    cause,
		Severity: Fatal,
	}
}

// TriggerFailed creates a fatal error for a failing trigger module
func TriggerFailed(trigger string, cause error) *Error {
	return &Error{
		Phase:    PhaseTrigger,
		Kind:     KindTriggerFailed,
		Module:   trigger,
		Cause:    cause,
		Severity: Fatal,
	}
}

// Conflict creates a fatal error for a second, different module table
func Conflict(detail string) *Error {
	return &Error{
		Phase:    PhaseRegister,
		Kind:     KindConflict,
		Detail:   detail,
		Severity: Fatal,
	}
}

// Wrap wraps an existing error with additional context
func Wrap(phase Phase, kind Kind, cause error, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   kind,
		Detail: detail,
		Cause:  cause,
	}
}

// MissingImplicit represents one extension whose implicit imports are not
// packaged
type MissingImplicit struct {
	Module  string // e.g., "lxml.etree"
	Imports []string
}

// MissingImplicitError is returned when extensions import modules the
// distribution does not contain
type MissingImplicitError struct {
	Missing []MissingImplicit
}

// NewMissingImplicitError creates an error from "module#import" keys
func NewMissingImplicitError(keys []string) *MissingImplicitError {
	byMod := make(map[string][]string)
	var order []string
	for _, key := range keys {
		mod, imp := parseImplicitKey(key)
		if _, ok := byMod[mod]; !ok {
			order = append(order, mod)
		}
		if imp != "" {
			byMod[mod] = append(byMod[mod], imp)
		} else if byMod[mod] == nil {
			byMod[mod] = []string{}
		}
	}

	result := &MissingImplicitError{
		Missing: make([]MissingImplicit, 0, len(order)),
	}
	for _, mod := range order {
		imports := byMod[mod]
		sort.Strings(imports)
		result.Missing = append(result.Missing, MissingImplicit{Module: mod, Imports: imports})
	}
	return result
}

func parseImplicitKey(key string) (module, imp string) {
	mod, i, found := strings.Cut(key, "#")
	if found {
		return mod, i
	}
	return key, ""
}

func (e *MissingImplicitError) Error() string {
	if len(e.Missing) == 0 {
		return "[manifest] missing_implicit: no modules specified"
	}

	total := 0
	for _, m := range e.Missing {
		total += len(m.Imports)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "missing %d implicit import(s):\n", total)

	for _, m := range e.Missing {
		b.WriteString("\n  ")
		b.WriteString(m.Module)
		b.WriteString(":\n")
		for _, imp := range m.Imports {
			b.WriteString("    - ")
			b.WriteString(imp)
			b.WriteByte('\n')
		}
	}

	return strings.TrimSuffix(b.String(), "\n")
}

// Is reports whether target matches this error type
func (e *MissingImplicitError) Is(target error) bool {
	_, ok := target.(*MissingImplicitError)
	return ok
}
