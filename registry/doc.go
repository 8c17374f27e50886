// Package registry holds the static module table produced by the compiler.
//
// The table is an ordered list of entries terminated by the first entry with
// an empty name. Each entry carries a flag word selecting one of three
// loading strategies:
//
//	KindNative    compiled init function, invoked with no arguments
//	KindBytecode  embedded bytecode blob executed by the host
//	KindShlib     extension file located beside the executable at load time
//
// FlagPackage is orthogonal to the kind.
//
// The process-wide table is installed once with Register. Registering the
// same table again is a no-op; registering a different one terminates the
// process, because two compiled tables cannot both be authoritative.
//
// Lookups are exact byte-for-byte matches on the dotted name. No case
// folding or normalization is applied.
package registry
