// Package errors provides structured error types for the metapath library.
//
// Errors are categorized by Phase (where the error occurred), Kind (error
// category) and Severity. Recoverable errors are surfaced to the host as
// import failures. Fatal errors mean the packaged binary is internally
// inconsistent; the importer terminates the process when it sees one.
//
// Use the Builder for structured error construction:
//
//	err := errors.New(errors.PhaseShlib, errors.KindOpenFailed).
//		Module("pkg.sub.ext").
//		File("/opt/app/pkg/sub/ext.so").
//		Detail("no such file").
//		Build()
//
// Or use convenience constructors for common patterns:
//
//	err := errors.NotFound(errors.PhaseFind, "module", "pkg.sub")
//	err := errors.Integrity(errors.PhaseBytecode, "app", "unmarshal blob", cause)
//
// All errors implement the standard error interface and support errors.Is/As.
package errors
