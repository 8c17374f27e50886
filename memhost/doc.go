// Package memhost is an in-process reference host for the metapath loaders.
//
// It keeps a module table, a meta path of finders and a frozen-module table,
// and emulates the interpreter import statement: parents are imported before
// children, the module table is consulted first, and each finder on the meta
// path is asked in order. Finders are driven through the surface matching
// the configured protocol variant:
//
//	legacy, classic   FindModule then LoadModule
//	modern            FindSpec then Spec.Loader.LoadModule
//
// Bytecode is decoded by a Codec. ProgramCodec decodes msgpack programs that
// import modules, set attributes and raise errors; ScriptCodec runs Go source
// through the yaegi interpreter.
package memhost
