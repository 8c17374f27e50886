// Package metapath resolves and loads modules for a packaged, ahead-of-time
// compiled script program.
//
// A hosting interpreter asks "who supplies module X?" for every import the
// program executes. This library answers from a static module table built by
// the compiler and, when it claims a module, performs the load: running a
// natively compiled init function, executing an embedded bytecode blob, or
// opening a shared-library extension from the distribution directory.
//
// # Architecture Overview
//
//	metapath/            Root package with the Host and Module interfaces
//	├── registry/        Static module table and frozen-module oracle
//	├── trigger/         Pre/post load companion module dispatch
//	├── bytecode/        Embedded bytecode loader
//	├── shlib/           Shared-library extension loader (dlopen, wasm)
//	├── importer/        Host-facing finder/loader protocol surfaces
//	├── memhost/         In-process reference host
//	├── manifest/        HCL distribution manifest
//	├── errors/          Structured error types
//	├── internal/abort/  Process termination for fatal outcomes
//	└── cmd/metapath/    Inspection CLI
//
// # Quick Start
//
//	reg := registry.Register(table)
//	host := memhost.New(memhost.Options{BaseDir: dist})
//	imp := importer.New(host, reg, frozen, importer.DefaultOptions())
//	host.Install(imp)
//
//	mod, err := host.Import(ctx, "app.util")
//
// # Protocol Variants
//
// The host import protocol changed across interpreter releases. A Variant is
// selected once at startup and carries every version dependent detail: the
// extension entry prefix, whether entry points return the module, whether the
// loader identity attribute is set and whether find_spec is offered.
//
// # Thread Safety
//
// Loading assumes the host serializes imports. The registry is immutable after
// installation and safe for concurrent reads.
package metapath
