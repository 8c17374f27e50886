// Package importer plugs the compiled module table into a host's meta path.
//
// An Importer answers the host's finder questions for every name in the
// registry and for the host's own frozen modules, and loads them through a
// single orchestration core:
//
//	lookup -> pre-load trigger -> dispatch by kind -> post-load trigger
//
// Dispatch failures short-circuit and reach the caller unchanged. Fatal
// failures (corrupt embedded data, missing entry points, failing triggers)
// terminate the process through Options.Abort.
//
// Both host surfaces are offered. Legacy hosts call FindModule and
// LoadModule; modern hosts call FindSpec and then LoadModule on the
// returned spec's loader. FindSpec only reports registry entries. Frozen
// modules are left to the host's own frozen finder on that path, while
// FindModule claims them.
package importer
