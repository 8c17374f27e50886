// Package manifest describes a packaged distribution in HCL and turns it
// into a module table.
//
// A manifest lists the compiled modules, the host's frozen modules and any
// implicit imports of extension modules:
//
//	base_dir = env.APP_HOME
//	protocol = "modern"
//
//	module "app" {
//	  kind    = "bytecode"
//	  package = true
//	  blob    = "app/__init__.mpb"
//	}
//
//	module "app.speedups" {
//	  kind = "shlib"
//	}
//
//	module "app-preLoad" {
//	  kind  = "native"
//	  entry = "app_shim"
//	}
//
//	frozen "site" {
//	  blob = "site.mpb"
//	}
//
//	implicit "app.speedups" {
//	  imports = ["app._accel"]
//	}
//
// Blob paths are relative to the manifest file. Native entries are bound
// by name to init functions supplied by the caller. Expressions can read
// the process environment through env and use a few string functions.
package manifest
