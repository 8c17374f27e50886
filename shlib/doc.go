// Package shlib loads native extension modules packaged as shared
// libraries next to the distribution.
//
// The file of module "pkg.sub.ext" is <base>/pkg/sub/ext<suffix> and its
// entry point is the variant's entry prefix followed by "ext". Opening is
// delegated to an Opener so the same loader drives dlopen'd objects and
// wasm extensions:
//
//	opener := shlib.MultiOpener{
//		".so":   shlib.NewDlopenOpener(host.AdoptNative),
//		".wasm": shlib.NewWasmOpener(ctx, host.AdoptWasm),
//	}
//	loader := shlib.New(host, opener, shlib.Options{Variant: metapath.Modern})
//	mod, err := loader.Load(ctx, "pkg.sub.ext")
//
// Failing to open the file is an ordinary import failure. A file that opens
// but lacks its entry point is a packaging defect and fatal.
package shlib
