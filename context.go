package metapath

import "context"

type packageKey struct{}

// WithPackage returns a context carrying the dotted package an extension
// entry point is being initialized in.
func WithPackage(ctx context.Context, pkg string) context.Context {
	return context.WithValue(ctx, packageKey{}, pkg)
}

// PackageFrom returns the package set by WithPackage, or "" for top-level
// modules.
func PackageFrom(ctx context.Context) string {
	if pkg, ok := ctx.Value(packageKey{}).(string); ok {
		return pkg
	}
	return ""
}

type moduleKey struct{}

// WithModule returns a context carrying the name of the module a native
// init function is creating.
func WithModule(ctx context.Context, name string) context.Context {
	return context.WithValue(ctx, moduleKey{}, name)
}

// ModuleFrom returns the module name set by WithModule.
func ModuleFrom(ctx context.Context) string {
	name, _ := ctx.Value(moduleKey{}).(string)
	return name
}
