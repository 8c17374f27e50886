package shlib

import (
	"context"

	"github.com/wippyai/metapath"
)

// callWithPackage runs sym with the package context set to pkg, both on
// ctx and on the host for entry points that can only read the ambient
// value. The previous host value is restored even if the call panics.
func callWithPackage(ctx context.Context, host metapath.Host, pkg string, sym Symbol) (metapath.Module, error) {
	prev := host.SwapPackageContext(pkg)
	defer host.SwapPackageContext(prev)

	return sym.Call(metapath.WithPackage(ctx, pkg))
}
