package metapath

import "context"

// SpecLoader loads the module described by a Spec.
type SpecLoader interface {
	LoadModule(ctx context.Context, name string) (Module, error)
}

// Spec describes a module a finder is willing to load.
type Spec struct {
	Loader    SpecLoader
	Name      string
	Origin    string
	IsPackage bool
}
