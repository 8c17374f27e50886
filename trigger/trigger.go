// Package trigger runs the pre-load and post-load companion modules the
// compiler emits for plugin shims.
//
// A companion is an ordinary native registry entry named after the real
// module with a fixed suffix. Its existence alone requests the call; a
// missing companion is not an error.
package trigger

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/wippyai/metapath/errors"
	"github.com/wippyai/metapath/registry"
)

// Companion suffixes.
const (
	PreLoad  = "-preLoad"
	PostLoad = "-postLoad"
)

// Name returns the companion module name for module and suffix.
func Name(module, suffix string) string {
	return module + suffix
}

// Dispatcher looks up and invokes companion modules.
type Dispatcher struct {
	registry *registry.Registry
	verbose  bool
}

// New creates a dispatcher over reg. With verbose set, every invoked
// companion is traced.
func New(reg *registry.Registry, verbose bool) *Dispatcher {
	return &Dispatcher{registry: reg, verbose: verbose}
}

// Run invokes the companion of module for suffix if one is registered and
// reports whether it ran. Any failure is fatal: companions are compiler
// generated and assumed correct.
func (d *Dispatcher) Run(ctx context.Context, module, suffix string) (ran bool, err error) {
	name := Name(module, suffix)
	entry, ok := d.registry.Find(name)
	if !ok {
		return false, nil
	}

	if d.verbose {
		Logger().Info("Loading " + name)
	}

	if entry.Init == nil {
		return true, errors.TriggerFailed(name, fmt.Errorf("companion has no init function"))
	}

	if err := call(ctx, entry.Init); err != nil {
		Logger().Error("companion failed", zap.String("module", name), zap.Error(err))
		return true, errors.TriggerFailed(name, err)
	}
	return true, nil
}

func call(ctx context.Context, fn func(context.Context) error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return fn(ctx)
}
