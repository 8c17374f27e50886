package memhost

import (
	"context"
	"fmt"

	"github.com/traefik/yaegi/interp"
	"github.com/traefik/yaegi/stdlib"
)

// ScriptBody is the signature a script's Body function must have. imp
// imports a module; set sets a string attribute on the running module.
type ScriptBody = func(imp func(name string) error, set func(name, value string)) error

// ScriptCodec decodes Go source executed by the yaegi interpreter. The
// source must be package main and define Body with the ScriptBody
// signature.
type ScriptCodec struct{}

// Decode evaluates the source and resolves Body.
func (ScriptCodec) Decode(blob []byte) (Runnable, error) {
	i := interp.New(interp.Options{})
	if err := i.Use(stdlib.Symbols); err != nil {
		return nil, fmt.Errorf("memhost: load stdlib symbols: %w", err)
	}

	if _, err := i.Eval(string(blob)); err != nil {
		return nil, fmt.Errorf("memhost: evaluate script: %w", err)
	}

	v, err := i.Eval("main.Body")
	if err != nil {
		return nil, fmt.Errorf("memhost: script has no Body: %w", err)
	}

	body, ok := v.Interface().(ScriptBody)
	if !ok {
		return nil, fmt.Errorf("memhost: Body has signature %s", v.Type())
	}
	return &script{body: body}, nil
}

type script struct {
	body ScriptBody
}

func (s *script) Run(ctx context.Context, env *Env) error {
	var setErr error
	imp := func(name string) error {
		_, err := env.Import(ctx, name)
		return err
	}
	set := func(name, value string) {
		if err := env.Module.SetAttr(name, value); err != nil && setErr == nil {
			setErr = err
		}
	}

	if err := s.body(imp, set); err != nil {
		return &RaisedError{Module: env.Module.Name(), Message: err.Error()}
	}
	return setErr
}
