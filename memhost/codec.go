package memhost

import (
	"bytes"
	"context"
	"fmt"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/wippyai/metapath"
)

// Env is what a running module body can reach.
type Env struct {
	Module metapath.Module
	host   *Host
}

// Import imports a module through the host import statement.
func (e *Env) Import(ctx context.Context, name string) (metapath.Module, error) {
	return e.host.Import(ctx, name)
}

// Runnable is a decoded code object.
type Runnable interface {
	Run(ctx context.Context, env *Env) error
}

// Codec decodes bytecode blobs.
type Codec interface {
	Decode(blob []byte) (Runnable, error)
}

// programMagic prefixes every encoded Program.
var programMagic = []byte("MPB\x01")

// Program is the code object format of ProgramCodec.
type Program struct {
	Attrs   map[string]string `msgpack:"attrs,omitempty"`
	Raise   string            `msgpack:"raise,omitempty"`
	Imports []string          `msgpack:"imports,omitempty"`
}

// Run imports every listed module, sets the attributes, then raises if
// requested.
func (p *Program) Run(ctx context.Context, env *Env) error {
	for _, name := range p.Imports {
		if _, err := env.Import(ctx, name); err != nil {
			return err
		}
	}
	for k, v := range p.Attrs {
		if err := env.Module.SetAttr(k, v); err != nil {
			return err
		}
	}
	if p.Raise != "" {
		return &RaisedError{Module: env.Module.Name(), Message: p.Raise}
	}
	return nil
}

// ProgramCodec decodes msgpack encoded Programs.
type ProgramCodec struct{}

// Decode checks the magic prefix and unmarshals the program.
func (ProgramCodec) Decode(blob []byte) (Runnable, error) {
	if !bytes.HasPrefix(blob, programMagic) {
		return nil, fmt.Errorf("memhost: bad program magic")
	}
	var p Program
	if err := msgpack.Unmarshal(blob[len(programMagic):], &p); err != nil {
		return nil, fmt.Errorf("memhost: decode program: %w", err)
	}
	return &p, nil
}

// EncodeProgram encodes p for ProgramCodec.
func EncodeProgram(p Program) ([]byte, error) {
	body, err := msgpack.Marshal(&p)
	if err != nil {
		return nil, fmt.Errorf("memhost: encode program: %w", err)
	}
	return append(append([]byte{}, programMagic...), body...), nil
}

// MustEncodeProgram is EncodeProgram for static test and example data.
func MustEncodeProgram(p Program) []byte {
	b, err := EncodeProgram(p)
	if err != nil {
		panic(err)
	}
	return b
}
