package shlib

import (
	"context"
	"fmt"
	"os"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"

	"github.com/wippyai/metapath"
)

// WasmAdoptFunc converts an instantiated wasm extension and its entry
// point results into a module.
type WasmAdoptFunc func(ctx context.Context, symbol string, inst api.Module, results []uint64) (metapath.Module, error)

// WasmOpener loads extensions compiled to WebAssembly. Each extension is
// instantiated under its dotted module name.
type WasmOpener struct {
	runtime wazero.Runtime
	adopt   WasmAdoptFunc
}

// NewWasmOpener creates an opener with its own wazero runtime.
func NewWasmOpener(ctx context.Context, adopt WasmAdoptFunc) *WasmOpener {
	return &WasmOpener{runtime: wazero.NewRuntime(ctx), adopt: adopt}
}

// Close releases the runtime and every instance it created.
func (o *WasmOpener) Close(ctx context.Context) error {
	return o.runtime.Close(ctx)
}

// Open reads and compiles path. Dynamic loading flags do not apply.
func (o *WasmOpener) Open(ctx context.Context, path string, _ int) (Library, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	compiled, err := o.runtime.CompileModule(ctx, data)
	if err != nil {
		return nil, fmt.Errorf("compile %s: %w", path, err)
	}
	return &wasmLibrary{opener: o, compiled: compiled, path: path}, nil
}

type wasmLibrary struct {
	opener   *WasmOpener
	compiled wazero.CompiledModule
	path     string
}

func (l *wasmLibrary) Lookup(symbol string) (Symbol, error) {
	def, ok := l.compiled.ExportedFunctions()[symbol]
	if !ok {
		return nil, fmt.Errorf("%s: undefined symbol: %s", l.path, symbol)
	}
	if len(def.ParamTypes()) != 0 {
		return nil, fmt.Errorf("%s: entry point %s takes %d parameters", l.path, symbol, len(def.ParamTypes()))
	}
	return &wasmSymbol{lib: l, name: symbol}, nil
}

func (l *wasmLibrary) Close() error {
	return l.compiled.Close(context.Background())
}

type wasmSymbol struct {
	lib  *wasmLibrary
	name string
}

func (s *wasmSymbol) Call(ctx context.Context) (metapath.Module, error) {
	instName := metapath.PackageFrom(ctx)
	if instName == "" {
		instName = s.name
	}

	o := s.lib.opener
	inst, err := o.runtime.InstantiateModule(ctx, s.lib.compiled, wazero.NewModuleConfig().WithName(instName))
	if err != nil {
		return nil, fmt.Errorf("instantiate %s: %w", s.lib.path, err)
	}

	results, err := inst.ExportedFunction(s.name).Call(ctx)
	if err != nil {
		_ = inst.Close(ctx)
		return nil, fmt.Errorf("call %s: %w", s.name, err)
	}

	if o.adopt == nil {
		return nil, nil
	}
	mod, err := o.adopt(ctx, s.name, inst, results)
	if err != nil {
		// Free the instance name for a later attempt.
		_ = inst.Close(ctx)
		return nil, err
	}
	return mod, nil
}
