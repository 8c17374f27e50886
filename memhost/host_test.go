package memhost

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/tetratelabs/wazero"

	"github.com/wippyai/metapath"
	"github.com/wippyai/metapath/registry"
)

// extWasm exports PyInit_ext () -> i32 returning 42.
var extWasm = []byte{
	0x00, 0x61, 0x73, 0x6d, 0x01, 0x00, 0x00, 0x00,
	0x01, 0x05, 0x01, 0x60, 0x00, 0x01, 0x7f,
	0x03, 0x02, 0x01, 0x00,
	0x07, 0x0e, 0x01, 0x0a,
	'P', 'y', 'I', 'n', 'i', 't', '_', 'e', 'x', 't',
	0x00, 0x00,
	0x0a, 0x06, 0x01, 0x04, 0x00, 0x41, 0x2a, 0x0b,
}

// mapFinder serves programs from a map through the legacy surface.
type mapFinder struct {
	host     *Host
	programs map[string]Program
	asked    []string
}

func (f *mapFinder) FindModule(name string, _ []string) bool {
	f.asked = append(f.asked, name)
	_, ok := f.programs[name]
	return ok
}

func (f *mapFinder) LoadModule(ctx context.Context, name string) (metapath.Module, error) {
	p := f.programs[name]
	mod := f.host.NewModule(name)
	f.host.Modules().Set(name, mod)
	return f.host.Exec(ctx, mod, &p, name+".py")
}

func TestInstallPosition(t *testing.T) {
	tests := []struct {
		variant metapath.Variant
		want    []string
	}{
		{metapath.Legacy, []string{"finder", "frozen"}},
		{metapath.Classic, []string{"frozen", "finder"}},
		{metapath.Modern, []string{"frozen", "finder"}},
	}

	for _, tt := range tests {
		t.Run(tt.variant.Name, func(t *testing.T) {
			h := New(Options{Variant: tt.variant})
			if err := h.Install(&mapFinder{host: h}); err != nil {
				t.Fatalf("Install: %v", err)
			}

			var got []string
			for _, f := range h.MetaPath() {
				switch f.(type) {
				case *frozenFinder:
					got = append(got, "frozen")
				case *mapFinder:
					got = append(got, "finder")
				}
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("meta path mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestInstallRejectsNonFinder(t *testing.T) {
	h := New(DefaultOptions())
	if err := h.Install(struct{}{}); err == nil {
		t.Error("expected error for non-finder")
	}
}

func TestImportFrozen(t *testing.T) {
	h := New(Options{
		Variant: metapath.Modern,
		Frozen: registry.FrozenTable{
			{Name: "hello", Blob: MustEncodeProgram(Program{Attrs: map[string]string{"greeting": "hi"}})},
			{},
			{Name: "hidden", Blob: MustEncodeProgram(Program{})},
		},
	})

	mod, err := h.Import(context.Background(), "hello")
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	m := mod.(*Module)
	if got := m.StringAttr("greeting"); got != "hi" {
		t.Errorf("greeting = %q, want %q", got, "hi")
	}
	if got := m.StringAttr(metapath.AttrFile); got != FrozenOrigin {
		t.Errorf("__file__ = %q, want %q", got, FrozenOrigin)
	}

	if _, err := h.Import(context.Background(), "hidden"); err == nil {
		t.Error("entry after the terminator should not be importable")
	}
}

func TestImportNotFound(t *testing.T) {
	h := New(DefaultOptions())
	_, err := h.Import(context.Background(), "missing")

	var ie *ImportError
	if !errors.As(err, &ie) {
		t.Fatalf("expected ImportError, got %v", err)
	}
	if ie.Error() != "No module named 'missing'" {
		t.Errorf("message = %q", ie.Error())
	}
}

func TestImportParentFirst(t *testing.T) {
	h := New(Options{Variant: metapath.Legacy})
	f := &mapFinder{host: h, programs: map[string]Program{
		"app":      {Attrs: map[string]string{"kind": "package"}},
		"app.util": {Attrs: map[string]string{"kind": "module"}},
	}}
	if err := h.Install(f); err != nil {
		t.Fatal(err)
	}

	// app has no __path__, so the child cannot be imported.
	_, err := h.Import(context.Background(), "app.util")
	var ie *ImportError
	if !errors.As(err, &ie) {
		t.Fatalf("expected ImportError, got %v", err)
	}
	if diff := cmp.Diff([]string{"app"}, f.asked); diff != "" {
		t.Errorf("finder calls mismatch (-want +got):\n%s", diff)
	}

	app, _ := h.Modules().Get("app")
	if err := app.SetAttr(metapath.AttrPath, []string{"app"}); err != nil {
		t.Fatal(err)
	}
	if _, err := h.Import(context.Background(), "app.util"); err != nil {
		t.Fatalf("Import: %v", err)
	}
	if diff := cmp.Diff([]string{"app", "app.util"}, h.Loaded()); diff != "" {
		t.Errorf("loaded mismatch (-want +got):\n%s", diff)
	}
}

func TestExecFailureRemovesModule(t *testing.T) {
	h := New(DefaultOptions())
	mod := h.NewModule("broken")
	h.Modules().Set("broken", mod)

	_, err := h.Exec(context.Background(), mod, &Program{Raise: "boom"}, "broken.py")
	var re *RaisedError
	if !errors.As(err, &re) {
		t.Fatalf("expected RaisedError, got %v", err)
	}
	if re.Message != "boom" {
		t.Errorf("message = %q, want boom", re.Message)
	}
	if _, ok := h.Modules().Get("broken"); ok {
		t.Error("failed module left in module table")
	}
}

func TestExecHook(t *testing.T) {
	var seen []string
	h := New(Options{ExecHook: func(name string) { seen = append(seen, name) }})
	mod := h.NewModule("m")
	h.Modules().Set("m", mod)

	if _, err := h.Exec(context.Background(), mod, &Program{}, "m.py"); err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"m"}, seen); diff != "" {
		t.Errorf("hook calls mismatch (-want +got):\n%s", diff)
	}
}

func TestProgramCodec(t *testing.T) {
	blob := MustEncodeProgram(Program{Imports: []string{"os"}, Attrs: map[string]string{"a": "b"}})

	r, err := ProgramCodec{}.Decode(blob)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	p := r.(*Program)
	if diff := cmp.Diff(&Program{Imports: []string{"os"}, Attrs: map[string]string{"a": "b"}}, p); diff != "" {
		t.Errorf("program mismatch (-want +got):\n%s", diff)
	}

	if _, err := (ProgramCodec{}).Decode([]byte("garbage")); err == nil {
		t.Error("expected error for bad magic")
	}
	if _, err := (ProgramCodec{}).Decode(append([]byte("MPB\x01"), 0xc1)); err == nil {
		t.Error("expected error for corrupt body")
	}
}

func TestScriptCodec(t *testing.T) {
	src := `package main

import "strings"

func Body(imp func(name string) error, set func(name, value string)) error {
	set("upper", strings.ToUpper("metapath"))
	return nil
}
`
	h := New(Options{Codec: ScriptCodec{}})
	code, err := h.Unmarshal([]byte(src))
	if err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}

	mod := NewModule("script")
	h.Modules().Set("script", mod)
	if _, err := h.Exec(context.Background(), mod, code, "script.py"); err != nil {
		t.Fatalf("Exec: %v", err)
	}
	if got := mod.StringAttr("upper"); got != "METAPATH" {
		t.Errorf("upper = %q, want METAPATH", got)
	}
}

func TestScriptCodecErrors(t *testing.T) {
	tests := []struct {
		name string
		src  string
	}{
		{"syntax", "package main\nfunc Body( {"},
		{"no body", "package main\nfunc Other() {}\n"},
		{"wrong signature", "package main\nfunc Body() error { return nil }\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := (ScriptCodec{}).Decode([]byte(tt.src)); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestFixupExtension(t *testing.T) {
	h := New(DefaultOptions())
	mod := NewExtension("pkg.ext")

	if err := h.FixupExtension(mod, "pkg.ext", "/dist/pkg/ext.so"); err != nil {
		t.Fatalf("FixupExtension: %v", err)
	}
	if f, ok := h.Extension("pkg.ext"); !ok || f != "/dist/pkg/ext.so" {
		t.Errorf("Extension = %q, %v", f, ok)
	}
	if err := h.FixupExtension(nil, "x", ""); err == nil {
		t.Error("expected error for nil module")
	}
}

func TestSwapPackageContext(t *testing.T) {
	h := New(DefaultOptions())
	if prev := h.SwapPackageContext("a.b"); prev != "" {
		t.Errorf("prev = %q, want empty", prev)
	}
	if prev := h.SwapPackageContext(""); prev != "a.b" {
		t.Errorf("prev = %q, want a.b", prev)
	}
}

func TestAdoptWasm(t *testing.T) {
	ctx := context.Background()
	r := wazero.NewRuntime(ctx)
	defer r.Close(ctx)

	inst, err := r.InstantiateWithConfig(ctx, extWasm, wazero.NewModuleConfig().WithName("pkg.sub.ext"))
	if err != nil {
		t.Fatalf("instantiate: %v", err)
	}

	t.Run("returns module", func(t *testing.T) {
		h := New(Options{Variant: metapath.Modern})
		mod, err := h.AdoptWasm(metapath.WithPackage(ctx, "pkg.sub.ext"), "PyInit_ext", inst, []uint64{42})
		if err != nil {
			t.Fatal(err)
		}
		ext, ok := mod.(metapath.ExtensionModule)
		if !ok || ext.Definition() == nil {
			t.Fatalf("expected extension module, got %T", mod)
		}
		if mod.Name() != "pkg.sub.ext" {
			t.Errorf("name = %q", mod.Name())
		}
		exports, _ := mod.Attr(AttrExports)
		if diff := cmp.Diff([]string{"PyInit_ext"}, exports); diff != "" {
			t.Errorf("exports mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("legacy registers in table", func(t *testing.T) {
		h := New(Options{Variant: metapath.Legacy})
		mod, err := h.AdoptWasm(ctx, "initext", inst, nil)
		if err != nil {
			t.Fatal(err)
		}
		if mod != nil {
			t.Errorf("legacy adopt returned %v", mod)
		}
		if _, ok := h.Modules().Get("ext"); !ok {
			t.Error("module not placed in table")
		}
	})
}

func TestAdoptNative(t *testing.T) {
	h := New(Options{Variant: metapath.Classic})
	mod, err := h.AdoptNative(context.Background(), "PyInit_fast", 0)
	if err != nil || mod != nil {
		t.Errorf("null return: mod=%v err=%v", mod, err)
	}

	mod, err = h.AdoptNative(context.Background(), "PyInit_fast", 0x1000)
	if err != nil {
		t.Fatal(err)
	}
	if mod.Name() != "fast" {
		t.Errorf("name = %q, want fast", mod.Name())
	}
}
