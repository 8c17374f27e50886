package bytecode

import (
	"context"
	stderrors "errors"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/wippyai/metapath"
	"github.com/wippyai/metapath/errors"
	"github.com/wippyai/metapath/memhost"
	"github.com/wippyai/metapath/registry"
)

func program(p memhost.Program) []byte {
	return memhost.MustEncodeProgram(p)
}

// regFinder serves bytecode registry entries to a memhost import
// statement.
type regFinder struct {
	reg    *registry.Registry
	loader *Loader
}

func (f *regFinder) FindModule(name string, _ []string) bool {
	_, ok := f.reg.Find(name)
	return ok
}

func (f *regFinder) LoadModule(ctx context.Context, name string) (metapath.Module, error) {
	entry, _ := f.reg.Find(name)
	return f.loader.Load(ctx, entry)
}

func TestPaths(t *testing.T) {
	sep := string(filepath.Separator)
	tests := []struct {
		name  string
		pkg   bool
		want  string
		mpath string
	}{
		{"app", false, "app.py", "app"},
		{"app", true, "app" + sep + "__init__.py", "app"},
		{"app.util", false, "app" + sep + "util.py", "app" + sep + "util"},
		{"a.b.c", true, "a" + sep + "b" + sep + "c" + sep + "__init__.py", "a" + sep + "b" + sep + "c"},
	}

	for _, tt := range tests {
		if got := SourcePath(tt.name, tt.pkg, "py"); got != tt.want {
			t.Errorf("SourcePath(%q, %v) = %q, want %q", tt.name, tt.pkg, got, tt.want)
		}
		if got := ModulePath(tt.name); got != tt.mpath {
			t.Errorf("ModulePath(%q) = %q, want %q", tt.name, got, tt.mpath)
		}
	}

	if got := Relative("", "x.py"); got != "x.py" {
		t.Errorf("Relative without base = %q", got)
	}
	if got := Relative("/dist", "x.py"); got != filepath.Join("/dist", "x.py") {
		t.Errorf("Relative with base = %q", got)
	}
}

func TestLoadAttributes(t *testing.T) {
	base := filepath.Join("/opt", "dist")
	tests := []struct {
		name       string
		variant    metapath.Variant
		entry      registry.Entry
		wantFile   string
		wantPath   []string
		wantLoader bool
	}{
		{
			name:       "package",
			variant:    metapath.Modern,
			entry:      registry.Entry{Name: "app", Flags: registry.FlagBytecode | registry.FlagPackage, Blob: program(memhost.Program{})},
			wantFile:   filepath.Join(base, "app", "__init__.py"),
			wantPath:   []string{filepath.Join(base, "app")},
			wantLoader: true,
		},
		{
			name:       "module",
			variant:    metapath.Classic,
			entry:      registry.Entry{Name: "app.util", Flags: registry.FlagBytecode, Blob: program(memhost.Program{})},
			wantFile:   filepath.Join(base, "app", "util.py"),
			wantLoader: true,
		},
		{
			name:     "legacy has no loader attribute",
			variant:  metapath.Legacy,
			entry:    registry.Entry{Name: "tool", Flags: registry.FlagBytecode, Blob: program(memhost.Program{})},
			wantFile: filepath.Join(base, "tool.py"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			host := memhost.New(memhost.Options{BaseDir: base, Variant: tt.variant})
			identity := &struct{ name string }{"loader"}
			l := New(host, tt.variant, identity)

			mod, err := l.Load(context.Background(), &tt.entry)
			if err != nil {
				t.Fatalf("Load: %v", err)
			}

			file, _ := mod.Attr(metapath.AttrFile)
			if file != tt.wantFile {
				t.Errorf("__file__ = %v, want %q", file, tt.wantFile)
			}

			path, ok := mod.Attr(metapath.AttrPath)
			if tt.wantPath == nil && ok {
				t.Errorf("non-package has __path__ = %v", path)
			}
			if tt.wantPath != nil {
				if diff := cmp.Diff(tt.wantPath, path); diff != "" {
					t.Errorf("__path__ mismatch (-want +got):\n%s", diff)
				}
			}

			loader, ok := mod.Attr(metapath.AttrLoader)
			if ok != tt.wantLoader {
				t.Errorf("__loader__ present = %v, want %v", ok, tt.wantLoader)
			}
			if ok && loader != identity {
				t.Errorf("__loader__ = %v, want the loader identity", loader)
			}
		})
	}
}

func TestLoadVisibleBeforeBody(t *testing.T) {
	var visible bool
	var host *memhost.Host
	host = memhost.New(memhost.Options{ExecHook: func(name string) {
		_, visible = host.Modules().Get(name)
	}})

	entry := registry.Entry{Name: "early", Flags: registry.FlagBytecode, Blob: program(memhost.Program{})}
	if _, err := New(host, metapath.Modern, nil).Load(context.Background(), &entry); err != nil {
		t.Fatal(err)
	}
	if !visible {
		t.Error("module not in the module table when its body started")
	}
}

func TestLoadMutualImports(t *testing.T) {
	reg := registry.New(registry.Table{
		{Name: "a", Flags: registry.FlagBytecode, Blob: program(memhost.Program{Imports: []string{"b"}, Attrs: map[string]string{"done": "a"}})},
		{Name: "b", Flags: registry.FlagBytecode, Blob: program(memhost.Program{Imports: []string{"a"}, Attrs: map[string]string{"done": "b"}})},
	})
	host := memhost.New(memhost.Options{Variant: metapath.Legacy})
	if err := host.Install(&regFinder{reg: reg, loader: New(host, metapath.Legacy, nil)}); err != nil {
		t.Fatal(err)
	}

	mod, err := host.Import(context.Background(), "a")
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	if got := mod.(*memhost.Module).StringAttr("done"); got != "a" {
		t.Errorf("a.done = %q", got)
	}
	if diff := cmp.Diff([]string{"a", "b"}, host.Loaded()); diff != "" {
		t.Errorf("loaded mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadFailures(t *testing.T) {
	t.Run("corrupt blob is fatal", func(t *testing.T) {
		host := memhost.New(memhost.DefaultOptions())
		entry := registry.Entry{Name: "bad", Flags: registry.FlagBytecode, Blob: []byte("not a program")}

		_, err := New(host, metapath.Modern, nil).Load(context.Background(), &entry)
		if !errors.IsFatal(err) {
			t.Fatalf("expected fatal error, got %v", err)
		}
		var e *errors.Error
		if !stderrors.As(err, &e) || e.Kind != errors.KindCorruptBlob {
			t.Errorf("kind = %v, want corrupt_blob", err)
		}
		if _, ok := host.Modules().Get("bad"); ok {
			t.Error("corrupt module placed in module table")
		}
	})

	t.Run("occupied slot is fatal", func(t *testing.T) {
		host := memhost.New(memhost.DefaultOptions())
		host.Modules().Set("taken", memhost.NewModule("taken"))
		entry := registry.Entry{Name: "taken", Flags: registry.FlagBytecode, Blob: program(memhost.Program{})}

		_, err := New(host, metapath.Modern, nil).Load(context.Background(), &entry)
		var e *errors.Error
		if !stderrors.As(err, &e) || e.Kind != errors.KindSlotOccupied {
			t.Fatalf("expected slot_occupied, got %v", err)
		}
		if !errors.IsFatal(err) {
			t.Error("occupied slot should be fatal")
		}
	})

	t.Run("body error is returned unchanged", func(t *testing.T) {
		host := memhost.New(memhost.DefaultOptions())
		entry := registry.Entry{Name: "raises", Flags: registry.FlagBytecode, Blob: program(memhost.Program{Raise: "nope"})}

		_, err := New(host, metapath.Modern, nil).Load(context.Background(), &entry)
		var re *memhost.RaisedError
		if !stderrors.As(err, &re) {
			t.Fatalf("expected RaisedError, got %T %v", err, err)
		}
		if errors.IsFatal(err) {
			t.Error("body error must not be fatal")
		}
		if _, ok := host.Modules().Get("raises"); ok {
			t.Error("failed module left in module table")
		}
	})
}
