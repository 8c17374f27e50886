package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"sort"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/term"

	"github.com/wippyai/metapath"
	"github.com/wippyai/metapath/bytecode"
	"github.com/wippyai/metapath/importer"
	"github.com/wippyai/metapath/manifest"
	"github.com/wippyai/metapath/memhost"
	"github.com/wippyai/metapath/registry"
	"github.com/wippyai/metapath/shlib"
	"github.com/wippyai/metapath/trigger"
)

// nativeBindings returns the init functions manifests can bind native
// entries to. "noop" suits triggers; "module" registers an empty module
// under the name being imported.
func nativeBindings(host func() *memhost.Host) map[string]metapath.EntryFunc {
	return map[string]metapath.EntryFunc{
		"noop": func(context.Context) error { return nil },
		"module": func(ctx context.Context) error {
			name := metapath.ModuleFrom(ctx)
			if name == "" {
				return fmt.Errorf("module binding called outside an import")
			}
			h := host()
			h.Modules().Set(name, h.NewModule(name))
			return nil
		},
	}
}

func main() {
	var (
		manifestFile = flag.String("manifest", "", "Path to distribution manifest (.hcl)")
		findName     = flag.String("find", "", "Ask the finder about a module")
		loadName     = flag.String("load", "", "Import a module and print it")
		codecName    = flag.String("codec", "program", "Bytecode codec: program or script")
		suffix       = flag.String("suffix", "", "Override the extension file suffix")
		list         = flag.Bool("list", false, "List the module table and exit")
		verbose      = flag.Bool("v", false, "Trace import decisions to stderr")
		interactive  = flag.Bool("i", false, "Interactive mode with TUI")
	)
	flag.Parse()

	if *manifestFile == "" {
		fmt.Fprintln(os.Stderr, "Usage: metapath -manifest <dist.hcl> -list")
		fmt.Fprintln(os.Stderr, "       metapath -manifest <dist.hcl> -find name")
		fmt.Fprintln(os.Stderr, "       metapath -manifest <dist.hcl> -load name [-v]")
		fmt.Fprintln(os.Stderr, "       metapath -manifest <dist.hcl> -i  (interactive mode)")
		os.Exit(1)
	}

	if *verbose {
		setVerbose()
	}

	ctx := context.Background()
	env, err := newEnvironment(ctx, *manifestFile, *codecName, *suffix, *verbose)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer env.close(ctx)

	if *interactive {
		if !term.IsTerminal(int(os.Stdout.Fd())) {
			fmt.Fprintln(os.Stderr, "Error: interactive mode needs a terminal")
			os.Exit(1)
		}
		if err := runInteractive(env); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	if err := run(ctx, env, *findName, *loadName, *list); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// environment is a host with the importer installed for one manifest.
type environment struct {
	manifest *manifest.Manifest
	host     *memhost.Host
	importer *importer.Importer
	wasm     *shlib.WasmOpener
}

func newEnvironment(ctx context.Context, path, codecName, suffix string, verbose bool) (*environment, error) {
	var host *memhost.Host
	m, err := manifest.Load(path, nativeBindings(func() *memhost.Host { return host }))
	if err != nil {
		return nil, err
	}

	var codec memhost.Codec
	switch codecName {
	case "program":
		codec = memhost.ProgramCodec{}
	case "script":
		codec = memhost.ScriptCodec{}
	default:
		return nil, fmt.Errorf("unknown codec %q", codecName)
	}

	host = memhost.New(memhost.Options{
		Codec:       codec,
		BaseDir:     m.BaseDir(),
		Frozen:      m.Frozen(),
		Variant:     m.Variant(),
		DlopenFlags: shlib.DefaultDlopenFlags,
	})

	wasm := shlib.NewWasmOpener(ctx, host.AdoptWasm)
	native := m.Variant().ExtSuffix
	if suffix != "" {
		native = suffix
	}
	opener := shlib.MultiOpener{
		".wasm": wasm,
		native:  shlib.NewDlopenOpener(host.AdoptNative),
	}

	imp, err := importer.Setup(host, m.Table(), m.Frozen(), importer.Options{
		Opener:  opener,
		Suffix:  suffix,
		Variant: m.Variant(),
		Verbose: verbose,
	})
	if err != nil {
		_ = wasm.Close(ctx)
		return nil, err
	}

	return &environment{manifest: m, host: host, importer: imp, wasm: wasm}, nil
}

func (e *environment) close(ctx context.Context) {
	_ = e.wasm.Close(ctx)
}

func (e *environment) entries() []registry.Entry {
	entries := registry.New(e.manifest.Table()).Entries()
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name < entries[j].Name })
	return entries
}

func (e *environment) describeFind(name string) string {
	var b strings.Builder
	if !e.importer.FindModule(name, nil) {
		fmt.Fprintf(&b, "%s: denied responsibility\n", name)
		return b.String()
	}

	isPkg, known := e.importer.IsPackage(name)
	switch {
	case !known:
		fmt.Fprintf(&b, "%s: claimed (frozen)\n", name)
	case isPkg:
		fmt.Fprintf(&b, "%s: claimed (package)\n", name)
	default:
		fmt.Fprintf(&b, "%s: claimed\n", name)
	}

	if spec := e.importer.FindSpec(name, nil); spec != nil {
		fmt.Fprintf(&b, "  spec: origin=%s package=%v loader=%s\n", spec.Origin, spec.IsPackage, spec.Loader)
	}
	if strings.HasSuffix(name, trigger.PreLoad) || strings.HasSuffix(name, trigger.PostLoad) {
		fmt.Fprintf(&b, "  trigger companion\n")
	}
	return b.String()
}

func (e *environment) describeLoad(ctx context.Context, name string) (string, error) {
	mod, err := e.host.Import(ctx, name)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	b.WriteString(e.importer.ModuleRepr(mod))
	b.WriteString("\n")
	if m, ok := mod.(*memhost.Module); ok {
		for _, attr := range m.AttrNames() {
			v, _ := m.Attr(attr)
			fmt.Fprintf(&b, "  %s = %v\n", attr, v)
		}
	}
	if file, ok := e.host.Extension(name); ok {
		fmt.Fprintf(&b, "  extension: %s\n", file)
	}
	return b.String(), nil
}

func run(ctx context.Context, env *environment, findName, loadName string, listOnly bool) error {
	m := env.manifest
	fmt.Printf("Manifest: %s\n", m.Path())
	fmt.Printf("Protocol: %s\n", m.Variant().Name)
	fmt.Printf("Base dir: %s\n", m.BaseDir())
	fmt.Printf("Modules: %d\n", m.Table().Len())

	if listOnly || (findName == "" && loadName == "") {
		fmt.Printf("\nModule table:\n")
		for _, e := range env.entries() {
			fmt.Printf("  %s\n", formatEntry(&e, m.BaseDir(), m.Variant()))
		}
		if err := m.CheckImplicit(); err != nil {
			fmt.Printf("\n%v\n", err)
		}
		return nil
	}

	if findName != "" {
		fmt.Printf("\n%s", env.describeFind(findName))
	}

	if loadName != "" {
		out, err := env.describeLoad(ctx, loadName)
		if err != nil {
			return fmt.Errorf("import %s: %w", loadName, err)
		}
		fmt.Printf("\n%s", out)
	}

	return nil
}

func formatEntry(e *registry.Entry, base string, variant metapath.Variant) string {
	var detail string
	switch e.Kind() {
	case registry.KindBytecode:
		detail = fmt.Sprintf("%d bytes, %s", e.Size(), bytecode.Relative(base, bytecode.SourcePath(e.Name, e.IsPackage(), variant.SourceExt)))
	case registry.KindShlib:
		_, leaf := shlib.Split(e.Name)
		detail = shlib.EntrySymbol(variant.EntryPrefix, leaf)
	default:
		detail = "init"
	}
	pkg := ""
	if e.IsPackage() {
		pkg = " [package]"
	}
	return fmt.Sprintf("%-32s %-8s%s %s", e.Name, e.Kind(), pkg, detail)
}

// setVerbose routes every package's trace output to a console logger on
// stderr.
func setVerbose() {
	cfg := zap.NewDevelopmentConfig()
	cfg.EncoderConfig = zapcore.EncoderConfig{MessageKey: "msg", LineEnding: zapcore.DefaultLineEnding}
	cfg.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	cfg.OutputPaths = []string{"stderr"}
	cfg.DisableStacktrace = true
	cfg.DisableCaller = true

	l, err := cfg.Build()
	if err != nil {
		return
	}

	importer.SetLogger(l)
	trigger.SetLogger(l)
	shlib.SetLogger(l)
	bytecode.SetLogger(l)
	registry.SetLogger(l)
	memhost.SetLogger(l)
	manifest.SetLogger(l)
}
