package shlib

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/wippyai/metapath"
	"github.com/wippyai/metapath/errors"
)

// Options configures a Loader.
type Options struct {
	// Suffix is the extension file suffix. Defaults to Variant.ExtSuffix.
	Suffix  string
	Variant metapath.Variant
	// Verbose traces every opened file through Logger at info level.
	Verbose bool
}

// Loader loads shared-library registry entries.
type Loader struct {
	host   metapath.Host
	opener Opener
	opts   Options
}

// New creates a loader that opens extension files with opener.
func New(host metapath.Host, opener Opener, opts Options) *Loader {
	if opts.Variant.Name == "" {
		opts.Variant = metapath.Modern
	}
	if opts.Suffix == "" {
		opts.Suffix = opts.Variant.ExtSuffix
	}
	return &Loader{host: host, opener: opener, opts: opts}
}

// Path returns the extension file and entry symbol of a module.
func (l *Loader) Path(name string) (file, symbol string) {
	_, leaf := Split(name)
	return FilePath(l.host.BaseDir(), name, l.opts.Suffix), EntrySymbol(l.opts.Variant.EntryPrefix, leaf)
}

// Load opens the extension file of name, runs its entry point and
// registers the result with the host.
func (l *Loader) Load(ctx context.Context, name string) (metapath.Module, error) {
	pkg, _ := Split(name)
	file, symbol := l.Path(name)
	flags := l.host.DlopenFlags()

	if l.opts.Verbose {
		Logger().Info(fmt.Sprintf("import %s # dlopen(%q, %x);", name, file, flags))
	}

	lib, err := l.opener.Open(ctx, file, flags)
	if err != nil {
		return nil, errors.OpenFailed(name, file, err)
	}

	sym, err := lib.Lookup(symbol)
	if err != nil {
		_ = lib.Close()
		return nil, errors.MissingSymbol(name, file, symbol, err)
	}

	// Top-level modules run with an empty context.
	pkgContext := ""
	if pkg != "" {
		pkgContext = name
	}

	mod, err := callWithPackage(ctx, l.host, pkgContext, sym)
	if err != nil {
		return nil, errors.New(errors.PhaseShlib, errors.KindBadModule).
			Module(name).
			File(file).
			Detail("entry point %s failed", symbol).
			Cause(err).
			Build()
	}

	if !l.opts.Variant.EntryReturnsModule {
		mod, _ = l.host.Modules().Get(name)
	}
	if mod == nil {
		return nil, errors.BadModule(errors.PhaseShlib, name, "dynamic module not initialized properly")
	}

	if l.opts.Variant.EntryReturnsModule {
		ext, ok := mod.(metapath.ExtensionModule)
		if !ok || ext.Definition() == nil {
			return nil, errors.BadModule(errors.PhaseShlib, name,
				fmt.Sprintf("initialization of %s did not return an extension module", file))
		}
		ext.Definition().Init = sym
	}

	_ = mod.SetAttr(metapath.AttrFile, file)

	if err := l.host.FixupExtension(mod, name, file); err != nil {
		return nil, errors.New(errors.PhaseShlib, errors.KindFixup).
			Module(name).
			File(file).
			Cause(err).
			Build()
	}

	Logger().Debug("loaded extension",
		zap.String("module", name),
		zap.String("file", file),
		zap.String("symbol", symbol))

	return mod, nil
}
