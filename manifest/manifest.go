package manifest

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/function"
	"github.com/zclconf/go-cty/cty/function/stdlib"
	"go.uber.org/zap"

	"github.com/wippyai/metapath"
	"github.com/wippyai/metapath/errors"
	"github.com/wippyai/metapath/registry"
)

type hclFile struct {
	BaseDir  string          `hcl:"base_dir,optional"`
	Protocol string          `hcl:"protocol,optional"`
	Modules  []moduleBlock   `hcl:"module,block"`
	Frozen   []frozenBlock   `hcl:"frozen,block"`
	Implicit []implicitBlock `hcl:"implicit,block"`
}

type moduleBlock struct {
	Name    string `hcl:"name,label"`
	Kind    string `hcl:"kind"`
	Package bool   `hcl:"package,optional"`
	Blob    string `hcl:"blob,optional"`
	Source  string `hcl:"source,optional"`
	Entry   string `hcl:"entry,optional"`
}

type frozenBlock struct {
	Name   string `hcl:"name,label"`
	Blob   string `hcl:"blob,optional"`
	Source string `hcl:"source,optional"`
}

type implicitBlock struct {
	Name    string   `hcl:"name,label"`
	Imports []string `hcl:"imports,optional"`
	Alias   string   `hcl:"alias,optional"`
}

// Manifest is a loaded distribution description.
type Manifest struct {
	imports map[string][]string
	aliases map[string]string
	path    string
	baseDir string
	table   registry.Table
	frozen  registry.FrozenTable
	variant metapath.Variant
}

// Load reads and decodes the manifest at path. natives binds native module
// entries to init functions.
func Load(path string, natives map[string]metapath.EntryFunc) (*Manifest, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(errors.PhaseManifest, errors.KindNotFound, err, "read manifest")
	}
	return Parse(src, path, natives)
}

// Parse decodes manifest source. filename locates relative blob paths and
// the default base directory.
func Parse(src []byte, filename string, natives map[string]metapath.EntryFunc) (*Manifest, error) {
	parser := hclparse.NewParser()
	file, diags := parser.ParseHCL(src, filename)
	if diags.HasErrors() {
		return nil, errors.Wrap(errors.PhaseManifest, errors.KindInvalidInput, diags, "parse "+filename)
	}

	var parsed hclFile
	diags = gohcl.DecodeBody(file.Body, evalContext(), &parsed)
	if diags.HasErrors() {
		return nil, errors.Wrap(errors.PhaseManifest, errors.KindInvalidInput, diags, "decode "+filename)
	}

	dir := filepath.Dir(filename)
	m := &Manifest{
		path:    filename,
		imports: make(map[string][]string),
		aliases: make(map[string]string),
	}

	variant, ok := metapath.VariantByName(parsed.Protocol)
	if !ok {
		return nil, errors.InvalidInput(errors.PhaseManifest, fmt.Sprintf("unknown protocol %q", parsed.Protocol))
	}
	m.variant = variant

	switch {
	case parsed.BaseDir == "":
		m.baseDir = dir
	case filepath.IsAbs(parsed.BaseDir):
		m.baseDir = parsed.BaseDir
	default:
		m.baseDir = filepath.Join(dir, parsed.BaseDir)
	}

	for _, b := range parsed.Modules {
		entry, err := m.entry(dir, b, natives)
		if err != nil {
			return nil, err
		}
		m.table = append(m.table, entry)
	}

	for _, b := range parsed.Frozen {
		if b.Name == "" {
			return nil, errEmptyName("frozen")
		}
		data, err := payload(dir, b.Name, b.Blob, b.Source)
		if err != nil {
			return nil, err
		}
		if data == nil {
			return nil, errors.New(errors.PhaseManifest, errors.KindInvalidEntry).
				Module(b.Name).
				Detail("frozen module needs blob or source").
				Build()
		}
		m.frozen = append(m.frozen, registry.FrozenEntry{Name: b.Name, Blob: data})
	}

	for _, b := range parsed.Implicit {
		if b.Alias != "" {
			m.aliases[b.Name] = b.Alias
		}
		if len(b.Imports) > 0 {
			m.imports[b.Name] = append(m.imports[b.Name], b.Imports...)
		}
	}

	if err := registry.New(m.table).Validate(); err != nil {
		return nil, errors.Wrap(errors.PhaseManifest, errors.KindInvalidEntry, err, "validate "+filename)
	}

	Logger().Debug("manifest loaded",
		zap.String("path", filename),
		zap.String("protocol", m.variant.Name),
		zap.Int("modules", len(m.table)),
		zap.Int("frozen", len(m.frozen)))

	return m, nil
}

// errEmptyName reports an empty label. An empty name terminates the table.
func errEmptyName(block string) error {
	return errors.New(errors.PhaseManifest, errors.KindInvalidEntry).
		Detail("empty %s module name", block).
		Build()
}

func (m *Manifest) entry(dir string, b moduleBlock, natives map[string]metapath.EntryFunc) (registry.Entry, error) {
	if b.Name == "" {
		return registry.Entry{}, errEmptyName("module")
	}
	kind, ok := registry.ParseKind(b.Kind)
	if !ok {
		return registry.Entry{}, errors.New(errors.PhaseManifest, errors.KindInvalidEntry).
			Module(b.Name).
			Detail("unknown kind %q", b.Kind).
			Build()
	}

	entry := registry.Entry{Name: b.Name, Flags: kind.Flags()}
	if b.Package {
		entry.Flags |= registry.FlagPackage
	}

	switch kind {
	case registry.KindBytecode:
		data, err := payload(dir, b.Name, b.Blob, b.Source)
		if err != nil {
			return registry.Entry{}, err
		}
		entry.Blob = data
	case registry.KindNative:
		name := b.Entry
		if name == "" {
			name = b.Name
		}
		fn, ok := natives[name]
		if !ok {
			return registry.Entry{}, errors.NotFound(errors.PhaseManifest, "native entry", name)
		}
		entry.Init = fn
	}
	return entry, nil
}

// payload reads blob relative to dir, or returns inline source.
func payload(dir, module, blob, source string) ([]byte, error) {
	if blob != "" && source != "" {
		return nil, errors.New(errors.PhaseManifest, errors.KindInvalidEntry).
			Module(module).
			Detail("blob and source are exclusive").
			Build()
	}
	if source != "" {
		return []byte(source), nil
	}
	if blob == "" {
		return nil, nil
	}
	if !filepath.IsAbs(blob) {
		blob = filepath.Join(dir, blob)
	}
	data, err := os.ReadFile(blob)
	if err != nil {
		return nil, errors.New(errors.PhaseManifest, errors.KindNotFound).
			Module(module).
			File(blob).
			Cause(err).
			Build()
	}
	return data, nil
}

func evalContext() *hcl.EvalContext {
	env := make(map[string]cty.Value)
	for _, kv := range os.Environ() {
		k, v, ok := strings.Cut(kv, "=")
		if ok && k != "" {
			env[k] = cty.StringVal(v)
		}
	}

	return &hcl.EvalContext{
		Variables: map[string]cty.Value{
			"env": cty.ObjectVal(env),
		},
		Functions: map[string]function.Function{
			"format": stdlib.FormatFunc,
			"join":   stdlib.JoinFunc,
			"lower":  stdlib.LowerFunc,
			"upper":  stdlib.UpperFunc,
		},
	}
}

// Path returns the manifest file name.
func (m *Manifest) Path() string {
	return m.path
}

// BaseDir returns the distribution directory.
func (m *Manifest) BaseDir() string {
	return m.baseDir
}

// Variant returns the declared protocol variant.
func (m *Manifest) Variant() metapath.Variant {
	return m.variant
}

// Table returns the module table, terminated by an empty entry.
func (m *Manifest) Table() registry.Table {
	t := make(registry.Table, len(m.table), len(m.table)+1)
	copy(t, m.table)
	return append(t, registry.Entry{})
}

// Frozen returns the frozen module table, terminated by an empty entry.
func (m *Manifest) Frozen() registry.FrozenTable {
	t := make(registry.FrozenTable, len(m.frozen), len(m.frozen)+1)
	copy(t, m.frozen)
	return append(t, registry.FrozenEntry{})
}

// Names returns the sorted module names.
func (m *Manifest) Names() []string {
	names := make([]string, 0, len(m.table))
	for _, e := range m.table {
		names = append(names, e.Name)
	}
	sort.Strings(names)
	return names
}
