package importer

import (
	"github.com/wippyai/metapath"
	"github.com/wippyai/metapath/registry"
)

// InstallableHost is a host whose meta path accepts new finders.
type InstallableHost interface {
	metapath.Host
	Install(finder any) error
}

// Setup installs table process-wide, creates the importer and inserts it
// on the host meta path.
func Setup(host InstallableHost, table registry.Table, frozen registry.FrozenSet, opts Options) (*Importer, error) {
	reg := registry.Register(table)
	imp := New(host, reg, frozen, opts)

	if opts.Verbose {
		Logger().Info("setup metapath compiled module/bytecode/shlib importer")
	}

	if err := host.Install(imp); err != nil {
		return nil, err
	}
	return imp, nil
}
