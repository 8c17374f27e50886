package registry

import (
	"sync"

	"go.uber.org/zap"

	"github.com/wippyai/metapath/errors"
	"github.com/wippyai/metapath/internal/abort"
)

var (
	installMu sync.Mutex
	installed *Registry
	table     Table
	abortFn   abort.Func = abort.Exit
)

// Register installs the process-wide module table and returns its registry.
// Registering the identical table again returns the installed registry.
// Registering a different table terminates the process.
func Register(t Table) *Registry {
	installMu.Lock()
	defer installMu.Unlock()

	if installed != nil {
		if !same(t, table) {
			abortFn(errors.Conflict("module table already registered with a different table"))
		}
		return installed
	}

	installed = New(t)
	table = t
	Logger().Debug("module table registered", zap.Int("entries", installed.Len()))
	return installed
}

// Installed returns the process-wide registry, or nil before Register.
func Installed() *Registry {
	installMu.Lock()
	defer installMu.Unlock()
	return installed
}
