package memhost

import "fmt"

// ImportError is raised by Import when no finder supplies a module.
type ImportError struct {
	Name   string
	Reason string
}

func (e *ImportError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("No module named '%s' (%s)", e.Name, e.Reason)
	}
	return fmt.Sprintf("No module named '%s'", e.Name)
}

// RaisedError is an error raised by a module body.
type RaisedError struct {
	Module  string
	Message string
}

func (e *RaisedError) Error() string {
	return fmt.Sprintf("%s: %s", e.Module, e.Message)
}
