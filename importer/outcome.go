package importer

import (
	"github.com/wippyai/metapath"
	"github.com/wippyai/metapath/errors"
)

// Status is the result class of a resolution.
type Status int

const (
	// StatusAbstain means the importer has no opinion on the name.
	StatusAbstain Status = iota
	StatusSuccess
	// StatusFailed is an ordinary import failure for the host to report.
	StatusFailed
	// StatusFatal is an integrity violation; the process must not continue.
	StatusFatal
)

func (s Status) String() string {
	switch s {
	case StatusAbstain:
		return "abstain"
	case StatusSuccess:
		return "success"
	case StatusFailed:
		return "failed"
	case StatusFatal:
		return "fatal"
	}
	return "unknown"
}

// Outcome is the tagged result of Resolve.
type Outcome struct {
	Module metapath.Module
	Err    error
	Status Status
}

func failed(err error) Outcome {
	if errors.IsFatal(err) {
		return Outcome{Status: StatusFatal, Err: err}
	}
	return Outcome{Status: StatusFailed, Err: err}
}
