package stream

import (
	"errors"
	"fmt"
)

var (
	ErrProcessLaunch     = errors.New("the process failed to start")
	ErrProcessCrash      = errors.New("the process crashed")
	ErrJSONParse         = errors.New("couldn't parse JSON file")
	ErrPlaylistIllFormed = errors.New("couldn't parse playlist (ill-formed JSON file)")
	ErrNoData            = errors.New("couldn't parse playlist (no data received)")
	ErrCancelled         = errors.New("cancelled")
)

// ExitError is a clean helper exit with a non-zero code.
type ExitError struct {
	Code   int
	Stderr string
}

func (e *ExitError) Error() string {
	if e.Stderr == "" {
		return fmt.Sprintf("helper exited with code %d", e.Code)
	}
	return fmt.Sprintf("helper exited with code %d: %s", e.Code, e.Stderr)
}

// HelperError is an "ERROR:" line the helper printed while downloading.
type HelperError struct {
	Line string
}

func (e *HelperError) Error() string {
	return e.Line
}
