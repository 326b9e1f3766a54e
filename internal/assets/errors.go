package assets

import (
	"errors"
	"fmt"

	"github.com/evanw/esbuild/pkg/api"
)

var ErrNoEntryPoints = errors.New("no entry points found")

// BuildError is returned when esbuild reports errors
type BuildError struct {
	Messages []string
}

func newBuildError(msgs []api.Message) *BuildError {
	e := &BuildError{}
	for _, msg := range msgs {
		e.Messages = append(e.Messages, formatMessage(msg))
	}
	return e
}

func (e *BuildError) Error() string {
	if len(e.Messages) == 1 {
		return "esbuild failed: " + e.Messages[0]
	}
	return fmt.Sprintf("esbuild failed with %d errors, first: %s", len(e.Messages), e.Messages[0])
}
