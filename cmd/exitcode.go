package cmd

import (
	"github.com/pkg/errors"

	"github.com/wundergraph/github-graphql-proxy/pkg/gateway"
)

const (
	ExitOK            = 0
	ExitFailure       = 1
	ExitConfiguration = 2
	ExitUpstream      = 3
	ExitBind          = 4
)

// ExitCode maps an error returned by a command to the process exit code.
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}

	switch {
	case errors.Is(err, gateway.ErrConfiguration):
		return ExitConfiguration
	case errors.Is(err, gateway.ErrIntrospection), errors.Is(err, gateway.ErrComposition):
		return ExitUpstream
	case errors.Is(err, gateway.ErrBind):
		return ExitBind
	}
	return ExitFailure
}
