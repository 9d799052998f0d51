package gateway

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	ErrConfiguration = errors.New("configuration error")
	ErrIntrospection = errors.New("introspection error")
	ErrComposition   = errors.New("composition error")
	ErrBind          = errors.New("bind error")
)

// Stage is a step of the startup sequence.
type Stage string

const (
	StageConfiguration Stage = "configuration"
	StageIntrospection Stage = "introspection"
	StageComposition   Stage = "composition"
	StageBind          Stage = "bind"
)

func (s Stage) sentinel() error {
	switch s {
	case StageConfiguration:
		return ErrConfiguration
	case StageIntrospection:
		return ErrIntrospection
	case StageComposition:
		return ErrComposition
	case StageBind:
		return ErrBind
	}
	return nil
}

// StartupError reports the stage at which startup stopped.
// errors.Is matches it against the sentinel error of its stage.
type StartupError struct {
	Stage Stage
	Err   error
}

func (e *StartupError) Error() string {
	return fmt.Sprintf("%s stage failed: %v", e.Stage, e.Err)
}

func (e *StartupError) Unwrap() error {
	return e.Err
}

func (e *StartupError) Is(target error) bool {
	sentinel := e.Stage.sentinel()
	return sentinel != nil && target == sentinel
}

func stageError(stage Stage, err error) error {
	return &StartupError{Stage: stage, Err: err}
}
