package engine

import (
	"fmt"
	"strings"

	"github.com/leapstack-labs/songplays/pkg/core"
)

// ErrorKind classifies pipeline failures.
type ErrorKind string

// Error kinds.
const (
	KindConfiguration ErrorKind = "configuration"
	KindSchema        ErrorKind = "schema"
	KindLoad          ErrorKind = "load"
	KindTransform     ErrorKind = "transform"
	KindDiagnostic    ErrorKind = "diagnostic"
)

// KindOf maps a stage to the kind of error its statements raise.
func KindOf(stage core.Stage) ErrorKind {
	switch stage {
	case core.StageReset, core.StageCreate:
		return KindSchema
	case core.StageLoad:
		return KindLoad
	case core.StageTransform:
		return KindTransform
	case core.StageCheck:
		return KindDiagnostic
	}
	return KindConfiguration
}

// StatementError wraps the warehouse error for a failed statement.
type StatementError struct {
	Stage     core.Stage
	Statement string
	Table     string
	Err       error
}

func (e *StatementError) Error() string {
	return fmt.Sprintf("%s error in %s: %v", e.Kind(), e.Statement, e.Err)
}

// Unwrap returns the warehouse error unchanged.
func (e *StatementError) Unwrap() error { return e.Err }

// Kind reports the error class of the failed statement's stage.
func (e *StatementError) Kind() ErrorKind { return KindOf(e.Stage) }

// StageOrderError is returned when requested stages repeat or run out of order.
type StageOrderError struct {
	Stages []core.Stage
}

func (e *StageOrderError) Error() string {
	names := make([]string, len(e.Stages))
	for i, s := range e.Stages {
		names[i] = string(s)
	}
	return fmt.Sprintf("stages %s are out of order: stages run in the order reset, create, load, transform, check and each at most once",
		strings.Join(names, ","))
}

// Kind implements the pipeline error classification.
func (e *StageOrderError) Kind() ErrorKind { return KindConfiguration }

// SourceError is returned when a source location cannot be read before loading.
type SourceError struct {
	Source   string
	Location string
	Err      error
}

func (e *SourceError) Error() string {
	return fmt.Sprintf("load error: source %s (%s): %v", e.Source, e.Location, e.Err)
}

func (e *SourceError) Unwrap() error { return e.Err }

// Kind implements the pipeline error classification.
func (e *SourceError) Kind() ErrorKind { return KindLoad }

// ValidateStages checks stages are known, unique and in canonical order.
func ValidateStages(stages []core.Stage) error {
	last := -1
	for _, s := range stages {
		idx := s.Index()
		if idx < 0 {
			return fmt.Errorf("unknown stage %q", s)
		}
		if idx <= last {
			return &StageOrderError{Stages: stages}
		}
		last = idx
	}
	return nil
}
