package pipeline

import (
	"context"
	"fmt"
)

// Info describes a stage's identity and its context contract.
type Info struct {
	ID   string
	Name string
	// Produces is the context field a Success value is written to.
	Produces Field
	// Requires lists fields that must be set before the stage may run.
	Requires []Field
	// SoftFail allows SoftFailure results; from any other stage a soft
	// failure is treated as fatal.
	SoftFail bool
}

// Validate ensures the info block is well-formed.
func (i Info) Validate() error {
	if i.ID == "" {
		return fmt.Errorf("pipeline: stage id is required")
	}
	if i.Name == "" {
		return fmt.Errorf("pipeline: stage name is required for %s", i.ID)
	}
	if i.Produces == FieldTargetNetwork {
		return fmt.Errorf("pipeline: %s cannot produce %s", i.ID, i.Produces)
	}
	return nil
}

// Label is the display name, falling back to the ID.
func (i Info) Label() string {
	if i.Name != "" {
		return i.Name
	}
	return i.ID
}

// Stage is implemented by every pipeline step.
type Stage interface {
	Info() Info
	Run(ctx context.Context, in Inputs) Result
}

// Reporter receives progress notifications. It is a presentation sink; it
// never influences control flow.
type Reporter interface {
	StageStarted(info Info)
	StageSucceeded(info Info, message string)
	StageWarned(info Info, warning string)
	StageFailed(info Info, err error, output string)
}

type nopReporter struct{}

func (nopReporter) StageStarted(Info)               {}
func (nopReporter) StageSucceeded(Info, string)     {}
func (nopReporter) StageWarned(Info, string)        {}
func (nopReporter) StageFailed(Info, error, string) {}

// StageError is returned when a stage hard-fails.
type StageError struct {
	Stage  string
	Err    error
	Output string
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}
