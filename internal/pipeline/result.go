package pipeline

import "fmt"

// Kind tags a stage outcome.
type Kind string

const (
	KindSuccess     Kind = "success"
	KindSoftFailure Kind = "soft-failure"
	KindHardFailure Kind = "hard-failure"
)

// Result is what every stage returns. Value is the payload written to the
// stage's produced field on success. Output carries raw captured tool output
// for diagnosis.
type Result struct {
	Kind    Kind
	Value   string
	Message string
	Warning string
	Err     error
	Output  string
}

// Success returns a successful result carrying value.
func Success(value string) Result {
	return Result{Kind: KindSuccess, Value: value}
}

// SoftFailure returns a non-fatal result.
func SoftFailure(warning string) Result {
	return Result{Kind: KindSoftFailure, Warning: warning}
}

// HardFailure returns a fatal result.
func HardFailure(err error) Result {
	if err == nil {
		err = fmt.Errorf("pipeline: unspecified failure")
	}
	return Result{Kind: KindHardFailure, Err: err}
}

// HardFailuref formats a fatal result.
func HardFailuref(format string, args ...any) Result {
	return HardFailure(fmt.Errorf(format, args...))
}

// WithMessage attaches a human readable detail.
func (r Result) WithMessage(format string, args ...any) Result {
	r.Message = fmt.Sprintf(format, args...)
	return r
}

// WithOutput attaches captured tool output.
func (r Result) WithOutput(output string) Result {
	r.Output = output
	return r
}

// OK reports a success.
func (r Result) OK() bool {
	return r.Kind == KindSuccess
}
