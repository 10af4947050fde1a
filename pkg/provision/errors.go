package provision

import (
	"context"
	"errors"
	"fmt"

	"github.com/scaii/sky-install/pkg/platform"
	"github.com/scaii/sky-install/pkg/source"
)

// ErrorKind classifies a failure for reporting and metrics.
type ErrorKind string

const (
	// ErrorKindProcessLaunch means an external program could not be started.
	ErrorKindProcessLaunch ErrorKind = "process_launch"

	// ErrorKindProcessFailed means a program exited non-zero or its output
	// carried an error marker.
	ErrorKindProcessFailed ErrorKind = "process_failed"

	// ErrorKindFilesystem is a local I/O failure.
	ErrorKindFilesystem ErrorKind = "filesystem"

	// ErrorKindOutputNotText means process output could not be decoded.
	ErrorKindOutputNotText ErrorKind = "output_not_text"

	// ErrorKindPrecondition means a prior step has not been performed.
	ErrorKindPrecondition ErrorKind = "precondition"

	// ErrorKindHomeUnresolved means the user's home directory is unknown.
	ErrorKindHomeUnresolved ErrorKind = "home_unresolved"

	// ErrorKindVCSHeuristic means git output reported a failed clone or checkout.
	ErrorKindVCSHeuristic ErrorKind = "vcs_heuristic"

	// ErrorKindDownload means a remote archive could not be retrieved.
	ErrorKindDownload ErrorKind = "download"

	// ErrorKindCanceled means the run was interrupted.
	ErrorKindCanceled ErrorKind = "canceled"
)

// InstallError is a classified failure raised by a provisioning step.
type InstallError struct {
	// Kind is the failure classification.
	Kind ErrorKind

	// Message describes the failure. When empty the underlying error's
	// text is used unchanged.
	Message string

	// Component is the component being processed, if any.
	Component ComponentID

	// Step is the pipeline step that failed, if any.
	Step string

	// Err is the underlying error.
	Err error
}

// Error implements the error interface.
func (e *InstallError) Error() string {
	switch {
	case e.Message != "" && e.Err != nil:
		return fmt.Sprintf("%s: %s", e.Message, e.Err.Error())
	case e.Message != "":
		return e.Message
	case e.Err != nil:
		return e.Err.Error()
	default:
		return string(e.Kind)
	}
}

// Unwrap returns the underlying error for error chain inspection.
func (e *InstallError) Unwrap() error {
	return e.Err
}

// Is reports whether target is an InstallError of the same kind.
func (e *InstallError) Is(target error) bool {
	t, ok := target.(*InstallError)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

// WithComponent adds component context to an error.
func (e *InstallError) WithComponent(id ComponentID) *InstallError {
	e.Component = id
	return e
}

// WithStep adds step context to an error.
func (e *InstallError) WithStep(step string) *InstallError {
	e.Step = step
	return e
}

// NewPreconditionError creates a new precondition error.
func NewPreconditionError(message string) *InstallError {
	return &InstallError{Kind: ErrorKindPrecondition, Message: message}
}

// NewHomeUnresolvedError creates a new home-directory error.
func NewHomeUnresolvedError(err error) *InstallError {
	return &InstallError{Kind: ErrorKindHomeUnresolved, Message: "unable to determine home directory", Err: err}
}

// NewProcessFailedError creates an error for a build or tool failure
// detected from its output.
func NewProcessFailedError(message string) *InstallError {
	return &InstallError{Kind: ErrorKindProcessFailed, Message: message}
}

// KindOf returns the kind of err, classifying it when it is not already
// an InstallError.
func KindOf(err error) ErrorKind {
	if err == nil {
		return ""
	}
	var ie *InstallError
	if errors.As(err, &ie) {
		return ie.Kind
	}
	return classify(err)
}

// IsPrecondition returns true if the error is a precondition failure.
func IsPrecondition(err error) bool {
	return KindOf(err) == ErrorKindPrecondition
}

// wrap classifies err and attaches step context, leaving the message
// intact. Existing InstallErrors only gain missing context.
func wrap(err error, component ComponentID, step string) error {
	if err == nil {
		return nil
	}
	var ie *InstallError
	if errors.As(err, &ie) {
		if ie.Component == "" {
			ie.Component = component
		}
		if ie.Step == "" {
			ie.Step = step
		}
		return err
	}
	return &InstallError{Kind: classify(err), Component: component, Step: step, Err: err}
}

func classify(err error) ErrorKind {
	var (
		launchErr  *platform.LaunchError
		processErr *platform.ProcessError
	)
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return ErrorKindCanceled
	case errors.Is(err, platform.ErrOutputNotText):
		return ErrorKindOutputNotText
	case errors.As(err, &launchErr):
		return ErrorKindProcessLaunch
	case errors.As(err, &processErr):
		return ErrorKindProcessFailed
	case errors.Is(err, source.ErrCloneFailed), errors.Is(err, source.ErrCheckoutFailed):
		return ErrorKindVCSHeuristic
	case errors.Is(err, source.ErrDownload):
		return ErrorKindDownload
	default:
		return ErrorKindFilesystem
	}
}
