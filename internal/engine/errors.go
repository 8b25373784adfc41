package engine

import (
	"errors"
	"fmt"
)

// Kind classifies engine failures.
type Kind string

const (
	KindRecognition   Kind = "recognition_failure"
	KindInvalidOutput Kind = "invalid_output_kind"
	KindAuxiliary     Kind = "auxiliary_artifact_failure"
	KindIO            Kind = "io_failure"
)

// Stage names the step of a run that failed.
type Stage string

const (
	StageValidate  Stage = "validate"
	StageDownload  Stage = "download"
	StagePrepare   Stage = "prepare"
	StageRecognize Stage = "recognize"
	StageRender    Stage = "render"
	StageUpload    Stage = "upload"
	StageCleanup   Stage = "cleanup"
)

var (
	ErrRecognition       = errors.New("recognition failure")
	ErrInvalidOutputKind = errors.New("invalid output kind")
	ErrAuxiliaryArtifact = errors.New("auxiliary artifact failure")
	ErrIO                = errors.New("io failure")
)

// Error wraps a collaborator failure with the output being produced and
// the stage it failed in. errors.Is matches both the Kind sentinel and the
// wrapped cause.
type Error struct {
	Kind   Kind
	Stage  Stage
	Output OutputKind
	Err    error
}

func (e *Error) Error() string {
	if e.Output == "" {
		return fmt.Sprintf("%s: %v", e.Stage, e.Err)
	}
	return fmt.Sprintf("%s %s: %v", e.Output, e.Stage, e.Err)
}

func (e *Error) Unwrap() []error {
	errs := []error{e.Err}
	if s := e.Kind.sentinel(); s != nil {
		errs = append(errs, s)
	}
	return errs
}

func (k Kind) sentinel() error {
	switch k {
	case KindRecognition:
		return ErrRecognition
	case KindInvalidOutput:
		return ErrInvalidOutputKind
	case KindAuxiliary:
		return ErrAuxiliaryArtifact
	case KindIO:
		return ErrIO
	default:
		return nil
	}
}

// KindOf returns the Kind of the first *Error in err's chain, or "" when
// there is none.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

func wrap(kind Kind, stage Stage, output OutputKind, err error) error {
	return &Error{Kind: kind, Stage: stage, Output: output, Err: err}
}
