package generation

import (
	"encoding/base64"
	"errors"
	"fmt"
)

type Phase int

const (
	PhaseIdle Phase = iota
	PhaseLoading
	PhaseSucceeded
	PhaseFailed
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseLoading:
		return "loading"
	case PhaseSucceeded:
		return "succeeded"
	case PhaseFailed:
		return "failed"
	}
	return fmt.Sprintf("phase(%d)", int(p))
}

// ResultMediaType is what every generated image is served as.
const ResultMediaType = "image/png"

type Result struct {
	Data      []byte
	MediaType string
}

// DataURL renders the result for direct display in an <img> tag.
func (r *Result) DataURL() string {
	if r == nil {
		return ""
	}
	return "data:" + r.MediaType + ";base64," + base64.StdEncoding.EncodeToString(r.Data)
}

// Status is the generation state of one workspace. Result is only set when
// Phase is PhaseSucceeded, Message and Cause only when it is PhaseFailed.
type Status struct {
	Phase   Phase
	Result  *Result
	Message string
	Cause   error
}

func idle() Status { return Status{Phase: PhaseIdle} }

func loading() Status { return Status{Phase: PhaseLoading} }

func succeeded(r *Result) Status { return Status{Phase: PhaseSucceeded, Result: r} }

func failed(message string, cause error) Status {
	return Status{Phase: PhaseFailed, Message: message, Cause: cause}
}

const (
	MessageMissingImages    = "Please upload both a child and an adult photo."
	MessageGenerationFailed = "Failed to generate image. The model may be unavailable or the request was blocked. Please try again later."
)

var (
	ErrMissingImages = errors.New("both a child and an adult photo are required")
	ErrBusy          = errors.New("a generation is already in progress")
	ErrEmptyResult   = errors.New("remote returned an empty image")
)

type ErrorKind int

const (
	ErrorKindValidation ErrorKind = iota + 1
	ErrorKindEncoding
	ErrorKindRemote
)

func (k ErrorKind) String() string {
	switch k {
	case ErrorKindValidation:
		return "validation"
	case ErrorKindEncoding:
		return "encoding"
	case ErrorKindRemote:
		return "remote"
	}
	return "unknown"
}

// Error is the classified cause behind a failed generation.
type Error struct {
	Kind ErrorKind
	Err  error
}

func (e *Error) Error() string {
	return e.Kind.String() + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error { return e.Err }

// KindOf returns the kind of a classified error, or 0.
func KindOf(err error) ErrorKind {
	var ge *Error
	if errors.As(err, &ge) {
		return ge.Kind
	}
	return 0
}
