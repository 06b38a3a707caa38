package analysis

import (
	"errors"
	"fmt"

	"github.com/video-summary/backend/internal/staging"
)

// ErrVideoNotFound is returned for an unknown or already analysed video id.
var ErrVideoNotFound = staging.ErrNotFound

// Kind tags the step an analysis attempt failed in.
type Kind int

const (
	KindStaging Kind = iota + 1
	KindUpload
	KindProcessing
	KindTimeout
	KindModel
	KindInternal
)

func (k Kind) String() string {
	switch k {
	case KindStaging:
		return "staging"
	case KindUpload:
		return "upload"
	case KindProcessing:
		return "processing"
	case KindTimeout:
		return "timeout"
	case KindModel:
		return "model"
	case KindInternal:
		return "internal"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Error is a failed analysis attempt. Its text is the original error text.
type Error struct {
	Kind Kind
	Err  error
}

func (e *Error) Error() string {
	return e.Err.Error()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf returns the kind of err, or zero when err is not an *Error.
func KindOf(err error) Kind {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return 0
}
