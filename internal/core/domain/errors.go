package domain

import (
	"errors"
	"fmt"
)

// ErrorCode identifies the stage at which an orchestration failed.
type ErrorCode string

const (
	ErrCodePolygonNotFound         ErrorCode = "polygon_not_found"
	ErrCodePolygonExtractionFailed ErrorCode = "polygon_extraction_failed"
	ErrCodeNoParkingFound          ErrorCode = "no_parking_found"
	ErrCodeNoRatedParking          ErrorCode = "no_rated_parking"
	ErrCodeUnknown                 ErrorCode = "unknown_error"
)

// ErrNotFound is returned by repositories when a record does not exist.
var ErrNotFound = errors.New("not found")

// PipelineError is a stage failure carrying its result code.
type PipelineError struct {
	Code ErrorCode
	Err  error
}

func (e *PipelineError) Error() string {
	if e.Err == nil {
		return string(e.Code)
	}
	return fmt.Sprintf("%s: %v", e.Code, e.Err)
}

func (e *PipelineError) Unwrap() error { return e.Err }

// StageError wraps err with a stage code.
func StageError(code ErrorCode, err error) error {
	return &PipelineError{Code: code, Err: err}
}

// CodeOf returns the code of the first PipelineError in err's chain,
// or ErrCodeUnknown.
func CodeOf(err error) ErrorCode {
	var pe *PipelineError
	if errors.As(err, &pe) {
		return pe.Code
	}
	return ErrCodeUnknown
}

// Describe returns a short human-readable text for a code.
func (c ErrorCode) Describe() string {
	switch c {
	case ErrCodePolygonNotFound:
		return "could not determine the walkable area around the destination"
	case ErrCodePolygonExtractionFailed:
		return "walkable area has an unsupported shape"
	case ErrCodeNoParkingFound:
		return "no free parking found within walking distance"
	case ErrCodeNoRatedParking:
		return "could not rank parking spots"
	default:
		return "failed to build the route"
	}
}
