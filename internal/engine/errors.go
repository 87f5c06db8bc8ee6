package engine

import (
	"errors"
	"fmt"
)

// Sentinel errors for each failure kind. Typed errors below wrap them so
// callers can match the kind with errors.Is and pull context with errors.As.
var (
	ErrUnknownSymptom      = errors.New("unknown symptom")
	ErrInvalidVectorShape  = errors.New("invalid vector shape")
	ErrUnknownClassIndex   = errors.New("unknown class index")
	ErrMissingReferenceRow = errors.New("missing reference row")
)

// UnknownSymptomError reports an input symptom that is not in the vocabulary.
type UnknownSymptomError struct {
	Symptom string
}

func (e *UnknownSymptomError) Error() string {
	return fmt.Sprintf("%s: %q", ErrUnknownSymptom, e.Symptom)
}

func (e *UnknownSymptomError) Unwrap() error { return ErrUnknownSymptom }

// InvalidVectorShapeError reports a feature vector whose length does not
// match the vocabulary size.
type InvalidVectorShapeError struct {
	Got  int
	Want int
}

func (e *InvalidVectorShapeError) Error() string {
	return fmt.Sprintf("%s: length %d, want %d", ErrInvalidVectorShape, e.Got, e.Want)
}

func (e *InvalidVectorShapeError) Unwrap() error { return ErrInvalidVectorShape }

// UnknownClassIndexError reports a classifier output outside the label table.
type UnknownClassIndexError struct {
	ClassIndex int
}

func (e *UnknownClassIndexError) Error() string {
	return fmt.Sprintf("%s: %d", ErrUnknownClassIndex, e.ClassIndex)
}

func (e *UnknownClassIndexError) Unwrap() error { return ErrUnknownClassIndex }

// MissingReferenceRowError reports a mandatory reference table with no row
// for the disease.
type MissingReferenceRowError struct {
	Field   string
	Disease string
}

func (e *MissingReferenceRowError) Error() string {
	return fmt.Sprintf("%s: %s for %q", ErrMissingReferenceRow, e.Field, e.Disease)
}

func (e *MissingReferenceRowError) Unwrap() error { return ErrMissingReferenceRow }

// MissingFields lists every mandatory field reported missing in err, in the
// order they were reported.
func MissingFields(err error) []*MissingReferenceRowError {
	var out []*MissingReferenceRowError
	var walk func(error)
	walk = func(err error) {
		if err == nil {
			return
		}
		if m, ok := err.(*MissingReferenceRowError); ok {
			out = append(out, m)
			return
		}
		switch x := err.(type) {
		case interface{ Unwrap() []error }:
			for _, e := range x.Unwrap() {
				walk(e)
			}
		case interface{ Unwrap() error }:
			walk(x.Unwrap())
		}
	}
	walk(err)
	return out
}
