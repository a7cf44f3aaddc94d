package domain

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrValidation        = errors.New("validation failed")
	ErrForbidden         = errors.New("forbidden")
	ErrJourneyNotActive  = errors.New("journey is not active")
	ErrClaimConflict     = errors.New("run was claimed by another scheduler")
	ErrUnsupportedFormat = errors.New("unsupported export format")
)

// EnrollmentError names the contact ids that blocked an enrollment.
type EnrollmentError struct {
	JourneyID         uuid.UUID
	InvalidContactIDs []string
}

func (e *EnrollmentError) Error() string {
	return fmt.Sprintf("enroll journey %s: invalid contact ids: %s", e.JourneyID, strings.Join(e.InvalidContactIDs, ", "))
}

func (e *EnrollmentError) Unwrap() error {
	return ErrValidation
}
