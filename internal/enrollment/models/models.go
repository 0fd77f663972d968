package models

import (
	"time"

	catalog "certus/internal/catalog/models"
	id "certus/pkg/domain"
	dErrors "certus/pkg/domain-errors"
)

// Status is the closed set of enrollment states.
type Status string

const (
	StatusActive   Status = "active"
	StatusApproved Status = "approved"
	StatusReproved Status = "reproved"
)

// ParseStatus rejects anything outside the closed set.
func ParseStatus(s string) (Status, error) {
	switch Status(s) {
	case StatusActive, StatusApproved, StatusReproved:
		return Status(s), nil
	default:
		return "", dErrors.New(dErrors.CodeInvariantViolation, "unknown enrollment status: "+s)
	}
}

// CanTransitionTo allows only the grading edges active→approved and
// active→reproved. Retakes are a new exam, not a status reset.
func (s Status) CanTransitionTo(next Status) bool {
	switch s {
	case StatusActive:
		return next == StatusApproved || next == StatusReproved
	case StatusApproved, StatusReproved:
		return false
	default:
		return false
	}
}

// StatusForOutcome maps a graded exam outcome to the enrollment status.
func StatusForOutcome(passed bool) Status {
	if passed {
		return StatusApproved
	}
	return StatusReproved
}

// Enrollment registers one user for one certification. (UserID,
// CertificationID) is unique for the lifetime of the row.
type Enrollment struct {
	ID              id.EnrollmentID
	UserID          id.UserID
	CertificationID id.CertificationID
	Status          Status
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// IsActive reports whether the enrollment may start an exam.
func (e *Enrollment) IsActive() bool {
	return e.Status == StatusActive
}

// WithCertification is an enrollment joined with its catalog entry.
type WithCertification struct {
	Enrollment
	Certification *catalog.Certification
}
