// Package models holds the read-only catalog the exam lifecycle depends on:
// certifications, their question pools, and the student directory.
package models

import (
	"time"

	id "certus/pkg/domain"
)

// DefaultPassingScore applies when a certification does not set one.
const DefaultPassingScore = 70.0

// Certification is a credential a student can enroll in.
type Certification struct {
	ID               id.CertificationID `json:"id"`
	Name             string             `json:"name"`
	ShortDescription string             `json:"short_description"`
	// PassingScore is a percentage in [0, 100]; a graded score must meet or exceed it.
	PassingScore float64   `json:"passing_score"`
	IsActive     bool      `json:"is_active"`
	CreatedAt    time.Time `json:"created_at"`
}

// EffectivePassingScore falls back to DefaultPassingScore when unset.
func (c *Certification) EffectivePassingScore() float64 {
	if c.PassingScore <= 0 {
		return DefaultPassingScore
	}
	return c.PassingScore
}

// Question is a true/false item in a certification's pool.
//
// Invariants:
//   - A question is valid while active and within ValidityMonths of CreatedAt
//   - Answer is never serialized to candidates (see exam views)
type Question struct {
	ID              id.QuestionID
	CertificationID id.CertificationID
	Text            string
	Answer          bool
	ValidityMonths  int
	IsActive        bool
	CreatedAt       time.Time
}

// ExpiresAt is CreatedAt plus ValidityMonths calendar months. Month overflow
// normalizes forward (Jan 31 + 1 month is early March).
func (q *Question) ExpiresAt() time.Time {
	return q.CreatedAt.AddDate(0, q.ValidityMonths, 0)
}

// IsValid reports whether the question may be served at now.
func (q *Question) IsValid(now time.Time) bool {
	if !q.IsActive {
		return false
	}
	return !now.After(q.ExpiresAt())
}

// Student is the directory entry used to freeze a name onto a certificate.
type Student struct {
	ID   id.UserID `json:"id"`
	Name string    `json:"name"`
}
