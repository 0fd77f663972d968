// Package domain holds typed identifiers shared across modules.
//
// Every aggregate gets its own UUID-backed type so an ExamID can never be
// passed where an EnrollmentID is expected. Parse functions are the trust
// boundary: they reject empty, malformed and nil UUIDs.
package domain

import (
	"strings"

	"github.com/google/uuid"

	dErrors "certus/pkg/domain-errors"
)

type (
	UserID          uuid.UUID
	CertificationID uuid.UUID
	QuestionID      uuid.UUID
	EnrollmentID    uuid.UUID
	ExamID          uuid.UUID
	ExamAnswerID    uuid.UUID
	CertificateID   uuid.UUID
)

func (id UserID) String() string          { return uuid.UUID(id).String() }
func (id CertificationID) String() string { return uuid.UUID(id).String() }
func (id QuestionID) String() string      { return uuid.UUID(id).String() }
func (id EnrollmentID) String() string    { return uuid.UUID(id).String() }
func (id ExamID) String() string          { return uuid.UUID(id).String() }
func (id ExamAnswerID) String() string    { return uuid.UUID(id).String() }
func (id CertificateID) String() string   { return uuid.UUID(id).String() }

func (id UserID) IsNil() bool          { return uuid.UUID(id) == uuid.Nil }
func (id CertificationID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }
func (id QuestionID) IsNil() bool      { return uuid.UUID(id) == uuid.Nil }
func (id EnrollmentID) IsNil() bool    { return uuid.UUID(id) == uuid.Nil }
func (id ExamID) IsNil() bool          { return uuid.UUID(id) == uuid.Nil }
func (id CertificateID) IsNil() bool   { return uuid.UUID(id) == uuid.Nil }

func (id UserID) MarshalText() ([]byte, error)          { return []byte(id.String()), nil }
func (id CertificationID) MarshalText() ([]byte, error) { return []byte(id.String()), nil }
func (id QuestionID) MarshalText() ([]byte, error)      { return []byte(id.String()), nil }
func (id EnrollmentID) MarshalText() ([]byte, error)    { return []byte(id.String()), nil }
func (id ExamID) MarshalText() ([]byte, error)          { return []byte(id.String()), nil }
func (id ExamAnswerID) MarshalText() ([]byte, error)    { return []byte(id.String()), nil }
func (id CertificateID) MarshalText() ([]byte, error)   { return []byte(id.String()), nil }

func (id *QuestionID) UnmarshalText(b []byte) error {
	parsed, err := ParseQuestionID(string(b))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

func (id *CertificationID) UnmarshalText(b []byte) error {
	parsed, err := ParseCertificationID(string(b))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

func (id *EnrollmentID) UnmarshalText(b []byte) error {
	parsed, err := ParseEnrollmentID(string(b))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

func ParseUserID(s string) (UserID, error) {
	u, err := parseUUID(s, "user ID")
	return UserID(u), err
}

func ParseCertificationID(s string) (CertificationID, error) {
	u, err := parseUUID(s, "certification ID")
	return CertificationID(u), err
}

func ParseQuestionID(s string) (QuestionID, error) {
	u, err := parseUUID(s, "question ID")
	return QuestionID(u), err
}

func ParseEnrollmentID(s string) (EnrollmentID, error) {
	u, err := parseUUID(s, "enrollment ID")
	return EnrollmentID(u), err
}

func ParseExamID(s string) (ExamID, error) {
	u, err := parseUUID(s, "exam ID")
	return ExamID(u), err
}

func ParseCertificateID(s string) (CertificateID, error) {
	u, err := parseUUID(s, "certificate ID")
	return CertificateID(u), err
}

func parseUUID(s, label string) (uuid.UUID, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, label+" is required")
	}
	u, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, dErrors.Wrap(err, dErrors.CodeInvalidInput, "invalid "+label)
	}
	if u == uuid.Nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, label+" cannot be nil")
	}
	return u, nil
}
