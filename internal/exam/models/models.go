package models

import (
	"time"

	id "certus/pkg/domain"
	dErrors "certus/pkg/domain-errors"
)

// Status is the closed set of exam states. in_progress → graded is the only
// edge and it is taken exactly once.
type Status string

const (
	StatusInProgress Status = "in_progress"
	StatusGraded     Status = "graded"
)

func ParseStatus(s string) (Status, error) {
	switch Status(s) {
	case StatusInProgress, StatusGraded:
		return Status(s), nil
	default:
		return "", dErrors.New(dErrors.CodeInvariantViolation, "unknown exam status: "+s)
	}
}

func (s Status) CanTransitionTo(next Status) bool {
	return s == StatusInProgress && next == StatusGraded
}

// Exam is one attempt at a certification. CertificationID is copied from the
// enrollment at creation.
type Exam struct {
	ID              id.ExamID
	UserID          id.UserID
	EnrollmentID    id.EnrollmentID
	CertificationID id.CertificationID
	Status          Status
	// Score and Passed are nil until graded.
	Score  *float64
	Passed *bool
	// QuestionIDs is the sampled question set, fixed on first read.
	QuestionIDs []id.QuestionID
	StartedAt   time.Time
	CompletedAt *time.Time
}

func (e *Exam) IsInProgress() bool { return e.Status == StatusInProgress }
func (e *Exam) IsGraded() bool     { return e.Status == StatusGraded }

// HasQuestionSet reports whether questions were already sampled.
func (e *Exam) HasQuestionSet() bool { return len(e.QuestionIDs) > 0 }

// ExamAnswer is one graded answer. Immutable once stored.
type ExamAnswer struct {
	ID         id.ExamAnswerID
	ExamID     id.ExamID
	QuestionID id.QuestionID
	UserAnswer bool
	IsCorrect  bool
}

// Answer is a submitted answer before grading.
type Answer struct {
	QuestionID id.QuestionID
	UserAnswer bool
}

// QuestionView is a question as shown to the candidate; the answer is withheld.
type QuestionView struct {
	ID   id.QuestionID
	Text string
}

// QuestionSet is the response to a questions read.
type QuestionSet struct {
	ExamID         id.ExamID
	Questions      []QuestionView
	TotalQuestions int
}

// Result summarizes a graded exam.
type Result struct {
	ID                id.ExamID
	Score             float64
	Passed            bool
	CorrectAnswers    int
	TotalQuestions    int
	PassingScore      float64
	CompletedAt       time.Time
	CertificationName string
	// EnrollmentStatus and CertificateID are set on the submit response only.
	EnrollmentStatus string
	CertificateID    *id.CertificateID
}

// Summary is a list entry for the user's exam history.
type Summary struct {
	Exam
	CertificationName string
}
