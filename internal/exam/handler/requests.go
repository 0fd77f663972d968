package handler

import (
	"strings"

	"certus/internal/exam/models"
	id "certus/pkg/domain"
	dErrors "certus/pkg/domain-errors"
)

// StartExamRequest is the body of POST /exams.
type StartExamRequest struct {
	EnrollmentID string `json:"enrollment_id" validate:"required,uuid"`

	parsedEnrollmentID id.EnrollmentID
}

func (r *StartExamRequest) Normalize() {
	r.EnrollmentID = strings.TrimSpace(r.EnrollmentID)
}

func (r *StartExamRequest) Validate() error {
	enrollmentID, err := id.ParseEnrollmentID(r.EnrollmentID)
	if err != nil {
		return err
	}
	r.parsedEnrollmentID = enrollmentID
	return nil
}

func (r *StartExamRequest) ParsedEnrollmentID() id.EnrollmentID {
	return r.parsedEnrollmentID
}

type AnswerRequest struct {
	QuestionID string `json:"question_id" validate:"required,uuid"`
	UserAnswer *bool  `json:"user_answer" validate:"required"`
}

// SubmitExamRequest is the body of POST /exams/{id}/submit.
type SubmitExamRequest struct {
	Answers []AnswerRequest `json:"answers" validate:"required,min=1,dive"`

	parsedAnswers []models.Answer
}

func (r *SubmitExamRequest) Normalize() {
	for i := range r.Answers {
		r.Answers[i].QuestionID = strings.TrimSpace(r.Answers[i].QuestionID)
	}
}

func (r *SubmitExamRequest) Validate() error {
	answers := make([]models.Answer, 0, len(r.Answers))
	for _, a := range r.Answers {
		questionID, err := id.ParseQuestionID(a.QuestionID)
		if err != nil {
			return err
		}
		if a.UserAnswer == nil {
			return dErrors.New(dErrors.CodeValidation, "user_answer is required")
		}
		answers = append(answers, models.Answer{QuestionID: questionID, UserAnswer: *a.UserAnswer})
	}
	r.parsedAnswers = answers
	return nil
}

func (r *SubmitExamRequest) ParsedAnswers() []models.Answer {
	return r.parsedAnswers
}
