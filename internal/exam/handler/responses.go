package handler

import (
	"time"

	"certus/internal/exam/models"
)

type ExamResponse struct {
	ID                string     `json:"id"`
	UserID            string     `json:"user_id"`
	EnrollmentID      string     `json:"enrollment_id"`
	CertificationID   string     `json:"certification_id"`
	CertificationName string     `json:"certification_name,omitempty"`
	Status            string     `json:"status"`
	Score             *float64   `json:"score,omitempty"`
	Passed            *bool      `json:"passed,omitempty"`
	StartedAt         time.Time  `json:"started_at"`
	CompletedAt       *time.Time `json:"completed_at,omitempty"`
}

type QuestionResponse struct {
	ID       string `json:"id"`
	Question string `json:"question"`
}

type QuestionSetResponse struct {
	ExamID         string             `json:"exam_id"`
	Questions      []QuestionResponse `json:"questions"`
	TotalQuestions int                `json:"total_questions"`
}

type ResultResponse struct {
	ExamID            string    `json:"exam_id"`
	Score             float64   `json:"score"`
	Passed            bool      `json:"passed"`
	CorrectAnswers    int       `json:"correct_answers"`
	TotalQuestions    int       `json:"total_questions"`
	PassingScore      float64   `json:"passing_score"`
	CompletedAt       time.Time `json:"completed_at"`
	CertificationName string    `json:"certification_name,omitempty"`
	EnrollmentStatus  string    `json:"enrollment_status,omitempty"`
	CertificateID     *string   `json:"certificate_id,omitempty"`
}

func FromExam(e *models.Exam) *ExamResponse {
	return &ExamResponse{
		ID:              e.ID.String(),
		UserID:          e.UserID.String(),
		EnrollmentID:    e.EnrollmentID.String(),
		CertificationID: e.CertificationID.String(),
		Status:          string(e.Status),
		Score:           e.Score,
		Passed:          e.Passed,
		StartedAt:       e.StartedAt,
		CompletedAt:     e.CompletedAt,
	}
}

func FromSummaries(items []models.Summary) []*ExamResponse {
	out := make([]*ExamResponse, 0, len(items))
	for i := range items {
		resp := FromExam(&items[i].Exam)
		resp.CertificationName = items[i].CertificationName
		out = append(out, resp)
	}
	return out
}

func FromQuestionSet(set *models.QuestionSet) *QuestionSetResponse {
	questions := make([]QuestionResponse, 0, len(set.Questions))
	for _, q := range set.Questions {
		questions = append(questions, QuestionResponse{ID: q.ID.String(), Question: q.Text})
	}
	return &QuestionSetResponse{
		ExamID:         set.ExamID.String(),
		Questions:      questions,
		TotalQuestions: set.TotalQuestions,
	}
}

func FromResult(r *models.Result) *ResultResponse {
	resp := &ResultResponse{
		ExamID:            r.ID.String(),
		Score:             r.Score,
		Passed:            r.Passed,
		CorrectAnswers:    r.CorrectAnswers,
		TotalQuestions:    r.TotalQuestions,
		PassingScore:      r.PassingScore,
		CompletedAt:       r.CompletedAt,
		CertificationName: r.CertificationName,
		EnrollmentStatus:  r.EnrollmentStatus,
	}
	if r.CertificateID != nil {
		certID := r.CertificateID.String()
		resp.CertificateID = &certID
	}
	return resp
}
