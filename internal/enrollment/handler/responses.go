package handler

import (
	"time"

	"certus/internal/enrollment/models"
)

type CertificationSummary struct {
	ID               string  `json:"id"`
	Name             string  `json:"name"`
	ShortDescription string  `json:"short_description"`
	PassingScore     float64 `json:"passing_score"`
}

type EnrollmentResponse struct {
	ID              string                `json:"id"`
	UserID          string                `json:"user_id"`
	CertificationID string                `json:"certification_id"`
	Status          string                `json:"status"`
	CreatedAt       time.Time             `json:"created_at"`
	Certification   *CertificationSummary `json:"certification,omitempty"`
}

func FromEnrollment(e *models.Enrollment) *EnrollmentResponse {
	return &EnrollmentResponse{
		ID:              e.ID.String(),
		UserID:          e.UserID.String(),
		CertificationID: e.CertificationID.String(),
		Status:          string(e.Status),
		CreatedAt:       e.CreatedAt,
	}
}

func FromList(items []models.WithCertification) []*EnrollmentResponse {
	out := make([]*EnrollmentResponse, 0, len(items))
	for i := range items {
		resp := FromEnrollment(&items[i].Enrollment)
		if c := items[i].Certification; c != nil {
			resp.Certification = &CertificationSummary{
				ID:               c.ID.String(),
				Name:             c.Name,
				ShortDescription: c.ShortDescription,
				PassingScore:     c.EffectivePassingScore(),
			}
		}
		out = append(out, resp)
	}
	return out
}
