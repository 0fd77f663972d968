package handler

import (
	"strings"

	id "certus/pkg/domain"
)

// EnrollRequest is the body of POST /enrollments.
type EnrollRequest struct {
	CertificationID string `json:"certification_id" validate:"required,uuid"`

	parsedCertificationID id.CertificationID
}

func (r *EnrollRequest) Normalize() {
	r.CertificationID = strings.TrimSpace(r.CertificationID)
}

func (r *EnrollRequest) Validate() error {
	certID, err := id.ParseCertificationID(r.CertificationID)
	if err != nil {
		return err
	}
	r.parsedCertificationID = certID
	return nil
}

func (r *EnrollRequest) ParsedCertificationID() id.CertificationID {
	return r.parsedCertificationID
}
