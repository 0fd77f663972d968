package handler

import (
	"time"

	"certus/internal/certificate/models"
)

type AnchorResponse struct {
	Status     string     `json:"status"`
	Minted     bool       `json:"blockchain_minted"`
	DataHash   string     `json:"data_hash,omitempty"`
	TxHash     string     `json:"tx_hash,omitempty"`
	NFTID      string     `json:"nft_id,omitempty"`
	Error      string     `json:"error,omitempty"`
	AnchoredAt *time.Time `json:"anchored_at,omitempty"`
}

type CertificateResponse struct {
	ID                        string         `json:"id"`
	UserID                    string         `json:"user_id"`
	CertificationID           string         `json:"certification_id"`
	CertificationName         string         `json:"certification_name,omitempty"`
	Active                    bool           `json:"active"`
	CreatedAt                 time.Time      `json:"created_at"`
	ExpiresAt                 time.Time      `json:"expires_at"`
	SnapshotStudentName       string         `json:"snapshot_student_name,omitempty"`
	SnapshotCertificationName string         `json:"snapshot_certification_name,omitempty"`
	Anchor                    AnchorResponse `json:"anchor"`
}

type PartyResponse struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type VerifyResponse struct {
	CertificateResponse
	Student       *PartyResponse `json:"student,omitempty"`
	Certification *PartyResponse `json:"certification,omitempty"`
}

type PageMeta struct {
	Total    int `json:"total"`
	Page     int `json:"page"`
	LastPage int `json:"last_page"`
}

type ListResponse struct {
	Data []CertificateResponse `json:"data"`
	Meta PageMeta              `json:"meta"`
}

func fromCertificate(c *models.Certificate) CertificateResponse {
	return CertificateResponse{
		ID:                        c.ID.String(),
		UserID:                    c.UserID.String(),
		CertificationID:           c.CertificationID.String(),
		Active:                    c.Active,
		CreatedAt:                 c.CreatedAt,
		ExpiresAt:                 c.ExpiresAt,
		SnapshotStudentName:       c.SnapshotStudentName,
		SnapshotCertificationName: c.SnapshotCertificationName,
		Anchor: AnchorResponse{
			Status:     string(c.Anchor.Status),
			Minted:     c.Anchor.Minted(),
			DataHash:   c.Anchor.DataHash,
			TxHash:     c.Anchor.TxHash,
			NFTID:      c.Anchor.NFTID,
			Error:      c.Anchor.Error,
			AnchoredAt: c.Anchor.AnchoredAt,
		},
	}
}

func FromVerified(v *models.Verified) *VerifyResponse {
	resp := &VerifyResponse{CertificateResponse: fromCertificate(&v.Certificate)}
	if v.Student != nil {
		resp.Student = &PartyResponse{ID: v.Student.ID.String(), Name: v.Student.Name}
	}
	if v.Certification != nil {
		resp.Certification = &PartyResponse{ID: v.Certification.ID.String(), Name: v.Certification.Name}
		resp.CertificationName = v.Certification.Name
	}
	return resp
}

func FromPage(p *models.Page) *ListResponse {
	data := make([]CertificateResponse, 0, len(p.Data))
	for i := range p.Data {
		item := fromCertificate(&p.Data[i].Certificate)
		item.CertificationName = p.Data[i].CertificationName
		data = append(data, item)
	}
	return &ListResponse{
		Data: data,
		Meta: PageMeta{Total: p.Total, Page: p.Page, LastPage: p.LastPage},
	}
}
