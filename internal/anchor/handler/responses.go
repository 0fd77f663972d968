package handler

import (
	"time"

	"certus/internal/anchor/models"
)

type AnchorResponse struct {
	CertificateID   string     `json:"certificate_id"`
	TxHash          string     `json:"tx_hash"`
	NFTID           string     `json:"nft_id"`
	DataHash        string     `json:"data_hash"`
	ExplorerLink    string     `json:"explorer_link,omitempty"`
	AnchoredAt      *time.Time `json:"anchored_at,omitempty"`
	AlreadyAnchored bool       `json:"already_anchored"`
}

func FromReceipt(r *models.Receipt) *AnchorResponse {
	return &AnchorResponse{
		CertificateID:   r.CertificateID,
		TxHash:          r.TxHash,
		NFTID:           r.NFTID,
		DataHash:        r.DataHash,
		ExplorerLink:    r.ExplorerLink,
		AnchoredAt:      r.AnchoredAt,
		AlreadyAnchored: r.AlreadyAnchored,
	}
}
