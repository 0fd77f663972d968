package handler

import (
	"strings"

	"certus/internal/anchor/models"
)

// IssueAnchorRequest is the body of POST /certificates/{id}/anchor.
type IssueAnchorRequest struct {
	WalletAddress string `json:"wallet_address" validate:"required"`
}

func (r *IssueAnchorRequest) Normalize() {
	r.WalletAddress = strings.TrimSpace(r.WalletAddress)
}

func (r *IssueAnchorRequest) Validate() error {
	_, err := models.ParseWalletAddress(r.WalletAddress)
	return err
}
