package models

import (
	"time"

	catalog "certus/internal/catalog/models"
	id "certus/pkg/domain"
	dErrors "certus/pkg/domain-errors"
)

// ValidityYears is the certificate lifetime in calendar years.
const ValidityYears = 1

// AnchorStatus tracks the certificate's ledger anchoring.
type AnchorStatus string

const (
	AnchorUnanchored AnchorStatus = "unanchored"
	AnchorRequested  AnchorStatus = "anchor_requested"
	Anchored         AnchorStatus = "anchored"
	AnchorFailed     AnchorStatus = "anchor_failed"
)

func ParseAnchorStatus(s string) (AnchorStatus, error) {
	switch AnchorStatus(s) {
	case AnchorUnanchored, AnchorRequested, Anchored, AnchorFailed:
		return AnchorStatus(s), nil
	default:
		return "", dErrors.New(dErrors.CodeInvariantViolation, "unknown anchor status: "+s)
	}
}

// CanTransitionTo encodes unanchored → anchor_requested → anchored |
// anchor_failed, with anchor_failed → anchor_requested as the retry edge.
func (s AnchorStatus) CanTransitionTo(next AnchorStatus) bool {
	switch s {
	case AnchorUnanchored, AnchorFailed:
		return next == AnchorRequested
	case AnchorRequested:
		return next == Anchored || next == AnchorFailed
	case Anchored:
		return false
	default:
		return false
	}
}

// Claimable reports whether an anchoring attempt may start from s.
func (s AnchorStatus) Claimable() bool {
	return s.CanTransitionTo(AnchorRequested)
}

// Anchor is the ledger side of a certificate.
type Anchor struct {
	Status        AnchorStatus
	DataHash      string
	WalletAddress string
	TxHash        string
	NFTID         string
	Error         string
	RequestedAt   *time.Time
	AnchoredAt    *time.Time
}

// Minted reports whether a token exists on the ledger.
func (a Anchor) Minted() bool { return a.Status == Anchored }

// Certificate is proof of a passed exam.
//
// Invariants:
//   - ExpiresAt is CreatedAt plus ValidityYears calendar years
//   - Snapshot names are written once and never change afterwards
//   - Active is only ever flipped from true to false
type Certificate struct {
	ID                        id.CertificateID
	UserID                    id.UserID
	CertificationID           id.CertificationID
	ExamID                    *id.ExamID
	Active                    bool
	CreatedAt                 time.Time
	ExpiresAt                 time.Time
	SnapshotStudentName       string
	SnapshotCertificationName string
	Anchor                    Anchor
	UpdatedAt                 time.Time
}

// ExpiryFor returns the expiry of a certificate issued at createdAt.
func ExpiryFor(createdAt time.Time) time.Time {
	return createdAt.AddDate(ValidityYears, 0, 0)
}

// IsExpired reports whether now has reached ExpiresAt.
func (c *Certificate) IsExpired(now time.Time) bool {
	return !now.Before(c.ExpiresAt)
}

// IsValidAt reports whether the certificate counts as active at now.
func (c *Certificate) IsValidAt(now time.Time) bool {
	return c.Active && !c.IsExpired(now)
}

func (c *Certificate) HasSnapshot() bool {
	return c.SnapshotStudentName != "" && c.SnapshotCertificationName != ""
}

// Verified is a certificate joined with its holder and certification.
type Verified struct {
	Certificate
	Student       *catalog.Student
	Certification *catalog.Certification
}

// ListFilter selects a page of a user's certificates.
type ListFilter struct {
	Page  int
	Limit int
	// Active filters on the stored flag when set.
	Active *bool
}

const (
	DefaultPageLimit = 10
	MaxPageLimit     = 100
)

// Normalize applies the page defaults and caps.
func (f ListFilter) Normalize() ListFilter {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.Limit < 1 {
		f.Limit = DefaultPageLimit
	}
	if f.Limit > MaxPageLimit {
		f.Limit = MaxPageLimit
	}
	return f
}

// Offset is the number of rows before the page.
func (f ListFilter) Offset() int {
	return (f.Page - 1) * f.Limit
}

// ListItem is a certificate with the certification name attached.
type ListItem struct {
	Certificate
	CertificationName string
}

// Page is one page of a user's certificates.
type Page struct {
	Data     []ListItem
	Total    int
	Page     int
	LastPage int
}

// LastPage is ceil(total/limit).
func LastPage(total, limit int) int {
	if limit <= 0 {
		return 0
	}
	return (total + limit - 1) / limit
}

// BlockchainInfo is an anchoring outcome.
type BlockchainInfo struct {
	TxHash   string
	NFTID    string
	DataHash string
	Minted   bool
	// Reason explains an unminted outcome.
	Reason string
}
