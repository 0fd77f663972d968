package models

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"regexp"
	"strings"
	"time"

	certmodels "certus/internal/certificate/models"
	dErrors "certus/pkg/domain-errors"
)

// isoMillis is the timestamp layout of the canonical document.
const isoMillis = "2006-01-02T15:04:05.000Z07:00"

var walletPattern = regexp.MustCompile(`^0x[0-9a-fA-F]{64}$`)

// WalletAddress is a ledger account address: 0x followed by 64 hex digits.
type WalletAddress string

func ParseWalletAddress(s string) (WalletAddress, error) {
	s = strings.TrimSpace(s)
	if !walletPattern.MatchString(s) {
		return "", dErrors.New(dErrors.CodeValidation, "wallet_address must be 0x followed by 64 hex characters")
	}
	return WalletAddress(strings.ToLower(s)), nil
}

func (w WalletAddress) String() string { return string(w) }

// CanonicalDocument is the frozen certificate content the anchor commits to.
// Field order is the serialized key order and must not change; any change to
// the keys, their order or the timestamp layout invalidates every minted token.
type CanonicalDocument struct {
	CertificateID     string `json:"certificateId"`
	CertificationName string `json:"certificationName"`
	ExpiresAt         string `json:"expiresAt"`
	IssueDate         string `json:"issueDate"`
	StudentName       string `json:"studentName"`
}

// DocumentFor builds the canonical document from a snapshotted certificate.
func DocumentFor(c *certmodels.Certificate) (CanonicalDocument, error) {
	if !c.HasSnapshot() {
		return CanonicalDocument{}, dErrors.New(dErrors.CodeInvariantViolation, "certificate has no snapshot")
	}
	return CanonicalDocument{
		CertificateID:     c.ID.String(),
		CertificationName: c.SnapshotCertificationName,
		ExpiresAt:         c.ExpiresAt.UTC().Format(isoMillis),
		IssueDate:         c.CreatedAt.UTC().Format(isoMillis),
		StudentName:       c.SnapshotStudentName,
	}, nil
}

// Bytes is the exact byte string that gets hashed: compact JSON without HTML
// escaping or a trailing newline.
func (d CanonicalDocument) Bytes() []byte {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	// Encoding a struct of strings cannot fail.
	_ = enc.Encode(d)
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n"))
}

// Hash is the lowercase hex SHA-256 of Bytes.
func (d CanonicalDocument) Hash() string {
	sum := sha256.Sum256(d.Bytes())
	return hex.EncodeToString(sum[:])
}

// Receipt is what the caller gets back from a successful anchoring.
type Receipt struct {
	CertificateID string
	TxHash        string
	NFTID         string
	DataHash      string
	ExplorerLink  string
	AnchoredAt    *time.Time
	// AlreadyAnchored is set when the stored result was returned without a mint.
	AlreadyAnchored bool
}

// TokenData is the on-chain payload of a valid certificate token.
type TokenData struct {
	ObjectID  string `json:"object_id"`
	DataHash  string `json:"data_hash"`
	ImageURL  string `json:"image_url"`
	Recipient string `json:"recipient"`
	Owner     string `json:"owner"`
}

// Validation is the outcome of checking a token. It is never an error.
type Validation struct {
	IsValid bool       `json:"is_valid"`
	Message string     `json:"message"`
	Data    *TokenData `json:"data,omitempty"`
}

const (
	MessageValid       = "certificate token is authentic"
	MessageNotFound    = "token not found"
	MessageUnreadable  = "token could not be read"
	MessageInvalidKind = "invalid object kind"
	MessageCounterfeit = "counterfeit detected"
)

func Invalid(message string) Validation {
	return Validation{IsValid: false, Message: message}
}
