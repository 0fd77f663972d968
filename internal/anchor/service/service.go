// Package service anchors certificates on the ledger and checks the
// authenticity of anchored tokens.
package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"certus/internal/anchor/cache"
	"certus/internal/anchor/ledger"
	"certus/internal/anchor/metrics"
	"certus/internal/anchor/models"
	certmodels "certus/internal/certificate/models"
	id "certus/pkg/domain"
	dErrors "certus/pkg/domain-errors"
	"certus/pkg/platform/circuit"
	"certus/pkg/requestcontext"
)

//go:generate mockgen -source=service.go -destination=mocks/mocks.go -package=mocks Certificates,Ledger,ValidationCache

// Certificates is the certificate side of anchoring.
type Certificates interface {
	Verify(ctx context.Context, certID id.CertificateID) (*certmodels.Verified, error)
	Snapshot(ctx context.Context, certID id.CertificateID, studentName, certificationName string) (*certmodels.Certificate, error)
	ClaimAnchor(ctx context.Context, cert *certmodels.Certificate, dataHash, wallet string) error
	RecordAnchorTx(ctx context.Context, certID id.CertificateID, txHash string) error
	SaveBlockchainInfo(ctx context.Context, certID id.CertificateID, info certmodels.BlockchainInfo) error
	StaleAnchorRequests(ctx context.Context, before time.Time, limit int) ([]*certmodels.Certificate, error)
}

// Ledger mints certificate tokens and reads them back.
type Ledger interface {
	SubmitMint(ctx context.Context, req ledger.MintRequest) (string, error)
	AwaitFinality(ctx context.Context, digest string) (*ledger.TxOutcome, error)
	Transaction(ctx context.Context, digest string) (*ledger.TxOutcome, error)
	GetObject(ctx context.Context, objectID string) (*ledger.Object, error)
}

type ValidationCache interface {
	Get(ctx context.Context, nftID string) (*models.Validation, error)
	Put(ctx context.Context, nftID string, v models.Validation) error
}

// Settings are the deployment constants of anchoring.
type Settings struct {
	PackageID       string
	ImageURL        string
	ExplorerBaseURL string
	// ReconcileGrace is how long a claim may stay anchor_requested before
	// the reconciler settles it.
	ReconcileGrace time.Duration
}

const (
	certificateModule = "certificate"
	certificateStruct = "Certificate"
	reconcileBatch    = 100
	interruptedReason = "anchoring interrupted"
)

var errDisabled = dErrors.New(dErrors.CodeUnavailable, "anchoring is disabled")

type Service struct {
	certificates Certificates
	ledger       Ledger
	settings     Settings
	cache        ValidationCache
	breaker      *circuit.Breaker
	metrics      *metrics.Metrics
	logger       *slog.Logger
	tracer       trace.Tracer
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithCache(c ValidationCache) Option {
	return func(s *Service) { s.cache = c }
}

func WithBreaker(b *circuit.Breaker) Option {
	return func(s *Service) { s.breaker = b }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// New builds the anchoring service. A nil ledger disables anchoring: issue
// and validate report unavailable.
func New(certificates Certificates, l Ledger, settings Settings, opts ...Option) (*Service, error) {
	if certificates == nil {
		return nil, fmt.Errorf("certificates are required")
	}
	if l != nil && settings.PackageID == "" {
		return nil, fmt.Errorf("package id is required when anchoring is enabled")
	}
	svc := &Service{
		certificates: certificates,
		ledger:       l,
		settings:     settings,
		breaker:      circuit.New("ledger"),
		logger:       slog.Default(),
		tracer:       otel.Tracer("certus/anchor"),
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// Enabled reports whether a ledger is configured.
func (s *Service) Enabled() bool { return s.ledger != nil }

// IssueAnchor mints a token committing to the certificate's snapshot and
// sends it to wallet. A certificate that is already anchored returns its
// stored receipt.
func (s *Service) IssueAnchor(ctx context.Context, userID id.UserID, certID id.CertificateID, walletRaw string) (*models.Receipt, error) {
	wallet, err := models.ParseWalletAddress(walletRaw)
	if err != nil {
		return nil, err
	}
	if !s.Enabled() {
		return nil, errDisabled
	}

	verified, err := s.certificates.Verify(ctx, certID)
	if err != nil {
		return nil, err
	}
	if verified.UserID != userID {
		return nil, dErrors.New(dErrors.CodeForbidden, "certificate belongs to another user")
	}
	if verified.Anchor.Minted() {
		return s.receipt(&verified.Certificate, true), nil
	}
	if verified.Anchor.Status == certmodels.AnchorRequested {
		return nil, errAnchorInProgress
	}

	cert, err := s.snapshot(ctx, verified)
	if err != nil {
		return nil, err
	}
	doc, err := models.DocumentFor(cert)
	if err != nil {
		return nil, err
	}
	dataHash := doc.Hash()

	if !s.breaker.Allow() {
		s.metrics.IncMint("unavailable")
		return nil, dErrors.New(dErrors.CodeUnavailable, "ledger temporarily unavailable")
	}
	if err := s.certificates.ClaimAnchor(ctx, cert, dataHash, wallet.String()); err != nil {
		return nil, err
	}

	return s.mint(ctx, cert, dataHash, wallet)
}

var errAnchorInProgress = dErrors.New(dErrors.CodeConflict, "certificate anchoring already in progress")

func (s *Service) snapshot(ctx context.Context, verified *certmodels.Verified) (*certmodels.Certificate, error) {
	if verified.HasSnapshot() {
		return &verified.Certificate, nil
	}
	if verified.Student == nil || verified.Certification == nil {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "certificate holder or certification no longer exists")
	}
	return s.certificates.Snapshot(ctx, verified.ID, verified.Student.Name, verified.Certification.Name)
}

// mint runs the ledger protocol for a claimed certificate. Failures before a
// digest exists settle the claim as anchor_failed; failures after it leave
// the claim for the reconciler, since the token may exist.
func (s *Service) mint(ctx context.Context, cert *certmodels.Certificate, dataHash string, wallet models.WalletAddress) (*models.Receipt, error) {
	ctx, span := s.tracer.Start(ctx, "anchor.mint", trace.WithAttributes(
		attribute.String("certificate.id", cert.ID.String()),
		attribute.String("anchor.data_hash", dataHash),
	))
	defer span.End()
	start := time.Now()

	digest, err := s.ledger.SubmitMint(ctx, ledger.MintRequest{
		DataHash:  dataHash,
		ImageURL:  s.settings.ImageURL,
		Recipient: wallet.String(),
	})
	s.recordLedger(err)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, string(ledger.CategoryOf(err)))
		s.settle(ctx, cert.ID, certmodels.BlockchainInfo{DataHash: dataHash, Reason: err.Error()})
		s.metrics.IncMint("failed")
		return nil, dErrors.Wrap(err, dErrors.CodeExternal, "failed to mint certificate token")
	}
	span.SetAttributes(attribute.String("anchor.tx_digest", digest))
	if err := s.certificates.RecordAnchorTx(ctx, cert.ID, digest); err != nil {
		s.logger.ErrorContext(ctx, "failed to record anchor transaction",
			"certificate_id", cert.ID.String(),
			"digest", digest,
			"error", err,
		)
	}

	outcome, err := s.ledger.AwaitFinality(ctx, digest)
	s.recordLedger(err)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, string(ledger.CategoryOf(err)))
		s.metrics.IncMint("pending")
		s.logger.WarnContext(ctx, "mint submitted but not final; leaving for reconciliation",
			"certificate_id", cert.ID.String(),
			"digest", digest,
			"error", err,
		)
		if ledger.CategoryOf(err) == ledger.ErrorTimeout {
			return nil, dErrors.Wrap(err, dErrors.CodeTimeout, "mint submitted but not yet final")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeExternal, "mint submitted but its status is unknown")
	}
	s.metrics.ObserveMint(time.Since(start))

	if reason := failureReason(outcome); reason != "" {
		span.SetStatus(codes.Error, reason)
		s.settle(ctx, cert.ID, certmodels.BlockchainInfo{TxHash: digest, DataHash: dataHash, Reason: reason})
		s.metrics.IncMint("failed")
		return nil, dErrors.New(dErrors.CodeExternal, "ledger rejected the mint: "+reason)
	}

	info := certmodels.BlockchainInfo{TxHash: digest, NFTID: outcome.NFTID, DataHash: dataHash, Minted: true}
	if err := s.certificates.SaveBlockchainInfo(ctx, cert.ID, info); err != nil {
		return nil, err
	}
	s.metrics.IncMint("anchored")
	s.logger.InfoContext(ctx, "certificate anchored",
		"request_id", requestcontext.RequestID(ctx),
		"certificate_id", cert.ID.String(),
		"digest", digest,
		"nft_id", outcome.NFTID,
	)

	anchoredAt := requestcontext.Now(ctx)
	return &models.Receipt{
		CertificateID: cert.ID.String(),
		TxHash:        digest,
		NFTID:         outcome.NFTID,
		DataHash:      dataHash,
		ExplorerLink:  ledger.ExplorerLink(s.settings.ExplorerBaseURL, digest),
		AnchoredAt:    &anchoredAt,
	}, nil
}

func failureReason(outcome *ledger.TxOutcome) string {
	switch {
	case !outcome.Success && outcome.Error != "":
		return outcome.Error
	case !outcome.Success:
		return "transaction failed"
	case outcome.NFTID == "":
		return "transaction created no certificate object"
	}
	return ""
}

// settle records a failed anchoring; a failure to persist it is logged and
// left to the reconciler.
func (s *Service) settle(ctx context.Context, certID id.CertificateID, info certmodels.BlockchainInfo) {
	if err := s.certificates.SaveBlockchainInfo(ctx, certID, info); err != nil {
		s.logger.ErrorContext(ctx, "failed to record anchoring failure",
			"certificate_id", certID.String(),
			"error", err,
		)
	}
}

// recordLedger feeds the breaker: only retryable failures count against
// the node.
func (s *Service) recordLedger(err error) {
	if err != nil && ledger.IsRetryable(err) {
		if _, change := s.breaker.RecordFailure(); change.Opened {
			s.logger.Warn("ledger circuit opened", "breaker", s.breaker.Name())
		}
		return
	}
	if _, change := s.breaker.RecordSuccess(); change.Closed {
		s.logger.Info("ledger circuit closed", "breaker", s.breaker.Name())
	}
}

func (s *Service) receipt(cert *certmodels.Certificate, already bool) *models.Receipt {
	r := &models.Receipt{
		CertificateID:   cert.ID.String(),
		TxHash:          cert.Anchor.TxHash,
		NFTID:           cert.Anchor.NFTID,
		DataHash:        cert.Anchor.DataHash,
		AnchoredAt:      cert.Anchor.AnchoredAt,
		AlreadyAnchored: already,
	}
	if r.TxHash != "" {
		r.ExplorerLink = ledger.ExplorerLink(s.settings.ExplorerBaseURL, r.TxHash)
	}
	return r
}

// Validate checks that nftID is a certificate object minted by our package.
// Problems with the token come back as an invalid result, never an error.
// With anchoring disabled no token can be read.
func (s *Service) Validate(ctx context.Context, nftID string) (models.Validation, error) {
	nftID = strings.TrimSpace(nftID)
	if !s.Enabled() {
		s.metrics.IncValidation("invalid")
		return models.Invalid(models.MessageUnreadable), nil
	}
	if nftID == "" {
		return models.Invalid(models.MessageNotFound), nil
	}

	ctx, span := s.tracer.Start(ctx, "anchor.validate", trace.WithAttributes(attribute.String("anchor.nft_id", nftID)))
	defer span.End()

	if s.cache != nil {
		if cached, err := s.cache.Get(ctx, nftID); err == nil {
			s.metrics.IncValidation("cached")
			return *cached, nil
		} else if !errors.Is(err, cache.ErrMiss) {
			s.logger.WarnContext(ctx, "validation cache read failed", "nft_id", nftID, "error", err)
		}
	}

	result := s.validate(ctx, nftID)
	span.SetAttributes(attribute.Bool("anchor.valid", result.IsValid))
	if !result.IsValid {
		s.metrics.IncValidation("invalid")
		return result, nil
	}
	s.metrics.IncValidation("valid")
	if s.cache != nil {
		if err := s.cache.Put(ctx, nftID, result); err != nil {
			s.logger.WarnContext(ctx, "validation cache write failed", "nft_id", nftID, "error", err)
		}
	}
	return result, nil
}

func (s *Service) validate(ctx context.Context, nftID string) models.Validation {
	if !s.breaker.Allow() {
		return models.Invalid(models.MessageUnreadable)
	}
	obj, err := s.ledger.GetObject(ctx, nftID)
	s.recordLedger(err)
	if err != nil {
		if ledger.CategoryOf(err) == ledger.ErrorNotFound {
			return models.Invalid(models.MessageNotFound)
		}
		s.logger.WarnContext(ctx, "token lookup failed", "nft_id", nftID, "error", err)
		return models.Invalid(models.MessageUnreadable)
	}

	pkg, module, name, ok := splitType(obj.Type)
	if !ok || module != certificateModule || name != certificateStruct {
		return models.Invalid(models.MessageInvalidKind)
	}
	if !samePackage(pkg, s.settings.PackageID) {
		s.logger.WarnContext(ctx, "counterfeit certificate token",
			"nft_id", nftID,
			"package", pkg,
		)
		return models.Invalid(models.MessageCounterfeit)
	}

	return models.Validation{
		IsValid: true,
		Message: models.MessageValid,
		Data: &models.TokenData{
			ObjectID:  obj.ID,
			DataHash:  fieldString(obj.Fields, "data_hash"),
			ImageURL:  fieldString(obj.Fields, "image_url"),
			Recipient: fieldString(obj.Fields, "recipient"),
			Owner:     obj.Owner,
		},
	}
}

// splitType splits "<package>::<module>::<struct>" and drops type arguments.
func splitType(t string) (pkg, module, name string, ok bool) {
	if i := strings.IndexByte(t, '<'); i >= 0 {
		t = t[:i]
	}
	parts := strings.Split(t, "::")
	if len(parts) != 3 {
		return "", "", "", false
	}
	return parts[0], parts[1], parts[2], true
}

// samePackage compares addresses ignoring case, 0x and leading zeros.
func samePackage(a, b string) bool {
	norm := func(s string) string {
		s = strings.TrimPrefix(strings.ToLower(strings.TrimSpace(s)), "0x")
		return strings.TrimLeft(s, "0")
	}
	return a != "" && norm(a) == norm(b)
}

// fieldString reads a string field that is either a plain JSON string or a
// wrapper such as 0x2::url::Url.
func fieldString(fields map[string]json.RawMessage, key string) string {
	raw, ok := fields[key]
	if !ok {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var wrapped struct {
		URL    string `json:"url"`
		Fields struct {
			URL string `json:"url"`
		} `json:"fields"`
	}
	if err := json.Unmarshal(raw, &wrapped); err == nil {
		if wrapped.URL != "" {
			return wrapped.URL
		}
		return wrapped.Fields.URL
	}
	return ""
}

// Reconcile settles anchor_requested claims older than the grace period and
// returns how many it settled. Claims without a digest never reached the
// ledger and are failed; claims with one follow the transaction.
func (s *Service) Reconcile(ctx context.Context) (int, error) {
	cutoff := requestcontext.Now(ctx).Add(-s.settings.ReconcileGrace)
	stale, err := s.certificates.StaleAnchorRequests(ctx, cutoff, reconcileBatch)
	if err != nil {
		return 0, err
	}
	settled := 0
	for _, cert := range stale {
		outcome := s.reconcileOne(ctx, cert)
		if outcome == "" {
			continue
		}
		settled++
		s.metrics.IncReconciled(outcome)
	}
	return settled, nil
}

func (s *Service) reconcileOne(ctx context.Context, cert *certmodels.Certificate) string {
	info := certmodels.BlockchainInfo{TxHash: cert.Anchor.TxHash, DataHash: cert.Anchor.DataHash}
	switch {
	case cert.Anchor.TxHash == "":
		info.Reason = interruptedReason
	case s.ledger == nil:
		return ""
	default:
		tx, err := s.ledger.Transaction(ctx, cert.Anchor.TxHash)
		switch {
		case ledger.CategoryOf(err) == ledger.ErrorNotFound:
			info.Reason = "transaction not found on ledger"
		case err != nil:
			s.logger.WarnContext(ctx, "reconcile lookup failed",
				"certificate_id", cert.ID.String(),
				"digest", cert.Anchor.TxHash,
				"error", err,
			)
			return ""
		case !tx.Checkpointed:
			return ""
		default:
			if reason := failureReason(tx); reason != "" {
				info.Reason = reason
			} else {
				info.Minted = true
				info.NFTID = tx.NFTID
			}
		}
	}

	if err := s.certificates.SaveBlockchainInfo(ctx, cert.ID, info); err != nil {
		s.logger.ErrorContext(ctx, "failed to settle anchor request",
			"certificate_id", cert.ID.String(),
			"error", err,
		)
		return ""
	}
	s.logger.InfoContext(ctx, "anchor request reconciled",
		"certificate_id", cert.ID.String(),
		"minted", info.Minted,
		"reason", info.Reason,
	)
	if info.Minted {
		return "anchored"
	}
	return "failed"
}
