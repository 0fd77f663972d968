// Package service issues, verifies, snapshots and expires certificates, and
// owns the certificate side of the anchoring state machine.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	catalog "certus/internal/catalog/models"
	"certus/internal/certificate/models"
	id "certus/pkg/domain"
	dErrors "certus/pkg/domain-errors"
	"certus/pkg/platform/audit"
	"certus/pkg/platform/sentinel"
	"certus/pkg/platform/tx"
	"certus/pkg/requestcontext"
)

//go:generate mockgen -source=service.go -destination=mocks/mocks.go -package=mocks Store,Directory,AuditPublisher

// Store persists certificates.
type Store interface {
	CreateIfNoneActive(ctx context.Context, c *models.Certificate, now time.Time) (*models.Certificate, bool, error)
	FindByID(ctx context.Context, certID id.CertificateID) (*models.Certificate, error)
	Deactivate(ctx context.Context, certID id.CertificateID, at time.Time) error
	SetSnapshotIfEmpty(ctx context.Context, certID id.CertificateID, studentName, certificationName string, at time.Time) (*models.Certificate, error)
	ListByUser(ctx context.Context, userID id.UserID, filter models.ListFilter) ([]*models.Certificate, int, error)
	ClaimAnchor(ctx context.Context, certID id.CertificateID, dataHash, wallet string, at time.Time) error
	RecordAnchorTx(ctx context.Context, certID id.CertificateID, txHash string, at time.Time) error
	CompleteAnchor(ctx context.Context, certID id.CertificateID, txHash, nftID string, at time.Time) error
	FailAnchor(ctx context.Context, certID id.CertificateID, reason string, at time.Time) error
	ListStaleAnchorRequests(ctx context.Context, before time.Time, limit int) ([]*models.Certificate, error)
	ExpireDue(ctx context.Context, now time.Time, limit int) ([]*models.Certificate, error)
}

// Directory resolves the names a certificate displays.
type Directory interface {
	FindStudent(ctx context.Context, userID id.UserID) (*catalog.Student, error)
	FindCertification(ctx context.Context, certID id.CertificationID) (*catalog.Certification, error)
}

type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// expireBatch bounds one ExpireDue pass.
const expireBatch = 500

type Service struct {
	store          Store
	directory      Directory
	tx             tx.Runner
	auditPublisher AuditPublisher
	logger         *slog.Logger
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithAuditPublisher(publisher AuditPublisher) Option {
	return func(s *Service) { s.auditPublisher = publisher }
}

func New(store Store, directory Directory, runner tx.Runner, opts ...Option) (*Service, error) {
	if store == nil {
		return nil, fmt.Errorf("certificate store is required")
	}
	if directory == nil {
		return nil, fmt.Errorf("directory is required")
	}
	if runner == nil {
		return nil, fmt.Errorf("transaction runner is required")
	}
	svc := &Service{
		store:     store,
		directory: directory,
		tx:        runner,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// IssueIfNoneActive returns the user's active certificate for certID, or
// issues a new one expiring one calendar year after now. It joins the
// caller's transaction when ctx carries one.
func (s *Service) IssueIfNoneActive(ctx context.Context, userID id.UserID, certID id.CertificationID, examID id.ExamID) (*models.Certificate, error) {
	now := requestcontext.Now(ctx)
	candidate := &models.Certificate{
		ID:              id.CertificateID(uuid.New()),
		UserID:          userID,
		CertificationID: certID,
		ExamID:          &examID,
		Active:          true,
		CreatedAt:       now,
		ExpiresAt:       models.ExpiryFor(now),
		Anchor:          models.Anchor{Status: models.AnchorUnanchored},
		UpdatedAt:       now,
	}

	var issued *models.Certificate
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		cert, created, err := s.store.CreateIfNoneActive(ctx, candidate, now)
		if err != nil {
			return err
		}
		issued = cert
		if !created {
			return nil
		}
		return s.emit(ctx, audit.EventCertificateIssued, cert, map[string]string{
			"certification_id": certID.String(),
			"exam_id":          examID.String(),
			"expires_at":       cert.ExpiresAt.UTC().Format(time.RFC3339),
		})
	})
	if err != nil {
		return nil, wrapError(err, "failed to issue certificate")
	}
	return issued, nil
}

// Verify returns the certificate with its holder and certification. An
// expired certificate is deactivated and reported as forbidden.
func (s *Service) Verify(ctx context.Context, certID id.CertificateID) (*models.Verified, error) {
	cert, err := s.find(ctx, certID)
	if err != nil {
		return nil, err
	}
	now := requestcontext.Now(ctx)
	if cert.IsExpired(now) || !cert.Active {
		if cert.Active {
			if err := s.store.Deactivate(ctx, cert.ID, now); err != nil {
				s.logger.WarnContext(ctx, "failed to deactivate expired certificate",
					"certificate_id", cert.ID.String(),
					"error", err,
				)
			}
		}
		return nil, dErrors.New(dErrors.CodeForbidden, "certificate has expired")
	}

	verified := &models.Verified{Certificate: *cert}
	if student, err := s.directory.FindStudent(ctx, cert.UserID); err == nil {
		verified.Student = student
	} else if !errors.Is(err, sentinel.ErrNotFound) {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load student")
	}
	if certification, err := s.directory.FindCertification(ctx, cert.CertificationID); err == nil {
		verified.Certification = certification
	} else if !errors.Is(err, sentinel.ErrNotFound) {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load certification")
	}
	return verified, nil
}

// Snapshot freezes the display names on first call; later calls return the
// stored snapshot unchanged.
func (s *Service) Snapshot(ctx context.Context, certID id.CertificateID, studentName, certificationName string) (*models.Certificate, error) {
	if studentName == "" || certificationName == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "snapshot names must not be empty")
	}
	cert, err := s.store.SetSnapshotIfEmpty(ctx, certID, studentName, certificationName, requestcontext.Now(ctx))
	if err != nil {
		return nil, wrapError(err, "failed to snapshot certificate")
	}
	return cert, nil
}

// ListByUser returns one page of the user's certificates, newest first. The
// active filter compares the stored flag. A certification missing from the
// catalog lists with an empty name.
func (s *Service) ListByUser(ctx context.Context, userID id.UserID, filter models.ListFilter) (*models.Page, error) {
	filter = filter.Normalize()
	certs, total, err := s.store.ListByUser(ctx, userID, filter)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list certificates")
	}

	names := make(map[id.CertificationID]string)
	items := make([]models.ListItem, 0, len(certs))
	for _, c := range certs {
		name, ok := names[c.CertificationID]
		if !ok {
			certification, err := s.directory.FindCertification(ctx, c.CertificationID)
			switch {
			case err == nil:
				name = certification.Name
			case !errors.Is(err, sentinel.ErrNotFound):
				return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load certification")
			}
			names[c.CertificationID] = name
		}
		items = append(items, models.ListItem{Certificate: *c, CertificationName: name})
	}
	return &models.Page{
		Data:     items,
		Total:    total,
		Page:     filter.Page,
		LastPage: models.LastPage(total, filter.Limit),
	}, nil
}

// ClaimAnchor moves the certificate into anchor_requested, recording the
// hash and wallet before any ledger call. A certificate already being
// anchored is a conflict.
func (s *Service) ClaimAnchor(ctx context.Context, cert *models.Certificate, dataHash, wallet string) error {
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		if err := s.store.ClaimAnchor(ctx, cert.ID, dataHash, wallet, requestcontext.Now(ctx)); err != nil {
			return err
		}
		return s.emit(ctx, audit.EventAnchorRequested, cert, map[string]string{
			"data_hash": dataHash,
			"wallet":    wallet,
		})
	})
	if errors.Is(err, sentinel.ErrInvalidState) {
		return dErrors.New(dErrors.CodeConflict, "certificate anchoring already in progress")
	}
	if err != nil {
		return wrapError(err, "failed to record anchoring intent")
	}
	return nil
}

// RecordAnchorTx stores the transaction digest as soon as it is known.
func (s *Service) RecordAnchorTx(ctx context.Context, certID id.CertificateID, txHash string) error {
	if err := s.store.RecordAnchorTx(ctx, certID, txHash, requestcontext.Now(ctx)); err != nil {
		return wrapError(err, "failed to record anchor transaction")
	}
	return nil
}

// SaveBlockchainInfo persists an anchoring outcome: anchored when minted,
// anchor_failed with the reason otherwise. It does not check the hash.
func (s *Service) SaveBlockchainInfo(ctx context.Context, certID id.CertificateID, info models.BlockchainInfo) error {
	cert, err := s.find(ctx, certID)
	if err != nil {
		return err
	}
	now := requestcontext.Now(ctx)
	err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
		if info.Minted {
			if err := s.store.CompleteAnchor(ctx, certID, info.TxHash, info.NFTID, now); err != nil {
				return err
			}
			return s.emit(ctx, audit.EventAnchored, cert, map[string]string{
				"tx_hash":   info.TxHash,
				"nft_id":    info.NFTID,
				"data_hash": info.DataHash,
			})
		}
		if err := s.store.FailAnchor(ctx, certID, info.Reason, now); err != nil {
			return err
		}
		return s.emit(ctx, audit.EventAnchorFailed, cert, map[string]string{
			"reason":  info.Reason,
			"tx_hash": info.TxHash,
		})
	})
	if err != nil {
		return wrapError(err, "failed to save anchoring outcome")
	}
	return nil
}

// StaleAnchorRequests lists anchor_requested certificates claimed before cutoff.
func (s *Service) StaleAnchorRequests(ctx context.Context, before time.Time, limit int) ([]*models.Certificate, error) {
	certs, err := s.store.ListStaleAnchorRequests(ctx, before, limit)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list pending anchors")
	}
	return certs, nil
}

// ExpireDue deactivates every active certificate past its expiry and
// returns how many it flipped.
func (s *Service) ExpireDue(ctx context.Context) (int, error) {
	now := requestcontext.Now(ctx)
	expired := 0
	for {
		var batch []*models.Certificate
		err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
			var err error
			batch, err = s.store.ExpireDue(ctx, now, expireBatch)
			if err != nil {
				return err
			}
			for _, c := range batch {
				if err := s.emit(ctx, audit.EventCertificateExpired, c, map[string]string{
					"expires_at": c.ExpiresAt.UTC().Format(time.RFC3339),
				}); err != nil {
					return err
				}
			}
			return nil
		})
		if err != nil {
			return expired, wrapError(err, "failed to expire certificates")
		}
		expired += len(batch)
		if len(batch) < expireBatch {
			return expired, nil
		}
	}
}

func (s *Service) find(ctx context.Context, certID id.CertificateID) (*models.Certificate, error) {
	cert, err := s.store.FindByID(ctx, certID)
	if err != nil {
		return nil, wrapError(err, "failed to load certificate")
	}
	return cert, nil
}

func (s *Service) emit(ctx context.Context, event audit.AuditEvent, cert *models.Certificate, attrs map[string]string) error {
	if s.auditPublisher == nil {
		return nil
	}
	return s.auditPublisher.Emit(ctx, audit.Event{
		UserID:        cert.UserID,
		Action:        string(event),
		AggregateType: "certificate",
		AggregateID:   cert.ID.String(),
		Attributes:    attrs,
	})
}

func wrapError(err error, msg string) error {
	if _, ok := dErrors.As(err); ok {
		return err
	}
	switch {
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.New(dErrors.CodeNotFound, "certificate not found")
	case errors.Is(err, sentinel.ErrInvalidState):
		return dErrors.Wrap(err, dErrors.CodeConflict, "certificate is not in the expected anchoring state")
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, msg)
}
