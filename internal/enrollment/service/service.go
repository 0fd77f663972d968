// Package service admits users into certifications and owns enrollment
// status. Grading drives status through ApplyOutcome; nothing else moves it.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	catalog "certus/internal/catalog/models"
	"certus/internal/enrollment/models"
	id "certus/pkg/domain"
	dErrors "certus/pkg/domain-errors"
	"certus/pkg/platform/audit"
	"certus/pkg/platform/sentinel"
	"certus/pkg/platform/tx"
	"certus/pkg/requestcontext"
)

//go:generate mockgen -source=service.go -destination=mocks/mocks.go -package=mocks Store,CertificationLookup,AuditPublisher

// Store persists enrollments.
type Store interface {
	Create(ctx context.Context, e *models.Enrollment) error
	FindByUserAndCertification(ctx context.Context, userID id.UserID, certID id.CertificationID) (*models.Enrollment, error)
	ListByUser(ctx context.Context, userID id.UserID) ([]*models.Enrollment, error)
	Delete(ctx context.Context, userID id.UserID, enrollmentID id.EnrollmentID) error
	TransitionStatus(ctx context.Context, enrollmentID id.EnrollmentID, from, to models.Status, at time.Time) error
}

// CertificationLookup resolves catalog entries.
type CertificationLookup interface {
	FindCertification(ctx context.Context, certID id.CertificationID) (*catalog.Certification, error)
}

// AuditPublisher emits domain events.
type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

type Service struct {
	store          Store
	certifications CertificationLookup
	tx             tx.Runner
	auditPublisher AuditPublisher
	logger         *slog.Logger
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithAuditPublisher(publisher AuditPublisher) Option {
	return func(s *Service) {
		s.auditPublisher = publisher
	}
}

func New(store Store, certifications CertificationLookup, runner tx.Runner, opts ...Option) (*Service, error) {
	if store == nil {
		return nil, fmt.Errorf("enrollment store is required")
	}
	if certifications == nil {
		return nil, fmt.Errorf("certification lookup is required")
	}
	if runner == nil {
		return nil, fmt.Errorf("transaction runner is required")
	}
	svc := &Service{
		store:          store,
		certifications: certifications,
		tx:             runner,
		logger:         slog.Default(),
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// Enroll admits userID into certID exactly once. The existence check is a
// fast path; the store's uniqueness guard is what resolves concurrent admits.
func (s *Service) Enroll(ctx context.Context, userID id.UserID, certID id.CertificationID) (*models.Enrollment, error) {
	if _, err := s.certifications.FindCertification(ctx, certID); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "certification not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load certification")
	}

	if _, err := s.store.FindByUserAndCertification(ctx, userID, certID); err == nil {
		return nil, dErrors.New(dErrors.CodeConflict, "user is already enrolled in this certification")
	} else if !errors.Is(err, sentinel.ErrNotFound) {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to check enrollment")
	}

	now := requestcontext.Now(ctx)
	enrollment := &models.Enrollment{
		ID:              id.EnrollmentID(uuid.New()),
		UserID:          userID,
		CertificationID: certID,
		Status:          models.StatusActive,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		if err := s.store.Create(ctx, enrollment); err != nil {
			return err
		}
		return s.emit(ctx, audit.EventEnrollmentCreated, userID, enrollment.ID.String(), map[string]string{
			"certification_id": certID.String(),
		})
	})
	if err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return nil, dErrors.New(dErrors.CodeConflict, "user is already enrolled in this certification")
		}
		return nil, wrapTxError(err, "failed to create enrollment")
	}
	s.logger.InfoContext(ctx, "enrollment created",
		"request_id", requestcontext.RequestID(ctx),
		"enrollment_id", enrollment.ID.String(),
		"user_id", userID.String(),
		"certification_id", certID.String(),
	)
	return enrollment, nil
}

// ListForUser returns every enrollment with its certification attached.
func (s *Service) ListForUser(ctx context.Context, userID id.UserID) ([]models.WithCertification, error) {
	enrollments, err := s.store.ListByUser(ctx, userID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list enrollments")
	}

	certs := make(map[id.CertificationID]*catalog.Certification)
	out := make([]models.WithCertification, 0, len(enrollments))
	for _, e := range enrollments {
		cert, ok := certs[e.CertificationID]
		if !ok {
			cert, err = s.certifications.FindCertification(ctx, e.CertificationID)
			if err != nil && !errors.Is(err, sentinel.ErrNotFound) {
				return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load certification")
			}
			certs[e.CertificationID] = cert
		}
		out = append(out, models.WithCertification{Enrollment: *e, Certification: cert})
	}
	return out, nil
}

// FindForUser returns enrollmentID only if it belongs to userID.
func (s *Service) FindForUser(ctx context.Context, userID id.UserID, enrollmentID id.EnrollmentID) (*models.Enrollment, error) {
	enrollments, err := s.store.ListByUser(ctx, userID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list enrollments")
	}
	for _, e := range enrollments {
		if e.ID == enrollmentID {
			return e, nil
		}
	}
	return nil, dErrors.New(dErrors.CodeNotFound, "enrollment not found")
}

// Unenroll hard-deletes an owned enrollment.
func (s *Service) Unenroll(ctx context.Context, userID id.UserID, enrollmentID id.EnrollmentID) error {
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		if err := s.store.Delete(ctx, userID, enrollmentID); err != nil {
			return err
		}
		return s.emit(ctx, audit.EventEnrollmentRemoved, userID, enrollmentID.String(), nil)
	})
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.New(dErrors.CodeNotFound, "enrollment not found")
		}
		return wrapTxError(err, "failed to delete enrollment")
	}
	s.logger.InfoContext(ctx, "enrollment removed",
		"request_id", requestcontext.RequestID(ctx),
		"enrollment_id", enrollmentID.String(),
		"user_id", userID.String(),
	)
	return nil
}

// ApplyOutcome records a grading result on the enrollment. It must run inside
// the grading transaction; an enrollment that already left active is an
// invariant violation and aborts it.
func (s *Service) ApplyOutcome(ctx context.Context, enrollmentID id.EnrollmentID, passed bool) (models.Status, error) {
	next := models.StatusForOutcome(passed)
	if !models.StatusActive.CanTransitionTo(next) {
		return "", dErrors.New(dErrors.CodeInvariantViolation, "invalid enrollment transition")
	}
	err := s.store.TransitionStatus(ctx, enrollmentID, models.StatusActive, next, requestcontext.Now(ctx))
	switch {
	case err == nil:
		return next, nil
	case errors.Is(err, sentinel.ErrNotFound):
		return "", dErrors.New(dErrors.CodeNotFound, "enrollment not found")
	case errors.Is(err, sentinel.ErrInvalidState):
		return "", dErrors.New(dErrors.CodeInvariantViolation, "enrollment is no longer active")
	default:
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "failed to update enrollment status")
	}
}

func (s *Service) emit(ctx context.Context, event audit.AuditEvent, userID id.UserID, aggregateID string, attrs map[string]string) error {
	if s.auditPublisher == nil {
		return nil
	}
	return s.auditPublisher.Emit(ctx, audit.Event{
		UserID:        userID,
		Action:        string(event),
		AggregateType: "enrollment",
		AggregateID:   aggregateID,
		Attributes:    attrs,
	})
}

func wrapTxError(err error, msg string) error {
	if _, ok := dErrors.As(err); ok {
		return err
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, msg)
}
