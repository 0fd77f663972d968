//go:build integration

package store_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"certus/internal/enrollment/models"
	"certus/internal/enrollment/store"
	"certus/internal/platform/postgres"
	id "certus/pkg/domain"
	"certus/pkg/platform/sentinel"
	"certus/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *store.PostgresStore
	runner   *postgres.TxRunner
	now      time.Time

	certificationID id.CertificationID
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	s.postgres = containers.GetManager().GetPostgres(s.T())
	s.store = store.NewPostgres(s.postgres.DB)
	s.runner = postgres.NewTxRunner(s.postgres.DB)
	s.now = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
}

func (s *PostgresStoreSuite) SetupTest() {
	ctx := context.Background()
	s.Require().NoError(s.postgres.TruncateTables(ctx, "enrollments", "certifications"))
	s.certificationID = id.CertificationID(uuid.New())
	s.Require().NoError(s.postgres.Exec(ctx,
		`INSERT INTO certifications (id, name) VALUES ($1, 'Go Fundamentals')`,
		uuid.UUID(s.certificationID)))
}

func (s *PostgresStoreSuite) newEnrollment(userID id.UserID) *models.Enrollment {
	return &models.Enrollment{
		ID:              id.EnrollmentID(uuid.New()),
		UserID:          userID,
		CertificationID: s.certificationID,
		Status:          models.StatusActive,
		CreatedAt:       s.now,
		UpdatedAt:       s.now,
	}
}

func (s *PostgresStoreSuite) TestCreate_ConcurrentEnrollAdmitsOne() {
	userID := id.UserID(uuid.New())
	const workers = 50

	var (
		wg        sync.WaitGroup
		won       atomic.Int32
		conflicts atomic.Int32
	)
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := s.runner.RunInTx(context.Background(), func(ctx context.Context) error {
				return s.store.Create(ctx, s.newEnrollment(userID))
			})
			switch {
			case err == nil:
				won.Add(1)
			case errors.Is(err, sentinel.ErrConflict):
				conflicts.Add(1)
			}
		}()
	}
	wg.Wait()

	s.Equal(int32(1), won.Load())
	s.Equal(int32(workers-1), conflicts.Load())

	items, err := s.store.ListByUser(context.Background(), userID)
	s.Require().NoError(err)
	s.Len(items, 1)
}

func (s *PostgresStoreSuite) TestFindAndDelete() {
	ctx := context.Background()
	userID := id.UserID(uuid.New())
	e := s.newEnrollment(userID)
	s.Require().NoError(s.store.Create(ctx, e))

	found, err := s.store.FindByUserAndCertification(ctx, userID, s.certificationID)
	s.Require().NoError(err)
	s.Equal(e.ID, found.ID)
	s.Equal(models.StatusActive, found.Status)

	s.Run("other user cannot delete", func() {
		s.ErrorIs(s.store.Delete(ctx, id.UserID(uuid.New()), e.ID), sentinel.ErrNotFound)
	})

	s.Run("owner delete frees the pair", func() {
		s.Require().NoError(s.store.Delete(ctx, userID, e.ID))
		_, err := s.store.FindByUserAndCertification(ctx, userID, s.certificationID)
		s.ErrorIs(err, sentinel.ErrNotFound)
		s.NoError(s.store.Create(ctx, s.newEnrollment(userID)))
	})
}

func (s *PostgresStoreSuite) TestTransitionStatus_SingleOutcome() {
	userID := id.UserID(uuid.New())
	e := s.newEnrollment(userID)
	s.Require().NoError(s.store.Create(context.Background(), e))
	const workers = 10

	var (
		wg      sync.WaitGroup
		won     atomic.Int32
		invalid atomic.Int32
	)
	for i := range workers {
		to := models.StatusApproved
		if i%2 == 1 {
			to = models.StatusReproved
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := s.store.TransitionStatus(context.Background(), e.ID, models.StatusActive, to, s.now.Add(time.Minute))
			switch {
			case err == nil:
				won.Add(1)
			case errors.Is(err, sentinel.ErrInvalidState):
				invalid.Add(1)
			}
		}()
	}
	wg.Wait()

	s.Equal(int32(1), won.Load())
	s.Equal(int32(workers-1), invalid.Load())

	found, err := s.store.FindByUserAndCertification(context.Background(), userID, s.certificationID)
	s.Require().NoError(err)
	s.NotEqual(models.StatusActive, found.Status)
	s.True(s.now.Add(time.Minute).Equal(found.UpdatedAt))
}

func (s *PostgresStoreSuite) TestTransitionStatus_RollsBackWithTransaction() {
	ctx := context.Background()
	userID := id.UserID(uuid.New())
	e := s.newEnrollment(userID)
	s.Require().NoError(s.store.Create(ctx, e))
	boom := errors.New("issuer unavailable")

	err := s.runner.RunInTx(ctx, func(ctx context.Context) error {
		if err := s.store.TransitionStatus(ctx, e.ID, models.StatusActive, models.StatusApproved, s.now); err != nil {
			return err
		}
		return boom
	})
	s.ErrorIs(err, boom)

	found, err := s.store.FindByUserAndCertification(ctx, userID, s.certificationID)
	s.Require().NoError(err)
	s.Equal(models.StatusActive, found.Status)
}
