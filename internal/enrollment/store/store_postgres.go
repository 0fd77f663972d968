package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"certus/internal/enrollment/models"
	"certus/internal/platform/postgres"
	id "certus/pkg/domain"
	"certus/pkg/platform/sentinel"
)

const uniqueUserCertification = "enrollments_user_certification_key"

// PostgresStore persists enrollments. Writes join the transaction carried by
// ctx when one is present.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Create(ctx context.Context, e *models.Enrollment) error {
	_, err := postgres.Conn(ctx, s.db).ExecContext(ctx, `
		INSERT INTO enrollments (id, user_id, certification_id, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, uuid.UUID(e.ID), uuid.UUID(e.UserID), uuid.UUID(e.CertificationID), string(e.Status), e.CreatedAt, e.UpdatedAt)
	if err != nil {
		if postgres.IsUniqueViolation(err, uniqueUserCertification) {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("insert enrollment: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByUserAndCertification(ctx context.Context, userID id.UserID, certID id.CertificationID) (*models.Enrollment, error) {
	row := postgres.Conn(ctx, s.db).QueryRowContext(ctx, `
		SELECT id, user_id, certification_id, status, created_at, updated_at
		FROM enrollments WHERE user_id = $1 AND certification_id = $2
	`, uuid.UUID(userID), uuid.UUID(certID))
	e, err := scanEnrollment(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find enrollment: %w", err)
	}
	return e, nil
}

func (s *PostgresStore) ListByUser(ctx context.Context, userID id.UserID) ([]*models.Enrollment, error) {
	rows, err := postgres.Conn(ctx, s.db).QueryContext(ctx, `
		SELECT id, user_id, certification_id, status, created_at, updated_at
		FROM enrollments WHERE user_id = $1
		ORDER BY created_at
	`, uuid.UUID(userID))
	if err != nil {
		return nil, fmt.Errorf("list enrollments: %w", err)
	}
	defer rows.Close()

	var out []*models.Enrollment
	for rows.Next() {
		e, err := scanEnrollment(rows)
		if err != nil {
			return nil, fmt.Errorf("scan enrollment: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *PostgresStore) Delete(ctx context.Context, userID id.UserID, enrollmentID id.EnrollmentID) error {
	res, err := postgres.Conn(ctx, s.db).ExecContext(ctx,
		`DELETE FROM enrollments WHERE id = $1 AND user_id = $2`,
		uuid.UUID(enrollmentID), uuid.UUID(userID))
	if err != nil {
		return fmt.Errorf("delete enrollment: %w", err)
	}
	return requireOneRow(res, sentinel.ErrNotFound)
}

func (s *PostgresStore) TransitionStatus(ctx context.Context, enrollmentID id.EnrollmentID, from, to models.Status, at time.Time) error {
	res, err := postgres.Conn(ctx, s.db).ExecContext(ctx, `
		UPDATE enrollments SET status = $3, updated_at = $4
		WHERE id = $1 AND status = $2
	`, uuid.UUID(enrollmentID), string(from), string(to), at)
	if err != nil {
		return fmt.Errorf("update enrollment status: %w", err)
	}
	return requireOneRow(res, sentinel.ErrInvalidState)
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEnrollment(row scanner) (*models.Enrollment, error) {
	var e models.Enrollment
	var eid, uid, cid uuid.UUID
	var status string
	if err := row.Scan(&eid, &uid, &cid, &status, &e.CreatedAt, &e.UpdatedAt); err != nil {
		return nil, err
	}
	e.ID = id.EnrollmentID(eid)
	e.UserID = id.UserID(uid)
	e.CertificationID = id.CertificationID(cid)
	e.Status = models.Status(status)
	return &e, nil
}

func requireOneRow(res sql.Result, none error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return none
	}
	return nil
}
