package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"certus/internal/certificate/models"
	"certus/internal/platform/postgres"
	id "certus/pkg/domain"
	"certus/pkg/platform/sentinel"
)

const certColumns = `id, user_id, certification_id, exam_id, active, created_at, expires_at,
	snapshot_student_name, snapshot_certification_name,
	anchor_status, data_hash, wallet_address, tx_hash, nft_id, anchor_error,
	anchor_requested_at, anchored_at, updated_at`

// PostgresStore persists certificates. Every method joins the transaction
// carried by ctx when present.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// CreateIfNoneActive serializes issuance per (user, certification) with a
// transaction-scoped advisory lock; callers must run it inside a transaction.
func (s *PostgresStore) CreateIfNoneActive(ctx context.Context, c *models.Certificate, now time.Time) (*models.Certificate, bool, error) {
	conn := postgres.Conn(ctx, s.db)
	if _, err := conn.ExecContext(ctx,
		`SELECT pg_advisory_xact_lock(hashtext($1))`,
		"certificate:"+c.UserID.String()+":"+c.CertificationID.String(),
	); err != nil {
		return nil, false, fmt.Errorf("lock certificate issuance: %w", err)
	}

	row := conn.QueryRowContext(ctx, `SELECT `+certColumns+` FROM certificates
		WHERE user_id = $1 AND certification_id = $2 AND active AND expires_at > $3
		ORDER BY created_at DESC LIMIT 1`,
		uuid.UUID(c.UserID), uuid.UUID(c.CertificationID), now)
	existing, err := scanCertificate(row)
	if err == nil {
		return existing, false, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, false, fmt.Errorf("find active certificate: %w", err)
	}

	var examID any
	if c.ExamID != nil {
		examID = uuid.UUID(*c.ExamID)
	}
	_, err = conn.ExecContext(ctx, `
		INSERT INTO certificates (id, user_id, certification_id, exam_id, active, created_at, expires_at, anchor_status, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, uuid.UUID(c.ID), uuid.UUID(c.UserID), uuid.UUID(c.CertificationID), examID, c.Active,
		c.CreatedAt, c.ExpiresAt, string(c.Anchor.Status), c.UpdatedAt)
	if err != nil {
		return nil, false, fmt.Errorf("insert certificate: %w", err)
	}
	return c, true, nil
}

func (s *PostgresStore) FindByID(ctx context.Context, certID id.CertificateID) (*models.Certificate, error) {
	row := postgres.Conn(ctx, s.db).QueryRowContext(ctx,
		`SELECT `+certColumns+` FROM certificates WHERE id = $1`, uuid.UUID(certID))
	c, err := scanCertificate(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find certificate: %w", err)
	}
	return c, nil
}

func (s *PostgresStore) Deactivate(ctx context.Context, certID id.CertificateID, at time.Time) error {
	return s.exec(ctx, sentinel.ErrNotFound,
		`UPDATE certificates SET active = FALSE, updated_at = $2 WHERE id = $1`,
		uuid.UUID(certID), at)
}

func (s *PostgresStore) SetSnapshotIfEmpty(ctx context.Context, certID id.CertificateID, studentName, certificationName string, at time.Time) (*models.Certificate, error) {
	conn := postgres.Conn(ctx, s.db)
	if _, err := conn.ExecContext(ctx, `
		UPDATE certificates
		SET snapshot_student_name = $2, snapshot_certification_name = $3, updated_at = $4
		WHERE id = $1
		  AND COALESCE(snapshot_student_name, '') = ''
		  AND COALESCE(snapshot_certification_name, '') = ''
	`, uuid.UUID(certID), studentName, certificationName, at); err != nil {
		return nil, fmt.Errorf("snapshot certificate: %w", err)
	}
	return s.FindByID(ctx, certID)
}

func (s *PostgresStore) ListByUser(ctx context.Context, userID id.UserID, filter models.ListFilter) ([]*models.Certificate, int, error) {
	conn := postgres.Conn(ctx, s.db)
	var active any
	if filter.Active != nil {
		active = *filter.Active
	}

	var total int
	if err := conn.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM certificates
		WHERE user_id = $1 AND ($2::boolean IS NULL OR active = $2)
	`, uuid.UUID(userID), active).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count certificates: %w", err)
	}

	rows, err := conn.QueryContext(ctx, `SELECT `+certColumns+` FROM certificates
		WHERE user_id = $1 AND ($2::boolean IS NULL OR active = $2)
		ORDER BY created_at DESC
		LIMIT $3 OFFSET $4`,
		uuid.UUID(userID), active, filter.Limit, filter.Offset())
	if err != nil {
		return nil, 0, fmt.Errorf("list certificates: %w", err)
	}
	out, err := scanAll(rows)
	if err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

func (s *PostgresStore) ClaimAnchor(ctx context.Context, certID id.CertificateID, dataHash, wallet string, at time.Time) error {
	return s.transition(ctx, certID, `
		UPDATE certificates
		SET anchor_status = 'anchor_requested', data_hash = $2, wallet_address = $3,
		    tx_hash = NULL, nft_id = NULL, anchor_error = NULL,
		    anchor_requested_at = $4, updated_at = $4
		WHERE id = $1 AND anchor_status IN ('unanchored', 'anchor_failed')
	`, uuid.UUID(certID), dataHash, wallet, at)
}

func (s *PostgresStore) RecordAnchorTx(ctx context.Context, certID id.CertificateID, txHash string, at time.Time) error {
	return s.transition(ctx, certID, `
		UPDATE certificates SET tx_hash = $2, updated_at = $3
		WHERE id = $1 AND anchor_status = 'anchor_requested'
	`, uuid.UUID(certID), txHash, at)
}

func (s *PostgresStore) CompleteAnchor(ctx context.Context, certID id.CertificateID, txHash, nftID string, at time.Time) error {
	return s.transition(ctx, certID, `
		UPDATE certificates
		SET anchor_status = 'anchored', tx_hash = $2, nft_id = $3, anchor_error = NULL,
		    anchored_at = $4, updated_at = $4
		WHERE id = $1 AND anchor_status = 'anchor_requested'
	`, uuid.UUID(certID), txHash, nftID, at)
}

func (s *PostgresStore) FailAnchor(ctx context.Context, certID id.CertificateID, reason string, at time.Time) error {
	return s.transition(ctx, certID, `
		UPDATE certificates SET anchor_status = 'anchor_failed', anchor_error = $2, updated_at = $3
		WHERE id = $1 AND anchor_status = 'anchor_requested'
	`, uuid.UUID(certID), reason, at)
}

func (s *PostgresStore) ListStaleAnchorRequests(ctx context.Context, before time.Time, limit int) ([]*models.Certificate, error) {
	rows, err := postgres.Conn(ctx, s.db).QueryContext(ctx, `SELECT `+certColumns+` FROM certificates
		WHERE anchor_status = 'anchor_requested' AND anchor_requested_at < $1
		ORDER BY anchor_requested_at
		LIMIT $2`, before, limit)
	if err != nil {
		return nil, fmt.Errorf("list stale anchor requests: %w", err)
	}
	return scanAll(rows)
}

func (s *PostgresStore) ExpireDue(ctx context.Context, now time.Time, limit int) ([]*models.Certificate, error) {
	rows, err := postgres.Conn(ctx, s.db).QueryContext(ctx, `
		UPDATE certificates SET active = FALSE, updated_at = $1
		WHERE id IN (
			SELECT id FROM certificates
			WHERE active AND expires_at <= $1
			ORDER BY expires_at
			LIMIT $2
			FOR UPDATE SKIP LOCKED
		)
		RETURNING `+certColumns, now, limit)
	if err != nil {
		return nil, fmt.Errorf("expire certificates: %w", err)
	}
	return scanAll(rows)
}

// transition runs a conditional update; zero rows is ErrNotFound when the
// certificate is missing and ErrInvalidState otherwise.
func (s *PostgresStore) transition(ctx context.Context, certID id.CertificateID, query string, args ...any) error {
	res, err := postgres.Conn(ctx, s.db).ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update anchor state: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n > 0 {
		return nil
	}
	if _, err := s.FindByID(ctx, certID); err != nil {
		return err
	}
	return sentinel.ErrInvalidState
}

func (s *PostgresStore) exec(ctx context.Context, none error, query string, args ...any) error {
	res, err := postgres.Conn(ctx, s.db).ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update certificate: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return none
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanAll(rows *sql.Rows) ([]*models.Certificate, error) {
	defer rows.Close()
	var out []*models.Certificate
	for rows.Next() {
		c, err := scanCertificate(rows)
		if err != nil {
			return nil, fmt.Errorf("scan certificate: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func scanCertificate(row scanner) (*models.Certificate, error) {
	var (
		c                                    models.Certificate
		cid, uid, certID                     uuid.UUID
		examID                               uuid.NullUUID
		studentName, certName                sql.NullString
		status                               string
		dataHash, wallet, txHash, nftID, why sql.NullString
		requestedAt, anchoredAt              sql.NullTime
	)
	if err := row.Scan(&cid, &uid, &certID, &examID, &c.Active, &c.CreatedAt, &c.ExpiresAt,
		&studentName, &certName,
		&status, &dataHash, &wallet, &txHash, &nftID, &why,
		&requestedAt, &anchoredAt, &c.UpdatedAt,
	); err != nil {
		return nil, err
	}
	c.ID = id.CertificateID(cid)
	c.UserID = id.UserID(uid)
	c.CertificationID = id.CertificationID(certID)
	if examID.Valid {
		e := id.ExamID(examID.UUID)
		c.ExamID = &e
	}
	c.SnapshotStudentName = studentName.String
	c.SnapshotCertificationName = certName.String
	c.Anchor = models.Anchor{
		Status:        models.AnchorStatus(status),
		DataHash:      dataHash.String,
		WalletAddress: wallet.String,
		TxHash:        txHash.String,
		NFTID:         nftID.String,
		Error:         why.String,
	}
	if requestedAt.Valid {
		c.Anchor.RequestedAt = &requestedAt.Time
	}
	if anchoredAt.Valid {
		c.Anchor.AnchoredAt = &anchoredAt.Time
	}
	return &c, nil
}
