package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"certus/internal/catalog/models"
	id "certus/pkg/domain"
	"certus/pkg/platform/sentinel"
)

// PostgresStore reads the catalog tables.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) FindCertification(ctx context.Context, certID id.CertificationID) (*models.Certification, error) {
	var c models.Certification
	var rawID uuid.UUID
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, short_description, passing_score, is_active, created_at
		FROM certifications WHERE id = $1
	`, uuid.UUID(certID)).Scan(&rawID, &c.Name, &c.ShortDescription, &c.PassingScore, &c.IsActive, &c.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find certification: %w", err)
	}
	c.ID = id.CertificationID(rawID)
	return &c, nil
}

// ValidQuestions loads active questions and applies the calendar-month
// validity window in Go, where month overflow matches Question.IsValid.
func (s *PostgresStore) ValidQuestions(ctx context.Context, certID id.CertificationID, now time.Time) ([]models.Question, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, certification_id, question, answer, validity_months, is_active, created_at
		FROM questions
		WHERE certification_id = $1 AND is_active
		ORDER BY created_at, id
	`, uuid.UUID(certID))
	if err != nil {
		return nil, fmt.Errorf("query questions: %w", err)
	}
	qs, err := scanQuestions(rows)
	if err != nil {
		return nil, err
	}
	valid := qs[:0]
	for _, q := range qs {
		if q.IsValid(now) {
			valid = append(valid, q)
		}
	}
	return valid, nil
}

// QuestionsByIDs returns the questions that exist among ids, in ids order.
func (s *PostgresStore) QuestionsByIDs(ctx context.Context, ids []id.QuestionID) ([]models.Question, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	raw := make([]string, len(ids))
	for i, qid := range ids {
		raw[i] = qid.String()
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, certification_id, question, answer, validity_months, is_active, created_at
		FROM questions WHERE id = ANY($1::uuid[])
	`, pq.Array(raw))
	if err != nil {
		return nil, fmt.Errorf("query questions by id: %w", err)
	}
	qs, err := scanQuestions(rows)
	if err != nil {
		return nil, err
	}
	byID := make(map[id.QuestionID]models.Question, len(qs))
	for _, q := range qs {
		byID[q.ID] = q
	}
	out := make([]models.Question, 0, len(ids))
	for _, qid := range ids {
		if q, ok := byID[qid]; ok {
			out = append(out, q)
		}
	}
	return out, nil
}

func (s *PostgresStore) FindStudent(ctx context.Context, userID id.UserID) (*models.Student, error) {
	st := models.Student{ID: userID}
	err := s.db.QueryRowContext(ctx, `SELECT name FROM users WHERE id = $1`, uuid.UUID(userID)).Scan(&st.Name)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find student: %w", err)
	}
	return &st, nil
}

func scanQuestions(rows *sql.Rows) ([]models.Question, error) {
	defer rows.Close()
	var out []models.Question
	for rows.Next() {
		var q models.Question
		var qid, cid uuid.UUID
		if err := rows.Scan(&qid, &cid, &q.Text, &q.Answer, &q.ValidityMonths, &q.IsActive, &q.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan question: %w", err)
		}
		q.ID = id.QuestionID(qid)
		q.CertificationID = id.CertificationID(cid)
		out = append(out, q)
	}
	return out, rows.Err()
}
