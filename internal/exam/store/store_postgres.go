package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"certus/internal/exam/models"
	"certus/internal/platform/postgres"
	id "certus/pkg/domain"
	"certus/pkg/platform/sentinel"
)

const (
	uniqueInProgress   = "exams_one_in_progress"
	uniqueExamQuestion = "exam_answers_exam_question_key"
)

const examColumns = `id, user_id, enrollment_id, certification_id, status, score, passed, question_ids::text, started_at, completed_at`

// PostgresStore persists exams and their answers.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Create(ctx context.Context, e *models.Exam) error {
	_, err := postgres.Conn(ctx, s.db).ExecContext(ctx, `
		INSERT INTO exams (id, user_id, enrollment_id, certification_id, status, started_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, uuid.UUID(e.ID), uuid.UUID(e.UserID), uuid.UUID(e.EnrollmentID), uuid.UUID(e.CertificationID), string(e.Status), e.StartedAt)
	if err != nil {
		if postgres.IsUniqueViolation(err, uniqueInProgress) {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("insert exam: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, examID id.ExamID) (*models.Exam, error) {
	row := postgres.Conn(ctx, s.db).QueryRowContext(ctx,
		`SELECT `+examColumns+` FROM exams WHERE id = $1`, uuid.UUID(examID))
	return oneExam(row)
}

func (s *PostgresStore) FindInProgress(ctx context.Context, userID id.UserID, enrollmentID id.EnrollmentID, certID id.CertificationID) (*models.Exam, error) {
	row := postgres.Conn(ctx, s.db).QueryRowContext(ctx, `SELECT `+examColumns+` FROM exams
		WHERE user_id = $1 AND enrollment_id = $2 AND certification_id = $3 AND status = 'in_progress'`,
		uuid.UUID(userID), uuid.UUID(enrollmentID), uuid.UUID(certID))
	return oneExam(row)
}

func (s *PostgresStore) ListByUser(ctx context.Context, userID id.UserID) ([]*models.Exam, error) {
	rows, err := postgres.Conn(ctx, s.db).QueryContext(ctx,
		`SELECT `+examColumns+` FROM exams WHERE user_id = $1 ORDER BY started_at DESC`, uuid.UUID(userID))
	if err != nil {
		return nil, fmt.Errorf("list exams: %w", err)
	}
	defer rows.Close()
	var out []*models.Exam
	for rows.Next() {
		e, err := scanExam(rows)
		if err != nil {
			return nil, fmt.Errorf("scan exam: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *PostgresStore) SetQuestionsIfUnset(ctx context.Context, examID id.ExamID, questionIDs []id.QuestionID) ([]id.QuestionID, error) {
	raw := make([]string, len(questionIDs))
	for i, q := range questionIDs {
		raw[i] = q.String()
	}
	var stored pq.StringArray
	err := postgres.Conn(ctx, s.db).QueryRowContext(ctx, `
		UPDATE exams
		SET question_ids = COALESCE(question_ids, $2::uuid[])
		WHERE id = $1
		RETURNING question_ids::text
	`, uuid.UUID(examID), pq.Array(raw)).Scan(&stored)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("set exam questions: %w", err)
	}
	return parseQuestionIDs(stored)
}

func (s *PostgresStore) MarkGraded(ctx context.Context, examID id.ExamID, score float64, passed bool, completedAt time.Time) error {
	res, err := postgres.Conn(ctx, s.db).ExecContext(ctx, `
		UPDATE exams SET status = 'graded', score = $2, passed = $3, completed_at = $4
		WHERE id = $1 AND status = 'in_progress'
	`, uuid.UUID(examID), score, passed, completedAt)
	if err != nil {
		return fmt.Errorf("mark exam graded: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return sentinel.ErrInvalidState
	}
	return nil
}

func (s *PostgresStore) InsertAnswers(ctx context.Context, answers []models.ExamAnswer) error {
	conn := postgres.Conn(ctx, s.db)
	for _, a := range answers {
		_, err := conn.ExecContext(ctx, `
			INSERT INTO exam_answers (id, exam_id, question_id, user_answer, is_correct)
			VALUES ($1, $2, $3, $4, $5)
		`, uuid.UUID(a.ID), uuid.UUID(a.ExamID), uuid.UUID(a.QuestionID), a.UserAnswer, a.IsCorrect)
		if err != nil {
			if postgres.IsUniqueViolation(err, uniqueExamQuestion) {
				return sentinel.ErrConflict
			}
			return fmt.Errorf("insert exam answer: %w", err)
		}
	}
	return nil
}

func (s *PostgresStore) ListAnswers(ctx context.Context, examID id.ExamID) ([]models.ExamAnswer, error) {
	rows, err := postgres.Conn(ctx, s.db).QueryContext(ctx, `
		SELECT id, exam_id, question_id, user_answer, is_correct
		FROM exam_answers WHERE exam_id = $1
	`, uuid.UUID(examID))
	if err != nil {
		return nil, fmt.Errorf("list exam answers: %w", err)
	}
	defer rows.Close()
	var out []models.ExamAnswer
	for rows.Next() {
		var a models.ExamAnswer
		var aid, eid, qid uuid.UUID
		if err := rows.Scan(&aid, &eid, &qid, &a.UserAnswer, &a.IsCorrect); err != nil {
			return nil, fmt.Errorf("scan exam answer: %w", err)
		}
		a.ID = id.ExamAnswerID(aid)
		a.ExamID = id.ExamID(eid)
		a.QuestionID = id.QuestionID(qid)
		out = append(out, a)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func oneExam(row scanner) (*models.Exam, error) {
	e, err := scanExam(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find exam: %w", err)
	}
	return e, nil
}

func scanExam(row scanner) (*models.Exam, error) {
	var (
		e                  models.Exam
		eid, uid, enr, cid uuid.UUID
		status             string
		score              sql.NullFloat64
		passed             sql.NullBool
		questionIDs        pq.StringArray
		completedAt        sql.NullTime
	)
	if err := row.Scan(&eid, &uid, &enr, &cid, &status, &score, &passed, &questionIDs, &e.StartedAt, &completedAt); err != nil {
		return nil, err
	}
	e.ID = id.ExamID(eid)
	e.UserID = id.UserID(uid)
	e.EnrollmentID = id.EnrollmentID(enr)
	e.CertificationID = id.CertificationID(cid)
	e.Status = models.Status(status)
	if score.Valid {
		e.Score = &score.Float64
	}
	if passed.Valid {
		e.Passed = &passed.Bool
	}
	if completedAt.Valid {
		e.CompletedAt = &completedAt.Time
	}
	ids, err := parseQuestionIDs(questionIDs)
	if err != nil {
		return nil, err
	}
	e.QuestionIDs = ids
	return &e, nil
}

func parseQuestionIDs(raw []string) ([]id.QuestionID, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	out := make([]id.QuestionID, len(raw))
	for i, s := range raw {
		u, err := uuid.Parse(s)
		if err != nil {
			return nil, fmt.Errorf("parse question id: %w", err)
		}
		out[i] = id.QuestionID(u)
	}
	return out, nil
}
