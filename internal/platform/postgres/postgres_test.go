package postgres

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
)

func TestIsUniqueViolation(t *testing.T) {
	dup := &pgconn.PgError{Code: codeUniqueViolation, ConstraintName: "enrollments_user_certification_key"}

	assert.True(t, IsUniqueViolation(fmt.Errorf("insert: %w", dup), ""))
	assert.True(t, IsUniqueViolation(dup, "enrollments_user_certification_key"))
	assert.False(t, IsUniqueViolation(dup, "exams_one_in_progress"))
	assert.False(t, IsUniqueViolation(&pgconn.PgError{Code: "23503"}, ""))
	assert.False(t, IsUniqueViolation(errors.New("plain"), ""))
}

func TestIsRetryable(t *testing.T) {
	assert.True(t, isRetryable(&pgconn.PgError{Code: codeSerializationFailure}))
	assert.True(t, isRetryable(fmt.Errorf("wrapped: %w", &pgconn.PgError{Code: codeDeadlockDetected})))
	assert.False(t, isRetryable(&pgconn.PgError{Code: codeUniqueViolation}))
}

func TestMigrationsEmbedded(t *testing.T) {
	body, err := migrations.ReadFile("migrations/0001_core.sql")
	assert.NoError(t, err)
	assert.Contains(t, string(body), "exams_one_in_progress")
	assert.Contains(t, string(body), "enrollments_user_certification_key")
}
