package dbx

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
)

func TestPgErrorClassifiers(t *testing.T) {
	unique := fmt.Errorf("db error: %w", &pgconn.PgError{Code: "23505"})
	invalid := &pgconn.PgError{Code: "22P02"}
	fk := &pgconn.PgError{Code: "23503"}
	plain := errors.New("boom")

	assert.True(t, IsUniqueViolation(unique))
	assert.False(t, IsUniqueViolation(invalid))
	assert.True(t, IsInvalidInput(invalid))
	assert.True(t, IsForeignKeyViolation(fk))
	assert.False(t, IsUniqueViolation(plain))
	assert.False(t, IsInvalidInput(nil))
}
