package dbx

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

// Postgres SQLSTATE codes the repositories react to.
const (
	codeUniqueViolation     = "23505"
	codeInvalidTextRepr     = "22P02"
	codeForeignKeyViolation = "23503"
)

func pgCode(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}

// IsUniqueViolation reports whether err is a unique constraint failure.
func IsUniqueViolation(err error) bool { return pgCode(err) == codeUniqueViolation }

// IsInvalidInput reports whether err comes from a malformed literal, such as
// a non-UUID string compared against a uuid column.
func IsInvalidInput(err error) bool { return pgCode(err) == codeInvalidTextRepr }

// IsForeignKeyViolation reports whether err references a missing parent row.
func IsForeignKeyViolation(err error) bool { return pgCode(err) == codeForeignKeyViolation }
