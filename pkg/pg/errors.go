package pg

import (
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

var (
	ErrEmptyConnectionString    = errors.New("postgres connection string is empty (PG_CONN_URL)")
	ErrFailedToParseDBConfig    = errors.New("failed to parse postgres config")
	ErrFailedToOpenDBConnection = errors.New("failed to connect to postgres")
	ErrHealthcheckFailed        = errors.New("postgres healthcheck failed")
	ErrMigrationPathNotProvided = errors.New("migrations path not provided")
	ErrMigrationsDirNotFound    = errors.New("migrations directory not found")
	ErrFailedToApplyMigrations  = errors.New("failed to apply migrations")
)

// SQLSTATE codes the store reacts to
const (
	codeUniqueViolation     = "23505"
	codeForeignKeyViolation = "23503"
)

// IsNotFoundError reports whether a single-row query matched nothing.
func IsNotFoundError(err error) bool {
	return err != nil && errors.Is(err, pgx.ErrNoRows)
}

// IsDuplicateKeyError reports a unique constraint violation.
func IsDuplicateKeyError(err error) bool {
	return hasCode(err, codeUniqueViolation)
}

// IsForeignKeyViolationError reports a write referencing a missing row,
// e.g. a notification for an unknown appointment.
func IsForeignKeyViolationError(err error) bool {
	return hasCode(err, codeForeignKeyViolation)
}

func hasCode(err error, code string) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == code
}
