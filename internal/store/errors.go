package store

import "errors"

// Sentinel errors returned by repository methods to signal well-known failure
// conditions. Callers should use [errors.Is] to match against these values.
var (
	// ErrModelNotFound is returned when no stored model matches the requested
	// (type, id) pair.
	ErrModelNotFound = errors.New("model was not found")

	// ErrMetadataNotFound is returned when a record has never been
	// acknowledged or hydrated and therefore carries no remote metadata.
	ErrMetadataNotFound = errors.New("model metadata was not found")

	// ErrChangeRecordNotFound is returned when an outbox record targeted by an
	// update no longer exists.
	ErrChangeRecordNotFound = errors.New("change record was not found")

	// ErrCursorNotFound is returned for model types that were never synced.
	ErrCursorNotFound = errors.New("sync cursor was not found")

	// ErrVersionConflict is returned when a compare-and-swap metadata write
	// finds a stored version different from the one the caller read, meaning
	// another writer changed the record in between.
	ErrVersionConflict = errors.New("model metadata version conflict occurred")

	// ErrInvalidModel is returned for writes without a model name or id.
	ErrInvalidModel = errors.New("model name and id are required")

	// ErrUnsupportedDriver is returned for database drivers other than
	// sqlite3 and pgx.
	ErrUnsupportedDriver = errors.New("unsupported database driver")
)

// Low-level database operation errors. These are returned (or wrapped) by
// repository methods when a SQL-level operation fails before any domain logic
// can be applied.
var (
	// ErrBuildingSQLQuery is returned when constructing a parameterised SQL
	// query fails.
	ErrBuildingSQLQuery = errors.New("error building sql query")

	// ErrExecutingQuery is returned when executing a SELECT fails.
	ErrExecutingQuery = errors.New("error executing sql query")

	// ErrBeginningTransaction is returned when the database driver cannot
	// start a new transaction.
	ErrBeginningTransaction = errors.New("failed to begin transaction")

	// ErrCommitingTransaction is returned when committing an open transaction
	// fails. The transaction is considered rolled back at this point.
	ErrCommitingTransaction = errors.New("failed to commit transaction")

	// ErrExecutingStatement is returned when an INSERT, UPDATE or DELETE
	// fails.
	ErrExecutingStatement = errors.New("failed to executing statement")

	// ErrScanningRow is returned when scanning a single result row fails.
	ErrScanningRow = errors.New("failed to scan row")

	// ErrScanningRows is returned when scanning fails mid-result-set.
	ErrScanningRows = errors.New("failed to scan rows")

	// ErrEncodingItem is returned when a model cannot be encoded for or
	// decoded from its stored JSON form.
	ErrEncodingItem = errors.New("failed to encode stored item")
)
