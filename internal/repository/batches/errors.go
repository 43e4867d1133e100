package batches

import "errors"

var (
	ErrBatchNotFound       = errors.New("batch not found")
	ErrDuplicateKey        = errors.New("duplicate key violation")
	ErrForeignKeyViolation = errors.New("foreign key violation")
)
