package storage

import "errors"

var (
	ErrObjectNotFound    = errors.New("object not found")
	ErrStorageError      = errors.New("storage error")
	ErrStorageValidation = errors.New("storage validation failed")
)
