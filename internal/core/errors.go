package core

import (
	"errors"
	"fmt"
)

var (
	// ErrFileNotFound matches any *MissingFileError.
	ErrFileNotFound = errors.New("file not found")
	// ErrTableNotFound matches any *MissingTableError.
	ErrTableNotFound = errors.New("table not found")
)

// MissingFileError is returned when an input CSV or directory is absent.
type MissingFileError struct {
	Path string
}

func (e *MissingFileError) Error() string {
	return fmt.Sprintf("file not found: %s", e.Path)
}

func (e *MissingFileError) Is(target error) bool {
	return target == ErrFileNotFound
}

// MissingTableError is returned when a job's input table is absent.
type MissingTableError struct {
	Table string
}

func (e *MissingTableError) Error() string {
	return fmt.Sprintf("table not found: %s", e.Table)
}

func (e *MissingTableError) Is(target error) bool {
	return target == ErrTableNotFound
}
