package importer

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidMode       = errors.New("invalid import mode")
	ErrInvalidSource     = errors.New("invalid source type")
	ErrMissingReference  = errors.New("bank name or platform name is required")
	ErrBatchRequired     = errors.New("batch id is required for merge and replace")
	ErrBatchSourceDiffer = errors.New("batch belongs to a different source type")
	ErrEmptyImport       = errors.New("no data rows")
)

// ParseError reports a file that could not be turned into transactions. It
// carries what the parser did see so a malformed export can be diagnosed.
type ParseError struct {
	FileName string
	Headers  []string
	RowCount int
	Reason   string
	Err      error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse %s: %s (headers=%d rows=%d)", e.FileName, e.Reason, len(e.Headers), e.RowCount)
}

func (e *ParseError) Unwrap() error { return e.Err }
