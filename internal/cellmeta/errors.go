package cellmeta

import (
	"errors"
	"fmt"
	"strings"
)

// ErrSchemaTooOld indicates the document predates CurrentVersion and must be
// run through an explicit upgrade before it can be decoded.
var ErrSchemaTooOld = errors.New("cell metadata schema is too old")

// ErrSchemaTooNew indicates the document was written by newer tooling. The
// engine never guesses at future formats.
var ErrSchemaTooNew = errors.New("cell metadata schema is too new")

// VersionError wraps ErrSchemaTooOld/ErrSchemaTooNew with the versions
// involved so callers can tell the user exactly what to do.
type VersionError struct {
	Found   int
	Current int
}

func (e *VersionError) Error() string {
	if e.Found < e.Current {
		return fmt.Sprintf("cell metadata schema version %d is older than version %d: run an upgrade first", e.Found, e.Current)
	}
	return fmt.Sprintf("cell metadata schema version %d is newer than version %d: upgrade this tooling", e.Found, e.Current)
}

// Unwrap lets errors.Is match the sentinel for the direction of drift.
func (e *VersionError) Unwrap() error {
	if e.Found < e.Current {
		return ErrSchemaTooOld
	}
	return ErrSchemaTooNew
}

// ValidationError aggregates every problem found while validating one or
// more cells. Problems are collected across a whole notebook scan before
// being raised so the instructor sees all of them at once.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	if len(e.Problems) == 1 {
		return "invalid cell metadata: " + e.Problems[0]
	}
	return fmt.Sprintf("invalid cell metadata (%d problems): %s", len(e.Problems), strings.Join(e.Problems, "; "))
}
