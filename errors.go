package cascade

import (
	"errors"
	"fmt"
	"strings"
)

// ErrNoSource is returned by Refresh when the key has no usable relational
// binding (none registered, or the source layer is disabled).
var ErrNoSource = errors.New("cascade: no source bound for key")

// WriteError aggregates per-layer failures on the write path. Reads never
// produce it; Get recovers every layer failure internally.
type WriteError struct {
	Op  string // "set", "remember", "refresh", "invalidate", "clear_cache" or "clear_all"
	Key string // empty for clear_all

	CacheErr  error
	FileErr   error
	SourceErr error
}

func (e *WriteError) Error() string {
	parts := make([]string, 0, 3)
	if e.CacheErr != nil {
		parts = append(parts, "cache: "+e.CacheErr.Error())
	}
	if e.FileErr != nil {
		parts = append(parts, "file: "+e.FileErr.Error())
	}
	if e.SourceErr != nil {
		parts = append(parts, "source: "+e.SourceErr.Error())
	}
	if len(parts) == 0 {
		parts = append(parts, "unknown error")
	}
	if e.Key == "" {
		return fmt.Sprintf("cascade: %s failed: %s", e.Op, strings.Join(parts, "; "))
	}
	return fmt.Sprintf("cascade: %s %q failed: %s", e.Op, e.Key, strings.Join(parts, "; "))
}

func (e *WriteError) Unwrap() []error {
	errs := make([]error, 0, 3)
	if e.CacheErr != nil {
		errs = append(errs, e.CacheErr)
	}
	if e.FileErr != nil {
		errs = append(errs, e.FileErr)
	}
	if e.SourceErr != nil {
		errs = append(errs, e.SourceErr)
	}
	return errs
}

// orNil collapses an empty WriteError to nil so callers can return it
// unconditionally after filling in whichever layers failed.
func (e *WriteError) orNil() error {
	if e.CacheErr == nil && e.FileErr == nil && e.SourceErr == nil {
		return nil
	}
	return e
}
