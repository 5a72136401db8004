package configstore

import (
	"errors"
	"fmt"
	"strings"
)

// ErrNotFound marks a missing live config file or backup identifier.
var ErrNotFound = errors.New("not found")

// ErrNoStableSnapshot is returned when automated recovery is requested
// but no stable snapshot exists to recover from.
var ErrNoStableSnapshot = errors.New("no stable snapshot available")

// ParseError reports a stored document that is not valid JSON.
type ParseError struct {
	Path string
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("malformed config %s: %v", e.Path, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// ValidationError carries every violated rule, not just the first.
type ValidationError struct {
	Rules []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("config validation failed: %s", strings.Join(e.Rules, "; "))
}

// VerificationError reports a post-write round-trip mismatch: the bytes
// read back from disk do not parse to what was written.
type VerificationError struct {
	Path string
	Err  error
}

func (e *VerificationError) Error() string {
	return fmt.Sprintf("post-write verification failed for %s: %v", e.Path, e.Err)
}

func (e *VerificationError) Unwrap() error { return e.Err }
