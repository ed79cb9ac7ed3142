package domain

import (
	"errors"
	"fmt"
)

// ErrNoOccurrences signals a structurally incompatible feed: the raw text was
// fetched but zero occurrences survived parsing. Fatal to the run.
var ErrNoOccurrences = errors.New("no occurrences survived parsing")

// FetchErrorKind tags the failure mode of a feed download.
type FetchErrorKind string

const (
	FetchTimeout      FetchErrorKind = "Timeout"
	FetchAuthExpired  FetchErrorKind = "AuthExpired"
	FetchNetworkError FetchErrorKind = "NetworkError"
)

// FetchError is fatal to a run: without raw feed data there is nothing to
// process, so it is surfaced verbatim.
type FetchError struct {
	Kind FetchErrorKind
	Feed string
	Err  error
}

func (e *FetchError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("fetch %s: %s: %v", e.Feed, e.Kind, e.Err)
	}
	return fmt.Sprintf("fetch %s: %s", e.Feed, e.Kind)
}

func (e *FetchError) Unwrap() error { return e.Err }

// ParseError records one skipped calendar entry. Non-fatal: the occurrence is
// dropped and the rest of the feed is processed.
type ParseError struct {
	SourceID string
	UID      string
	Reason   string
}

func (e *ParseError) Error() string {
	if e.UID != "" {
		return fmt.Sprintf("parse %s uid=%s: %s", e.SourceID, e.UID, e.Reason)
	}
	return fmt.Sprintf("parse %s: %s", e.SourceID, e.Reason)
}

// OracleErrorTag classifies effort-oracle failures.
type OracleErrorTag string

const (
	OracleUnavailable     OracleErrorTag = "Unavailable"
	OracleTimeout         OracleErrorTag = "Timeout"
	OracleInvalidResponse OracleErrorTag = "InvalidResponse"
)

// OracleError is non-fatal per task: it triggers the deterministic effort
// fallback and is flagged on the task.
type OracleError struct {
	Tag OracleErrorTag
	Err error
}

func (e *OracleError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("oracle: %s: %v", e.Tag, e.Err)
	}
	return fmt.Sprintf("oracle: %s", e.Tag)
}

func (e *OracleError) Unwrap() error { return e.Err }

// OracleTag extracts the failure tag from an error chain, defaulting to
// Unavailable for untagged errors.
func OracleTag(err error) OracleErrorTag {
	var oe *OracleError
	if errors.As(err, &oe) {
		return oe.Tag
	}
	return OracleUnavailable
}
