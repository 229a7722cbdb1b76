// Package source abstracts the tabular document collaborator: given a
// document id and a list of named ranges, return raw row matrices. Two
// implementations exist: the remote ranges API and a local xlsx workbook
// for fixture-driven dry runs.
package source

import (
	"context"
	"errors"
	"fmt"
	"net"

	"github.com/MisterBeardy/saintcalendar-sub000/internal/resilience"
	"github.com/MisterBeardy/saintcalendar-sub000/pkg/sheets"
)

// RangeData is one fetched named range as a row matrix.
type RangeData struct {
	Name string
	Rows [][]string
}

// DocumentInfo is document-level metadata.
type DocumentInfo struct {
	ID    string
	Title string
	Tabs  []string
}

// TabularSource is the external collaborator exposing "fetch ranges by
// identifier".
type TabularSource interface {
	FetchRanges(ctx context.Context, documentID string, ranges []string) ([]RangeData, error)
	Describe(ctx context.Context, documentID string) (*DocumentInfo, error)
}

// RemoteErrorKind classifies remote access failures.
type RemoteErrorKind string

const (
	KindAccessDenied RemoteErrorKind = "access_denied"
	KindNotFound     RemoteErrorKind = "not_found"
	KindRateLimited  RemoteErrorKind = "rate_limited"
	KindTimeout      RemoteErrorKind = "timeout"
	KindOther        RemoteErrorKind = "other"
)

// RemoteError is a classified failure against one document.
type RemoteError struct {
	Kind       RemoteErrorKind
	DocumentID string
	Err        error
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("source: %s: document %s: %v", e.Kind, e.DocumentID, e.Err)
}

func (e *RemoteError) Unwrap() error { return e.Err }

// Classify wraps a raw collaborator error in a RemoteError with its kind.
func Classify(documentID string, err error) error {
	if err == nil {
		return nil
	}
	kind := KindOther
	switch sheets.StatusOf(err) {
	case 401, 403:
		kind = KindAccessDenied
	case 404:
		kind = KindNotFound
	case 429:
		kind = KindRateLimited
	default:
		var netErr net.Error
		if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
			kind = KindTimeout
		}
	}
	return &RemoteError{Kind: kind, DocumentID: documentID, Err: err}
}

// KindOf returns the RemoteErrorKind of an error chain, or KindOther.
func KindOf(err error) RemoteErrorKind {
	var re *RemoteError
	if errors.As(err, &re) {
		return re.Kind
	}
	return KindOther
}

// IsRetryable reports whether a classified remote error is transient:
// rate limits, timeouts, and server-side failures are retried; access
// and existence failures are not.
func IsRetryable(err error) bool {
	switch KindOf(err) {
	case KindRateLimited, KindTimeout:
		return true
	case KindAccessDenied, KindNotFound:
		return false
	}
	if resilience.IsTransientHTTPStatus(sheets.StatusOf(err)) {
		return true
	}
	return resilience.IsTransient(err)
}
