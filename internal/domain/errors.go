package domain

import "fmt"

// MissingFieldError reports a mandatory source value that is absent.
type MissingFieldError struct {
	SubmissionID int64
	Field        string
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("submission %d: missing %s", e.SubmissionID, e.Field)
}

// MalformedKeywordError reports a keyword without a GND authority reference.
type MalformedKeywordError struct {
	SubmissionID int64
	Keyword      string
}

func (e *MalformedKeywordError) Error() string {
	return fmt.Sprintf("submission %d: keyword %q has no GND reference", e.SubmissionID, e.Keyword)
}

// ToolUnavailableError reports that the archiving capability cannot be used on
// this host.
type ToolUnavailableError struct {
	Tool string
	Err  error
}

func (e *ToolUnavailableError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("archive tool %s unavailable: %v", e.Tool, e.Err)
	}
	return fmt.Sprintf("archive tool %s unavailable", e.Tool)
}

func (e *ToolUnavailableError) Unwrap() error { return e.Err }

// TransportError wraps any failure of a deposit transfer. Diagnostic keeps the
// low-level text shown to operators.
type TransportError struct {
	Endpoint   string
	Diagnostic string
	Err        error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("deposit to %s: %s", e.Endpoint, e.Diagnostic)
}

func (e *TransportError) Unwrap() error { return e.Err }

// ForeignArticleError reports an article requested in the batch of a journal
// it does not belong to.
type ForeignArticleError struct {
	ArticleID int64
	Journal   string
	Owner     string
}

func (e *ForeignArticleError) Error() string {
	return fmt.Sprintf("article %d belongs to journal %s, not %s", e.ArticleID, e.Owner, e.Journal)
}

// MalformedReferenceError reports a review cross-reference whose subfield
// notation cannot be encoded.
type MalformedReferenceError struct {
	SubmissionID int64
	Reference    string
	Err          error
}

func (e *MalformedReferenceError) Error() string {
	return fmt.Sprintf("submission %d: review reference %q: %v", e.SubmissionID, e.Reference, e.Err)
}

func (e *MalformedReferenceError) Unwrap() error { return e.Err }
