package pagination

import "errors"

var (
	// ErrExhausted is returned by Data.Next when the traversal is over.
	ErrExhausted = errors.New("pagination exhausted")

	// ErrMissingPointer is returned by strategy constructors when a required pointer is empty.
	ErrMissingPointer = errors.New("pagination pointer is required")

	// ErrMissingWrapper is returned by strategy constructors when the metadata wrapper is nil.
	ErrMissingWrapper = errors.New("metadata wrapper is required")

	// ErrMissingExtractor is returned by New when the item extractor is nil.
	ErrMissingExtractor = errors.New("item extractor is required")

	// ErrMissingCaller is returned by New when the caller is nil.
	ErrMissingCaller = errors.New("caller is required")
)
