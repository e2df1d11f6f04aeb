package domain

import "errors"

var (
	// ErrInvalidRequest is returned when the input document is malformed or incomplete.
	ErrInvalidRequest = errors.New("invalid request")
	// ErrDocumentNotFound is returned when an input path does not resolve to a readable file.
	ErrDocumentNotFound = errors.New("document not found")
	// ErrEmbeddingFailed wraps every embedding backend failure.
	ErrEmbeddingFailed = errors.New("embedding failed")
	// ErrNotPrepared is returned by corpus-based embedders used before Prepare.
	ErrNotPrepared = errors.New("embedder not prepared")
)
