package domain

import "errors"

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnsupportedFormat indicates an unknown file format (e.g. an
	// ontology file that is neither CSV nor JSON).
	ErrUnsupportedFormat = errors.New("unsupported format")

	// ErrLLMUnavailable indicates the LLM service is not configured.
	// Screening and extraction require an LLM.
	ErrLLMUnavailable = errors.New("LLM service unavailable")

	// ErrEmbeddingUnavailable indicates the embedding service is not
	// configured. Ontology mapping requires embeddings.
	ErrEmbeddingUnavailable = errors.New("embedding service unavailable")

	// ErrEmailRequired indicates no contact email is configured.
	// OpenAlex requires an email for polite pool access.
	ErrEmailRequired = errors.New("contact email required")

	// ErrRateLimited indicates the API rate limit was exceeded.
	ErrRateLimited = errors.New("rate limited")

	// ErrNoText indicates a study has neither extractable PDF text nor a
	// stored abstract to fall back to.
	ErrNoText = errors.New("no paper text available")
)
