// Package openalex implements the LiteratureSource port against the
// OpenAlex works API (https://docs.openalex.org).
//
// The connector handles cursor pagination, polite-pool identification
// via the mailto parameter, proactive rate limiting, and abstract
// reconstruction from OpenAlex's inverted index format.
package openalex
