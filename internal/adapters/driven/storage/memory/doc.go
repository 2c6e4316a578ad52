// Package memory provides in-memory implementations of the store
// ports. Used by service tests and useful for dry runs where nothing
// should touch disk.
package memory
