// Package driven provides interfaces for infrastructure adapters
// (secondary/outbound ports): literature sources, LLM and embedding
// services, stores, and external tooling.
package driven
