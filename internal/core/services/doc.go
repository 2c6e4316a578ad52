// Package services implements the core pipeline logic: literature
// search with LLM screening, three-pass data extraction, ontology
// mapping, and CSV export. Services depend only on the port interfaces
// and are wired with concrete adapters at startup.
package services
