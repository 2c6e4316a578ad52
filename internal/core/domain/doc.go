// Package domain contains the core business entities for the evidencer
// pipeline: references fetched from scholarly APIs, extractions produced
// by the LLM passes, and ontologies used for term mapping.
//
// Domain types have no dependencies on adapters or infrastructure.
package domain
