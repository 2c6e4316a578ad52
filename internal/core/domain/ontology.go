package domain

// OntologyKind distinguishes the two ontologies used for mapping.
type OntologyKind string

const (
	// OntologyIntervention maps extracted intervention/predictor variables.
	OntologyIntervention OntologyKind = "intervention"

	// OntologyOutcome maps extracted outcome variables.
	OntologyOutcome OntologyKind = "outcome"
)

// Ontology is a flat list of canonical terms loaded from a user-supplied
// CSV or JSON file.
type Ontology struct {
	// Kind identifies which variable this ontology maps.
	Kind OntologyKind

	// Source is the file the terms were loaded from.
	Source string

	// Terms are the canonical term labels, in file order.
	Terms []string
}

// Empty reports whether the ontology has no terms.
func (o Ontology) Empty() bool {
	return len(o.Terms) == 0
}

// TermMatch is the result of mapping one extracted variable onto an
// ontology: the best term and its cosine similarity.
type TermMatch struct {
	// Term is the closest ontology term (NA when no match was possible).
	Term string

	// Similarity is the cosine similarity of the winning term (0 when
	// no match was possible).
	Similarity float64
}

// NoMatch is the TermMatch used when mapping is not possible (NA input,
// empty ontology, failed embedding).
func NoMatch() TermMatch {
	return TermMatch{Term: NA}
}
