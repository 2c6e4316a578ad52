package domain

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// StudyTypes maps the single-letter study design codes used by the meta
// extraction pass to their descriptions. The letter itself is what gets
// stored and exported.
var StudyTypes = map[string]string{
	"a": "cross-sectional",
	"b": "pre/post without control",
	"c": "cross-sectional with control variables",
	"d": "pre/post with control variables",
	"e": "treated vs untreated comparison",
	"f": "quasi-experimental",
	"g": "randomised controlled trial",
	"h": "meta-analysis",
}

// MetaInfo holds the study-level fields produced by the first extraction
// pass. All fields use the NA convention for missing values.
type MetaInfo struct {
	StudyTitle               string
	OutcomePopulation        string
	InterventionPopulation   string
	SecondaryCharacteristics string
	Country                  string
	StudyType                string
	NumMainResults           string
	MainResults              string
}

// NAMetaInfo returns a MetaInfo with every field set to NA and a zero
// result count. Used when the meta pass fails outright.
func NAMetaInfo() MetaInfo {
	return MetaInfo{
		StudyTitle:               NA,
		OutcomePopulation:        NA,
		InterventionPopulation:   NA,
		SecondaryCharacteristics: NA,
		Country:                  NA,
		StudyType:                NA,
		NumMainResults:           "0",
		MainResults:              NA,
	}
}

// ResultDetail holds the per-result fields produced by the second
// extraction pass.
type ResultDetail struct {
	EffectSizeType string
	EffectSize     string
	Uncertainty    string
	PValue         string
	SampleSize     string
	Intervention   string
	Outcome        string
}

// NAResultDetail returns a ResultDetail with every field set to NA.
func NAResultDetail() ResultDetail {
	return ResultDetail{
		EffectSizeType: NA,
		EffectSize:     NA,
		Uncertainty:    NA,
		PValue:         NA,
		SampleSize:     NA,
		Intervention:   NA,
		Outcome:        NA,
	}
}

// Extraction is one row of the evidence base: a single main result of a
// study, together with the study-level meta fields and any user-requested
// extra items. A study reporting no parseable main results still yields
// one Extraction with ResultIndex 0 and NA detail fields.
type Extraction struct {
	// ID is the unique row identifier.
	ID string

	// SearchID links to the Search run the study belongs to.
	SearchID string

	// StudyID links to the screened Reference.
	StudyID string

	// Filename is the PDF the row was extracted from ("" when the
	// abstract fallback was used).
	Filename string

	// Meta holds the pass-1 study-level fields.
	Meta MetaInfo

	// ResultIndex is the 1-based position of this main result within
	// the study (0 when the study reported none).
	ResultIndex int

	// ResultText is the main result statement this row describes.
	ResultText string

	// Detail holds the pass-2 fields for this result.
	Detail ResultDetail

	// Extras holds the answers to user-supplied extra items, in the
	// order the items were given.
	Extras []string

	// MappedIntervention is the ontology term assigned to the
	// intervention variable (NA until mapping runs).
	MappedIntervention string

	// MappedOutcome is the ontology term assigned to the outcome
	// variable (NA until mapping runs).
	MappedOutcome string

	// CreatedAt is when the row was stored.
	CreatedAt time.Time
}

// SplitMainResults splits the semicolon-separated main results list from
// the meta pass into individual statements. NA or empty input yields nil.
func SplitMainResults(list string) []string {
	if list == "" || list == NA {
		return nil
	}
	var results []string
	for _, part := range strings.Split(list, ";") {
		if p := strings.TrimSpace(part); p != "" {
			results = append(results, p)
		}
	}
	return results
}

// DeclaredResultCount parses the numeric result count from the meta pass.
// Unparseable values count as zero.
func DeclaredResultCount(m MetaInfo) int {
	n, err := strconv.Atoi(strings.TrimSpace(m.NumMainResults))
	if err != nil || n < 0 {
		return 0
	}
	return n
}

// ParseEnumerated extracts n enumerated answers from an LLM response of
// the form "1: answer\n2: answer\n...". Answers may span multiple lines;
// answer i runs until the "i+1:" marker or the end of the response.
// Missing or empty answers become NA. The returned slice always has
// length n.
func ParseEnumerated(content string, n int) []string {
	answers := make([]string, n)
	for i := 1; i <= n; i++ {
		var pattern *regexp.Regexp
		if i < n {
			pattern = regexp.MustCompile(fmt.Sprintf(`(?s)\b%d:(.*?)(?:\b%d:|\z)`, i, i+1))
		} else {
			pattern = regexp.MustCompile(fmt.Sprintf(`(?s)\b%d:(.*)\z`, i))
		}

		answers[i-1] = NA
		if m := pattern.FindStringSubmatch(content); m != nil {
			if val := strings.TrimSpace(m[1]); val != "" {
				answers[i-1] = val
			}
		}
	}
	return answers
}
