package openalex

import "strings"

// ReconstructAbstract rebuilds a plain-text abstract from the OpenAlex
// inverted index, which maps each word to the positions it occupies.
// Returns empty string for a nil or empty index.
func ReconstructAbstract(inverted map[string][]int) string {
	if len(inverted) == 0 {
		return ""
	}

	maxIndex := -1
	for _, positions := range inverted {
		for _, pos := range positions {
			if pos > maxIndex {
				maxIndex = pos
			}
		}
	}
	if maxIndex < 0 {
		return ""
	}

	words := make([]string, maxIndex+1)
	for word, positions := range inverted {
		for _, pos := range positions {
			if pos >= 0 && pos <= maxIndex {
				words[pos] = word
			}
		}
	}

	return strings.Join(words, " ")
}
