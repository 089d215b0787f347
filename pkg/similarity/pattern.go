package similarity

import "github.com/thebtf/logmine/pkg/models"

// MergePattern fuses two token sequences into a pattern: after alignment,
// columns holding equal fields keep the field from a and every other column
// becomes a placeholder.
func MergePattern(a, b models.TokenSequence) models.TokenSequence {
	if len(a) == 0 && len(b) == 0 {
		return models.TokenSequence{}
	}

	alignedA, alignedB := Align(a, b)
	pattern := make(models.TokenSequence, len(alignedA))
	for i := range alignedA {
		if alignedA[i].Equal(alignedB[i]) {
			pattern[i] = alignedA[i]
		} else {
			pattern[i] = models.Placeholder()
		}
	}
	return pattern
}
