package similarity

import (
	"errors"
	"fmt"
	"math"

	"github.com/thebtf/logmine/pkg/models"
)

// ErrInvalidInput is returned for scorer or clusterer parameters that cannot
// produce a meaningful distance.
var ErrInvalidInput = errors.New("invalid input")

// Scorer scores token pairs and computes normalized sequence distances.
// K1 weighs equal literals, K2 weighs equal variables.
type Scorer struct {
	k1 float64
	k2 float64
}

// NewScorer creates a scorer with literal weight k1 and variable weight k2.
func NewScorer(k1, k2 float64) (*Scorer, error) {
	if !validWeight(k1) || !validWeight(k2) {
		return nil, fmt.Errorf("%w: weights must be finite and non-negative (k1=%v, k2=%v)", ErrInvalidInput, k1, k2)
	}
	return &Scorer{k1: k1, k2: k2}, nil
}

func validWeight(w float64) bool {
	return !math.IsNaN(w) && !math.IsInf(w, 0) && w >= 0
}

// Score returns k1 for equal literals, k2 for equal variables and 0 for every
// other pair, including any pair involving a placeholder.
func (s *Scorer) Score(a, b models.Field) float64 {
	switch {
	case a.IsLiteral() && b.IsLiteral() && a.Equal(b):
		return s.k1
	case a.IsVariable() && b.IsVariable() && a.Equal(b):
		return s.k2
	default:
		return 0
	}
}

// Distance returns the full distance between a and b in [0, 1] for weights <= 1.
// Only the shared prefix of length min(len(a), len(b)) is scored; the score is
// normalized by the longer length.
func (s *Scorer) Distance(a, b models.TokenSequence) float64 {
	d, _ := s.distance(a, b, 0, false)
	return d
}

// DistanceWithin is Distance with early exit: it stops as soon as the running
// distance drops below maxDist and returns that running value. The result is
// only meaningful as an acceptance test against maxDist.
func (s *Scorer) DistanceWithin(a, b models.TokenSequence, maxDist float64) float64 {
	d, _ := s.distance(a, b, maxDist, true)
	return d
}

// distance also reports how many positions were scored.
// The running score is kept as a sum of weights and divided once per step, so
// identical sequences land on exactly zero. Distances sitting exactly on
// maxDist are decided by this single rounding: 14 of 20 matches gives
// 1-14/20 = 0.30000000000000004, which max_dist 0.3 rejects.
func (s *Scorer) distance(a, b models.TokenSequence, maxDist float64, bounded bool) (float64, int) {
	maxLen := max(len(a), len(b))
	minLen := min(len(a), len(b))

	var sum, total float64
	for i := 0; i < minLen; i++ {
		sum += s.Score(a[i], b[i])
		total = sum / float64(maxLen)
		if bounded && (1-total) < maxDist {
			return 1 - total, i + 1
		}
	}
	return 1 - total, minLen
}
