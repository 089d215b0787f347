package similarity

import "github.com/thebtf/logmine/pkg/models"

// Merger folds independently produced cluster lists together.
type Merger struct {
	scorer  *Scorer
	maxDist float64
}

// NewMerger creates a merger using the same parameters as the clusterers
// that produced the lists.
func NewMerger(cfg Config) (*Merger, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	scorer, err := NewScorer(cfg.K1, cfg.K2)
	if err != nil {
		return nil, err
	}
	return &Merger{scorer: scorer, maxDist: cfg.MaxDist}, nil
}

// Merge folds other into base in place.
//
// Every incoming cluster is matched first-fit against base by representative.
// On a match the counts add up and the patterns are fused (incoming pattern
// first); otherwise the incoming cluster is appended unchanged. The resulting
// patterns depend on the order in which lists are merged.
func (m *Merger) Merge(base *models.ClusterList, other models.ClusterList) {
	for _, incoming := range other {
		matched := false
		for i := range *base {
			existing := &(*base)[i]
			if m.scorer.DistanceWithin(incoming.Representative, existing.Representative, m.maxDist) <= m.maxDist {
				existing.Count += incoming.Count
				existing.Pattern = MergePattern(incoming.Pattern, existing.Pattern)
				matched = true
				break
			}
		}
		if !matched {
			*base = append(*base, incoming)
		}
	}
}
