// Package similarity provides the token distance metric, sequence alignment
// and the clustering primitives built on them.
package similarity

import (
	"fmt"
	"math"

	"github.com/thebtf/logmine/pkg/models"
)

// Config holds the clustering parameters.
type Config struct {
	K1      float64 // weight of an equal literal pair
	K2      float64 // weight of an equal variable pair
	MaxDist float64 // acceptance threshold, inclusive
}

// DefaultConfig returns the default clustering parameters.
func DefaultConfig() Config {
	return Config{K1: 1, K2: 1, MaxDist: 0.6}
}

// Validate checks that the parameters are usable.
func (c Config) Validate() error {
	if math.IsNaN(c.MaxDist) || math.IsInf(c.MaxDist, 0) || c.MaxDist < 0 {
		return fmt.Errorf("%w: max_dist must be finite and non-negative (got %v)", ErrInvalidInput, c.MaxDist)
	}
	_, err := NewScorer(c.K1, c.K2)
	return err
}

// Clusterer groups token sequences in a single pass.
//
// Each line joins the first cluster, in creation order, whose representative
// lies within MaxDist; otherwise it founds a new cluster. Clusters are never
// reassigned or split, so the outcome depends on line order.
type Clusterer struct {
	scorer   *Scorer
	clusters models.ClusterList
	maxDist  float64
}

// NewClusterer creates an empty clusterer.
func NewClusterer(cfg Config) (*Clusterer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	scorer, err := NewScorer(cfg.K1, cfg.K2)
	if err != nil {
		return nil, err
	}
	return &Clusterer{scorer: scorer, maxDist: cfg.MaxDist}, nil
}

// ProcessLine adds one tokenized line to the clustering state.
func (c *Clusterer) ProcessLine(tokens models.TokenSequence) {
	for i := range c.clusters {
		cluster := &c.clusters[i]
		if c.scorer.DistanceWithin(cluster.Representative, tokens, c.maxDist) <= c.maxDist {
			cluster.Count++
			cluster.Pattern = MergePattern(cluster.Pattern, tokens)
			return
		}
	}
	c.clusters = append(c.clusters, models.NewCluster(tokens))
}

// Result returns the clusters with at least minMembers members in creation order.
// The internal state is left untouched.
func (c *Clusterer) Result(minMembers uint64) models.ClusterList {
	return c.clusters.Filter(minMembers)
}

// Reset drops all accumulated clusters.
func (c *Clusterer) Reset() {
	c.clusters = nil
}

// Len returns the number of clusters accumulated so far.
func (c *Clusterer) Len() int {
	return len(c.clusters)
}

// Find resets the clusterer, processes lines in order and returns the result.
func (c *Clusterer) Find(lines []models.TokenSequence, minMembers uint64) models.ClusterList {
	c.Reset()
	for _, tokens := range lines {
		c.ProcessLine(tokens)
	}
	return c.Result(minMembers)
}
