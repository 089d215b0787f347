package similarity

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/thebtf/logmine/pkg/models"
)

// ClustererSuite is a test suite for the incremental clusterer.
type ClustererSuite struct {
	suite.Suite
	clusterer *Clusterer
}

func (s *ClustererSuite) SetupTest() {
	var err error
	s.clusterer, err = NewClusterer(Config{K1: 1, K2: 1, MaxDist: 0.3})
	s.Require().NoError(err)
}

func TestClustererSuite(t *testing.T) {
	suite.Run(t, new(ClustererSuite))
}

// TestFirstLineFoundsCluster tests clustering against an empty cluster list.
func (s *ClustererSuite) TestFirstLineFoundsCluster() {
	tokens := models.Literals("connect", "from", "10.0.0.1")
	s.clusterer.ProcessLine(tokens)

	result := s.clusterer.Result(1)
	s.Require().Len(result, 1)
	s.Equal(uint64(1), result[0].Count)
	s.True(result[0].Representative.Equal(tokens))
	s.True(result[0].Pattern.Equal(tokens))
}

// TestSSHExample tests the connect/disconnect example end to end.
func (s *ClustererSuite) TestSSHExample() {
	lines := []models.TokenSequence{
		models.Literals("connect", "from", "10.0.0.1", "port", "22"),
		models.Literals("connect", "from", "10.0.0.2", "port", "22"),
		models.Literals("disconnect"),
	}

	result := s.clusterer.Find(lines, 1)
	s.Require().Len(result, 2)

	s.Equal(uint64(2), result[0].Count)
	s.Equal([]string{"connect", "from", models.PlaceholderText, "port", "22"}, result[0].Pattern.Strings())
	s.True(result[0].Pattern[2].IsPlaceholder())
	s.Equal("connect from 10.0.0.1 port 22", result[0].Representative.String())

	s.Equal(uint64(1), result[1].Count)
	s.Equal([]string{"disconnect"}, result[1].Pattern.Strings())
}

// TestFirstFitPrefersEarliestCluster tests that a line fitting several
// clusters binds to the one created first.
func (s *ClustererSuite) TestFirstFitPrefersEarliestCluster() {
	clusterer, err := NewClusterer(Config{K1: 1, K2: 1, MaxDist: 0.5})
	s.Require().NoError(err)

	clusterer.ProcessLine(models.Literals("a", "b", "x", "y"))
	clusterer.ProcessLine(models.Literals("p", "q", "c", "d"))
	s.Equal(2, clusterer.Len())

	// Half matches the first cluster and half matches the second.
	clusterer.ProcessLine(models.Literals("a", "b", "c", "d"))

	result := clusterer.Result(1)
	s.Require().Len(result, 2)
	s.Equal(uint64(2), result[0].Count)
	s.Equal(uint64(1), result[1].Count)
	s.Equal("a b --- ---", result[0].Pattern.String())
}

// TestRepresentativeIsImmutable tests that matching compares against the founding line.
func (s *ClustererSuite) TestRepresentativeIsImmutable() {
	founder := models.Literals("job", "1", "done", "ok")
	s.clusterer.ProcessLine(founder)
	s.clusterer.ProcessLine(models.Literals("job", "2", "done", "ok"))

	result := s.clusterer.Result(1)
	s.Require().Len(result, 1)
	s.Equal("job 1 done ok", result[0].Representative.String())
	s.Equal("job --- done ok", result[0].Pattern.String())
}

// TestResultFiltersWithoutTouchingState tests the minimum-member filter.
func (s *ClustererSuite) TestResultFiltersWithoutTouchingState() {
	s.clusterer.ProcessLine(models.Literals("a", "b", "c"))
	s.clusterer.ProcessLine(models.Literals("a", "b", "c"))
	s.clusterer.ProcessLine(models.Literals("z"))

	s.Len(s.clusterer.Result(2), 1)
	s.Len(s.clusterer.Result(1), 2)
	s.Equal(2, s.clusterer.Len())
}

// TestReset tests clearing the state.
func (s *ClustererSuite) TestReset() {
	s.clusterer.ProcessLine(models.Literals("a"))
	s.clusterer.Reset()
	s.Zero(s.clusterer.Len())
	s.Empty(s.clusterer.Result(1))

	s.clusterer.ProcessLine(models.Literals("b"))
	s.Equal(1, s.clusterer.Len())
}

// TestOrderMatters tests that the outcome depends on processing order.
func (s *ClustererSuite) TestOrderMatters() {
	x := models.Literals("a", "b", "c", "d")
	y := models.Literals("a", "b", "e", "f")
	z := models.Literals("g", "h", "e", "f")

	clusterer, err := NewClusterer(Config{K1: 1, K2: 1, MaxDist: 0.5})
	s.Require().NoError(err)

	forward := clusterer.Find([]models.TokenSequence{y, x, z}, 1)
	backward := clusterer.Find([]models.TokenSequence{x, y, z}, 1)

	s.Len(forward, 1)
	s.Len(backward, 2)
	s.Equal(forward.TotalCount(), backward.TotalCount())
}

func TestNewClustererInvalidConfig(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
	}{
		{name: "negative max dist", cfg: Config{K1: 1, K2: 1, MaxDist: -0.1}},
		{name: "nan max dist", cfg: Config{K1: 1, K2: 1, MaxDist: math.NaN()}},
		{name: "negative k2", cfg: Config{K1: 1, K2: -2, MaxDist: 0.5}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewClusterer(tt.cfg)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidInput)
		})
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.NoError(t, cfg.Validate())
	assert.InDelta(t, 0.6, cfg.MaxDist, 0.0001)
}
