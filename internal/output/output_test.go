package output

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thebtf/logmine/pkg/models"
)

func sampleClusters() models.ClusterList {
	rep := models.TokenSequence{
		models.Literal("user"),
		models.Variable("17", "<num>"),
		models.Literal("logged"),
		models.Literal("in"),
	}
	pattern := models.TokenSequence{
		models.Literal("user"),
		models.Variable("17", "<num>"),
		models.Placeholder(),
		models.Literal("in"),
	}
	return models.ClusterList{
		{Representative: models.Literals("disconnect"), Pattern: models.Literals("disconnect"), Count: 3},
		{Representative: rep, Pattern: pattern, Count: 12},
		{Representative: models.Literals("a"), Pattern: models.Literals("a"), Count: 3},
	}
}

func render(t *testing.T, clusters models.ClusterList, opts Options) string {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, NewWriter(&buf, opts).Write(clusters))
	return buf.String()
}

func TestWriteText(t *testing.T) {
	tests := []struct {
		name     string
		opts     Options
		expected string
	}{
		{
			name:     "defaults pass original tokens",
			opts:     Options{},
			expected: "3 disconnect\n12 user 17 logged in\n3 a\n",
		},
		{
			name:     "placeholder text",
			opts:     Options{Placeholder: "***"},
			expected: "3 disconnect\n12 user 17 *** in\n3 a\n",
		},
		{
			name:     "mask variables",
			opts:     Options{Placeholder: "---", MaskVariables: true},
			expected: "3 disconnect\n12 user <num> --- in\n3 a\n",
		},
		{
			name:     "number align",
			opts:     Options{NumberAlign: true},
			expected: " 3 disconnect\n12 user 17 logged in\n 3 a\n",
		},
		{
			name:     "sort desc is stable",
			opts:     Options{Sort: SortDesc},
			expected: "12 user 17 logged in\n3 disconnect\n3 a\n",
		},
		{
			name:     "sort asc is stable",
			opts:     Options{Sort: SortAsc},
			expected: "3 disconnect\n3 a\n12 user 17 logged in\n",
		},
		{
			name:     "highlight dropped off terminal",
			opts:     Options{HighlightPatterns: true, HighlightVariables: true},
			expected: "3 disconnect\n12 user 17 logged in\n3 a\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, render(t, sampleClusters(), tt.opts))
		})
	}
}

func TestWriteEmptyListWritesNothing(t *testing.T) {
	assert.Empty(t, render(t, nil, Options{NumberAlign: true}))
	assert.Empty(t, render(t, models.ClusterList{}, Options{}))
}

func TestPatternShownWhenLengthsDiffer(t *testing.T) {
	c := models.Cluster{
		Representative: models.Literals("a", "b"),
		Pattern:        models.TokenSequence{models.Literal("a"), models.Placeholder(), models.Literal("c")},
		Count:          2,
	}
	assert.Equal(t, "2 a --- c\n", render(t, models.ClusterList{c}, Options{}))
	assert.Equal(t, "2 a ? c\n", render(t, models.ClusterList{c}, Options{Placeholder: "?"}))
}

func TestHighlightColorizers(t *testing.T) {
	w := &Writer{
		opts:              Options{HighlightPatterns: true, HighlightVariables: true, Placeholder: "---"},
		patternColorizer:  func(s string) string { return "[" + s + "]" },
		variableColorizer: func(s string) string { return "<" + s + ">" },
	}
	tokens := w.Tokens(sampleClusters()[1])
	assert.Equal(t, []string{"user", "<17>", "[---]", "in"}, tokens)
}

func TestSortedDoesNotModifyInput(t *testing.T) {
	in := sampleClusters()
	_ = Sorted(in, SortDesc)
	assert.Equal(t, uint64(3), in[0].Count)
}

func TestWriteJSON(t *testing.T) {
	out := render(t, sampleClusters(), Options{Format: FormatJSON, Placeholder: "---", Sort: SortDesc})

	var decoded []jsonCluster
	require.NoError(t, json.Unmarshal([]byte(out), &decoded))
	require.Len(t, decoded, 3)
	assert.Equal(t, uint64(12), decoded[0].Count)
	assert.Equal(t, "user 17 --- in", decoded[0].Pattern)
	assert.Equal(t, "user 17 logged in", decoded[0].Representative)
	assert.Equal(t, []string{"user", "17", "---", "in"}, decoded[0].Tokens)
}

func TestWriteJSONEmpty(t *testing.T) {
	assert.JSONEq(t, "[]", render(t, nil, Options{Format: FormatJSON}))
}

func TestOptionsValidate(t *testing.T) {
	assert.NoError(t, Options{}.Validate())
	assert.NoError(t, Options{Sort: SortAsc, Format: FormatJSON}.Validate())
	assert.ErrorIs(t, Options{Sort: "random"}.Validate(), ErrInvalidOption)
	assert.ErrorIs(t, Options{Format: "xml"}.Validate(), ErrInvalidOption)
}

func TestIsTerminal(t *testing.T) {
	assert.False(t, IsTerminal(&bytes.Buffer{}))

	f, err := os.CreateTemp(t.TempDir(), "out")
	require.NoError(t, err)
	defer f.Close()
	assert.False(t, IsTerminal(f))
}

func TestCreate(t *testing.T) {
	w, err := Create("-")
	require.NoError(t, err)
	assert.NoError(t, w.Close())

	path := filepath.Join(t.TempDir(), "nested", "dir", "clusters.txt")
	w, err = Create(path)
	require.NoError(t, err)
	require.NoError(t, NewWriter(w, Options{}).Write(sampleClusters()[:1]))
	require.NoError(t, w.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "3 disconnect\n", string(data))
}
