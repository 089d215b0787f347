// Package output renders cluster lists as text or JSON.
package output

import (
	"cmp"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/goccy/go-json"
	"github.com/mattn/go-isatty"
	"github.com/mgutz/ansi"

	"github.com/thebtf/logmine/pkg/models"
)

// Sort orders.
const (
	SortNone = "none"
	SortAsc  = "asc"
	SortDesc = "desc"
)

// Formats.
const (
	FormatText = "text"
	FormatJSON = "json"
)

// ErrInvalidOption is returned for an unknown sort order or format.
var ErrInvalidOption = errors.New("invalid output option")

// Options controls rendering.
type Options struct {
	Sort string
	// Placeholder replaces placeholder positions. Empty passes the original token.
	Placeholder string
	Format      string

	NumberAlign bool
	// MaskVariables shows the rule name of a variable instead of its raw token.
	MaskVariables      bool
	HighlightPatterns  bool
	HighlightVariables bool
}

// Validate checks the sort order and format names.
func (o Options) Validate() error {
	switch o.Sort {
	case "", SortNone, SortAsc, SortDesc:
	default:
		return fmt.Errorf("%w: sort %q", ErrInvalidOption, o.Sort)
	}
	switch o.Format {
	case "", FormatText, FormatJSON:
	default:
		return fmt.Errorf("%w: format %q", ErrInvalidOption, o.Format)
	}
	return nil
}

// Writer renders cluster lists to an underlying writer.
type Writer struct {
	w                 io.Writer
	patternColorizer  func(string) string
	variableColorizer func(string) string
	opts              Options
}

func plain(s string) string { return s }

// NewWriter creates a Writer. Highlighting is dropped when w is not a terminal.
func NewWriter(w io.Writer, opts Options) *Writer {
	tty := IsTerminal(w)

	out := &Writer{
		w:                 w,
		opts:              opts,
		patternColorizer:  plain,
		variableColorizer: plain,
	}
	if tty && opts.HighlightPatterns {
		out.patternColorizer = ansi.ColorFunc("red")
	}
	if tty && opts.HighlightVariables {
		out.variableColorizer = ansi.ColorFunc("yellow")
	}
	return out
}

// IsTerminal reports whether w is backed by a file descriptor attached to a terminal.
func IsTerminal(w io.Writer) bool {
	f, ok := w.(interface{ Fd() uintptr })
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// Sorted returns clusters ordered by count according to order. The sort is
// stable and the input is not modified.
func Sorted(clusters models.ClusterList, order string) models.ClusterList {
	out := clusters.Clone()
	switch order {
	case SortAsc:
		slices.SortStableFunc(out, func(a, b models.Cluster) int { return cmp.Compare(a.Count, b.Count) })
	case SortDesc:
		slices.SortStableFunc(out, func(a, b models.Cluster) int { return cmp.Compare(b.Count, a.Count) })
	}
	return out
}

// Write renders clusters. An empty list writes nothing in text format.
func (w *Writer) Write(clusters models.ClusterList) error {
	clusters = Sorted(clusters, w.opts.Sort)
	if w.opts.Format == FormatJSON {
		return w.writeJSON(clusters)
	}
	if len(clusters) == 0 {
		return nil
	}

	width := 0
	if w.opts.NumberAlign {
		for _, c := range clusters {
			width = max(width, len(fmt.Sprint(c.Count)))
		}
	}

	for _, c := range clusters {
		if _, err := fmt.Fprintf(w.w, "%*d %s\n", width, c.Count, strings.Join(w.Tokens(c), " ")); err != nil {
			return fmt.Errorf("write cluster: %w", err)
		}
	}
	return nil
}

// Tokens renders the display tokens of one cluster. The representative is
// shown when it lines up with the pattern, the pattern otherwise.
func (w *Writer) Tokens(c models.Cluster) []string {
	subject := c.Representative
	if len(subject) != len(c.Pattern) {
		subject = c.Pattern
	}

	tokens := make([]string, len(subject))
	for i, field := range subject {
		pattern := c.Pattern[i]
		switch {
		case pattern.IsPlaceholder():
			value := w.opts.Placeholder
			if value == "" {
				value = rawText(field)
			}
			tokens[i] = w.patternColorizer(value)
		case pattern.IsVariable():
			if !field.IsVariable() {
				field = pattern
			}
			value := field.Name
			if w.opts.MaskVariables {
				value = field.Value
			}
			tokens[i] = w.variableColorizer(value)
		default:
			tokens[i] = field.String()
		}
	}
	return tokens
}

func rawText(f models.Field) string {
	if f.IsVariable() {
		return f.Name
	}
	return f.String()
}

type jsonCluster struct {
	Pattern        string   `json:"pattern"`
	Representative string   `json:"representative"`
	Tokens         []string `json:"tokens"`
	Count          uint64   `json:"count"`
}

func (w *Writer) writeJSON(clusters models.ClusterList) error {
	plainWriter := &Writer{w: w.w, opts: w.opts, patternColorizer: plain, variableColorizer: plain}

	out := make([]jsonCluster, len(clusters))
	for i, c := range clusters {
		tokens := plainWriter.Tokens(c)
		out[i] = jsonCluster{
			Pattern:        strings.Join(tokens, " "),
			Representative: rawLine(c.Representative),
			Tokens:         tokens,
			Count:          c.Count,
		}
	}

	enc := json.NewEncoder(w.w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		return fmt.Errorf("encode clusters: %w", err)
	}
	return nil
}

func rawLine(seq models.TokenSequence) string {
	parts := make([]string, len(seq))
	for i, f := range seq {
		parts[i] = rawText(f)
	}
	return strings.Join(parts, " ")
}

// Create opens path for writing, creating parent directories. An empty path
// or "-" selects stdout, which is not closed by the returned closer.
func Create(path string) (io.WriteCloser, error) {
	if path == "" || path == "-" {
		return nopCloser{os.Stdout}, nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create output file: %w", err)
	}
	return f, nil
}

type nopCloser struct {
	*os.File
}

func (nopCloser) Close() error { return nil }
