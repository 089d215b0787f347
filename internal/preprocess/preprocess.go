// Package preprocess turns raw log lines into token sequences.
package preprocess

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/thebtf/logmine/pkg/models"
)

// DefaultDelimiter splits on every whitespace character.
const DefaultDelimiter = `\s`

// ErrInvalidVariable is returned for a variable rule that is not of the form name:/regex/.
var ErrInvalidVariable = errors.New("invalid variable rule")

// Rule recognizes tokens as a named variable.
type Rule struct {
	re   *regexp.Regexp
	Name string
}

// Match reports whether token matches the rule at its start.
func (r Rule) Match(token string) bool {
	loc := r.re.FindStringIndex(token)
	return loc != nil && loc[0] == 0
}

// Pattern returns the rule's regular expression source.
func (r Rule) Pattern() string {
	return r.re.String()
}

// ParseRule parses a rule definition such as "ip:/\d+\.\d+\.\d+\.\d+/".
// The name ends at the first colon; the expression is the text between the
// first two slashes of the remainder.
func ParseRule(def string) (Rule, error) {
	name, rest, ok := strings.Cut(def, ":")
	if !ok || name == "" {
		return Rule{}, fmt.Errorf("%w %q: expected name:/regex/", ErrInvalidVariable, def)
	}

	parts := strings.Split(rest, "/")
	if len(parts) < 3 {
		return Rule{}, fmt.Errorf("%w %q: expression must be wrapped in slashes", ErrInvalidVariable, def)
	}

	re, err := regexp.Compile(parts[1])
	if err != nil {
		return Rule{}, fmt.Errorf("%w %q: %w", ErrInvalidVariable, def, err)
	}
	return Rule{Name: name, re: re}, nil
}

// ParseRules parses rule definitions, keeping their order.
func ParseRules(defs []string) ([]Rule, error) {
	rules := make([]Rule, 0, len(defs))
	for _, def := range defs {
		rule, err := ParseRule(def)
		if err != nil {
			return nil, err
		}
		rules = append(rules, rule)
	}
	return rules, nil
}

// Preprocessor splits lines on a delimiter expression and tags variables.
type Preprocessor struct {
	delimiter *regexp.Regexp
	rules     []Rule
}

// New creates a preprocessor. An empty delimiter falls back to DefaultDelimiter.
func New(delimiter string, variables []string) (*Preprocessor, error) {
	if delimiter == "" {
		delimiter = DefaultDelimiter
	}
	re, err := regexp.Compile(delimiter)
	if err != nil {
		return nil, fmt.Errorf("compile delimiter %q: %w", delimiter, err)
	}

	rules, err := ParseRules(variables)
	if err != nil {
		return nil, err
	}
	return &Preprocessor{delimiter: re, rules: rules}, nil
}

// Rules returns the configured variable rules in evaluation order.
func (p *Preprocessor) Rules() []Rule {
	return p.rules
}

// Split trims line and splits it on the delimiter. Adjacent delimiters yield
// empty tokens.
func (p *Preprocessor) Split(line string) []string {
	return p.delimiter.Split(strings.TrimSpace(line), -1)
}

// Tokenize converts raw tokens to fields. The first rule matching a token
// turns it into a variable; unmatched tokens stay literals.
func (p *Preprocessor) Tokenize(tokens []string) models.TokenSequence {
	seq := make(models.TokenSequence, len(tokens))
	for i, token := range tokens {
		seq[i] = p.field(token)
	}
	return seq
}

// Process splits and tokenizes a raw line.
func (p *Preprocessor) Process(line string) models.TokenSequence {
	return p.Tokenize(p.Split(line))
}

func (p *Preprocessor) field(token string) models.Field {
	for _, rule := range p.rules {
		if rule.Match(token) {
			return models.Variable(token, rule.Name)
		}
	}
	return models.Literal(token)
}
