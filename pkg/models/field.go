// Package models contains domain models for logmine.
package models

import "strings"

// PlaceholderText is the display text of a Placeholder field.
const PlaceholderText = "---"

// FieldKind tags the variant held by a Field.
type FieldKind uint8

const (
	// KindLiteral is a token matched verbatim.
	KindLiteral FieldKind = iota
	// KindVariable is a token recognized by a variable rule.
	KindVariable
	// KindPlaceholder marks a pattern position that varies across cluster members.
	KindPlaceholder
	// KindGap fills positions inserted by sequence alignment.
	KindGap
)

// String returns the kind name.
func (k FieldKind) String() string {
	switch k {
	case KindLiteral:
		return "literal"
	case KindVariable:
		return "variable"
	case KindPlaceholder:
		return "placeholder"
	case KindGap:
		return "gap"
	default:
		return "unknown"
	}
}

// Field is one token of a tokenized log line.
// For variables, Value is the canonical value compared for equality (the
// rule name for tokenized input) and Name the raw token, used for display only.
type Field struct {
	Value string
	Name  string
	Kind  FieldKind
}

// Literal creates a literal field.
func Literal(text string) Field {
	return Field{Kind: KindLiteral, Value: text}
}

// Variable creates a variable field displayed as name and compared by value.
func Variable(name, value string) Field {
	return Field{Kind: KindVariable, Name: name, Value: value}
}

// Placeholder returns the placeholder sentinel.
func Placeholder() Field {
	return Field{Kind: KindPlaceholder}
}

// Gap returns an alignment gap. A gap is never equal to any field.
func Gap() Field {
	return Field{Kind: KindGap}
}

// IsLiteral reports whether f is a literal.
func (f Field) IsLiteral() bool { return f.Kind == KindLiteral }

// IsVariable reports whether f is a variable.
func (f Field) IsVariable() bool { return f.Kind == KindVariable }

// IsPlaceholder reports whether f is the placeholder sentinel.
func (f Field) IsPlaceholder() bool { return f.Kind == KindPlaceholder }

// Equal compares two fields by variant and value.
// Literals compare by text, variables by value only, placeholders only
// equal other placeholders, and gaps equal nothing.
func (f Field) Equal(other Field) bool {
	if f.Kind != other.Kind {
		return false
	}
	switch f.Kind {
	case KindLiteral, KindVariable:
		return f.Value == other.Value
	case KindPlaceholder:
		return true
	default:
		return false
	}
}

// String returns the display text of the field.
func (f Field) String() string {
	switch f.Kind {
	case KindPlaceholder:
		return PlaceholderText
	case KindGap:
		return ""
	default:
		return f.Value
	}
}

// TokenSequence is the ordered list of fields produced from one log line.
type TokenSequence []Field

// Literals builds a sequence of literal fields.
func Literals(tokens ...string) TokenSequence {
	seq := make(TokenSequence, len(tokens))
	for i, t := range tokens {
		seq[i] = Literal(t)
	}
	return seq
}

// Clone returns a copy of the sequence that shares no backing array with s.
func (s TokenSequence) Clone() TokenSequence {
	if s == nil {
		return nil
	}
	out := make(TokenSequence, len(s))
	copy(out, s)
	return out
}

// Equal reports whether both sequences have the same length and pairwise equal fields.
func (s TokenSequence) Equal(other TokenSequence) bool {
	if len(s) != len(other) {
		return false
	}
	for i := range s {
		if !s[i].Equal(other[i]) {
			return false
		}
	}
	return true
}

// Strings returns the display text of every field.
func (s TokenSequence) Strings() []string {
	out := make([]string, len(s))
	for i, f := range s {
		out[i] = f.String()
	}
	return out
}

// String joins the display text of the fields with single spaces.
func (s TokenSequence) String() string {
	return strings.Join(s.Strings(), " ")
}

// Placeholders counts the placeholder fields in s.
func (s TokenSequence) Placeholders() int {
	n := 0
	for _, f := range s {
		if f.IsPlaceholder() {
			n++
		}
	}
	return n
}
