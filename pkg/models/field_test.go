package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"
)

// FieldSuite is a test suite for Field and TokenSequence.
type FieldSuite struct {
	suite.Suite
}

func TestFieldSuite(t *testing.T) {
	suite.Run(t, new(FieldSuite))
}

// TestEqual tests value-level equality across variants.
func (s *FieldSuite) TestEqual() {
	tests := []struct {
		name     string
		a        Field
		b        Field
		expected bool
	}{
		{name: "same literal", a: Literal("port"), b: Literal("port"), expected: true},
		{name: "different literal", a: Literal("port"), b: Literal("22"), expected: false},
		{name: "variables by value", a: Variable("ip", "10.0.0.1"), b: Variable("addr", "10.0.0.1"), expected: true},
		{name: "variables different value", a: Variable("ip", "10.0.0.1"), b: Variable("ip", "10.0.0.2"), expected: false},
		{name: "literal vs variable", a: Literal("10.0.0.1"), b: Variable("ip", "10.0.0.1"), expected: false},
		{name: "placeholders", a: Placeholder(), b: Placeholder(), expected: true},
		{name: "placeholder vs its display text", a: Placeholder(), b: Literal(PlaceholderText), expected: false},
		{name: "literal display text vs placeholder", a: Literal(PlaceholderText), b: Placeholder(), expected: false},
		{name: "gap vs gap", a: Gap(), b: Gap(), expected: false},
		{name: "gap vs empty literal", a: Gap(), b: Literal(""), expected: false},
	}

	for _, tt := range tests {
		s.Run(tt.name, func() {
			s.Equal(tt.expected, tt.a.Equal(tt.b))
		})
	}
}

// TestString tests display text.
func (s *FieldSuite) TestString() {
	s.Equal("port", Literal("port").String())
	s.Equal("10.0.0.1", Variable("ip", "10.0.0.1").String())
	s.Equal(PlaceholderText, Placeholder().String())
	s.Empty(Gap().String())
}

// TestSequenceHelpers tests TokenSequence helpers.
func (s *FieldSuite) TestSequenceHelpers() {
	seq := Literals("connect", "from", "host")
	s.Len(seq, 3)
	s.Equal("connect from host", seq.String())

	clone := seq.Clone()
	s.True(seq.Equal(clone))
	clone[0] = Literal("disconnect")
	s.Equal("connect", seq[0].Value)
	s.False(seq.Equal(clone))

	withPlaceholder := TokenSequence{Literal("a"), Placeholder(), Placeholder()}
	s.Equal(2, withPlaceholder.Placeholders())
	s.Nil(TokenSequence(nil).Clone())
}

func TestFieldKindString(t *testing.T) {
	assert.Equal(t, "literal", KindLiteral.String())
	assert.Equal(t, "variable", KindVariable.String())
	assert.Equal(t, "placeholder", KindPlaceholder.String())
	assert.Equal(t, "gap", KindGap.String())
	assert.Equal(t, "unknown", FieldKind(42).String())
}
