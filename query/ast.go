// Package query parses the small boolean grammar used for ingest-side fact
// assertions and test queries:
//
//	Or     := And ('|' And)*
//	And    := Simple (('&' | implicit) Simple)*
//	Simple := '-' Simple | '(' Or ')' | Term
//	Term   := [streamId ':'] ( '"' Token+ '"' | Token )
//
// Juxtaposition of Simples is an implicit AND. Tokens may escape the
// metacharacters with '\'.
package query

import (
	"strconv"
	"strings"

	"github.com/hupe1980/sigdex/core"
)

// Node is a term match tree node: Or, And, Not, Unigram or Phrase.
type Node interface {
	format(sb *strings.Builder, parent precedence)
}

type precedence int

const (
	precOr precedence = iota
	precAnd
	precNot
	precTerm
)

// Or matches documents matching any child.
type Or struct {
	Children []Node
}

// And matches documents matching every child.
type And struct {
	Children []Node
}

// Not matches documents not matching its child.
type Not struct {
	Child Node
}

// Unigram matches a single token in a stream.
type Unigram struct {
	Text     string
	StreamId core.StreamId
}

// Phrase matches a sequence of tokens in order in a stream.
type Phrase struct {
	Grams    []string
	StreamId core.StreamId
}

// newOr collapses a single-child OR to the child itself.
func newOr(children []Node) Node {
	if len(children) == 1 {
		return children[0]
	}
	return &Or{Children: children}
}

// newAnd collapses a single-child AND to the child itself.
func newAnd(children []Node) Node {
	if len(children) == 1 {
		return children[0]
	}
	return &And{Children: children}
}

// Format renders a node back into the grammar. Parsing the result yields an
// equivalent tree.
func Format(n Node) string {
	var sb strings.Builder
	n.format(&sb, precOr)
	return sb.String()
}

func (n *Or) format(sb *strings.Builder, parent precedence) {
	wrap := parent > precOr
	if wrap {
		sb.WriteByte('(')
	}
	for i, child := range n.Children {
		if i > 0 {
			sb.WriteString(" | ")
		}
		child.format(sb, precOr)
	}
	if wrap {
		sb.WriteByte(')')
	}
}

func (n *And) format(sb *strings.Builder, parent precedence) {
	wrap := parent > precAnd
	if wrap {
		sb.WriteByte('(')
	}
	for i, child := range n.Children {
		if i > 0 {
			sb.WriteByte(' ')
		}
		child.format(sb, precAnd)
	}
	if wrap {
		sb.WriteByte(')')
	}
}

func (n *Not) format(sb *strings.Builder, parent precedence) {
	sb.WriteByte('-')
	n.Child.format(sb, precNot)
}

func (n *Unigram) format(sb *strings.Builder, parent precedence) {
	writeStreamPrefix(sb, n.StreamId)
	writeEscaped(sb, n.Text)
}

func (n *Phrase) format(sb *strings.Builder, parent precedence) {
	writeStreamPrefix(sb, n.StreamId)
	sb.WriteByte('"')
	for i, gram := range n.Grams {
		if i > 0 {
			sb.WriteByte(' ')
		}
		writeEscaped(sb, gram)
	}
	sb.WriteByte('"')
}

func writeStreamPrefix(sb *strings.Builder, streamId core.StreamId) {
	if streamId == 0 {
		return
	}
	sb.WriteString(strconv.Itoa(int(streamId)))
	sb.WriteByte(':')
}

func writeEscaped(sb *strings.Builder, token string) {
	for i := 0; i < len(token); i++ {
		if strings.IndexByte(legalEscapes, token[i]) >= 0 {
			sb.WriteByte('\\')
		}
		sb.WriteByte(token[i])
	}
}
