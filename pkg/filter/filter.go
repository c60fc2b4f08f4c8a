// Package filter compiles the textual query language accepted by the icd
// command line into mapfile predicates.
package filter

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"

	"github.com/OpenTraceLab/OpenTraceICD/pkg/mapfile"
)

var exprParser = participle.MustBuild[Expression](
	participle.Lexer(FilterLexer),
	participle.Elide("Whitespace"),
	participle.Map(unquoteString, "String"),
	participle.Map(unquoteRaw, "RawString"),
	participle.UseLookahead(2),
)

func unquoteString(tok lexer.Token) (lexer.Token, error) {
	v := tok.Value[1 : len(tok.Value)-1]
	tok.Value = strings.ReplaceAll(v, `\"`, `"`)
	return tok, nil
}

func unquoteRaw(tok lexer.Token) (lexer.Token, error) {
	tok.Value = tok.Value[1 : len(tok.Value)-1]
	return tok, nil
}

// Parse parses a filter expression into its syntax tree. An empty or blank
// expression yields an expression without terms.
func Parse(text string) (*Expression, error) {
	if strings.TrimSpace(text) == "" {
		return &Expression{}, nil
	}
	expr, err := exprParser.ParseString("", text)
	if err != nil {
		return nil, fmt.Errorf("filter: parse error: %w", err)
	}
	return expr, nil
}

// Compile parses text and converts it to predicates. "~" keeps the value as
// a regular expression, "=" and "==" match the value literally. Every field
// may appear once.
func Compile(text string) (mapfile.Predicates, error) {
	expr, err := Parse(text)
	if err != nil {
		return nil, err
	}
	return expr.Predicates()
}

// Predicates converts the expression to mapfile predicates.
func (e *Expression) Predicates() (mapfile.Predicates, error) {
	preds := make(mapfile.Predicates, len(e.Terms))
	for _, term := range e.Terms {
		if _, dup := preds[term.Field]; dup {
			return nil, fmt.Errorf("filter: %s: duplicate field %q", term.Pos, term.Field)
		}

		pattern := term.Value
		if term.Literal() {
			pattern = regexp.QuoteMeta(pattern)
		} else if _, err := regexp.Compile(pattern); err != nil {
			return nil, fmt.Errorf("filter: %s: invalid pattern for %s: %w", term.Pos, term.Field, err)
		}
		preds[term.Field] = pattern
	}
	return preds, nil
}
