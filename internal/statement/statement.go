// Package statement parses the line-oriented command language of the rowdb
// shell: insert, select, count and dot-prefixed meta-commands.
package statement

import (
	"errors"
	"fmt"
	"strings"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"

	"github.com/oda/rowdb/internal/row"
)

// ErrSyntax reports a line the grammar does not accept.
var ErrSyntax = errors.New("syntax error")

// Type identifies a parsed statement.
type Type int

const (
	TypeMeta Type = iota + 1
	TypeInsert
	TypeSelect
	TypeCount
)

func (t Type) String() string {
	switch t {
	case TypeMeta:
		return "meta"
	case TypeInsert:
		return "insert"
	case TypeSelect:
		return "select"
	case TypeCount:
		return "count"
	}
	return fmt.Sprintf("Type(%d)", int(t))
}

// Statement is one parsed line.
type Statement struct {
	Type Type

	// Meta holds the command name without its leading dot.
	Meta string

	// Row is the record to append for TypeInsert.
	Row row.Row

	// Index selects a single row for TypeSelect; nil selects all rows.
	Index *int
}

//nolint:govet // participle grammar tags are not standard struct tags
type grammar struct {
	Meta   *string        `  @Meta`
	Insert *insertGrammar `| @@`
	Select *selectGrammar `| @@`
	Count  bool           `| @"count"`
}

//nolint:govet // participle grammar tags are not standard struct tags
type insertGrammar struct {
	Keyword  string `@"insert"`
	ID       uint32 `@Word`
	Username string `@(String | Word)`
	Email    string `@(String | Word)`
}

//nolint:govet // participle grammar tags are not standard struct tags
type selectGrammar struct {
	Keyword string `@"select"`
	Index   *int   `@Word?`
}

// Word covers bare tokens including numbers; numeric fields are converted
// by the capture, so "42abc" stays one token and fails as an id.
var stmtLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "Meta", Pattern: `\.[A-Za-z]+`},
	{Name: "String", Pattern: `"(?:\\.|[^"\\])*"`},
	{Name: "Word", Pattern: `[^\s"]+`},
	{Name: "Whitespace", Pattern: `\s+`},
})

var stmtParser = participle.MustBuild[grammar](
	participle.Lexer(stmtLexer),
	participle.Elide("Whitespace"),
	participle.Unquote("String"),
)

// Parse parses a single line. Inserted rows are validated against the
// field widths before Parse returns.
func Parse(line string) (*Statement, error) {
	line = strings.TrimSpace(line)
	if line == "" {
		return nil, fmt.Errorf("%w: empty statement", ErrSyntax)
	}

	g, err := stmtParser.ParseString("", line)
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %v", ErrSyntax, line, err)
	}

	switch {
	case g.Meta != nil:
		return &Statement{Type: TypeMeta, Meta: strings.TrimPrefix(*g.Meta, ".")}, nil
	case g.Insert != nil:
		r := row.Row{ID: g.Insert.ID, Username: g.Insert.Username, Email: g.Insert.Email}
		if err := row.Validate(r); err != nil {
			return nil, err
		}
		return &Statement{Type: TypeInsert, Row: r}, nil
	case g.Select != nil:
		if g.Select.Index != nil && *g.Select.Index < 0 {
			return nil, fmt.Errorf("%w: negative row index %d", ErrSyntax, *g.Select.Index)
		}
		return &Statement{Type: TypeSelect, Index: g.Select.Index}, nil
	case g.Count:
		return &Statement{Type: TypeCount}, nil
	}
	return nil, fmt.Errorf("%w: unrecognized statement %q", ErrSyntax, line)
}
