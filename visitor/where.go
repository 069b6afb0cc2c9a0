package visitor

import (
	"strconv"
	"strings"

	"github.com/NetRube/NetRube.Data/ast"
)

// Where accumulates predicate fragments joined by AND / OR.
type Where struct {
	sb strings.Builder
}

func (w *Where) Empty() bool { return w.sb.Len() == 0 }

func (w *Where) add(joiner, frag string) {
	if frag == "" {
		return
	}
	if w.sb.Len() > 0 {
		w.sb.WriteString(joiner)
	}
	w.sb.WriteString(frag)
}

// And appends frag with AND.
func (w *Where) And(frag string) { w.add(" AND ", frag) }

// Or appends frag with OR.
func (w *Where) Or(frag string) { w.add(" OR ", frag) }

// Op renders the (column, operator, value) form as (col OP @n).
func Op(col string, op ast.QueryOp, value any, sink *[]any) (string, error) {
	tok, err := op.Token()
	if err != nil {
		return "", err
	}
	if op == ast.LikeContains || op == ast.LikeStartsWith || op == ast.LikeEndsWith {
		value = ast.LikePattern(op, value)
	}
	var sb strings.Builder
	sb.WriteByte('(')
	sb.WriteString(col)
	sb.WriteString(tok)
	sb.WriteByte('@')
	sb.WriteString(strconv.Itoa(len(*sink)))
	sb.WriteByte(')')
	*sink = append(*sink, value)
	return sb.String(), nil
}

// String renders the clause with its WHERE keyword, or "" when empty.
func (w *Where) String() string {
	if w.sb.Len() == 0 {
		return ""
	}
	return "WHERE " + w.sb.String()
}

// Condition returns the accumulated predicate without the keyword.
func (w *Where) Condition() string { return w.sb.String() }
