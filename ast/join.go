package ast

import "fmt"

type JoinType int

const (
	JoinInner JoinType = iota
	JoinLeft
	JoinRight
	JoinFull
)

// Keyword returns the SQL join keyword.
func (j JoinType) Keyword() string {
	switch j {
	case JoinInner:
		return "INNER JOIN"
	case JoinLeft:
		return "LEFT JOIN"
	case JoinRight:
		return "RIGHT JOIN"
	case JoinFull:
		return "FULL JOIN"
	}
	return fmt.Sprintf("JoinType(%d)", int(j))
}

func (j JoinType) String() string { return j.Keyword() }

// On is a single-comparison join predicate between two columns.
type On struct {
	Left  Column
	Op    BinaryOp
	Right Column
}

// NewOn validates that op is a comparison.
func NewOn(left Column, op BinaryOp, right Column) (On, error) {
	if !op.IsComparison() {
		return On{}, unsupported("join operator %s", op)
	}
	return On{Left: left, Op: op, Right: right}, nil
}
