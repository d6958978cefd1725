package query

import "github.com/kjwroe/sqlitero/internal/storage"

// Expr is a WHERE-clause predicate tree: a leaf Equality or a
// conjunction of two Exprs. Restored from the teacher's own
// evaluateWhereCondition, which already walked AndExpr/OrExpr/ParenExpr
// trees; OR stays unimplemented since the grammar below admits only AND.
type Expr interface {
	isExpr()
}

// Equality is a single `column = literal` predicate.
type Equality struct {
	Column  string
	Literal storage.Value
}

func (Equality) isExpr() {}

// And is the conjunction of two predicates.
type And struct {
	Left  Expr
	Right Expr
}

func (And) isExpr() {}

// SelectStatement is the normalized shape of a supported SELECT query.
type SelectStatement struct {
	Table     string
	Columns   []string // explicit projected column names; nil when Star or CountStar
	Star      bool      // SELECT *
	CountStar bool      // SELECT COUNT(*)
	Where     Expr      // nil when there is no WHERE clause
}
