package query

import (
	"strings"

	"github.com/kjwroe/sqlitero/internal/storage"
)

// Plan is the chosen execution strategy for a SELECT, grounded on the
// teacher's QueryOptimizer.OptimizeSelect/analyzeWhereClause: an index
// plan searches a single matching index by its leading equality
// conjunct and falls back to a full table scan otherwise.
type Plan struct {
	UseIndex    bool
	IndexName   string
	IndexColumn string
	SearchValue storage.Value
	PostFilter  Expr // remaining conjuncts not covered by the index match, applied after fetch
}

// BuildPlan decides between an index-assisted lookup and a full scan.
// Only a single leading `column = literal` conjunct can drive an index
// plan — an index only has one first column — so any other AND-ed
// conditions are carried forward as a post-filter (§10.3).
func BuildPlan(stmt *SelectStatement, schema *storage.Schema) Plan {
	if stmt.Where == nil {
		return Plan{UseIndex: false}
	}

	table, ok := schema.Tables[stmt.Table]
	if !ok {
		return Plan{UseIndex: false, PostFilter: stmt.Where}
	}

	equality, rest, found := leadingEquality(stmt.Where)
	if !found {
		return Plan{UseIndex: false, PostFilter: stmt.Where}
	}

	for _, idx := range schema.Indices {
		if idx.Entry.TblName != table.Entry.Name {
			continue
		}
		if len(idx.IndexedColumns) == 0 || !columnEquals(idx.IndexedColumns[0], equality.Column) {
			continue
		}
		return Plan{
			UseIndex:    true,
			IndexName:   idx.Entry.Name,
			IndexColumn: idx.IndexedColumns[0],
			SearchValue: equality.Literal,
			PostFilter:  rest,
		}
	}

	return Plan{UseIndex: false, PostFilter: stmt.Where}
}

// leadingEquality finds the first Equality conjunct in a left-leaning
// AND tree and returns the remaining predicate tree (nil if nothing is
// left), or found=false if the WHERE clause has no equality at all.
func leadingEquality(expr Expr) (Equality, Expr, bool) {
	switch e := expr.(type) {
	case Equality:
		return e, nil, true
	case And:
		if eq, ok := e.Left.(Equality); ok {
			return eq, e.Right, true
		}
		if eq, rest, found := leadingEquality(e.Left); found {
			return eq, mergeAnd(rest, e.Right), true
		}
		if eq, rest, found := leadingEquality(e.Right); found {
			return eq, mergeAnd(e.Left, rest), true
		}
		return Equality{}, nil, false
	default:
		return Equality{}, nil, false
	}
}

func mergeAnd(a, b Expr) Expr {
	if a == nil {
		return b
	}
	if b == nil {
		return a
	}
	return And{Left: a, Right: b}
}

func columnEquals(a, b string) bool {
	return strings.EqualFold(a, b)
}
