package query

import (
	"strings"

	"github.com/kjwroe/sqlitero/internal/dberrors"
	"github.com/kjwroe/sqlitero/internal/storage"
	"github.com/xwb1989/sqlparser"
)

// Parse parses a single SQL statement and normalizes it into a
// SelectStatement. Only SELECT is supported; INSERT/UPDATE/DELETE are
// rejected explicitly, matching the teacher's own handleSQL dispatch
// (app/sqlite_engine.go), since this engine is read-only (§1, Non-goals).
func Parse(sql string) (*SelectStatement, error) {
	stmt, err := sqlparser.Parse(sql)
	if err != nil {
		return nil, dberrors.New("parse_sql", dberrors.ErrInvalidDatabase, map[string]interface{}{"sql": sql, "err": err.Error()})
	}

	switch parsed := stmt.(type) {
	case *sqlparser.Select:
		return fromSelect(parsed)
	case *sqlparser.Insert:
		return nil, dberrors.New("parse_sql", dberrors.ErrUnsupported, map[string]interface{}{"statement": "INSERT"})
	case *sqlparser.Update:
		return nil, dberrors.New("parse_sql", dberrors.ErrUnsupported, map[string]interface{}{"statement": "UPDATE"})
	case *sqlparser.Delete:
		return nil, dberrors.New("parse_sql", dberrors.ErrUnsupported, map[string]interface{}{"statement": "DELETE"})
	default:
		return nil, dberrors.New("parse_sql", dberrors.ErrUnsupported, map[string]interface{}{"statement_type": sqlparser.String(stmt)})
	}
}

func fromSelect(sel *sqlparser.Select) (*SelectStatement, error) {
	table, err := tableName(sel)
	if err != nil {
		return nil, err
	}

	stmt := &SelectStatement{Table: table}

	for _, expr := range sel.SelectExprs {
		switch e := expr.(type) {
		case *sqlparser.StarExpr:
			stmt.Star = true
		case *sqlparser.AliasedExpr:
			switch inner := e.Expr.(type) {
			case *sqlparser.FuncExpr:
				if !strings.EqualFold(inner.Name.String(), "count") {
					return nil, dberrors.New("parse_select", dberrors.ErrUnsupported, map[string]interface{}{
						"function": inner.Name.String(),
					})
				}
				stmt.CountStar = true
			case *sqlparser.ColName:
				stmt.Columns = append(stmt.Columns, inner.Name.String())
			default:
				return nil, dberrors.New("parse_select", dberrors.ErrUnsupported, map[string]interface{}{
					"expr_type": sqlparser.String(inner),
				})
			}
		default:
			return nil, dberrors.New("parse_select", dberrors.ErrUnsupported, map[string]interface{}{
				"select_expr_type": sqlparser.String(expr),
			})
		}
	}

	if !stmt.Star && !stmt.CountStar && len(stmt.Columns) == 0 {
		return nil, dberrors.New("parse_select", dberrors.ErrUnsupported, map[string]interface{}{
			"reason": "no projected columns found",
		})
	}

	if sel.Where != nil {
		where, err := fromExpr(sel.Where.Expr)
		if err != nil {
			return nil, err
		}
		stmt.Where = where
	}

	return stmt, nil
}

func tableName(sel *sqlparser.Select) (string, error) {
	if len(sel.From) == 0 {
		return "", dberrors.New("parse_select", dberrors.ErrUnsupported, map[string]interface{}{"reason": "missing FROM clause"})
	}
	aliased, ok := sel.From[0].(*sqlparser.AliasedTableExpr)
	if !ok {
		return "", dberrors.New("parse_select", dberrors.ErrUnsupported, map[string]interface{}{"reason": "unsupported FROM expression"})
	}
	table, ok := aliased.Expr.(sqlparser.TableName)
	if !ok {
		return "", dberrors.New("parse_select", dberrors.ErrUnsupported, map[string]interface{}{"reason": "unsupported table reference"})
	}
	return table.Name.String(), nil
}

// fromExpr converts a sqlparser WHERE expression tree into Expr, per
// §10.3: AND is restored, OR and ParenExpr (and anything but `=`) stay
// unsupported.
func fromExpr(expr sqlparser.Expr) (Expr, error) {
	switch e := expr.(type) {
	case *sqlparser.ComparisonExpr:
		if e.Operator != "=" {
			return nil, dberrors.New("parse_where", dberrors.ErrUnsupported, map[string]interface{}{"operator": e.Operator})
		}
		col, ok := e.Left.(*sqlparser.ColName)
		if !ok {
			return nil, dberrors.New("parse_where", dberrors.ErrUnsupported, map[string]interface{}{"reason": "left side must be a column"})
		}
		literal, err := fromLiteral(e.Right)
		if err != nil {
			return nil, err
		}
		return Equality{Column: col.Name.String(), Literal: literal}, nil
	case *sqlparser.AndExpr:
		left, err := fromExpr(e.Left)
		if err != nil {
			return nil, err
		}
		right, err := fromExpr(e.Right)
		if err != nil {
			return nil, err
		}
		return And{Left: left, Right: right}, nil
	default:
		return nil, dberrors.New("parse_where", dberrors.ErrUnsupported, map[string]interface{}{"expr_type": sqlparser.String(expr)})
	}
}

func fromLiteral(expr sqlparser.Expr) (storage.Value, error) {
	val, ok := expr.(*sqlparser.SQLVal)
	if !ok {
		return storage.Value{}, dberrors.New("parse_literal", dberrors.ErrUnsupported, map[string]interface{}{"expr_type": sqlparser.String(expr)})
	}

	switch val.Type {
	case sqlparser.StrVal:
		return storage.Value{Kind: storage.ValueText, Bytes: val.Val}, nil
	case sqlparser.IntVal:
		n, err := parseInt(string(val.Val))
		if err != nil {
			return storage.Value{}, err
		}
		return storage.Value{Kind: storage.ValueInteger, Integer: n}, nil
	case sqlparser.FloatVal:
		f, err := parseFloat(string(val.Val))
		if err != nil {
			return storage.Value{}, err
		}
		return storage.Value{Kind: storage.ValueReal, Real: f}, nil
	default:
		return storage.Value{}, dberrors.New("parse_literal", dberrors.ErrUnsupported, map[string]interface{}{"sql_val_type": val.Type})
	}
}
