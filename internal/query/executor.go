package query

import (
	"context"
	"strings"
	"sync"

	"github.com/kjwroe/sqlitero/internal/config"
	"github.com/kjwroe/sqlitero/internal/dberrors"
	"github.com/kjwroe/sqlitero/internal/storage"
)

// Result is the executed, projected output of a SELECT: either a row
// set (Columns + Rows) or a scalar count (CountStar).
type Result struct {
	Columns   []string
	Rows      [][]storage.Value
	CountStar bool
	Count     int64
}

// Execute runs stmt against the loaded schema using plan, projecting
// columns and applying any WHERE post-filter, grounded on the teacher's
// handleSelectAll/handleSelectColumns/handleCount (app/sqlite_engine.go)
// and executeIndexQueryWithTiming (app/query_optimizer.go).
func Execute(ctx context.Context, pager *storage.Pager, schema *storage.Schema, cfg *config.DatabaseConfig, stmt *SelectStatement, plan Plan) (*Result, error) {
	table, ok := schema.Tables[stmt.Table]
	if !ok || table.Entry.RootPage <= 1 {
		return nil, dberrors.New("execute_select", dberrors.ErrTableNotFound, map[string]interface{}{"table": stmt.Table})
	}

	rowidColumn := rowidAliasIndex(table)
	tree := &storage.TableBTree{Pager: pager, RootPage: table.Entry.RootPage, ColumnCount: len(table.Columns)}

	if stmt.CountStar && stmt.Where == nil {
		count, err := tree.CountRows(ctx)
		if err != nil {
			return nil, err
		}
		return &Result{CountStar: true, Count: count}, nil
	}

	var rows []storage.TableRow
	var err error
	if plan.UseIndex {
		rows, err = fetchByIndex(ctx, pager, schema, cfg, plan, tree, rowidColumn)
	} else {
		rows, err = fetchByScan(ctx, tree)
	}
	if err != nil {
		return nil, err
	}

	filter := stmt.Where
	if plan.UseIndex {
		filter = plan.PostFilter
	}
	rows, err = applyFilter(rows, table, filter, rowidColumn)
	if err != nil {
		return nil, err
	}

	if stmt.CountStar {
		return &Result{CountStar: true, Count: int64(len(rows))}, nil
	}

	columns := stmt.Columns
	if stmt.Star {
		columns = columnNames(table.Columns)
	}

	indices := make([]int, len(columns))
	for i, name := range columns {
		idx, ok := columnIndex(table, name)
		if !ok {
			return nil, dberrors.New("execute_select", dberrors.ErrColumnNotFound, map[string]interface{}{"column": name})
		}
		indices[i] = idx
	}

	projected := make([][]storage.Value, len(rows))
	for i, row := range rows {
		values := make([]storage.Value, len(indices))
		for j, idx := range indices {
			values[j] = valueAt(row, idx, rowidColumn)
		}
		projected[i] = values
	}

	return &Result{Columns: columns, Rows: projected}, nil
}

func fetchByScan(ctx context.Context, tree *storage.TableBTree) ([]storage.TableRow, error) {
	var rows []storage.TableRow
	err := tree.ScanAll(ctx, func(row storage.TableRow) error {
		rows = append(rows, row)
		return nil
	})
	return rows, err
}

// fetchByIndex searches the chosen index for matching rowids, then
// fetches each row by rowid concurrently through a small worker pool —
// the same bounded-fan-out shape as the teacher's fetchRowsParallel
// (app/query_optimizer.go), sized from the configured max concurrency.
func fetchByIndex(ctx context.Context, pager *storage.Pager, schema *storage.Schema, cfg *config.DatabaseConfig, plan Plan, tree *storage.TableBTree, rowidColumn int) ([]storage.TableRow, error) {
	idx, ok := schema.Indices[plan.IndexName]
	if !ok {
		return nil, dberrors.New("fetch_by_index", dberrors.ErrTableNotFound, map[string]interface{}{"index": plan.IndexName})
	}

	indexTree := &storage.IndexBTree{Pager: pager, RootPage: idx.Entry.RootPage, ColumnCount: len(idx.IndexedColumns) + 1}
	rowids, err := indexTree.SearchEqual(ctx, plan.SearchValue)
	if err != nil {
		return nil, err
	}
	if len(rowids) == 0 {
		return nil, nil
	}

	workers := 10
	if cfg != nil && cfg.MaxConcurrency > 0 {
		workers = cfg.MaxConcurrency
	}
	if workers > len(rowids) {
		workers = len(rowids)
	}

	type result struct {
		index int
		row   *storage.TableRow
		err   error
	}

	work := make(chan struct {
		index int
		rowid int64
	}, len(rowids))
	results := make(chan result, len(rowids))

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for item := range work {
				row, err := tree.Lookup(ctx, item.rowid)
				results <- result{index: item.index, row: row, err: err}
			}
		}()
	}

	for i, rowid := range rowids {
		work <- struct {
			index int
			rowid int64
		}{index: i, rowid: rowid}
	}
	close(work)

	go func() {
		wg.Wait()
		close(results)
	}()

	ordered := make([]*storage.TableRow, len(rowids))
	for res := range results {
		if res.err != nil {
			return nil, res.err
		}
		ordered[res.index] = res.row
	}

	rows := make([]storage.TableRow, 0, len(ordered))
	for _, row := range ordered {
		if row != nil {
			rows = append(rows, *row)
		}
	}
	return rows, nil
}

func applyFilter(rows []storage.TableRow, table *storage.TableInfo, expr Expr, rowidColumn int) ([]storage.TableRow, error) {
	if expr == nil {
		return rows, nil
	}

	var filtered []storage.TableRow
	for _, row := range rows {
		match, err := evaluate(expr, table, row, rowidColumn)
		if err != nil {
			return nil, err
		}
		if match {
			filtered = append(filtered, row)
		}
	}
	return filtered, nil
}

func evaluate(expr Expr, table *storage.TableInfo, row storage.TableRow, rowidColumn int) (bool, error) {
	switch e := expr.(type) {
	case Equality:
		idx, ok := columnIndex(table, e.Column)
		if !ok {
			return false, dberrors.New("evaluate_where", dberrors.ErrColumnNotFound, map[string]interface{}{"column": e.Column})
		}
		value := valueAt(row, idx, rowidColumn)
		return storage.Compare(value, e.Literal) == 0, nil
	case And:
		left, err := evaluate(e.Left, table, row, rowidColumn)
		if err != nil || !left {
			return false, err
		}
		return evaluate(e.Right, table, row, rowidColumn)
	default:
		return false, dberrors.New("evaluate_where", dberrors.ErrUnsupported, nil)
	}
}

func rowidAliasIndex(table *storage.TableInfo) int {
	for _, col := range table.Columns {
		if col.IsRowidAlias {
			return col.Index
		}
	}
	return -1
}

func valueAt(row storage.TableRow, columnIndex, rowidColumn int) storage.Value {
	if columnIndex == rowidColumn {
		return storage.Value{Kind: storage.ValueInteger, Integer: row.Rowid}
	}
	if columnIndex < 0 || columnIndex >= len(row.Values) {
		return storage.Value{Kind: storage.ValueNull}
	}
	return row.Values[columnIndex]
}

func columnIndex(table *storage.TableInfo, name string) (int, bool) {
	for _, col := range table.Columns {
		if strings.EqualFold(col.Name, name) {
			return col.Index, true
		}
	}
	return 0, false
}

func columnNames(columns []storage.Column) []string {
	names := make([]string, len(columns))
	for i, col := range columns {
		names[i] = col.Name
	}
	return names
}
