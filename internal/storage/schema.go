package storage

import (
	"context"
	"strings"
	"sync"

	"github.com/kjwroe/sqlitero/internal/config"
	"github.com/kjwroe/sqlitero/internal/dberrors"
	"github.com/xwb1989/sqlparser"
)

const schemaRootPage uint32 = 1

// SchemaEntry is one row of sqlite_master/sqlite_schema: an object
// (table, index, view or trigger) and the SQL that created it.
type SchemaEntry struct {
	Type     string
	Name     string
	TblName  string
	RootPage uint32
	SQL      string
}

// TableInfo is a resolved table: its schema entry plus the columns
// parsed from its CREATE TABLE statement.
type TableInfo struct {
	Entry   SchemaEntry
	Columns []Column
}

// IndexInfo is a resolved index: its schema entry, the table it
// belongs to, and the ordered list of indexed column names. Only the
// first column drives equality search (§4.6); the rest are tiebreakers
// within the tree, but all of them are physically present in each index
// record and must be accounted for when sizing a record decode.
type IndexInfo struct {
	Entry          SchemaEntry
	IndexedColumns []string // ordered; IndexedColumns[0] is the search key
}

// Schema is the fully loaded database catalog.
type Schema struct {
	Entries []SchemaEntry
	Tables  map[string]*TableInfo
	Indices map[string]*IndexInfo
}

// LoadSchema reads every row of the page-1 schema table and classifies
// it into tables and indices, parsing CREATE TABLE statements with
// sqlparser to recover column names, declared types and the rowid-alias
// column (an INTEGER PRIMARY KEY column, which is not physically stored
// in the record — §10.5 of the expanded spec).
func LoadSchema(ctx context.Context, pager *Pager, cfg *config.DatabaseConfig) (*Schema, error) {
	entries, err := loadSchemaEntries(ctx, pager, cfg)
	if err != nil {
		return nil, dberrors.New("load_schema", err, nil)
	}

	schema := &Schema{
		Entries: entries,
		Tables:  make(map[string]*TableInfo),
		Indices: make(map[string]*IndexInfo),
	}

	for _, entry := range entries {
		if entry.Type != "table" || entry.Name == "sqlite_sequence" {
			continue
		}
		columns, err := parseTableColumns(entry.SQL)
		if err != nil {
			return nil, dberrors.New("load_schema", err, map[string]interface{}{"table": entry.Name})
		}
		schema.Tables[entry.Name] = &TableInfo{Entry: entry, Columns: columns}
	}

	for _, entry := range entries {
		if entry.Type != "index" {
			continue
		}
		columns, err := parseIndexedColumns(entry.SQL)
		if err != nil {
			return nil, dberrors.New("load_schema", err, map[string]interface{}{"index": entry.Name})
		}
		schema.Indices[entry.Name] = &IndexInfo{Entry: entry, IndexedColumns: columns}
	}

	return schema, nil
}

// loadSchemaEntries decodes the schema table's rows, preserving on-disk
// cell order (file order, per §6.1's .tables contract). When the schema
// root is itself a single leaf page — the common case — cells are
// decoded concurrently under a bounded worker pool sized from
// cfg.MaxConcurrency, the same fan-out shape as the query executor's
// fetchByIndex; a schema root that has outgrown one page (an interior
// page) falls back to the sequential B-tree walk, since ordering the
// fan-out across page boundaries would add complexity with no payoff
// for a catalog that almost never needs more than one page.
func loadSchemaEntries(ctx context.Context, pager *Pager, cfg *config.DatabaseConfig) ([]SchemaEntry, error) {
	header, page, pointers, err := pager.PageHeaderAndCells(ctx, schemaRootPage)
	if err != nil {
		return nil, err
	}
	if !header.IsTable() {
		return nil, dberrors.New("load_schema_entries", dberrors.ErrInvalidPageType, map[string]interface{}{"page_type": header.Type})
	}

	if !header.IsLeaf() {
		tree := &TableBTree{Pager: pager, RootPage: schemaRootPage, ColumnCount: 5}
		var entries []SchemaEntry
		err := tree.ScanAll(ctx, func(row TableRow) error {
			entry, err := decodeSchemaEntry(row)
			if err != nil {
				return err
			}
			entries = append(entries, entry)
			return nil
		})
		return entries, err
	}

	workers := 8
	if cfg != nil && cfg.MaxConcurrency > 0 {
		workers = cfg.MaxConcurrency
	}
	if workers > len(pointers) {
		workers = len(pointers)
	}
	if workers < 1 {
		workers = 1
	}

	type decoded struct {
		index int
		entry SchemaEntry
		err   error
	}

	work := make(chan int, len(pointers))
	results := make(chan decoded, len(pointers))

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range work {
				cell, err := DecodeTableLeafCell(page, pointers[i], 5)
				if err != nil {
					results <- decoded{index: i, err: err}
					continue
				}
				entry, err := decodeSchemaEntry(TableRow{Rowid: cell.Rowid, Values: cell.Values})
				results <- decoded{index: i, entry: entry, err: err}
			}
		}()
	}
	for i := range pointers {
		work <- i
	}
	close(work)
	wg.Wait()
	close(results)

	entries := make([]SchemaEntry, len(pointers))
	for res := range results {
		if res.err != nil {
			return nil, res.err
		}
		entries[res.index] = res.entry
	}
	return entries, nil
}

// decodeSchemaEntry maps a schema-table row's five columns (type, name,
// tbl_name, rootpage, sql) onto a SchemaEntry.
func decodeSchemaEntry(row TableRow) (SchemaEntry, error) {
	if len(row.Values) != 5 {
		return SchemaEntry{}, dberrors.New("decode_schema_entry", dberrors.ErrMalformedRecord, map[string]interface{}{
			"columns": len(row.Values),
		})
	}

	typ, err := row.Values[0].Text()
	if err != nil {
		return SchemaEntry{}, err
	}
	name, err := row.Values[1].Text()
	if err != nil {
		return SchemaEntry{}, err
	}
	tblName, err := row.Values[2].Text()
	if err != nil {
		return SchemaEntry{}, err
	}

	var rootPage uint32
	if !row.Values[3].IsNull() {
		rootPage = uint32(row.Values[3].Integer)
	}

	var sql string
	if !row.Values[4].IsNull() {
		sql, err = row.Values[4].Text()
		if err != nil {
			return SchemaEntry{}, err
		}
	}

	return SchemaEntry{Type: typ, Name: name, TblName: tblName, RootPage: rootPage, SQL: sql}, nil
}

// normalizeSQLiteDDL rewrites SQLite-only spellings sqlparser's MySQL
// dialect chokes on, following the same approach as the teacher's schema
// parser: strip quoted identifiers and fold SQLite's postfix
// AUTOINCREMENT onto the MySQL-style prefix keyword.
func normalizeSQLiteDDL(sql string) string {
	normalized := strings.ReplaceAll(sql, `"`, "")
	normalized = strings.ReplaceAll(normalized, "[", "")
	normalized = strings.ReplaceAll(normalized, "]", "")

	lower := strings.ToLower(normalized)
	if idx := strings.Index(lower, "primary key autoincrement"); idx >= 0 {
		normalized = normalized[:idx] + "AUTO_INCREMENT PRIMARY KEY" + normalized[idx+len("primary key autoincrement"):]
	}

	return strings.TrimSpace(normalized)
}

// parseTableColumns parses a CREATE TABLE statement into declared
// columns, marking the INTEGER PRIMARY KEY column (if any) as the
// rowid alias per §10.5.
func parseTableColumns(createSQL string) ([]Column, error) {
	stmt, err := sqlparser.Parse(normalizeSQLiteDDL(createSQL))
	if err != nil {
		return nil, dberrors.New("parse_table_columns", dberrors.ErrInvalidDatabase, map[string]interface{}{
			"sql": createSQL,
			"err": err.Error(),
		})
	}

	ddl, ok := stmt.(*sqlparser.DDL)
	if !ok || ddl.Action != "create" || ddl.TableSpec == nil {
		return nil, dberrors.New("parse_table_columns", dberrors.ErrInvalidDatabase, map[string]interface{}{"sql": createSQL})
	}

	columns := make([]Column, len(ddl.TableSpec.Columns))
	for i, col := range ddl.TableSpec.Columns {
		isAutoIncrement := bool(col.Type.Autoincrement)
		// sqlparser's DDL grammar only surfaces AUTOINCREMENT as a column
		// attribute; a plain `INTEGER PRIMARY KEY` with no AUTOINCREMENT
		// parses the same way as any other INTEGER column. Detecting it
		// as a rowid alias therefore falls back to a direct scan of the
		// declaration text, the same way the teacher's index-column
		// parser (parseIndexColumns in app/index_raw.go) bypasses
		// sqlparser for syntax it doesn't model.
		isRowidAlias := isAutoIncrement || (strings.EqualFold(col.Type.Type, "integer") && declaresPrimaryKey(createSQL, col.Name.String()))

		columns[i] = Column{
			Name:            col.Name.String(),
			DeclaredType:    col.Type.Type,
			Index:           i,
			IsRowidAlias:    isRowidAlias,
			IsAutoIncrement: isAutoIncrement,
		}
	}
	return columns, nil
}

// declaresPrimaryKey reports whether columnName's declaration in the
// original CREATE TABLE text carries a PRIMARY KEY column constraint.
func declaresPrimaryKey(createSQL, columnName string) bool {
	upper := strings.ToUpper(createSQL)
	idx := strings.Index(upper, strings.ToUpper(columnName))
	if idx < 0 {
		return false
	}
	rest := upper[idx:]
	if comma := strings.IndexAny(rest, ",)"); comma >= 0 {
		rest = rest[:comma]
	}
	return strings.Contains(rest, "PRIMARY KEY")
}

// parseIndexedColumns parses a CREATE INDEX statement's full column
// list, in declared order (§3's "Schema entry": "their order defines
// the index key order"). sqlparser's DDL grammar does not model CREATE
// INDEX, so — following the teacher's own parseIndexColumns
// (app/index_raw.go), which bypasses sqlparser for the same reason —
// this extracts the parenthesized column list directly from the SQL
// text. Only the first column drives equality search (§4.6); the rest
// are tiebreakers, but all are physically present in the index record
// and must be kept so callers can size the record decode correctly.
func parseIndexedColumns(createSQL string) ([]string, error) {
	start := strings.Index(createSQL, "(")
	end := strings.LastIndex(createSQL, ")")
	if start < 0 || end < 0 || start >= end {
		return nil, dberrors.New("parse_indexed_columns", dberrors.ErrInvalidDatabase, map[string]interface{}{"sql": createSQL})
	}

	parts := strings.Split(createSQL[start+1:end], ",")
	columns := make([]string, 0, len(parts))
	for _, part := range parts {
		columns = append(columns, strings.Trim(strings.TrimSpace(part), `"`))
	}
	if len(columns) == 0 || columns[0] == "" {
		return nil, dberrors.New("parse_indexed_columns", dberrors.ErrInvalidDatabase, map[string]interface{}{"sql": createSQL})
	}

	return columns, nil
}
