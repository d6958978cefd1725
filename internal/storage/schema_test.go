package storage

import (
	"testing"

	"github.com/kjwroe/sqlitero/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTableColumnsDetectsRowidAlias(t *testing.T) {
	sql := `CREATE TABLE apples (id integer primary key autoincrement, name text, color text)`
	columns, err := parseTableColumns(sql)
	require.NoError(t, err)
	require.Len(t, columns, 3)
	assert.True(t, columns[0].IsRowidAlias)
	assert.True(t, columns[0].IsAutoIncrement)
	assert.False(t, columns[1].IsRowidAlias)
	assert.Equal(t, "name", columns[1].Name)
}

func TestParseTableColumnsPlainIntegerPrimaryKey(t *testing.T) {
	sql := `CREATE TABLE oranges (id integer primary key, name text)`
	columns, err := parseTableColumns(sql)
	require.NoError(t, err)
	require.Len(t, columns, 2)
	assert.True(t, columns[0].IsRowidAlias)
	assert.False(t, columns[0].IsAutoIncrement)
}

func TestParseTableColumnsNonIntegerPrimaryKeyIsNotRowidAlias(t *testing.T) {
	sql := `CREATE TABLE widgets (code text primary key, name text)`
	columns, err := parseTableColumns(sql)
	require.NoError(t, err)
	assert.False(t, columns[0].IsRowidAlias)
}

func TestParseIndexedColumnsSingleColumn(t *testing.T) {
	cols, err := parseIndexedColumns(`CREATE INDEX idx_apples_color ON apples (color)`)
	require.NoError(t, err)
	assert.Equal(t, []string{"color"}, cols)
}

func TestParseIndexedColumnsCompositeIndex(t *testing.T) {
	cols, err := parseIndexedColumns(`CREATE INDEX idx_apples_color_name ON apples (color, name)`)
	require.NoError(t, err)
	assert.Equal(t, []string{"color", "name"}, cols)
}

func TestNormalizeSQLiteDDLStripsQuotesAndBrackets(t *testing.T) {
	normalized := normalizeSQLiteDDL(`CREATE TABLE "apples" ([id] integer)`)
	assert.NotContains(t, normalized, `"`)
	assert.NotContains(t, normalized, "[")
}

func buildSchemaRow(rowid int64, typ, name, tblName string, rootPage int64, sql string) []byte {
	values := []Value{
		{Kind: ValueText, Bytes: []byte(typ)},
		{Kind: ValueText, Bytes: []byte(name)},
		{Kind: ValueText, Bytes: []byte(tblName)},
		{Kind: ValueInteger, Integer: rootPage},
		{Kind: ValueText, Bytes: []byte(sql)},
	}
	return buildTableLeafCell(rowid, values)
}

func TestLoadSchemaDecodesEntriesConcurrentlyAndInOrder(t *testing.T) {
	pageSize := 1024
	cells := [][]byte{
		buildSchemaRow(1, "table", "apples", "apples", 2, "CREATE TABLE apples (id integer primary key, name text, color text)"),
		buildSchemaRow(2, "index", "idx_apples_color", "apples", 3, "CREATE INDEX idx_apples_color ON apples (color)"),
	}
	page := buildLeafPage(pageSize, PageLeafTable, cells, true)
	pager := newTestPager(page, pageSize)
	ctx := testContext(t)

	schema, err := LoadSchema(ctx, pager, config.Default())
	require.NoError(t, err)
	require.Len(t, schema.Entries, 2)
	assert.Equal(t, "apples", schema.Entries[0].Name)
	assert.Equal(t, "idx_apples_color", schema.Entries[1].Name)

	table, ok := schema.Tables["apples"]
	require.True(t, ok)
	require.Len(t, table.Columns, 3)
	assert.True(t, table.Columns[0].IsRowidAlias)

	idx, ok := schema.Indices["idx_apples_color"]
	require.True(t, ok)
	assert.Equal(t, []string{"color"}, idx.IndexedColumns)
}
