package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePageHeaderLeafTable(t *testing.T) {
	cell := buildTableLeafCell(1, []Value{{Kind: ValueInteger, Integer: 7}})
	page := buildLeafPage(512, PageLeafTable, [][]byte{cell}, false)

	header, err := parsePageHeader(page, 0)
	require.NoError(t, err)
	assert.True(t, header.IsLeaf())
	assert.True(t, header.IsTable())
	assert.Equal(t, uint16(1), header.CellCount)
}

func TestParsePageHeaderRejectsUnknownType(t *testing.T) {
	page := make([]byte, 512)
	page[0] = 0x99
	_, err := parsePageHeader(page, 0)
	assert.Error(t, err)
}

func TestCellPointersRejectsOutOfBounds(t *testing.T) {
	page := make([]byte, 512)
	page[0] = PageLeafTable
	page[3] = 0x00
	page[4] = 0x01 // 1 cell
	// Leave the single pointer entry as zero -> invalid.
	header, err := parsePageHeader(page, 0)
	require.NoError(t, err)
	_, err = cellPointers(page, 0, header)
	assert.Error(t, err)
}

func TestPagerReadPageCachesByPageNumber(t *testing.T) {
	pageSize := 512
	cell := buildTableLeafCell(1, []Value{{Kind: ValueInteger, Integer: 9}})
	page := buildLeafPage(pageSize, PageLeafTable, [][]byte{cell}, true)

	pager := newTestPager(page, pageSize)
	ctx := testContext(t)

	first, err := pager.ReadPage(ctx, 1)
	require.NoError(t, err)
	second, err := pager.ReadPage(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}
