package storage

import (
	"bytes"
	"context"
	"encoding/binary"
	"testing"

	"github.com/kjwroe/sqlitero/internal/config"
)

func testContext(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	return ctx
}

// buildTableLeafCell encodes a table-leaf cell (payload size, rowid,
// record) for a record whose columns are all small integers or text.
func buildTableLeafCell(rowid int64, values []Value) []byte {
	body := encodeRecord(values)

	var buf bytes.Buffer
	writeVarint(&buf, int64(len(body)))
	writeVarint(&buf, rowid)
	buf.Write(body)
	return buf.Bytes()
}

func buildIndexLeafCell(indexedValue Value, rowid int64) []byte {
	body := encodeRecord([]Value{indexedValue, {Kind: ValueInteger, Integer: rowid}})

	var buf bytes.Buffer
	writeVarint(&buf, int64(len(body)))
	buf.Write(body)
	return buf.Bytes()
}

func encodeRecord(values []Value) []byte {
	var header bytes.Buffer
	var body bytes.Buffer

	for _, v := range values {
		switch v.Kind {
		case ValueNull:
			writeVarint(&header, 0)
		case ValueInteger:
			if v.Integer >= -128 && v.Integer <= 127 {
				writeVarint(&header, 1) // 1-byte integer serial type
				body.WriteByte(byte(v.Integer))
			} else {
				writeVarint(&header, 2) // 2-byte big-endian integer serial type
				body.WriteByte(byte(v.Integer >> 8))
				body.WriteByte(byte(v.Integer))
			}
		case ValueText:
			serialType := int64(13 + 2*len(v.Bytes))
			writeVarint(&header, serialType)
			body.Write(v.Bytes)
		}
	}

	var headerWithSize bytes.Buffer
	// header size varint must include itself; try increasing encodings
	// until the declared size matches the varint's own encoded length.
	for size := header.Len() + 1; ; size++ {
		headerWithSize.Reset()
		writeVarint(&headerWithSize, int64(size))
		if headerWithSize.Len()+header.Len() == size {
			break
		}
	}

	var full bytes.Buffer
	full.Write(headerWithSize.Bytes())
	full.Write(header.Bytes())
	full.Write(body.Bytes())
	return full.Bytes()
}

func writeVarint(buf *bytes.Buffer, v int64) {
	// Big-endian base-128 for values below 2^56; the 9-byte form is not
	// needed by these small test fixtures.
	var groups []byte
	for u := uint64(v); ; u >>= 7 {
		groups = append(groups, byte(u&0x7F))
		if u < 0x80 {
			break
		}
	}
	for i := len(groups) - 1; i > 0; i-- {
		buf.WriteByte(groups[i] | 0x80)
	}
	buf.WriteByte(groups[0])
}

// buildLeafPage assembles a full pageSize-byte table or index leaf page
// with the given cells, placing the file header prefix when isPageOne
// is set.
func buildLeafPage(pageSize int, pageType byte, cells [][]byte, isPageOne bool) []byte {
	page := make([]byte, pageSize)
	pageStart := 0
	if isPageOne {
		pageStart = fileHeaderSize
		copy(page[:16], headerMagic)
		binary.BigEndian.PutUint16(page[16:18], uint16(pageSize))
	}

	cellContentStart := pageSize
	offsets := make([]int, len(cells))
	for i := len(cells) - 1; i >= 0; i-- {
		cellContentStart -= len(cells[i])
		copy(page[cellContentStart:], cells[i])
		offsets[i] = cellContentStart
	}

	page[pageStart] = pageType
	binary.BigEndian.PutUint16(page[pageStart+1:pageStart+3], 0)
	binary.BigEndian.PutUint16(page[pageStart+3:pageStart+5], uint16(len(cells)))
	binary.BigEndian.PutUint16(page[pageStart+5:pageStart+7], uint16(cellContentStart))
	page[pageStart+7] = 0

	arrayOffset := pageStart + 8
	for i, off := range offsets {
		binary.BigEndian.PutUint16(page[arrayOffset+i*2:arrayOffset+i*2+2], uint16(off))
	}

	return page
}

func newTestPager(page []byte, pageSize int) *Pager {
	return NewPager(bytes.NewReader(page), uint32(pageSize), config.Default())
}

// newMultiPagePager concatenates a sequence of pageSize-byte page
// buffers (in 1-based page order: pages[0] is page 1) so multi-level
// B-tree fixtures can be read back through a single Pager.
func newMultiPagePager(pages [][]byte, pageSize int) *Pager {
	buf := make([]byte, 0, len(pages)*pageSize)
	for _, p := range pages {
		buf = append(buf, p...)
	}
	return NewPager(bytes.NewReader(buf), uint32(pageSize), config.Default())
}

// buildTableInteriorCell encodes a table-interior cell: a 4-byte
// left-child page number followed by a varint rowid key.
func buildTableInteriorCell(leftChild uint32, key int64) []byte {
	buf := make([]byte, 4)
	binary.BigEndian.PutUint32(buf, leftChild)
	var kbuf bytes.Buffer
	writeVarint(&kbuf, key)
	return append(buf, kbuf.Bytes()...)
}

// buildIndexInteriorCell encodes an index-interior cell: a 4-byte
// left-child page number followed by a leaf-shaped record (indexed
// value plus trailing rowid).
func buildIndexInteriorCell(leftChild uint32, indexedValue Value, rowid int64) []byte {
	var buf bytes.Buffer
	lc := make([]byte, 4)
	binary.BigEndian.PutUint32(lc, leftChild)
	buf.Write(lc)
	buf.Write(buildIndexLeafCell(indexedValue, rowid))
	return buf.Bytes()
}

// buildInteriorPage assembles a full pageSize-byte table or index
// interior page: a 12-byte header (including the rightmost-child
// pointer) followed by the cell-pointer array and packed cells.
func buildInteriorPage(pageSize int, pageType byte, cells [][]byte, rightmostChild uint32, isPageOne bool) []byte {
	page := make([]byte, pageSize)
	pageStart := 0
	if isPageOne {
		pageStart = fileHeaderSize
		copy(page[:16], headerMagic)
		binary.BigEndian.PutUint16(page[16:18], uint16(pageSize))
	}

	cellContentStart := pageSize
	offsets := make([]int, len(cells))
	for i := len(cells) - 1; i >= 0; i-- {
		cellContentStart -= len(cells[i])
		copy(page[cellContentStart:], cells[i])
		offsets[i] = cellContentStart
	}

	page[pageStart] = pageType
	binary.BigEndian.PutUint16(page[pageStart+1:pageStart+3], 0)
	binary.BigEndian.PutUint16(page[pageStart+3:pageStart+5], uint16(len(cells)))
	binary.BigEndian.PutUint16(page[pageStart+5:pageStart+7], uint16(cellContentStart))
	page[pageStart+7] = 0
	binary.BigEndian.PutUint32(page[pageStart+8:pageStart+12], rightmostChild)

	arrayOffset := pageStart + 12
	for i, off := range offsets {
		binary.BigEndian.PutUint16(page[arrayOffset+i*2:arrayOffset+i*2+2], uint16(off))
	}

	return page
}
