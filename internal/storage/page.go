package storage

import (
	"encoding/binary"

	"github.com/kjwroe/sqlitero/internal/dberrors"
)

// Page kind tags, first byte of every B-tree page header.
const (
	PageInteriorIndex byte = 0x02
	PageInteriorTable byte = 0x05
	PageLeafIndex     byte = 0x0A
	PageLeafTable     byte = 0x0D
)

// PageHeader is the B-tree page header common to all four page kinds.
type PageHeader struct {
	Type             byte
	FirstFreeblock   uint16
	CellCount        uint16
	CellContentStart uint16
	FragmentedBytes  byte
	RightmostChild   uint32 // only meaningful for interior kinds
}

func (h *PageHeader) IsLeaf() bool {
	return h.Type == PageLeafTable || h.Type == PageLeafIndex
}

func (h *PageHeader) IsInterior() bool {
	return h.Type == PageInteriorTable || h.Type == PageInteriorIndex
}

func (h *PageHeader) IsTable() bool {
	return h.Type == PageLeafTable || h.Type == PageInteriorTable
}

func (h *PageHeader) IsIndex() bool {
	return h.Type == PageLeafIndex || h.Type == PageInteriorIndex
}

// cellPointerArrayOffset returns where the cell-pointer array begins, relative
// to pageStart (0 for most pages, 100 for page 1).
func (h *PageHeader) cellPointerArrayOffset() int {
	if h.IsInterior() {
		return 12
	}
	return 8
}

// parsePageHeader decodes the page header found at pageStart within page,
// where pageStart is 100 for page 1 (after the file header) and 0 for
// every other page.
func parsePageHeader(page []byte, pageStart int) (*PageHeader, error) {
	if pageStart+8 > len(page) {
		return nil, dberrors.New("parse_page_header", dberrors.ErrInsufficientData, map[string]interface{}{
			"page_start": pageStart,
			"len":        len(page),
		})
	}

	h := &PageHeader{
		Type:             page[pageStart],
		FirstFreeblock:   binary.BigEndian.Uint16(page[pageStart+1 : pageStart+3]),
		CellCount:        binary.BigEndian.Uint16(page[pageStart+3 : pageStart+5]),
		CellContentStart: binary.BigEndian.Uint16(page[pageStart+5 : pageStart+7]),
		FragmentedBytes:  page[pageStart+7],
	}

	switch h.Type {
	case PageInteriorIndex, PageInteriorTable, PageLeafIndex, PageLeafTable:
	default:
		return nil, dberrors.New("parse_page_header", dberrors.ErrCorruptPage, map[string]interface{}{
			"page_type": h.Type,
		})
	}

	if h.IsInterior() {
		if pageStart+12 > len(page) {
			return nil, dberrors.New("parse_page_header", dberrors.ErrInsufficientData, nil)
		}
		h.RightmostChild = binary.BigEndian.Uint32(page[pageStart+8 : pageStart+12])
	}

	return h, nil
}

// cellPointers reads the N=CellCount big-endian u16 offsets that make up
// the cell-pointer array, each relative to pageStart==0 for non-page-1
// pages (page 1's pointers are relative to the start of the page, i.e.
// offset 0, even though its header sits at offset 100).
func cellPointers(page []byte, pageStart int, header *PageHeader) ([]int, error) {
	arrayOffset := pageStart + header.cellPointerArrayOffset()
	n := int(header.CellCount)

	pointers := make([]int, n)
	for i := 0; i < n; i++ {
		off := arrayOffset + i*2
		if off+2 > len(page) {
			return nil, dberrors.New("cell_pointers", dberrors.ErrCorruptPage, map[string]interface{}{
				"index": i,
			})
		}
		ptr := binary.BigEndian.Uint16(page[off : off+2])
		if ptr == 0 || int(ptr) >= len(page) {
			return nil, dberrors.New("cell_pointers", dberrors.ErrInvalidCellPointer, map[string]interface{}{
				"index": i,
				"value": ptr,
			})
		}
		pointers[i] = int(ptr)
	}
	return pointers, nil
}
