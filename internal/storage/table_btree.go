package storage

import (
	"context"

	"github.com/kjwroe/sqlitero/internal/dberrors"
)

// maxDescentDepth bounds how many levels a B-tree walk may descend before
// it is treated as a cycle (a malformed file could otherwise loop the
// walker forever by pointing a child back at an ancestor).
const maxDescentDepth = 64

// TableRow is one row yielded by a table B-tree walk: its rowid and the
// decoded column values in declared-schema order. Values holds what the
// record stores, so an INTEGER PRIMARY KEY column reads as NULL there;
// its value is Rowid.
type TableRow struct {
	Rowid  int64
	Values []Value
}

// TableBTree walks the table B-tree rooted at RootPage.
type TableBTree struct {
	Pager       *Pager
	RootPage    uint32
	ColumnCount int
}

// ScanAll visits every row in the table in ascending rowid order (the
// order table leaf pages are chained left-to-right), calling visit for
// each. Returning an error from visit stops the walk early.
func (t *TableBTree) ScanAll(ctx context.Context, visit func(TableRow) error) error {
	return t.walk(ctx, t.RootPage, 0, visit)
}

func (t *TableBTree) walk(ctx context.Context, pageNumber uint32, depth int, visit func(TableRow) error) error {
	if depth > maxDescentDepth {
		return dberrors.New("table_btree_walk", dberrors.ErrCorruptPage, map[string]interface{}{
			"reason": "descent depth exceeded, likely a page cycle",
		})
	}

	header, page, pointers, err := t.Pager.PageHeaderAndCells(ctx, pageNumber)
	if err != nil {
		return err
	}
	if !header.IsTable() {
		return dberrors.New("table_btree_walk", dberrors.ErrInvalidPageType, map[string]interface{}{
			"page_number": pageNumber,
			"page_type":   header.Type,
		})
	}

	if header.IsLeaf() {
		var prevRowid int64
		havePrev := false
		for _, offset := range pointers {
			cell, err := DecodeTableLeafCell(page, offset, t.ColumnCount)
			if err != nil {
				return err
			}
			if havePrev && cell.Rowid <= prevRowid {
				return dberrors.New("table_btree_walk", dberrors.ErrCorruptPage, map[string]interface{}{
					"reason": "leaf cell rowids not strictly increasing",
				})
			}
			prevRowid, havePrev = cell.Rowid, true

			if err := visit(TableRow{Rowid: cell.Rowid, Values: cell.Values}); err != nil {
				return err
			}
		}
		return nil
	}

	for _, offset := range pointers {
		cell, err := DecodeTableInteriorCell(page, offset)
		if err != nil {
			return err
		}
		if err := t.walk(ctx, cell.LeftChild, depth+1, visit); err != nil {
			return err
		}
	}
	if header.RightmostChild != 0 {
		if err := t.walk(ctx, header.RightmostChild, depth+1, visit); err != nil {
			return err
		}
	}
	return nil
}

// Lookup descends directly to the leaf that would contain rowid, using
// the interior-cell key (largest rowid of the left subtree) to choose a
// child at each level, and returns the matching row or (nil, nil) if
// rowid is absent.
func (t *TableBTree) Lookup(ctx context.Context, rowid int64) (*TableRow, error) {
	return t.lookup(ctx, t.RootPage, rowid, 0)
}

func (t *TableBTree) lookup(ctx context.Context, pageNumber uint32, rowid int64, depth int) (*TableRow, error) {
	if depth > maxDescentDepth {
		return nil, dberrors.New("table_btree_lookup", dberrors.ErrCorruptPage, map[string]interface{}{
			"reason": "descent depth exceeded, likely a page cycle",
		})
	}

	header, page, pointers, err := t.Pager.PageHeaderAndCells(ctx, pageNumber)
	if err != nil {
		return nil, err
	}
	if !header.IsTable() {
		return nil, dberrors.New("table_btree_lookup", dberrors.ErrInvalidPageType, map[string]interface{}{
			"page_number": pageNumber,
			"page_type":   header.Type,
		})
	}

	if header.IsLeaf() {
		for _, offset := range pointers {
			cell, err := DecodeTableLeafCell(page, offset, t.ColumnCount)
			if err != nil {
				return nil, err
			}
			if cell.Rowid == rowid {
				return &TableRow{Rowid: cell.Rowid, Values: cell.Values}, nil
			}
		}
		return nil, nil
	}

	for _, offset := range pointers {
		cell, err := DecodeTableInteriorCell(page, offset)
		if err != nil {
			return nil, err
		}
		if rowid <= cell.Key {
			return t.lookup(ctx, cell.LeftChild, rowid, depth+1)
		}
	}
	if header.RightmostChild == 0 {
		return nil, nil
	}
	return t.lookup(ctx, header.RightmostChild, rowid, depth+1)
}

// CountRows returns the total row count by summing leaf cell counts
// across the tree, without materializing every row's values — the fast
// path for `SELECT COUNT(*) FROM t` (§9 of the expanded spec).
func (t *TableBTree) CountRows(ctx context.Context) (int64, error) {
	return t.countRows(ctx, t.RootPage, 0)
}

func (t *TableBTree) countRows(ctx context.Context, pageNumber uint32, depth int) (int64, error) {
	if depth > maxDescentDepth {
		return 0, dberrors.New("table_btree_count", dberrors.ErrCorruptPage, map[string]interface{}{
			"reason": "descent depth exceeded, likely a page cycle",
		})
	}

	header, page, pointers, err := t.Pager.PageHeaderAndCells(ctx, pageNumber)
	if err != nil {
		return 0, err
	}
	if !header.IsTable() {
		return 0, dberrors.New("table_btree_count", dberrors.ErrInvalidPageType, map[string]interface{}{
			"page_number": pageNumber,
		})
	}

	if header.IsLeaf() {
		return int64(header.CellCount), nil
	}

	var total int64
	for _, offset := range pointers {
		cell, err := DecodeTableInteriorCell(page, offset)
		if err != nil {
			return 0, err
		}
		n, err := t.countRows(ctx, cell.LeftChild, depth+1)
		if err != nil {
			return 0, err
		}
		total += n
	}
	if header.RightmostChild != 0 {
		n, err := t.countRows(ctx, header.RightmostChild, depth+1)
		if err != nil {
			return 0, err
		}
		total += n
	}
	return total, nil
}
