package storage

import (
	"context"

	"github.com/kjwroe/sqlitero/internal/dberrors"
)

// IndexBTree walks the index B-tree rooted at RootPage. ColumnCount is
// the number of indexed columns plus one for the trailing rowid column
// every index record carries.
type IndexBTree struct {
	Pager       *Pager
	RootPage    uint32
	ColumnCount int
}

// SearchEqual returns the table rowids of every index entry whose first
// indexed column equals key, per §4.6: at each interior node, an entry's
// key is compared to the search key; matches are emitted AND the left
// child is still descended (duplicate keys can appear in unbounded
// positions to either side), while a strictly-greater entry stops the
// rightward scan. A NULL separator key at the left edge is always
// descended regardless of key, since NULL sorts lowest.
func (t *IndexBTree) SearchEqual(ctx context.Context, key Value) ([]int64, error) {
	var rowids []int64
	err := t.search(ctx, t.RootPage, key, 0, &rowids)
	return rowids, err
}

func (t *IndexBTree) search(ctx context.Context, pageNumber uint32, key Value, depth int, out *[]int64) error {
	if depth > maxDescentDepth {
		return dberrors.New("index_btree_search", dberrors.ErrCorruptPage, map[string]interface{}{
			"reason": "descent depth exceeded, likely a page cycle",
		})
	}

	header, page, pointers, err := t.Pager.PageHeaderAndCells(ctx, pageNumber)
	if err != nil {
		return err
	}
	if !header.IsIndex() {
		return dberrors.New("index_btree_search", dberrors.ErrInvalidPageType, map[string]interface{}{
			"page_number": pageNumber,
			"page_type":   header.Type,
		})
	}

	if header.IsLeaf() {
		for _, offset := range pointers {
			cell, err := DecodeIndexLeafCell(page, offset, t.ColumnCount)
			if err != nil {
				return err
			}
			if len(cell.Values) == 0 {
				continue
			}
			switch Compare(cell.Values[0], key) {
			case 0:
				*out = append(*out, cell.Rowid)
			case 1:
				return nil // keys are sorted ascending; no further match possible on this leaf
			}
		}
		return nil
	}

	for _, offset := range pointers {
		cell, err := DecodeIndexInteriorCell(page, offset, t.ColumnCount)
		if err != nil {
			return err
		}

		// A NULL separator sorts lowest: the left subtree may still hold
		// matches even when the search key is non-NULL, so always descend.
		isNullSeparator := len(cell.Values) == 0 || cell.Values[0].IsNull()
		cmp := -1
		if !isNullSeparator {
			cmp = Compare(cell.Values[0], key)
		}

		if isNullSeparator || cmp >= 0 {
			if err := t.search(ctx, cell.LeftChild, key, depth+1, out); err != nil {
				return err
			}
		}
		if cmp == 0 {
			*out = append(*out, cell.Rowid)
		}
		if cmp > 0 {
			return nil // separator keys ascend; no further match possible to the right
		}
	}

	if header.RightmostChild != 0 {
		if err := t.search(ctx, header.RightmostChild, key, depth+1, out); err != nil {
			return err
		}
	}
	return nil
}
