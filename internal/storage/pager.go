package storage

import (
	"container/list"
	"context"
	"io"
	"sync"

	"github.com/kjwroe/sqlitero/internal/config"
	"github.com/kjwroe/sqlitero/internal/dberrors"
)

// Pager serves whole pages from an underlying io.ReaderAt, keeping the
// most recently used ones in a bounded LRU cache so repeated B-tree
// descents into hot pages (the schema page, index interior nodes) avoid
// re-reading the file.
type Pager struct {
	reader   io.ReaderAt
	pageSize uint32

	mu       sync.Mutex
	cache    map[uint32]*list.Element
	order    *list.List // front = most recently used
	capacity int
}

type pagerEntry struct {
	pageNumber uint32
	data       []byte
}

// NewPager creates a pager reading fixed-size pages from reader, bounded
// by cfg.PageCacheSize entries.
func NewPager(reader io.ReaderAt, pageSize uint32, cfg *config.DatabaseConfig) *Pager {
	capacity := 128
	if cfg != nil && cfg.PageCacheSize > 0 {
		capacity = cfg.PageCacheSize
	}
	return &Pager{
		reader:   reader,
		pageSize: pageSize,
		cache:    make(map[uint32]*list.Element),
		order:    list.New(),
		capacity: capacity,
	}
}

// ReadPage returns the full bytes of the 1-indexed page pageNumber,
// serving from cache when possible.
func (p *Pager) ReadPage(ctx context.Context, pageNumber uint32) ([]byte, error) {
	if pageNumber == 0 {
		return nil, dberrors.New("read_page", dberrors.ErrCorruptPage, map[string]interface{}{
			"page_number": pageNumber,
		})
	}
	if err := ctx.Err(); err != nil {
		return nil, dberrors.New("read_page", err, nil)
	}

	p.mu.Lock()
	if elem, ok := p.cache[pageNumber]; ok {
		p.order.MoveToFront(elem)
		data := elem.Value.(*pagerEntry).data
		p.mu.Unlock()
		return data, nil
	}
	p.mu.Unlock()

	buf := make([]byte, p.pageSize)
	offset := int64(pageNumber-1) * int64(p.pageSize)
	if _, err := p.reader.ReadAt(buf, offset); err != nil && err != io.EOF {
		return nil, dberrors.New("read_page", err, map[string]interface{}{
			"page_number": pageNumber,
			"offset":      offset,
		})
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if elem, ok := p.cache[pageNumber]; ok {
		p.order.MoveToFront(elem)
		return elem.Value.(*pagerEntry).data, nil
	}
	elem := p.order.PushFront(&pagerEntry{pageNumber: pageNumber, data: buf})
	p.cache[pageNumber] = elem
	p.evictLocked()

	return buf, nil
}

func (p *Pager) evictLocked() {
	for p.order.Len() > p.capacity {
		back := p.order.Back()
		if back == nil {
			return
		}
		entry := back.Value.(*pagerEntry)
		delete(p.cache, entry.pageNumber)
		p.order.Remove(back)
	}
}

// PageSize returns the fixed page size this pager was constructed with.
func (p *Pager) PageSize() uint32 { return p.pageSize }

// PageHeaderAndCells decodes the page header and cell-pointer array for
// pageNumber, accounting for the 100-byte file-header offset on page 1.
func (p *Pager) PageHeaderAndCells(ctx context.Context, pageNumber uint32) (*PageHeader, []byte, []int, error) {
	page, err := p.ReadPage(ctx, pageNumber)
	if err != nil {
		return nil, nil, nil, err
	}

	pageStart := 0
	if pageNumber == 1 {
		pageStart = fileHeaderSize
	}

	header, err := parsePageHeader(page, pageStart)
	if err != nil {
		return nil, nil, nil, err
	}
	pointers, err := cellPointers(page, pageStart, header)
	if err != nil {
		return nil, nil, nil, err
	}

	return header, page, pointers, nil
}
