package storage

import (
	"encoding/binary"

	"github.com/kjwroe/sqlitero/internal/dberrors"
)

const (
	fileHeaderSize = 100
	headerMagic    = "SQLite format 3\x00"
)

// FileHeader is the fixed 100-byte prefix of page 1.
type FileHeader struct {
	PageSize uint32 // actual page size; the on-disk value 1 means 65536
}

// ParseFileHeader validates the magic string and page size and returns the
// decoded header.
func ParseFileHeader(data []byte) (*FileHeader, error) {
	if len(data) < fileHeaderSize {
		return nil, dberrors.New("parse_file_header", dberrors.ErrInsufficientData, map[string]interface{}{
			"have": len(data),
			"need": fileHeaderSize,
		})
	}
	if string(data[:16]) != headerMagic {
		return nil, dberrors.New("parse_file_header", dberrors.ErrInvalidDatabase, map[string]interface{}{
			"magic": string(data[:16]),
		})
	}

	raw := binary.BigEndian.Uint16(data[16:18])
	pageSize := uint32(raw)
	if raw == 1 {
		pageSize = 65536
	}
	if pageSize < 256 || pageSize > 65536 || pageSize&(pageSize-1) != 0 {
		return nil, dberrors.New("parse_file_header", dberrors.ErrInvalidDatabase, map[string]interface{}{
			"page_size": pageSize,
		})
	}

	return &FileHeader{PageSize: pageSize}, nil
}
