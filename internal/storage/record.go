package storage

import (
	"github.com/kjwroe/sqlitero/internal/dberrors"
)

// DecodeRecord decodes a record (header-size varint, C serial-type
// varints, then C bodies) starting at offset 0 of payload. The caller
// supplies the expected column count C; if the header does not decode
// exactly C serial types consuming precisely the declared header size,
// decoding fails with ErrMalformedRecord.
func DecodeRecord(payload []byte, columnCount int) ([]Value, error) {
	headerSize, n, err := ReadVarint(payload, 0)
	if err != nil {
		return nil, dberrors.New("decode_record_header_size", err, nil)
	}

	serialTypes := make([]int64, 0, columnCount)
	cursor := n
	for cursor < int(headerSize) {
		st, consumed, err := ReadVarint(payload, cursor)
		if err != nil {
			return nil, dberrors.New("decode_serial_type", err, map[string]interface{}{"cursor": cursor})
		}
		serialTypes = append(serialTypes, st)
		cursor += consumed
	}

	if cursor != int(headerSize) {
		return nil, dberrors.New("decode_record_header", dberrors.ErrMalformedRecord, map[string]interface{}{
			"header_size":   headerSize,
			"cursor_landed": cursor,
		})
	}
	if columnCount >= 0 && len(serialTypes) != columnCount {
		return nil, dberrors.New("decode_record_header", dberrors.ErrMalformedRecord, map[string]interface{}{
			"want_columns": columnCount,
			"got_columns":  len(serialTypes),
		})
	}

	values := make([]Value, len(serialTypes))
	bodyCursor := cursor
	for i, st := range serialTypes {
		size := SerialTypeSize(st)
		if bodyCursor+size > len(payload) {
			return nil, dberrors.New("decode_record_body", dberrors.ErrMalformedRecord, map[string]interface{}{
				"column": i,
				"need":   bodyCursor + size,
				"have":   len(payload),
			})
		}
		v, err := NewValueFromSerial(st, payload[bodyCursor:bodyCursor+size])
		if err != nil {
			return nil, err
		}
		values[i] = v
		bodyCursor += size
	}

	return values, nil
}

// TableLeafCell is a decoded cell from a table leaf page (kind 0x0D):
// varint payload size, varint rowid, then a record.
type TableLeafCell struct {
	Rowid  int64
	Values []Value
}

// DecodeTableLeafCell decodes a table-leaf cell at offset within page,
// given the expected column count. Overflow payloads (payload size larger
// than what fits on the local page) are rejected with ErrUnsupported
// rather than chasing an overflow chain (§10.4 of the expanded spec).
func DecodeTableLeafCell(page []byte, offset int, columnCount int) (*TableLeafCell, error) {
	payloadSize, n1, err := ReadVarint(page, offset)
	if err != nil {
		return nil, err
	}
	rowid, n2, err := ReadVarint(page, offset+n1)
	if err != nil {
		return nil, err
	}

	payloadStart := offset + n1 + n2
	if payloadStart+int(payloadSize) > len(page) {
		return nil, dberrors.New("decode_table_leaf_cell", dberrors.ErrUnsupported, map[string]interface{}{
			"reason": "payload would require an overflow page",
		})
	}

	values, err := DecodeRecord(page[payloadStart:payloadStart+int(payloadSize)], columnCount)
	if err != nil {
		return nil, err
	}

	return &TableLeafCell{Rowid: rowid, Values: values}, nil
}

// TableInteriorCell is a decoded cell from a table interior page (kind
// 0x05): a 4-byte left-child page number and a varint key equal to the
// largest rowid in that child's subtree.
type TableInteriorCell struct {
	LeftChild uint32
	Key       int64
}

// DecodeTableInteriorCell decodes a table-interior cell at offset.
func DecodeTableInteriorCell(page []byte, offset int) (*TableInteriorCell, error) {
	child, err := ReadBigEndianInt(page, offset, 4)
	if err != nil {
		return nil, err
	}
	key, _, err := ReadVarint(page, offset+4)
	if err != nil {
		return nil, err
	}
	return &TableInteriorCell{LeftChild: uint32(child), Key: key}, nil
}

// IndexLeafCell is a decoded cell from an index leaf page (kind 0x0A): a
// varint payload size followed by a record whose last column is the
// table rowid.
type IndexLeafCell struct {
	Values []Value // indexed columns only; the record's trailing rowid column is held in Rowid
	Rowid  int64
}

// DecodeIndexLeafCell decodes an index-leaf cell at offset. columnCount is
// the number of indexed columns plus one (for the trailing rowid column).
func DecodeIndexLeafCell(page []byte, offset int, columnCount int) (*IndexLeafCell, error) {
	payloadSize, n, err := ReadVarint(page, offset)
	if err != nil {
		return nil, err
	}
	payloadStart := offset + n
	if payloadStart+int(payloadSize) > len(page) {
		return nil, dberrors.New("decode_index_leaf_cell", dberrors.ErrUnsupported, map[string]interface{}{
			"reason": "payload would require an overflow page",
		})
	}

	values, err := DecodeRecord(page[payloadStart:payloadStart+int(payloadSize)], columnCount)
	if err != nil {
		return nil, err
	}
	if len(values) == 0 {
		return nil, dberrors.New("decode_index_leaf_cell", dberrors.ErrMalformedRecord, nil)
	}

	rowidValue := values[len(values)-1]
	rowid := rowidValue.Integer
	return &IndexLeafCell{Values: values[:len(values)-1], Rowid: rowid}, nil
}

// IndexInteriorCell is a decoded cell from an index interior page (kind
// 0x02): a 4-byte left-child page number, then a record as in the leaf.
type IndexInteriorCell struct {
	LeftChild uint32
	Values    []Value
	Rowid     int64
}

// DecodeIndexInteriorCell decodes an index-interior cell at offset.
func DecodeIndexInteriorCell(page []byte, offset int, columnCount int) (*IndexInteriorCell, error) {
	child, err := ReadBigEndianInt(page, offset, 4)
	if err != nil {
		return nil, err
	}

	leaf, err := DecodeIndexLeafCell(page, offset+4, columnCount)
	if err != nil {
		return nil, err
	}

	return &IndexInteriorCell{LeftChild: uint32(child), Values: leaf.Values, Rowid: leaf.Rowid}, nil
}
