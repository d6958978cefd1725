package storage

import (
	"encoding/binary"
	"math"

	"github.com/kjwroe/sqlitero/internal/dberrors"
)

// ReadVarint decodes a SQLite varint starting at offset in data, returning
// the decoded value and the number of bytes consumed. Bytes 1-8 contribute
// their low 7 bits, with the high bit signalling continuation; a 9th byte,
// if reached, contributes all 8 bits.
func ReadVarint(data []byte, offset int) (int64, int, error) {
	if offset < 0 || offset >= len(data) {
		return 0, 0, dberrors.New("read_varint", dberrors.ErrMalformedVarint, map[string]interface{}{
			"offset": offset,
			"len":    len(data),
		})
	}

	var result uint64
	for i := 0; i < 9; i++ {
		pos := offset + i
		if pos >= len(data) {
			return 0, 0, dberrors.New("read_varint", dberrors.ErrMalformedVarint, map[string]interface{}{
				"offset": offset,
				"at":     pos,
			})
		}
		b := data[pos]
		if i == 8 {
			result = (result << 8) | uint64(b)
			return int64(result), i + 1, nil
		}
		result = (result << 7) | uint64(b&0x7F)
		if b&0x80 == 0 {
			return int64(result), i + 1, nil
		}
	}
	return int64(result), 9, nil
}

// ReadBigEndianInt reads an n-byte (n in {1,2,3,4,6,8}) big-endian
// sign-extended signed integer from data starting at offset.
func ReadBigEndianInt(data []byte, offset, n int) (int64, error) {
	if offset < 0 || offset+n > len(data) {
		return 0, dberrors.New("read_be_int", dberrors.ErrInsufficientData, map[string]interface{}{
			"offset": offset,
			"n":      n,
			"len":    len(data),
		})
	}

	switch n {
	case 1:
		return int64(int8(data[offset])), nil
	case 2:
		return int64(int16(binary.BigEndian.Uint16(data[offset : offset+2]))), nil
	case 3:
		b := data[offset : offset+3]
		v := int32(b[0])<<16 | int32(b[1])<<8 | int32(b[2])
		if v&0x800000 != 0 {
			v |= ^int32(0xFFFFFF)
		}
		return int64(v), nil
	case 4:
		return int64(int32(binary.BigEndian.Uint32(data[offset : offset+4]))), nil
	case 6:
		b := data[offset : offset+6]
		v := int64(b[0])<<40 | int64(b[1])<<32 | int64(b[2])<<24 | int64(b[3])<<16 | int64(b[4])<<8 | int64(b[5])
		if v&0x800000000000 != 0 {
			v |= ^int64(0xFFFFFFFFFFFF)
		}
		return v, nil
	case 8:
		return int64(binary.BigEndian.Uint64(data[offset : offset+8])), nil
	default:
		return 0, dberrors.New("read_be_int", dberrors.ErrUnsupported, map[string]interface{}{"n": n})
	}
}

// ReadBigEndianFloat64 reads an IEEE-754 big-endian double at offset.
func ReadBigEndianFloat64(data []byte, offset int) (float64, error) {
	if offset < 0 || offset+8 > len(data) {
		return 0, dberrors.New("read_be_float64", dberrors.ErrInsufficientData, map[string]interface{}{"offset": offset})
	}
	bits := binary.BigEndian.Uint64(data[offset : offset+8])
	return math.Float64frombits(bits), nil
}

// SerialTypeSize returns the number of body bytes a serial type occupies.
func SerialTypeSize(t int64) int {
	switch {
	case t == 0, t == 8, t == 9:
		return 0
	case t >= 1 && t <= 4:
		return int(t)
	case t == 5:
		return 6
	case t == 6, t == 7:
		return 8
	case t >= 12 && t%2 == 0:
		return int((t - 12) / 2)
	case t >= 13 && t%2 == 1:
		return int((t - 13) / 2)
	default:
		return 0
	}
}

// Kind classifies what a serial type stores, independent of exact size.
type Kind int

const (
	KindNull Kind = iota
	KindInteger
	KindFloat
	KindZero
	KindOne
	KindText
	KindBlob
	KindReserved
)

// SerialTypeKind classifies a serial type per the SQLite record format.
func SerialTypeKind(t int64) Kind {
	switch {
	case t == 0:
		return KindNull
	case t >= 1 && t <= 6:
		return KindInteger
	case t == 7:
		return KindFloat
	case t == 8:
		return KindZero
	case t == 9:
		return KindOne
	case t == 10 || t == 11:
		return KindReserved
	case t >= 12 && t%2 == 0:
		return KindBlob
	case t >= 13 && t%2 == 1:
		return KindText
	default:
		return KindReserved
	}
}
