package storage

import (
	"fmt"
	"strconv"
	"unicode/utf8"

	"github.com/kjwroe/sqlitero/internal/dberrors"
)

// ValueKind tags which alternative of Value is populated.
type ValueKind int

const (
	ValueNull ValueKind = iota
	ValueInteger
	ValueReal
	ValueText
	ValueBlob
)

// Value is a tagged SQLite storage-class value: Null, Integer(i64),
// Real(f64), Text(bytes) or Blob(bytes). Keeping this as a sum type rather
// than coercing everything to float64 preserves 64-bit integer precision
// and lets TEXT compare byte-wise against string literals.
type Value struct {
	Kind    ValueKind
	Integer int64
	Real    float64
	Bytes   []byte // Text or Blob payload
}

// NewValueFromSerial decodes a column body given its serial type and raw
// body bytes (already sliced to the body's length).
func NewValueFromSerial(serialType int64, body []byte) (Value, error) {
	switch SerialTypeKind(serialType) {
	case KindNull:
		return Value{Kind: ValueNull}, nil
	case KindZero:
		return Value{Kind: ValueInteger, Integer: 0}, nil
	case KindOne:
		return Value{Kind: ValueInteger, Integer: 1}, nil
	case KindInteger:
		n := SerialTypeSize(serialType)
		v, err := ReadBigEndianInt(body, 0, n)
		if err != nil {
			return Value{}, err
		}
		return Value{Kind: ValueInteger, Integer: v}, nil
	case KindFloat:
		f, err := ReadBigEndianFloat64(body, 0)
		if err != nil {
			return Value{}, err
		}
		return Value{Kind: ValueReal, Real: f}, nil
	case KindText:
		return Value{Kind: ValueText, Bytes: body}, nil
	case KindBlob:
		return Value{Kind: ValueBlob, Bytes: body}, nil
	default:
		return Value{}, dberrors.New("decode_value", dberrors.ErrUnsupported, map[string]interface{}{
			"serial_type": serialType,
		})
	}
}

// IsNull reports whether the value is SQL NULL.
func (v Value) IsNull() bool { return v.Kind == ValueNull }

// Text returns the value's text, validating UTF-8. Only called when a TEXT
// column is materialized for output or comparison, per the lazy-validation
// rule in the record decoder's contract.
func (v Value) Text() (string, error) {
	if v.Kind != ValueText {
		return "", dberrors.New("value_text", dberrors.ErrUnsupported, map[string]interface{}{"kind": v.Kind})
	}
	if !utf8.Valid(v.Bytes) {
		return "", dberrors.New("value_text", dberrors.ErrEncoding, nil)
	}
	return string(v.Bytes), nil
}

// Render formats a value for row output per §4.7: NULL -> "null", integers
// and reals in shortest decimal form, text raw, blob unsupported.
func (v Value) Render() (string, error) {
	switch v.Kind {
	case ValueNull:
		return "null", nil
	case ValueInteger:
		return strconv.FormatInt(v.Integer, 10), nil
	case ValueReal:
		return strconv.FormatFloat(v.Real, 'g', -1, 64), nil
	case ValueText:
		return v.Text()
	case ValueBlob:
		return "", dberrors.New("render_value", dberrors.ErrUnsupported, map[string]interface{}{"kind": "blob"})
	default:
		return "", fmt.Errorf("unknown value kind %v", v.Kind)
	}
}

// storageClassRank orders Null < numeric < Text < Blob, per SQLite's
// storage-class ordering used for index key comparisons.
func storageClassRank(v Value) int {
	switch v.Kind {
	case ValueNull:
		return 0
	case ValueInteger, ValueReal:
		return 1
	case ValueText:
		return 2
	case ValueBlob:
		return 3
	default:
		return 4
	}
}

func numeric(v Value) float64 {
	if v.Kind == ValueInteger {
		return float64(v.Integer)
	}
	return v.Real
}

// Compare orders two values per SQLite storage-class rules: Null is least,
// then numeric (by mathematical value), then Text (BINARY byte-wise), then
// Blob. Returns -1, 0, or 1.
func Compare(a, b Value) int {
	ra, rb := storageClassRank(a), storageClassRank(b)
	if ra != rb {
		if ra < rb {
			return -1
		}
		return 1
	}
	switch ra {
	case 0: // both Null
		return 0
	case 1: // both numeric
		na, nb := numeric(a), numeric(b)
		switch {
		case na < nb:
			return -1
		case na > nb:
			return 1
		default:
			return 0
		}
	case 2, 3: // Text or Blob: byte-wise
		switch {
		case string(a.Bytes) < string(b.Bytes):
			return -1
		case string(a.Bytes) > string(b.Bytes):
			return 1
		default:
			return 0
		}
	default:
		return 0
	}
}

// Column describes one declared column of a table or index.
type Column struct {
	Name            string
	DeclaredType    string
	Index           int
	IsRowidAlias    bool // INTEGER PRIMARY KEY — value equals the cell rowid
	IsAutoIncrement bool
}

// Row is a decoded record projected into a fixed column order matching the
// owning table's declared schema (with the rowid alias column substituted
// in, since it is not physically stored).
type Row struct {
	Rowid  int64
	Values []Value
}

// Get returns the value at columnIndex.
func (r Row) Get(columnIndex int) (Value, error) {
	if columnIndex < 0 || columnIndex >= len(r.Values) {
		return Value{}, dberrors.New("row_get", dberrors.ErrColumnNotFound, map[string]interface{}{
			"index": columnIndex,
			"len":   len(r.Values),
		})
	}
	return r.Values[columnIndex], nil
}
