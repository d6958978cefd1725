package query

import (
	"strconv"

	"github.com/kjwroe/sqlitero/internal/dberrors"
)

func parseInt(s string) (int64, error) {
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, dberrors.New("parse_int_literal", dberrors.ErrUnsupported, map[string]interface{}{"value": s})
	}
	return n, nil
}

func parseFloat(s string) (float64, error) {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, dberrors.New("parse_float_literal", dberrors.ErrUnsupported, map[string]interface{}{"value": s})
	}
	return f, nil
}
