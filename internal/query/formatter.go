package query

import (
	"strconv"
	"strings"

	"github.com/kjwroe/sqlitero/internal/dberrors"
	"github.com/kjwroe/sqlitero/internal/storage"
)

// FormatValue renders a single value the way the teacher's
// ConsoleFormatter does (app/formatter.go): NULL prints as "null",
// numerics in their shortest decimal form, text raw.
func FormatValue(v storage.Value) (string, error) {
	return v.Render()
}

// FormatRows renders a projected result as pipe-separated rows, one per
// line, matching the teacher's multi-column SELECT output
// (handleSelectColumns joins with "|"; a single column prints bare).
func FormatRows(result *Result) (string, error) {
	if result.CountStar {
		return strconv.FormatInt(result.Count, 10) + "\n", nil
	}

	var b strings.Builder
	for _, row := range result.Rows {
		parts := make([]string, len(row))
		for i, v := range row {
			rendered, err := FormatValue(v)
			if err != nil {
				return "", dberrors.New("format_row", err, nil)
			}
			parts[i] = rendered
		}
		b.WriteString(strings.Join(parts, "|"))
		b.WriteString("\n")
	}
	return b.String(), nil
}
