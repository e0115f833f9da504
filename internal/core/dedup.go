package core

import (
	"strconv"
	"strings"
)

// Deduplicate returns a table holding the first occurrence of every distinct
// record, in original order. Two records are equal only if their cell values
// match position by position in schema order.
//
// The input table must not be used after the call.
func Deduplicate(t *Table) *Table {
	out := &Table{
		Columns: t.Columns,
		Rows:    make([][]string, 0, len(t.Rows)),
	}

	seen := make(map[string]struct{}, len(t.Rows))
	for _, row := range t.Rows {
		key := recordKey(row)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out.Rows = append(out.Rows, row)
	}

	return out
}

// recordKey encodes the ordered cell values of a row. Each value is prefixed
// with its byte length, so no choice of cell contents can make two different
// tuples produce the same key.
func recordKey(row []string) string {
	var b strings.Builder
	for _, v := range row {
		b.WriteString(strconv.Itoa(len(v)))
		b.WriteByte(':')
		b.WriteString(v)
	}
	return b.String()
}
