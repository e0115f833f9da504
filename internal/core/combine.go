package core

// ColumnMerge describes two source columns joined into one target column.
type ColumnMerge struct {
	First  string
	Second string
	Target string
	Sep    string
}

// DateWhenSold joins the sale month and year into "month/year".
var DateWhenSold = ColumnMerge{
	First:  "Mo Sold",
	Second: "Yr Sold",
	Target: "Date When Sold",
	Sep:    "/",
}

// Applies reports whether t has both source columns.
func (m ColumnMerge) Applies(t *Table) bool {
	return t.HasColumn(m.First) && t.HasColumn(m.Second)
}

// CombineColumns replaces the two source columns with the merged column and
// reports whether it did. The merged column is appended as the last column, or
// overwritten in place when the table already has a column with that name.
//
// Values are joined as they stand, after normalization, so a month of "06"
// that lost its zero earlier yields "6/2010". When either source column is
// missing the table is returned unchanged.
func CombineColumns(t *Table, m ColumnMerge) (*Table, bool) {
	if !m.Applies(t) {
		return t, false
	}

	first := t.ColumnIndex(m.First)
	second := t.ColumnIndex(m.Second)
	target := t.ColumnIndex(m.Target)

	// Surviving positions, in schema order
	keep := make([]int, 0, len(t.Columns))
	for j := range t.Columns {
		if j != first && j != second {
			keep = append(keep, j)
		}
	}

	columns := make([]string, 0, len(keep)+1)
	for _, j := range keep {
		columns = append(columns, t.Columns[j])
	}
	if target < 0 {
		columns = append(columns, m.Target)
	}

	for i, row := range t.Rows {
		merged := row[first] + m.Sep + row[second]

		// Compacted in place: the write index never passes the read index.
		out := row[:0]
		for _, j := range keep {
			if j == target {
				out = append(out, merged)
			} else {
				out = append(out, row[j])
			}
		}
		if target < 0 {
			out = append(out, merged)
		}
		t.Rows[i] = out
	}

	t.Columns = columns
	return t, true
}
