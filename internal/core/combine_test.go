package core

import (
	"reflect"
	"testing"
)

func TestCombineColumns_DateWhenSold(t *testing.T) {
	tbl := &Table{
		Columns: []string{"Order", "Mo Sold", "Yr Sold"},
		Rows: [][]string{
			{"1", "06", "1994"},
			{"2", "07", "1995"},
		},
	}

	got, ok := CombineColumns(tbl, DateWhenSold)
	if !ok {
		t.Fatal("CombineColumns() reported no change")
	}

	wantCols := []string{"Order", "Date When Sold"}
	if !reflect.DeepEqual(got.Columns, wantCols) {
		t.Errorf("columns = %v, want %v", got.Columns, wantCols)
	}
	wantRows := [][]string{
		{"1", "06/1994"},
		{"2", "07/1995"},
	}
	if !reflect.DeepEqual(got.Rows, wantRows) {
		t.Errorf("rows = %v, want %v", got.Rows, wantRows)
	}
}

func TestCombineColumns_AfterNormalize(t *testing.T) {
	tbl := &Table{
		Columns: []string{"Mo Sold", "Yr Sold"},
		Rows:    [][]string{{"06", "2010"}, {"", "2009"}},
	}

	tbl, _ = NormalizeCells(tbl)
	got, _ := CombineColumns(tbl, DateWhenSold)

	if v := got.Record(0)["Date When Sold"]; v != "6/2010" {
		t.Errorf("row 0 = %q, want 6/2010", v)
	}
	if v := got.Record(1)["Date When Sold"]; v != "N/A/2009" {
		t.Errorf("row 1 = %q, want N/A/2009", v)
	}
}

func TestCombineColumns_MissingSource(t *testing.T) {
	tests := []struct {
		name    string
		columns []string
	}{
		{"missing month", []string{"Order", "Yr Sold"}},
		{"missing year", []string{"Mo Sold", "Order"}},
		{"missing both", []string{"Order"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tbl := NewTable(tt.columns)
			tbl.Rows = [][]string{make([]string, len(tt.columns))}

			got, ok := CombineColumns(tbl, DateWhenSold)
			if ok {
				t.Error("CombineColumns() = true, want false")
			}
			if !reflect.DeepEqual(got.Columns, tt.columns) {
				t.Errorf("columns = %v, want unchanged %v", got.Columns, tt.columns)
			}
			if len(got.Rows[0]) != len(tt.columns) {
				t.Errorf("row width = %d, want %d", len(got.Rows[0]), len(tt.columns))
			}
		})
	}
}

func TestCombineColumns_ExistingTarget(t *testing.T) {
	tbl := &Table{
		Columns: []string{"Date When Sold", "Mo Sold", "Yr Sold"},
		Rows:    [][]string{{"stale", "3", "2008"}},
	}

	got, ok := CombineColumns(tbl, DateWhenSold)
	if !ok {
		t.Fatal("CombineColumns() reported no change")
	}
	if !reflect.DeepEqual(got.Columns, []string{"Date When Sold"}) {
		t.Errorf("columns = %v, want [Date When Sold]", got.Columns)
	}
	if !reflect.DeepEqual(got.Rows, [][]string{{"3/2008"}}) {
		t.Errorf("rows = %v, want [[3/2008]]", got.Rows)
	}
}

func TestCombineColumns_EmptyTable(t *testing.T) {
	tbl := NewTable([]string{"Mo Sold", "Yr Sold"})

	got, ok := CombineColumns(tbl, DateWhenSold)
	if !ok {
		t.Fatal("CombineColumns() = false, want true")
	}
	if !reflect.DeepEqual(got.Columns, []string{"Date When Sold"}) {
		t.Errorf("columns = %v, want [Date When Sold]", got.Columns)
	}
	if got.Len() != 0 {
		t.Errorf("Len() = %d, want 0", got.Len())
	}
}

func TestCombineColumns_SourcesBetweenOthers(t *testing.T) {
	tbl := &Table{
		Columns: []string{"PID", "Mo Sold", "Lot", "Yr Sold", "Condition"},
		Rows: [][]string{
			{"526301100", "5", "31770", "2010", "Normal"},
		},
	}

	got, ok := CombineColumns(tbl, DateWhenSold)
	if !ok {
		t.Fatal("CombineColumns() reported no change")
	}

	wantCols := []string{"PID", "Lot", "Condition", "Date When Sold"}
	if !reflect.DeepEqual(got.Columns, wantCols) {
		t.Errorf("columns = %v, want %v", got.Columns, wantCols)
	}
	wantRow := []string{"526301100", "31770", "Normal", "5/2010"}
	if !reflect.DeepEqual(got.Rows[0], wantRow) {
		t.Errorf("row = %v, want %v", got.Rows[0], wantRow)
	}
	for _, gone := range []string{"Mo Sold", "Yr Sold"} {
		if _, ok := got.Record(0)[gone]; ok {
			t.Errorf("record still has %q", gone)
		}
	}
}
