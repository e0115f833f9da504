package core

import (
	"strings"
	"unicode"
)

// FillEmpty replaces a value that is empty or only whitespace with Sentinel.
func FillEmpty(s string) string {
	if strings.TrimSpace(s) == "" {
		return Sentinel
	}
	return s
}

// StripLeadingZeros removes leading '0' characters while more than one
// character remains. "0" is unchanged and "000" becomes "0".
//
// The rule is content-agnostic: "0612" becomes "612" and "0A1" becomes "A1".
// A value that starts with whitespace is left alone even if a zero follows it.
func StripLeadingZeros(s string) string {
	for len(s) > 1 && s[0] == '0' {
		s = s[1:]
	}
	return s
}

// RemoveWhitespace deletes every whitespace character, including interior
// ones: "split pea," becomes "splitpea,".
func RemoveWhitespace(s string) string {
	if strings.IndexFunc(s, unicode.IsSpace) < 0 {
		return s
	}
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
}

// NormalizeCell applies the cell rules in their fixed order:
// fill-if-empty, strip-leading-zeros, remove-whitespace.
//
// Fill runs first so a whitespace-only cell becomes Sentinel and is never
// touched by the later rules. Zero stripping sees the value before whitespace
// is removed, so " 07" keeps its zero and ends up as "07". A value reduced to
// nothing by the last two rules, such as "0 ", is filled again.
func NormalizeCell(s string) string {
	if v := RemoveWhitespace(StripLeadingZeros(FillEmpty(s))); v != "" {
		return v
	}
	return Sentinel
}

// NormalizeCells applies NormalizeCell to every cell of the table in place and
// returns the table together with per-rule change counts.
//
// The input table must not be used after the call.
func NormalizeCells(t *Table) (*Table, NormalizeStats) {
	var stats NormalizeStats

	for _, row := range t.Rows {
		for j, v := range row {
			filled := FillEmpty(v)
			if filled != v {
				stats.Filled++
			}
			stripped := StripLeadingZeros(filled)
			if stripped != filled {
				stats.ZerosStripped++
			}
			trimmed := RemoveWhitespace(stripped)
			if trimmed != stripped {
				stats.WhitespaceStripped++
			}
			if trimmed == "" {
				trimmed = Sentinel
				stats.Filled++
			}
			row[j] = trimmed
		}
	}

	return t, stats
}
