package xlsx

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidRange is returned for malformed cell references or ranges.
var ErrInvalidRange = errors.New("invalid cell range")

// Range is an inclusive rectangle of cells, 1-based.
type Range struct {
	MinCol, MinRow int
	MaxCol, MaxRow int
}

// Contains reports whether the cell at (col, row) lies inside the range.
func (r Range) Contains(col, row int) bool {
	return col >= r.MinCol && col <= r.MaxCol && row >= r.MinRow && row <= r.MaxRow
}

// String renders the range in A1 notation.
func (r Range) String() string {
	start := CellName(r.MinCol, r.MinRow)
	if r.MinCol == r.MaxCol && r.MinRow == r.MaxRow {
		return start
	}
	return start + ":" + CellName(r.MaxCol, r.MaxRow)
}

// ParseRange parses "C7:C28" or a single reference like "B2". The corners
// may be given in any order.
func ParseRange(expr string) (Range, error) {
	expr = strings.ToUpper(strings.TrimSpace(expr))
	if expr == "" {
		return Range{}, fmt.Errorf("%w: empty", ErrInvalidRange)
	}

	startRef, endRef, found := strings.Cut(expr, ":")
	if !found {
		endRef = startRef
	}

	c1, r1, err := ParseRef(startRef)
	if err != nil {
		return Range{}, err
	}
	c2, r2, err := ParseRef(endRef)
	if err != nil {
		return Range{}, err
	}

	return Range{
		MinCol: min(c1, c2), MinRow: min(r1, r2),
		MaxCol: max(c1, c2), MaxRow: max(r1, r2),
	}, nil
}

// ParseRef splits an A1-style reference into 1-based column and row.
// Absolute markers ("$C$7") are accepted.
func ParseRef(ref string) (col, row int, err error) {
	ref = strings.ReplaceAll(strings.ToUpper(strings.TrimSpace(ref)), "$", "")

	i := 0
	for i < len(ref) && ref[i] >= 'A' && ref[i] <= 'Z' {
		col = col*26 + int(ref[i]-'A'+1)
		i++
		if col > maxColumns {
			return 0, 0, fmt.Errorf("%w: column out of bounds in %q", ErrInvalidRange, ref)
		}
	}
	if i == 0 || i == len(ref) {
		return 0, 0, fmt.Errorf("%w: %q", ErrInvalidRange, ref)
	}

	for _, ch := range ref[i:] {
		if ch < '0' || ch > '9' {
			return 0, 0, fmt.Errorf("%w: %q", ErrInvalidRange, ref)
		}
		row = row*10 + int(ch-'0')
		if row > maxRows {
			return 0, 0, fmt.Errorf("%w: row out of bounds in %q", ErrInvalidRange, ref)
		}
	}
	if row == 0 {
		return 0, 0, fmt.Errorf("%w: row must be positive in %q", ErrInvalidRange, ref)
	}
	return col, row, nil
}

// Spreadsheet limits of the file format.
const (
	maxColumns = 16384
	maxRows    = 1048576
)

// ColumnName converts a 1-based column index to letters (1 → A, 27 → AA).
func ColumnName(col int) string {
	var b []byte
	for col > 0 {
		col--
		b = append([]byte{byte('A' + col%26)}, b...)
		col /= 26
	}
	return string(b)
}

// CellName builds an A1-style reference.
func CellName(col, row int) string {
	return fmt.Sprintf("%s%d", ColumnName(col), row)
}
