// Package mtc decides which phenotype terms to test and corrects the
// resulting p-values for multiple testing.
package mtc

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrInvalidConfig is wrapped by filter and correction construction errors.
var ErrInvalidConfig = errors.New("invalid multiple-testing configuration")

func configError(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidConfig, fmt.Sprintf(format, args...))
}

// CountTable cross-tabulates phenotype classes (rows) against genotype
// classes (columns).
type CountTable struct {
	Rows    []string
	Columns []string
	Counts  [][]int
}

// NewCountTable returns an empty table with the given labels.
func NewCountTable(rows, columns []string) *CountTable {
	counts := make([][]int, len(rows))
	for i := range counts {
		counts[i] = make([]int, len(columns))
	}
	return &CountTable{
		Rows:    append([]string(nil), rows...),
		Columns: append([]string(nil), columns...),
		Counts:  counts,
	}
}

// Add increments the cell (row, col).
func (t *CountTable) Add(row, col int) { t.Counts[row][col]++ }

// At returns the cell (row, col).
func (t *CountTable) At(row, col int) int { return t.Counts[row][col] }

func (t *CountTable) RowTotal(row int) int {
	n := 0
	for _, v := range t.Counts[row] {
		n += v
	}
	return n
}

func (t *CountTable) ColumnTotal(col int) int {
	n := 0
	for _, row := range t.Counts {
		n += row[col]
	}
	return n
}

func (t *CountTable) Total() int {
	n := 0
	for i := range t.Counts {
		n += t.RowTotal(i)
	}
	return n
}

// Equal reports whether t and o have the same shape and counts. Labels are
// not compared.
func (t *CountTable) Equal(o *CountTable) bool {
	if len(t.Counts) != len(o.Counts) {
		return false
	}
	for i, row := range t.Counts {
		if len(row) != len(o.Counts[i]) {
			return false
		}
		for j, v := range row {
			if o.Counts[i][j] != v {
				return false
			}
		}
	}
	return true
}

// Matrix returns a copy of the counts.
func (t *CountTable) Matrix() [][]int {
	out := make([][]int, len(t.Counts))
	for i, row := range t.Counts {
		out[i] = append([]int(nil), row...)
	}
	return out
}

// key encodes the counts for grouping identical tables.
func (t *CountTable) key() string {
	var b strings.Builder
	for i, row := range t.Counts {
		if i > 0 {
			b.WriteByte(';')
		}
		for j, v := range row {
			if j > 0 {
				b.WriteByte(',')
			}
			b.WriteString(strconv.Itoa(v))
		}
	}
	return b.String()
}

func (t *CountTable) String() string { return "[" + t.key() + "]" }
