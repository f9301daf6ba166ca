// Package table holds the column-oriented player table produced by the
// snapshot extractor and merged by the loader.
//
// A Table is a fixed set of named columns of equal length. Every column has a
// Kind and exactly one populated backing slice:
//   - Text:  Strings
//   - Int:   Ints
//   - Float: Floats
//   - Tags:  Tags (a list of strings per row, used for positions)
package table

import (
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"
)

// YearColumn is the name of the column stamped with each snapshot's year.
const YearColumn = "Year"

// ErrSchemaMismatch is returned when a row or table does not have the column
// layout the table was created with.
var ErrSchemaMismatch = errors.New("schema mismatch")

// Kind is the storage type of a column.
type Kind uint8

const (
	Text Kind = iota
	Int
	Float
	Tags
)

func (k Kind) String() string {
	switch k {
	case Text:
		return "text"
	case Int:
		return "int"
	case Float:
		return "float"
	case Tags:
		return "tags"
	default:
		return "kind(" + strconv.Itoa(int(k)) + ")"
	}
}

// Column is a single named column.
type Column struct {
	Name    string
	Kind    Kind
	Strings []string
	Ints    []int64
	Floats  []float64
	Tags    [][]string
}

// Len returns the number of rows in the column.
func (c *Column) Len() int {
	switch c.Kind {
	case Int:
		return len(c.Ints)
	case Float:
		return len(c.Floats)
	case Tags:
		return len(c.Tags)
	default:
		return len(c.Strings)
	}
}

// Numeric reports whether the column holds Int or Float values.
func (c *Column) Numeric() bool {
	return c.Kind == Int || c.Kind == Float
}

// Float returns row i as a float64. ok is false for non-numeric columns.
func (c *Column) Float(i int) (v float64, ok bool) {
	switch c.Kind {
	case Int:
		return float64(c.Ints[i]), true
	case Float:
		return c.Floats[i], true
	default:
		return 0, false
	}
}

// String renders row i as text. Tags are joined with ", ".
func (c *Column) String(i int) string {
	switch c.Kind {
	case Int:
		return strconv.FormatInt(c.Ints[i], 10)
	case Float:
		return strconv.FormatFloat(c.Floats[i], 'g', -1, 64)
	case Tags:
		return joinTags(c.Tags[i])
	default:
		return c.Strings[i]
	}
}

func joinTags(tags []string) string {
	return strings.Join(tags, ", ")
}

// Table is an ordered set of equal-length columns.
type Table struct {
	cols  []*Column
	index map[string]int
	rows  int
}

// New creates an empty table with Text columns named by names.
// Names must be non-empty and unique.
func New(names []string) (*Table, error) {
	t := &Table{
		cols:  make([]*Column, 0, len(names)),
		index: make(map[string]int, len(names)),
	}
	for _, name := range names {
		if err := t.addColumn(&Column{Name: name, Kind: Text}); err != nil {
			return nil, err
		}
	}
	return t, nil
}

// FromColumns builds a table from already populated columns.
func FromColumns(cols []*Column) (*Table, error) {
	t := &Table{
		cols:  make([]*Column, 0, len(cols)),
		index: make(map[string]int, len(cols)),
	}
	for i, c := range cols {
		if i == 0 {
			t.rows = c.Len()
		} else if c.Len() != t.rows {
			return nil, fmt.Errorf("%w: column %q has %d rows, want %d", ErrSchemaMismatch, c.Name, c.Len(), t.rows)
		}
		if err := t.addColumn(c); err != nil {
			return nil, err
		}
	}
	return t, nil
}

func (t *Table) addColumn(c *Column) error {
	if c.Name == "" {
		return fmt.Errorf("column %d: empty name", len(t.cols))
	}
	if _, dup := t.index[c.Name]; dup {
		return fmt.Errorf("duplicate column %q", c.Name)
	}
	t.index[c.Name] = len(t.cols)
	t.cols = append(t.cols, c)
	return nil
}

// Rows returns the number of rows.
func (t *Table) Rows() int { return t.rows }

// Columns returns the columns in order. The slice must not be modified.
func (t *Table) Columns() []*Column { return t.cols }

// Names returns the column names in order.
func (t *Table) Names() []string {
	names := make([]string, len(t.cols))
	for i, c := range t.cols {
		names[i] = c.Name
	}
	return names
}

// Column returns the named column, or nil.
func (t *Table) Column(name string) *Column {
	i, ok := t.index[name]
	if !ok {
		return nil
	}
	return t.cols[i]
}

// AppendRow appends one row of raw text cells. All columns must still be Text.
func (t *Table) AppendRow(cells []string) error {
	if len(cells) != len(t.cols) {
		return fmt.Errorf("%w: row %d has %d cells, schema has %d columns",
			ErrSchemaMismatch, t.rows, len(cells), len(t.cols))
	}
	for i, c := range t.cols {
		if c.Kind != Text {
			return fmt.Errorf("append row: column %q is %s, not text", c.Name, c.Kind)
		}
		c.Strings = append(c.Strings, cells[i])
	}
	t.rows++
	return nil
}

// AddIntColumn appends a column holding v on every row.
func (t *Table) AddIntColumn(name string, v int64) error {
	ints := make([]int64, t.rows)
	for i := range ints {
		ints[i] = v
	}
	return t.addColumn(&Column{Name: name, Kind: Int, Ints: ints})
}

// MapTags replaces the named Text column by a Tags column computed by fn.
func (t *Table) MapTags(name string, fn func(row int, s string) []string) error {
	c := t.Column(name)
	if c == nil {
		return fmt.Errorf("no column %q", name)
	}
	if c.Kind != Text {
		return fmt.Errorf("column %q is %s, not text", name, c.Kind)
	}
	tags := make([][]string, len(c.Strings))
	for i, s := range c.Strings {
		tags[i] = fn(i, s)
	}
	c.Kind = Tags
	c.Tags = tags
	c.Strings = nil
	return nil
}

// Years returns the distinct values of the Year column in ascending order.
func (t *Table) Years() []int {
	c := t.Column(YearColumn)
	if c == nil || c.Kind != Int {
		return nil
	}
	seen := make(map[int64]struct{})
	var years []int
	for _, y := range c.Ints {
		if _, ok := seen[y]; ok {
			continue
		}
		seen[y] = struct{}{}
		years = append(years, int(y))
	}
	slices.Sort(years)
	return years
}

// NumericColumns returns the names of Int and Float columns other than Year.
func (t *Table) NumericColumns() []string {
	var names []string
	for _, c := range t.cols {
		if c.Numeric() && c.Name != YearColumn {
			names = append(names, c.Name)
		}
	}
	return names
}

// DistinctTags returns the distinct tags of the named Tags column, sorted.
func (t *Table) DistinctTags(name string) []string {
	c := t.Column(name)
	if c == nil || c.Kind != Tags {
		return nil
	}
	seen := make(map[string]struct{})
	var out []string
	for _, tags := range c.Tags {
		for _, tag := range tags {
			if _, ok := seen[tag]; ok {
				continue
			}
			seen[tag] = struct{}{}
			out = append(out, tag)
		}
	}
	slices.Sort(out)
	return out
}
