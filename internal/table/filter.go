package table

import "slices"

// Filter returns a new table holding the rows for which keep returns true.
func (t *Table) Filter(keep func(row int) bool) *Table {
	var idx []int
	for r := 0; r < t.rows; r++ {
		if keep(r) {
			idx = append(idx, r)
		}
	}

	cols := make([]*Column, len(t.cols))
	for i, c := range t.cols {
		cols[i] = c.pick(idx)
	}
	out, _ := FromColumns(cols) // same names, same lengths
	return out
}

func (c *Column) pick(idx []int) *Column {
	out := &Column{Name: c.Name, Kind: c.Kind}
	switch c.Kind {
	case Int:
		out.Ints = make([]int64, len(idx))
		for i, r := range idx {
			out.Ints[i] = c.Ints[r]
		}
	case Float:
		out.Floats = make([]float64, len(idx))
		for i, r := range idx {
			out.Floats[i] = c.Floats[r]
		}
	case Tags:
		out.Tags = make([][]string, len(idx))
		for i, r := range idx {
			out.Tags[i] = c.Tags[r]
		}
	default:
		out.Strings = make([]string, len(idx))
		for i, r := range idx {
			out.Strings[i] = c.Strings[r]
		}
	}
	return out
}

// WhereYearBetween keeps rows whose Year lies in [from, to].
// A table without an integer Year column comes back empty.
func (t *Table) WhereYearBetween(from, to int) *Table {
	c := t.Column(YearColumn)
	if c == nil || c.Kind != Int {
		return t.Filter(func(int) bool { return false })
	}
	return t.Filter(func(r int) bool {
		y := int(c.Ints[r])
		return y >= from && y <= to
	})
}

// WhereAnyTag keeps rows whose tags in column name include any of selected.
// An empty selection keeps every row.
func (t *Table) WhereAnyTag(name string, selected []string) *Table {
	if len(selected) == 0 {
		return t.Filter(func(int) bool { return true })
	}
	c := t.Column(name)
	if c == nil || c.Kind != Tags {
		return t.Filter(func(int) bool { return false })
	}
	return t.Filter(func(r int) bool {
		for _, tag := range c.Tags[r] {
			if slices.Contains(selected, tag) {
				return true
			}
		}
		return false
	})
}

// Equal reports whether a and b have the same columns, kinds and values.
func Equal(a, b *Table) bool {
	if a.rows != b.rows || len(a.cols) != len(b.cols) {
		return false
	}
	for i, ca := range a.cols {
		cb := b.cols[i]
		if ca.Name != cb.Name || ca.Kind != cb.Kind {
			return false
		}
		switch ca.Kind {
		case Int:
			if !slices.Equal(ca.Ints, cb.Ints) {
				return false
			}
		case Float:
			if !slices.Equal(ca.Floats, cb.Floats) {
				return false
			}
		case Tags:
			if !slices.EqualFunc(ca.Tags, cb.Tags, func(x, y []string) bool { return slices.Equal(x, y) }) {
				return false
			}
		default:
			if !slices.Equal(ca.Strings, cb.Strings) {
				return false
			}
		}
	}
	return true
}
