package table

import (
	"errors"
	"fmt"
	"slices"
)

// Concat appends the rows of tables, in order, into a new table.
//
// Every table must have the same column names in the same order. When a
// column's kind differs between tables, Int and Float widen to Float; any other
// mix is rendered to Text.
func Concat(tables ...*Table) (*Table, error) {
	if len(tables) == 0 {
		return nil, errors.New("concat: no tables")
	}
	names := tables[0].Names()
	for i, t := range tables[1:] {
		if !slices.Equal(t.Names(), names) {
			return nil, fmt.Errorf("%w: table %d columns %v, want %v", ErrSchemaMismatch, i+1, t.Names(), names)
		}
	}

	total := 0
	for _, t := range tables {
		total += t.rows
	}

	cols := make([]*Column, len(names))
	for ci, name := range names {
		parts := make([]*Column, len(tables))
		for ti, t := range tables {
			parts[ti] = t.cols[ci]
		}
		cols[ci] = concatColumn(name, parts, total)
	}
	return FromColumns(cols)
}

func unifiedKind(parts []*Column) Kind {
	k := parts[0].Kind
	for _, p := range parts[1:] {
		if p.Kind == k {
			continue
		}
		if (k == Int || k == Float) && (p.Kind == Int || p.Kind == Float) {
			k = Float
			continue
		}
		return Text
	}
	return k
}

func concatColumn(name string, parts []*Column, total int) *Column {
	out := &Column{Name: name, Kind: unifiedKind(parts)}
	switch out.Kind {
	case Int:
		out.Ints = make([]int64, 0, total)
		for _, p := range parts {
			out.Ints = append(out.Ints, p.Ints...)
		}
	case Float:
		out.Floats = make([]float64, 0, total)
		for _, p := range parts {
			for i := 0; i < p.Len(); i++ {
				v, _ := p.Float(i)
				out.Floats = append(out.Floats, v)
			}
		}
	case Tags:
		out.Tags = make([][]string, 0, total)
		for _, p := range parts {
			out.Tags = append(out.Tags, p.Tags...)
		}
	default:
		out.Strings = make([]string, 0, total)
		for _, p := range parts {
			for i := 0; i < p.Len(); i++ {
				out.Strings = append(out.Strings, p.String(i))
			}
		}
	}
	return out
}
