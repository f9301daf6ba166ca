// Package export writes the combined player table as CSV or as an XLSX workbook.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/freeeve/fmtrends/internal/table"
)

// SheetName is the worksheet the XLSX writer fills.
const SheetName = "Players"

// Format selects the output encoding.
type Format int

const (
	CSV Format = iota
	XLSX
)

func (f Format) String() string {
	if f == XLSX {
		return "xlsx"
	}
	return "csv"
}

// ParseFormat accepts "csv" or "xlsx", case-insensitively.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimPrefix(s, ".")) {
	case "csv":
		return CSV, nil
	case "xlsx":
		return XLSX, nil
	}
	return CSV, fmt.Errorf("unknown export format %q", s)
}

// FormatFromPath picks the format from the file extension.
func FormatFromPath(path string) (Format, error) {
	return ParseFormat(filepath.Ext(path))
}

// WriteCSV writes a header row followed by one record per table row.
// Tags cells are joined with ", ".
func WriteCSV(w io.Writer, t *table.Table) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(t.Names()); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	cols := t.Columns()
	record := make([]string, len(cols))
	for r := 0; r < t.Rows(); r++ {
		for i, c := range cols {
			record[i] = c.String(r)
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("write row %d: %w", r, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteXLSX writes the table to a single worksheet. Numeric columns are stored
// as numbers, everything else as text.
func WriteXLSX(w io.Writer, t *table.Table) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), SheetName); err != nil {
		return err
	}
	sw, err := f.NewStreamWriter(SheetName)
	if err != nil {
		return err
	}

	cols := t.Columns()
	row := make([]interface{}, len(cols))
	for i, name := range t.Names() {
		row[i] = name
	}
	if err := sw.SetRow("A1", row); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for r := 0; r < t.Rows(); r++ {
		row = make([]interface{}, len(cols))
		for i, c := range cols {
			row[i] = cellValue(c, r)
		}
		cell, err := excelize.CoordinatesToCellName(1, r+2)
		if err != nil {
			return err
		}
		if err := sw.SetRow(cell, row); err != nil {
			return fmt.Errorf("write row %d: %w", r, err)
		}
	}
	if err := sw.Flush(); err != nil {
		return err
	}

	_, err = f.WriteTo(w)
	return err
}

func cellValue(c *table.Column, r int) interface{} {
	switch c.Kind {
	case table.Int:
		return c.Ints[r]
	case table.Float:
		return c.Floats[r]
	default:
		return c.String(r)
	}
}

// WriteFile writes t to path in the given format, via a temp file and rename.
func WriteFile(path string, format Format, t *table.Table) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create dir: %w", err)
		}
	}

	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return err
	}

	switch format {
	case XLSX:
		err = WriteXLSX(f, t)
	default:
		err = WriteCSV(f, t)
	}
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(tmp)
		return fmt.Errorf("write %s: %w", format, err)
	}
	return os.Rename(tmp, path)
}
