// Package snapshot turns exported HTML snapshot files into player tables.
package snapshot

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/freeeve/fmtrends/internal/table"
)

// DefaultChunkSize is the number of row records parsed per batch.
const DefaultChunkSize = 1000

// ErrNoRows is returned for a file with no data rows after the header row.
var ErrNoRows = errors.New("no data rows")

// Extractor parses snapshot files.
type Extractor struct {
	// ChunkSize is the number of row records converted per batch, with a
	// cancellation check between batches. Zero converts every row in one pass.
	// Both modes produce the same table.
	ChunkSize int
}

// Extract reads the snapshot at path, labels its columns with names, stamps
// every row with year and converts numeric columns.
func (e Extractor) Extract(ctx context.Context, path string, names []string, year int) (*table.Table, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	records, err := rowRecords(content)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, ErrNoRows
	}

	size := e.ChunkSize
	if size <= 0 {
		size = len(records)
	}
	rows := make([][]string, 0, len(records))
	for start := 0; start < len(records); start += size {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		end := min(start+size, len(records))
		for _, tr := range records[start:end] {
			rows = append(rows, cells(tr))
		}
	}

	tb, err := table.New(names)
	if err != nil {
		return nil, err
	}
	for _, r := range rows {
		if err := tb.AppendRow(r); err != nil {
			return nil, err
		}
	}
	if err := tb.AddIntColumn(table.YearColumn, int64(year)); err != nil {
		return nil, err
	}
	tb.CoerceNumeric()
	return tb, nil
}

// rowRecords parses the document and returns the rows of its first table,
// header row dropped. Rows of nested tables are not included.
func rowRecords(content []byte) ([]*goquery.Selection, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(content))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}
	tbl := doc.Find("table").First()
	if tbl.Length() == 0 {
		return nil, errors.New("no table found")
	}

	var records []*goquery.Selection
	tbl.Find("tr").Each(func(_ int, tr *goquery.Selection) {
		if tr.Closest("table").IsSelection(tbl) {
			records = append(records, tr)
		}
	})
	if len(records) == 0 {
		return nil, nil
	}
	return records[1:], nil
}

func cells(tr *goquery.Selection) []string {
	tds := tr.ChildrenFiltered("th,td")
	row := make([]string, 0, tds.Length())
	tds.Each(func(_ int, cell *goquery.Selection) {
		row = append(row, strings.TrimSpace(cell.Text()))
	})
	return row
}
