// Package stats computes the figures behind the attribute charts: box plot
// summaries, yearly mean trends, histograms and Gaussian kernel density curves.
package stats

import (
	"errors"
	"fmt"
	"math"
	"slices"

	"gonum.org/v1/gonum/stat"

	"github.com/freeeve/fmtrends/internal/table"
)

// Box is a five-number summary plus mean.
type Box struct {
	Year   int     `json:"year"`
	Count  int     `json:"count"`
	Min    float64 `json:"min"`
	Q1     float64 `json:"q1"`
	Median float64 `json:"median"`
	Q3     float64 `json:"q3"`
	Max    float64 `json:"max"`
	Mean   float64 `json:"mean"`
}

// Point is one value per year.
type Point struct {
	Year  int     `json:"year"`
	Value float64 `json:"value"`
}

// Summarize returns the box summary of values. Quantiles interpolate linearly
// between closest ranks (position q*(n-1)), so the median of an even-sized
// sample is the midpoint of the two middle values. An empty input gives a zero Box.
func Summarize(values []float64) Box {
	if len(values) == 0 {
		return Box{}
	}
	sorted := slices.Clone(values)
	slices.Sort(sorted)
	return Box{
		Count:  len(sorted),
		Min:    sorted[0],
		Q1:     quantile(sorted, 0.25),
		Median: quantile(sorted, 0.5),
		Q3:     quantile(sorted, 0.75),
		Max:    sorted[len(sorted)-1],
		Mean:   stat.Mean(sorted, nil),
	}
}

func quantile(sorted []float64, q float64) float64 {
	pos := q * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	frac := pos - float64(lo)
	return sorted[lo] + (sorted[hi]-sorted[lo])*frac
}

// numericColumn returns the named column, failing if it is missing or not numeric.
func numericColumn(t *table.Table, name string) (*table.Column, error) {
	c := t.Column(name)
	if c == nil {
		return nil, fmt.Errorf("no column %q", name)
	}
	if !c.Numeric() {
		return nil, fmt.Errorf("column %q is %s, not numeric", name, c.Kind)
	}
	return c, nil
}

func yearColumn(t *table.Table) (*table.Column, error) {
	c := t.Column(table.YearColumn)
	if c == nil || c.Kind != table.Int {
		return nil, errors.New("no integer Year column")
	}
	return c, nil
}

// Values returns the values of attr on rows from year.
func Values(t *table.Table, attr string, year int) ([]float64, error) {
	c, err := numericColumn(t, attr)
	if err != nil {
		return nil, err
	}
	years, err := yearColumn(t)
	if err != nil {
		return nil, err
	}
	var out []float64
	for r := 0; r < t.Rows(); r++ {
		if int(years.Ints[r]) != year {
			continue
		}
		v, _ := c.Float(r)
		out = append(out, v)
	}
	return out, nil
}

// YearBox summarizes attr for one year.
func YearBox(t *table.Table, attr string, year int) (Box, error) {
	values, err := Values(t, attr, year)
	if err != nil {
		return Box{}, err
	}
	b := Summarize(values)
	b.Year = year
	return b, nil
}

// YearlyMeans returns the mean of attr for every year present, in year order.
func YearlyMeans(t *table.Table, attr string) ([]Point, error) {
	c, err := numericColumn(t, attr)
	if err != nil {
		return nil, err
	}
	years, err := yearColumn(t)
	if err != nil {
		return nil, err
	}

	byYear := make(map[int][]float64)
	for r := 0; r < t.Rows(); r++ {
		v, _ := c.Float(r)
		byYear[int(years.Ints[r])] = append(byYear[int(years.Ints[r])], v)
	}

	out := make([]Point, 0, len(byYear))
	for y, values := range byYear {
		out = append(out, Point{Year: y, Value: stat.Mean(values, nil)})
	}
	slices.SortFunc(out, func(a, b Point) int { return a.Year - b.Year })
	return out, nil
}

// ExpectedMeans projects attr's first-year mean forward in proportion to the
// reference column's yearly mean: expected[y] = attr[first] * ref[y] / ref[first].
func ExpectedMeans(t *table.Table, attr, ref string) ([]Point, error) {
	attrMeans, err := YearlyMeans(t, attr)
	if err != nil {
		return nil, err
	}
	refMeans, err := YearlyMeans(t, ref)
	if err != nil {
		return nil, err
	}
	if len(attrMeans) == 0 {
		return []Point{}, nil
	}
	base := refMeans[0].Value
	if base == 0 {
		return nil, fmt.Errorf("%s has zero mean in %d", ref, refMeans[0].Year)
	}

	out := make([]Point, len(refMeans))
	for i, p := range refMeans {
		out[i] = Point{Year: p.Year, Value: attrMeans[0].Value * p.Value / base}
	}
	return out, nil
}
