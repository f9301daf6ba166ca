package stats

import (
	"errors"
	"fmt"

	"github.com/freeeve/fmtrends/internal/table"
)

const (
	CurrentAbility   = "Current Ability"
	PotentialAbility = "Potential Ability"
	PositionColumn   = "Position"
)

// Query selects the rows and attributes a report covers.
type Query struct {
	From       int
	To         int
	Positions  []string // Any-of match; empty keeps every row
	Attributes []string // Current Ability is always reported first
	Bins       int      // Histogram bins, 0 = Sturges
	KDEPoints  int      // 0 = DefaultKDEPoints
}

// Series is a named yearly line.
type Series struct {
	Label  string  `json:"label"`
	Points []Point `json:"points"`
}

// Distribution is one year's histogram and density curve. Density is empty
// when the year has too few distinct values to estimate one.
type Distribution struct {
	Year      int   `json:"year"`
	Histogram []Bin `json:"histogram"`
	Density   []XY  `json:"density"`
}

// AttributeReport groups the charts for one attribute.
type AttributeReport struct {
	Attribute     string         `json:"attribute"`
	First         Box            `json:"first"`
	Last          Box            `json:"last"`
	Trend         Series         `json:"trend"`
	Comparison    Series         `json:"comparison"`
	Distributions []Distribution `json:"distributions"`
}

// Report is the full output for a Query.
type Report struct {
	From       int               `json:"from"`
	To         int               `json:"to"`
	Positions  []string          `json:"positions"`
	Rows       int               `json:"rows"`
	Attributes []AttributeReport `json:"attributes"`
}

// ErrEmptySelection is returned when the query matches no rows.
var ErrEmptySelection = errors.New("no rows match the selection")

// Build filters t by q and computes every chart for the selected attributes.
// Current Ability is compared with Potential Ability; any other attribute is
// compared with its expected mean scaled by Current Ability.
func Build(t *table.Table, q Query) (*Report, error) {
	if q.From > q.To {
		return nil, fmt.Errorf("year range %d-%d is inverted", q.From, q.To)
	}
	selected := t.WhereYearBetween(q.From, q.To).WhereAnyTag(PositionColumn, q.Positions)
	if selected.Rows() == 0 {
		return nil, ErrEmptySelection
	}

	attrs := []string{CurrentAbility}
	for _, a := range q.Attributes {
		if a != CurrentAbility {
			attrs = append(attrs, a)
		}
	}

	positions := q.Positions
	if positions == nil {
		positions = []string{}
	}
	r := &Report{From: q.From, To: q.To, Positions: positions, Rows: selected.Rows()}
	for _, a := range attrs {
		ar, err := attributeReport(selected, a, q)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", a, err)
		}
		r.Attributes = append(r.Attributes, ar)
	}
	return r, nil
}

func attributeReport(t *table.Table, attr string, q Query) (AttributeReport, error) {
	ar := AttributeReport{Attribute: attr}
	var err error
	if ar.First, err = YearBox(t, attr, q.From); err != nil {
		return ar, err
	}
	if ar.Last, err = YearBox(t, attr, q.To); err != nil {
		return ar, err
	}

	trend, err := YearlyMeans(t, attr)
	if err != nil {
		return ar, err
	}
	ar.Trend = Series{Label: "Actual Mean", Points: trend}

	if attr == CurrentAbility {
		pa, err := YearlyMeans(t, PotentialAbility)
		if err != nil {
			return ar, err
		}
		ar.Comparison = Series{Label: PotentialAbility + " Mean", Points: pa}
	} else {
		expected, err := ExpectedMeans(t, attr, CurrentAbility)
		if err != nil {
			return ar, err
		}
		ar.Comparison = Series{Label: "Expected Mean", Points: expected}
	}

	ar.Distributions = []Distribution{}
	for _, y := range t.Years() {
		values, err := Values(t, attr, y)
		if err != nil {
			return ar, err
		}
		d := Distribution{Year: y, Histogram: Histogram(values, q.Bins), Density: []XY{}}
		density, err := KDE(values, q.KDEPoints)
		switch {
		case err == nil:
			d.Density = density
		case !errors.Is(err, ErrDegenerate):
			return ar, err
		}
		ar.Distributions = append(ar.Distributions, d)
	}
	return ar, nil
}
