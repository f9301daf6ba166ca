package stats

import (
	"errors"
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/freeeve/fmtrends/internal/position"
	"github.com/freeeve/fmtrends/internal/table"
)

var approx = cmpopts.EquateApprox(0, 1e-9)

// careerTable builds two seasons with two players each.
func careerTable(t *testing.T) *table.Table {
	t.Helper()
	names := []string{"Name", "Position", CurrentAbility, PotentialAbility, "Pace"}
	seasons := map[int][][]string{
		2019: {
			{"Keeper", "GK", "100", "150", "10"},
			{"Striker", "ST (C)", "120", "160", "14"},
		},
		2020: {
			{"Keeper", "GK", "110", "150", "12"},
			{"Striker", "ST (C)", "130", "160", "16"},
		},
	}

	norm := position.NewNormalizer()
	var parts []*table.Table
	for _, year := range []int{2019, 2020} {
		tb, err := table.New(names)
		if err != nil {
			t.Fatal(err)
		}
		for _, row := range seasons[year] {
			if err := tb.AppendRow(row); err != nil {
				t.Fatal(err)
			}
		}
		if err := tb.AddIntColumn(table.YearColumn, int64(year)); err != nil {
			t.Fatal(err)
		}
		tb.CoerceNumeric()
		if err := tb.MapTags("Position", func(_ int, s string) []string { return norm.Expand(s) }); err != nil {
			t.Fatal(err)
		}
		parts = append(parts, tb)
	}
	out, err := table.Concat(parts...)
	if err != nil {
		t.Fatalf("Concat: %v", err)
	}
	return out
}

func TestSummarize(t *testing.T) {
	got := Summarize([]float64{4, 1, 3, 2})
	want := Box{Count: 4, Min: 1, Q1: 1.75, Median: 2.5, Q3: 3.25, Max: 4, Mean: 2.5}
	if diff := cmp.Diff(want, got, approx); diff != "" {
		t.Errorf("Summarize mismatch (-want +got):\n%s", diff)
	}

	if got := Summarize(nil); got != (Box{}) {
		t.Errorf("Summarize(nil) = %+v, want zero", got)
	}
	if got := Summarize([]float64{7}); got.Q1 != 7 || got.Q3 != 7 || got.Median != 7 {
		t.Errorf("Summarize single = %+v", got)
	}
}

func TestSummarizeDoesNotReorderInput(t *testing.T) {
	in := []float64{3, 1, 2}
	Summarize(in)
	if diff := cmp.Diff([]float64{3, 1, 2}, in); diff != "" {
		t.Errorf("input modified (-want +got):\n%s", diff)
	}
}

func TestYearBox(t *testing.T) {
	tb := careerTable(t)
	got, err := YearBox(tb, CurrentAbility, 2020)
	if err != nil {
		t.Fatalf("YearBox: %v", err)
	}
	want := Box{Year: 2020, Count: 2, Min: 110, Q1: 115, Median: 120, Q3: 125, Max: 130, Mean: 120}
	if diff := cmp.Diff(want, got, approx); diff != "" {
		t.Errorf("YearBox mismatch (-want +got):\n%s", diff)
	}

	empty, err := YearBox(tb, CurrentAbility, 2030)
	if err != nil {
		t.Fatalf("YearBox: %v", err)
	}
	if empty.Count != 0 || empty.Year != 2030 {
		t.Errorf("YearBox(2030) = %+v", empty)
	}

	if _, err := YearBox(tb, "Name", 2020); err == nil {
		t.Error("expected error for text column")
	}
	if _, err := YearBox(tb, "Missing", 2020); err == nil {
		t.Error("expected error for missing column")
	}
}

func TestYearlyMeans(t *testing.T) {
	got, err := YearlyMeans(careerTable(t), "Pace")
	if err != nil {
		t.Fatalf("YearlyMeans: %v", err)
	}
	want := []Point{{2019, 12}, {2020, 14}}
	if diff := cmp.Diff(want, got, approx); diff != "" {
		t.Errorf("YearlyMeans mismatch (-want +got):\n%s", diff)
	}
}

func TestExpectedMeans(t *testing.T) {
	got, err := ExpectedMeans(careerTable(t), "Pace", CurrentAbility)
	if err != nil {
		t.Fatalf("ExpectedMeans: %v", err)
	}
	want := []Point{{2019, 12}, {2020, 12 * 120.0 / 110.0}}
	if diff := cmp.Diff(want, got, approx); diff != "" {
		t.Errorf("ExpectedMeans mismatch (-want +got):\n%s", diff)
	}
}

func TestExpectedMeansZeroReference(t *testing.T) {
	tb, err := table.New([]string{"A", "R"})
	if err != nil {
		t.Fatal(err)
	}
	if err := tb.AppendRow([]string{"5", "0"}); err != nil {
		t.Fatal(err)
	}
	if err := tb.AddIntColumn(table.YearColumn, 2019); err != nil {
		t.Fatal(err)
	}
	tb.CoerceNumeric()
	if _, err := ExpectedMeans(tb, "A", "R"); err == nil {
		t.Error("expected error for zero reference mean")
	}
}

func TestHistogram(t *testing.T) {
	got := Histogram([]float64{0, 1, 2, 3, 4}, 2)
	want := []Bin{{Lo: 0, Hi: 2, Count: 2}, {Lo: 2, Hi: 4, Count: 3}}
	if diff := cmp.Diff(want, got, approx); diff != "" {
		t.Errorf("Histogram mismatch (-want +got):\n%s", diff)
	}

	if got := Histogram([]float64{5, 5, 5}, 4); len(got) != 1 || got[0].Count != 3 {
		t.Errorf("Histogram constant = %+v", got)
	}
	if got := Histogram(nil, 3); len(got) != 0 {
		t.Errorf("Histogram(nil) = %+v", got)
	}

	total := 0
	for _, b := range Histogram([]float64{1, 2, 3, 4, 5, 6, 7, 8, 9}, 0) {
		total += b.Count
	}
	if total != 9 {
		t.Errorf("Histogram total = %d, want 9", total)
	}
}

func TestHistogramEdges(t *testing.T) {
	values := []float64{10, 15, 11.5, 20, 10, 20}
	got := Histogram(values, 3)
	want := []Bin{
		{Lo: 10, Hi: 10 + 10.0/3, Count: 3},
		{Lo: 10 + 10.0/3, Hi: 10 + 20.0/3, Count: 1},
		{Lo: 10 + 20.0/3, Hi: 20, Count: 2},
	}
	if diff := cmp.Diff(want, got, approx); diff != "" {
		t.Errorf("Histogram mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]float64{10, 15, 11.5, 20, 10, 20}, values); diff != "" {
		t.Errorf("input modified (-want +got):\n%s", diff)
	}
}

func TestSummarizeEvenSampleMedian(t *testing.T) {
	got := Summarize([]float64{10, 20, 30, 40, 50, 60})
	if got.Median != 35 || got.Q1 != 22.5 || got.Q3 != 47.5 {
		t.Errorf("Summarize = %+v, want median 35, q1 22.5, q3 47.5", got)
	}
	if got.Mean != 35 {
		t.Errorf("Mean = %v, want 35", got.Mean)
	}
}

func TestSturgesBins(t *testing.T) {
	for n, want := range map[int]int{0: 1, 1: 1, 2: 2, 8: 4, 9: 5, 100: 8} {
		if got := SturgesBins(n); got != want {
			t.Errorf("SturgesBins(%d) = %d, want %d", n, got, want)
		}
	}
}

func TestKDE(t *testing.T) {
	values := []float64{0, 1, 2}
	got, err := KDE(values, 5)
	if err != nil {
		t.Fatalf("KDE: %v", err)
	}
	if len(got) != 5 {
		t.Fatalf("len = %d, want 5", len(got))
	}
	if got[0].X != 0 || got[4].X != 2 || got[2].X != 1 {
		t.Errorf("grid = %v", got)
	}
	if math.Abs(got[0].Y-got[4].Y) > 1e-12 || math.Abs(got[1].Y-got[3].Y) > 1e-12 {
		t.Errorf("density not symmetric: %v", got)
	}

	// Sample std is 1, so h = 3^(-1/5).
	h := math.Pow(3, -0.2)
	if bw := ScottBandwidth(values); math.Abs(bw-h) > 1e-12 {
		t.Errorf("ScottBandwidth = %v, want %v", bw, h)
	}
	want := (1 + 2*math.Exp(-0.5/(h*h))) / (3 * h * math.Sqrt(2*math.Pi))
	if math.Abs(got[2].Y-want) > 1e-12 {
		t.Errorf("density at 1 = %v, want %v", got[2].Y, want)
	}
	if got[2].Y <= got[0].Y {
		t.Errorf("density should peak in the middle: %v", got)
	}
}

func TestKDEDefaultPoints(t *testing.T) {
	got, err := KDE([]float64{1, 2, 4, 8}, 0)
	if err != nil {
		t.Fatalf("KDE: %v", err)
	}
	if len(got) != DefaultKDEPoints {
		t.Errorf("len = %d, want %d", len(got), DefaultKDEPoints)
	}
}

func TestKDEDegenerate(t *testing.T) {
	for _, values := range [][]float64{nil, {3}, {5, 5, 5}} {
		if _, err := KDE(values, 10); !errors.Is(err, ErrDegenerate) {
			t.Errorf("KDE(%v) err = %v, want ErrDegenerate", values, err)
		}
	}
}

func TestBuild(t *testing.T) {
	r, err := Build(careerTable(t), Query{
		From:       2019,
		To:         2020,
		Attributes: []string{"Pace", CurrentAbility},
		KDEPoints:  10,
	})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if r.Rows != 4 {
		t.Errorf("Rows = %d, want 4", r.Rows)
	}
	if len(r.Attributes) != 2 {
		t.Fatalf("attributes = %d, want 2", len(r.Attributes))
	}

	ca := r.Attributes[0]
	if ca.Attribute != CurrentAbility {
		t.Errorf("first attribute = %q, want %q", ca.Attribute, CurrentAbility)
	}
	if ca.Comparison.Label != "Potential Ability Mean" {
		t.Errorf("CA comparison = %q", ca.Comparison.Label)
	}
	if diff := cmp.Diff([]Point{{2019, 155}, {2020, 155}}, ca.Comparison.Points, approx); diff != "" {
		t.Errorf("PA means mismatch (-want +got):\n%s", diff)
	}
	if ca.First.Year != 2019 || ca.Last.Year != 2020 || ca.Last.Mean != 120 {
		t.Errorf("boxes = %+v / %+v", ca.First, ca.Last)
	}

	pace := r.Attributes[1]
	if pace.Comparison.Label != "Expected Mean" {
		t.Errorf("Pace comparison = %q", pace.Comparison.Label)
	}
	if len(pace.Distributions) != 2 {
		t.Fatalf("distributions = %d, want 2", len(pace.Distributions))
	}
	for _, d := range pace.Distributions {
		if len(d.Density) != 10 {
			t.Errorf("year %d density points = %d, want 10", d.Year, len(d.Density))
		}
	}
}

func TestBuildFiltersPositions(t *testing.T) {
	r, err := Build(careerTable(t), Query{From: 2019, To: 2020, Positions: []string{"ST(C)"}})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if r.Rows != 2 {
		t.Errorf("Rows = %d, want 2", r.Rows)
	}
	// One value per year leaves no density to estimate.
	for _, d := range r.Attributes[0].Distributions {
		if len(d.Density) != 0 {
			t.Errorf("year %d density = %v, want empty", d.Year, d.Density)
		}
		if len(d.Histogram) != 1 || d.Histogram[0].Count != 1 {
			t.Errorf("year %d histogram = %v", d.Year, d.Histogram)
		}
	}
}

func TestBuildErrors(t *testing.T) {
	tb := careerTable(t)
	if _, err := Build(tb, Query{From: 2021, To: 2019}); err == nil {
		t.Error("expected error for inverted range")
	}
	if _, err := Build(tb, Query{From: 2019, To: 2020, Positions: []string{"AMC"}}); !errors.Is(err, ErrEmptySelection) {
		t.Errorf("err = %v, want ErrEmptySelection", err)
	}
	if _, err := Build(tb, Query{From: 2019, To: 2020, Attributes: []string{"Name"}}); err == nil {
		t.Error("expected error for text attribute")
	}
}
