package stats

import (
	"errors"
	"math"
	"slices"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// DefaultKDEPoints is the number of grid points a density curve is evaluated on.
const DefaultKDEPoints = 500

// Bin is one histogram bucket covering [Lo, Hi); the last bin includes Hi.
type Bin struct {
	Lo    float64 `json:"lo"`
	Hi    float64 `json:"hi"`
	Count int     `json:"count"`
}

// XY is one point of a density curve.
type XY struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// SturgesBins returns ceil(log2(n)) + 1, the default bin count for n values.
func SturgesBins(n int) int {
	if n <= 1 {
		return 1
	}
	return int(math.Ceil(math.Log2(float64(n)))) + 1
}

// Histogram buckets values into bins equal-width bins spanning min to max.
// bins <= 0 selects SturgesBins.
func Histogram(values []float64, bins int) []Bin {
	if len(values) == 0 {
		return []Bin{}
	}
	if bins <= 0 {
		bins = SturgesBins(len(values))
	}
	lo, hi := slices.Min(values), slices.Max(values)
	if lo == hi {
		return []Bin{{Lo: lo, Hi: hi, Count: len(values)}}
	}

	dividers := floats.Span(make([]float64, bins+1), lo, hi)
	// stat.Histogram bins are half-open; nudge the top edge so max lands in the last bin.
	dividers[bins] = math.Nextafter(hi, math.Inf(1))
	sorted := slices.Clone(values)
	slices.Sort(sorted)
	counts := stat.Histogram(nil, dividers, sorted, nil)

	out := make([]Bin, bins)
	for i, n := range counts {
		out[i] = Bin{Lo: dividers[i], Hi: dividers[i+1], Count: int(n)}
	}
	out[bins-1].Hi = hi
	return out
}

// ErrDegenerate is returned by KDE when the sample has fewer than two values
// or no spread.
var ErrDegenerate = errors.New("sample too small or without variance")

// ScottBandwidth returns the Gaussian kernel bandwidth std * n^(-1/5), using
// the sample standard deviation.
func ScottBandwidth(values []float64) float64 {
	return stat.StdDev(values, nil) * math.Pow(float64(len(values)), -0.2)
}

// KDE evaluates a Gaussian kernel density estimate of values on points evenly
// spaced grid positions from min to max. points <= 1 selects DefaultKDEPoints.
func KDE(values []float64, points int) ([]XY, error) {
	if len(values) < 2 {
		return nil, ErrDegenerate
	}
	h := ScottBandwidth(values)
	if h == 0 || math.IsNaN(h) {
		return nil, ErrDegenerate
	}
	if points <= 1 {
		points = DefaultKDEPoints
	}

	lo, hi := slices.Min(values), slices.Max(values)
	step := (hi - lo) / float64(points-1)
	norm := 1 / (float64(len(values)) * h * math.Sqrt(2*math.Pi))

	out := make([]XY, points)
	for i := range out {
		x := lo + float64(i)*step
		if i == points-1 {
			x = hi
		}
		sum := 0.0
		for _, v := range values {
			z := (x - v) / h
			sum += math.Exp(-0.5 * z * z)
		}
		out[i] = XY{X: x, Y: sum * norm}
	}
	return out, nil
}
