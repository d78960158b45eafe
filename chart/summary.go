// Package chart summarises and renders the price distribution.
package chart

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// HistogramBins is the bin count of the price histogram.
const HistogramBins = 20

// whiskerReach is the IQR multiple bounding the box-plot whiskers.
const whiskerReach = 1.5

// Bin is one histogram bucket. Every bin is half-open except the last, which
// also includes Hi.
type Bin struct {
	Lo    float64
	Hi    float64
	Count int
}

// Histogram splits values into n equal-width bins spanning their range. A
// single distinct value is centred in a unit-wide range. NaN and infinite
// values are skipped.
func Histogram(values []float64, n int) []Bin {
	finite := make([]float64, 0, len(values))
	for _, v := range values {
		if !math.IsNaN(v) && !math.IsInf(v, 0) {
			finite = append(finite, v)
		}
	}
	if len(finite) == 0 || n <= 0 {
		return nil
	}
	lo, hi := finite[0], finite[0]
	for _, v := range finite[1:] {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	if lo == hi {
		lo -= 0.5
		hi += 0.5
	}

	width := (hi - lo) / float64(n)
	bins := make([]Bin, n)
	for i := range bins {
		bins[i].Lo = lo + float64(i)*width
		bins[i].Hi = lo + float64(i+1)*width
	}
	bins[n-1].Hi = hi

	for _, v := range finite {
		bins[binIndex((v-lo)/width, n)].Count++
	}
	return bins
}

// binIndex maps a position in bin widths to a bin. Positions that overflowed
// to NaN land in the first bin.
func binIndex(pos float64, n int) int {
	switch {
	case !(pos >= 0):
		return 0
	case pos >= float64(n):
		return n - 1
	default:
		return int(pos)
	}
}

// BoxStats is a five-number summary with Tukey whiskers.
type BoxStats struct {
	N            int
	Min          float64
	Q1           float64
	Median       float64
	Q3           float64
	Max          float64
	LowerWhisker float64
	UpperWhisker float64
	Outliers     []float64
	Mean         float64
	StdDev       float64
}

// Box summarises values. It reports false for an empty input.
func Box(values []float64) (BoxStats, bool) {
	if len(values) == 0 {
		return BoxStats{}, false
	}
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)

	s := BoxStats{
		N:      len(sorted),
		Min:    sorted[0],
		Max:    sorted[len(sorted)-1],
		Q1:     percentile(sorted, 0.25),
		Median: percentile(sorted, 0.5),
		Q3:     percentile(sorted, 0.75),
		Mean:   stat.Mean(sorted, nil),
	}
	if len(sorted) > 1 {
		s.StdDev = stat.StdDev(sorted, nil)
	}

	iqr := s.Q3 - s.Q1
	lowFence := s.Q1 - whiskerReach*iqr
	highFence := s.Q3 + whiskerReach*iqr

	s.LowerWhisker, s.UpperWhisker = s.Q1, s.Q3
	for _, v := range sorted {
		if v >= lowFence {
			s.LowerWhisker = v
			break
		}
	}
	for i := len(sorted) - 1; i >= 0; i-- {
		if sorted[i] <= highFence {
			s.UpperWhisker = sorted[i]
			break
		}
	}
	for _, v := range sorted {
		if v < lowFence || v > highFence {
			s.Outliers = append(s.Outliers, v)
		}
	}
	return s, true
}

// percentile interpolates linearly between the closest ranks of sorted.
func percentile(sorted []float64, p float64) float64 {
	if len(sorted) == 1 {
		return sorted[0]
	}
	h := p * float64(len(sorted)-1)
	lo := math.Floor(h)
	i := int(lo)
	if i+1 >= len(sorted) {
		return sorted[len(sorted)-1]
	}
	return sorted[i] + (h-lo)*(sorted[i+1]-sorted[i])
}
