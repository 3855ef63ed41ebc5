package portfolio

import (
	"context"
	"fmt"
	"math"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Granularities are the candidate sampling steps, in days, tried in order.
var Granularities = []int{1, 7, 14, 30, 90, 180, 365}

// BarWidth is the magnitude of the largest point of a Performance.
const BarWidth = 50

// Point is one sampled valuation.
type Point struct {
	Date      Date
	Value     Money
	Magnitude int // bar length, in [0, BarWidth]
}

// Performance is a portfolio valuation sampled over a range of dates.
type Performance struct {
	Granularity int // days between two consecutive samples
	Points      []Point
	Base        Money // lowest sampled value
	High        Money // highest sampled value
	Scale       Money // value of one magnitude unit, zero for a flat series
}

// SampleDates returns the dates sampled over r, both ends included.
//
// It picks the first granularity yielding strictly between 5 and 30 points, counting
// the final point on r.To. Spans too short for any granularity are sampled daily, spans
// too long yearly.
func SampleDates(r Range) (granularity int, dates []Date) {
	r = NewRange(r.From, r.To)
	span := r.Span()
	granularity = Granularities[len(Granularities)-1]
	if span+1 <= 5 {
		granularity = Granularities[0]
	}
	for _, g := range Granularities {
		if n := sampleCount(span, g); n > 5 && n < 30 {
			granularity = g
			break
		}
	}

	for d := r.From; !d.After(r.To); d = d.Add(granularity) {
		dates = append(dates, d)
	}
	if dates[len(dates)-1] != r.To {
		dates = append(dates, r.To)
	}
	return granularity, dates
}

func sampleCount(span, step int) int {
	n := span/step + 1
	if span%step != 0 {
		n++
	}
	return n
}

// Sample values the portfolio over the range r, and scales every value into a bar
// magnitude between 0 and BarWidth.
func (p *Portfolio) Sample(ctx context.Context, prices *Pricer, r Range) (*Performance, error) {
	granularity, dates := SampleDates(r)
	perf := &Performance{Granularity: granularity, Points: make([]Point, 0, len(dates))}
	for _, day := range dates {
		v, err := p.ValueAsOf(ctx, prices, day)
		if err != nil {
			return nil, fmt.Errorf("performance of portfolio %d over %s: %w", p.ID, r, err)
		}
		perf.Points = append(perf.Points, Point{Date: day, Value: v})
	}
	perf.scale()
	log.Debug().Int("portfolio", p.ID).Stringer("range", r).Int("granularity", granularity).Int("points", len(perf.Points)).Msg("performance sampled")
	return perf, nil
}

// scale computes Base, Scale and every point magnitude.
func (perf *Performance) scale() {
	lo, hi := perf.Points[0].Value, perf.Points[0].Value
	for _, pt := range perf.Points[1:] {
		if pt.Value.LessThan(lo) {
			lo = pt.Value
		}
		if pt.Value.GreaterThan(hi) {
			hi = pt.Value
		}
	}
	perf.Base, perf.High = lo, hi
	width := hi.Sub(lo).Decimal()
	if width.IsZero() {
		perf.Scale = Money{}
		return // flat series, every magnitude stays at zero
	}
	perf.Scale = M(width.Div(decimal.NewFromInt(BarWidth)))
	// (v-base)/scale, written so that the maximum lands exactly on BarWidth.
	for i, pt := range perf.Points {
		perf.Points[i].Magnitude = int(pt.Value.Sub(lo).Decimal().Mul(decimal.NewFromInt(BarWidth)).Div(width).Floor().IntPart())
	}
}

// Axis returns n+1 evenly spaced dollar labels from Base to High, rounded to the cent.
func (perf *Performance) Axis(n int) []Money {
	if n <= 0 {
		return []Money{perf.Base}
	}
	step := perf.High.Sub(perf.Base).Decimal().Div(decimal.NewFromInt(int64(n)))
	axis := make([]Money, n+1)
	for i := range axis {
		axis[i] = M(perf.Base.Decimal().Add(step.Mul(decimal.NewFromInt(int64(i)))).Round(2))
	}
	return axis
}

// Summary holds descriptive statistics of a sampled performance.
type Summary struct {
	Min, Max, Mean, StdDev float64
	Change                 Money   // last value minus first value
	RelativeChange         float64 // Change over the first value, NaN if the first value is zero
}

// Summary computes descriptive statistics over the sampled values.
func (perf *Performance) Summary() Summary {
	values := make([]float64, len(perf.Points))
	for i, pt := range perf.Points {
		values[i] = pt.Value.Float()
	}
	first, last := perf.Points[0].Value, perf.Points[len(perf.Points)-1].Value
	s := Summary{
		Min:            floats.Min(values),
		Max:            floats.Max(values),
		Mean:           stat.Mean(values, nil),
		Change:         last.Sub(first),
		RelativeChange: math.NaN(),
	}
	if len(values) > 1 {
		s.StdDev = stat.StdDev(values, nil)
	}
	if !first.IsZero() {
		s.RelativeChange = s.Change.Float() / first.Float()
	}
	return s
}
