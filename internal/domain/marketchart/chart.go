// Package marketchart turns a market price distribution into a bar chart
// layout that templates can draw as SVG. Build has no side effects.
package marketchart

import (
	"fmt"
	"math"

	"github.com/yanqian/rent-estimator/internal/domain/market"
)

// Canvas geometry in SVG user units.
const (
	Width  = 560.0
	Height = 256.0

	marginTop    = 5.0
	marginRight  = 30.0
	marginBottom = 5.0
	marginLeft   = 20.0
	yAxisWidth   = 40.0
	xAxisHeight  = 24.0
	barPadding   = 0.1

	// maxAxis is the largest count the y axis resolves; taller bars are clipped.
	maxAxis = 1 << 30
)

// Bar colors.
const (
	AccentColor = "#10B981"
	MutedColor  = "#3B82F6"
	MarkerColor = "red"
	GridColor   = "#333"
	AxisColor   = "#666"
)

// Bar is a single laid out bucket.
type Bar struct {
	Label      string
	Count      int
	Tooltip    string
	X          float64
	Y          float64
	Width      float64
	Height     float64
	LabelX     float64
	Fill       string
	Opacity    float64
	Emphasized bool
}

// Tick is a y-axis gridline.
type Tick struct {
	Value int
	Y     float64
}

// Marker is the vertical reference line drawn on the busiest bucket.
type Marker struct {
	X     float64
	Label string
	// Bucket is the label of the bucket the marker sits on.
	Bucket string
}

// LegendEntry describes one swatch under the chart.
type LegendEntry struct {
	Label   string
	Color   string
	Opacity float64
}

// Chart is the full layout handed to the renderer.
type Chart struct {
	Title      string
	Width      float64
	Height     float64
	PlotLeft   float64
	PlotRight  float64
	PlotTop    float64
	PlotBottom float64
	LabelY     float64
	Bars       []Bar
	Ticks      []Tick
	Marker     *Marker
	Legend     []LegendEntry
	Empty      bool
}

// Build lays out one bar per bucket. A bar is emphasized when predictedPrice
// falls inside its [range_start, range_end) interval.
func Build(buckets []market.Bucket, predictedPrice float64, location string) Chart {
	chart := Chart{
		Title:      "Market Distribution in " + location,
		Width:      Width,
		Height:     Height,
		PlotLeft:   marginLeft + yAxisWidth,
		PlotRight:  Width - marginRight,
		PlotTop:    marginTop,
		PlotBottom: Height - marginBottom - xAxisHeight,
		Legend: []LegendEntry{
			{Label: "Your Range", Color: AccentColor, Opacity: 1},
			{Label: "Market", Color: MutedColor, Opacity: 0.6},
		},
	}
	chart.LabelY = chart.PlotBottom + xAxisHeight*0.7
	if len(buckets) == 0 {
		chart.Empty = true
		return chart
	}

	peak := 0
	for i, b := range buckets {
		if b.Count > buckets[peak].Count {
			peak = i
		}
	}
	yMax, step := scale(buckets[peak].Count)

	plotHeight := chart.PlotBottom - chart.PlotTop
	band := (chart.PlotRight - chart.PlotLeft) / float64(len(buckets))
	for v := 0; v <= yMax; v += step {
		chart.Ticks = append(chart.Ticks, Tick{
			Value: v,
			Y:     round2(chart.PlotBottom - float64(v)/float64(yMax)*plotHeight),
		})
	}

	chart.Bars = make([]Bar, 0, len(buckets))
	for i, b := range buckets {
		count := min(max(b.Count, 0), yMax)
		h := float64(count) / float64(yMax) * plotHeight
		left := chart.PlotLeft + float64(i)*band
		bar := Bar{
			Label:   b.Label,
			Count:   b.Count,
			Tooltip: fmt.Sprintf("%s: %d listings", b.Label, b.Count),
			X:       round2(left + band*barPadding),
			Y:       round2(chart.PlotBottom - h),
			Width:   round2(band * (1 - 2*barPadding)),
			Height:  round2(h),
			LabelX:  round2(left + band/2),
			Fill:    MutedColor,
			Opacity: 0.6,
		}
		if b.Contains(predictedPrice) {
			bar.Emphasized = true
			bar.Fill = AccentColor
			bar.Opacity = 1
		}
		chart.Bars = append(chart.Bars, bar)
	}

	chart.Marker = &Marker{
		X:      chart.Bars[peak].LabelX,
		Label:  "Max",
		Bucket: buckets[peak].Label,
	}
	return chart
}

// EmphasizedLabels lists the labels of highlighted bars in order.
func (c Chart) EmphasizedLabels() []string {
	var out []string
	for _, b := range c.Bars {
		if b.Emphasized {
			out = append(out, b.Label)
		}
	}
	return out
}

// scale picks an axis maximum and tick step covering maxCount with about four
// intervals. Counts beyond maxAxis are clamped so the tick arithmetic stays in range.
func scale(maxCount int) (int, int) {
	if maxCount <= 0 {
		return 4, 1
	}
	if maxCount > maxAxis {
		maxCount = maxAxis
	}
	step := niceStep(float64(maxCount) / 4)
	top := int(math.Ceil(float64(maxCount)/float64(step))) * step
	return top, step
}

func niceStep(raw float64) int {
	if raw <= 1 {
		return 1
	}
	exp := math.Pow(10, math.Floor(math.Log10(raw)))
	f := raw / exp
	var nice float64
	switch {
	case f <= 1:
		nice = 1
	case f <= 2:
		nice = 2
	case f <= 5:
		nice = 5
	default:
		nice = 10
	}
	return int(nice * exp)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
