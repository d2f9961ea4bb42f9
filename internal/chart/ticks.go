package chart

import (
	"fmt"
	"math"

	"github.com/wcharczuk/go-chart/v2"
)

const valueTickCount = 6

// valueAxis returns ticks and a matching range covering [lo, hi] and zero in nice increments.
func valueAxis(lo, hi float64) ([]chart.Tick, *chart.ContinuousRange) {
	return spanAxis(math.Min(lo, 0), math.Max(hi, 0))
}

// spanAxis is valueAxis without the zero anchor, used for scatter axes.
func spanAxis(lo, hi float64) ([]chart.Tick, *chart.ContinuousRange) {
	ticks := niceTicks(lo, hi, valueTickCount)
	if len(ticks) < 2 {
		ticks = []chart.Tick{{Value: 0, Label: "0"}, {Value: 1, Label: "1"}}
	}
	return ticks, &chart.ContinuousRange{Min: ticks[0].Value, Max: ticks[len(ticks)-1].Value}
}

func niceTicks(min, max float64, n int) []chart.Tick {
	if n < 2 || math.IsNaN(min) || math.IsNaN(max) || math.IsInf(min, 0) || math.IsInf(max, 0) {
		return nil
	}
	if max <= min {
		max = min + 1
	}
	span := max - min
	mag := math.Pow(10, math.Floor(math.Log10(span/float64(n-1))))
	bestStep := mag
	bestScore := math.MaxFloat64
	for _, c := range []float64{1, 2, 2.5, 5, 10} {
		step := c * mag
		count := math.Max(math.Ceil(span/step), 2)
		if score := math.Abs(count - float64(n)); score < bestScore {
			bestScore = score
			bestStep = step
		}
	}
	start := math.Floor(min/bestStep) * bestStep
	end := math.Ceil(max/bestStep) * bestStep
	var ticks []chart.Tick
	for v := start; v <= end+bestStep/2; v += bestStep {
		ticks = append(ticks, chart.Tick{Value: v, Label: formatTick(v)})
		if len(ticks) > n+2 {
			break
		}
	}
	return ticks
}

func formatTick(v float64) string {
	av := math.Abs(v)
	switch {
	case av < 1e-9:
		return "0"
	case av >= 1e9:
		return trimFloat(v/1e9) + "B"
	case av >= 1e6:
		return trimFloat(v/1e6) + "M"
	case av >= 1e3:
		return trimFloat(v/1e3) + "K"
	case av >= 10:
		return fmt.Sprintf("%.0f", v)
	default:
		return fmt.Sprintf("%.2f", v)
	}
}

func trimFloat(v float64) string {
	if v == math.Trunc(v) {
		return fmt.Sprintf("%.0f", v)
	}
	return fmt.Sprintf("%.1f", v)
}

// categoryAxis places one tick per label at 0..n-1 and pads half a slot either side.
func categoryAxis(labels []string) chart.XAxis {
	ticks := make([]chart.Tick, 0, len(labels)+2)
	ticks = append(ticks, chart.Tick{Value: -0.5})
	for i, l := range labels {
		ticks = append(ticks, chart.Tick{Value: float64(i), Label: l})
	}
	ticks = append(ticks, chart.Tick{Value: float64(len(labels)) - 0.5})
	return chart.XAxis{
		Ticks: ticks,
		Range: &chart.ContinuousRange{Min: -0.5, Max: float64(len(labels)) - 0.5},
		TickStyle: chart.Style{
			TextRotationDegrees: 30,
			FontSize:            9,
		},
		Style: chart.Style{StrokeColor: colorBorder, StrokeWidth: 1},
	}
}

// extent returns the min and max over every finite value.
func extent(series ...[]float64) (float64, float64) {
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, values := range series {
		for _, v := range values {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				continue
			}
			lo = math.Min(lo, v)
			hi = math.Max(hi, v)
		}
	}
	if math.IsInf(lo, 1) {
		return 0, 1
	}
	return lo, hi
}
