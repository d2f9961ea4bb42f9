package chart

import (
	"errors"
	"math"
	"sort"
	"strings"

	"github.com/wcharczuk/go-chart/v2/drawing"

	"finsight-backend/internal/model"
	"finsight-backend/internal/util"
)

var (
	errNoRows          = errors.New("chart has no rows")
	errNothingToRender = errors.New("chart has no plottable values")
)

type seriesKind int

const (
	drawBars seriesKind = iota
	drawLine
)

type seriesPlan struct {
	Name      string
	Values    []float64 // aligned with the plan's labels; NaN means no value
	Kind      seriesKind
	Secondary bool
	Color     drawing.Color
}

// categoryPlan covers bar, line, combination and dual-axis charts.
type categoryPlan struct {
	Labels    []string
	Series    []seriesPlan
	Benchmark *seriesPlan
}

func (p categoryPlan) hasSecondary() bool {
	for _, s := range p.Series {
		if s.Secondary {
			return true
		}
	}
	return false
}

func planCategory(desc model.ChartDescription) (categoryPlan, error) {
	if len(desc.Rows) == 0 {
		return categoryPlan{}, errNoRows
	}
	fs := collectFields(desc.Rows, desc.Columns)
	labelKey, hasLabel := fs.labelKey()
	plan := categoryPlan{Labels: labels(desc.Rows, labelKey, hasLabel)}

	column := func(key string) []float64 {
		out := make([]float64, len(desc.Rows))
		for i, row := range desc.Rows {
			out[i] = number(row, key)
		}
		return out
	}

	switch fs.shape() {
	case shapeDualAxis:
		revenue, _ := fs.revenueKey()
		volume, _ := fs.volumeKey()
		plan.Series = []seriesPlan{
			{Name: revenue, Values: column(revenue), Kind: drawBars, Color: seriesColor(0)},
			{Name: volume, Values: column(volume), Kind: drawLine, Secondary: true, Color: seriesColor(4)},
		}
		if bench, ok := benchmarkSeries(desc.Benchmark, plan.Labels); ok {
			plan.Benchmark = &bench
		}
	case shapeComparison:
		for i, key := range fs.comparisonKeys() {
			kind := drawBars
			if desc.Kind == model.ChartLine || (desc.Kind == model.ChartCombination && i > 0) {
				kind = drawLine
			}
			plan.Series = append(plan.Series, seriesPlan{
				Name: strings.ToUpper(key), Values: column(key), Kind: kind, Color: seriesColor(i),
			})
		}
	default:
		if desc.Kind == model.ChartCombination {
			if keys := fs.numericKeys(desc.Rows); len(keys) >= 2 {
				plan.Series = []seriesPlan{
					{Name: keys[0], Values: column(keys[0]), Kind: drawBars, Color: seriesColor(0)},
					{Name: keys[1], Values: column(keys[1]), Kind: drawLine, Secondary: true, Color: seriesColor(4)},
				}
				break
			}
		}
		kind := drawBars
		if desc.Kind == model.ChartLine {
			kind = drawLine
		}
		name := "value"
		values := make([]float64, len(desc.Rows))
		if key, ok := fs.valueKey(desc.Rows); ok {
			name = key
			values = column(key)
		}
		plan.Series = []seriesPlan{{Name: name, Values: values, Kind: kind, Color: seriesColor(0)}}
	}
	return plan, nil
}

// benchmarkSeries aligns benchmark revenue with the chart's labels.
func benchmarkSeries(rows []map[string]any, chartLabels []string) (seriesPlan, bool) {
	if len(rows) == 0 {
		return seriesPlan{}, false
	}
	fs := collectFields(rows, nil)
	valueKey, ok := fs.revenueKey()
	if !ok {
		if valueKey, ok = fs.valueKey(rows); !ok {
			return seriesPlan{}, false
		}
	}
	labelKey, hasLabel := fs.labelKey()
	byLabel := make(map[string]float64, len(rows))
	for i, l := range labels(rows, labelKey, hasLabel) {
		byLabel[strings.ToLower(l)] = number(rows[i], valueKey)
	}

	values := make([]float64, len(chartLabels))
	matched := false
	for i, l := range chartLabels {
		if v, ok := byLabel[strings.ToLower(l)]; ok {
			values[i] = v
			matched = true
		} else {
			values[i] = math.NaN()
		}
	}
	if !matched {
		return seriesPlan{}, false
	}
	return seriesPlan{Name: "Benchmark", Values: values, Kind: drawBars, Color: colorBenchmark}, true
}

type stackSegment struct {
	Base, Top float64
}

type stackedPlan struct {
	Labels   []string
	Layers   []seriesPlan
	Segments [][]stackSegment // [layer][label]
}

// planStacked stacks every numeric non-label column. Positive values grow up from
// zero and negative values grow down, each category keeping its own running totals.
func planStacked(desc model.ChartDescription) (stackedPlan, bool, error) {
	if len(desc.Rows) == 0 {
		return stackedPlan{}, false, errNoRows
	}
	fs := collectFields(desc.Rows, desc.Columns)
	keys := fs.numericKeys(desc.Rows)
	if len(keys) == 0 {
		return stackedPlan{}, false, nil
	}
	labelKey, hasLabel := fs.labelKey()
	plan := stackedPlan{Labels: labels(desc.Rows, labelKey, hasLabel)}
	up := make([]float64, len(desc.Rows))
	down := make([]float64, len(desc.Rows))
	for li, key := range keys {
		layer := seriesPlan{Name: key, Values: make([]float64, len(desc.Rows)), Kind: drawBars, Color: seriesColor(li)}
		segs := make([]stackSegment, len(desc.Rows))
		for i, row := range desc.Rows {
			v := number(row, key)
			layer.Values[i] = v
			if v >= 0 {
				segs[i] = stackSegment{Base: up[i], Top: up[i] + v}
				up[i] += v
			} else {
				segs[i] = stackSegment{Base: down[i], Top: down[i] + v}
				down[i] += v
			}
		}
		plan.Layers = append(plan.Layers, layer)
		plan.Segments = append(plan.Segments, segs)
	}
	return plan, true, nil
}

type pieSlice struct {
	Label string
	Value float64
}

type piePlan struct {
	Slices []pieSlice
}

// planPie keeps only strictly positive slices.
func planPie(desc model.ChartDescription) (piePlan, error) {
	if len(desc.Rows) == 0 {
		return piePlan{}, errNoRows
	}
	fs := collectFields(desc.Rows, desc.Columns)
	labelKey, hasLabel := fs.labelKey()
	valueKey, ok := fs.valueKey(desc.Rows)
	if !ok {
		return piePlan{}, errNothingToRender
	}
	var plan piePlan
	for i, l := range labels(desc.Rows, labelKey, hasLabel) {
		v := number(desc.Rows[i], valueKey)
		if v > 0 {
			plan.Slices = append(plan.Slices, pieSlice{Label: l, Value: v})
		}
	}
	if len(plan.Slices) == 0 {
		return piePlan{}, errNothingToRender
	}
	return plan, nil
}

type trendLine struct {
	Slope, Intercept float64
	X0, X1           float64
}

func (t trendLine) at(x float64) float64 {
	return t.Slope*x + t.Intercept
}

type scatterPlan struct {
	X, Y   []float64
	Labels []string // empty when rows carry no label
	Trend  *trendLine
	XName  string
	YName  string
}

func planScatter(desc model.ChartDescription) (scatterPlan, error) {
	if len(desc.Rows) == 0 {
		return scatterPlan{}, errNoRows
	}
	fs := collectFields(desc.Rows, desc.Columns)
	xKey, hasX := fs.find(xKeys...)
	yKey, hasY := fs.find(yKeys...)
	if !hasX || !hasY {
		numeric := fs.numericKeys(desc.Rows)
		if len(numeric) < 2 {
			return scatterPlan{}, errNothingToRender
		}
		xKey, yKey = numeric[0], numeric[1]
	}
	labelKey, hasLabel := fs.labelKey()

	plan := scatterPlan{XName: xKey, YName: yKey}
	for _, row := range desc.Rows {
		x, okX := util.ToFloat(row[xKey])
		y, okY := util.ToFloat(row[yKey])
		if !okX || !okY {
			continue
		}
		plan.X = append(plan.X, x)
		plan.Y = append(plan.Y, y)
		if hasLabel {
			plan.Labels = append(plan.Labels, labelString(row[labelKey]))
		}
	}
	if len(plan.X) == 0 {
		return scatterPlan{}, errNothingToRender
	}
	if trend, ok := fitLine(plan.X, plan.Y); ok {
		plan.Trend = &trend
	}
	return plan, nil
}

// fitLine is an ordinary least-squares first-degree fit. It needs two distinct x values.
func fitLine(xs, ys []float64) (trendLine, bool) {
	n := float64(len(xs))
	if len(xs) < 2 {
		return trendLine{}, false
	}
	var sx, sy, sxx, sxy float64
	minX, maxX := xs[0], xs[0]
	for i := range xs {
		sx += xs[i]
		sy += ys[i]
		sxx += xs[i] * xs[i]
		sxy += xs[i] * ys[i]
		minX = math.Min(minX, xs[i])
		maxX = math.Max(maxX, xs[i])
	}
	den := n*sxx - sx*sx
	if den == 0 || minX == maxX {
		return trendLine{}, false
	}
	slope := (n*sxy - sx*sy) / den
	return trendLine{Slope: slope, Intercept: (sy - slope*sx) / n, X0: minX, X1: maxX}, true
}

type boxStats struct {
	Min, Q1, Median, Q3, Max float64
}

type boxPlan struct {
	Labels []string
	Stats  []boxStats
}

func planBox(desc model.ChartDescription) (boxPlan, error) {
	if len(desc.Rows) == 0 {
		return boxPlan{}, errNoRows
	}
	fs := collectFields(desc.Rows, desc.Columns)
	labelKey, hasLabel := fs.labelKey()
	valueKey, ok := fs.find("values", "value", "data", "distribution")
	if !ok {
		if valueKey, ok = fs.valueKey(desc.Rows); !ok {
			return boxPlan{}, errNothingToRender
		}
	}

	var plan boxPlan
	for i, l := range labels(desc.Rows, labelKey, hasLabel) {
		values := numberList(desc.Rows[i][valueKey])
		if len(values) == 0 {
			continue
		}
		plan.Labels = append(plan.Labels, l)
		plan.Stats = append(plan.Stats, summarize(values))
	}
	if len(plan.Stats) == 0 {
		return boxPlan{}, errNothingToRender
	}
	return plan, nil
}

func summarize(values []float64) boxStats {
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	return boxStats{
		Min:    sorted[0],
		Q1:     quantile(sorted, 0.25),
		Median: quantile(sorted, 0.5),
		Q3:     quantile(sorted, 0.75),
		Max:    sorted[len(sorted)-1],
	}
}

// quantile uses linear interpolation between closest ranks on sorted input.
func quantile(sorted []float64, q float64) float64 {
	if len(sorted) == 1 {
		return sorted[0]
	}
	pos := q * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	frac := pos - float64(lo)
	return sorted[lo] + (sorted[hi]-sorted[lo])*frac
}

type waterfallStep struct {
	Label string
	Delta float64
	Base  float64 // cumulative total before this step
	End   float64 // cumulative total after this step
}

func (s waterfallStep) increase() bool {
	return s.Delta >= 0
}

type waterfallPlan struct {
	Steps []waterfallStep
}

func planWaterfall(desc model.ChartDescription) (waterfallPlan, error) {
	if len(desc.Rows) == 0 {
		return waterfallPlan{}, errNoRows
	}
	fs := collectFields(desc.Rows, desc.Columns)
	labelKey, hasLabel := fs.labelKey()
	valueKey, ok := fs.valueKey(desc.Rows)
	if !ok {
		return waterfallPlan{}, errNothingToRender
	}
	var plan waterfallPlan
	running := 0.0
	for i, l := range labels(desc.Rows, labelKey, hasLabel) {
		delta := number(desc.Rows[i], valueKey)
		plan.Steps = append(plan.Steps, waterfallStep{Label: l, Delta: delta, Base: running, End: running + delta})
		running += delta
	}
	return plan, nil
}
