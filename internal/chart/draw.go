package chart

import (
	"bytes"
	"encoding/base64"
	"io"
	"math"
	"strconv"

	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"
)

const (
	dataURIPrefix = "data:image/png;base64,"
	groupWidth    = 0.8
)

type canvasSize struct {
	Width, Height int
	DPI           float64
}

type renderable interface {
	Render(rp chart.RendererProvider, w io.Writer) error
}

func encodePNG(c renderable) (string, error) {
	var buf bytes.Buffer
	if err := c.Render(chart.PNG, &buf); err != nil {
		return "", err
	}
	return dataURIPrefix + base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

// newCanvas applies the shared finishing: title, padding, light grid and border.
func newCanvas(title string, size canvasSize, xAxis chart.XAxis, yTicks []chart.Tick, yRange *chart.ContinuousRange) *chart.Chart {
	grid := make([]chart.GridLine, 0, len(yTicks))
	for _, t := range yTicks {
		grid = append(grid, chart.GridLine{Value: t.Value})
	}
	return &chart.Chart{
		Title:      title,
		TitleStyle: chart.Style{FontSize: 16},
		Width:      size.Width,
		Height:     size.Height,
		DPI:        size.DPI,
		Background: chart.Style{Padding: chart.Box{Top: 48, Left: 16, Right: 16, Bottom: 16}},
		XAxis:      xAxis,
		YAxis: chart.YAxis{
			Ticks:          yTicks,
			Range:          yRange,
			Style:          chart.Style{StrokeColor: colorBorder, StrokeWidth: 1},
			GridLines:      grid,
			GridMajorStyle: chart.Style{StrokeColor: colorGrid, StrokeWidth: 1},
		},
	}
}

func withLegend(c *chart.Chart) {
	c.Elements = []chart.Renderable{chart.Legend(c)}
}

func lineSeries(s seriesPlan) chart.ContinuousSeries {
	axis := chart.YAxisPrimary
	if s.Secondary {
		axis = chart.YAxisSecondary
	}
	xs := make([]float64, 0, len(s.Values))
	ys := make([]float64, 0, len(s.Values))
	for i, v := range s.Values {
		if math.IsNaN(v) {
			continue
		}
		xs = append(xs, float64(i))
		ys = append(ys, v)
	}
	return chart.ContinuousSeries{
		Name:    s.Name,
		XValues: xs,
		YValues: ys,
		YAxis:   axis,
		Style: chart.Style{
			StrokeColor: s.Color,
			StrokeWidth: 2.5,
			DotColor:    s.Color,
			DotWidth:    3,
		},
	}
}

func drawCategory(title string, p categoryPlan, size canvasSize) *chart.Chart {
	var primary [][]float64
	var secondary [][]float64
	barCount := 0
	for _, s := range p.Series {
		if s.Secondary {
			secondary = append(secondary, s.Values)
			continue
		}
		primary = append(primary, s.Values)
		if s.Kind == drawBars {
			barCount++
		}
	}
	if p.Benchmark != nil {
		primary = append(primary, p.Benchmark.Values)
	}
	yTicks, yRange := valueAxis(extent(primary...))
	c := newCanvas(title, size, categoryAxis(p.Labels), yTicks, yRange)

	if p.Benchmark != nil {
		bs := barSeries{Name: p.Benchmark.Name, Style: chart.Style{FillColor: p.Benchmark.Color, StrokeColor: p.Benchmark.Color}}
		for i, v := range p.Benchmark.Values {
			bs.Bars = append(bs.Bars, bar{X: float64(i), Width: groupWidth, Top: v})
		}
		c.Series = append(c.Series, bs)
	}

	width := groupWidth
	if barCount > 0 {
		width = groupWidth / float64(barCount)
	}
	slot := 0
	for _, s := range p.Series {
		if s.Kind == drawLine {
			c.Series = append(c.Series, lineSeries(s))
			continue
		}
		offset := -groupWidth/2 + width*(float64(slot)+0.5)
		bs := barSeries{Name: s.Name, Style: chart.Style{FillColor: s.Color, StrokeColor: s.Color}}
		if s.Secondary {
			bs.YAxis = chart.YAxisSecondary
		}
		for i, v := range s.Values {
			bs.Bars = append(bs.Bars, bar{X: float64(i) + offset, Width: width * 0.9, Top: v})
		}
		c.Series = append(c.Series, bs)
		slot++
	}

	if p.hasSecondary() {
		ticks, rng := valueAxis(extent(secondary...))
		c.YAxisSecondary = chart.YAxis{
			Ticks: ticks,
			Range: rng,
			Style: chart.Style{StrokeColor: colorBorder, StrokeWidth: 1},
		}
	}
	if len(c.Series) > 1 {
		withLegend(c)
	}
	return c
}

func drawStacked(title string, p stackedPlan, size canvasSize) *chart.Chart {
	var bounds []float64
	for _, layer := range p.Segments {
		for _, seg := range layer {
			bounds = append(bounds, seg.Base, seg.Top)
		}
	}
	yTicks, yRange := valueAxis(extent(bounds))
	c := newCanvas(title, size, categoryAxis(p.Labels), yTicks, yRange)
	for li, layer := range p.Layers {
		bs := barSeries{Name: layer.Name, Style: chart.Style{FillColor: layer.Color, StrokeColor: layer.Color}}
		for i, seg := range p.Segments[li] {
			bs.Bars = append(bs.Bars, bar{X: float64(i), Width: groupWidth * 0.8, Base: seg.Base, Top: seg.Top})
		}
		c.Series = append(c.Series, bs)
	}
	if len(c.Series) > 1 {
		withLegend(c)
	}
	return c
}

func drawWaterfall(title string, p waterfallPlan, size canvasSize) *chart.Chart {
	labels := make([]string, len(p.Steps))
	bounds := make([]float64, 0, 2*len(p.Steps))
	bs := barSeries{Name: "change"}
	notes := chart.AnnotationSeries{Name: "deltas"}
	for i, step := range p.Steps {
		labels[i] = step.Label
		bounds = append(bounds, step.Base, step.End)
		color := colorDecrease
		if step.increase() {
			color = colorIncrease
		}
		bs.Bars = append(bs.Bars, bar{X: float64(i), Width: groupWidth * 0.8, Base: step.Base, Top: step.End, Color: color})
		notes.Annotations = append(notes.Annotations, chart.Value2{
			XValue: float64(i),
			YValue: math.Max(step.Base, step.End),
			Label:  signed(step.Delta),
		})
	}
	yTicks, yRange := valueAxis(extent(bounds))
	c := newCanvas(title, size, categoryAxis(labels), yTicks, yRange)
	c.Series = []chart.Series{bs, notes}
	return c
}

func signed(v float64) string {
	s := formatTick(v)
	if v > 0 {
		return "+" + s
	}
	return s
}

func drawBox(title string, p boxPlan, size canvasSize) *chart.Chart {
	bounds := make([]float64, 0, 2*len(p.Stats))
	bs := boxSeries{Name: "distribution"}
	for i, st := range p.Stats {
		bounds = append(bounds, st.Min, st.Max)
		bs.Boxes = append(bs.Boxes, boxGlyph{X: float64(i), Width: groupWidth * 0.6, Stats: st})
	}
	yTicks, yRange := spanAxis(extent(bounds))
	c := newCanvas(title, size, categoryAxis(p.Labels), yTicks, yRange)
	c.Series = []chart.Series{bs}
	return c
}

func drawScatter(title string, p scatterPlan, size canvasSize) *chart.Chart {
	xTicks, xRange := spanAxis(extent(p.X))
	yTicks, yRange := spanAxis(extent(p.Y))
	xAxis := chart.XAxis{
		Name:  p.XName,
		Ticks: xTicks,
		Range: xRange,
		Style: chart.Style{StrokeColor: colorBorder, StrokeWidth: 1},
	}
	c := newCanvas(title, size, xAxis, yTicks, yRange)
	c.YAxis.Name = p.YName
	c.Series = []chart.Series{chart.ContinuousSeries{
		Name:    p.YName,
		XValues: p.X,
		YValues: p.Y,
		Style: chart.Style{
			StrokeWidth: chart.Disabled,
			DotWidth:    5,
			DotColor:    seriesColor(1),
		},
	}}
	if p.Trend != nil {
		c.Series = append(c.Series, chart.ContinuousSeries{
			Name:    "trend",
			XValues: []float64{p.Trend.X0, p.Trend.X1},
			YValues: []float64{p.Trend.at(p.Trend.X0), p.Trend.at(p.Trend.X1)},
			Style: chart.Style{
				StrokeColor:     colorTrend,
				StrokeWidth:     1.5,
				StrokeDashArray: []float64{5, 3},
			},
		})
	}
	if len(p.Labels) == len(p.X) {
		notes := chart.AnnotationSeries{Name: "labels"}
		for i := range p.X {
			notes.Annotations = append(notes.Annotations, chart.Value2{XValue: p.X[i], YValue: p.Y[i], Label: p.Labels[i]})
		}
		c.Series = append(c.Series, notes)
	}
	return c
}

func drawPie(title string, p piePlan, size canvasSize) *chart.PieChart {
	values := make([]chart.Value, len(p.Slices))
	for i, s := range p.Slices {
		values[i] = chart.Value{
			Label: s.Label + " " + strconv.FormatFloat(s.Value, 'f', -1, 64),
			Value: s.Value,
			Style: chart.Style{FillColor: seriesColor(i), StrokeColor: drawing.ColorWhite, FontSize: 10},
		}
	}
	return &chart.PieChart{
		Title:      title,
		TitleStyle: chart.Style{FontSize: 16},
		Width:      size.Width,
		Height:     size.Height,
		DPI:        size.DPI,
		Values:     values,
	}
}
