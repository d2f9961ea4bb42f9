package chart

import (
	"errors"
	"math"

	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"
)

// bar is one rectangle in category space; X is the slot center.
type bar struct {
	X, Width  float64
	Base, Top float64
	Color     drawing.Color
}

// barSeries draws filled rectangles between arbitrary bases and tops. It backs plain,
// grouped, stacked and waterfall bars alike.
type barSeries struct {
	Name  string
	Style chart.Style
	YAxis chart.YAxisType
	Bars  []bar
}

func (s barSeries) GetName() string { return s.Name }
func (s barSeries) GetStyle() chart.Style { return s.Style }
func (s barSeries) GetYAxis() chart.YAxisType { return s.YAxis }
func (s barSeries) Len() int { return 2 * len(s.Bars) }
func (s barSeries) GetValues(i int) (float64, float64) {
	b := s.Bars[i/2]
	if i%2 == 0 {
		return b.X, b.Base
	}
	return b.X, b.Top
}

func (s barSeries) Validate() error {
	if len(s.Bars) == 0 {
		return errors.New("bar series has no bars")
	}
	return nil
}

func (s barSeries) Render(r chart.Renderer, canvasBox chart.Box, xrange, yrange chart.Range, _ chart.Style) {
	for _, b := range s.Bars {
		if math.IsNaN(b.Top) || math.IsNaN(b.Base) {
			continue
		}
		left := canvasBox.Left + xrange.Translate(b.X-b.Width/2)
		right := canvasBox.Left + xrange.Translate(b.X+b.Width/2)
		y0 := canvasBox.Bottom - yrange.Translate(b.Base)
		y1 := canvasBox.Bottom - yrange.Translate(b.Top)
		if y0 == y1 {
			y1--
		}
		color := b.Color
		if color.IsZero() {
			color = s.Style.FillColor
		}
		fillRect(r, left, y0, right, y1, color)
	}
}

// boxGlyph is one box-and-whisker at slot X.
type boxGlyph struct {
	X, Width float64
	Stats    boxStats
}

type boxSeries struct {
	Name  string
	Style chart.Style
	Boxes []boxGlyph
}

func (s boxSeries) GetName() string { return s.Name }
func (s boxSeries) GetStyle() chart.Style { return s.Style }
func (s boxSeries) GetYAxis() chart.YAxisType { return chart.YAxisPrimary }
func (s boxSeries) Len() int { return 2 * len(s.Boxes) }
func (s boxSeries) GetValues(i int) (float64, float64) {
	b := s.Boxes[i/2]
	if i%2 == 0 {
		return b.X, b.Stats.Min
	}
	return b.X, b.Stats.Max
}

func (s boxSeries) Validate() error {
	if len(s.Boxes) == 0 {
		return errors.New("box series has no boxes")
	}
	return nil
}

func (s boxSeries) Render(r chart.Renderer, canvasBox chart.Box, xrange, yrange chart.Range, _ chart.Style) {
	y := func(v float64) int { return canvasBox.Bottom - yrange.Translate(v) }
	for i, b := range s.Boxes {
		center := canvasBox.Left + xrange.Translate(b.X)
		left := canvasBox.Left + xrange.Translate(b.X-b.Width/2)
		right := canvasBox.Left + xrange.Translate(b.X+b.Width/2)
		capHalf := (right - left) / 4

		r.SetStrokeColor(colorTrend)
		r.SetStrokeWidth(1)
		r.MoveTo(center, y(b.Stats.Max))
		r.LineTo(center, y(b.Stats.Q3))
		r.MoveTo(center, y(b.Stats.Q1))
		r.LineTo(center, y(b.Stats.Min))
		r.MoveTo(center-capHalf, y(b.Stats.Max))
		r.LineTo(center+capHalf, y(b.Stats.Max))
		r.MoveTo(center-capHalf, y(b.Stats.Min))
		r.LineTo(center+capHalf, y(b.Stats.Min))
		r.Stroke()

		fillRect(r, left, y(b.Stats.Q1), right, y(b.Stats.Q3), seriesColor(i).WithAlpha(200))

		r.SetStrokeColor(drawing.ColorWhite)
		r.SetStrokeWidth(2)
		r.MoveTo(left, y(b.Stats.Median))
		r.LineTo(right, y(b.Stats.Median))
		r.Stroke()
	}
}

func fillRect(r chart.Renderer, x0, y0, x1, y1 int, color drawing.Color) {
	r.SetFillColor(color)
	r.SetStrokeColor(color)
	r.SetStrokeWidth(1)
	r.MoveTo(x0, y0)
	r.LineTo(x1, y0)
	r.LineTo(x1, y1)
	r.LineTo(x0, y1)
	r.LineTo(x0, y0)
	r.Close()
	r.FillStroke()
}
