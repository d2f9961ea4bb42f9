package chart

import (
	"encoding/base64"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"finsight-backend/config"
	"finsight-backend/internal/model"
)

func testRenderer() Renderer {
	return NewChartRenderer(&config.Config{Chart: config.ChartConfig{Width: 400, Height: 300, DPI: 72}})
}

func rows(items ...map[string]any) []map[string]any { return items }

func TestPlanPie_KeepsOnlyPositiveSlices(t *testing.T) {
	desc := model.ChartDescription{Kind: model.ChartPie, Rows: rows(
		map[string]any{"label": "A", "value": 5.0},
		map[string]any{"label": "B", "value": -1.0},
		map[string]any{"label": "C", "value": 0.0},
	)}
	p, err := planPie(desc)
	require.NoError(t, err)
	assert.Equal(t, []pieSlice{{Label: "A", Value: 5}}, p.Slices)
}

func TestPlanPie_NothingPositive(t *testing.T) {
	desc := model.ChartDescription{Kind: model.ChartPie, Rows: rows(
		map[string]any{"label": "B", "value": -1.0},
		map[string]any{"label": "C", "value": 0.0},
	)}
	_, err := planPie(desc)
	assert.ErrorIs(t, err, errNothingToRender)

	_, ok := testRenderer().Render(desc)
	assert.False(t, ok)
}

func TestPlanWaterfall_RunningBases(t *testing.T) {
	desc := model.ChartDescription{Kind: model.ChartWaterfall, Rows: rows(
		map[string]any{"label": "Start", "value": 100.0},
		map[string]any{"label": "Delta1", "value": -20.0},
		map[string]any{"label": "Delta2", "value": 15.0},
	)}
	p, err := planWaterfall(desc)
	require.NoError(t, err)
	require.Len(t, p.Steps, 3)

	assert.Equal(t, 0.0, p.Steps[0].Base)
	assert.Equal(t, 100.0, p.Steps[1].Base)
	assert.Equal(t, 80.0, p.Steps[2].Base)
	assert.Equal(t, 95.0, p.Steps[2].End)
	assert.True(t, p.Steps[0].increase())
	assert.False(t, p.Steps[1].increase())
}

func TestPlanCategory_Shapes(t *testing.T) {
	tests := []struct {
		name  string
		kind  model.ChartKind
		rows  []map[string]any
		names []string
		kinds []seriesKind
	}{
		{
			name: "revenue and volume use a secondary axis",
			kind: model.ChartBar,
			rows: rows(
				map[string]any{"label": "Jan", "Revenue": 100.0, "Volume": 10.0},
				map[string]any{"label": "Feb", "Revenue": 120.0, "Volume": 12.0},
			),
			names: []string{"Revenue", "Volume"},
			kinds: []seriesKind{drawBars, drawLine},
		},
		{
			name:  "comparison keeps only present columns",
			kind:  model.ChartBar,
			rows:  rows(map[string]any{"label": "Oreo", "actual": 10.0, "py": 8.0}),
			names: []string{"ACTUAL", "PY"},
			kinds: []seriesKind{drawBars, drawBars},
		},
		{
			name:  "combination draws the rest as lines",
			kind:  model.ChartCombination,
			rows:  rows(map[string]any{"label": "Oreo", "actual": 10.0, "rf": 9.0, "py": 8.0}),
			names: []string{"ACTUAL", "RF", "PY"},
			kinds: []seriesKind{drawBars, drawLine, drawLine},
		},
		{
			name:  "single value",
			kind:  model.ChartLine,
			rows:  rows(map[string]any{"month": "2024-01", "value": 3.0}),
			names: []string{"value"},
			kinds: []seriesKind{drawLine},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := planCategory(model.ChartDescription{Kind: tt.kind, Rows: tt.rows})
			require.NoError(t, err)
			var names []string
			var kinds []seriesKind
			for _, s := range p.Series {
				names = append(names, s.Name)
				kinds = append(kinds, s.Kind)
			}
			assert.Equal(t, tt.names, names)
			assert.Equal(t, tt.kinds, kinds)
		})
	}
}

func TestPlanCategory_DualAxisMarksVolumeSecondary(t *testing.T) {
	p, err := planCategory(model.ChartDescription{Rows: rows(
		map[string]any{"label": "Jan", "Net Revenue": 100.0, "Volume": 10.0},
	)})
	require.NoError(t, err)
	assert.True(t, p.hasSecondary())
	assert.False(t, p.Series[0].Secondary)
	assert.True(t, p.Series[1].Secondary)
}

func TestPlanCategory_NonNumericBecomesZero(t *testing.T) {
	p, err := planCategory(model.ChartDescription{Rows: rows(
		map[string]any{"label": "A", "value": "n/a"},
		map[string]any{"label": "B", "value": "1,500"},
	)})
	require.NoError(t, err)
	require.Len(t, p.Series, 1)
	assert.Equal(t, []float64{0, 1500}, p.Series[0].Values)
	assert.Equal(t, []string{"A", "B"}, p.Labels)
}

func TestPlanCategory_LabelsFallBackToRowNumber(t *testing.T) {
	p, err := planCategory(model.ChartDescription{Rows: rows(
		map[string]any{"value": 1.0},
		map[string]any{"value": 2.0},
	)})
	require.NoError(t, err)
	assert.Equal(t, []string{"1", "2"}, p.Labels)
}

func TestBenchmarkSeries_AlignsByLabel(t *testing.T) {
	p, err := planCategory(model.ChartDescription{
		Rows: rows(
			map[string]any{"label": "Oreo", "Revenue": 100.0, "Volume": 10.0},
			map[string]any{"label": "Milka", "Revenue": 80.0, "Volume": 8.0},
		),
		Benchmark: rows(map[string]any{"label": "milka", "Revenue": 90.0}),
	})
	require.NoError(t, err)
	require.NotNil(t, p.Benchmark)
	assert.True(t, math.IsNaN(p.Benchmark.Values[0]))
	assert.Equal(t, 90.0, p.Benchmark.Values[1])
}

func TestPlanStacked(t *testing.T) {
	p, ok, err := planStacked(model.ChartDescription{Kind: model.ChartStackedBar, Rows: rows(
		map[string]any{"label": "Q1", "a": 10.0, "b": 5.0},
		map[string]any{"label": "Q2", "a": -4.0, "b": 6.0},
	)})
	require.NoError(t, err)
	require.True(t, ok)
	require.Len(t, p.Layers, 2)

	assert.Equal(t, stackSegment{Base: 0, Top: 10}, p.Segments[0][0])
	assert.Equal(t, stackSegment{Base: 10, Top: 15}, p.Segments[1][0])
	assert.Equal(t, stackSegment{Base: 0, Top: -4}, p.Segments[0][1])
	assert.Equal(t, stackSegment{Base: 0, Top: 6}, p.Segments[1][1])
}

func TestPlanStacked_FollowsColumnOrder(t *testing.T) {
	p, ok, err := planStacked(model.ChartDescription{
		Kind:    model.ChartStackedBar,
		Columns: []string{"label", "snacks", "biscuits"},
		Rows: rows(
			map[string]any{"label": "Q1", "snacks": 3.0, "biscuits": 7.0},
		),
	})
	require.NoError(t, err)
	require.True(t, ok)
	require.Len(t, p.Layers, 2)
	assert.Equal(t, "snacks", p.Layers[0].Name)
	assert.Equal(t, "biscuits", p.Layers[1].Name)
	assert.Equal(t, stackSegment{Base: 3, Top: 10}, p.Segments[1][0])
}

func TestPlanCategory_CombinationWithArbitraryMeasures(t *testing.T) {
	data := rows(
		map[string]any{"label": "Oreo", "net_sales": 120.0, "growth_pct": 4.5},
		map[string]any{"label": "Milka", "net_sales": 80.0, "growth_pct": -1.2},
	)
	tests := []struct {
		name    string
		columns []string
		bars    string
		line    string
	}{
		{"column order", []string{"label", "net_sales", "growth_pct"}, "net_sales", "growth_pct"},
		{"no order known", nil, "growth_pct", "net_sales"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := planCategory(model.ChartDescription{Kind: model.ChartCombination, Columns: tt.columns, Rows: data})
			require.NoError(t, err)
			require.Len(t, p.Series, 2)

			assert.Equal(t, tt.bars, p.Series[0].Name)
			assert.Equal(t, drawBars, p.Series[0].Kind)
			assert.False(t, p.Series[0].Secondary)

			assert.Equal(t, tt.line, p.Series[1].Name)
			assert.Equal(t, drawLine, p.Series[1].Kind)
			assert.True(t, p.Series[1].Secondary)
		})
	}

	uri, ok := testRenderer().Render(model.ChartDescription{Kind: model.ChartCombination, Title: "Sales and growth", Rows: data})
	require.True(t, ok)
	assert.True(t, strings.HasPrefix(uri, dataURIPrefix))
}

func TestPlanCategory_SingleMeasureCombinationStaysSingle(t *testing.T) {
	p, err := planCategory(model.ChartDescription{Kind: model.ChartCombination, Rows: rows(
		map[string]any{"label": "Oreo", "share": 0.4},
	)})
	require.NoError(t, err)
	require.Len(t, p.Series, 1)
	assert.Equal(t, "share", p.Series[0].Name)
}

func TestPlanStacked_NoNumericColumnsFallsBack(t *testing.T) {
	desc := model.ChartDescription{Kind: model.ChartStackedBar, Rows: rows(map[string]any{"label": "Q1"})}
	_, ok, err := planStacked(desc)
	require.NoError(t, err)
	assert.False(t, ok)

	uri, rendered := testRenderer().Render(desc)
	assert.True(t, rendered)
	assert.True(t, strings.HasPrefix(uri, dataURIPrefix))
}

func TestPlanBox(t *testing.T) {
	p, err := planBox(model.ChartDescription{Kind: model.ChartBox, Rows: rows(
		map[string]any{"label": "list", "values": []any{1.0, 2.0, 3.0, 4.0, 5.0}},
		map[string]any{"label": "string list", "values": "[10, 20, 30]"},
		map[string]any{"label": "garbage", "values": "abc"},
	)})
	require.NoError(t, err)
	require.Len(t, p.Stats, 3)

	assert.Equal(t, boxStats{Min: 1, Q1: 2, Median: 3, Q3: 4, Max: 5}, p.Stats[0])
	assert.Equal(t, boxStats{Min: 10, Q1: 15, Median: 20, Q3: 25, Max: 30}, p.Stats[1])
	assert.Equal(t, boxStats{}, p.Stats[2])
}

func TestPlanScatter_Trend(t *testing.T) {
	p, err := planScatter(model.ChartDescription{Kind: model.ChartScatter, Rows: rows(
		map[string]any{"x": 1.0, "y": 2.0, "label": "a"},
		map[string]any{"x": 2.0, "y": 4.0, "label": "b"},
		map[string]any{"x": 3.0, "y": 6.0, "label": "c"},
	)})
	require.NoError(t, err)
	require.NotNil(t, p.Trend)
	assert.InDelta(t, 2.0, p.Trend.Slope, 1e-9)
	assert.InDelta(t, 0.0, p.Trend.Intercept, 1e-9)
	assert.Equal(t, []string{"a", "b", "c"}, p.Labels)
}

func TestPlanScatter_SinglePointHasNoTrend(t *testing.T) {
	p, err := planScatter(model.ChartDescription{Rows: rows(map[string]any{"x": 1.0, "y": 2.0})})
	require.NoError(t, err)
	assert.Nil(t, p.Trend)
}

func TestRender_ProducesPNGDataURI(t *testing.T) {
	descs := []model.ChartDescription{
		{Kind: model.ChartBar, Title: "Revenue", Rows: rows(
			map[string]any{"label": "Oreo", "value": 120.0},
			map[string]any{"label": "Milka", "value": 80.0},
		)},
		{Kind: model.ChartCombination, Title: "Revenue vs Volume", Rows: rows(
			map[string]any{"label": "Jan", "Revenue": 1200.0, "Volume": 30.0},
			map[string]any{"label": "Feb", "Revenue": 1500.0, "Volume": 25.0},
		)},
		{Kind: model.ChartPie, Title: "Share", Rows: rows(
			map[string]any{"label": "A", "value": 3.0},
			map[string]any{"label": "B", "value": 1.0},
		)},
		{Kind: model.ChartWaterfall, Title: "Bridge", Rows: rows(
			map[string]any{"label": "PY", "value": 100.0},
			map[string]any{"label": "Price", "value": -20.0},
		)},
	}
	r := testRenderer()
	for _, desc := range descs {
		t.Run(string(desc.Kind), func(t *testing.T) {
			uri, ok := r.Render(desc)
			require.True(t, ok)
			require.True(t, strings.HasPrefix(uri, dataURIPrefix))
			raw, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(uri, dataURIPrefix))
			require.NoError(t, err)
			assert.Equal(t, "\x89PNG", string(raw[:4]))
		})
	}
}

func TestRenderAll_SkipsFailures(t *testing.T) {
	descs := []model.ChartDescription{
		{Kind: model.ChartBar, Rows: rows(map[string]any{"label": "A", "value": 1.0})},
		{Kind: model.ChartBar},
		{Kind: model.ChartPie, Rows: rows(map[string]any{"label": "A", "value": -1.0})},
		{Kind: model.ChartLine, Rows: rows(map[string]any{"label": "A", "value": 1.0}, map[string]any{"label": "B", "value": 2.0})},
	}
	got := testRenderer().RenderAll(descs)
	assert.Len(t, got, 2)
}

func TestNiceTicks(t *testing.T) {
	ticks := niceTicks(0, 95, valueTickCount)
	require.NotEmpty(t, ticks)
	assert.Equal(t, 0.0, ticks[0].Value)
	assert.GreaterOrEqual(t, ticks[len(ticks)-1].Value, 95.0)
	assert.Equal(t, "1.5M", formatTick(1_500_000))
	assert.Equal(t, "-20", formatTick(-20))
}
