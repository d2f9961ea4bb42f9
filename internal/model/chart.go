package model

import (
	"encoding/json"
	"strings"
)

type ChartKind string

const (
	ChartBar         ChartKind = "bar"
	ChartLine        ChartKind = "line"
	ChartPie         ChartKind = "pie"
	ChartScatter     ChartKind = "scatter"
	ChartBox         ChartKind = "box"
	ChartStackedBar  ChartKind = "stacked_bar"
	ChartWaterfall   ChartKind = "waterfall"
	ChartCombination ChartKind = "combination"
)

var chartKindAliases = map[string]ChartKind{
	"bar":          ChartBar,
	"column":       ChartBar,
	"grouped_bar":  ChartBar,
	"line":         ChartLine,
	"trend":        ChartLine,
	"pie":          ChartPie,
	"donut":        ChartPie,
	"scatter":      ChartScatter,
	"box":          ChartBox,
	"boxplot":      ChartBox,
	"stacked_bar":  ChartStackedBar,
	"stacked":      ChartStackedBar,
	"stackedbar":   ChartStackedBar,
	"waterfall":    ChartWaterfall,
	"bridge":       ChartWaterfall,
	"combination":  ChartCombination,
	"combo":        ChartCombination,
	"dual_axis":    ChartCombination,
	"bar_and_line": ChartCombination,
}

// ParseChartKind maps a loose model-supplied kind onto a known kind; anything unknown is a bar.
func ParseChartKind(s string) ChartKind {
	key := strings.ToLower(strings.TrimSpace(s))
	key = strings.NewReplacer("-", "_", " ", "_").Replace(key)
	key = strings.TrimSuffix(key, "_chart")
	if k, ok := chartKindAliases[key]; ok {
		return k
	}
	return ChartBar
}

// ChartDescription is a chart proposed by the model: a kind plus loosely typed rows.
type ChartDescription struct {
	Kind      ChartKind        `json:"chart_type"`
	Title     string           `json:"title"`
	Rows      []map[string]any `json:"data"`
	Benchmark []map[string]any `json:"benchmark,omitempty"`
	// Columns is the row key order as written by the model, when known.
	Columns []string `json:"-"`
}

// ParseChartDescription accepts either a decoded JSON object or a string containing one.
func ParseChartDescription(v any) (ChartDescription, bool) {
	var columns []string
	if s, ok := v.(string); ok {
		var decoded map[string]any
		if err := json.Unmarshal([]byte(s), &decoded); err != nil {
			return ChartDescription{}, false
		}
		v = decoded
		columns = chartColumnsOf(s)
	}
	m, ok := v.(map[string]any)
	if !ok {
		return ChartDescription{}, false
	}

	desc := ChartDescription{
		Kind:  ParseChartKind(firstString(m, "chart_type", "type", "kind")),
		Title: firstString(m, "title"),
	}
	desc.Rows = objectList(m, "data", "rows")
	desc.Benchmark = objectList(m, "benchmark", "benchmark_data")
	if len(columns) > 0 {
		desc.Columns = columns
	}
	return desc, true
}

// ParseChartDescriptions drops entries that are not objects or JSON object strings.
// columnOrders, when non-nil, is indexed like raw (see ChartColumnOrders).
func ParseChartDescriptions(raw []any, columnOrders [][]string) []ChartDescription {
	out := make([]ChartDescription, 0, len(raw))
	for i, item := range raw {
		desc, ok := ParseChartDescription(item)
		if !ok {
			continue
		}
		if desc.Columns == nil && i < len(columnOrders) {
			desc.Columns = columnOrders[i]
		}
		out = append(out, desc)
	}
	return out
}

func firstString(m map[string]any, keys ...string) string {
	for _, k := range keys {
		if s, ok := m[k].(string); ok && s != "" {
			return s
		}
	}
	return ""
}

func objectList(m map[string]any, keys ...string) []map[string]any {
	for _, k := range keys {
		items, ok := m[k].([]any)
		if !ok {
			continue
		}
		rows := make([]map[string]any, 0, len(items))
		for _, item := range items {
			if row, ok := item.(map[string]any); ok {
				rows = append(rows, row)
			}
		}
		return rows
	}
	return nil
}
