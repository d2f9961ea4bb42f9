package chart

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"finsight-backend/internal/util"
)

type rowShape int

const (
	shapeSingle rowShape = iota
	shapeComparison
	shapeDualAxis
)

var (
	labelKeys      = []string{"label", "name", "category", "brand", "period", "month", "kpi", "country", "region", "step"}
	valueKeys      = []string{"value", "amount", "total", "count"}
	actualKeys     = []string{"actual", "actuals", "act", "ac"}
	reforecastKeys = []string{"rf", "reforecast", "forecast"}
	priorYearKeys  = []string{"py", "prior_year", "prior year", "prioryear", "ly", "last_year"}
	xKeys          = []string{"x"}
	yKeys          = []string{"y"}
)

// fieldSet is the union of keys across a description's rows, computed once.
type fieldSet struct {
	keys  []string          // original keys: column order first, the rest sorted
	lower map[string]string // lower-cased key -> original key
}

// collectFields gathers row keys. Keys named in order keep that order; keys it
// does not mention follow in lexical order.
func collectFields(rows []map[string]any, order []string) fieldSet {
	fs := fieldSet{lower: make(map[string]string)}
	present := make(map[string]bool)
	for _, row := range rows {
		for k := range row {
			present[k] = true
		}
	}
	add := func(k string) {
		lk := strings.ToLower(strings.TrimSpace(k))
		if _, ok := fs.lower[lk]; !ok {
			fs.lower[lk] = k
			fs.keys = append(fs.keys, k)
		}
	}
	for _, k := range order {
		if present[k] {
			add(k)
		}
	}
	rest := make([]string, 0, len(present))
	for k := range present {
		rest = append(rest, k)
	}
	sort.Strings(rest)
	for _, k := range rest {
		add(k)
	}
	return fs
}

// find returns the original key matching any candidate, case-insensitively.
func (fs fieldSet) find(candidates ...string) (string, bool) {
	for _, c := range candidates {
		if k, ok := fs.lower[c]; ok {
			return k, true
		}
	}
	return "", false
}

func (fs fieldSet) findContaining(substrings ...string) (string, bool) {
	for _, k := range fs.keys {
		lk := strings.ToLower(k)
		for _, s := range substrings {
			if strings.Contains(lk, s) {
				return k, true
			}
		}
	}
	return "", false
}

func (fs fieldSet) labelKey() (string, bool) {
	return fs.find(labelKeys...)
}

func (fs fieldSet) revenueKey() (string, bool) {
	if k, ok := fs.findContaining("revenue"); ok {
		return k, true
	}
	return fs.find("nr", "sales")
}

func (fs fieldSet) volumeKey() (string, bool) {
	if k, ok := fs.findContaining("volume"); ok {
		return k, true
	}
	return fs.find("vol", "units", "tonnes")
}

// comparisonKeys returns whichever of actual, reforecast and prior year are present, in that order.
func (fs fieldSet) comparisonKeys() []string {
	var keys []string
	for _, group := range [][]string{actualKeys, reforecastKeys, priorYearKeys} {
		if k, ok := fs.find(group...); ok {
			keys = append(keys, k)
		}
	}
	return keys
}

func (fs fieldSet) shape() rowShape {
	_, hasRevenue := fs.revenueKey()
	_, hasVolume := fs.volumeKey()
	if hasRevenue && hasVolume {
		return shapeDualAxis
	}
	if len(fs.comparisonKeys()) > 0 {
		return shapeComparison
	}
	return shapeSingle
}

// valueKey picks the single measure: a conventional name first, else the first numeric non-label key.
func (fs fieldSet) valueKey(rows []map[string]any) (string, bool) {
	if k, ok := fs.find(valueKeys...); ok {
		return k, true
	}
	label, _ := fs.labelKey()
	for _, k := range fs.numericKeys(rows) {
		if k != label {
			return k, true
		}
	}
	return "", false
}

// numericKeys lists keys holding at least one numeric value, label excluded, in field order.
func (fs fieldSet) numericKeys(rows []map[string]any) []string {
	label, _ := fs.labelKey()
	var out []string
	for _, k := range fs.keys {
		if k == label {
			continue
		}
		for _, row := range rows {
			if _, ok := util.ToFloat(row[k]); ok {
				out = append(out, k)
				break
			}
		}
	}
	return out
}

// labels returns one label per row, falling back to the 1-based row number.
func labels(rows []map[string]any, key string, hasKey bool) []string {
	out := make([]string, len(rows))
	for i, row := range rows {
		if hasKey {
			if s := labelString(row[key]); s != "" {
				out[i] = s
				continue
			}
		}
		out[i] = fmt.Sprintf("%d", i+1)
	}
	return out
}

func labelString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	}
	return fmt.Sprint(v)
}

// number coerces a cell to a float; anything non-numeric becomes 0.
func number(row map[string]any, key string) float64 {
	v, _ := util.ToFloat(row[key])
	return v
}

// numberList reads a box-plot cell: a number, a list of numbers, or a string holding a JSON list.
func numberList(v any) []float64 {
	switch t := v.(type) {
	case []any:
		out := make([]float64, 0, len(t))
		for _, item := range t {
			if f, ok := util.ToFloat(item); ok {
				out = append(out, f)
			}
		}
		return out
	case string:
		s := strings.TrimSpace(t)
		if strings.HasPrefix(s, "[") {
			var decoded []any
			if err := json.Unmarshal([]byte(s), &decoded); err == nil {
				return numberList(decoded)
			}
		}
		f, _ := util.ToFloat(s)
		return []float64{f}
	case nil:
		return nil
	}
	f, _ := util.ToFloat(v)
	return []float64{f}
}
