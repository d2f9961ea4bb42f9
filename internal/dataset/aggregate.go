package dataset

import (
	"encoding/json"
	"math"
	"strings"

	"finsight-backend/internal/model"
	"finsight-backend/internal/util"
)

type AggFunc string

const (
	AggSum   AggFunc = "sum"
	AggMean  AggFunc = "mean"
	AggCount AggFunc = "count"
	AggMin   AggFunc = "min"
	AggMax   AggFunc = "max"
)

// Measure names one output column of an aggregation.
type Measure struct {
	Column string
	Func   AggFunc
	Alias  string
}

func (m Measure) OutputName() string {
	if m.Alias != "" {
		return m.Alias
	}
	if m.Func == AggSum || m.Func == "" {
		return m.Column
	}
	return m.Column + "_" + string(m.Func)
}

// AggregateRow is one group of an aggregation. It marshals as a flat object.
type AggregateRow struct {
	Keys   map[string]string
	Values map[string]float64
	Count  int

	keyOrder []string
	valOrder []string
}

func (r AggregateRow) MarshalJSON() ([]byte, error) {
	return marshalOrdered(r.keyOrder, r.Keys, r.valOrder, r.Values, nil)
}

type accumulator struct {
	sum, min, max float64
	n             int
}

func (a *accumulator) add(v float64) {
	if a.n == 0 {
		a.min, a.max = v, v
	}
	a.sum += v
	a.min = math.Min(a.min, v)
	a.max = math.Max(a.max, v)
	a.n++
}

func (a *accumulator) result(fn AggFunc) float64 {
	switch fn {
	case AggMean:
		if a.n == 0 {
			return 0
		}
		return a.sum / float64(a.n)
	case AggCount:
		return float64(a.n)
	case AggMin:
		return a.min
	case AggMax:
		return a.max
	}
	return a.sum
}

// Aggregate groups rows by the given logical columns and folds each measure.
// Groups appear in first-seen order. An empty groupBy yields a single group.
func Aggregate(rows []model.FinancialRow, groupBy []string, measures []Measure) []AggregateRow {
	type group struct {
		keys map[string]string
		accs []accumulator
		n    int
	}
	index := make(map[string]int)
	groups := make([]*group, 0)

	for _, row := range rows {
		key := groupKey(row, groupBy)
		gi, ok := index[key]
		if !ok {
			g := &group{keys: make(map[string]string, len(groupBy)), accs: make([]accumulator, len(measures))}
			for _, col := range groupBy {
				g.keys[col] = row.Attr(col)
			}
			gi = len(groups)
			index[key] = gi
			groups = append(groups, g)
		}
		g := groups[gi]
		g.n++
		for i, m := range measures {
			if m.Column == "" {
				g.accs[i].add(0)
				continue
			}
			if v, ok := row.Measure(m.Column); ok {
				g.accs[i].add(v)
			}
		}
	}

	valOrder := make([]string, len(measures))
	for i, m := range measures {
		valOrder[i] = m.OutputName()
	}

	out := make([]AggregateRow, 0, len(groups))
	for _, g := range groups {
		ar := AggregateRow{
			Keys:     g.keys,
			Values:   make(map[string]float64, len(measures)),
			Count:    g.n,
			keyOrder: groupBy,
			valOrder: valOrder,
		}
		for i, m := range measures {
			ar.Values[m.OutputName()] = util.Round2(g.accs[i].result(m.Func))
		}
		out = append(out, ar)
	}
	return out
}

// PerformanceRow compares actuals against reforecast and prior year for one group.
// A delta is nil when its baseline sums to zero.
type PerformanceRow struct {
	Keys       map[string]string
	Actual     float64
	Reforecast float64
	PriorYear  float64
	VsRFPct    *float64
	VsPYPct    *float64

	keyOrder []string
}

func (r PerformanceRow) MarshalJSON() ([]byte, error) {
	vals := map[string]float64{"actual": r.Actual, "rf": r.Reforecast, "py": r.PriorYear}
	extra := map[string]*float64{"vs_rf_pct": r.VsRFPct, "vs_py_pct": r.VsPYPct}
	return marshalOrdered(r.keyOrder, r.Keys, []string{"actual", "rf", "py"}, vals, extra)
}

// PerformanceSummary sums actual, RF and PY per group and derives percentage deltas.
func PerformanceSummary(rows []model.FinancialRow, groupBy []string) []PerformanceRow {
	agg := Aggregate(rows, groupBy, []Measure{
		{Column: model.ColActual, Func: AggSum},
		{Column: model.ColReforecast, Func: AggSum},
		{Column: model.ColPriorYear, Func: AggSum},
	})
	out := make([]PerformanceRow, 0, len(agg))
	for _, a := range agg {
		pr := PerformanceRow{
			Keys:       a.Keys,
			Actual:     a.Values[model.ColActual],
			Reforecast: a.Values[model.ColReforecast],
			PriorYear:  a.Values[model.ColPriorYear],
			keyOrder:   groupBy,
		}
		pr.VsRFPct = pctDelta(pr.Actual, pr.Reforecast)
		pr.VsPYPct = pctDelta(pr.Actual, pr.PriorYear)
		out = append(out, pr)
	}
	return out
}

func pctDelta(actual, baseline float64) *float64 {
	if baseline == 0 {
		return nil
	}
	v := util.Round2((actual - baseline) / baseline * 100)
	return &v
}

func groupKey(row model.FinancialRow, groupBy []string) string {
	parts := make([]string, len(groupBy))
	for i, col := range groupBy {
		parts[i] = strings.ToLower(row.Attr(col))
	}
	return strings.Join(parts, "\x1f")
}

// marshalOrdered writes keys then values in a stable order so prompts are reproducible.
func marshalOrdered(keyOrder []string, keys map[string]string, valOrder []string, vals map[string]float64, extra map[string]*float64) ([]byte, error) {
	var sb strings.Builder
	sb.WriteByte('{')
	first := true
	write := func(name string, v any) error {
		b, err := json.Marshal(v)
		if err != nil {
			return err
		}
		if !first {
			sb.WriteByte(',')
		}
		first = false
		nb, _ := json.Marshal(name)
		sb.Write(nb)
		sb.WriteByte(':')
		sb.Write(b)
		return nil
	}
	for _, k := range keyOrder {
		if err := write(k, keys[k]); err != nil {
			return nil, err
		}
	}
	for _, k := range valOrder {
		if err := write(k, vals[k]); err != nil {
			return nil, err
		}
	}
	for _, k := range []string{"vs_rf_pct", "vs_py_pct"} {
		if v, ok := extra[k]; ok {
			if err := write(k, v); err != nil {
				return nil, err
			}
		}
	}
	sb.WriteByte('}')
	return []byte(sb.String()), nil
}
