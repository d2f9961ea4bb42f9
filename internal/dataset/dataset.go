// Package dataset holds the in-memory financial table the service answers from.
// It is loaded once at startup and only read afterwards, so no locking is needed.
package dataset

import (
	"sort"
	"strings"

	"finsight-backend/internal/dto"
	"finsight-backend/internal/model"
	"finsight-backend/internal/util"
)

type Dataset struct {
	rows    []model.FinancialRow
	columns map[string]bool
	order   []string
}

// New builds a dataset from already-mapped rows. columns lists the logical
// columns present in the source, in source order.
func New(rows []model.FinancialRow, columns []string) *Dataset {
	d := &Dataset{
		rows:    rows,
		columns: make(map[string]bool, len(columns)),
	}
	for _, c := range columns {
		if !d.columns[c] {
			d.columns[c] = true
			d.order = append(d.order, c)
		}
	}
	return d
}

func (d *Dataset) Len() int {
	return len(d.rows)
}

// Rows returns the full table. Callers must not modify the returned rows.
func (d *Dataset) Rows() []model.FinancialRow {
	return d.rows
}

func (d *Dataset) Columns() []string {
	return append([]string(nil), d.order...)
}

func (d *Dataset) HasColumn(name string) bool {
	return d.columns[name]
}

// Filter returns the rows matching every constraint in spec, in dataset order.
// Text fields compare case-insensitively; months match by membership.
func (d *Dataset) Filter(spec dto.FilterSpec) []model.FinancialRow {
	if spec.IsEmpty() {
		return d.rows
	}
	out := make([]model.FinancialRow, 0)
	for _, row := range d.rows {
		if Matches(row, spec) {
			out = append(out, row)
		}
	}
	return out
}

// Benchmark summarizes performance across the whole table, ignoring any filter.
func (d *Dataset) Benchmark(groupBy []string) []PerformanceRow {
	return PerformanceSummary(d.rows, groupBy)
}

// Distinct lists the non-blank values of an attribute column, deduplicated
// case-insensitively and sorted. The first spelling seen wins.
func (d *Dataset) Distinct(col string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, row := range d.rows {
		v := strings.TrimSpace(row.Attr(col))
		key := strings.ToLower(v)
		if v == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool {
		return strings.ToLower(out[i]) < strings.ToLower(out[j])
	})
	return out
}

// Matches evaluates a single row against spec.
func Matches(row model.FinancialRow, spec dto.FilterSpec) bool {
	if !equalFold(spec.Brand, row.Brand) ||
		!equalFold(spec.Region, row.Region) ||
		!equalFold(spec.Country, row.Country) ||
		!equalFold(spec.KPI, row.KPI) ||
		!equalFold(spec.Category, row.Category) ||
		!equalFold(spec.MarketType, row.MarketType) {
		return false
	}
	if spec.Months == nil {
		return true
	}
	for _, m := range spec.Months {
		if util.SamePeriod(m, row.Month) {
			return true
		}
	}
	return false
}

func equalFold(want *string, got string) bool {
	if want == nil {
		return true
	}
	return strings.EqualFold(strings.TrimSpace(*want), strings.TrimSpace(got))
}
