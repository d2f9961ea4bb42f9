package dto

import (
	"strconv"
	"strings"
)

// FilterSpec constrains the dataset. A nil field imposes no constraint.
type FilterSpec struct {
	Brand      *string  `json:"brand_text"`
	Region     *string  `json:"region"`
	Country    *string  `json:"country_text"`
	KPI        *string  `json:"kpi_text"`
	Category   *string  `json:"leg_cat_text"`
	MarketType *string  `json:"market_type_text"`
	Months     []string `json:"months"`
}

// IsEmpty reports whether the filter selects the whole dataset.
func (f FilterSpec) IsEmpty() bool {
	return f.Brand == nil && f.Region == nil && f.Country == nil && f.KPI == nil &&
		f.Category == nil && f.MarketType == nil && f.Months == nil
}

// QueryPlan is the planner model's translation of a question into filters.
type QueryPlan struct {
	Filter       FilterSpec `json:"filter"`
	AnalysisType string     `json:"analysis_type,omitempty"`
}

// PlanFromMap builds a plan from the planner's decoded JSON. A literal 0 for any
// key means "not specified", the same as null or a missing key.
func PlanFromMap(m map[string]any) QueryPlan {
	var plan QueryPlan
	plan.Filter.Brand = planString(m, "brand_text", "brand")
	plan.Filter.Region = planString(m, "region", "region_text")
	plan.Filter.Country = planString(m, "country_text", "country")
	plan.Filter.KPI = planString(m, "kpi_text", "kpi")
	plan.Filter.Category = planString(m, "leg_cat_text", "category")
	plan.Filter.MarketType = planString(m, "market_type_text", "market_type")
	plan.Filter.Months = planMonths(m["months"])
	if s := planString(m, "analysis_type"); s != nil {
		plan.AnalysisType = *s
	}
	return plan
}

func planString(m map[string]any, keys ...string) *string {
	for _, k := range keys {
		v, ok := m[k]
		if !ok || v == nil {
			continue
		}
		switch t := v.(type) {
		case string:
			s := strings.TrimSpace(t)
			if s == "" || s == "0" || strings.EqualFold(s, "null") {
				return nil
			}
			return &s
		case float64:
			if t == 0 {
				return nil
			}
			s := strconv.FormatFloat(t, 'f', -1, 64)
			return &s
		}
		return nil
	}
	return nil
}

func planMonths(v any) []string {
	switch t := v.(type) {
	case nil:
		return nil
	case float64:
		if t == 0 {
			return nil
		}
		return []string{FormatMonth(t)}
	case string:
		s := strings.TrimSpace(t)
		if s == "" || s == "0" {
			return nil
		}
		return []string{s}
	case []any:
		if len(t) == 0 {
			return nil
		}
		months := make([]string, 0, len(t))
		for _, item := range t {
			switch m := item.(type) {
			case string:
				if s := strings.TrimSpace(m); s != "" {
					months = append(months, s)
				}
			case float64:
				months = append(months, FormatMonth(m))
			}
		}
		if len(months) == 0 {
			return nil
		}
		return months
	}
	return nil
}

// FormatMonth renders a numeric month identifier without a fractional part.
func FormatMonth(v float64) string {
	return strconv.FormatFloat(v, 'f', 0, 64)
}
