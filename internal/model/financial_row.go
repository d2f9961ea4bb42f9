package model

// Logical column names. Source headers are mapped onto these by the dataset loaders.
const (
	ColBrand      = "brand"
	ColRegion     = "region"
	ColCountry    = "country"
	ColKPI        = "kpi"
	ColCategory   = "category"
	ColMarketType = "market_type"
	ColMonth      = "month"
	ColActual     = "actual"
	ColReforecast = "rf"
	ColPriorYear  = "py"
)

// FinancialRow is one record of the loaded dataset. Rows are never mutated after load.
type FinancialRow struct {
	Brand      string             `json:"brand,omitempty"`
	Region     string             `json:"region,omitempty"`
	Country    string             `json:"country,omitempty"`
	KPI        string             `json:"kpi,omitempty"`
	Category   string             `json:"category,omitempty"`
	MarketType string             `json:"market_type,omitempty"`
	Month      string             `json:"month,omitempty"`
	Actual     float64            `json:"actual"`
	Reforecast float64            `json:"rf"`
	PriorYear  float64            `json:"py"`
	Extra      map[string]float64 `json:"extra,omitempty"`
}

// Attr returns the textual attribute stored under a logical column name.
func (r FinancialRow) Attr(col string) string {
	switch col {
	case ColBrand:
		return r.Brand
	case ColRegion:
		return r.Region
	case ColCountry:
		return r.Country
	case ColKPI:
		return r.KPI
	case ColCategory:
		return r.Category
	case ColMarketType:
		return r.MarketType
	case ColMonth:
		return r.Month
	}
	return ""
}

// Measure returns a numeric column, looking in Extra for anything non-standard.
func (r FinancialRow) Measure(col string) (float64, bool) {
	switch col {
	case ColActual:
		return r.Actual, true
	case ColReforecast:
		return r.Reforecast, true
	case ColPriorYear:
		return r.PriorYear, true
	}
	v, ok := r.Extra[col]
	return v, ok
}
