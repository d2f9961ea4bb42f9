package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/xuri/excelize/v2"

	"finsight-backend/internal/model"
	"finsight-backend/internal/util"
)

var headerAliases = map[string]string{
	"brand":           model.ColBrand,
	"brand_name":      model.ColBrand,
	"region":          model.ColRegion,
	"region_name":     model.ColRegion,
	"country":         model.ColCountry,
	"country_name":    model.ColCountry,
	"kpi":             model.ColKPI,
	"kpi_name":        model.ColKPI,
	"metric":          model.ColKPI,
	"leg_cat":         model.ColCategory,
	"legacy_category": model.ColCategory,
	"category":        model.ColCategory,
	"market_type":     model.ColMarketType,
	"markettype":      model.ColMarketType,
	"mkt_type":        model.ColMarketType,
	"month":           model.ColMonth,
	"period":          model.ColMonth,
	"fiscal_month":    model.ColMonth,
	"date":            model.ColMonth,
	"actual":          model.ColActual,
	"actuals":         model.ColActual,
	"act":             model.ColActual,
	"value":           model.ColActual,
	"amount":          model.ColActual,
	"rf":              model.ColReforecast,
	"reforecast":      model.ColReforecast,
	"forecast":        model.ColReforecast,
	"py":              model.ColPriorYear,
	"prior_year":      model.ColPriorYear,
	"last_year":       model.ColPriorYear,
	"ly":              model.ColPriorYear,
}

// NormalizeHeader lower-cases a source header and folds spaces and dashes to underscores.
func NormalizeHeader(h string) string {
	h = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
	return strings.NewReplacer(" ", "_", "-", "_", ".", "_").Replace(h)
}

type columnBinding struct {
	logical string // empty for columns kept only in Extra
	extra   string
}

// FromRecords maps a header row plus data records onto FinancialRows.
func FromRecords(header []string, records [][]string) (*Dataset, error) {
	if len(header) == 0 {
		return nil, errors.New("dataset has no header row")
	}

	bindings := make([]columnBinding, len(header))
	columns := make([]string, 0, len(header))
	seen := make(map[string]bool)
	for i, h := range header {
		name := NormalizeHeader(h)
		if logical, ok := headerAliases[name]; ok && !seen[logical] {
			seen[logical] = true
			bindings[i] = columnBinding{logical: logical}
			columns = append(columns, logical)
			continue
		}
		if name != "" {
			bindings[i] = columnBinding{extra: name}
		}
	}

	rows := make([]model.FinancialRow, 0, len(records))
	extraSeen := make(map[string]bool)
	for _, rec := range records {
		if isBlank(rec) {
			continue
		}
		var row model.FinancialRow
		for i, cell := range rec {
			if i >= len(bindings) {
				break
			}
			b := bindings[i]
			if b.logical != "" {
				assign(&row, b.logical, cell)
				continue
			}
			if b.extra == "" {
				continue
			}
			if v, ok := util.ParseNumber(cell); ok {
				if row.Extra == nil {
					row.Extra = make(map[string]float64)
				}
				row.Extra[b.extra] = v
				if !extraSeen[b.extra] {
					extraSeen[b.extra] = true
					columns = append(columns, b.extra)
				}
			}
		}
		rows = append(rows, row)
	}

	return New(rows, columns), nil
}

func assign(row *model.FinancialRow, col, cell string) {
	cell = strings.TrimSpace(cell)
	switch col {
	case model.ColBrand:
		row.Brand = cell
	case model.ColRegion:
		row.Region = cell
	case model.ColCountry:
		row.Country = cell
	case model.ColKPI:
		row.KPI = cell
	case model.ColCategory:
		row.Category = cell
	case model.ColMarketType:
		row.MarketType = cell
	case model.ColMonth:
		row.Month = cell
	case model.ColActual:
		row.Actual, _ = util.ParseNumber(cell)
	case model.ColReforecast:
		row.Reforecast, _ = util.ParseNumber(cell)
	case model.ColPriorYear:
		row.PriorYear, _ = util.ParseNumber(cell)
	}
}

func isBlank(rec []string) bool {
	for _, c := range rec {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

// LoadCSV reads a comma-separated file with a header row.
func LoadCSV(path string) (*Dataset, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open dataset %s: %w", path, err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read dataset header: %w", err)
	}

	var records [][]string
	for {
		rec, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read dataset record %d: %w", len(records)+1, err)
		}
		records = append(records, rec)
	}
	return FromRecords(header, records)
}

// LoadXLSX reads a workbook. The named sheet is used when given, otherwise the first one.
func LoadXLSX(path, sheet string) (*Dataset, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook %s: %w", path, err)
	}
	defer func() {
		if err := f.Close(); err != nil {
			log.Warn().Err(err).Str("path", path).Msg("Failed to close workbook")
		}
	}()

	if sheet == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return nil, fmt.Errorf("workbook %s has no sheets", path)
		}
		sheet = sheets[0]
	}

	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %q: %w", sheet, err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("sheet %q is empty", sheet)
	}
	return FromRecords(rows[0], rows[1:])
}

// LoadFile picks the reader from the source name, falling back to the file extension.
func LoadFile(source, path, sheet string) (*Dataset, error) {
	if source == "" {
		switch strings.ToLower(filepath.Ext(path)) {
		case ".xlsx", ".xlsm":
			source = "xlsx"
		default:
			source = "csv"
		}
	}
	var (
		ds  *Dataset
		err error
	)
	switch source {
	case "csv":
		ds, err = LoadCSV(path)
	case "xlsx", "excel":
		ds, err = LoadXLSX(path, sheet)
	default:
		return nil, fmt.Errorf("unsupported dataset source %q", source)
	}
	if err != nil {
		return nil, err
	}
	log.Info().Str("path", path).Int("rows", ds.Len()).Strs("columns", ds.Columns()).Msg("Dataset loaded")
	return ds, nil
}
