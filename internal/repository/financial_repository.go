package repository

import (
	"finsight-backend/internal/dataset"
	"finsight-backend/internal/dto"
	"finsight-backend/internal/model"
)

// FinancialRepository is the read-only view of the loaded dataset used by the services.
type FinancialRepository interface {
	Filter(spec dto.FilterSpec) []model.FinancialRow
	Benchmark(groupBy []string) []dataset.PerformanceRow
	Distinct(col string) []string
	Columns() []string
	HasColumn(name string) bool
	Len() int
}

func NewFinancialRepository(ds *dataset.Dataset) FinancialRepository {
	return ds
}
