package postgres

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"

	"finsight-backend/config"
	"finsight-backend/internal/dataset"
)

// Querier is the part of pgxpool.Pool the loader needs.
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// OpenPool connects and verifies the DSN. The caller owns closing the pool.
func OpenPool(ctx context.Context, cfg config.PostgresConfig) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		log.Error().Err(err).Msg("Failed to parse Postgres DSN")
		return nil, fmt.Errorf("invalid Postgres DSN: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		log.Error().Err(err).Msg("Unable to create connection pool to Postgres")
		return nil, fmt.Errorf("failed to connect to Postgres: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		log.Error().Err(err).Msg("Failed to ping Postgres")
		return nil, fmt.Errorf("failed to ping Postgres: %w", err)
	}
	log.Info().Msg("Postgres connection pool created and verified.")
	return pool, nil
}

// LoadDataset reads the whole financial table once and closes the pool.
func LoadDataset(ctx context.Context, cfg config.PostgresConfig) (*dataset.Dataset, error) {
	pool, err := OpenPool(ctx, cfg)
	if err != nil {
		return nil, err
	}
	defer func() {
		log.Info().Msg("Closing Postgres connection pool...")
		pool.Close()
	}()

	loadCtx, cancel := context.WithTimeout(ctx, 60*time.Second)
	defer cancel()
	return ReadTable(loadCtx, pool, cfg.Table)
}

// ReadTable selects every row of table and maps its columns through the dataset header aliases.
func ReadTable(ctx context.Context, q Querier, table string) (*dataset.Dataset, error) {
	sql := fmt.Sprintf("SELECT * FROM %s", pgx.Identifier(strings.Split(table, ".")).Sanitize())
	rows, err := q.Query(ctx, sql)
	if err != nil {
		return nil, fmt.Errorf("failed to query table %s: %w", table, err)
	}
	defer rows.Close()

	fields := rows.FieldDescriptions()
	header := make([]string, len(fields))
	for i, f := range fields {
		header[i] = f.Name
	}

	var records [][]string
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, fmt.Errorf("failed to scan row %d: %w", len(records)+1, err)
		}
		rec := make([]string, len(values))
		for i, v := range values {
			rec[i] = cellString(v)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating table %s: %w", table, err)
	}

	ds, err := dataset.FromRecords(header, records)
	if err != nil {
		return nil, err
	}
	log.Info().Str("table", table).Int("rows", ds.Len()).Msg("Dataset loaded from Postgres")
	return ds, nil
}

func cellString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case time.Time:
		return t.Format("2006-01")
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(t), 'f', -1, 32)
	case pgtype.Numeric:
		f, err := t.Float64Value()
		if err != nil || !f.Valid {
			return ""
		}
		return strconv.FormatFloat(f.Float64, 'f', -1, 64)
	case fmt.Stringer:
		return t.String()
	}
	return fmt.Sprint(v)
}
