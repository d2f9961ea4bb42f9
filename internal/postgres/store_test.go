package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRows struct {
	fields []pgconn.FieldDescription
	data   [][]any
	pos    int
	err    error
}

func (r *fakeRows) Close()                                       {}
func (r *fakeRows) Err() error                                   { return r.err }
func (r *fakeRows) CommandTag() pgconn.CommandTag                { return pgconn.CommandTag{} }
func (r *fakeRows) FieldDescriptions() []pgconn.FieldDescription { return r.fields }
func (r *fakeRows) Scan(...any) error                            { return errors.New("not supported") }
func (r *fakeRows) RawValues() [][]byte                          { return nil }
func (r *fakeRows) Conn() *pgx.Conn                              { return nil }

func (r *fakeRows) Next() bool {
	if r.pos >= len(r.data) {
		return false
	}
	r.pos++
	return true
}

func (r *fakeRows) Values() ([]any, error) {
	return r.data[r.pos-1], nil
}

type fakeQuerier struct {
	rows *fakeRows
	err  error
	sql  string
}

func (q *fakeQuerier) Query(_ context.Context, sql string, _ ...any) (pgx.Rows, error) {
	q.sql = sql
	if q.err != nil {
		return nil, q.err
	}
	return q.rows, nil
}

func fields(names ...string) []pgconn.FieldDescription {
	out := make([]pgconn.FieldDescription, len(names))
	for i, n := range names {
		out[i] = pgconn.FieldDescription{Name: n}
	}
	return out
}

func TestReadTable(t *testing.T) {
	q := &fakeQuerier{rows: &fakeRows{
		fields: fields("Brand", "Country", "Month", "Actual", "PY", "Volume"),
		data: [][]any{
			{"Oreo", "USA", time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC), 1200.5, float32(1000), int32(40)},
			{"Milka", nil, "2025-02", 700.0, nil, nil},
		},
	}}

	ds, err := ReadTable(context.Background(), q, "finance.monthly")
	require.NoError(t, err)
	assert.Equal(t, `SELECT * FROM "finance"."monthly"`, q.sql)
	require.Equal(t, 2, ds.Len())

	rows := ds.Rows()
	assert.Equal(t, "Oreo", rows[0].Brand)
	assert.Equal(t, "2025-01", rows[0].Month)
	assert.Equal(t, 1200.5, rows[0].Actual)
	assert.Equal(t, 1000.0, rows[0].PriorYear)
	assert.Equal(t, 40.0, rows[0].Extra["volume"])
	assert.Empty(t, rows[1].Country)
	assert.Equal(t, "2025-02", rows[1].Month)
	assert.Contains(t, ds.Columns(), "volume")
}

func TestReadTable_Errors(t *testing.T) {
	t.Run("query fails", func(t *testing.T) {
		_, err := ReadTable(context.Background(), &fakeQuerier{err: errors.New("relation does not exist")}, "missing")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to query table missing")
	})
	t.Run("iteration fails", func(t *testing.T) {
		q := &fakeQuerier{rows: &fakeRows{fields: fields("brand"), err: errors.New("connection reset")}}
		_, err := ReadTable(context.Background(), q, "monthly")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "connection reset")
	})
}

func TestCellString(t *testing.T) {
	tests := []struct {
		in   any
		want string
	}{
		{nil, ""},
		{"Oreo", "Oreo"},
		{1.25, "1.25"},
		{int64(7), "7"},
		{time.Date(2024, 11, 3, 0, 0, 0, 0, time.UTC), "2024-11"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, cellString(tt.in))
	}
}
