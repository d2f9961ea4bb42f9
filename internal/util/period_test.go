package util

import (
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePeriod(t *testing.T) {
	want := time.Date(2024, time.October, 1, 0, 0, 0, 0, time.UTC)
	tests := []struct {
		name  string
		input string
	}{
		{"iso month", "2024-10"},
		{"iso day", "2024-10-15"},
		{"compact", "202410"},
		{"slash", "2024/10"},
		{"short name", "Oct 2024"},
		{"long name", "October 2024"},
		{"excel serial", "45580"},
		{"padded", "  2024-10 "},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParsePeriod(tt.input)
			require.NoError(t, err)
			assert.Equal(t, want, got)
		})
	}

	_, err := ParsePeriod("Q4")
	assert.Error(t, err)
}

func TestSamePeriod(t *testing.T) {
	assert.True(t, SamePeriod("2024-10", "202410"))
	assert.True(t, SamePeriod("Oct", "oct"))
	assert.False(t, SamePeriod("2024-10", "2024-11"))
	assert.False(t, SamePeriod("10", "2024-10"))
}

func TestComparePeriods_SortsDescending(t *testing.T) {
	periods := []string{"2024-01", "garbage", "202412", "Mar 2024", "2023-12"}
	sort.SliceStable(periods, func(i, j int) bool {
		return ComparePeriods(periods[i], periods[j]) > 0
	})
	assert.Equal(t, []string{"202412", "Mar 2024", "2024-01", "2023-12", "garbage"}, periods)
}

func TestParseNumber(t *testing.T) {
	tests := []struct {
		in   string
		want float64
		ok   bool
	}{
		{"1,234.5", 1234.5, true},
		{"$99", 99, true},
		{"(1,200)", -1200, true},
		{"12%", 12, true},
		{"", 0, false},
		{"n/a", 0, false},
		{"NaN", 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := ParseNumber(tt.in)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestToFloat(t *testing.T) {
	v, ok := ToFloat(float64(3))
	assert.True(t, ok)
	assert.Equal(t, 3.0, v)

	v, ok = ToFloat("4.5")
	assert.True(t, ok)
	assert.Equal(t, 4.5, v)

	_, ok = ToFloat(nil)
	assert.False(t, ok)
	_, ok = ToFloat(true)
	assert.False(t, ok)
}
