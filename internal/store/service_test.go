package store

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matthumble/weightlossbot/internal/domain"
	"github.com/matthumble/weightlossbot/internal/validate"
)

func TestDecodeCheckins(t *testing.T) {
	tests := map[string]struct {
		raw  string
		want []domain.Checkin
	}{
		"empty string": {raw: "", want: nil},
		"empty array":  {raw: "[]", want: nil},
		"single checkin": {
			raw: `[{"weight":"195.5","date":"2024-01-05"}]`,
			want: []domain.Checkin{
				{Weight: decimal.RequireFromString("195.5"), Date: mustDate(t, "2024-01-05")},
			},
		},
		"numeric weight also accepted": {
			raw: `[{"weight":195,"date":"2024-01-05"}]`,
			want: []domain.Checkin{
				{Weight: decimal.NewFromInt(195), Date: mustDate(t, "2024-01-05")},
			},
		},
		"submission order preserved": {
			raw: `[{"weight":"195","date":"2024-01-05"},{"weight":"193","date":"2024-01-05"}]`,
			want: []domain.Checkin{
				{Weight: decimal.NewFromInt(195), Date: mustDate(t, "2024-01-05")},
				{Weight: decimal.NewFromInt(193), Date: mustDate(t, "2024-01-05")},
			},
		},
		"malformed JSON degrades to empty": {raw: `{"not":"an array"`, want: nil},
		"malformed date degrades to zero time": {
			raw: `[{"weight":"195","date":"garbage"}]`,
			want: []domain.Checkin{
				{Weight: decimal.NewFromInt(195)},
			},
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			got := decodeCheckins("u1", tt.raw)
			require.Len(t, got, len(tt.want))
			for i := range tt.want {
				assert.True(t, tt.want[i].Weight.Equal(got[i].Weight), "checkin %d weight", i)
				assert.Equal(t, tt.want[i].Date, got[i].Date, "checkin %d date", i)
			}
		})
	}
}

func TestEncodeCheckins(t *testing.T) {
	checkins := []domain.Checkin{
		{Weight: decimal.RequireFromString("195.5"), Date: mustDate(t, "2024-01-05")},
		{Weight: decimal.NewFromInt(190), Date: mustDate(t, "2024-01-12")},
	}

	raw, err := json.Marshal(encodeCheckins(checkins))
	require.NoError(t, err)

	got := decodeCheckins("u1", string(raw))
	require.Len(t, got, 2)
	assert.True(t, got[0].Weight.Equal(checkins[0].Weight))
	assert.Equal(t, checkins[0].Date, got[0].Date)
	assert.True(t, got[1].Weight.Equal(checkins[1].Weight))
	assert.Equal(t, checkins[1].Date, got[1].Date)
}

func TestParseStoredDate(t *testing.T) {
	assert.Equal(t, mustDate(t, "2024-01-05"), parseStoredDate("2024-01-05"))
	assert.True(t, parseStoredDate("").IsZero())
	assert.True(t, parseStoredDate("not-a-date").IsZero())
}

func mustDate(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := validate.ParseDate(s)
	require.NoError(t, err)
	return d
}
