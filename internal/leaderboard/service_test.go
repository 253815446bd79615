package leaderboard_test

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matthumble/weightlossbot/internal/domain"
	"github.com/matthumble/weightlossbot/internal/leaderboard"
)

func date(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func user(id string, baseline string, checkins ...domain.Checkin) domain.User {
	var b decimal.Decimal
	if baseline != "" {
		b = dec(baseline)
	}
	return domain.User{
		ID:             id,
		DisplayName:    id,
		BaselineWeight: b,
		Checkins:       checkins,
	}
}

func TestCompute(t *testing.T) {
	tests := map[string]struct {
		users  []domain.User
		mode   domain.Mode
		assert func(t *testing.T, entries []domain.LeaderboardEntry)
	}{
		"total mode metric is pounds lost from the latest checkin": {
			users: []domain.User{
				user("u1", "200",
					domain.Checkin{Weight: dec("195"), Date: date("2024-01-05")},
					domain.Checkin{Weight: dec("190"), Date: date("2024-01-12")},
				),
			},
			mode: domain.ModeTotal,
			assert: func(t *testing.T, entries []domain.LeaderboardEntry) {
				require.Len(t, entries, 1)
				assert.True(t, entries[0].Current.Equal(dec("190")))
				assert.True(t, entries[0].Lost.Equal(dec("10")))
				assert.InDelta(t, 10, entries[0].Metric, 1e-9)
			},
		},

		"percentage mode metric is share of baseline lost": {
			users: []domain.User{
				user("u1", "200",
					domain.Checkin{Weight: dec("195"), Date: date("2024-01-05")},
					domain.Checkin{Weight: dec("190"), Date: date("2024-01-12")},
				),
			},
			mode: domain.ModePercentage,
			assert: func(t *testing.T, entries []domain.LeaderboardEntry) {
				require.Len(t, entries, 1)
				assert.InDelta(t, 5.0, entries[0].Metric, 1e-9)
			},
		},

		"no checkins means current weight equals baseline": {
			users: []domain.User{user("u1", "200")},
			mode:  domain.ModeTotal,
			assert: func(t *testing.T, entries []domain.LeaderboardEntry) {
				require.Len(t, entries, 1)
				assert.True(t, entries[0].Current.Equal(dec("200")))
				assert.True(t, entries[0].Lost.IsZero())
			},
		},

		"checkins are picked by date, not submission order": {
			users: []domain.User{
				user("u1", "200",
					// The later date was submitted first.
					domain.Checkin{Weight: dec("190"), Date: date("2024-01-12")},
					domain.Checkin{Weight: dec("195"), Date: date("2024-01-05")},
				),
			},
			mode: domain.ModeTotal,
			assert: func(t *testing.T, entries []domain.LeaderboardEntry) {
				require.Len(t, entries, 1)
				assert.True(t, entries[0].Current.Equal(dec("190")))
			},
		},

		"same-date checkins resolve to the last submitted": {
			users: []domain.User{
				user("u1", "200",
					domain.Checkin{Weight: dec("195"), Date: date("2024-01-05")},
					domain.Checkin{Weight: dec("193"), Date: date("2024-01-05")},
				),
			},
			mode: domain.ModeTotal,
			assert: func(t *testing.T, entries []domain.LeaderboardEntry) {
				require.Len(t, entries, 1)
				assert.True(t, entries[0].Current.Equal(dec("193")))
			},
		},

		"records without a positive baseline are discarded": {
			users: []domain.User{
				user("u1", ""),
				user("u2", "200", domain.Checkin{Weight: dec("195"), Date: date("2024-01-05")}),
			},
			mode: domain.ModeTotal,
			assert: func(t *testing.T, entries []domain.LeaderboardEntry) {
				require.Len(t, entries, 1)
				assert.Equal(t, "u2", entries[0].UserID)
			},
		},

		"entries sort by metric descending, stable on ties": {
			users: []domain.User{
				user("a", "200", domain.Checkin{Weight: dec("197"), Date: date("2024-01-05")}), // lost 3
				user("b", "200", domain.Checkin{Weight: dec("193"), Date: date("2024-01-05")}), // lost 7
				user("c", "300", domain.Checkin{Weight: dec("293"), Date: date("2024-01-05")}), // lost 7
				user("d", "200", domain.Checkin{Weight: dec("199"), Date: date("2024-01-05")}), // lost 1
			},
			mode: domain.ModeTotal,
			assert: func(t *testing.T, entries []domain.LeaderboardEntry) {
				require.Len(t, entries, 4)
				ids := []string{entries[0].UserID, entries[1].UserID, entries[2].UserID, entries[3].UserID}
				assert.Equal(t, []string{"b", "c", "a", "d"}, ids)
			},
		},

		"gains rank below losses": {
			users: []domain.User{
				user("gainer", "200", domain.Checkin{Weight: dec("205"), Date: date("2024-01-05")}),
				user("loser", "200", domain.Checkin{Weight: dec("195"), Date: date("2024-01-05")}),
			},
			mode: domain.ModeTotal,
			assert: func(t *testing.T, entries []domain.LeaderboardEntry) {
				require.Len(t, entries, 2)
				assert.Equal(t, "loser", entries[0].UserID)
				assert.InDelta(t, -5, entries[1].Metric, 1e-9)
			},
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			tt.assert(t, leaderboard.Compute(tt.users, tt.mode))
		})
	}
}

func TestCompute_Idempotent(t *testing.T) {
	users := []domain.User{
		user("a", "200", domain.Checkin{Weight: dec("193"), Date: date("2024-01-05")}),
		user("b", "300", domain.Checkin{Weight: dec("293"), Date: date("2024-01-05")}),
		user("c", "200", domain.Checkin{Weight: dec("197"), Date: date("2024-01-05")}),
	}

	first := leaderboard.Compute(users, domain.ModePercentage)
	second := leaderboard.Compute(users, domain.ModePercentage)
	require.Equal(t, first, second)
}

func TestFormatLost(t *testing.T) {
	assert.Equal(t, "-5.0lbs", leaderboard.FormatLost(dec("5")))
	assert.Equal(t, "-12.5lbs", leaderboard.FormatLost(dec("12.5")))
	assert.Equal(t, "+2.0lbs", leaderboard.FormatLost(dec("-2")))
	assert.Equal(t, "-0.0lbs", leaderboard.FormatLost(decimal.Zero), "zero counts as a loss")
}

func TestFormatEntry(t *testing.T) {
	e := domain.LeaderboardEntry{
		DisplayName: "sam",
		Baseline:    dec("200"),
		Current:     dec("190"),
		Lost:        dec("10"),
		Metric:      5,
	}

	assert.Equal(t, "@sam: -10.0lbs (200→190)", leaderboard.FormatEntry(e, domain.ModeTotal))
	assert.Equal(t, "@sam: -5.00% (200→190)", leaderboard.FormatEntry(e, domain.ModePercentage))
}
