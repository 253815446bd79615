package leaderboard

import (
	"fmt"
	"math"

	"github.com/shopspring/decimal"

	"github.com/matthumble/weightlossbot/internal/domain"
)

// FormatLost renders a weight delta as a signed pounds string: losses as
// "-12.5lbs", gains as "+2.0lbs". A zero delta counts as a loss.
func FormatLost(lost decimal.Decimal) string {
	sign := "-"
	if lost.IsNegative() {
		sign = "+"
	}
	return sign + lost.Abs().StringFixed(1) + "lbs"
}

// FormatMetric renders the ranking metric for the given mode: pounds with
// one decimal place, percentage with two.
func FormatMetric(e domain.LeaderboardEntry, mode domain.Mode) string {
	if mode == domain.ModePercentage {
		sign := "-"
		if e.Metric < 0 {
			sign = "+"
		}
		return fmt.Sprintf("%s%.2f%%", sign, math.Abs(e.Metric))
	}
	return FormatLost(e.Lost)
}

// FormatEntry renders one leaderboard line, e.g. "@sam: -5.0lbs (200→195)".
func FormatEntry(e domain.LeaderboardEntry, mode domain.Mode) string {
	return fmt.Sprintf("@%s: %s (%s→%s)", e.DisplayName, FormatMetric(e, mode), e.Baseline, e.Current)
}
