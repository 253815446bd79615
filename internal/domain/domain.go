package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Mode selects how the leaderboard ranks participants.
type Mode int

const (
	// ModeTotal ranks by absolute pounds lost. This is the default.
	ModeTotal Mode = iota
	// ModePercentage ranks by percentage of baseline body weight lost.
	ModePercentage
)

func (m Mode) String() string {
	if m == ModePercentage {
		return "percentage"
	}
	return "total"
}

// ParseMode decodes a stored or submitted mode string.
func ParseMode(s string) (Mode, bool) {
	switch s {
	case "total":
		return ModeTotal, true
	case "percentage":
		return ModePercentage, true
	}
	return ModeTotal, false
}

// Checkin is a single logged weight measurement.
type Checkin struct {
	Weight decimal.Decimal
	Date   time.Time
}

// User is one challenge participant.
type User struct {
	ID          string
	DisplayName string

	// BaselineWeight is zero until the participant records a baseline.
	BaselineWeight decimal.Decimal
	BaselineDate   time.Time

	// Checkins is ordered by submission, not by date. Consumers must pick
	// the latest checkin by date, not by position.
	Checkins []Checkin

	// TotalLost and LatestCheckinDate are denormalized for display only.
	// The aggregation engine recomputes both from Checkins.
	TotalLost         decimal.Decimal
	LatestCheckinDate time.Time
}

// HasBaseline reports whether the participant has recorded a baseline weight.
func (u *User) HasBaseline() bool {
	return u.BaselineWeight.IsPositive()
}

// ChallengeConfig is the single process-wide competition configuration.
type ChallengeConfig struct {
	Deadline             time.Time // zero when unset
	StartDate            time.Time // zero when unset
	Mode                 Mode
	FinalLeaderboardSent bool
}

// Leaderboard is the ranked standings of the current competition.
// Entries are sorted by metric in descending order.
type Leaderboard struct {
	Mode    Mode
	Entries []LeaderboardEntry
}

// Top returns at most n leading entries.
func (l Leaderboard) Top(n int) []LeaderboardEntry {
	if len(l.Entries) < n {
		n = len(l.Entries)
	}
	return l.Entries[:n]
}

type LeaderboardEntry struct {
	UserID      string
	DisplayName string
	Baseline    decimal.Decimal
	Current     decimal.Decimal
	Lost        decimal.Decimal

	// Metric is what the entry is ranked by: pounds lost in ModeTotal,
	// percentage of baseline lost in ModePercentage.
	Metric float64
}
