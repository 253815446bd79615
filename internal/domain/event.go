package domain

import "time"

const (
	EventNameChallengeStarted   = "challenge.started"
	EventNameChallengeReset     = "challenge.reset"
	EventNameLeaderboardPosted  = "leaderboard.posted"
	EventNameChallengeCompleted = "challenge.completed"
)

type EventChallengeStarted struct {
	Mode      Mode
	StartDate time.Time
	EndDate   time.Time
}

func (EventChallengeStarted) Name() string { return EventNameChallengeStarted }

type EventChallengeReset struct{}

func (EventChallengeReset) Name() string { return EventNameChallengeReset }

// EventLeaderboardPosted carries the standings requested by /leaderboard.
type EventLeaderboardPosted struct {
	Leaderboard Leaderboard
	Deadline    time.Time
}

func (EventLeaderboardPosted) Name() string { return EventNameLeaderboardPosted }

// EventChallengeCompleted carries the final standings sent once after the
// deadline passes.
type EventChallengeCompleted struct {
	Leaderboard Leaderboard
	Deadline    time.Time
}

func (EventChallengeCompleted) Name() string { return EventNameChallengeCompleted }
