// Package leaderboard turns participant records into ranked competition
// standings. Standings are always recomputed from the checkin lists; the
// denormalized per-user totals are never consulted.
package leaderboard

import (
	"context"
	"fmt"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/matthumble/weightlossbot/internal/domain"
)

var hundred = decimal.NewFromInt(100)

// Compute builds ranked entries from participant records. Records without a
// positive baseline weight are discarded. A participant's current weight is
// their latest checkin by date, or the baseline when they have none. The
// sort is stable, so ties keep input order.
func Compute(users []domain.User, mode domain.Mode) []domain.LeaderboardEntry {
	entries := make([]domain.LeaderboardEntry, 0, len(users))

	for _, u := range users {
		if !u.BaselineWeight.IsPositive() {
			continue
		}

		current := u.BaselineWeight
		if c, ok := latestCheckin(u.Checkins); ok {
			current = c.Weight
		}

		lost := u.BaselineWeight.Sub(current)

		metric := lost.InexactFloat64()
		if mode == domain.ModePercentage {
			metric = lost.Div(u.BaselineWeight).Mul(hundred).InexactFloat64()
		}

		entries = append(entries, domain.LeaderboardEntry{
			UserID:      u.ID,
			DisplayName: u.DisplayName,
			Baseline:    u.BaselineWeight,
			Current:     current,
			Lost:        lost,
			Metric:      metric,
		})
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Metric > entries[j].Metric
	})

	return entries
}

// latestCheckin returns the checkin with the greatest date. Among checkins
// sharing that date the most recently submitted one wins.
func latestCheckin(checkins []domain.Checkin) (domain.Checkin, bool) {
	if len(checkins) == 0 {
		return domain.Checkin{}, false
	}

	best := checkins[0]
	for _, c := range checkins[1:] {
		if !c.Date.Before(best.Date) {
			best = c
		}
	}
	return best, true
}

type Store interface {
	ListUsers(ctx context.Context) ([]domain.User, error)
	CompetitionMode(ctx context.Context) (domain.Mode, error)
}

type Config struct {
	Store Store
}

type Service struct {
	store Store
}

func NewService(c Config) *Service {
	return &Service{store: c.Store}
}

// Build fetches all participants and computes the full mode-aware
// leaderboard.
func (s *Service) Build(ctx context.Context) (*domain.Leaderboard, error) {
	mode, err := s.store.CompetitionMode(ctx)
	if err != nil {
		return nil, fmt.Errorf("leaderboard: get mode: %w", err)
	}

	users, err := s.store.ListUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("leaderboard: list users: %w", err)
	}

	return &domain.Leaderboard{
		Mode:    mode,
		Entries: Compute(users, mode),
	}, nil
}
