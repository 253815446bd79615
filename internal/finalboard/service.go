// Package finalboard sends the final celebration leaderboard the day after
// the competition deadline passes, exactly once per competition.
package finalboard

import (
	"context"
	"log/slog"
	"time"

	"github.com/matthumble/weightlossbot/internal/domain"
	"github.com/matthumble/weightlossbot/internal/event"
	"github.com/matthumble/weightlossbot/internal/validate"
)

type Store interface {
	Deadline(ctx context.Context) (time.Time, error)
	FinalLeaderboardSent(ctx context.Context) (bool, error)
	SetFinalLeaderboardSent(ctx context.Context, sent bool) error
}

type Boards interface {
	Build(ctx context.Context) (*domain.Leaderboard, error)
}

// Timer abstracts time.Timer so tests can fire the daily check directly.
type Timer interface {
	C() <-chan time.Time
	Stop() bool
}

type Config struct {
	Store    Store
	Boards   Boards
	EventBus *event.Bus

	// Hour is the local hour of day the daily check runs at.
	Hour int
	// Location is the timezone for the daily check. Defaults to time.Local.
	Location *time.Location

	// Now and NewTimerFunc override the clock in tests.
	Now          func() time.Time
	NewTimerFunc func(d time.Duration) Timer
}

type Service struct {
	store    Store
	boards   Boards
	eb       *event.Bus
	hour     int
	loc      *time.Location
	now      func() time.Time
	newTimer func(d time.Duration) Timer
	done     chan struct{}
}

func NewService(c Config) *Service {
	s := &Service{
		store:    c.Store,
		boards:   c.Boards,
		eb:       c.EventBus,
		hour:     c.Hour,
		loc:      c.Location,
		now:      c.Now,
		newTimer: c.NewTimerFunc,
		done:     make(chan struct{}),
	}
	if s.loc == nil {
		s.loc = time.Local
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.newTimer == nil {
		s.newTimer = newStdTimer
	}
	return s
}

// Start launches the daily check loop. The first check fires at the next
// occurrence of the configured hour.
func (s *Service) Start() {
	go s.run()
}

// Stop terminates the check loop.
func (s *Service) Stop() {
	close(s.done)
}

func (s *Service) run() {
	for {
		t := s.newTimer(s.untilNextCheck())
		select {
		case <-t.C():
			ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
			if err := s.CheckAndSend(ctx); err != nil {
				slog.ErrorContext(ctx, "finalboard: daily check failed", "error", err)
			}
			cancel()
		case <-s.done:
			t.Stop()
			return
		}
	}
}

func (s *Service) untilNextCheck() time.Duration {
	now := s.now().In(s.loc)
	next := time.Date(now.Year(), now.Month(), now.Day(), s.hour, 0, 0, 0, s.loc)
	if !next.After(now) {
		next = next.AddDate(0, 0, 1)
	}
	return next.Sub(now)
}

// ShouldSend reports whether the final leaderboard is due: the deadline was
// yesterday and the sent flag is still clear. The flag, not the date
// comparison, is what stops repeat sends after the first one goes out.
func (s *Service) ShouldSend(ctx context.Context) (bool, error) {
	deadline, err := s.store.Deadline(ctx)
	if err != nil {
		return false, err
	}
	if deadline.IsZero() {
		return false, nil
	}

	yesterday := validate.DateOf(s.now().In(s.loc)).AddDate(0, 0, -1)
	if !deadline.Equal(yesterday) {
		return false, nil
	}

	sent, err := s.store.FinalLeaderboardSent(ctx)
	if err != nil {
		return false, err
	}

	return !sent, nil
}

// Send broadcasts the full final standings and marks them sent. The flag is
// set even when nobody participated.
func (s *Service) Send(ctx context.Context) error {
	board, err := s.boards.Build(ctx)
	if err != nil {
		return err
	}

	deadline, err := s.store.Deadline(ctx)
	if err != nil {
		return err
	}

	s.eb.Publish(ctx, domain.EventChallengeCompleted{
		Leaderboard: *board,
		Deadline:    deadline,
	})

	return s.store.SetFinalLeaderboardSent(ctx, true)
}

// CheckAndSend is the daily scheduler callback.
func (s *Service) CheckAndSend(ctx context.Context) error {
	ok, err := s.ShouldSend(ctx)
	if err != nil || !ok {
		return err
	}

	slog.InfoContext(ctx, "finalboard: challenge ended yesterday, sending final leaderboard")
	return s.Send(ctx)
}

type stdTimer struct {
	t *time.Timer
}

func newStdTimer(d time.Duration) Timer {
	return stdTimer{t: time.NewTimer(d)}
}

func (t stdTimer) C() <-chan time.Time { return t.t.C }
func (t stdTimer) Stop() bool          { return t.t.Stop() }
