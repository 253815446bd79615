// Package challenge implements the user-facing commands of the weight loss
// competition. Each handler validates its input, checks business
// preconditions against freshly fetched state, performs its side effect
// through the store, and returns exactly one user-visible reply. Broadcasts
// to the shared channel travel as events on the bus.
package challenge

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/matthumble/weightlossbot/internal/domain"
	"github.com/matthumble/weightlossbot/internal/errors"
	"github.com/matthumble/weightlossbot/internal/event"
	"github.com/matthumble/weightlossbot/internal/leaderboard"
	"github.com/matthumble/weightlossbot/internal/validate"
)

const unauthorizedReply = "❌ Unauthorized. This command is admin-only."

// Store is the slice of the persistence gateway the command handlers need.
type Store interface {
	GetUser(ctx context.Context, id string) (*domain.User, error)
	SetBaseline(ctx context.Context, id, name string, weight decimal.Decimal, date time.Time) error
	AddCheckin(ctx context.Context, id string, weight decimal.Decimal, date time.Time) (*domain.User, error)
	ListUsers(ctx context.Context) ([]domain.User, error)
	ResetUsers(ctx context.Context) error
	Deadline(ctx context.Context) (time.Time, error)
	SetDeadline(ctx context.Context, t time.Time) error
	SetCompetitionMode(ctx context.Context, m domain.Mode) error
	SetStartDate(ctx context.Context, t time.Time) error
	SetFinalLeaderboardSent(ctx context.Context, sent bool) error
}

// Boards computes competition standings.
type Boards interface {
	Build(ctx context.Context) (*domain.Leaderboard, error)
}

type Config struct {
	Store    Store
	Boards   Boards
	EventBus *event.Bus

	// Admins is the allow-list of user identities permitted to run
	// reset-challenge, set-deadline and start-challenge.
	Admins []string

	// Today overrides the clock in tests. Defaults to validate.Today.
	Today func() time.Time
}

type Service struct {
	store  Store
	boards Boards
	eb     *event.Bus
	admins []string
	today  func() time.Time
}

func NewService(c Config) *Service {
	s := &Service{
		store:  c.Store,
		boards: c.Boards,
		eb:     c.EventBus,
		admins: c.Admins,
		today:  c.Today,
	}
	if s.today == nil {
		s.today = validate.Today
	}
	return s
}

func (s *Service) isAdmin(userID string) bool {
	return userID != "" && slices.Contains(s.admins, userID)
}

type BaselineRequest struct {
	UserID      string
	DisplayName string
	Text        string
}

// Baseline records a participant's starting weight, at most once per
// competition.
func (s *Service) Baseline(ctx context.Context, req BaselineRequest) (string, error) {
	weight, ok := validate.ParseWeight(req.Text)
	if !ok {
		return weightErrorReply(req.Text, "baseline 200lbs"), nil
	}

	u, err := s.store.GetUser(ctx, req.UserID)
	if err != nil && errors.Convert(err).Code != errors.CodeNotFound {
		return "", err
	}
	if u != nil && u.HasBaseline() {
		return fmt.Sprintf("❌ You already have a baseline weight set: %slbs (set on %s).\nTo update your baseline, contact an admin to reset the challenge.",
			u.BaselineWeight, validate.FormatDate(u.BaselineDate)), nil
	}

	today := s.today()
	if err := s.store.SetBaseline(ctx, req.UserID, req.DisplayName, weight, today); err != nil {
		return "", err
	}

	return fmt.Sprintf("✅ Baseline weight set: %slbs\nDate: %s\n\nYou can now log checkins using: `checkin 185lbs`",
		weight, validate.FormatDate(today)), nil
}

type CheckinRequest struct {
	UserID string
	Text   string
}

// Checkin appends a weight measurement for a participant with a baseline,
// rejecting submissions after the deadline.
func (s *Service) Checkin(ctx context.Context, req CheckinRequest) (string, error) {
	deadline, err := s.store.Deadline(ctx)
	if err != nil {
		return "", err
	}

	today := s.today()
	if !deadline.IsZero() && today.After(deadline) {
		return fmt.Sprintf("❌ The challenge deadline has passed (%s). Checkins are no longer accepted.",
			validate.FormatDate(deadline)), nil
	}

	weight, ok := validate.ParseWeight(req.Text)
	if !ok {
		return weightErrorReply(req.Text, "checkin 185lbs"), nil
	}

	const noBaselineReply = "❌ No baseline weight found. Please set your baseline first using: `baseline 200lbs`"

	u, err := s.store.GetUser(ctx, req.UserID)
	if err != nil {
		if errors.Convert(err).Code == errors.CodeNotFound {
			return noBaselineReply, nil
		}
		return "", err
	}
	if !u.HasBaseline() {
		return noBaselineReply, nil
	}

	updated, err := s.store.AddCheckin(ctx, req.UserID, weight, today)
	if err != nil {
		return "", err
	}

	// Total lost is baseline minus the weight just submitted, which is the
	// latest checkin by construction.
	lost := updated.BaselineWeight.Sub(weight)

	reply := fmt.Sprintf("✅ Checkin recorded!\n\nCurrent weight: %slbs\nTotal lost: %s\nBaseline: %slbs\nTotal checkins: %d",
		weight, leaderboard.FormatLost(lost), updated.BaselineWeight, len(updated.Checkins))

	if !deadline.IsZero() {
		if days := validate.DaysUntil(today, deadline); days >= 0 {
			reply += fmt.Sprintf("\nDays until deadline: %d", days)
		}
	}

	return reply, nil
}

// weightErrorReply distinguishes an out-of-range weight from a malformed
// command. ParseWeight collapses both failures, so the raw pattern is
// re-matched here to pick the right message.
func weightErrorReply(text, example string) string {
	if w, ok := validate.MatchWeight(text); ok {
		if w.LessThan(validate.MinWeight) {
			return "❌ Weight must be at least 100lbs. Please enter a valid weight."
		}
		if w.GreaterThan(validate.MaxWeight) {
			return "❌ Weight must be 1000lbs or less. Please enter a valid weight."
		}
	}
	return fmt.Sprintf("❌ Invalid format. Please use: `%s`\nExample: `%s`", example, example)
}

// PostLeaderboard computes the current standings and publishes them for
// broadcast. The returned reply is the ephemeral confirmation for the
// caller.
func (s *Service) PostLeaderboard(ctx context.Context) (string, error) {
	board, err := s.boards.Build(ctx)
	if err != nil {
		return "", err
	}

	deadline, err := s.store.Deadline(ctx)
	if err != nil {
		return "", err
	}

	s.eb.Publish(ctx, domain.EventLeaderboardPosted{
		Leaderboard: *board,
		Deadline:    deadline,
	})

	return "✅ Leaderboard posted to the challenge channel.", nil
}

// Status reports the deadline and the signed days remaining or elapsed.
func (s *Service) Status(ctx context.Context) (string, error) {
	deadline, err := s.store.Deadline(ctx)
	if err != nil {
		return "", err
	}

	if deadline.IsZero() {
		return "📅 *Challenge Status*\n\nNo deadline has been set for this challenge.", nil
	}

	days := validate.DaysUntil(s.today(), deadline)
	return "📅 *Challenge Status*\n\n" + StatusLine(deadline, days), nil
}

// StatusLine renders the deadline summary shared by the status command and
// the leaderboard header.
func StatusLine(deadline time.Time, daysLeft int) string {
	switch {
	case daysLeft < 0:
		return fmt.Sprintf("Challenge ended on %s. (%d days ago)", validate.FormatDate(deadline), -daysLeft)
	case daysLeft == 0:
		return fmt.Sprintf("Challenge ends today (%s)!", validate.FormatDate(deadline))
	default:
		return fmt.Sprintf("Challenge deadline: %s\nDays remaining: %d", validate.FormatDate(deadline), daysLeft)
	}
}

// Reset bulk-clears all participant data and re-arms the final leaderboard.
// Admin-only.
func (s *Service) Reset(ctx context.Context, userID string) (string, error) {
	if !s.isAdmin(userID) {
		return unauthorizedReply, nil
	}

	if err := s.store.ResetUsers(ctx); err != nil {
		return "", err
	}
	if err := s.store.SetFinalLeaderboardSent(ctx, false); err != nil {
		return "", err
	}

	s.eb.Publish(ctx, domain.EventChallengeReset{})

	return "✅ Challenge reset successfully. Announcement posted to the challenge channel.", nil
}

// SetDeadline sets the checkin cutoff date. Admin-only.
func (s *Service) SetDeadline(ctx context.Context, userID, text string) (string, error) {
	if !s.isAdmin(userID) {
		return unauthorizedReply, nil
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return "❌ Please provide a date. Use YYYY-MM-DD format.\nExample: `/set-deadline 2024-12-31`", nil
	}

	deadline, err := validate.ParseDate(text)
	if err != nil {
		return fmt.Sprintf("❌ Invalid date format: %q\nPlease use YYYY-MM-DD format (e.g., 2024-12-31).\nExample: `/set-deadline 2024-12-31`", text), nil
	}

	if err := s.store.SetDeadline(ctx, deadline); err != nil {
		return "", err
	}

	return fmt.Sprintf("✅ Challenge deadline set to %s", validate.FormatDate(deadline)), nil
}

// CanStart reports whether the caller may open the start-challenge form.
func (s *Service) CanStart(userID string) bool {
	return s.isAdmin(userID)
}

// Form field identifiers for start-challenge validation errors.
const (
	FieldMode    = "competition_mode"
	FieldEndDate = "end_date"
)

type StartRequest struct {
	UserID  string
	Mode    string // "total" or "percentage"
	EndDate string // YYYY-MM-DD
}

// StartResult carries either the started competition parameters or
// field-level validation errors keyed by form field.
type StartResult struct {
	FieldErrors map[string]string

	Mode      domain.Mode
	StartDate time.Time
	EndDate   time.Time
}

func fieldError(field, msg string) *StartResult {
	return &StartResult{FieldErrors: map[string]string{field: msg}}
}

// Start begins a new competition from a submitted start-challenge form:
// mode, start date = today, deadline = end date, final leaderboard re-armed.
func (s *Service) Start(ctx context.Context, req StartRequest) (*StartResult, error) {
	if !s.isAdmin(req.UserID) {
		return fieldError(FieldMode, "Unauthorized. This command is admin-only."), nil
	}

	if req.Mode == "" {
		return fieldError(FieldMode, "Please select a competition mode."), nil
	}
	mode, ok := domain.ParseMode(req.Mode)
	if !ok {
		return fieldError(FieldMode, "Invalid competition mode selected."), nil
	}

	if req.EndDate == "" {
		return fieldError(FieldEndDate, "Please select an end date."), nil
	}
	endDate, err := validate.ParseDate(req.EndDate)
	if err != nil {
		return fieldError(FieldEndDate, "Invalid date format. Please use YYYY-MM-DD format."), nil
	}

	today := s.today()
	if !endDate.After(today) {
		return fieldError(FieldEndDate, "End date must be in the future."), nil
	}

	active, err := s.hasActiveCompetition(ctx, today)
	if err != nil {
		return nil, err
	}
	if active {
		return fieldError(FieldMode, "A competition is already active with participants. Please use /reset-challenge first to clear existing data."), nil
	}

	if err := s.store.SetCompetitionMode(ctx, mode); err != nil {
		return nil, err
	}
	if err := s.store.SetStartDate(ctx, today); err != nil {
		return nil, err
	}
	if err := s.store.SetDeadline(ctx, endDate); err != nil {
		return nil, err
	}
	if err := s.store.SetFinalLeaderboardSent(ctx, false); err != nil {
		return nil, err
	}

	s.eb.Publish(ctx, domain.EventChallengeStarted{
		Mode:      mode,
		StartDate: today,
		EndDate:   endDate,
	})

	return &StartResult{Mode: mode, StartDate: today, EndDate: endDate}, nil
}

// hasActiveCompetition reports whether a competition with participants is
// still running: a deadline on or after today plus at least one participant
// row.
func (s *Service) hasActiveCompetition(ctx context.Context, today time.Time) (bool, error) {
	deadline, err := s.store.Deadline(ctx)
	if err != nil {
		return false, err
	}
	if deadline.IsZero() || today.After(deadline) {
		return false, nil
	}

	users, err := s.store.ListUsers(ctx)
	if err != nil {
		return false, err
	}

	return len(users) > 0, nil
}
