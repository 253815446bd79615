// Package store is the persistence gateway for participant rows and
// competition configuration. It owns two tables:
//
//	users(user_id text PRIMARY KEY, display_name text,
//	      baseline_weight numeric, baseline_date text,
//	      checkins jsonb, total_lost numeric, latest_checkin_date text)
//	config(key text PRIMARY KEY, value text)
//
// checkins is a JSON array of {"weight", "date"} objects in submission
// order. total_lost and latest_checkin_date are denormalized display fields;
// the leaderboard never reads them.
//
// Read-then-write sequences here are not transactional. Concurrent
// submissions from the same user can race; that limitation is accepted.
package store

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/matthumble/weightlossbot/internal/domain"
	"github.com/matthumble/weightlossbot/internal/errors"
	"github.com/matthumble/weightlossbot/internal/validate"
)

const (
	keyDeadline  = "deadline"
	keyMode      = "mode"
	keyStartDate = "competition_start_date"
	keyFinalSent = "final_leaderboard_sent"
)

type Config struct {
	DB *pgxpool.Pool
}

type Service struct {
	db *pgxpool.Pool
}

func NewService(c Config) *Service {
	return &Service{db: c.DB}
}

const selectUserColumns = `
SELECT user_id, display_name, COALESCE(baseline_weight, 0), COALESCE(baseline_date, ''),
       COALESCE(checkins::text, ''), COALESCE(total_lost, 0), COALESCE(latest_checkin_date, '')
FROM users`

// GetUser fetches one participant row. A missing row is reported as a
// CodeNotFound error.
func (s *Service) GetUser(ctx context.Context, id string) (*domain.User, error) {
	const stmt = selectUserColumns + ` WHERE user_id = $1;`

	u, err := scanUser(s.db.QueryRow(ctx, stmt, id))
	if stderrors.Is(err, pgx.ErrNoRows) {
		return nil, errors.New(errors.CodeNotFound, errors.WithMessagef("user not found: %s", id))
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}

	return u, nil
}

// SetBaseline records a participant's starting weight. It fails with
// CodeAlreadyExists when a baseline is already present; the caller re-fetches
// first for the user-facing message, this check is the write-side guard.
func (s *Service) SetBaseline(ctx context.Context, id, name string, weight decimal.Decimal, date time.Time) error {
	u, err := s.GetUser(ctx, id)
	if err != nil && errors.Convert(err).Code != errors.CodeNotFound {
		return err
	}

	if u != nil {
		if u.HasBaseline() {
			return errors.New(errors.CodeAlreadyExists, errors.WithMessagef("baseline already set for user %s", id))
		}

		const stmt = `UPDATE users SET display_name = $2, baseline_weight = $3, baseline_date = $4 WHERE user_id = $1;`
		if _, err := s.db.Exec(ctx, stmt, id, name, weight, validate.FormatDate(date)); err != nil {
			return fmt.Errorf("update baseline: %w", err)
		}
		return nil
	}

	const stmt = `
INSERT INTO users (user_id, display_name, baseline_weight, baseline_date, checkins, total_lost, latest_checkin_date)
VALUES ($1, $2, $3, $4, '[]', 0, '');`
	if _, err := s.db.Exec(ctx, stmt, id, name, weight, validate.FormatDate(date)); err != nil {
		return fmt.Errorf("insert baseline: %w", err)
	}
	return nil
}

// AddCheckin appends a measurement to the participant's checkin list and
// refreshes the denormalized display fields. The just-added checkin is the
// latest by construction, so total_lost is baseline minus the submitted
// weight. Returns the updated record.
func (s *Service) AddCheckin(ctx context.Context, id string, weight decimal.Decimal, date time.Time) (*domain.User, error) {
	u, err := s.GetUser(ctx, id)
	if err != nil {
		if errors.Convert(err).Code == errors.CodeNotFound {
			return nil, errors.New(errors.CodeFailedPrecondition, errors.WithMessagef("no baseline set for user %s", id))
		}
		return nil, err
	}
	if !u.HasBaseline() {
		return nil, errors.New(errors.CodeFailedPrecondition, errors.WithMessagef("no baseline set for user %s", id))
	}

	u.Checkins = append(u.Checkins, domain.Checkin{Weight: weight, Date: date})
	u.TotalLost = u.BaselineWeight.Sub(weight)
	u.LatestCheckinDate = date

	raw, err := json.Marshal(encodeCheckins(u.Checkins))
	if err != nil {
		return nil, fmt.Errorf("encode checkins: %w", err)
	}

	const stmt = `UPDATE users SET checkins = $2, total_lost = $3, latest_checkin_date = $4 WHERE user_id = $1;`
	if _, err := s.db.Exec(ctx, stmt, id, raw, u.TotalLost, validate.FormatDate(date)); err != nil {
		return nil, fmt.Errorf("update checkins: %w", err)
	}

	return u, nil
}

// ListUsers returns every participant with a baseline weight set.
func (s *Service) ListUsers(ctx context.Context) ([]domain.User, error) {
	const stmt = selectUserColumns + `
WHERE baseline_weight IS NOT NULL
ORDER BY user_id;`

	rows, err := s.db.Query(ctx, stmt)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}

	users, err := pgx.CollectRows(rows, func(r pgx.CollectableRow) (domain.User, error) {
		u, err := scanUser(r)
		if err != nil {
			return domain.User{}, err
		}
		return *u, nil
	})
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}

	return users, nil
}

// ResetUsers bulk-clears all participant rows.
func (s *Service) ResetUsers(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, `DELETE FROM users;`); err != nil {
		return fmt.Errorf("reset users: %w", err)
	}
	return nil
}

// Deadline returns the competition deadline, zero when unset.
func (s *Service) Deadline(ctx context.Context) (time.Time, error) {
	return s.dateValue(ctx, keyDeadline)
}

func (s *Service) SetDeadline(ctx context.Context, t time.Time) error {
	return s.setValue(ctx, keyDeadline, validate.FormatDate(t))
}

// StartDate returns the date the competition began, zero when unset.
func (s *Service) StartDate(ctx context.Context) (time.Time, error) {
	return s.dateValue(ctx, keyStartDate)
}

func (s *Service) SetStartDate(ctx context.Context, t time.Time) error {
	return s.setValue(ctx, keyStartDate, validate.FormatDate(t))
}

// CompetitionMode returns the configured ranking mode. Missing or unknown
// stored values fall back to ModeTotal.
func (s *Service) CompetitionMode(ctx context.Context) (domain.Mode, error) {
	v, err := s.value(ctx, keyMode)
	if err != nil {
		return domain.ModeTotal, err
	}

	m, _ := domain.ParseMode(v)
	return m, nil
}

func (s *Service) SetCompetitionMode(ctx context.Context, m domain.Mode) error {
	return s.setValue(ctx, keyMode, m.String())
}

func (s *Service) FinalLeaderboardSent(ctx context.Context) (bool, error) {
	v, err := s.value(ctx, keyFinalSent)
	if err != nil {
		return false, err
	}
	return v == "true", nil
}

func (s *Service) SetFinalLeaderboardSent(ctx context.Context, sent bool) error {
	return s.setValue(ctx, keyFinalSent, strconv.FormatBool(sent))
}

func (s *Service) value(ctx context.Context, key string) (string, error) {
	const stmt = `SELECT value FROM config WHERE key = $1;`

	var v string
	err := s.db.QueryRow(ctx, stmt, key).Scan(&v)
	if stderrors.Is(err, pgx.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("get config %s: %w", key, err)
	}

	return v, nil
}

func (s *Service) setValue(ctx context.Context, key, value string) error {
	const stmt = `
INSERT INTO config (key, value) VALUES ($1, $2)
ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value;`

	if _, err := s.db.Exec(ctx, stmt, key, value); err != nil {
		return fmt.Errorf("set config %s: %w", key, err)
	}
	return nil
}

func (s *Service) dateValue(ctx context.Context, key string) (time.Time, error) {
	v, err := s.value(ctx, key)
	if err != nil || v == "" {
		return time.Time{}, err
	}

	t, err := validate.ParseDate(v)
	if err != nil {
		slog.Error("store: malformed date value, treating as unset", "key", key, "value", v, "error", err)
		return time.Time{}, nil
	}

	return t, nil
}

type row interface {
	Scan(dest ...any) error
}

func scanUser(r row) (*domain.User, error) {
	var (
		u            domain.User
		baselineDate string
		rawCheckins  string
		latestDate   string
	)

	if err := r.Scan(&u.ID, &u.DisplayName, &u.BaselineWeight, &baselineDate, &rawCheckins, &u.TotalLost, &latestDate); err != nil {
		return nil, err
	}

	u.BaselineDate = parseStoredDate(baselineDate)
	u.LatestCheckinDate = parseStoredDate(latestDate)
	u.Checkins = decodeCheckins(u.ID, rawCheckins)

	return &u, nil
}

type checkinRow struct {
	Weight decimal.Decimal `json:"weight"`
	Date   string          `json:"date"`
}

// decodeCheckins tolerates malformed stored JSON: the row degrades to an
// empty checkin list instead of failing the whole read.
func decodeCheckins(userID, raw string) []domain.Checkin {
	if raw == "" || raw == "[]" {
		return nil
	}

	var rows []checkinRow
	if err := json.Unmarshal([]byte(raw), &rows); err != nil {
		slog.Error("store: malformed checkins JSON, treating as empty", "user", userID, "error", err)
		return nil
	}

	checkins := make([]domain.Checkin, 0, len(rows))
	for _, cr := range rows {
		checkins = append(checkins, domain.Checkin{Weight: cr.Weight, Date: parseStoredDate(cr.Date)})
	}
	return checkins
}

func encodeCheckins(checkins []domain.Checkin) []checkinRow {
	rows := make([]checkinRow, 0, len(checkins))
	for _, c := range checkins {
		rows = append(rows, checkinRow{Weight: c.Weight, Date: validate.FormatDate(c.Date)})
	}
	return rows
}

func parseStoredDate(s string) time.Time {
	if s == "" {
		return time.Time{}
	}

	t, err := validate.ParseDate(s)
	if err != nil {
		return time.Time{}
	}
	return t
}
