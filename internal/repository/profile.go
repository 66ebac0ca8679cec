package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"timalaus_progression/internal/model"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

type profile struct {
	ID            uuid.UUID  `db:"id"`
	Username      string     `db:"username"`
	XPTotal       int64      `db:"xp_total"`
	GamesPlayed   int        `db:"games_played"`
	CurrentStreak int        `db:"current_streak"`
	LastPlayedAt  *time.Time `db:"last_played_at"`
	BonusPlays    int        `db:"bonus_plays"`
	IsAdmin       bool       `db:"is_admin"`
}

var profileColumns = []string{
	"id", "username", "xp_total", "games_played", "current_streak",
	"last_played_at", "bonus_plays", "is_admin",
}

func (p *profile) toModel() *model.Profile {
	return &model.Profile{
		ID:            p.ID,
		Username:      p.Username,
		XPTotal:       p.XPTotal,
		GamesPlayed:   p.GamesPlayed,
		CurrentStreak: p.CurrentStreak,
		LastPlayedAt:  p.LastPlayedAt,
		BonusPlays:    p.BonusPlays,
		IsAdmin:       p.IsAdmin,
	}
}

func (r *Repository) GetProfile(ctx context.Context, userID uuid.UUID) (*model.Profile, error) {
	query, args, err := squirrel.
		Select(profileColumns...).
		From("profiles").
		Where(squirrel.Eq{"id": userID}).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return nil, err
	}

	var row profile
	err = r.db.GetContext(ctx, &row, query, args...)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	return row.toModel(), nil
}

// RecordGame credits the XP of one run and bumps the play counters. The streak in rec was
// derived from PrevPlayedAt, so the write only applies while last_played_at still holds that
// value; otherwise ErrStaleProfile is returned and nothing changes.
func (r *Repository) RecordGame(ctx context.Context, rec model.GameRecord) (*model.Profile, error) {
	query, args, err := squirrel.
		Update("profiles").
		Set("xp_total", squirrel.Expr("xp_total + ?", rec.XPGained)).
		Set("games_played", squirrel.Expr("games_played + 1")).
		Set("current_streak", rec.Streak).
		Set("last_played_at", rec.PlayedAt).
		Set("updated_at", rec.PlayedAt).
		Where(squirrel.Eq{"id": rec.UserID}).
		Where("last_played_at IS NOT DISTINCT FROM ?", rec.PrevPlayedAt).
		Suffix("RETURNING " + strings.Join(profileColumns, ", ")).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build game record query: %w", err)
	}

	var row profile
	err = r.Transaction(ctx, func(tx *sqlx.Tx) error {
		err := tx.GetContext(ctx, &row, query, args...)
		if err == nil {
			return nil
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("failed to record game: %w", err)
		}

		var exists bool
		if err := tx.GetContext(ctx, &exists, `SELECT EXISTS (SELECT 1 FROM profiles WHERE id = $1)`, rec.UserID); err != nil {
			return fmt.Errorf("failed to check profile: %w", err)
		}
		if !exists {
			return ErrNotFound
		}
		return ErrStaleProfile
	})
	if err != nil {
		return nil, err
	}

	return row.toModel(), nil
}

// SetProfileXP overwrites the XP total. Only used for administrative corrections.
func (r *Repository) SetProfileXP(ctx context.Context, userID uuid.UUID, xpTotal int64) (*model.Profile, error) {
	query, args, err := squirrel.
		Update("profiles").
		Set("xp_total", xpTotal).
		Set("updated_at", time.Now().UTC()).
		Where(squirrel.Eq{"id": userID}).
		Suffix("RETURNING " + strings.Join(profileColumns, ", ")).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return nil, err
	}

	var row profile
	err = r.db.GetContext(ctx, &row, query, args...)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to set profile xp: %w", err)
	}

	return row.toModel(), nil
}

// ListProfileXP returns the profiles with the most XP, used to rebuild the leaderboard.
func (r *Repository) ListProfileXP(ctx context.Context, limit int) ([]*model.Profile, error) {
	query, args, err := squirrel.
		Select(profileColumns...).
		From("profiles").
		OrderBy("xp_total DESC").
		Limit(uint64(limit)).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return nil, err
	}

	var rows []*profile
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list profiles: %w", err)
	}

	profiles := make([]*model.Profile, len(rows))
	for i, row := range rows {
		profiles[i] = row.toModel()
	}
	return profiles, nil
}

// CountProfilesAbove counts the profiles with strictly more XP than xpTotal.
func (r *Repository) CountProfilesAbove(ctx context.Context, xpTotal int64) (int, error) {
	query, args, err := squirrel.
		Select("COUNT(*)").
		From("profiles").
		Where(squirrel.Gt{"xp_total": xpTotal}).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return 0, err
	}

	var n int
	if err := r.db.GetContext(ctx, &n, query, args...); err != nil {
		return 0, fmt.Errorf("failed to count profiles: %w", err)
	}
	return n, nil
}

func (r *Repository) grantWithTx(ctx context.Context, tx *sqlx.Tx, userID uuid.UUID, xp int64, bonusPlays int) (int64, error) {
	query, args, err := squirrel.
		Update("profiles").
		Set("xp_total", squirrel.Expr("xp_total + ?", xp)).
		Set("bonus_plays", squirrel.Expr("bonus_plays + ?", bonusPlays)).
		Where(squirrel.Eq{"id": userID}).
		Suffix("RETURNING xp_total").
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("failed to build grant query: %w", err)
	}

	var xpTotal int64
	err = tx.GetContext(ctx, &xpTotal, query, args...)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, ErrNotFound
		}
		return 0, fmt.Errorf("failed to grant xp: %w", err)
	}

	return xpTotal, nil
}
