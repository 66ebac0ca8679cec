package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"timalaus_progression/internal/model"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

type achievement struct {
	Key                string `db:"achievement_key"`
	Title              string `db:"title"`
	Description        string `db:"description"`
	XPBonus            int64  `db:"xp_bonus"`
	IsActive           bool   `db:"is_active"`
	ConditionKind      string `db:"condition_kind"`
	ConditionThreshold int64  `db:"condition_threshold"`
}

type achievementUnlock struct {
	UserID         uuid.UUID `db:"user_id"`
	AchievementKey string    `db:"achievement_key"`
	UnlockedAt     time.Time `db:"unlocked_at"`
}

var achievementColumns = []string{
	"achievement_key", "title", "description", "xp_bonus", "is_active",
	"COALESCE(condition_kind, '') AS condition_kind",
	"COALESCE(condition_threshold, 0) AS condition_threshold",
}

func (a *achievement) toModel() *model.Achievement {
	return &model.Achievement{
		Key:                a.Key,
		Title:              a.Title,
		Description:        a.Description,
		XPBonus:            a.XPBonus,
		IsActive:           a.IsActive,
		ConditionKind:      model.ConditionKind(a.ConditionKind),
		ConditionThreshold: a.ConditionThreshold,
	}
}

func (r *Repository) ListAchievements(ctx context.Context) ([]*model.Achievement, error) {
	query, args, err := squirrel.
		Select(achievementColumns...).
		From("achievements").
		OrderBy("achievement_key").
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build achievements query: %w", err)
	}

	var rows []*achievement
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("failed to get achievements: %w", err)
	}

	out := make([]*model.Achievement, len(rows))
	for i, row := range rows {
		out[i] = row.toModel()
	}
	return out, nil
}

func (r *Repository) GetAchievement(ctx context.Context, key string) (*model.Achievement, error) {
	query, args, err := squirrel.
		Select(achievementColumns...).
		From("achievements").
		Where(squirrel.Eq{"achievement_key": key}).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return nil, err
	}

	var row achievement
	err = r.db.GetContext(ctx, &row, query, args...)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	return row.toModel(), nil
}

func (r *Repository) ListAchievementUnlocks(ctx context.Context, userID uuid.UUID) ([]*model.AchievementUnlock, error) {
	query, args, err := squirrel.
		Select("user_id", "achievement_key", "unlocked_at").
		From("achievement_unlocks").
		Where(squirrel.Eq{"user_id": userID}).
		OrderBy("unlocked_at").
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return nil, err
	}

	var rows []*achievementUnlock
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("failed to get achievement unlocks: %w", err)
	}

	out := make([]*model.AchievementUnlock, len(rows))
	for i, row := range rows {
		out[i] = &model.AchievementUnlock{
			UserID:         row.UserID,
			AchievementKey: row.AchievementKey,
			UnlockedAt:     row.UnlockedAt,
		}
	}
	return out, nil
}

// UnlockedAchievementKeys returns the keys the user already holds.
func (r *Repository) UnlockedAchievementKeys(ctx context.Context, userID uuid.UUID) ([]string, error) {
	query, args, err := squirrel.
		Select("COALESCE(array_agg(achievement_key), '{}') AS unlocked_keys").
		From("achievement_unlocks").
		Where(squirrel.Eq{"user_id": userID}).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return nil, err
	}

	var keys pq.StringArray
	if err := r.db.GetContext(ctx, &keys, query, args...); err != nil {
		return nil, fmt.Errorf("failed to get unlocked achievement keys: %w", err)
	}
	return keys, nil
}

// UnlockAchievement inserts the unlock record and, only when the insert wins, credits xpBonus in
// the same transaction. It returns false and a zero total when the user already held it.
func (r *Repository) UnlockAchievement(ctx context.Context, userID uuid.UUID, key string, xpBonus int64, now time.Time) (bool, int64, error) {
	var (
		unlocked bool
		xpTotal  int64
	)

	err := r.Transaction(ctx, func(tx *sqlx.Tx) error {
		query, args, err := squirrel.
			Insert("achievement_unlocks").
			Columns("user_id", "achievement_key", "unlocked_at").
			Values(userID, key, now).
			Suffix("ON CONFLICT (user_id, achievement_key) DO NOTHING").
			PlaceholderFormat(squirrel.Dollar).
			ToSql()
		if err != nil {
			return fmt.Errorf("failed to build unlock query: %w", err)
		}

		result, err := tx.ExecContext(ctx, query, args...)
		if err != nil {
			return fmt.Errorf("failed to insert achievement unlock: %w", err)
		}
		rows, err := result.RowsAffected()
		if err != nil {
			return err
		}
		if rows == 0 {
			return nil
		}

		xpTotal, err = r.grantWithTx(ctx, tx, userID, xpBonus, 0)
		if err != nil {
			return err
		}
		unlocked = true
		return nil
	})
	if err != nil {
		return false, 0, err
	}

	return unlocked, xpTotal, nil
}
