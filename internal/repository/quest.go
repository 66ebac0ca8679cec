package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"timalaus_progression/internal/model"
	"timalaus_progression/pkg/logger"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"go.uber.org/zap"
)

type questDefinition struct {
	Key         string `db:"quest_key"`
	Cadence     string `db:"cadence"`
	Description string `db:"description"`
	TargetValue int64  `db:"target_value"`
	XPReward    int64  `db:"xp_reward"`
	BonusPlays  int    `db:"bonus_plays"`
	IsActive    bool   `db:"is_active"`
	MinRank     *int   `db:"min_rank"`
	MaxRank     *int   `db:"max_rank"`
}

type questProgress struct {
	UserID       uuid.UUID  `db:"user_id"`
	QuestKey     string     `db:"quest_key"`
	CurrentValue int64      `db:"current_value"`
	Completed    bool       `db:"completed"`
	CompletedAt  *time.Time `db:"completed_at"`
	ResetAt      time.Time  `db:"reset_at"`
}

var questDefinitionColumns = []string{
	"quest_key", "cadence", "description", "target_value", "xp_reward",
	"bonus_plays", "is_active", "min_rank", "max_rank",
}

var questProgressColumns = []string{
	"user_id", "quest_key", "current_value", "completed", "completed_at", "reset_at",
}

func (q *questDefinition) toModel() (*model.QuestDefinition, error) {
	cadence, err := model.ParseCadence(q.Cadence)
	if err != nil {
		return nil, err
	}
	return &model.QuestDefinition{
		Key:         q.Key,
		Cadence:     cadence,
		Description: q.Description,
		TargetValue: q.TargetValue,
		XPReward:    q.XPReward,
		BonusPlays:  q.BonusPlays,
		IsActive:    q.IsActive,
		MinRank:     q.MinRank,
		MaxRank:     q.MaxRank,
	}, nil
}

func (q *questProgress) toModel() *model.QuestProgress {
	return &model.QuestProgress{
		UserID:       q.UserID,
		QuestKey:     q.QuestKey,
		CurrentValue: q.CurrentValue,
		Completed:    q.Completed,
		CompletedAt:  q.CompletedAt,
		ResetAt:      q.ResetAt.UTC(),
	}
}

// ListQuestDefinitions returns the whole catalog. Rows with an unknown cadence are skipped.
func (r *Repository) ListQuestDefinitions(ctx context.Context) ([]*model.QuestDefinition, error) {
	query, args, err := squirrel.
		Select(questDefinitionColumns...).
		From("quest_definitions").
		OrderBy("quest_key").
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build quest definitions query: %w", err)
	}

	var rows []*questDefinition
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("failed to get quest definitions: %w", err)
	}

	defs := make([]*model.QuestDefinition, 0, len(rows))
	for _, row := range rows {
		def, err := row.toModel()
		if err != nil {
			logger.Logger().Warn("skipping quest definition",
				zap.String("quest_key", row.Key), zap.Error(err))
			continue
		}
		defs = append(defs, def)
	}

	return defs, nil
}

func (r *Repository) GetQuestDefinition(ctx context.Context, questKey string) (*model.QuestDefinition, error) {
	query, args, err := squirrel.
		Select(questDefinitionColumns...).
		From("quest_definitions").
		Where(squirrel.Eq{"quest_key": questKey}).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return nil, err
	}

	var row questDefinition
	err = r.db.GetContext(ctx, &row, query, args...)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	return row.toModel()
}

func (r *Repository) GetQuestProgress(ctx context.Context, userID uuid.UUID, questKey string) (*model.QuestProgress, error) {
	query, args, err := squirrel.
		Select(questProgressColumns...).
		From("quest_progress").
		Where(squirrel.Eq{"user_id": userID, "quest_key": questKey}).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return nil, err
	}

	var row questProgress
	err = r.db.GetContext(ctx, &row, query, args...)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	return row.toModel(), nil
}

// ListQuestProgress returns the user's rows for the given quest keys, keyed by quest key.
func (r *Repository) ListQuestProgress(ctx context.Context, userID uuid.UUID, questKeys []string) (map[string]*model.QuestProgress, error) {
	out := make(map[string]*model.QuestProgress, len(questKeys))
	if len(questKeys) == 0 {
		return out, nil
	}

	query, args, err := squirrel.
		Select(questProgressColumns...).
		From("quest_progress").
		Where(squirrel.Eq{"user_id": userID}).
		Where("quest_key = ANY(?)", pq.Array(questKeys)).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build quest progress query: %w", err)
	}

	var rows []*questProgress
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("failed to get quest progress: %w", err)
	}

	for _, row := range rows {
		out[row.QuestKey] = row.toModel()
	}
	return out, nil
}

// EnsureQuestProgress creates the user's row for a quest, or replaces it with a fresh zeroed row
// when its reset instant has passed. A row that is still current is left untouched, which makes
// concurrent refreshes converge on one row. The returned bool reports whether a fresh row was written.
func (r *Repository) EnsureQuestProgress(ctx context.Context, userID uuid.UUID, questKey string, resetAt, now time.Time) (*model.QuestProgress, bool, error) {
	var (
		row       questProgress
		refreshed bool
	)

	err := r.Transaction(ctx, func(tx *sqlx.Tx) error {
		upsert, args, err := squirrel.
			Insert("quest_progress").
			Columns(questProgressColumns...).
			Values(userID, questKey, 0, false, nil, resetAt).
			Suffix(`ON CONFLICT (user_id, quest_key) DO UPDATE SET
				current_value = 0,
				completed = false,
				completed_at = NULL,
				reset_at = EXCLUDED.reset_at
			WHERE quest_progress.reset_at <= ?`, now).
			PlaceholderFormat(squirrel.Dollar).
			ToSql()
		if err != nil {
			return fmt.Errorf("failed to build quest progress upsert: %w", err)
		}

		result, err := tx.ExecContext(ctx, upsert, args...)
		if err != nil {
			return fmt.Errorf("failed to upsert quest progress: %w", err)
		}
		rows, err := result.RowsAffected()
		if err != nil {
			return err
		}
		refreshed = rows > 0

		query, args, err := squirrel.
			Select(questProgressColumns...).
			From("quest_progress").
			Where(squirrel.Eq{"user_id": userID, "quest_key": questKey}).
			PlaceholderFormat(squirrel.Dollar).
			ToSql()
		if err != nil {
			return err
		}

		return tx.GetContext(ctx, &row, query, args...)
	})
	if err != nil {
		return nil, false, err
	}

	return row.toModel(), refreshed, nil
}

// AdvanceQuestProgress applies one progress write guarded by completed = false and a live
// reset_at. When that write completes the quest, the reward is credited to the profile in the
// same transaction. A row that is missing, expired or already completed yields Applied = false.
func (r *Repository) AdvanceQuestProgress(ctx context.Context, u model.ProgressUpdate) (*model.ProgressOutcome, error) {
	outcome := &model.ProgressOutcome{}

	err := r.Transaction(ctx, func(tx *sqlx.Tx) error {
		valueSQL, valueArg := "current_value + ?", u.Increment
		if u.IsAbsolute {
			valueSQL, valueArg = "GREATEST(current_value, ?)", u.Absolute
		}

		query, args, err := squirrel.
			Update("quest_progress").
			Set("current_value", squirrel.Expr(valueSQL, valueArg)).
			Set("completed", squirrel.Expr("("+valueSQL+") >= ?", valueArg, u.Target)).
			Set("completed_at", squirrel.Expr(
				"CASE WHEN ("+valueSQL+") >= ? THEN ?::timestamptz ELSE NULL END",
				valueArg, u.Target, u.Now,
			)).
			Where(squirrel.Eq{
				"user_id":   u.UserID,
				"quest_key": u.QuestKey,
				"completed": false,
			}).
			Where(squirrel.Gt{"reset_at": u.Now}).
			Suffix("RETURNING current_value, completed").
			PlaceholderFormat(squirrel.Dollar).
			ToSql()
		if err != nil {
			return fmt.Errorf("failed to build progress update: %w", err)
		}

		var row struct {
			CurrentValue int64 `db:"current_value"`
			Completed    bool  `db:"completed"`
		}
		err = tx.GetContext(ctx, &row, query, args...)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil
			}
			return fmt.Errorf("failed to update quest progress: %w", err)
		}

		outcome.Applied = true
		outcome.CurrentValue = row.CurrentValue
		if !row.Completed {
			return nil
		}

		xpTotal, err := r.grantWithTx(ctx, tx, u.UserID, u.XPReward, u.BonusPlays)
		if err != nil {
			return err
		}
		outcome.NewlyCompleted = true
		outcome.XPTotal = xpTotal
		return nil
	})
	if err != nil {
		return nil, err
	}

	return outcome, nil
}
