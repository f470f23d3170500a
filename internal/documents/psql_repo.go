package documents

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel/attribute"

	"github.com/2beens/gymplanner/internal/plan"
	"github.com/2beens/gymplanner/internal/remote"
	"github.com/2beens/gymplanner/internal/telemetry/tracing"
)

type PsqlRepo struct {
	db *pgxpool.Pool
}

func NewPsqlRepo(db *pgxpool.Pool) *PsqlRepo {
	return &PsqlRepo{
		db: db,
	}
}

func (r *PsqlRepo) Get(ctx context.Context, userID string) (_ *remote.Document, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.documents.psql.get")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("user.id", userID))

	var (
		cols       columns
		lastSynced int64
	)
	err = r.db.QueryRow(
		ctx,
		`SELECT workout_templates, custom_exercises, exercise_favorites, last_synced
			FROM planner_document WHERE user_id = $1;`,
		userID,
	).Scan(&cols.templates, &cols.custom, &cols.favorites, &lastSynced)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	return decodeColumns(cols, lastSynced)
}

// Put stores the document unless the stored one carries a newer lastSynced.
func (r *PsqlRepo) Put(ctx context.Context, userID string, doc remote.Document) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.documents.psql.put")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("user.id", userID))

	lastSynced, err := syncedAt(doc)
	if err != nil {
		return err
	}
	cols, err := encodeColumns(doc)
	if err != nil {
		return err
	}

	tag, err := r.db.Exec(
		ctx,
		`INSERT INTO planner_document
				(user_id, workout_templates, custom_exercises, exercise_favorites, last_synced, updated_at)
				VALUES ($1, $2, $3, $4, $5, $6)
			ON CONFLICT (user_id) DO UPDATE SET
				workout_templates = EXCLUDED.workout_templates,
				custom_exercises = EXCLUDED.custom_exercises,
				exercise_favorites = EXCLUDED.exercise_favorites,
				last_synced = EXCLUDED.last_synced,
				updated_at = EXCLUDED.updated_at
			WHERE planner_document.last_synced <= EXCLUDED.last_synced;`,
		userID, cols.templates, cols.custom, cols.favorites, lastSynced, time.Now().UTC(),
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrStalePush
	}

	return nil
}

func (r *PsqlRepo) ListPending(ctx context.Context) (_ []PendingExercise, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.documents.psql.pending")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	rows, err := r.db.Query(
		ctx,
		`SELECT user_id, custom_exercises FROM planner_document
			WHERE custom_exercises @> '[{"pendingGlobalApproval": true}]'::jsonb
			ORDER BY user_id;`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var pending []PendingExercise
	for rows.Next() {
		var (
			userID     string
			customJson []byte
		)
		if err := rows.Scan(&userID, &customJson); err != nil {
			return nil, err
		}
		var custom []plan.CustomExercise
		if err := json.Unmarshal(customJson, &custom); err != nil {
			return nil, err
		}
		pending = append(pending, pendingOf(userID, custom)...)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	span.SetAttributes(attribute.Int("pending.count", len(pending)))
	return pending, nil
}

// Migrate applies PsqlSchema.
func (r *PsqlRepo) Migrate(ctx context.Context) error {
	_, err := r.db.Exec(ctx, PsqlSchema)
	return err
}
