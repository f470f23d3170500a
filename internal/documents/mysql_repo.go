package documents

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	"go.opentelemetry.io/otel/attribute"

	"github.com/2beens/gymplanner/internal/plan"
	"github.com/2beens/gymplanner/internal/remote"
	"github.com/2beens/gymplanner/internal/telemetry/tracing"
)

const mysqlErrDuplicateEntry = 1062

type MysqlParams struct {
	Host     string
	Port     string
	DBName   string
	User     string
	Password string
}

// OpenMysql opens a connection pool to the documents database.
func OpenMysql(params MysqlParams) (*sql.DB, error) {
	cfg := mysql.NewConfig()
	cfg.User = params.User
	cfg.Passwd = params.Password
	cfg.Net = "tcp"
	cfg.Addr = net.JoinHostPort(params.Host, params.Port)
	cfg.DBName = params.DBName
	cfg.ParseTime = true

	db, err := sql.Open("mysql", cfg.FormatDSN())
	if err != nil {
		return nil, fmt.Errorf("open mysql: %w", err)
	}
	db.SetConnMaxLifetime(3 * time.Minute)
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	return db, nil
}

type MysqlRepo struct {
	db *sql.DB
}

func NewMysqlRepo(db *sql.DB) *MysqlRepo {
	return &MysqlRepo{
		db: db,
	}
}

func (r *MysqlRepo) Get(ctx context.Context, userID string) (_ *remote.Document, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.documents.mysql.get")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("user.id", userID))

	var (
		cols       columns
		lastSynced int64
	)
	err = r.db.QueryRowContext(
		ctx,
		"SELECT workout_templates, custom_exercises, exercise_favorites, last_synced FROM planner_document WHERE user_id = ?",
		userID,
	).Scan(&cols.templates, &cols.custom, &cols.favorites, &lastSynced)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	return decodeColumns(cols, lastSynced)
}

// Put stores the document unless the stored one carries a newer lastSynced.
func (r *MysqlRepo) Put(ctx context.Context, userID string, doc remote.Document) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.documents.mysql.put")
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

	err = r.put(ctx, userID, cols, lastSynced)
	var mysqlErr *mysql.MySQLError
	if errors.As(err, &mysqlErr) && mysqlErr.Number == mysqlErrDuplicateEntry {
		// a concurrent first push created the row, compare against it now
		err = r.put(ctx, userID, cols, lastSynced)
	}
	return err
}

func (r *MysqlRepo) put(ctx context.Context, userID string, cols columns, lastSynced int64) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback()
	}()

	// JSON columns reject binary parameters, hence string() below
	var storedSynced int64
	err = tx.QueryRowContext(
		ctx,
		"SELECT last_synced FROM planner_document WHERE user_id = ? FOR UPDATE",
		userID,
	).Scan(&storedSynced)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		_, err = tx.ExecContext(
			ctx,
			"INSERT INTO planner_document(user_id, workout_templates, custom_exercises, exercise_favorites, last_synced, updated_at) VALUES(?,?,?,?,?,?)",
			userID, string(cols.templates), string(cols.custom), string(cols.favorites), lastSynced, time.Now().UTC(),
		)
	case err != nil:
		return err
	case storedSynced > lastSynced:
		return ErrStalePush
	default:
		_, err = tx.ExecContext(
			ctx,
			"UPDATE planner_document SET workout_templates = ?, custom_exercises = ?, exercise_favorites = ?, last_synced = ?, updated_at = ? WHERE user_id = ?",
			string(cols.templates), string(cols.custom), string(cols.favorites), lastSynced, time.Now().UTC(), userID,
		)
	}
	if err != nil {
		return err
	}

	return tx.Commit()
}

func (r *MysqlRepo) ListPending(ctx context.Context) (_ []PendingExercise, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.documents.mysql.pending")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	rows, err := r.db.QueryContext(
		ctx,
		`SELECT user_id, custom_exercises FROM planner_document
			WHERE JSON_CONTAINS(custom_exercises, '{"pendingGlobalApproval": true}')
			ORDER BY user_id`,
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

	return pending, nil
}

// Migrate applies MysqlSchema.
func (r *MysqlRepo) Migrate(ctx context.Context) error {
	for _, stmt := range strings.Split(MysqlSchema, ";") {
		if strings.TrimSpace(stmt) == "" {
			continue
		}
		if _, err := r.db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}
