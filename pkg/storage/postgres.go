package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

//Recorder is the secondary structured store for finished analyses
type Recorder interface {
	Record(ctx context.Context, a Analysis) error
	Latest(ctx context.Context, videoID string) (*Analysis, error)
}

//Analysis is one row of the analyses table
type Analysis struct {
	ID              int64     `db:"id"`
	VideoID         string    `db:"video_id"`
	AnalysisData    string    `db:"analysis_data"`
	Status          string    `db:"status"`
	ConfidenceScore float64   `db:"confidence_score"`
	CreatedAt       time.Time `db:"created_at"`
}

const analysesSchema = `
	CREATE TABLE IF NOT EXISTS analyses (
		id               BIGSERIAL PRIMARY KEY,
		video_id         TEXT NOT NULL,
		analysis_data    JSONB NOT NULL,
		status           TEXT NOT NULL,
		confidence_score DOUBLE PRECISION NOT NULL DEFAULT 0,
		created_at       TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);
	CREATE INDEX IF NOT EXISTS analyses_video_id_idx ON analyses (video_id)`

//PostgresRecorder writes analyses rows through sqlx
type PostgresRecorder struct {
	db *sqlx.DB
}

//NewPostgresRecorder wraps an open connection
func NewPostgresRecorder(db *sqlx.DB) *PostgresRecorder {
	return &PostgresRecorder{db: db}
}

//OpenPostgres connects and ensures the analyses table exists
func OpenPostgres(ctx context.Context, url string) (*PostgresRecorder, error) {
	db, err := sqlx.ConnectContext(ctx, "postgres", url)
	if err != nil {
		return nil, fmt.Errorf("OpenPostgres: Error, got '%v'", err)
	}
	db.SetMaxOpenConns(5)
	db.SetConnMaxIdleTime(5 * time.Minute)

	if _, err := db.ExecContext(ctx, analysesSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("OpenPostgres: schema, got '%v'", err)
	}

	return NewPostgresRecorder(db), nil
}

func (r *PostgresRecorder) Record(ctx context.Context, a Analysis) error {
	const query = `
		INSERT INTO analyses (
			video_id, analysis_data, status, confidence_score, created_at
		) VALUES (
			:video_id, :analysis_data, :status, :confidence_score, NOW()
		)`

	if _, err := r.db.NamedExecContext(ctx, query, a); err != nil {
		return fmt.Errorf("PostgresRecorder.Record: Error, got '%v'", err)
	}
	return nil
}

func (r *PostgresRecorder) Latest(ctx context.Context, videoID string) (*Analysis, error) {
	const query = `
		SELECT id, video_id, analysis_data, status, confidence_score, created_at
		FROM analyses
		WHERE video_id = $1
		ORDER BY created_at DESC
		LIMIT 1`

	var a Analysis
	if err := r.db.GetContext(ctx, &a, query, videoID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("PostgresRecorder.Latest: Error, got '%v'", err)
	}
	return &a, nil
}

func (r *PostgresRecorder) Close() error {
	return r.db.Close()
}
