package catalog

import (
	"context"
	"database/sql"
	"time"

	"github.com/fireshare/trim-agent/internal/media"
)

type Repository interface {
	UpsertVideo(ctx context.Context, v *media.Video) error
	GetVideo(ctx context.Context, id string) (*media.Video, error)
	ListVideos(ctx context.Context) ([]*media.Video, error)
	DeleteVideo(ctx context.Context, id string) error
	CountVideos(ctx context.Context) (int, error)

	UpsertTrim(ctx context.Context, t *TrimRecord) error
	GetTrim(ctx context.Context, id string) (*TrimRecord, error)
	ListTrims(ctx context.Context, limit int) ([]*TrimRecord, error)
	ListTrimsByVideo(ctx context.Context, videoID string) ([]*TrimRecord, error)

	GetConfig(ctx context.Context, key string) (string, error)
	SetConfig(ctx context.Context, key, value string) error
}

type SQLiteRepository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

const videoColumns = `video_id, extension, title, duration, width, height, has_720p, has_1080p, view_count, updated_at`

func (r *SQLiteRepository) UpsertVideo(ctx context.Context, v *media.Video) error {
	updatedAt := v.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = time.Now()
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO videos (`+videoColumns+`, fetched_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, datetime('now'))
		ON CONFLICT(video_id) DO UPDATE SET
			extension = excluded.extension,
			title = excluded.title,
			duration = excluded.duration,
			width = excluded.width,
			height = excluded.height,
			has_720p = excluded.has_720p,
			has_1080p = excluded.has_1080p,
			view_count = excluded.view_count,
			updated_at = excluded.updated_at,
			fetched_at = excluded.fetched_at
	`, v.VideoID, v.Extension, v.Info.Title, v.Info.Duration, v.Info.Width, v.Info.Height,
		boolToInt(v.Info.Has720p), boolToInt(v.Info.Has1080p), v.ViewCount,
		updatedAt.UTC().Format(time.RFC3339))
	return err
}

func (r *SQLiteRepository) GetVideo(ctx context.Context, id string) (*media.Video, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+videoColumns+` FROM videos WHERE video_id = ?`, id)
	v, err := scanVideo(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return v, err
}

func (r *SQLiteRepository) ListVideos(ctx context.Context) ([]*media.Video, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+videoColumns+` FROM videos ORDER BY updated_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var videos []*media.Video
	for rows.Next() {
		v, err := scanVideo(rows)
		if err != nil {
			return nil, err
		}
		videos = append(videos, v)
	}
	return videos, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanVideo(row scanner) (*media.Video, error) {
	var v media.Video
	var has720p, has1080p int
	var updatedAt string

	err := row.Scan(&v.VideoID, &v.Extension, &v.Info.Title, &v.Info.Duration, &v.Info.Width, &v.Info.Height,
		&has720p, &has1080p, &v.ViewCount, &updatedAt)
	if err != nil {
		return nil, err
	}
	v.Info.Has720p = has720p == 1
	v.Info.Has1080p = has1080p == 1
	v.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
	return &v, nil
}

func (r *SQLiteRepository) DeleteVideo(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, "DELETE FROM videos WHERE video_id = ?", id)
	return err
}

func (r *SQLiteRepository) CountVideos(ctx context.Context) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM videos").Scan(&count)
	return count, err
}

const trimColumns = `id, video_id, start_time, end_time, save_as_new, status, result_video_id, error, duration_ms, created_at, updated_at`

func (r *SQLiteRepository) UpsertTrim(ctx context.Context, t *TrimRecord) error {
	now := time.Now().UTC()
	createdAt := t.CreatedAt
	if createdAt.IsZero() {
		createdAt = now
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO trims (`+trimColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			status = excluded.status,
			result_video_id = excluded.result_video_id,
			error = excluded.error,
			duration_ms = excluded.duration_ms,
			updated_at = excluded.updated_at
	`, t.ID, t.VideoID, t.StartTime, t.EndTime, boolToInt(t.SaveAsNew), t.Status,
		nullString(t.ResultVideoID), nullString(t.Error), t.DurationMs,
		createdAt.UTC().Format(time.RFC3339), now.Format(time.RFC3339))
	return err
}

func (r *SQLiteRepository) GetTrim(ctx context.Context, id string) (*TrimRecord, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+trimColumns+` FROM trims WHERE id = ?`, id)
	t, err := scanTrim(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return t, err
}

func (r *SQLiteRepository) ListTrims(ctx context.Context, limit int) ([]*TrimRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+trimColumns+` FROM trims ORDER BY created_at DESC, rowid DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTrims(rows)
}

func (r *SQLiteRepository) ListTrimsByVideo(ctx context.Context, videoID string) ([]*TrimRecord, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+trimColumns+` FROM trims WHERE video_id = ? ORDER BY created_at ASC, rowid ASC
	`, videoID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTrims(rows)
}

func scanTrims(rows *sql.Rows) ([]*TrimRecord, error) {
	var trims []*TrimRecord
	for rows.Next() {
		t, err := scanTrim(rows)
		if err != nil {
			return nil, err
		}
		trims = append(trims, t)
	}
	return trims, rows.Err()
}

func scanTrim(row scanner) (*TrimRecord, error) {
	var t TrimRecord
	var saveAsNew int
	var resultID, errMsg sql.NullString
	var createdAt, updatedAt string

	err := row.Scan(&t.ID, &t.VideoID, &t.StartTime, &t.EndTime, &saveAsNew, &t.Status,
		&resultID, &errMsg, &t.DurationMs, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}
	t.SaveAsNew = saveAsNew == 1
	t.ResultVideoID = resultID.String
	t.Error = errMsg.String
	t.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	t.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
	return &t, nil
}

func (r *SQLiteRepository) GetConfig(ctx context.Context, key string) (string, error) {
	var value string
	err := r.db.QueryRowContext(ctx, "SELECT value FROM config WHERE key = ?", key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	return value, err
}

func (r *SQLiteRepository) SetConfig(ctx context.Context, key, value string) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO config (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, key, value)
	return err
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
