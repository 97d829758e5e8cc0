package repository

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"youinsight-backend/internal/models"
)

type VideoRepo struct {
	pool *pgxpool.Pool
}

func NewVideoRepo(pool *pgxpool.Pool) *VideoRepo {
	return &VideoRepo{pool: pool}
}

func (r *VideoRepo) Create(ctx context.Context, v *models.Video) error {
	v.ID = uuid.New()
	if v.MetadataJSON == nil {
		v.MetadataJSON = json.RawMessage("{}")
	}

	query := `INSERT INTO videos (id, video_id, title, url, view_count, transcript, metadata_json)
		VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING created_at`

	return r.pool.QueryRow(ctx, query,
		v.ID, v.VideoID, v.Title, v.URL, v.ViewCount, v.Transcript, v.MetadataJSON,
	).Scan(&v.CreatedAt)
}

// GetByExternalID resolves a video by the platform's video identifier.
// video_id carries a unique constraint, so the same external video always
// maps to the same row.
func (r *VideoRepo) GetByExternalID(ctx context.Context, videoID string) (*models.Video, error) {
	v := &models.Video{}
	query := `SELECT id, video_id, title, url, view_count, transcript, metadata_json, created_at
		FROM videos WHERE video_id = $1`

	err := r.pool.QueryRow(ctx, query, videoID).Scan(
		&v.ID, &v.VideoID, &v.Title, &v.URL, &v.ViewCount, &v.Transcript, &v.MetadataJSON, &v.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return v, nil
}

func (r *VideoRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Video, error) {
	v := &models.Video{}
	query := `SELECT id, video_id, title, url, view_count, transcript, metadata_json, created_at
		FROM videos WHERE id = $1`

	err := r.pool.QueryRow(ctx, query, id).Scan(
		&v.ID, &v.VideoID, &v.Title, &v.URL, &v.ViewCount, &v.Transcript, &v.MetadataJSON, &v.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return v, nil
}

// UpdateTranscript persists a fetched transcript. Transcripts are treated
// as immutable once retrieved, so this only fills an empty column.
func (r *VideoRepo) UpdateTranscript(ctx context.Context, id uuid.UUID, transcript string) error {
	_, err := r.pool.Exec(ctx,
		"UPDATE videos SET transcript = $1 WHERE id = $2 AND transcript IS NULL",
		transcript, id,
	)
	return err
}

// ListByAnalysis returns the videos linked to an analysis, oldest link first.
func (r *VideoRepo) ListByAnalysis(ctx context.Context, analysisID uuid.UUID) ([]*models.Video, error) {
	query := `SELECT v.id, v.video_id, v.title, v.url, v.view_count, v.transcript, v.metadata_json, v.created_at
		FROM videos v
		JOIN analysis_videos av ON av.video_id = v.id
		WHERE av.analysis_id = $1
		ORDER BY av.created_at ASC`

	rows, err := r.pool.Query(ctx, query, analysisID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var videos []*models.Video
	for rows.Next() {
		v := &models.Video{}
		err := rows.Scan(&v.ID, &v.VideoID, &v.Title, &v.URL, &v.ViewCount, &v.Transcript, &v.MetadataJSON, &v.CreatedAt)
		if err != nil {
			return nil, err
		}
		videos = append(videos, v)
	}

	return videos, rows.Err()
}
