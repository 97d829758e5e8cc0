package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"youinsight-backend/internal/models"
)

type AnalysisRepo struct {
	pool *pgxpool.Pool
}

func NewAnalysisRepo(pool *pgxpool.Pool) *AnalysisRepo {
	return &AnalysisRepo{pool: pool}
}

// Create inserts the analysis row and its video links in one transaction.
// The caller assigns a.ID; the result column stays NULL until streaming
// completes.
func (r *AnalysisRepo) Create(ctx context.Context, a *models.Analysis, videoIDs []uuid.UUID) error {
	messagesJSON, err := json.Marshal(a.Messages)
	if err != nil {
		return fmt.Errorf("failed to marshal messages: %w", err)
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `INSERT INTO analyses (id, user_id, search_term, prompt, conversation_id, is_conversation, messages)
		VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING created_at`

	err = tx.QueryRow(ctx, query,
		a.ID, a.UserID, a.SearchTerm, a.Prompt, a.ConversationID, a.IsConversation, messagesJSON,
	).Scan(&a.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert analysis: %w", err)
	}

	for _, videoID := range videoIDs {
		_, err := tx.Exec(ctx,
			"INSERT INTO analysis_videos (id, analysis_id, video_id) VALUES ($1, $2, $3)",
			uuid.New(), a.ID, videoID,
		)
		if err != nil {
			return fmt.Errorf("failed to link video %s: %w", videoID, err)
		}
	}

	return tx.Commit(ctx)
}

// SetResult writes the final result text and the updated message list back
// to the analysis row after streaming finishes.
func (r *AnalysisRepo) SetResult(ctx context.Context, id uuid.UUID, result string, messages []models.Message) error {
	messagesJSON, err := json.Marshal(messages)
	if err != nil {
		return fmt.Errorf("failed to marshal messages: %w", err)
	}

	_, err = r.pool.Exec(ctx,
		"UPDATE analyses SET result = $1, messages = $2 WHERE id = $3",
		result, messagesJSON, id,
	)
	return err
}

func (r *AnalysisRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Analysis, error) {
	a := &models.Analysis{}
	var messagesJSON []byte

	query := `SELECT id, user_id, search_term, prompt, result, created_at, conversation_id, is_conversation, messages
		FROM analyses WHERE id = $1`

	err := r.pool.QueryRow(ctx, query, id).Scan(
		&a.ID, &a.UserID, &a.SearchTerm, &a.Prompt, &a.Result, &a.CreatedAt,
		&a.ConversationID, &a.IsConversation, &messagesJSON,
	)
	if err != nil {
		return nil, err
	}

	if len(messagesJSON) > 0 {
		json.Unmarshal(messagesJSON, &a.Messages)
	}
	return a, nil
}

// LatestByConversation returns the most recent turn in a conversation, or
// pgx.ErrNoRows when the conversation has no turns for this user.
func (r *AnalysisRepo) LatestByConversation(ctx context.Context, userID, conversationID uuid.UUID) (*models.Analysis, error) {
	a := &models.Analysis{}
	var messagesJSON []byte

	query := `SELECT id, user_id, search_term, prompt, result, created_at, conversation_id, is_conversation, messages
		FROM analyses
		WHERE user_id = $1 AND conversation_id = $2
		ORDER BY created_at DESC
		LIMIT 1`

	err := r.pool.QueryRow(ctx, query, userID, conversationID).Scan(
		&a.ID, &a.UserID, &a.SearchTerm, &a.Prompt, &a.Result, &a.CreatedAt,
		&a.ConversationID, &a.IsConversation, &messagesJSON,
	)
	if err != nil {
		return nil, err
	}

	if len(messagesJSON) > 0 {
		json.Unmarshal(messagesJSON, &a.Messages)
	}
	return a, nil
}

// ListByConversation returns every turn of a conversation, oldest first.
func (r *AnalysisRepo) ListByConversation(ctx context.Context, userID, conversationID uuid.UUID) ([]*models.Analysis, error) {
	query := `SELECT id, user_id, search_term, prompt, result, created_at, conversation_id, is_conversation, messages
		FROM analyses
		WHERE user_id = $1 AND conversation_id = $2
		ORDER BY created_at ASC`

	return r.queryAnalyses(ctx, query, userID, conversationID)
}

// ListByUser returns the user's history newest first: one entry per
// conversation (its latest turn) plus every standalone analysis.
func (r *AnalysisRepo) ListByUser(ctx context.Context, userID uuid.UUID) ([]*models.Analysis, error) {
	query := `SELECT DISTINCT ON (COALESCE(conversation_id, id))
			id, user_id, search_term, prompt, result, created_at, conversation_id, is_conversation, messages
		FROM analyses
		WHERE user_id = $1
		ORDER BY COALESCE(conversation_id, id), created_at DESC`

	analyses, err := r.queryAnalyses(ctx, query, userID)
	if err != nil {
		return nil, err
	}

	// DISTINCT ON imposes its own ordering; re-sort newest first.
	sortNewestFirst(analyses)
	return analyses, nil
}

func sortNewestFirst(analyses []*models.Analysis) {
	sort.Slice(analyses, func(i, j int) bool {
		return analyses[i].CreatedAt.After(analyses[j].CreatedAt)
	})
}

func (r *AnalysisRepo) queryAnalyses(ctx context.Context, query string, args ...interface{}) ([]*models.Analysis, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var analyses []*models.Analysis
	for rows.Next() {
		a := &models.Analysis{}
		var messagesJSON []byte
		err := rows.Scan(
			&a.ID, &a.UserID, &a.SearchTerm, &a.Prompt, &a.Result, &a.CreatedAt,
			&a.ConversationID, &a.IsConversation, &messagesJSON,
		)
		if err != nil {
			return nil, err
		}
		if len(messagesJSON) > 0 {
			json.Unmarshal(messagesJSON, &a.Messages)
		}
		analyses = append(analyses, a)
	}

	return analyses, rows.Err()
}
