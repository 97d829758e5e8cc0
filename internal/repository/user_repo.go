package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"youinsight-backend/internal/models"
)

type UserRepo struct {
	pool *pgxpool.Pool
}

func NewUserRepo(pool *pgxpool.Pool) *UserRepo {
	return &UserRepo{pool: pool}
}

func (r *UserRepo) Create(ctx context.Context, user *models.User) error {
	query := `
		INSERT INTO users (id, email, username, password_hash, gemini_api_key)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at`

	user.ID = uuid.New()

	return r.pool.QueryRow(ctx, query,
		user.ID, user.Email, user.Username, user.PasswordHash, user.GeminiAPIKey,
	).Scan(&user.CreatedAt)
}

func (r *UserRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	user := &models.User{}
	query := `SELECT id, email, username, password_hash, gemini_api_key, created_at, reset_token, reset_token_expiry
		FROM users WHERE id = $1`

	err := r.pool.QueryRow(ctx, query, id).Scan(
		&user.ID, &user.Email, &user.Username, &user.PasswordHash, &user.GeminiAPIKey,
		&user.CreatedAt, &user.ResetToken, &user.ResetTokenExpiry,
	)
	if err != nil {
		return nil, err
	}
	return user, nil
}

func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	user := &models.User{}
	query := `SELECT id, email, username, password_hash, gemini_api_key, created_at, reset_token, reset_token_expiry
		FROM users WHERE email = $1`

	err := r.pool.QueryRow(ctx, query, email).Scan(
		&user.ID, &user.Email, &user.Username, &user.PasswordHash, &user.GeminiAPIKey,
		&user.CreatedAt, &user.ResetToken, &user.ResetTokenExpiry,
	)
	if err != nil {
		return nil, err
	}
	return user, nil
}

func (r *UserRepo) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	user := &models.User{}
	query := `SELECT id, email, username, password_hash, gemini_api_key, created_at, reset_token, reset_token_expiry
		FROM users WHERE username = $1`

	err := r.pool.QueryRow(ctx, query, username).Scan(
		&user.ID, &user.Email, &user.Username, &user.PasswordHash, &user.GeminiAPIKey,
		&user.CreatedAt, &user.ResetToken, &user.ResetTokenExpiry,
	)
	if err != nil {
		return nil, err
	}
	return user, nil
}

// GetByResetToken looks a user up by an unexpired password-reset token.
// The database row is the single source of truth for reset tokens.
func (r *UserRepo) GetByResetToken(ctx context.Context, token string) (*models.User, error) {
	user := &models.User{}
	query := `SELECT id, email, username, password_hash, gemini_api_key, created_at, reset_token, reset_token_expiry
		FROM users WHERE reset_token = $1 AND reset_token_expiry > NOW()`

	err := r.pool.QueryRow(ctx, query, token).Scan(
		&user.ID, &user.Email, &user.Username, &user.PasswordHash, &user.GeminiAPIKey,
		&user.CreatedAt, &user.ResetToken, &user.ResetTokenExpiry,
	)
	if err != nil {
		return nil, err
	}
	return user, nil
}

func (r *UserRepo) SetResetToken(ctx context.Context, userID uuid.UUID, token string, expiry time.Time) error {
	_, err := r.pool.Exec(ctx,
		"UPDATE users SET reset_token = $1, reset_token_expiry = $2 WHERE id = $3",
		token, expiry, userID,
	)
	return err
}

func (r *UserRepo) ClearResetToken(ctx context.Context, userID uuid.UUID) error {
	_, err := r.pool.Exec(ctx,
		"UPDATE users SET reset_token = NULL, reset_token_expiry = NULL WHERE id = $1",
		userID,
	)
	return err
}

func (r *UserRepo) UpdatePassword(ctx context.Context, userID uuid.UUID, passwordHash string) error {
	_, err := r.pool.Exec(ctx, "UPDATE users SET password_hash = $1 WHERE id = $2", passwordHash, userID)
	return err
}

func (r *UserRepo) UpdateGeminiAPIKey(ctx context.Context, userID uuid.UUID, apiKey string) error {
	_, err := r.pool.Exec(ctx, "UPDATE users SET gemini_api_key = $1 WHERE id = $2", apiKey, userID)
	return err
}
