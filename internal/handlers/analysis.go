package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"youinsight-backend/internal/middleware"
	"youinsight-backend/internal/models"
)

type analysisRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Analysis, error)
	ListByConversation(ctx context.Context, userID, conversationID uuid.UUID) ([]*models.Analysis, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]*models.Analysis, error)
}

type analysisVideoLister interface {
	ListByAnalysis(ctx context.Context, analysisID uuid.UUID) ([]*models.Video, error)
}

type AnalysisHandler struct {
	analysisRepo analysisRepository
	videoRepo    analysisVideoLister
}

func NewAnalysisHandler(analysisRepo analysisRepository, videoRepo analysisVideoLister) *AnalysisHandler {
	return &AnalysisHandler{analysisRepo: analysisRepo, videoRepo: videoRepo}
}

func (h *AnalysisHandler) GetAnalysis(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	analysisID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid analysis ID", r))
		return
	}

	analysis, err := h.analysisRepo.GetByID(r.Context(), analysisID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, errorResp("NOT_FOUND", "Analysis not found", r))
			return
		}
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "An unexpected error occurred", r))
		return
	}

	// Other users' analyses are indistinguishable from missing ones
	if analysis.UserID != userID {
		writeJSON(w, http.StatusNotFound, errorResp("NOT_FOUND", "Analysis not found", r))
		return
	}

	videos, err := h.videoRepo.ListByAnalysis(r.Context(), analysis.ID)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "An unexpected error occurred", r))
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"analysis": analysis,
		"videos":   videos,
	})
}

// GetConversation returns every turn of a conversation in chronological
// order plus the running message list from the latest turn.
func (h *AnalysisHandler) GetConversation(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	conversationID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid conversation ID", r))
		return
	}

	analyses, err := h.analysisRepo.ListByConversation(r.Context(), userID, conversationID)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "An unexpected error occurred", r))
		return
	}
	if len(analyses) == 0 {
		writeJSON(w, http.StatusNotFound, errorResp("NOT_FOUND", "Conversation not found", r))
		return
	}

	latest := analyses[len(analyses)-1]
	videos, err := h.videoRepo.ListByAnalysis(r.Context(), latest.ID)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "An unexpected error occurred", r))
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"conversation_id": conversationID,
		"analyses":        analyses,
		"messages":        latest.Messages,
		"videos":          videos,
	})
}

// History returns the newest turn of each of the user's conversations.
func (h *AnalysisHandler) History(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	analyses, err := h.analysisRepo.ListByUser(r.Context(), userID)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "An unexpected error occurred", r))
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"analyses": analyses})
}
