package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5"

	"youinsight-backend/internal/models"
	"youinsight-backend/internal/services"
)

type videoSearcher interface {
	SearchVideos(ctx context.Context, query string, maxResults int64) ([]models.VideoSummary, error)
}

type videoRepository interface {
	GetByExternalID(ctx context.Context, videoID string) (*models.Video, error)
}

type transcriptFetcher interface {
	ExtractVideoID(url string) string
	GetTranscript(ctx context.Context, videoURL string) (string, error)
}

type VideoHandler struct {
	search      videoSearcher
	videoRepo   videoRepository
	transcripts transcriptFetcher
}

func NewVideoHandler(search videoSearcher, videoRepo videoRepository, transcripts transcriptFetcher) *VideoHandler {
	return &VideoHandler{
		search:      search,
		videoRepo:   videoRepo,
		transcripts: transcripts,
	}
}

// Search is the REST counterpart of the search_videos websocket event.
func (h *VideoHandler) Search(w http.ResponseWriter, r *http.Request) {
	var req models.SearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid request body", r))
		return
	}

	videos, err := h.search.SearchVideos(r.Context(), req.Query, req.MaxResults)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"videos": videos})
}

// GetVideo looks up a stored video by its external platform ID.
func (h *VideoHandler) GetVideo(w http.ResponseWriter, r *http.Request) {
	videoID := chi.URLParam(r, "video_id")

	video, err := h.videoRepo.GetByExternalID(r.Context(), videoID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, errorResp("NOT_FOUND", "Video not found", r))
			return
		}
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "An unexpected error occurred", r))
		return
	}

	writeJSON(w, http.StatusOK, video)
}

// GetTranscript fetches a transcript for an arbitrary video URL without
// requiring the video to have been analyzed first.
func (h *VideoHandler) GetTranscript(w http.ResponseWriter, r *http.Request) {
	var req struct {
		VideoURL string `json:"video_url"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid request body", r))
		return
	}

	videoID := h.transcripts.ExtractVideoID(req.VideoURL)
	if videoID == "" {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid video URL", r))
		return
	}

	transcript, err := h.transcripts.GetTranscript(r.Context(), req.VideoURL)
	if err != nil {
		if errors.Is(err, services.ErrTranscriptUnavailable) {
			writeJSON(w, http.StatusNotFound, errorResp("NOT_FOUND", "Transcript not available for this video", r))
			return
		}
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"video_id":   videoID,
		"transcript": transcript,
	})
}
