package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"youinsight-backend/internal/models"
)

const maxSearchResults = 20

type videoResolver interface {
	Search(ctx context.Context, term string, maxResults int64) ([]models.VideoSummary, error)
	GetByID(ctx context.Context, videoID string) (*models.VideoSummary, json.RawMessage, error)
	ExtractVideoID(url string) string
	GetTranscript(ctx context.Context, videoURL string) (string, error)
}

type analyzer interface {
	AnalyzeStream(ctx context.Context, apiKey, prompt string, videos []VideoInput) <-chan StreamChunk
}

type videoStore interface {
	Create(ctx context.Context, v *models.Video) error
	GetByExternalID(ctx context.Context, videoID string) (*models.Video, error)
	UpdateTranscript(ctx context.Context, id uuid.UUID, transcript string) error
}

type analysisStore interface {
	Create(ctx context.Context, a *models.Analysis, videoIDs []uuid.UUID) error
	SetResult(ctx context.Context, id uuid.UUID, result string, messages []models.Message) error
	LatestByConversation(ctx context.Context, userID, conversationID uuid.UUID) (*models.Analysis, error)
}

// AnalysisEmitter receives progress events during an analysis run. The
// websocket layer implements it over the caller's connection.
type AnalysisEmitter interface {
	Status(message string)
	SearchResults(videos []models.VideoSummary)
	Started(message string)
	Chunk(chunk string)
	Completed(analysisID, conversationID uuid.UUID)
}

// AnalysisService drives the full search/transcript/generate pipeline for
// one user request.
type AnalysisService struct {
	youtube      videoResolver
	gemini       analyzer
	videoRepo    videoStore
	analysisRepo analysisStore
}

func NewAnalysisService(youtube videoResolver, gemini analyzer, videoRepo videoStore, analysisRepo analysisStore) *AnalysisService {
	return &AnalysisService{
		youtube:      youtube,
		gemini:       gemini,
		videoRepo:    videoRepo,
		analysisRepo: analysisRepo,
	}
}

// SearchVideos runs a capped platform search for the search_videos event.
func (s *AnalysisService) SearchVideos(ctx context.Context, query string, maxResults int64) ([]models.VideoSummary, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, &ValidationError{Fields: map[string]string{"query": "Search query is required"}}
	}
	if maxResults <= 0 || maxResults > maxSearchResults {
		maxResults = maxSearchResults
	}
	return s.youtube.Search(ctx, query, maxResults)
}

// Run executes one analysis turn end to end, emitting progress through emit.
// A returned error means no analysis row was persisted for this turn.
func (s *AnalysisService) Run(ctx context.Context, user *models.User, req models.AnalyzeRequest, emit AnalysisEmitter) error {
	if strings.TrimSpace(req.Prompt) == "" {
		return &ValidationError{Fields: map[string]string{"prompt": "Prompt is required"}}
	}
	if req.VideoURL == "" && req.SearchTerm == "" {
		return &ValidationError{Fields: map[string]string{"video_url": "Either search_term or video_url is required"}}
	}

	singleURL := req.VideoURL != ""

	videos, err := s.resolveVideos(ctx, req, emit)
	if err != nil {
		return err
	}

	emit.Status("Fetching transcripts...")
	withTranscripts := s.collectTranscripts(ctx, videos)
	if len(withTranscripts) == 0 {
		if singleURL {
			return &NotFoundError{Message: "Transcript not available for this video"}
		}
		return &NotFoundError{Message: "No videos with transcripts found"}
	}

	conversationID, messages, err := s.conversationHistory(ctx, user.ID, req)
	if err != nil {
		return err
	}
	messages = append(messages, models.Message{
		Role:      "user",
		Content:   req.Prompt,
		Timestamp: time.Now().UTC(),
	})

	analysis := &models.Analysis{
		ID:             uuid.New(),
		UserID:         user.ID,
		Prompt:         req.Prompt,
		ConversationID: &conversationID,
		IsConversation: true,
		Messages:       messages,
	}
	if req.SearchTerm != "" {
		analysis.SearchTerm = &req.SearchTerm
	}

	videoIDs := make([]uuid.UUID, 0, len(withTranscripts))
	inputs := make([]VideoInput, 0, len(withTranscripts))
	for _, v := range withTranscripts {
		videoIDs = append(videoIDs, v.ID)
		inputs = append(inputs, VideoInput{
			Title:      v.Title,
			URL:        v.URL,
			Transcript: *v.Transcript,
		})
	}

	if err := s.analysisRepo.Create(ctx, analysis, videoIDs); err != nil {
		return fmt.Errorf("failed to create analysis: %w", err)
	}

	emit.Started("Analysis started")

	var result strings.Builder
	for chunk := range s.gemini.AnalyzeStream(ctx, user.GeminiAPIKey, req.Prompt, inputs) {
		if chunk.Err != nil {
			log.Printf("Analysis %s stream error: %v", analysis.ID, chunk.Err)
		}
		result.WriteString(chunk.Text)
		emit.Chunk(chunk.Text)
	}

	if err := ctx.Err(); err != nil {
		return err
	}

	messages = append(messages, models.Message{
		Role:      "assistant",
		Content:   result.String(),
		Timestamp: time.Now().UTC(),
	})

	if err := s.analysisRepo.SetResult(ctx, analysis.ID, result.String(), messages); err != nil {
		return fmt.Errorf("failed to store analysis result: %w", err)
	}

	emit.Completed(analysis.ID, conversationID)

	return nil
}

// resolveVideos turns the request into persisted video rows: a direct URL,
// or the search branch, where explicit video IDs narrow the search term's
// results to the client's selection.
func (s *AnalysisService) resolveVideos(ctx context.Context, req models.AnalyzeRequest, emit AnalysisEmitter) ([]*models.Video, error) {
	switch {
	case req.VideoURL != "":
		externalID := s.youtube.ExtractVideoID(req.VideoURL)
		if externalID == "" {
			return nil, &ValidationError{Fields: map[string]string{"video_url": "Invalid video URL"}}
		}
		video, err := s.getOrCreateVideo(ctx, externalID)
		if err != nil {
			return nil, err
		}
		return []*models.Video{video}, nil

	case len(req.VideoIDs) > 0:
		var videos []*models.Video
		for _, externalID := range req.VideoIDs {
			video, err := s.getOrCreateVideo(ctx, externalID)
			if err != nil {
				log.Printf("Skipping video %s: %v", externalID, err)
				continue
			}
			videos = append(videos, video)
		}
		if len(videos) == 0 {
			return nil, &NotFoundError{Message: "No videos found"}
		}
		return videos, nil

	default:
		emit.Status("Searching for videos...")
		results, err := s.youtube.Search(ctx, req.SearchTerm, maxSearchResults)
		if err != nil {
			return nil, err
		}
		if len(results) == 0 {
			return nil, &NotFoundError{Message: "No videos found"}
		}
		emit.SearchResults(results)

		var videos []*models.Video
		for _, summary := range results {
			video, err := s.persistSummary(ctx, summary)
			if err != nil {
				log.Printf("Skipping video %s: %v", summary.VideoID, err)
				continue
			}
			videos = append(videos, video)
		}
		if len(videos) == 0 {
			return nil, &NotFoundError{Message: "No videos found"}
		}
		return videos, nil
	}
}

// getOrCreateVideo returns the stored row for a platform video, fetching
// metadata from the provider only on first sight.
func (s *AnalysisService) getOrCreateVideo(ctx context.Context, externalID string) (*models.Video, error) {
	video, err := s.videoRepo.GetByExternalID(ctx, externalID)
	if err == nil {
		return video, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}

	summary, raw, err := s.youtube.GetByID(ctx, externalID)
	if err != nil {
		return nil, err
	}

	video = &models.Video{
		ID:           uuid.New(),
		VideoID:      summary.VideoID,
		Title:        summary.Title,
		URL:          summary.URL,
		ViewCount:    summary.ViewCount,
		MetadataJSON: raw,
	}
	if err := s.videoRepo.Create(ctx, video); err != nil {
		return nil, err
	}
	return video, nil
}

func (s *AnalysisService) persistSummary(ctx context.Context, summary models.VideoSummary) (*models.Video, error) {
	video, err := s.videoRepo.GetByExternalID(ctx, summary.VideoID)
	if err == nil {
		return video, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}

	raw, err := json.Marshal(summary)
	if err != nil {
		raw = json.RawMessage("{}")
	}

	video = &models.Video{
		ID:           uuid.New(),
		VideoID:      summary.VideoID,
		Title:        summary.Title,
		URL:          summary.URL,
		ViewCount:    summary.ViewCount,
		MetadataJSON: raw,
	}
	if err := s.videoRepo.Create(ctx, video); err != nil {
		return nil, err
	}
	return video, nil
}

// collectTranscripts fills in transcripts for the given videos, fetching
// and persisting any that are missing. Videos without a usable transcript
// are dropped rather than failing the whole request.
func (s *AnalysisService) collectTranscripts(ctx context.Context, videos []*models.Video) []*models.Video {
	var out []*models.Video
	for _, v := range videos {
		if v.Transcript != nil && *v.Transcript != "" {
			out = append(out, v)
			continue
		}

		text, err := s.youtube.GetTranscript(ctx, v.URL)
		if err != nil {
			log.Printf("No transcript for video %s: %v", v.VideoID, err)
			continue
		}

		if err := s.videoRepo.UpdateTranscript(ctx, v.ID, text); err != nil {
			log.Printf("Failed to store transcript for video %s: %v", v.VideoID, err)
		}
		v.Transcript = &text
		out = append(out, v)
	}
	return out
}

// conversationHistory returns the conversation ID for this turn and the
// prior messages to carry forward. A new or unknown conversation starts
// from an empty list.
func (s *AnalysisService) conversationHistory(ctx context.Context, userID uuid.UUID, req models.AnalyzeRequest) (uuid.UUID, []models.Message, error) {
	if req.IsNewConversation || req.ConversationID == "" {
		return uuid.New(), nil, nil
	}

	conversationID, err := uuid.Parse(req.ConversationID)
	if err != nil {
		return uuid.New(), nil, nil
	}

	prev, err := s.analysisRepo.LatestByConversation(ctx, userID, conversationID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return conversationID, nil, nil
		}
		return uuid.UUID{}, nil, err
	}

	// Reseed from the prompt/result pair if an older row predates the
	// running message list.
	messages := prev.Messages
	if len(messages) == 0 && prev.Result != nil {
		messages = []models.Message{
			{Role: "user", Content: prev.Prompt, Timestamp: prev.CreatedAt},
			{Role: "assistant", Content: *prev.Result, Timestamp: prev.CreatedAt},
		}
	}

	return conversationID, messages, nil
}
