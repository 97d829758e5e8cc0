package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"regexp"
	"strings"
	"time"

	ytapi "github.com/hightemp/youtube-transcript-api-go/api"
	kkdai "github.com/kkdai/youtube/v2"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	"google.golang.org/api/youtube/v3"

	"youinsight-backend/internal/cache"
	"youinsight-backend/internal/models"
)

// ErrTranscriptUnavailable is returned when a video has no usable captions.
var ErrTranscriptUnavailable = errors.New("transcript unavailable")

// ProviderError is an upstream video-platform failure carrying the API's
// reason code (e.g. "quotaExceeded", "keyInvalid") for user-facing messages.
type ProviderError struct {
	Reason  string
	Message string
}

func (e *ProviderError) Error() string { return e.Message }

type YouTubeService struct {
	yt            *youtube.Service
	transcriptAPI *ytapi.YouTubeTranscriptApi
	store         cache.Store
	searchTTL     time.Duration
	transcriptTTL time.Duration
}

func NewYouTubeService(apiKey string, store cache.Store, searchTTL, transcriptTTL time.Duration) (*YouTubeService, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("YouTube API key is required")
	}

	svc, err := youtube.NewService(context.Background(), option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create YouTube service: %w", err)
	}

	return &YouTubeService{
		yt:            svc,
		transcriptAPI: ytapi.NewYouTubeTranscriptApi(),
		store:         store,
		searchTTL:     searchTTL,
		transcriptTTL: transcriptTTL,
	}, nil
}

// Search returns normalized summaries for up to maxResults videos matching
// the term, in the order the platform returned them. No matches is an empty
// slice, never an error. Results are cached.
func (s *YouTubeService) Search(ctx context.Context, term string, maxResults int64) ([]models.VideoSummary, error) {
	cacheKey := fmt.Sprintf("yt_search:%s:%d", strings.ToLower(strings.ReplaceAll(term, " ", "_")), maxResults)

	if cached, err := s.store.Get(ctx, cacheKey); err == nil {
		var videos []models.VideoSummary
		if json.Unmarshal([]byte(cached), &videos) == nil {
			return videos, nil
		}
	}

	searchResp, err := s.yt.Search.List([]string{"id", "snippet"}).
		Q(term).
		MaxResults(maxResults).
		Type("video").
		Context(ctx).
		Do()
	if err != nil {
		return nil, wrapProviderError(err)
	}

	var ids []string
	for _, item := range searchResp.Items {
		if item.Id != nil && item.Id.VideoId != "" {
			ids = append(ids, item.Id.VideoId)
		}
	}
	if len(ids) == 0 {
		return []models.VideoSummary{}, nil
	}

	videosResp, err := s.yt.Videos.List([]string{"snippet", "statistics"}).
		Id(ids...).
		Context(ctx).
		Do()
	if err != nil {
		return nil, wrapProviderError(err)
	}

	videos := make([]models.VideoSummary, 0, len(videosResp.Items))
	for _, item := range videosResp.Items {
		videos = append(videos, normalizeVideo(item))
	}

	if data, err := json.Marshal(videos); err == nil {
		s.store.Set(ctx, cacheKey, string(data), s.searchTTL)
	}

	return videos, nil
}

// GetByID returns the normalized summary and the raw provider payload for a
// single video, or a NotFoundError when the platform has no such video.
func (s *YouTubeService) GetByID(ctx context.Context, videoID string) (*models.VideoSummary, json.RawMessage, error) {
	resp, err := s.yt.Videos.List([]string{"snippet", "statistics"}).
		Id(videoID).
		Context(ctx).
		Do()
	if err != nil {
		return nil, nil, wrapProviderError(err)
	}

	if len(resp.Items) == 0 {
		return nil, nil, &NotFoundError{Message: "Video not found"}
	}

	item := resp.Items[0]
	summary := normalizeVideo(item)

	raw, err := json.Marshal(item)
	if err != nil {
		raw = json.RawMessage("{}")
	}

	return &summary, raw, nil
}

var videoIDPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?:v=|/)([0-9A-Za-z_-]{11})`),
	regexp.MustCompile(`youtu\.be/([0-9A-Za-z_-]{11})`),
}

// Anchored shape check for anything the upstream parser hands back.
var validVideoID = regexp.MustCompile(`^[0-9A-Za-z_-]{11}$`)

// ExtractVideoID parses a platform video identifier out of a typical URL.
// Best-effort advisory parsing: returns "" when no pattern matches.
func (s *YouTubeService) ExtractVideoID(url string) string {
	if id, err := kkdai.ExtractVideoID(url); err == nil && validVideoID.MatchString(id) {
		return id
	}
	for _, re := range videoIDPatterns {
		if m := re.FindStringSubmatch(url); len(m) > 1 {
			return m[1]
		}
	}
	return ""
}

// GetTranscript fetches the full transcript text for a video URL. The
// identifier is resolved first; if that fails the provider is never
// contacted. Fetched transcripts are cached for transcriptTTL.
func (s *YouTubeService) GetTranscript(ctx context.Context, videoURL string) (string, error) {
	videoID := s.ExtractVideoID(videoURL)
	if videoID == "" {
		return "", ErrTranscriptUnavailable
	}

	cacheKey := "transcript:" + videoID
	if cached, err := s.store.Get(ctx, cacheKey); err == nil {
		return cached, nil
	}

	transcript, err := s.transcriptAPI.GetTranscript(videoID, []string{"en", "en-US", "en-GB"})
	if err != nil {
		// Fallback: request any available language
		transcript, err = s.transcriptAPI.GetTranscript(videoID, nil)
		if err != nil {
			log.Printf("Transcript fetch failed for %s: %v", videoID, err)
			return "", ErrTranscriptUnavailable
		}
	}

	var fullText strings.Builder
	for _, entry := range transcript.Entries {
		text := strings.TrimSpace(entry.Text)
		if text == "" {
			continue
		}
		fullText.WriteString(text)
		fullText.WriteString(" ")
	}

	cleaned := strings.TrimSpace(fullText.String())
	if cleaned == "" {
		return "", ErrTranscriptUnavailable
	}

	s.store.Set(ctx, cacheKey, cleaned, s.transcriptTTL)

	return cleaned, nil
}

func normalizeVideo(item *youtube.Video) models.VideoSummary {
	summary := models.VideoSummary{
		VideoID: item.Id,
		Title:   "Untitled Video",
		URL:     fmt.Sprintf("https://www.youtube.com/watch?v=%s", item.Id),
	}

	if item.Snippet != nil {
		if item.Snippet.Title != "" {
			summary.Title = item.Snippet.Title
		}
		summary.ChannelTitle = item.Snippet.ChannelTitle
		summary.PublishedAt = item.Snippet.PublishedAt

		// Thumbnail priority: high, then medium, then default
		if t := item.Snippet.Thumbnails; t != nil {
			switch {
			case t.High != nil && t.High.Url != "":
				summary.ThumbnailURL = t.High.Url
			case t.Medium != nil && t.Medium.Url != "":
				summary.ThumbnailURL = t.Medium.Url
			case t.Default != nil && t.Default.Url != "":
				summary.ThumbnailURL = t.Default.Url
			}
		}
	}

	// Missing statistics default the view count to zero
	if item.Statistics != nil {
		summary.ViewCount = int64(item.Statistics.ViewCount)
	}

	return summary
}

func wrapProviderError(err error) error {
	var gerr *googleapi.Error
	if !errors.As(err, &gerr) {
		return fmt.Errorf("YouTube API request failed: %w", err)
	}

	reason := "unknown_api_error"
	if len(gerr.Errors) > 0 && gerr.Errors[0].Reason != "" {
		reason = gerr.Errors[0].Reason
	}

	message := fmt.Sprintf("YouTube API Error (%s): %s", reason, gerr.Message)
	switch reason {
	case "quotaExceeded":
		message = "The YouTube API quota has been exceeded. Please try again later or contact support."
	case "keyInvalid":
		message = "The YouTube API key is invalid. Please contact support."
	}

	return &ProviderError{Reason: reason, Message: message}
}
