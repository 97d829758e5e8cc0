package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"regexp"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5"

	"youinsight-backend/internal/models"
	"youinsight-backend/internal/services"
)

type fakeSearcher struct {
	videos []models.VideoSummary
	err    error
}

func (f *fakeSearcher) SearchVideos(ctx context.Context, query string, maxResults int64) ([]models.VideoSummary, error) {
	return f.videos, f.err
}

type fakeVideoRepo struct {
	videos map[string]*models.Video
}

func (f *fakeVideoRepo) GetByExternalID(ctx context.Context, videoID string) (*models.Video, error) {
	if v, ok := f.videos[videoID]; ok {
		return v, nil
	}
	return nil, pgx.ErrNoRows
}

type fakeTranscripts struct {
	transcripts map[string]string
}

var testIDPattern = regexp.MustCompile(`(?:v=|/)([0-9A-Za-z_-]{11})`)

func (f *fakeTranscripts) ExtractVideoID(url string) string {
	if m := testIDPattern.FindStringSubmatch(url); len(m) > 1 {
		return m[1]
	}
	return ""
}

func (f *fakeTranscripts) GetTranscript(ctx context.Context, videoURL string) (string, error) {
	if t, ok := f.transcripts[f.ExtractVideoID(videoURL)]; ok {
		return t, nil
	}
	return "", services.ErrTranscriptUnavailable
}

func videoTestServer(search videoSearcher, repo videoRepository, transcripts transcriptFetcher) http.Handler {
	h := NewVideoHandler(search, repo, transcripts)

	r := chi.NewRouter()
	r.Post("/search", h.Search)
	r.Get("/videos/{video_id}", h.GetVideo)
	r.Post("/transcript", h.GetTranscript)
	return r
}

func TestSearch_OK(t *testing.T) {
	srv := videoTestServer(&fakeSearcher{videos: []models.VideoSummary{
		{VideoID: "abc12345678", Title: "Go Concurrency Patterns"},
	}}, &fakeVideoRepo{}, &fakeTranscripts{})

	body, _ := json.Marshal(models.SearchRequest{Query: "go concurrency"})
	req := httptest.NewRequest(http.MethodPost, "/search", bytes.NewReader(body))
	rr := httptest.NewRecorder()
	srv.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rr.Code)
	}

	var resp struct {
		Videos []models.VideoSummary `json:"videos"`
	}
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(resp.Videos) != 1 || resp.Videos[0].VideoID != "abc12345678" {
		t.Errorf("unexpected videos: %+v", resp.Videos)
	}
}

func TestSearch_ValidationError(t *testing.T) {
	srv := videoTestServer(&fakeSearcher{
		err: &services.ValidationError{Fields: map[string]string{"query": "Search query is required"}},
	}, &fakeVideoRepo{}, &fakeTranscripts{})

	body, _ := json.Marshal(models.SearchRequest{})
	req := httptest.NewRequest(http.MethodPost, "/search", bytes.NewReader(body))
	rr := httptest.NewRecorder()
	srv.ServeHTTP(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rr.Code)
	}
}

func TestGetVideo_NotFound(t *testing.T) {
	srv := videoTestServer(&fakeSearcher{}, &fakeVideoRepo{}, &fakeTranscripts{})

	req := httptest.NewRequest(http.MethodGet, "/videos/abc12345678", nil)
	rr := httptest.NewRecorder()
	srv.ServeHTTP(rr, req)

	if rr.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rr.Code)
	}
}

func TestGetTranscript(t *testing.T) {
	transcripts := &fakeTranscripts{transcripts: map[string]string{
		"abc12345678": "full transcript text",
	}}
	srv := videoTestServer(&fakeSearcher{}, &fakeVideoRepo{}, transcripts)

	tests := []struct {
		name       string
		videoURL   string
		wantStatus int
	}{
		{"available", "https://www.youtube.com/watch?v=abc12345678", http.StatusOK},
		{"unavailable", "https://www.youtube.com/watch?v=zzz12345678", http.StatusNotFound},
		{"invalid url", "https://example.com/nope", http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body, _ := json.Marshal(map[string]string{"video_url": tt.videoURL})
			req := httptest.NewRequest(http.MethodPost, "/transcript", bytes.NewReader(body))
			rr := httptest.NewRecorder()
			srv.ServeHTTP(rr, req)

			if rr.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rr.Code, tt.wantStatus)
			}
		})
	}
}
