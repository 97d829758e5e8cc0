package services

import (
	"testing"
	"time"

	"google.golang.org/api/youtube/v3"

	"youinsight-backend/internal/cache"
)

func newTestYouTubeService(t *testing.T) *YouTubeService {
	t.Helper()
	svc, err := NewYouTubeService("test-api-key", cache.NewMemoryStore(), time.Hour, 24*time.Hour)
	if err != nil {
		t.Fatalf("NewYouTubeService: %v", err)
	}
	return svc
}

func TestExtractVideoID(t *testing.T) {
	svc := newTestYouTubeService(t)

	tests := []struct {
		name string
		url  string
		want string
	}{
		{"watch url", "https://www.youtube.com/watch?v=abc12345678", "abc12345678"},
		{"short url", "https://youtu.be/abc12345678", "abc12345678"},
		{"embed url", "https://www.youtube.com/embed/abc12345678", "abc12345678"},
		{"watch url with params", "https://www.youtube.com/watch?v=abc12345678&t=42s", "abc12345678"},
		{"bare id", "abc12345678", "abc12345678"},
		{"unrelated url", "https://example.com/nope", ""},
		{"unrelated host short path", "https://vimeo.com/12345", ""},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := svc.ExtractVideoID(tt.url); got != tt.want {
				t.Errorf("ExtractVideoID(%q) = %q, want %q", tt.url, got, tt.want)
			}
		})
	}
}

func TestNewYouTubeService_RequiresKey(t *testing.T) {
	if _, err := NewYouTubeService("", cache.NewMemoryStore(), time.Hour, time.Hour); err == nil {
		t.Error("expected error for empty API key")
	}
}

func TestNormalizeVideo(t *testing.T) {
	item := &youtube.Video{
		Id: "abc12345678",
		Snippet: &youtube.VideoSnippet{
			Title:        "Intro to Go",
			ChannelTitle: "GopherCon",
			Thumbnails: &youtube.ThumbnailDetails{
				Default: &youtube.Thumbnail{Url: "https://img.example/default.jpg"},
				Medium:  &youtube.Thumbnail{Url: "https://img.example/medium.jpg"},
				High:    &youtube.Thumbnail{Url: "https://img.example/high.jpg"},
			},
		},
		Statistics: &youtube.VideoStatistics{ViewCount: 4321},
	}

	got := normalizeVideo(item)
	if got.Title != "Intro to Go" {
		t.Errorf("Title = %q", got.Title)
	}
	if got.ThumbnailURL != "https://img.example/high.jpg" {
		t.Errorf("ThumbnailURL = %q, want high resolution", got.ThumbnailURL)
	}
	if got.ViewCount != 4321 {
		t.Errorf("ViewCount = %d", got.ViewCount)
	}
	if got.URL != "https://www.youtube.com/watch?v=abc12345678" {
		t.Errorf("URL = %q", got.URL)
	}
}

func TestNormalizeVideo_Defaults(t *testing.T) {
	got := normalizeVideo(&youtube.Video{Id: "abc12345678"})

	if got.Title != "Untitled Video" {
		t.Errorf("Title = %q, want placeholder", got.Title)
	}
	if got.ViewCount != 0 {
		t.Errorf("ViewCount = %d, want 0", got.ViewCount)
	}
	if got.ThumbnailURL != "" {
		t.Errorf("ThumbnailURL = %q, want empty", got.ThumbnailURL)
	}
}

func TestNormalizeVideo_ThumbnailFallback(t *testing.T) {
	item := &youtube.Video{
		Id: "abc12345678",
		Snippet: &youtube.VideoSnippet{
			Title: "Fallback",
			Thumbnails: &youtube.ThumbnailDetails{
				Default: &youtube.Thumbnail{Url: "https://img.example/default.jpg"},
			},
		},
	}

	if got := normalizeVideo(item); got.ThumbnailURL != "https://img.example/default.jpg" {
		t.Errorf("ThumbnailURL = %q, want default fallback", got.ThumbnailURL)
	}
}
