package services

import (
	"context"
	"strings"
	"testing"

	"github.com/google/generative-ai-go/genai"
)

func TestBuildAnalysisPrompt(t *testing.T) {
	videos := []VideoInput{
		{Title: "First Lecture", URL: "https://youtu.be/aaaaaaaaaaa", Transcript: "hello world"},
		{Title: "Second Lecture", URL: "https://youtu.be/bbbbbbbbbbb"},
	}

	got := buildAnalysisPrompt("Compare the two lectures", videos)

	if !strings.HasPrefix(got, "Analyze the following video(s) based on this prompt:\n\nCompare the two lectures\n\n") {
		t.Errorf("prompt header wrong:\n%s", got)
	}
	if !strings.Contains(got, "Start immediately with your analysis.") {
		t.Error("missing direct-response instruction")
	}
	if !strings.Contains(got, "VIDEO 1: First Lecture\nURL: https://youtu.be/aaaaaaaaaaa\nTRANSCRIPT:\nhello world\n\n") {
		t.Errorf("first video block wrong:\n%s", got)
	}
	if !strings.Contains(got, "VIDEO 2: Second Lecture") {
		t.Error("second video block missing")
	}
	if !strings.Contains(got, "No transcript available") {
		t.Error("missing transcript placeholder for second video")
	}
}

func TestAnalyze_NoVideos(t *testing.T) {
	svc := NewGeminiService("gemini-2.0-flash-exp", 0.7, 0.95, 64, 8192)

	got, err := svc.Analyze(context.Background(), "key", "prompt", nil)
	if err != nil {
		t.Fatalf("Analyze returned error: %v", err)
	}
	if got != "No transcripts to analyze." {
		t.Errorf("result = %q", got)
	}
}

func TestAnalyzeStream_NoVideos(t *testing.T) {
	svc := NewGeminiService("gemini-2.0-flash-exp", 0.7, 0.95, 64, 8192)

	var chunks []StreamChunk
	for c := range svc.AnalyzeStream(context.Background(), "key", "prompt", nil) {
		chunks = append(chunks, c)
	}

	if len(chunks) != 1 {
		t.Fatalf("expected 1 chunk, got %d", len(chunks))
	}
	if chunks[0].Text != "No transcripts to analyze." {
		t.Errorf("chunk text = %q", chunks[0].Text)
	}
	if chunks[0].Err != nil {
		t.Errorf("unexpected error: %v", chunks[0].Err)
	}
}

func TestExtractText(t *testing.T) {
	resp := &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{
			{Content: &genai.Content{Parts: []genai.Part{genai.Text("part one "), genai.Text("part two")}}},
			{Content: nil},
		},
	}

	if got := extractText(resp); got != "part one part two" {
		t.Errorf("extractText = %q", got)
	}
}
