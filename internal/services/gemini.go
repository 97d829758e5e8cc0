package services

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
)

// GeminiService holds the generation policy. Clients are created per call
// because each request is authenticated with the requesting user's own key.
type GeminiService struct {
	model           string
	temperature     float32
	topP            float32
	topK            int32
	maxOutputTokens int32
}

func NewGeminiService(model string, temperature, topP float32, topK, maxOutputTokens int32) *GeminiService {
	return &GeminiService{
		model:           model,
		temperature:     temperature,
		topP:            topP,
		topK:            topK,
		maxOutputTokens: maxOutputTokens,
	}
}

// VideoInput is one video's contribution to an analysis prompt.
type VideoInput struct {
	Title      string
	URL        string
	Transcript string
}

// StreamChunk is one unit of streamed model output. Err is set alongside
// Text on failure chunks so the transport can still show the text while
// callers keep the distinction.
type StreamChunk struct {
	Text string
	Err  error
}

// Analyze generates an analysis in one shot. A provider failure returns the
// error text as the result alongside the error itself, so callers keeping
// the legacy contract can show the text while still branching on the error.
func (s *GeminiService) Analyze(ctx context.Context, apiKey, prompt string, videos []VideoInput) (string, error) {
	if len(videos) == 0 {
		return "No transcripts to analyze.", nil
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		err = fmt.Errorf("failed to create Gemini client: %w", err)
		return fmt.Sprintf("Error analyzing transcripts: %v", err), err
	}
	defer client.Close()

	model := client.GenerativeModel(s.model)
	model.SetTemperature(s.temperature)
	model.SetTopP(s.topP)
	model.SetTopK(s.topK)
	model.SetMaxOutputTokens(s.maxOutputTokens)

	resp, err := model.GenerateContent(ctx, genai.Text(buildAnalysisPrompt(prompt, videos)))
	if err != nil {
		return fmt.Sprintf("Error analyzing transcripts: %v", err), err
	}

	return extractText(resp), nil
}

// AnalyzeStream generates an analysis and streams it chunk by chunk. The
// channel is closed when generation finishes or fails; a failure emits a
// final chunk carrying both the error text and the error itself.
func (s *GeminiService) AnalyzeStream(ctx context.Context, apiKey, prompt string, videos []VideoInput) <-chan StreamChunk {
	out := make(chan StreamChunk)

	go func() {
		defer close(out)

		if len(videos) == 0 {
			out <- StreamChunk{Text: "No transcripts to analyze."}
			return
		}

		client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
		if err != nil {
			emitError(ctx, out, fmt.Errorf("failed to create Gemini client: %w", err))
			return
		}
		defer client.Close()

		model := client.GenerativeModel(s.model)
		model.SetTemperature(s.temperature)
		model.SetTopP(s.topP)
		model.SetTopK(s.topK)
		model.SetMaxOutputTokens(s.maxOutputTokens)

		fullPrompt := buildAnalysisPrompt(prompt, videos)

		iter := model.GenerateContentStream(ctx, genai.Text(fullPrompt))
		for {
			resp, err := iter.Next()
			if err == iterator.Done {
				return
			}
			if err != nil {
				log.Printf("Gemini stream error: %v", err)
				emitError(ctx, out, err)
				return
			}
			if text := extractText(resp); text != "" {
				select {
				case out <- StreamChunk{Text: text}:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return out
}

func emitError(ctx context.Context, out chan<- StreamChunk, err error) {
	chunk := StreamChunk{
		Text: fmt.Sprintf("Error analyzing transcripts: %v", err),
		Err:  err,
	}
	select {
	case out <- chunk:
	case <-ctx.Done():
	}
}

func buildAnalysisPrompt(prompt string, videos []VideoInput) string {
	var b strings.Builder

	b.WriteString(fmt.Sprintf("Analyze the following video(s) based on this prompt:\n\n%s\n\n", prompt))
	b.WriteString("IMPORTANT: Provide a direct, well-formatted response. DO NOT include any statements " +
		"about your process like 'Analyzing the video...' or similar phrases. Start immediately with your analysis.\n\n")

	for i, v := range videos {
		transcript := v.Transcript
		if transcript == "" {
			transcript = "No transcript available"
		}
		b.WriteString(fmt.Sprintf("VIDEO %d: %s\nURL: %s\nTRANSCRIPT:\n%s\n\n", i+1, v.Title, v.URL, transcript))
	}

	return b.String()
}

func extractText(resp *genai.GenerateContentResponse) string {
	var text strings.Builder
	for _, cand := range resp.Candidates {
		if cand.Content != nil {
			for _, part := range cand.Content.Parts {
				if t, ok := part.(genai.Text); ok {
					text.WriteString(string(t))
				}
			}
		}
	}
	return text.String()
}
