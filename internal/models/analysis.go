package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Message is one role-tagged entry in a conversation's message list.
type Message struct {
	Role      string    `json:"role"` // "user" | "assistant"
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// Analysis is one turn of a conversation (or a standalone request).
// The messages list on the most recent turn is the authoritative running
// transcript of the conversation; each row's list is self-contained.
type Analysis struct {
	ID             uuid.UUID  `json:"id"`
	UserID         uuid.UUID  `json:"user_id"`
	SearchTerm     *string    `json:"search_term"`
	Prompt         string     `json:"prompt"`
	Result         *string    `json:"result"`
	CreatedAt      time.Time  `json:"created_at"`
	ConversationID *uuid.UUID `json:"conversation_id"`
	IsConversation bool       `json:"is_conversation"`
	Messages       []Message  `json:"messages,omitempty"`
}

// AnalysisVideo links an analysis to one of the videos it covered.
// Links are created once and never reassigned.
type AnalysisVideo struct {
	ID         uuid.UUID `json:"id"`
	AnalysisID uuid.UUID `json:"analysis_id"`
	VideoID    uuid.UUID `json:"video_id"`
	CreatedAt  time.Time `json:"created_at"`
}

// AnalyzeRequest is the inbound analyze_videos event payload.
type AnalyzeRequest struct {
	SearchTerm        string   `json:"search_term"`
	VideoIDs          []string `json:"video_ids"`
	Prompt            string   `json:"prompt"`
	VideoURL          string   `json:"video_url"`
	ConversationID    string   `json:"conversation_id"`
	IsNewConversation bool     `json:"is_new_conversation"`
}

// SearchRequest is the inbound search_videos event payload. MaxResults is
// optional and clamped server-side.
type SearchRequest struct {
	Query      string `json:"query"`
	MaxResults int64  `json:"max_results,omitempty"`
}

// WebSocket event envelope. Inbound and outbound frames share the shape
// {"event": "...", "data": {...}}.
type WSEvent struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

type StatusPayload struct {
	Message string `json:"message"`
}

type SearchResultsPayload struct {
	Videos []VideoSummary `json:"videos"`
}

type AnalysisStartedPayload struct {
	Message string `json:"message"`
}

type AnalysisChunkPayload struct {
	Chunk string `json:"chunk"`
}

type AnalysisCompletePayload struct {
	AnalysisID     uuid.UUID `json:"analysis_id"`
	ConversationID uuid.UUID `json:"conversation_id"`
}

type ErrorPayload struct {
	Message string `json:"message"`
	Reason  string `json:"reason,omitempty"`
}

// API Error response
type APIError struct {
	Code      string            `json:"code"`
	Message   string            `json:"message"`
	Fields    map[string]string `json:"fields,omitempty"`
	RequestID string            `json:"request_id"`
}

type ErrorResponse struct {
	Error APIError `json:"error"`
}
