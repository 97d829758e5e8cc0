package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"youinsight-backend/internal/middleware"
	"youinsight-backend/internal/models"
)

type fakeAnalysisRepo struct {
	analyses map[uuid.UUID]*models.Analysis
}

func (f *fakeAnalysisRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Analysis, error) {
	if a, ok := f.analyses[id]; ok {
		return a, nil
	}
	return nil, pgx.ErrNoRows
}

func (f *fakeAnalysisRepo) ListByConversation(ctx context.Context, userID, conversationID uuid.UUID) ([]*models.Analysis, error) {
	var out []*models.Analysis
	for _, a := range f.analyses {
		if a.UserID == userID && a.ConversationID != nil && *a.ConversationID == conversationID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (f *fakeAnalysisRepo) ListByUser(ctx context.Context, userID uuid.UUID) ([]*models.Analysis, error) {
	var out []*models.Analysis
	for _, a := range f.analyses {
		if a.UserID == userID {
			out = append(out, a)
		}
	}
	return out, nil
}

type fakeVideoLister struct{}

func (f *fakeVideoLister) ListByAnalysis(ctx context.Context, analysisID uuid.UUID) ([]*models.Video, error) {
	return nil, nil
}

func analysisTestServer(repo *fakeAnalysisRepo, userID uuid.UUID) http.Handler {
	h := NewAnalysisHandler(repo, &fakeVideoLister{})

	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			ctx := context.WithValue(req.Context(), middleware.UserIDKey, userID)
			next.ServeHTTP(w, req.WithContext(ctx))
		})
	})
	r.Get("/analyses/{id}", h.GetAnalysis)
	r.Get("/conversations/{id}", h.GetConversation)
	r.Get("/history", h.History)
	return r
}

func TestGetAnalysis_OwnershipHidden(t *testing.T) {
	owner := uuid.New()
	other := uuid.New()
	analysisID := uuid.New()

	repo := &fakeAnalysisRepo{analyses: map[uuid.UUID]*models.Analysis{
		analysisID: {ID: analysisID, UserID: owner, Prompt: "Summarize"},
	}}

	srv := analysisTestServer(repo, other)

	req := httptest.NewRequest(http.MethodGet, "/analyses/"+analysisID.String(), nil)
	rr := httptest.NewRecorder()
	srv.ServeHTTP(rr, req)

	// Another user's analysis must look like a missing one
	if rr.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rr.Code)
	}
}

func TestGetAnalysis_OK(t *testing.T) {
	owner := uuid.New()
	analysisID := uuid.New()

	repo := &fakeAnalysisRepo{analyses: map[uuid.UUID]*models.Analysis{
		analysisID: {ID: analysisID, UserID: owner, Prompt: "Summarize"},
	}}

	srv := analysisTestServer(repo, owner)

	req := httptest.NewRequest(http.MethodGet, "/analyses/"+analysisID.String(), nil)
	rr := httptest.NewRecorder()
	srv.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rr.Code)
	}

	var resp struct {
		Analysis models.Analysis `json:"analysis"`
	}
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Analysis.ID != analysisID {
		t.Errorf("analysis id = %s, want %s", resp.Analysis.ID, analysisID)
	}
}

func TestGetAnalysis_BadID(t *testing.T) {
	srv := analysisTestServer(&fakeAnalysisRepo{}, uuid.New())

	req := httptest.NewRequest(http.MethodGet, "/analyses/not-a-uuid", nil)
	rr := httptest.NewRecorder()
	srv.ServeHTTP(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rr.Code)
	}
}

func TestGetConversation_NotFound(t *testing.T) {
	srv := analysisTestServer(&fakeAnalysisRepo{}, uuid.New())

	req := httptest.NewRequest(http.MethodGet, "/conversations/"+uuid.NewString(), nil)
	rr := httptest.NewRecorder()
	srv.ServeHTTP(rr, req)

	if rr.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rr.Code)
	}
}

func TestGetConversation_ReturnsLatestMessages(t *testing.T) {
	owner := uuid.New()
	convID := uuid.New()

	turn1 := &models.Analysis{
		ID: uuid.New(), UserID: owner, ConversationID: &convID,
		Messages: []models.Message{{Role: "user", Content: "q1"}, {Role: "assistant", Content: "a1"}},
	}
	turn2 := &models.Analysis{
		ID: uuid.New(), UserID: owner, ConversationID: &convID,
		Messages: []models.Message{
			{Role: "user", Content: "q1"}, {Role: "assistant", Content: "a1"},
			{Role: "user", Content: "q2"}, {Role: "assistant", Content: "a2"},
		},
	}

	repo := &fakeAnalysisRepo{analyses: map[uuid.UUID]*models.Analysis{
		turn1.ID: turn1,
		turn2.ID: turn2,
	}}

	srv := analysisTestServer(repo, owner)

	req := httptest.NewRequest(http.MethodGet, "/conversations/"+convID.String(), nil)
	rr := httptest.NewRecorder()
	srv.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rr.Code)
	}

	var resp struct {
		Analyses []models.Analysis `json:"analyses"`
	}
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(resp.Analyses) != 2 {
		t.Errorf("analyses = %d, want 2", len(resp.Analyses))
	}
}

func TestHistory_Empty(t *testing.T) {
	srv := analysisTestServer(&fakeAnalysisRepo{}, uuid.New())

	req := httptest.NewRequest(http.MethodGet, "/history", nil)
	rr := httptest.NewRecorder()
	srv.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rr.Code)
	}
}
