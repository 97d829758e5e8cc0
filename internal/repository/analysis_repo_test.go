package repository

import (
	"testing"
	"time"

	"youinsight-backend/internal/models"
)

func TestSortNewestFirst(t *testing.T) {
	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	analyses := []*models.Analysis{
		{SearchTerm: strPtr("middle"), CreatedAt: base.Add(time.Hour)},
		{SearchTerm: strPtr("oldest"), CreatedAt: base},
		{SearchTerm: strPtr("newest"), CreatedAt: base.Add(2 * time.Hour)},
	}

	sortNewestFirst(analyses)

	want := []string{"newest", "middle", "oldest"}
	for i, a := range analyses {
		if *a.SearchTerm != want[i] {
			t.Errorf("position %d = %s, want %s", i, *a.SearchTerm, want[i])
		}
	}
}

func strPtr(s string) *string { return &s }
