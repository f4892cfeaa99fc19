package memory

import (
	"context"
	"errors"
	"testing"

	"matchup-forecast/internal/domain"
	"matchup-forecast/internal/storage"
)

func TestPredictionStore_InsertAndGet(t *testing.T) {
	store := NewPredictionStore()
	ctx := context.Background()

	rows := []*domain.PredictionRow{
		{HomeTeam: "A", AwayTeam: "B", PredictedWinner: domain.WinnerHome, HomeWinProbability: 55.5, Confidence: 11},
		{HomeTeam: "C", AwayTeam: "D", PredictedWinner: domain.WinnerAway, HomeWinProbability: 30, Confidence: 40},
	}
	if err := store.InsertBulk(ctx, "g1", rows); err != nil {
		t.Fatalf("InsertBulk failed: %v", err)
	}

	got, err := store.GetByGeneration(ctx, "g1")
	if err != nil {
		t.Fatalf("GetByGeneration failed: %v", err)
	}
	if len(got) != 2 || got[1].HomeTeam != "C" {
		t.Errorf("unexpected rows: %+v", got)
	}

	if _, err := store.GetByGeneration(ctx, "g2"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if err := store.InsertBulk(ctx, "", rows); !errors.Is(err, storage.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput, got %v", err)
	}
}

func TestPredictionStore_RepeatedRunsKeepLatest(t *testing.T) {
	store := NewPredictionStore()
	ctx := context.Background()

	first := []*domain.PredictionRow{
		{HomeTeam: "A", AwayTeam: "B", PredictedWinner: domain.WinnerHome, HomeWinProbability: 55.5, Confidence: 11},
		{HomeTeam: "C", AwayTeam: "D", PredictedWinner: domain.WinnerAway, HomeWinProbability: 30, Confidence: 40},
	}
	second := []*domain.PredictionRow{
		{HomeTeam: "B", AwayTeam: "C", PredictedWinner: domain.WinnerHome, HomeWinProbability: 70, Confidence: 40},
	}
	if err := store.InsertBulk(ctx, "g1", first); err != nil {
		t.Fatalf("first InsertBulk failed: %v", err)
	}
	if err := store.InsertBulk(ctx, "g1", second); err != nil {
		t.Fatalf("second InsertBulk failed: %v", err)
	}

	got, err := store.GetByGeneration(ctx, "g1")
	if err != nil {
		t.Fatalf("GetByGeneration failed: %v", err)
	}
	if len(got) != 1 || got[0].HomeTeam != "B" {
		t.Errorf("expected the latest run, got %+v", got)
	}

	got[0].HomeTeam = "mutated"
	again, _ := store.GetByGeneration(ctx, "g1")
	if again[0].HomeTeam != "B" {
		t.Error("GetByGeneration must return copies")
	}
}
