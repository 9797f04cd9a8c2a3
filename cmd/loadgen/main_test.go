package main

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"interview-harvester/internal/config"
	"interview-harvester/internal/models"
	"interview-harvester/mocks"
)

func TestLoadFixture(t *testing.T) {
	dir := t.TempDir()

	validPath := filepath.Join(dir, "valid.json")
	if err := os.WriteFile(validPath, []byte(`{"pages":[{"title":"Go","url":"https://example.com/go","questions":[{"question":"What is a goroutine?"}]}]}`), 0644); err != nil {
		t.Fatal(err)
	}

	emptyPath := filepath.Join(dir, "empty.json")
	if err := os.WriteFile(emptyPath, []byte(`{"pages":[]}`), 0644); err != nil {
		t.Fatal(err)
	}

	badJSONPath := filepath.Join(dir, "bad.json")
	if err := os.WriteFile(badJSONPath, []byte(`{not json`), 0644); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name    string
		path    string
		wantErr bool
		pages   int
	}{
		{"valid", validPath, false, 1},
		{"missing", filepath.Join(dir, "missing.json"), true, 0},
		{"empty pages", emptyPath, true, 0},
		{"bad json", badJSONPath, true, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fixture, err := loadFixture(tt.path)
			if (err != nil) != tt.wantErr {
				t.Fatalf("loadFixture() err = %v, wantErr %v", err, tt.wantErr)
			}
			if len(fixture.Pages) != tt.pages {
				t.Fatalf("expected %d pages, got %d", tt.pages, len(fixture.Pages))
			}
		})
	}
}

func TestRunRepeatsEveryPage(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	pages := []models.ExtractedPage{
		{URL: "https://example.com/a"},
		{URL: "https://example.com/b"},
	}
	dispatcher := mocks.NewMockDispatcher(ctrl)
	dispatcher.EXPECT().Dispatch(gomock.Any(), gomock.Any()).Return(1, nil).Times(6)

	sent, failed := run(context.Background(), pages, dispatcher, 3, 2, newLimiter(0), zap.NewNop())
	if sent != 6 || failed != 0 {
		t.Fatalf("expected 6 sent and 0 failed, got %d and %d", sent, failed)
	}
}

func TestRunCountsFailures(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	dispatcher := mocks.NewMockDispatcher(ctrl)
	dispatcher.EXPECT().Dispatch(gomock.Any(), gomock.Any()).Return(0, errors.New("broker down")).Times(2)

	sent, failed := run(context.Background(), []models.ExtractedPage{{URL: "https://example.com/a"}}, dispatcher, 2, 0, newLimiter(0), zap.NewNop())
	if sent != 0 || failed != 2 {
		t.Fatalf("expected 0 sent and 2 failed, got %d and %d", sent, failed)
	}
}

func TestRunStopsWhenCancelled(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	dispatcher := mocks.NewMockDispatcher(ctrl)
	dispatcher.EXPECT().Dispatch(gomock.Any(), gomock.Any()).Return(1, nil).AnyTimes()

	sent, _ := run(ctx, []models.ExtractedPage{{URL: "https://example.com/a"}}, dispatcher, 1000, 1, newLimiter(0), zap.NewNop())
	if sent >= 1000 {
		t.Fatalf("expected cancellation to stop submission early, sent %d", sent)
	}
}

func TestNewQueueSinkUnsupported(t *testing.T) {
	if _, err := newQueueSink(config.BrokerConfig{Kind: "nats"}, zap.NewNop()); err == nil {
		t.Fatal("expected error for unsupported broker kind")
	}
}

func TestRunRespectsRate(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	dispatcher := mocks.NewMockDispatcher(ctrl)
	dispatcher.EXPECT().Dispatch(gomock.Any(), gomock.Any()).Return(1, nil).Times(5)

	start := time.Now()
	sent, _ := run(context.Background(), []models.ExtractedPage{{URL: "https://example.com/a"}}, dispatcher, 5, 4, newLimiter(20), zap.NewNop())
	elapsed := time.Since(start)
	if sent != 5 {
		t.Fatalf("expected 5 sent, got %d", sent)
	}
	// burst 1 at 20/s: four waits of 50ms after the first job
	if elapsed < 150*time.Millisecond {
		t.Fatalf("expected submission to be paced, finished in %s", elapsed)
	}
}

func TestNewLimiterUnlimited(t *testing.T) {
	if newLimiter(0).Limit() != rate.Inf {
		t.Fatal("expected zero rate to mean unlimited")
	}
	if newLimiter(-1).Limit() != rate.Inf {
		t.Fatal("expected negative rate to mean unlimited")
	}
}
