package main

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/golang/mock/gomock"
	"github.com/prometheus/client_golang/prometheus"

	"interview-harvester/internal/models"
	"interview-harvester/mocks"
)

func newTestServer(t *testing.T) (http.Handler, *mocks.MockStatusStore) {
	t.Helper()

	ctrl := gomock.NewController(t)
	t.Cleanup(ctrl.Finish)

	statusStore := mocks.NewMockStatusStore(ctrl)
	return newServer(statusStore, nil).routes(prometheus.NewRegistry()), statusStore
}

func TestHandleRunStatus(t *testing.T) {
	handler, statusStore := newTestServer(t)
	statusStore.EXPECT().GetStatus(gomock.Any(), "run-1").Return(models.RunStatus{
		RunID:          "run-1",
		Status:         models.RunStatusRunning,
		PagesProcessed: 12,
	}, true, nil)

	req := httptest.NewRequest(http.MethodGet, "/runs/run-1", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rec.Code)
	}
	var payload models.RunStatus
	if err := json.NewDecoder(rec.Body).Decode(&payload); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if payload.RunID != "run-1" || payload.Status != models.RunStatusRunning {
		t.Fatalf("unexpected payload: %+v", payload)
	}
	if payload.PagesProcessed != 12 {
		t.Fatalf("expected 12 pages processed, got %d", payload.PagesProcessed)
	}
}

func TestHandleRunStatusTrailingSlash(t *testing.T) {
	handler, statusStore := newTestServer(t)
	statusStore.EXPECT().GetStatus(gomock.Any(), "run-1").Return(models.RunStatus{RunID: "run-1"}, true, nil)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/runs/run-1/", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rec.Code)
	}
}

func TestHandleRunStatusNotFound(t *testing.T) {
	handler, statusStore := newTestServer(t)
	statusStore.EXPECT().GetStatus(gomock.Any(), "missing").Return(models.RunStatus{}, false, nil)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/runs/missing", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected status %d, got %d", http.StatusNotFound, rec.Code)
	}
}

func TestHandleRunStatusStoreError(t *testing.T) {
	handler, statusStore := newTestServer(t)
	statusStore.EXPECT().GetStatus(gomock.Any(), "run-1").Return(models.RunStatus{}, false, errors.New("redis down"))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/runs/run-1", nil))
	if rec.Code != http.StatusBadGateway {
		t.Fatalf("expected status %d, got %d", http.StatusBadGateway, rec.Code)
	}
}

func TestHandleRunStatusMissingID(t *testing.T) {
	handler, _ := newTestServer(t)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/runs/", nil))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected status %d, got %d", http.StatusBadRequest, rec.Code)
	}
}

func TestHandleRunStatusMethodNotAllowed(t *testing.T) {
	handler, _ := newTestServer(t)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/runs/run-1", nil))
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected status %d, got %d", http.StatusMethodNotAllowed, rec.Code)
	}
}

func TestHandleHealth(t *testing.T) {
	handler, _ := newTestServer(t)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"ok"`) {
		t.Fatalf("unexpected body: %s", rec.Body.String())
	}
}

func TestMetricsEndpoint(t *testing.T) {
	handler, _ := newTestServer(t)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rec.Code)
	}
}
