package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/storymint/storymint/internal/database"
	"github.com/storymint/storymint/internal/model"
)

func openTestDB(t *testing.T) *database.DB {
	t.Helper()
	db, err := database.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func newTestServer(t *testing.T, db *database.DB) *Server {
	t.Helper()
	srv, err := New(db, 0)
	if err != nil {
		t.Fatalf("failed to create server: %v", err)
	}
	return srv
}

func saveTestStory(t *testing.T, db *database.DB, storyID string) *model.Manifest {
	t.Helper()
	insights := []model.Insight{
		{ID: "i1", Text: "82% of customers report strong price sensitivity", Category: "pricing", Confidence: 0.9, BusinessValue: 0.95, Actionability: 0.8},
		{ID: "i2", Text: "Satisfaction scores held steady across regions", Category: "satisfaction", Confidence: 0.8, BusinessValue: 0.7, Actionability: 0.5},
	}
	m := &model.Manifest{
		StoryID:     storyID,
		ProjectName: "Retail Pulse",
		Thesis: model.Thesis{
			Title:      "Price Pressure Defines the Quarter",
			Hook:       "82% of customers report strong price sensitivity",
			Summary:    "Pricing dominates the findings.",
			Confidence: 0.85,
		},
		TopKPIs: []model.KPI{
			{Value: "82%", Label: "customers report strong price sensitivity", Kind: model.KPIHeadline, Rank: 1, InsightID: "i1"},
		},
		Sections: []model.Section{
			{
				ID:            "sec-pricing",
				Title:         "Pricing",
				Thesis:        "Price sensitivity is the dominant pattern.",
				InsightIDs:    []string{"i1"},
				ChartRefs:     []string{"chart_1"},
				NarrativeText: "Pricing pressure is **concentrated** in premium blends.",
				Order:         0,
			},
		},
		NarrativeMode:    model.ModeExecutive,
		ExecutiveSummary: "Price pressure defines the quarter.",
		KeyFindings:      []string{"82% of customers report strong price sensitivity (business value 95%)"},
		Metadata: map[string]string{
			"generated_at": "2026-08-25T00:00:00Z",
			"strategy":     "heuristic",
		},
	}
	if err := db.SaveStory(m, insights); err != nil {
		t.Fatalf("failed to save story: %v", err)
	}
	return m
}

func TestIndexRouteEmpty(t *testing.T) {
	db := openTestDB(t)
	srv := newTestServer(t, db)

	req := httptest.NewRequest("GET", "/", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "No stories yet") {
		t.Error("expected empty-state message in response body")
	}
}

func TestIndexRouteListsStories(t *testing.T) {
	db := openTestDB(t)
	saveTestStory(t, db, "retail-pulse-20260825-aaaa1111")
	srv := newTestServer(t, db)

	req := httptest.NewRequest("GET", "/", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "Price Pressure Defines the Quarter") {
		t.Error("expected thesis title in index")
	}
	if !strings.Contains(body, "Retail Pulse") {
		t.Error("expected project name in index")
	}
	if !strings.Contains(body, "/story/retail-pulse-20260825-aaaa1111") {
		t.Error("expected story link in index")
	}
}

func TestIndexRouteUnknownPath(t *testing.T) {
	db := openTestDB(t)
	srv := newTestServer(t, db)

	req := httptest.NewRequest("GET", "/nope", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rec.Code)
	}
}

func TestStoryRoute(t *testing.T) {
	db := openTestDB(t)
	saveTestStory(t, db, "retail-pulse-20260825-aaaa1111")
	srv := newTestServer(t, db)

	req := httptest.NewRequest("GET", "/story/retail-pulse-20260825-aaaa1111", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "Price Pressure Defines the Quarter") {
		t.Error("expected thesis title in story page")
	}
	if !strings.Contains(body, "82%") {
		t.Error("expected KPI value in story page")
	}
	if !strings.Contains(body, "Pricing") {
		t.Error("expected section title in story page")
	}
	if !strings.Contains(body, "Top Findings") {
		t.Error("expected findings block in story page")
	}
	// Narrative text runs through the markdown renderer.
	if !strings.Contains(body, "<strong>concentrated</strong>") {
		t.Error("expected narrative markdown to be rendered")
	}
}

func TestStoryRouteNotFound(t *testing.T) {
	db := openTestDB(t)
	srv := newTestServer(t, db)

	req := httptest.NewRequest("GET", "/story/missing-id", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rec.Code)
	}
}

func TestStoryRouteEmptyIDRedirects(t *testing.T) {
	db := openTestDB(t)
	srv := newTestServer(t, db)

	req := httptest.NewRequest("GET", "/story/", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusFound {
		t.Errorf("expected 302, got %d", rec.Code)
	}
}

func TestStoryPageServedFromCache(t *testing.T) {
	db := openTestDB(t)
	m := saveTestStory(t, db, "retail-pulse-20260825-aaaa1111")
	srv := newTestServer(t, db)

	req := httptest.NewRequest("GET", "/story/"+m.StoryID, nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 on first request, got %d", rec.Code)
	}

	// Remove the story. The cached page should still serve.
	if err := db.DeleteStory(m.StoryID); err != nil {
		t.Fatalf("delete: %v", err)
	}

	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/story/"+m.StoryID, nil))
	if rec.Code != http.StatusOK {
		t.Errorf("expected cached page after delete, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "Price Pressure Defines the Quarter") {
		t.Error("expected cached body to match original render")
	}
}

func TestAPIStoryRoute(t *testing.T) {
	db := openTestDB(t)
	m := saveTestStory(t, db, "retail-pulse-20260825-aaaa1111")
	srv := newTestServer(t, db)

	req := httptest.NewRequest("GET", "/api/story/"+m.StoryID, nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("expected application/json, got %q", ct)
	}

	var got model.Manifest
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("response is not valid manifest JSON: %v", err)
	}
	if got.StoryID != m.StoryID {
		t.Errorf("expected story id %q, got %q", m.StoryID, got.StoryID)
	}
	if len(got.Sections) != 1 || got.Sections[0].ID != "sec-pricing" {
		t.Errorf("expected section to round-trip, got %+v", got.Sections)
	}
}

func TestAPIStoryNotFound(t *testing.T) {
	db := openTestDB(t)
	srv := newTestServer(t, db)

	req := httptest.NewRequest("GET", "/api/story/missing-id", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rec.Code)
	}
}

func TestStaticRoute(t *testing.T) {
	db := openTestDB(t)
	srv := newTestServer(t, db)

	req := httptest.NewRequest("GET", "/static/style.css", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "font-sans") {
		t.Error("expected CSS content")
	}
}
