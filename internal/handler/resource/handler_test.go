package resource

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/zhouzirui/xinling/backend/internal/model/resource"
)

func setupRouter() *chi.Mux {
	r := chi.NewRouter()
	New(resource.NewMemoryStore(resource.Seed())).RegisterRoutes(r)
	return r
}

func get(r http.Handler, path string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)
	return resp
}

func TestListResources(t *testing.T) {
	resp := get(setupRouter(), "/resources")
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}

	var items []resource.Resource
	if err := json.Unmarshal(resp.Body.Bytes(), &items); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(items) != 5 {
		t.Fatalf("expected 5 resources, got %d", len(items))
	}
}

func TestListResourcesByType(t *testing.T) {
	resp := get(setupRouter(), "/resources?type=hotline")

	var items []resource.Resource
	if err := json.Unmarshal(resp.Body.Bytes(), &items); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("expected 2 hotlines, got %d", len(items))
	}
	for _, item := range items {
		if item.Phone == "" {
			t.Fatalf("hotline %s has no phone number", item.ID)
		}
	}
}

func TestListResourcesUnknownType(t *testing.T) {
	resp := get(setupRouter(), "/resources?type=video")
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.Code)
	}
}

func TestGetResource(t *testing.T) {
	r := setupRouter()

	resp := get(r, "/resources/med-1")
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	var item resource.Resource
	if err := json.Unmarshal(resp.Body.Bytes(), &item); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if item.Duration != "3 min" {
		t.Fatalf("expected 3 min, got %q", item.Duration)
	}

	if resp := get(r, "/resources/nope"); resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.Code)
	}
}
