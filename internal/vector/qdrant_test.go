// File path: internal/vector/qdrant_test.go
package vector

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"
)

type fakeQdrant struct {
	t *testing.T

	mu             sync.Mutex
	collection     string
	dimension      int
	healthFailures int
	healthCalls    int
	upsertCalls    int
	searchCalls    int

	points map[string]map[string]interface{}

	lastUpsertBody map[string]interface{}
	lastSearchBody map[string]interface{}
}

func newFakeQdrant(t *testing.T) *fakeQdrant {
	t.Helper()
	return &fakeQdrant{t: t, points: make(map[string]map[string]interface{})}
}

func (f *fakeQdrant) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch {
	case r.URL.Path == "/healthz":
		f.handleHealth(w)
	case strings.HasSuffix(r.URL.Path, "/points/search"):
		f.handleSearch(w, r)
	case strings.HasSuffix(r.URL.Path, "/points/count"):
		f.handleCount(w)
	case strings.HasSuffix(r.URL.Path, "/points/scroll"):
		f.handleScroll(w)
	case strings.HasSuffix(r.URL.Path, "/points/delete"):
		f.handleDelete(w, r)
	case strings.HasSuffix(r.URL.Path, "/points"):
		f.handleUpsert(w, r)
	case strings.HasPrefix(r.URL.Path, "/collections/"):
		f.handleCollection(w, r)
	default:
		http.NotFound(w, r)
	}
}

func (f *fakeQdrant) handleHealth(w http.ResponseWriter) {
	f.mu.Lock()
	f.healthCalls++
	shouldFail := f.healthFailures > 0
	if shouldFail {
		f.healthFailures--
	}
	f.mu.Unlock()
	if shouldFail {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte("health failure"))
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("healthz check passed"))
}

func (f *fakeQdrant) handleCollection(w http.ResponseWriter, r *http.Request) {
	name := strings.TrimPrefix(r.URL.Path, "/collections/")
	f.mu.Lock()
	defer f.mu.Unlock()
	switch r.Method {
	case http.MethodGet:
		if f.collection != name {
			http.NotFound(w, r)
			return
		}
		writeResult(w, map[string]interface{}{
			"config": map[string]interface{}{
				"params": map[string]interface{}{
					"vectors": map[string]interface{}{"size": f.dimension},
				},
			},
		})
	case http.MethodPut:
		var body struct {
			Vectors struct {
				Size     int    `json:"size"`
				Distance string `json:"distance"`
			} `json:"vectors"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if body.Vectors.Distance != "Cosine" {
			http.Error(w, "unexpected distance", http.StatusBadRequest)
			return
		}
		f.collection = name
		f.dimension = body.Vectors.Size
		writeResult(w, true)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (f *fakeQdrant) handleUpsert(w http.ResponseWriter, r *http.Request) {
	var body map[string]interface{}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	f.mu.Lock()
	f.upsertCalls++
	f.lastUpsertBody = body
	if points, ok := body["points"].([]interface{}); ok {
		for _, raw := range points {
			point, ok := raw.(map[string]interface{})
			if !ok {
				continue
			}
			id, _ := point["id"].(string)
			f.points[id] = point
		}
	}
	f.mu.Unlock()
	writeResult(w, map[string]interface{}{"status": "completed"})
}

func (f *fakeQdrant) handleSearch(w http.ResponseWriter, r *http.Request) {
	var body map[string]interface{}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	f.mu.Lock()
	f.searchCalls++
	f.lastSearchBody = body
	hits := make([]map[string]interface{}, 0, len(f.points))
	for id, point := range f.points {
		hits = append(hits, map[string]interface{}{
			"id":      id,
			"score":   0.91,
			"payload": point["payload"],
		})
	}
	f.mu.Unlock()
	writeResult(w, hits)
}

func (f *fakeQdrant) handleCount(w http.ResponseWriter) {
	f.mu.Lock()
	count := len(f.points)
	f.mu.Unlock()
	writeResult(w, map[string]interface{}{"count": count})
}

func (f *fakeQdrant) handleScroll(w http.ResponseWriter) {
	f.mu.Lock()
	points := make([]map[string]interface{}, 0, len(f.points))
	for id, point := range f.points {
		points = append(points, map[string]interface{}{"id": id, "payload": point["payload"]})
	}
	f.mu.Unlock()
	writeResult(w, map[string]interface{}{"points": points, "next_page_offset": nil})
}

func (f *fakeQdrant) handleDelete(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Points []string `json:"points"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	f.mu.Lock()
	for _, id := range body.Points {
		delete(f.points, id)
	}
	f.mu.Unlock()
	writeResult(w, map[string]interface{}{"status": "completed"})
}

func writeResult(w http.ResponseWriter, result interface{}) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]interface{}{"result": result, "status": "ok"})
}

func newTestClient(t *testing.T, fake *fakeQdrant) (*Client, func()) {
	t.Helper()
	server := httptest.NewServer(fake)
	parsed, err := url.Parse(server.URL)
	if err != nil {
		t.Fatalf("parse server url: %v", err)
	}
	cfg := Config{
		Scheme:     "http",
		Host:       parsed.Hostname(),
		Port:       parsed.Port(),
		Collection: "cobol_requirements",
		Timeout:    2 * time.Second,
	}
	cfg.applyDefaults()
	client, err := New(context.Background(), cfg)
	if err != nil {
		server.Close()
		t.Fatalf("new client: %v", err)
	}
	return client, func() {
		client.Close()
		server.Close()
	}
}

func TestEnsureCollectionCreates(t *testing.T) {
	fake := newFakeQdrant(t)
	client, cleanup := newTestClient(t, fake)
	defer cleanup()

	if err := client.EnsureCollection(context.Background(), 384); err != nil {
		t.Fatalf("ensure collection: %v", err)
	}
	fake.mu.Lock()
	collection, dimension := fake.collection, fake.dimension
	fake.mu.Unlock()
	if collection != "cobol_requirements" {
		t.Fatalf("expected collection created, got %q", collection)
	}
	if dimension != 384 {
		t.Fatalf("expected dimension 384, got %d", dimension)
	}
	// Second call must reuse the existing collection.
	if err := client.EnsureCollection(context.Background(), 384); err != nil {
		t.Fatalf("ensure existing collection: %v", err)
	}
}

func TestEnsureCollectionRejectsDimensionMismatch(t *testing.T) {
	fake := newFakeQdrant(t)
	fake.collection = "cobol_requirements"
	fake.dimension = 768
	client, cleanup := newTestClient(t, fake)
	defer cleanup()

	err := client.EnsureCollection(context.Background(), 384)
	if !errors.Is(err, ErrInvalidDimension) {
		t.Fatalf("expected ErrInvalidDimension, got %v", err)
	}
}

func TestEnsureCollectionRejectsZeroReportedSize(t *testing.T) {
	fake := newFakeQdrant(t)
	fake.collection = "cobol_requirements"
	fake.dimension = 0
	client, cleanup := newTestClient(t, fake)
	defer cleanup()

	err := client.EnsureCollection(context.Background(), 384)
	if !errors.Is(err, ErrInvalidDimension) {
		t.Fatalf("expected ErrInvalidDimension for zero reported size, got %v", err)
	}
}

func TestUpsertValidatesDimensionClientSide(t *testing.T) {
	fake := newFakeQdrant(t)
	client, cleanup := newTestClient(t, fake)
	defer cleanup()

	if err := client.EnsureCollection(context.Background(), 3); err != nil {
		t.Fatalf("ensure collection: %v", err)
	}
	err := client.Upsert(context.Background(), []Entry{
		{ID: "a", Vector: []float32{1, 2, 3}},
		{ID: "b", Vector: []float32{1, 2}},
	})
	if !errors.Is(err, ErrInvalidDimension) {
		t.Fatalf("expected ErrInvalidDimension, got %v", err)
	}
	fake.mu.Lock()
	upserts := fake.upsertCalls
	fake.mu.Unlock()
	if upserts != 0 {
		t.Fatalf("expected no upsert request, got %d", upserts)
	}
}

func TestUpsertAndQueryRoundTrip(t *testing.T) {
	fake := newFakeQdrant(t)
	client, cleanup := newTestClient(t, fake)
	defer cleanup()

	if err := client.EnsureCollection(context.Background(), 3); err != nil {
		t.Fatalf("ensure collection: %v", err)
	}
	entries := []Entry{
		{ID: "point-1", Vector: []float32{0.1, 0.2, 0.3}, Payload: map[string]interface{}{"category": "business_rule"}},
		{ID: "point-2", Vector: []float32{0.3, 0.2, 0.1}, Payload: map[string]interface{}{"category": "validation_logic"}},
	}
	if err := client.Upsert(context.Background(), entries); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	fake.mu.Lock()
	upserts := fake.upsertCalls
	fake.mu.Unlock()
	if upserts != 1 {
		t.Fatalf("expected one atomic upsert call, got %d", upserts)
	}

	results, err := client.Query(context.Background(), []float32{0.1, 0.2, 0.3}, 5, QueryOptions{
		MinScore: 0.8,
		Filter:   map[string]interface{}{"category": "business_rule"},
	})
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results from fake, got %d", len(results))
	}
	fake.mu.Lock()
	searchBody := fake.lastSearchBody
	fake.mu.Unlock()
	if threshold, ok := searchBody["score_threshold"].(float64); !ok || threshold < 0.79 || threshold > 0.81 {
		t.Fatalf("expected score_threshold 0.8 in request, got %v", searchBody["score_threshold"])
	}
	filter, ok := searchBody["filter"].(map[string]interface{})
	if !ok {
		t.Fatalf("expected filter in request, got %v", fake.lastSearchBody["filter"])
	}
	if _, ok := filter["must"]; !ok {
		t.Fatalf("expected must clause in filter, got %v", filter)
	}

	count, err := client.Count(context.Background())
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 2 {
		t.Fatalf("expected count 2, got %d", count)
	}

	listed, err := client.List(context.Background(), 10)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(listed) != 2 {
		t.Fatalf("expected 2 listed points, got %d", len(listed))
	}

	if err := client.Delete(context.Background(), []string{"point-1"}); err != nil {
		t.Fatalf("delete: %v", err)
	}
	count, err = client.Count(context.Background())
	if err != nil {
		t.Fatalf("count after delete: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected count 1 after delete, got %d", count)
	}
}

func TestReadinessRetriesThenRecovers(t *testing.T) {
	fake := newFakeQdrant(t)
	fake.healthFailures = 2
	client, cleanup := newTestClient(t, fake)
	defer cleanup()

	if !client.Available() {
		t.Fatalf("expected client available after retries")
	}
	fake.mu.Lock()
	probes := fake.healthCalls
	fake.mu.Unlock()
	if probes < 3 {
		t.Fatalf("expected at least 3 health probes, got %d", probes)
	}
}

func TestUnavailableStoreSurfacesError(t *testing.T) {
	cfg := Config{
		Scheme:     "http",
		Host:       "127.0.0.1",
		Port:       "1",
		Collection: "cobol_requirements",
		Timeout:    200 * time.Millisecond,
	}
	cfg.applyDefaults()
	client, err := New(context.Background(), cfg)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	defer client.Close()

	if client.Available() {
		t.Fatalf("expected client unavailable")
	}
	_, queryErr := client.Query(context.Background(), []float32{0.1}, 5, QueryOptions{})
	if !errors.Is(queryErr, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", queryErr)
	}
}
