//go:build integration

package tests

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/mhollis/appraisal-engine/internal/httpapi"
	"github.com/mhollis/appraisal-engine/internal/narrative"
	"github.com/mhollis/appraisal-engine/internal/store"
	"github.com/mhollis/appraisal-engine/internal/valuation"
)

type fixedNarrator struct{}

func (fixedNarrator) Generate(context.Context, valuation.SubjectDetails, valuation.Result) (narrative.Output, error) {
	return narrative.Output{
		Summary:    "The estimate is anchored by three recent sales of similar houses.",
		KeyFactors: []string{"high similarity scores", "recent sale dates"},
		Caveats:    []string{"small comparable set"},
	}, nil
}

func (fixedNarrator) ModelName() string { return "fixture-model" }

// startServer boots the full HTTP stack on a random port and waits for the
// health route to answer.
func startServer(t *testing.T) string {
	t.Helper()

	st, err := store.Open(":memory:")
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	s := httpapi.NewServer(valuation.NewEngine(valuation.DefaultPolicy()), st, fixedNarrator{}, slog.New(slog.DiscardHandler))

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	srv := &http.Server{Handler: s.Router()}
	go func() { _ = srv.Serve(ln) }()
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	})

	base := "http://" + ln.Addr().String()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		resp, err := http.Get(base + "/api/v1/health")
		if err == nil {
			resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return base
			}
		}
		time.Sleep(50 * time.Millisecond)
	}
	t.Fatal("server did not become healthy")
	return ""
}

func requestBody() []byte {
	asOf := time.Date(2026, 6, 15, 0, 0, 0, 0, time.UTC)
	sale := func(monthsAgo int) *time.Time {
		d := asOf.AddDate(0, -monthsAgo, 0)
		return &d
	}
	intp := func(v int) *int { return &v }
	floatp := func(v float64) *float64 { return &v }

	req := valuation.Request{
		Subject: &valuation.SubjectDetails{
			PropertyType: "house",
			Bedrooms:     intp(3),
			FloorArea:    floatp(140),
		},
		Comparables: []valuation.Comparable{
			{ID: "c1", Address: "14 Birch Ave", PropertyType: "house", Bedrooms: intp(3), FloorArea: floatp(135), SalePrice: 750000, SimilarityScore: 92, SaleDate: sale(2), DistanceKm: floatp(1.2)},
			{ID: "c2", Address: "3 Elm Ct", PropertyType: "house", Bedrooms: intp(4), FloorArea: floatp(155), SalePrice: 820000, SimilarityScore: 84, SaleDate: sale(5), DistanceKm: floatp(2.8)},
			{ID: "c3", Address: "77 Pine Rd", PropertyType: "house", Bedrooms: intp(3), FloorArea: floatp(128), SalePrice: 705000, SimilarityScore: 78, SaleDate: sale(9), DistanceKm: floatp(4.1)},
		},
		AsOf: asOf,
	}
	b, _ := json.Marshal(req)
	return b
}

func TestFullAppraisalFlow(t *testing.T) {
	base := startServer(t)

	// Stateless valuation.
	resp, err := http.Post(base+"/api/v1/valuations", "application/json", bytes.NewReader(requestBody()))
	if err != nil {
		t.Fatalf("valuate: %v", err)
	}
	var env valuation.Envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		t.Fatalf("decode envelope: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK || !env.Success || env.Data == nil {
		t.Fatalf("valuate failed: status %d, envelope %+v", resp.StatusCode, env)
	}
	if env.Data.Confidence <= 0 || env.Data.Confidence > 1 {
		t.Fatalf("confidence out of range: %v", env.Data.Confidence)
	}

	// Persisted appraisal.
	resp, err = http.Post(base+"/api/v1/appraisals", "application/json", bytes.NewReader(requestBody()))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	var created store.Appraisal
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		t.Fatalf("decode created: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusCreated || created.ID == "" {
		t.Fatalf("create failed: status %d, record %+v", resp.StatusCode, created)
	}

	// Same request, so the persisted result must match the stateless run.
	if created.Result == nil || created.Result.BaseValuation != env.Data.BaseValuation {
		t.Fatal("persisted result diverges from stateless result")
	}

	// Narrative.
	resp, err = http.Post(base+"/api/v1/appraisals/"+created.ID+"/narrative", "application/json", nil)
	if err != nil {
		t.Fatalf("narrative: %v", err)
	}
	var narr store.Narrative
	if err := json.NewDecoder(resp.Body).Decode(&narr); err != nil {
		t.Fatalf("decode narrative: %v", err)
	}
	resp.Body.Close()
	if narr.Model != "fixture-model" || narr.Summary == "" {
		t.Fatalf("unexpected narrative: %+v", narr)
	}

	// Report includes the valuation range and the stored narrative.
	resp, err = http.Get(base + "/api/v1/appraisals/" + created.ID + "/report")
	if err != nil {
		t.Fatalf("report: %v", err)
	}
	md, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	for _, want := range []string{
		"# Property Valuation Report",
		"## Comparable Evidence",
		"14 Birch Ave",
		"anchored by three recent sales",
	} {
		if !strings.Contains(string(md), want) {
			t.Fatalf("report missing %q:\n%s", want, md)
		}
	}

	// HTML rendering.
	resp, err = http.Get(base + "/api/v1/appraisals/" + created.ID + "/report?format=html")
	if err != nil {
		t.Fatalf("html report: %v", err)
	}
	html, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if !strings.Contains(string(html), "<table>") || !strings.Contains(string(html), "</html>") {
		t.Fatal("html report not rendered")
	}

	// Listing and deletion.
	resp, err = http.Get(base + "/api/v1/appraisals")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	var page struct {
		Items []store.Summary `json:"items"`
		Total int             `json:"total"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&page); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	resp.Body.Close()
	if page.Total != 1 {
		t.Fatalf("total = %d, want 1", page.Total)
	}

	delReq, _ := http.NewRequest(http.MethodDelete, base+"/api/v1/appraisals/"+created.ID, nil)
	resp, err = http.DefaultClient.Do(delReq)
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("delete status = %d", resp.StatusCode)
	}
}

func TestRejectsGarbageAcrossSurface(t *testing.T) {
	base := startServer(t)

	for _, tc := range []struct {
		path string
		body string
		want int
	}{
		{"/api/v1/valuations", `not json`, http.StatusBadRequest},
		{"/api/v1/valuations", `{"subject":{"property_type":""},"comparables":[{"id":"c1","property_type":"house","sale_price":1,"similarity_score":50}]}`, http.StatusBadRequest},
		{"/api/v1/appraisals", `{"subject":{"property_type":"house"},"comparables":[]}`, http.StatusBadRequest},
	} {
		resp, err := http.Post(base+tc.path, "application/json", strings.NewReader(tc.body))
		if err != nil {
			t.Fatalf("post %s: %v", tc.path, err)
		}
		resp.Body.Close()
		if resp.StatusCode != tc.want {
			t.Fatalf("%s %q: status = %d, want %d", tc.path, tc.body, resp.StatusCode, tc.want)
		}
	}
}
