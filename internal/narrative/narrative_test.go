package narrative

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/mhollis/appraisal-engine/internal/valuation"
)

type stubCaller struct {
	responses []string
	errs      []error
	calls     int
	prompts   []string
}

func (s *stubCaller) GenerateJSON(_ context.Context, prompt string) (string, error) {
	idx := s.calls
	s.calls++
	s.prompts = append(s.prompts, prompt)
	var err error
	if idx < len(s.errs) {
		err = s.errs[idx]
	}
	resp := ""
	if idx < len(s.responses) {
		resp = s.responses[idx]
	}
	return resp, err
}

func (s *stubCaller) ModelName() string { return "stub-model" }

func newTestGenerator(c Caller) *Generator {
	g := NewGenerator(c, slog.New(slog.DiscardHandler))
	g.sleep = func(time.Duration) {}
	return g
}

func sampleResult() valuation.Result {
	return valuation.Result{
		ValuationLow:  700000,
		ValuationHigh: 790000,
		Confidence:    0.9,
		AdjustedComparables: []valuation.AdjustedComparable{
			{ID: "c1", SalePrice: 750000, AdjustedPrice: 757500, AdjustmentFactor: 1.01, NormalizedWeight: 0.5},
			{ID: "c2", SalePrice: 720000, AdjustedPrice: 727200, AdjustmentFactor: 1.01, NormalizedWeight: 0.5, IsOutlier: true},
		},
		MarketTrends: valuation.MarketTrends{MedianPrice: 742350, PricePerSqm: 3374},
	}
}

const goodJSON = `{"summary":"The range is supported by two recent sales.","key_factors":["recency"],"caveats":["small sample"]}`

func TestGenerateSuccess(t *testing.T) {
	stub := &stubCaller{responses: []string{goodJSON}}
	g := newTestGenerator(stub)

	out, err := g.Generate(context.Background(), valuation.SubjectDetails{PropertyType: "house"}, sampleResult())
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if out.Summary == "" || len(out.KeyFactors) != 1 {
		t.Fatalf("unexpected output: %+v", out)
	}
	if stub.calls != 1 {
		t.Fatalf("calls = %d, want 1", stub.calls)
	}

	prompt := stub.prompts[0]
	for _, want := range []string{"house", "700000", "790000", "1 flagged as price outliers"} {
		if !strings.Contains(prompt, want) {
			t.Fatalf("prompt missing %q:\n%s", want, prompt)
		}
	}
}

func TestGenerateStripsCodeFences(t *testing.T) {
	stub := &stubCaller{responses: []string{"```json\n" + goodJSON + "\n```"}}
	g := newTestGenerator(stub)

	out, err := g.Generate(context.Background(), valuation.SubjectDetails{PropertyType: "house"}, sampleResult())
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if out.Summary == "" {
		t.Fatal("fenced JSON not parsed")
	}
}

func TestGenerateRetriesMalformedJSON(t *testing.T) {
	stub := &stubCaller{responses: []string{"not json", goodJSON}}
	g := newTestGenerator(stub)

	out, err := g.Generate(context.Background(), valuation.SubjectDetails{PropertyType: "house"}, sampleResult())
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if stub.calls != 2 {
		t.Fatalf("calls = %d, want 2", stub.calls)
	}
	if !strings.Contains(stub.prompts[1], "not valid JSON") {
		t.Fatal("retry prompt missing feedback")
	}
	if out.Summary == "" {
		t.Fatal("missing summary after retry")
	}
}

func TestGenerateValidationExhaustsRetries(t *testing.T) {
	empty := `{"summary":"","key_factors":[]}`
	stub := &stubCaller{responses: []string{empty, empty, empty}}
	g := newTestGenerator(stub)

	_, err := g.Generate(context.Background(), valuation.SubjectDetails{PropertyType: "house"}, sampleResult())
	if err == nil {
		t.Fatal("expected validation failure")
	}
	if stub.calls != 3 {
		t.Fatalf("calls = %d, want 3", stub.calls)
	}
}

func TestGenerateRetriesServerErrors(t *testing.T) {
	stub := &stubCaller{
		errs:      []error{errors.New("status 500 server error"), nil},
		responses: []string{"", goodJSON},
	}
	g := newTestGenerator(stub)

	if _, err := g.Generate(context.Background(), valuation.SubjectDetails{PropertyType: "house"}, sampleResult()); err != nil {
		t.Fatalf("generate: %v", err)
	}
	if stub.calls != 2 {
		t.Fatalf("calls = %d, want 2", stub.calls)
	}
}

func TestGenerateClientErrorDoesNotRetry(t *testing.T) {
	stub := &stubCaller{errs: []error{errors.New("status 400 bad request")}}
	g := newTestGenerator(stub)

	if _, err := g.Generate(context.Background(), valuation.SubjectDetails{PropertyType: "house"}, sampleResult()); err == nil {
		t.Fatal("expected transport failure")
	}
	if stub.calls != 1 {
		t.Fatalf("calls = %d, want 1", stub.calls)
	}
}

func TestClassifyTransportError(t *testing.T) {
	cases := []struct {
		err  error
		want failureClass
	}{
		{context.DeadlineExceeded, failureTimeout},
		{errors.New("status 429 too many requests"), failureRateLimit},
		{errors.New("status 400 bad request"), failureClient},
		{errors.New("connection reset"), failureServer},
	}
	for _, tc := range cases {
		if got := classifyTransportError(tc.err); got != tc.want {
			t.Fatalf("classify(%v) = %d, want %d", tc.err, got, tc.want)
		}
	}
}
