// Package narrative turns a valuation result into a short written summary
// via an LLM. The engine never depends on this package; narratives are an
// optional presentation-side add-on and the service degrades cleanly when
// no API key is configured.
package narrative

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/mhollis/appraisal-engine/internal/valuation"
)

const maxAttempts = 3

// Output is the structured narrative returned by the model.
type Output struct {
	Summary    string   `json:"summary"`
	KeyFactors []string `json:"key_factors"`
	Caveats    []string `json:"caveats"`
}

type Generator struct {
	caller Caller
	logger *slog.Logger
	sleep  func(time.Duration)
}

func NewGenerator(caller Caller, logger *slog.Logger) *Generator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Generator{caller: caller, logger: logger, sleep: time.Sleep}
}

func (g *Generator) ModelName() string { return g.caller.ModelName() }

// Generate asks the model for a narrative over the result, retrying
// transient transport failures and malformed content up to three times.
func (g *Generator) Generate(ctx context.Context, subject valuation.SubjectDetails, result valuation.Result) (Output, error) {
	prompt := buildPrompt(subject, result)

	feedback := ""
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		fullPrompt := prompt
		if feedback != "" {
			fullPrompt += "\n\n" + feedback
		}

		start := time.Now()
		raw, err := g.caller.GenerateJSON(ctx, fullPrompt)
		if err != nil {
			class := classifyTransportError(err)
			g.logger.Warn("narrative attempt failed",
				"attempt", attempt, "elapsed_ms", time.Since(start).Milliseconds(), "error", err)
			if class != failureClient && attempt < maxAttempts {
				g.sleep(backoffDelay(attempt))
				continue
			}
			return Output{}, fmt.Errorf("narrative transport failure: %w", err)
		}

		clean := stripCodeFences(raw)
		var out Output
		if err := json.Unmarshal([]byte(clean), &out); err != nil {
			g.logger.Warn("narrative response not valid JSON", "attempt", attempt, "error", err)
			if attempt < maxAttempts {
				feedback = "Your previous response was not valid JSON. Return valid JSON only."
				continue
			}
			return Output{}, fmt.Errorf("narrative json parse: %w", err)
		}
		if err := validateOutput(out); err != nil {
			g.logger.Warn("narrative response failed validation", "attempt", attempt, "error", err)
			if attempt < maxAttempts {
				feedback = fmt.Sprintf("Your response failed validation: %s. Fix and return valid JSON only.", err)
				continue
			}
			return Output{}, fmt.Errorf("narrative validation: %w", err)
		}
		return out, nil
	}
	return Output{}, errors.New("narrative generation failed after retries")
}

func validateOutput(out Output) error {
	if strings.TrimSpace(out.Summary) == "" {
		return errors.New("summary is empty")
	}
	if len(out.KeyFactors) == 0 {
		return errors.New("key_factors is empty")
	}
	return nil
}

func buildPrompt(subject valuation.SubjectDetails, result valuation.Result) string {
	var b strings.Builder
	b.WriteString("Write a short appraisal narrative for the valuation below.\n")
	b.WriteString("Respond with JSON: {\"summary\": string, \"key_factors\": [string], \"caveats\": [string]}.\n")
	b.WriteString("The summary is 2-4 sentences. Key factors name what drove the range. ")
	b.WriteString("Caveats name data weaknesses (small sample, outliers, stale sales).\n\n")

	fmt.Fprintf(&b, "Subject: %s", subject.PropertyType)
	if subject.Bedrooms != nil {
		fmt.Fprintf(&b, ", %d bed", *subject.Bedrooms)
	}
	if subject.Bathrooms != nil {
		fmt.Fprintf(&b, ", %g bath", *subject.Bathrooms)
	}
	if subject.FloorArea != nil {
		fmt.Fprintf(&b, ", %.0f sqm floor area", *subject.FloorArea)
	}
	if subject.LandSize != nil {
		fmt.Fprintf(&b, ", %.0f sqm land", *subject.LandSize)
	}
	if subject.YearBuilt != nil {
		fmt.Fprintf(&b, ", built %d", *subject.YearBuilt)
	}
	b.WriteString("\n")

	fmt.Fprintf(&b, "Estimated range: %.0f to %.0f (confidence %.2f)\n", result.ValuationLow, result.ValuationHigh, result.Confidence)
	fmt.Fprintf(&b, "Market median of adjusted sale prices: %.0f; price per sqm: %.0f\n",
		result.MarketTrends.MedianPrice, result.MarketTrends.PricePerSqm)

	outliers := 0
	for _, c := range result.AdjustedComparables {
		if c.IsOutlier {
			outliers++
		}
	}
	fmt.Fprintf(&b, "Comparables used: %d (%d flagged as price outliers)\n", len(result.AdjustedComparables), outliers)
	for _, c := range result.AdjustedComparables {
		fmt.Fprintf(&b, "- %s: sold %.0f, adjusted %.0f (factor %.3f, weight %.3f, outlier %t)\n",
			c.ID, c.SalePrice, c.AdjustedPrice, c.AdjustmentFactor, c.NormalizedWeight, c.IsOutlier)
	}
	return b.String()
}
