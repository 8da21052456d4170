// Package report renders a persisted appraisal as a markdown document and,
// via headless Chromium, as a PDF.
package report

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/mhollis/appraisal-engine/internal/store"
	"github.com/mhollis/appraisal-engine/internal/valuation"
)

const comparablesMethodURL = "https://www.investopedia.com/terms/c/comparables.asp"
const iqrMethodURL = "https://www.investopedia.com/terms/i/interquartile-range.asp"

// BuildMarkdown renders the full appraisal report. A nil Result yields a
// stub report stating that no valuation has been computed.
func BuildMarkdown(a store.Appraisal) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Property Valuation Report\n\n")
	fmt.Fprintf(&b, "- Reference: %s\n", sanitize(a.ID))
	fmt.Fprintf(&b, "- Date: %s\n", a.CreatedAt.Format(time.RFC3339))
	fmt.Fprintf(&b, "- Subject: %s\n\n", describeSubject(a.Subject))
	fmt.Fprintf(&b, "%s\n\n", valuation.Disclaimer)

	if a.Result == nil {
		fmt.Fprintf(&b, "> No valuation result is stored for this appraisal.\n")
		return b.String()
	}
	res := *a.Result

	// --- How This Estimate Works ---
	fmt.Fprintf(&b, "## How This Estimate Works\n\n")
	fmt.Fprintf(&b, "This estimate uses the [comparable sales method](%s): recent sales of similar "+
		"properties are adjusted for differences against the subject, then blended into a value range. "+
		"The pipeline runs in order:\n\n", comparablesMethodURL)
	fmt.Fprintf(&b, "1. **Validate** — drop comparables without a positive sale price\n")
	fmt.Fprintf(&b, "2. **Flag outliers** — mark prices outside the [interquartile fence](%s); flagged sales stay in the set at reduced weight\n", iqrMethodURL)
	fmt.Fprintf(&b, "3. **Adjust** — scale each sale price for attribute differences, property-type mismatch and time since sale\n")
	fmt.Fprintf(&b, "4. **Weight** — combine similarity, recency and distance into a per-comparable weight\n")
	fmt.Fprintf(&b, "5. **Aggregate** — blend the weighted median and weighted mean into a base value and spread it into a range\n")
	fmt.Fprintf(&b, "6. **Score confidence** — credit sample size, price agreement and recency\n")
	fmt.Fprintf(&b, "7. **Summarize trends** — unweighted market statistics over the adjusted sales\n\n")

	// --- Valuation ---
	fmt.Fprintf(&b, "## Valuation\n\n")
	fmt.Fprintf(&b, "- Estimated range: **%s to %s**\n", fmtMoney(res.ValuationLow), fmtMoney(res.ValuationHigh))
	fmt.Fprintf(&b, "- Base valuation: %s\n", fmtMoney(res.BaseValuation))
	fmt.Fprintf(&b, "- Confidence: %.2f\n\n", res.Confidence)
	fmt.Fprintf(&b, "---\n\n")

	// --- Comparable Evidence ---
	fmt.Fprintf(&b, "## Comparable Evidence\n\n")
	outliers := 0
	for _, c := range res.AdjustedComparables {
		if c.IsOutlier {
			outliers++
		}
	}
	fmt.Fprintf(&b, "%d comparable sales were used; %d flagged as price outliers. "+
		"Flagged sales are retained at reduced weight rather than removed, so the table below is the complete evidence set.\n\n",
		len(res.AdjustedComparables), outliers)
	fmt.Fprintf(&b, "| ID | Address | Sale Price | Factor | Adjusted Price | Weight | Outlier |\n")
	fmt.Fprintf(&b, "|----|---------|-----------:|-------:|---------------:|-------:|---------|\n")
	for _, c := range res.AdjustedComparables {
		addr := sanitizeCell(c.Address)
		if addr == "" {
			addr = "—"
		}
		fmt.Fprintf(&b, "| %s | %s | %s | %.3f | %s | %.3f | %s |\n",
			sanitizeCell(c.ID), addr, fmtMoney(c.SalePrice), c.AdjustmentFactor,
			fmtMoney(c.AdjustedPrice), c.NormalizedWeight, yesNo(c.IsOutlier))
	}
	fmt.Fprintf(&b, "\n---\n\n")

	// --- Valuation Factors ---
	fmt.Fprintf(&b, "## Valuation Factors\n\n")
	fmt.Fprintf(&b, "Per-attribute unit values derived from the weighted comparables. "+
		"A dash means no comparable carried that attribute.\n\n")
	fmt.Fprintf(&b, "| Factor | Unit Value |\n|--------|----------:|\n")
	writeFactorRow(&b, "Per bedroom", res.Factors.BedroomValue)
	writeFactorRow(&b, "Per sqm of land", res.Factors.LandSizeValue)
	writeFactorRow(&b, "Per sqm of floor area", res.Factors.FloorAreaValue)
	fmt.Fprintf(&b, "\n---\n\n")

	// --- Market Trends ---
	fmt.Fprintf(&b, "## Market Trends\n\n")
	fmt.Fprintf(&b, "- Median adjusted sale price: %s\n", fmtMoney(res.MarketTrends.MedianPrice))
	fmt.Fprintf(&b, "- Price per sqm: %s\n", fmtMoney(res.MarketTrends.PricePerSqm))
	fmt.Fprintf(&b, "- Assumed annual growth: %.1f%%\n\n", res.MarketTrends.AnnualGrowth*100)

	// --- Narrative ---
	if a.Narrative != nil {
		fmt.Fprintf(&b, "---\n\n## Narrative\n\n")
		fmt.Fprintf(&b, "%s\n\n", sanitize(a.Narrative.Summary))
		if len(a.Narrative.KeyFactors) > 0 {
			fmt.Fprintf(&b, "**Key factors**:\n\n")
			for _, k := range a.Narrative.KeyFactors {
				fmt.Fprintf(&b, "- %s\n", sanitize(k))
			}
			fmt.Fprintf(&b, "\n")
		}
		if len(a.Narrative.Caveats) > 0 {
			fmt.Fprintf(&b, "**Caveats**:\n\n")
			for _, c := range a.Narrative.Caveats {
				fmt.Fprintf(&b, "- [!] %s\n", sanitize(c))
			}
			fmt.Fprintf(&b, "\n")
		}
		if a.Narrative.Model != "" {
			fmt.Fprintf(&b, "*Narrative generated by %s.*\n\n", sanitize(a.Narrative.Model))
		}
	}

	fmt.Fprintf(&b, "---\n\n%s\n", valuation.Disclaimer)
	return b.String()
}

func describeSubject(s valuation.SubjectDetails) string {
	parts := []string{sanitize(s.PropertyType)}
	if s.Bedrooms != nil {
		parts = append(parts, fmt.Sprintf("%d bed", *s.Bedrooms))
	}
	if s.Bathrooms != nil {
		parts = append(parts, fmt.Sprintf("%g bath", *s.Bathrooms))
	}
	if s.FloorArea != nil {
		parts = append(parts, fmt.Sprintf("%.0f sqm floor area", *s.FloorArea))
	}
	if s.LandSize != nil {
		parts = append(parts, fmt.Sprintf("%.0f sqm land", *s.LandSize))
	}
	if s.YearBuilt != nil {
		parts = append(parts, fmt.Sprintf("built %d", *s.YearBuilt))
	}
	return strings.Join(parts, ", ")
}

func writeFactorRow(b *strings.Builder, label string, v *float64) {
	if v == nil {
		fmt.Fprintf(b, "| %s | — |\n", label)
		return
	}
	fmt.Fprintf(b, "| %s | %s |\n", label, fmtMoney(*v))
}

func sanitize(s string) string {
	return strings.TrimSpace(strings.ReplaceAll(s, "\n", " "))
}

func sanitizeCell(s string) string {
	s = sanitize(s)
	return strings.ReplaceAll(s, "|", "\\|")
}

// fmtMoney formats an amount rounded to whole units with comma separators
// (e.g. 512345.6 → "$512,346").
func fmtMoney(v float64) string {
	n := int64(math.Round(v))
	if n < 0 {
		return "-" + fmtMoney(-v)
	}
	s := fmt.Sprintf("%d", n)
	if len(s) <= 3 {
		return "$" + s
	}
	var b strings.Builder
	b.WriteByte('$')
	rem := len(s) % 3
	if rem > 0 {
		b.WriteString(s[:rem])
	}
	for i := rem; i < len(s); i += 3 {
		if b.Len() > 1 {
			b.WriteByte(',')
		}
		b.WriteString(s[i : i+3])
	}
	return b.String()
}

func yesNo(v bool) string {
	if v {
		return "yes"
	}
	return "no"
}
