package valuation

import (
	"math"
	"time"
)

// computeWeight derives the raw influence weight of a comparable from
// similarity, recency and distance. Sales older than the recency cap all
// receive the floor weight, as do comparables beyond the distance cap.
// When the input is absent the flat default stands in for the component.
// Flagged outliers keep a reduced share of their weight rather than being
// excluded. No normalization happens here.
func computeWeight(c Comparable, asOf time.Time, p Policy) float64 {
	w := clamp01(c.SimilarityScore/100) * p.SimilarityWeight

	if c.SaleDate != nil {
		months := math.Min(float64(monthsBetween(*c.SaleDate, asOf)), p.RecencyCapMonths)
		w += (1 - months/p.RecencyCapMonths) * p.RecencyWeight
	} else {
		w += p.RecencyDefault
	}

	if c.DistanceKm != nil {
		d := math.Min(math.Max(*c.DistanceKm, 0), p.DistanceCapKm)
		w += (1 - d/p.DistanceCapKm) * p.DistanceWeight
	} else {
		w += p.DistanceDefault
	}

	if c.IsOutlier {
		w *= p.OutlierDiscount
	}
	return w
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
