package valuation

import (
	"math"
	"time"
)

// Confidence score credits and penalties. The score starts at
// Policy.BaseConfidence, accumulates the credits below, subtracts the
// outlier penalty and is clamped to [0,1].
const (
	sampleSizeCredit     = 0.1
	sampleSizeSaturation = 10
	similarityCredit     = 0.1
	consistencyCredit    = 0.1
	consistencyCVScale   = 0.5
	recencyCredit        = 0.1
	typeMatchCredit      = 0.05
	outlierPenaltyCap    = 0.2
)

// scoreConfidence derives the 0..1 reliability of the valuation from sample
// quality signals. The recency credit is computed only over comparables that
// carry a sale date and contributes nothing when none do.
func scoreConfidence(comps []Comparable, subject SubjectDetails, cv float64, asOf time.Time, p Policy) float64 {
	total := float64(len(comps))
	if total == 0 {
		return 0
	}

	score := p.BaseConfidence

	score += math.Min(total/sampleSizeSaturation, 1) * sampleSizeCredit

	var simSum float64
	for _, c := range comps {
		simSum += c.SimilarityScore
	}
	score += clamp01(simSum/total/100) * similarityCredit

	score += math.Max(0, consistencyCredit-cv*consistencyCVScale)

	var monthsSum float64
	dated := 0
	for _, c := range comps {
		if c.SaleDate != nil {
			monthsSum += float64(monthsBetween(*c.SaleDate, asOf))
			dated++
		}
	}
	if dated > 0 {
		avgMonths := monthsSum / float64(dated)
		score += math.Max(0, recencyCredit-(avgMonths/p.RecencyCapMonths)*recencyCredit)
	}

	sameType := 0
	outliers := 0
	for _, c := range comps {
		if c.PropertyType == subject.PropertyType {
			sameType++
		}
		if c.IsOutlier {
			outliers++
		}
	}
	score += float64(sameType) / total * typeMatchCredit
	score -= math.Min(float64(outliers)/total, outlierPenaltyCap)

	return clamp(score, 0, 1)
}
