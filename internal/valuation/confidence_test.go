package valuation

import "testing"

func TestScoreConfidenceBaseline(t *testing.T) {
	subject := SubjectDetails{PropertyType: "house"}
	comps := []Comparable{
		{PropertyType: "house", SimilarityScore: 80},
		{PropertyType: "house", SimilarityScore: 80},
	}

	got := scoreConfidence(comps, subject, 0, testAsOf, DefaultPolicy())

	// 0.7 + min(2/10,1)*0.1 + 0.8*0.1 + 0.1 (cv=0) + 0 (no dates) + 0.05
	approx(t, "confidence", got, 0.7+0.02+0.08+0.1+0.05)
}

func TestScoreConfidenceRecencyCredit(t *testing.T) {
	subject := SubjectDetails{PropertyType: "house"}
	sold := testAsOf.AddDate(0, -18, 0)
	comps := []Comparable{
		{PropertyType: "house", SimilarityScore: 100, SaleDate: timePtr(sold)},
		{PropertyType: "house", SimilarityScore: 100},
	}

	got := scoreConfidence(comps, subject, 0, testAsOf, DefaultPolicy())

	// Recency averages over dated comparables only: 18 months old gives
	// 0.1 - (18/36)*0.1 = 0.05.
	approx(t, "confidence", got, 0.7+0.02+0.1+0.1+0.05+0.05)
}

func TestScoreConfidenceOutlierPenaltyCap(t *testing.T) {
	subject := SubjectDetails{PropertyType: "house"}
	comps := []Comparable{
		{PropertyType: "house", IsOutlier: true},
		{PropertyType: "house", IsOutlier: true},
	}

	got := scoreConfidence(comps, subject, 0, testAsOf, DefaultPolicy())

	// All comparables flagged; the penalty caps at 0.2.
	approx(t, "confidence", got, 0.7+0.02+0+0.1+0.05-0.2)
}

func TestScoreConfidenceClampedForAdversarialInput(t *testing.T) {
	subject := SubjectDetails{PropertyType: "house"}
	cases := []struct {
		name  string
		comps []Comparable
		cv    float64
	}{
		{"huge similarity", []Comparable{
			{PropertyType: "house", SimilarityScore: 100000},
			{PropertyType: "house", SimilarityScore: 100000},
		}, 0},
		{"negative similarity huge cv", []Comparable{
			{PropertyType: "flat", SimilarityScore: -4000, IsOutlier: true},
			{PropertyType: "flat", SimilarityScore: -4000, IsOutlier: true},
		}, 50},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := scoreConfidence(tc.comps, subject, tc.cv, testAsOf, DefaultPolicy())
			if got < 0 || got > 1 {
				t.Fatalf("confidence %v outside [0,1]", got)
			}
		})
	}
}
