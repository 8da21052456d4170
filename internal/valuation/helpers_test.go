package valuation

import (
	"math"
	"testing"
	"time"
)

func intPtr(v int) *int             { return &v }
func floatPtr(v float64) *float64   { return &v }
func timePtr(v time.Time) *time.Time { return &v }

func approx(t *testing.T, name string, got, want float64) {
	t.Helper()
	if math.Abs(got-want) > 1e-9 {
		t.Fatalf("%s = %v, want %v", name, got, want)
	}
}

var testAsOf = time.Date(2026, 6, 15, 0, 0, 0, 0, time.UTC)

func houseSubject() *SubjectDetails {
	return &SubjectDetails{
		PropertyType: "house",
		Bedrooms:     intPtr(3),
		Bathrooms:    floatPtr(2),
		LandSize:     floatPtr(500),
		FloorArea:    floatPtr(220),
		YearBuilt:    intPtr(2010),
	}
}
