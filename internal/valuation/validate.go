package valuation

import "strings"

// validate rejects requests the pipeline cannot price and returns the
// working set: a copy of the comparables that carry a positive sale price.
// Comparables without a usable price do not participate in any later stage
// and do not appear in the audit trail.
func validate(req Request) ([]Comparable, error) {
	if req.Subject == nil {
		return nil, invalidInput("subject property details are required")
	}
	if strings.TrimSpace(req.Subject.PropertyType) == "" {
		return nil, invalidInput("subject property type is required")
	}
	if len(req.Comparables) == 0 {
		return nil, invalidInput("at least one comparable sale is required")
	}

	valid := make([]Comparable, 0, len(req.Comparables))
	for _, c := range req.Comparables {
		if c.SalePrice > 0 {
			valid = append(valid, c)
		}
	}
	if len(valid) == 0 {
		return nil, invalidInput("no comparable has a usable sale price")
	}
	return valid, nil
}
