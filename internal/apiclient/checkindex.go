package apiclient

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/jonesrussell/index-checker/internal/models"
)

// ErrUnknownResponseShape is returned when a check-index response carries
// neither domain_groups nor results.
var ErrUnknownResponseShape = errors.New("check-index response has neither domain_groups nor results")

// ResponseKind tells which shape a check-index response had.
type ResponseKind int

const (
	KindGrouped ResponseKind = iota + 1
	KindFlat
)

func (k ResponseKind) String() string {
	switch k {
	case KindGrouped:
		return "grouped"
	case KindFlat:
		return "flat"
	default:
		return "unknown"
	}
}

// CheckIndexResponse is the decoded check-index body. Exactly one of Groups
// (KindGrouped) or Results (KindFlat) is populated.
type CheckIndexResponse struct {
	Kind     ResponseKind
	Groups   map[string][]models.CheckedURL
	CheckIDs map[string]int64
	Results  []models.CheckedURL
}

func (r *CheckIndexResponse) UnmarshalJSON(data []byte) error {
	var raw struct {
		DomainGroups   map[string][]models.CheckedURL `json:"domain_groups"`
		DomainCheckIDs map[string]int64               `json:"domain_check_ids"`
		Results        *[]models.CheckedURL           `json:"results"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("decode check-index response: %w", err)
	}

	switch {
	case raw.DomainGroups != nil:
		*r = CheckIndexResponse{Kind: KindGrouped, Groups: raw.DomainGroups, CheckIDs: raw.DomainCheckIDs}
	case raw.Results != nil:
		*r = CheckIndexResponse{Kind: KindFlat, Results: *raw.Results}
	default:
		return ErrUnknownResponseShape
	}
	return nil
}

// Normalize returns the results as one flat list. Grouped responses are
// flattened in domain order, keeping each group's own order.
func (r *CheckIndexResponse) Normalize() []models.CheckedURL {
	if r.Kind == KindFlat {
		return r.Results
	}

	domains := make([]string, 0, len(r.Groups))
	total := 0
	for d, results := range r.Groups {
		domains = append(domains, d)
		total += len(results)
	}
	sort.Strings(domains)

	out := make([]models.CheckedURL, 0, total)
	for _, d := range domains {
		out = append(out, r.Groups[d]...)
	}
	return out
}
