// Package grouping groups checked URLs by host and filters them by status.
// Every function is pure.
package grouping

import (
	"net/url"
	"sort"
	"strings"

	"github.com/jonesrussell/index-checker/internal/models"
)

// OtherBucket holds results whose URL has no parsable host.
const OtherBucket = "other"

// FilterStatus selects which results a view shows.
type FilterStatus string

const (
	FilterAll        FilterStatus = "all"
	FilterIndexed    FilterStatus = "indexed"
	FilterNotIndexed FilterStatus = "not_indexed"
	FilterError      FilterStatus = "error"
)

// ParseFilter maps user input to a filter. Unknown values mean FilterAll.
func ParseFilter(raw string) FilterStatus {
	switch f := FilterStatus(strings.ToLower(strings.TrimSpace(raw))); f {
	case FilterIndexed, FilterNotIndexed, FilterError:
		return f
	default:
		return FilterAll
	}
}

// Matches reports whether status passes f.
func (f FilterStatus) Matches(status models.IndexStatus) bool {
	switch f {
	case FilterIndexed:
		return status == models.StatusIndexed
	case FilterNotIndexed:
		return status == models.StatusNotIndexed
	case FilterError:
		return status != models.StatusIndexed && status != models.StatusNotIndexed
	default:
		return true
	}
}

// Counts are per-status totals.
type Counts struct {
	Total      int `json:"total"`
	Indexed    int `json:"indexed"`
	NotIndexed int `json:"not_indexed"`
	Error      int `json:"error"`
}

// Add tallies one status.
func (c *Counts) Add(status models.IndexStatus) {
	c.Total++
	switch status {
	case models.StatusIndexed:
		c.Indexed++
	case models.StatusNotIndexed:
		c.NotIndexed++
	default:
		c.Error++
	}
}

// Group is the results of one host.
type Group struct {
	Domain  string              `json:"domain"`
	Results []models.CheckedURL `json:"results"`
	Counts  Counts              `json:"counts"`
}

// Host returns the host a result is grouped under.
func Host(rawURL string) string {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil || u.Hostname() == "" {
		return OtherBucket
	}
	return strings.ToLower(u.Hostname())
}

// GroupResults groups results by host, keeping input order inside each group.
// Groups are sorted by domain.
func GroupResults(results []models.CheckedURL) []Group {
	index := make(map[string]int)
	groups := make([]Group, 0)

	for _, r := range results {
		host := Host(r.URL)
		i, ok := index[host]
		if !ok {
			i = len(groups)
			index[host] = i
			groups = append(groups, Group{Domain: host})
		}
		groups[i].Results = append(groups[i].Results, r)
		groups[i].Counts.Add(r.Status)
	}

	sort.Slice(groups, func(a, b int) bool { return groups[a].Domain < groups[b].Domain })
	return groups
}

// Apply filters every group by status. Empty groups are dropped unless f is FilterAll.
func Apply(groups []Group, f FilterStatus) []Group {
	out := make([]Group, 0, len(groups))
	for _, g := range groups {
		if f == FilterAll {
			out = append(out, g)
			continue
		}

		filtered := Group{Domain: g.Domain}
		for _, r := range g.Results {
			if f.Matches(r.Status) {
				filtered.Results = append(filtered.Results, r)
				filtered.Counts.Add(r.Status)
			}
		}
		if len(filtered.Results) > 0 {
			out = append(out, filtered)
		}
	}
	return out
}

// Totals sums the counts of every group.
func Totals(groups []Group) Counts {
	var c Counts
	for _, g := range groups {
		c.Total += g.Counts.Total
		c.Indexed += g.Counts.Indexed
		c.NotIndexed += g.Counts.NotIndexed
		c.Error += g.Counts.Error
	}
	return c
}

// Flatten returns the results of groups in group order.
func Flatten(groups []Group) []models.CheckedURL {
	var out []models.CheckedURL
	for _, g := range groups {
		out = append(out, g.Results...)
	}
	return out
}
