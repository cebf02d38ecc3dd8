package analysis

import (
	"fmt"
	"sort"
	"strings"

	"github.com/bryanwahyu/mailguard/internal/domain/discovery"
	"github.com/bryanwahyu/mailguard/internal/domain/grading"
)

// Sort order for service listings
type Sort string

const (
	SortDiscovered Sort = ""          // order of discovery
	SortLatest     Sort = "latest"    // most recent lastAccess first
	SortRiskDesc   Sort = "risk_desc" // worst grade first
	SortRiskAsc    Sort = "risk_asc"  // best grade first
)

func ParseSort(s string) (Sort, error) {
	switch v := Sort(strings.ToLower(strings.TrimSpace(s))); v {
	case SortDiscovered, SortLatest, SortRiskDesc, SortRiskAsc:
		return v, nil
	default:
		return "", fmt.Errorf("invalid sort: %s (allowed: latest, risk_desc, risk_asc)", s)
	}
}

// Query filters a service listing. Zero value lists everything.
type Query struct {
	Search string        // case-insensitive company substring
	Grade  grading.Grade // empty for all grades
	Sort   Sort
}

// Services lists discovered services matching q.
func (s *Store) Services(q Query) []discovery.Service {
	all := s.Snapshot().Services
	search := strings.ToLower(strings.TrimSpace(q.Search))

	out := make([]discovery.Service, 0, len(all))
	for _, svc := range all {
		if search != "" && !strings.Contains(strings.ToLower(svc.Company), search) {
			continue
		}
		if q.Grade != "" && svc.Grade != q.Grade {
			continue
		}
		out = append(out, svc)
	}

	switch q.Sort {
	case SortLatest:
		sort.SliceStable(out, func(i, j int) bool { return out[i].LastAccess > out[j].LastAccess })
	case SortRiskDesc:
		sort.SliceStable(out, func(i, j int) bool { return out[i].Grade.Rank() > out[j].Grade.Rank() })
	case SortRiskAsc:
		sort.SliceStable(out, func(i, j int) bool { return out[i].Grade.Rank() < out[j].Grade.Rank() })
	}
	return out
}
