// Package resolve maps free-text locations and blood attributes onto the
// canonical codes of a cached hierarchy.
package resolve

import (
	"sort"

	"github.com/sells-group/bloodstock/internal/match"
	"github.com/sells-group/bloodstock/internal/model"
)

// Acceptance thresholds. Scores are compared with strict greater-than.
const (
	StateThreshold          = 80 // state-tier auto resolve
	DistrictCandidateMin    = 60 // district enters the candidate list
	DistrictAutoResolve     = 90 // pipeline: district resolves without asking
	SingleDistrictThreshold = 80 // single-shot: best district accepted
	MaxCandidates           = 3
)

// Resolver resolves queries against one hierarchy. It precomputes the
// ordered choice lists on construction and is read-only afterwards, so a
// single Resolver is safe for concurrent use.
type Resolver struct {
	h          *model.Hierarchy
	states     []match.Choice
	stateCodes []string                  // states with districts, sorted, unknown keys dropped
	districts  map[string][]match.Choice // state code -> ordered districts
	groups     []string                  // blood group codes, sorted
	components []string                  // blood component codes, sorted
}

// New builds a Resolver over h. A nil h behaves like an empty hierarchy.
func New(h *model.Hierarchy) *Resolver {
	if h == nil {
		h = model.NewHierarchy()
	}
	r := &Resolver{
		h:          h,
		states:     match.Choices(h.States),
		districts:  make(map[string][]match.Choice, len(h.Districts)),
		groups:     model.SortedCodes(h.BloodGroups),
		components: model.SortedCodes(h.BloodComponents),
	}
	for code, d := range h.Districts {
		if _, known := h.States[code]; !known {
			continue
		}
		r.stateCodes = append(r.stateCodes, code)
		r.districts[code] = match.Choices(d)
	}
	sort.Strings(r.stateCodes)
	return r
}

// Resolve applies the state-first, then district policy used by the query
// pipeline. Strong district matches resolve directly; mid-confidence
// matches come back as Ambiguous so the user can pick.
func (r *Resolver) Resolve(query string) Outcome {
	if s, ok := match.BestMatch(query, r.states); ok && s.Score > StateThreshold {
		return Resolved{Location: Location{
			StateCode:    s.Code,
			StateName:    s.Name,
			DistrictCode: AllDistrictsCode,
			DistrictName: AllDistrictsName,
		}}
	}

	var (
		candidates []Candidate
		best       Candidate
	)
	for _, stateCode := range r.stateCodes {
		d, ok := match.BestMatch(query, r.districts[stateCode])
		if !ok || d.Score <= DistrictCandidateMin {
			continue
		}
		c := Candidate{
			Kind:      KindDistrict,
			Name:      d.Name,
			Code:      d.Code,
			StateCode: stateCode,
			StateName: r.h.States[stateCode],
			Score:     d.Score,
		}
		candidates = append(candidates, c)
		if c.Score > best.Score {
			best = c
		}
	}

	if best.Score > DistrictAutoResolve {
		return Resolved{Location: Location{
			StateCode:    best.StateCode,
			StateName:    best.StateName,
			DistrictCode: best.Code,
			DistrictName: best.Name,
		}}
	}

	if len(candidates) > 0 {
		sort.SliceStable(candidates, func(i, j int) bool {
			return candidates[i].Score > candidates[j].Score
		})
		if len(candidates) > MaxCandidates {
			candidates = candidates[:MaxCandidates]
		}
		return Ambiguous{Candidates: candidates}
	}

	return NotFound{Query: query}
}
