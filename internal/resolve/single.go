package resolve

import "github.com/sells-group/bloodstock/internal/match"

// Single is the answer of a single-shot resolution. Found is false when
// nothing cleared the bar; Confidence then holds the best score seen.
type Single struct {
	Found      bool
	Kind       Kind
	Name       string
	Code       string
	StateCode  string // districts only
	StateName  string // districts only
	Confidence int
}

// ResolveSingle is the best-effort, one-answer resolution used outside the
// pipeline. It accepts a district above SingleDistrictThreshold and never
// reports ambiguity.
func (r *Resolver) ResolveSingle(query string) Single {
	stateScore := 0
	if s, ok := match.BestMatch(query, r.states); ok {
		if s.Score > StateThreshold {
			return Single{
				Found:      true,
				Kind:       KindState,
				Name:       s.Name,
				Code:       s.Code,
				Confidence: s.Score,
			}
		}
		stateScore = s.Score
	}

	var best Single
	for _, stateCode := range r.stateCodes {
		d, ok := match.BestMatch(query, r.districts[stateCode])
		if !ok || d.Score <= best.Confidence {
			continue
		}
		best = Single{
			Kind:       KindDistrict,
			Name:       d.Name,
			Code:       d.Code,
			StateCode:  stateCode,
			StateName:  r.h.States[stateCode],
			Confidence: d.Score,
		}
	}

	if best.Confidence > SingleDistrictThreshold {
		best.Found = true
		return best
	}

	return Single{Confidence: max(stateScore, best.Confidence)}
}
