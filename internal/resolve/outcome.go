package resolve

// Kind labels what a match resolved to.
type Kind string

const (
	KindState    Kind = "State"
	KindDistrict Kind = "District"
)

// Sentinel district used when resolution stops at the state tier.
const (
	AllDistrictsCode = "-1"
	AllDistrictsName = "All Districts"
)

// Location is a fully resolved place to query stock for.
type Location struct {
	StateCode    string `json:"state_code"`
	StateName    string `json:"state_name"`
	DistrictCode string `json:"district_code"`
	DistrictName string `json:"district_name"`
}

// AllDistricts reports whether the location covers a whole state.
func (l Location) AllDistricts() bool {
	return l.DistrictCode == AllDistrictsCode
}

// Candidate is a district that plausibly matches an ambiguous query.
type Candidate struct {
	Kind      Kind   `json:"type"`
	Name      string `json:"name"`
	Code      string `json:"code"`
	StateCode string `json:"state_code"`
	StateName string `json:"state_name"`
	Score     int    `json:"score"`
}

// Outcome is the result of resolving a location query. It is exactly one of
// Resolved, Ambiguous or NotFound; callers must type-switch on all three.
type Outcome interface {
	outcome()
}

// Resolved carries an unambiguous location.
type Resolved struct {
	Location Location
}

// Ambiguous carries up to MaxCandidates candidates, best first.
type Ambiguous struct {
	Candidates []Candidate
}

// NotFound carries the query that matched nothing.
type NotFound struct {
	Query string
}

func (Resolved) outcome()  {}
func (Ambiguous) outcome() {}
func (NotFound) outcome()  {}

// OutcomeName returns a short label for logs and metrics.
func OutcomeName(o Outcome) string {
	switch o.(type) {
	case Resolved:
		return "resolved"
	case Ambiguous:
		return "ambiguous"
	case NotFound:
		return "not_found"
	default:
		return "unknown"
	}
}
