package resolve

import (
	"strings"

	"github.com/sells-group/bloodstock/internal/model"
)

// BloodGroup maps free text such as "O+" or "A Positive" to a blood group
// code from the cached vocabulary. Without a cached vocabulary the fixed
// enumeration is tried, then the input is passed through unchanged.
func (r *Resolver) BloodGroup(text string) string {
	if len(r.groups) == 0 {
		if g, ok := model.ParseBloodGroup(text); ok {
			return string(g)
		}
		return text
	}
	return containsLookup(text, r.groups, r.h.BloodGroups)
}

// BloodComponent maps free text such as "Whole Blood" to a blood component
// code. Empty input stays empty; an empty vocabulary passes input through.
func (r *Resolver) BloodComponent(text string) string {
	if text == "" || len(r.components) == 0 {
		return text
	}
	return containsLookup(text, r.components, r.h.BloodComponents)
}

// containsLookup returns the first code, in sorted code order, whose name
// contains text or is contained in it (case-insensitive). Unmatched text is
// returned as is.
func containsLookup(text string, codes []string, names map[string]string) string {
	q := strings.ToLower(strings.TrimSpace(text))
	if q == "" {
		return text
	}
	for _, code := range codes {
		name := strings.ToLower(names[code])
		if name == "" {
			continue
		}
		if strings.Contains(name, q) || strings.Contains(q, name) {
			return code
		}
	}
	return text
}
