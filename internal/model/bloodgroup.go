package model

import "strings"

// BloodGroup is a blood group code as used by the stock source.
type BloodGroup string

// Fallback enumeration, used when no blood group vocabulary has been cached.
const (
	BloodGroupAPos      BloodGroup = "11"
	BloodGroupANeg      BloodGroup = "12"
	BloodGroupBPos      BloodGroup = "13"
	BloodGroupBNeg      BloodGroup = "14"
	BloodGroupOPos      BloodGroup = "15"
	BloodGroupONeg      BloodGroup = "16"
	BloodGroupABPos     BloodGroup = "17"
	BloodGroupABNeg     BloodGroup = "18"
	BloodGroupBombayPos BloodGroup = "22"
	BloodGroupBombayNeg BloodGroup = "23"
	BloodGroupAll       BloodGroup = "all"
)

// AllBloodGroups returns every enumerated blood group, "all" last.
func AllBloodGroups() []BloodGroup {
	return []BloodGroup{
		BloodGroupAPos,
		BloodGroupANeg,
		BloodGroupBPos,
		BloodGroupBNeg,
		BloodGroupOPos,
		BloodGroupONeg,
		BloodGroupABPos,
		BloodGroupABNeg,
		BloodGroupBombayPos,
		BloodGroupBombayNeg,
		BloodGroupAll,
	}
}

var bloodGroupLabels = map[BloodGroup]string{
	BloodGroupAPos:      "A+",
	BloodGroupANeg:      "A-",
	BloodGroupBPos:      "B+",
	BloodGroupBNeg:      "B-",
	BloodGroupOPos:      "O+",
	BloodGroupONeg:      "O-",
	BloodGroupABPos:     "AB+",
	BloodGroupABNeg:     "AB-",
	BloodGroupBombayPos: "Bombay+",
	BloodGroupBombayNeg: "Bombay-",
	BloodGroupAll:       "All Blood Groups",
}

// Label returns the display label, e.g. "AB+".
func (g BloodGroup) Label() string {
	if l, ok := bloodGroupLabels[g]; ok {
		return l
	}
	return string(g)
}

// bloodGroupAliases maps compacted spellings (lower-case, no spaces) to codes.
var bloodGroupAliases = func() map[string]BloodGroup {
	m := map[string]BloodGroup{
		"all":             BloodGroupAll,
		"allbloodgroups":  BloodGroupAll,
		"any":             BloodGroupAll,
		"oh+":             BloodGroupBombayPos,
		"oh-":             BloodGroupBombayNeg,
		"hh":              BloodGroupBombayPos,
		"bombayphenotype": BloodGroupBombayPos,
	}
	bases := map[string][2]BloodGroup{
		"a":      {BloodGroupAPos, BloodGroupANeg},
		"b":      {BloodGroupBPos, BloodGroupBNeg},
		"o":      {BloodGroupOPos, BloodGroupONeg},
		"ab":     {BloodGroupABPos, BloodGroupABNeg},
		"bombay": {BloodGroupBombayPos, BloodGroupBombayNeg},
	}
	for base, codes := range bases {
		for _, s := range []string{"+", "+ve", "positive", "pos"} {
			m[base+s] = codes[0]
		}
		for _, s := range []string{"-", "-ve", "negative", "neg"} {
			m[base+s] = codes[1]
		}
	}
	return m
}()

// ParseBloodGroup recognizes common spellings ("O+", "o positive", "AB-ve",
// "Bombay+", "all") and returns the enumerated code.
func ParseBloodGroup(s string) (BloodGroup, bool) {
	key := strings.ToLower(strings.Join(strings.Fields(s), ""))
	if key == "" {
		return "", false
	}
	if g, ok := bloodGroupAliases[key]; ok {
		return g, true
	}
	for _, g := range AllBloodGroups() {
		if string(g) == key {
			return g, true
		}
	}
	return "", false
}
