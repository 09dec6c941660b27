package model

import "sort"

// Hierarchy is the canonical vocabulary scraped from the stock source.
// It is loaded once at startup and treated as read-only afterwards.
type Hierarchy struct {
	States          map[string]string            `json:"states" yaml:"states"`                     // state code -> name
	Districts       map[string]map[string]string `json:"districts" yaml:"districts"`               // state code -> district code -> name
	BloodGroups     map[string]string            `json:"blood_groups" yaml:"blood_groups"`         // group code -> name
	BloodComponents map[string]string            `json:"blood_components" yaml:"blood_components"` // component code -> name
}

// NewHierarchy returns a Hierarchy with all maps allocated.
func NewHierarchy() *Hierarchy {
	return &Hierarchy{
		States:          make(map[string]string),
		Districts:       make(map[string]map[string]string),
		BloodGroups:     make(map[string]string),
		BloodComponents: make(map[string]string),
	}
}

// Fill allocates any nil maps so callers can index without nil checks.
func (h *Hierarchy) Fill() *Hierarchy {
	if h.States == nil {
		h.States = make(map[string]string)
	}
	if h.Districts == nil {
		h.Districts = make(map[string]map[string]string)
	}
	if h.BloodGroups == nil {
		h.BloodGroups = make(map[string]string)
	}
	if h.BloodComponents == nil {
		h.BloodComponents = make(map[string]string)
	}
	return h
}

// StateCodes returns the state codes in sorted order.
func (h *Hierarchy) StateCodes() []string {
	codes := make([]string, 0, len(h.States))
	for code := range h.States {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}

// DistrictCount returns the total number of districts across all states.
func (h *Hierarchy) DistrictCount() int {
	n := 0
	for _, d := range h.Districts {
		n += len(d)
	}
	return n
}

// SortedCodes returns the keys of a code -> name map in sorted order.
func SortedCodes(m map[string]string) []string {
	codes := make([]string, 0, len(m))
	for code := range m {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}
