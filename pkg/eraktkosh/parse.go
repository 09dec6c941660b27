package eraktkosh

import (
	"encoding/json"
	"fmt"
	"html"
	"regexp"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/bloodstock/internal/model"
)

// Select element ids on the stock availability page.
const (
	stateSelect     = "stateCode"
	districtSelect  = "distList"
	groupSelect     = "bgType"
	componentSelect = "bcType"
)

var (
	optionRe     = regexp.MustCompile(`(?is)<option\b([^>]*)>(.*?)</option>`)
	valueAttrRe  = regexp.MustCompile(`(?is)\bvalue\s*=\s*(?:"([^"]*)"|'([^']*)'|([^\s>]+))`)
	tagRe        = regexp.MustCompile(`<[^>]+>`)
	whitespaceRe = regexp.MustCompile(`\s+`)
)

// selectBody returns the inner HTML of the <select> with the given id, or
// "" if the page has none.
func selectBody(page, id string) string {
	re := regexp.MustCompile(`(?is)<select\b[^>]*\bid\s*=\s*["']?` + regexp.QuoteMeta(id) + `\b[^>]*>(.*?)</select>`)
	m := re.FindStringSubmatch(page)
	if len(m) < 2 {
		return ""
	}
	return m[1]
}

// parseSelect extracts code -> label pairs from the named <select>.
func parseSelect(page, id string) map[string]string {
	return parseOptions(selectBody(page, id))
}

// parseDistricts reads a district list response, which is either a bare run
// of <option> tags or a page fragment holding the district <select>.
func parseDistricts(body string) map[string]string {
	if inner := selectBody(body, districtSelect); inner != "" {
		return parseOptions(inner)
	}
	return parseOptions(body)
}

// parseOptions extracts code -> label pairs from a run of <option> tags,
// skipping the portal's placeholder entries.
func parseOptions(fragment string) map[string]string {
	out := make(map[string]string)
	for _, m := range optionRe.FindAllStringSubmatch(fragment, -1) {
		value := strings.TrimSpace(attrValue(m[1]))
		label := cleanText(m[2])
		if isPlaceholder(value, label) {
			continue
		}
		out[value] = label
	}
	return out
}

func attrValue(attrs string) string {
	m := valueAttrRe.FindStringSubmatch(attrs)
	if m == nil {
		return ""
	}
	for _, v := range m[1:] {
		if v != "" {
			return html.UnescapeString(v)
		}
	}
	return ""
}

func isPlaceholder(value, label string) bool {
	return value == "" || value == "-1" || value == "-2" ||
		label == "" || strings.Contains(label, "Select")
}

// cleanText strips tags, decodes entities and collapses whitespace.
func cleanText(s string) string {
	s = tagRe.ReplaceAllString(s, " ")
	s = html.UnescapeString(s)
	s = strings.ReplaceAll(s, "\u00a0", " ")
	return strings.TrimSpace(whitespaceRe.ReplaceAllString(s, " "))
}

// stockPage is one DataTables page returned by the stock endpoint.
type stockPage struct {
	RecordsTotal flexInt `json:"recordsTotal"`
	Data         [][]any `json:"data"`
}

// flexInt accepts both 12 and "12"; the portal is not consistent.
type flexInt int

func (f *flexInt) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "" || s == "null" {
		*f = 0
		return nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return eris.Wrapf(err, "eraktkosh: parse count %q", s)
	}
	*f = flexInt(n)
	return nil
}

func parseStockPage(body []byte) (*stockPage, error) {
	trimmed := strings.TrimSpace(string(body))
	if trimmed == "" {
		return &stockPage{}, nil
	}
	var p stockPage
	if err := json.Unmarshal([]byte(trimmed), &p); err != nil {
		return nil, eris.Wrap(err, "eraktkosh: unmarshal stock page")
	}
	return &p, nil
}

// rows converts table rows into results. Columns are serial number, blood
// bank, category, availability, last updated; shorter rows are dropped.
func (p *stockPage) rows() []model.StockResult {
	out := make([]model.StockResult, 0, len(p.Data))
	for _, row := range p.Data {
		if len(row) < 5 {
			continue
		}
		out = append(out, model.StockResult{
			BloodBankName: cellText(row[1]),
			Category:      cellText(row[2]),
			Availability:  cellText(row[3]),
			LastUpdated:   cellText(row[4]),
		})
	}
	return out
}

func cellText(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return cleanText(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		return cleanText(fmt.Sprint(t))
	}
}
