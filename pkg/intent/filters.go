package intent

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	largeDisplayRegex = regexp.MustCompile(`\b(?:large|big)\s+(?:display|screen|monitor)\b`)
	displayCountRegex = regexp.MustCompile(`\b(\d+)\s*(?:monitors?|displays?|screens?)\b`)

	// Equipment terms surfaced as a keyword-list filter when present.
	equipmentTerms = []string{"projector", "power", "hdmi", "whiteboard", "ethernet", "adapter", "easel"}
)

// ExtractFilters produces the filter predicate map for an intent.
// Extraction is best-effort and never fails: absent cues leave each
// filter at its default (nil, false, or an empty list).
func ExtractFilters(query, intentName string) map[string]any {
	if intentName != EquipmentLogistics {
		return map[string]any{}
	}

	lower := strings.ToLower(query)
	filters := map[string]any{
		"needs_large_display": false,
		"display_count":       nil,
		"equipment_keywords":  []string{},
	}

	if largeDisplayRegex.MatchString(lower) {
		filters["needs_large_display"] = true
	}
	if m := displayCountRegex.FindStringSubmatch(lower); len(m) > 1 {
		if n, err := strconv.Atoi(m[1]); err == nil {
			filters["display_count"] = n
		}
	}

	var keywords []string
	for _, term := range equipmentTerms {
		if strings.Contains(lower, term) {
			keywords = append(keywords, term)
		}
	}
	if len(keywords) > 0 {
		filters["equipment_keywords"] = keywords
	}

	return filters
}
