package intent

import (
	"regexp"
	"strings"
)

var (
	doubleQuoted = regexp.MustCompile(`"([^"]+)"`)
	singleQuoted = regexp.MustCompile(`'([^']+)'`)

	categoryRegexes = []*regexp.Regexp{
		regexp.MustCompile(`\bin\s+(?:the\s+)?([a-z][\w&+\-]*)\s+(?:category|track)\b`),
		regexp.MustCompile(`\b(?:category|track)\s+([a-z][\w&+\-]*)\b`),
	}

	// Person patterns run against the original-case query; capitalization
	// is the signal that distinguishes a name from ordinary words.
	personByRegex         = regexp.MustCompile(`\b(?:by|from)\s+([A-Z][\w.\-]*(?:\s+[A-Z][\w.\-]*)*)`)
	personPossessiveRegex = regexp.MustCompile(`\b([A-Z][\w.\-]+(?:\s+[A-Z][\w.\-]+)*)['’]s\b`)

	keywordRegex = regexp.MustCompile(`(?i)\b(?:about|related to|on)\s+(.+?)[?.!]*\s*$`)
)

// ExtractEntities pulls structured values out of the query for the given
// intent. Every slot named by the intent is present in the result;
// unmatched slots are nil, never empty strings.
func ExtractEntities(query, intentName string, slots []string) map[string]*string {
	entities := make(map[string]*string, len(slots))
	for _, slot := range slots {
		entities[slot] = nil
	}

	for _, slot := range slots {
		switch slot {
		case "title":
			if title := extractQuotedTitle(query); title != "" {
				entities[slot] = &title
			}
		case "category":
			if category := extractCategory(query); category != "" {
				entities[slot] = &category
			}
		case "person":
			if person := extractPerson(query); person != "" {
				entities[slot] = &person
			}
		case "keyword":
			// A quoted title supersedes free-text keywords.
			if extractQuotedTitle(query) != "" {
				continue
			}
			if keyword := extractKeyword(query); keyword != "" {
				entities[slot] = &keyword
			}
		}
	}

	return entities
}

// extractQuotedTitle returns the content of the first quoted substring
// verbatim, or "" when the query has none.
func extractQuotedTitle(query string) string {
	if m := doubleQuoted.FindStringSubmatch(query); len(m) > 1 {
		return m[1]
	}
	if m := singleQuoted.FindStringSubmatch(query); len(m) > 1 {
		return m[1]
	}
	return ""
}

// extractCategory pulls a category name from "in <CATEGORY> category" or
// "track <CATEGORY>" phrases and upper-cases it.
func extractCategory(query string) string {
	lower := strings.ToLower(query)
	for _, re := range categoryRegexes {
		if m := re.FindStringSubmatch(lower); len(m) > 1 {
			return strings.ToUpper(m[1])
		}
	}
	return ""
}

// extractPerson pulls a person name from "by <Name>" or "<Name>'s"
// possessive phrases.
func extractPerson(query string) string {
	if m := personByRegex.FindStringSubmatch(query); len(m) > 1 {
		return m[1]
	}
	if m := personPossessiveRegex.FindStringSubmatch(query); len(m) > 1 {
		return m[1]
	}
	return ""
}

// extractKeyword pulls free text after "about", "related to", or "on".
func extractKeyword(query string) string {
	if m := keywordRegex.FindStringSubmatch(query); len(m) > 1 {
		return strings.TrimSpace(m[1])
	}
	return ""
}
