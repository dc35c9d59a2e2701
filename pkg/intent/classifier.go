// Package intent classifies free-form queries against per-intent pattern
// tables and turns the result into a declarative query plan.
//
// Classification is a pure function of the query and the static tables:
// no I/O, no LLM calls, stable across invocations.
package intent

import "strings"

// matchFloor is the score implied by a single pattern match; matchCeiling
// caps full coverage. The classifier never claims certainty.
const (
	matchFloor   = 0.5
	matchCeiling = 0.9
)

// Classifier scores queries against the static pattern tables.
type Classifier struct {
	tables []patternTable
}

// NewClassifier creates a classifier with the default pattern tables.
func NewClassifier() *Classifier {
	return &Classifier{tables: defaultTables()}
}

// Classify determines the intent and confidence for a query.
// Returns (Unmatched, UnmatchedConfidence) when zero patterns match
// across all intents; that outcome must not be coerced into a default
// intent, since it drives the orchestrator's escalation path.
func (c *Classifier) Classify(query string) (string, float64) {
	lower := strings.ToLower(query)

	best := ""
	bestScore := 0.0
	for _, table := range c.tables {
		matched := 0
		for _, pattern := range table.patterns {
			if pattern.MatchString(lower) {
				matched++
			}
		}
		if matched == 0 {
			continue
		}
		score := matchFloor + (float64(matched)/float64(len(table.patterns)))*0.4
		if score > matchCeiling {
			score = matchCeiling
		}
		// Ties break to the lexicographically smaller intent name so the
		// result is stable regardless of table ordering.
		if score > bestScore || (score == bestScore && table.intent < best) {
			best = table.intent
			bestScore = score
		}
	}

	if best == "" {
		return Unmatched, UnmatchedConfidence
	}
	return best, bestScore
}

// Analyze runs the full chain: classification, entity and filter
// extraction, and plan building. The result is immutable once returned.
func (c *Classifier) Analyze(query string) *Classification {
	name, confidence := c.Classify(query)
	if name == Unmatched {
		return &Classification{
			Intent:     Unmatched,
			Confidence: confidence,
			Entities:   map[string]*string{},
			Filters:    map[string]any{},
		}
	}

	entities := ExtractEntities(query, name, c.slotsFor(name))
	filters := ExtractFilters(query, name)
	return &Classification{
		Intent:     name,
		Confidence: confidence,
		Entities:   entities,
		Filters:    filters,
		Plan:       BuildPlan(name, entities, filters),
	}
}

// Intents returns the known intent names in table order.
func (c *Classifier) Intents() []string {
	names := make([]string, 0, len(c.tables))
	for _, table := range c.tables {
		names = append(names, table.intent)
	}
	return names
}

// PlanFor returns the plan built for an intent with empty extraction,
// used by the routes listing.
func (c *Classifier) PlanFor(name string) []PlanStep {
	slots := c.slotsFor(name)
	entities := make(map[string]*string, len(slots))
	for _, slot := range slots {
		entities[slot] = nil
	}
	return BuildPlan(name, entities, map[string]any{})
}

func (c *Classifier) slotsFor(name string) []string {
	for _, table := range c.tables {
		if table.intent == name {
			return table.slots
		}
	}
	return nil
}
