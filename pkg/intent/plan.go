package intent

// BuildPlan maps (intent, entities, filters) to an ordered sequence of
// plan steps. It is a pure mapping: the steps describe what to fetch,
// never fetch anything themselves, so the execution layer can change
// independently of classification.
func BuildPlan(intentName string, entities map[string]*string, filters map[string]any) []PlanStep {
	switch intentName {
	case EventOverview:
		return []PlanStep{{
			Operation:    OpGet,
			Endpoint:     "GET /v1/events/current",
			ReturnFields: []string{"name", "description", "start_date", "end_date", "venue"},
		}}

	case EventSchedule:
		return []PlanStep{{
			Operation:    OpList,
			Endpoint:     "GET /v1/events/current/sessions",
			ReturnFields: []string{"title", "starts_at", "ends_at", "room"},
		}}

	case ProjectSearch:
		return []PlanStep{{
			Operation: OpSearch,
			Endpoint:  "GET /v1/projects/search",
			Params: map[string]*string{
				"category": entities["category"],
				"person":   entities["person"],
				"q":        entities["keyword"],
			},
			ReturnFields: []string{"id", "title", "category", "authors"},
		}}

	case ProjectDetails:
		return []PlanStep{
			{
				Operation:    OpGet,
				Endpoint:     "GET /v1/projects",
				Params:       map[string]*string{"title": entities["title"]},
				ReturnFields: []string{"id", "title", "abstract", "category", "authors"},
			},
			{
				Operation:    OpList,
				Endpoint:     "GET /v1/projects/{project_id}/artifacts",
				ReturnFields: []string{"id", "kind", "url"},
			},
		}

	case PersonSearch:
		return []PlanStep{{
			Operation:    OpSearch,
			Endpoint:     "GET /v1/people/search",
			Params:       map[string]*string{"name": entities["person"]},
			ReturnFields: []string{"id", "name", "affiliation", "projects"},
		}}

	case SessionLookup:
		return []PlanStep{{
			Operation: OpSearch,
			Endpoint:  "GET /v1/sessions/search",
			Params: map[string]*string{
				"title":  entities["title"],
				"person": entities["person"],
				"q":      entities["keyword"],
			},
			ReturnFields: []string{"id", "title", "starts_at", "room", "speakers"},
		}}

	case EquipmentLogistics:
		// Logistics reads the external reference table, not the primary
		// entity store.
		return []PlanStep{{
			Operation:    OpFilter,
			Endpoint:     "GET /v1/reference/equipment",
			ReturnFields: []string{"item", "location", "availability"},
		}}

	case ArtifactLookup:
		return []PlanStep{{
			Operation: OpSearch,
			Endpoint:  "GET /v1/artifacts/search",
			Params: map[string]*string{
				"title": entities["title"],
				"q":     entities["keyword"],
			},
			ReturnFields: []string{"id", "kind", "title", "url"},
		}}
	}

	return nil
}
