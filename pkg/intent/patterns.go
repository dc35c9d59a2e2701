package intent

import "regexp"

// patternTable holds the ordered, compiled patterns for one intent.
// Patterns are matched against the lower-cased query.
type patternTable struct {
	intent   string
	patterns []*regexp.Regexp
	// entity slots this intent asks the extractor to fill; unmatched
	// slots stay nil so callers can tell "not requested" from "empty".
	slots []string
}

func defaultTables() []patternTable {
	return []patternTable{
		{
			intent: EventOverview,
			patterns: compile(
				`\bwhat is this event\b`,
				`\b(?:about|overview of) (?:this|the) event\b`,
				`\bevent (?:overview|info|information|details)\b`,
				`\bwhat(?:'s| is) (?:happening|going on)\b`,
			),
		},
		{
			intent: EventSchedule,
			patterns: compile(
				`\bschedule\b`,
				`\bagenda\b`,
				`\bwhat time\b`,
				`\bwhen (?:does|do|is|are)\b`,
			),
		},
		{
			intent: ProjectSearch,
			patterns: compile(
				`\b(?:list|show)(?: me)?(?: all)? projects\b`,
				`\b(?:find|search)(?: for)? projects\b`,
				`\bprojects (?:about|on|in|by|related to)\b`,
				`\bwhat projects\b`,
				`\bany projects\b`,
			),
			slots: []string{"category", "person", "keyword"},
		},
		{
			intent: ProjectDetails,
			patterns: compile(
				`\bdetails (?:for|about|on)\b`,
				`\btell me (?:more )?about ["']`,
				`\bmore about\b`,
				`\bdescribe (?:the )?project\b`,
			),
			slots: []string{"title", "keyword"},
		},
		{
			intent: PersonSearch,
			patterns: compile(
				`\b(?:projects?|work|research) by\b`,
				`\bpresented by\b`,
				`\bwho is presenting\b`,
				`['’]s (?:projects?|work|poster|demo)\b`,
			),
			slots: []string{"person"},
		},
		{
			intent: SessionLookup,
			patterns: compile(
				`\bsessions?\b`,
				`\b(?:lightning )?talks?\b`,
				`\bpresentations?\b`,
				`\bworkshops?\b`,
				`\bkeynote\b`,
			),
			slots: []string{"title", "person", "keyword"},
		},
		{
			intent: EquipmentLogistics,
			patterns: compile(
				`\bprojector\b`,
				`\bmonitors?\b`,
				`\bpower(?: outlets?| strips?| supply)?\b`,
				`\bequipment\b`,
				`\b(?:large |big )?(?:displays?|screens?)\b`,
				`\bhdmi\b`,
			),
		},
		{
			intent: ArtifactLookup,
			patterns: compile(
				`\bposters?\b`,
				`\bdemos?\b`,
				`\bslides?\b`,
				`\bartifacts?\b`,
			),
			slots: []string{"title", "keyword"},
		},
	}
}

func compile(exprs ...string) []*regexp.Regexp {
	compiled := make([]*regexp.Regexp, 0, len(exprs))
	for _, expr := range exprs {
		compiled = append(compiled, regexp.MustCompile(expr))
	}
	return compiled
}
