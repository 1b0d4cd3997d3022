package filter

// Non-target disciplines for broad searches.
var disciplineExclusions = []string{
	`front[\s-]?end`,
	`\bui\b`,
	`\bux\b`,
	`security`,
	`\bml\b`,
	`machine learning`,
	`\bai\b`,
	`data scien`,
	`\bqa\b`,
	`quality`,
	`\btest`,
	`\bsdet\b`,
	`manager`,
	`management`,
	`director`,
	`head of`,
	`recruit`,
	`talent`,
}

// DefaultRules returns the built-in source classes. Configuration may
// override any of them by name or add new ones.
func DefaultRules() map[string]Rule {
	return map[string]Rule{
		"swe": {
			Require: []string{
				`\b(senior|sr\.?)\b.*\b(software|backend|back-end|platform)\s+(engineer|developer)\b`,
				`\b(staff|principal)\s+software\s+engineer\b`,
				`\b(senior|sr\.?)\s+(sde|swe)\b`,
				`\bsde\s*(ii|iii|2|3)\b`,
			},
			Forbid: []string{`\b(intern|internship|junior|jr\.?|manager|director)\b`},
		},
		"swe-strict": {
			Require: []string{`\b(senior|sr\.?)\s+software\s+(engineer|developer)\b`},
			Forbid:  []string{`\b(staff|principal|lead|manager|director|intern|junior|jr\.?)\b`},
		},
		"smts": {
			Require: []string{
				`\b(senior|lead)\s+member\s+of\s+technical\s+staff\b`,
				`\b(smts|lmts)\b`,
			},
			Forbid: []string{`\b(intern|manager|director)\b`},
		},
		"broad": {
			SeniorTechnical: true,
			Exclude:         append([]string(nil), disciplineExclusions...),
		},
	}
}
