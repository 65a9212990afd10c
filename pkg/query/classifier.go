package query

import (
	"regexp"
	"strings"
)

type intentPatterns struct {
	intent   Intent
	patterns []*regexp.Regexp
}

// classificationTable is ordered: the first intent with any matching
// pattern wins. The ordering and patterns mirror the trigger table exactly.
var classificationTable = []intentPatterns{
	{
		intent: IntentCurrentStep,
		patterns: compileAll(
			`where am i`,
			`current\W*step`,
			`which step`,
			`my step`,
			`\bcurrent\b`,
			`\bnow\b`,
			`\bposition\b`,
		),
	},
	{
		intent: IntentNextStep,
		patterns: compileAll(
			`next\W*step`,
			`what.*next`,
			`following`,
			`after this`,
			`then what`,
		),
	},
	{
		intent: IntentRequiredTools,
		patterns: compileAll(
			`tools?`,
			`equipment`,
			`what.*need`,
			`required\W*tools`,
			`what.*materials`,
		),
	},
	{
		intent: IntentCompletionStatus,
		patterns: compileAll(
			`progress`,
			`status`,
			`done`,
			`finished`,
			`complete`,
			`how much`,
			`percent`,
		),
	},
	{
		intent: IntentProgressOverview,
		patterns: compileAll(
			`overall`,
			`summary`,
			`overview`,
			`big picture`,
			`total progress`,
		),
	},
	{
		intent: IntentHelp,
		patterns: compileAll(
			`help`,
			`how to`,
			`how do`,
			`explain`,
			`describe`,
			`guide`,
			`assist`,
		),
	},
}

func compileAll(patterns ...string) []*regexp.Regexp {
	compiled := make([]*regexp.Regexp, len(patterns))
	for i, p := range patterns {
		compiled[i] = regexp.MustCompile(p)
	}
	return compiled
}

// Classify maps a raw user query to one of the fixed intents. The match is
// first-wins over the ordered classificationTable; no match yields
// IntentUnknown.
func Classify(rawQuery string) Intent {
	lower := strings.ToLower(rawQuery)
	for _, entry := range classificationTable {
		for _, p := range entry.patterns {
			if p.MatchString(lower) {
				return entry.intent
			}
		}
	}
	return IntentUnknown
}
