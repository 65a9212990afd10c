// Package normalize cleans and validates raw observation text before it
// reaches the knowledge base adapter.
package normalize

import "regexp"

const minLength = 3

var (
	disallowedChars = regexp.MustCompile(`[^A-Za-z0-9 .,!?;:()'"-]`)
	runsOfSpace      = regexp.MustCompile(`\s+`)
	runsOfDots       = regexp.MustCompile(`\.{3,}`)
	runsOfBangs      = regexp.MustCompile(`!{2,}`)
	runsOfQuestions  = regexp.MustCompile(`\?{2,}`)
	alphaRe          = regexp.MustCompile(`[A-Za-z]`)
)

// Normalize cleans raw observation text. It returns ok=false when the input
// is too short, too punctuation-heavy, or otherwise unusable.
func Normalize(raw string) (cleaned string, ok bool) {
	if len(raw) < minLength {
		return "", false
	}

	s := runsOfSpace.ReplaceAllString(raw, " ")
	s = disallowedChars.ReplaceAllString(s, "")
	s = runsOfDots.ReplaceAllString(s, "...")
	s = runsOfBangs.ReplaceAllString(s, "!")
	s = runsOfQuestions.ReplaceAllString(s, "?")
	s = trimSpace(s)

	if len(s) < minLength {
		return "", false
	}
	if alphaRatio(s) < 0.3 {
		return "", false
	}
	return s, true
}

func trimSpace(s string) string {
	start, end := 0, len(s)
	for start < end && s[start] == ' ' {
		start++
	}
	for end > start && s[end-1] == ' ' {
		end--
	}
	return s[start:end]
}

func alphaRatio(s string) float64 {
	if len(s) == 0 {
		return 0
	}
	alpha := len(alphaRe.FindAllString(s, -1))
	return float64(alpha) / float64(len(s))
}
