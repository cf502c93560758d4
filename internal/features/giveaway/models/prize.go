package models

import (
	"regexp"
	"strings"
)

const maxThreadName = 100

var (
	rowLine        = regexp.MustCompile(`(?i)^(?:pc|xbox one|ps4|playstation|switch|xbox) \| (r\d{4})$`)
	prizeBoundary  = regexp.MustCompile(`(?i)^(?:restrictions|donated by:? |contact:? )`)
	formattingRune = strings.NewReplacer("_", "", "~", "", "*", "", "`", "")
)

// ExtractPrize reads the prize and the optional row marker (e.g. R4005) from
// an announcement body laid out as
//
//	PC | R4005
//	Weapon Slots
//
//	Restrictions: ...
//
// ok is false when the body does not follow that layout.
func ExtractPrize(description string) (prize, row string, ok bool) {
	text := strings.TrimSpace(formattingRune.Replace(description))
	if text == "" {
		return "", "", false
	}
	lines := strings.Split(text, "\n")

	start := 0
	if m := rowLine.FindStringSubmatch(strings.TrimSpace(lines[0])); m != nil {
		row = strings.ToUpper(m[1])
		start = 1
	}

	for i := start; i < len(lines); i++ {
		if prizeBoundary.MatchString(strings.TrimSpace(lines[i])) {
			prize = strings.TrimSpace(strings.Join(lines[start:i], "\n"))
			return prize, row, true
		}
	}
	return "", "", false
}

// ThreadName names a winner follow-up thread "[row | ]prize | name | id".
func ThreadName(row, prize, winnerName, winnerID string) string {
	parts := make([]string, 0, 4)
	if row != "" {
		parts = append(parts, row)
	}
	if prize != "" {
		parts = append(parts, prize)
	}
	parts = append(parts, winnerName, winnerID)
	name := strings.Join(parts, " | ")

	if r := []rune(name); len(r) > maxThreadName {
		// keep the id, which is how existing tickets are found
		suffix := " | " + winnerID
		keep := maxThreadName - len([]rune(suffix))
		name = string(r[:keep]) + suffix
	}
	return name
}
