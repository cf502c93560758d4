// Package duration parses human-written giveaway durations such as "3d4h".
package duration

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	apperrors "giveaway-bot/internal/common/errors"
)

var (
	ErrEmpty            = errors.New("duration is empty")
	ErrDisallowedChars  = errors.New("disallowed characters in duration")
	ErrNoPrecedingValue = errors.New("unit has no preceding value")
	ErrDuplicateUnit    = errors.New("duplicate unit in duration")
	ErrInvalidWinners   = errors.New("invalid winner amount")
	ErrTooLarge         = errors.New("duration is too large")
)

// MaxSeconds is the longest accepted duration, one hundred years.
const MaxSeconds int64 = 100 * 365 * 86400

var multipliers = map[rune]int64{
	's': 1,
	'm': 60,
	'h': 3600,
	'd': 86400,
	'w': 604800,
}

// Parse converts input into a number of seconds. A plain integer is taken as
// seconds; otherwise the input is a sequence of <digits><unit> pairs with
// units s, m, h, d, w, each unit at most once.
func Parse(input string) (int64, error) {
	trimmed := strings.TrimSpace(input)
	if trimmed == "" {
		return 0, malformed(ErrEmpty, "Duration must not be empty")
	}
	if n, err := strconv.ParseInt(trimmed, 10, 64); err == nil && n >= 0 {
		if n > MaxSeconds {
			return 0, tooLarge(trimmed)
		}
		return n, nil
	} else if errors.Is(err, strconv.ErrRange) && !strings.HasPrefix(trimmed, "-") {
		return 0, tooLarge(trimmed)
	}

	lower := strings.ToLower(trimmed)

	var disallowed []string
	for _, r := range lower {
		if r == ' ' || (r >= '0' && r <= '9') {
			continue
		}
		if _, ok := multipliers[r]; ok {
			continue
		}
		disallowed = append(disallowed, string(r))
	}
	if len(disallowed) > 0 {
		return 0, malformed(ErrDisallowedChars, fmt.Sprintf(
			"Disallowed characters found in duration: `%s`\nMust have digit(s) followed by s, m, h, d or w",
			strings.Join(disallowed, ""),
		))
	}

	var (
		total  int64
		digits strings.Builder
		seen   = make(map[rune]bool, len(multipliers))
	)
	for _, r := range lower {
		switch {
		case r >= '0' && r <= '9':
			digits.WriteRune(r)
		case r == ' ':
			// a space ends any pending number
			digits.Reset()
		default:
			if digits.Len() == 0 {
				return 0, malformed(ErrNoPrecedingValue, fmt.Sprintf(
					"Unit must be immediately preceded by an integer\nFound unit `%c` with no preceding integer", r,
				))
			}
			if seen[r] {
				return 0, malformed(ErrDuplicateUnit, fmt.Sprintf(
					"Cannot have more than 1 match of same unit in duration\nFound unit `%c` twice in `%s`", r, trimmed,
				))
			}
			seen[r] = true
			n, err := strconv.ParseInt(digits.String(), 10, 64)
			if err != nil || n > MaxSeconds/multipliers[r] {
				return 0, tooLarge(trimmed)
			}
			total += n * multipliers[r]
			if total > MaxSeconds {
				return 0, tooLarge(trimmed)
			}
			digits.Reset()
		}
	}
	return total, nil
}

// ParseWinners accepts "3" or "3w" and returns a positive winner count.
func ParseWinners(token string) (int, error) {
	t := strings.TrimSpace(token)
	t = strings.TrimSuffix(strings.ToLower(t), "w")
	n, err := strconv.Atoi(t)
	if err != nil || n < 1 {
		return 0, apperrors.Wrap(ErrInvalidWinners, apperrors.ErrCodeInvalidWinners,
			fmt.Sprintf("Winner amount must be a positive integer, got `%s` instead", token)).
			WithDetail("input", token)
	}
	return n, nil
}

func tooLarge(input string) error {
	return malformed(ErrTooLarge, fmt.Sprintf("Duration `%s` is too large, the limit is 100 years", input))
}

func malformed(cause error, message string) error {
	return apperrors.Wrap(cause, apperrors.ErrCodeMalformedDuration, message)
}
