package discord

import "strings"

// ParseCommand splits "g!start 5s ; 1 ; title" into the command name and the
// raw argument text. ok is false when content does not start with prefix.
func ParseCommand(content, prefix string) (name, rest string, ok bool) {
	if prefix == "" || !strings.HasPrefix(content, prefix) {
		return "", "", false
	}
	body := strings.TrimPrefix(content[len(prefix):], " ")
	if body == "" {
		return "", "", false
	}

	end := strings.IndexAny(body, " \n")
	if end == -1 {
		return strings.ToLower(body), "", true
	}
	return strings.ToLower(body[:end]), body[end+1:], true
}

// SplitArgs splits rest on delimiter into exactly n arguments, padding with
// empty strings. With joinExcess the extra arguments are folded into the
// last one, otherwise they are dropped.
func SplitArgs(rest, delimiter string, n int, joinExcess bool) []string {
	out := make([]string, 0, n)
	if strings.TrimSpace(rest) != "" {
		for _, arg := range strings.Split(rest, delimiter) {
			out = append(out, strings.Trim(arg, " \t"))
		}
	}

	if len(out) > n {
		if joinExcess {
			last := strings.Join(out[n-1:], delimiter+" ")
			out = append(out[:n-1], last)
		} else {
			out = out[:n]
		}
	}
	for len(out) < n {
		out = append(out, "")
	}
	return out
}
