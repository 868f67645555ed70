package prompt

import "strings"

// Trim removes every occurrence of every stop sequence from text and then
// trims surrounding whitespace. Removal repeats until no stop sequence is
// left, since cutting one marker can join the halves of another
// ("UsUser:er:" -> "User:" -> ""). Empty stop sequences are ignored.
//
// The result never contains a stop sequence and Trim is idempotent.
func Trim(text string, stops []string) string {
	for {
		changed := false
		for _, s := range stops {
			if s == "" || !strings.Contains(text, s) {
				continue
			}
			text = strings.ReplaceAll(text, s, "")
			changed = true
		}
		if !changed {
			break
		}
	}
	return strings.TrimSpace(text)
}
