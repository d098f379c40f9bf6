package slots

import "strings"

// NormalizeValue collapses the sentinel spellings of "no value" produced by
// model output. Returns the trimmed value and false when the input means
// the slot is absent: empty, "null", or "any".
func NormalizeValue(v string) (string, bool) {
	t := strings.TrimSpace(v)
	switch strings.ToLower(t) {
	case "", "null", "any":
		return "", false
	}
	return t, true
}
