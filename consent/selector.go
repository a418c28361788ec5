package consent

import (
	"encoding/json"
	"fmt"
	"strings"
)

// SelectorValue is a Rule selectors entry: either one selector-union string
// or, for keys like "overlay", a list of them. It marshals accordingly.
type SelectorValue struct {
	one  string
	many []string
	list bool
}

// Single returns a string-valued selector entry.
func Single(sel string) SelectorValue { return SelectorValue{one: sel} }

// List returns a list-valued selector entry.
func List(sels ...string) SelectorValue {
	return SelectorValue{many: append([]string{}, sels...), list: true}
}

// IsList reports whether the entry serialises as a JSON array.
func (v SelectorValue) IsList() bool { return v.list }

// Values returns the list items, or the single string as a one-element slice.
func (v SelectorValue) Values() []string {
	if v.list {
		return append([]string(nil), v.many...)
	}
	if v.one == "" {
		return nil
	}
	return []string{v.one}
}

// String joins the entry into one selector union.
func (v SelectorValue) String() string {
	if v.list {
		return JoinUnion(v.many)
	}
	return v.one
}

// Empty reports whether the entry carries no selector text.
func (v SelectorValue) Empty() bool {
	return strings.TrimSpace(v.String()) == ""
}

func (v SelectorValue) MarshalJSON() ([]byte, error) {
	if v.list {
		if v.many == nil {
			return []byte("[]"), nil
		}
		return json.Marshal(v.many)
	}
	return json.Marshal(v.one)
}

func (v *SelectorValue) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*v = Single(s)
		return nil
	}
	var list []string
	if err := json.Unmarshal(data, &list); err != nil {
		return fmt.Errorf("consent: selector value must be a string or an array of strings: %w", err)
	}
	*v = List(list...)
	return nil
}

// Selectors maps rule keys (banner, acceptButton, overlay, ...) to selectors.
type Selectors map[string]SelectorValue

// Get returns the joined selector union for key, or "".
func (s Selectors) Get(key string) string {
	if v, ok := s[key]; ok {
		return v.String()
	}
	return ""
}

// SplitUnion splits a selector union on top-level commas. Commas inside
// quotes, brackets or parentheses are kept. Alternatives are trimmed and
// empty ones dropped.
func SplitUnion(sel string) []string {
	var (
		out   []string
		depth int
		quote rune
		start int
	)
	for i, r := range sel {
		switch {
		case quote != 0:
			if r == quote {
				quote = 0
			}
		case r == '"' || r == '\'':
			quote = r
		case r == '[' || r == '(':
			depth++
		case r == ']' || r == ')':
			if depth > 0 {
				depth--
			}
		case r == ',' && depth == 0:
			if alt := strings.TrimSpace(sel[start:i]); alt != "" {
				out = append(out, alt)
			}
			start = i + 1
		}
	}
	if alt := strings.TrimSpace(sel[start:]); alt != "" {
		out = append(out, alt)
	}
	return out
}

// JoinUnion joins selectors into one union, dropping duplicates and blanks.
func JoinUnion(sels []string) string {
	seen := make(map[string]bool, len(sels))
	var parts []string
	for _, s := range sels {
		for _, alt := range SplitUnion(s) {
			if !seen[alt] {
				seen[alt] = true
				parts = append(parts, alt)
			}
		}
	}
	return strings.Join(parts, ", ")
}
