// Package lexicon loads the keyword packs that drive candidate plausibility,
// button role classification and the text confidence factor. Packs are YAML
// keyed by language tag; the embedded default can be replaced by a file.
// All regular expressions are compiled once in Load.
package lexicon

import (
	_ "embed"
	"fmt"
	"os"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/hazyhaar/cmpmap/consent"
)

//go:embed packs.yaml
var defaultPacks []byte

// DefaultLanguages is the pack selection used when none is configured.
var DefaultLanguages = []string{"en", "de", "fr", "es"}

// Pack is one language's vocabulary.
type Pack struct {
	Lang            string              `yaml:"-"`
	ConsentKeywords []string            `yaml:"consent_keywords"`
	NoticeKeywords  []string            `yaml:"notice_keywords"`
	ControlKeywords []string            `yaml:"control_keywords"`
	TextKeywords    []string            `yaml:"text_keywords"`
	ActionKeywords  []string            `yaml:"action_keywords"`
	Roles           map[string][]string `yaml:"roles"`
	DefaultAll      struct {
		All    []string `yaml:"all"`
		Accept []string `yaml:"accept"`
		Reject []string `yaml:"reject"`
	} `yaml:"default_all"`
}

type packFile struct {
	Packs map[string]*Pack `yaml:"packs"`
}

// Family is a compiled role pattern union.
type Family struct {
	Role    consent.Role
	Pattern *regexp.Regexp
}

// Lexicon is the compiled, read-only view over the selected packs.
type Lexicon struct {
	packs    []*Pack
	families []Family

	allWords    []string
	acceptWords []string
	rejectWords []string
}

// Default compiles the embedded packs for langs (DefaultLanguages if empty).
func Default(langs ...string) (*Lexicon, error) {
	return Load(defaultPacks, langs...)
}

// LoadFile compiles packs from a YAML file.
func LoadFile(path string, langs ...string) (*Lexicon, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("lexicon: read %s: %w", path, err)
	}
	return Load(data, langs...)
}

// Load compiles packs from YAML data. Unknown language tags are an error.
func Load(data []byte, langs ...string) (*Lexicon, error) {
	var f packFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("lexicon: decode: %w", err)
	}
	if len(f.Packs) == 0 {
		return nil, fmt.Errorf("lexicon: no packs defined")
	}
	if len(langs) == 0 {
		for _, l := range DefaultLanguages {
			if _, ok := f.Packs[l]; ok {
				langs = append(langs, l)
			}
		}
	}

	lx := &Lexicon{}
	phrases := make(map[consent.Role][]string)
	for _, lang := range langs {
		p, ok := f.Packs[lang]
		if !ok || p == nil {
			return nil, fmt.Errorf("lexicon: unknown language %q", lang)
		}
		p.Lang = lang
		lowerAll(p)
		lx.packs = append(lx.packs, p)
		for _, r := range consent.Roles {
			phrases[r] = append(phrases[r], p.Roles[string(r)]...)
		}
		lx.allWords = append(lx.allWords, p.DefaultAll.All...)
		lx.acceptWords = append(lx.acceptWords, p.DefaultAll.Accept...)
		lx.rejectWords = append(lx.rejectWords, p.DefaultAll.Reject...)
	}

	for _, r := range consent.Roles {
		if len(phrases[r]) == 0 {
			continue
		}
		re, err := compileFamily(phrases[r])
		if err != nil {
			return nil, fmt.Errorf("lexicon: role %s: %w", r, err)
		}
		lx.families = append(lx.families, Family{Role: r, Pattern: re})
	}
	return lx, nil
}

// wordEdge is a Unicode-aware stand-in for \b, which RE2 only defines for
// ASCII and which never matches around symbols such as "×".
const wordEdgeStart = `(?:^|[^\p{L}\p{N}_])`
const wordEdgeEnd = `(?:[^\p{L}\p{N}_]|$)`

func compileFamily(phrases []string) (*regexp.Regexp, error) {
	alts := make([]string, 0, len(phrases))
	seen := make(map[string]bool, len(phrases))
	for _, p := range phrases {
		p = strings.TrimSpace(p)
		if p == "" || seen[p] {
			continue
		}
		seen[p] = true
		alts = append(alts, strings.Join(strings.Fields(p), `\s+`))
	}
	return regexp.Compile(`(?i)` + wordEdgeStart + `(?:` + strings.Join(alts, "|") + `)` + wordEdgeEnd)
}

func lowerAll(p *Pack) {
	for _, list := range []*[]string{
		&p.ConsentKeywords, &p.NoticeKeywords, &p.ControlKeywords,
		&p.TextKeywords, &p.ActionKeywords,
		&p.DefaultAll.All, &p.DefaultAll.Accept, &p.DefaultAll.Reject,
	} {
		for i, w := range *list {
			(*list)[i] = strings.ToLower(strings.TrimSpace(w))
		}
	}
}

// Packs returns the selected packs in configuration order.
func (l *Lexicon) Packs() []*Pack { return l.packs }

// Languages returns the selected language tags.
func (l *Lexicon) Languages() []string {
	out := make([]string, len(l.packs))
	for i, p := range l.packs {
		out[i] = p.Lang
	}
	return out
}

// Families returns the compiled role unions in priority order.
func (l *Lexicon) Families() []Family { return l.families }

// CountIn counts how many of words occur as substrings of lower.
func CountIn(lower string, words []string) int {
	n := 0
	for _, w := range words {
		if w != "" && strings.Contains(lower, w) {
			n++
		}
	}
	return n
}

// ContainsAny reports whether any of words occurs in lower.
func ContainsAny(lower string, words []string) bool {
	for _, w := range words {
		if w != "" && strings.Contains(lower, w) {
			return true
		}
	}
	return false
}

// ConsentHits is the best per-language count of consent keywords in lower.
func (l *Lexicon) ConsentHits(lower string) int {
	best := 0
	for _, p := range l.packs {
		if n := CountIn(lower, p.ConsentKeywords); n > best {
			best = n
		}
	}
	return best
}

// HasNotice reports whether lower contains substantial consent wording.
func (l *Lexicon) HasNotice(lower string) bool {
	for _, p := range l.packs {
		if ContainsAny(lower, p.NoticeKeywords) {
			return true
		}
	}
	return false
}

// HasControlWord reports whether lower names a consent control.
func (l *Lexicon) HasControlWord(lower string) bool {
	for _, p := range l.packs {
		if ContainsAny(lower, p.ControlKeywords) {
			return true
		}
	}
	return false
}

// Matches reports whether text matches the role family r.
func (l *Lexicon) Matches(r consent.Role, text string) bool {
	for _, f := range l.families {
		if f.Role == r {
			return f.Pattern.MatchString(text)
		}
	}
	return false
}

// DefaultAllRole applies the "all + verb" fallback. ok is false when the
// text does not contain an "all" word with a known verb.
func (l *Lexicon) DefaultAllRole(lower string) (consent.Role, bool) {
	if !ContainsAny(lower, l.allWords) {
		return "", false
	}
	if ContainsAny(lower, l.acceptWords) {
		return consent.RoleAccept, true
	}
	if ContainsAny(lower, l.rejectWords) {
		return consent.RoleReject, true
	}
	return "", false
}

// DetectLanguage returns the tag of the pack whose consent vocabulary best
// covers lower, or the first pack's tag when nothing matches.
func (l *Lexicon) DetectLanguage(lower string) string {
	if len(l.packs) == 0 {
		return ""
	}
	best, bestScore := l.packs[0].Lang, 0.0
	for _, p := range l.packs {
		words := append(append([]string{}, p.TextKeywords...), p.ActionKeywords...)
		if len(words) == 0 {
			continue
		}
		score := float64(CountIn(lower, words)) / float64(len(words))
		if score > bestScore {
			best, bestScore = p.Lang, score
		}
	}
	return best
}
