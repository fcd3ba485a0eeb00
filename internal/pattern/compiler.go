package pattern

import (
	"fmt"
	"regexp"
	"strings"
)

// maxPatternInputBytes bounds the total size of the values folded into one
// alternation group. Rule YAML is user-authored; RE2 (Go's regexp) is
// already linear-time, so this cap exists only to keep pathological rule
// documents (megabytes of alternatives) from blowing up compile time and
// memory, not to guard against catastrophic backtracking.
const maxPatternInputBytes = 64 * 1024

// ErrCompile wraps a regexp compilation failure with the match-key that
// produced it, so a Rule-Set Loader can report which section failed.
type ErrCompile struct {
	Key string
	Err error
}

func (e *ErrCompile) Error() string {
	return fmt.Sprintf("match-key %q: %v", e.Key, e.Err)
}

func (e *ErrCompile) Unwrap() error { return e.Err }

// Modifiers is the parsed form of one match-key's modifier tokens.
type Modifiers struct {
	MatchType     MatchType
	CaseSensitive bool
	RawRegex      bool // "regex" token: values are used verbatim, unescaped
	Inverse       bool // "inverse" token
}

// recognizedMatchTypes is used to enforce "at most one match-type token".
var recognizedMatchTypes = map[string]MatchType{
	"full-exact":    MatchFullExact,
	"full-text":     MatchFullText,
	"includes":      MatchIncludes,
	"includes-word": MatchIncludesWord,
	"starts-with":   MatchStartsWith,
	"ends-with":     MatchEndsWith,
}

// ParseModifiers interprets a match-key's modifier token list. target
// supplies the per-target default match-type when no explicit match-type
// token is present.
func ParseModifiers(tokens []string, target Target) (Modifiers, error) {
	m := Modifiers{MatchType: DefaultMatchType(target)}

	seenMatchType := false
	for _, tok := range tokens {
		tok = strings.ToLower(strings.TrimSpace(tok))
		switch tok {
		case "case-sensitive":
			m.CaseSensitive = true
		case "regex":
			m.RawRegex = true
		case "inverse":
			m.Inverse = true
		default:
			mt, ok := recognizedMatchTypes[tok]
			if !ok {
				return m, fmt.Errorf("unrecognized modifier token %q", tok)
			}
			if seenMatchType {
				return m, fmt.Errorf("at most one match-type modifier may be specified, found a second: %q", tok)
			}
			seenMatchType = true
			m.MatchType = mt
		}
	}
	return m, nil
}

// Compiled is one compiled match-key: the regex to search with (the flags
// implied by the modifiers are inlined into it) and the success polarity
// (match_success in spec terms).
type Compiled struct {
	Key     Key
	Regex   *regexp.Regexp
	Success bool
}

// Compile lowers one match-key and its YAML value(s) into a Compiled
// pattern. values has already been coerced to a list of strings by the
// caller (a single scalar YAML value becomes a one-element list).
func Compile(key Key, values []string, tokens []string) (*Compiled, error) {
	if len(key.Targets) == 0 {
		return nil, fmt.Errorf("match-key %q: no targets", key.Raw)
	}
	for _, t := range key.Targets {
		if !IsValidTarget(t) {
			return nil, fmt.Errorf("match-key %q: unknown target %q", key.Raw, t)
		}
	}

	mods, err := ParseModifiers(tokens, key.Targets[0])
	if err != nil {
		return nil, fmt.Errorf("match-key %q: %w", key.Raw, err)
	}

	group, err := buildGroup(values, key.Targets[0], mods.RawRegex)
	if err != nil {
		return nil, fmt.Errorf("match-key %q: %w", key.Raw, err)
	}

	exprBody := templates[mods.MatchType]
	expr := strings.Replace(exprBody, "V", group, 1)

	flags := "(?s)" // DOTALL, always on
	if !mods.CaseSensitive {
		flags += "i" // CASE_INSENSITIVE unless case-sensitive
	}
	// Go's regexp is always Unicode-aware, matching the spec's UNICODE flag.
	full := flags + expr

	re, err := regexp.Compile(full)
	if err != nil {
		return nil, &ErrCompile{Key: key.Raw, Err: err}
	}

	success := !(key.Invert || mods.Inverse)

	return &Compiled{Key: key, Regex: re, Success: success}, nil
}

// buildGroup folds values into a single "(v1|v2|...)" alternation group,
// escaping each value unless raw is set. For the domain target, the group
// is prefixed with an optional subdomain wildcard so "example.com" also
// matches "www.example.com" and "a.b.example.com".
func buildGroup(values []string, target Target, raw bool) (string, error) {
	total := 0
	parts := make([]string, 0, len(values))
	for _, v := range values {
		total += len(v)
		if total > maxPatternInputBytes {
			return "", fmt.Errorf("match values exceed %d bytes, rejecting to bound compile cost", maxPatternInputBytes)
		}
		if raw {
			parts = append(parts, v)
		} else {
			parts = append(parts, regexp.QuoteMeta(v))
		}
	}

	group := "(" + strings.Join(parts, "|") + ")"
	if target == TargetDomain {
		group = `(?:.*?\.)?` + group
	}
	return group, nil
}
