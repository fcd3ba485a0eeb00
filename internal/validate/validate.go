// Package validate performs structural validation of one rule-document
// section before the Pattern Compiler and Condition builder ever see it.
// Validation failures are structured (section index + message, spec §4.2)
// and never fatal to the process — they are routed back to whoever
// submitted the rule-set update.
package validate

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/modwiki/automod/internal/pattern"
	"github.com/modwiki/automod/internal/yamldoc"
	"gopkg.in/yaml.v3"
)

// Issue is one validation failure, carrying the section index it came
// from so a Rule-Set Loader can report "section 3: ...".
type Issue struct {
	Section int
	Message string
}

func (i Issue) Error() string {
	return fmt.Sprintf("section %d: %s", i.Section, i.Message)
}

// Error aggregates every Issue found while validating one section. A Loader
// stops at the first section with a non-empty Error.
type Error struct {
	Issues []Issue
}

func (e *Error) Error() string {
	parts := make([]string, len(e.Issues))
	for i, is := range e.Issues {
		parts[i] = is.Error()
	}
	return strings.Join(parts, "; ")
}

// knownConfigKeys are the non-match-key keys a rule section may carry.
var knownConfigKeys = map[string]bool{
	"standard": true, "type": true, "priority": true,
	"reports_threshold": true, "is_reply": true, "author_is_submitter": true,
	"ignore_blockquotes": true, "body_min_length": true, "body_max_length": true,
	"modifiers": true, "user_conditions": true,
	"action": true, "report_reason": true, "report": true,
	"comment": true, "modmail": true, "modmail_subject": true,
	"message": true, "message_subject": true,
	"link_flair_text": true, "link_flair_class": true,
	"user_flair_text": true, "user_flair_class": true, "overwrite_user_flair": true,
	"set_options": true, "moderators_exempt": true,
	// Standard-condition-only key; harmless on a rule (ignored there).
	"name": true,
}

var validUserAttrs = map[string]bool{
	"account_age": true, "combined_karma": true, "comment_karma": true,
	"is_gold": true, "link_karma": true, "must_satisfy": true, "rank": true,
}

var intClauseRe = regexp.MustCompile(`^((==?|<|>) )?-?\d+$`)
var rankClauseRe = regexp.MustCompile(`^((==?|<|>) )?(user|contributor|moderator)$`)

var validActions = map[string]bool{"approve": true, "remove": true, "spam": true, "report": true}
var validTypes = map[string]bool{"submission": true, "comment": true, "both": true}
var validSetOptions = map[string]bool{"nsfw": true, "contest": true, "sticky": true}

// Section validates one rule-document section (already lowercased). idx is
// the section's position in the document, for error reporting.
func Section(idx int, sec yamldoc.Section) error {
	var issues []Issue
	add := func(format string, args ...interface{}) {
		issues = append(issues, Issue{Section: idx, Message: fmt.Sprintf(format, args...)})
	}

	seenMatchKeys := map[string]bool{}

	for _, e := range sec.Entries {
		if isEmptyRecursively(e.Value) {
			add("key %q: value must not be empty", e.Key)
			continue
		}

		if knownConfigKeys[e.Key] {
			validateConfigValue(e.Key, e.Value, add)
			continue
		}

		if e.Key == "check_shadowbanned" {
			add("key %q is a runtime flag and must not appear in rule YAML", e.Key)
			continue
		}

		key := pattern.ParseKey(e.Key)
		if !pattern.IsMatchKey(e.Key) {
			add("unrecognized key %q: not a configuration key, standard/type key, or match-key", e.Key)
			continue
		}
		for _, t := range key.Targets {
			if !pattern.IsValidTarget(t) {
				add("match-key %q: unknown target %q", e.Key, t)
			}
		}
		seenMatchKeys[e.Key] = true
	}

	if modsNode, ok := sec.Get("modifiers"); ok {
		validateModifiers(idx, modsNode, seenMatchKeys, &issues)
	}

	if len(issues) > 0 {
		return &Error{Issues: issues}
	}
	return nil
}

func validateConfigValue(key string, v *yaml.Node, add func(string, ...interface{})) {
	switch key {
	case "type":
		var s string
		if err := v.Decode(&s); err != nil || !validTypes[strings.ToLower(s)] {
			add("type must be one of submission, comment, both")
		}
	case "action":
		var s string
		if err := v.Decode(&s); err != nil || !validActions[strings.ToLower(s)] {
			add("action must be one of approve, remove, spam, report")
		}
	case "set_options":
		opts, err := yamldoc.DecodeStringList(v)
		if err != nil {
			add("set_options must be a string or list of strings")
			return
		}
		for _, o := range opts {
			if !validSetOptions[strings.ToLower(o)] {
				add("set_options: unknown option %q", o)
			}
		}
	case "priority", "reports_threshold", "body_min_length", "body_max_length":
		var n int
		if v.Kind != yaml.ScalarNode || v.Decode(&n) != nil {
			add("key %q must be an integer", key)
		}
	case "is_reply", "author_is_submitter", "ignore_blockquotes", "overwrite_user_flair", "moderators_exempt":
		var b bool
		if v.Kind != yaml.ScalarNode || v.Decode(&b) != nil {
			add("key %q must be a boolean", key)
		}
	case "user_conditions":
		validateUserConditions(v, add)
	}
}

func validateUserConditions(v *yaml.Node, add func(string, ...interface{})) {
	if v.Kind != yaml.MappingNode {
		add("user_conditions must be a mapping")
		return
	}
	for i := 0; i+1 < len(v.Content); i += 2 {
		attr := strings.ToLower(v.Content[i].Value)
		val := v.Content[i+1]
		if !validUserAttrs[attr] {
			add("user_conditions: unknown attribute %q", attr)
			continue
		}
		if attr == "is_gold" {
			var b bool
			if val.Kind != yaml.ScalarNode || val.Decode(&b) != nil {
				add("user_conditions.is_gold must be a boolean")
			}
			continue
		}
		var s string
		if err := val.Decode(&s); err != nil {
			add("user_conditions[%s]: expected a string value", attr)
			continue
		}
		switch attr {
		case "must_satisfy":
			ls := strings.ToLower(strings.TrimSpace(s))
			if ls != "any" && ls != "all" {
				add("user_conditions.must_satisfy must be any or all")
			}
		case "rank":
			if !rankClauseRe.MatchString(strings.TrimSpace(s)) {
				add("user_conditions.rank: %q does not match an operator-prefixed rank", s)
			}
		default:
			if !intClauseRe.MatchString(strings.TrimSpace(s)) {
				add("user_conditions[%s]: %q does not match an operator-prefixed integer", attr, s)
			}
		}
	}
}

func validateModifiers(idx int, v *yaml.Node, matchKeys map[string]bool, issues *[]Issue) {
	add := func(format string, args ...interface{}) {
		*issues = append(*issues, Issue{Section: idx, Message: fmt.Sprintf(format, args...)})
	}

	switch v.Kind {
	case yaml.SequenceNode, yaml.ScalarNode:
		toks, err := yamldoc.DecodeStringList(v)
		if err != nil {
			add("modifiers: %v", err)
			return
		}
		checkTokenList(toks, "modifiers", add)
	case yaml.MappingNode:
		for i := 0; i+1 < len(v.Content); i += 2 {
			mk := strings.ToLower(v.Content[i].Value)
			if !matchKeys[mk] {
				add("modifiers: key %q does not correspond to a match-key in this rule", mk)
				continue
			}
			toks, err := yamldoc.DecodeStringList(v.Content[i+1])
			if err != nil {
				add("modifiers[%s]: %v", mk, err)
				continue
			}
			checkTokenList(toks, fmt.Sprintf("modifiers[%s]", mk), add)
		}
	default:
		add("modifiers must be a list or a mapping")
	}
}

func checkTokenList(toks []string, context string, add func(string, ...interface{})) {
	matchTypeCount := 0
	for _, t := range toks {
		t = strings.ToLower(strings.TrimSpace(t))
		switch t {
		case "case-sensitive", "regex", "inverse":
		case "full-exact", "full-text", "includes", "includes-word", "starts-with", "ends-with":
			matchTypeCount++
		default:
			add("%s: unrecognized modifier token %q", context, t)
		}
	}
	if matchTypeCount > 1 {
		add("%s: at most one match-type modifier may be specified", context)
	}
}

func isEmptyRecursively(v *yaml.Node) bool {
	switch v.Kind {
	case yaml.ScalarNode:
		return strings.TrimSpace(v.Value) == "" && v.Tag != "!!bool" && v.Tag != "!!int" && v.Tag != "!!float"
	case yaml.SequenceNode:
		if len(v.Content) == 0 {
			return true
		}
		for _, c := range v.Content {
			if isEmptyRecursively(c) {
				return true
			}
		}
		return false
	case yaml.MappingNode:
		if len(v.Content) == 0 {
			return true
		}
		for _, c := range v.Content {
			if isEmptyRecursively(c) {
				return true
			}
		}
		return false
	}
	return false
}
