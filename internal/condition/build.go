package condition

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/modwiki/automod/internal/pattern"
	"github.com/modwiki/automod/internal/yamldoc"
	"gopkg.in/yaml.v3"
)

// Build compiles an already-validated rule section into a Condition.
// yamlSource is the canonical serialization of the section, used as the
// idempotence key in the action log.
func Build(sec yamldoc.Section, yamlSource string) (*Condition, error) {
	c := &Condition{
		YAMLSource:       yamlSource,
		MustSatisfy:      SatisfyAll,
		ModeratorsExempt: true,
	}

	var explicitType string
	inferredSubmission := false
	inferredComment := false

	for _, e := range sec.Entries {
		var err error
		switch e.Key {
		case "type":
			explicitType, err = sec.String("type")
		case "priority":
			n, _, e2 := sec.Int("priority")
			err = e2
			c.Priority = n
		case "reports_threshold":
			n, ok, e2 := sec.Int("reports_threshold")
			err = e2
			if ok {
				c.ReportsThreshold = &n
			}
		case "is_reply":
			b, ok, e2 := sec.Bool("is_reply")
			err = e2
			if ok {
				c.IsReply = &b
			}
		case "author_is_submitter":
			b, ok, e2 := sec.Bool("author_is_submitter")
			err = e2
			if ok {
				c.AuthorIsSubmitter = &b
			}
		case "ignore_blockquotes":
			b, _, e2 := sec.Bool("ignore_blockquotes")
			err = e2
			c.IgnoreBlockquotes = b
		case "body_min_length":
			n, ok, e2 := sec.Int("body_min_length")
			err = e2
			if ok {
				c.BodyMinLength = &n
			}
		case "body_max_length":
			n, ok, e2 := sec.Int("body_max_length")
			err = e2
			if ok {
				c.BodyMaxLength = &n
			}
		case "action":
			s, e2 := sec.String("action")
			err = e2
			c.Action = Action(strings.ToLower(s))
		case "report_reason":
			c.ReportReason, err = sec.String("report_reason")
		case "report":
			c.Report, err = sec.String("report")
		case "comment":
			c.Comment, err = sec.String("comment")
		case "modmail":
			c.Modmail, err = sec.String("modmail")
		case "modmail_subject":
			c.ModmailSubject, err = sec.String("modmail_subject")
		case "message":
			c.Message, err = sec.String("message")
		case "message_subject":
			c.MessageSubject, err = sec.String("message_subject")
		case "link_flair_text":
			c.LinkFlairText, err = sec.String("link_flair_text")
		case "link_flair_class":
			c.LinkFlairClass, err = sec.String("link_flair_class")
		case "user_flair_text":
			c.UserFlairText, err = sec.String("user_flair_text")
		case "user_flair_class":
			c.UserFlairClass, err = sec.String("user_flair_class")
		case "overwrite_user_flair":
			b, _, e2 := sec.Bool("overwrite_user_flair")
			err = e2
			c.OverwriteUserFlair = b
		case "moderators_exempt":
			b, ok, e2 := sec.Bool("moderators_exempt")
			err = e2
			if ok {
				c.ModeratorsExempt = b
			}
		case "set_options":
			c.SetOptions, err = sec.StringList("set_options")
		case "user_conditions":
			err = buildUserConditions(sec, c)
		case "standard", "name":
			// resolved/consumed upstream by the Rule-Set Loader / Standards Cache.
		default:
			if pattern.IsMatchKey(e.Key) {
				err = buildMatchEntry(sec, e, c)
			}
		}
		if err != nil {
			return nil, fmt.Errorf("key %q: %w", e.Key, err)
		}
	}

	for _, m := range c.Matches {
		for _, t := range m.Key.Targets {
			if pattern.IsSubmissionOnly(t) {
				inferredSubmission = true
			}
			if pattern.IsCommentOnly(t) {
				inferredComment = true
			}
		}
	}

	switch strings.ToLower(explicitType) {
	case "submission":
		c.Type = KindSubmission
	case "comment":
		c.Type = KindComment
	case "both":
		c.Type = KindBoth
	default:
		switch {
		case inferredSubmission && !inferredComment:
			c.Type = KindSubmission
		case inferredComment && !inferredSubmission:
			c.Type = KindComment
		default:
			c.Type = KindBoth
		}
	}

	return c, nil
}

// buildMatchEntry compiles one match-key into a MatchEntry, resolving its
// modifier tokens from either the list form or the per-key mapping form of
// the section's top-level "modifiers" field.
func buildMatchEntry(sec yamldoc.Section, e yamldoc.Entry, c *Condition) error {
	key := pattern.ParseKey(e.Key)

	values, err := yamldoc.DecodeStringList(e.Value)
	if err != nil {
		return err
	}

	tokens, err := resolveModifierTokens(sec, e.Key)
	if err != nil {
		return err
	}

	compiled, err := pattern.Compile(key, values, tokens)
	if err != nil {
		return err
	}

	c.Matches = append(c.Matches, MatchEntry{Key: key, Regex: compiled})
	return nil
}

// resolveModifierTokens returns the modifier tokens that apply to
// match-key k: either the whole-document list, or this key's entry in the
// per-key mapping, per spec §4.1.
func resolveModifierTokens(sec yamldoc.Section, k string) ([]string, error) {
	modsNode, ok := sec.Get("modifiers")
	if !ok {
		return nil, nil
	}
	switch modsNode.Kind {
	case yaml.SequenceNode, yaml.ScalarNode:
		return yamldoc.DecodeStringList(modsNode)
	case yaml.MappingNode:
		for i := 0; i+1 < len(modsNode.Content); i += 2 {
			if strings.ToLower(modsNode.Content[i].Value) == k {
				return yamldoc.DecodeStringList(modsNode.Content[i+1])
			}
		}
		return nil, nil
	}
	return nil, nil
}

func buildUserConditions(sec yamldoc.Section, c *Condition) error {
	node, ok := sec.Get("user_conditions")
	if !ok {
		return nil
	}
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("user_conditions must be a mapping")
	}
	for i := 0; i+1 < len(node.Content); i += 2 {
		attr := strings.ToLower(node.Content[i].Value)
		var raw string
		if err := node.Content[i+1].Decode(&raw); err != nil {
			return err
		}
		raw = strings.TrimSpace(raw)

		if attr == "must_satisfy" {
			if strings.ToLower(raw) == "any" {
				c.MustSatisfy = SatisfyAny
			} else {
				c.MustSatisfy = SatisfyAll
			}
			continue
		}

		clause, err := parseUserClause(UserAttr(attr), raw)
		if err != nil {
			return err
		}
		c.UserClauses = append(c.UserClauses, clause)
	}
	return nil
}

// parseUserClause parses "<op> <literal>" (op optional, defaulting to =,
// with "==" normalized to "=") into a UserClause.
func parseUserClause(attr UserAttr, raw string) (UserClause, error) {
	op := OpEq
	rest := raw
	for _, prefix := range []string{"==", "=", "<", ">"} {
		if strings.HasPrefix(raw, prefix+" ") {
			switch prefix {
			case "==", "=":
				op = OpEq
			case "<":
				op = OpLt
			case ">":
				op = OpGt
			}
			rest = strings.TrimSpace(strings.TrimPrefix(raw, prefix))
			break
		}
	}

	clause := UserClause{Attr: attr, Op: op}
	switch attr {
	case AttrRank:
		clause.RankVal = rest
	case AttrIsGold:
		b, err := strconv.ParseBool(rest)
		if err != nil {
			return clause, fmt.Errorf("is_gold: %w", err)
		}
		clause.BoolVal = b
	default:
		n, err := strconv.ParseInt(rest, 10, 64)
		if err != nil {
			return clause, fmt.Errorf("%s: %w", attr, err)
		}
		clause.IntVal = n
	}
	return clause, nil
}
