// Package matcher implements the Item Matcher (spec §4.4): given a
// compiled Condition and an Item, decide whether the condition applies.
// Grounded on the teacher's internal/policy/engine.go Evaluate/matchRule
// shape: an ordered sequence of short-circuiting checks, ending in a
// boolean decision plus an explanation object callers can act on.
package matcher

import (
	"errors"
	"html"
	"strings"

	"github.com/modwiki/automod/internal/condition"
	"github.com/modwiki/automod/internal/item"
	"github.com/modwiki/automod/internal/pattern"
	"github.com/modwiki/automod/internal/unicode"
)

// freeTextTargets are the targets carrying human-authored prose, as
// opposed to structured identifiers (user, domain, URL) where a
// homoglyph or invisible character would never legitimately appear and
// folding would only blur an exact comparison.
var freeTextTargets = map[pattern.Target]bool{
	pattern.TargetTitle:            true,
	pattern.TargetBody:             true,
	pattern.TargetMediaTitle:       true,
	pattern.TargetMediaDescription: true,
	pattern.TargetAuthorFlairText:  true,
	pattern.TargetLinkTitle:        true,
}

// UserLookup resolves the data user_conditions clauses need. Kept
// separate from source.Client so the matcher never depends on the
// transport package directly; the dispatcher wires the two together.
type UserLookup interface {
	Rank(username string) (Rank, error)
	AccountAgeDays(username string) (int64, error)
	CombinedKarma(username string) (int64, error)
	CommentKarma(username string) (int64, error)
	LinkKarma(username string) (int64, error)
	IsGold(username string) (bool, error)
}

// ErrUserNotFound is returned by a UserLookup method when the user 404s.
// Per spec §4.4.1 this makes the owning clause evaluate to false, not an
// error — the matcher translates it; a UserLookup must still return it so
// the matcher can tell "false" apart from every other fetch error, which
// propagates.
var ErrUserNotFound = errors.New("matcher: user not found")

// Rank mirrors spec §4.4.1's {user:0, contributor:1, moderator:2} scale.
type Rank int

const (
	RankUser        Rank = 0
	RankContributor Rank = 1
	RankModerator   Rank = 2
)

func rankValue(s string) Rank {
	switch s {
	case "contributor":
		return RankContributor
	case "moderator":
		return RankModerator
	default:
		return RankUser
	}
}

// Result is the Item Matcher's output: whether the condition matched, and
// (if so) which match-key won — the Action Executor's shadowban guard
// needs to know whether the winning match was on the `user` target.
type Result struct {
	Matched         bool
	WinningKey      *pattern.Key
	WinningGroups   []string // captured groups from the winning regex, for {{match-N}}
	UsernameMatch   bool
}

// Evaluate runs the full ordered check sequence of spec §4.4 and returns
// whether c applies to it.
func Evaluate(c *condition.Condition, it *item.Item, users UserLookup) (Result, error) {
	if !c.AppliesToKind(kindOf(it)) {
		return Result{}, nil
	}

	if c.ReportsThreshold != nil && it.NumReports < *c.ReportsThreshold {
		return Result{}, nil
	}

	if it.Kind == item.KindComment {
		if c.IsReply != nil {
			isReply := it.ParentID != "" && strings.HasPrefix(it.ParentID, "t1_")
			if isReply != *c.IsReply {
				return Result{}, nil
			}
		}
		if c.AuthorIsSubmitter != nil {
			authorIsSubmitter := it.Author != "" && it.Author == it.ParentAuthor
			if authorIsSubmitter != *c.AuthorIsSubmitter {
				return Result{}, nil
			}
		}
	}

	body := extractBody(it, c.IgnoreBlockquotes)
	if c.BodyMinLength != nil || c.BodyMaxLength != nil {
		trimmed := trimNonWordRuns(body)
		n := len([]rune(trimmed))
		if c.BodyMinLength != nil && n < *c.BodyMinLength {
			return Result{}, nil
		}
		if c.BodyMaxLength != nil && n > *c.BodyMaxLength {
			return Result{}, nil
		}
	}

	var winningKey *pattern.Key
	var winningGroups []string
	usernameMatch := false

	for i := range c.Matches {
		m := &c.Matches[i]
		orMatched := false
		var groups []string
		var matchedTarget pattern.Target

		for _, t := range m.Key.Targets {
			candidate := candidateString(it, t, body)
			candidate = html.UnescapeString(candidate)
			if freeTextTargets[t] {
				candidate = unicode.Fold(candidate)
			}
			loc := m.Regex.Regex.FindStringSubmatch(candidate)
			if loc != nil {
				orMatched = true
				groups = loc
				matchedTarget = t
				break
			}
		}

		if orMatched != m.Regex.Success {
			return Result{}, nil
		}

		if winningKey == nil {
			winningKey = &m.Key
			winningGroups = groups
			usernameMatch = matchedTarget == pattern.TargetUser
		}
	}

	if len(c.UserClauses) > 0 {
		ok, err := evaluateUserClauses(c, it.Author, users)
		if err != nil {
			return Result{}, err
		}
		if !ok {
			return Result{}, nil
		}
	}

	return Result{
		Matched:       true,
		WinningKey:    winningKey,
		WinningGroups: winningGroups,
		UsernameMatch: usernameMatch,
	}, nil
}

func kindOf(it *item.Item) condition.Kind {
	if it.Kind == item.KindSubmission {
		return condition.KindSubmission
	}
	return condition.KindComment
}

// extractBody applies spec §4.4 step 4: if ignoreBlockquotes, HTML-unescape
// first, then drop blockquote and blank lines.
func extractBody(it *item.Item, ignoreBlockquotes bool) string {
	body := it.RawBody()
	if !ignoreBlockquotes {
		return body
	}
	body = html.UnescapeString(body)
	lines := strings.Split(body, "\n")
	kept := make([]string, 0, len(lines))
	for _, l := range lines {
		trimmed := strings.TrimSpace(l)
		if trimmed == "" || strings.HasPrefix(trimmed, ">") {
			continue
		}
		kept = append(kept, l)
	}
	return strings.Join(kept, "\n")
}

// trimNonWordRuns strips leading and trailing runs of non-word characters
// before a body length check, so "   spam!!!" measures as "spam".
func trimNonWordRuns(s string) string {
	isWord := func(r rune) bool {
		return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '_'
	}
	runes := []rune(s)
	start := 0
	for start < len(runes) && !isWord(runes[start]) {
		start++
	}
	end := len(runes)
	for end > start && !isWord(runes[end-1]) {
		end--
	}
	return string(runes[start:end])
}

func candidateString(it *item.Item, t pattern.Target, extractedBody string) string {
	if t == pattern.TargetBody {
		return extractedBody
	}
	return it.String(t)
}

func evaluateUserClauses(c *condition.Condition, username string, users UserLookup) (bool, error) {
	results := make([]bool, 0, len(c.UserClauses))
	for _, clause := range c.UserClauses {
		ok, err := evaluateClause(clause, username, users)
		if errors.Is(err, ErrUserNotFound) {
			return false, nil
		}
		if err != nil {
			return false, err
		}
		results = append(results, ok)
	}

	if c.MustSatisfy == condition.SatisfyAny {
		for _, r := range results {
			if r {
				return true, nil
			}
		}
		return false, nil
	}
	for _, r := range results {
		if !r {
			return false, nil
		}
	}
	return true, nil
}

func evaluateClause(clause condition.UserClause, username string, users UserLookup) (bool, error) {
	switch clause.Attr {
	case condition.AttrRank:
		r, err := users.Rank(username)
		if err != nil {
			return false, err
		}
		return compareInt(int64(r), clause.Op, int64(rankValue(clause.RankVal))), nil
	case condition.AttrAccountAge:
		n, err := users.AccountAgeDays(username)
		if err != nil {
			return false, err
		}
		return compareInt(n, clause.Op, clause.IntVal), nil
	case condition.AttrCombinedKarma:
		n, err := users.CombinedKarma(username)
		if err != nil {
			return false, err
		}
		return compareInt(n, clause.Op, clause.IntVal), nil
	case condition.AttrCommentKarma:
		n, err := users.CommentKarma(username)
		if err != nil {
			return false, err
		}
		return compareInt(n, clause.Op, clause.IntVal), nil
	case condition.AttrLinkKarma:
		n, err := users.LinkKarma(username)
		if err != nil {
			return false, err
		}
		return compareInt(n, clause.Op, clause.IntVal), nil
	case condition.AttrIsGold:
		b, err := users.IsGold(username)
		if err != nil {
			return false, err
		}
		return b == clause.BoolVal, nil
	}
	return false, nil
}

func compareInt(got int64, op condition.UserClauseOp, want int64) bool {
	switch op {
	case condition.OpLt:
		return got < want
	case condition.OpGt:
		return got > want
	default:
		return got == want
	}
}
