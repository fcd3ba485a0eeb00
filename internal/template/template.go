// Package template expands the placeholder vocabulary of spec §6 into an
// item's concrete values, and truncates the result per field kind.
// Grounded on the teacher's internal/redact/redact.go idiom of a compiled
// pattern list walked once over input text, repurposed here from
// scrubbing text to substituting it.
package template

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/modwiki/automod/internal/item"
)

// Context carries the values a placeholder expansion needs beyond the
// Item itself: the winning match's captured groups, and the permalink
// prefix modmail/message bodies require when absent from the template.
type Context struct {
	Item       *item.Item
	Groups     []string // winning regex FindStringSubmatch result; index 0 is the whole match
	Permalink  string
}

var placeholderRe = regexp.MustCompile(`\{\{([a-z_]+|match-\d+)\}\}`)

// Expand substitutes every recognized placeholder in s. A placeholder-shaped
// token with an unrecognized name, or a {{match-N}} with no such group,
// expands to the empty string.
func Expand(s string, ctx Context) string {
	return placeholderRe.ReplaceAllStringFunc(s, func(tok string) string {
		name := tok[2 : len(tok)-2]
		if strings.HasPrefix(name, "match-") {
			return matchGroup(ctx.Groups, name)
		}
		return field(name, ctx)
	})
}

func matchGroup(groups []string, name string) string {
	n, err := strconv.Atoi(strings.TrimPrefix(name, "match-"))
	if err != nil || n < 0 || n >= len(groups) {
		return ""
	}
	return groups[n]
}

func field(name string, ctx Context) string {
	it := ctx.Item
	if it == nil {
		return ""
	}
	switch name {
	case "body":
		return it.RawBody()
	case "kind":
		if it.Kind == item.KindSubmission {
			return "submission"
		}
		return "comment"
	case "link_id":
		return stripPrefix(it.LinkID)
	case "domain":
		return it.Domain
	case "permalink":
		return it.Permalink
	case "subreddit":
		return it.Subreddit
	case "title":
		return it.Title
	case "url":
		return it.URL
	case "user":
		if it.Author == "" {
			return "[deleted]"
		}
		return it.Author
	case "media_user":
		return it.Media.AuthorName
	case "media_title":
		return it.Media.Title
	case "media_description":
		return it.Media.Description
	case "media_author_url":
		return it.Media.AuthorURL
	}
	return ""
}

func stripPrefix(s string) string {
	if len(s) > 3 && s[2] == '_' {
		return s[3:]
	}
	return s
}

// TruncateSubject truncates a subject/report-reason string to 100
// characters, per spec §6.
func TruncateSubject(s string) string { return truncateRunes(s, 100) }

// TruncateBody truncates a comment/message body to 10 000 characters, per
// spec §6.
func TruncateBody(s string) string { return truncateRunes(s, 10000) }

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

// EnsurePermalink prepends a permalink to body if it does not already
// contain one, per spec §4.5 steps 7-8 (modmail/message).
func EnsurePermalink(body, permalink string) string {
	if permalink == "" || strings.Contains(body, permalink) {
		return body
	}
	return permalink + "\n\n" + body
}
