package source

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"time"

	"github.com/modwiki/automod/internal/item"
	"github.com/valyala/fasthttp"
)

// HTTPClient is the shipped Client implementation. It talks to the
// upstream site's JSON API over a pooled fasthttp connection, which
// matters here because the polling loop (internal/scheduler) issues many
// short-lived requests per cycle across long process lifetimes.
type HTTPClient struct {
	BaseURL   string
	UserAgent string
	Token     func() (string, error) // credential lookup is the caller's concern

	client *fasthttp.Client
}

// NewHTTPClient builds an HTTPClient. token supplies a bearer token per
// request; credential storage/refresh lives entirely outside this package.
func NewHTTPClient(baseURL, userAgent string, token func() (string, error)) *HTTPClient {
	return &HTTPClient{
		BaseURL:   baseURL,
		UserAgent: userAgent,
		Token:     token,
		client: &fasthttp.Client{
			Name:                     userAgent,
			MaxIdleConnDuration:      90 * time.Second,
			MaxConnsPerHost:          8,
			NoDefaultUserAgentHeader: true,
		},
	}
}

func (c *HTTPClient) do(ctx context.Context, method, path string, query url.Values) ([]byte, error) {
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	full := c.BaseURL + path
	if len(query) > 0 {
		full += "?" + query.Encode()
	}
	req.SetRequestURI(full)
	req.Header.SetMethod(method)
	req.Header.Set("User-Agent", c.UserAgent)

	if c.Token != nil {
		tok, err := c.Token()
		if err != nil {
			return nil, fmt.Errorf("fetching credential: %w", err)
		}
		req.Header.Set("Authorization", "bearer "+tok)
	}

	deadline := 30 * time.Second
	if dl, ok := ctx.Deadline(); ok {
		if d := time.Until(dl); d > 0 {
			deadline = d
		}
	}

	if err := c.client.DoDeadline(req, resp, time.Now().Add(deadline)); err != nil {
		return nil, fmt.Errorf("request %s %s: %w", method, path, err)
	}

	switch resp.StatusCode() {
	case 403:
		return nil, ErrPermission
	case 404:
		return nil, ErrNotFound
	}
	if resp.StatusCode() >= 400 {
		return nil, fmt.Errorf("request %s %s: status %d", method, path, resp.StatusCode())
	}

	body := make([]byte, len(resp.Body()))
	copy(body, resp.Body())
	return body, nil
}

type apiListing struct {
	Data struct {
		Children []apiThing `json:"children"`
	} `json:"data"`
}

type apiThing struct {
	Kind string          `json:"kind"`
	Data json.RawMessage `json:"data"`
}

type apiItemData struct {
	Name                string `json:"name"`
	LinkID              string `json:"link_id"`
	ParentID            string `json:"parent_id"`
	Author              string `json:"author"`
	AuthorFlairText     string `json:"author_flair_text"`
	AuthorFlairCSSClass string `json:"author_flair_css_class"`
	Title               string `json:"title"`
	Domain              string `json:"domain"`
	URL                 string `json:"url"`
	IsSelf              bool   `json:"is_self"`
	SelfText            string `json:"selftext"`
	Body                string `json:"body"`
	NumReports          int    `json:"num_reports"`
	Approved            bool   `json:"approved"`
	ApprovedBy          string `json:"approved_by"`
	Removed             bool   `json:"removed"`
	Permalink           string `json:"permalink"`
	Subreddit           string `json:"subreddit"`
	CreatedUTC          float64 `json:"created_utc"`
	Media               *struct {
		Oembed struct {
			AuthorName  string `json:"author_name"`
			Title       string `json:"title"`
			Description string `json:"description"`
			AuthorURL   string `json:"author_url"`
		} `json:"oembed"`
	} `json:"media"`
}

// FetchQueue implements Client.
func (c *HTTPClient) FetchQueue(ctx context.Context, community string, q Queue, after time.Time, limit int) ([]item.Item, error) {
	path := fmt.Sprintf("/r/%s/about/%s", community, queuePath(q))
	query := url.Values{"limit": {strconv.Itoa(limit)}}

	body, err := c.do(ctx, "GET", path, query)
	if err != nil {
		return nil, err
	}

	var listing apiListing
	if err := json.Unmarshal(body, &listing); err != nil {
		return nil, fmt.Errorf("decoding %s listing: %w", q, err)
	}

	items := make([]item.Item, 0, len(listing.Data.Children))
	for _, child := range listing.Data.Children {
		it, err := decodeItem(child)
		if err != nil {
			continue // malformed entries are skipped, not fatal to the whole fetch
		}
		if !it.Created.After(after) {
			continue // at or below the caller's watermark
		}
		items = append(items, it)
	}
	sort.SliceStable(items, func(i, j int) bool { return items[i].Created.Before(items[j].Created) })
	return items, nil
}

func queuePath(q Queue) string {
	switch q {
	case QueueSpam:
		return "spam"
	case QueueReport:
		return "reports"
	default:
		return string(q)
	}
}

func decodeItem(t apiThing) (item.Item, error) {
	var d apiItemData
	if err := json.Unmarshal(t.Data, &d); err != nil {
		return item.Item{}, err
	}

	it := item.Item{
		Created:             time.Unix(int64(d.CreatedUTC), 0).UTC(),
		Fullname:            d.Name,
		LinkID:              d.LinkID,
		ParentID:            d.ParentID,
		Author:              d.Author,
		AuthorFlairText:     d.AuthorFlairText,
		AuthorFlairCSSClass: d.AuthorFlairCSSClass,
		Title:               d.Title,
		Domain:              d.Domain,
		URL:                 d.URL,
		IsSelf:              d.IsSelf,
		SelfText:            d.SelfText,
		Body:                d.Body,
		NumReports:          d.NumReports,
		Approved:            d.Approved,
		ApprovedBy:          d.ApprovedBy,
		Removed:             d.Removed,
		Permalink:           d.Permalink,
		Subreddit:           d.Subreddit,
	}
	if t.Kind == "t1" {
		it.Kind = item.KindComment
	} else {
		it.Kind = item.KindSubmission
	}
	if d.Media != nil {
		it.Media = item.Media{
			AuthorName:  d.Media.Oembed.AuthorName,
			Title:       d.Media.Oembed.Title,
			Description: d.Media.Oembed.Description,
			AuthorURL:   d.Media.Oembed.AuthorURL,
			Present:     true,
		}
	}
	return it, nil
}

type apiUserData struct {
	Name         string  `json:"name"`
	CreatedUTC   float64 `json:"created_utc"`
	LinkKarma    int64   `json:"link_karma"`
	CommentKarma int64   `json:"comment_karma"`
	IsGold       bool    `json:"is_gold"`
}

// FetchUser implements Client.
func (c *HTTPClient) FetchUser(ctx context.Context, username string) (*User, error) {
	body, err := c.do(ctx, "GET", "/user/"+username+"/about", nil)
	if err != nil {
		return nil, err
	}
	var wrapper struct {
		Data apiUserData `json:"data"`
	}
	if err := json.Unmarshal(body, &wrapper); err != nil {
		return nil, fmt.Errorf("decoding user %s: %w", username, err)
	}
	d := wrapper.Data
	return &User{
		Name:         d.Name,
		CreatedUTC:   time.Unix(int64(d.CreatedUTC), 0).UTC(),
		LinkKarma:    d.LinkKarma,
		CommentKarma: d.CommentKarma,
		IsGold:       d.IsGold,
	}, nil
}

// FetchModerators implements Client.
func (c *HTTPClient) FetchModerators(ctx context.Context, community string) ([]string, error) {
	return c.fetchNameList(ctx, "/r/"+community+"/about/moderators")
}

// FetchContributors implements Client.
func (c *HTTPClient) FetchContributors(ctx context.Context, community string) ([]string, error) {
	return c.fetchNameList(ctx, "/r/"+community+"/about/contributors")
}

func (c *HTTPClient) fetchNameList(ctx context.Context, path string) ([]string, error) {
	body, err := c.do(ctx, "GET", path, nil)
	if err != nil {
		return nil, err
	}
	var wrapper struct {
		Data struct {
			Children []struct {
				Name string `json:"name"`
			} `json:"children"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &wrapper); err != nil {
		return nil, fmt.Errorf("decoding %s: %w", path, err)
	}
	names := make([]string, 0, len(wrapper.Data.Children))
	for _, c := range wrapper.Data.Children {
		names = append(names, c.Name)
	}
	return names, nil
}

type apiMessageData struct {
	Name       string  `json:"name"`
	Author     string  `json:"author"`
	Subject    string  `json:"subject"`
	Body       string  `json:"body"`
	CreatedUTC float64 `json:"created_utc"`
	WasComment bool    `json:"was_comment"`
	Subreddit  string  `json:"subreddit"`
}

// FetchInbox implements Client.
func (c *HTTPClient) FetchInbox(ctx context.Context, after time.Time) ([]Message, error) {
	body, err := c.do(ctx, "GET", "/message/unread", url.Values{"limit": {"100"}})
	if err != nil {
		return nil, err
	}

	var listing apiListing
	if err := json.Unmarshal(body, &listing); err != nil {
		return nil, fmt.Errorf("decoding inbox listing: %w", err)
	}

	messages := make([]Message, 0, len(listing.Data.Children))
	for _, child := range listing.Data.Children {
		var d apiMessageData
		if err := json.Unmarshal(child.Data, &d); err != nil {
			continue
		}
		created := time.Unix(int64(d.CreatedUTC), 0).UTC()
		if created.Before(after) || created.Equal(after) {
			continue
		}
		messages = append(messages, Message{
			Fullname:   d.Name,
			Author:     d.Author,
			Subject:    d.Subject,
			Body:       d.Body,
			CreatedUTC: created,
			WasComment: d.WasComment,
			Subreddit:  d.Subreddit,
		})
	}
	return messages, nil
}

// FetchWikiPage implements Client.
func (c *HTTPClient) FetchWikiPage(ctx context.Context, community, page string) (string, error) {
	body, err := c.do(ctx, "GET", "/r/"+community+"/wiki/"+page, nil)
	if err != nil {
		return "", err
	}
	var wrapper struct {
		Data struct {
			ContentMD string `json:"content_md"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &wrapper); err != nil {
		return "", fmt.Errorf("decoding wiki page %s/%s: %w", community, page, err)
	}
	return wrapper.Data.ContentMD, nil
}

// Do implements Client.
func (c *HTTPClient) Do(ctx context.Context, req ActionRequest) error {
	form := url.Values{}
	form.Set("api_type", "json")

	path, method := actionEndpoint(req)
	switch req.Kind {
	case ActionRemove, ActionApprove, ActionSpam:
		form.Set("id", req.ItemFullname)
	case ActionReport:
		form.Set("id", req.ItemFullname)
		form.Set("reason", req.ReportReason)
	case ActionComment:
		form.Set("thing_id", req.ItemFullname)
		form.Set("text", req.Text)
	case ActionDistinguish:
		form.Set("id", req.ItemFullname)
	case ActionModmail:
		form.Set("subreddit", req.Community)
		form.Set("subject", req.Subject)
		form.Set("body", req.Text)
	case ActionMessage:
		form.Set("to", req.Target)
		form.Set("subject", req.Subject)
		form.Set("text", req.Text)
	case ActionLinkFlair, ActionUserFlair:
		form.Set("link", req.ItemFullname)
		form.Set("text", req.FlairText)
		form.Set("css_class", req.FlairClass)
	case ActionSetNSFW, ActionSetContest, ActionSetSticky:
		form.Set("id", req.ItemFullname)
	case ActionMarkRead:
		form.Set("id", req.ItemFullname)
	case ActionAcceptInvite:
		form.Set("r", req.Community)
	}

	_, err := c.doForm(ctx, method, path, form)
	return err
}

func actionEndpoint(req ActionRequest) (path, method string) {
	switch req.Kind {
	case ActionRemove, ActionSpam:
		return "/api/remove", "POST"
	case ActionApprove:
		return "/api/approve", "POST"
	case ActionReport:
		return "/api/report", "POST"
	case ActionComment:
		return "/api/comment", "POST"
	case ActionDistinguish:
		return "/api/distinguish", "POST"
	case ActionModmail:
		return "/api/compose", "POST"
	case ActionMessage:
		return "/api/compose", "POST"
	case ActionLinkFlair:
		return "/api/flair", "POST"
	case ActionUserFlair:
		return "/api/flair", "POST"
	case ActionSetNSFW:
		return "/api/set_nsfw", "POST"
	case ActionSetContest:
		return "/api/set_contest_mode", "POST"
	case ActionSetSticky:
		return "/api/set_subreddit_sticky", "POST"
	case ActionMarkRead:
		return "/api/read_message", "POST"
	case ActionAcceptInvite:
		return "/api/accept_moderator_invite", "POST"
	}
	return "", "POST"
}

func (c *HTTPClient) doForm(ctx context.Context, method, path string, form url.Values) ([]byte, error) {
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(c.BaseURL + path)
	req.Header.SetMethod(method)
	req.Header.Set("User-Agent", c.UserAgent)
	req.Header.SetContentType("application/x-www-form-urlencoded")
	if c.Token != nil {
		tok, err := c.Token()
		if err != nil {
			return nil, fmt.Errorf("fetching credential: %w", err)
		}
		req.Header.Set("Authorization", "bearer "+tok)
	}
	req.SetBodyString(form.Encode())

	deadline := 30 * time.Second
	if dl, ok := ctx.Deadline(); ok {
		if d := time.Until(dl); d > 0 {
			deadline = d
		}
	}
	if err := c.client.DoDeadline(req, resp, time.Now().Add(deadline)); err != nil {
		return nil, fmt.Errorf("request %s %s: %w", method, path, err)
	}

	switch resp.StatusCode() {
	case 403:
		return nil, ErrPermission
	case 404:
		return nil, ErrNotFound
	}
	if resp.StatusCode() >= 400 {
		return nil, fmt.Errorf("request %s %s: status %d", method, path, resp.StatusCode())
	}

	body := make([]byte, len(resp.Body()))
	copy(body, resp.Body())
	return body, nil
}
