package metrics

import (
	"strings"
	"testing"

	"github.com/valyala/fasthttp"
)

func TestServeHTTPExposesCounters(t *testing.T) {
	m := New("")
	m.ItemEvaluated("askhistory", "modqueue")
	m.ActionTaken("askhistory", "remove")
	m.SetQueueDepth("askhistory", "modqueue", 3)

	var ctx fasthttp.RequestCtx
	ctx.Request.SetRequestURI("/metrics")
	m.ServeHTTP(&ctx)

	body := string(ctx.Response.Body())
	for _, want := range []string{
		"automod_items_evaluated_total",
		"automod_actions_total",
		"automod_queue_depth",
	} {
		if !strings.Contains(body, want) {
			t.Errorf("expected metrics output to contain %q, got:\n%s", want, body)
		}
	}
}
