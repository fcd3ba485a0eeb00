package ruleset

import "github.com/modwiki/automod/internal/condition"

// Build applies the per-queue condition filter of spec §4.6 to a compiled
// rule list and returns the published Set. The filter is computed once at
// load time, not per item: the dispatcher (internal/dispatch) reads
// Set.ByQueue directly.
func Build(conditions []*condition.Condition, generation int) *Set {
	s := &Set{Generation: generation, All: conditions, ByQueue: map[string][]*condition.Condition{}}

	for _, c := range conditions {
		if belowReportsThreshold(c) && !isPurelyReport(c) {
			s.ByQueue["spam"] = append(s.ByQueue["spam"], c)
		}
		if !isReportProducing(c) && (c.Action != condition.ActionApprove || requiresReports(c)) {
			s.ByQueue["report"] = append(s.ByQueue["report"], c)
		}
		if c.AppliesToKind(condition.KindSubmission) && belowReportsThreshold(c) && !isApproveWithoutReport(c) {
			s.ByQueue["submission"] = append(s.ByQueue["submission"], c)
		}
		if c.AppliesToKind(condition.KindComment) && belowReportsThreshold(c) && !isApproveWithoutReport(c) {
			s.ByQueue["comment"] = append(s.ByQueue["comment"], c)
		}
	}
	return s
}

func belowReportsThreshold(c *condition.Condition) bool {
	return c.ReportsThreshold == nil || *c.ReportsThreshold < 1
}

func requiresReports(c *condition.Condition) bool {
	return c.ReportsThreshold != nil && *c.ReportsThreshold >= 1
}

func isReportProducing(c *condition.Condition) bool {
	return c.Action == condition.ActionReport || c.Report != ""
}

// isPurelyReport reports whether a condition's only effect is reporting,
// with no removal/approval action attached.
func isPurelyReport(c *condition.Condition) bool {
	return isReportProducing(c) && c.Action != condition.ActionRemove &&
		c.Action != condition.ActionSpam && c.Action != condition.ActionApprove
}

func isApproveWithoutReport(c *condition.Condition) bool {
	return c.Action == condition.ActionApprove && !isReportProducing(c)
}
