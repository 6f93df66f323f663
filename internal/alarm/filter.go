package alarm

import (
	"strings"

	"vtom-jira/internal/jira"
)

// Statuses that disqualify a dedup candidate, compared case-insensitively.
var closedStatuses = []string{"done", "closed", "resolved"}

func isClosed(status string) bool {
	for _, s := range closedStatuses {
		if strings.EqualFold(status, s) {
			return true
		}
	}
	return false
}

// FilterOpenByObject keeps the issues that are still open and whose
// object-name field exactly equals objectName. Object-name comparison is
// case-sensitive: "Job_A" and "job_a" are different objects. Input order is
// preserved, so with a newest-first page the first survivor is the most
// recently created match.
func FilterOpenByObject(issues []jira.SearchIssue, objectName string) []jira.SearchIssue {
	var open []jira.SearchIssue
	for _, issue := range issues {
		if isClosed(issue.Status) {
			continue
		}
		if issue.ObjectName == "" || issue.ObjectName != objectName {
			continue
		}
		open = append(open, issue)
	}
	return open
}
