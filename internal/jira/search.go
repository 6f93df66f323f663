package jira

import (
	"fmt"

	"github.com/tidwall/gjson"
)

// SearchProjectIssues fetches the newest page of issues in a project, newest
// first, capped at one page. The JQL variant behind /search/jql cannot filter
// on a custom field server-side, so the query only scopes and orders; open
// status and object-name matching happen in memory on the caller's side.
//
// objectFieldID is the custom field holding the VTOM object name; its value
// is requested alongside summary and status and surfaced on each result.
func (c *Client) SearchProjectIssues(projectKey, objectFieldID string) ([]SearchIssue, error) {
	body, err := c.postJSON("/rest/api/3/search/jql", map[string]interface{}{
		"jql":        fmt.Sprintf("project = %s ORDER BY created DESC", projectKey),
		"maxResults": searchPageSize,
		"fields":     []string{"summary", "status", objectFieldID},
	})
	if err != nil {
		return nil, err
	}

	var issues []SearchIssue
	for _, issue := range gjson.GetBytes(body, "issues").Array() {
		issues = append(issues, SearchIssue{
			Key:        issue.Get("key").String(),
			Status:     issue.Get("fields.status.name").String(),
			ObjectName: issue.Get("fields." + objectFieldID).String(),
		})
	}
	return issues, nil
}
