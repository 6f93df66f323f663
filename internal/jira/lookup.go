package jira

import (
	"encoding/json"
	"net/url"
	"strings"

	"github.com/pkg/errors"
	"github.com/tidwall/gjson"
)

// Myself tests the connection and returns the authenticated user's display
// name.
func (c *Client) Myself() (string, error) {
	body, err := c.getJSON("/rest/api/3/myself")
	if err != nil {
		return "", err
	}
	return gjson.GetBytes(body, "displayName").String(), nil
}

// Project fetches a project with its issue types.
func (c *Client) Project(projectKey string) (*Project, error) {
	body, err := c.getJSON("/rest/api/3/project/" + url.PathEscape(projectKey))
	if err != nil {
		return nil, err
	}
	var p Project
	if err := json.Unmarshal(body, &p); err != nil {
		return nil, errors.Wrapf(err, "parse project %s", projectKey)
	}
	return &p, nil
}

// Projects lists all projects visible to the authenticated user.
func (c *Client) Projects() ([]Project, error) {
	body, err := c.getJSON("/rest/api/3/project")
	if err != nil {
		return nil, err
	}
	var ps []Project
	if err := json.Unmarshal(body, &ps); err != nil {
		return nil, errors.Wrap(err, "parse project list")
	}
	return ps, nil
}

// IssueTypes lists the instance-wide issue types.
func (c *Client) IssueTypes() ([]IssueType, error) {
	body, err := c.getJSON("/rest/api/3/issuetype")
	if err != nil {
		return nil, err
	}
	var ts []IssueType
	if err := json.Unmarshal(body, &ts); err != nil {
		return nil, errors.Wrap(err, "parse issue type list")
	}
	return ts, nil
}

// IssueTypeID resolves an issue type name to its ID, checking the project's
// own types first and falling back to the instance-wide list. Matching is a
// case-insensitive exact-name comparison; first match wins. Not finding the
// type is an error: issue creation cannot proceed without it.
func (c *Client) IssueTypeID(projectKey, issueTypeName string) (string, error) {
	project, perr := c.Project(projectKey)
	if perr == nil {
		for _, t := range project.IssueTypes {
			if strings.EqualFold(t.Name, issueTypeName) {
				return t.ID, nil
			}
		}
	}

	types, err := c.IssueTypes()
	if err != nil {
		if perr != nil {
			return "", perr
		}
		return "", err
	}
	for _, t := range types {
		if strings.EqualFold(t.Name, issueTypeName) {
			return t.ID, nil
		}
	}
	return "", errors.Errorf("issue type %q not found in project %q", issueTypeName, projectKey)
}

// Priorities lists the instance-wide priorities.
func (c *Client) Priorities() ([]Priority, error) {
	body, err := c.getJSON("/rest/api/3/priority")
	if err != nil {
		return nil, err
	}
	var ps []Priority
	if err := json.Unmarshal(body, &ps); err != nil {
		return nil, errors.Wrap(err, "parse priority list")
	}
	return ps, nil
}

// PriorityID resolves a priority name to its ID. Same matching rules as
// IssueTypeID, same hard-failure contract.
func (c *Client) PriorityID(priorityName string) (string, error) {
	priorities, err := c.Priorities()
	if err != nil {
		return "", err
	}
	for _, p := range priorities {
		if strings.EqualFold(p.Name, priorityName) {
			return p.ID, nil
		}
	}
	return "", errors.Errorf("priority %q not found", priorityName)
}

// CustomFields introspects the create-metadata of a project and returns the
// custom fields available on the given issue type, keyed by field ID.
func (c *Client) CustomFields(projectKey, issueTypeName string) (map[string]string, error) {
	body, err := c.getJSON("/rest/api/3/issue/createmeta?projectKeys=" +
		url.QueryEscape(projectKey) + "&expand=projects.issuetypes.fields")
	if err != nil {
		return nil, err
	}

	fields := make(map[string]string)
	for _, project := range gjson.GetBytes(body, "projects").Array() {
		for _, issueType := range project.Get("issuetypes").Array() {
			if issueType.Get("name").String() != issueTypeName {
				continue
			}
			issueType.Get("fields").ForEach(func(id, info gjson.Result) bool {
				if strings.HasPrefix(id.String(), "customfield_") {
					fields[id.String()] = info.Get("name").String()
				}
				return true
			})
		}
	}
	return fields, nil
}

// RequestTypes discovers JSM request types across all service desks. Desks
// whose request-type listing fails are skipped.
func (c *Client) RequestTypes() ([]RequestType, error) {
	body, err := c.getJSON("/rest/servicedeskapi/servicedesk")
	if err != nil {
		return nil, err
	}

	var requestTypes []RequestType
	for _, desk := range gjson.GetBytes(body, "values").Array() {
		deskID := desk.Get("id").String()
		if deskID == "" {
			continue
		}
		rtBody, err := c.getJSON("/rest/servicedeskapi/servicedesk/" + url.PathEscape(deskID) + "/requesttype")
		if err != nil {
			continue
		}
		for _, rt := range gjson.GetBytes(rtBody, "values").Array() {
			requestTypes = append(requestTypes, RequestType{
				ID:   rt.Get("id").String(),
				Name: rt.Get("name").String(),
				Desk: desk.Get("projectName").String(),
			})
		}
	}
	return requestTypes, nil
}
