package jira

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"

	"github.com/pkg/errors"
)

// issueFields assembles the fields object shared by CreateIssue and
// CreateSubtask. Custom fields are merged last and may override nothing: the
// standard fields use reserved names.
func issueFields(req CreateIssueRequest, issueTypeID, priorityID string) map[string]interface{} {
	fields := map[string]interface{}{
		"project":     map[string]string{"key": req.ProjectKey},
		"issuetype":   map[string]string{"id": issueTypeID},
		"summary":     req.Summary,
		"description": TextDocument(req.Description),
		"priority":    map[string]string{"id": priorityID},
	}
	if req.Assignee != "" {
		fields["assignee"] = map[string]string{"emailAddress": req.Assignee}
	}
	for id, value := range req.CustomFields {
		fields[id] = value
	}
	return fields
}

// CreateIssue creates a new issue. Issue type and priority names are resolved
// to IDs first; either resolution failing aborts before anything is posted.
func (c *Client) CreateIssue(req CreateIssueRequest) (*CreatedIssue, error) {
	issueTypeID, err := c.IssueTypeID(req.ProjectKey, req.IssueType)
	if err != nil {
		return nil, err
	}
	priorityID, err := c.PriorityID(req.Priority)
	if err != nil {
		return nil, err
	}

	body, err := c.postJSON("/rest/api/3/issue", map[string]interface{}{
		"fields": issueFields(req, issueTypeID, priorityID),
	})
	if err != nil {
		return nil, err
	}

	var created CreatedIssue
	if err := json.Unmarshal(body, &created); err != nil {
		return nil, errors.Wrap(err, "parse created issue")
	}
	return &created, nil
}

// CreateSubtask creates a Sub-task under parentKey. The alarm path creates
// linked issues instead (JSM projects often have no Sub-task type), but the
// operation is part of the consumed API surface.
func (c *Client) CreateSubtask(parentKey string, req CreateIssueRequest) (*CreatedIssue, error) {
	issueTypeID, err := c.IssueTypeID(req.ProjectKey, "Sub-task")
	if err != nil {
		return nil, err
	}
	priorityID, err := c.PriorityID(req.Priority)
	if err != nil {
		return nil, err
	}

	fields := issueFields(req, issueTypeID, priorityID)
	fields["parent"] = map[string]string{"key": parentKey}

	body, err := c.postJSON("/rest/api/3/issue", map[string]interface{}{"fields": fields})
	if err != nil {
		return nil, err
	}

	var created CreatedIssue
	if err := json.Unmarshal(body, &created); err != nil {
		return nil, errors.Wrap(err, "parse created subtask")
	}
	return &created, nil
}

// LinkIssues creates a link of the given type (e.g. "Relates") from
// inwardKey to outwardKey.
func (c *Client) LinkIssues(inwardKey, outwardKey, linkType string) error {
	_, err := c.postJSON("/rest/api/3/issueLink", map[string]interface{}{
		"type":         map[string]string{"name": linkType},
		"inwardIssue":  map[string]string{"key": inwardKey},
		"outwardIssue": map[string]string{"key": outwardKey},
	})
	return err
}

// AddComment appends a plain-text comment to an issue.
func (c *Client) AddComment(issueKey, comment string) error {
	_, err := c.postJSON("/rest/api/3/issue/"+url.PathEscape(issueKey)+"/comment", map[string]interface{}{
		"body": TextDocument(comment),
	})
	return err
}

// AddAttachment uploads a file to an issue. Attachments go over a separate
// multipart path: Jira rejects the JSON content type here and requires the
// X-Atlassian-Token header to pass its CSRF check. A missing file is an
// error for the caller to log, not to die on; no request is made in that
// case.
func (c *Client) AddAttachment(issueKey, filePath, filename string) error {
	if _, err := os.Stat(filePath); err != nil {
		return errors.Wrapf(err, "attachment file %s", filePath)
	}

	f, err := os.Open(filePath)
	if err != nil {
		return errors.Wrapf(err, "open attachment file %s", filePath)
	}
	defer f.Close()

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile("file", filename)
	if err != nil {
		return errors.Wrap(err, "build multipart body")
	}
	if _, err := io.Copy(part, f); err != nil {
		return errors.Wrapf(err, "read attachment file %s", filePath)
	}
	if err := w.Close(); err != nil {
		return errors.Wrap(err, "finalize multipart body")
	}

	path := "/rest/api/3/issue/" + url.PathEscape(issueKey) + "/attachments"
	req, err := http.NewRequest(http.MethodPost, c.baseURL+path, &buf)
	if err != nil {
		return errors.Wrapf(err, "build attachment request for %s", issueKey)
	}
	req.Header.Set("Authorization", "Basic "+c.authToken)
	req.Header.Set("X-Atlassian-Token", "no-check")
	req.Header.Set("Content-Type", w.FormDataContentType())

	_, err = c.do(req, path)
	return err
}
