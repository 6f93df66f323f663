package jira

import (
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
)

const testToken = "dXNlcjp0b2tlbg=="

// jiraStub is a minimal Jira REST double: canned JSON per path, with request
// capture for payload assertions.
type jiraStub struct {
	mux      *http.ServeMux
	server   *httptest.Server
	requests []capturedRequest
}

type capturedRequest struct {
	method string
	path   string
	header http.Header
	body   []byte
}

func newJiraStub(t *testing.T) *jiraStub {
	t.Helper()
	s := &jiraStub{mux: http.NewServeMux()}
	s.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		s.requests = append(s.requests, capturedRequest{
			method: r.Method,
			path:   r.URL.Path,
			header: r.Header.Clone(),
			body:   body,
		})
		s.mux.ServeHTTP(w, r)
	}))
	t.Cleanup(s.server.Close)
	return s
}

func (s *jiraStub) respond(path string, status int, body string) {
	s.mux.HandleFunc(path, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		io.WriteString(w, body)
	})
}

func (s *jiraStub) client() *Client {
	return NewClient(s.server.URL+"/", testToken) // trailing slash must be trimmed
}

func (s *jiraStub) lastRequestTo(t *testing.T, path string) capturedRequest {
	t.Helper()
	for i := len(s.requests) - 1; i >= 0; i-- {
		if s.requests[i].path == path {
			return s.requests[i]
		}
	}
	t.Fatalf("no request to %s", path)
	return capturedRequest{}
}

func (s *jiraStub) requestCount(path string) int {
	n := 0
	for _, r := range s.requests {
		if r.path == path {
			n++
		}
	}
	return n
}

const projectBody = `{
	"key": "PROJ",
	"name": "Operations",
	"issueTypes": [
		{"id": "10001", "name": "[System] Incident"},
		{"id": "10002", "name": "Task"},
		{"id": "10003", "name": "Sub-task", "subtask": true}
	]
}`

const priorityBody = `[
	{"id": "1", "name": "Highest"},
	{"id": "2", "name": "High"},
	{"id": "3", "name": "Medium"}
]`

func TestMyself(t *testing.T) {
	stub := newJiraStub(t)
	stub.respond("/rest/api/3/myself", 200, `{"displayName": "Ops Bot"}`)

	name, err := stub.client().Myself()
	require.NoError(t, err)
	assert.Equal(t, "Ops Bot", name)

	req := stub.lastRequestTo(t, "/rest/api/3/myself")
	assert.Equal(t, "Basic "+testToken, req.header.Get("Authorization"))
	assert.Equal(t, "application/json", req.header.Get("Accept"))
}

func TestIssueTypeIDFromProject(t *testing.T) {
	stub := newJiraStub(t)
	stub.respond("/rest/api/3/project/PROJ", 200, projectBody)

	id, err := stub.client().IssueTypeID("PROJ", "[system] incident")
	require.NoError(t, err)
	assert.Equal(t, "10001", id)
	assert.Zero(t, stub.requestCount("/rest/api/3/issuetype"))
}

func TestIssueTypeIDGlobalFallback(t *testing.T) {
	stub := newJiraStub(t)
	stub.respond("/rest/api/3/project/PROJ", 200, `{"key": "PROJ", "name": "Operations", "issueTypes": []}`)
	stub.respond("/rest/api/3/issuetype", 200, `[{"id": "20001", "name": "Bug"}]`)

	id, err := stub.client().IssueTypeID("PROJ", "BUG")
	require.NoError(t, err)
	assert.Equal(t, "20001", id)
}

func TestIssueTypeIDNotFound(t *testing.T) {
	stub := newJiraStub(t)
	stub.respond("/rest/api/3/project/PROJ", 200, projectBody)
	stub.respond("/rest/api/3/issuetype", 200, `[]`)

	_, err := stub.client().IssueTypeID("PROJ", "Epic")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `issue type "Epic" not found`)
}

func TestPriorityID(t *testing.T) {
	stub := newJiraStub(t)
	stub.respond("/rest/api/3/priority", 200, priorityBody)

	id, err := stub.client().PriorityID("high")
	require.NoError(t, err)
	assert.Equal(t, "2", id)

	_, err = stub.client().PriorityID("Blocker")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `priority "Blocker" not found`)
}

func TestSearchProjectIssues(t *testing.T) {
	stub := newJiraStub(t)
	stub.respond("/rest/api/3/search/jql", 200, `{
		"issues": [
			{"key": "PROJ-50", "fields": {"status": {"name": "Open"}, "customfield_10055": "ETL_NIGHTLY"}},
			{"key": "PROJ-42", "fields": {"status": {"name": "Done"}, "customfield_10055": null}}
		]
	}`)

	issues, err := stub.client().SearchProjectIssues("PROJ", "customfield_10055")
	require.NoError(t, err)
	assert.Equal(t, []SearchIssue{
		{Key: "PROJ-50", Status: "Open", ObjectName: "ETL_NIGHTLY"},
		{Key: "PROJ-42", Status: "Done", ObjectName: ""},
	}, issues)

	req := stub.lastRequestTo(t, "/rest/api/3/search/jql")
	body := gjson.ParseBytes(req.body)
	assert.Equal(t, "project = PROJ ORDER BY created DESC", body.Get("jql").String())
	assert.Equal(t, int64(100), body.Get("maxResults").Int())
	fields := body.Get("fields").Array()
	require.Len(t, fields, 3)
	assert.Equal(t, "customfield_10055", fields[2].String())
}

func TestCreateIssue(t *testing.T) {
	stub := newJiraStub(t)
	stub.respond("/rest/api/3/project/PROJ", 200, projectBody)
	stub.respond("/rest/api/3/priority", 200, priorityBody)
	stub.respond("/rest/api/3/issue", 201, `{"id": "10500", "key": "PROJ-101", "self": "..."}`)

	created, err := stub.client().CreateIssue(CreateIssueRequest{
		ProjectKey:  "PROJ",
		IssueType:   "[System] Incident",
		Summary:     "Job failed",
		Description: "exit code 8",
		Priority:    "High",
		Assignee:    "oncall@example.com",
		CustomFields: map[string]interface{}{
			"customfield_10055": "ETL_NIGHTLY",
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "PROJ-101", created.Key)

	req := stub.lastRequestTo(t, "/rest/api/3/issue")
	fields := gjson.ParseBytes(req.body).Get("fields")
	assert.Equal(t, "PROJ", fields.Get("project.key").String())
	assert.Equal(t, "10001", fields.Get("issuetype.id").String())
	assert.Equal(t, "Job failed", fields.Get("summary").String())
	assert.Equal(t, "2", fields.Get("priority.id").String())
	assert.Equal(t, "oncall@example.com", fields.Get("assignee.emailAddress").String())
	assert.Equal(t, "ETL_NIGHTLY", fields.Get("customfield_10055").String())

	// description travels as a one-paragraph ADF document
	assert.Equal(t, "doc", fields.Get("description.type").String())
	assert.Equal(t, int64(1), fields.Get("description.version").Int())
	assert.Equal(t, "exit code 8", fields.Get("description.content.0.content.0.text").String())
}

func TestCreateIssueUnresolvablePriority(t *testing.T) {
	stub := newJiraStub(t)
	stub.respond("/rest/api/3/project/PROJ", 200, projectBody)
	stub.respond("/rest/api/3/priority", 200, priorityBody)

	_, err := stub.client().CreateIssue(CreateIssueRequest{
		ProjectKey: "PROJ",
		IssueType:  "Task",
		Priority:   "Nope",
	})
	require.Error(t, err)
	// resolution failed, so nothing was posted to the issue endpoint
	assert.Zero(t, stub.requestCount("/rest/api/3/issue"))
}

func TestCreateSubtask(t *testing.T) {
	stub := newJiraStub(t)
	stub.respond("/rest/api/3/project/PROJ", 200, projectBody)
	stub.respond("/rest/api/3/priority", 200, priorityBody)
	stub.respond("/rest/api/3/issue", 201, `{"id": "10501", "key": "PROJ-102"}`)

	created, err := stub.client().CreateSubtask("PROJ-42", CreateIssueRequest{
		ProjectKey: "PROJ",
		Summary:    "follow-up",
		Priority:   "Medium",
	})
	require.NoError(t, err)
	assert.Equal(t, "PROJ-102", created.Key)

	fields := gjson.ParseBytes(stub.lastRequestTo(t, "/rest/api/3/issue").body).Get("fields")
	assert.Equal(t, "PROJ-42", fields.Get("parent.key").String())
	assert.Equal(t, "10003", fields.Get("issuetype.id").String())
}

func TestCreateIssueErrorDetail(t *testing.T) {
	stub := newJiraStub(t)
	stub.respond("/rest/api/3/project/PROJ", 200, projectBody)
	stub.respond("/rest/api/3/priority", 200, priorityBody)
	stub.respond("/rest/api/3/issue", 400,
		`{"errorMessages": ["Field 'customfield_10055' cannot be set"], "errors": {"summary": "Summary is required"}}`)

	_, err := stub.client().CreateIssue(CreateIssueRequest{
		ProjectKey: "PROJ",
		IssueType:  "Task",
		Priority:   "High",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Field 'customfield_10055' cannot be set")
	assert.Contains(t, err.Error(), "summary: Summary is required")
}

func TestErrorRawBodyFallback(t *testing.T) {
	stub := newJiraStub(t)
	stub.respond("/rest/api/3/priority", 503, `service unavailable`)

	_, err := stub.client().Priorities()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 503")
	assert.Contains(t, err.Error(), "service unavailable")
}

func TestLinkIssues(t *testing.T) {
	stub := newJiraStub(t)
	stub.respond("/rest/api/3/issueLink", 201, `{}`)

	require.NoError(t, stub.client().LinkIssues("PROJ-101", "PROJ-42", "Relates"))

	body := gjson.ParseBytes(stub.lastRequestTo(t, "/rest/api/3/issueLink").body)
	assert.Equal(t, "Relates", body.Get("type.name").String())
	assert.Equal(t, "PROJ-101", body.Get("inwardIssue.key").String())
	assert.Equal(t, "PROJ-42", body.Get("outwardIssue.key").String())
}

func TestAddComment(t *testing.T) {
	stub := newJiraStub(t)
	stub.respond("/rest/api/3/issue/PROJ-101/comment", 201, `{}`)

	require.NoError(t, stub.client().AddComment("PROJ-101", "VTOM alarm processed at 2026-08-29 14:30:05"))

	body := gjson.ParseBytes(stub.lastRequestTo(t, "/rest/api/3/issue/PROJ-101/comment").body)
	assert.Equal(t, "doc", body.Get("body.type").String())
	assert.Equal(t, "VTOM alarm processed at 2026-08-29 14:30:05",
		body.Get("body.content.0.content.0.text").String())
}

func TestAddAttachment(t *testing.T) {
	stub := newJiraStub(t)
	stub.respond("/rest/api/3/issue/PROJ-101/attachments", 200, `[{}]`)

	path := filepath.Join(t.TempDir(), "job.out")
	require.NoError(t, os.WriteFile(path, []byte("stdout content"), 0o600))

	require.NoError(t, stub.client().AddAttachment("PROJ-101", path, "job.out"))

	req := stub.lastRequestTo(t, "/rest/api/3/issue/PROJ-101/attachments")
	assert.Equal(t, "no-check", req.header.Get("X-Atlassian-Token"))
	assert.Equal(t, "Basic "+testToken, req.header.Get("Authorization"))
	assert.True(t, strings.HasPrefix(req.header.Get("Content-Type"), "multipart/form-data"))
	assert.Contains(t, string(req.body), `filename="job.out"`)
	assert.Contains(t, string(req.body), "stdout content")
}

func TestAddAttachmentMissingFile(t *testing.T) {
	stub := newJiraStub(t)

	err := stub.client().AddAttachment("PROJ-101", filepath.Join(t.TempDir(), "missing.out"), "missing.out")
	require.Error(t, err)
	// no request is made for a missing file
	assert.Empty(t, stub.requests)
}

func TestCustomFields(t *testing.T) {
	stub := newJiraStub(t)
	stub.respond("/rest/api/3/issue/createmeta", 200, `{
		"projects": [{
			"key": "PROJ",
			"issuetypes": [
				{"name": "Task", "fields": {"customfield_99999": {"name": "Unrelated"}}},
				{"name": "[System] Incident", "fields": {
					"summary": {"name": "Summary"},
					"customfield_10055": {"name": "VTOM Object Name"},
					"customfield_10010": {"name": "Request Type"}
				}}
			]
		}]
	}`)

	fields, err := stub.client().CustomFields("PROJ", "[System] Incident")
	require.NoError(t, err)
	assert.Equal(t, map[string]string{
		"customfield_10055": "VTOM Object Name",
		"customfield_10010": "Request Type",
	}, fields)
}

func TestRequestTypes(t *testing.T) {
	stub := newJiraStub(t)
	stub.respond("/rest/servicedeskapi/servicedesk", 200,
		`{"values": [{"id": "1", "projectName": "Operations"}, {"id": "2", "projectName": "Broken"}]}`)
	stub.respond("/rest/servicedeskapi/servicedesk/1/requesttype", 200,
		`{"values": [{"id": "14", "name": "Report a system problem"}]}`)
	stub.respond("/rest/servicedeskapi/servicedesk/2/requesttype", 500, `oops`)

	requestTypes, err := stub.client().RequestTypes()
	require.NoError(t, err)
	// the failing desk is skipped, not fatal
	assert.Equal(t, []RequestType{
		{ID: "14", Name: "Report a system problem", Desk: "Operations"},
	}, requestTypes)
}
