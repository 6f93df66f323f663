package jira

// IssueType is a Jira issue type as returned by the project and issuetype
// endpoints.
type IssueType struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Subtask bool   `json:"subtask"`
}

// Priority is a Jira priority as returned by the priority endpoint.
type Priority struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Project is the subset of the project endpoint this tool reads.
type Project struct {
	Key        string      `json:"key"`
	Name       string      `json:"name"`
	IssueTypes []IssueType `json:"issueTypes"`
}

// RequestType is a JSM request type discovered through the service desk API.
type RequestType struct {
	ID   string
	Name string
	Desk string // project name of the owning service desk
}

// SearchIssue is one candidate from the dedup search: the issue key, its
// status name, and the value of the object-name custom field (empty when the
// field is unset on the issue).
type SearchIssue struct {
	Key        string
	Status     string
	ObjectName string
}

// CreateIssueRequest carries everything needed to create an issue. IssueType
// and Priority are names; the client resolves them to IDs before posting.
type CreateIssueRequest struct {
	ProjectKey   string
	IssueType    string
	Summary      string
	Description  string
	Priority     string
	Assignee     string
	CustomFields map[string]interface{}
}

// CreatedIssue is the response to a successful issue creation.
type CreatedIssue struct {
	ID   string `json:"id"`
	Key  string `json:"key"`
	Self string `json:"self"`
}

// Document is an Atlassian Document Format body. The REST v3 API requires
// descriptions and comments in this shape.
type Document struct {
	Type    string `json:"type"`
	Version int    `json:"version"`
	Content []Node `json:"content"`
}

// Node is a single ADF content node.
type Node struct {
	Type    string `json:"type"`
	Text    string `json:"text,omitempty"`
	Content []Node `json:"content,omitempty"`
}

// TextDocument wraps plain text in a single-paragraph ADF document.
func TextDocument(text string) Document {
	return Document{
		Type:    "doc",
		Version: 1,
		Content: []Node{
			{
				Type: "paragraph",
				Content: []Node{
					{Type: "text", Text: text},
				},
			},
		},
	}
}
