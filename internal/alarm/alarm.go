package alarm

// Alarm is one VTOM alarm event, built once per invocation from the command
// line.
type Alarm struct {
	ProjectKey  string
	Summary     string
	Description string
	ObjectName  string

	IssueType string
	Priority  string
	Assignee  string
	Severity  string
	AlarmType string

	OutAttachmentName   string
	OutAttachmentFile   string
	ErrorAttachmentName string
	ErrorAttachmentFile string
}
