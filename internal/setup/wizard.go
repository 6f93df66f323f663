package setup

import (
	"encoding/base64"
	"io"
	"os"
	"strings"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v2"

	"vtom-jira/internal/config"
	"vtom-jira/internal/jira"
)

// Fallbacks used when a discovery step fails or is skipped; they match the
// shipped configuration template.
const (
	fallbackProjectKey    = "PROJ"
	fallbackIssueType     = "Incident"
	fallbackPriority      = "High"
	fallbackObjectField   = "customfield_10055"
	fallbackRequestField  = "customfield_10010"
	fallbackServicesField = "customfield_10043"
	fallbackOrgsField     = "customfield_10002"
	fallbackRequestTypeID = "14"
)

// directory is the slice of the Jira client the wizard discovers through.
type directory interface {
	Myself() (string, error)
	Projects() ([]jira.Project, error)
	Project(projectKey string) (*jira.Project, error)
	Priorities() ([]jira.Priority, error)
	CustomFields(projectKey, issueTypeName string) (map[string]string, error)
	RequestTypes() ([]jira.RequestType, error)
}

// Wizard walks the user through discovering their Jira configuration and
// writes the YAML file the alarm path consumes. Every discovery step falls
// back to a hard-coded default on remote error and keeps going; only the
// initial connection test is fatal.
type Wizard struct {
	*prompter
	connect func(baseURL, authToken string) directory
	cfg     config.Config
}

func NewWizard(in io.Reader, out io.Writer) *Wizard {
	return &Wizard{
		prompter: newPrompter(in, out),
		connect: func(baseURL, authToken string) directory {
			return jira.NewClient(baseURL, authToken)
		},
	}
}

// Run executes the full wizard and writes the configuration to configPath.
func (w *Wizard) Run(configPath string) error {
	w.header("VTOM Jira Service Management - Configuration Setup")
	w.printf("\nThis wizard will help you configure the integration with your Jira instance.\n")
	w.printf("You will be asked to select options from your Jira configuration.\n")

	client, err := w.setupConnection()
	if err != nil {
		return err
	}
	w.setupProject(client)
	w.setupIssueType(client)
	w.setupPriority(client)
	w.setupCustomFields(client)
	w.setupRequestType(client)

	if err := w.writeConfig(configPath); err != nil {
		return err
	}

	w.header("Setup Complete!")
	w.printf("\nNext steps:\n")
	w.printf("  1. Review the generated %s file\n", configPath)
	w.printf("  2. Test the integration with a sample alarm\n")
	w.printf("  3. Configure VTOM to call this tool on alarms\n")
	return nil
}

func (w *Wizard) setupConnection() (directory, error) {
	w.step(1, "Connection Setup")
	w.printf("\nTo connect to Jira, you need:\n")
	w.printf("  1. Your Jira instance URL (e.g., https://your-domain.atlassian.net)\n")
	w.printf("  2. An API token (create one at: https://id.atlassian.com/manage-profile/security/api-tokens)\n")

	baseURL := strings.TrimRight(w.input("\nEnter your Jira instance URL", ""), "/")

	w.printf("\nThe credential is email:api_token encoded in base64.\n")
	var authToken string
	if strings.EqualFold(w.input("Do you want to enter the base64 token manually? (y/n)", "n"), "y") {
		authToken = w.input("Enter your base64 encoded token", "")
	} else {
		email := w.input("Enter your Jira email", "")
		apiToken := w.input("Enter your API token", "")
		authToken = base64.StdEncoding.EncodeToString([]byte(email + ":" + apiToken))
	}

	client := w.connect(baseURL, authToken)
	w.printf("\nTesting connection...\n")
	name, err := client.Myself()
	if err != nil {
		return nil, errors.Wrap(err, "connection test failed, check URL and credentials")
	}
	w.printf("Successfully connected as: %s\n", name)

	w.cfg.JiraBaseURL = baseURL
	w.cfg.JiraAuthToken = authToken
	return client, nil
}

func (w *Wizard) setupProject(client directory) {
	w.step(2, "Project Selection")
	w.printf("\nFetching available projects...\n")

	projects, err := client.Projects()
	if err != nil || len(projects) == 0 {
		if err != nil {
			w.printf("Error fetching projects: %v\n", err)
		}
		w.printf("Using default project key %q.\n", fallbackProjectKey)
		w.cfg.DefaultProjectKey = fallbackProjectKey
		return
	}

	opts := make([]option, 0, len(projects))
	for _, p := range projects {
		opts = append(opts, option{ID: p.Key, Label: p.Name + " (" + p.Key + ")"})
	}
	if key := w.choice("Select your project:", opts, false); key != "" {
		w.cfg.DefaultProjectKey = key
	} else {
		w.cfg.DefaultProjectKey = fallbackProjectKey
	}
}

func (w *Wizard) setupIssueType(client directory) {
	w.step(3, "Issue Type Selection")
	w.printf("\nFetching available issue types...\n")

	w.cfg.DefaultIssueType = fallbackIssueType
	project, err := client.Project(w.cfg.DefaultProjectKey)
	if err != nil {
		w.printf("Error fetching issue types: %v\n", err)
		w.printf("Using default issue type %q.\n", fallbackIssueType)
		return
	}
	if len(project.IssueTypes) == 0 {
		w.printf("No issue types found. Using default issue type %q.\n", fallbackIssueType)
		return
	}

	opts := make([]option, 0, len(project.IssueTypes))
	for _, t := range project.IssueTypes {
		opts = append(opts, option{ID: t.Name, Label: t.Name})
	}
	if name := w.choice("Select the default issue type for VTOM alarms:", opts, false); name != "" {
		w.cfg.DefaultIssueType = name
	}
}

func (w *Wizard) setupPriority(client directory) {
	w.step(4, "Priority Selection")
	w.printf("\nFetching available priorities...\n")

	w.cfg.DefaultPriority = fallbackPriority
	priorities, err := client.Priorities()
	if err != nil || len(priorities) == 0 {
		if err != nil {
			w.printf("Error fetching priorities: %v\n", err)
		}
		w.printf("Using default priority %q.\n", fallbackPriority)
		return
	}

	opts := make([]option, 0, len(priorities))
	for _, p := range priorities {
		opts = append(opts, option{ID: p.Name, Label: p.Name})
	}
	if name := w.choice("Select the default priority for VTOM alarms:", opts, false); name != "" {
		w.cfg.DefaultPriority = name
	}
}

func (w *Wizard) setupCustomFields(client directory) {
	w.step(5, "Custom Fields Configuration")
	w.printf("\nFetching custom fields...\n")

	w.cfg.CustomFieldMappings = map[string]string{
		config.FieldObjectName:       fallbackObjectField,
		config.FieldRequestType:      fallbackRequestField,
		config.FieldAffectedServices: fallbackServicesField,
		config.FieldOrganizations:    fallbackOrgsField,
	}

	fields, err := client.CustomFields(w.cfg.DefaultProjectKey, w.cfg.DefaultIssueType)
	if err != nil || len(fields) == 0 {
		if err != nil {
			w.printf("Error fetching custom fields: %v\n", err)
		}
		w.printf("Keeping template custom field IDs; adjust them manually if needed.\n")
		return
	}
	w.printf("\nFound %d custom fields\n", len(fields))

	w.printf("\n--- VTOM Object Name Field ---\n")
	w.printf("This field is used to track VTOM objects and detect duplicate issues.\n")
	objectField := findFieldByTerms(fields, "vtom", "object", "name")
	if objectField != "" {
		w.printf("Suggested field: %s (%s)\n", fields[objectField], objectField)
		if !strings.EqualFold(w.input("Use this field? (y/n)", "y"), "y") {
			objectField = ""
		}
	}
	if objectField == "" {
		opts := make([]option, 0, len(fields))
		for id, name := range fields {
			opts = append(opts, option{ID: id, Label: name + " (" + id + ")"})
		}
		objectField = w.choice("Select the field for the VTOM object name:", opts, true)
	}
	w.cfg.CustomFieldMappings[config.FieldObjectName] = objectField

	w.printf("\n--- Request Type Field (Jira Service Management) ---\n")
	if id := findFieldByTerms(fields, "request", "type"); id != "" {
		w.printf("Found Request Type field: %s\n", id)
		w.cfg.CustomFieldMappings[config.FieldRequestType] = id
	} else {
		w.printf("Request Type field not found. You may need to configure it manually.\n")
		w.cfg.CustomFieldMappings[config.FieldRequestType] = ""
	}

	w.printf("\n--- Affected Services Field (Optional) ---\n")
	if id := findFieldByTerms(fields, "affected", "service", "services"); id != "" {
		w.printf("Found Affected Services field: %s\n", id)
		w.cfg.CustomFieldMappings[config.FieldAffectedServices] = id
	} else {
		w.cfg.CustomFieldMappings[config.FieldAffectedServices] = ""
	}

	w.printf("\n--- Organizations Field (Optional) ---\n")
	if id := findFieldByTerms(fields, "organization", "organisations"); id != "" {
		w.printf("Found Organizations field: %s\n", id)
		w.cfg.CustomFieldMappings[config.FieldOrganizations] = id
	} else {
		w.cfg.CustomFieldMappings[config.FieldOrganizations] = ""
	}
}

func (w *Wizard) setupRequestType(client directory) {
	w.step(6, "Request Type Selection (JSM)")

	w.cfg.JSMDefaultValues = map[string]interface{}{
		config.FieldRequestType:      fallbackRequestTypeID,
		config.FieldAffectedServices: []string{},
		config.FieldOrganizations:    []string{},
	}

	if w.cfg.CustomFieldMappings[config.FieldRequestType] == "" {
		w.printf("Request Type field not configured. Skipping...\n")
		return
	}

	w.printf("\nFetching available request types...\n")
	requestTypes, err := client.RequestTypes()
	if err != nil || len(requestTypes) == 0 {
		if err != nil {
			w.printf("Error fetching request types: %v\n", err)
		}
		w.printf("No request types found or Service Desk API not available.\n")
		w.printf("You may need to configure the Request Type ID manually.\n")
		return
	}

	opts := make([]option, 0, len(requestTypes))
	for _, rt := range requestTypes {
		opts = append(opts, option{ID: rt.ID, Label: rt.Name + " (Service Desk: " + rt.Desk + ")"})
	}
	if id := w.choice("Select the default request type for VTOM incidents:", opts, true); id != "" {
		w.cfg.JSMDefaultValues[config.FieldRequestType] = id
	}
}

// writeConfig renders the configuration, shows it, and saves it on
// confirmation. The severity and alarm-type mapping tables are always emitted
// with the template defaults.
func (w *Wizard) writeConfig(configPath string) error {
	w.step(7, "Generate Configuration File")

	w.cfg.PriorityMapping = map[string]string{
		"critical": "Highest",
		"high":     "High",
		"medium":   "Medium",
		"low":      "Low",
		"info":     "Lowest",
	}
	w.cfg.IssueTypeMapping = map[string]string{
		"job_failure":  "Incident",
		"system_alert": "Incident",
		"performance":  "Task",
		"maintenance":  "Task",
	}

	rendered, err := yaml.Marshal(&w.cfg)
	if err != nil {
		return errors.Wrap(err, "render configuration")
	}

	w.printf("\nConfiguration file content:\n%s\n%s%s\n",
		strings.Repeat("-", 70), rendered, strings.Repeat("-", 70))

	if !strings.EqualFold(w.input("\nSave this configuration to "+configPath+"? (y/n)", "y"), "y") {
		w.printf("\nConfiguration not saved. You can copy the content above manually.\n")
		return nil
	}
	if err := os.WriteFile(configPath, rendered, 0o600); err != nil {
		return errors.Wrapf(err, "write configuration to %s", configPath)
	}
	w.printf("\nConfiguration saved to %s\n", configPath)
	return nil
}

// findFieldByTerms returns the first field whose name contains any of the
// terms, case-insensitively.
func findFieldByTerms(fields map[string]string, terms ...string) string {
	for id, name := range fields {
		lower := strings.ToLower(name)
		for _, term := range terms {
			if strings.Contains(lower, strings.ToLower(term)) {
				return id
			}
		}
	}
	return ""
}
