package config

import (
	"os"
	"strings"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v2"
)

// Semantic field names used in custom_field_mappings.
const (
	FieldObjectName       = "vtom_object_name"
	FieldJobName          = "vtom_job_name"
	FieldRequestType      = "request_type"
	FieldAffectedServices = "affected_services"
	FieldOrganizations    = "organizations"
)

// Config holds the static configuration produced by the setup wizard and
// consumed by the alarm-processing path. Loaded once at startup, read-only
// afterwards.
type Config struct {
	JiraBaseURL   string `yaml:"jira_base_url"`
	JiraAuthToken string `yaml:"jira_auth_token"`

	DefaultProjectKey string `yaml:"default_project_key"`
	DefaultIssueType  string `yaml:"default_issue_type"`
	DefaultPriority   string `yaml:"default_priority"`
	DefaultAssignee   string `yaml:"default_assignee"`

	// CustomFieldMappings maps semantic field names to Jira custom field IDs
	// (customfield_*).
	CustomFieldMappings map[string]string `yaml:"custom_field_mappings"`

	// JSMDefaultValues holds default values for JSM fields, keyed by the same
	// semantic names as CustomFieldMappings. Values are IDs, not names.
	JSMDefaultValues map[string]interface{} `yaml:"jsm_default_values"`

	// PriorityMapping maps a lowercase VTOM severity to a Jira priority name.
	PriorityMapping map[string]string `yaml:"priority_mapping"`

	// IssueTypeMapping maps a lowercase VTOM alarm type to a Jira issue type name.
	IssueTypeMapping map[string]string `yaml:"issue_type_mapping"`
}

// Load reads and parses the YAML configuration file.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "open config file %s", path)
	}
	defer f.Close()

	var cfg Config
	if err := yaml.NewDecoder(f).Decode(&cfg); err != nil {
		return nil, errors.Wrapf(err, "parse config file %s", path)
	}

	if cfg.JiraBaseURL == "" || cfg.JiraAuthToken == "" {
		return nil, errors.Errorf("config file %s missing jira_base_url or jira_auth_token", path)
	}

	return &cfg, nil
}

// FieldID resolves a semantic field name to its Jira custom field ID. A
// missing mapping is not an error: the caller skips the enrichment.
func (c *Config) FieldID(name string) (string, bool) {
	id, ok := c.CustomFieldMappings[name]
	if !ok || id == "" {
		return "", false
	}
	return id, true
}

// MapSeverity maps a VTOM severity to a Jira priority name.
func (c *Config) MapSeverity(severity string) (string, bool) {
	p, ok := c.PriorityMapping[strings.ToLower(severity)]
	return p, ok
}

// MapAlarmType maps a VTOM alarm type to a Jira issue type name.
func (c *Config) MapAlarmType(alarmType string) (string, bool) {
	t, ok := c.IssueTypeMapping[strings.ToLower(alarmType)]
	return t, ok
}

// CustomFieldValues builds the custom field payload for issue creation: the
// object-name tracking field, the JSM defaults that have a configured field
// and a non-empty value, and the job-name field when mapped. Every created
// ticket carries the object name so later runs can find it.
func (c *Config) CustomFieldValues(objectName string) map[string]interface{} {
	fields := make(map[string]interface{})

	if id, ok := c.FieldID(FieldObjectName); ok {
		fields[id] = objectName
	}

	for name, id := range c.CustomFieldMappings {
		if id == "" {
			continue
		}
		if v, ok := c.JSMDefaultValues[name]; ok && !emptyValue(v) {
			fields[id] = v
		}
	}

	if id, ok := c.FieldID(FieldJobName); ok {
		fields[id] = objectName
	}

	return fields
}

func emptyValue(v interface{}) bool {
	switch val := v.(type) {
	case nil:
		return true
	case string:
		return val == ""
	case []interface{}:
		return len(val) == 0
	case []string:
		return len(val) == 0
	}
	return false
}
