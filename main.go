package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"vtom-jira/internal/alarm"
	"vtom-jira/internal/config"
	"vtom-jira/internal/jira"
	"vtom-jira/internal/setup"
)

var (
	configPath string
	debug      bool
	a          alarm.Alarm
)

var rootCmd = &cobra.Command{
	Use:   "vtom-jira",
	Short: "Create Jira Service Management tickets from Visual TOM alarms",
	Long: `vtom-jira turns a Visual TOM alarm into a Jira Service Management ticket.

If an open ticket already exists for the alarm's object name, a new ticket is
created and linked to it instead of duplicating it. Output and error logs are
attached when provided, and every processed alarm leaves a timestamp comment.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runAlarm,
}

var setupCmd = &cobra.Command{
	Use:   "setup",
	Short: "Interactively discover your Jira configuration and write the config file",
	RunE: func(cmd *cobra.Command, args []string) error {
		return setup.NewWizard(cmd.InOrStdin(), cmd.OutOrStdout()).Run(configPath)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "config.yml", "path to the configuration file")

	f := rootCmd.Flags()
	f.StringVar(&a.ProjectKey, "projectKey", "", "Jira project key")
	f.StringVar(&a.Summary, "summary", "", "issue summary")
	f.StringVar(&a.Description, "description", "", "issue description")
	f.StringVar(&a.ObjectName, "objectName", "", "VTOM object name")
	f.StringVar(&a.IssueType, "issueType", "", "issue type (default from config)")
	f.StringVar(&a.Priority, "priority", "", "issue priority (default from config)")
	f.StringVar(&a.Assignee, "assignee", "", "issue assignee email")
	f.StringVar(&a.OutAttachmentName, "outAttachmentName", "", "output log attachment name")
	f.StringVar(&a.OutAttachmentFile, "outAttachmentFile", "", "output log attachment file path")
	f.StringVar(&a.ErrorAttachmentName, "errorAttachmentName", "", "error log attachment name")
	f.StringVar(&a.ErrorAttachmentFile, "errorAttachmentFile", "", "error log attachment file path")
	f.StringVar(&a.Severity, "severity", "", "VTOM alarm severity (for priority mapping)")
	f.StringVar(&a.AlarmType, "alarmType", "", "VTOM alarm type (for issue type mapping)")
	f.BoolVar(&debug, "debug", false, "show available issue types and priorities instead of processing")

	for _, name := range []string{"projectKey", "summary", "description", "objectName"} {
		cobra.CheckErr(rootCmd.MarkFlagRequired(name))
	}

	rootCmd.AddCommand(setupCmd)
}

func newLogger() (*zap.SugaredLogger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Encoding = "console"
	cfg.OutputPaths = []string{"stdout"}
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	logger, err := cfg.Build()
	if err != nil {
		return nil, err
	}
	return logger.Sugar(), nil
}

func runAlarm(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	client := jira.NewClient(cfg.JiraBaseURL, cfg.JiraAuthToken)

	if debug {
		runDebug(cmd, client)
		return nil
	}

	log, err := newLogger()
	if err != nil {
		return err
	}
	defer log.Sync()

	return alarm.NewProcessor(cfg, client, log).Process(a)
}

// runDebug prints the project's issue types and the instance priorities.
// Discovery errors are printed and skipped; debug mode always exits 0.
func runDebug(cmd *cobra.Command, client *jira.Client) {
	out := cmd.OutOrStdout()
	fmt.Fprintln(out, "=== DEBUG MODE ===")
	fmt.Fprintf(out, "Project: %s\n", a.ProjectKey)

	if project, err := client.Project(a.ProjectKey); err != nil {
		fmt.Fprintf(out, "Error getting project info: %v\n", err)
	} else {
		fmt.Fprintf(out, "Project name: %s\n", project.Name)
		fmt.Fprintln(out, "Available issue types:")
		for _, t := range project.IssueTypes {
			fmt.Fprintf(out, "  - %s (ID: %s)\n", t.Name, t.ID)
		}
	}

	if priorities, err := client.Priorities(); err != nil {
		fmt.Fprintf(out, "Error getting priorities: %v\n", err)
	} else {
		fmt.Fprintln(out, "Available priorities:")
		for _, p := range priorities {
			fmt.Fprintf(out, "  - %s (ID: %s)\n", p.Name, p.ID)
		}
	}

	fmt.Fprintln(out, "=== END DEBUG ===")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
