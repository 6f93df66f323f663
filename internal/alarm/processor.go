package alarm

import (
	"fmt"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"vtom-jira/internal/config"
	"vtom-jira/internal/jira"
)

const relatesLinkType = "Relates"

// TicketService is the slice of the Jira client the decision procedure uses.
type TicketService interface {
	SearchProjectIssues(projectKey, objectFieldID string) ([]jira.SearchIssue, error)
	CreateIssue(req jira.CreateIssueRequest) (*jira.CreatedIssue, error)
	LinkIssues(inwardKey, outwardKey, linkType string) error
	AddAttachment(issueKey, filePath, filename string) error
	AddComment(issueKey, comment string) error
}

// Processor runs the dedup-and-link decision procedure for one alarm: decide
// whether to open a fresh ticket or a new ticket linked to an existing open
// one, then attach logs and an audit comment.
type Processor struct {
	cfg    *config.Config
	client TicketService
	log    *zap.SugaredLogger
	now    func() time.Time
}

func NewProcessor(cfg *config.Config, client TicketService, log *zap.SugaredLogger) *Processor {
	return &Processor{cfg: cfg, client: client, log: log, now: time.Now}
}

// Process handles one alarm. The returned error is an unrecoverable failure
// (unresolvable issue type or priority, or the creation call itself failing);
// search, link, attachment and comment failures are logged and swallowed.
func (p *Processor) Process(a Alarm) error {
	priority := a.Priority
	if priority == "" {
		priority = p.cfg.DefaultPriority
	}
	if a.Severity != "" {
		if mapped, ok := p.cfg.MapSeverity(a.Severity); ok {
			priority = mapped
		}
	}

	issueType := a.IssueType
	if issueType == "" {
		issueType = p.cfg.DefaultIssueType
	}
	if a.AlarmType != "" {
		if mapped, ok := p.cfg.MapAlarmType(a.AlarmType); ok {
			issueType = mapped
		}
	}

	assignee := a.Assignee
	if assignee == "" {
		assignee = p.cfg.DefaultAssignee
	}

	req := jira.CreateIssueRequest{
		ProjectKey:   a.ProjectKey,
		IssueType:    issueType,
		Summary:      a.Summary,
		Description:  a.Description,
		Priority:     priority,
		Assignee:     assignee,
		CustomFields: p.cfg.CustomFieldValues(a.ObjectName),
	}

	existing := p.findExisting(a.ProjectKey, a.ObjectName)

	var issueKey string
	if existing != nil {
		req.Summary = fmt.Sprintf("%s (Related to %s)", a.Summary, existing.Key)
		req.Description = fmt.Sprintf(
			"This issue is related to existing issue %s\n\nVTOM Object: %s\n\n%s",
			existing.Key, a.ObjectName, a.Description)

		created, err := p.client.CreateIssue(req)
		if err != nil {
			return errors.Wrap(err, "create linked issue")
		}
		issueKey = created.Key
		p.log.Infof("created linked issue %s", issueKey)

		if err := p.client.LinkIssues(issueKey, existing.Key, relatesLinkType); err != nil {
			p.log.Warnf("could not create link between %s and %s: %v", issueKey, existing.Key, err)
		} else {
			p.log.Infof("linked %s to %s", issueKey, existing.Key)
		}
	} else {
		created, err := p.client.CreateIssue(req)
		if err != nil {
			return errors.Wrap(err, "create issue")
		}
		issueKey = created.Key
		p.log.Infof("created new issue %s", issueKey)
	}

	p.enrich(a, issueKey)
	return nil
}

// findExisting returns the most recently created open issue for the object,
// or nil. Every failure on the way (unmapped field, search error) degrades to
// "no candidate": dedup is best-effort, a duplicate fresh ticket beats a lost
// alarm.
func (p *Processor) findExisting(projectKey, objectName string) *jira.SearchIssue {
	fieldID, ok := p.cfg.FieldID(config.FieldObjectName)
	if !ok {
		p.log.Warnf("%s custom field not configured, skipping existing issue search", config.FieldObjectName)
		return nil
	}

	p.log.Infof("searching for existing issues with VTOM object %s", objectName)
	issues, err := p.client.SearchProjectIssues(projectKey, fieldID)
	if err != nil {
		p.log.Warnf("error searching for existing issues: %v", err)
		return nil
	}

	open := FilterOpenByObject(issues, objectName)
	if len(open) == 0 {
		p.log.Infof("no existing open issue found for this VTOM object")
		return nil
	}
	if len(open) > 1 {
		p.log.Warnf("object %s has %d older open issues, linking only against newest %s",
			objectName, len(open)-1, open[0].Key)
	}
	p.log.Infof("found existing issue %s with matching VTOM object name", open[0].Key)
	return &open[0]
}

// enrich attaches the output and error logs when both a name and a path were
// supplied, then appends the audit comment. All best-effort.
func (p *Processor) enrich(a Alarm, issueKey string) {
	if a.OutAttachmentName != "" && a.OutAttachmentFile != "" {
		if err := p.client.AddAttachment(issueKey, a.OutAttachmentFile, a.OutAttachmentName); err != nil {
			p.log.Warnf("output log attachment skipped: %v", err)
		} else {
			p.log.Infof("added output log attachment %s", a.OutAttachmentName)
		}
	}

	if a.ErrorAttachmentName != "" && a.ErrorAttachmentFile != "" {
		if err := p.client.AddAttachment(issueKey, a.ErrorAttachmentFile, a.ErrorAttachmentName); err != nil {
			p.log.Warnf("error log attachment skipped: %v", err)
		} else {
			p.log.Infof("added error log attachment %s", a.ErrorAttachmentName)
		}
	}

	comment := "VTOM alarm processed at " + p.now().Format("2006-01-02 15:04:05")
	if err := p.client.AddComment(issueKey, comment); err != nil {
		p.log.Warnf("could not add timestamp comment: %v", err)
	} else {
		p.log.Infof("added timestamp comment")
	}
}
