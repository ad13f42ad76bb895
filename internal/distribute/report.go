package distribute

import (
	"time"

	"github.com/google/uuid"

	"github.com/battlewithbytes/webbrand/internal/logo"
)

// Triggers recorded on reports.
const (
	TriggerStartup = "startup"
	TriggerUpload  = "upload"
	TriggerDelete  = "delete"
	TriggerManual  = "manual"
)

// Outcome is the per-file result of a run.
type Outcome string

const (
	OutcomeCopied    Outcome = "copied"
	OutcomeUnchanged Outcome = "unchanged"
	OutcomeRestored  Outcome = "restored"
	OutcomeNoBackup  Outcome = "no_backup"
	OutcomeFailed    Outcome = "failed"
)

// FileResult records what happened to one bundle file.
type FileResult struct {
	Role    logo.Role `json:"role"`
	Path    string    `json:"path"` // relative to the web directory
	Outcome Outcome   `json:"outcome"`
	Kind    string    `json:"kind,omitempty"`
	Error   string    `json:"error,omitempty"`
}

// RoleSummary aggregates the file results of one role.
type RoleSummary struct {
	Role      logo.Role `json:"role"`
	Skipped   string    `json:"skipped,omitempty"`
	Matched   int       `json:"matched"`
	Copied    int       `json:"copied"`
	Unchanged int       `json:"unchanged"`
	Restored  int       `json:"restored"`
	NoBackup  int       `json:"no_backup"`
	Failed    int       `json:"failed"`
}

// Report describes one distribution or restore run.
type Report struct {
	ID       string        `json:"id"`
	Trigger  string        `json:"trigger"`
	Skipped  string        `json:"skipped,omitempty"`
	Started  time.Time     `json:"started"`
	Finished time.Time     `json:"finished"`
	Roles    []RoleSummary `json:"roles"`
	Files    []FileResult  `json:"files,omitempty"`
}

func newReport(trigger string) *Report {
	return &Report{
		ID:      uuid.NewString(),
		Trigger: trigger,
		Started: time.Now().UTC(),
	}
}

// Summary returns the summary for a role, or nil if the run did not cover it.
func (r *Report) Summary(role logo.Role) *RoleSummary {
	for i := range r.Roles {
		if r.Roles[i].Role == role {
			return &r.Roles[i]
		}
	}
	return nil
}

// Failed counts failed files across all roles.
func (r *Report) Failed() int {
	n := 0
	for _, s := range r.Roles {
		n += s.Failed
	}
	return n
}

// tally fills the role summaries from the file results.
func (r *Report) tally() {
	for _, f := range r.Files {
		s := r.Summary(f.Role)
		if s == nil {
			continue
		}
		s.Matched++
		switch f.Outcome {
		case OutcomeCopied:
			s.Copied++
		case OutcomeUnchanged:
			s.Unchanged++
		case OutcomeRestored:
			s.Restored++
		case OutcomeNoBackup:
			s.NoBackup++
		case OutcomeFailed:
			s.Failed++
		}
	}
}
