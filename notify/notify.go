// Package notify renders and sends the single email each bulk sync job
// emits, choosing the template from the job's final state.
package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"text/template"

	"github.com/grcware/accord/syncjob"
)

// ErrNotTerminal is returned when a dispatch is attempted for a job
// that has not finished.
var ErrNotTerminal = errors.New("notify: job is not in a terminal state")

// Sender delivers a rendered email. Synchronous, best-effort.
type Sender interface {
	Send(ctx context.Context, to, subject, body string) error
}

// Message carries the caller-supplied title and body text. The
// dispatcher hard-codes nothing beyond the scaffolding.
type Message struct {
	Title     string `json:"title"`
	EmailText string `json:"email_text"`
}

var successTmpl = template.Must(template.New("success").Parse(
	`{{.EmailText}}

All {{len .Job.Results}} object(s) synced successfully.
`))

var partialTmpl = template.Must(template.New("partial").Parse(
	`{{.EmailText}}

{{len .Failed}} of {{len .Job.Results}} object(s) failed to sync:
{{range .Failed}}  - {{.Object.Type}}:{{.Object.ID}}{{if .URL}} ({{.URL}}){{end}}{{if .Code}} code={{.Code}}{{end}}{{if .Title}} {{.Title}}{{end}}: {{.Err}}
{{end}}`))

var exceptionTmpl = template.Must(template.New("exception").Parse(
	`{{.EmailText}}

The sync job aborted with an unexpected error. No further objects were
processed. Contact your administrator with job id {{.Job.ID}}.
`))

// Dispatcher sends one email per completed bulk job.
type Dispatcher struct {
	sender Sender
	logger *slog.Logger
}

// NewDispatcher creates a dispatcher over the given sender.
func NewDispatcher(sender Sender, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{sender: sender, logger: logger}
}

// Dispatch renders the template matching the job's final state and
// sends it to the job's requester.
func (d *Dispatcher) Dispatch(ctx context.Context, job *syncjob.Job, msg Message) error {
	if !job.State.Terminal() {
		return ErrNotTerminal
	}

	if d.sender == nil {
		d.logger.Debug("no sender configured, skipping notification",
			"job", job.ID.String(), "state", string(job.State))
		return nil
	}

	tmpl := d.templateFor(job.State)
	data := struct {
		Message
		Job    *syncjob.Job
		Failed []syncjob.ObjectResult
	}{Message: msg, Job: job, Failed: job.FailedResults()}

	var body strings.Builder
	if err := tmpl.Execute(&body, data); err != nil {
		return fmt.Errorf("notify: render %s template: %w", tmpl.Name(), err)
	}

	if err := d.sender.Send(ctx, job.RequesterEmail, msg.Title, body.String()); err != nil {
		return fmt.Errorf("notify: send to %s: %w", job.RequesterEmail, err)
	}

	d.logger.Info("sync notification sent",
		"job", job.ID.String(),
		"state", string(job.State),
		"template", tmpl.Name(),
		"to", job.RequesterEmail)
	return nil
}

// templateFor maps the final state to a template: clean runs use the
// success template, partial results and cancellations list the failing
// objects, coordinator failures use the exception template.
func (d *Dispatcher) templateFor(state syncjob.State) *template.Template {
	switch state {
	case syncjob.StateSucceeded:
		return successTmpl
	case syncjob.StateFailed:
		return exceptionTmpl
	default:
		return partialTmpl
	}
}
