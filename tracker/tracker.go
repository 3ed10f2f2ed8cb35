// Package tracker is the client for the external issue tracking
// service: a remote key/value-per-field ticket API with create, update
// and get operations and a retry-signaling 429 status.
package tracker

import (
	"context"
	"errors"
)

var (
	// ErrTransient marks a remote failure that exhausted the retry
	// budget (429 and friends).
	ErrTransient = errors.New("tracker: transient remote failure")

	// ErrRemote marks a non-retryable remote failure.
	ErrRemote = errors.New("tracker: remote request failed")

	// ErrTicketNotFound is returned when the external ID is unknown to
	// the tracker.
	ErrTicketNotFound = errors.New("tracker: ticket not found")
)

// CustomField is one tracker-side custom field. Date fields carry ISO
// YYYY-MM-DD values.
type CustomField struct {
	Name          string `json:"name"`
	Value         string `json:"value"`
	Type          string `json:"type,omitempty"`
	DisplayString string `json:"display_string,omitempty"`
}

// Issue is the wire representation of a ticket.
type Issue struct {
	ID           string        `json:"id,omitempty"`
	URL          string        `json:"url,omitempty"`
	Status       string        `json:"status,omitempty"`
	Type         string        `json:"type,omitempty"`
	Priority     string        `json:"priority,omitempty"`
	Severity     string        `json:"severity,omitempty"`
	Title        string        `json:"title,omitempty"`
	Body         string        `json:"body,omitempty"`
	CCs          []string      `json:"ccs,omitempty"`
	CustomFields []CustomField `json:"custom_fields,omitempty"`
}

// CustomField returns the named custom field, if present.
func (i *Issue) CustomField(name string) (CustomField, bool) {
	for _, f := range i.CustomFields {
		if f.Name == name {
			return f, true
		}
	}
	return CustomField{}, false
}

// Client issues single remote calls. Implementations are stateless;
// each call carries explicit parameters.
type Client interface {
	// CreateIssue files a new ticket and returns it with ID and URL set.
	CreateIssue(ctx context.Context, issue *Issue) (*Issue, error)

	// UpdateIssue pushes changed fields onto an existing ticket.
	// removeFields names custom fields the tracker must clear.
	UpdateIssue(ctx context.Context, externalID string, issue *Issue, removeFields []string) (*Issue, error)

	// GetIssue fetches the current remote state of a ticket.
	GetIssue(ctx context.Context, externalID string) (*Issue, error)
}
