package publishers

import (
	"time"

	"github.com/samvad-hq/fatoora-client/internal/domain"
)

// Event represents the payload published downstream after each submission.
type Event struct {
	Source      string            `json:"source"`
	Submission  domain.Submission `json:"submission"`
	PublishedAt time.Time         `json:"published_at"`
}

// NewEvent constructs an Event for the given submission.
func NewEvent(source string, sub domain.Submission) Event {
	return Event{
		Source:      source,
		Submission:  sub,
		PublishedAt: time.Now().UTC(),
	}
}

// attributes are the routing attributes attached to broker messages.
func (e Event) attributes() map[string]string {
	return map[string]string{
		"uuid":      e.Submission.UUID,
		"operation": string(e.Submission.Operation),
		"status":    e.Submission.Status,
	}
}
