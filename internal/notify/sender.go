package notify

import (
	"context"

	"github.com/tartampluch/go-birthday-reminder/internal/config"
	"github.com/tartampluch/go-birthday-reminder/internal/engine"
)

// Content is a rendered notification, ready to send.
type Content struct {
	// Subject overrides the localised default when non-empty.
	Subject string
	HTML    string
	Text    string
	// Details is the check result the content was rendered from.
	Details engine.Details
}

// Sender is one notification channel.
type Sender interface {
	// Name identifies the channel in logs and reports.
	Name() string
	// Render builds the message for name from the given template and check result.
	Render(name, template string, d engine.Details) (Content, error)
	// Send delivers rendered content to the recipient.
	Send(ctx context.Context, r config.Recipient, c Content, daysUntil, age int) error
}
