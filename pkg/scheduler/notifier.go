package scheduler

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	goslack "github.com/slack-go/slack"
)

// Notifier pages an on-call channel when the reconciler forces a status
// demotion because the scheduler no longer recognizes a job it was
// tracking. Optional; a nil Notifier leaves forced demotions log-only.
type Notifier interface {
	NotifyForcedDemotion(ctx context.Context, modelID uuid.UUID, kind, from, to string) error
}

// SlackNotifier posts forced demotions to a Slack channel. Grounded on the
// teacher's on-call alert notifier: same noop-when-unconfigured shape, down
// to a single PostMessageContext call, but scoped to one alert kind instead
// of the teacher's generic incident/escalation surface.
type SlackNotifier struct {
	client  *goslack.Client
	channel string
	logger  *slog.Logger
}

// NewSlackNotifier creates a SlackNotifier. If botToken is empty, the
// notifier is a noop (logging only).
func NewSlackNotifier(botToken, channel string, logger *slog.Logger) *SlackNotifier {
	var client *goslack.Client
	if botToken != "" {
		client = goslack.New(botToken)
	}
	return &SlackNotifier{client: client, channel: channel, logger: logger}
}

// IsEnabled reports whether the notifier has a usable Slack client.
func (n *SlackNotifier) IsEnabled() bool {
	return n.client != nil && n.channel != ""
}

// NotifyForcedDemotion satisfies Notifier.
func (n *SlackNotifier) NotifyForcedDemotion(ctx context.Context, modelID uuid.UUID, kind, from, to string) error {
	if !n.IsEnabled() {
		n.logger.Debug("slack notifier disabled, skipping forced-demotion page",
			"model_id", modelID, "kind", kind, "from", from, "to", to)
		return nil
	}

	text := fmt.Sprintf(":rotating_light: model %s %s job forced %s -> %s (scheduler lost track of it)",
		modelID, kind, from, to)
	_, _, err := n.client.PostMessageContext(ctx, n.channel, goslack.MsgOptionText(text, false))
	if err != nil {
		return fmt.Errorf("posting forced-demotion alert to slack: %w", err)
	}
	return nil
}
