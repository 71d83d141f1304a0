package consumer

import (
	"context"
	"fmt"
	"time"

	"github.com/diagnosis/supperclub/pkg/access"
	"github.com/diagnosis/supperclub/pkg/events"
	"github.com/diagnosis/supperclub/pkg/logger"
	"github.com/diagnosis/supperclub/services/notify/internal/mailer"
)

// Consumer turns identity events into emails.
type Consumer struct {
	mailer    mailer.Service
	publicURL string
	timeout   time.Duration
}

func New(m mailer.Service, publicURL string) *Consumer {
	return &Consumer{mailer: m, publicURL: publicURL, timeout: 15 * time.Second}
}

// Subscribe registers every handler on the queue group so that only one
// notify instance handles each event.
func (c *Consumer) Subscribe(sub events.Subscriber, queue string) error {
	handlers := map[string]func(context.Context, *events.Message) error{
		events.UserRegistered:   c.HandleRegistered,
		events.UserProvisioned:  c.HandleProvisioned,
		events.UserRoleSelected: c.HandleRoleSelected,
	}
	for subject, handle := range handlers {
		if err := sub.QueueSubscribe(subject, queue, c.wrap(handle)); err != nil {
			return fmt.Errorf("subscribe %s: %w", subject, err)
		}
	}
	return nil
}

func (c *Consumer) wrap(handle func(context.Context, *events.Message) error) func(*events.Message) {
	return func(msg *events.Message) {
		ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
		defer cancel()
		ctx = context.WithValue(ctx, logger.RequestIDKey, msg.ID)

		if err := handle(ctx, msg); err != nil {
			logger.ErrorContext(ctx, "Event handling failed", "subject", msg.Subject, "error", err)
			return
		}
		logger.DebugContext(ctx, "Event handled", "subject", msg.Subject)
	}
}

func (c *Consumer) HandleRegistered(ctx context.Context, msg *events.Message) error {
	var ev events.UserRegisteredEvent
	if err := msg.Decode(&ev); err != nil {
		return err
	}
	if err := c.mailer.Send(ctx, mailer.WelcomeEmail(ev.Email, ev.Name, c.publicURL, false)); err != nil {
		return err
	}
	if ev.Role == string(access.RoleHost) {
		return c.mailer.Send(ctx, mailer.HostOnboardingEmail(ev.Email, ev.Name, c.publicURL))
	}
	return nil
}

// HandleProvisioned welcomes accounts created by an external sign-in. They
// always start with role selection pending.
func (c *Consumer) HandleProvisioned(ctx context.Context, msg *events.Message) error {
	var ev events.UserProvisionedEvent
	if err := msg.Decode(&ev); err != nil {
		return err
	}
	return c.mailer.Send(ctx, mailer.WelcomeEmail(ev.Email, ev.Name, c.publicURL, true))
}

func (c *Consumer) HandleRoleSelected(ctx context.Context, msg *events.Message) error {
	var ev events.UserRoleSelectedEvent
	if err := msg.Decode(&ev); err != nil {
		return err
	}
	if ev.Role != string(access.RoleHost) || ev.PreviousRole == string(access.RoleHost) {
		return nil
	}
	return c.mailer.Send(ctx, mailer.HostOnboardingEmail(ev.Email, ev.Name, c.publicURL))
}
