// Package notification delivers emails in reaction to domain events. It has
// no HTTP surface; it only subscribes to the event bus.
package notification

import (
	"context"

	"fieldops_backend/internal/events"
	"fieldops_backend/internal/notification/email"
	"fieldops_backend/platform/config"
	"fieldops_backend/platform/logger"
)

// Module wires event subscriptions to the email sender.
type Module struct {
	sender  email.Sender
	enabled bool
	log     *logger.Logger
}

// NewModule creates the notification module and registers its event
// subscriptions. When email is disabled the subscriptions stay registered
// but deliveries are skipped, so enabling email needs no restart logic.
func NewModule(bus events.Bus, cfg config.EmailConfig, log *logger.Logger) *Module {
	m := &Module{
		sender:  email.NewSMTPSender(cfg),
		enabled: cfg.GetEmailEnabled(),
		log:     log,
	}

	bus.Subscribe(events.InterventionAssigned{}.EventName(), events.HandlerFunc(m.onInterventionAssigned))
	bus.Subscribe(events.UserCreated{}.EventName(), events.HandlerFunc(m.onUserCreated))

	return m
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "notification"
}

func (m *Module) onInterventionAssigned(ctx context.Context, event events.Event) error {
	assigned, ok := event.(events.InterventionAssigned)
	if !ok {
		return nil
	}
	if !m.enabled {
		m.log.Debug("email disabled, skipping assignment notification",
			"intervention", assigned.InterventionID)
		return nil
	}

	err := m.sender.SendAssignmentEmail(ctx,
		assigned.TechnicianEmail,
		assigned.TechnicianName,
		assigned.Reference,
		assigned.Title,
		assigned.PlannedAt,
		assigned.AssignmentMode,
	)
	if err != nil {
		m.log.Error("assignment notification failed",
			"intervention", assigned.InterventionID,
			"technician", assigned.TechnicianID,
			"error", err,
		)
		return err
	}

	m.log.Info("assignment notification sent",
		"intervention", assigned.InterventionID,
		"technician", assigned.TechnicianID,
	)
	return nil
}

func (m *Module) onUserCreated(ctx context.Context, event events.Event) error {
	created, ok := event.(events.UserCreated)
	if !ok {
		return nil
	}
	if !m.enabled {
		return nil
	}

	if err := m.sender.SendWelcomeEmail(ctx, created.Email, created.FullName, created.Role); err != nil {
		m.log.Error("welcome notification failed", "user", created.UserID, "error", err)
		return err
	}
	return nil
}
