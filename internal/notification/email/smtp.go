// Package email renders and delivers notification emails over SMTP.
package email

import (
	"context"
	"fmt"
	"net"
	"time"

	gomail "github.com/wneessen/go-mail"

	"fieldops_backend/platform/config"
)

const (
	subjectAssignmentFmt = "New intervention assigned: %s"
	subjectWelcome       = "Your field operations account"
)

// Sender delivers notification emails.
type Sender interface {
	SendAssignmentEmail(ctx context.Context, toEmail, technicianName, reference, jobTitle string, plannedAt *time.Time, assignmentMode string) error
	SendWelcomeEmail(ctx context.Context, toEmail, fullName, role string) error
}

// SMTPSender implements Sender using a direct SMTP connection via go-mail.
type SMTPSender struct {
	host      string
	port      int
	username  string
	password  string
	fromName  string
	fromEmail string
}

// NewSMTPSender creates a new SMTPSender from the email configuration.
func NewSMTPSender(cfg config.EmailConfig) *SMTPSender {
	return &SMTPSender{
		host:      cfg.GetSMTPHost(),
		port:      cfg.GetSMTPPort(),
		username:  cfg.GetSMTPUsername(),
		password:  cfg.GetSMTPPassword(),
		fromName:  cfg.GetEmailFromName(),
		fromEmail: cfg.GetEmailFromAddress(),
	}
}

var _ Sender = (*SMTPSender)(nil)

func (s *SMTPSender) send(ctx context.Context, toEmail, subject, htmlContent string) error {
	msg := gomail.NewMsg()
	if err := msg.FromFormat(s.fromName, s.fromEmail); err != nil {
		return fmt.Errorf("smtp from: %w", err)
	}
	if err := msg.To(toEmail); err != nil {
		return fmt.Errorf("smtp to: %w", err)
	}
	msg.Subject(subject)
	msg.SetBodyString(gomail.TypeTextHTML, htmlContent)

	client, err := gomail.NewClient(s.host,
		gomail.WithPort(s.port),
		gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
		gomail.WithUsername(s.username),
		gomail.WithPassword(s.password),
		gomail.WithTLSPortPolicy(gomail.TLSOpportunistic),
		gomail.WithTimeout(15*time.Second),
		gomail.WithDialContextFunc(func(dctx context.Context, _ string, addr string) (net.Conn, error) {
			return (&net.Dialer{}).DialContext(dctx, "tcp4", addr)
		}),
	)
	if err != nil {
		return fmt.Errorf("smtp client: %w", err)
	}

	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("smtp send: %w", err)
	}

	return nil
}

// SendAssignmentEmail notifies a technician that an intervention was assigned
// to them.
func (s *SMTPSender) SendAssignmentEmail(ctx context.Context, toEmail, technicianName, reference, jobTitle string, plannedAt *time.Time, assignmentMode string) error {
	planned := ""
	if plannedAt != nil {
		planned = plannedAt.UTC().Format("Mon, 02 Jan 2006 15:04 MST")
	}

	content, err := renderEmailTemplate("assignment.html", assignmentEmailData{
		baseEmailData: baseEmailData{
			Title:   "New intervention assigned",
			Heading: "New intervention assigned",
		},
		TechnicianName: technicianName,
		Reference:      reference,
		JobTitle:       jobTitle,
		PlannedAt:      planned,
		AssignmentMode: assignmentMode,
	})
	if err != nil {
		return err
	}
	return s.send(ctx, toEmail, fmt.Sprintf(subjectAssignmentFmt, reference), content)
}

// SendWelcomeEmail notifies a new user that their account was provisioned.
func (s *SMTPSender) SendWelcomeEmail(ctx context.Context, toEmail, fullName, role string) error {
	content, err := renderEmailTemplate("welcome.html", welcomeEmailData{
		baseEmailData: baseEmailData{
			Title:   "Welcome",
			Heading: "Your account is ready",
		},
		FullName: fullName,
		Role:     role,
	})
	if err != nil {
		return err
	}
	return s.send(ctx, toEmail, subjectWelcome, content)
}
