package notify

import (
	"fmt"
	"net/smtp"

	"github.com/Dan9191/ledger-monitor/internal/models"
	"github.com/Dan9191/ledger-monitor/internal/summary"
	"github.com/jordan-wright/email"
	"github.com/sirupsen/logrus"
)

// SMTPConfig holds the mail server settings
type SMTPConfig struct {
	Host     string
	Port     string
	Username string
	Password string
	From     string
}

// sendFunc delivers a prepared message, replaced in tests
type sendFunc func(e *email.Email, addr string, auth smtp.Auth) error

// Sender handles sending monitoring reports via SMTP
type Sender struct {
	cfg    SMTPConfig
	send   sendFunc
	logger *logrus.Logger
}

// NewSender creates a new email sender
func NewSender(cfg SMTPConfig, logger *logrus.Logger) *Sender {
	return &Sender{
		cfg: cfg,
		send: func(e *email.Email, addr string, auth smtp.Auth) error {
			return e.Send(addr, auth)
		},
		logger: logger,
	}
}

// Subject returns the mail subject for a report, flagging anomalies
func Subject(report *models.MonitoringReport) string {
	subject := fmt.Sprintf("Monthly Financial Health: %s", report.CompanyID)
	if n := summary.CountAnomalies(report.ComparisonData); n > 0 {
		subject = fmt.Sprintf("%s %s %d anomalies", subject, summary.AnomalyMarker, n)
	}
	return subject
}

// SendReport mails the report summary to the recipients
func (s *Sender) SendReport(to []string, report *models.MonitoringReport) error {
	e := email.NewEmail()
	e.From = s.cfg.From
	e.To = to
	e.Subject = Subject(report)

	body := report.Summary
	body += fmt.Sprintf("\nGenerated at %s\n", report.GeneratedAt.Format("2006-01-02 15:04:05"))
	body += "\nBest regards,\nLedger Monitor"
	e.Text = []byte(body)

	addr := fmt.Sprintf("%s:%s", s.cfg.Host, s.cfg.Port)
	var auth smtp.Auth
	if s.cfg.Username != "" {
		auth = smtp.PlainAuth("", s.cfg.Username, s.cfg.Password, s.cfg.Host)
	}
	if err := s.send(e, addr, auth); err != nil {
		s.logger.Errorf("Failed to send report for %s: %v", report.CompanyID, err)
		return fmt.Errorf("failed to send email: %w", err)
	}

	s.logger.Infof("Email sent to %v: %s", to, e.Subject)
	return nil
}
