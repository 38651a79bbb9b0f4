package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"net/smtp"
	"strings"

	"quizsolver-backend/services/jobs"

	"github.com/jordan-wright/email"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("quizsolver.services.notify")

type SmtpConfig struct {
	Server       string `json:"server"`
	Port         int    `json:"port"`
	EmailAddress string `json:"email_address"`
	Password     string `json:"password"`
}

// Mailer emails a job's owner once their run reaches a terminal status.
type Mailer struct {
	config SmtpConfig
}

func NewMailer(config SmtpConfig) Mailer {
	return Mailer{config: config}
}

func (m Mailer) NotifyJobDone(ctx context.Context, job jobs.Job) error {
	ctx, span := tracer.Start(ctx, "service:NotifyJobDone")
	defer span.End()

	mail := email.NewEmail()
	mail.From = fmt.Sprintf("Quiz Solver <%s>", m.config.EmailAddress)
	mail.To = []string{job.Email}
	mail.Subject = subject(job)
	mail.Text = []byte(body(job))

	addr := fmt.Sprintf("%s:%d", m.config.Server, m.config.Port)
	err := mail.Send(
		addr,
		smtp.PlainAuth("", m.config.EmailAddress, m.config.Password, m.config.Server),
	)
	if err != nil && strings.Contains(err.Error(), "server doesn't support AUTH") {
		err = mail.Send(addr, nil)
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to send email")
		return err
	}

	return nil
}

func subject(job jobs.Job) string {
	if job.Result != nil {
		return fmt.Sprintf("Quiz run %s", job.Result.Status)
	}
	return fmt.Sprintf("Quiz run %s", job.Status)
}

func body(job jobs.Job) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Your quiz run for %s has finished.\n\n", job.Url)
	fmt.Fprintf(&b, "Job id: %s\n", job.Id)
	fmt.Fprintf(&b, "Status: %s\n", job.Status)
	if job.Panic != "" {
		fmt.Fprintf(&b, "Failure: %s\n", job.Panic)
	}
	if job.Result != nil {
		data, err := json.MarshalIndent(job.Result, "", "  ")
		if err == nil {
			fmt.Fprintf(&b, "\nResult:\n%s\n", data)
		}
	}
	return b.String()
}
