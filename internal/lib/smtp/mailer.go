package smtp

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/magabrotheeeer/materials-api/internal/lib/sl"
)

// Mailer отправляет одно письмо сразу нескольким получателям.
type Mailer struct {
	transport TransportInterface
	log       *slog.Logger
}

// NewMailer создаёт Mailer поверх транспорта.
func NewMailer(transport TransportInterface, log *slog.Logger) *Mailer {
	return &Mailer{transport: transport, log: log}
}

// Send отправляет текстовое письмо. Любая ошибка протокола возвращается вызывающему.
func (m *Mailer) Send(to []string, subject, body string) error {
	const op = "smtp.Send"
	from := m.transport.GetSMTPUser()
	msg := strings.Join([]string{
		"From: " + from,
		"To: " + strings.Join(to, ", "),
		"Subject: " + subject,
		"MIME-Version: 1.0",
		"Content-Type: text/plain; charset=\"UTF-8\"",
		"",
		body,
	}, "\r\n")

	client, err := m.transport.Connect()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		if cerr := client.Close(); cerr != nil {
			m.log.Debug("smtp client close", sl.Err(cerr))
		}
	}()

	if err := client.Mail(from); err != nil {
		return fmt.Errorf("%s: mail from %s: %w", op, from, err)
	}
	for _, addr := range to {
		if err := client.Rcpt(addr); err != nil {
			return fmt.Errorf("%s: rcpt %s: %w", op, addr, err)
		}
	}

	wc, err := client.Data()
	if err != nil {
		return fmt.Errorf("%s: data: %w", op, err)
	}
	if _, err = wc.Write([]byte(msg)); err != nil {
		return fmt.Errorf("%s: write: %w", op, err)
	}
	if err = wc.Close(); err != nil {
		return fmt.Errorf("%s: close data: %w", op, err)
	}
	if err = client.Quit(); err != nil {
		return fmt.Errorf("%s: quit: %w", op, err)
	}

	m.log.Info("email sent successfully", slog.Int("recipients", len(to)))
	return nil
}
