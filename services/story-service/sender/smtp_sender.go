package sender

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"mime"
	"mime/multipart"
	"mime/quotedprintable"
	"net"
	"net/smtp"
	"net/textproto"
	"os"
	"time"

	"github.com/google/uuid"
)

const smtpImplicitTLSPort = "465"

type SMTPSender struct {
	host     string
	port     string
	username string
	password string
	from     string
	dialer   net.Dialer
	now      func() time.Time
}

// NewSMTPSender reads SMTP_HOST, SMTP_PORT, SMTP_USER and SMTP_PASS.
// SMTP_FROM overrides the sender address, which defaults to SMTP_USER.
func NewSMTPSender() (*SMTPSender, error) {
	env, err := requireEnv("SMTP_HOST", "SMTP_PORT", "SMTP_USER", "SMTP_PASS")
	if err != nil {
		return nil, err
	}
	s := &SMTPSender{
		host:     env["SMTP_HOST"],
		port:     env["SMTP_PORT"],
		username: env["SMTP_USER"],
		password: env["SMTP_PASS"],
		from:     env["SMTP_USER"],
		dialer:   net.Dialer{Timeout: 10 * time.Second},
		now:      time.Now,
	}
	if from := os.Getenv("SMTP_FROM"); from != "" {
		s.from = from
	}
	return s, nil
}

// SendEmail delivers a multipart/alternative message. The context bounds the
// whole SMTP conversation.
func (s *SMTPSender) SendEmail(ctx context.Context, email Email) (SendResult, error) {
	messageID := fmt.Sprintf("<%s@%s>", uuid.NewString(), s.host)
	sentAt := s.now()
	msg, err := s.buildMessage(email, messageID, sentAt)
	if err != nil {
		return SendResult{}, err
	}

	client, err := s.dial(ctx)
	if err != nil {
		return SendResult{}, fmt.Errorf("smtp connect: %w", err)
	}
	defer client.Close()

	if err := s.deliver(client, email.To, msg); err != nil {
		return SendResult{}, fmt.Errorf("smtp send failed: %w", err)
	}
	return SendResult{Provider: "smtp", MessageID: messageID, SentAt: sentAt}, nil
}

func (s *SMTPSender) dial(ctx context.Context) (*smtp.Client, error) {
	addr := net.JoinHostPort(s.host, s.port)
	var conn net.Conn
	var err error
	if s.port == smtpImplicitTLSPort {
		tlsDialer := tls.Dialer{NetDialer: &s.dialer, Config: &tls.Config{ServerName: s.host}}
		conn, err = tlsDialer.DialContext(ctx, "tcp", addr)
	} else {
		conn, err = s.dialer.DialContext(ctx, "tcp", addr)
	}
	if err != nil {
		return nil, err
	}
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}

	client, err := smtp.NewClient(conn, s.host)
	if err != nil {
		conn.Close()
		return nil, err
	}
	if ok, _ := client.Extension("STARTTLS"); ok {
		if err := client.StartTLS(&tls.Config{ServerName: s.host}); err != nil {
			client.Close()
			return nil, err
		}
	}
	return client, nil
}

func (s *SMTPSender) deliver(client *smtp.Client, to string, msg []byte) error {
	if ok, _ := client.Extension("AUTH"); ok {
		if err := client.Auth(smtp.PlainAuth("", s.username, s.password, s.host)); err != nil {
			return err
		}
	}
	if err := client.Mail(s.from); err != nil {
		return err
	}
	if err := client.Rcpt(to); err != nil {
		return err
	}
	w, err := client.Data()
	if err != nil {
		return err
	}
	if _, err := w.Write(msg); err != nil {
		return err
	}
	if err := w.Close(); err != nil {
		return err
	}
	return client.Quit()
}

func (s *SMTPSender) buildMessage(email Email, messageID string, sentAt time.Time) ([]byte, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	if email.Text != "" {
		if err := writePart(mw, "text/plain; charset=UTF-8", email.Text); err != nil {
			return nil, err
		}
	}
	if err := writePart(mw, "text/html; charset=UTF-8", email.HTML); err != nil {
		return nil, err
	}
	if err := mw.Close(); err != nil {
		return nil, err
	}

	var msg bytes.Buffer
	headers := [][2]string{
		{"From", s.from},
		{"To", email.To},
		{"Subject", mime.QEncoding.Encode("UTF-8", email.Subject)},
		{"Date", sentAt.Format(time.RFC1123Z)},
		{"Message-ID", messageID},
		{"MIME-Version", "1.0"},
		{"Content-Type", "multipart/alternative; boundary=" + mw.Boundary()},
	}
	for _, h := range headers {
		fmt.Fprintf(&msg, "%s: %s\r\n", h[0], h[1])
	}
	msg.WriteString("\r\n")
	msg.Write(body.Bytes())
	return msg.Bytes(), nil
}

func writePart(mw *multipart.Writer, contentType, content string) error {
	part, err := mw.CreatePart(textproto.MIMEHeader{
		"Content-Type":              {contentType},
		"Content-Transfer-Encoding": {"quoted-printable"},
	})
	if err != nil {
		return err
	}
	qp := quotedprintable.NewWriter(part)
	if _, err := qp.Write([]byte(content)); err != nil {
		return err
	}
	return qp.Close()
}
