// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package mail

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"net/smtp"
	"net/textproto"
	"strings"
	"time"

	"github.com/sethvargo/go-retry"
)

// SMTPConfig holds the relay settings of an [SMTPSender].
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string

	// Retries is the number of extra attempts after a transient failure.
	Retries uint64

	// RetryBase is the first backoff delay; it doubles on each retry.
	RetryBase time.Duration
}

// SMTPSender delivers mail through an SMTP relay.
//
// Each attempt opens a fresh connection, upgrades it with STARTTLS when the
// server offers it and authenticates with PLAIN when credentials are set.
// Connection and 4xx failures are retried with exponential backoff; the
// caller's context bounds the total time spent.
type SMTPSender struct {
	cfg    SMTPConfig
	dialer *net.Dialer
}

// NewSMTPSender creates an [SMTPSender].
func NewSMTPSender(cfg SMTPConfig) *SMTPSender {
	if cfg.RetryBase <= 0 {
		cfg.RetryBase = 250 * time.Millisecond
	}
	return &SMTPSender{
		cfg:    cfg,
		dialer: &net.Dialer{},
	}
}

// Send implements [Sender].
func (sender *SMTPSender) Send(ctx context.Context, msg Message) error {
	if err := msg.Validate(); err != nil {
		return err
	}

	backoff := retry.WithMaxRetries(sender.cfg.Retries, retry.NewExponential(sender.cfg.RetryBase))

	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		err := sender.deliver(ctx, msg)
		if err != nil && isTransient(err) {
			return retry.RetryableError(err)
		}
		return err
	})
}

// deliver runs one complete SMTP transaction.
func (sender *SMTPSender) deliver(ctx context.Context, msg Message) (err error) {
	addr := net.JoinHostPort(sender.cfg.Host, fmt.Sprint(sender.cfg.Port))

	conn, err := sender.dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("mail: dial %s: %w", addr, err)
	}
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}

	client, err := smtp.NewClient(conn, sender.cfg.Host)
	if err != nil {
		_ = conn.Close()
		return fmt.Errorf("mail: handshake: %w", err)
	}
	defer func() {
		if closeErr := client.Close(); closeErr != nil && err == nil && !errors.Is(closeErr, net.ErrClosed) {
			err = fmt.Errorf("mail: close: %w", closeErr)
		}
	}()

	if ok, _ := client.Extension("STARTTLS"); ok {
		if err := client.StartTLS(&tls.Config{ServerName: sender.cfg.Host, MinVersion: tls.VersionTLS12}); err != nil {
			return fmt.Errorf("mail: starttls: %w", err)
		}
	}

	if sender.cfg.Username != "" {
		if ok, _ := client.Extension("AUTH"); ok {
			auth := smtp.PlainAuth("", sender.cfg.Username, sender.cfg.Password, sender.cfg.Host)
			if err := client.Auth(auth); err != nil {
				return fmt.Errorf("mail: auth: %w", err)
			}
		}
	}

	if err := client.Mail(sender.cfg.From); err != nil {
		return fmt.Errorf("mail: MAIL FROM: %w", err)
	}
	if err := client.Rcpt(msg.To); err != nil {
		return fmt.Errorf("mail: RCPT TO: %w", err)
	}

	writer, err := client.Data()
	if err != nil {
		return fmt.Errorf("mail: DATA: %w", err)
	}
	if _, err := writer.Write(sender.encode(msg)); err != nil {
		_ = writer.Close()
		return fmt.Errorf("mail: write body: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("mail: end DATA: %w", err)
	}

	return client.Quit()
}

// encode renders headers and a CRLF-normalized body.
func (sender *SMTPSender) encode(msg Message) []byte {
	var builder strings.Builder
	builder.WriteString("From: " + sender.cfg.From + "\r\n")
	builder.WriteString("To: " + msg.To + "\r\n")
	builder.WriteString("Subject: " + msg.Subject + "\r\n")
	builder.WriteString("Date: " + time.Now().UTC().Format(time.RFC1123Z) + "\r\n")
	builder.WriteString("MIME-Version: 1.0\r\n")
	builder.WriteString("Content-Type: text/plain; charset=UTF-8\r\n")
	builder.WriteString("Content-Transfer-Encoding: 8bit\r\n")
	builder.WriteString("\r\n")

	body := strings.ReplaceAll(msg.Body, "\r\n", "\n")
	builder.WriteString(strings.ReplaceAll(body, "\n", "\r\n"))
	return []byte(builder.String())
}

// isTransient reports whether a retry could plausibly succeed.
func isTransient(err error) bool {
	var protoErr *textproto.Error
	if errors.As(err, &protoErr) {
		return protoErr.Code >= 400 && protoErr.Code < 500
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	var opErr *net.OpError
	return errors.As(err, &opErr)
}
