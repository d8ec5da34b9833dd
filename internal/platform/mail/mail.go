// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package mail delivers the transactional emails of passgate.

The auth service depends only on [Sender]. Production wiring uses
[SMTPSender]; when no SMTP host is configured the server falls back to
[LogSender], which writes messages to the structured log instead.
*/
package mail

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrInvalidMessage is returned for messages that cannot be safely encoded.
var ErrInvalidMessage = errors.New("mail: invalid message")

// Message is a plain-text email.
type Message struct {
	To      string
	Subject string
	Body    string
}

// Validate rejects empty recipients and header injection attempts.
func (m Message) Validate() error {
	if strings.TrimSpace(m.To) == "" {
		return fmt.Errorf("%w: empty recipient", ErrInvalidMessage)
	}
	if strings.ContainsAny(m.To, "\r\n") || strings.ContainsAny(m.Subject, "\r\n") {
		return fmt.Errorf("%w: line break in header", ErrInvalidMessage)
	}
	return nil
}

// Sender delivers a [Message]. Implementations must honour ctx cancellation.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// # Templates

/*
ResetMessage builds the password reset email.

Parameters:
  - to: string (recipient address as the user registered it)
  - link: string (absolute reset URL carrying the token)
  - ttl: time.Duration (token lifetime, shown to the user)
*/
func ResetMessage(to, link string, ttl time.Duration) Message {
	var body strings.Builder
	body.WriteString("Hello,\n\n")
	body.WriteString("Someone requested a password reset for your account.\n")
	body.WriteString("Use the link below to choose a new password:\n\n")
	body.WriteString(link)
	body.WriteString("\n\n")
	fmt.Fprintf(&body, "The link expires in %s and can only be used once.\n", humanDuration(ttl))
	body.WriteString("If you did not ask for this, you can ignore this email.\n")

	return Message{
		To:      to,
		Subject: "Reset your password",
		Body:    body.String(),
	}
}

// humanDuration renders whole hours and minutes ("1 hour", "30 minutes").
func humanDuration(d time.Duration) string {
	switch {
	case d >= time.Hour && d%time.Hour == 0:
		return plural(int(d/time.Hour), "hour")
	case d >= time.Minute && d%time.Minute == 0:
		return plural(int(d/time.Minute), "minute")
	default:
		return d.String()
	}
}

func plural(n int, unit string) string {
	if n == 1 {
		return "1 " + unit
	}
	return fmt.Sprintf("%d %ss", n, unit)
}
