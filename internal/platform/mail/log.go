// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package mail

import (
	"context"
	"log/slog"
)

// LogSender writes messages to a logger instead of sending them.
//
// Bodies are logged at debug level only, since reset links carry live tokens.
// Never use it outside development.
type LogSender struct {
	logger *slog.Logger
}

// NewLogSender creates a [LogSender].
func NewLogSender(logger *slog.Logger) *LogSender {
	return &LogSender{logger: logger}
}

// Send implements [Sender].
func (sender *LogSender) Send(ctx context.Context, msg Message) error {
	if err := msg.Validate(); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	sender.logger.InfoContext(ctx, "mail_logged",
		slog.String("to", msg.To),
		slog.String("subject", msg.Subject),
	)
	sender.logger.DebugContext(ctx, "mail_logged_body", slog.String("body", msg.Body))
	return nil
}
