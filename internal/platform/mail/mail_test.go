// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package mail_test

import (
	"bufio"
	"context"
	"log/slog"
	"net"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/passgate/internal/platform/mail"
)

// fakeSMTP is a scripted relay. rcptReplies is consumed one entry per
// connection; once exhausted every RCPT is accepted.
type fakeSMTP struct {
	listener    net.Listener
	connections atomic.Int32

	mu          sync.Mutex
	rcptReplies []string
	bodies      []string
	wg          sync.WaitGroup
}

func startFakeSMTP(t *testing.T, rcptReplies ...string) *fakeSMTP {
	t.Helper()

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	server := &fakeSMTP{listener: listener, rcptReplies: rcptReplies}
	server.wg.Add(1)
	go server.serve()

	t.Cleanup(func() {
		_ = listener.Close()
		server.wg.Wait()
	})
	return server
}

func (s *fakeSMTP) port() int {
	return s.listener.Addr().(*net.TCPAddr).Port
}

func (s *fakeSMTP) serve() {
	defer s.wg.Done()
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			return
		}
		s.connections.Add(1)
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.handle(conn)
		}()
	}
}

func (s *fakeSMTP) nextRcptReply() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.rcptReplies) == 0 {
		return "250 OK"
	}
	reply := s.rcptReplies[0]
	s.rcptReplies = s.rcptReplies[1:]
	return reply
}

func (s *fakeSMTP) handle(conn net.Conn) {
	defer conn.Close()
	reader := bufio.NewReader(conn)
	write := func(line string) { _, _ = conn.Write([]byte(line + "\r\n")) }

	write("220 localhost ESMTP fake")
	for {
		line, err := reader.ReadString('\n')
		if err != nil {
			return
		}
		command := strings.ToUpper(strings.TrimSpace(line))

		switch {
		case strings.HasPrefix(command, "EHLO"):
			write("250-localhost")
			write("250 8BITMIME")
		case strings.HasPrefix(command, "MAIL FROM"):
			write("250 OK")
		case strings.HasPrefix(command, "RCPT TO"):
			reply := s.nextRcptReply()
			write(reply)
		case command == "DATA":
			write("354 Go ahead")
			var body strings.Builder
			for {
				dataLine, err := reader.ReadString('\n')
				if err != nil {
					return
				}
				if dataLine == ".\r\n" {
					break
				}
				body.WriteString(dataLine)
			}
			s.mu.Lock()
			s.bodies = append(s.bodies, body.String())
			s.mu.Unlock()
			write("250 Queued")
		case command == "QUIT":
			write("221 Bye")
			return
		default:
			write("250 OK")
		}
	}
}

func (s *fakeSMTP) delivered() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.bodies...)
}

func newSender(port int) *mail.SMTPSender {
	return mail.NewSMTPSender(mail.SMTPConfig{
		Host:      "127.0.0.1",
		Port:      port,
		From:      "noreply@passgate.dev",
		Retries:   2,
		RetryBase: time.Millisecond,
	})
}

/*
TestSMTPSender_Delivers runs a full transaction against the fake relay.
*/
func TestSMTPSender_Delivers(t *testing.T) {
	server := startFakeSMTP(t)
	sender := newSender(server.port())

	msg := mail.ResetMessage("alice@example.com", "http://localhost:6033/reset-password?token=abc", time.Hour)
	require.NoError(t, sender.Send(context.Background(), msg))

	bodies := server.delivered()
	require.Len(t, bodies, 1)
	assert.Contains(t, bodies[0], "Subject: Reset your password\r\n")
	assert.Contains(t, bodies[0], "To: alice@example.com\r\n")
	assert.Contains(t, bodies[0], "reset-password?token=abc\r\n")
	assert.Contains(t, bodies[0], "expires in 1 hour")
}

/*
TestSMTPSender_RetriesTransientFailures checks that a 4xx reply is retried.
*/
func TestSMTPSender_RetriesTransientFailures(t *testing.T) {
	server := startFakeSMTP(t, "451 Try again later")
	sender := newSender(server.port())

	require.NoError(t, sender.Send(context.Background(), mail.Message{To: "bob@example.com", Subject: "hi", Body: "x"}))
	assert.Equal(t, int32(2), server.connections.Load())
	assert.Len(t, server.delivered(), 1)
}

/*
TestSMTPSender_PermanentFailure checks that a 5xx reply is not retried.
*/
func TestSMTPSender_PermanentFailure(t *testing.T) {
	server := startFakeSMTP(t, "550 No such user")
	sender := newSender(server.port())

	err := sender.Send(context.Background(), mail.Message{To: "ghost@example.com", Subject: "hi", Body: "x"})
	require.Error(t, err)
	assert.Equal(t, int32(1), server.connections.Load())
}

/*
TestSMTPSender_Unreachable returns an error once the retries are exhausted.
*/
func TestSMTPSender_Unreachable(t *testing.T) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := listener.Addr().(*net.TCPAddr).Port
	require.NoError(t, listener.Close())

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	err = newSender(port).Send(ctx, mail.Message{To: "a@b.com", Subject: "s", Body: "b"})
	assert.Error(t, err)
}

/*
TestMessage_Validate rejects header injection.
*/
func TestMessage_Validate(t *testing.T) {
	assert.NoError(t, mail.Message{To: "a@b.com", Subject: "ok"}.Validate())
	assert.ErrorIs(t, mail.Message{To: ""}.Validate(), mail.ErrInvalidMessage)
	assert.ErrorIs(t, mail.Message{To: "a@b.com", Subject: "x\r\nBcc: evil@x.com"}.Validate(), mail.ErrInvalidMessage)
}

/*
TestLogSender never fails for valid messages and honours cancellation.
*/
func TestLogSender(t *testing.T) {
	sender := mail.NewLogSender(slog.New(slog.DiscardHandler))

	assert.NoError(t, sender.Send(context.Background(), mail.Message{To: "a@b.com", Subject: "s", Body: "b"}))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.Error(t, sender.Send(ctx, mail.Message{To: "a@b.com", Subject: "s"}))
}

/*
TestResetMessage_Duration renders the token lifetime.
*/
func TestResetMessage_Duration(t *testing.T) {
	tests := []struct {
		ttl  time.Duration
		want string
	}{
		{time.Hour, "1 hour"},
		{2 * time.Hour, "2 hours"},
		{30 * time.Minute, "30 minutes"},
		{90 * time.Second, (90 * time.Second).String()},
	}

	for _, tt := range tests {
		t.Run(strconv.Itoa(int(tt.ttl.Seconds())), func(t *testing.T) {
			msg := mail.ResetMessage("a@b.com", "http://x", tt.ttl)
			assert.Contains(t, msg.Body, "expires in "+tt.want)
		})
	}
}
