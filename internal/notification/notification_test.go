package notification

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"gopkg.in/gomail.v2"
)

type recordingSender struct {
	sent []*gomail.Message
	err  error
}

func (r *recordingSender) DialAndSend(m ...*gomail.Message) error {
	r.sent = append(r.sent, m...)
	return r.err
}

func TestSMTPNotifierSendsMail(t *testing.T) {
	sender := &recordingSender{}
	n := NewSMTPNotifierWithSender(sender, "bank@abank.ru")

	err := n.Send(context.Background(), Message{
		Kind:        KindTransferReceived,
		Destination: "ivan@example.com",
		Subject:     "Поступление",
		Body:        "Вам поступил перевод",
	})
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if len(sender.sent) != 1 {
		t.Fatalf("expected one message, got %d", len(sender.sent))
	}
	msg := sender.sent[0]
	if to := msg.GetHeader("To"); len(to) != 1 || to[0] != "ivan@example.com" {
		t.Fatalf("unexpected recipient %v", to)
	}
	if from := msg.GetHeader("From"); len(from) != 1 || from[0] != "bank@abank.ru" {
		t.Fatalf("unexpected sender %v", from)
	}
}

func TestSMTPNotifierSkipsEmptyDestination(t *testing.T) {
	sender := &recordingSender{}
	if err := NewSMTPNotifierWithSender(sender, "bank@abank.ru").Send(context.Background(), Message{Kind: KindCardIssued}); err != nil {
		t.Fatalf("send: %v", err)
	}
	if len(sender.sent) != 0 {
		t.Fatalf("expected no mail without destination")
	}
}

func TestSMTPNotifierWrapsError(t *testing.T) {
	boom := errors.New("relay down")
	n := NewSMTPNotifierWithSender(&recordingSender{err: boom}, "bank@abank.ru")
	err := n.Send(context.Background(), Message{Kind: KindTransferReceived, Destination: "a@b.c"})
	if !errors.Is(err, boom) {
		t.Fatalf("expected wrapped relay error, got %v", err)
	}
}

func TestMultiDeliversToAll(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))
	failing := NewSMTPNotifierWithSender(&recordingSender{err: errors.New("down")}, "bank@abank.ru")

	err := Multi{failing, NewLoggerNotifier(logger), nil}.Send(context.Background(), Message{Kind: KindTransferReceived, Destination: "a@b.c"})
	if err == nil {
		t.Fatalf("expected first error to surface")
	}
	if !strings.Contains(buf.String(), KindTransferReceived) {
		t.Fatalf("logger notifier not reached: %s", buf.String())
	}
}
