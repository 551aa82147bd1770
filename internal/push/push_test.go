package push

import (
	"context"
	"errors"
	"testing"

	"firebase.google.com/go/v4/messaging"
)

type fakeSender struct {
	got *messaging.Message
	id  string
	err error
}

func (f *fakeSender) Send(_ context.Context, msg *messaging.Message) (string, error) {
	f.got = msg
	return f.id, f.err
}

func TestNotifier_Send_BuildsTopicMessage(t *testing.T) {
	fs := &fakeSender{id: "projects/p/messages/1"}
	n := NewNotifier(fs, "hjtopic")

	res := n.Send(context.Background(), "hk-1", "tok123456789")
	if !res.OK() || res.MessageID != "projects/p/messages/1" {
		t.Fatalf("unexpected result: %+v", res)
	}
	m := fs.got
	if m == nil || m.Topic != "hjtopic" {
		t.Fatalf("unexpected message: %+v", m)
	}
	if m.Data["hjKey"] != "hk-1" || m.Data["hjRandom"] != "tok123456789" || m.Data["click_action"] != "FLUTTER_NOTIFICATION_CLICK" {
		t.Fatalf("unexpected data: %v", m.Data)
	}
	if m.Notification == nil || m.Notification.Title != "Active Hijack detected!" || m.Notification.Body != "Tap to view more" {
		t.Fatalf("unexpected notification: %+v", m.Notification)
	}
}

func TestNotifier_Send_ReportsErrors(t *testing.T) {
	boom := errors.New("boom")
	n := NewNotifier(&fakeSender{err: boom}, "hjtopic")
	res := n.Send(context.Background(), "hk", "t")
	if res.OK() || !errors.Is(res.Err, boom) || res.MessageID != "" {
		t.Fatalf("unexpected result: %+v", res)
	}
}

func TestNotifier_NilSenderIsDisabled(t *testing.T) {
	res := NewNotifier(nil, "hjtopic").Send(context.Background(), "hk", "t")
	if !errors.Is(res.Err, ErrPushDisabled) {
		t.Fatalf("expected ErrPushDisabled, got %v", res.Err)
	}
}

func TestNewFirebaseSender_MissingCredentials(t *testing.T) {
	_, err := NewFirebaseSender(context.Background(), t.TempDir()+"/missing.json")
	if err == nil {
		t.Fatalf("expected error for missing credentials file")
	}
}
