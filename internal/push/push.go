// Package push broadcasts hijack alerts to mobile devices through a Firebase
// Cloud Messaging topic.
//
// Sending is best effort: Notifier.Send never returns an error, it reports
// the outcome in a Result so the escalation can continue regardless.
package push

import (
	"context"
	"errors"
	"fmt"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"google.golang.org/api/option"
)

// ErrPushDisabled is reported when no push credentials are configured.
var ErrPushDisabled = errors.New("push notifications disabled")

const (
	alertTitle  = "Active Hijack detected!"
	alertBody   = "Tap to view more"
	clickAction = "FLUTTER_NOTIFICATION_CLICK"
)

// Sender delivers a single FCM message and returns the provider message id.
// *messaging.Client satisfies it.
type Sender interface {
	Send(ctx context.Context, msg *messaging.Message) (string, error)
}

// Result is the outcome of one broadcast.
type Result struct {
	MessageID string
	Err       error
}

// OK reports whether the provider accepted the message.
func (r Result) OK() bool { return r.Err == nil }

// NewFirebaseSender initializes the Firebase app from a service account file
// and returns its messaging client. It should be called once at startup.
func NewFirebaseSender(ctx context.Context, credentialsPath string) (Sender, error) {
	app, err := firebase.NewApp(ctx, nil, option.WithCredentialsFile(credentialsPath))
	if err != nil {
		return nil, fmt.Errorf("init firebase app: %w", err)
	}
	client, err := app.Messaging(ctx)
	if err != nil {
		return nil, fmt.Errorf("init firebase messaging: %w", err)
	}
	return client, nil
}

type disabledSender struct{}

func (disabledSender) Send(context.Context, *messaging.Message) (string, error) {
	return "", ErrPushDisabled
}

// DisabledSender returns a Sender that rejects every message with
// ErrPushDisabled.
func DisabledSender() Sender { return disabledSender{} }

// Notifier builds hijack alerts and hands them to a Sender.
type Notifier struct {
	sender Sender
	topic  string
}

// NewNotifier returns a Notifier publishing to topic. A nil sender behaves
// like DisabledSender.
func NewNotifier(sender Sender, topic string) *Notifier {
	if sender == nil {
		sender = DisabledSender()
	}
	return &Notifier{sender: sender, topic: topic}
}

// Message returns the topic message announcing hijackKey for run runToken.
func (n *Notifier) Message(hijackKey, runToken string) *messaging.Message {
	return &messaging.Message{
		Topic: n.topic,
		Data: map[string]string{
			"click_action": clickAction,
			"hjKey":        hijackKey,
			"hjRandom":     runToken,
		},
		Notification: &messaging.Notification{
			Title: alertTitle,
			Body:  alertBody,
		},
	}
}

// Send broadcasts the alert for one run.
func (n *Notifier) Send(ctx context.Context, hijackKey, runToken string) Result {
	id, err := n.sender.Send(ctx, n.Message(hijackKey, runToken))
	if err != nil {
		return Result{Err: fmt.Errorf("send push for %s: %w", hijackKey, err)}
	}
	return Result{MessageID: id}
}
