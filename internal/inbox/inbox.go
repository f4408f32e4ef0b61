package inbox

import (
	"context"

	"gradticket-bot/internal/model"
)

// MessageSource is the pull-and-acknowledge boundary in front of whatever
// transport carries user commands. Only messages whose processing produced
// a determinate outcome are marked read; everything else is redelivered on
// a later cycle.
type MessageSource interface {
	FetchUnread(ctx context.Context) ([]model.Message, error)
	MarkRead(ctx context.Context, message model.Message) error
}

// Notifier delivers one rendered message to one user.
type Notifier interface {
	Send(ctx context.Context, user, subject, body string) error
}
