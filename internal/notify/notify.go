// notify доставляет внеполосные уведомления (письма-подтверждения).
// Доставка best-effort: ошибки логируются вызывающей стороной и не
// откатывают операцию, которая их породила.
package notify

import (
	"context"
	"errors"
	"log/slog"

	"github.com/pribylovaa/go-conference-central/internal/pkg/log"
	"github.com/pribylovaa/go-conference-central/internal/pkg/redact"
)

var (
	// ErrQueueFull — очередь асинхронной отправки заполнена.
	ErrQueueFull = errors.New("notification queue is full")
	// ErrClosed — отправитель остановлен.
	ErrClosed = errors.New("notifier is closed")
)

// Message — письмо одному получателю.
type Message struct {
	To      string
	Subject string
	Body    string
}

// Notifier — контракт доставки уведомления.
type Notifier interface {
	Notify(ctx context.Context, msg Message) error
}

// Log — драйвер, который только пишет письмо в лог (local/dev).
type Log struct{}

func (Log) Notify(ctx context.Context, msg Message) error {
	log.From(ctx).Info("mail_logged",
		slog.String("to", redact.Email(msg.To)),
		slog.String("subject", msg.Subject),
		slog.Int("body_len", len(msg.Body)),
	)

	return nil
}

var _ Notifier = Log{}
