package notify

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/pribylovaa/go-conference-central/internal/metrics"
	"github.com/pribylovaa/go-conference-central/internal/pkg/log"
	"github.com/pribylovaa/go-conference-central/internal/pkg/redact"
)

type job struct {
	ctx context.Context
	msg Message
}

// Async ставит уведомления в ограниченную очередь и доставляет их
// одним фоновым воркером через next. Переполнение не блокирует вызывающего.
type Async struct {
	next  Notifier
	queue chan job

	mu     sync.RWMutex
	closed bool
	done   chan struct{}
}

// NewAsync создаёт очередь размера size и запускает воркер.
func NewAsync(next Notifier, size int) *Async {
	if size <= 0 {
		size = 1
	}

	a := &Async{
		next:  next,
		queue: make(chan job, size),
		done:  make(chan struct{}),
	}
	go a.run()

	return a
}

// Notify ставит письмо в очередь. Контекст отвязывается от отмены запроса,
// логгер сохраняется.
func (a *Async) Notify(ctx context.Context, msg Message) error {
	const op = "notify/async/Notify"

	a.mu.RLock()
	defer a.mu.RUnlock()

	if a.closed {
		return fmt.Errorf("%s: %w", op, ErrClosed)
	}

	select {
	case a.queue <- job{ctx: log.Detach(ctx), msg: msg}:
		return nil
	default:
		metrics.NotificationsDropped.WithLabelValues("queue_full").Inc()
		return fmt.Errorf("%s: %w", op, ErrQueueFull)
	}
}

func (a *Async) run() {
	defer close(a.done)

	for j := range a.queue {
		if err := a.next.Notify(j.ctx, j.msg); err != nil {
			metrics.NotificationsDropped.WithLabelValues("send_failed").Inc()
			log.From(j.ctx).Error("mail_send_failed",
				slog.String("to", redact.Email(j.msg.To)),
				slog.String("err", err.Error()),
			)
		}
	}
}

// Close перестаёт принимать письма и ждёт доставки уже поставленных
// либо отмены ctx.
func (a *Async) Close(ctx context.Context) error {
	a.mu.Lock()
	if !a.closed {
		a.closed = true
		close(a.queue)
	}
	a.mu.Unlock()

	select {
	case <-a.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

var _ Notifier = (*Async)(nil)
