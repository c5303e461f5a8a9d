package interceptors

import (
	"context"
	"time"

	"google.golang.org/grpc"
)

// WithTimeout — дедлайн для унарных вызовов ops-сервера (health и reflection).
// Берётся timeouts.request; собственный дедлайн клиента сохраняется, d <= 0 — без дедлайна.
func WithTimeout(d time.Duration) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, _ *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		if d > 0 {
			if _, ok := ctx.Deadline(); !ok {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, d)
				defer cancel()
			}
		}

		return handler(ctx, req)
	}
}
