package middleware

import (
	"context"
	"net/http"
	"time"
)

// Timeout ограничивает обработку запроса к API конференций временем d
// (timeouts.request из конфига). Дедлайн, пришедший сверху, не переопределяется;
// d <= 0 отключает мидлвар.
func Timeout(d time.Duration) Middleware {
	if d <= 0 {
		return func(next http.Handler) http.Handler { return next }
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			if _, ok := ctx.Deadline(); !ok {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, d)
				defer cancel()
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
