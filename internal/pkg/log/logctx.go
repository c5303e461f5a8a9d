// log хранит request-scoped логгер в контексте.
// HTTP-мидлвар и gRPC-интерсептор кладут туда логгер с request_id,
// сервисный слой достаёт его через From.
package log

import (
	"context"
	"log/slog"
)

type ctxKey struct{}

// Into кладёт логгер в контекст.
func Into(ctx context.Context, l *slog.Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, l)
}

// From достаёт логгер из контекста (или возвращает slog.Default()).
func From(ctx context.Context) *slog.Logger {
	if v := ctx.Value(ctxKey{}); v != nil {
		if l, ok := v.(*slog.Logger); ok && l != nil {
			return l
		}
	}

	return slog.Default()
}

// With дополняет логгер из контекста атрибутами и кладёт результат обратно.
func With(ctx context.Context, args ...any) context.Context {
	return Into(ctx, From(ctx).With(args...))
}

// Detach возвращает контекст без отмены и дедлайна родителя, но с его логгером.
// Используется для фоновых задач, которые переживают HTTP-запрос
// (уведомления, обновление анонса).
func Detach(ctx context.Context) context.Context {
	return Into(context.WithoutCancel(ctx), From(ctx))
}
