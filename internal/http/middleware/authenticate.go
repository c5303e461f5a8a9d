package middleware

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/pribylovaa/go-conference-central/internal/auth"
	"github.com/pribylovaa/go-conference-central/internal/pkg/log"
)

// Authenticate извлекает Bearer-токен из Authorization, проверяет его и
// кладёт пользователя в контекст (auth.UserFrom).
//
// Запрос без токена или с невалидным токеном идёт дальше анонимным:
// публичные ручки работают, остальные получат 401 от сервисного слоя.
func Authenticate(authn auth.Authenticator) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := bearer(r.Header.Get("Authorization"))
			if !ok {
				next.ServeHTTP(w, r)
				return
			}

			user, err := authn.Authenticate(r.Context(), token)
			if err != nil {
				log.From(r.Context()).Warn("auth_token_rejected", slog.String("err", err.Error()))
				next.ServeHTTP(w, r)
				return
			}

			ctx := auth.Into(r.Context(), user)
			ctx = log.With(ctx, slog.String("user_id", user.ID))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearer(header string) (string, bool) {
	const prefix = "Bearer "
	if !strings.HasPrefix(header, prefix) {
		return "", false
	}

	token := strings.TrimSpace(header[len(prefix):])
	return token, token != ""
}
