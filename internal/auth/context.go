package auth

import (
	"context"

	"github.com/pribylovaa/go-conference-central/internal/models"
)

type userKey struct{}

// Into кладёт аутентифицированного пользователя в контекст.
func Into(ctx context.Context, user *models.User) context.Context {
	return context.WithValue(ctx, userKey{}, user)
}

// UserFrom возвращает пользователя из контекста или nil для анонимного запроса.
func UserFrom(ctx context.Context) *models.User {
	u, _ := ctx.Value(userKey{}).(*models.User)
	return u
}
