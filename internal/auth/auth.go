// auth проверяет bearer-токены, выпущенные auth-service, и достаёт из них
// идентичность пользователя (user_id + email).
package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/pribylovaa/go-conference-central/internal/models"
)

var (
	// ErrInvalidToken — подпись, алгоритм, issuer/audience или claims некорректны.
	ErrInvalidToken = errors.New("invalid token")
	// ErrTokenExpired — срок действия токена истёк.
	ErrTokenExpired = errors.New("token expired")
)

// Authenticator — контракт проверки токена.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*models.User, error)
}

// Claims — полезная нагрузка access-токена auth-service.
type Claims struct {
	UserID string `json:"uid"`
	Email  string `json:"email"`
	jwt.RegisteredClaims
}

// JWT — Authenticator для HS256-токенов.
type JWT struct {
	secret   []byte
	issuer   string
	audience string
	leeway   time.Duration
}

// NewJWT создаёт проверку токенов; пустые issuer/audience не проверяются.
func NewJWT(secret, issuer, audience string, leeway time.Duration) *JWT {
	return &JWT{
		secret:   []byte(secret),
		issuer:   issuer,
		audience: audience,
		leeway:   leeway,
	}
}

// Authenticate валидирует токен и возвращает пользователя.
func (j *JWT) Authenticate(_ context.Context, tokenStr string) (*models.User, error) {
	const op = "auth/Authenticate"

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithLeeway(j.leeway),
		jwt.WithExpirationRequired(),
	}
	if j.issuer != "" {
		opts = append(opts, jwt.WithIssuer(j.issuer))
	}
	if j.audience != "" {
		opts = append(opts, jwt.WithAudience(j.audience))
	}

	token, err := jwt.ParseWithClaims(strings.TrimSpace(tokenStr), &Claims{},
		func(t *jwt.Token) (interface{}, error) {
			if t.Method != jwt.SigningMethodHS256 {
				return nil, fmt.Errorf("%s: %w", op, ErrInvalidToken)
			}

			return j.secret, nil
		},
		opts...,
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, fmt.Errorf("%s: %w", op, ErrTokenExpired)
		}

		return nil, fmt.Errorf("%s: %w", op, ErrInvalidToken)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidToken)
	}

	uid := claims.UserID
	if uid == "" {
		uid = claims.Subject
	}
	if uid == "" || claims.Email == "" {
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidToken)
	}

	return &models.User{ID: uid, Email: claims.Email}, nil
}

var _ Authenticator = (*JWT)(nil)
