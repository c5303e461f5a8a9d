package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"go.opentelemetry.io/otel/attribute"

	"github.com/pribylovaa/go-conference-central/internal/models"
	"github.com/pribylovaa/go-conference-central/internal/pkg/log"
	"github.com/pribylovaa/go-conference-central/internal/storage"
	"github.com/pribylovaa/go-conference-central/internal/tracing"
)

// ProfileForm — изменяемые поля профиля; nil означает «не менять».
type ProfileForm struct {
	DisplayName  *string
	TeeShirtSize *models.TeeShirtSize
}

// SaveProfile создаёт или обновляет профиль пользователя.
//
// Отсутствующий профиль создаётся с именем из email и NOT_SPECIFIED;
// у существующего меняются только переданные поля.
func (s *Service) SaveProfile(ctx context.Context, user *models.User, form ProfileForm) (_ *models.Profile, err error) {
	const op = "service/profiles/SaveProfile"

	if err := requireUser(user); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	ctx, span := s.startSpan(ctx, "SaveProfile", attribute.String("user_id", user.ID))
	defer func() { tracing.End(span, err) }()

	lg := log.From(ctx).With("op", op, "user_id", user.ID)

	if form.DisplayName != nil {
		name := strings.TrimSpace(*form.DisplayName)
		if name == "" {
			lg.Warn("invalid_argument", slog.String("reason", "empty display_name"))
			return nil, fmt.Errorf("%s: %w", op, ErrInvalidArgument)
		}
		form.DisplayName = &name
	}
	if form.TeeShirtSize != nil && !form.TeeShirtSize.Valid() {
		lg.Warn("invalid_argument", slog.String("reason", "bad tee_shirt_size"))
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidArgument)
	}

	var saved *models.Profile
	err = s.store.WithTx(ctx, func(ctx context.Context, tx storage.Repositories) error {
		p, err := loadOrNewProfile(ctx, tx, user)
		if err != nil {
			return err
		}

		if form.DisplayName != nil {
			p.DisplayName = *form.DisplayName
		}
		if form.TeeShirtSize != nil {
			p.TeeShirtSize = *form.TeeShirtSize
		}

		saved, err = tx.Profiles().SaveProfile(ctx, p)
		return err
	})
	if err != nil {
		return nil, storageFailure(ctx, lg, op, err)
	}

	lg.Debug("profile_saved")
	return saved, nil
}

// Profile возвращает профиль текущего пользователя.
func (s *Service) Profile(ctx context.Context, user *models.User) (_ *models.Profile, err error) {
	const op = "service/profiles/Profile"

	if err := requireUser(user); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	ctx, span := s.startSpan(ctx, "Profile", attribute.String("user_id", user.ID))
	defer func() { tracing.End(span, err) }()

	lg := log.From(ctx).With("op", op, "user_id", user.ID)

	p, err := s.store.Profiles().ProfileByID(ctx, user.ID)
	if err != nil {
		if errors.Is(err, storage.ErrProfileNotFound) {
			return nil, fmt.Errorf("%s: %w", op, ErrProfileNotFound)
		}
		return nil, storageFailure(ctx, lg, op, err)
	}

	return p, nil
}

// loadOrNewProfile читает профиль в транзакции; отсутствующий создаётся
// в памяти и сохраняется только вместе с остальными изменениями tx.
func loadOrNewProfile(ctx context.Context, tx storage.Repositories, user *models.User) (*models.Profile, error) {
	p, err := tx.Profiles().ProfileByID(ctx, user.ID)
	switch {
	case err == nil:
		return p, nil
	case errors.Is(err, storage.ErrProfileNotFound):
		return models.NewProfile(*user), nil
	default:
		return nil, err
	}
}
