package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"go.opentelemetry.io/otel/attribute"

	"github.com/pribylovaa/go-conference-central/internal/metrics"
	"github.com/pribylovaa/go-conference-central/internal/models"
	"github.com/pribylovaa/go-conference-central/internal/notify"
	"github.com/pribylovaa/go-conference-central/internal/pkg/log"
	"github.com/pribylovaa/go-conference-central/internal/storage"
	"github.com/pribylovaa/go-conference-central/internal/tracing"
)

const (
	confirmationSubject = "You created a new Conference!"
	confirmationGreet   = "Hi, you have created a following conference.\n"
)

// CreateConference создаёт конференцию от имени пользователя.
//
// Валидация:
//   - Name обязателен;
//   - MaxAttendees >= 0;
//   - EndDate не раньше StartDate (если заданы обе).
//
// Профиль организатора создаётся в той же транзакции, если его ещё нет.
// После коммита: письмо-подтверждение и обновление анонса (best-effort).
func (s *Service) CreateConference(ctx context.Context, user *models.User, form models.ConferenceForm) (_ *models.Conference, err error) {
	const op = "service/conferences/CreateConference"

	if err := requireUser(user); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	ctx, span := s.startSpan(ctx, "CreateConference", attribute.String("user_id", user.ID))
	defer func() { tracing.End(span, err) }()

	lg := log.From(ctx).With("op", op, "user_id", user.ID)

	if err := validateForm(form); err != nil {
		lg.Warn("invalid_argument", slog.String("reason", err.Error()))
		return nil, fmt.Errorf("%s: %w: %s", op, ErrInvalidArgument, err.Error())
	}

	// id выдаётся вне транзакции: повтор tx не должен сжигать новые id.
	id, err := s.store.Conferences().AllocateID(ctx, user.ID)
	if err != nil {
		return nil, storageFailure(ctx, lg, op, err)
	}

	conf := models.NewConference(models.ConferenceKey{OwnerID: user.ID, ID: id}, form)

	var created *models.Conference
	err = s.store.WithTx(ctx, func(ctx context.Context, tx storage.Repositories) error {
		if _, err := tx.Profiles().ProfileByID(ctx, user.ID); err != nil {
			if !errors.Is(err, storage.ErrProfileNotFound) {
				return err
			}
			if _, err := tx.Profiles().SaveProfile(ctx, models.NewProfile(*user)); err != nil {
				return err
			}
		}

		var err error
		created, err = tx.Conferences().CreateConference(ctx, conf)
		return err
	})
	if err != nil {
		return nil, storageFailure(ctx, lg, op, err)
	}

	metrics.ConferencesCreated.Inc()
	lg.Info("conference_created", slog.String("key", created.Key.String()))

	s.sendConfirmation(ctx, lg, user, created)
	s.TriggerRefresh()

	return created, nil
}

func validateForm(form models.ConferenceForm) error {
	if strings.TrimSpace(form.Name) == "" {
		return errors.New("name is required")
	}
	if form.MaxAttendees < 0 {
		return errors.New("max_attendees must be >= 0")
	}
	if !form.StartDate.IsZero() && !form.EndDate.IsZero() && form.EndDate.Before(form.StartDate) {
		return errors.New("end_date is before start_date")
	}
	return nil
}

// sendConfirmation отправляет письмо-подтверждение; ошибки только логируются.
func (s *Service) sendConfirmation(ctx context.Context, lg *slog.Logger, user *models.User, c *models.Conference) {
	if user.Email == "" {
		return
	}

	msg := notify.Message{
		To:      user.Email,
		Subject: confirmationSubject,
		Body:    confirmationGreet + c.String(),
	}

	if err := s.notifier.Notify(ctx, msg); err != nil {
		lg.Warn("confirmation_not_sent", slog.String("err", err.Error()))
	}
}

// Conference возвращает конференцию по websafe-ключу; аутентификация не нужна.
func (s *Service) Conference(ctx context.Context, websafeKey string) (_ *models.Conference, err error) {
	const op = "service/conferences/Conference"

	ctx, span := s.startSpan(ctx, "Conference", attribute.String("conference_key", websafeKey))
	defer func() { tracing.End(span, err) }()

	lg := log.From(ctx).With("op", op, "conference_key", websafeKey)

	key, err := models.ParseConferenceKey(websafeKey)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, ErrConferenceNotFound)
	}

	c, err := s.store.Conferences().ConferenceByKey(ctx, key)
	if err != nil {
		if errors.Is(err, storage.ErrConferenceNotFound) {
			return nil, fmt.Errorf("%s: %w", op, ErrConferenceNotFound)
		}
		return nil, storageFailure(ctx, lg, op, err)
	}

	return c, nil
}

// ConferencesCreated — конференции текущего пользователя по имени.
func (s *Service) ConferencesCreated(ctx context.Context, user *models.User) (_ []*models.Conference, err error) {
	const op = "service/conferences/ConferencesCreated"

	if err := requireUser(user); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	ctx, span := s.startSpan(ctx, "ConferencesCreated", attribute.String("user_id", user.ID))
	defer func() { tracing.End(span, err) }()

	lg := log.From(ctx).With("op", op, "user_id", user.ID)

	out, err := s.store.Conferences().ConferencesByOwner(ctx, user.ID)
	if err != nil {
		return nil, storageFailure(ctx, lg, op, err)
	}

	return out, nil
}

// QueryConferences выполняет запрос по фильтрам.
// Недопустимые сочетания отклоняются до обращения к хранилищу.
func (s *Service) QueryConferences(ctx context.Context, user *models.User, query models.ConferenceQuery) (_ []*models.Conference, err error) {
	const op = "service/conferences/QueryConferences"

	if err := requireUser(user); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	ctx, span := s.startSpan(ctx, "QueryConferences", attribute.Int("filters", len(query.Filters)))
	defer func() { tracing.End(span, err) }()

	lg := log.From(ctx).With("op", op, "user_id", user.ID)

	q, err := query.Normalize()
	if err != nil {
		lg.Warn("query_rejected", slog.String("err", err.Error()))
		switch {
		case errors.Is(err, models.ErrBadFilterCombination):
			return nil, fmt.Errorf("%s: %w: %s", op, ErrBadFilterCombination, err.Error())
		default:
			return nil, fmt.Errorf("%s: %w: %s", op, ErrInvalidArgument, err.Error())
		}
	}

	out, err := s.store.Conferences().QueryConferences(ctx, q)
	if err != nil {
		return nil, storageFailure(ctx, lg, op, err)
	}

	return out, nil
}

// ConferencesToAttend — конференции, на которые зарегистрирован пользователь.
func (s *Service) ConferencesToAttend(ctx context.Context, user *models.User) (_ []*models.Conference, err error) {
	const op = "service/conferences/ConferencesToAttend"

	if err := requireUser(user); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	ctx, span := s.startSpan(ctx, "ConferencesToAttend", attribute.String("user_id", user.ID))
	defer func() { tracing.End(span, err) }()

	lg := log.From(ctx).With("op", op, "user_id", user.ID)

	p, err := s.store.Profiles().ProfileByID(ctx, user.ID)
	if err != nil {
		if errors.Is(err, storage.ErrProfileNotFound) {
			return nil, fmt.Errorf("%s: %w", op, ErrProfileNotFound)
		}
		return nil, storageFailure(ctx, lg, op, err)
	}

	keys := make([]models.ConferenceKey, 0, len(p.ConferenceKeysToAttend))
	for _, raw := range p.ConferenceKeysToAttend {
		k, err := models.ParseConferenceKey(raw)
		if err != nil {
			lg.Warn("bad_registered_key", slog.String("key", raw))
			continue
		}
		keys = append(keys, k)
	}

	out, err := s.store.Conferences().ConferencesByKeys(ctx, keys)
	if err != nil {
		return nil, storageFailure(ctx, lg, op, err)
	}

	return out, nil
}
