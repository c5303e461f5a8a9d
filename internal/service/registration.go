package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel/attribute"

	"github.com/pribylovaa/go-conference-central/internal/metrics"
	"github.com/pribylovaa/go-conference-central/internal/models"
	"github.com/pribylovaa/go-conference-central/internal/pkg/log"
	"github.com/pribylovaa/go-conference-central/internal/storage"
	"github.com/pribylovaa/go-conference-central/internal/tracing"
)

// RegistrationResult — итог register/unregister для вызывающего слоя.
type RegistrationResult struct {
	Success bool
	Reason  string
	Outcome models.RegistrationOutcome
}

func newResult(outcome models.RegistrationOutcome, key string) RegistrationResult {
	return RegistrationResult{
		Success: outcome.Success(),
		Reason:  reason(outcome, key),
		Outcome: outcome,
	}
}

func reason(outcome models.RegistrationOutcome, key string) string {
	switch outcome {
	case models.OutcomeRegistered:
		return "Registration successful"
	case models.OutcomeUnregistered:
		return "Unregistration successful"
	case models.OutcomeConferenceNotFound:
		return "No Conference found with key: " + key
	case models.OutcomeProfileNotFound:
		return "Profile doesn't exist."
	case models.OutcomeAlreadyRegistered:
		return "Already registered"
	case models.OutcomeNoSeatsAvailable:
		return "No seats available"
	case models.OutcomeNotRegistered:
		return "You are not registered for this conference"
	default:
		return "Unknown exception"
	}
}

// Err возвращает сентинел для неуспешного исхода (nil при успехе).
func (r RegistrationResult) Err() error {
	switch r.Outcome {
	case models.OutcomeRegistered, models.OutcomeUnregistered:
		return nil
	case models.OutcomeConferenceNotFound:
		return ErrConferenceNotFound
	case models.OutcomeProfileNotFound:
		return ErrProfileNotFound
	case models.OutcomeAlreadyRegistered:
		return ErrAlreadyRegistered
	case models.OutcomeNoSeatsAvailable:
		return ErrNoSeatsAvailable
	case models.OutcomeNotRegistered:
		return ErrNotRegistered
	default:
		return ErrRegistrationFailed
	}
}

// Register регистрирует пользователя на конференцию.
//
// В одной транзакции: конференция (нет — ConferenceNotFound), профиль
// (нет — создаётся), проверка повторной регистрации, проверка мест,
// затем ключ добавляется в профиль, место бронируется, обе записи сохраняются.
// Отрицательные исходы возвращаются в RegistrationResult; ошибка — только
// ErrAuthRequired.
func (s *Service) Register(ctx context.Context, user *models.User, websafeKey string) (RegistrationResult, error) {
	const op = "service/registration/Register"

	if err := requireUser(user); err != nil {
		return RegistrationResult{}, fmt.Errorf("%s: %w", op, err)
	}

	return s.runRegistration(ctx, op, "register", user, websafeKey,
		func(ctx context.Context, tx storage.Repositories, key string, conf *models.Conference) (models.RegistrationOutcome, error) {
			profile, err := loadOrNewProfile(ctx, tx, user)
			if err != nil {
				return models.OutcomeFailed, err
			}

			if profile.IsRegistered(key) {
				return models.OutcomeAlreadyRegistered, nil
			}
			if conf.SeatsAvailable <= 0 {
				return models.OutcomeNoSeatsAvailable, nil
			}

			if err := conf.BookSeats(1); err != nil {
				return models.OutcomeFailed, err
			}
			profile.AddConferenceKey(key)

			if err := saveBoth(ctx, tx, profile, conf); err != nil {
				return models.OutcomeFailed, err
			}

			return models.OutcomeRegistered, nil
		})
}

// Unregister отменяет регистрацию пользователя.
//
// Отсутствующий профиль завершает транзакцию исходом ProfileNotFound,
// ошибка чтения профиля — RegistrationFailed; дальше тело не выполняется.
func (s *Service) Unregister(ctx context.Context, user *models.User, websafeKey string) (RegistrationResult, error) {
	const op = "service/registration/Unregister"

	if err := requireUser(user); err != nil {
		return RegistrationResult{}, fmt.Errorf("%s: %w", op, err)
	}

	return s.runRegistration(ctx, op, "unregister", user, websafeKey,
		func(ctx context.Context, tx storage.Repositories, key string, conf *models.Conference) (models.RegistrationOutcome, error) {
			profile, err := tx.Profiles().ProfileByID(ctx, user.ID)
			if err != nil {
				if errors.Is(err, storage.ErrProfileNotFound) {
					return models.OutcomeProfileNotFound, nil
				}
				return models.OutcomeFailed, err
			}

			if !profile.RemoveConferenceKey(key) {
				return models.OutcomeNotRegistered, nil
			}
			conf.GiveBackSeats(1)

			if err := saveBoth(ctx, tx, profile, conf); err != nil {
				return models.OutcomeFailed, err
			}

			return models.OutcomeUnregistered, nil
		})
}

// registrationBody — шаг транзакции после загрузки конференции.
type registrationBody func(ctx context.Context, tx storage.Repositories, key string, conf *models.Conference) (models.RegistrationOutcome, error)

// runRegistration — общая обвязка register/unregister: разбор ключа,
// транзакция с загрузкой конференции, метрики, логирование, анонс.
func (s *Service) runRegistration(ctx context.Context, op, kind string, user *models.User, websafeKey string, body registrationBody) (RegistrationResult, error) {
	ctx, span := s.startSpan(ctx, kind,
		attribute.String("user_id", user.ID),
		attribute.String("conference_key", websafeKey),
	)

	lg := log.From(ctx).With("op", op, "user_id", user.ID, "conference_key", websafeKey)

	outcome, err := s.registrationTx(ctx, websafeKey, body)
	if err != nil {
		outcome = models.OutcomeFailed
		lg.Error(kind+"_failed", slog.String("err", err.Error()))
	}

	res := newResult(outcome, websafeKey)
	metrics.Registrations.WithLabelValues(kind, outcome.String()).Inc()
	span.SetAttributes(attribute.String("outcome", outcome.String()))
	tracing.End(span, err)

	if res.Success {
		lg.Info(kind+"_ok")
		s.TriggerRefresh()
	} else if err == nil {
		lg.Info(kind+"_rejected", slog.String("outcome", outcome.String()))
	}

	return res, nil
}

func (s *Service) registrationTx(ctx context.Context, websafeKey string, body registrationBody) (models.RegistrationOutcome, error) {
	key, err := models.ParseConferenceKey(websafeKey)
	if err != nil {
		return models.OutcomeConferenceNotFound, nil
	}
	canonical := key.String()

	var outcome models.RegistrationOutcome
	err = s.store.WithTx(ctx, func(ctx context.Context, tx storage.Repositories) error {
		outcome = models.OutcomeFailed

		conf, err := tx.Conferences().ConferenceByKey(ctx, key)
		if err != nil {
			if errors.Is(err, storage.ErrConferenceNotFound) {
				outcome = models.OutcomeConferenceNotFound
				return nil
			}
			return err
		}

		outcome, err = body(ctx, tx, canonical, conf)
		return err
	})
	if err != nil {
		return models.OutcomeFailed, err
	}

	return outcome, nil
}

func saveBoth(ctx context.Context, tx storage.Repositories, p *models.Profile, c *models.Conference) error {
	if _, err := tx.Profiles().SaveProfile(ctx, p); err != nil {
		return err
	}
	if _, err := tx.Conferences().SaveConference(ctx, c); err != nil {
		return err
	}
	return nil
}
