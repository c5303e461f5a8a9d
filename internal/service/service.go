// service содержит бизнес-логику conference-service: профили, конференции,
// транзакционную регистрацию и анонс почти распроданных конференций.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/pribylovaa/go-conference-central/internal/cache"
	"github.com/pribylovaa/go-conference-central/internal/models"
	"github.com/pribylovaa/go-conference-central/internal/notify"
	"github.com/pribylovaa/go-conference-central/internal/storage"
)

var (
	// ErrAuthRequired — нет аутентифицированного пользователя.
	ErrAuthRequired = errors.New("authorization required")
	// ErrConferenceNotFound — конференция не найдена.
	ErrConferenceNotFound = errors.New("conference not found")
	// ErrProfileNotFound — профиль не найден.
	ErrProfileNotFound = errors.New("profile not found")
	// ErrAlreadyRegistered — пользователь уже зарегистрирован.
	ErrAlreadyRegistered = errors.New("already registered")
	// ErrNoSeatsAvailable — свободных мест нет.
	ErrNoSeatsAvailable = errors.New("no seats available")
	// ErrNotRegistered — пользователь не зарегистрирован на конференцию.
	ErrNotRegistered = errors.New("not registered")
	// ErrBadFilterCombination — недопустимое сочетание фильтров и сортировки.
	ErrBadFilterCombination = errors.New("bad filter combination")
	// ErrInvalidArgument — неверные входные параметры.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrRegistrationFailed — непредвиденный сбой внутри транзакции регистрации.
	ErrRegistrationFailed = errors.New("registration failed")
	// ErrInternal — внутренняя ошибка (хранилище/кэш).
	ErrInternal = errors.New("internal")
)

// Service — бизнес-логика conference-service.
type Service struct {
	store    storage.Store
	cache    cache.AnnouncementCache
	notifier notify.Notifier
	tracer   trace.Tracer
	cacheTTL time.Duration

	// refresh — коалесцирующий сигнал на обновление анонса (буфер 1).
	refresh chan struct{}
}

// Option настраивает Service.
type Option func(*Service)

// WithNotifier задаёт доставку писем-подтверждений (по умолчанию notify.Log).
func WithNotifier(n notify.Notifier) Option {
	return func(s *Service) { s.notifier = n }
}

// WithTracer задаёт трейсер (по умолчанию noop).
func WithTracer(t trace.Tracer) Option {
	return func(s *Service) { s.tracer = t }
}

// WithAnnouncementTTL задаёт TTL записи анонса в кэше (0 — без истечения).
func WithAnnouncementTTL(ttl time.Duration) Option {
	return func(s *Service) { s.cacheTTL = ttl }
}

// New создаёт новый экземпляр Service.
func New(store storage.Store, c cache.AnnouncementCache, opts ...Option) *Service {
	s := &Service{
		store:    store,
		cache:    c,
		notifier: notify.Log{},
		tracer:   noop.NewTracerProvider().Tracer("noop"),
		refresh:  make(chan struct{}, 1),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// requireUser проверяет наличие идентичности.
func requireUser(user *models.User) error {
	if user == nil || user.ID == "" {
		return ErrAuthRequired
	}
	return nil
}

func (s *Service) startSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return s.tracer.Start(ctx, "service."+name, trace.WithAttributes(attrs...))
}

// storageFailure превращает неожиданную ошибку хранилища в ErrInternal.
// Отмена и дедлайн вызывающего сохраняются как есть.
func storageFailure(ctx context.Context, lg *slog.Logger, op string, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		lg.Warn("request_aborted", slog.String("err", ctxErr.Error()))
		return fmt.Errorf("%s: %w", op, ctxErr)
	}

	lg.Error("storage_error", slog.String("err", err.Error()))
	return fmt.Errorf("%s: %w", op, ErrInternal)
}
