package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/pribylovaa/go-conference-central/internal/metrics"
	"github.com/pribylovaa/go-conference-central/internal/models"
	"github.com/pribylovaa/go-conference-central/internal/pkg/log"
	"github.com/pribylovaa/go-conference-central/internal/tracing"
)

// RefreshAnnouncement пересчитывает анонс о почти распроданных конференциях.
// Пустой результат запроса оставляет прежнюю запись в кэше как есть.
// Возвращает true, если запись обновлена.
func (s *Service) RefreshAnnouncement(ctx context.Context) (_ bool, err error) {
	const op = "service/announcement/RefreshAnnouncement"

	ctx, span := s.startSpan(ctx, "RefreshAnnouncement")
	defer func() { tracing.End(span, err) }()

	lg := log.From(ctx).With("op", op)

	q, err := models.NearlySoldOutQuery().Normalize()
	if err != nil {
		metrics.AnnouncementRefreshes.WithLabelValues("error").Inc()
		return false, fmt.Errorf("%s: %w", op, err)
	}

	confs, err := s.store.Conferences().QueryConferences(ctx, q)
	if err != nil {
		metrics.AnnouncementRefreshes.WithLabelValues("error").Inc()
		return false, storageFailure(ctx, lg, op, err)
	}

	a, ok := models.BuildAnnouncement(confs)
	if !ok {
		metrics.AnnouncementRefreshes.WithLabelValues("empty").Inc()
		lg.Debug("announcement_unchanged")
		return false, nil
	}

	if err := s.cache.Set(ctx, models.AnnouncementKey, a.Message, s.cacheTTL); err != nil {
		metrics.AnnouncementRefreshes.WithLabelValues("error").Inc()
		lg.Error("announcement_cache_set_failed", slog.String("err", err.Error()))
		return false, fmt.Errorf("%s: %w", op, ErrInternal)
	}

	metrics.AnnouncementRefreshes.WithLabelValues("set").Inc()
	lg.Debug("announcement_refreshed", slog.Int("conferences", len(confs)))

	return true, nil
}

// Announcement возвращает текущий анонс или nil, если его нет.
func (s *Service) Announcement(ctx context.Context) (_ *models.Announcement, err error) {
	const op = "service/announcement/Announcement"

	ctx, span := s.startSpan(ctx, "Announcement")
	defer func() { tracing.End(span, err) }()

	msg, ok, err := s.cache.Get(ctx, models.AnnouncementKey)
	if err != nil {
		log.From(ctx).Error("announcement_cache_get_failed", slog.String("op", op), slog.String("err", err.Error()))
		return nil, fmt.Errorf("%s: %w", op, ErrInternal)
	}
	if !ok {
		return nil, nil
	}

	return &models.Announcement{Message: msg}, nil
}

// TriggerRefresh просит фоновый цикл обновить анонс. Не блокирует:
// повторные сигналы до обработки сливаются в один.
func (s *Service) TriggerRefresh() {
	select {
	case s.refresh <- struct{}{}:
	default:
	}
}

// RunAnnouncements обновляет анонс по сигналам TriggerRefresh и по таймеру
// (interval <= 0 отключает таймер) до отмены ctx. Ошибки только логируются.
func (s *Service) RunAnnouncements(ctx context.Context, interval time.Duration) {
	lg := log.From(ctx).With("component", "announcements")

	var tick <-chan time.Time
	if interval > 0 {
		t := time.NewTicker(interval)
		defer t.Stop()
		tick = t.C
	}

	refresh := func() {
		if _, err := s.RefreshAnnouncement(ctx); err != nil && ctx.Err() == nil {
			lg.Warn("announcement_refresh_failed", slog.String("err", err.Error()))
		}
	}

	// Первый прогон — сразу при старте.
	refresh()

	for {
		select {
		case <-ctx.Done():
			lg.Info("announcements_stopped")
			return
		case <-s.refresh:
			refresh()
		case <-tick:
			refresh()
		}
	}
}
