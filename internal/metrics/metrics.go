// metrics — прометеевские метрики conference-service.
// Регистрируются в prometheus.DefaultRegisterer и отдаются через /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "conference"

var (
	// Registrations — исходы register/unregister по операции и исходу.
	Registrations = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "registrations_total",
		Help:      "Registration engine outcomes.",
	}, []string{"op", "outcome"})

	// ConferencesCreated — созданные конференции.
	ConferencesCreated = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "conferences_created_total",
		Help:      "Conferences created.",
	})

	// AnnouncementRefreshes — обновления анонса по результату (set/empty/error).
	AnnouncementRefreshes = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "announcement_refreshes_total",
		Help:      "Announcement cache refreshes by result.",
	}, []string{"result"})

	// TxRetries — повторы транзакций хранилища из-за конфликтов.
	TxRetries = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "store_tx_retries_total",
		Help:      "Store transaction retries caused by commit conflicts.",
	}, []string{"driver"})

	// NotificationsDropped — уведомления, не поставленные в очередь или не доставленные.
	NotificationsDropped = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "notifications_dropped_total",
		Help:      "Notifications dropped by reason.",
	}, []string{"reason"})
)
