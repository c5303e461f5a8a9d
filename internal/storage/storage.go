// storage содержит контракты слоя хранилищ conference-service.
//
// Хранилище — транзакционное key-value/документное: чтение и запись
// профилей и конференций по ключу плюс индексированные запросы.
// Транзакция передаётся явно: WithTx вызывает fn с репозиториями,
// привязанными к открытой транзакции, и коммитит их изменения атомарно.
//
// Реализации: memory (оптимистичные версии), postgres (SELECT ... FOR UPDATE),
// mongo (транзакции сессии).
package storage

import (
	"context"
	"errors"

	"github.com/pribylovaa/go-conference-central/internal/models"
)

var (
	// ErrProfileNotFound — профиль не найден.
	ErrProfileNotFound = errors.New("profile not found")
	// ErrConferenceNotFound — конференция не найдена.
	ErrConferenceNotFound = errors.New("conference not found")
	// ErrAlreadyExists — запись с тем же ключом уже существует.
	ErrAlreadyExists = errors.New("already exists")
	// ErrTxConflict — транзакция не смогла закоммититься за отведённое число попыток.
	ErrTxConflict = errors.New("transaction conflict")
)

// ProfileRepository — контракт репозитория профилей.
type ProfileRepository interface {
	// ProfileByID возвращает профиль по user_id или ErrProfileNotFound.
	// Внутри транзакции запись блокируется/фиксируется для последующей записи.
	ProfileByID(ctx context.Context, userID string) (*models.Profile, error)
	// SaveProfile выполняет upsert по первичному ключу.
	SaveProfile(ctx context.Context, profile *models.Profile) (*models.Profile, error)
}

// ConferenceRepository — контракт репозитория конференций.
type ConferenceRepository interface {
	// AllocateID выдаёт новый id в пространстве владельца; значения не повторяются.
	AllocateID(ctx context.Context, ownerID string) (int64, error)
	// CreateConference вставляет новую конференцию (ErrAlreadyExists при дубле ключа).
	CreateConference(ctx context.Context, conference *models.Conference) (*models.Conference, error)
	// ConferenceByKey возвращает конференцию или ErrConferenceNotFound.
	ConferenceByKey(ctx context.Context, key models.ConferenceKey) (*models.Conference, error)
	// SaveConference перезаписывает изменяемые поля существующей конференции.
	SaveConference(ctx context.Context, conference *models.Conference) (*models.Conference, error)
	// ConferencesByOwner — конференции владельца по имени (ASC).
	ConferencesByOwner(ctx context.Context, ownerID string) ([]*models.Conference, error)
	// ConferencesByKeys — конференции по списку ключей; отсутствующие пропускаются.
	ConferencesByKeys(ctx context.Context, keys []models.ConferenceKey) ([]*models.Conference, error)
	// QueryConferences выполняет нормализованный запрос (см. models.ConferenceQuery.Normalize).
	QueryConferences(ctx context.Context, query models.ConferenceQuery) ([]*models.Conference, error)
}

// Repositories — набор репозиториев, привязанных к хранилищу или транзакции.
type Repositories interface {
	Profiles() ProfileRepository
	Conferences() ConferenceRepository
}

// TxFunc — тело транзакции. Может вызываться повторно при конфликте,
// поэтому не должно иметь побочных эффектов вне tx.
type TxFunc func(ctx context.Context, tx Repositories) error

// Store — верхнеуровневый интерфейс хранилища.
type Store interface {
	Repositories
	// WithTx выполняет fn в транзакции. Ошибка fn откатывает транзакцию и
	// возвращается как есть; конфликт коммита повторяется ограниченное число раз,
	// после чего возвращается ErrTxConflict.
	WithTx(ctx context.Context, fn TxFunc) error
	Close()
}
