// memory — встроенное хранилище conference-service.
//
// Каждая запись хранит версию. Транзакция читает закоммиченное состояние,
// запоминает версии прочитанных ключей и копит записи локально; на коммите
// под эксклюзивной блокировкой версии сверяются (оптимистичная блокировка),
// при расхождении транзакция повторяется целиком.
package memory

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/pribylovaa/go-conference-central/internal/metrics"
	"github.com/pribylovaa/go-conference-central/internal/models"
	"github.com/pribylovaa/go-conference-central/internal/storage"
)

// DefaultMaxAttempts — число попыток коммита по умолчанию.
const DefaultMaxAttempts = 10

var errConflict = errors.New("version conflict")

type profileRecord struct {
	profile *models.Profile
	version uint64
}

type conferenceRecord struct {
	conference *models.Conference
	version    uint64
}

// Storage — потокобезопасное хранилище в памяти процесса.
type Storage struct {
	mu          sync.RWMutex
	profiles    map[string]profileRecord
	conferences map[models.ConferenceKey]conferenceRecord
	sequences   map[string]int64
	maxAttempts int
}

// New создаёт пустое хранилище. maxAttempts <= 0 заменяется DefaultMaxAttempts.
func New(maxAttempts int) *Storage {
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}

	return &Storage{
		profiles:    make(map[string]profileRecord),
		conferences: make(map[models.ConferenceKey]conferenceRecord),
		sequences:   make(map[string]int64),
		maxAttempts: maxAttempts,
	}
}

// Profiles возвращает репозиторий профилей вне транзакции (автокоммит).
func (s *Storage) Profiles() storage.ProfileRepository { return &repos{s: s} }

// Conferences возвращает репозиторий конференций вне транзакции (автокоммит).
func (s *Storage) Conferences() storage.ConferenceRepository { return &repos{s: s} }

// Close — no-op, оставлен для соответствия storage.Store.
func (s *Storage) Close() {}

// WithTx выполняет fn в оптимистичной транзакции.
func (s *Storage) WithTx(ctx context.Context, fn storage.TxFunc) error {
	const op = "storage/memory/WithTx"

	for attempt := 1; attempt <= s.maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}

		t := newTx()
		if err := fn(ctx, &repos{s: s, tx: t}); err != nil {
			return err
		}

		err := s.commit(t)
		if err == nil {
			return nil
		}
		if !errors.Is(err, errConflict) {
			return fmt.Errorf("%s: %w", op, err)
		}

		metrics.TxRetries.WithLabelValues("memory").Inc()
	}

	return fmt.Errorf("%s: %d attempts: %w", op, s.maxAttempts, storage.ErrTxConflict)
}

// tx — локальное состояние транзакции.
type tx struct {
	profileReads     map[string]uint64
	conferenceReads  map[models.ConferenceKey]uint64
	profileWrites    map[string]*models.Profile
	conferenceWrites map[models.ConferenceKey]*models.Conference
}

func newTx() *tx {
	return &tx{
		profileReads:     make(map[string]uint64),
		conferenceReads:  make(map[models.ConferenceKey]uint64),
		profileWrites:    make(map[string]*models.Profile),
		conferenceWrites: make(map[models.ConferenceKey]*models.Conference),
	}
}

// commit сверяет версии прочитанного и применяет записи.
func (s *Storage) commit(t *tx) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, v := range t.profileReads {
		if s.profiles[id].version != v {
			return errConflict
		}
	}
	for key, v := range t.conferenceReads {
		if s.conferences[key].version != v {
			return errConflict
		}
	}

	for id, p := range t.profileWrites {
		s.profiles[id] = profileRecord{profile: p, version: s.profiles[id].version + 1}
	}
	for key, c := range t.conferenceWrites {
		s.conferences[key] = conferenceRecord{conference: c, version: s.conferences[key].version + 1}
	}

	return nil
}

// repos реализует оба репозитория; tx == nil означает автокоммит.
type repos struct {
	s  *Storage
	tx *tx
}

func (r *repos) Profiles() storage.ProfileRepository       { return r }
func (r *repos) Conferences() storage.ConferenceRepository { return r }

var (
	_ storage.Store                = (*Storage)(nil)
	_ storage.Repositories         = (*repos)(nil)
	_ storage.ProfileRepository    = (*repos)(nil)
	_ storage.ConferenceRepository = (*repos)(nil)
)
