package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"github.com/pribylovaa/go-conference-central/internal/metrics"
	"github.com/pribylovaa/go-conference-central/internal/storage"
	"github.com/pribylovaa/go-conference-central/migrations"
)

// DefaultMaxAttempts — число попыток транзакции по умолчанию.
const DefaultMaxAttempts = 10

// querier — общее подмножество *pgxpool.Pool и pgx.Tx, которым пользуются репозитории.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Storage — хранилище на PostgreSQL.
// Транзакции: READ COMMITTED + SELECT ... FOR UPDATE по читаемым строкам;
// serialization_failure/deadlock_detected повторяются ограниченное число раз.
type Storage struct {
	db          *pgxpool.Pool
	maxAttempts int
}

// New создает новое подключение к PostgreSQL.
func New(ctx context.Context, dbURL string, maxAttempts int) (*Storage, error) {
	const op = "storage/postgres/New"

	config, err := pgxpool.ParseConfig(dbURL)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	db, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if err := db.Ping(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}

	return &Storage{db: db, maxAttempts: maxAttempts}, nil
}

// Migrate применяет встроенные goose-миграции к базе dbURL.
func Migrate(ctx context.Context, dbURL string) error {
	const op = "storage/postgres/Migrate"

	db, err := sql.Open("pgx", dbURL)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	defer db.Close()

	goose.SetBaseFS(migrations.FS)
	if err := goose.SetDialect("pgx"); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if err := goose.UpContext(ctx, db, "."); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// Close закрывает пул соединений.
func (s *Storage) Close() {
	s.db.Close()
}

// Profiles возвращает репозиторий профилей вне транзакции.
func (s *Storage) Profiles() storage.ProfileRepository { return &repos{db: s.db} }

// Conferences возвращает репозиторий конференций вне транзакции.
func (s *Storage) Conferences() storage.ConferenceRepository { return &repos{db: s.db} }

// WithTx выполняет fn в транзакции с повтором при конфликтах.
func (s *Storage) WithTx(ctx context.Context, fn storage.TxFunc) error {
	const op = "storage/postgres/WithTx"

	var err error
	for attempt := 1; attempt <= s.maxAttempts; attempt++ {
		err = s.runTx(ctx, fn)
		if err == nil || !retryable(err) {
			return err
		}

		metrics.TxRetries.WithLabelValues("postgres").Inc()

		select {
		case <-ctx.Done():
			return fmt.Errorf("%s: %w", op, ctx.Err())
		case <-time.After(backoff(attempt)):
		}
	}

	return fmt.Errorf("%s: %d attempts: %w (last: %v)", op, s.maxAttempts, storage.ErrTxConflict, err)
}

// runTx открывает транзакцию, вызывает fn и коммитит при успехе.
// Ошибка или паника fn откатывает транзакцию; паника пробрасывается дальше.
func (s *Storage) runTx(ctx context.Context, fn storage.TxFunc) (err error) {
	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return err
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback(context.Background())
			panic(p)
		}
		if err != nil {
			_ = tx.Rollback(context.Background())
			return
		}
		err = tx.Commit(ctx)
	}()

	return fn(ctx, &repos{db: tx, locking: true})
}

// retryable — ошибки, после которых транзакцию можно безопасно повторить.
func retryable(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}

	return pgErr.Code == pgerrcode.SerializationFailure || pgErr.Code == pgerrcode.DeadlockDetected
}

func backoff(attempt int) time.Duration {
	return time.Duration(attempt) * 5 * time.Millisecond
}

// repos реализует оба репозитория поверх пула или транзакции.
// locking=true только внутри транзакции: чтения по ключу берут блокировки.
type repos struct {
	db      querier
	locking bool
}

func (r *repos) Profiles() storage.ProfileRepository       { return r }
func (r *repos) Conferences() storage.ConferenceRepository { return r }

// Проверка на соответствие интерфейсам storage.
var (
	_ storage.Store                = (*Storage)(nil)
	_ storage.ProfileRepository    = (*repos)(nil)
	_ storage.ConferenceRepository = (*repos)(nil)
)
