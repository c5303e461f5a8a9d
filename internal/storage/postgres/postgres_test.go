package postgres

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/pribylovaa/go-conference-central/internal/models"
	"github.com/pribylovaa/go-conference-central/internal/storage"
)

// Интеграционные тесты для пакета postgres:
// — поднимают реальный PostgreSQL через testcontainers-go (образ postgres:16-alpine);
// — применяют встроенные goose-миграции через Migrate;
// — проверяют upsert профилей, выдачу id, запросы с фильтрами,
//   откат транзакции и отсутствие потерянных обновлений под конкуренцией.
//
// Запуск локально:
//   GO_TEST_INTEGRATION=1 go test ./internal/storage/postgres -v -race -count=1

// startPostgres поднимает PostgreSQL, применяет миграции и возвращает хранилище.
// Если GO_TEST_INTEGRATION не установлена — тест пропускается.
func startPostgres(t *testing.T) *Storage {
	t.Helper()
	if os.Getenv("GO_TEST_INTEGRATION") == "" {
		t.Skip("integration tests are disabled (set GO_TEST_INTEGRATION=1)")
	}

	ctx := context.Background()
	req := tc.ContainerRequest{
		Image:        "postgres:16-alpine",
		Env:          map[string]string{"POSTGRES_USER": "user", "POSTGRES_PASSWORD": "pass", "POSTGRES_DB": "db"},
		ExposedPorts: []string{"5432/tcp"},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(60 * time.Second),
	}
	c, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{ContainerRequest: req, Started: true})
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Terminate(context.Background()) })

	host, err := c.Host(ctx)
	require.NoError(t, err)
	port, err := c.MappedPort(ctx, "5432/tcp")
	require.NoError(t, err)
	dsn := fmt.Sprintf("postgres://user:pass@%s:%s/db?sslmode=disable", host, port.Port())

	require.NoError(t, Migrate(ctx, dsn))

	st, err := New(ctx, dsn, 0)
	require.NoError(t, err)
	t.Cleanup(st.Close)

	return st
}

func createConference(t *testing.T, st *Storage, owner string, form models.ConferenceForm) *models.Conference {
	t.Helper()

	ctx := context.Background()
	id, err := st.Conferences().AllocateID(ctx, owner)
	require.NoError(t, err)

	out, err := st.Conferences().CreateConference(ctx, models.NewConference(models.ConferenceKey{OwnerID: owner, ID: id}, form))
	require.NoError(t, err)

	return out
}

func TestPostgres_Integration(t *testing.T) {
	st := startPostgres(t)
	ctx := context.Background()

	t.Run("profile upsert and lookup", func(t *testing.T) {
		uid := uuid.NewString()

		_, err := st.Profiles().ProfileByID(ctx, uid)
		require.ErrorIs(t, err, storage.ErrProfileNotFound)

		p := models.NewProfile(models.User{ID: uid, Email: "alice@example.com"})
		saved, err := st.Profiles().SaveProfile(ctx, p)
		require.NoError(t, err)
		require.Equal(t, "alice", saved.DisplayName)
		require.Empty(t, saved.ConferenceKeysToAttend)

		p.TeeShirtSize = models.TeeShirtL
		p.ConferenceKeysToAttend = []string{"k1"}
		_, err = st.Profiles().SaveProfile(ctx, p)
		require.NoError(t, err)

		got, err := st.Profiles().ProfileByID(ctx, uid)
		require.NoError(t, err)
		require.Equal(t, models.TeeShirtL, got.TeeShirtSize)
		require.Equal(t, []string{"k1"}, got.ConferenceKeysToAttend)
	})

	t.Run("allocate ids and create conferences", func(t *testing.T) {
		owner := uuid.NewString()

		id1, err := st.Conferences().AllocateID(ctx, owner)
		require.NoError(t, err)
		id2, err := st.Conferences().AllocateID(ctx, owner)
		require.NoError(t, err)
		require.Greater(t, id2, id1)

		start := time.Date(2026, time.May, 10, 0, 0, 0, 0, time.UTC)
		c := models.NewConference(models.ConferenceKey{OwnerID: owner, ID: id1}, models.ConferenceForm{
			Name: "Zeta", City: "Riga", Topics: []string{"Go"}, StartDate: start, MaxAttendees: 7,
		})
		created, err := st.Conferences().CreateConference(ctx, c)
		require.NoError(t, err)
		require.Equal(t, c, created)

		_, err = st.Conferences().CreateConference(ctx, c)
		require.ErrorIs(t, err, storage.ErrAlreadyExists)

		createConference(t, st, owner, models.ConferenceForm{Name: "Alpha", MaxAttendees: 1})

		owned, err := st.Conferences().ConferencesByOwner(ctx, owner)
		require.NoError(t, err)
		require.Len(t, owned, 2)
		require.Equal(t, "Alpha", owned[0].Name)
		require.Equal(t, "Zeta", owned[1].Name)

		_, err = st.Conferences().ConferenceByKey(ctx, models.ConferenceKey{OwnerID: owner, ID: 999})
		require.ErrorIs(t, err, storage.ErrConferenceNotFound)
	})

	t.Run("query filters and ordering", func(t *testing.T) {
		owner := uuid.NewString()
		city := "City-" + owner
		createConference(t, st, owner, models.ConferenceForm{Name: "Q3", City: city, Topics: []string{"Go"}, MaxAttendees: 3})
		createConference(t, st, owner, models.ConferenceForm{Name: "Q1", City: city, Topics: []string{"Rust"}, MaxAttendees: 1})
		createConference(t, st, owner, models.ConferenceForm{Name: "Q9", City: city, Topics: []string{"Go"}, MaxAttendees: 9})

		q, err := models.ConferenceQuery{Filters: []models.Filter{
			{Field: models.FieldCity, Operator: models.OpEQ, Value: city},
			{Field: models.FieldSeatsAvailable, Operator: models.OpLT, Value: "5"},
		}}.Normalize()
		require.NoError(t, err)

		got, err := st.Conferences().QueryConferences(ctx, q)
		require.NoError(t, err)
		require.Len(t, got, 2)
		require.Equal(t, "Q1", got[0].Name)
		require.Equal(t, "Q3", got[1].Name)

		q, err = models.ConferenceQuery{Filters: []models.Filter{
			{Field: models.FieldCity, Operator: models.OpEQ, Value: city},
			{Field: models.FieldTopic, Operator: models.OpEQ, Value: "Go"},
		}}.Normalize()
		require.NoError(t, err)

		got, err = st.Conferences().QueryConferences(ctx, q)
		require.NoError(t, err)
		require.Len(t, got, 2)
		require.Equal(t, "Q3", got[0].Name)
		require.Equal(t, "Q9", got[1].Name)

		keys := []models.ConferenceKey{got[1].Key, {OwnerID: owner, ID: 12345}, got[0].Key}
		byKeys, err := st.Conferences().ConferencesByKeys(ctx, keys)
		require.NoError(t, err)
		require.Len(t, byKeys, 2)
		require.Equal(t, "Q9", byKeys[0].Name)
	})

	t.Run("tx rollback leaves state unchanged", func(t *testing.T) {
		c := createConference(t, st, uuid.NewString(), models.ConferenceForm{Name: "R", MaxAttendees: 2})
		boom := errors.New("boom")

		err := st.WithTx(ctx, func(ctx context.Context, tx storage.Repositories) error {
			conf, err := tx.Conferences().ConferenceByKey(ctx, c.Key)
			if err != nil {
				return err
			}
			if err := conf.BookSeats(1); err != nil {
				return err
			}
			if _, err := tx.Conferences().SaveConference(ctx, conf); err != nil {
				return err
			}
			return boom
		})
		require.ErrorIs(t, err, boom)

		got, err := st.Conferences().ConferenceByKey(ctx, c.Key)
		require.NoError(t, err)
		require.Equal(t, 2, got.SeatsAvailable)
	})

	t.Run("seats check constraint", func(t *testing.T) {
		c := createConference(t, st, uuid.NewString(), models.ConferenceForm{Name: "C", MaxAttendees: 1})
		c.SeatsAvailable = 2

		_, err := st.Conferences().SaveConference(ctx, c)
		require.Error(t, err)
	})

	t.Run("concurrent bookings serialize on row lock", func(t *testing.T) {
		const workers, seats = 12, 5
		c := createConference(t, st, uuid.NewString(), models.ConferenceForm{Name: "Hot", MaxAttendees: seats})

		var (
			wg      sync.WaitGroup
			mu      sync.Mutex
			booked  int
			refused int
			errs    = make(chan error, workers)
		)
		for i := 0; i < workers; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				ok := false
				err := st.WithTx(ctx, func(ctx context.Context, tx storage.Repositories) error {
					ok = false
					conf, err := tx.Conferences().ConferenceByKey(ctx, c.Key)
					if err != nil {
						return err
					}
					if conf.BookSeats(1) != nil {
						return nil
					}
					if _, err := tx.Conferences().SaveConference(ctx, conf); err != nil {
						return err
					}
					ok = true
					return nil
				})
				if err != nil {
					errs <- err
					return
				}

				mu.Lock()
				defer mu.Unlock()
				if ok {
					booked++
				} else {
					refused++
				}
			}()
		}
		wg.Wait()
		close(errs)

		for err := range errs {
			require.NoError(t, err)
		}
		require.Equal(t, seats, booked)
		require.Equal(t, workers-seats, refused)

		got, err := st.Conferences().ConferenceByKey(ctx, c.Key)
		require.NoError(t, err)
		require.Equal(t, 0, got.SeatsAvailable)
	})
}
