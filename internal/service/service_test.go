package service

// Тесты сервисного слоя conference-service.
//
//  Проверяем:
//  - профили: создание с дефолтами, частичное обновление, валидацию;
//  - конференции: дефолты формы, автосоздание профиля, письмо-подтверждение;
//  - движок регистрации: повторная регистрация, нулевые места, гонку N > k,
//    круговой цикл unregister/register, сценарий на 10 мест,
//    откат транзакции при сбое репозитория посреди тела;
//  - анонс: включение/исключение по числу мест, устаревшая запись не чистится;
//  - отклонение запросов с двумя неравенствами до обращения к хранилищу.
//
// Хранилище — memory (реальные транзакции), кэш/уведомления — моки:
//   mockgen -source=./internal/cache/cache.go -destination=./mocks/cache.go -package=mocks
//   mockgen -source=./internal/notify/notify.go -destination=./mocks/notify.go -package=mocks

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/require"

	"github.com/pribylovaa/go-conference-central/internal/cache"
	"github.com/pribylovaa/go-conference-central/internal/models"
	"github.com/pribylovaa/go-conference-central/internal/notify"
	"github.com/pribylovaa/go-conference-central/internal/storage"
	"github.com/pribylovaa/go-conference-central/internal/storage/memory"
	"github.com/pribylovaa/go-conference-central/mocks"
)

var (
	alice = &models.User{ID: "alice", Email: "alice@example.com"}
	bob   = &models.User{ID: "bob", Email: "bob@example.com"}
	owner = &models.User{ID: "owner", Email: "owner@example.com"}
)

// newServiceWithMocks — сервис на memory-хранилище, in-process кэше и моке уведомлений.
func newServiceWithMocks(t *testing.T, attempts int) (*Service, *memory.Storage, *mocks.MockNotifier) {
	t.Helper()
	ctrl := gomock.NewController(t)
	mn := mocks.NewMockNotifier(ctrl)
	st := memory.New(attempts)
	s := New(st, cache.NewMemory(0), WithNotifier(mn))
	return s, st, mn
}

// mustConference создаёт конференцию владельца owner с заданной вместимостью.
func mustConference(t *testing.T, s *Service, mn *mocks.MockNotifier, name string, seats int) *models.Conference {
	t.Helper()
	mn.EXPECT().Notify(gomock.Any(), gomock.Any()).Return(nil)

	c, err := s.CreateConference(context.Background(), owner, models.ConferenceForm{Name: name, MaxAttendees: seats})
	require.NoError(t, err)
	return c
}

func seatsOf(t *testing.T, st storage.Store, key models.ConferenceKey) int {
	t.Helper()
	c, err := st.Conferences().ConferenceByKey(context.Background(), key)
	require.NoError(t, err)
	return c.SeatsAvailable
}

func ptr[T any](v T) *T { return &v }

func TestService_SaveProfile(t *testing.T) {
	s, _, _ := newServiceWithMocks(t, 0)
	ctx := context.Background()

	_, err := s.SaveProfile(ctx, nil, ProfileForm{})
	require.ErrorIs(t, err, ErrAuthRequired)

	p, err := s.SaveProfile(ctx, alice, ProfileForm{})
	require.NoError(t, err)
	require.Equal(t, "alice", p.DisplayName)
	require.Equal(t, models.TeeShirtNotSpecified, p.TeeShirtSize)
	require.Equal(t, alice.Email, p.MainEmail)

	p, err = s.SaveProfile(ctx, alice, ProfileForm{TeeShirtSize: ptr(models.TeeShirtM)})
	require.NoError(t, err)
	require.Equal(t, "alice", p.DisplayName)
	require.Equal(t, models.TeeShirtM, p.TeeShirtSize)

	p, err = s.SaveProfile(ctx, alice, ProfileForm{DisplayName: ptr("  Alice  ")})
	require.NoError(t, err)
	require.Equal(t, "Alice", p.DisplayName)
	require.Equal(t, models.TeeShirtM, p.TeeShirtSize)

	_, err = s.SaveProfile(ctx, alice, ProfileForm{DisplayName: ptr("   ")})
	require.ErrorIs(t, err, ErrInvalidArgument)

	_, err = s.SaveProfile(ctx, alice, ProfileForm{TeeShirtSize: ptr(models.TeeShirtSize(42))})
	require.ErrorIs(t, err, ErrInvalidArgument)

	got, err := s.Profile(ctx, alice)
	require.NoError(t, err)
	require.Equal(t, "Alice", got.DisplayName)
}

func TestService_Profile_NotFound(t *testing.T) {
	s, _, _ := newServiceWithMocks(t, 0)

	_, err := s.Profile(context.Background(), bob)
	require.ErrorIs(t, err, ErrProfileNotFound)

	_, err = s.Profile(context.Background(), &models.User{})
	require.ErrorIs(t, err, ErrAuthRequired)
}

func TestService_CreateConference(t *testing.T) {
	s, st, mn := newServiceWithMocks(t, 0)
	ctx := context.Background()

	start := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)

	mn.EXPECT().Notify(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, msg notify.Message) error {
		require.Equal(t, owner.Email, msg.To)
		require.Equal(t, "You created a new Conference!", msg.Subject)
		require.Contains(t, msg.Body, "Hi, you have created a following conference.\n")
		require.Contains(t, msg.Body, "Name: GopherCon")
		return nil
	})

	c, err := s.CreateConference(ctx, owner, models.ConferenceForm{
		Name:         " GopherCon ",
		StartDate:    start,
		EndDate:      start.AddDate(0, 0, 2),
		MaxAttendees: 10,
	})
	require.NoError(t, err)
	require.Equal(t, "GopherCon", c.Name)
	require.Equal(t, models.DefaultCity, c.City)
	require.Equal(t, models.DefaultTopics, c.Topics)
	require.Equal(t, 5, c.Month)
	require.Equal(t, 10, c.SeatsAvailable)
	require.Equal(t, owner.ID, c.OrganizerUserID)

	// Профиль организатора создан вместе с конференцией.
	p, err := st.Profiles().ProfileByID(ctx, owner.ID)
	require.NoError(t, err)
	require.Equal(t, "owner", p.DisplayName)

	got, err := s.Conference(ctx, c.Key.String())
	require.NoError(t, err)
	require.Equal(t, c.Key, got.Key)

	created, err := s.ConferencesCreated(ctx, owner)
	require.NoError(t, err)
	require.Len(t, created, 1)
}

func TestService_CreateConference_Validation(t *testing.T) {
	s, _, _ := newServiceWithMocks(t, 0)
	ctx := context.Background()
	start := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)

	_, err := s.CreateConference(ctx, nil, models.ConferenceForm{Name: "x"})
	require.ErrorIs(t, err, ErrAuthRequired)

	cases := map[string]models.ConferenceForm{
		"empty name":       {Name: "  ", MaxAttendees: 1},
		"negative seats":   {Name: "x", MaxAttendees: -1},
		"end before start": {Name: "x", StartDate: start, EndDate: start.AddDate(0, 0, -1)},
	}
	for name, form := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := s.CreateConference(ctx, owner, form)
			require.ErrorIs(t, err, ErrInvalidArgument)
		})
	}
}

// Сбой уведомления не должен ломать создание конференции.
func TestService_CreateConference_NotifyFailureSwallowed(t *testing.T) {
	s, _, mn := newServiceWithMocks(t, 0)

	mn.EXPECT().Notify(gomock.Any(), gomock.Any()).Return(notify.ErrQueueFull)

	c, err := s.CreateConference(context.Background(), owner, models.ConferenceForm{Name: "x", MaxAttendees: 1})
	require.NoError(t, err)
	require.NotNil(t, c)
}

func TestService_Conference_NotFound(t *testing.T) {
	s, _, _ := newServiceWithMocks(t, 0)
	ctx := context.Background()

	_, err := s.Conference(ctx, "@@not-base64@@")
	require.ErrorIs(t, err, ErrConferenceNotFound)

	_, err = s.Conference(ctx, models.ConferenceKey{OwnerID: "x", ID: 7}.String())
	require.ErrorIs(t, err, ErrConferenceNotFound)
}

func TestService_Register_Twice(t *testing.T) {
	s, st, mn := newServiceWithMocks(t, 0)
	ctx := context.Background()
	c := mustConference(t, s, mn, "Twice", 3)

	res, err := s.Register(ctx, alice, c.Key.String())
	require.NoError(t, err)
	require.True(t, res.Success)
	require.Equal(t, "Registration successful", res.Reason)
	require.NoError(t, res.Err())

	res, err = s.Register(ctx, alice, c.Key.String())
	require.NoError(t, err)
	require.False(t, res.Success)
	require.Equal(t, models.OutcomeAlreadyRegistered, res.Outcome)
	require.ErrorIs(t, res.Err(), ErrAlreadyRegistered)
	require.Equal(t, 2, seatsOf(t, st, c.Key))

	p, err := s.Profile(ctx, alice)
	require.NoError(t, err)
	require.Equal(t, []string{c.Key.String()}, p.ConferenceKeysToAttend)
}

func TestService_Register_NoSeats_NoMutation(t *testing.T) {
	s, st, mn := newServiceWithMocks(t, 0)
	ctx := context.Background()
	c := mustConference(t, s, mn, "Empty", 0)

	res, err := s.Register(ctx, alice, c.Key.String())
	require.NoError(t, err)
	require.Equal(t, models.OutcomeNoSeatsAvailable, res.Outcome)
	require.Equal(t, "No seats available", res.Reason)
	require.ErrorIs(t, res.Err(), ErrNoSeatsAvailable)
	require.Equal(t, 0, seatsOf(t, st, c.Key))

	// Ленивый профиль не сохраняется при отказе.
	_, err = s.Profile(ctx, alice)
	require.ErrorIs(t, err, ErrProfileNotFound)
}

func TestService_Register_ConferenceNotFound(t *testing.T) {
	s, _, _ := newServiceWithMocks(t, 0)
	ctx := context.Background()

	missing := models.ConferenceKey{OwnerID: "owner", ID: 99}.String()
	res, err := s.Register(ctx, alice, missing)
	require.NoError(t, err)
	require.Equal(t, models.OutcomeConferenceNotFound, res.Outcome)
	require.Equal(t, "No Conference found with key: "+missing, res.Reason)
	require.ErrorIs(t, res.Err(), ErrConferenceNotFound)

	res, err = s.Register(ctx, alice, "garbage")
	require.NoError(t, err)
	require.Equal(t, models.OutcomeConferenceNotFound, res.Outcome)

	_, err = s.Register(ctx, nil, missing)
	require.ErrorIs(t, err, ErrAuthRequired)
}

func TestService_Unregister_Negative(t *testing.T) {
	s, st, mn := newServiceWithMocks(t, 0)
	ctx := context.Background()
	c := mustConference(t, s, mn, "Neg", 5)

	// Профиля нет — транзакция не продолжается.
	res, err := s.Unregister(ctx, bob, c.Key.String())
	require.NoError(t, err)
	require.Equal(t, models.OutcomeProfileNotFound, res.Outcome)
	require.Equal(t, "Profile doesn't exist.", res.Reason)
	require.ErrorIs(t, res.Err(), ErrProfileNotFound)

	_, err = s.SaveProfile(ctx, bob, ProfileForm{})
	require.NoError(t, err)

	res, err = s.Unregister(ctx, bob, c.Key.String())
	require.NoError(t, err)
	require.Equal(t, models.OutcomeNotRegistered, res.Outcome)
	require.Equal(t, "You are not registered for this conference", res.Reason)
	require.ErrorIs(t, res.Err(), ErrNotRegistered)
	require.Equal(t, 5, seatsOf(t, st, c.Key))

	res, err = s.Unregister(ctx, bob, models.ConferenceKey{OwnerID: "owner", ID: 42}.String())
	require.NoError(t, err)
	require.Equal(t, models.OutcomeConferenceNotFound, res.Outcome)
}

func TestService_UnregisterRegister_RoundTrip(t *testing.T) {
	s, st, mn := newServiceWithMocks(t, 0)
	ctx := context.Background()
	c := mustConference(t, s, mn, "Round", 4)
	key := c.Key.String()

	res, _ := s.Register(ctx, alice, key)
	require.True(t, res.Success)
	before := seatsOf(t, st, c.Key)

	res, _ = s.Unregister(ctx, alice, key)
	require.True(t, res.Success)
	require.Equal(t, "Unregistration successful", res.Reason)
	require.Equal(t, before+1, seatsOf(t, st, c.Key))

	res, _ = s.Register(ctx, alice, key)
	require.True(t, res.Success)
	require.Equal(t, before, seatsOf(t, st, c.Key))

	p, err := s.Profile(ctx, alice)
	require.NoError(t, err)
	require.Equal(t, []string{key}, p.ConferenceKeysToAttend)
}

// Сценарий: 10 мест; A регистрируется и отменяет; затем 5 пользователей
// соревнуются за 3 оставшихся места.
func TestService_TenSeatScenario(t *testing.T) {
	s, st, mn := newServiceWithMocks(t, 0)
	ctx := context.Background()
	c := mustConference(t, s, mn, "Scenario", 10)
	key := c.Key.String()
	require.Equal(t, 10, seatsOf(t, st, c.Key))

	res, _ := s.Register(ctx, alice, key)
	require.True(t, res.Success)
	require.Equal(t, 9, seatsOf(t, st, c.Key))

	p, err := s.Profile(ctx, alice)
	require.NoError(t, err)
	require.Equal(t, []string{key}, p.ConferenceKeysToAttend)

	res, _ = s.Unregister(ctx, alice, key)
	require.True(t, res.Success)
	require.Equal(t, 10, seatsOf(t, st, c.Key))

	p, err = s.Profile(ctx, alice)
	require.NoError(t, err)
	require.Empty(t, p.ConferenceKeysToAttend)

	// Занимаем 7 мест, чтобы осталось 3.
	for i := 0; i < 7; i++ {
		res, _ := s.Register(ctx, &models.User{ID: fmt.Sprintf("filler-%d", i), Email: "f@example.com"}, key)
		require.True(t, res.Success)
	}
	require.Equal(t, 3, seatsOf(t, st, c.Key))

	var ok, noSeats int
	for _, id := range []string{"B", "C", "D", "E", "F"} {
		res, err := s.Register(ctx, &models.User{ID: id, Email: id + "@example.com"}, key)
		require.NoError(t, err)
		switch res.Outcome {
		case models.OutcomeRegistered:
			ok++
		case models.OutcomeNoSeatsAvailable:
			noSeats++
		default:
			t.Fatalf("unexpected outcome %s", res.Outcome)
		}
	}
	require.Equal(t, 3, ok)
	require.Equal(t, 2, noSeats)
	require.Equal(t, 0, seatsOf(t, st, c.Key))
}

// N конкурентных регистраций на k < N мест: ровно k успехов, остальные — NoSeatsAvailable.
func TestService_ConcurrentRegistrations(t *testing.T) {
	const (
		n = 24
		k = 5
	)

	s, st, mn := newServiceWithMocks(t, k+2)
	c := mustConference(t, s, mn, "Race", k)
	key := c.Key.String()

	var wg sync.WaitGroup
	outcomes := make(chan models.RegistrationOutcome, n)

	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			u := &models.User{ID: fmt.Sprintf("u-%d", i), Email: fmt.Sprintf("u%d@example.com", i)}
			res, err := s.Register(context.Background(), u, key)
			if err != nil {
				outcomes <- models.OutcomeFailed
				return
			}
			outcomes <- res.Outcome
		}(i)
	}
	wg.Wait()
	close(outcomes)

	counts := map[models.RegistrationOutcome]int{}
	for o := range outcomes {
		counts[o]++
	}

	require.Equal(t, k, counts[models.OutcomeRegistered])
	require.Equal(t, n-k, counts[models.OutcomeNoSeatsAvailable])
	require.Equal(t, 0, seatsOf(t, st, c.Key))
}

// failingStore — WithTx всегда падает, как при исчерпании повторов.
type failingStore struct {
	storage.Store
}

func (failingStore) WithTx(context.Context, storage.TxFunc) error {
	return fmt.Errorf("memory: %w", storage.ErrTxConflict)
}

func TestService_Register_StoreFailure(t *testing.T) {
	s := New(failingStore{memory.New(0)}, cache.NewMemory(0))

	res, err := s.Register(context.Background(), alice, models.ConferenceKey{OwnerID: "o", ID: 1}.String())
	require.NoError(t, err)
	require.False(t, res.Success)
	require.Equal(t, models.OutcomeFailed, res.Outcome)
	require.Equal(t, "Unknown exception", res.Reason)
	require.ErrorIs(t, res.Err(), ErrRegistrationFailed)
}

var errInjected = errors.New("injected fault")

// faultyStore оборачивает репозитории транзакции и подставляет ошибки
// в выбранные операции; тело транзакции при этом выполняется по-настоящему.
type faultyStore struct {
	storage.Store
	profileReadErr     error
	conferenceWriteErr error
	profileWrites      *int
}

func (f faultyStore) WithTx(ctx context.Context, fn storage.TxFunc) error {
	return f.Store.WithTx(ctx, func(ctx context.Context, tx storage.Repositories) error {
		return fn(ctx, faultyRepos{tx: tx, f: f})
	})
}

type faultyRepos struct {
	tx storage.Repositories
	f  faultyStore
}

func (r faultyRepos) Profiles() storage.ProfileRepository {
	return faultyProfiles{ProfileRepository: r.tx.Profiles(), f: r.f}
}

func (r faultyRepos) Conferences() storage.ConferenceRepository {
	return faultyConferences{ConferenceRepository: r.tx.Conferences(), f: r.f}
}

type faultyProfiles struct {
	storage.ProfileRepository
	f faultyStore
}

func (p faultyProfiles) ProfileByID(ctx context.Context, userID string) (*models.Profile, error) {
	if p.f.profileReadErr != nil {
		return nil, p.f.profileReadErr
	}
	return p.ProfileRepository.ProfileByID(ctx, userID)
}

func (p faultyProfiles) SaveProfile(ctx context.Context, profile *models.Profile) (*models.Profile, error) {
	if p.f.profileWrites != nil {
		*p.f.profileWrites++
	}
	return p.ProfileRepository.SaveProfile(ctx, profile)
}

type faultyConferences struct {
	storage.ConferenceRepository
	f faultyStore
}

func (c faultyConferences) SaveConference(ctx context.Context, conference *models.Conference) (*models.Conference, error) {
	if c.f.conferenceWriteErr != nil {
		return nil, c.f.conferenceWriteErr
	}
	return c.ConferenceRepository.SaveConference(ctx, conference)
}

func TestService_Unregister_ProfileReadFailure(t *testing.T) {
	s, st, mn := newServiceWithMocks(t, 3)
	ctx := context.Background()
	c := mustConference(t, s, mn, "Fragile", 3)

	res, err := s.Register(ctx, alice, c.Key.String())
	require.NoError(t, err)
	require.True(t, res.Success)

	faulty := New(faultyStore{Store: st, profileReadErr: errInjected}, cache.NewMemory(0))

	res, err = faulty.Unregister(ctx, alice, c.Key.String())
	require.NoError(t, err)
	require.False(t, res.Success)
	require.Equal(t, models.OutcomeFailed, res.Outcome)
	require.Equal(t, "Unknown exception", res.Reason)
	require.ErrorIs(t, res.Err(), ErrRegistrationFailed)

	// Регистрация и места не тронуты.
	require.Equal(t, 2, seatsOf(t, st, c.Key))
	p, err := st.Profiles().ProfileByID(ctx, alice.ID)
	require.NoError(t, err)
	require.True(t, p.IsRegistered(c.Key.String()))
}

func TestService_Register_MidBodyFailureRollsBack(t *testing.T) {
	s, st, mn := newServiceWithMocks(t, 3)
	ctx := context.Background()
	c := mustConference(t, s, mn, "Rollback", 2)

	var profileWrites int
	faulty := New(faultyStore{
		Store:              st,
		conferenceWriteErr: errInjected,
		profileWrites:      &profileWrites,
	}, cache.NewMemory(0))

	res, err := faulty.Register(ctx, bob, c.Key.String())
	require.NoError(t, err)
	require.False(t, res.Success)
	require.Equal(t, models.OutcomeFailed, res.Outcome)
	require.Equal(t, "Unknown exception", res.Reason)
	require.ErrorIs(t, res.Err(), ErrRegistrationFailed)

	// Профиль был записан в транзакции до сбоя, но не закоммичен.
	require.Equal(t, 1, profileWrites)
	_, err = st.Profiles().ProfileByID(ctx, bob.ID)
	require.ErrorIs(t, err, storage.ErrProfileNotFound)
	require.Equal(t, 2, seatsOf(t, st, c.Key))
}

// untouchableStore валит тест при любом обращении к конференциям.
type untouchableStore struct {
	storage.Store
	t *testing.T
}

func (u untouchableStore) Conferences() storage.ConferenceRepository {
	u.t.Fatal("store must not be reached")
	return nil
}

func TestService_QueryConferences_RejectsBeforeStore(t *testing.T) {
	s := New(untouchableStore{Store: memory.New(0), t: t}, cache.NewMemory(0))

	_, err := s.QueryConferences(context.Background(), alice, models.ConferenceQuery{Filters: []models.Filter{
		{Field: models.FieldMonth, Operator: models.OpGT, Value: "3"},
		{Field: models.FieldMaxAttendees, Operator: models.OpLT, Value: "10"},
	}})
	require.ErrorIs(t, err, ErrBadFilterCombination)

	_, err = s.QueryConferences(context.Background(), alice, models.ConferenceQuery{Filters: []models.Filter{
		{Field: models.FieldTopic, Operator: models.OpGT, Value: "Go"},
	}})
	require.ErrorIs(t, err, ErrInvalidArgument)

	_, err = s.QueryConferences(context.Background(), nil, models.ConferenceQuery{})
	require.ErrorIs(t, err, ErrAuthRequired)
}

func TestService_QueryConferences(t *testing.T) {
	s, _, mn := newServiceWithMocks(t, 0)
	ctx := context.Background()

	mn.EXPECT().Notify(gomock.Any(), gomock.Any()).Return(nil).Times(3)
	for _, f := range []models.ConferenceForm{
		{Name: "A", City: "London", MaxAttendees: 100},
		{Name: "B", City: "London", MaxAttendees: 10},
		{Name: "C", City: "Paris", MaxAttendees: 50},
	} {
		_, err := s.CreateConference(ctx, owner, f)
		require.NoError(t, err)
	}

	out, err := s.QueryConferences(ctx, alice, models.ConferenceQuery{Filters: []models.Filter{
		{Field: models.FieldCity, Operator: models.OpEQ, Value: "London"},
		{Field: models.FieldMaxAttendees, Operator: models.OpGTEQ, Value: "10"},
	}})
	require.NoError(t, err)
	require.Len(t, out, 2)
	require.Equal(t, "B", out[0].Name)
	require.Equal(t, "A", out[1].Name)
}

func TestService_ConferencesToAttend(t *testing.T) {
	s, _, mn := newServiceWithMocks(t, 0)
	ctx := context.Background()

	_, err := s.ConferencesToAttend(ctx, alice)
	require.ErrorIs(t, err, ErrProfileNotFound)

	c1 := mustConference(t, s, mn, "One", 5)
	c2 := mustConference(t, s, mn, "Two", 5)

	for _, c := range []*models.Conference{c2, c1} {
		res, _ := s.Register(ctx, alice, c.Key.String())
		require.True(t, res.Success)
	}

	out, err := s.ConferencesToAttend(ctx, alice)
	require.NoError(t, err)
	require.Len(t, out, 2)
	require.Equal(t, c2.Key, out[0].Key)
	require.Equal(t, c1.Key, out[1].Key)
}

func TestService_Announcement(t *testing.T) {
	s, _, mn := newServiceWithMocks(t, 0)
	ctx := context.Background()

	a, err := s.Announcement(ctx)
	require.NoError(t, err)
	require.Nil(t, a)

	// Пустой результат — запись не создаётся.
	set, err := s.RefreshAnnouncement(ctx)
	require.NoError(t, err)
	require.False(t, set)

	hot := mustConference(t, s, mn, "Hot", 3)
	_ = mustConference(t, s, mn, "Big", 10)
	full := mustConference(t, s, mn, "Full", 1)

	res, _ := s.Register(ctx, alice, hot.Key.String())
	require.True(t, res.Success)
	res, _ = s.Register(ctx, alice, full.Key.String())
	require.True(t, res.Success)

	set, err = s.RefreshAnnouncement(ctx)
	require.NoError(t, err)
	require.True(t, set)

	a, err = s.Announcement(ctx)
	require.NoError(t, err)
	require.NotNil(t, a)
	require.Equal(t, "Last chance to attend! The following conferences are nearly sold out: Hot", a.Message)
	require.NotContains(t, a.Message, "Big")
	require.NotContains(t, a.Message, "Full")

	// Hot распродана: запрос пуст, устаревший анонс остаётся.
	for _, u := range []*models.User{bob, owner} {
		res, _ = s.Register(ctx, u, hot.Key.String())
		require.True(t, res.Success)
	}

	set, err = s.RefreshAnnouncement(ctx)
	require.NoError(t, err)
	require.False(t, set)

	a, err = s.Announcement(ctx)
	require.NoError(t, err)
	require.Contains(t, a.Message, "Hot")
}

func TestService_Announcement_CacheErrors(t *testing.T) {
	ctrl := gomock.NewController(t)
	mc := mocks.NewMockAnnouncementCache(ctrl)
	st := memory.New(0)
	s := New(st, mc, WithAnnouncementTTL(time.Minute))
	ctx := context.Background()

	mc.EXPECT().Get(gomock.Any(), models.AnnouncementKey).Return("", false, errors.New("redis down"))
	_, err := s.Announcement(ctx)
	require.ErrorIs(t, err, ErrInternal)

	id, err := st.Conferences().AllocateID(ctx, "o")
	require.NoError(t, err)
	c := models.NewConference(models.ConferenceKey{OwnerID: "o", ID: id}, models.ConferenceForm{Name: "Tiny", MaxAttendees: 2})
	_, err = st.Conferences().CreateConference(ctx, c)
	require.NoError(t, err)

	mc.EXPECT().Set(gomock.Any(), models.AnnouncementKey, gomock.Any(), time.Minute).Return(errors.New("redis down"))
	_, err = s.RefreshAnnouncement(ctx)
	require.ErrorIs(t, err, ErrInternal)
}

func TestService_RunAnnouncements(t *testing.T) {
	s, st, _ := newServiceWithMocks(t, 0)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.RunAnnouncements(ctx, 0)
		close(done)
	}()

	id, err := st.Conferences().AllocateID(context.Background(), "o")
	require.NoError(t, err)
	c := models.NewConference(models.ConferenceKey{OwnerID: "o", ID: id}, models.ConferenceForm{Name: "Soon", MaxAttendees: 1})
	_, err = st.Conferences().CreateConference(context.Background(), c)
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		s.TriggerRefresh()
		a, err := s.Announcement(context.Background())
		return err == nil && a != nil
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("RunAnnouncements did not stop")
	}
}

func TestRegistrationResult_Err(t *testing.T) {
	cases := map[models.RegistrationOutcome]error{
		models.OutcomeRegistered:         nil,
		models.OutcomeUnregistered:       nil,
		models.OutcomeConferenceNotFound: ErrConferenceNotFound,
		models.OutcomeProfileNotFound:    ErrProfileNotFound,
		models.OutcomeAlreadyRegistered:  ErrAlreadyRegistered,
		models.OutcomeNoSeatsAvailable:   ErrNoSeatsAvailable,
		models.OutcomeNotRegistered:      ErrNotRegistered,
		models.OutcomeFailed:             ErrRegistrationFailed,
	}

	for outcome, want := range cases {
		res := newResult(outcome, "k")
		require.Equal(t, outcome.Success(), res.Success)
		if want == nil {
			require.NoError(t, res.Err())
			continue
		}
		require.ErrorIs(t, res.Err(), want)
	}
}
