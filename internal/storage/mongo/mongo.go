package mongo

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	mongodriver "go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readconcern"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.mongodb.org/mongo-driver/mongo/writeconcern"
	"go.mongodb.org/mongo-driver/x/mongo/driver"

	"github.com/pribylovaa/go-conference-central/internal/metrics"
	"github.com/pribylovaa/go-conference-central/internal/storage"
)

const (
	profilesCollection    = "profiles"
	conferencesCollection = "conferences"
	countersCollection    = "conference_counters"
	defaultDBName         = "conference"

	// DefaultMaxAttempts — число попыток транзакции по умолчанию.
	DefaultMaxAttempts = 10

	// maxCommitAttempts ограничивает повтор коммита при UnknownTransactionCommitResult.
	maxCommitAttempts = 3
)

// Mongo — адаптер хранилища на MongoDB.
// Транзакции требуют replica set: снимок на чтение, majority на запись;
// конфликт записи (TransientTransactionError) перезапускает транзакцию целиком.
type Mongo struct {
	client      *mongodriver.Client
	db          *mongodriver.Database
	profiles    *mongodriver.Collection
	conferences *mongodriver.Collection
	counters    *mongodriver.Collection
	maxAttempts int
}

// New подключается к MongoDB, проверяет соединение, подготавливает коллекции и индексы.
func New(ctx context.Context, uri string, maxAttempts int) (*Mongo, error) {
	if uri == "" {
		return nil, fmt.Errorf("mongo: empty uri")
	}

	cli, err := mongodriver.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("mongo connect: %w", err)
	}

	if err := cli.Ping(ctx, readpref.Primary()); err != nil {
		_ = cli.Disconnect(context.Background())
		return nil, fmt.Errorf("mongo ping: %w", err)
	}

	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}

	db := cli.Database(databaseFromURI(uri))
	m := &Mongo{
		client:      cli,
		db:          db,
		profiles:    db.Collection(profilesCollection),
		conferences: db.Collection(conferencesCollection),
		counters:    db.Collection(countersCollection),
		maxAttempts: maxAttempts,
	}

	if err := m.ensureIndexes(ctx); err != nil {
		m.Close()
		return nil, err
	}

	return m, nil
}

// Close отключает клиента.
func (m *Mongo) Close() {
	_ = m.client.Disconnect(context.Background())
}

// ensureIndexes создаёт индексы под запросы конференций и поиск профиля по email.
// Коллекции создаются явно: внутри транзакции MongoDB не создаёт их неявно.
func (m *Mongo) ensureIndexes(ctx context.Context) error {
	for _, name := range []string{profilesCollection, conferencesCollection, countersCollection} {
		err := m.db.CreateCollection(ctx, name)
		var cmdErr mongodriver.CommandError
		if err != nil && !(errors.As(err, &cmdErr) && cmdErr.Name == "NamespaceExists") {
			return fmt.Errorf("mongo create collection %s: %w", name, err)
		}
	}

	conferenceIndexes := []mongodriver.IndexModel{
		{
			Keys:    bson.D{{Key: "owner_id", Value: 1}, {Key: "name", Value: 1}},
			Options: options.Index().SetName("owner_name"),
		},
		{Keys: bson.D{{Key: "city", Value: 1}}, Options: options.Index().SetName("city")},
		{Keys: bson.D{{Key: "topics", Value: 1}}, Options: options.Index().SetName("topics")},
		{Keys: bson.D{{Key: "month", Value: 1}}, Options: options.Index().SetName("month")},
		{Keys: bson.D{{Key: "max_attendees", Value: 1}}, Options: options.Index().SetName("max_attendees")},
		{Keys: bson.D{{Key: "seats_available", Value: 1}}, Options: options.Index().SetName("seats_available")},
	}

	if _, err := m.conferences.Indexes().CreateMany(ctx, conferenceIndexes); err != nil {
		return fmt.Errorf("mongo ensure indexes: %w", err)
	}

	_, err := m.profiles.Indexes().CreateOne(ctx, mongodriver.IndexModel{
		Keys:    bson.D{{Key: "main_email", Value: 1}},
		Options: options.Index().SetName("main_email"),
	})
	if err != nil {
		return fmt.Errorf("mongo ensure indexes: %w", err)
	}

	return nil
}

// Profiles возвращает репозиторий профилей.
func (m *Mongo) Profiles() storage.ProfileRepository { return m }

// Conferences возвращает репозиторий конференций.
func (m *Mongo) Conferences() storage.ConferenceRepository { return m }

// WithTx выполняет fn в транзакции сессии.
// Репозитории общие: принадлежность к транзакции задаёт session context,
// который fn получает первым аргументом.
func (m *Mongo) WithTx(ctx context.Context, fn storage.TxFunc) error {
	const op = "storage/mongo/WithTx"

	sess, err := m.client.StartSession()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	defer sess.EndSession(context.Background())

	for attempt := 1; attempt <= m.maxAttempts; attempt++ {
		err = m.runTx(ctx, sess, fn)
		if err == nil || !hasLabel(err, driver.TransientTransactionError) {
			return err
		}

		metrics.TxRetries.WithLabelValues("mongo").Inc()

		if ctxErr := ctx.Err(); ctxErr != nil {
			return fmt.Errorf("%s: %w", op, ctxErr)
		}
	}

	return fmt.Errorf("%s: %d attempts: %w (last: %v)", op, m.maxAttempts, storage.ErrTxConflict, err)
}

func (m *Mongo) runTx(ctx context.Context, sess mongodriver.Session, fn storage.TxFunc) (err error) {
	opts := options.Transaction().
		SetReadConcern(readconcern.Snapshot()).
		SetWriteConcern(writeconcern.Majority())

	if err := sess.StartTransaction(opts); err != nil {
		return err
	}

	sc := mongodriver.NewSessionContext(ctx, sess)

	defer func() {
		if p := recover(); p != nil {
			_ = sess.AbortTransaction(context.Background())
			panic(p)
		}
	}()

	if err := fn(sc, m); err != nil {
		_ = sess.AbortTransaction(context.Background())
		return err
	}

	for i := 0; i < maxCommitAttempts; i++ {
		err = sess.CommitTransaction(sc)
		if err == nil || !hasLabel(err, driver.UnknownTransactionCommitResult) {
			return err
		}
	}

	return err
}

// hasLabel проверяет метку ошибки сервера (TransientTransactionError и т.п.).
func hasLabel(err error, label string) bool {
	var le mongodriver.LabeledError
	return errors.As(err, &le) && le.HasErrorLabel(label)
}

// databaseFromURI извлекает имя базы данных из URI-пути mongodb.
// Если оно отсутствует или не поддается расшифровке, возвращает значение по умолчанию.
func databaseFromURI(uri string) string {
	u, err := url.Parse(uri)
	if err == nil {
		if name := strings.Trim(u.Path, "/"); name != "" {
			return name
		}
	}
	return defaultDBName
}

// Проверка на соответствие интерфейсам storage.
var (
	_ storage.Store                = (*Mongo)(nil)
	_ storage.ProfileRepository    = (*Mongo)(nil)
	_ storage.ConferenceRepository = (*Mongo)(nil)
)
