package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	mongodriver "go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/pribylovaa/go-conference-central/internal/models"
	"github.com/pribylovaa/go-conference-central/internal/storage"
)

// conferenceDoc — BSON-представление конференции; _id = websafe-ключ.
// MongoDB хранит DateTime с точностью до миллисекунд.
type conferenceDoc struct {
	Key             string     `bson:"_id"`
	OwnerID         string     `bson:"owner_id"`
	ConfID          int64      `bson:"conf_id"`
	Name            string     `bson:"name"`
	Description     string     `bson:"description"`
	City            string     `bson:"city"`
	Topics          []string   `bson:"topics"`
	StartDate       *time.Time `bson:"start_date,omitempty"`
	EndDate         *time.Time `bson:"end_date,omitempty"`
	Month           int        `bson:"month"`
	MaxAttendees    int        `bson:"max_attendees"`
	SeatsAvailable  int        `bson:"seats_available"`
	OrganizerUserID string     `bson:"organizer_user_id"`
}

// counterDoc — последовательность id конференций владельца.
type counterDoc struct {
	OwnerID string `bson:"_id"`
	Seq     int64  `bson:"seq"`
}

// fieldNames — имена полей документа для фильтрации/сортировки.
var fieldNames = map[models.Field]string{
	models.FieldName:           "name",
	models.FieldCity:           "city",
	models.FieldTopic:          "topics",
	models.FieldMonth:          "month",
	models.FieldMaxAttendees:   "max_attendees",
	models.FieldSeatsAvailable: "seats_available",
}

var bsonOperators = map[models.Operator]string{
	models.OpEQ:   "$eq",
	models.OpNE:   "$ne",
	models.OpLT:   "$lt",
	models.OpLTEQ: "$lte",
	models.OpGT:   "$gt",
	models.OpGTEQ: "$gte",
}

func toMS(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	v := t.UTC().Truncate(time.Millisecond)
	return &v
}

func toConferenceDoc(c *models.Conference) conferenceDoc {
	topics := c.Topics
	if topics == nil {
		topics = []string{}
	}

	return conferenceDoc{
		Key:             c.Key.String(),
		OwnerID:         c.Key.OwnerID,
		ConfID:          c.Key.ID,
		Name:            c.Name,
		Description:     c.Description,
		City:            c.City,
		Topics:          topics,
		StartDate:       toMS(c.StartDate),
		EndDate:         toMS(c.EndDate),
		Month:           c.Month,
		MaxAttendees:    c.MaxAttendees,
		SeatsAvailable:  c.SeatsAvailable,
		OrganizerUserID: c.OrganizerUserID,
	}
}

func (d conferenceDoc) model() *models.Conference {
	c := &models.Conference{
		Key:             models.ConferenceKey{OwnerID: d.OwnerID, ID: d.ConfID},
		Name:            d.Name,
		Description:     d.Description,
		City:            d.City,
		Topics:          d.Topics,
		Month:           d.Month,
		MaxAttendees:    d.MaxAttendees,
		SeatsAvailable:  d.SeatsAvailable,
		OrganizerUserID: d.OrganizerUserID,
	}
	if c.Topics == nil {
		c.Topics = []string{}
	}
	if d.StartDate != nil {
		c.StartDate = d.StartDate.UTC()
	}
	if d.EndDate != nil {
		c.EndDate = d.EndDate.UTC()
	}

	return c
}

// AllocateID атомарно инкрементирует счётчик владельца (upsert).
func (m *Mongo) AllocateID(ctx context.Context, ownerID string) (int64, error) {
	const op = "storage/mongo/conferences/AllocateID"

	var doc counterDoc
	err := m.counters.FindOneAndUpdate(ctx,
		bson.D{{Key: "_id", Value: ownerID}},
		bson.D{{Key: "$inc", Value: bson.D{{Key: "seq", Value: int64(1)}}}},
		options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After),
	).Decode(&doc)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	return doc.Seq, nil
}

// CreateConference вставляет документ; дубль _id даёт ErrAlreadyExists.
func (m *Mongo) CreateConference(ctx context.Context, conference *models.Conference) (*models.Conference, error) {
	const op = "storage/mongo/conferences/CreateConference"

	doc := toConferenceDoc(conference)
	if _, err := m.conferences.InsertOne(ctx, doc); err != nil {
		if mongodriver.IsDuplicateKeyError(err) {
			return nil, fmt.Errorf("%s: %w", op, storage.ErrAlreadyExists)
		}

		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return doc.model(), nil
}

// ConferenceByKey возвращает конференцию по websafe-ключу.
func (m *Mongo) ConferenceByKey(ctx context.Context, key models.ConferenceKey) (*models.Conference, error) {
	const op = "storage/mongo/conferences/ConferenceByKey"

	var doc conferenceDoc
	if err := m.conferences.FindOne(ctx, bson.D{{Key: "_id", Value: key.String()}}).Decode(&doc); err != nil {
		if errors.Is(err, mongodriver.ErrNoDocuments) {
			return nil, fmt.Errorf("%s: %w", op, storage.ErrConferenceNotFound)
		}

		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return doc.model(), nil
}

// SaveConference перезаписывает изменяемые поля; ключ и владелец неизменны.
func (m *Mongo) SaveConference(ctx context.Context, conference *models.Conference) (*models.Conference, error) {
	const op = "storage/mongo/conferences/SaveConference"

	doc := toConferenceDoc(conference)
	set := bson.D{
		{Key: "name", Value: doc.Name},
		{Key: "description", Value: doc.Description},
		{Key: "city", Value: doc.City},
		{Key: "topics", Value: doc.Topics},
		{Key: "start_date", Value: doc.StartDate},
		{Key: "end_date", Value: doc.EndDate},
		{Key: "month", Value: doc.Month},
		{Key: "max_attendees", Value: doc.MaxAttendees},
		{Key: "seats_available", Value: doc.SeatsAvailable},
	}

	res, err := m.conferences.UpdateByID(ctx, doc.Key, bson.D{{Key: "$set", Value: set}})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if res.MatchedCount == 0 {
		return nil, fmt.Errorf("%s: %w", op, storage.ErrConferenceNotFound)
	}

	return doc.model(), nil
}

// ConferencesByOwner — конференции владельца по имени.
func (m *Mongo) ConferencesByOwner(ctx context.Context, ownerID string) ([]*models.Conference, error) {
	const op = "storage/mongo/conferences/ConferencesByOwner"

	out, err := m.find(ctx, bson.D{{Key: "owner_id", Value: ownerID}}, sortBy("name"))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return out, nil
}

// ConferencesByKeys возвращает найденные конференции в порядке входных ключей.
func (m *Mongo) ConferencesByKeys(ctx context.Context, keys []models.ConferenceKey) ([]*models.Conference, error) {
	const op = "storage/mongo/conferences/ConferencesByKeys"

	if len(keys) == 0 {
		return []*models.Conference{}, nil
	}

	ids := make([]string, 0, len(keys))
	for _, k := range keys {
		ids = append(ids, k.String())
	}

	found, err := m.find(ctx, bson.D{{Key: "_id", Value: bson.D{{Key: "$in", Value: ids}}}}, nil)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	byKey := make(map[string]*models.Conference, len(found))
	for _, c := range found {
		byKey[c.Key.String()] = c
	}

	out := make([]*models.Conference, 0, len(found))
	for _, id := range ids {
		if c, ok := byKey[id]; ok {
			out = append(out, c)
			delete(byKey, id)
		}
	}

	return out, nil
}

// QueryConferences переводит нормализованный запрос в BSON-фильтр.
// Несколько условий на одно поле сливаются в один поддокумент ({$gt, $lt}).
func (m *Mongo) QueryConferences(ctx context.Context, query models.ConferenceQuery) ([]*models.Conference, error) {
	const op = "storage/mongo/conferences/QueryConferences"

	filter, err := buildFilter(query)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	out, err := m.find(ctx, filter, sortBy(fieldNames[query.OrderBy]))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return out, nil
}

func buildFilter(query models.ConferenceQuery) (bson.D, error) {
	filter := bson.D{}
	index := make(map[string]int)

	for _, f := range query.Filters {
		name, ok := fieldNames[f.Field]
		if !ok {
			return nil, fmt.Errorf("%w: field %q", models.ErrInvalidFilter, f.Field)
		}

		operator, ok := bsonOperators[f.Operator]
		if !ok {
			return nil, fmt.Errorf("%w: operator %q", models.ErrInvalidFilter, f.Operator)
		}

		var value any = f.Value
		if f.Field.Numeric() {
			value = f.Number
		}

		cond := bson.E{Key: operator, Value: value}
		if i, ok := index[name]; ok {
			filter[i].Value = append(filter[i].Value.(bson.D), cond)
			continue
		}

		index[name] = len(filter)
		filter = append(filter, bson.E{Key: name, Value: bson.D{cond}})
	}

	return filter, nil
}

// sortBy — сортировка по полю с детерминированными tie-break (name, owner, id).
func sortBy(field string) bson.D {
	sort := bson.D{}
	if field != "" && field != "name" {
		sort = append(sort, bson.E{Key: field, Value: 1})
	}

	return append(sort,
		bson.E{Key: "name", Value: 1},
		bson.E{Key: "owner_id", Value: 1},
		bson.E{Key: "conf_id", Value: 1},
	)
}

func (m *Mongo) find(ctx context.Context, filter bson.D, sort bson.D) ([]*models.Conference, error) {
	opts := options.Find()
	if sort != nil {
		opts.SetSort(sort)
	}

	cur, err := m.conferences.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var docs []conferenceDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}

	out := make([]*models.Conference, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.model())
	}

	return out, nil
}
