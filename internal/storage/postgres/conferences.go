package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/pribylovaa/go-conference-central/internal/models"
	"github.com/pribylovaa/go-conference-central/internal/storage"
)

// conferenceColumns — единый список колонок conferences для SELECT/RETURNING.
const conferenceColumns = `
owner_id, id, name, description, city, topics, start_date, end_date,
month, max_attendees, seats_available, organizer_user_id
`

// columnByField — колонки для фильтрации/сортировки.
var columnByField = map[models.Field]string{
	models.FieldName:           `name COLLATE "C"`,
	models.FieldCity:           `city COLLATE "C"`,
	models.FieldMonth:          "month",
	models.FieldMaxAttendees:   "max_attendees",
	models.FieldSeatsAvailable: "seats_available",
}

var sqlOperators = map[models.Operator]string{
	models.OpEQ:   "=",
	models.OpNE:   "<>",
	models.OpLT:   "<",
	models.OpLTEQ: "<=",
	models.OpGT:   ">",
	models.OpGTEQ: ">=",
}

// scanConference сканирует строку конференции; NULL-даты превращаются в нулевое время.
func scanConference(row pgx.Row) (*models.Conference, error) {
	var c models.Conference
	var start, end *time.Time

	if err := row.Scan(
		&c.Key.OwnerID,
		&c.Key.ID,
		&c.Name,
		&c.Description,
		&c.City,
		&c.Topics,
		&start,
		&end,
		&c.Month,
		&c.MaxAttendees,
		&c.SeatsAvailable,
		&c.OrganizerUserID,
	); err != nil {
		return nil, err
	}

	if start != nil {
		c.StartDate = start.UTC()
	}
	if end != nil {
		c.EndDate = end.UTC()
	}

	return &c, nil
}

func collectConferences(rows pgx.Rows) ([]*models.Conference, error) {
	defer rows.Close()

	out := make([]*models.Conference, 0)
	for rows.Next() {
		c, err := scanConference(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}

	return out, rows.Err()
}

func nullTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}

	return t.UTC()
}

func nonNilTopics(topics []string) []string {
	if topics == nil {
		return []string{}
	}

	return topics
}

// AllocateID увеличивает счётчик владельца и возвращает новое значение.
func (r *repos) AllocateID(ctx context.Context, ownerID string) (int64, error) {
	const op = "storage/postgres/conferences/AllocateID"

	q := `
	INSERT INTO conference_sequences (owner_id, last_id) VALUES ($1, 1)
	ON CONFLICT (owner_id) DO UPDATE SET last_id = conference_sequences.last_id + 1
	RETURNING last_id`

	var id int64
	if err := r.db.QueryRow(ctx, q, ownerID).Scan(&id); err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	return id, nil
}

// CreateConference вставляет конференцию.
// Ошибки: storage.ErrAlreadyExists при конфликте первичного ключа.
func (r *repos) CreateConference(ctx context.Context, c *models.Conference) (*models.Conference, error) {
	const op = "storage/postgres/conferences/CreateConference"

	q := `
	INSERT INTO conferences (owner_id, id, name, description, city, topics, start_date, end_date,
		month, max_attendees, seats_available, organizer_user_id)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	RETURNING ` + conferenceColumns

	out, err := scanConference(r.db.QueryRow(ctx, q,
		c.Key.OwnerID,
		c.Key.ID,
		c.Name,
		c.Description,
		c.City,
		nonNilTopics(c.Topics),
		nullTime(c.StartDate),
		nullTime(c.EndDate),
		c.Month,
		c.MaxAttendees,
		c.SeatsAvailable,
		c.OrganizerUserID,
	))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return nil, fmt.Errorf("%s: %w", op, storage.ErrAlreadyExists)
		}

		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return out, nil
}

// ConferenceByKey возвращает конференцию; в транзакции строка блокируется FOR UPDATE.
func (r *repos) ConferenceByKey(ctx context.Context, key models.ConferenceKey) (*models.Conference, error) {
	const op = "storage/postgres/conferences/ConferenceByKey"

	q := `SELECT ` + conferenceColumns + ` FROM conferences WHERE owner_id = $1 AND id = $2`
	if r.locking {
		q += ` FOR UPDATE`
	}

	c, err := scanConference(r.db.QueryRow(ctx, q, key.OwnerID, key.ID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, storage.ErrConferenceNotFound)
		}

		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return c, nil
}

// SaveConference перезаписывает изменяемые поля конференции.
func (r *repos) SaveConference(ctx context.Context, c *models.Conference) (*models.Conference, error) {
	const op = "storage/postgres/conferences/SaveConference"

	q := `
	UPDATE conferences SET
		name = $3, description = $4, city = $5, topics = $6, start_date = $7, end_date = $8,
		month = $9, max_attendees = $10, seats_available = $11, updated_at = now()
	WHERE owner_id = $1 AND id = $2
	RETURNING ` + conferenceColumns

	out, err := scanConference(r.db.QueryRow(ctx, q,
		c.Key.OwnerID,
		c.Key.ID,
		c.Name,
		c.Description,
		c.City,
		nonNilTopics(c.Topics),
		nullTime(c.StartDate),
		nullTime(c.EndDate),
		c.Month,
		c.MaxAttendees,
		c.SeatsAvailable,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, storage.ErrConferenceNotFound)
		}

		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return out, nil
}

// ConferencesByOwner — конференции владельца по имени.
func (r *repos) ConferencesByOwner(ctx context.Context, ownerID string) ([]*models.Conference, error) {
	const op = "storage/postgres/conferences/ConferencesByOwner"

	q := `SELECT ` + conferenceColumns + ` FROM conferences WHERE owner_id = $1 ORDER BY name COLLATE "C", id`

	rows, err := r.db.Query(ctx, q, ownerID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	out, err := collectConferences(rows)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return out, nil
}

// ConferencesByKeys — конференции по ключам в порядке ключей.
func (r *repos) ConferencesByKeys(ctx context.Context, keys []models.ConferenceKey) ([]*models.Conference, error) {
	const op = "storage/postgres/conferences/ConferencesByKeys"

	if len(keys) == 0 {
		return []*models.Conference{}, nil
	}

	owners := make([]string, len(keys))
	ids := make([]int64, len(keys))
	for i, k := range keys {
		owners[i] = k.OwnerID
		ids[i] = k.ID
	}

	q := `SELECT ` + conferenceColumns + ` FROM conferences
	WHERE (owner_id, id) IN (SELECT * FROM unnest($1::text[], $2::bigint[]))`

	rows, err := r.db.Query(ctx, q, owners, ids)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	found, err := collectConferences(rows)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	byKey := make(map[models.ConferenceKey]*models.Conference, len(found))
	for _, c := range found {
		byKey[c.Key] = c
	}

	out := make([]*models.Conference, 0, len(found))
	for _, k := range keys {
		if c, ok := byKey[k]; ok {
			out = append(out, c)
		}
	}

	return out, nil
}

// QueryConferences строит WHERE/ORDER BY из нормализованного запроса.
func (r *repos) QueryConferences(ctx context.Context, query models.ConferenceQuery) ([]*models.Conference, error) {
	const op = "storage/postgres/conferences/QueryConferences"

	where, args, err := buildWhere(query.Filters)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	q := `SELECT ` + conferenceColumns + ` FROM conferences`
	if where != "" {
		q += ` WHERE ` + where
	}
	q += ` ORDER BY ` + buildOrder(query.OrderBy)

	rows, err := r.db.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	out, err := collectConferences(rows)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return out, nil
}

func buildWhere(filters []models.Filter) (string, []any, error) {
	conds := make([]string, 0, len(filters))
	args := make([]any, 0, len(filters))

	for _, f := range filters {
		args = append(args, filterValue(f))
		n := len(args)

		if f.Field == models.FieldTopic {
			conds = append(conds, fmt.Sprintf("$%d = ANY(topics)", n))
			continue
		}

		col, ok := columnByField[f.Field]
		sqlOp, opOK := sqlOperators[f.Operator]
		if !ok || !opOK {
			return "", nil, fmt.Errorf("%w: %s %s", models.ErrInvalidFilter, f.Field, f.Operator)
		}
		conds = append(conds, fmt.Sprintf("%s %s $%d", col, sqlOp, n))
	}

	return strings.Join(conds, " AND "), args, nil
}

func filterValue(f models.Filter) any {
	if f.Field.Numeric() {
		return f.Number
	}
	return f.Value
}

// buildOrder — поле сортировки, затем имя и ключ для стабильного порядка.
func buildOrder(field models.Field) string {
	parts := make([]string, 0, 4)
	if field != models.FieldName {
		if col, ok := columnByField[field]; ok {
			parts = append(parts, col)
		}
	}

	return strings.Join(append(parts, `name COLLATE "C"`, `owner_id COLLATE "C"`, "id"), ", ")
}
