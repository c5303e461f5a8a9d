package memory

import (
	"context"
	"fmt"
	"slices"

	"github.com/pribylovaa/go-conference-central/internal/models"
	"github.com/pribylovaa/go-conference-central/internal/storage"
)

// AllocateID выдаёт следующий номер в пространстве владельца.
// Не транзакционен: выданный id не переиспользуется даже после отката.
func (r *repos) AllocateID(ctx context.Context, ownerID string) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	r.s.sequences[ownerID]++

	return r.s.sequences[ownerID], nil
}

// CreateConference вставляет конференцию; дубль ключа -> ErrAlreadyExists.
func (r *repos) CreateConference(ctx context.Context, conference *models.Conference) (*models.Conference, error) {
	const op = "storage/memory/conferences/CreateConference"

	key := conference.Key

	if r.tx != nil {
		if _, staged := r.tx.conferenceWrites[key]; staged {
			return nil, fmt.Errorf("%s: %w", op, storage.ErrAlreadyExists)
		}

		r.s.mu.RLock()
		rec, exists := r.s.conferences[key]
		r.s.mu.RUnlock()

		if exists {
			return nil, fmt.Errorf("%s: %w", op, storage.ErrAlreadyExists)
		}
		if _, seen := r.tx.conferenceReads[key]; !seen {
			r.tx.conferenceReads[key] = rec.version
		}
		r.tx.conferenceWrites[key] = conference.Clone()

		return conference.Clone(), nil
	}

	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, exists := r.s.conferences[key]; exists {
		return nil, fmt.Errorf("%s: %w", op, storage.ErrAlreadyExists)
	}
	r.s.conferences[key] = conferenceRecord{conference: conference.Clone(), version: 1}

	return conference.Clone(), nil
}

// ConferenceByKey возвращает копию конференции; в транзакции фиксирует версию.
func (r *repos) ConferenceByKey(ctx context.Context, key models.ConferenceKey) (*models.Conference, error) {
	const op = "storage/memory/conferences/ConferenceByKey"

	if r.tx != nil {
		if c, ok := r.tx.conferenceWrites[key]; ok {
			return c.Clone(), nil
		}
	}

	r.s.mu.RLock()
	rec, ok := r.s.conferences[key]
	r.s.mu.RUnlock()

	if r.tx != nil {
		if _, seen := r.tx.conferenceReads[key]; !seen {
			r.tx.conferenceReads[key] = rec.version
		}
	}

	if !ok {
		return nil, fmt.Errorf("%s: %w", op, storage.ErrConferenceNotFound)
	}

	return rec.conference.Clone(), nil
}

// SaveConference перезаписывает существующую конференцию.
func (r *repos) SaveConference(ctx context.Context, conference *models.Conference) (*models.Conference, error) {
	const op = "storage/memory/conferences/SaveConference"

	key := conference.Key

	if r.tx != nil {
		if _, err := r.ConferenceByKey(ctx, key); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		r.tx.conferenceWrites[key] = conference.Clone()

		return conference.Clone(), nil
	}

	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	prev, ok := r.s.conferences[key]
	if !ok {
		return nil, fmt.Errorf("%s: %w", op, storage.ErrConferenceNotFound)
	}
	r.s.conferences[key] = conferenceRecord{conference: conference.Clone(), version: prev.version + 1}

	return conference.Clone(), nil
}

// ConferencesByOwner — конференции владельца по имени.
func (r *repos) ConferencesByOwner(ctx context.Context, ownerID string) ([]*models.Conference, error) {
	q := models.ConferenceQuery{OrderBy: models.FieldName}

	return r.scan(q, func(c *models.Conference) bool { return c.Key.OwnerID == ownerID }), nil
}

// ConferencesByKeys — конференции по ключам в порядке ключей; отсутствующие пропускаются.
func (r *repos) ConferencesByKeys(ctx context.Context, keys []models.ConferenceKey) ([]*models.Conference, error) {
	out := make([]*models.Conference, 0, len(keys))
	for _, key := range keys {
		c, err := r.ConferenceByKey(ctx, key)
		if err != nil {
			continue
		}
		out = append(out, c)
	}

	return out, nil
}

// QueryConferences фильтрует и сортирует конференции по нормализованному запросу.
func (r *repos) QueryConferences(ctx context.Context, query models.ConferenceQuery) ([]*models.Conference, error) {
	return r.scan(query, query.Matches), nil
}

// scan обходит закоммиченные конференции (с наложением записей транзакции).
// Запросы не фиксируют версии: транзакционная защита — только для чтений по ключу.
func (r *repos) scan(q models.ConferenceQuery, match func(*models.Conference) bool) []*models.Conference {
	r.s.mu.RLock()
	out := make([]*models.Conference, 0, len(r.s.conferences))
	for key, rec := range r.s.conferences {
		if r.tx != nil {
			if _, staged := r.tx.conferenceWrites[key]; staged {
				continue
			}
		}
		if match(rec.conference) {
			out = append(out, rec.conference.Clone())
		}
	}
	r.s.mu.RUnlock()

	if r.tx != nil {
		for _, c := range r.tx.conferenceWrites {
			if match(c) {
				out = append(out, c.Clone())
			}
		}
	}

	slices.SortFunc(out, q.Compare)

	return out
}
