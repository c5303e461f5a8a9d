package memory

import (
	"context"
	"fmt"

	"github.com/pribylovaa/go-conference-central/internal/models"
	"github.com/pribylovaa/go-conference-central/internal/storage"
)

// ProfileByID возвращает копию профиля; в транзакции фиксирует прочитанную версию.
func (r *repos) ProfileByID(ctx context.Context, userID string) (*models.Profile, error) {
	const op = "storage/memory/profiles/ProfileByID"

	if r.tx != nil {
		if p, ok := r.tx.profileWrites[userID]; ok {
			return p.Clone(), nil
		}
	}

	r.s.mu.RLock()
	rec, ok := r.s.profiles[userID]
	r.s.mu.RUnlock()

	if r.tx != nil {
		if _, seen := r.tx.profileReads[userID]; !seen {
			r.tx.profileReads[userID] = rec.version
		}
	}

	if !ok {
		return nil, fmt.Errorf("%s: %w", op, storage.ErrProfileNotFound)
	}

	return rec.profile.Clone(), nil
}

// SaveProfile — upsert по user_id.
func (r *repos) SaveProfile(ctx context.Context, profile *models.Profile) (*models.Profile, error) {
	if r.tx != nil {
		if _, seen := r.tx.profileReads[profile.UserID]; !seen {
			r.s.mu.RLock()
			r.tx.profileReads[profile.UserID] = r.s.profiles[profile.UserID].version
			r.s.mu.RUnlock()
		}
		r.tx.profileWrites[profile.UserID] = profile.Clone()

		return profile.Clone(), nil
	}

	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	prev := r.s.profiles[profile.UserID]
	r.s.profiles[profile.UserID] = profileRecord{profile: profile.Clone(), version: prev.version + 1}

	return profile.Clone(), nil
}
