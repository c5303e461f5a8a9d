package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/pribylovaa/go-conference-central/internal/models"
	"github.com/pribylovaa/go-conference-central/internal/storage"
)

// profileColumns — единый список колонок profiles для SELECT/RETURNING.
const profileColumns = `user_id, display_name, main_email, tee_shirt_size, conference_keys`

// scanProfile сканирует строку профиля в доменную модель.
func scanProfile(row pgx.Row) (*models.Profile, error) {
	var p models.Profile
	var size int16

	if err := row.Scan(&p.UserID, &p.DisplayName, &p.MainEmail, &size, &p.ConferenceKeysToAttend); err != nil {
		return nil, err
	}
	p.TeeShirtSize = models.TeeShirtSize(size)

	return &p, nil
}

// ProfileByID возвращает профиль по user_id.
// Внутри транзакции сначала берётся advisory-блокировка на user_id:
// она сериализует транзакции одного пользователя, даже если строки ещё нет.
func (r *repos) ProfileByID(ctx context.Context, userID string) (*models.Profile, error) {
	const op = "storage/postgres/profiles/ProfileByID"

	q := `SELECT ` + profileColumns + ` FROM profiles WHERE user_id = $1`

	if r.locking {
		if _, err := r.db.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtextextended($1, 0))`, userID); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		q += ` FOR UPDATE`
	}

	p, err := scanProfile(r.db.QueryRow(ctx, q, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, storage.ErrProfileNotFound)
		}

		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return p, nil
}

// SaveProfile — upsert по user_id; всегда сдвигает updated_at.
func (r *repos) SaveProfile(ctx context.Context, profile *models.Profile) (*models.Profile, error) {
	const op = "storage/postgres/profiles/SaveProfile"

	keys := profile.ConferenceKeysToAttend
	if keys == nil {
		keys = []string{}
	}

	q := `
	INSERT INTO profiles (user_id, display_name, main_email, tee_shirt_size, conference_keys)
	VALUES ($1, $2, $3, $4, $5)
	ON CONFLICT (user_id) DO UPDATE SET
		display_name = EXCLUDED.display_name,
		main_email = EXCLUDED.main_email,
		tee_shirt_size = EXCLUDED.tee_shirt_size,
		conference_keys = EXCLUDED.conference_keys,
		updated_at = now()
	RETURNING ` + profileColumns

	p, err := scanProfile(r.db.QueryRow(ctx, q,
		profile.UserID,
		profile.DisplayName,
		profile.MainEmail,
		int16(profile.TeeShirtSize),
		keys,
	))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return p, nil
}
