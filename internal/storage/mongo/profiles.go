package mongo

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	mongodriver "go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/pribylovaa/go-conference-central/internal/models"
	"github.com/pribylovaa/go-conference-central/internal/storage"
)

// profileDoc — BSON-представление профиля; _id = user_id.
type profileDoc struct {
	UserID         string   `bson:"_id"`
	DisplayName    string   `bson:"display_name"`
	MainEmail      string   `bson:"main_email"`
	TeeShirtSize   int32    `bson:"tee_shirt_size"`
	ConferenceKeys []string `bson:"conference_keys"`
}

func toProfileDoc(p *models.Profile) profileDoc {
	keys := p.ConferenceKeysToAttend
	if keys == nil {
		keys = []string{}
	}

	return profileDoc{
		UserID:         p.UserID,
		DisplayName:    p.DisplayName,
		MainEmail:      p.MainEmail,
		TeeShirtSize:   int32(p.TeeShirtSize),
		ConferenceKeys: keys,
	}
}

func (d profileDoc) model() *models.Profile {
	keys := d.ConferenceKeys
	if keys == nil {
		keys = []string{}
	}

	return &models.Profile{
		UserID:                 d.UserID,
		DisplayName:            d.DisplayName,
		MainEmail:              d.MainEmail,
		TeeShirtSize:           models.TeeShirtSize(d.TeeShirtSize),
		ConferenceKeysToAttend: keys,
	}
}

// ProfileByID возвращает профиль по user_id.
func (m *Mongo) ProfileByID(ctx context.Context, userID string) (*models.Profile, error) {
	const op = "storage/mongo/profiles/ProfileByID"

	var doc profileDoc
	if err := m.profiles.FindOne(ctx, bson.D{{Key: "_id", Value: userID}}).Decode(&doc); err != nil {
		if errors.Is(err, mongodriver.ErrNoDocuments) {
			return nil, fmt.Errorf("%s: %w", op, storage.ErrProfileNotFound)
		}

		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return doc.model(), nil
}

// SaveProfile — upsert документа целиком по _id.
func (m *Mongo) SaveProfile(ctx context.Context, profile *models.Profile) (*models.Profile, error) {
	const op = "storage/mongo/profiles/SaveProfile"

	doc := toProfileDoc(profile)
	_, err := m.profiles.ReplaceOne(ctx,
		bson.D{{Key: "_id", Value: doc.UserID}},
		doc,
		options.Replace().SetUpsert(true),
	)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return doc.model(), nil
}
