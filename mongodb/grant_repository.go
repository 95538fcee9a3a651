package mongodb

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/mimoto-id/mimoto/domain"
)

// GrantRepository stores remembered consent grants, one document per
// subject/client pair.
type GrantRepository struct {
	grants *mongo.Collection
}

// NewGrantRepository creates the repository and ensures its indexes.
func NewGrantRepository(ctx context.Context, db *mongo.Database) (*GrantRepository, error) {
	repo := &GrantRepository{grants: db.Collection(GrantsCollection)}
	if err := repo.createIndexes(ctx); err != nil {
		return nil, err
	}
	return repo, nil
}

func (r *GrantRepository) createIndexes(ctx context.Context) error {
	_, err := r.grants.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys: bson.D{
				{Key: "subject_id", Value: 1},
				{Key: "client_id", Value: 1},
			},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "expires_at", Value: 1}},
			Options: options.Index().SetExpireAfterSeconds(0),
		},
	})
	if err != nil {
		return fmt.Errorf("failed to create grant indexes: %w", err)
	}
	return nil
}

// Save upserts the grant for its subject/client pair. A renewed consent
// replaces the previous scope set.
func (r *GrantRepository) Save(ctx context.Context, grant *domain.Grant) error {
	if grant.CreatedAt.IsZero() {
		grant.CreatedAt = time.Now().UTC()
	}
	_, err := r.grants.ReplaceOne(ctx,
		bson.M{"subject_id": grant.SubjectID, "client_id": grant.ClientID},
		grant,
		replaceUpsert())
	return err
}

// ListBySubject returns the subject's grants, newest first.
func (r *GrantRepository) ListBySubject(ctx context.Context, subjectID string) ([]domain.Grant, error) {
	cursor, err := r.grants.Find(ctx,
		bson.M{"subject_id": subjectID},
		options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}))
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var grants []domain.Grant
	if err := cursor.All(ctx, &grants); err != nil {
		return nil, err
	}
	return grants, nil
}

// Revoke removes the subject's grant for one client. Revoking an absent
// grant is a no-op.
func (r *GrantRepository) Revoke(ctx context.Context, subjectID, clientID string) error {
	_, err := r.grants.DeleteOne(ctx, bson.M{"subject_id": subjectID, "client_id": clientID})
	return err
}

func replaceUpsert() *options.ReplaceOptionsBuilder {
	return options.Replace().SetUpsert(true)
}
