package mongodb

import (
	"context"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/mimoto-id/mimoto/domain"
	"github.com/mimoto-id/mimoto/internal/interaction"
)

// Resource kinds as stored in the resources collection.
const (
	resourceKindIdentity = "identity"
	resourceKindAPI      = "api"
)

// resourceDoc wraps a domain.Resource with its kind for storage.
type resourceDoc struct {
	domain.Resource `bson:",inline"`
	Kind            string `bson:"kind"`
}

// ResourceRepository stores the identity and API resources scope names
// resolve to.
type ResourceRepository struct {
	resources *mongo.Collection
}

func NewResourceRepository(db *mongo.Database) *ResourceRepository {
	return &ResourceRepository{resources: db.Collection(ResourcesCollection)}
}

// FindByScopes resolves the requested scope names. Unknown names are simply
// absent from the result; callers decide whether an empty set is an error.
func (r *ResourceRepository) FindByScopes(ctx context.Context, scopes []string) (*domain.ResourceSet, error) {
	if len(scopes) == 0 {
		return &domain.ResourceSet{}, nil
	}

	cursor, err := r.resources.Find(ctx,
		bson.M{"_id": bson.M{"$in": scopes}},
		options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var docs []resourceDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, err
	}

	set := &domain.ResourceSet{}
	for _, doc := range docs {
		switch doc.Kind {
		case resourceKindIdentity:
			set.Identity = append(set.Identity, doc.Resource)
		case resourceKindAPI:
			set.API = append(set.API, doc.Resource)
		}
	}
	return set, nil
}

// SaveIdentity upserts an identity resource.
func (r *ResourceRepository) SaveIdentity(ctx context.Context, res domain.Resource) error {
	return r.save(ctx, res, resourceKindIdentity)
}

// SaveAPI upserts an API resource.
func (r *ResourceRepository) SaveAPI(ctx context.Context, res domain.Resource) error {
	return r.save(ctx, res, resourceKindAPI)
}

func (r *ResourceRepository) save(ctx context.Context, res domain.Resource, kind string) error {
	_, err := r.resources.ReplaceOne(ctx,
		bson.M{"_id": res.Name},
		resourceDoc{Resource: res, Kind: kind},
		replaceUpsert())
	return err
}

var _ interaction.ResourceRegistry = (*ResourceRepository)(nil)
