package mongodb

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"

	"github.com/mimoto-id/mimoto/domain"
	"github.com/mimoto-id/mimoto/internal/interaction"
)

// ClientRepository stores registered client metadata.
type ClientRepository struct {
	clients *mongo.Collection
}

func NewClientRepository(db *mongo.Database) *ClientRepository {
	return &ClientRepository{clients: db.Collection(ClientsCollection)}
}

// FindByID resolves a client, returning (nil, nil) for unknown IDs.
func (r *ClientRepository) FindByID(ctx context.Context, clientID string) (*domain.Client, error) {
	var client domain.Client
	err := r.clients.FindOne(ctx, bson.M{"_id": clientID}).Decode(&client)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &client, nil
}

// Save upserts a client registration. Used by provisioning tooling, not by
// the interaction flows.
func (r *ClientRepository) Save(ctx context.Context, client *domain.Client) error {
	_, err := r.clients.ReplaceOne(ctx,
		bson.M{"_id": client.ClientID},
		client,
		replaceUpsert())
	return err
}

var _ interaction.ClientRegistry = (*ClientRepository)(nil)
