package mongodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/mimoto-id/mimoto/domain"
	"github.com/mimoto-id/mimoto/internal/auth"
	"github.com/mimoto-id/mimoto/internal/interaction"
)

// UserRepository stores local accounts and implements the identity store the
// interaction flows verify and provision against.
type UserRepository struct {
	users  *mongo.Collection
	hasher auth.PasswordHasher
}

// NewUserRepository creates the repository and ensures its indexes.
func NewUserRepository(ctx context.Context, db *mongo.Database, hasher auth.PasswordHasher) (*UserRepository, error) {
	repo := &UserRepository{
		users:  db.Collection(UsersCollection),
		hasher: hasher,
	}
	if err := repo.createIndexes(ctx); err != nil {
		return nil, err
	}
	return repo, nil
}

func (r *UserRepository) createIndexes(ctx context.Context) error {
	_, err := r.users.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "username", Value: 1}},
			Options: options.Index().
				SetUnique(true).
				SetCollation(&options.Collation{Locale: "en", Strength: 2}),
		},
		{
			Keys: bson.D{
				{Key: "external_logins.provider", Value: 1},
				{Key: "external_logins.provider_key", Value: 1},
			},
			Options: options.Index().
				SetUnique(true).
				SetPartialFilterExpression(bson.M{"external_logins": bson.M{"$exists": true}}),
		},
	})
	if err != nil {
		return fmt.Errorf("failed to create user indexes: %w", err)
	}
	return nil
}

// VerifyPassword checks a username/password pair. Both an unknown username
// and a wrong password surface as domain.ErrInvalidCredentials.
func (r *UserRepository) VerifyPassword(ctx context.Context, username, password string) (*domain.LocalUser, error) {
	var user domain.LocalUser
	err := r.users.FindOne(ctx, bson.M{"username": username}).Decode(&user)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, domain.ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	if user.PasswordHash == "" {
		// Accounts provisioned from an external login have no password.
		return nil, domain.ErrInvalidCredentials
	}
	if err := r.hasher.Verify(user.PasswordHash, password); err != nil {
		if errors.Is(err, domain.ErrInvalidCredentials) {
			return nil, domain.ErrInvalidCredentials
		}
		return nil, err
	}

	now := time.Now().UTC()
	_, err = r.users.UpdateOne(ctx,
		bson.M{"_id": user.ID},
		bson.M{"$set": bson.M{"last_login_at": now, "updated_at": now}})
	if err != nil {
		return nil, err
	}
	user.LastLoginAt = &now
	return &user, nil
}

// FindByExternalLogin looks up the account bound to an external identity.
func (r *UserRepository) FindByExternalLogin(ctx context.Context, provider, providerKey string) (*domain.LocalUser, error) {
	var user domain.LocalUser
	err := r.users.FindOne(ctx, bson.M{"external_logins": bson.M{
		"$elemMatch": bson.M{"provider": provider, "provider_key": providerKey},
	}}).Decode(&user)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, domain.ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// Create inserts a new account.
func (r *UserRepository) Create(ctx context.Context, user *domain.LocalUser) error {
	now := time.Now().UTC()
	user.CreatedAt = now
	user.UpdatedAt = now
	if _, err := r.users.InsertOne(ctx, user); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("username %q already exists", user.Username)
		}
		return err
	}
	return nil
}

// AddExternalLogin binds an external identity to an existing account.
func (r *UserRepository) AddExternalLogin(ctx context.Context, userID, provider, providerKey string) error {
	res, err := r.users.UpdateOne(ctx,
		bson.M{"_id": userID},
		bson.M{
			"$addToSet": bson.M{"external_logins": domain.ExternalLogin{
				Provider:    provider,
				ProviderKey: providerKey,
			}},
			"$set": bson.M{"updated_at": time.Now().UTC()},
		})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

// AddClaims appends claims to an account.
func (r *UserRepository) AddClaims(ctx context.Context, userID string, claims []domain.Claim) error {
	if len(claims) == 0 {
		return nil
	}
	res, err := r.users.UpdateOne(ctx,
		bson.M{"_id": userID},
		bson.M{
			"$push": bson.M{"claims": bson.M{"$each": claims}},
			"$set":  bson.M{"updated_at": time.Now().UTC()},
		})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

var _ interaction.IdentityStore = (*UserRepository)(nil)
