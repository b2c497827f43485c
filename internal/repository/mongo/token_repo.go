package mongo

import (
	"context"
	"errors"
	"time"

	"trainmate/api/internal/domain"
	"trainmate/api/internal/repository"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const revokedTokenCollectionName = "revoked_tokens"

// mongoTokenRepository implements the refresh token blacklist on MongoDB.
type mongoTokenRepository struct {
	collection *mongo.Collection
}

// NewMongoTokenRepository creates a new instance of mongoTokenRepository.
func NewMongoTokenRepository(db *mongo.Database) repository.TokenRepository {
	return &mongoTokenRepository{
		collection: db.Collection(revokedTokenCollectionName),
	}
}

// Revoke records the JTI. Revoking the same token twice is not an error.
func (r *mongoTokenRepository) Revoke(ctx context.Context, token *domain.RevokedToken) error {
	if token.JTI == "" {
		return errors.New("token JTI is required")
	}

	token.ID = primitive.NewObjectID()
	if token.RevokedAt.IsZero() {
		token.RevokedAt = time.Now().UTC()
	}

	_, err := r.collection.InsertOne(ctx, token)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil
		}
		return err
	}
	return nil
}

// IsRevoked reports whether the JTI has been blacklisted.
func (r *mongoTokenRepository) IsRevoked(ctx context.Context, jti string) (bool, error) {
	err := r.collection.FindOne(ctx, bson.M{"jti": jti}).Err()
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// EnsureTokenIndexes creates the JTI uniqueness and TTL indexes. The TTL
// index reaps blacklist entries once the underlying token has expired.
func EnsureTokenIndexes(ctx context.Context, collection *mongo.Collection) {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "jti", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "expiresAt", Value: 1}},
			Options: options.Index().SetExpireAfterSeconds(0),
		},
	}

	_, _ = collection.Indexes().CreateMany(ctx, indexes)
}
