package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// RevokedToken records a refresh token invalidated by logout. Tokens are
// identified by their JTI claim; a TTL index on ExpiresAt reaps entries
// once the token would have expired on its own anyway.
type RevokedToken struct {
	ID        primitive.ObjectID `bson:"_id,omitempty"`
	JTI       string             `bson:"jti"`
	UserID    primitive.ObjectID `bson:"userId"`
	ExpiresAt time.Time          `bson:"expiresAt"`
	RevokedAt time.Time          `bson:"revokedAt"`
}
