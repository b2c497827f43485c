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

const profileCollectionName = "profiles"

// mongoProfileRepository implements repository.ProfileRepository using MongoDB.
type mongoProfileRepository struct {
	collection *mongo.Collection
}

// NewMongoProfileRepository creates a new instance of mongoProfileRepository.
func NewMongoProfileRepository(db *mongo.Database) repository.ProfileRepository {
	return &mongoProfileRepository{
		collection: db.Collection(profileCollectionName),
	}
}

// Create inserts a new profile document.
func (r *mongoProfileRepository) Create(ctx context.Context, profile *domain.Profile) (primitive.ObjectID, error) {
	if profile.UserID == primitive.NilObjectID || profile.Role == "" {
		return primitive.NilObjectID, errors.New("profile user ID and role are required")
	}

	profile.ID = primitive.NewObjectID()
	now := time.Now().UTC()
	profile.CreatedAt = now
	profile.UpdatedAt = now

	result, err := r.collection.InsertOne(ctx, profile)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return primitive.NilObjectID, repository.ErrConflict
		}
		return primitive.NilObjectID, err
	}

	insertedID, ok := result.InsertedID.(primitive.ObjectID)
	if !ok {
		return primitive.NilObjectID, errors.New("failed to convert inserted ID")
	}
	return insertedID, nil
}

// GetByUserID retrieves the profile belonging to a user.
func (r *mongoProfileRepository) GetByUserID(ctx context.Context, userID primitive.ObjectID) (*domain.Profile, error) {
	var profile domain.Profile
	err := r.collection.FindOne(ctx, bson.M{"userId": userID}).Decode(&profile)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &profile, nil
}

// Update replaces the mutable profile fields.
func (r *mongoProfileRepository) Update(ctx context.Context, profile *domain.Profile) error {
	update := bson.M{
		"$set": bson.M{
			"age":           profile.Age,
			"heightCm":      profile.HeightCm,
			"weightKg":      profile.WeightKg,
			"bodyFatPct":    profile.BodyFatPct,
			"muscleMassKg":  profile.MuscleMassKg,
			"imageKey":      profile.ImageKey,
			"profileFilled": profile.ProfileFilled,
			"updatedAt":     time.Now().UTC(),
		},
	}

	result, err := r.collection.UpdateOne(ctx, bson.M{"userId": profile.UserID}, update)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// SetAssignedTrainer sets the trainer edge on a member profile. The filter
// only matches an unassigned member profile, so whichever of two concurrent
// assignments commits second sees ErrConflict instead of overwriting.
func (r *mongoProfileRepository) SetAssignedTrainer(ctx context.Context, memberUserID, trainerUserID primitive.ObjectID) error {
	filter := bson.M{
		"userId":            memberUserID,
		"role":              domain.RoleMember,
		"assignedTrainerId": nil,
	}
	update := bson.M{
		"$set": bson.M{
			"assignedTrainerId": trainerUserID,
			"updatedAt":         time.Now().UTC(),
		},
	}

	result, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		// Distinguish "no such member" from "already assigned".
		var existing domain.Profile
		err := r.collection.FindOne(ctx, bson.M{"userId": memberUserID, "role": domain.RoleMember}).Decode(&existing)
		if err != nil {
			if errors.Is(err, mongo.ErrNoDocuments) {
				return repository.ErrNotFound
			}
			return err
		}
		return repository.ErrConflict
	}
	return nil
}

// UnassignedMemberIDs lists user IDs of member profiles with no trainer.
func (r *mongoProfileRepository) UnassignedMemberIDs(ctx context.Context) ([]primitive.ObjectID, error) {
	filter := bson.M{"role": domain.RoleMember, "assignedTrainerId": nil}
	return r.userIDs(ctx, filter)
}

// MemberIDsByTrainer lists user IDs of members assigned to the trainer.
func (r *mongoProfileRepository) MemberIDsByTrainer(ctx context.Context, trainerUserID primitive.ObjectID) ([]primitive.ObjectID, error) {
	filter := bson.M{"role": domain.RoleMember, "assignedTrainerId": trainerUserID}
	return r.userIDs(ctx, filter)
}

func (r *mongoProfileRepository) userIDs(ctx context.Context, filter bson.M) ([]primitive.ObjectID, error) {
	opts := options.Find().SetProjection(bson.M{"userId": 1})
	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var docs []struct {
		UserID primitive.ObjectID `bson:"userId"`
	}
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, err
	}

	ids := make([]primitive.ObjectID, len(docs))
	for i, d := range docs {
		ids[i] = d.UserID
	}
	return ids, nil
}

// ClearTrainer unsets the assignment edge on every member of the trainer.
func (r *mongoProfileRepository) ClearTrainer(ctx context.Context, trainerUserID primitive.ObjectID) error {
	_, err := r.collection.UpdateMany(ctx,
		bson.M{"assignedTrainerId": trainerUserID},
		bson.M{"$set": bson.M{"assignedTrainerId": nil, "updatedAt": time.Now().UTC()}},
	)
	return err
}

// DeleteByUserID removes the profile belonging to a user.
func (r *mongoProfileRepository) DeleteByUserID(ctx context.Context, userID primitive.ObjectID) error {
	_, err := r.collection.DeleteOne(ctx, bson.M{"userId": userID})
	return err
}

// EnsureProfileIndexes creates necessary indexes for the profiles collection.
func EnsureProfileIndexes(ctx context.Context, collection *mongo.Collection) {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "userId", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "assignedTrainerId", Value: 1}},
			Options: options.Index().SetSparse(true),
		},
	}

	_, _ = collection.Indexes().CreateMany(ctx, indexes)
}
