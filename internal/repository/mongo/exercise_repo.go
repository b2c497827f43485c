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

const exerciseCollectionName = "exercises"

// mongoExerciseRepository implements repository.ExerciseRepository using MongoDB.
type mongoExerciseRepository struct {
	collection *mongo.Collection
}

// NewMongoExerciseRepository creates a new instance of mongoExerciseRepository.
func NewMongoExerciseRepository(db *mongo.Database) repository.ExerciseRepository {
	return &mongoExerciseRepository{
		collection: db.Collection(exerciseCollectionName),
	}
}

// Create inserts a new catalog entry.
func (r *mongoExerciseRepository) Create(ctx context.Context, exercise *domain.Exercise) (primitive.ObjectID, error) {
	if exercise.Name == "" || exercise.BodyPart == "" {
		return primitive.NilObjectID, errors.New("exercise name and body part are required")
	}

	exercise.ID = primitive.NewObjectID()
	now := time.Now().UTC()
	exercise.CreatedAt = now
	exercise.UpdatedAt = now

	result, err := r.collection.InsertOne(ctx, exercise)
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

// GetByID retrieves a catalog entry by ID.
func (r *mongoExerciseRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*domain.Exercise, error) {
	var exercise domain.Exercise
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&exercise)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &exercise, nil
}

// GetOrCreate resolves the entry for (name, bodyPart, equipment), inserting
// the supplied document when absent. Uses findOneAndUpdate with upsert so a
// concurrent first-log of the same exercise cannot create two entries.
func (r *mongoExerciseRepository) GetOrCreate(ctx context.Context, exercise *domain.Exercise) (*domain.Exercise, bool, error) {
	filter := bson.M{
		"exerciseName": exercise.Name,
		"bodyPart":     exercise.BodyPart,
		"equipment":    exercise.Equipment,
	}

	// BSON datetimes carry millisecond precision; truncate so the
	// created check below compares like with like after the round-trip.
	now := time.Now().UTC().Truncate(time.Millisecond)
	update := bson.M{
		"$setOnInsert": bson.M{
			"exerciseName":    exercise.Name,
			"bodyPart":        exercise.BodyPart,
			"equipment":       exercise.Equipment,
			"measurementUnit": exercise.MeasurementUnit,
			"metValue":        exercise.METValue,
			"active":          true,
			"createdAt":       now,
			"updatedAt":       now,
		},
	}

	opts := options.FindOneAndUpdate().
		SetUpsert(true).
		SetReturnDocument(options.After)

	var result domain.Exercise
	if err := r.collection.FindOneAndUpdate(ctx, filter, update, opts).Decode(&result); err != nil {
		return nil, false, err
	}

	created := result.CreatedAt.Equal(now)
	return &result, created, nil
}

// List returns active catalog entries, optionally filtered by body part.
func (r *mongoExerciseRepository) List(ctx context.Context, bodyPart string) ([]domain.Exercise, error) {
	filter := bson.M{"active": true}
	if bodyPart != "" {
		filter["bodyPart"] = bodyPart
	}

	opts := options.Find().SetSort(bson.D{{Key: "exerciseName", Value: 1}})
	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var exercises []domain.Exercise
	if err := cursor.All(ctx, &exercises); err != nil {
		return nil, err
	}
	return exercises, nil
}

// EnsureExerciseIndexes creates necessary indexes for the exercises collection.
func EnsureExerciseIndexes(ctx context.Context, collection *mongo.Collection) {
	indexes := []mongo.IndexModel{
		{
			// Structural key for get-or-create resolution.
			Keys: bson.D{
				{Key: "exerciseName", Value: 1},
				{Key: "bodyPart", Value: 1},
				{Key: "equipment", Value: 1},
			},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "bodyPart", Value: 1}},
			Options: options.Index(),
		},
	}

	_, _ = collection.Indexes().CreateMany(ctx, indexes)
}
