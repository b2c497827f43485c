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

const (
	dailyWorkoutCollectionName    = "daily_workouts"
	workoutExerciseCollectionName = "workout_exercises"
	exerciseSetCollectionName     = "exercise_sets"
)

// mongoWorkoutRepository implements repository.WorkoutRepository across the
// three workout collections. Mutating call sequences are expected to run
// inside a TxRunner transaction so roll-up recomputes see a stable snapshot.
type mongoWorkoutRepository struct {
	dailyWorkouts    *mongo.Collection
	workoutExercises *mongo.Collection
	exerciseSets     *mongo.Collection
}

// NewMongoWorkoutRepository creates a new instance of mongoWorkoutRepository.
func NewMongoWorkoutRepository(db *mongo.Database) repository.WorkoutRepository {
	return &mongoWorkoutRepository{
		dailyWorkouts:    db.Collection(dailyWorkoutCollectionName),
		workoutExercises: db.Collection(workoutExerciseCollectionName),
		exerciseSets:     db.Collection(exerciseSetCollectionName),
	}
}

// === Daily sessions ===

func (r *mongoWorkoutRepository) GetDailyWorkout(ctx context.Context, memberID primitive.ObjectID, date time.Time) (*domain.DailyWorkout, error) {
	var w domain.DailyWorkout
	filter := bson.M{"memberId": memberID, "workoutDate": domain.WorkoutDate(date)}
	if err := r.dailyWorkouts.FindOne(ctx, filter).Decode(&w); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &w, nil
}

func (r *mongoWorkoutRepository) CreateDailyWorkout(ctx context.Context, w *domain.DailyWorkout) (primitive.ObjectID, error) {
	w.ID = primitive.NewObjectID()
	w.Date = domain.WorkoutDate(w.Date)
	now := time.Now().UTC()
	w.CreatedAt = now
	w.UpdatedAt = now

	_, err := r.dailyWorkouts.InsertOne(ctx, w)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return primitive.NilObjectID, repository.ErrConflict
		}
		return primitive.NilObjectID, err
	}
	return w.ID, nil
}

func (r *mongoWorkoutRepository) GetDailyWorkoutByID(ctx context.Context, id primitive.ObjectID) (*domain.DailyWorkout, error) {
	var w domain.DailyWorkout
	if err := r.dailyWorkouts.FindOne(ctx, bson.M{"_id": id}).Decode(&w); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &w, nil
}

func (r *mongoWorkoutRepository) ListDailyWorkouts(ctx context.Context, memberID primitive.ObjectID, date *time.Time) ([]domain.DailyWorkout, error) {
	filter := bson.M{"memberId": memberID}
	if date != nil {
		filter["workoutDate"] = domain.WorkoutDate(*date)
	}

	opts := options.Find().SetSort(bson.D{
		{Key: "workoutDate", Value: -1},
		{Key: "createdAt", Value: -1},
	})
	cursor, err := r.dailyWorkouts.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var workouts []domain.DailyWorkout
	if err := cursor.All(ctx, &workouts); err != nil {
		return nil, err
	}
	return workouts, nil
}

func (r *mongoWorkoutRepository) UpdateDailyWorkoutTotals(ctx context.Context, id primitive.ObjectID, totalDurationSec, totalCalories int) error {
	update := bson.M{"$set": bson.M{
		"totalDurationSec": totalDurationSec,
		"totalCalories":    totalCalories,
		"updatedAt":        time.Now().UTC(),
	}}
	result, err := r.dailyWorkouts.UpdateOne(ctx, bson.M{"_id": id}, update)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *mongoWorkoutRepository) SetDailyWorkoutCompleted(ctx context.Context, id primitive.ObjectID, completed bool) error {
	update := bson.M{"$set": bson.M{
		"isCompleted": completed,
		"updatedAt":   time.Now().UTC(),
	}}
	result, err := r.dailyWorkouts.UpdateOne(ctx, bson.M{"_id": id}, update)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// === Exercise entries ===

func (r *mongoWorkoutRepository) GetWorkoutExercise(ctx context.Context, dailyWorkoutID, exerciseID primitive.ObjectID) (*domain.WorkoutExercise, error) {
	var we domain.WorkoutExercise
	filter := bson.M{"dailyWorkoutId": dailyWorkoutID, "exerciseId": exerciseID}
	if err := r.workoutExercises.FindOne(ctx, filter).Decode(&we); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &we, nil
}

func (r *mongoWorkoutRepository) GetWorkoutExerciseByID(ctx context.Context, id primitive.ObjectID) (*domain.WorkoutExercise, error) {
	var we domain.WorkoutExercise
	if err := r.workoutExercises.FindOne(ctx, bson.M{"_id": id}).Decode(&we); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &we, nil
}

func (r *mongoWorkoutRepository) CreateWorkoutExercise(ctx context.Context, we *domain.WorkoutExercise) (primitive.ObjectID, error) {
	we.ID = primitive.NewObjectID()
	now := time.Now().UTC()
	we.CreatedAt = now
	we.UpdatedAt = now

	_, err := r.workoutExercises.InsertOne(ctx, we)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return primitive.NilObjectID, repository.ErrConflict
		}
		return primitive.NilObjectID, err
	}
	return we.ID, nil
}

func (r *mongoWorkoutRepository) ListWorkoutExercises(ctx context.Context, dailyWorkoutID primitive.ObjectID) ([]domain.WorkoutExercise, error) {
	opts := options.Find().SetSort(bson.D{{Key: "orderNumber", Value: 1}})
	cursor, err := r.workoutExercises.Find(ctx, bson.M{"dailyWorkoutId": dailyWorkoutID}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var entries []domain.WorkoutExercise
	if err := cursor.All(ctx, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

func (r *mongoWorkoutRepository) CountWorkoutExercises(ctx context.Context, dailyWorkoutID primitive.ObjectID) (int, error) {
	n, err := r.workoutExercises.CountDocuments(ctx, bson.M{"dailyWorkoutId": dailyWorkoutID})
	if err != nil {
		return 0, err
	}
	return int(n), nil
}

func (r *mongoWorkoutRepository) UpdateWorkoutExerciseTotals(ctx context.Context, id primitive.ObjectID, totalSets, totalDurationSec, totalCalories int) error {
	update := bson.M{"$set": bson.M{
		"totalSets":        totalSets,
		"totalDurationSec": totalDurationSec,
		"totalCalories":    totalCalories,
		"updatedAt":        time.Now().UTC(),
	}}
	result, err := r.workoutExercises.UpdateOne(ctx, bson.M{"_id": id}, update)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// === Sets ===

func (r *mongoWorkoutRepository) CreateSet(ctx context.Context, set *domain.ExerciseSet) (primitive.ObjectID, error) {
	set.ID = primitive.NewObjectID()
	if set.CompletedAt.IsZero() {
		set.CompletedAt = time.Now().UTC()
	}

	_, err := r.exerciseSets.InsertOne(ctx, set)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return primitive.NilObjectID, repository.ErrConflict
		}
		return primitive.NilObjectID, err
	}
	return set.ID, nil
}

func (r *mongoWorkoutRepository) GetSetByID(ctx context.Context, id primitive.ObjectID) (*domain.ExerciseSet, error) {
	var set domain.ExerciseSet
	if err := r.exerciseSets.FindOne(ctx, bson.M{"_id": id}).Decode(&set); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &set, nil
}

func (r *mongoWorkoutRepository) ListSets(ctx context.Context, workoutExerciseID primitive.ObjectID) ([]domain.ExerciseSet, error) {
	opts := options.Find().SetSort(bson.D{{Key: "setNumber", Value: 1}})
	cursor, err := r.exerciseSets.Find(ctx, bson.M{"workoutExerciseId": workoutExerciseID}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var sets []domain.ExerciseSet
	if err := cursor.All(ctx, &sets); err != nil {
		return nil, err
	}
	return sets, nil
}

func (r *mongoWorkoutRepository) UpdateSet(ctx context.Context, set *domain.ExerciseSet) error {
	update := bson.M{"$set": bson.M{
		"repetitions": set.Repetitions,
		"weightKg":    set.WeightKg,
		"durationSec": set.DurationSec,
		"calories":    set.Calories,
	}}
	result, err := r.exerciseSets.UpdateOne(ctx, bson.M{"_id": set.ID}, update)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *mongoWorkoutRepository) DeleteSet(ctx context.Context, id primitive.ObjectID) error {
	result, err := r.exerciseSets.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if result.DeletedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *mongoWorkoutRepository) SetSetNumber(ctx context.Context, id primitive.ObjectID, setNumber int) error {
	result, err := r.exerciseSets.UpdateOne(ctx,
		bson.M{"_id": id},
		bson.M{"$set": bson.M{"setNumber": setNumber}},
	)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// DeleteByMemberID cascades through all three levels for one member.
func (r *mongoWorkoutRepository) DeleteByMemberID(ctx context.Context, memberID primitive.ObjectID) error {
	workouts, err := r.ListDailyWorkouts(ctx, memberID, nil)
	if err != nil {
		return err
	}

	for _, w := range workouts {
		entries, err := r.ListWorkoutExercises(ctx, w.ID)
		if err != nil {
			return err
		}
		for _, we := range entries {
			if _, err := r.exerciseSets.DeleteMany(ctx, bson.M{"workoutExerciseId": we.ID}); err != nil {
				return err
			}
		}
		if _, err := r.workoutExercises.DeleteMany(ctx, bson.M{"dailyWorkoutId": w.ID}); err != nil {
			return err
		}
	}

	_, err = r.dailyWorkouts.DeleteMany(ctx, bson.M{"memberId": memberID})
	return err
}

// EnsureWorkoutIndexes creates necessary indexes for all three workout
// collections. The unique indexes back the data model invariants: one
// session per (member, date), one entry per (session, exercise), one
// set number per entry.
func EnsureWorkoutIndexes(ctx context.Context, db *mongo.Database) {
	_, _ = db.Collection(dailyWorkoutCollectionName).Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys: bson.D{
				{Key: "memberId", Value: 1},
				{Key: "workoutDate", Value: 1},
			},
			Options: options.Index().SetUnique(true),
		},
	})

	_, _ = db.Collection(workoutExerciseCollectionName).Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys: bson.D{
				{Key: "dailyWorkoutId", Value: 1},
				{Key: "exerciseId", Value: 1},
			},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys: bson.D{
				{Key: "dailyWorkoutId", Value: 1},
				{Key: "orderNumber", Value: 1},
			},
			Options: options.Index().SetUnique(true),
		},
	})

	_, _ = db.Collection(exerciseSetCollectionName).Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys: bson.D{
				{Key: "workoutExerciseId", Value: 1},
				{Key: "setNumber", Value: 1},
			},
			Options: options.Index().SetUnique(true),
		},
	})
}
