package repository

import (
	"context"
	"time"

	"trainmate/api/internal/domain"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Error constants for the repository layer. Services translate these into
// their own error taxonomy; they must never reach the API boundary as-is.
var (
	ErrNotFound     = RepositoryError("not found")
	ErrConflict     = RepositoryError("conflict")
	ErrUpdateFailed = RepositoryError("update failed")
	ErrDeleteFailed = RepositoryError("delete failed")
	ErrUnavailable  = RepositoryError("storage unavailable")
)

// RepositoryError helps distinguish repository errors
type RepositoryError string

func (e RepositoryError) Error() string {
	return string(e)
}

// TxRunner executes fn inside a single storage transaction. Every repository
// call made with the context passed to fn joins that transaction; if fn
// returns an error the whole transaction rolls back and nothing is visible
// to readers.
type TxRunner interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// UserRepository defines the interface for interacting with user accounts.
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) (primitive.ObjectID, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (*domain.User, error)
	// SearchMembers finds users with the member role whose name or email
	// contains query (case-insensitive), restricted to the given IDs,
	// excluding excludeID, capped at limit results.
	SearchMembers(ctx context.Context, query string, ids []primitive.ObjectID, excludeID primitive.ObjectID, limit int) ([]domain.User, error)
	GetByIDs(ctx context.Context, ids []primitive.ObjectID) ([]domain.User, error)
	Delete(ctx context.Context, id primitive.ObjectID) error
}

// ProfileRepository defines the interface for the 1:1 user profiles.
type ProfileRepository interface {
	Create(ctx context.Context, profile *domain.Profile) (primitive.ObjectID, error)
	GetByUserID(ctx context.Context, userID primitive.ObjectID) (*domain.Profile, error)
	Update(ctx context.Context, profile *domain.Profile) error
	// SetAssignedTrainer records the trainer assignment on a member profile.
	// It only matches a profile whose assignment is currently empty, so a
	// concurrent double-assign loses with ErrConflict.
	SetAssignedTrainer(ctx context.Context, memberUserID, trainerUserID primitive.ObjectID) error
	// UnassignedMemberIDs lists the user IDs of member profiles with no
	// trainer assignment.
	UnassignedMemberIDs(ctx context.Context) ([]primitive.ObjectID, error)
	// MemberIDsByTrainer lists the user IDs of members assigned to trainer.
	MemberIDsByTrainer(ctx context.Context, trainerUserID primitive.ObjectID) ([]primitive.ObjectID, error)
	// ClearTrainer removes the assignment edge from every member of the
	// given trainer (cascade step when a trainer account is deleted).
	ClearTrainer(ctx context.Context, trainerUserID primitive.ObjectID) error
	DeleteByUserID(ctx context.Context, userID primitive.ObjectID) error
}

// ExerciseRepository defines the interface for the exercise catalog.
type ExerciseRepository interface {
	Create(ctx context.Context, exercise *domain.Exercise) (primitive.ObjectID, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (*domain.Exercise, error)
	// GetOrCreate resolves the catalog entry for the structural key
	// (name, bodyPart, equipment), inserting defaults when absent.
	// The returned bool is true when a new entry was created.
	GetOrCreate(ctx context.Context, exercise *domain.Exercise) (*domain.Exercise, bool, error)
	List(ctx context.Context, bodyPart string) ([]domain.Exercise, error)
}

// WorkoutRepository defines the interface for the three-level workout
// hierarchy. Set mutations and the two-level roll-up recompute are expected
// to run inside a TxRunner transaction.
type WorkoutRepository interface {
	// Daily sessions.
	GetDailyWorkout(ctx context.Context, memberID primitive.ObjectID, date time.Time) (*domain.DailyWorkout, error)
	CreateDailyWorkout(ctx context.Context, w *domain.DailyWorkout) (primitive.ObjectID, error)
	GetDailyWorkoutByID(ctx context.Context, id primitive.ObjectID) (*domain.DailyWorkout, error)
	ListDailyWorkouts(ctx context.Context, memberID primitive.ObjectID, date *time.Time) ([]domain.DailyWorkout, error)
	UpdateDailyWorkoutTotals(ctx context.Context, id primitive.ObjectID, totalDurationSec, totalCalories int) error
	SetDailyWorkoutCompleted(ctx context.Context, id primitive.ObjectID, completed bool) error

	// Exercise entries within a session.
	GetWorkoutExercise(ctx context.Context, dailyWorkoutID, exerciseID primitive.ObjectID) (*domain.WorkoutExercise, error)
	GetWorkoutExerciseByID(ctx context.Context, id primitive.ObjectID) (*domain.WorkoutExercise, error)
	CreateWorkoutExercise(ctx context.Context, we *domain.WorkoutExercise) (primitive.ObjectID, error)
	ListWorkoutExercises(ctx context.Context, dailyWorkoutID primitive.ObjectID) ([]domain.WorkoutExercise, error)
	CountWorkoutExercises(ctx context.Context, dailyWorkoutID primitive.ObjectID) (int, error)
	UpdateWorkoutExerciseTotals(ctx context.Context, id primitive.ObjectID, totalSets, totalDurationSec, totalCalories int) error

	// Sets.
	CreateSet(ctx context.Context, set *domain.ExerciseSet) (primitive.ObjectID, error)
	GetSetByID(ctx context.Context, id primitive.ObjectID) (*domain.ExerciseSet, error)
	ListSets(ctx context.Context, workoutExerciseID primitive.ObjectID) ([]domain.ExerciseSet, error)
	UpdateSet(ctx context.Context, set *domain.ExerciseSet) error
	DeleteSet(ctx context.Context, id primitive.ObjectID) error
	// SetSetNumber rewrites a single set's number during dense renumbering.
	SetSetNumber(ctx context.Context, id primitive.ObjectID, setNumber int) error

	// Cascade helper: removes every workout document belonging to member.
	DeleteByMemberID(ctx context.Context, memberID primitive.ObjectID) error
}

// TokenRepository defines the interface for the refresh token blacklist.
type TokenRepository interface {
	Revoke(ctx context.Context, token *domain.RevokedToken) error
	IsRevoked(ctx context.Context, jti string) (bool, error)
}
