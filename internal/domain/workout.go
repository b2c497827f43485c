package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// DailyWorkout is one calendar-day training session for one member.
// At most one document exists per (member, date); it is lazily created on
// the first set logged that day and owns its WorkoutExercises.
// Totals are roll-ups recomputed from the child documents on every set
// mutation, never incremented in place.
type DailyWorkout struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	MemberID  primitive.ObjectID `bson:"memberId" json:"memberId"`
	TrainerID primitive.ObjectID `bson:"trainerId" json:"trainerId"`
	// Date is normalized to midnight UTC; the (memberId, workoutDate)
	// pair carries a unique index.
	Date             time.Time `bson:"workoutDate" json:"workout_date"`
	TotalDurationSec int       `bson:"totalDurationSec" json:"total_duration_sec"`
	TotalCalories    int       `bson:"totalCalories" json:"total_calories"`
	IsCompleted      bool      `bson:"isCompleted" json:"is_completed"`
	CreatedAt        time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt        time.Time `bson:"updatedAt" json:"updatedAt"`
}

// WorkoutDate truncates t to its calendar date at midnight UTC.
func WorkoutDate(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// WorkoutExercise records one exercise performed within a daily session.
// OrderNumber is assigned as count+1 at creation and never reused, even
// after deletions. Totals aggregate the owned ExerciseSets.
type WorkoutExercise struct {
	ID               primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	DailyWorkoutID   primitive.ObjectID `bson:"dailyWorkoutId" json:"dailyWorkoutId"`
	ExerciseID       primitive.ObjectID `bson:"exerciseId" json:"exerciseId"`
	OrderNumber      int                `bson:"orderNumber" json:"order_number"`
	TotalSets        int                `bson:"totalSets" json:"total_sets"`
	TotalDurationSec int                `bson:"totalDurationSec" json:"total_duration_sec"`
	TotalCalories    int                `bson:"totalCalories" json:"total_calories"`
	CreatedAt        time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt        time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// ExerciseSet is the leaf record of the workout hierarchy. SetNumber is
// unique within its WorkoutExercise and kept densely packed 1..N: appends
// take max+1, deletions renumber the remainder.
type ExerciseSet struct {
	ID                primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	WorkoutExerciseID primitive.ObjectID `bson:"workoutExerciseId" json:"workoutExerciseId"`
	SetNumber         int                `bson:"setNumber" json:"set_number"`
	Repetitions       int                `bson:"repetitions" json:"repetitions"`
	WeightKg          float64            `bson:"weightKg" json:"weight_kg"`
	DurationSec       int                `bson:"durationSec" json:"duration_sec"`
	Calories          int                `bson:"calories" json:"calories"`
	CompletedAt       time.Time          `bson:"completedAt" json:"completed_at"`
}
