package service

import (
	"context"
	"errors"
	"time"

	"trainmate/api/internal/domain"
	"trainmate/api/internal/repository"
)

var ErrExerciseNotFound = errors.New("exercise not found")

// --- Service Interface ---
type ExerciseService interface {
	List(ctx context.Context, bodyPart string) ([]domain.Exercise, error)
	// Import adds a catalog entry with get-or-create semantics; the bool
	// reports whether a new entry was created. Used by the seed command.
	Import(ctx context.Context, exercise domain.Exercise) (*domain.Exercise, bool, error)
	// EstimateCalories applies the MET formula for offline calculations.
	EstimateCalories(ctx context.Context, exercise *domain.Exercise, bodyWeightKg float64, duration time.Duration) int
}

// --- Service Implementation ---

type exerciseService struct {
	exerciseRepo repository.ExerciseRepository
}

// NewExerciseService creates a new instance of exerciseService.
func NewExerciseService(exerciseRepo repository.ExerciseRepository) ExerciseService {
	return &exerciseService{exerciseRepo: exerciseRepo}
}

// List returns the active catalog, optionally filtered by body part.
func (s *exerciseService) List(ctx context.Context, bodyPart string) ([]domain.Exercise, error) {
	return s.exerciseRepo.List(ctx, bodyPart)
}

// Import validates and upserts one catalog entry.
func (s *exerciseService) Import(ctx context.Context, exercise domain.Exercise) (*domain.Exercise, bool, error) {
	fieldErrs := FieldErrors{}
	if exercise.Name == "" {
		fieldErrs.Add("exercise_name", "exercise name is required")
	}
	if exercise.BodyPart == "" {
		fieldErrs.Add("body_part", "body part is required")
	}
	if exercise.METValue == 0 {
		exercise.METValue = domain.DefaultMETValue
	}
	if exercise.METValue < domain.MinMETValue || exercise.METValue > domain.MaxMETValue {
		fieldErrs.Add("met_value", "MET value must be between 1.0 and 20.0")
	}
	if fieldErrs.HasErrors() {
		return nil, false, fieldErrs
	}

	exercise.Active = true
	return s.exerciseRepo.GetOrCreate(ctx, &exercise)
}

// EstimateCalories delegates to the catalog entry's MET coefficient.
func (s *exerciseService) EstimateCalories(_ context.Context, exercise *domain.Exercise, bodyWeightKg float64, duration time.Duration) int {
	return exercise.EstimateCalories(bodyWeightKg, duration)
}
