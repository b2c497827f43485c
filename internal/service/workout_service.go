package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"trainmate/api/internal/domain"
	"trainmate/api/internal/repository"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// --- Error Definitions ---
var (
	ErrPermissionDenied = errors.New("not allowed to manage this member's workout records")
	ErrWorkoutNotFound  = errors.New("workout record not found")
	ErrSetNotFound      = errors.New("exercise set not found")
	// ErrLastSet guards against a workout exercise silently losing all of
	// its sets: the caller must remove the whole exercise entry instead.
	ErrLastSet = errors.New("cannot delete the last remaining set of an exercise")
)

// LogSetInput carries a new set for a possibly brand-new exercise entry.
// The (ExerciseName, BodyPart, Equipment) triple is the structural key used
// to resolve or auto-create the catalog entry.
type LogSetInput struct {
	ExerciseName string
	BodyPart     string
	Equipment    string
	Repetitions  int
	WeightKg     float64
	DurationSec  int
	Calories     int
}

// SetInput carries the measurable fields of one set.
type SetInput struct {
	Repetitions int
	WeightKg    float64
	DurationSec int
	Calories    int
}

// SetPatch applies only the supplied fields to an existing set.
type SetPatch struct {
	Repetitions *int
	WeightKg    *float64
	DurationSec *int
	Calories    *int
}

// SetResult is a mutated set together with the refreshed roll-up totals on
// both parent levels.
type SetResult struct {
	Set             domain.ExerciseSet
	Exercise        domain.Exercise
	WorkoutExercise domain.WorkoutExercise
	DailyWorkout    domain.DailyWorkout
}

// ExerciseRecord is one exercise entry in a session with its sets expanded.
type ExerciseRecord struct {
	WorkoutExercise domain.WorkoutExercise
	Exercise        domain.Exercise
	Sets            []domain.ExerciseSet
}

// WorkoutRecord is one daily session with its exercise entries expanded.
type WorkoutRecord struct {
	DailyWorkout domain.DailyWorkout
	Exercises    []ExerciseRecord
}

// SetRow is the flat per-set view of a member's history.
type SetRow struct {
	SetID           primitive.ObjectID
	ExerciseName    string
	SetNumber       int
	DurationSec     int
	CaloriesBurned  int
	LoggedByTrainer bool
	CompletedAt     time.Time
}

// --- Service Interface ---
type WorkoutService interface {
	// LogSet is the full three-level get-or-create path: exercise catalog
	// entry, today's daily workout, workout exercise, then the appended set.
	LogSet(ctx context.Context, actorID, memberID primitive.ObjectID, in LogSetInput) (*SetResult, error)
	// AddSet appends a set to an existing workout exercise.
	AddSet(ctx context.Context, actorID, memberID, workoutExerciseID primitive.ObjectID, in SetInput) (*SetResult, error)
	UpdateSet(ctx context.Context, actorID, memberID, workoutExerciseID, setID primitive.ObjectID, patch SetPatch) (*SetResult, error)
	DeleteSet(ctx context.Context, actorID, memberID, workoutExerciseID, setID primitive.ObjectID) (*SetResult, error)
	SetCompleted(ctx context.Context, actorID, memberID, dailyWorkoutID primitive.ObjectID, completed bool) error
	// MemberRecords is the grouped-by-exercise history, newest session first.
	MemberRecords(ctx context.Context, actorID, memberID primitive.ObjectID, date *time.Time) ([]WorkoutRecord, error)
	// MemberSetRows is the flat per-set view of the same history.
	MemberSetRows(ctx context.Context, actorID, memberID primitive.ObjectID, date *time.Time) ([]SetRow, error)
}

// --- Service Implementation ---

type workoutService struct {
	userRepo     repository.UserRepository
	profileRepo  repository.ProfileRepository
	exerciseRepo repository.ExerciseRepository
	workoutRepo  repository.WorkoutRepository
	tx           repository.TxRunner
	// now is the server-side notion of "today" for daily workout keying.
	now func() time.Time
}

// NewWorkoutService creates a new instance of workoutService.
func NewWorkoutService(
	userRepo repository.UserRepository,
	profileRepo repository.ProfileRepository,
	exerciseRepo repository.ExerciseRepository,
	workoutRepo repository.WorkoutRepository,
	tx repository.TxRunner,
) WorkoutService {
	return &workoutService{
		userRepo:     userRepo,
		profileRepo:  profileRepo,
		exerciseRepo: exerciseRepo,
		workoutRepo:  workoutRepo,
		tx:           tx,
		now:          time.Now,
	}
}

// === Authorization ===

// authorizeSetAccess enforces the per-request mutation rules: a member may
// only manage its own records; a trainer may manage its own records or
// those of a currently assigned member. Returns the trainer to stamp on
// newly created daily workouts.
func (s *workoutService) authorizeSetAccess(ctx context.Context, actorID, memberID primitive.ObjectID) (primitive.ObjectID, error) {
	actor, err := s.userRepo.GetByID(ctx, actorID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return primitive.NilObjectID, ErrPermissionDenied
		}
		return primitive.NilObjectID, err
	}

	member, err := s.userRepo.GetByID(ctx, memberID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return primitive.NilObjectID, ErrMemberNotFound
		}
		return primitive.NilObjectID, err
	}

	if actorID == memberID {
		// Self-logging: a member's session is stamped with its assigned
		// trainer when one exists.
		trainerID := actorID
		if member.IsMember() {
			profile, err := s.profileRepo.GetByUserID(ctx, memberID)
			if err == nil && profile.IsAssigned() {
				trainerID = *profile.AssignedTrainerID
			}
		}
		return trainerID, nil
	}

	if !actor.IsTrainer() {
		return primitive.NilObjectID, ErrPermissionDenied
	}

	profile, err := s.profileRepo.GetByUserID(ctx, memberID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return primitive.NilObjectID, ErrMemberNotFound
		}
		return primitive.NilObjectID, err
	}
	if profile.AssignedTrainerID == nil || *profile.AssignedTrainerID != actorID {
		return primitive.NilObjectID, ErrPermissionDenied
	}
	return actorID, nil
}

// authorizeReadAccess allows any authenticated caller to read a member's
// records; only the member's existence is verified.
func (s *workoutService) authorizeReadAccess(ctx context.Context, memberID primitive.ObjectID) error {
	if _, err := s.userRepo.GetByID(ctx, memberID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrMemberNotFound
		}
		return err
	}
	return nil
}

// === Set mutations ===

// LogSet resolves or creates the whole hierarchy for today's session and
// appends the new set. The set insert and both roll-up recomputes commit
// atomically: readers never observe a partial aggregation.
func (s *workoutService) LogSet(ctx context.Context, actorID, memberID primitive.ObjectID, in LogSetInput) (*SetResult, error) {
	if fieldErrs := validateLogSet(in); fieldErrs.HasErrors() {
		return nil, fieldErrs
	}

	trainerID, err := s.authorizeSetAccess(ctx, actorID, memberID)
	if err != nil {
		return nil, err
	}

	var result SetResult
	err = s.tx.WithTransaction(ctx, func(txCtx context.Context) error {
		exercise, _, err := s.exerciseRepo.GetOrCreate(txCtx, &domain.Exercise{
			Name:      strings.TrimSpace(in.ExerciseName),
			BodyPart:  strings.TrimSpace(in.BodyPart),
			Equipment: strings.TrimSpace(in.Equipment),
			METValue:  domain.DefaultMETValue,
			Active:    true,
		})
		if err != nil {
			return err
		}
		result.Exercise = *exercise

		workout, err := s.getOrCreateDailyWorkout(txCtx, memberID, trainerID)
		if err != nil {
			return err
		}

		entry, err := s.getOrCreateWorkoutExercise(txCtx, workout.ID, exercise.ID)
		if err != nil {
			return err
		}

		return s.appendSetAndRecompute(txCtx, entry, SetInput{
			Repetitions: in.Repetitions,
			WeightKg:    in.WeightKg,
			DurationSec: in.DurationSec,
			Calories:    in.Calories,
		}, &result)
	})
	if err != nil {
		return nil, mapTxError(err)
	}
	return &result, nil
}

// AddSet appends one more set to an existing workout exercise and reruns
// the two-level recompute.
func (s *workoutService) AddSet(ctx context.Context, actorID, memberID, workoutExerciseID primitive.ObjectID, in SetInput) (*SetResult, error) {
	if fieldErrs := validateSetInput(in); fieldErrs.HasErrors() {
		return nil, fieldErrs
	}

	if _, err := s.authorizeSetAccess(ctx, actorID, memberID); err != nil {
		return nil, err
	}

	var result SetResult
	err := s.tx.WithTransaction(ctx, func(txCtx context.Context) error {
		entry, err := s.ownedWorkoutExercise(txCtx, memberID, workoutExerciseID)
		if err != nil {
			return err
		}
		ex, err := s.exerciseRepo.GetByID(txCtx, entry.ExerciseID)
		if err != nil {
			// A dangling catalog reference only costs the response its name;
			// anything else is a real lookup failure.
			if !errors.Is(err, repository.ErrNotFound) {
				return err
			}
		} else {
			result.Exercise = *ex
		}
		return s.appendSetAndRecompute(txCtx, entry, in, &result)
	})
	if err != nil {
		return nil, mapTxError(err)
	}
	return &result, nil
}

// UpdateSet applies the supplied fields to an existing set and reruns the
// two-level recompute.
func (s *workoutService) UpdateSet(ctx context.Context, actorID, memberID, workoutExerciseID, setID primitive.ObjectID, patch SetPatch) (*SetResult, error) {
	if fieldErrs := validateSetPatch(patch); fieldErrs.HasErrors() {
		return nil, fieldErrs
	}

	if _, err := s.authorizeSetAccess(ctx, actorID, memberID); err != nil {
		return nil, err
	}

	var result SetResult
	err := s.tx.WithTransaction(ctx, func(txCtx context.Context) error {
		entry, err := s.ownedWorkoutExercise(txCtx, memberID, workoutExerciseID)
		if err != nil {
			return err
		}

		set, err := s.workoutRepo.GetSetByID(txCtx, setID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return ErrSetNotFound
			}
			return err
		}
		if set.WorkoutExerciseID != entry.ID {
			return ErrSetNotFound
		}

		if patch.Repetitions != nil {
			set.Repetitions = *patch.Repetitions
		}
		if patch.WeightKg != nil {
			set.WeightKg = *patch.WeightKg
		}
		if patch.DurationSec != nil {
			set.DurationSec = *patch.DurationSec
		}
		if patch.Calories != nil {
			set.Calories = *patch.Calories
		}

		if err := s.workoutRepo.UpdateSet(txCtx, set); err != nil {
			return err
		}
		result.Set = *set

		return s.recomputeTotals(txCtx, entry, &result)
	})
	if err != nil {
		return nil, mapTxError(err)
	}
	return &result, nil
}

// DeleteSet removes a set, renumbers the remainder densely from 1 and
// reruns the two-level recompute. Deleting the sole remaining set is
// rejected and leaves all data unchanged.
func (s *workoutService) DeleteSet(ctx context.Context, actorID, memberID, workoutExerciseID, setID primitive.ObjectID) (*SetResult, error) {
	if _, err := s.authorizeSetAccess(ctx, actorID, memberID); err != nil {
		return nil, err
	}

	var result SetResult
	err := s.tx.WithTransaction(ctx, func(txCtx context.Context) error {
		entry, err := s.ownedWorkoutExercise(txCtx, memberID, workoutExerciseID)
		if err != nil {
			return err
		}

		set, err := s.workoutRepo.GetSetByID(txCtx, setID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return ErrSetNotFound
			}
			return err
		}
		if set.WorkoutExerciseID != entry.ID {
			return ErrSetNotFound
		}

		sets, err := s.workoutRepo.ListSets(txCtx, entry.ID)
		if err != nil {
			return err
		}
		if len(sets) <= 1 {
			return ErrLastSet
		}

		if err := s.workoutRepo.DeleteSet(txCtx, setID); err != nil {
			return err
		}
		result.Set = *set

		// Renumber survivors densely 1..N in their existing relative
		// order. Ascending rewrite order keeps the unique
		// (workoutExerciseId, setNumber) index happy mid-transaction.
		next := 1
		for _, remaining := range sets {
			if remaining.ID == setID {
				continue
			}
			if remaining.SetNumber != next {
				if err := s.workoutRepo.SetSetNumber(txCtx, remaining.ID, next); err != nil {
					return err
				}
			}
			next++
		}

		return s.recomputeTotals(txCtx, entry, &result)
	})
	if err != nil {
		return nil, mapTxError(err)
	}
	return &result, nil
}

// SetCompleted flips the explicit completion flag on a daily workout.
func (s *workoutService) SetCompleted(ctx context.Context, actorID, memberID, dailyWorkoutID primitive.ObjectID, completed bool) error {
	if _, err := s.authorizeSetAccess(ctx, actorID, memberID); err != nil {
		return err
	}

	workout, err := s.workoutRepo.GetDailyWorkoutByID(ctx, dailyWorkoutID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrWorkoutNotFound
		}
		return err
	}
	if workout.MemberID != memberID {
		return ErrWorkoutNotFound
	}

	return s.workoutRepo.SetDailyWorkoutCompleted(ctx, dailyWorkoutID, completed)
}

// === History reads ===

// MemberRecords returns the member's sessions newest-first, each with its
// exercise entries and per-set detail expanded.
func (s *workoutService) MemberRecords(ctx context.Context, actorID, memberID primitive.ObjectID, date *time.Time) ([]WorkoutRecord, error) {
	if err := s.authorizeReadAccess(ctx, memberID); err != nil {
		return nil, err
	}

	workouts, err := s.workoutRepo.ListDailyWorkouts(ctx, memberID, date)
	if err != nil {
		return nil, err
	}

	records := make([]WorkoutRecord, 0, len(workouts))
	for _, w := range workouts {
		entries, err := s.workoutRepo.ListWorkoutExercises(ctx, w.ID)
		if err != nil {
			return nil, err
		}

		record := WorkoutRecord{DailyWorkout: w, Exercises: make([]ExerciseRecord, 0, len(entries))}
		for _, entry := range entries {
			exercise, err := s.exerciseRepo.GetByID(ctx, entry.ExerciseID)
			if err != nil {
				if errors.Is(err, repository.ErrNotFound) {
					continue
				}
				return nil, err
			}

			sets, err := s.workoutRepo.ListSets(ctx, entry.ID)
			if err != nil {
				return nil, err
			}

			record.Exercises = append(record.Exercises, ExerciseRecord{
				WorkoutExercise: entry,
				Exercise:        *exercise,
				Sets:            sets,
			})
		}
		records = append(records, record)
	}
	return records, nil
}

// MemberSetRows flattens the member's history into one row per set.
func (s *workoutService) MemberSetRows(ctx context.Context, actorID, memberID primitive.ObjectID, date *time.Time) ([]SetRow, error) {
	records, err := s.MemberRecords(ctx, actorID, memberID, date)
	if err != nil {
		return nil, err
	}

	rows := []SetRow{}
	for _, record := range records {
		// Supervised sessions carry a trainer stamp distinct from the member.
		supervised := record.DailyWorkout.TrainerID != record.DailyWorkout.MemberID
		for _, er := range record.Exercises {
			for _, set := range er.Sets {
				rows = append(rows, SetRow{
					SetID:           set.ID,
					ExerciseName:    er.Exercise.Name,
					SetNumber:       set.SetNumber,
					DurationSec:     set.DurationSec,
					CaloriesBurned:  set.Calories,
					LoggedByTrainer: supervised,
					CompletedAt:     set.CompletedAt,
				})
			}
		}
	}
	return rows, nil
}

// === Internals ===

func (s *workoutService) getOrCreateDailyWorkout(ctx context.Context, memberID, trainerID primitive.ObjectID) (*domain.DailyWorkout, error) {
	today := domain.WorkoutDate(s.now())

	workout, err := s.workoutRepo.GetDailyWorkout(ctx, memberID, today)
	if err == nil {
		return workout, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}

	workout = &domain.DailyWorkout{
		MemberID:  memberID,
		TrainerID: trainerID,
		Date:      today,
	}
	if _, err := s.workoutRepo.CreateDailyWorkout(ctx, workout); err != nil {
		return nil, err
	}
	return workout, nil
}

func (s *workoutService) getOrCreateWorkoutExercise(ctx context.Context, dailyWorkoutID, exerciseID primitive.ObjectID) (*domain.WorkoutExercise, error) {
	entry, err := s.workoutRepo.GetWorkoutExercise(ctx, dailyWorkoutID, exerciseID)
	if err == nil {
		return entry, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}

	// Order numbers grow monotonically with the session and are never
	// reused, even when earlier entries are deleted.
	count, err := s.workoutRepo.CountWorkoutExercises(ctx, dailyWorkoutID)
	if err != nil {
		return nil, err
	}

	entry = &domain.WorkoutExercise{
		DailyWorkoutID: dailyWorkoutID,
		ExerciseID:     exerciseID,
		OrderNumber:    count + 1,
	}
	if _, err := s.workoutRepo.CreateWorkoutExercise(ctx, entry); err != nil {
		return nil, err
	}
	return entry, nil
}

// ownedWorkoutExercise fetches the entry and verifies it belongs to the
// member's workout hierarchy.
func (s *workoutService) ownedWorkoutExercise(ctx context.Context, memberID, workoutExerciseID primitive.ObjectID) (*domain.WorkoutExercise, error) {
	entry, err := s.workoutRepo.GetWorkoutExerciseByID(ctx, workoutExerciseID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrWorkoutNotFound
		}
		return nil, err
	}

	workout, err := s.workoutRepo.GetDailyWorkoutByID(ctx, entry.DailyWorkoutID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrWorkoutNotFound
		}
		return nil, err
	}
	if workout.MemberID != memberID {
		return nil, ErrWorkoutNotFound
	}
	return entry, nil
}

// appendSetAndRecompute assigns the next set number (always max+1, numbers
// are never reused by an append) and runs the two-level recompute.
func (s *workoutService) appendSetAndRecompute(ctx context.Context, entry *domain.WorkoutExercise, in SetInput, result *SetResult) error {
	sets, err := s.workoutRepo.ListSets(ctx, entry.ID)
	if err != nil {
		return err
	}
	maxNumber := 0
	for _, set := range sets {
		if set.SetNumber > maxNumber {
			maxNumber = set.SetNumber
		}
	}

	set := &domain.ExerciseSet{
		WorkoutExerciseID: entry.ID,
		SetNumber:         maxNumber + 1,
		Repetitions:       in.Repetitions,
		WeightKg:          in.WeightKg,
		DurationSec:       in.DurationSec,
		Calories:          in.Calories,
		CompletedAt:       s.now().UTC(),
	}
	if _, err := s.workoutRepo.CreateSet(ctx, set); err != nil {
		return err
	}
	result.Set = *set

	return s.recomputeTotals(ctx, entry, result)
}

// recomputeTotals rebuilds both roll-up levels from scratch: the workout
// exercise totals from its sets, then the daily workout totals from all of
// its exercise entries. Sums are never drifted incrementally.
func (s *workoutService) recomputeTotals(ctx context.Context, entry *domain.WorkoutExercise, result *SetResult) error {
	sets, err := s.workoutRepo.ListSets(ctx, entry.ID)
	if err != nil {
		return err
	}

	var durationSec, calories int
	for _, set := range sets {
		durationSec += set.DurationSec
		calories += set.Calories
	}
	if err := s.workoutRepo.UpdateWorkoutExerciseTotals(ctx, entry.ID, len(sets), durationSec, calories); err != nil {
		return err
	}
	entry.TotalSets = len(sets)
	entry.TotalDurationSec = durationSec
	entry.TotalCalories = calories
	result.WorkoutExercise = *entry

	entries, err := s.workoutRepo.ListWorkoutExercises(ctx, entry.DailyWorkoutID)
	if err != nil {
		return err
	}
	var dayDurationSec, dayCalories int
	for _, e := range entries {
		dayDurationSec += e.TotalDurationSec
		dayCalories += e.TotalCalories
	}
	if err := s.workoutRepo.UpdateDailyWorkoutTotals(ctx, entry.DailyWorkoutID, dayDurationSec, dayCalories); err != nil {
		return err
	}

	workout, err := s.workoutRepo.GetDailyWorkoutByID(ctx, entry.DailyWorkoutID)
	if err != nil {
		return err
	}
	result.DailyWorkout = *workout
	return nil
}

// mapTxError keeps service-level sentinels intact and converts everything
// the storage layer threw mid-transaction into the retryable 503 class.
func mapTxError(err error) error {
	switch {
	case errors.Is(err, ErrLastSet),
		errors.Is(err, ErrSetNotFound),
		errors.Is(err, ErrWorkoutNotFound),
		errors.Is(err, ErrMemberNotFound),
		errors.Is(err, ErrPermissionDenied):
		return err
	}
	if _, ok := AsFieldErrors(err); ok {
		return err
	}
	// A raw ErrNotFound here means a document vanished between transaction
	// steps, which is a concurrent-write casualty like a conflict: the
	// transaction rolled back and a retry can succeed.
	if errors.Is(err, repository.ErrConflict) ||
		errors.Is(err, repository.ErrUnavailable) ||
		errors.Is(err, repository.ErrNotFound) {
		return ErrStorageUnavailable
	}
	return err
}

// === Validation ===

func validateLogSet(in LogSetInput) FieldErrors {
	fieldErrs := validateSetInput(SetInput{
		Repetitions: in.Repetitions,
		WeightKg:    in.WeightKg,
		DurationSec: in.DurationSec,
		Calories:    in.Calories,
	})

	if strings.TrimSpace(in.ExerciseName) == "" {
		fieldErrs.Add("exercise_name", "exercise name is required")
	}
	if strings.TrimSpace(in.BodyPart) == "" {
		fieldErrs.Add("body_part", "body part is required")
	}
	if strings.TrimSpace(in.Equipment) == "" {
		fieldErrs.Add("equipment", "equipment is required")
	}
	return fieldErrs
}

// Zero repetitions or duration are invalid, not defaulted; weight and
// calories may legitimately be zero (bodyweight work, unknown burn).
func validateSetInput(in SetInput) FieldErrors {
	fieldErrs := FieldErrors{}
	if in.Repetitions <= 0 {
		fieldErrs.Add("repetitions", "repetitions must be greater than zero")
	}
	if in.WeightKg < 0 {
		fieldErrs.Add("weight_kg", "weight cannot be negative")
	}
	if in.DurationSec <= 0 {
		fieldErrs.Add("duration_sec", "duration must be greater than zero")
	}
	if in.Calories < 0 {
		fieldErrs.Add("calories", "calories cannot be negative")
	}
	return fieldErrs
}

func validateSetPatch(patch SetPatch) FieldErrors {
	fieldErrs := FieldErrors{}
	if patch.Repetitions != nil && *patch.Repetitions <= 0 {
		fieldErrs.Add("repetitions", "repetitions must be greater than zero")
	}
	if patch.WeightKg != nil && *patch.WeightKg < 0 {
		fieldErrs.Add("weight_kg", "weight cannot be negative")
	}
	if patch.DurationSec != nil && *patch.DurationSec <= 0 {
		fieldErrs.Add("duration_sec", "duration must be greater than zero")
	}
	if patch.Calories != nil && *patch.Calories < 0 {
		fieldErrs.Add("calories", "calories cannot be negative")
	}
	return fieldErrs
}
