package service

import (
	"context"
	"io"
	"sort"
	"strings"
	"time"

	"trainmate/api/internal/domain"
	"trainmate/api/internal/repository"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// In-memory repositories backing the service tests. They honor the same
// error contract as the Mongo implementations (repository.ErrNotFound,
// repository.ErrConflict) but keep everything in maps.

type fakeTxRunner struct {
	// failWith, when set, makes every transaction fail without running fn.
	failWith error
}

func (f *fakeTxRunner) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if f.failWith != nil {
		return f.failWith
	}
	return fn(ctx)
}

// --- Users ---

type fakeUserRepo struct {
	users map[primitive.ObjectID]*domain.User
	// createErr, when set, fails the next Create call.
	createErr error
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[primitive.ObjectID]*domain.User)}
}

func (f *fakeUserRepo) put(user domain.User) primitive.ObjectID {
	if user.ID.IsZero() {
		user.ID = primitive.NewObjectID()
	}
	f.users[user.ID] = &user
	return user.ID
}

func (f *fakeUserRepo) Create(ctx context.Context, user *domain.User) (primitive.ObjectID, error) {
	if f.createErr != nil {
		return primitive.NilObjectID, f.createErr
	}
	for _, existing := range f.users {
		if existing.Email == user.Email {
			return primitive.NilObjectID, repository.ErrConflict
		}
	}
	user.ID = primitive.NewObjectID()
	user.CreatedAt = time.Now().UTC()
	clone := *user
	f.users[user.ID] = &clone
	return user.ID, nil
}

func (f *fakeUserRepo) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	for _, user := range f.users {
		if user.Email == email {
			clone := *user
			return &clone, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (f *fakeUserRepo) GetByID(ctx context.Context, id primitive.ObjectID) (*domain.User, error) {
	user, ok := f.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	clone := *user
	return &clone, nil
}

func (f *fakeUserRepo) SearchMembers(ctx context.Context, query string, ids []primitive.ObjectID, excludeID primitive.ObjectID, limit int) ([]domain.User, error) {
	allowed := make(map[primitive.ObjectID]bool, len(ids))
	for _, id := range ids {
		allowed[id] = true
	}

	lowered := strings.ToLower(query)
	var out []domain.User
	for _, user := range f.users {
		if user.ID == excludeID || user.Role != domain.RoleMember || !allowed[user.ID] {
			continue
		}
		if !strings.Contains(strings.ToLower(user.Name), lowered) &&
			!strings.Contains(strings.ToLower(user.Email), lowered) {
			continue
		}
		out = append(out, *user)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeUserRepo) GetByIDs(ctx context.Context, ids []primitive.ObjectID) ([]domain.User, error) {
	var out []domain.User
	for _, id := range ids {
		if user, ok := f.users[id]; ok {
			out = append(out, *user)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (f *fakeUserRepo) Delete(ctx context.Context, id primitive.ObjectID) error {
	if _, ok := f.users[id]; !ok {
		return repository.ErrNotFound
	}
	delete(f.users, id)
	return nil
}

// --- Profiles ---

type fakeProfileRepo struct {
	profiles map[primitive.ObjectID]*domain.Profile // keyed by UserID
	// createErr, when set, fails the next Create call.
	createErr error
}

func newFakeProfileRepo() *fakeProfileRepo {
	return &fakeProfileRepo{profiles: make(map[primitive.ObjectID]*domain.Profile)}
}

func (f *fakeProfileRepo) put(profile domain.Profile) {
	if profile.ID.IsZero() {
		profile.ID = primitive.NewObjectID()
	}
	f.profiles[profile.UserID] = &profile
}

func (f *fakeProfileRepo) Create(ctx context.Context, profile *domain.Profile) (primitive.ObjectID, error) {
	if f.createErr != nil {
		return primitive.NilObjectID, f.createErr
	}
	if _, ok := f.profiles[profile.UserID]; ok {
		return primitive.NilObjectID, repository.ErrConflict
	}
	profile.ID = primitive.NewObjectID()
	clone := *profile
	f.profiles[profile.UserID] = &clone
	return profile.ID, nil
}

func (f *fakeProfileRepo) GetByUserID(ctx context.Context, userID primitive.ObjectID) (*domain.Profile, error) {
	profile, ok := f.profiles[userID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	clone := *profile
	return &clone, nil
}

func (f *fakeProfileRepo) Update(ctx context.Context, profile *domain.Profile) error {
	if _, ok := f.profiles[profile.UserID]; !ok {
		return repository.ErrNotFound
	}
	clone := *profile
	f.profiles[profile.UserID] = &clone
	return nil
}

func (f *fakeProfileRepo) SetAssignedTrainer(ctx context.Context, memberUserID, trainerUserID primitive.ObjectID) error {
	profile, ok := f.profiles[memberUserID]
	if !ok {
		return repository.ErrNotFound
	}
	if profile.AssignedTrainerID != nil {
		return repository.ErrConflict
	}
	id := trainerUserID
	profile.AssignedTrainerID = &id
	return nil
}

func (f *fakeProfileRepo) UnassignedMemberIDs(ctx context.Context) ([]primitive.ObjectID, error) {
	var out []primitive.ObjectID
	for userID, profile := range f.profiles {
		if profile.Role == domain.RoleMember && profile.AssignedTrainerID == nil {
			out = append(out, userID)
		}
	}
	return out, nil
}

func (f *fakeProfileRepo) MemberIDsByTrainer(ctx context.Context, trainerUserID primitive.ObjectID) ([]primitive.ObjectID, error) {
	var out []primitive.ObjectID
	for userID, profile := range f.profiles {
		if profile.AssignedTrainerID != nil && *profile.AssignedTrainerID == trainerUserID {
			out = append(out, userID)
		}
	}
	return out, nil
}

func (f *fakeProfileRepo) ClearTrainer(ctx context.Context, trainerUserID primitive.ObjectID) error {
	for _, profile := range f.profiles {
		if profile.AssignedTrainerID != nil && *profile.AssignedTrainerID == trainerUserID {
			profile.AssignedTrainerID = nil
		}
	}
	return nil
}

func (f *fakeProfileRepo) DeleteByUserID(ctx context.Context, userID primitive.ObjectID) error {
	delete(f.profiles, userID)
	return nil
}

// --- Exercises ---

type fakeExerciseRepo struct {
	exercises map[primitive.ObjectID]*domain.Exercise
	// getErr, when set, fails every GetByID call.
	getErr error
}

func newFakeExerciseRepo() *fakeExerciseRepo {
	return &fakeExerciseRepo{exercises: make(map[primitive.ObjectID]*domain.Exercise)}
}

func (f *fakeExerciseRepo) Create(ctx context.Context, exercise *domain.Exercise) (primitive.ObjectID, error) {
	exercise.ID = primitive.NewObjectID()
	clone := *exercise
	f.exercises[exercise.ID] = &clone
	return exercise.ID, nil
}

func (f *fakeExerciseRepo) GetByID(ctx context.Context, id primitive.ObjectID) (*domain.Exercise, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	exercise, ok := f.exercises[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	clone := *exercise
	return &clone, nil
}

func (f *fakeExerciseRepo) GetOrCreate(ctx context.Context, exercise *domain.Exercise) (*domain.Exercise, bool, error) {
	for _, existing := range f.exercises {
		if existing.Name == exercise.Name &&
			existing.BodyPart == exercise.BodyPart &&
			existing.Equipment == exercise.Equipment {
			clone := *existing
			return &clone, false, nil
		}
	}
	exercise.ID = primitive.NewObjectID()
	clone := *exercise
	f.exercises[exercise.ID] = &clone
	created := *exercise
	return &created, true, nil
}

func (f *fakeExerciseRepo) List(ctx context.Context, bodyPart string) ([]domain.Exercise, error) {
	var out []domain.Exercise
	for _, exercise := range f.exercises {
		if bodyPart != "" && exercise.BodyPart != bodyPart {
			continue
		}
		out = append(out, *exercise)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// --- Workouts ---

type fakeWorkoutRepo struct {
	dailyWorkouts    map[primitive.ObjectID]*domain.DailyWorkout
	workoutExercises map[primitive.ObjectID]*domain.WorkoutExercise
	sets             map[primitive.ObjectID]*domain.ExerciseSet
}

func newFakeWorkoutRepo() *fakeWorkoutRepo {
	return &fakeWorkoutRepo{
		dailyWorkouts:    make(map[primitive.ObjectID]*domain.DailyWorkout),
		workoutExercises: make(map[primitive.ObjectID]*domain.WorkoutExercise),
		sets:             make(map[primitive.ObjectID]*domain.ExerciseSet),
	}
}

func (f *fakeWorkoutRepo) GetDailyWorkout(ctx context.Context, memberID primitive.ObjectID, date time.Time) (*domain.DailyWorkout, error) {
	for _, w := range f.dailyWorkouts {
		if w.MemberID == memberID && w.Date.Equal(date) {
			clone := *w
			return &clone, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (f *fakeWorkoutRepo) CreateDailyWorkout(ctx context.Context, w *domain.DailyWorkout) (primitive.ObjectID, error) {
	w.ID = primitive.NewObjectID()
	clone := *w
	f.dailyWorkouts[w.ID] = &clone
	return w.ID, nil
}

func (f *fakeWorkoutRepo) GetDailyWorkoutByID(ctx context.Context, id primitive.ObjectID) (*domain.DailyWorkout, error) {
	w, ok := f.dailyWorkouts[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	clone := *w
	return &clone, nil
}

func (f *fakeWorkoutRepo) ListDailyWorkouts(ctx context.Context, memberID primitive.ObjectID, date *time.Time) ([]domain.DailyWorkout, error) {
	var out []domain.DailyWorkout
	for _, w := range f.dailyWorkouts {
		if w.MemberID != memberID {
			continue
		}
		if date != nil && !w.Date.Equal(domain.WorkoutDate(*date)) {
			continue
		}
		out = append(out, *w)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.After(out[j].Date) })
	return out, nil
}

func (f *fakeWorkoutRepo) UpdateDailyWorkoutTotals(ctx context.Context, id primitive.ObjectID, totalDurationSec, totalCalories int) error {
	w, ok := f.dailyWorkouts[id]
	if !ok {
		return repository.ErrNotFound
	}
	w.TotalDurationSec = totalDurationSec
	w.TotalCalories = totalCalories
	return nil
}

func (f *fakeWorkoutRepo) SetDailyWorkoutCompleted(ctx context.Context, id primitive.ObjectID, completed bool) error {
	w, ok := f.dailyWorkouts[id]
	if !ok {
		return repository.ErrNotFound
	}
	w.IsCompleted = completed
	return nil
}

func (f *fakeWorkoutRepo) GetWorkoutExercise(ctx context.Context, dailyWorkoutID, exerciseID primitive.ObjectID) (*domain.WorkoutExercise, error) {
	for _, we := range f.workoutExercises {
		if we.DailyWorkoutID == dailyWorkoutID && we.ExerciseID == exerciseID {
			clone := *we
			return &clone, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (f *fakeWorkoutRepo) GetWorkoutExerciseByID(ctx context.Context, id primitive.ObjectID) (*domain.WorkoutExercise, error) {
	we, ok := f.workoutExercises[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	clone := *we
	return &clone, nil
}

func (f *fakeWorkoutRepo) CreateWorkoutExercise(ctx context.Context, we *domain.WorkoutExercise) (primitive.ObjectID, error) {
	we.ID = primitive.NewObjectID()
	clone := *we
	f.workoutExercises[we.ID] = &clone
	return we.ID, nil
}

func (f *fakeWorkoutRepo) ListWorkoutExercises(ctx context.Context, dailyWorkoutID primitive.ObjectID) ([]domain.WorkoutExercise, error) {
	var out []domain.WorkoutExercise
	for _, we := range f.workoutExercises {
		if we.DailyWorkoutID == dailyWorkoutID {
			out = append(out, *we)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].OrderNumber < out[j].OrderNumber })
	return out, nil
}

func (f *fakeWorkoutRepo) CountWorkoutExercises(ctx context.Context, dailyWorkoutID primitive.ObjectID) (int, error) {
	count := 0
	for _, we := range f.workoutExercises {
		if we.DailyWorkoutID == dailyWorkoutID {
			count++
		}
	}
	return count, nil
}

func (f *fakeWorkoutRepo) UpdateWorkoutExerciseTotals(ctx context.Context, id primitive.ObjectID, totalSets, totalDurationSec, totalCalories int) error {
	we, ok := f.workoutExercises[id]
	if !ok {
		return repository.ErrNotFound
	}
	we.TotalSets = totalSets
	we.TotalDurationSec = totalDurationSec
	we.TotalCalories = totalCalories
	return nil
}

func (f *fakeWorkoutRepo) CreateSet(ctx context.Context, set *domain.ExerciseSet) (primitive.ObjectID, error) {
	set.ID = primitive.NewObjectID()
	clone := *set
	f.sets[set.ID] = &clone
	return set.ID, nil
}

func (f *fakeWorkoutRepo) GetSetByID(ctx context.Context, id primitive.ObjectID) (*domain.ExerciseSet, error) {
	set, ok := f.sets[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	clone := *set
	return &clone, nil
}

func (f *fakeWorkoutRepo) ListSets(ctx context.Context, workoutExerciseID primitive.ObjectID) ([]domain.ExerciseSet, error) {
	var out []domain.ExerciseSet
	for _, set := range f.sets {
		if set.WorkoutExerciseID == workoutExerciseID {
			out = append(out, *set)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SetNumber < out[j].SetNumber })
	return out, nil
}

func (f *fakeWorkoutRepo) UpdateSet(ctx context.Context, set *domain.ExerciseSet) error {
	if _, ok := f.sets[set.ID]; !ok {
		return repository.ErrNotFound
	}
	clone := *set
	f.sets[set.ID] = &clone
	return nil
}

func (f *fakeWorkoutRepo) DeleteSet(ctx context.Context, id primitive.ObjectID) error {
	if _, ok := f.sets[id]; !ok {
		return repository.ErrNotFound
	}
	delete(f.sets, id)
	return nil
}

func (f *fakeWorkoutRepo) SetSetNumber(ctx context.Context, id primitive.ObjectID, setNumber int) error {
	set, ok := f.sets[id]
	if !ok {
		return repository.ErrNotFound
	}
	set.SetNumber = setNumber
	return nil
}

func (f *fakeWorkoutRepo) DeleteByMemberID(ctx context.Context, memberID primitive.ObjectID) error {
	for id, w := range f.dailyWorkouts {
		if w.MemberID != memberID {
			continue
		}
		for weID, we := range f.workoutExercises {
			if we.DailyWorkoutID != id {
				continue
			}
			for setID, set := range f.sets {
				if set.WorkoutExerciseID == weID {
					delete(f.sets, setID)
				}
			}
			delete(f.workoutExercises, weID)
		}
		delete(f.dailyWorkouts, id)
	}
	return nil
}

// --- Tokens ---

type fakeTokenRepo struct {
	revoked map[string]*domain.RevokedToken
}

func newFakeTokenRepo() *fakeTokenRepo {
	return &fakeTokenRepo{revoked: make(map[string]*domain.RevokedToken)}
}

func (f *fakeTokenRepo) Revoke(ctx context.Context, token *domain.RevokedToken) error {
	clone := *token
	f.revoked[token.JTI] = &clone
	return nil
}

func (f *fakeTokenRepo) IsRevoked(ctx context.Context, jti string) (bool, error) {
	_, ok := f.revoked[jti]
	return ok, nil
}

// --- File storage ---

type fakeFileStorage struct {
	objects map[string][]byte
	deleted []string
}

func newFakeFileStorage() *fakeFileStorage {
	return &fakeFileStorage{objects: make(map[string][]byte)}
}

func (f *fakeFileStorage) Upload(ctx context.Context, objectKey string, contentType string, body io.Reader, size int64) error {
	data, err := io.ReadAll(body)
	if err != nil {
		return err
	}
	f.objects[objectKey] = data
	return nil
}

func (f *fakeFileStorage) GeneratePresignedDownloadURL(ctx context.Context, objectKey string, expires time.Duration) (string, error) {
	return "https://files.test/" + objectKey, nil
}

func (f *fakeFileStorage) DeleteObject(ctx context.Context, objectKey string) error {
	delete(f.objects, objectKey)
	f.deleted = append(f.deleted, objectKey)
	return nil
}
